package service

import (
	"context"
	"testing"

	"merchant-ledger/internal/core/domain"
	"merchant-ledger/internal/core/ports"
	"merchant-ledger/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func setupMerchantRegistry(t *testing.T) (*MerchantRegistryServiceImpl, *ledgerTestDeps) {
	d := newLedgerTestDeps(t)
	return NewMerchantRegistryService(d.deps(), d.checker, zerolog.Nop()), d
}

func TestMerchantRegistry_Register_Self(t *testing.T) {
	svc, d := setupMerchantRegistry(t)
	ctx := context.Background()
	addr, manager := newPrincipal(), newPrincipal()

	d.expectAuth(ctx, addr)
	d.merchants.EXPECT().GetByAddress(ctx, addr).Return(nil, nil)
	d.expectBegin(ctx)
	d.counters.EXPECT().Next(ctx, d.tx, domain.CounterMerchantID).Return(uint64(1), nil)
	d.merchants.EXPECT().Create(ctx, d.tx, &domain.Merchant{
		ID:        1,
		Address:   addr,
		Manager:   manager,
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}).Return(nil)
	d.roles.EXPECT().Grant(ctx, d.tx, &domain.RoleAssignment{
		Principal: addr,
		Role:      domain.RoleMerchant,
		GrantedBy: addr,
		CreatedAt: testNow,
	}).Return(true, nil)
	d.events.EXPECT().Publish(ctx, domain.EventMerchantRegistered, domain.MerchantPayload{
		MerchantID: 1,
		Address:    addr,
		Manager:    manager,
		ChangedBy:  addr,
	})

	m, err := svc.Register(ctx, addr, addr, manager)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), m.ID)
	assert.True(t, d.tx.committed)
}

func TestMerchantRegistry_Register_ByAdmin(t *testing.T) {
	svc, d := setupMerchantRegistry(t)
	ctx := context.Background()
	admin, addr, manager := newPrincipal(), newPrincipal(), newPrincipal()

	d.expectAuth(ctx, admin)
	d.expectRoles(admin, domain.RoleAdmin)
	d.merchants.EXPECT().GetByAddress(ctx, addr).Return(nil, nil)
	d.expectBegin(ctx)
	d.counters.EXPECT().Next(ctx, d.tx, domain.CounterMerchantID).Return(uint64(7), nil)
	d.merchants.EXPECT().Create(ctx, d.tx, gomock.Any()).Return(nil)
	d.roles.EXPECT().Grant(ctx, d.tx, gomock.Any()).Return(true, nil)
	d.events.EXPECT().Publish(ctx, domain.EventMerchantRegistered, gomock.Any())

	m, err := svc.Register(ctx, admin, addr, manager)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), m.ID)
	assert.Equal(t, addr, m.Address)
}

func TestMerchantRegistry_Register_OtherWithoutAdmin(t *testing.T) {
	svc, d := setupMerchantRegistry(t)
	ctx := context.Background()
	caller := newPrincipal()

	d.expectAuth(ctx, caller)
	d.expectRoles(caller)

	_, err := svc.Register(ctx, caller, newPrincipal(), newPrincipal())
	requireKind(t, err, apperror.KindNotAuthorized)
}

func TestMerchantRegistry_Register_AlreadyRegistered(t *testing.T) {
	svc, d := setupMerchantRegistry(t)
	ctx := context.Background()
	addr := newPrincipal()

	d.expectAuth(ctx, addr)
	d.merchants.EXPECT().GetByAddress(ctx, addr).Return(&domain.Merchant{ID: 3, Address: addr}, nil)

	_, err := svc.Register(ctx, addr, addr, newPrincipal())
	requireKind(t, err, apperror.KindAlreadyRegistered)
}

func TestMerchantRegistry_Register_ConflictOnInsert(t *testing.T) {
	svc, d := setupMerchantRegistry(t)
	ctx := context.Background()
	addr := newPrincipal()

	d.expectAuth(ctx, addr)
	d.merchants.EXPECT().GetByAddress(ctx, addr).Return(nil, nil)
	d.expectBegin(ctx)
	d.counters.EXPECT().Next(ctx, d.tx, domain.CounterMerchantID).Return(uint64(2), nil)
	d.merchants.EXPECT().Create(ctx, d.tx, gomock.Any()).Return(ports.ErrConflict)

	_, err := svc.Register(ctx, addr, addr, newPrincipal())
	requireKind(t, err, apperror.KindAlreadyRegistered)
	assert.False(t, d.tx.committed, "a failed registration must not consume an id")
}

func TestMerchantRegistry_Register_InvalidAddress(t *testing.T) {
	svc, _ := setupMerchantRegistry(t)
	_, err := svc.Register(context.Background(), newPrincipal(), "GBAD", newPrincipal())
	requireKind(t, err, apperror.KindValidation)
}

func TestMerchantRegistry_Lookups(t *testing.T) {
	svc, d := setupMerchantRegistry(t)
	ctx := context.Background()
	addr := newPrincipal()
	m := &domain.Merchant{ID: 4, Address: addr}

	d.merchants.EXPECT().GetByID(ctx, uint64(4)).Return(m, nil)
	d.merchants.EXPECT().GetByID(ctx, uint64(5)).Return(nil, nil)
	d.merchants.EXPECT().GetByAddress(ctx, addr).Return(m, nil).Times(2)
	other := newPrincipal()
	d.merchants.EXPECT().GetByAddress(ctx, other).Return(nil, nil).Times(2)

	got, err := svc.GetMerchant(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	_, err = svc.GetMerchant(ctx, 5)
	requireKind(t, err, apperror.KindNotFound)

	got, err = svc.GetMerchantByAddress(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), got.ID)

	_, err = svc.GetMerchantByAddress(ctx, other)
	requireKind(t, err, apperror.KindNotFound)

	ok, err := svc.IsMerchant(ctx, addr)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.IsMerchant(ctx, other)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMerchantRegistry_UpdateMerchant_MovesAddress(t *testing.T) {
	svc, d := setupMerchantRegistry(t)
	ctx := context.Background()
	owner, newAddr, manager := newPrincipal(), newPrincipal(), newPrincipal()

	d.expectAuth(ctx, owner)
	d.expectBegin(ctx)
	d.merchants.EXPECT().GetByIDForUpdate(ctx, d.tx, uint64(1)).Return(&domain.Merchant{ID: 1, Address: owner, Manager: manager}, nil)
	d.merchants.EXPECT().GetByAddress(ctx, newAddr).Return(nil, nil)
	d.merchants.EXPECT().Update(ctx, d.tx, gomock.Any()).Return(nil)
	d.roles.EXPECT().Grant(ctx, d.tx, gomock.Any()).Return(true, nil)
	d.roles.EXPECT().Revoke(ctx, d.tx, owner, domain.RoleMerchant).Return(true, nil)
	d.events.EXPECT().Publish(ctx, domain.EventMerchantUpdated, domain.MerchantPayload{
		MerchantID: 1,
		Address:    newAddr,
		Manager:    manager,
		ChangedBy:  owner,
	})

	m, err := svc.UpdateMerchant(ctx, owner, 1, ports.UpdateMerchantRequest{Address: &newAddr})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), m.ID)
	assert.Equal(t, newAddr, m.Address)
	assert.Equal(t, testNow, m.UpdatedAt)
}

func TestMerchantRegistry_UpdateMerchant_ManagerOnlyByAdmin(t *testing.T) {
	svc, d := setupMerchantRegistry(t)
	ctx := context.Background()
	admin, owner, newManager := newPrincipal(), newPrincipal(), newPrincipal()

	d.expectAuth(ctx, admin)
	d.expectRoles(admin, domain.RoleAdmin)
	d.expectBegin(ctx)
	d.merchants.EXPECT().GetByIDForUpdate(ctx, d.tx, uint64(2)).Return(&domain.Merchant{ID: 2, Address: owner}, nil)
	d.merchants.EXPECT().Update(ctx, d.tx, gomock.Any()).Return(nil)
	d.events.EXPECT().Publish(ctx, domain.EventMerchantUpdated, gomock.Any())

	m, err := svc.UpdateMerchant(ctx, admin, 2, ports.UpdateMerchantRequest{Manager: &newManager})
	require.NoError(t, err)
	assert.Equal(t, owner, m.Address)
	assert.Equal(t, newManager, m.Manager)
}

func TestMerchantRegistry_UpdateMerchant_Errors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		svc, d := setupMerchantRegistry(t)
		ctx := context.Background()
		caller := newPrincipal()

		d.expectAuth(ctx, caller)
		d.expectBegin(ctx)
		d.merchants.EXPECT().GetByIDForUpdate(ctx, d.tx, uint64(9)).Return(nil, nil)

		_, err := svc.UpdateMerchant(ctx, caller, 9, ports.UpdateMerchantRequest{})
		requireKind(t, err, apperror.KindNotFound)
	})

	t.Run("stranger", func(t *testing.T) {
		svc, d := setupMerchantRegistry(t)
		ctx := context.Background()
		caller := newPrincipal()

		d.expectAuth(ctx, caller)
		d.expectRoles(caller)
		d.expectBegin(ctx)
		d.merchants.EXPECT().GetByIDForUpdate(ctx, d.tx, uint64(1)).Return(&domain.Merchant{ID: 1, Address: newPrincipal()}, nil)

		_, err := svc.UpdateMerchant(ctx, caller, 1, ports.UpdateMerchantRequest{})
		requireKind(t, err, apperror.KindNotAuthorized)
	})

	t.Run("address taken", func(t *testing.T) {
		svc, d := setupMerchantRegistry(t)
		ctx := context.Background()
		owner, taken := newPrincipal(), newPrincipal()

		d.expectAuth(ctx, owner)
		d.expectBegin(ctx)
		d.merchants.EXPECT().GetByIDForUpdate(ctx, d.tx, uint64(1)).Return(&domain.Merchant{ID: 1, Address: owner}, nil)
		d.merchants.EXPECT().GetByAddress(ctx, taken).Return(&domain.Merchant{ID: 2, Address: taken}, nil)

		_, err := svc.UpdateMerchant(ctx, owner, 1, ports.UpdateMerchantRequest{Address: &taken})
		requireKind(t, err, apperror.KindAlreadyRegistered)
		assert.False(t, d.tx.committed)
	})
}
