package service

import (
	"context"
	"errors"
	"fmt"

	"merchant-ledger/internal/core/domain"
	"merchant-ledger/internal/core/ports"
	"merchant-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// MerchantRegistryServiceImpl implements ports.MerchantRegistryService.
type MerchantRegistryServiceImpl struct {
	deps  Deps
	roles ports.RoleChecker
	log   zerolog.Logger
}

// NewMerchantRegistryService creates a new MerchantRegistryServiceImpl.
func NewMerchantRegistryService(deps Deps, roles ports.RoleChecker, log zerolog.Logger) *MerchantRegistryServiceImpl {
	return &MerchantRegistryServiceImpl{deps: deps, roles: roles, log: log}
}

// Register creates a merchant for merchantAddress with the next merchant id.
func (s *MerchantRegistryServiceImpl) Register(ctx context.Context, caller, merchantAddress, managerAddress domain.Principal) (*domain.Merchant, error) {
	if err := merchantAddress.Validate(); err != nil {
		return nil, apperror.Validation("merchant_address: " + err.Error())
	}
	if err := managerAddress.Validate(); err != nil {
		return nil, apperror.Validation("manager_address: " + err.Error())
	}
	if err := s.deps.Authn.RequireAuth(ctx, caller); err != nil {
		return nil, err
	}
	if caller != merchantAddress {
		if err := requireAnyRole(ctx, s.roles, caller, domain.RoleAdmin); err != nil {
			return nil, err
		}
	}

	existing, err := s.deps.Merchants.GetByAddress(ctx, merchantAddress)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check merchant: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrAlreadyRegistered()
	}

	dbTx, err := s.deps.Transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	id, err := s.deps.Counters.Next(ctx, dbTx, domain.CounterMerchantID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("next merchant id: %w", err))
	}

	now := s.deps.Clock.Now()
	merchant := &domain.Merchant{
		ID:        id,
		Address:   merchantAddress,
		Manager:   managerAddress,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.deps.Merchants.Create(ctx, dbTx, merchant); err != nil {
		if errors.Is(err, ports.ErrConflict) {
			return nil, apperror.ErrAlreadyRegistered()
		}
		return nil, apperror.InternalError(fmt.Errorf("create merchant: %w", err))
	}

	if _, err := s.deps.Roles.Grant(ctx, dbTx, &domain.RoleAssignment{
		Principal: merchantAddress,
		Role:      domain.RoleMerchant,
		GrantedBy: caller,
		CreatedAt: now,
	}); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("grant merchant role: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.deps.Events.Publish(ctx, domain.EventMerchantRegistered, domain.MerchantPayload{
		MerchantID: merchant.ID,
		Address:    merchant.Address,
		Manager:    merchant.Manager,
		ChangedBy:  caller,
	})

	s.log.Info().
		Uint64("merchant_id", merchant.ID).
		Str("address", merchant.Address.String()).
		Msg("merchant registered")

	return merchant, nil
}

// GetMerchant returns the merchant with the given id.
func (s *MerchantRegistryServiceImpl) GetMerchant(ctx context.Context, id uint64) (*domain.Merchant, error) {
	return lookupMerchant(ctx, s.deps.Merchants, id)
}

// GetMerchantByAddress resolves a merchant through the address index.
func (s *MerchantRegistryServiceImpl) GetMerchantByAddress(ctx context.Context, address domain.Principal) (*domain.Merchant, error) {
	m, err := s.deps.Merchants.GetByAddress(ctx, address)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get merchant by address: %w", err))
	}
	if m == nil {
		return nil, apperror.ErrNotFound("merchant")
	}
	return m, nil
}

// IsMerchant reports whether address is registered.
func (s *MerchantRegistryServiceImpl) IsMerchant(ctx context.Context, address domain.Principal) (bool, error) {
	m, err := s.deps.Merchants.GetByAddress(ctx, address)
	if err != nil {
		return false, apperror.InternalError(fmt.Errorf("get merchant by address: %w", err))
	}
	return m != nil, nil
}

// UpdateMerchant changes a merchant's address or manager. The id is kept.
func (s *MerchantRegistryServiceImpl) UpdateMerchant(ctx context.Context, caller domain.Principal, id uint64, req ports.UpdateMerchantRequest) (*domain.Merchant, error) {
	if req.Address != nil {
		if err := req.Address.Validate(); err != nil {
			return nil, apperror.Validation("address: " + err.Error())
		}
	}
	if req.Manager != nil {
		if err := req.Manager.Validate(); err != nil {
			return nil, apperror.Validation("manager: " + err.Error())
		}
	}
	if err := s.deps.Authn.RequireAuth(ctx, caller); err != nil {
		return nil, err
	}

	dbTx, err := s.deps.Transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	merchant, err := s.deps.Merchants.GetByIDForUpdate(ctx, dbTx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock merchant: %w", err))
	}
	if merchant == nil {
		return nil, apperror.ErrNotFound("merchant")
	}

	if !merchant.IsOwner(caller) {
		if err := requireAnyRole(ctx, s.roles, caller, domain.RoleAdmin); err != nil {
			return nil, err
		}
	}

	oldAddress := merchant.Address
	if req.Address != nil && *req.Address != oldAddress {
		other, err := s.deps.Merchants.GetByAddress(ctx, *req.Address)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("check merchant: %w", err))
		}
		if other != nil {
			return nil, apperror.ErrAlreadyRegistered()
		}
		merchant.Address = *req.Address
	}
	if req.Manager != nil {
		merchant.Manager = *req.Manager
	}
	now := s.deps.Clock.Now()
	merchant.UpdatedAt = now

	if err := s.deps.Merchants.Update(ctx, dbTx, merchant); err != nil {
		if errors.Is(err, ports.ErrConflict) {
			return nil, apperror.ErrAlreadyRegistered()
		}
		return nil, apperror.InternalError(fmt.Errorf("update merchant: %w", err))
	}

	// The Merchant role follows the address.
	if merchant.Address != oldAddress {
		if _, err := s.deps.Roles.Grant(ctx, dbTx, &domain.RoleAssignment{
			Principal: merchant.Address,
			Role:      domain.RoleMerchant,
			GrantedBy: caller,
			CreatedAt: now,
		}); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("grant merchant role: %w", err))
		}
		if _, err := s.deps.Roles.Revoke(ctx, dbTx, oldAddress, domain.RoleMerchant); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("revoke merchant role: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.deps.Events.Publish(ctx, domain.EventMerchantUpdated, domain.MerchantPayload{
		MerchantID: merchant.ID,
		Address:    merchant.Address,
		Manager:    merchant.Manager,
		ChangedBy:  caller,
	})

	s.log.Info().Uint64("merchant_id", merchant.ID).Msg("merchant updated")
	return merchant, nil
}
