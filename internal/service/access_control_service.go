package service

import (
	"context"
	"fmt"

	"merchant-ledger/internal/core/domain"
	"merchant-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// AccessControlServiceImpl implements ports.AccessControlService.
type AccessControlServiceImpl struct {
	deps Deps
	log  zerolog.Logger
}

// NewAccessControlService creates a new AccessControlServiceImpl.
func NewAccessControlService(deps Deps, log zerolog.Logger) *AccessControlServiceImpl {
	return &AccessControlServiceImpl{deps: deps, log: log}
}

// Initialize grants Admin to admin. It succeeds once per ledger.
func (s *AccessControlServiceImpl) Initialize(ctx context.Context, admin domain.Principal) error {
	if err := admin.Validate(); err != nil {
		return apperror.Validation(err.Error())
	}
	if err := s.deps.Authn.RequireAuth(ctx, admin); err != nil {
		return err
	}

	dbTx, err := s.deps.Transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	n, err := s.deps.Counters.Next(ctx, dbTx, domain.CounterInitialized)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("mark initialized: %w", err))
	}
	if n > 1 {
		return apperror.ErrAlreadyInitialized()
	}

	if _, err := s.deps.Roles.Grant(ctx, dbTx, &domain.RoleAssignment{
		Principal: admin,
		Role:      domain.RoleAdmin,
		GrantedBy: admin,
		CreatedAt: s.deps.Clock.Now(),
	}); err != nil {
		return apperror.InternalError(fmt.Errorf("grant admin: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.deps.Events.Publish(ctx, domain.EventRoleGranted, domain.RolePayload{
		Principal: admin,
		Role:      domain.RoleAdmin,
		ChangedBy: admin,
	})

	s.log.Info().Str("admin", admin.String()).Msg("ledger initialized")
	return nil
}

// HasRole reports whether principal currently holds role.
func (s *AccessControlServiceImpl) HasRole(ctx context.Context, principal domain.Principal, role domain.Role) (bool, error) {
	ok, err := s.deps.Roles.HasRole(ctx, principal, role)
	if err != nil {
		return false, apperror.InternalError(fmt.Errorf("has role: %w", err))
	}
	return ok, nil
}

// Roles lists every role principal holds.
func (s *AccessControlServiceImpl) Roles(ctx context.Context, principal domain.Principal) ([]domain.Role, error) {
	assignments, err := s.deps.Roles.ListByPrincipal(ctx, principal)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list roles: %w", err))
	}
	roles := make([]domain.Role, 0, len(assignments))
	for _, a := range assignments {
		roles = append(roles, a.Role)
	}
	return roles, nil
}

// GrantRole adds role to principal. Granting a held role is a no-op.
func (s *AccessControlServiceImpl) GrantRole(ctx context.Context, caller, principal domain.Principal, role domain.Role) error {
	return s.changeRole(ctx, caller, principal, role, true)
}

// RevokeRole removes role from principal. Revoking an absent role is a no-op.
func (s *AccessControlServiceImpl) RevokeRole(ctx context.Context, caller, principal domain.Principal, role domain.Role) error {
	return s.changeRole(ctx, caller, principal, role, false)
}

func (s *AccessControlServiceImpl) changeRole(ctx context.Context, caller, principal domain.Principal, role domain.Role, grant bool) error {
	if err := principal.Validate(); err != nil {
		return apperror.Validation(err.Error())
	}
	if !role.IsValid() {
		return apperror.Validation(fmt.Sprintf("unknown role %q", role))
	}
	if err := s.deps.Authn.RequireAuth(ctx, caller); err != nil {
		return err
	}

	initialized, err := s.deps.Counters.Current(ctx, domain.CounterInitialized)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("read initialized: %w", err))
	}
	if initialized == 0 {
		return apperror.ErrNotInitialized()
	}

	if err := requireAnyRole(ctx, s.deps.Roles, caller, domain.RoleAdmin); err != nil {
		return err
	}

	dbTx, err := s.deps.Transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	var changed bool
	if grant {
		changed, err = s.deps.Roles.Grant(ctx, dbTx, &domain.RoleAssignment{
			Principal: principal,
			Role:      role,
			GrantedBy: caller,
			CreatedAt: s.deps.Clock.Now(),
		})
	} else {
		changed, err = s.deps.Roles.Revoke(ctx, dbTx, principal, role)
	}
	if err != nil {
		return apperror.InternalError(fmt.Errorf("update role: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	if !changed {
		return nil
	}

	topic := domain.EventRoleRevoked
	if grant {
		topic = domain.EventRoleGranted
	}
	s.deps.Events.Publish(ctx, topic, domain.RolePayload{
		Principal: principal,
		Role:      role,
		ChangedBy: caller,
	})

	s.log.Info().
		Str("principal", principal.String()).
		Str("role", string(role)).
		Bool("granted", grant).
		Msg("role changed")
	return nil
}
