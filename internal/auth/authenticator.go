package auth

import (
	"context"

	"merchant-ledger/internal/core/domain"
	"merchant-ledger/pkg/apperror"
)

// ContextAuthenticator implements ports.Authenticator against the principal
// the transport placed in the request context.
type ContextAuthenticator struct{}

// NewContextAuthenticator creates a new ContextAuthenticator.
func NewContextAuthenticator() *ContextAuthenticator {
	return &ContextAuthenticator{}
}

// RequireAuth fails with NotAuthorized unless the call was authorized by principal.
func (ContextAuthenticator) RequireAuth(ctx context.Context, principal domain.Principal) error {
	caller, err := PrincipalFrom(ctx)
	if err != nil || principal == "" || caller != principal {
		return apperror.ErrNotAuthorized()
	}
	return nil
}
