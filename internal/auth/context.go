package auth

import (
	"context"
	"errors"

	"merchant-ledger/internal/core/domain"
)

type ctxKey int

const ctxPrincipal ctxKey = iota

var ErrNoPrincipal = errors.New("principal not in context")

// WithPrincipal marks ctx as authorized by p.
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipal, p)
}

// PrincipalFrom returns the principal that authorized the current call.
func PrincipalFrom(ctx context.Context) (domain.Principal, error) {
	if p, ok := ctx.Value(ctxPrincipal).(domain.Principal); ok && p != "" {
		return p, nil
	}
	return "", ErrNoPrincipal
}
