package postgres

import (
	"context"
	"fmt"

	"merchant-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// RoleRepo implements ports.RoleRepository.
type RoleRepo struct {
	pool Pool
}

// NewRoleRepo creates a new RoleRepo.
func NewRoleRepo(pool Pool) *RoleRepo {
	return &RoleRepo{pool: pool}
}

// HasRole reports whether the (principal, role) pair is present.
func (r *RoleRepo) HasRole(ctx context.Context, principal domain.Principal, role domain.Role) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM role_assignments WHERE principal = $1 AND role = $2)`

	var ok bool
	if err := r.pool.QueryRow(ctx, query, principal.String(), string(role)).Scan(&ok); err != nil {
		return false, fmt.Errorf("has role: %w", err)
	}
	return ok, nil
}

// ListByPrincipal returns the roles of principal ordered by role name.
func (r *RoleRepo) ListByPrincipal(ctx context.Context, principal domain.Principal) ([]domain.RoleAssignment, error) {
	query := `SELECT principal, role, granted_by, created_at
		FROM role_assignments WHERE principal = $1 ORDER BY role`

	rows, err := r.pool.Query(ctx, query, principal.String())
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var out []domain.RoleAssignment
	for rows.Next() {
		var a domain.RoleAssignment
		if err := rows.Scan(&a.Principal, &a.Role, &a.GrantedBy, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}
	return out, nil
}

// Grant inserts the assignment unless present.
func (r *RoleRepo) Grant(ctx context.Context, tx pgx.Tx, a *domain.RoleAssignment) (bool, error) {
	query := `INSERT INTO role_assignments (principal, role, granted_by, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (principal, role) DO NOTHING`

	tag, err := tx.Exec(ctx, query, a.Principal.String(), string(a.Role), a.GrantedBy.String(), a.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("grant role: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Revoke deletes the assignment if present.
func (r *RoleRepo) Revoke(ctx context.Context, tx pgx.Tx, principal domain.Principal, role domain.Role) (bool, error) {
	query := `DELETE FROM role_assignments WHERE principal = $1 AND role = $2`

	tag, err := tx.Exec(ctx, query, principal.String(), string(role))
	if err != nil {
		return false, fmt.Errorf("revoke role: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
