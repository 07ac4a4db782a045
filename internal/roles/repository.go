package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/peopledesk/internal/platform/db"
	"github.com/odyssey-erp/peopledesk/internal/platform/httpx"
)

// ErrNotFound indicates that the requested role does not exist.
var ErrNotFound = fmt.Errorf("roles: %w", httpx.ErrNotFound)

const roleColumns = `id, name, description, created_at, updated_at`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	db db.DBTX
}

// NewRepository constructs a repository.
func NewRepository(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

// ListRoles returns all roles.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.db.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("roles: list: %w", err)
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

// GetRoleByName fetches a role by its unique name.
func (r *Repository) GetRoleByName(ctx context.Context, name Name) (Role, error) {
	var role Role
	err := r.db.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE name = $1`, string(name)).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, fmt.Errorf("roles: get by name: %w", err)
	}
	return role, nil
}

// EnsureRole upserts a role keeping the description current.
func (r *Repository) EnsureRole(ctx context.Context, name Name, description string) (Role, error) {
	var role Role
	err := r.db.QueryRow(ctx, `
INSERT INTO roles (name, description, created_at, updated_at)
VALUES ($1, $2, NOW(), NOW())
ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description, updated_at = NOW()
RETURNING `+roleColumns, string(name), description).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return Role{}, fmt.Errorf("roles: ensure: %w", err)
	}
	return role, nil
}

var _ RepositoryPort = (*Repository)(nil)
