package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/peopledesk/internal/platform/db"
	"github.com/odyssey-erp/peopledesk/internal/roles"
)

const (
	userColumns     = `users.id, users.name, users.email, users.password_hash, users.employee_type, users.created_at, users.updated_at`
	uniqueViolation = "23505"
)

// destroyColumns lists the attributes Destroy may match on.
var destroyColumns = map[string]string{
	"id":    "id",
	"email": "email",
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
	db   db.DBTX
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, db: pool}
}

// TxRepository exposes the writes that run inside a transaction.
type TxRepository interface {
	Create(ctx context.Context, in CreateUserInput) (*User, error)
	AttachRole(ctx context.Context, userID, roleID int64) error
}

// WithTx wraps callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r.pool == nil {
		return fn(ctx, r)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &Repository{db: tx})
	})
}

// Create inserts a new user and returns the stored record.
func (r *Repository) Create(ctx context.Context, in CreateUserInput) (*User, error) {
	row := r.db.QueryRow(ctx, `
INSERT INTO users (name, email, password_hash, employee_type, created_at, updated_at)
VALUES ($1, $2, $3, $4, NOW(), NOW())
RETURNING id, name, email, password_hash, employee_type, created_at, updated_at`,
		in.Name, in.Email, in.PasswordHash, in.EmployeeTypeID)
	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, newError(ErrCreation, KeyEmailTaken, err)
		}
		return nil, newError(ErrCreation, KeyNotCreated, err)
	}
	return user, nil
}

// EnsureEmployeeType returns the id of the employee type labelled label,
// inserting it when missing.
func (r *Repository) EnsureEmployeeType(ctx context.Context, label string) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
WITH existing AS (SELECT id FROM employee_types WHERE type = $1),
inserted AS (
	INSERT INTO employee_types (type) SELECT $1 WHERE NOT EXISTS (SELECT 1 FROM existing) RETURNING id
)
SELECT id FROM existing UNION ALL SELECT id FROM inserted`, label).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("users: ensure employee type: %w", err)
	}
	return id, nil
}

// GetUserByID retrieves a user and its roles by primary key.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE users.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, newError(ErrNotFound, KeyNoEmployee, nil)
		}
		return nil, fmt.Errorf("users: get by id: %w", err)
	}
	byUser, err := r.rolesFor(ctx, []int64{user.ID})
	if err != nil {
		return nil, err
	}
	user.Roles = byUser[user.ID]
	return user, nil
}

// GetAllEmployees returns every user holding the employee role.
func (r *Repository) GetAllEmployees(ctx context.Context) ([]User, error) {
	rows, err := r.db.Query(ctx, `
SELECT `+userColumns+`
FROM users
WHERE EXISTS (
	SELECT 1 FROM role_user
	JOIN roles ON roles.id = role_user.role_id
	WHERE role_user.user_id = users.id AND roles.name = $1
)
ORDER BY users.id`, string(roles.Employee))
	if err != nil {
		return nil, fmt.Errorf("users: list employees: %w", err)
	}
	defer rows.Close()

	var employees []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(employees) == 0 {
		return nil, newError(ErrNotFound, KeyReportNoEmployee, nil)
	}

	ids := make([]int64, len(employees))
	for i, e := range employees {
		ids[i] = e.ID
	}
	byUser, err := r.rolesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range employees {
		employees[i].Roles = byUser[employees[i].ID]
	}
	return employees, nil
}

// BonusesForUserScope builds, without running it, the bonus query visible to the caller.
func (r *Repository) BonusesForUserScope(isAdmin bool, loggedInUserID, sentUserID int64) BonusQuery {
	return ScopeBonuses(isAdmin, loggedInUserID, sentUserID)
}

// ListBonuses executes a BonusQuery.
func (r *Repository) ListBonuses(ctx context.Context, q BonusQuery) ([]Bonus, error) {
	sql, args := q.SQL()
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("users: list bonuses: %w", err)
	}
	defer rows.Close()
	bonuses := []Bonus{}
	for rows.Next() {
		b := Bonus{UserID: q.UserID}
		if err := rows.Scan(&b.ID, &b.Description, &b.Value, &b.CreatedAt); err != nil {
			return nil, err
		}
		bonuses = append(bonuses, b)
	}
	return bonuses, rows.Err()
}

// CountBonuses counts the rows a BonusQuery matches, ignoring its window.
func (r *Repository) CountBonuses(ctx context.Context, q BonusQuery) (int, error) {
	sql, args := q.CountSQL()
	var total int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("users: count bonuses: %w", err)
	}
	return total, nil
}

// UsersForRoleScope builds, without running it, the query of users outside roleID.
func (r *Repository) UsersForRoleScope(roleID int64) UserRoleQuery {
	return ScopeUsersExcludingRole(roleID)
}

// ListUsersForRole executes a UserRoleQuery.
func (r *Repository) ListUsersForRole(ctx context.Context, q UserRoleQuery) ([]RoleScopedUser, error) {
	sql, args := q.SQL()
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("users: list for role: %w", err)
	}
	defer rows.Close()
	out := []RoleScopedUser{}
	for rows.Next() {
		var u RoleScopedUser
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Type); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// CountUsersForRole counts the users a UserRoleQuery matches, ignoring its window.
func (r *Repository) CountUsersForRole(ctx context.Context, q UserRoleQuery) (int, error) {
	sql, args := q.CountSQL()
	var total int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("users: count for role: %w", err)
	}
	return total, nil
}

// AttachRole assigns roleID to userID. Assigning an existing pair is a no-op.
func (r *Repository) AttachRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.db.Exec(ctx, `
INSERT INTO role_user (user_id, role_id) VALUES ($1, $2)
ON CONFLICT (user_id, role_id) DO NOTHING`, userID, roleID)
	if err != nil {
		return fmt.Errorf("users: attach role: %w", err)
	}
	return nil
}

// Destroy deletes the users whose attribute equals id. attribute defaults to "id".
func (r *Repository) Destroy(ctx context.Context, id any, attribute string) error {
	if attribute == "" {
		attribute = "id"
	}
	column, ok := destroyColumns[attribute]
	if !ok {
		return newError(ErrDeletion, KeyNotDeleted, fmt.Errorf("unsupported attribute %q", attribute))
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE `+column+` = $1`, id)
	if err != nil {
		return newError(ErrDeletion, KeyNotDeleted, err)
	}
	if tag.RowsAffected() == 0 {
		return newError(ErrDeletion, KeyNotDeleted, nil)
	}
	return nil
}

// BonusTotals sums bonuses per user. An empty userIDs covers every user.
func (r *Repository) BonusTotals(ctx context.Context, userIDs []int64) ([]BonusTotal, error) {
	sql := `
SELECT users.id, COUNT(bonuses.id), COALESCE(SUM(bonuses.value), 0)::float8
FROM users
LEFT JOIN bonuses ON bonuses.user_id = users.id`
	var args []any
	if len(userIDs) > 0 {
		sql += "\nWHERE users.id = ANY($1)"
		args = append(args, userIDs)
	}
	sql += "\nGROUP BY users.id\nORDER BY users.id"

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("users: bonus totals: %w", err)
	}
	defer rows.Close()
	var totals []BonusTotal
	for rows.Next() {
		var t BonusTotal
		if err := rows.Scan(&t.UserID, &t.Count, &t.Total); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

func (r *Repository) rolesFor(ctx context.Context, userIDs []int64) (map[int64][]roles.Role, error) {
	rows, err := r.db.Query(ctx, `
SELECT role_user.user_id, roles.id, roles.name, roles.description, roles.created_at, roles.updated_at
FROM role_user
JOIN roles ON roles.id = role_user.role_id
WHERE role_user.user_id = ANY($1)
ORDER BY role_user.user_id, roles.id`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("users: load roles: %w", err)
	}
	defer rows.Close()
	out := make(map[int64][]roles.Role, len(userIDs))
	for rows.Next() {
		var userID int64
		var role roles.Role
		if err := rows.Scan(&userID, &role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		out[userID] = append(out[userID], role)
	}
	return out, rows.Err()
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.EmployeeTypeID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

var _ RepositoryPort = (*Repository)(nil)
