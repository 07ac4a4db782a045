package users

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopeBonuses(t *testing.T) {
	assert.Equal(t, int64(9), ScopeBonuses(true, 1, 9).UserID, "admins see the requested user")
	assert.Equal(t, int64(1), ScopeBonuses(false, 1, 9).UserID, "others see themselves")
	assert.Equal(t, int64(1), ScopeBonuses(false, 1, 1).UserID)
}

func TestBonusQuerySQL(t *testing.T) {
	sql, args := ScopeBonuses(true, 1, 7).SQL()
	assert.Contains(t, sql, "JOIN bonuses ON users.id = bonuses.user_id")
	assert.Contains(t, sql, "WHERE users.id = $1")
	assert.NotContains(t, sql, "LIMIT")
	assert.Equal(t, []any{int64(7)}, args)

	sql, args = ScopeBonuses(true, 1, 7).Paginate(3, 10).SQL()
	assert.Contains(t, sql, "LIMIT $2")
	assert.Contains(t, sql, "OFFSET $3")
	assert.Equal(t, []any{int64(7), 10, 20}, args)

	count, args := ScopeBonuses(false, 4, 7).Paginate(2, 10).CountSQL()
	assert.Contains(t, count, "SELECT COUNT(*)")
	assert.NotContains(t, count, "LIMIT")
	assert.Equal(t, []any{int64(4)}, args)
}

func TestPaginateBounds(t *testing.T) {
	q := BonusQuery{}.Paginate(0, 0)
	assert.Equal(t, defaultPerPage, q.Limit)
	assert.Zero(t, q.Offset)

	q = BonusQuery{}.Paginate(2, 1000)
	assert.Equal(t, maxPerPage, q.Limit)
	assert.Equal(t, maxPerPage, q.Offset)
}

func TestUserRoleQuerySQL(t *testing.T) {
	q := ScopeUsersExcludingRole(1)
	sql, args := q.SQL()
	assert.Contains(t, sql, "SELECT DISTINCT users.id, users.name, users.email, employee_types.type")
	assert.Contains(t, sql, "JOIN role_user ON users.id = role_user.user_id")
	assert.Contains(t, sql, "JOIN employee_types ON users.employee_type = employee_types.id")
	assert.Contains(t, sql, "WHERE role_user.role_id <> $1")
	assert.NotContains(t, sql, "NOT EXISTS")
	assert.Equal(t, []any{int64(1)}, args)

	count, args := q.Paginate(1, 5).CountSQL()
	assert.Contains(t, count, "COUNT(DISTINCT users.id)")
	assert.Equal(t, []any{int64(1)}, args)

	_, args = q.Paginate(1, 5).SQL()
	assert.Equal(t, []any{int64(1), 5}, args, "first page has no offset")
}
