package users

import (
	"strconv"
	"strings"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// BonusQuery selects the bonuses of exactly one user. Build it with
// ScopeBonuses; run it with Repository.ListBonuses / CountBonuses.
type BonusQuery struct {
	UserID int64
	Limit  int
	Offset int
}

// ScopeBonuses pins the query to sentUserID only when the caller is an admin.
// Everyone else is pinned to their own id whatever they asked for.
func ScopeBonuses(isAdmin bool, loggedInUserID, sentUserID int64) BonusQuery {
	if isAdmin {
		return BonusQuery{UserID: sentUserID}
	}
	return BonusQuery{UserID: loggedInUserID}
}

// Paginate returns a copy limited to the given 1-based page.
func (q BonusQuery) Paginate(page, perPage int) BonusQuery {
	q.Limit, q.Offset = pageWindow(page, perPage)
	return q
}

// SQL renders the select statement and its arguments.
func (q BonusQuery) SQL() (string, []any) {
	var b strings.Builder
	b.WriteString(`SELECT bonuses.id, bonuses.description, bonuses.value::float8, bonuses.created_at
FROM users
JOIN bonuses ON users.id = bonuses.user_id
WHERE users.id = $1
ORDER BY bonuses.created_at DESC, bonuses.id DESC`)
	args := []any{q.UserID}
	args = appendWindow(&b, args, q.Limit, q.Offset)
	return b.String(), args
}

// CountSQL renders the matching count statement.
func (q BonusQuery) CountSQL() (string, []any) {
	return `SELECT COUNT(*)
FROM users
JOIN bonuses ON users.id = bonuses.user_id
WHERE users.id = $1`, []any{q.UserID}
}

// UserRoleQuery selects users holding at least one role other than
// ExcludeRoleID, together with their employee type label. A user holding
// both the excluded role and another one still matches.
type UserRoleQuery struct {
	ExcludeRoleID int64
	Limit         int
	Offset        int
}

// ScopeUsersExcludingRole builds a UserRoleQuery for roleID.
func ScopeUsersExcludingRole(roleID int64) UserRoleQuery {
	return UserRoleQuery{ExcludeRoleID: roleID}
}

// Paginate returns a copy limited to the given 1-based page.
func (q UserRoleQuery) Paginate(page, perPage int) UserRoleQuery {
	q.Limit, q.Offset = pageWindow(page, perPage)
	return q
}

const userRoleFrom = `
FROM users
JOIN role_user ON users.id = role_user.user_id
JOIN employee_types ON users.employee_type = employee_types.id
WHERE role_user.role_id <> $1`

// SQL renders the select statement and its arguments.
func (q UserRoleQuery) SQL() (string, []any) {
	var b strings.Builder
	b.WriteString(`SELECT DISTINCT users.id, users.name, users.email, employee_types.type`)
	b.WriteString(userRoleFrom)
	b.WriteString("\nORDER BY users.id")
	args := []any{q.ExcludeRoleID}
	args = appendWindow(&b, args, q.Limit, q.Offset)
	return b.String(), args
}

// CountSQL renders the matching count statement.
func (q UserRoleQuery) CountSQL() (string, []any) {
	return `SELECT COUNT(DISTINCT users.id)` + userRoleFrom, []any{q.ExcludeRoleID}
}

func pageWindow(page, perPage int) (limit, offset int) {
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	if page <= 0 {
		page = 1
	}
	return perPage, (page - 1) * perPage
}

func appendWindow(b *strings.Builder, args []any, limit, offset int) []any {
	if limit > 0 {
		args = append(args, limit)
		b.WriteString("\nLIMIT $" + strconv.Itoa(len(args)))
	}
	if offset > 0 {
		args = append(args, offset)
		b.WriteString("\nOFFSET $" + strconv.Itoa(len(args)))
	}
	return args
}
