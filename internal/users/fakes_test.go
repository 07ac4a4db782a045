package users_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/odyssey-erp/peopledesk/internal/roles"
	"github.com/odyssey-erp/peopledesk/internal/shared"
	"github.com/odyssey-erp/peopledesk/internal/users"
)

var (
	adminRole    = roles.Role{ID: 1, Name: roles.Admin}
	employeeRole = roles.Role{ID: 2, Name: roles.Employee}
)

type memRepo struct {
	mu          sync.Mutex
	nextID      int64
	users       map[int64]*users.User
	assignments map[int64]map[int64]bool
	types       map[int64]string
	bonuses     []users.Bonus
	totalCalls  int
}

func newMemRepo() *memRepo {
	return &memRepo{
		nextID:      1,
		users:       make(map[int64]*users.User),
		assignments: make(map[int64]map[int64]bool),
		types:       map[int64]string{1: "full-time", 2: "contractor"},
	}
}

func (m *memRepo) roleByID(id int64) roles.Role {
	if id == adminRole.ID {
		return adminRole
	}
	return employeeRole
}

// seed stores a user holding the given roles and returns it.
func (m *memRepo) seed(name string, typeID int64, held ...roles.Role) users.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	u := &users.User{ID: id, Name: name, Email: strings.ToLower(name) + "@example.test", CreatedAt: time.Now()}
	if typeID > 0 {
		t := typeID
		u.EmployeeTypeID = &t
	}
	m.users[id] = u
	m.assignments[id] = map[int64]bool{}
	for _, r := range held {
		m.assignments[id][r.ID] = true
	}
	return m.withRoles(u)
}

func (m *memRepo) withRoles(u *users.User) users.User {
	out := *u
	out.Roles = nil
	ids := make([]int64, 0, len(m.assignments[u.ID]))
	for id := range m.assignments[u.ID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		out.Roles = append(out.Roles, m.roleByID(id))
	}
	return out
}

func (m *memRepo) Create(ctx context.Context, in users.CreateUserInput) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == in.Email {
			return nil, &users.Error{Kind: users.ErrCreation, Key: users.KeyEmailTaken}
		}
	}
	u := &users.User{
		ID:             m.nextID,
		Name:           in.Name,
		Email:          in.Email,
		PasswordHash:   in.PasswordHash,
		EmployeeTypeID: in.EmployeeTypeID,
		CreatedAt:      time.Now(),
	}
	m.nextID++
	m.users[u.ID] = u
	m.assignments[u.ID] = map[int64]bool{}
	out := *u
	return &out, nil
}

func (m *memRepo) AttachRole(ctx context.Context, userID, roleID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.assignments[userID] == nil {
		m.assignments[userID] = map[int64]bool{}
	}
	m.assignments[userID][roleID] = true
	return nil
}

func (m *memRepo) GetUserByID(ctx context.Context, id int64) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, &users.Error{Kind: users.ErrNotFound, Key: users.KeyNoEmployee}
	}
	out := m.withRoles(u)
	return &out, nil
}

func (m *memRepo) GetAllEmployees(ctx context.Context) ([]users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []users.User
	for _, id := range m.sortedIDs() {
		if m.assignments[id][employeeRole.ID] {
			out = append(out, m.withRoles(m.users[id]))
		}
	}
	if len(out) == 0 {
		return nil, &users.Error{Kind: users.ErrNotFound, Key: users.KeyReportNoEmployee}
	}
	return out, nil
}

func (m *memRepo) BonusesForUserScope(isAdmin bool, loggedInUserID, sentUserID int64) users.BonusQuery {
	return users.ScopeBonuses(isAdmin, loggedInUserID, sentUserID)
}

func (m *memRepo) ListBonuses(ctx context.Context, q users.BonusQuery) ([]users.Bonus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched := m.bonusesOf(q.UserID)
	return window(matched, q.Limit, q.Offset), nil
}

func (m *memRepo) CountBonuses(ctx context.Context, q users.BonusQuery) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bonusesOf(q.UserID)), nil
}

func (m *memRepo) UsersForRoleScope(roleID int64) users.UserRoleQuery {
	return users.ScopeUsersExcludingRole(roleID)
}

func (m *memRepo) ListUsersForRole(ctx context.Context, q users.UserRoleQuery) ([]users.RoleScopedUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return window(m.usersOutside(q.ExcludeRoleID), q.Limit, q.Offset), nil
}

func (m *memRepo) CountUsersForRole(ctx context.Context, q users.UserRoleQuery) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.usersOutside(q.ExcludeRoleID)), nil
}

func (m *memRepo) Destroy(ctx context.Context, id any, attribute string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for uid, u := range m.users {
		match := false
		switch attribute {
		case "", "id":
			match = id == any(uid)
		case "email":
			match = id == any(u.Email)
		}
		if match {
			delete(m.users, uid)
			delete(m.assignments, uid)
			return nil
		}
	}
	return &users.Error{Kind: users.ErrDeletion, Key: users.KeyNotDeleted}
}

func (m *memRepo) BonusTotals(ctx context.Context, userIDs []int64) ([]users.BonusTotal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalCalls++
	want := map[int64]bool{}
	for _, id := range userIDs {
		want[id] = true
	}
	var out []users.BonusTotal
	for _, id := range m.sortedIDs() {
		if len(userIDs) > 0 && !want[id] {
			continue
		}
		t := users.BonusTotal{UserID: id}
		for _, b := range m.bonusesOf(id) {
			t.Count++
			t.Total += b.Value
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, users.TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memRepo) addBonus(userID int64, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bonuses = append(m.bonuses, users.Bonus{ID: int64(len(m.bonuses) + 1), UserID: userID, Value: value})
}

func (m *memRepo) bonusesOf(userID int64) []users.Bonus {
	out := []users.Bonus{}
	for _, b := range m.bonuses {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out
}

func (m *memRepo) usersOutside(roleID int64) []users.RoleScopedUser {
	out := []users.RoleScopedUser{}
	for _, id := range m.sortedIDs() {
		held := m.assignments[id]
		u := m.users[id]
		other := false
		for id := range held {
			if id != roleID {
				other = true
			}
		}
		if !other || u.EmployeeTypeID == nil {
			continue
		}
		out = append(out, users.RoleScopedUser{ID: id, Name: u.Name, Email: u.Email, Type: m.types[*u.EmployeeTypeID]})
	}
	return out
}

func (m *memRepo) sortedIDs() []int64 {
	ids := make([]int64, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func window[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

type roleTable struct{}

func (roleTable) RoleByName(ctx context.Context, name roles.Name) (roles.Role, error) {
	switch name {
	case roles.Admin:
		return adminRole, nil
	case roles.Employee:
		return employeeRole, nil
	}
	return roles.Role{}, roles.ErrNotFound
}

type memAudit struct {
	mu      sync.Mutex
	entries []shared.AuditLog
}

func (a *memAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, log)
	return nil
}
