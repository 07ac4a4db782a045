package users

import (
	"time"

	"github.com/odyssey-erp/peopledesk/internal/roles"
)

// User represents a staff account.
type User struct {
	ID             int64        `json:"id"`
	Name           string       `json:"name"`
	Email          string       `json:"email"`
	PasswordHash   string       `json:"-"`
	EmployeeTypeID *int64       `json:"employee_type,omitempty"`
	Roles          []roles.Role `json:"roles"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// HasRole reports whether the user holds the named role.
func (u User) HasRole(name roles.Name) bool {
	return roles.Has(u.Roles, name)
}

// IsAdmin is shorthand for HasRole(roles.Admin).
func (u User) IsAdmin() bool {
	return u.HasRole(roles.Admin)
}

// Bonus is a monetary record attributed to a user.
type Bonus struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id,omitempty"`
	Description string    `json:"description"`
	Value       float64   `json:"value"`
	CreatedAt   time.Time `json:"created_at"`
}

// EmployeeType classifies a user independently of roles.
type EmployeeType struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// RoleScopedUser is the projection returned by UsersForRoleScope queries.
type RoleScopedUser struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Type  string `json:"type"`
}

// BonusTotal aggregates the bonuses of one user.
type BonusTotal struct {
	UserID int64   `json:"user_id"`
	Count  int64   `json:"count"`
	Total  float64 `json:"total"`
}

// CreateUserInput carries the fields accepted by Repository.Create.
type CreateUserInput struct {
	Name           string
	Email          string
	PasswordHash   string
	EmployeeTypeID *int64
}

// NewUserRequest is the validated payload for Service.CreateUser.
type NewUserRequest struct {
	Name           string `json:"name" yaml:"name" validate:"required,max=200"`
	Email          string `json:"email" yaml:"email" validate:"required,email,max=254"`
	Password       string `json:"password" yaml:"password" validate:"required,min=8,max=72"`
	Type           string `json:"type" yaml:"type" validate:"omitempty,max=50"`
	EmployeeTypeID *int64 `json:"employee_type,omitempty" yaml:"employee_type" validate:"omitempty,gt=0"`
}

// TableRow is one row of the admin users table.
type TableRow struct {
	RoleScopedUser
	Actions string `json:"actions"`
}
