package roles

import (
	"strings"
	"time"
)

// Name identifies one of the roles the application grants.
type Name string

const (
	// Admin manages users and sees every employee's data.
	Admin Name = "admin"
	// Employee is the default role for staff accounts.
	Employee Name = "employee"
)

// ParseName maps free text onto a known role name.
func ParseName(raw string) (Name, bool) {
	switch Name(strings.ToLower(strings.TrimSpace(raw))) {
	case Admin:
		return Admin, true
	case Employee:
		return Employee, true
	}
	return "", false
}

// Role represents a permission group attached to users.
type Role struct {
	ID          int64     `json:"id"`
	Name        Name      `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Has reports whether list contains the named role.
func Has(list []Role, name Name) bool {
	for _, r := range list {
		if r.Name == name {
			return true
		}
	}
	return false
}
