package users

import (
	"errors"
	"fmt"
)

var (
	// ErrCreation indicates the store did not persist a new user.
	ErrCreation = errors.New("users: not created")
	// ErrNotFound indicates no matching user exists.
	ErrNotFound = errors.New("users: not found")
	// ErrDeletion indicates no user row was removed.
	ErrDeletion = errors.New("users: not deleted")
	// ErrAuthorization indicates the caller or subject lacks a required role.
	ErrAuthorization = errors.New("users: not authorized")
)

// Message keys resolved through the i18n catalog.
const (
	KeyNotCreated       = "users.not_created"
	KeyEmailTaken       = "users.email_taken"
	KeyNoEmployee       = "users.no_employee"
	KeyNotDeleted       = "users.not_deleted"
	KeyReportNoEmployee = "reports.no_employee"
	KeyAdminOnly        = "users.admin_only"
	KeyInvalidInput     = "users.invalid_input"
)

// Error is an expected store or business failure. It unwraps to its Kind
// sentinel and carries the message key shown to the user.
type Error struct {
	Kind error
	Key  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return e.Kind.Error()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newError(kind error, key string, cause error) *Error {
	return &Error{Kind: kind, Key: key, Err: cause}
}

// MessageKey returns the i18n key attached to err, or "" when none.
func MessageKey(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Key
	}
	return ""
}
