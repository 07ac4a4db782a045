package roles

import (
	"context"
	"errors"
	"strings"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRoleByName(ctx context.Context, name Name) (Role, error)
	EnsureRole(ctx context.Context, name Name, description string) (Role, error)
}

// Service handles role business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// RoleByName resolves a known role.
func (s *Service) RoleByName(ctx context.Context, name Name) (Role, error) {
	return s.repo.GetRoleByName(ctx, name)
}

// EnsureRole creates the role when missing. Only known role names are accepted.
func (s *Service) EnsureRole(ctx context.Context, raw, description string) (Role, error) {
	name, ok := ParseName(raw)
	if !ok {
		return Role{}, errors.New("roles: unknown role " + strings.TrimSpace(raw))
	}
	return s.repo.EnsureRole(ctx, name, strings.TrimSpace(description))
}
