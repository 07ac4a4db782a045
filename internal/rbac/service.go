package rbac

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/peopledesk/internal/platform/db"
	"github.com/odyssey-erp/peopledesk/internal/roles"
)

// Service resolves role assignments.
type Service struct {
	db db.DBTX
}

// NewService constructs a Service backed by the provided connection.
func NewService(conn db.DBTX) *Service {
	return &Service{db: conn}
}

// RolesForUser returns the role names assigned to userID ordered by name.
func (s *Service) RolesForUser(ctx context.Context, userID int64) ([]roles.Name, error) {
	rows, err := s.db.Query(ctx, `
SELECT roles.name
FROM role_user
JOIN roles ON roles.id = role_user.role_id
WHERE role_user.user_id = $1
ORDER BY roles.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("rbac: roles for user: %w", err)
	}
	defer rows.Close()
	var names []roles.Name
	for rows.Next() {
		var name roles.Name
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// RemoveRole detaches roleID from userID.
func (s *Service) RemoveRole(ctx context.Context, userID, roleID int64) error {
	_, err := s.db.Exec(ctx, `DELETE FROM role_user WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	if err != nil {
		return fmt.Errorf("rbac: remove role: %w", err)
	}
	return nil
}
