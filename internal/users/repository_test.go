package users

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/odyssey-erp/peopledesk/internal/platform/db"
	"github.com/odyssey-erp/peopledesk/internal/roles"
	ptesting "github.com/odyssey-erp/peopledesk/testing"
)

func TestDestroyRejectsUnknownAttribute(t *testing.T) {
	repo := &Repository{}
	err := repo.Destroy(context.Background(), "Bob", "name")
	assert.ErrorIs(t, err, ErrDeletion)
	assert.Equal(t, KeyNotDeleted, MessageKey(err))
}

type RepositorySuite struct {
	suite.Suite
	dsn   string
	pool  *pgxpool.Pool
	repo  *Repository
	roles *roles.Repository
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, &RepositorySuite{dsn: ptesting.PostgresDSN(t)})
}

func (s *RepositorySuite) SetupSuite() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := db.New(ctx, db.Options{DSN: s.dsn})
	s.Require().NoError(err)
	s.pool = pool
	s.repo = NewRepository(pool)
	s.roles = roles.NewRepository(pool)
}

func (s *RepositorySuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *RepositorySuite) SetupTest() {
	s.applyMigration("0001_users.down.sql")
	s.applyMigration("0001_users.up.sql")
}

func (s *RepositorySuite) applyMigration(name string) {
	raw, err := os.ReadFile(filepath.Join("..", "..", "migrations", name))
	s.Require().NoError(err)
	for _, stmt := range strings.Split(string(raw), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		_, err := s.pool.Exec(context.Background(), stmt)
		s.Require().NoError(err, stmt)
	}
}

func (s *RepositorySuite) employeeType(label string) int64 {
	var id int64
	err := s.pool.QueryRow(context.Background(), `INSERT INTO employee_types (type) VALUES ($1) RETURNING id`, label).Scan(&id)
	s.Require().NoError(err)
	return id
}

func (s *RepositorySuite) newUser(email string, typeID *int64, held ...roles.Name) *User {
	ctx := context.Background()
	user, err := s.repo.Create(ctx, CreateUserInput{Name: email, Email: email, PasswordHash: "x", EmployeeTypeID: typeID})
	s.Require().NoError(err)
	for _, name := range held {
		role, err := s.roles.GetRoleByName(ctx, name)
		s.Require().NoError(err)
		s.Require().NoError(s.repo.AttachRole(ctx, user.ID, role.ID))
	}
	return user
}

func (s *RepositorySuite) TestCreateAndGet() {
	ctx := context.Background()
	user := s.newUser("ada@example.test", nil, roles.Admin)
	s.NotZero(user.ID)

	got, err := s.repo.GetUserByID(ctx, user.ID)
	s.Require().NoError(err)
	s.Equal("ada@example.test", got.Email)
	s.True(got.IsAdmin())

	_, err = s.repo.Create(ctx, CreateUserInput{Name: "dup", Email: "ada@example.test", PasswordHash: "x"})
	s.ErrorIs(err, ErrCreation)
	s.Equal(KeyEmailTaken, MessageKey(err))

	_, err = s.repo.GetUserByID(ctx, user.ID+100)
	s.ErrorIs(err, ErrNotFound)
}

func (s *RepositorySuite) TestAttachRoleIsIdempotent() {
	ctx := context.Background()
	user := s.newUser("eve@example.test", nil, roles.Employee)
	role, err := s.roles.GetRoleByName(ctx, roles.Employee)
	s.Require().NoError(err)
	s.Require().NoError(s.repo.AttachRole(ctx, user.ID, role.ID))

	var n int
	s.Require().NoError(s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM role_user WHERE user_id = $1`, user.ID).Scan(&n))
	s.Equal(1, n)
}

func (s *RepositorySuite) TestEmployeesAndRoleScope() {
	ctx := context.Background()
	_, err := s.repo.GetAllEmployees(ctx)
	s.ErrorIs(err, ErrNotFound)

	typeID := s.employeeType("full-time")
	s.newUser("admin@example.test", &typeID, roles.Admin)
	both := s.newUser("both@example.test", &typeID, roles.Admin, roles.Employee)
	emp := s.newUser("emp@example.test", &typeID, roles.Employee)
	s.newUser("none@example.test", &typeID)

	employees, err := s.repo.GetAllEmployees(ctx)
	s.Require().NoError(err)
	s.Len(employees, 2)

	admin, err := s.roles.GetRoleByName(ctx, roles.Admin)
	s.Require().NoError(err)
	q := s.repo.UsersForRoleScope(admin.ID).Paginate(1, 10)
	list, err := s.repo.ListUsersForRole(ctx, q)
	s.Require().NoError(err)
	s.Require().Len(list, 2, "dual-role users match through their other role")
	s.Equal(both.ID, list[0].ID)
	s.Equal(emp.ID, list[1].ID)
	s.Equal("full-time", list[1].Type)
	total, err := s.repo.CountUsersForRole(ctx, q)
	s.Require().NoError(err)
	s.Equal(2, total)
}

func (s *RepositorySuite) TestBonusesAndTotals() {
	ctx := context.Background()
	emp := s.newUser("emp@example.test", nil, roles.Employee)
	other := s.newUser("other@example.test", nil, roles.Employee)
	_, err := s.pool.Exec(ctx, `INSERT INTO bonuses (user_id, description, value) VALUES ($1, 'q1', 10.5), ($1, 'q2', 4.5), ($2, 'q1', 1)`, emp.ID, other.ID)
	s.Require().NoError(err)

	q := s.repo.BonusesForUserScope(false, emp.ID, other.ID)
	bonuses, err := s.repo.ListBonuses(ctx, q)
	s.Require().NoError(err)
	s.Len(bonuses, 2)
	count, err := s.repo.CountBonuses(ctx, q)
	s.Require().NoError(err)
	s.Equal(2, count)

	totals, err := s.repo.BonusTotals(ctx, nil)
	s.Require().NoError(err)
	s.Require().Len(totals, 2)
	s.Equal(BonusTotal{UserID: emp.ID, Count: 2, Total: 15}, totals[0])
	s.Equal(BonusTotal{UserID: other.ID, Count: 1, Total: 1}, totals[1])
}

func (s *RepositorySuite) TestDestroy() {
	ctx := context.Background()
	user := s.newUser("gone@example.test", nil)

	s.Require().NoError(s.repo.Destroy(ctx, "gone@example.test", "email"))
	s.ErrorIs(s.repo.Destroy(ctx, user.ID, ""), ErrDeletion)
}

func (s *RepositorySuite) TestWithTxRollsBack() {
	ctx := context.Background()
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		user, err := tx.Create(ctx, CreateUserInput{Name: "tx", Email: "tx@example.test", PasswordHash: "x"})
		if err != nil {
			return err
		}
		return tx.AttachRole(ctx, user.ID, 99999)
	})
	require.Error(s.T(), err)

	var n int
	s.Require().NoError(s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE email = 'tx@example.test'`).Scan(&n))
	s.Zero(n)
}

func (s *RepositorySuite) TestEnsureEmployeeType() {
	ctx := context.Background()
	first, err := s.repo.EnsureEmployeeType(ctx, "intern")
	s.Require().NoError(err)
	again, err := s.repo.EnsureEmployeeType(ctx, "intern")
	s.Require().NoError(err)
	s.Equal(first, again)

	other, err := s.repo.EnsureEmployeeType(ctx, "contractor")
	s.Require().NoError(err)
	s.NotEqual(first, other)
}
