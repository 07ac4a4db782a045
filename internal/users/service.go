package users

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/language"

	"github.com/odyssey-erp/peopledesk/internal/roles"
	"github.com/odyssey-erp/peopledesk/internal/routing"
	"github.com/odyssey-erp/peopledesk/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	TxRepository
	GetUserByID(ctx context.Context, id int64) (*User, error)
	GetAllEmployees(ctx context.Context) ([]User, error)
	BonusesForUserScope(isAdmin bool, loggedInUserID, sentUserID int64) BonusQuery
	ListBonuses(ctx context.Context, q BonusQuery) ([]Bonus, error)
	CountBonuses(ctx context.Context, q BonusQuery) (int, error)
	UsersForRoleScope(roleID int64) UserRoleQuery
	ListUsersForRole(ctx context.Context, q UserRoleQuery) ([]RoleScopedUser, error)
	CountUsersForRole(ctx context.Context, q UserRoleQuery) (int, error)
	Destroy(ctx context.Context, id any, attribute string) error
	BonusTotals(ctx context.Context, userIDs []int64) ([]BonusTotal, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// RoleLookup resolves roles by name.
type RoleLookup interface {
	RoleByName(ctx context.Context, name roles.Name) (roles.Role, error)
}

// Translator renders message keys for a language.
type Translator interface {
	Translate(tag language.Tag, key string, args ...any) string
}

// URLBuilder resolves named routes.
type URLBuilder interface {
	URL(name string, params ...any) (string, error)
}

// Auditor records administrative changes.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ServiceConfig carries the optional collaborators of Service.
type ServiceConfig struct {
	URLs       URLBuilder
	Translator Translator
	Totals     *TotalsCache
	Audit      Auditor
	Logger     *slog.Logger
}

// Service handles user business logic.
type Service struct {
	repo     RepositoryPort
	roles    RoleLookup
	urls     URLBuilder
	tr       Translator
	totals   *TotalsCache
	audit    Auditor
	logger   *slog.Logger
	validate *validator.Validate
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, roleLookup RoleLookup, cfg ServiceConfig) *Service {
	s := &Service{
		repo:     repo,
		roles:    roleLookup,
		urls:     cfg.URLs,
		tr:       cfg.Translator,
		totals:   cfg.Totals,
		audit:    cfg.Audit,
		logger:   cfg.Logger,
		validate: validator.New(),
	}
	if s.urls == nil {
		s.urls = routing.Default()
	}
	if s.tr == nil {
		s.tr = keyTranslator{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// CurrentUser loads the authenticated user with its roles.
func (s *Service) CurrentUser(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// OnlyEmployee fails unless user holds the employee role.
func (s *Service) OnlyEmployee(user User) error {
	if !user.HasRole(roles.Employee) {
		return newError(ErrAuthorization, KeyReportNoEmployee, nil)
	}
	return nil
}

// LoggedOrSelected returns the caller unless the caller is an admin, in which
// case the user identified by userID is loaded.
func (s *Service) LoggedOrSelected(ctx context.Context, caller User, userID int64) (*User, error) {
	if !caller.IsAdmin() {
		self := caller
		return &self, nil
	}
	return s.repo.GetUserByID(ctx, userID)
}

// RoleFromType maps "admin" (any case) to the admin role and anything else to the employee role.
func (s *Service) RoleFromType(ctx context.Context, typ string) (roles.Role, error) {
	if strings.EqualFold(typ, string(roles.Admin)) {
		return s.roles.RoleByName(ctx, roles.Admin)
	}
	return s.roles.RoleByName(ctx, roles.Employee)
}

// ActionOptions carries the per-request inputs of DataTableControllers.
type ActionOptions struct {
	Lang      language.Tag
	CSRFToken string
}

type actionLink struct {
	Href  string
	Class string
	Icon  string
	Label string
}

type deleteForm struct {
	Action    string
	Field     string
	CSRFToken string
	Label     string
}

var actionsTemplate = template.Must(template.New("actions").Parse(
	`{{range .Links}}<a href="{{.Href}}" class="btn btn-xs {{.Class}}"><i class="glyphicon {{.Icon}}"></i>{{.Label}}</a> {{end}}` +
		`{{with .Delete}}<form class="delete-form" method="POST" action="{{.Action}}">` +
		`<input type="hidden" name="{{.Field}}" value="{{.CSRFToken}}"/>` +
		`<input type="hidden" name="_method" value="DELETE"/>` +
		`<button type="submit" class="btn btn-xs btn-danger main_delete"><i class="glyphicon glyphicon-trash"></i> {{.Label}}</button>` +
		`</form>{{end}}`))

// DataTableControllers renders the bonus, defect and report links for user,
// followed by a delete form when isLoggedAdmin.
func (s *Service) DataTableControllers(user User, isLoggedAdmin bool, opts ActionOptions) (template.HTML, error) {
	linkDefs := []struct {
		route, class, icon, label string
	}{
		{routing.BonusIndex, "btn-success", "glyphicon-star", "bonuses.title"},
		{routing.DefectIndex, "btn-warning", "glyphicon-remove", "defects.title"},
		{routing.ReportUserIndex, "btn-info", "glyphicon-file", "reports.reports"},
	}
	data := struct {
		Links  []actionLink
		Delete *deleteForm
	}{}
	for _, def := range linkDefs {
		href, err := s.urls.URL(def.route, user.ID)
		if err != nil {
			return "", err
		}
		data.Links = append(data.Links, actionLink{
			Href:  href,
			Class: def.class,
			Icon:  def.icon,
			Label: s.tr.Translate(opts.Lang, def.label),
		})
	}
	if isLoggedAdmin {
		action, err := s.urls.URL(routing.UserDestroy, user.ID)
		if err != nil {
			return "", err
		}
		data.Delete = &deleteForm{
			Action:    action,
			Field:     shared.CSRFFormField,
			CSRFToken: opts.CSRFToken,
			Label:     s.tr.Translate(opts.Lang, "general.delete"),
		}
	}
	var buf bytes.Buffer
	if err := actionsTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// CreateUser validates req, stores the user and attaches the role named by req.Type.
func (s *Service) CreateUser(ctx context.Context, caller User, req NewUserRequest) (*User, error) {
	if !caller.IsAdmin() {
		return nil, newError(ErrAuthorization, KeyAdminOnly, nil)
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validate.Struct(req); err != nil {
		return nil, newError(ErrCreation, KeyInvalidInput, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, newError(ErrCreation, KeyNotCreated, err)
	}
	role, err := s.RoleFromType(ctx, req.Type)
	if err != nil {
		return nil, err
	}

	var created *User
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		user, err := tx.Create(ctx, CreateUserInput{
			Name:           req.Name,
			Email:          req.Email,
			PasswordHash:   string(hash),
			EmployeeTypeID: req.EmployeeTypeID,
		})
		if err != nil {
			return err
		}
		if err := tx.AttachRole(ctx, user.ID, role.ID); err != nil {
			return err
		}
		created = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	created.Roles = []roles.Role{role}

	s.record(ctx, shared.AuditLog{
		ActorID:  caller.ID,
		Action:   "user.create",
		Entity:   "user",
		EntityID: strconv.FormatInt(created.ID, 10),
		Meta:     map[string]any{"email": created.Email, "role": string(role.Name)},
	})
	return created, nil
}

// DeleteUser removes the user with id. Only admins may delete.
func (s *Service) DeleteUser(ctx context.Context, caller User, id int64) error {
	if !caller.IsAdmin() {
		return newError(ErrAuthorization, KeyAdminOnly, nil)
	}
	if err := s.repo.Destroy(ctx, id, "id"); err != nil {
		return err
	}
	if err := s.totals.Invalidate(ctx, id); err != nil {
		s.logger.Warn("invalidate bonus total", slog.Int64("user_id", id), slog.Any("error", err))
	}
	s.record(ctx, shared.AuditLog{
		ActorID:  caller.ID,
		Action:   "user.delete",
		Entity:   "user",
		EntityID: strconv.FormatInt(id, 10),
	})
	return nil
}

// Employees lists every user with the employee role.
func (s *Service) Employees(ctx context.Context) ([]User, error) {
	return s.repo.GetAllEmployees(ctx)
}

// BonusPage is one page of a user's bonuses.
type BonusPage struct {
	UserID     int64             `json:"user_id"`
	Bonuses    []Bonus           `json:"bonuses"`
	Pagination shared.Pagination `json:"pagination"`
}

// Bonuses lists the bonuses of userID as seen by caller. Non-admins always get their own.
func (s *Service) Bonuses(ctx context.Context, caller User, userID int64, page, perPage int) (BonusPage, error) {
	q := s.repo.BonusesForUserScope(caller.IsAdmin(), caller.ID, userID).Paginate(page, perPage)
	bonuses, err := s.repo.ListBonuses(ctx, q)
	if err != nil {
		return BonusPage{}, err
	}
	total, err := s.repo.CountBonuses(ctx, q)
	if err != nil {
		return BonusPage{}, err
	}
	return BonusPage{
		UserID:     q.UserID,
		Bonuses:    bonuses,
		Pagination: shared.NewPagination(page, q.Limit, total),
	}, nil
}

// TablePage is one page of the admin users table.
type TablePage struct {
	Rows       []TableRow        `json:"rows"`
	Pagination shared.Pagination `json:"pagination"`
}

// UsersTable lists non-admin users with their action links.
func (s *Service) UsersTable(ctx context.Context, caller User, page, perPage int, opts ActionOptions) (TablePage, error) {
	admin, err := s.roles.RoleByName(ctx, roles.Admin)
	if err != nil {
		return TablePage{}, err
	}
	q := s.repo.UsersForRoleScope(admin.ID).Paginate(page, perPage)
	list, err := s.repo.ListUsersForRole(ctx, q)
	if err != nil {
		return TablePage{}, err
	}
	total, err := s.repo.CountUsersForRole(ctx, q)
	if err != nil {
		return TablePage{}, err
	}
	rows := make([]TableRow, 0, len(list))
	for _, u := range list {
		actions, err := s.DataTableControllers(User{ID: u.ID}, caller.IsAdmin(), opts)
		if err != nil {
			return TablePage{}, err
		}
		rows = append(rows, TableRow{RoleScopedUser: u, Actions: string(actions)})
	}
	return TablePage{Rows: rows, Pagination: shared.NewPagination(page, q.Limit, total)}, nil
}

// BonusTotal returns the bonus count and sum for userID as seen by caller.
func (s *Service) BonusTotal(ctx context.Context, caller User, userID int64) (BonusTotal, error) {
	target := s.repo.BonusesForUserScope(caller.IsAdmin(), caller.ID, userID).UserID
	return s.totals.Fetch(ctx, target, func(ctx context.Context) (BonusTotal, error) {
		totals, err := s.repo.BonusTotals(ctx, []int64{target})
		if err != nil {
			return BonusTotal{}, err
		}
		if len(totals) == 0 {
			return BonusTotal{}, newError(ErrNotFound, KeyNoEmployee, nil)
		}
		return totals[0], nil
	})
}

// RefreshBonusTotals recomputes every user's total and rewrites the cache.
func (s *Service) RefreshBonusTotals(ctx context.Context) (int, error) {
	totals, err := s.repo.BonusTotals(ctx, nil)
	if err != nil {
		return 0, err
	}
	if err := s.totals.StoreAll(ctx, totals); err != nil {
		return 0, err
	}
	return len(totals), nil
}

// Message translates the key carried by err, or fallbackKey when it has none.
func (s *Service) Message(tag language.Tag, err error, fallbackKey string) string {
	key := MessageKey(err)
	if key == "" {
		key = fallbackKey
	}
	return s.tr.Translate(tag, key)
}

func (s *Service) record(ctx context.Context, entry shared.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("audit record", slog.String("action", entry.Action), slog.Any("error", err))
	}
}

type keyTranslator struct{}

func (keyTranslator) Translate(_ language.Tag, key string, _ ...any) string { return key }

// IsExpected reports whether err is one of the package's expected failures.
func IsExpected(err error) bool {
	return errors.Is(err, ErrCreation) || errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrDeletion) || errors.Is(err, ErrAuthorization)
}
