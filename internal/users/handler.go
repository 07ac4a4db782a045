package users

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/peopledesk/internal/i18n"
	"github.com/odyssey-erp/peopledesk/internal/platform/httpx"
	"github.com/odyssey-erp/peopledesk/internal/rbac"
	"github.com/odyssey-erp/peopledesk/internal/shared"
	"github.com/odyssey-erp/peopledesk/internal/view"
)

const idempotencyModule = "users.create"

// IdempotencyStore claims and releases client supplied request keys.
type IdempotencyStore interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Handler manages user management endpoints.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	templates   *view.Engine
	csrf        *shared.CSRFManager
	idempotency IdempotencyStore
	rbac        rbac.Middleware
}

// NewHandler builds Handler instance. idempotency may be nil.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, idempotency IdempotencyStore, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, idempotency: idempotency, rbac: rbac}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAdmin())
		r.Get("/", h.index)
		r.Get("/table", h.table)
		r.Post("/", h.create)
		r.Delete("/{id}", h.destroy)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRole())
		r.Get("/employees", h.employees)
		r.Get("/{id}", h.show)
		r.Get("/{id}/bonuses", h.bonuses)
		r.Get("/{id}/bonuses/total", h.bonusTotal)
	})
}

type listPage struct {
	Table TablePage
	Error string
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	page, perPage := pageParams(r)
	opts := h.actionOptions(r)
	table, err := h.service.UsersTable(r.Context(), caller, page, perPage, opts)
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		h.render(w, r, "pages/users/list.html", listPage{Error: h.service.Message(opts.Lang, err, KeyNoEmployee)}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/users/list.html", listPage{Table: table}, http.StatusOK)
}

func (h *Handler) table(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	page, perPage := pageParams(r)
	table, err := h.service.UsersTable(r.Context(), caller, page, perPage, h.actionOptions(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, table)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	jsonBody := isJSON(r)
	req, err := decodeNewUser(r, jsonBody)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed request body")
		return
	}

	key := strings.TrimSpace(r.Header.Get(shared.IdempotencyHeader))
	if key != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), key, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.Problem(w, http.StatusConflict, "Duplicate Request", err.Error())
				return
			}
			h.logger.Error("idempotency check", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
	}

	user, err := h.service.CreateUser(r.Context(), caller, req)
	if err != nil {
		if key != "" && h.idempotency != nil {
			if delErr := h.idempotency.Delete(r.Context(), key); delErr != nil {
				h.logger.Warn("release idempotency key", slog.Any("error", delErr))
			}
		}
		if jsonBody {
			h.fail(w, r, err)
			return
		}
		h.redirectWithFlash(w, r, "/users", "error", h.service.Message(i18n.FromContext(r.Context()), err, KeyNotCreated))
		return
	}
	h.logger.Info("user created", slog.Int64("user_id", user.ID), slog.Int64("actor_id", caller.ID))
	if jsonBody {
		httpx.JSON(w, http.StatusCreated, user)
		return
	}
	h.redirectWithFlash(w, r, "/users", "success", h.service.tr.Translate(i18n.FromContext(r.Context()), "users.created", user.Name))
}

func (h *Handler) destroy(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteUser(r.Context(), caller, id); err != nil {
		if wantsJSON(r) {
			h.fail(w, r, err)
			return
		}
		h.redirectWithFlash(w, r, "/users", "error", h.service.Message(i18n.FromContext(r.Context()), err, KeyNotDeleted))
		return
	}
	h.logger.Info("user deleted", slog.Int64("user_id", id), slog.Int64("actor_id", caller.ID))
	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.redirectWithFlash(w, r, "/users", "success", h.service.tr.Translate(i18n.FromContext(r.Context()), "users.deleted", id))
}

func (h *Handler) employees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.service.Employees(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"employees": employees})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	user, err := h.service.LoggedOrSelected(r.Context(), caller, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) bonuses(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	subject, err := h.service.LoggedOrSelected(r.Context(), caller, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.service.OnlyEmployee(*subject); err != nil {
		h.fail(w, r, err)
		return
	}
	page, perPage := pageParams(r)
	result, err := h.service.Bonuses(r.Context(), caller, id, page, perPage)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) bonusTotal(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	total, err := h.service.BonusTotal(r.Context(), caller, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, total)
}

// caller resolves the authenticated user placed in context by the rbac middleware.
func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (User, bool) {
	identity, ok := rbac.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return User{}, false
	}
	user, err := h.service.CurrentUser(r.Context(), identity.UserID)
	if err != nil {
		h.fail(w, r, err)
		return User{}, false
	}
	return *user, true
}

func (h *Handler) actionOptions(r *http.Request) ActionOptions {
	opts := ActionOptions{Lang: i18n.FromContext(r.Context())}
	if h.csrf != nil {
		if sess := shared.SessionFromContext(r.Context()); sess != nil {
			opts.CSRFToken, _ = h.csrf.EnsureToken(r.Context(), sess)
		}
	}
	return opts
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, title := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("users request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.Problem(w, status, title, "")
		return
	}
	httpx.Problem(w, status, title, h.service.Message(i18n.FromContext(r.Context()), err, ""))
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrCreation):
		return http.StatusBadRequest, "Not Created"
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, ErrDeletion):
		return http.StatusConflict, "Not Deleted"
	case errors.Is(err, ErrAuthorization):
		return http.StatusForbidden, "Forbidden"
	default:
		return http.StatusInternalServerError, "Internal Error"
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data any, status int) {
	sess := shared.SessionFromContext(r.Context())
	lang := i18n.FromContext(r.Context())
	var csrfToken string
	var flash *shared.FlashMessage
	if sess != nil {
		csrfToken, _ = h.csrf.EnsureToken(r.Context(), sess)
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       h.service.tr.Translate(lang, "users.title"),
		Lang:        lang,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if err := h.templates.RenderStatus(w, status, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func decodeNewUser(r *http.Request, jsonBody bool) (NewUserRequest, error) {
	var req NewUserRequest
	if jsonBody {
		err := httpx.DecodeJSON(r, &req)
		return req, err
	}
	if err := r.ParseForm(); err != nil {
		return req, err
	}
	req = NewUserRequest{
		Name:     r.PostFormValue("name"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
		Type:     r.PostFormValue("type"),
	}
	if raw := strings.TrimSpace(r.PostFormValue("employee_type")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return req, err
		}
		req.EmployeeTypeID = &id
	}
	return req, nil
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return 0, false
	}
	return id, true
}

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	return page, perPage
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func wantsJSON(r *http.Request) bool {
	return isJSON(r) || strings.Contains(r.Header.Get("Accept"), "application/json")
}
