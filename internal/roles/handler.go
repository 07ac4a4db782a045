package roles

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/peopledesk/internal/platform/httpx"
)

// Handler exposes read-only role endpoints. Access control is applied by the router.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listRoles)
	r.Get("/{name}", h.showRole)
}

func (h *Handler) showRole(w http.ResponseWriter, r *http.Request) {
	name, ok := ParseName(chi.URLParam(r, "name"))
	if !ok {
		httpx.RespondError(w, ErrNotFound)
		return
	}
	role, err := h.service.RoleByName(r.Context(), name)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			h.logger.Error("get role failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if roles == nil {
		roles = []Role{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": roles})
}
