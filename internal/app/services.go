package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/peopledesk/internal/i18n"
	"github.com/odyssey-erp/peopledesk/internal/rbac"
	"github.com/odyssey-erp/peopledesk/internal/roles"
	"github.com/odyssey-erp/peopledesk/internal/shared"
	"github.com/odyssey-erp/peopledesk/internal/users"
)

// Services bundles the domain services shared by the server, the worker and the CLI.
type Services struct {
	Catalog     *i18n.Catalog
	Roles       *roles.Service
	RBAC        *rbac.Service
	Users       *users.Service
	Totals      *users.TotalsCache
	Audit       *shared.AuditLogger
	Idempotency *shared.IdempotencyStore
}

// NewServices wires repositories and services over the given pool and Redis client.
func NewServices(cfg *StoreConfig, pool *pgxpool.Pool, redisClient *redis.Client, logger *slog.Logger) (*Services, error) {
	catalog, err := i18n.NewCatalog(cfg.Language())
	if err != nil {
		return nil, err
	}
	audit := shared.NewAuditLogger(pool)
	roleService := roles.NewService(roles.NewRepository(pool))
	totals := users.NewTotalsCache(redisClient, cfg.BonusTotalsTTL)
	userService := users.NewService(users.NewRepository(pool), roleService, users.ServiceConfig{
		Translator: catalog,
		Totals:     totals,
		Audit:      audit,
		Logger:     logger,
	})
	return &Services{
		Catalog:     catalog,
		Roles:       roleService,
		RBAC:        rbac.NewService(pool),
		Users:       userService,
		Totals:      totals,
		Audit:       audit,
		Idempotency: shared.NewIdempotencyStore(pool),
	}, nil
}
