package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/peopledesk/internal/app"
	"github.com/odyssey-erp/peopledesk/internal/platform/cache"
	"github.com/odyssey-erp/peopledesk/internal/platform/db"
	"github.com/odyssey-erp/peopledesk/internal/roles"
	"github.com/odyssey-erp/peopledesk/internal/users"
)

// operator is the caller peoplectl acts as. Audit records carry actor id 0.
var operator = users.User{Name: "peoplectl", Roles: []roles.Role{{Name: roles.Admin}}}

// NewRootCommand assembles the peoplectl command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "peoplectl",
		Short:         "Administer PeopleDesk users, roles and jobs",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		newUsersCommand(),
		newRolesCommand(),
		newSeedCommand(),
		newJobsCommand(),
	)
	return root
}

// env holds the connections a command needs. Close releases them.
type env struct {
	cfg      *app.StoreConfig
	logger   *slog.Logger
	pool     *pgxpool.Pool
	redis    *redis.Client
	services *app.Services
	users    *users.Repository
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := app.LoadStoreConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := app.NewStoreLogger(cfg)
	pool, err := db.New(ctx, cfg.Postgres("cli"))
	if err != nil {
		return nil, err
	}
	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		pool.Close()
		return nil, err
	}
	services, err := app.NewServices(cfg, pool, redisClient, logger)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, err
	}
	return &env{
		cfg:      cfg,
		logger:   logger,
		pool:     pool,
		redis:    redisClient,
		services: services,
		users:    users.NewRepository(pool),
	}, nil
}

func (e *env) Close() error {
	if e == nil {
		return nil
	}
	e.pool.Close()
	return e.redis.Close()
}

// withEnv opens the environment for the duration of fn.
func withEnv(cmd *cobra.Command, fn func(*env) error) (err error) {
	e, err := openEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, e.Close())
	}()
	return fn(e)
}
