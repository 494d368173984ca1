// Package cmd provides the billingctl commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"telecom-billing/internal/auth"
	"telecom-billing/internal/config"
	"telecom-billing/internal/rbac"
	"telecom-billing/pkg/logger"
	"telecom-billing/pkg/utils"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// cliActor is recorded as the actor of audit events written by the CLI.
const cliActor = "billingctl"

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "billingctl",
	Short: "Operate the telephone billing service",
	Long: `billingctl runs operator tasks against the billing database.

Configuration comes from the same environment as the API
(APP_ENV, DB_*, REDIS_*, BILLING_*).

Examples:
  billingctl migrate
  billingctl period current
  billingctl invoices generate <period-id>
  billingctl quote --from 22223333 --to 88887777 --seconds 95
  billingctl rates import rates.yaml`,
	SilenceUsage: true,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// backend holds the storage handles a command opened.
type backend struct {
	cfg  config.Config
	log  *slog.Logger
	pool *pgxpool.Pool
	rdb  *redis.Client
}

func (b *backend) Close() {
	if b.rdb != nil {
		_ = b.rdb.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
}

// openBackend loads configuration and connects to Postgres, and to Redis
// when withRedis is set. The returned context carries the CLI identity and
// a logger writing to stderr.
func openBackend(ctx context.Context, withRedis bool) (context.Context, *backend, error) {
	cfg, err := config.LoadStorage()
	if err != nil {
		return ctx, nil, fmt.Errorf("config: %w", err)
	}

	env := cfg.App.Env
	if verbose {
		env = "dev"
	}
	log := logger.NewWithWriter(env, os.Stderr)
	slog.SetDefault(log)
	ctx = logger.With(ctx, log)
	ctx = auth.WithIdentity(ctx, cliActor, rbac.RoleAdmin)

	b := &backend{cfg: cfg, log: log}
	b.pool, err = utils.OpenPostgres(ctx, cfg.PostgresDSN(), utils.PostgresPoolConfig{MaxConns: 4})
	if err != nil {
		return ctx, nil, fmt.Errorf("postgres: %w", err)
	}

	if withRedis {
		rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: cfg.RedisAddr(), Password: cfg.Redis.Password})
		if err != nil {
			// Invoicing is still serialized by the period row lock.
			log.Warn("redis unavailable, continuing without invoicing lock", "err", err)
		} else {
			b.rdb = rdb
		}
	}
	return ctx, b, nil
}

var errUsage = errors.New("invalid arguments")
