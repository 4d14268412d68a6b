package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/config"
)

// ErrNotConfigured is returned by Ping when no DSN was given.
var ErrNotConfigured = errors.New("postgres not configured")

// Postgres owns the pool behind the SQL repositories. Without a DSN it holds
// no pool and callers fall back to the in-memory store.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects and pings within cfg.ConnectTimeout.
func NewPostgres(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*Postgres, error) {
	if cfg.DSN == "" {
		logger.Warn("POSTGRES_DSN not provided; using in-memory storage")
		return &Postgres{}, nil
	}

	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout())
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("connected to postgres",
		zap.String("database", poolCfg.ConnConfig.Database),
		zap.Int32("max_conns", poolCfg.MaxConns),
		zap.Int32("min_conns", poolCfg.MinConns),
	)
	return &Postgres{pool: pool}, nil
}

// poolConfig layers the service's pool tuning over what the DSN specifies.
func poolConfig(cfg config.PostgresConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = min(cfg.MinConns, poolCfg.MaxConns)
	}
	if idle := cfg.IdleTimeout(); idle > 0 {
		poolCfg.MaxConnIdleTime = idle
	}
	if life := cfg.MaxLifetime(); life > 0 {
		poolCfg.MaxConnLifetime = life
	}
	if cfg.ApplicationName != "" {
		poolCfg.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}
	return poolCfg, nil
}

// Close releases pool resources.
func (p *Postgres) Close() {
	if p != nil && p.pool != nil {
		p.pool.Close()
	}
}

// PoolHandle returns the pgx pool, or nil in in-memory mode.
func (p *Postgres) PoolHandle() *pgxpool.Pool {
	if p == nil {
		return nil
	}
	return p.pool
}

// Ping verifies database connectivity for the readiness probe.
func (p *Postgres) Ping(ctx context.Context) error {
	if p.PoolHandle() == nil {
		return ErrNotConfigured
	}
	return p.pool.Ping(ctx)
}
