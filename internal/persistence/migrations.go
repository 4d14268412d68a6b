package persistence

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// RunMigrations applies every pending up migration.
func RunMigrations(dsn string, logger *zap.Logger) error {
	return withMigrator(dsn, func(m *migrate.Migrate) error {
		if err := m.Up(); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				logger.Info("migrations already up to date")
				return nil
			}
			return fmt.Errorf("migrate up: %w", err)
		}
		version, _, _ := m.Version()
		logger.Info("migrations applied", zap.Uint("version", version))
		return nil
	})
}

// RollbackMigrations reverts the given number of migrations; steps <= 0 reverts all.
func RollbackMigrations(dsn string, steps int, logger *zap.Logger) error {
	return withMigrator(dsn, func(m *migrate.Migrate) error {
		var err error
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate down: %w", err)
		}
		logger.Info("migrations rolled back", zap.Int("steps", steps))
		return nil
	})
}

func withMigrator(dsn string, fn func(m *migrate.Migrate) error) error {
	if dsn == "" {
		return errors.New("POSTGRES_DSN is required for migrations")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("init migrate driver: %w", err)
	}
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("init migrator: %w", err)
	}
	defer func() {
		_, _ = m.Close()
	}()
	return fn(m)
}
