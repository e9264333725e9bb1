package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/diewo77/facturation/internal/config"
	"github.com/diewo77/facturation/internal/models"
	migrate "github.com/golang-migrate/migrate/v4"
	// registers the postgres:// scheme for golang-migrate
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate brings the schema up to date. With useSQL on a postgres store the
// embedded SQL migrations are applied through golang-migrate; otherwise the
// gorm models are auto-migrated (sqlite, or local development).
func Migrate(db *gorm.DB, cfg config.DatabaseConfig, useSQL bool, log *zap.Logger) error {
	if useSQL && !cfg.IsSQLite() {
		if err := runSQLMigrations(cfg.URL(), log); err != nil {
			return fmt.Errorf("sql migrations: %w", err)
		}
	} else {
		if err := AutoMigrate(db); err != nil {
			return err
		}
		log.Info("auto-migration completed")
	}

	for _, table := range []string{"client", "invoice"} {
		if !db.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}

// AutoMigrate creates or updates the tables from the gorm models.
func AutoMigrate(db *gorm.DB) error {
	for _, m := range []any{&models.Client{}, &models.Invoice{}} {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}

func runSQLMigrations(databaseURL string, log *zap.Logger) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("no migrations to apply")
			return nil
		}
		return err
	}
	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("read migration version: %w", err)
	}
	log.Info("migrations completed", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
