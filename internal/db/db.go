// Package db opens the relational store and keeps its schema up to date.
package db

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/facturation/internal/config"
	"github.com/diewo77/facturation/internal/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	connectAttempts = 5
	connectBackoff  = 2 * time.Second
)

// Open connects to the configured store. Postgres connections are retried a
// few times to give the database time to start.
func Open(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:         logger.NewGormLogger(log, logger.GormLevel(cfg.Debug)),
		TranslateError: true,
	}

	if cfg.IsSQLite() {
		dsn := SQLiteDSN(cfg.SQLitePath)
		log.Info("opening sqlite database", zap.String("dsn", dsn))
		return gorm.Open(sqlite.Open(dsn), gormCfg)
	}

	dsn := cfg.DSN()
	log.Info("connecting to database", zap.String("dsn", config.MaskDSN(dsn)))

	var db *gorm.DB
	var err error
	for i := 1; i <= connectAttempts; i++ {
		db, err = gorm.Open(postgres.Open(dsn), gormCfg)
		if err == nil {
			break
		}
		log.Warn("database connection failed, retrying",
			zap.Int("attempt", i), zap.Int("max", connectAttempts), zap.Error(err))
		time.Sleep(connectBackoff)
	}
	if err != nil {
		return nil, fmt.Errorf("connect database after %d attempts: %w", connectAttempts, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// SQLiteDSN turns a file path into a DSN with foreign keys enforced.
// sqlite leaves them off by default, which would disable ON DELETE CASCADE.
// Transactions take the write lock on BEGIN so that concurrent writers wait
// on the busy timeout instead of failing on lock upgrade.
func SQLiteDSN(path string) string {
	if strings.Contains(path, "_foreign_keys=") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
}

// Close releases the pool behind db.
func Close(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks that the store answers.
func Ping(db *gorm.DB) error {
	return db.Exec("SELECT 1").Error
}
