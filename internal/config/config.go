// Package config provides application configuration loaded from environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	IdleTimeout  int // seconds
}

// DatabaseConfig holds relational store connection settings.
type DatabaseConfig struct {
	Driver       string // postgres or sqlite
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	RawDSN       string // DATABASE_DSN, takes precedence over the discrete fields
	SQLitePath   string
	MaxOpenConns int
	MaxIdleConns int
	Debug        bool
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Env        string
	Dev        bool
	Migrations bool
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string
	Format string // json, console
}

// DSN returns the PostgreSQL connection string in key=value format.
// A non-empty DATABASE_DSN wins over the discrete fields.
func (d DatabaseConfig) DSN() string {
	if d.RawDSN != "" {
		return NormalizeDSN(d.RawDSN)
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// URL returns the PostgreSQL connection string in URL format.
func (d DatabaseConfig) URL() string {
	if d.RawDSN != "" {
		return ToURLDSN(NormalizeDSN(d.RawDSN))
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// IsSQLite reports whether the configured driver is sqlite.
func (d DatabaseConfig) IsSQLite() bool {
	return strings.EqualFold(d.Driver, "sqlite")
}

// Load reads configuration from environment variables.
// It uses sensible defaults for local development.
func Load() *Config {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return &Config{
		Server: ServerConfig{
			Port:         v.GetString("PORT"),
			ReadTimeout:  v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout: v.GetInt("SERVER_WRITE_TIMEOUT"),
			IdleTimeout:  v.GetInt("SERVER_IDLE_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Driver:       v.GetString("DB_DRIVER"),
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetInt("DB_PORT"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			DBName:       v.GetString("DB_NAME"),
			SSLMode:      v.GetString("DB_SSLMODE"),
			RawDSN:       v.GetString("DATABASE_DSN"),
			SQLitePath:   v.GetString("SQLITE_PATH"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
			Debug:        getBool(v, "DB_DEBUG"),
		},
		App: AppConfig{
			Env:        v.GetString("APP_ENV"),
			Dev:        getBool(v, "DEV"),
			Migrations: getBool(v, "MIGRATIONS"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "3000")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 15)
	v.SetDefault("SERVER_IDLE_TIMEOUT", 60)

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "invoices")
	v.SetDefault("DB_PASSWORD", "invoices123")
	v.SetDefault("DB_NAME", "invoices")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DATABASE_DSN", "")
	v.SetDefault("SQLITE_PATH", "invoices.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_DEBUG", "false")

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DEV", "true")
	v.SetDefault("MIGRATIONS", "true")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
}

// getBool accepts "1", "true", "yes" as true; everything else is false.
func getBool(v *viper.Viper, key string) bool {
	switch strings.ToLower(strings.TrimSpace(v.GetString(key))) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
