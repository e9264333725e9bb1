package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, 15, cfg.Server.ReadTimeout)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.True(t, cfg.App.Migrations)
	assert.False(t, cfg.Database.Debug)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_DEBUG", "yes")
	t.Setenv("MIGRATIONS", "0")
	t.Setenv("LOG_FORMAT", "json")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.True(t, cfg.Database.IsSQLite())
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.True(t, cfg.Database.Debug)
	assert.False(t, cfg.App.Migrations)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestDatabaseConfigDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "inv", SSLMode: "disable"}

	assert.Equal(t, "host=db port=5432 user=u password=p dbname=inv sslmode=disable", d.DSN())
	assert.Equal(t, "postgres://u:p@db:5432/inv?sslmode=disable", d.URL())

	d.RawDSN = "  'host=other user=x dbname=y'  "
	assert.Equal(t, "host=other user=x dbname=y sslmode=disable", d.DSN())
	assert.Equal(t, "postgres://x@other/y?sslmode=disable", d.URL())
}

func TestNormalizeDSN(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"url untouched", "postgres://u:p@h/db", "postgres://u:p@h/db"},
		{"kv collapsed", "host=h   user=u dbname=d sslmode=require", "host=h user=u dbname=d sslmode=require"},
		{"kv gets sslmode", "host=h user=u dbname=d", "host=h user=u dbname=d sslmode=disable"},
		{"garbage", "not a dsn", "not a dsn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDSN(tt.in))
		})
	}
}

func TestMaskDSN(t *testing.T) {
	masked := MaskDSN("host=h user=u password=secret dbname=d")
	assert.Equal(t, "host=h user=u password=*** dbname=d", masked)

	masked = MaskDSN("postgres://u:secret@h:5432/d")
	assert.False(t, strings.Contains(masked, "secret"))
}
