package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfig = `
[database]
host = "db"
dbname = "appointments"
user = "app"
password = "secret"

[catalog_service]
url = "http://catalog:8080"

[payments]
platform_fee_percent = 10
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, "usd", cfg.Payments.Currency)
	assert.Equal(t, 10.0, cfg.Payments.PlatformFeePercent)
	assert.Equal(t, 5*time.Minute, cfg.Jobs.HoldTTLDuration())
	assert.Equal(t, 30*24*time.Hour, cfg.Jobs.IdempotencyRetentionDuration())
	assert.Equal(t, 120, cfg.Booking.DefaultLeadTimeMinutes)
	assert.Equal(t, 60, cfg.Booking.DefaultAdvanceDays)
	assert.Equal(t, "host=db port=5432 user=app password=secret dbname=appointments sslmode=disable", cfg.Database.DSN())
	assert.Equal(t, "postgres://app:secret@db:5432/appointments?sslmode=disable", cfg.Database.URL())
}

func TestLoad_EnvOverridesSecrets(t *testing.T) {
	t.Setenv("PAYMENTS_SECRET_KEY", "sk_test_env")
	t.Setenv("DATABASE_PASSWORD", "from-env")

	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "sk_test_env", cfg.Payments.SecretKey)
	assert.Equal(t, "from-env", cfg.Database.Password)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+"\n[redis]\nenabled = true\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Load(writeConfig(t, `[database]
host = "db"
dbname = "x"
`))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
