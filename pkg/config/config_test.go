package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DesdeEntorno(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("APP_STORAGE", "memory")
	t.Setenv("LEDGER_TX_TIMEOUT", "750ms")
	t.Setenv("LEDGER_MAX_RETRIES", "4")
	t.Setenv("ALERTS_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, 750*time.Millisecond, cfg.Ledger.TxTimeout)
	assert.Equal(t, 4, cfg.Ledger.MaxRetries)
	assert.Equal(t, 3*time.Second, cfg.Ledger.LockTimeout)
	assert.True(t, cfg.Alerts.Enabled)
	assert.Equal(t, "0 7 * * *", cfg.Alerts.CronSchedule)
}

func TestLoad_SinSecretoFalla(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			JWT:     JWTConfig{Secret: "x"},
			Storage: StorageConfig{Driver: StoragePostgres},
			Ledger:  LedgerConfig{MaxBulkRows: 10},
		}
	}

	require.NoError(t, base().Validate())

	c := base()
	c.Storage.Driver = "sqlite"
	assert.ErrorContains(t, c.Validate(), "APP_STORAGE")

	c = base()
	c.Ledger.MaxBulkRows = 0
	assert.Error(t, c.Validate())

	c = base()
	c.Ledger.MaxRetries = -3
	require.NoError(t, c.Validate())
	assert.Zero(t, c.Ledger.MaxRetries)
}

func TestGetDuration(t *testing.T) {
	v := viper.New()
	v.Set("SECS", "15")
	v.Set("DUR", "2m")
	v.Set("BAD", "pronto")

	assert.Equal(t, 15*time.Second, getDuration(v, "SECS", time.Second))
	assert.Equal(t, 2*time.Minute, getDuration(v, "DUR", time.Second))
	assert.Equal(t, time.Second, getDuration(v, "BAD", time.Second))
	assert.Equal(t, time.Second, getDuration(v, "MISSING", time.Second))
}

func TestDBConfig_ConnectionString(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss:word", DBName: "epp", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%3Aword@db:5432/epp?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://otro"
	assert.Equal(t, "postgres://otro", c.ConnectionString())
}
