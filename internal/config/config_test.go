package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "JWT_SECRET", "DATABASE_PASSWORD", "DATABASE_HOST"} {
		t.Setenv(key, "")
	}
	path := writeConfig(t, `
jwt:
  secret: s3cret
database:
  host: db
  port: 5432
  user: food
  password: pw
  dbname: rescue
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8001, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 50.0, cfg.Marketplace.NotifyRadiusKm)
	assert.Equal(t, time.Hour, cfg.Marketplace.SweepInterval)
	assert.Equal(t, 5*time.Minute, cfg.Marketplace.SweepRetryInterval)
	assert.Equal(t, "30-M", cfg.RateLimit.Auth)
	assert.Equal(t, "host=db port=5432 user=food password=pw dbname=rescue sslmode=disable", cfg.Database.DSN())
	assert.Equal(t, "pgx5://food:pw@db:5432/rescue?sslmode=disable", cfg.Database.MigrateURL())
}

func TestLoadEnvOverridesSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("PORT", "9090")
	path := writeConfig(t, `
jwt:
  secret: from-file
marketplace:
  sweep_interval: 30m
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 30*time.Minute, cfg.Marketplace.SweepInterval)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load(writeConfig(t, "server:\n  port: 8080\n"))
	assert.Error(t, err)
}
