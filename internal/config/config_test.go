package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SESSION_SECRET", "s3cret")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.False(t, cfg.TrustProxy)
	assert.Equal(t, "@every 10m", cfg.RateLimitCleanupSchedule)
	assert.False(t, cfg.MailEnabled())
}

func TestNewConfigRejectsDefaultSecretForPostgres(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SESSION_SECRET", DefaultSessionSecret)
	t.Setenv("DB_DRIVER", "postgres")

	_, err := NewConfig()
	assert.ErrorContains(t, err, "SESSION_SECRET")
}

func TestNewConfigFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(path, []byte(`
port: "9000"
db_driver: sqlite3
db_conn: "file:feedback.db"
session_ttl: 2h
smtp_host: smtp.example.com
sender_email: noreply@example.com
`), 0o600)
	require.NoError(t, err)

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9100")
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("TRUST_PROXY", "true")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Port, "env overrides file")
	assert.Equal(t, "sqlite3", cfg.DBDriver)
	assert.Equal(t, "file:feedback.db", cfg.DBConn)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 4, cfg.BcryptCost)
	assert.True(t, cfg.TrustProxy)
	assert.True(t, cfg.MailEnabled())
}

func TestNewConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DB_DRIVER", "mysql")

	_, err := NewConfig()
	assert.Error(t, err)
}

func TestNewConfigMissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := NewConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.SessionSecret = ""
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.RateLimitBurst = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	assert.Error(t, cfg.Validate(), "placeholder secret with postgres")
	cfg.DBDriver = "sqlite3"
	assert.NoError(t, cfg.Validate(), "placeholder secret is fine for local sqlite")

	cfg = Default()
	cfg.SessionSecret = "s3cret"
	assert.NoError(t, cfg.Validate())
}
