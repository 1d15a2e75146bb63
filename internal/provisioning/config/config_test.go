package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gartstein/tenantprov/internal/provisioning/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFileDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 50051, cfg.GRPCPort)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, db.DriverPostgres, cfg.DBDriver)
	assert.Equal(t, 10*time.Second, cfg.TxTimeout)
	assert.Equal(t, "Mobile Detailing", cfg.DefaultModule)
	assert.Equal(t, "MD", cfg.DefaultModuleCode)
	assert.Equal(t, MailLog, cfg.MailTransport)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, uint64(3), cfg.NotifyMaxRetries)
	assert.Equal(t, 24*time.Hour, cfg.MailTopicRetention)
}

func TestLoadFileOverrides(t *testing.T) {
	path := writeConfig(t, `
GRPC_PORT: 6000
DB_DRIVER: SQLite
JWT_SECRET: from-file
TX_TIMEOUT: 3s
DEFAULT_MODULE_CODE: cw
KAFKA_BROKERS:
  - k1:9092
  - k2:9092
MAIL_TRANSPORT: smtp
`)
	t.Setenv("GRPC_PORT", "7000")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.GRPCPort, "environment wins over the file")
	assert.Equal(t, db.DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, 3*time.Second, cfg.TxTimeout)
	assert.Equal(t, "CW", cfg.DefaultModuleCode)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, MailSMTP, cfg.MailTransport)
}

func TestLoadFileInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing secret", "JWT_SECRET: ''\n"},
		{"unknown driver", "JWT_SECRET: s\nDB_DRIVER: mysql\n"},
		{"unknown transport", "JWT_SECRET: s\nMAIL_TRANSPORT: pigeon\n"},
		{"zero timeout", "JWT_SECRET: s\nTX_TIMEOUT: 0s\n"},
		{"bad default code", "JWT_SECRET: s\nDEFAULT_MODULE_CODE: M1\n"},
		{"one letter default code", "JWT_SECRET: s\nDEFAULT_MODULE_CODE: M\n"},
		{"long default code", "JWT_SECRET: s\nDEFAULT_MODULE_CODE: MDXX\n"},
		{"zero mail retention", "JWT_SECRET: s\nMAIL_TOPIC_RETENTION: 0s\n"},
		{"malformed yaml", "JWT_SECRET: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadUsesConfigFileEnv(t *testing.T) {
	t.Setenv("CONFIG_FILE", writeConfig(t, "JWT_SECRET: s\nHTTP_PORT: 9999\n"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.HTTPPort)
}

func TestDerivedSettings(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	cfg, err := LoadFile(writeConfig(t, `
DATABASE_URL: postgres://u:p@db:5432/x
SMTP_HOST: mail
SMTP_PORT: 2525
LOGIN_URL: https://app.example.com
`))
	require.NoError(t, err)

	dbCfg := cfg.Database()
	assert.Equal(t, "postgres://u:p@db:5432/x", dbCfg.DSN)
	assert.Equal(t, 10, dbCfg.MaxOpenConns)

	smtp := cfg.SMTP()
	assert.Equal(t, "mail", smtp.Host)
	assert.Equal(t, 2525, smtp.Port)

	opts := cfg.NotifyOptions()
	assert.Equal(t, "https://app.example.com", opts.LoginURL)
	assert.Equal(t, 1000, opts.QueueSize)
}
