package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"SAPP_ADDR", "LOG_LEVEL", "CREDENTIAL_ISSUER", "CREDENTIAL_VALIDITY",
		"LEDGER_CAPACITY", "REDIS_URL", "DATABASE_URL", "KAFKA_BROKERS", "SEED_DEMO_DATA",
		"DATABASE_MIGRATE",
	} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "SAPP Security", cfg.Credential.Issuer)
	assert.Equal(t, "SAPP-", cfg.Credential.MemberPrefix)
	assert.Equal(t, 24*time.Hour, cfg.Credential.ValidityWindow)
	assert.Equal(t, 10, cfg.Scan.LedgerCapacity)
	assert.Empty(t, cfg.Redis.URL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.True(t, cfg.SeedDemo)
	assert.True(t, cfg.Database.Migrate)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("SAPP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CREDENTIAL_ISSUER", "Acme Security")
	t.Setenv("CREDENTIAL_VALIDITY", "1h")
	t.Setenv("LEDGER_CAPACITY", "5")
	t.Setenv("SEED_DEMO_DATA", "false")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, bogus, 192.168.0.0/16")

	cfg := FromEnv()

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "Acme Security", cfg.Credential.Issuer)
	assert.Equal(t, time.Hour, cfg.Credential.ValidityWindow)
	assert.Equal(t, 5, cfg.Scan.LedgerCapacity)
	assert.False(t, cfg.SeedDemo)
	assert.Len(t, cfg.Server.TrustedProxies, 2)
}

func TestFromEnvIgnoresInvalidValues(t *testing.T) {
	t.Setenv("CREDENTIAL_VALIDITY", "forever")
	t.Setenv("LEDGER_CAPACITY", "-3")
	t.Setenv("LOG_LEVEL", "chatty")

	cfg := FromEnv()

	assert.Equal(t, DefaultValidityWindow, cfg.Credential.ValidityWindow)
	assert.Equal(t, DefaultLedgerCapacity, cfg.Scan.LedgerCapacity)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}
