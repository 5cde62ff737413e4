package config

import (
	"log/slog"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the process configuration, read once in main and passed down explicitly.
type Config struct {
	Environment string
	LogLevel    slog.Level
	Server      Server
	Credential  Credential
	Scan        Scan
	Redis       RedisConfig
	Database    DatabaseConfig
	Kafka       KafkaConfig
	SeedDemo    bool
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	TrustedProxies  []netip.Prefix
}

// Credential configures issuance and verification.
type Credential struct {
	Issuer         string
	MemberPrefix   string
	ValidityWindow time.Duration
	QRSize         int
}

// Scan configures server-side scan sessions.
type Scan struct {
	LedgerCapacity  int
	IdleTTL         time.Duration
	CleanupInterval time.Duration
	MaxFrameBytes   int64
}

// RedisConfig holds Redis connection settings. An empty URL disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds Postgres settings. An empty URL disables Postgres.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Migrate         bool
}

// KafkaConfig holds broker settings. Empty Brokers disables the audit stream.
type KafkaConfig struct {
	Brokers       string
	AuditTopic    string
	ConsumerGroup string
}

// Defaults used when the matching environment variable is unset or unparseable.
const (
	DefaultIssuer         = "SAPP Security"
	DefaultMemberPrefix   = "SAPP-"
	DefaultValidityWindow = 24 * time.Hour
	DefaultQRSize         = 256
	DefaultLedgerCapacity = 10
	DefaultIdleTTL        = 15 * time.Minute
)

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Environment: envString("SAPP_ENV", "local"),
		LogLevel:    parseLevel(os.Getenv("LOG_LEVEL")),
		Server: Server{
			Addr:            envString("SAPP_ADDR", ":8080"),
			ReadTimeout:     envDuration("SAPP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    envDuration("SAPP_WRITE_TIMEOUT", 15*time.Second),
			RequestTimeout:  envDuration("SAPP_REQUEST_TIMEOUT", 10*time.Second),
			ShutdownTimeout: envDuration("SAPP_SHUTDOWN_TIMEOUT", 20*time.Second),
			TrustedProxies:  parsePrefixes(os.Getenv("TRUSTED_PROXIES")),
		},
		Credential: Credential{
			Issuer:         envString("CREDENTIAL_ISSUER", DefaultIssuer),
			MemberPrefix:   envString("CREDENTIAL_MEMBER_PREFIX", DefaultMemberPrefix),
			ValidityWindow: envDuration("CREDENTIAL_VALIDITY", DefaultValidityWindow),
			QRSize:         envInt("QR_SIZE", DefaultQRSize),
		},
		Scan: Scan{
			LedgerCapacity:  envInt("LEDGER_CAPACITY", DefaultLedgerCapacity),
			IdleTTL:         envDuration("SCAN_SESSION_IDLE_TTL", DefaultIdleTTL),
			CleanupInterval: envDuration("SCAN_SESSION_CLEANUP_INTERVAL", time.Minute),
			MaxFrameBytes:   int64(envInt("SCAN_MAX_FRAME_BYTES", 4<<20)),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
			Migrate:         envBool("DATABASE_MIGRATE", true),
		},
		Kafka: KafkaConfig{
			Brokers:       os.Getenv("KAFKA_BROKERS"),
			AuditTopic:    envString("AUDIT_TOPIC", "sapp.audit.events"),
			ConsumerGroup: envString("AUDIT_CONSUMER_GROUP", "sapp-audit-sink"),
		},
		SeedDemo: envBool("SEED_DEMO_DATA", true),
	}
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// parsePrefixes reads a comma-separated CIDR list; invalid entries are skipped.
func parsePrefixes(s string) []netip.Prefix {
	var out []netip.Prefix
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if p, err := netip.ParsePrefix(part); err == nil {
			out = append(out, p)
		}
	}
	return out
}
