package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "veriseal/pkg/platform/strings"
)

// devSigningKey is only used when DISCLOSURE_SIGNING_KEY is unset.
const devSigningKey = "dev-disclosure-key-change-in-production!"

// Config is the full process configuration.
type Config struct {
	Server     Server
	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Disclosure DisclosureConfig
	Lockout    LockoutConfig
	// CatalogFile is an optional YAML checkpoint catalog; empty selects the built-in one.
	CatalogFile string
	// IntegritySweepInterval re-verifies every ledger periodically; zero disables it.
	IntegritySweepInterval time.Duration
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr     string
	LogLevel string
	// OperatorToken is the shared secret operator surfaces present; empty disables the check.
	OperatorToken   string
	ShutdownTimeout time.Duration
}

// DatabaseConfig selects PostgreSQL; an empty URL keeps custody state in memory.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	TxTimeout       time.Duration
}

// RedisConfig selects Redis for disclosure tokens and lockouts; an empty URL keeps them in memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig enables the custody event stream when Brokers is non-empty.
type KafkaConfig struct {
	Brokers    []string
	Topic      string
	Partitions int32
}

type DisclosureConfig struct {
	SigningKey string
	TokenTTL   time.Duration
	BcryptCost int
}

type LockoutConfig struct {
	MaxAttempts  int
	Window       time.Duration
	LockDuration time.Duration
}

// FromEnv builds the config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	e := &envReader{}
	cfg := Config{
		Server: Server{
			Addr:            e.str("VERISEAL_ADDR", ":8080"),
			LogLevel:        e.str("LOG_LEVEL", "info"),
			OperatorToken:   os.Getenv("OPERATOR_TOKEN"),
			ShutdownTimeout: e.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    e.integer("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    e.integer("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: e.duration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
			TxTimeout:       e.duration("CUSTODY_TX_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     e.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: e.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  e.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  e.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: e.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    pstrings.DedupeAndTrim(strings.Split(os.Getenv("KAFKA_BROKERS"), ",")),
			Topic:      e.str("KAFKA_TOPIC", "custody-events"),
			Partitions: int32(e.integer("KAFKA_TOPIC_PARTITIONS", 6)),
		},
		Disclosure: DisclosureConfig{
			SigningKey: e.str("DISCLOSURE_SIGNING_KEY", devSigningKey),
			TokenTTL:   e.duration("DISCLOSURE_TOKEN_TTL", 15*time.Minute),
			BcryptCost: e.integer("PIN_BCRYPT_COST", 10),
		},
		Lockout: LockoutConfig{
			MaxAttempts:  e.integer("PIN_LOCKOUT_MAX_ATTEMPTS", 5),
			Window:       e.duration("PIN_LOCKOUT_WINDOW", 15*time.Minute),
			LockDuration: e.duration("PIN_LOCKOUT_DURATION", 15*time.Minute),
		},
		CatalogFile:            os.Getenv("CATALOG_FILE"),
		IntegritySweepInterval: e.duration("INTEGRITY_SWEEP_INTERVAL", 0),
	}
	if e.err != nil {
		return Config{}, e.err
	}
	return cfg, nil
}

// UsesDevSigningKey reports whether the built-in development key is active.
func (c Config) UsesDevSigningKey() bool {
	return c.Disclosure.SigningKey == devSigningKey
}

// envReader collects the first parse error so FromEnv reads linearly.
type envReader struct {
	err error
}

func (e *envReader) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (e *envReader) integer(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil && e.err == nil {
		e.err = fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil && e.err == nil {
		e.err = fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d
}
