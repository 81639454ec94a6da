package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the immutable runtime configuration. It is parsed once at startup
// and passed by pointer to every component that needs it.
type Config struct {
	Server       Server
	Database     Database
	Redis        RedisConfig
	Kafka        Kafka
	Transactions Transactions
	Registry     Registry
	Log          Log
	Otel         Otel
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr string `env:"REGISTRY_ADDR" envDefault:":8080"`
	// RegistrarHeader carries the registrar id asserted by the TLS-terminating proxy.
	RegistrarHeader string        `env:"REGISTRY_REGISTRAR_HEADER" envDefault:"X-SSL-Client-Registrar"`
	ShutdownTimeout time.Duration `env:"REGISTRY_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	// ToolToken guards the administrative endpoint, which is not mounted
	// without one.
	ToolToken string `env:"REGISTRY_TOOL_TOKEN"`
	// MaxBodyBytes bounds the size of an EPP command.
	MaxBodyBytes int64 `env:"REGISTRY_MAX_BODY_BYTES" envDefault:"65536"`
	// RateLimitPerMinute caps EPP commands per registrar; zero disables it.
	RateLimitPerMinute int `env:"REGISTRY_EPP_RATE_LIMIT" envDefault:"0"`
	// ReadTimeout and WriteTimeout bound one EPP exchange; a command's own
	// transaction retries must fit in WriteTimeout.
	ReadTimeout  time.Duration `env:"REGISTRY_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout time.Duration `env:"REGISTRY_WRITE_TIMEOUT" envDefault:"60s"`
}

// Database selects the transactional store. An empty URL runs against the
// in-memory store.
type Database struct {
	URL          string `env:"REGISTRY_DATABASE_URL"`
	ReportingURL string `env:"REGISTRY_REPORTING_DATABASE_URL"`
	MaxOpenConns int    `env:"REGISTRY_DATABASE_MAX_OPEN_CONNS" envDefault:"20"`
}

// RedisConfig holds connection settings for the premium price cache.
type RedisConfig struct {
	URL          string        `env:"REGISTRY_REDIS_URL"`
	PoolSize     int           `env:"REGISTRY_REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REGISTRY_REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REGISTRY_REDIS_DIAL_TIMEOUT" envDefault:"2s"`
	ReadTimeout  time.Duration `env:"REGISTRY_REDIS_READ_TIMEOUT" envDefault:"500ms"`
	WriteTimeout time.Duration `env:"REGISTRY_REDIS_WRITE_TIMEOUT" envDefault:"500ms"`
	PremiumTTL   time.Duration `env:"REGISTRY_PREMIUM_CACHE_TTL" envDefault:"10m"`
}

// Kafka configures the post-commit notification producer. No brokers means
// notifications are only logged.
type Kafka struct {
	Brokers []string `env:"REGISTRY_KAFKA_BROKERS" envSeparator:","`
	Topic   string   `env:"REGISTRY_KAFKA_TOPIC" envDefault:"registry.domain-events"`
	// Partitions and ReplicationFactor are used when the topic is created at
	// startup.
	Partitions        int32 `env:"REGISTRY_KAFKA_PARTITIONS" envDefault:"3"`
	ReplicationFactor int16 `env:"REGISTRY_KAFKA_REPLICATION_FACTOR" envDefault:"1"`
}

// Transactions tunes the transaction manager.
type Transactions struct {
	Isolation   string        `env:"REGISTRY_TX_ISOLATION" envDefault:"SERIALIZABLE"`
	MaxAttempts int           `env:"REGISTRY_TX_MAX_ATTEMPTS" envDefault:"5"`
	BaseBackoff time.Duration `env:"REGISTRY_TX_BASE_BACKOFF" envDefault:"25ms"`
	MaxBackoff  time.Duration `env:"REGISTRY_TX_MAX_BACKOFF" envDefault:"1s"`
	Timeout     time.Duration `env:"REGISTRY_TX_TIMEOUT" envDefault:"10s"`
}

// Registry holds protocol-level policy.
type Registry struct {
	MaxRegistrationYears int    `env:"REGISTRY_MAX_REGISTRATION_YEARS" envDefault:"10"`
	ServerTridPrefix     string `env:"REGISTRY_SERVER_TRID_PREFIX" envDefault:"RGY"`
}

// Log selects handler format and level for log/slog.
type Log struct {
	Level  string `env:"REGISTRY_LOG_LEVEL" envDefault:"info"`
	Format string `env:"REGISTRY_LOG_FORMAT" envDefault:"json"`
}

// Otel enables trace export when an endpoint is set.
type Otel struct {
	Endpoint    string `env:"REGISTRY_OTEL_ENDPOINT"`
	ServiceName string `env:"REGISTRY_OTEL_SERVICE_NAME" envDefault:"registry"`
}

// FromEnv parses and validates configuration from environment variables.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no environment is set.
func Default() *Config {
	var cfg Config
	// envDefault tags are the single source of defaults; an empty environment
	// cannot fail to parse.
	_ = env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}})
	return &cfg
}

// Validate checks cross-field constraints the struct tags cannot express.
func (c *Config) Validate() error {
	if c.Transactions.MaxAttempts < 1 {
		return fmt.Errorf("REGISTRY_TX_MAX_ATTEMPTS must be at least 1, got %d", c.Transactions.MaxAttempts)
	}
	if c.Transactions.MaxBackoff < c.Transactions.BaseBackoff {
		return fmt.Errorf("REGISTRY_TX_MAX_BACKOFF (%s) is below REGISTRY_TX_BASE_BACKOFF (%s)",
			c.Transactions.MaxBackoff, c.Transactions.BaseBackoff)
	}
	if c.Server.RateLimitPerMinute < 0 {
		return fmt.Errorf("REGISTRY_EPP_RATE_LIMIT must not be negative, got %d", c.Server.RateLimitPerMinute)
	}
	if c.Registry.MaxRegistrationYears < 1 {
		return fmt.Errorf("REGISTRY_MAX_REGISTRATION_YEARS must be positive, got %d", c.Registry.MaxRegistrationYears)
	}
	switch c.Transactions.Isolation {
	case "SERIALIZABLE", "REPEATABLE_READ", "READ_COMMITTED":
	default:
		return fmt.Errorf("unsupported REGISTRY_TX_ISOLATION %q", c.Transactions.Isolation)
	}
	return nil
}
