package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Users     UsersConfig     `mapstructure:"users"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Events    EventsConfig    `mapstructure:"events"`
	Audit     AuditConfig     `mapstructure:"audit"`

	// Env holds secrets and endpoints read from the process environment.
	Env Env `mapstructure:"-"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MongoConfig struct {
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	MaxPoolSize    uint64        `mapstructure:"max_pool_size"`
}

type AuthConfig struct {
	Issuer   string `mapstructure:"issuer"`
	Audience string `mapstructure:"audience"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type UsersConfig struct {
	InviteTTL time.Duration `mapstructure:"invite_ttl"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

type SMTPConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Username  string `mapstructure:"username"`
	From      string `mapstructure:"from"`
	AcceptURL string `mapstructure:"accept_url"`
	AppName   string `mapstructure:"app_name"`
}

type StorageConfig struct {
	Bucket   string `mapstructure:"bucket"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
	Prefix   string `mapstructure:"prefix"`
}

type EventsConfig struct {
	// Broker is "redis", "kafka" or "none".
	Broker        string        `mapstructure:"broker"`
	TopicPrefix   string        `mapstructure:"topic_prefix"`
	KafkaBrokers  []string      `mapstructure:"kafka_brokers"`
	BatchSize     int           `mapstructure:"batch_size"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
}

type AuditConfig struct {
	// Store is "mongo" or "postgres".
	Store           string        `mapstructure:"store"`
	RetentionDays   int           `mapstructure:"retention_days"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type Env struct {
	MongoURI     string `envconfig:"MONGODB_URI" required:"true"`
	JWTSecret    string `envconfig:"JWT_SECRET" required:"true"`
	Environment  string `envconfig:"APP_ENV" default:"development"`
	SentryDSN    string `envconfig:"SENTRY_DSN"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	RedisURL     string `envconfig:"REDIS_URL"`
	PostgresDSN  string `envconfig:"POSTGRES_DSN"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 35*time.Second)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("mongo.database", "wellness")
	v.SetDefault("mongo.connect_timeout", 10*time.Second)
	v.SetDefault("mongo.max_pool_size", 50)
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20)
	v.SetDefault("rate_limit.burst", 40)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("users.invite_ttl", 7*24*time.Hour)
	v.SetDefault("users.cache_ttl", 30*time.Second)
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.app_name", "Wellness")
	v.SetDefault("events.broker", "none")
	v.SetDefault("events.topic_prefix", "wellness.")
	v.SetDefault("events.batch_size", 100)
	v.SetDefault("events.poll_interval", 5*time.Second)
	v.SetDefault("events.retry_attempts", 3)
	v.SetDefault("events.retry_delay", time.Second)
	v.SetDefault("events.max_attempts", 5)
	v.SetDefault("audit.store", "mongo")
	v.SetDefault("audit.retention_days", 365)
	v.SetDefault("audit.cleanup_interval", 24*time.Hour)
}

// Load reads the YAML file at path, or config.yaml from the usual
// locations when path is empty, then the environment. A missing file
// leaves the defaults in place; missing required environment is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app/config")
	}

	v.SetEnvPrefix("WELLNESS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Env); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if cfg.Env.MongoURI == "" || cfg.Env.JWTSecret == "" {
		return nil, errors.New("MONGODB_URI and JWT_SECRET must not be empty")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Events.Broker {
	case "none", "":
	case "redis":
		if c.Env.RedisURL == "" {
			return errors.New("REDIS_URL is required when events.broker is redis")
		}
	case "kafka":
		if len(c.Events.KafkaBrokers) == 0 {
			return errors.New("events.kafka_brokers is required when events.broker is kafka")
		}
	default:
		return fmt.Errorf("unknown events.broker %q", c.Events.Broker)
	}

	switch c.Audit.Store {
	case "mongo", "":
	case "postgres":
		if c.Env.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required when audit.store is postgres")
		}
	default:
		return fmt.Errorf("unknown audit.store %q", c.Audit.Store)
	}

	if c.Audit.RetentionDays <= 0 || c.Audit.CleanupInterval <= 0 {
		return errors.New("audit.retention_days and audit.cleanup_interval must be positive")
	}
	if c.Events.BatchSize <= 0 || c.Events.PollInterval <= 0 || c.Events.RetryAttempts <= 0 {
		return errors.New("events.batch_size, events.poll_interval and events.retry_attempts must be positive")
	}

	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	return nil
}
