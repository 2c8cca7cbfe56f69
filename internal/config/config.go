package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/caremesh/credentialing-api/internal/storage"
	"github.com/caremesh/credentialing-api/pkg/messaging/redis"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Redis     RedisConfig     `yaml:"redis"`
	Storage   StorageConfig   `yaml:"storage"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	Outbox    OutboxConfig    `yaml:"outbox"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Renewal   RenewalConfig   `yaml:"renewal"`
	Security  SecurityConfig  `yaml:"security"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port" envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" default:"15s"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" envconfig:"SERVER_REQUEST_TIMEOUT" default:"30s"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host" envconfig:"DB_HOST" default:"localhost"`
	Port         int    `mapstructure:"port" envconfig:"DB_PORT" default:"5432"`
	User         string `mapstructure:"user" envconfig:"DB_USER" default:"postgres"`
	Password     string `mapstructure:"password" envconfig:"DB_PASSWORD"`
	Name         string `mapstructure:"name" envconfig:"DB_NAME" default:"credentialing"`
	SSLMode      string `mapstructure:"sslmode" envconfig:"DB_SSLMODE" default:"disable"`
	MaxOpenConns int    `mapstructure:"max_open_conns" envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
}

type JWTConfig struct {
	Secret             string `mapstructure:"secret" envconfig:"JWT_SECRET"`
	RefreshSecret      string `mapstructure:"refresh_secret" envconfig:"JWT_REFRESH_SECRET"`
	ExpiryHours        int    `mapstructure:"expiry_hours" envconfig:"JWT_EXPIRY_HOURS" default:"1"`
	RefreshExpiryHours int    `mapstructure:"refresh_expiry_hours" envconfig:"JWT_REFRESH_EXPIRY_HOURS" default:"168"`
	BcryptCost         int    `mapstructure:"bcrypt_cost" envconfig:"BCRYPT_COST" default:"12"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url" envconfig:"REDIS_URL" default:"redis://localhost:6379"`
	MaxRetries   int           `mapstructure:"max_retries" envconfig:"REDIS_MAX_RETRIES" default:"3"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff" envconfig:"REDIS_RETRY_BACKOFF" default:"100ms"`
	PoolSize     int           `mapstructure:"pool_size" envconfig:"REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `mapstructure:"min_idle_conns" envconfig:"REDIS_MIN_IDLE_CONNS" default:"2"`

	BreakerThreshold int           `mapstructure:"breaker_threshold" envconfig:"REDIS_BREAKER_THRESHOLD" default:"5"`
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown" envconfig:"REDIS_BREAKER_COOLDOWN" default:"30s"`
}

type StorageConfig struct {
	Bucket       string        `mapstructure:"bucket" envconfig:"STORAGE_BUCKET" default:"credentialing-documents"`
	Region       string        `mapstructure:"region" envconfig:"STORAGE_REGION" default:"us-east-1"`
	Endpoint     string        `mapstructure:"endpoint" envconfig:"STORAGE_ENDPOINT"`
	UsePathStyle bool          `mapstructure:"use_path_style" envconfig:"STORAGE_USE_PATH_STYLE"`
	URLExpiry    time.Duration `mapstructure:"url_expiry" envconfig:"STORAGE_URL_EXPIRY" default:"15m"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host" envconfig:"SMTP_HOST"`
	Port     int    `mapstructure:"port" envconfig:"SMTP_PORT" default:"587"`
	Username string `mapstructure:"username" envconfig:"SMTP_USERNAME"`
	Password string `mapstructure:"password" envconfig:"SMTP_PASSWORD"`
	From     string `mapstructure:"from" envconfig:"SMTP_FROM" default:"credentialing@caremesh.example"`
}

type OutboxConfig struct {
	BatchSize     int           `mapstructure:"batch_size" envconfig:"OUTBOX_BATCH_SIZE" default:"100"`
	PollInterval  time.Duration `mapstructure:"poll_interval" envconfig:"OUTBOX_POLL_INTERVAL" default:"5s"`
	RetryAttempts int           `mapstructure:"retry_attempts" envconfig:"OUTBOX_RETRY_ATTEMPTS" default:"5"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" envconfig:"OUTBOX_RETRY_DELAY" default:"30s"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled" envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" envconfig:"RATE_LIMIT_RPS" default:"50"`
	Burst             int     `mapstructure:"burst" envconfig:"RATE_LIMIT_BURST" default:"100"`
}

type RenewalConfig struct {
	ScanInterval  time.Duration `mapstructure:"scan_interval" envconfig:"RENEWAL_SCAN_INTERVAL" default:"1h"`
	LookAheadDays int           `mapstructure:"look_ahead_days" envconfig:"RENEWAL_LOOK_AHEAD_DAYS" default:"90"`
	ReminderDays  int           `mapstructure:"reminder_days" envconfig:"RENEWAL_REMINDER_DAYS" default:"30"`
	// DigestRecipient receives the reminder digest; empty disables it.
	DigestRecipient string `mapstructure:"digest_recipient" envconfig:"RENEWAL_DIGEST_RECIPIENT"`
	// AuditRetentionDays bounds how long audit entries are kept.
	AuditRetentionDays int `mapstructure:"audit_retention_days" envconfig:"AUDIT_RETENTION_DAYS" default:"365"`
}

type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins" envconfig:"SECURITY_ALLOWED_ORIGINS" default:"*"`
	AllowedMethods []string `mapstructure:"allowed_methods" envconfig:"SECURITY_ALLOWED_METHODS" default:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders []string `mapstructure:"allowed_headers" envconfig:"SECURITY_ALLOWED_HEADERS" default:"Authorization,Content-Type,X-Request-ID"`
}

// Load reads config.yaml (if present) and then applies environment
// overrides. A missing config file is fine; env alone can carry a
// deployment.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/app")
	viper.AddConfigPath("/app/config")
	viper.AutomaticEnv()

	var config Config
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	return &config, nil
}

func (c *RedisConfig) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:          c.URL,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,

		BreakerThreshold: c.BreakerThreshold,
		BreakerCooldown:  c.BreakerCooldown,
	}
}

func (c *StorageConfig) ToObjectStoreConfig() storage.Config {
	return storage.Config{
		Bucket:       c.Bucket,
		Region:       c.Region,
		Endpoint:     c.Endpoint,
		UsePathStyle: c.UsePathStyle,
		URLExpiry:    c.URLExpiry,
	}
}
