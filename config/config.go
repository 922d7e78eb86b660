package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Booking    BookingConfig    `yaml:"booking"`
	Sweeper    SweeperConfig    `yaml:"sweeper"`
	Payments   PaymentsConfig   `yaml:"payments"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Log        LogConfig        `yaml:"log"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	UserIDHeader    string  `yaml:"user_id_header"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogLevel               string `yaml:"log_level"`
}

// BookingConfig holds the reservation rules.
type BookingConfig struct {
	LockTTLMinutes int           `yaml:"lock_ttl_minutes"`
	LockTTL        time.Duration `yaml:"-"`
	// DefaultPrice is used when neither the slot nor the turf carries a price.
	DefaultPrice int64 `yaml:"default_price"`
}

// SweeperConfig holds the expiry sweeper configuration.
type SweeperConfig struct {
	Enabled         *bool         `yaml:"enabled"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"` // Ignored by YAML parser
}

// IsEnabled reports whether the sweeper should run. It defaults to true.
func (s SweeperConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// PaymentsConfig holds the payment webhook configuration.
type PaymentsConfig struct {
	WebhookToken string `yaml:"webhook_token"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are configured.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size      int `yaml:"size"`
	QueueSize int `yaml:"queue_size"`
}

// LogConfig selects the logger flavour.
type LogConfig struct {
	Production bool `yaml:"production"`
}

// MetricsConfig controls the OpenTelemetry metrics export.
type MetricsConfig struct {
	Enabled         bool          `yaml:"enabled"`
	OTLPEndpoint    string        `yaml:"otlp_endpoint"`
	ServiceName     string        `yaml:"service_name"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills every unset field with its default value.
func (cfg *Config) ApplyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.UserIDHeader == "" {
		cfg.Server.UserIDHeader = "X-User-ID"
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}

	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}

	if cfg.Booking.LockTTLMinutes <= 0 {
		cfg.Booking.LockTTLMinutes = 15
	}
	cfg.Booking.LockTTL = time.Duration(cfg.Booking.LockTTLMinutes) * time.Minute
	if cfg.Booking.DefaultPrice <= 0 {
		cfg.Booking.DefaultPrice = 1000
	}

	if cfg.Sweeper.IntervalSeconds <= 0 {
		cfg.Sweeper.IntervalSeconds = 60
	}
	cfg.Sweeper.Interval = time.Duration(cfg.Sweeper.IntervalSeconds) * time.Second

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		cfg.WorkerPool.QueueSize = 256
	}

	if cfg.Metrics.OTLPEndpoint == "" {
		cfg.Metrics.OTLPEndpoint = "localhost:4318"
	}
	if cfg.Metrics.ServiceName == "" {
		cfg.Metrics.ServiceName = "turf-booking-backend"
	}
	if cfg.Metrics.IntervalSeconds <= 0 {
		cfg.Metrics.IntervalSeconds = 30
	}
	cfg.Metrics.Interval = time.Duration(cfg.Metrics.IntervalSeconds) * time.Second
}
