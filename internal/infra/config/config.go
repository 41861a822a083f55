package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig aggregates every tunable of the account service.
type AppConfig struct {
	App         AppSettings         `mapstructure:"app"`
	Postgres    PostgresSettings    `mapstructure:"postgres"`
	Redis       RedisSettings       `mapstructure:"redis"`
	Kafka       KafkaSettings       `mapstructure:"kafka"`
	Auth        AuthSettings        `mapstructure:"auth"`
	Deletion    DeletionSettings    `mapstructure:"deletion"`
	EmailChange EmailChangeSettings `mapstructure:"email_change"`
	Telemetry   TelemetrySettings   `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisSettings configures the cache backend used for the onboarding status
// cache and the email-change rate limiter.
type RedisSettings struct {
	Host                  string        `mapstructure:"host"`
	Port                  int           `mapstructure:"port"`
	DB                    int           `mapstructure:"db"`
	Password              string        `mapstructure:"password"`
	TLSEnabled            bool          `mapstructure:"tls_enabled"`
	OnboardingCachePrefix string        `mapstructure:"onboarding_cache_prefix"`
	OnboardingCacheTTL    time.Duration `mapstructure:"onboarding_cache_ttl"`
	RateLimitPrefix       string        `mapstructure:"rate_limit_prefix"`
}

// KafkaSettings configures the lifecycle-event producer. Empty brokers fall
// back to a logging stub publisher.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	Async       bool     `mapstructure:"async"`
}

// AuthSettings configures bearer-token validation for owner-scoped endpoints.
type AuthSettings struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// DeletionSettings tunes the soft-delete lifecycle.
type DeletionSettings struct {
	RecoveryWindowDays int  `mapstructure:"recovery_window_days"`
	PurgeIdentity      bool `mapstructure:"purge_identity"`
	PurgeBatchSize     int  `mapstructure:"purge_batch_size"`
}

// RecoveryWindow returns the recovery window as a duration.
func (d DeletionSettings) RecoveryWindow() time.Duration {
	days := d.RecoveryWindowDays
	if days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}

// EmailChangeSettings tunes the email-change coordinator and the identity
// provider the verification challenge is delegated to.
type EmailChangeSettings struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	Window          time.Duration `mapstructure:"window"`
	ProviderBaseURL string        `mapstructure:"provider_base_url"`
	ProviderAPIKey  string        `mapstructure:"provider_api_key"`
	ProviderTimeout time.Duration `mapstructure:"provider_timeout"`
}

type TelemetrySettings struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

// Load reads configuration from config.yaml (when present) and ACCOUNT_*
// environment variables.
func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("ACCOUNT")
	v.AutomaticEnv()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	// The config file is optional; a malformed one is not.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "account-service")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.database", "planora")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.onboarding_cache_prefix", "account:onboarding")
	v.SetDefault("redis.onboarding_cache_ttl", 5*time.Minute)
	v.SetDefault("redis.rate_limit_prefix", "account:rate-limit")

	v.SetDefault("kafka.topic_prefix", "planora.account")
	v.SetDefault("kafka.async", true)

	v.SetDefault("deletion.recovery_window_days", 30)
	v.SetDefault("deletion.purge_identity", false)
	v.SetDefault("deletion.purge_batch_size", 100)

	v.SetDefault("email_change.max_attempts", 5)
	v.SetDefault("email_change.window", time.Hour)
	v.SetDefault("email_change.provider_timeout", 10*time.Second)

	v.SetDefault("telemetry.service_name", "account-service")
	v.SetDefault("telemetry.sampling_rate", 0.1)
}

func validate(cfg *AppConfig) error {
	if cfg.Postgres.Host == "" {
		return fmt.Errorf("postgres.host is required")
	}
	if cfg.Postgres.Database == "" {
		return fmt.Errorf("postgres.database is required")
	}
	if cfg.Deletion.RecoveryWindowDays < 0 {
		return fmt.Errorf("deletion.recovery_window_days must not be negative")
	}
	if cfg.App.Env == "production" && cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required in production")
	}
	return nil
}
