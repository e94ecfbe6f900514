package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	S3       S3Config       `mapstructure:"s3"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
	Export   ExportConfig   `mapstructure:"export"`
	Planner  PlannerConfig  `mapstructure:"planner"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"` // duration string, e.g. "60m"
}

type LogConfig struct {
	Level string `mapstructure:"level"` // debug|info|warn|error
	Env   string `mapstructure:"env"`   // dev|prod
}

type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

// ExportConfig controls where rendered calendars go.
type ExportConfig struct {
	KeyPrefix string        `mapstructure:"key_prefix"`
	URLExpiry time.Duration `mapstructure:"url_expiry"`
}

// PlannerConfig is read by plannerctl.
type PlannerConfig struct {
	APIBaseURL     string        `mapstructure:"api_base_url"`
	Token          string        `mapstructure:"token"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// LoadConfig reads configuration from path/config.yaml and the environment.
// Nested keys map to env vars with "." replaced by "_", e.g. JWT_EXPIRATION.
func LoadConfig(path string) (Config, error) {
	var config Config
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Environment variables override the file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	// Defaults
	v.SetDefault("server.address", ":8080")
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "fitdesk_backoffice")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("jwt.secret", "") // must be set; the server refuses to start without it
	v.SetDefault("jwt.expiration", "1h")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.env", "prod") // JSON output
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")
	v.SetDefault("export.key_prefix", "exports")
	v.SetDefault("export.url_expiry", "15m")
	// plannerctl
	v.SetDefault("planner.api_base_url", "http://localhost:8080/api/v1")
	v.SetDefault("planner.token", "")
	v.SetDefault("planner.request_timeout", "15s")

	// A missing file is fine; env vars and defaults still apply.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, err
		}
	}

	// Durations decode from strings such as "15m"
	if err := v.Unmarshal(&config); err != nil {
		return config, err
	}
	return config, nil
}
