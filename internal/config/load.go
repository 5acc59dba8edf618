package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the loader reads,
// e.g. TASKMAN_DATABASE_URL maps to database.url.
const EnvPrefix = "TASKMAN"

// Load configuration from environment variables and optionally config files.
// A .env file in the working directory is loaded first when present; variables
// already set in the process environment take precedence over it.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_file_max_size_mb", 100)
	v.SetDefault("server.log_file_backups", 5)
	v.SetDefault("server.log_file_max_age_days", 30)

	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.token_lifetime_minutes", 60*24*7)
	v.SetDefault("auth.refresh_token_lifetime_minutes", 60*24*30)

	v.SetDefault("jobs.worker_count", 4)
	v.SetDefault("jobs.queue_size", 256)
	v.SetDefault("jobs.max_attempts", 3)
	v.SetDefault("jobs.soft_time_limit_seconds", 120)
	v.SetDefault("jobs.retry_base_delay_ms", 500)
	v.SetDefault("jobs.stuck_job_age_minutes", 30)

	v.SetDefault("notify.provider", "smtp")
	v.SetDefault("notify.from", "no-reply@example.com")
	v.SetDefault("notify.smtp_port", 587)
	v.SetDefault("notify.smtp_insecure", false)
	v.SetDefault("notify.sendgrid_endpoint", "https://api.sendgrid.com/v3/mail/send")

	v.SetDefault("sweep.enabled", true)
	v.SetDefault("sweep.cron", "0 8 * * *")
	v.SetDefault("sweep.lease_ttl_seconds", 43200)
}

// bindEnvs registers every key that has no default, so AutomaticEnv can see it
// during Unmarshal.
func bindEnvs(v *viper.Viper) {
	keys := []string{
		"database.url",
		"auth.jwt_secret",
		"server.log_file",
		"notify.smtp_host",
		"notify.smtp_username",
		"notify.smtp_password",
		"notify.sendgrid_api_key",
		"redis.url",
	}
	for _, key := range keys {
		// BindEnv only fails when called without a key.
		_ = v.BindEnv(key)
	}
}
