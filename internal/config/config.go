package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Jobs     JobsConfig     `mapstructure:"jobs"     validate:"required"`
	Notify   NotifyConfig   `mapstructure:"notify"   validate:"required"`
	Sweep    SweepConfig    `mapstructure:"sweep"    validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	// LogFile enables rotated file output in addition to stdout when set.
	LogFile          string `mapstructure:"log_file"`
	LogFileMaxSizeMB int    `mapstructure:"log_file_max_size_mb" validate:"gte=0"`
	LogFileBackups   int    `mapstructure:"log_file_backups"     validate:"gte=0"`
	LogFileMaxAgeDay int    `mapstructure:"log_file_max_age_days" validate:"gte=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret"                     validate:"required,min=32"`
	BCryptCost                  int    `mapstructure:"bcrypt_cost"                    validate:"gte=4,lte=31"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes"         validate:"gt=0"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"gt=0"`
}

// JobsConfig tunes the background job runner.
type JobsConfig struct {
	WorkerCount        int `mapstructure:"worker_count"            validate:"gt=0"`
	QueueSize          int `mapstructure:"queue_size"              validate:"gt=0"`
	MaxAttempts        int `mapstructure:"max_attempts"            validate:"gt=0"`
	SoftTimeLimitSecs  int `mapstructure:"soft_time_limit_seconds" validate:"gt=0"`
	RetryBaseDelayMs   int `mapstructure:"retry_base_delay_ms"     validate:"gt=0"`
	StuckJobAgeMinutes int `mapstructure:"stuck_job_age_minutes"   validate:"gt=0"`
}

// NotifyConfig selects and configures the outbound email channel.
type NotifyConfig struct {
	Provider string `mapstructure:"provider" validate:"required,oneof=smtp sendgrid"`
	From     string `mapstructure:"from"     validate:"required,email"`

	SMTPHost     string `mapstructure:"smtp_host"     validate:"required_if=Provider smtp"`
	SMTPPort     int    `mapstructure:"smtp_port"     validate:"gte=0,lt=65536"`
	SMTPUsername string `mapstructure:"smtp_username"`
	SMTPPassword string `mapstructure:"smtp_password"`
	// SMTPInsecure disables STARTTLS, for local relays only.
	SMTPInsecure bool `mapstructure:"smtp_insecure"`

	SendGridAPIKey   string `mapstructure:"sendgrid_api_key"  validate:"required_if=Provider sendgrid"`
	SendGridEndpoint string `mapstructure:"sendgrid_endpoint" validate:"omitempty,url"`
}

// SweepConfig schedules the daily overdue summary.
type SweepConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Cron            string `mapstructure:"cron"              validate:"required"`
	LeaseTTLSeconds int    `mapstructure:"lease_ttl_seconds" validate:"gt=0"`
}

// RedisConfig is optional; the sweep lease falls back to an in-process lock without it.
type RedisConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}
