package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application settings.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Auth     AuthConfig
	Email    EmailConfig
	Gate     GateConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds unified Redis connection settings.
// Supported modes: single, sentinel, cluster.
type RedisConfig struct {
	// Mode: "single", "sentinel" or "cluster". Defaults to "single".
	Mode string `mapstructure:"mode"`

	// Addrs: list of host:port addresses, used for all modes.
	Addrs []string `mapstructure:"addrs"`

	// Addr: single-address alternative for "single" mode.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: master server name (sentinel mode only).
	MasterName string `mapstructure:"master_name"`

	MaxRetries      int `mapstructure:"max_retries"`
	MinRetryBackoff int `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"`
}

// JWTConfig holds token settings.
type JWTConfig struct {
	// SigningKey signs access tokens (HS256). Required.
	SigningKey string `mapstructure:"signing_key"`
	// AccessTokenMinutes is the access token lifetime in minutes.
	AccessTokenMinutes int `mapstructure:"access_token_minutes"`
	// CleanupInterval between invalidation cache sweeps.
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// AuthConfig holds session settings.
type AuthConfig struct {
	// SessionLimit caps active refresh tokens per member.
	SessionLimit int `mapstructure:"session_limit"`
	// RefreshTokenLifetime in hours.
	RefreshTokenLifetime int `mapstructure:"refresh_token_lifetime"`
}

// EmailConfig holds transactional email settings.
type EmailConfig struct {
	// Enabled switches between the Resend sender and the noop sender.
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
	From    string `mapstructure:"from"`
	// CodePepper is mixed into confirmation code hashes.
	CodePepper string `mapstructure:"code_pepper"`
}

// GateConfig bounds the access gate's external calls.
type GateConfig struct {
	// ProfileReadTimeoutMS bounds the profile read per request.
	ProfileReadTimeoutMS int `mapstructure:"profile_read_timeout_ms"`
	// TerminateTimeoutMS bounds the session-termination call.
	TerminateTimeoutMS int `mapstructure:"terminate_timeout_ms"`
}

// PostgresConnectionString builds the PostgreSQL DSN.
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// Load reads configuration from the optional file and bound env vars.
func Load(configPath string) (*Config, error) {
	vip := viper.New() // fresh instance, avoid global viper state

	// Bind environment variables explicitly.
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")

	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	vip.BindEnv("jwt.signing_key", "JWT_SIGNING_KEY")
	vip.BindEnv("jwt.access_token_minutes", "JWT_ACCESS_TOKEN_MINUTES")
	vip.BindEnv("jwt.cleanup_interval", "JWT_CLEANUP_INTERVAL")

	vip.BindEnv("auth.session_limit", "AUTH_SESSION_LIMIT")
	vip.BindEnv("auth.refresh_token_lifetime", "AUTH_REFRESH_TOKEN_LIFETIME")

	vip.BindEnv("email.enabled", "EMAIL_ENABLED")
	vip.BindEnv("email.api_key", "RESEND_API_KEY")
	vip.BindEnv("email.from", "EMAIL_FROM")
	vip.BindEnv("email.code_pepper", "EMAIL_CODE_PEPPER")

	vip.BindEnv("gate.profile_read_timeout_ms", "GATE_PROFILE_READ_TIMEOUT_MS")
	vip.BindEnv("gate.terminate_timeout_ms", "GATE_TERMINATE_TIMEOUT_MS")

	vip.BindEnv("server.port", "SERVER_PORT")

	if configPath != "" {
		vip.SetConfigFile(configPath)
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				log.Printf("Config file '%s' not found, using env vars and defaults.", configPath)
			} else {
				log.Printf("Warning: could not read config file '%s': %v", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Config dump outside release mode, without secrets.
	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Loaded configuration ---")
		log.Printf("Database Host: %s", cfg.Database.Host)
		log.Printf("Database Name: %s", cfg.Database.DBName)
		log.Printf("Redis Addr: %s (mode=%s)", cfg.Redis.Addr, cfg.Redis.Mode)
		log.Printf("JWT Signing Key Set: %t", cfg.JWT.SigningKey != "")
		log.Printf("Email Enabled: %t", cfg.Email.Enabled)
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("----------------------------")
	}

	// Validate required settings.
	if cfg.JWT.SigningKey == "" {
		return nil, fmt.Errorf("JWT signing key is required (check JWT_SIGNING_KEY env var)")
	}
	if cfg.Database.Host == "" || cfg.Database.DBName == "" || cfg.Database.User == "" {
		return nil, fmt.Errorf("database configuration (host, dbname, user) is incomplete (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	if os.Getenv("GIN_MODE") == "release" {
		if cfg.Database.Password == "" {
			return nil, fmt.Errorf("database password is required in release mode (check DATABASE_PASSWORD env var)")
		}
		if cfg.Email.Enabled && cfg.Email.APIKey == "" {
			return nil, fmt.Errorf("email is enabled but RESEND_API_KEY is not set")
		}
	}

	return &cfg, nil
}
