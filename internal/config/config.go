// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port                   string `mapstructure:"PORT"`
	Env                    string `mapstructure:"APP_ENV"`
	StoreDriver            string `mapstructure:"STORE_DRIVER"`
	SQLiteName             string `mapstructure:"SQLITE_NAME"`
	RedisURL               string `mapstructure:"REDIS_URL"`
	AllowedOrigins         string `mapstructure:"ALLOWED_ORIGINS"`
	LogLevel               string `mapstructure:"LOG_LEVEL"`
	LogFormat              string `mapstructure:"LOG_FORMAT"`
	BcryptCost             int    `mapstructure:"BCRYPT_COST"`
	MaxTweetLength         int    `mapstructure:"MAX_TWEET_LENGTH"`
	ProfileCacheTTLSeconds int    `mapstructure:"PROFILE_CACHE_TTL_SECONDS"`
	TracingEnabled         bool   `mapstructure:"TRACING_ENABLED"`
	TracingExporter        string `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint           string `mapstructure:"OTLP_ENDPOINT"`
	SeedUsers              int    `mapstructure:"SEED_USERS"`
	SeedTweetsPerUser      int    `mapstructure:"SEED_TWEETS_PER_USER"`
	SeedFollowsPerUser     int    `mapstructure:"SEED_FOLLOWS_PER_USER"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	v.AddConfigPath("../..")
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()

	// The base config file is optional.
	_ = v.ReadInConfig()

	env := v.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		v.SetConfigName("config." + env)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("STORE_DRIVER", StoreMemory)
	v.SetDefault("SQLITE_NAME", "minitweet")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("BCRYPT_COST", bcrypt.DefaultCost)
	v.SetDefault("MAX_TWEET_LENGTH", 300)
	v.SetDefault("PROFILE_CACHE_TTL_SECONDS", 300)
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_EXPORTER", "stdout")
	v.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	v.SetDefault("SEED_USERS", 0)
	v.SetDefault("SEED_TWEETS_PER_USER", 5)
	v.SetDefault("SEED_FOLLOWS_PER_USER", 3)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.StoreDriver = strings.ToLower(strings.TrimSpace(config.StoreDriver))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate ensures that required configuration values are present and usable.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	switch c.StoreDriver {
	case StoreMemory, StoreSQLite:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreMemory, StoreSQLite, c.StoreDriver)
	}
	if c.StoreDriver == StoreSQLite && c.SQLiteName == "" {
		return errors.New("SQLITE_NAME is required for the sqlite store")
	}
	if c.MaxTweetLength <= 0 {
		return errors.New("MAX_TWEET_LENGTH must be positive")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.ProfileCacheTTLSeconds < 0 {
		return errors.New("PROFILE_CACHE_TTL_SECONDS cannot be negative")
	}
	if c.SeedUsers < 0 || c.SeedTweetsPerUser < 0 || c.SeedFollowsPerUser < 0 {
		return errors.New("seed counts cannot be negative")
	}

	if c.Env == "production" || c.Env == "prod" {
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
		if c.SeedUsers > 0 {
			log.Println("WARNING: SEED_USERS is set in production; demo data will be created.")
		}
		if c.RedisURL == "" {
			log.Println("WARNING: REDIS_URL is empty in production; profile cache and notifications are disabled.")
		}
	}

	return nil
}
