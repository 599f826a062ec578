// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	Port           string `mapstructure:"PORT"`
	DBHost         string `mapstructure:"DB_HOST"`
	DBPort         string `mapstructure:"DB_PORT"`
	DBUser         string `mapstructure:"DB_USER"`
	DBPassword     string `mapstructure:"DB_PASSWORD"`
	DBName         string `mapstructure:"DB_NAME"`
	DBSSLMode      string `mapstructure:"DB_SSLMODE"`
	RedisURL       string `mapstructure:"REDIS_URL"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	Env            string `mapstructure:"APP_ENV"`

	// Twitter application (consumer) credentials. These sign the
	// request-token call and every resource call; they are never sent to
	// clients.
	TwitterAPIKey    string `mapstructure:"TWITTER_API_KEY"`
	TwitterAPISecret string `mapstructure:"TWITTER_API_SECRET"`

	// Upstream base URLs, overridable so tests can point at a local mock.
	TwitterAuthBaseURL string `mapstructure:"TWITTER_AUTH_BASE_URL"`
	TwitterAPIBaseURL  string `mapstructure:"TWITTER_API_BASE_URL"`

	// Bound on every outbound Twitter call, in seconds.
	TwitterTimeoutSeconds int `mapstructure:"TWITTER_TIMEOUT_SECONDS"`
}

// TwitterTimeout returns the outbound request timeout as a duration.
func (c *Config) TwitterTimeout() time.Duration {
	if c.TwitterTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TwitterTimeoutSeconds) * time.Second
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if errors.As(err, &notFoundErr) {
			log.Println("Config file not found; using environment variables and defaults")
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Set default values for development
	viper.SetDefault("PORT", "8290")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "twitter_client")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("JWT_SECRET", "your-secret-key-change-in-production")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("TWITTER_API_KEY", "")
	viper.SetDefault("TWITTER_API_SECRET", "")
	viper.SetDefault("TWITTER_AUTH_BASE_URL", "https://api.twitter.com")
	viper.SetDefault("TWITTER_API_BASE_URL", "https://api.twitter.com/1.1")
	viper.SetDefault("TWITTER_TIMEOUT_SECONDS", 30)

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.TwitterAuthBaseURL == "" || c.TwitterAPIBaseURL == "" {
		return errors.New("TWITTER_AUTH_BASE_URL and TWITTER_API_BASE_URL are required")
	}

	isProduction := c.Env == "production" || c.Env == "prod"

	if isProduction {
		if c.JWTSecret == "your-secret-key-change-in-production" {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.TwitterAPIKey == "" || c.TwitterAPISecret == "" {
			return errors.New("TWITTER_API_KEY and TWITTER_API_SECRET are required in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			log.Println("WARNING: DB_SSLMODE is 'disable' in production. It is highly recommended to use SSL for database connections.")
		}
	} else {
		if len(c.JWTSecret) < 32 {
			log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
		}
	}

	return nil
}
