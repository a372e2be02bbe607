package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Stripe   StripeConfig
	Admin    AdminConfig
	Checkout CheckoutConfig
}

type ServerConfig struct {
	Port    string
	Env     string
	BaseURL string // public base URL used to build payment redirect links
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  int // in minutes
	RefreshExpiry int // in days
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

type AdminConfig struct {
	InviteCodes       []string
	LowStockThreshold int
}

type CheckoutConfig struct {
	PollInterval    time.Duration
	PollMaxAttempts int
}

func Load() *Config {
	// .env is optional; real deployments supply plain environment variables.
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("BASE_URL", "http://localhost:3000")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("JWT_ACCESS_EXPIRY", 15)
	viper.SetDefault("JWT_REFRESH_EXPIRY", 7)
	viper.SetDefault("LOW_STOCK_THRESHOLD", 5)
	viper.SetDefault("ORDER_POLL_INTERVAL", "3s")
	viper.SetDefault("ORDER_POLL_MAX_ATTEMPTS", 10)

	return &Config{
		Server: ServerConfig{
			Port:    viper.GetString("SERVER_PORT"),
			Env:     viper.GetString("SERVER_ENV"),
			BaseURL: strings.TrimRight(viper.GetString("BASE_URL"), "/"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:        viper.GetString("JWT_SECRET"),
			AccessExpiry:  viper.GetInt("JWT_ACCESS_EXPIRY"),
			RefreshExpiry: viper.GetInt("JWT_REFRESH_EXPIRY"),
		},
		Stripe: StripeConfig{
			SecretKey:     viper.GetString("STRIPE_SECRET_KEY"),
			WebhookSecret: viper.GetString("STRIPE_WEBHOOK_SECRET"),
		},
		Admin: AdminConfig{
			InviteCodes:       splitCodes(viper.GetString("ADMIN_INVITE_CODES")),
			LowStockThreshold: viper.GetInt("LOW_STOCK_THRESHOLD"),
		},
		Checkout: CheckoutConfig{
			PollInterval:    viper.GetDuration("ORDER_POLL_INTERVAL"),
			PollMaxAttempts: viper.GetInt("ORDER_POLL_MAX_ATTEMPTS"),
		},
	}
}

// splitCodes parses the comma-separated admin invite code list, dropping
// empty entries.
func splitCodes(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	codes := make([]string, 0, len(parts))
	for _, p := range parts {
		if code := strings.TrimSpace(p); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}
