package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Payment  PaymentConfig
	Checkout CheckoutConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

// DSN builds the postgres connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.Schema)
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

type JWTConfig struct {
	Secret string
}

// PaymentConfig configures the payment gateway verification client.
// An empty SecretKey disables verification: the reference supplied by the
// payment popup is then treated as an opaque string.
type PaymentConfig struct {
	BaseURL    string
	SecretKey  string
	MaxRetries int
	RetryWait  time.Duration
	Timeout    time.Duration
}

// CheckoutConfig tunes the order write path and the fulfillment sweep that
// reconciles stock decrements left pending by mid-checkout failures.
type CheckoutConfig struct {
	SweepInterval     time.Duration
	SweepGrace        time.Duration
	SweepBatchSize    int
	RateLimitPerMin   int
	RateLimitDisabled bool
}

func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("PAYMENT_BASE_URL", "https://api.paystack.co")
	viper.SetDefault("PAYMENT_MAX_RETRIES", 3)
	viper.SetDefault("PAYMENT_RETRY_WAIT_MS", 500)
	viper.SetDefault("PAYMENT_TIMEOUT_MS", 10000)
	viper.SetDefault("SWEEP_INTERVAL_SECONDS", 60)
	viper.SetDefault("SWEEP_GRACE_SECONDS", 120)
	viper.SetDefault("SWEEP_BATCH_SIZE", 100)
	viper.SetDefault("CHECKOUT_RATE_LIMIT_PER_MIN", 30)
	viper.SetDefault("CHECKOUT_RATE_LIMIT_DISABLED", false)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
			Env:  viper.GetString("SERVER_ENV"),
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
			Secret: viper.GetString("JWT_SECRET"),
		},
		Payment: PaymentConfig{
			BaseURL:    viper.GetString("PAYMENT_BASE_URL"),
			SecretKey:  viper.GetString("PAYMENT_SECRET_KEY"),
			MaxRetries: viper.GetInt("PAYMENT_MAX_RETRIES"),
			RetryWait:  time.Duration(viper.GetInt("PAYMENT_RETRY_WAIT_MS")) * time.Millisecond,
			Timeout:    time.Duration(viper.GetInt("PAYMENT_TIMEOUT_MS")) * time.Millisecond,
		},
		Checkout: CheckoutConfig{
			SweepInterval:     time.Duration(viper.GetInt("SWEEP_INTERVAL_SECONDS")) * time.Second,
			SweepGrace:        time.Duration(viper.GetInt("SWEEP_GRACE_SECONDS")) * time.Second,
			SweepBatchSize:    viper.GetInt("SWEEP_BATCH_SIZE"),
			RateLimitPerMin:   viper.GetInt("CHECKOUT_RATE_LIMIT_PER_MIN"),
			RateLimitDisabled: viper.GetBool("CHECKOUT_RATE_LIMIT_DISABLED"),
		},
	}
}
