package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL        string   `yaml:"database_url"`
	Port               string   `yaml:"port"`
	GoEnv              string   `yaml:"go_env"`
	LogLevel           string   `yaml:"log_level"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`

	JWTSecret       string        `yaml:"jwt_secret"`
	JWTIssuer       string        `yaml:"jwt_issuer"`
	JWTAudience     string        `yaml:"jwt_audience"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`

	StripeSecretKey      string `yaml:"stripe_secret_key"`
	StripePublishableKey string `yaml:"stripe_publishable_key"`
	StripeWebhookSecret  string `yaml:"stripe_webhook_secret"`
	PaymentCurrency      string `yaml:"payment_currency"`
	CheckoutSuccessURL   string `yaml:"checkout_success_url"`
	CheckoutCancelURL    string `yaml:"checkout_cancel_url"`

	SendGridAPIKey   string `yaml:"sendgrid_api_key"`
	EmailFrom        string `yaml:"email_from"`
	EmailFromName    string `yaml:"email_from_name"`
	PasswordResetURL string `yaml:"password_reset_url"`

	KafkaBrokers      []string `yaml:"kafka_brokers"`
	KafkaBookingTopic string   `yaml:"kafka_booking_topic"`

	AWSRegion          string `yaml:"aws_region"`
	AWSS3Bucket        string `yaml:"aws_s3_bucket"`
	AWSAccessKeyID     string `yaml:"aws_access_key_id"`
	AWSSecretAccessKey string `yaml:"aws_secret_access_key"`
	UploadDir          string `yaml:"upload_dir"`

	OverdueReminderCron string        `yaml:"overdue_reminder_cron"`
	ExpireUnpaidCron    string        `yaml:"expire_unpaid_cron"`
	UnpaidBookingTTL    time.Duration `yaml:"unpaid_booking_ttl"`
}

var (
	current   *Config
	currentMu sync.RWMutex
)

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV.
// When CONFIG_FILE points to a YAML file its values are used as defaults
// and environment variables take precedence over them.
func Load() (*Config, error) {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	envFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envFile); err != nil {
		if err := godotenv.Load(); err != nil {
			// Hosted environments set variables directly
			log.Printf("No .env file found, using system environment variables")
		}
	} else {
		log.Printf("Loaded configuration from %s", envFile)
	}

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}
	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	SetConfig(cfg)
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Port:                "8080",
		GoEnv:               "development",
		LogLevel:            "info",
		CORSAllowedOrigins:  []string{"*"},
		JWTIssuer:           "car-rental-api",
		JWTAudience:         "car-rental-clients",
		AccessTokenTTL:      15 * time.Minute,
		RefreshTokenTTL:     7 * 24 * time.Hour,
		PaymentCurrency:     "inr",
		CheckoutSuccessURL:  "http://localhost:8080/payments/success?session_id={CHECKOUT_SESSION_ID}",
		CheckoutCancelURL:   "http://localhost:8080/payments/cancel",
		EmailFrom:           "no-reply@carrental.local",
		EmailFromName:       "Car Rental",
		PasswordResetURL:    "http://localhost:3000/reset-password",
		KafkaBookingTopic:   "booking-events",
		AWSRegion:           "us-east-1",
		UploadDir:           "./uploads",
		OverdueReminderCron: "0 0 9 * * *",
		ExpireUnpaidCron:    "0 */15 * * * *",
		UnpaidBookingTTL:    time.Hour,
	}
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) overrideWithEnv() {
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.Port = getEnv("PORT", c.Port)
	c.GoEnv = getEnv("GO_ENV", c.GoEnv)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.CORSAllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", c.CORSAllowedOrigins)

	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTIssuer = getEnv("JWT_ISSUER", c.JWTIssuer)
	c.JWTAudience = getEnv("JWT_AUDIENCE", c.JWTAudience)
	c.AccessTokenTTL = getEnvDuration("ACCESS_TOKEN_TTL", c.AccessTokenTTL)
	c.RefreshTokenTTL = getEnvDuration("REFRESH_TOKEN_TTL", c.RefreshTokenTTL)

	c.StripeSecretKey = getEnv("STRIPE_SECRET_KEY", c.StripeSecretKey)
	c.StripePublishableKey = getEnv("STRIPE_PUBLISHABLE_KEY", c.StripePublishableKey)
	c.StripeWebhookSecret = getEnv("STRIPE_WEBHOOK_SECRET", c.StripeWebhookSecret)
	c.PaymentCurrency = getEnv("PAYMENT_CURRENCY", c.PaymentCurrency)
	c.CheckoutSuccessURL = getEnv("CHECKOUT_SUCCESS_URL", c.CheckoutSuccessURL)
	c.CheckoutCancelURL = getEnv("CHECKOUT_CANCEL_URL", c.CheckoutCancelURL)

	c.SendGridAPIKey = getEnv("SENDGRID_API_KEY", c.SendGridAPIKey)
	c.EmailFrom = getEnv("EMAIL_FROM", c.EmailFrom)
	c.EmailFromName = getEnv("EMAIL_FROM_NAME", c.EmailFromName)
	c.PasswordResetURL = getEnv("PASSWORD_RESET_URL", c.PasswordResetURL)

	c.KafkaBrokers = getEnvList("KAFKA_BROKERS", c.KafkaBrokers)
	c.KafkaBookingTopic = getEnv("KAFKA_BOOKING_TOPIC", c.KafkaBookingTopic)

	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.AWSS3Bucket = getEnv("AWS_S3_BUCKET", c.AWSS3Bucket)
	c.AWSAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", c.AWSAccessKeyID)
	c.AWSSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", c.AWSSecretAccessKey)
	c.UploadDir = getEnv("UPLOAD_DIR", c.UploadDir)

	c.OverdueReminderCron = getEnv("OVERDUE_REMINDER_CRON", c.OverdueReminderCron)
	c.ExpireUnpaidCron = getEnv("EXPIRE_UNPAID_CRON", c.ExpireUnpaidCron)
	c.UnpaidBookingTTL = getEnvDuration("UNPAID_BOOKING_TTL", c.UnpaidBookingTTL)
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	if c.IsProduction() {
		if c.StripeSecretKey == "" {
			return fmt.Errorf("STRIPE_SECRET_KEY is required in production")
		}
		if c.StripeWebhookSecret == "" {
			return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required in production")
		}
	}
	return nil
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// KafkaEnabled reports whether booking events should go to a broker
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// S3Enabled reports whether car photos are stored in S3 instead of local disk
func (c *Config) S3Enabled() bool {
	return c.AWSS3Bucket != ""
}

// GetConfig returns the process-wide configuration set by Load or SetConfig
func GetConfig() *Config {
	currentMu.RLock()
	defer currentMu.RUnlock()
	return current
}

// SetConfig replaces the process-wide configuration (primarily for testing)
func SetConfig(cfg *Config) {
	currentMu.Lock()
	current = cfg
	currentMu.Unlock()
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Invalid duration for %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
