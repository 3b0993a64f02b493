package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	HTTPAddr    string
	DBDSN       string

	// Queue broker. RedisURL wins when set, otherwise host/port/password.
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string

	// Google Calendar service account.
	GoogleCredsBase64        string
	GoogleServiceAccountJSON string
	GoogleCalendarID         string
	GoogleCalendarTimezone   string

	// Mail transport. SendGrid is preferred when the key is present.
	SendgridAPIKey string
	SMTPHost       string
	SMTPPort       int
	SMTPUser       string
	SMTPPass       string
	FromEmail      string

	// Secretbox key for guest contact fields, base64 of 32 bytes.
	FieldEncryptionKey string

	// Optional admin alerting on terminally failed jobs.
	TelegramToken string
	AdminChatID   int64
}

// Load reads configuration from the environment, loading .env first if present.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	cfg := &Config{
		Environment: getEnv("ENV", "development"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		DBDSN:       os.Getenv("DB_DSN"),

		RedisURL:      os.Getenv("REDIS_URL"),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		GoogleCredsBase64:        os.Getenv("GOOGLE_CREDS_BASE64"),
		GoogleServiceAccountJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		GoogleCalendarID:         os.Getenv("GOOGLE_CALENDAR_ID"),
		GoogleCalendarTimezone:   getEnv("GOOGLE_CALENDAR_TIMEZONE", "Europe/London"),

		SendgridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		SMTPHost:       os.Getenv("SMTP_HOST"),
		SMTPUser:       os.Getenv("SMTP_USER"),
		SMTPPass:       os.Getenv("SMTP_PASS"),
		FromEmail:      getEnv("FROM_EMAIL", "noreply@localhost"),

		FieldEncryptionKey: os.Getenv("FIELD_ENCRYPTION_KEY"),

		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
	}

	if port := os.Getenv("SMTP_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("SMTP_PORT must be a number: %w", err)
		}
		cfg.SMTPPort = p
	} else {
		cfg.SMTPPort = 587
	}

	if chatID := os.Getenv("ADMIN_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ADMIN_CHAT_ID must be a number: %w", err)
		}
		cfg.AdminChatID = id
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}

	return cfg, nil
}

// RedisAddr returns the host:port pair for the broker connection.
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
