package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Email    EmailConfig
	UPI      UPIConfig
	Tickets  TicketConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	DSN string
}

type RedisConfig struct {
	Addr           string
	ConfirmLockTTL time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Enabled bool
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	From         string
	SendTimeout  time.Duration
}

// UPIConfig identifies the payee of the deep links handed to buyers.
// Externalized so the handle never lives in code.
type UPIConfig struct {
	PayeeHandle string
	PayeeName   string
	Currency    string
}

type TicketConfig struct {
	Dir      string
	FontPath string
	QRSecret string
	// Cleanup deletes the stored artifact after a confirmed send.
	Cleanup bool
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8086"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			DSN: getEnv("POSTGRES_DSN", ""),
		},
		Redis: RedisConfig{
			Addr:           getEnv("REDIS_ADDR", "localhost:6379"),
			ConfirmLockTTL: time.Duration(getEnvInt("CONFIRM_LOCK_TTL_SECONDS", 120)) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: []string{getEnv("KAFKA_ADDR", "localhost:9092")},
			Enabled: getEnvBool("KAFKA_ENABLED", true),
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			SMTPPort:     getEnvInt("SMTP_PORT", 587),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			From:         getEnv("MAIL_FROM", "DripSync <tickets@dripsync.in>"),
			SendTimeout:  time.Duration(getEnvInt("MAIL_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		UPI: UPIConfig{
			PayeeHandle: getEnv("UPI_PAYEE_HANDLE", "dripsync@okaxis"),
			PayeeName:   getEnv("UPI_PAYEE_NAME", "DripSync Events"),
			Currency:    getEnv("UPI_CURRENCY", "INR"),
		},
		Tickets: TicketConfig{
			Dir:      getEnv("TICKET_DIR", "./tmp/tickets"),
			FontPath: getEnv("TICKET_FONT_PATH", "./fonts/DejaVuSans.ttf"),
			QRSecret: getEnv("QR_SECRET_KEY", "dev-only-secret"),
			Cleanup:  getEnvBool("TICKET_CLEANUP", false),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
