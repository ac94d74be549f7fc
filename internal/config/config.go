// Package config provides configuration management for the life-event
// planning service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Logging      LoggingConfig
	Template     TemplateConfig
	Email        EmailConfig
	Notification NotificationConfig
	Trigger      TriggerConfig
	Tracing      TracingConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host               string
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	ShutdownTimeout    time.Duration
	AppBaseURL         string
	CORSAllowedOrigins []string
	AutoCreateSchema   bool
	MaxMultipartMemory int64
	MaxBodySize        int64
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	URL    string
	LogSQL bool
}

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level  string
	Format string // "json" or "text"
}

// TemplateConfig holds workflow template repository configuration.
type TemplateConfig struct {
	WorkflowsRoot string
	CacheRedisURL string // empty disables the cache decorator
}

// RedisConfig holds Redis connection settings for the template cache
// decorator. It is only consulted when Template.CacheRedisURL is set.
type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

// EmailConfig holds Brevo email provider configuration.
type EmailConfig struct {
	FromAddress             string
	FromName                string
	BrevoAPIKey             string
	BrevoBaseURL            string
	DryRun                  bool
	AllowedRecipientDomains []string
}

// NotificationConfig holds reminder/unsubscribe-token configuration.
type NotificationConfig struct {
	TokenSecret string
}

// TriggerConfig holds the cron schedules and batching knobs for the
// reminder pipeline's two periodic jobs.
type TriggerConfig struct {
	ScanDueSoonCron    string
	DispatchOutboxCron string
	OutboxBatchSize    int
	OutboxMaxAttempts  int
}

// TracingConfig holds OpenTelemetry tracing configuration.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
	Insecure    bool
	SampleRate  float64
}

// Load loads the configuration from environment variables.
func Load() (*Config, error) {
	godotenv.Load()
	cfg := &Config{
		Server: ServerConfig{
			Host:               getEnv("SERVER_HOST", "0.0.0.0"),
			Port:               getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:        getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:       getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout:    getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			AppBaseURL:         getEnv("APP_BASE_URL", "http://localhost:3000"),
			CORSAllowedOrigins: getEnvAsSlice("CORS_ORIGINS", []string{"*"}),
			AutoCreateSchema:   getEnvAsBool("AUTO_CREATE_SCHEMA", false),
			MaxMultipartMemory: int64(getEnvAsInt("SERVER_MAX_MULTIPART_MEMORY", 8<<20)),
			MaxBodySize:        int64(getEnvAsInt("SERVER_MAX_BODY_SIZE", 1<<20)),
		},
		Database: DatabaseConfig{
			URL:    getEnv("DATABASE_URL", ""),
			LogSQL: getEnvAsBool("LOG_SQL", false),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Template: TemplateConfig{
			WorkflowsRoot: getEnv("WORKFLOWS_ROOT", "./workflows"),
			CacheRedisURL: getEnv("TEMPLATE_CACHE_REDIS_URL", ""),
		},
		Email: EmailConfig{
			FromAddress:             getEnv("EMAIL_FROM_ADDRESS", "noreply@example.com"),
			FromName:                getEnv("EMAIL_FROM_NAME", "Life Event"),
			BrevoAPIKey:             getEnv("BREVO_API_KEY", ""),
			BrevoBaseURL:            getEnv("BREVO_BASE_URL", "https://api.brevo.com/v3"),
			DryRun:                  getEnvAsBool("EMAIL_DRY_RUN", true),
			AllowedRecipientDomains: getEnvAsSlice("EMAIL_ALLOWED_RECIPIENT_DOMAINS", []string{}),
		},
		Notification: NotificationConfig{
			TokenSecret: getEnv("NOTIFICATION_TOKEN_SECRET", ""),
		},
		Trigger: TriggerConfig{
			ScanDueSoonCron:    getEnv("SCAN_DUE_SOON_CRON", "0 */5 * * * *"),
			DispatchOutboxCron: getEnv("DISPATCH_OUTBOX_CRON", "0 * * * * *"),
			OutboxBatchSize:    getEnvAsInt("OUTBOX_BATCH_SIZE", 100),
			OutboxMaxAttempts:  getEnvAsInt("OUTBOX_MAX_ATTEMPTS", 5),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "life-event-planner"),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			Insecure:    getEnvAsBool("OTEL_EXPORTER_OTLP_INSECURE", true),
			SampleRate:  getEnvAsFloat("OTEL_SAMPLE_RATE", 1.0),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Notification.TokenSecret == "" {
		return fmt.Errorf("NOTIFICATION_TOKEN_SECRET is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Logging.Format)
	}

	if c.Trigger.OutboxBatchSize < 1 {
		return fmt.Errorf("OUTBOX_BATCH_SIZE must be at least 1")
	}

	if c.Trigger.OutboxMaxAttempts < 1 {
		return fmt.Errorf("OUTBOX_MAX_ATTEMPTS must be at least 1")
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0 and 1")
	}

	return nil
}

// Helper functions for environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var result []string
	current := ""
	for _, ch := range valueStr {
		if ch == ',' {
			if current != "" {
				result = append(result, current)
				current = ""
			}
		} else {
			current += string(ch)
		}
	}

	if current != "" {
		result = append(result, current)
	}

	return result
}
