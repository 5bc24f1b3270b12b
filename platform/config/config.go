// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
	GetWebhookRateLimit() float64
	GetWebhookToken() string
}

// SchedulerConfig provides Redis/asynq settings for delayed tasks.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// WhatsAppConfig provides settings for the GoWA WhatsApp gateway.
type WhatsAppConfig interface {
	GetWhatsAppURL() string
	GetWhatsAppKey() string
	GetWhatsAppDeviceID() string
}

// PhoneConfig provides the default region used to parse local numbers.
type PhoneConfig interface {
	GetPhoneDefaultRegion() string
}

// AIConfig provides settings for the LLM collaborators.
type AIConfig interface {
	GetMoonshotAPIKey() string
	GetMoonshotModel() string
	IsAIEnabled() bool
}

// CacheConfig provides settings for the scoring template cache.
type CacheConfig interface {
	GetRedisURL() string
	GetTemplateCacheTTL() time.Duration
	GetScoringTemplatesFile() string
}

// QualificationConfig provides the contact policy and collaborator timeouts.
type QualificationConfig interface {
	GetContactMaxAttempts() int
	GetContactRetryInterval() time.Duration
	GetReactivationAfter() time.Duration
	GetReactivationSweepInterval() time.Duration
	GetExtractionTimeout() time.Duration
	GetReplyTimeout() time.Duration
	GetSummaryTimeout() time.Duration
	GetSendTimeout() time.Duration
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                       string
	HTTPAddr                  string
	DatabaseURL               string
	JWTAccessSecret           string
	CORSAllowAll              bool
	CORSOrigins               []string
	CORSAllowCreds            bool
	WebhookRateLimit          float64
	WebhookToken              string
	RedisURL                  string
	RedisTLSInsecure          bool
	AsynqQueueName            string
	AsynqConcurrency          int
	WhatsAppURL               string
	WhatsAppKey               string
	WhatsAppDeviceID          string
	PhoneDefaultRegion        string
	MoonshotAPIKey            string
	MoonshotModel             string
	TemplateCacheTTL          time.Duration
	ScoringTemplatesFile      string
	ContactMaxAttempts        int
	ContactRetryInterval      time.Duration
	ReactivationAfter         time.Duration
	ReactivationSweepInterval time.Duration
	ExtractionTimeout         time.Duration
	ReplyTimeout              time.Duration
	SummaryTimeout            time.Duration
	SendTimeout               time.Duration
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string          { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool        { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string     { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool      { return c.CORSAllowCreds }
func (c *Config) GetWebhookRateLimit() float64 { return c.WebhookRateLimit }
func (c *Config) GetWebhookToken() string      { return c.WebhookToken }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// WhatsAppConfig implementation
func (c *Config) GetWhatsAppURL() string      { return c.WhatsAppURL }
func (c *Config) GetWhatsAppKey() string      { return c.WhatsAppKey }
func (c *Config) GetWhatsAppDeviceID() string { return c.WhatsAppDeviceID }

// PhoneConfig implementation
func (c *Config) GetPhoneDefaultRegion() string { return c.PhoneDefaultRegion }

// AIConfig implementation
func (c *Config) GetMoonshotAPIKey() string { return c.MoonshotAPIKey }
func (c *Config) GetMoonshotModel() string  { return c.MoonshotModel }
func (c *Config) IsAIEnabled() bool         { return c.MoonshotAPIKey != "" }

// CacheConfig implementation
func (c *Config) GetTemplateCacheTTL() time.Duration { return c.TemplateCacheTTL }
func (c *Config) GetScoringTemplatesFile() string    { return c.ScoringTemplatesFile }

// QualificationConfig implementation
func (c *Config) GetContactMaxAttempts() int                  { return c.ContactMaxAttempts }
func (c *Config) GetContactRetryInterval() time.Duration      { return c.ContactRetryInterval }
func (c *Config) GetReactivationAfter() time.Duration         { return c.ReactivationAfter }
func (c *Config) GetReactivationSweepInterval() time.Duration { return c.ReactivationSweepInterval }
func (c *Config) GetExtractionTimeout() time.Duration         { return c.ExtractionTimeout }
func (c *Config) GetReplyTimeout() time.Duration              { return c.ReplyTimeout }
func (c *Config) GetSummaryTimeout() time.Duration            { return c.SummaryTimeout }
func (c *Config) GetSendTimeout() time.Duration               { return c.SendTimeout }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                       getEnv("APP_ENV", "development"),
		HTTPAddr:                  getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:               getEnv("DATABASE_URL", ""),
		JWTAccessSecret:           getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:              corsAllowAll,
		CORSOrigins:               corsOrigins,
		CORSAllowCreds:            strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		WebhookRateLimit:          mustFloat(getEnv("WEBHOOK_RATE_LIMIT", "20")),
		WebhookToken:              getEnv("WEBHOOK_TOKEN", ""),
		RedisURL:                  getEnv("REDIS_URL", ""),
		RedisTLSInsecure:          strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:            getEnv("ASYNQ_QUEUE", "qualification"),
		AsynqConcurrency:          mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		WhatsAppURL:               getEnv("WHATSAPP_URL", ""),
		WhatsAppKey:               getEnv("WHATSAPP_KEY", ""),
		WhatsAppDeviceID:          getEnv("WHATSAPP_DEVICE_ID", ""),
		PhoneDefaultRegion:        getEnv("PHONE_DEFAULT_REGION", "AR"),
		MoonshotAPIKey:            getEnv("MOONSHOT_API_KEY", ""),
		MoonshotModel:             getEnv("MOONSHOT_MODEL", "kimi-k2.5"),
		TemplateCacheTTL:          mustDuration(getEnv("TEMPLATE_CACHE_TTL", "5m")),
		ScoringTemplatesFile:      getEnv("SCORING_TEMPLATES_FILE", ""),
		ContactMaxAttempts:        mustInt(getEnv("CONTACT_MAX_ATTEMPTS", "3")),
		ContactRetryInterval:      mustDuration(getEnv("CONTACT_RETRY_INTERVAL", "24h")),
		ReactivationAfter:         mustDuration(getEnv("REACTIVATION_AFTER", "168h")),
		ReactivationSweepInterval: mustDuration(getEnv("REACTIVATION_SWEEP_INTERVAL", "1h")),
		ExtractionTimeout:         mustDuration(getEnv("EXTRACTION_TIMEOUT", "20s")),
		ReplyTimeout:              mustDuration(getEnv("REPLY_TIMEOUT", "20s")),
		SummaryTimeout:            mustDuration(getEnv("SUMMARY_TIMEOUT", "15s")),
		SendTimeout:               mustDuration(getEnv("SEND_TIMEOUT", "10s")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.ContactMaxAttempts < 1 {
		return nil, fmt.Errorf("CONTACT_MAX_ATTEMPTS must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
