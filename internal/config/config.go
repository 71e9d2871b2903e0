// Package config provides centralized configuration management for the ETL job.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net/url"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Mongo    MongoConfig
	Pipeline PipelineConfig
	Load     LoadConfig
	Email    EmailConfig
	History  HistoryConfig
	Server   ServerConfig
	Logging  LoggingConfig
}

// MongoConfig holds source and target collection settings.
// Source and target share one deployment.
type MongoConfig struct {
	// URI is the MongoDB connection string
	URI string `env:"MONGO_URI" envAlt:"MONGODB_URI" default:"mongodb://localhost:27017/"`

	SourceDB         string `env:"SOURCE_DB" default:"local"`
	SourceCollection string `env:"SOURCE_COLLECTION" default:"Dataset"`
	TargetDB         string `env:"TARGET_DB" default:"cleaned"`
	TargetCollection string `env:"TARGET_COLLECTION" default:"amazon_clean"`

	// ServerSelectionTimeout bounds how long the connectivity check waits (default: 3s)
	ServerSelectionTimeout time.Duration `env:"MONGO_SERVER_SELECTION_TIMEOUT" default:"3s"`

	// ConnectTimeout bounds establishing a single connection (default: 10s)
	ConnectTimeout time.Duration `env:"MONGO_CONNECT_TIMEOUT" default:"10s"`
}

// PipelineConfig holds step execution settings.
type PipelineConfig struct {
	// Dataset selects the registered cleaning profile (default: amazon_sales)
	Dataset string `env:"DATASET" default:"amazon_sales"`

	// DataDir holds the raw and cleaned staging CSV files (default: ./data)
	DataDir string `env:"DATA_DIR" default:"./data"`

	// RulesFile is an optional YAML file defining or overriding datasets
	RulesFile string `env:"RULES_FILE"`

	// StepRetries is how many times a failed step is retried (default: 1)
	StepRetries int `env:"PIPELINE_STEP_RETRIES" default:"1"`

	// RetryDelay is the wait between attempts of a failed step (default: 1m)
	RetryDelay time.Duration `env:"PIPELINE_RETRY_DELAY" default:"1m"`

	// Timeout bounds a whole run (default: 30m)
	Timeout time.Duration `env:"PIPELINE_TIMEOUT" default:"30m"`

	// QualityMaxMissing fails the quality check when the cleaned file holds
	// more missing cells than this. Negative disables the gate (default: -1)
	QualityMaxMissing int `env:"QUALITY_MAX_MISSING" default:"-1"`
}

// LoadConfig holds target load settings.
type LoadConfig struct {
	// BatchSize is the number of documents per InsertMany call (default: 1000)
	BatchSize int `env:"LOAD_BATCH_SIZE" default:"1000"`
}

// EmailConfig holds SMTP notification settings.
type EmailConfig struct {
	// Enabled controls whether the notify step sends mail (default: true)
	Enabled bool `env:"EMAIL_ENABLED" default:"true"`

	Host string `env:"SMTP_HOST" default:"smtp.gmail.com"`
	Port int    `env:"SMTP_PORT" default:"587"`

	// Username defaults to From when unset
	Username string `env:"SMTP_USERNAME"`

	// Password is the SMTP secret; GMAIL_APP_PASSWORD is accepted for compatibility
	Password string `env:"SMTP_PASSWORD" envAlt:"GMAIL_APP_PASSWORD"`

	From string   `env:"EMAIL_FROM"`
	To   []string `env:"EMAIL_TO"`

	Subject string `env:"EMAIL_SUBJECT" default:"ETL pipeline completed"`

	// TLSPolicy is one of: mandatory, opportunistic, none (default: mandatory)
	TLSPolicy string `env:"SMTP_TLS_POLICY" default:"mandatory"`

	Timeout time.Duration `env:"SMTP_TIMEOUT" default:"30s"`

	// NotifyOnFailure also sends a message when a run fails (default: false)
	NotifyOnFailure bool `env:"EMAIL_ON_FAILURE" default:"false"`
}

// HistoryConfig holds run history storage settings.
type HistoryConfig struct {
	// DSN selects the store: empty disables history, postgres:// uses
	// PostgreSQL, anything else is a SQLite file path.
	DSN string `env:"HISTORY_DSN"`
}

// ServerConfig holds HTTP settings for the serve command.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" default:"8080"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout bounds a request; POST /api/runs waits for the whole run
	// so this must exceed PIPELINE_TIMEOUT (default: 35m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"35m"`

	// RequireAPIKey enables X-API-Key validation on /api routes (default: false)
	RequireAPIKey bool     `env:"REQUIRE_API_KEY" default:"false"`
	APIKeys       []string `env:"API_KEYS"`

	// TrustedProxies lists CIDRs whose X-Real-IP / X-Forwarded-For headers
	// are honored
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`

	// File enables a rotating log file in addition to stdout
	File       string `env:"LOG_FILE"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" default:"50"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" default:"5"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" default:"30"`
	Compress   bool   `env:"LOG_COMPRESS" default:"true"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// SMTPUsername returns the login name, falling back to the sender address.
func (c *EmailConfig) SMTPUsername() string {
	if c.Username != "" {
		return c.Username
	}
	return c.From
}

// maskURI strips credentials from a connection string for logging.
func maskURI(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "[MASKED]"
	}
	return u.Redacted()
}
