package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		// Unexported
		if !fieldVal.CanSet() {
			continue
		}

		// Nested config sections carry their own env tags
		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		if envName == "" {
			continue
		}

		value, err := lookupEnv(field.Tag)
		if err != nil {
			return err
		}
		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// lookupEnv resolves a field's raw value: env, then envAlt, then default.
func lookupEnv(tag reflect.StructTag) (string, error) {
	envName := tag.Get("env")

	value := os.Getenv(envName)
	if alt := tag.Get("envAlt"); value == "" && alt != "" {
		value = os.Getenv(alt)
	}
	if value != "" {
		return value, nil
	}

	if tag.Get("required") == "true" {
		return "", fmt.Errorf("required environment variable %s is not set", envName)
	}
	return tag.Get("default"), nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// Durations are int64 underneath but use Go duration syntax ("35m")
		if field.Type() == durationType {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.SetInt(int64(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		if field.OverflowInt(i) {
			return fmt.Errorf("integer %d out of range for %s", i, field.Type())
		}
		field.SetInt(i)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		// Comma separated; blanks dropped so "a,,b" and "a, b" agree
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				result = append(result, p)
			}
		}
		field.Set(reflect.ValueOf(result))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Mongo
	if c.Mongo.URI == "" {
		errs = append(errs, "MONGO_URI is required")
	} else if !strings.HasPrefix(c.Mongo.URI, "mongodb://") && !strings.HasPrefix(c.Mongo.URI, "mongodb+srv://") {
		errs = append(errs, "MONGO_URI must start with mongodb:// or mongodb+srv://")
	}
	if c.Mongo.SourceDB == "" || c.Mongo.SourceCollection == "" {
		errs = append(errs, "SOURCE_DB and SOURCE_COLLECTION are required")
	}
	if c.Mongo.TargetDB == "" || c.Mongo.TargetCollection == "" {
		errs = append(errs, "TARGET_DB and TARGET_COLLECTION are required")
	}
	if c.Mongo.SourceDB == c.Mongo.TargetDB && c.Mongo.SourceCollection == c.Mongo.TargetCollection {
		errs = append(errs, "target collection must differ from source collection")
	}
	if c.Mongo.ServerSelectionTimeout <= 0 {
		errs = append(errs, "MONGO_SERVER_SELECTION_TIMEOUT must be positive")
	}
	if c.Mongo.ConnectTimeout <= 0 {
		errs = append(errs, "MONGO_CONNECT_TIMEOUT must be positive")
	}

	// Pipeline
	if c.Pipeline.Dataset == "" {
		errs = append(errs, "DATASET is required")
	}
	if c.Pipeline.DataDir == "" {
		errs = append(errs, "DATA_DIR is required")
	}
	if c.Pipeline.StepRetries < 0 {
		errs = append(errs, "PIPELINE_STEP_RETRIES must be non-negative")
	}
	if c.Pipeline.RetryDelay < 0 {
		errs = append(errs, "PIPELINE_RETRY_DELAY must be non-negative")
	}
	if c.Pipeline.Timeout <= 0 {
		errs = append(errs, "PIPELINE_TIMEOUT must be positive")
	}

	// Load
	if c.Load.BatchSize <= 0 {
		errs = append(errs, "LOAD_BATCH_SIZE must be positive")
	}

	// Email
	if c.Email.Enabled {
		if c.Email.Host == "" {
			errs = append(errs, "SMTP_HOST is required when EMAIL_ENABLED is true")
		}
		if c.Email.Port <= 0 || c.Email.Port > 65535 {
			errs = append(errs, fmt.Sprintf("SMTP_PORT (%d) must be 1-65535", c.Email.Port))
		}
		if c.Email.From == "" {
			errs = append(errs, "EMAIL_FROM is required when EMAIL_ENABLED is true")
		}
		if len(c.Email.To) == 0 {
			errs = append(errs, "EMAIL_TO is required when EMAIL_ENABLED is true")
		}
		validPolicies := map[string]bool{"mandatory": true, "opportunistic": true, "none": true}
		if !validPolicies[strings.ToLower(c.Email.TLSPolicy)] {
			errs = append(errs, fmt.Sprintf("SMTP_TLS_POLICY (%q) must be one of: mandatory, opportunistic, none", c.Email.TLSPolicy))
		}
		if c.Email.Timeout <= 0 {
			errs = append(errs, "SMTP_TIMEOUT must be positive")
		}
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, "SERVER_REQUEST_TIMEOUT must be positive")
	}
	if c.Server.RequireAPIKey && len(c.Server.APIKeys) == 0 {
		errs = append(errs, "API_KEYS is required when REQUIRE_API_KEY is true")
	}

	// Logging
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}
	if c.Logging.File != "" && c.Logging.MaxSizeMB <= 0 {
		errs = append(errs, "LOG_MAX_SIZE_MB must be positive when LOG_FILE is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// Connection strings are redacted and the SMTP password is never printed.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Mongo: {URI: %s, Source: %s.%s, Target: %s.%s}, ",
		maskURI(c.Mongo.URI), c.Mongo.SourceDB, c.Mongo.SourceCollection,
		c.Mongo.TargetDB, c.Mongo.TargetCollection)
	fmt.Fprintf(&b, "Pipeline: {Dataset: %q, DataDir: %q, StepRetries: %d}, ",
		c.Pipeline.Dataset, c.Pipeline.DataDir, c.Pipeline.StepRetries)
	fmt.Fprintf(&b, "Email: {Enabled: %v, Host: %q, Port: %d, Password: [MASKED]}, ",
		c.Email.Enabled, c.Email.Host, c.Email.Port)
	fmt.Fprintf(&b, "History: {DSN: %s}, ", maskURI(c.History.DSN))
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
