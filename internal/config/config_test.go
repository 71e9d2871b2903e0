package config

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

// setEmailEnv satisfies the email validation rules that apply by default.
func setEmailEnv(t *testing.T) {
	t.Helper()
	t.Setenv("EMAIL_FROM", "etl@example.com")
	t.Setenv("EMAIL_TO", "ops@example.com")
}

func validConfig() *Config {
	return &Config{
		Mongo: MongoConfig{
			URI:                    "mongodb://localhost:27017/",
			SourceDB:               "local",
			SourceCollection:       "Dataset",
			TargetDB:               "cleaned",
			TargetCollection:       "amazon_clean",
			ServerSelectionTimeout: 3 * time.Second,
			ConnectTimeout:         10 * time.Second,
		},
		Pipeline: PipelineConfig{Dataset: "amazon_sales", DataDir: "./data", StepRetries: 1, RetryDelay: time.Minute, Timeout: time.Hour, QualityMaxMissing: -1},
		Load:     LoadConfig{BatchSize: 1000},
		Email:    EmailConfig{Enabled: false},
		Server:   ServerConfig{Port: 8080, ShutdownTimeout: time.Second, RequestTimeout: time.Minute},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEmailEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Mongo.URI != "mongodb://localhost:27017/" {
		t.Errorf("Mongo.URI = %q, want default", cfg.Mongo.URI)
	}
	if cfg.Mongo.SourceDB != "local" || cfg.Mongo.SourceCollection != "Dataset" {
		t.Errorf("source = %s.%s, want local.Dataset", cfg.Mongo.SourceDB, cfg.Mongo.SourceCollection)
	}
	if cfg.Mongo.ServerSelectionTimeout != 3*time.Second {
		t.Errorf("ServerSelectionTimeout = %v, want 3s", cfg.Mongo.ServerSelectionTimeout)
	}
	if cfg.Pipeline.StepRetries != 1 {
		t.Errorf("StepRetries = %d, want 1", cfg.Pipeline.StepRetries)
	}
	if cfg.Pipeline.RetryDelay != time.Minute {
		t.Errorf("RetryDelay = %v, want 1m", cfg.Pipeline.RetryDelay)
	}
	if cfg.Pipeline.QualityMaxMissing != -1 {
		t.Errorf("QualityMaxMissing = %d, want -1", cfg.Pipeline.QualityMaxMissing)
	}
	if !cfg.Email.Enabled {
		t.Error("Email.Enabled should default to true")
	}
	if cfg.Email.Port != 587 {
		t.Errorf("Email.Port = %d, want 587", cfg.Email.Port)
	}
	if cfg.Load.BatchSize != 1000 {
		t.Errorf("Load.BatchSize = %d, want 1000", cfg.Load.BatchSize)
	}
}

func TestLoad_OverrideDefaults(t *testing.T) {
	setEmailEnv(t)
	t.Setenv("SOURCE_COLLECTION", "orders")
	t.Setenv("LOAD_BATCH_SIZE", "250")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PIPELINE_STEP_RETRIES", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Mongo.SourceCollection != "orders" {
		t.Errorf("SourceCollection = %q, want %q", cfg.Mongo.SourceCollection, "orders")
	}
	if cfg.Load.BatchSize != 250 {
		t.Errorf("BatchSize = %d, want 250", cfg.Load.BatchSize)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Pipeline.StepRetries != 3 {
		t.Errorf("StepRetries = %d, want 3", cfg.Pipeline.StepRetries)
	}
}

func TestLoad_AltEnvVar(t *testing.T) {
	setEmailEnv(t)
	t.Setenv("GMAIL_APP_PASSWORD", "app-secret")
	t.Setenv("MONGODB_URI", "mongodb://db.internal:27017/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Email.Password != "app-secret" {
		t.Errorf("Email.Password = %q, want value from GMAIL_APP_PASSWORD", cfg.Email.Password)
	}
	if cfg.Mongo.URI != "mongodb://db.internal:27017/" {
		t.Errorf("Mongo.URI = %q, want value from MONGODB_URI", cfg.Mongo.URI)
	}
}

func TestLoad_EmailRequiresRecipients(t *testing.T) {
	t.Setenv("EMAIL_FROM", "etl@example.com")
	t.Setenv("EMAIL_TO", "")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() expected error for missing EMAIL_TO")
	}
	if !strings.Contains(err.Error(), "EMAIL_TO") {
		t.Errorf("error should mention EMAIL_TO: %v", err)
	}
}

func TestLoad_EmailDisabled(t *testing.T) {
	t.Setenv("EMAIL_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Email.Enabled {
		t.Error("Email.Enabled = true, want false")
	}
}

func TestLoad_Duration(t *testing.T) {
	setEmailEnv(t)
	t.Setenv("PIPELINE_RETRY_DELAY", "90s")
	t.Setenv("MONGO_SERVER_SELECTION_TIMEOUT", "1m30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Pipeline.RetryDelay != 90*time.Second {
		t.Errorf("RetryDelay = %v, want %v", cfg.Pipeline.RetryDelay, 90*time.Second)
	}
	if cfg.Mongo.ServerSelectionTimeout != 90*time.Second {
		t.Errorf("ServerSelectionTimeout = %v, want %v", cfg.Mongo.ServerSelectionTimeout, 90*time.Second)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	setEmailEnv(t)
	t.Setenv("PIPELINE_RETRY_DELAY", "soon")

	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error for invalid duration")
	}
}

func TestSetField_IntegerBounds(t *testing.T) {
	var target struct {
		Small int8
		Mid   int32
		Big   int
	}
	v := reflect.ValueOf(&target).Elem()

	tests := []struct {
		name    string
		field   string
		value   string
		wantErr bool
	}{
		{"int8 in range", "Small", "127", false},
		{"int8 overflow", "Small", "128", true},
		{"int8 underflow", "Small", "-129", true},
		{"int32 in range", "Mid", "2147483647", false},
		{"int32 overflow", "Mid", "3000000000", true},
		{"int accepts large", "Big", "3000000000", false},
		{"not a number", "Big", "lots", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := setField(v.FieldByName(tt.field), tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("setField(%s, %q) error = %v, wantErr %v", tt.field, tt.value, err, tt.wantErr)
			}
		})
	}

	if target.Small != 127 || target.Mid != 2147483647 || target.Big != 3000000000 {
		t.Errorf("fields = %+v, want in-range values kept", target)
	}
}

func TestLoad_IntegerOutOfRange(t *testing.T) {
	setEmailEnv(t)
	t.Setenv("LOAD_BATCH_SIZE", "99999999999999999999")

	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error for out-of-range integer")
	}
}

func TestLoad_CommaSeparatedSlice(t *testing.T) {
	t.Setenv("EMAIL_FROM", "etl@example.com")
	t.Setenv("EMAIL_TO", "a@example.com, b@example.com , ,c@example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	expected := []string{"a@example.com", "b@example.com", "c@example.com"}
	if len(cfg.Email.To) != len(expected) {
		t.Fatalf("Email.To length = %d, want %d", len(cfg.Email.To), len(expected))
	}
	for i, v := range expected {
		if cfg.Email.To[i] != v {
			t.Errorf("Email.To[%d] = %q, want %q", i, cfg.Email.To[i], v)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid",
			mutate:  func(*Config) {},
			wantErr: "",
		},
		{
			name:    "bad mongo scheme",
			mutate:  func(c *Config) { c.Mongo.URI = "http://localhost" },
			wantErr: "MONGO_URI",
		},
		{
			name: "target equals source",
			mutate: func(c *Config) {
				c.Mongo.TargetDB = c.Mongo.SourceDB
				c.Mongo.TargetCollection = c.Mongo.SourceCollection
			},
			wantErr: "target collection",
		},
		{
			name:    "zero batch size",
			mutate:  func(c *Config) { c.Load.BatchSize = 0 },
			wantErr: "LOAD_BATCH_SIZE",
		},
		{
			name:    "negative retries",
			mutate:  func(c *Config) { c.Pipeline.StepRetries = -1 },
			wantErr: "PIPELINE_STEP_RETRIES",
		},
		{
			name: "bad tls policy",
			mutate: func(c *Config) {
				c.Email = EmailConfig{Enabled: true, Host: "smtp", Port: 587, From: "a@b", To: []string{"c@d"}, TLSPolicy: "always", Timeout: time.Second}
			},
			wantErr: "SMTP_TLS_POLICY",
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "LOG_LEVEL",
		},
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.Server.Port = 99999 },
			wantErr: "SERVER_PORT",
		},
		{
			name:    "api key required without keys",
			mutate:  func(c *Config) { c.Server.RequireAPIKey = true },
			wantErr: "API_KEYS",
		},
		{
			name: "api key required with keys",
			mutate: func(c *Config) {
				c.Server.RequireAPIKey = true
				c.Server.APIKeys = []string{"k1"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error mentioning %s", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error should mention %s: %v", tt.wantErr, err)
			}
		})
	}
}

func TestServerAddr(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"", 8080, ":8080"},
		{"0.0.0.0", 8080, "0.0.0.0:8080"},
		{"127.0.0.1", 3000, "127.0.0.1:3000"},
	}

	for _, tt := range tests {
		cfg := &ServerConfig{Host: tt.host, Port: tt.port}
		if got := cfg.Addr(); got != tt.want {
			t.Errorf("Addr() with host=%q, port=%d = %q, want %q", tt.host, tt.port, got, tt.want)
		}
	}
}

func TestSMTPUsername(t *testing.T) {
	c := EmailConfig{From: "etl@example.com"}
	if got := c.SMTPUsername(); got != "etl@example.com" {
		t.Errorf("SMTPUsername() = %q, want sender fallback", got)
	}
	c.Username = "relay-user"
	if got := c.SMTPUsername(); got != "relay-user" {
		t.Errorf("SMTPUsername() = %q, want %q", got, "relay-user")
	}
}

func TestConfigString_MasksSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Mongo.URI = "mongodb://admin:hunter2@db:27017/"
	cfg.Email.Password = "smtp-secret"
	cfg.History.DSN = "postgres://etl:pgsecret@pg/etl"

	str := cfg.String()
	for _, secret := range []string{"hunter2", "smtp-secret", "pgsecret"} {
		if strings.Contains(str, secret) {
			t.Errorf("String() leaked %q: %s", secret, str)
		}
	}
	if !strings.Contains(str, "MASKED") {
		t.Error("String() should contain MASKED placeholder")
	}
}
