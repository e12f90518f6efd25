package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where Load looks for the config file when none is given.
const DefaultPath = "config/config.yaml"

// Config holds the application configuration
type Config struct {
	Environment Environment     `yaml:"environment"`
	Test        TestConfig      `yaml:"test"`
	Reporting   ReportingConfig `yaml:"reporting"`
	Logging     LoggingConfig   `yaml:"logging"`
	Store       StoreConfig     `yaml:"store"`
	Triage      TriageConfig    `yaml:"triage"`
}

// Environment holds environment-specific configuration
type Environment struct {
	BaseURL    string     `yaml:"base_url"`
	CatalogDir string     `yaml:"catalog_dir"`
	Auth       AuthConfig `yaml:"auth"`
}

// AuthConfig holds the admin credentials used by the login bootstrap.
// A non-empty Token skips the login call entirely.
type AuthConfig struct {
	LoginPath string `yaml:"login_path"`
	Email     string `yaml:"email"`
	Password  string `yaml:"password"`
	Token     string `yaml:"token"`
}

// TestConfig holds test execution configuration
type TestConfig struct {
	Modules    []string `yaml:"modules"`
	MaxWorkers int      `yaml:"max_workers"`
	Timeout    int      `yaml:"timeout"`
	RateLimit  float64  `yaml:"rate_limit"`
}

// RequestTimeout is Timeout as a duration.
func (t TestConfig) RequestTimeout() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}

// ReportingConfig holds reporting configuration
type ReportingConfig struct {
	Format      []string `yaml:"format"`
	OutputDir   string   `yaml:"output_dir"`
	MetricsFile string   `yaml:"metrics_file"`
}

// LoggingConfig selects the log handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// StoreConfig points at an optional SQL database for run history. Either DSN
// or the discrete connection fields may be given.
type StoreConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// Enabled reports whether results should be persisted.
func (s StoreConfig) Enabled() bool {
	return s.Driver != "" && (s.DSN != "" || s.Host != "")
}

// TriageConfig configures the optional LLM triage of failed cases.
type TriageConfig struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	MaxTokens int    `yaml:"max_tokens"`
}

// Enabled reports whether an API key is configured.
func (t TriageConfig) Enabled() bool {
	return t.APIKey != ""
}

// LoadDotEnv loads KEY=VALUE pairs from the given .env files into the process
// environment. Missing files are ignored and existing variables win.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// LoadConfig loads the configuration from a config file and environment variables.
// A missing file at the default path is not an error; a missing explicit path is.
func LoadConfig(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	var config Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config.applyEnv()
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyEnv() {
	setString(&c.Environment.BaseURL, "CONFORMANCE_BASE_URL")
	setString(&c.Environment.CatalogDir, "CONFORMANCE_CATALOG_DIR")
	setString(&c.Environment.Auth.Email, "ADMIN_EMAIL")
	setString(&c.Environment.Auth.Password, "ADMIN_PASSWORD")
	setString(&c.Environment.Auth.Token, "AUTH_TOKEN")
	setString(&c.Logging.Level, "CONFORMANCE_LOG_LEVEL")
	setString(&c.Store.Driver, "CONFORMANCE_DB_DRIVER")
	setString(&c.Store.DSN, "CONFORMANCE_DB_DSN")
	setString(&c.Triage.APIKey, "OPENAI_API_KEY")

	if v := os.Getenv("CONFORMANCE_MAX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Test.MaxWorkers = n
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Environment.Auth.LoginPath == "" {
		c.Environment.Auth.LoginPath = "/auth/login"
	}
	if c.Test.MaxWorkers == 0 {
		c.Test.MaxWorkers = 5
	}
	if c.Test.Timeout == 0 {
		c.Test.Timeout = 30
	}
	if len(c.Reporting.Format) == 0 {
		c.Reporting.Format = []string{"json"}
	}
	if c.Reporting.OutputDir == "" {
		c.Reporting.OutputDir = "reports"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Triage.Model == "" {
		c.Triage.Model = "gpt-4o-mini"
	}
	if c.Triage.MaxTokens == 0 {
		c.Triage.MaxTokens = 800
	}
}

// Validate checks values that have no sensible default.
func (c *Config) Validate() error {
	if c.Test.MaxWorkers < 1 {
		return fmt.Errorf("test.max_workers must be at least 1, got %d", c.Test.MaxWorkers)
	}
	if c.Test.Timeout < 0 {
		return fmt.Errorf("test.timeout must not be negative")
	}
	if c.Test.RateLimit < 0 {
		return fmt.Errorf("test.rate_limit must not be negative")
	}
	for _, f := range c.Reporting.Format {
		switch f {
		case "json", "junit", "text":
		default:
			return fmt.Errorf("unsupported report format %q", f)
		}
	}
	switch c.Store.Driver {
	case "", "postgres", "mysql", "sqlserver":
	default:
		return fmt.Errorf("unsupported store driver %q", c.Store.Driver)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
