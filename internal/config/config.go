package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	Port     string `yaml:"port"`
	DBDriver string `yaml:"db_driver"`
	DBConn   string `yaml:"db_conn"`
	LogLevel string `yaml:"log_level"`

	SessionSecret string        `yaml:"session_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	CookieSecure  bool          `yaml:"cookie_secure"`
	BcryptCost    int           `yaml:"bcrypt_cost"`

	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     string `yaml:"smtp_port"`
	SMTPUsername string `yaml:"smtp_username"`
	SMTPPassword string `yaml:"smtp_password"`
	SenderEmail  string `yaml:"sender_email"`

	RateLimitPerMinute int  `yaml:"rate_limit_per_minute"`
	RateLimitBurst     int  `yaml:"rate_limit_burst"`
	TrustProxy         bool `yaml:"trust_proxy"`

	RevocationPurgeSchedule  string `yaml:"revocation_purge_schedule"`
	RateLimitCleanupSchedule string `yaml:"rate_limit_cleanup_schedule"`
}

// DefaultSessionSecret is a placeholder only accepted for local sqlite setups
const DefaultSessionSecret = "change-me"

// Default returns the built-in configuration used before any file or environment overrides
func Default() *Config {
	return &Config{
		Port:                    "8080",
		DBDriver:                "postgres",
		DBConn:                  "host=localhost port=5432 user=feedback password=feedback dbname=feedback sslmode=disable",
		LogLevel:                "INFO",
		SessionSecret:           DefaultSessionSecret,
		SessionTTL:              24 * time.Hour,
		BcryptCost:              10,
		SMTPPort:                "587",
		RateLimitPerMinute:      30,
		RateLimitBurst:          10,
		RevocationPurgeSchedule: "@hourly",

		RateLimitCleanupSchedule: "@every 10m",
	}
}

// NewConfig loads configuration from an optional YAML file (CONFIG_FILE), a .env file
// and environment variables, in that order of increasing precedence
func NewConfig() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.DBDriver = getEnv("DB_DRIVER", c.DBDriver)
	c.DBConn = getEnv("DB_CONN", c.DBConn)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.SessionSecret = getEnv("SESSION_SECRET", c.SessionSecret)
	c.SessionTTL = getEnvDuration("SESSION_TTL", c.SessionTTL)
	c.CookieSecure = getEnvBool("COOKIE_SECURE", c.CookieSecure)
	c.BcryptCost = getEnvInt("BCRYPT_COST", c.BcryptCost)
	c.SMTPHost = getEnv("SMTP_HOST", c.SMTPHost)
	c.SMTPPort = getEnv("SMTP_PORT", c.SMTPPort)
	c.SMTPUsername = getEnv("SMTP_USERNAME", c.SMTPUsername)
	c.SMTPPassword = getEnv("SMTP_PASSWORD", c.SMTPPassword)
	c.SenderEmail = getEnv("SENDER_EMAIL", c.SenderEmail)
	c.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute)
	c.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", c.RateLimitBurst)
	c.TrustProxy = getEnvBool("TRUST_PROXY", c.TrustProxy)
	c.RevocationPurgeSchedule = getEnv("REVOCATION_PURGE_SCHEDULE", c.RevocationPurgeSchedule)
	c.RateLimitCleanupSchedule = getEnv("RATE_LIMIT_CLEANUP_SCHEDULE", c.RateLimitCleanupSchedule)
}

// Validate checks that required settings are present and sane
func (c *Config) Validate() error {
	if c.DBConn == "" {
		return fmt.Errorf("DB_CONN is required")
	}
	if c.DBDriver != "postgres" && c.DBDriver != "sqlite3" {
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite3, got %q", c.DBDriver)
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if c.SessionSecret == DefaultSessionSecret && c.DBDriver != "sqlite3" {
		return fmt.Errorf("SESSION_SECRET must be changed from the default when DB_DRIVER is %s", c.DBDriver)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.RateLimitPerMinute <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

// MailEnabled reports whether outbound e-mail is configured
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != "" && c.SenderEmail != ""
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}
