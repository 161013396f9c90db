package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Backends accepted by DATA_BACKEND and CREDENTIAL_BACKEND.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

var a1Range = regexp.MustCompile(`^(?:[^!]+!)?[A-Za-z]{1,3}[0-9]+$`)

type Config struct {
	// HTTP Server
	Port               string
	LogLevel           string
	RateLimitPerMinute int
	CORSAllowedOrigin  string

	// Persistence
	DataBackend       string
	SQLiteDBPath      string
	CredentialBackend string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// AMQP (disabled when AMQPURL is empty)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Identity
	AuthJWTSecret string
	AuthJWTIssuer string

	// Google
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleOAuthClientFile    string
	GoogleOAuthClientJSON    string
	GoogleTemplateID         string

	// Reports
	ReportFolderName string
	ReportFileName   string
	ReportCell       string

	// Sessions
	SessionCacheSize int
	SessionTTL       time.Duration
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "3001"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		CORSAllowedOrigin:  getEnv("CORS_ALLOWED_ORIGIN", "*"),

		DataBackend:       getEnv("DATA_BACKEND", BackendSQLite),
		SQLiteDBPath:      getEnv("SQLITE_DB_PATH", "./data/cashbook.db"),
		CredentialBackend: getEnv("CREDENTIAL_BACKEND", BackendSQLite),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "cashbook"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		AuthJWTSecret: getEnv("AUTH_JWT_SECRET", ""),
		AuthJWTIssuer: getEnv("AUTH_JWT_ISSUER", ""),

		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),
		GoogleOAuthClientFile:    getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthClientJSON:    getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleTemplateID:         getEnv("GOOGLE_TEMPLATE_ID", ""),

		ReportFolderName: getEnv("REPORT_FOLDER_NAME", ""),
		ReportFileName:   getEnv("REPORT_FILE_NAME", ""),
		ReportCell:       getEnv("REPORT_CELL", "Sheet1!J5"),

		SessionCacheSize: getEnvInt("SESSION_CACHE_SIZE", 256),
		SessionTTL:       getEnvDuration("SESSION_TTL", 15*time.Minute),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if _, err := c.SlogLevel(); err != nil {
		errors = append(errors, err.Error())
	}

	if !oneOf(c.DataBackend, BackendMemory, BackendSQLite) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of [memory sqlite]", c.DataBackend))
	}
	if !oneOf(c.CredentialBackend, BackendMemory, BackendSQLite, BackendRedis) {
		errors = append(errors, fmt.Sprintf("invalid credential backend '%s': must be one of [memory sqlite redis]", c.CredentialBackend))
	}

	if c.DataBackend == BackendSQLite || c.CredentialBackend == BackendSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	}
	if c.CredentialBackend == BackendSQLite && c.DataBackend == BackendMemory {
		errors = append(errors, "sqlite credential backend requires DATA_BACKEND=sqlite")
	}

	if c.CredentialBackend == BackendRedis {
		if c.RedisAddr == "" {
			errors = append(errors, "REDIS_ADDR is required when using redis credential backend")
		}
		if c.RedisDB < 0 || c.RedisDB > 15 {
			errors = append(errors, fmt.Sprintf("invalid redis db %d: must be between 0 and 15", c.RedisDB))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.AuthJWTSecret == "" {
		errors = append(errors, "AUTH_JWT_SECRET is required")
	} else if len(c.AuthJWTSecret) < 16 {
		errors = append(errors, "AUTH_JWT_SECRET must be at least 16 characters")
	}

	if c.GoogleServiceAccountFile != "" && c.GoogleServiceAccountJSON == "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if !a1Range.MatchString(c.ReportCell) {
		errors = append(errors, fmt.Sprintf("invalid report cell '%s': must be an A1 reference like Sheet1!J5", c.ReportCell))
	}

	if c.SessionCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid session cache size %d: must be at least 1", c.SessionCacheSize))
	}
	if c.SessionTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid session ttl %v: must be at least 1 second", c.SessionTTL))
	} else if c.SessionTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid session ttl %v: must be at most 24 hours", c.SessionTTL))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 per minute", c.RateLimitPerMinute))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel)
	}
	return level, nil
}

// ServiceAccountKey returns the Google service account key, inline JSON
// first, then the key file. Nil means application default credentials.
func (c *Config) ServiceAccountKey() ([]byte, error) {
	if inline := strings.TrimSpace(c.GoogleServiceAccountJSON); inline != "" {
		return []byte(inline), nil
	}
	if c.GoogleServiceAccountFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(c.GoogleServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return data, nil
}

// OAuthClientJSON returns the OAuth client definition used by oauth-init.
func (c *Config) OAuthClientJSON() ([]byte, error) {
	if c.GoogleOAuthClientJSON != "" {
		return []byte(c.GoogleOAuthClientJSON), nil
	}
	if c.GoogleOAuthClientFile == "" {
		return nil, fmt.Errorf("either GOOGLE_OAUTH_CLIENT_FILE or GOOGLE_OAUTH_CLIENT_JSON must be provided")
	}
	data, err := os.ReadFile(c.GoogleOAuthClientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client file: %w", err)
	}
	return data, nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
