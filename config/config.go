// Package config loads the application configuration from environment
// variables, with a .env file for local development.
package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Identity      IdentityConfig
	Guard         GuardConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence
// over individual fields.
type DatabaseConfig struct {
	ConnectionString string
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// IdentityConfig holds identity-provider client configuration
type IdentityConfig struct {
	BaseURL     string
	APIKey      string
	HTTPTimeout time.Duration
}

// GuardConfig holds the access-control and monitoring parameters
type GuardConfig struct {
	AdminEmail          string
	StudentEmailPattern string
	StudentDepartment   string
	StudentUniversity   string
	LoginPath           string
	HomePath            string

	SessionTimeout       time.Duration
	SessionCheckInterval time.Duration

	RateLimitMaxRequests int
	RateLimitWindow      time.Duration
	RateLimitMaxIdents   int

	NavigationThreshold int
	ClickThreshold      int
	CallThreshold       int
	DevToolsDeltaPx     int

	AuditSinkEnabled bool
	IPLookupEndpoint string

	ProxyUpstreams map[string]string // AI service name -> upstream base URL
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or text
}

// New creates a new Config instance by loading environment variables
func New() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: loadDatabaseConfig(),
		Identity: IdentityConfig{
			BaseURL:     getEnv("IDENTITY_BASE_URL", ""),
			APIKey:      getEnv("IDENTITY_API_KEY", ""),
			HTTPTimeout: getEnvAsDuration("IDENTITY_HTTP_TIMEOUT", 10*time.Second),
		},
		Guard: GuardConfig{
			AdminEmail:           getEnv("GUARD_ADMIN_EMAIL", ""),
			StudentEmailPattern:  getEnv("GUARD_STUDENT_EMAIL_PATTERN", `^[a-z0-9._%+\-]+@diu\.edu\.bd$`),
			StudentDepartment:    getEnv("GUARD_STUDENT_DEPARTMENT", "MCT"),
			StudentUniversity:    getEnv("GUARD_STUDENT_UNIVERSITY", "Daffodil International University"),
			LoginPath:            getEnv("GUARD_LOGIN_PATH", "/login"),
			HomePath:             getEnv("GUARD_HOME_PATH", "/"),
			SessionTimeout:       getEnvAsDuration("GUARD_SESSION_TIMEOUT", 24*time.Hour),
			SessionCheckInterval: getEnvAsDuration("GUARD_SESSION_CHECK_INTERVAL", 60*time.Second),
			RateLimitMaxRequests: getEnvAsInt("GUARD_RATE_LIMIT_MAX_REQUESTS", 100),
			RateLimitWindow:      getEnvAsDuration("GUARD_RATE_LIMIT_WINDOW", 60*time.Second),
			RateLimitMaxIdents:   getEnvAsInt("GUARD_RATE_LIMIT_MAX_IDENTIFIERS", 10000),
			NavigationThreshold:  getEnvAsInt("GUARD_NAVIGATION_THRESHOLD", 20),
			ClickThreshold:       getEnvAsInt("GUARD_CLICK_THRESHOLD", 10),
			CallThreshold:        getEnvAsInt("GUARD_CALL_THRESHOLD", 100),
			DevToolsDeltaPx:      getEnvAsInt("GUARD_DEVTOOLS_DELTA_PX", 160),
			AuditSinkEnabled:     getEnvAsBool("GUARD_AUDIT_SINK_ENABLED", true),
			IPLookupEndpoint:     getEnv("GUARD_IP_LOOKUP_ENDPOINT", "https://api.ipify.org?format=json"),
			ProxyUpstreams:       loadProxyUpstreams(),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Database.ConnectionString == "" && c.Database.Host == "" {
		return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
	}
	if c.Database.ConnectionString == "" {
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	if _, err := regexp.Compile(c.Guard.StudentEmailPattern); err != nil {
		return fmt.Errorf("invalid student email pattern: %w", err)
	}

	if c.IsProduction() {
		if c.Guard.AdminEmail == "" {
			return fmt.Errorf("admin email is required in production")
		}
		if c.Identity.BaseURL == "" {
			return fmt.Errorf("identity provider base URL is required in production")
		}
	}

	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds
// from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password)
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// loadDatabaseConfig loads database config from DATABASE_URL or DB_* env vars
func loadDatabaseConfig() DatabaseConfig {
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL != "" {
		return DatabaseConfig{
			ConnectionString: dbURL,
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		}
	}
	return DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "guard"),
		Password:        getEnv("DB_PASSWORD", ""),
		Database:        getEnv("DB_NAME", "access_guard"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// loadProxyUpstreams parses GUARD_PROXY_UPSTREAMS, a comma-separated
// list of name=url pairs (e.g. "chat=https://api.example.com").
func loadProxyUpstreams() map[string]string {
	raw := getEnv("GUARD_PROXY_UPSTREAMS", "")
	upstreams := make(map[string]string)
	if raw == "" {
		return upstreams
	}
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			continue
		}
		upstreams[parts[0]] = parts[1]
	}
	return upstreams
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer
func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean
func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvAsDuration retrieves an environment variable as a duration
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
