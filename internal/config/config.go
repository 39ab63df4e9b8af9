package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultFirebaseJWKSURL serves the public keys that sign Firebase ID tokens.
const DefaultFirebaseJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

// FirebaseConfig holds Firebase ID token verification configuration.
type FirebaseConfig struct {
	ProjectID string // e.g., "text-scan-e9da3"
	JWKSURL   string
}

// DatabaseConfig holds the connection configuration for the record store.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // seconds
}

// AccessConfig controls who may use the leader-only endpoints.
type AccessConfig struct {
	LeaderEmails []string
}

type Config struct {
	Port        string
	Environment string
	LogLevel    string
	CORSOrigins []string
	Database    DatabaseConfig
	Firebase    FirebaseConfig
	Access      AccessConfig
}

// LoadDotEnv loads variables from a .env file in the working directory, if present.
// Variables already set in the environment are never overridden.
func LoadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// Load reads the full server configuration from environment variables.
// It fails fast with clear errors for missing required values.
func Load() (*Config, error) {
	var missing []string

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	projectID := strings.TrimSpace(os.Getenv("FIREBASE_PROJECT_ID"))
	if projectID == "" {
		missing = append(missing, "FIREBASE_PROJECT_ID")
	}

	leaderEmails := splitList(os.Getenv("LEADER_EMAILS"))
	if len(leaderEmails) == 0 {
		// ALLOWED_EMAIL is the single-address name older deployments use.
		leaderEmails = splitList(os.Getenv("ALLOWED_EMAIL"))
	}
	if len(leaderEmails) == 0 {
		missing = append(missing, "LEADER_EMAILS")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %v", missing)
	}

	cfg, err := loadBase(databaseURL)
	if err != nil {
		return nil, err
	}

	for _, email := range leaderEmails {
		if !strings.Contains(email, "@") {
			return nil, fmt.Errorf("invalid LEADER_EMAILS: %q is not an email address", email)
		}
	}

	jwksURL := os.Getenv("FIREBASE_JWKS_URL")
	if jwksURL == "" {
		jwksURL = DefaultFirebaseJWKSURL
	}
	if err := validateJWKSURL(jwksURL); err != nil {
		return nil, fmt.Errorf("invalid FIREBASE_JWKS_URL: %w", err)
	}

	cfg.Firebase = FirebaseConfig{
		ProjectID: projectID,
		JWKSURL:   jwksURL,
	}
	cfg.Access = AccessConfig{LeaderEmails: leaderEmails}

	return cfg, nil
}

// LoadDatabase reads only what the maintenance commands need: the database
// connection plus the general settings. Identity settings are not required.
func LoadDatabase() (*Config, error) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, fmt.Errorf("missing required environment variables: %v", []string{"DATABASE_URL"})
	}
	return loadBase(databaseURL)
}

func loadBase(databaseURL string) (*Config, error) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
		return nil, fmt.Errorf("invalid PORT value %q: must be a number between 1 and 65535", port)
	}

	env := os.Getenv("ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "staging" && env != "production" {
		return nil, fmt.Errorf("invalid ENV value %q: must be development, staging, or production", env)
	}

	logLevel := strings.ToLower(os.Getenv("LOG_LEVEL"))
	if logLevel == "" {
		logLevel = "info"
	}
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid LOG_LEVEL value %q: must be debug, info, warn, or error", logLevel)
	}

	if err := ValidateDatabaseURL(databaseURL); err != nil {
		return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
	}

	origins := splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return &Config{
		Port:        port,
		Environment: env,
		LogLevel:    logLevel,
		CORSOrigins: origins,
		Database: DatabaseConfig{
			URL:             databaseURL,
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvInt("DB_CONN_MAX_LIFETIME", 300),
		},
	}, nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// ValidateDatabaseURL accepts PostgreSQL URLs and sqlite:// file locations.
func ValidateDatabaseURL(dbURL string) error {
	parsed, err := url.Parse(dbURL)
	if err != nil {
		return fmt.Errorf("malformed URL: %w", err)
	}

	switch parsed.Scheme {
	case "postgres", "postgresql":
		if parsed.Host == "" {
			return fmt.Errorf("URL must include a host")
		}
	case "sqlite":
		if parsed.Opaque != "" {
			return fmt.Errorf("sqlite URL must be sqlite://<file path>; in-memory databases are not supported")
		}
		if parsed.Host == "" && parsed.Path == "" {
			return fmt.Errorf("sqlite URL must include a file path")
		}
	default:
		return fmt.Errorf("URL must use postgres, postgresql, or sqlite scheme, got %q", parsed.Scheme)
	}

	return nil
}

func validateJWKSURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("malformed URL: %w", err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return fmt.Errorf("URL must use http or https scheme, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL must include a host")
	}
	return nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvInt reads an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return intVal
}
