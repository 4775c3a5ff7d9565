// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Auth modes.
const (
	AuthModePaseto = "paseto"
	AuthModeJWT    = "jwt"
)

// reservedCollections are the store's own key prefixes (secondary indexes,
// user and profile records).
var reservedCollections = map[string]bool{"idx": true, "user": true, "profile": true}

// Config holds the application configuration.
type Config struct {
	App           AppConfig
	Logger        LoggerConfig
	Data          DataConfig
	Server        ServerConfig
	Auth          AuthConfig
	Collections   CollectionsConfig
	ObjectStore   ObjectStoreConfig
	Relationships RelationshipsConfig
	Aggregator    AggregatorConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds local storage configuration.
type DataConfig struct {
	// BasePath holds the Badger database and the local token key.
	BasePath string
}

// DBPath is where the Badger database lives.
func (d DataConfig) DBPath() string {
	return filepath.Join(d.BasePath, "db")
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
	CORSOrigins  []string      // Allowed origins (default: *)
	// Per-IP request budget across the whole API.
	RequestsPerSecond float64
	RequestBurst      int
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// Mode selects the token verifier: paseto (local tokens) or jwt (identity provider).
	Mode string
	// AccessTokenDuration is the lifetime of locally issued tokens.
	AccessTokenDuration time.Duration
	// PASETO v4 symmetric key, hex. Set by auth.LoadOrGenerateKey when empty.
	AccessTokenKey string

	JWTIssuer        string
	JWTAudience      string
	JWTSecret        string
	JWTPublicKeyPath string

	// UserPoolID enables the Cognito user directory in jwt mode. Without it,
	// user existence is answered from locally provisioned users.
	UserPoolID             string
	CognitoRegion          string // default: derived from UserPoolID
	CognitoEndpoint        string
	CognitoAccessKeyID     string
	CognitoSecretAccessKey string
	DirectoryTimeout       time.Duration // default: 5s
}

// CollectionsConfig names the key prefix of each record collection.
type CollectionsConfig struct {
	Visits         string
	Friendships    string
	FriendRequests string
}

// ObjectStoreConfig holds the S3-compatible bucket used for visit photos.
type ObjectStoreConfig struct {
	Bucket          string
	Region          string
	Endpoint        string // Optional, for S3-compatible services
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
	Timeout         time.Duration
	ReadGrantTTL    time.Duration // default: 10m
	UploadGrantTTL  time.Duration // default: 5m
}

// RelationshipsConfig holds friend-request settings.
type RelationshipsConfig struct {
	// Directory lookups allowed per caller per minute when requesting friends.
	LookupsPerMinute int
	LookupBurst      int
	// RedisURL enables a limiter shared by all instances. Optional.
	RedisURL string
}

// AggregatorConfig holds friend summary settings.
type AggregatorConfig struct {
	// Concurrency bounds the per-friend fan-out (default: 8).
	Concurrency int
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig(args []string) (*Config, error) {
	fs := flag.NewFlagSet("pilgrim", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Base path for the database and local keys")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	// Server flags
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	// Auth flags
	authMode := fs.String("auth-mode", "", "Token verifier: paseto or jwt (default: paseto)")
	accessTokenDuration := fs.String("access-token-duration", "", "Local access token lifetime (e.g., 24h)")

	// Object store flags
	bucket := fs.String("bucket", "", "Object store bucket for visit photos")

	redisURL := fs.String("redis-url", "", "Redis URL for the shared rate limiter")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Load .env file if it exists. Existing env vars are never overridden.
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file %q: %w", *envFile, err)
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Server: ServerConfig{
			Port:              getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSOrigins:       getListConfigValue("", "CORS_ORIGINS", []string{"*"}),
			RequestsPerSecond: float64(getIntConfigValue("", "RATE_LIMIT_RPS", 20)),
			RequestBurst:      getIntConfigValue("", "RATE_LIMIT_BURST", 40),
		},
		Auth: AuthConfig{
			Mode:             strings.ToLower(getConfigValue(*authMode, "AUTH_MODE", AuthModePaseto)),
			AccessTokenKey:   getConfigValue("", "ACCESS_TOKEN_KEY", ""),
			JWTIssuer:        getConfigValue("", "JWT_ISSUER", ""),
			JWTAudience:      getConfigValue("", "JWT_AUDIENCE", ""),
			JWTSecret:        getConfigValue("", "JWT_SECRET", ""),
			JWTPublicKeyPath: getConfigValue("", "JWT_PUBLIC_KEY_PATH", ""),

			UserPoolID:             getConfigValue("", "USER_POOL_ID", ""),
			CognitoRegion:          getConfigValue("", "COGNITO_REGION", ""),
			CognitoEndpoint:        getConfigValue("", "COGNITO_ENDPOINT", ""),
			CognitoAccessKeyID:     getConfigValue("", "COGNITO_ACCESS_KEY_ID", ""),
			CognitoSecretAccessKey: getConfigValue("", "COGNITO_SECRET_ACCESS_KEY", ""),
		},
		Collections: CollectionsConfig{
			Visits:         getConfigValue("", "VISITS_COLLECTION", "visit"),
			Friendships:    getConfigValue("", "FRIENDSHIPS_COLLECTION", "friend"),
			FriendRequests: getConfigValue("", "FRIEND_REQUESTS_COLLECTION", "freq"),
		},
		ObjectStore: ObjectStoreConfig{
			Bucket:          getConfigValue(*bucket, "OBJECT_STORE_BUCKET", ""),
			Region:          getConfigValue("", "OBJECT_STORE_REGION", "us-east-1"),
			Endpoint:        getConfigValue("", "OBJECT_STORE_ENDPOINT", ""),
			PathStyle:       getBoolConfigValue("", "OBJECT_STORE_PATH_STYLE", false),
			AccessKeyID:     getConfigValue("", "OBJECT_STORE_ACCESS_KEY_ID", ""),
			SecretAccessKey: getConfigValue("", "OBJECT_STORE_SECRET_ACCESS_KEY", ""),
		},
		Relationships: RelationshipsConfig{
			LookupsPerMinute: getIntConfigValue("", "FRIEND_LOOKUPS_PER_MINUTE", 30),
			LookupBurst:      getIntConfigValue("", "FRIEND_LOOKUP_BURST", 10),
			RedisURL:         getConfigValue(*redisURL, "REDIS_URL", ""),
		},
		Aggregator: AggregatorConfig{
			Concurrency: getIntConfigValue("", "SUMMARY_CONCURRENCY", 8),
		},
	}

	durations := []struct {
		flagValue string
		envKey    string
		def       string
		dest      *time.Duration
	}{
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
		{*accessTokenDuration, "ACCESS_TOKEN_DURATION", "24h", &cfg.Auth.AccessTokenDuration},
		{"", "OBJECT_STORE_TIMEOUT", "5s", &cfg.ObjectStore.Timeout},
		{"", "DIRECTORY_TIMEOUT", "5s", &cfg.Auth.DirectoryTimeout},
		{"", "READ_GRANT_TTL", "10m", &cfg.ObjectStore.ReadGrantTTL},
		{"", "UPLOAD_GRANT_TTL", "5m", &cfg.ObjectStore.UploadGrantTTL},
	}
	for _, d := range durations {
		value := getConfigValue(d.flagValue, d.envKey, d.def)
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.envKey, value, err)
		}
		*d.dest = parsed
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.BasePath == "" {
		return errors.New("data base path cannot be empty after expansion")
	}

	switch c.Auth.Mode {
	case AuthModePaseto:
		if c.App.Environment == "production" {
			return errors.New("paseto auth mode is for development; use AUTH_MODE=jwt in production")
		}
	case AuthModeJWT:
		if c.Auth.JWTIssuer == "" {
			return errors.New("JWT_ISSUER is required in jwt auth mode")
		}
		if (c.Auth.JWTSecret == "") == (c.Auth.JWTPublicKeyPath == "") {
			return errors.New("exactly one of JWT_SECRET or JWT_PUBLIC_KEY_PATH is required in jwt auth mode")
		}
	default:
		return fmt.Errorf("invalid auth mode: %s (must be paseto or jwt)", c.Auth.Mode)
	}

	if c.Auth.UserPoolID != "" {
		if c.Auth.Mode != AuthModeJWT {
			return errors.New("USER_POOL_ID requires AUTH_MODE=jwt")
		}
		if c.Auth.CognitoAccessKeyID == "" || c.Auth.CognitoSecretAccessKey == "" {
			return errors.New("COGNITO_ACCESS_KEY_ID and COGNITO_SECRET_ACCESS_KEY are required with USER_POOL_ID")
		}
	}

	cols := []string{c.Collections.Visits, c.Collections.Friendships, c.Collections.FriendRequests}
	seen := make(map[string]bool, len(cols))
	for _, col := range cols {
		if col == "" || strings.Contains(col, ":") {
			return fmt.Errorf("invalid collection name %q", col)
		}
		if reservedCollections[col] {
			return fmt.Errorf("collection name %q is reserved", col)
		}
		if seen[col] {
			return fmt.Errorf("collection name %q used twice", col)
		}
		seen[col] = true
	}

	if c.ObjectStore.ReadGrantTTL <= 0 || c.ObjectStore.UploadGrantTTL <= 0 {
		return errors.New("grant TTLs must be positive")
	}

	if c.Relationships.LookupsPerMinute <= 0 || c.Relationships.LookupBurst <= 0 {
		return errors.New("friend lookup rate and burst must be positive")
	}

	if c.Aggregator.Concurrency < 1 {
		return errors.New("SUMMARY_CONCURRENCY must be at least 1")
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath defaults the data path to ~/Pilgrim/data.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Pilgrim", "data")

	expanded, err := expandPath(c.Data.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Data.BasePath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getListConfigValue splits a comma-separated value, dropping blanks.
func getListConfigValue(flagValue, envKey string, defaultValue []string) []string {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(strValue, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
