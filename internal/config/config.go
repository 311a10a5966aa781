package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AuthMode selects how bearer tokens are verified
type AuthMode string

const (
	AuthModeLocal AuthMode = "local" // HS256 tokens issued by this service
	AuthModeOIDC  AuthMode = "oidc"  // externally issued tokens verified via JWKS
)

// Config holds all configuration for the application
type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string

	// DataDir holds the latest dataset files, the contact ledger workbook
	// and the upload audit log
	DataDir string
	// CredentialsDir holds tip_users.json, bbm_users.json and mgmt.json
	CredentialsDir string

	AuthMode   AuthMode
	JWTSecret  string
	TokenTTL   time.Duration
	OIDCIssuer string

	// WACountryCode prefixes customer mobile numbers in wa.me deep links
	WACountryCode string

	WSReadTimeout  time.Duration
	WSWriteTimeout time.Duration
	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173"), ","),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DataDir:        getEnv("DATA_DIR", "./data"),
		CredentialsDir: getEnv("CREDENTIALS_DIR", "./credentials"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		OIDCIssuer:     getEnv("OIDC_ISSUER", ""),
		WACountryCode:  getEnv("WA_COUNTRY_CODE", "91"),
	}

	mode := AuthMode(getEnv("AUTH_MODE", "local"))
	if mode != AuthModeLocal && mode != AuthModeOIDC {
		return nil, fmt.Errorf("invalid AUTH_MODE: %s", mode)
	}
	config.AuthMode = mode

	if mode == AuthModeOIDC && config.OIDCIssuer == "" {
		return nil, fmt.Errorf("AUTH_MODE=oidc requires OIDC_ISSUER")
	}

	ttlHours, err := strconv.Atoi(getEnv("TOKEN_TTL_HOURS", "12"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL_HOURS: %w", err)
	}
	config.TokenTTL = time.Duration(ttlHours) * time.Hour

	wsReadTimeout, err := strconv.Atoi(getEnv("WS_READ_TIMEOUT", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid WS_READ_TIMEOUT: %w", err)
	}
	config.WSReadTimeout = time.Duration(wsReadTimeout) * time.Second

	wsWriteTimeout, err := strconv.Atoi(getEnv("WS_WRITE_TIMEOUT", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid WS_WRITE_TIMEOUT: %w", err)
	}
	config.WSWriteTimeout = time.Duration(wsWriteTimeout) * time.Second

	// WebSocket keepalive constants
	config.PongWait = config.WSReadTimeout
	config.PingPeriod = (config.PongWait * 9) / 10 // must be less than pongWait
	config.WriteWait = config.WSWriteTimeout
	config.MaxMessageSize = 512

	// Trim spaces from allowed origins
	for i, origin := range config.AllowedOrigins {
		config.AllowedOrigins[i] = strings.TrimSpace(origin)
	}

	return config, nil
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
