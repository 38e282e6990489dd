/*
Package configs is responsible for loading and parsing the application's configuration settings.

It configures server parameters by reading operating system environment variables,
including the running environment, port, CORS allowed origins, the message retention
cap, and the persistence and upload storage backends.
*/
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// AppConfig contains all configuration parameters required for the application to run.
// All configuration values are loaded from environment variables.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int

	// Security Settings
	AllowedOrigins []string
	JWTSecret      string

	// Chat Settings
	DefaultRoom  string
	RetentionCap int

	// Persistence Settings. DataFile backs the default file store;
	// when DatabaseDSN is set the Postgres document backend is used instead.
	DataFile    string
	DatabaseDSN string

	// Upload Storage Settings. UploadDir backs the default local store;
	// when S3BucketName is set the S3-compatible backend is used instead.
	UploadDir         string
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// DefaultRetentionCap is the number of most recent messages the store retains
// when MESSAGE_RETENTION_CAP is not set.
const DefaultRetentionCap = 100

// LoadConfig reads and parses the application configuration from environment variables.
// It provides default values for each configuration item and performs necessary type conversions and validation.
// It returns a pointer to the AppConfig struct and any error encountered.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}

	// --- General Server Settings ---
	// Environment
	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	// Port
	portStr := os.Getenv("PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT environment variable: %w", err)
	}
	cfg.Port = port

	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", cfg.Port, 1024, 65535)
	}

	// --- Security Settings ---
	// AllowedOrigins
	originsStr := os.Getenv("ALLOWED_ORIGINS")
	if originsStr != "" {
		origins := strings.Split(originsStr, ",")
		for _, origin := range origins {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	} else {
		cfg.AllowedOrigins = []string{}
	}

	// JWTSecret
	jwtSecret := os.Getenv("JWT_SECRET")
	if cfg.Environment == "development" {
		if jwtSecret == "" {
			jwtSecret = "your_default_insecure_secret_key_change_me"
		}
	} else {
		if jwtSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET environment variable is required in %s environment for security", cfg.Environment)
		}
	}
	cfg.JWTSecret = jwtSecret

	// --- Chat Settings ---
	// DefaultRoom
	cfg.DefaultRoom = os.Getenv("DEFAULT_ROOM")
	if cfg.DefaultRoom == "" {
		cfg.DefaultRoom = "general"
	}

	// RetentionCap
	capStr := os.Getenv("MESSAGE_RETENTION_CAP")
	if capStr == "" {
		cfg.RetentionCap = DefaultRetentionCap
	} else {
		retentionCap, err := strconv.Atoi(capStr)
		if err != nil {
			return nil, fmt.Errorf("invalid MESSAGE_RETENTION_CAP environment variable: %w", err)
		}
		if retentionCap < 1 {
			return nil, fmt.Errorf("MESSAGE_RETENTION_CAP must be at least 1, got %d", retentionCap)
		}
		cfg.RetentionCap = retentionCap
	}

	// --- Persistence Settings ---
	cfg.DataFile = os.Getenv("DATA_FILE")
	if cfg.DataFile == "" {
		cfg.DataFile = "data/chatsync.json"
	}

	// DatabaseDSN is optional. When set, the store keeps its document in Postgres.
	cfg.DatabaseDSN = os.Getenv("DATABASE_URL")

	// --- Upload Storage Settings ---
	cfg.UploadDir = os.Getenv("UPLOAD_DIR")
	if cfg.UploadDir == "" {
		cfg.UploadDir = "uploads"
	}

	// S3 settings are optional as a set. When a bucket is named, the remaining
	// S3 variables become required.
	cfg.S3BucketName = os.Getenv("S3_BUCKET_NAME")
	if cfg.S3BucketName != "" {
		cfg.S3Endpoint = os.Getenv("S3_ENDPOINT")
		if cfg.S3Endpoint == "" {
			return nil, fmt.Errorf("S3_ENDPOINT environment variable is required when S3_BUCKET_NAME is set")
		}

		cfg.S3AccessKeyID = os.Getenv("S3_ACCESS_KEY_ID")
		if cfg.S3AccessKeyID == "" {
			return nil, fmt.Errorf("S3_ACCESS_KEY_ID environment variable is required when S3_BUCKET_NAME is set")
		}

		cfg.S3SecretAccessKey = os.Getenv("S3_SECRET_ACCESS_KEY")
		if cfg.S3SecretAccessKey == "" {
			return nil, fmt.Errorf("S3_SECRET_ACCESS_KEY environment variable is required when S3_BUCKET_NAME is set")
		}
	}

	return cfg, nil
}
