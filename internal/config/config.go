package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir      string
	SettingsPath string
	ImagesDir    string

	GoogleClientID     string
	GoogleClientSecret string
	AppleClientID      string
	AppleClientSecret  string
	OAuthListenAddr    string

	SESRegion    string
	SESFromEmail string
	SESFromName  string
}

// Load reads configuration from the environment with sensible defaults.
// A .env file in the working directory is honored if present.
func Load() *Config {
	_ = godotenv.Load()

	dataDir := getEnv("HEARTLOOM_DATA_DIR", defaultDataDir())
	return &Config{
		DataDir:      dataDir,
		SettingsPath: filepath.Join(dataDir, "settings.db"),
		ImagesDir:    filepath.Join(dataDir, "images"),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		AppleClientID:      getEnv("APPLE_CLIENT_ID", ""),
		AppleClientSecret:  getEnv("APPLE_CLIENT_SECRET", ""),
		OAuthListenAddr:    getEnv("OAUTH_LISTEN_ADDR", "127.0.0.1:8910"),

		SESRegion:    getEnv("SES_REGION", "us-east-1"),
		SESFromEmail: getEnv("SES_FROM_EMAIL", ""),
		SESFromName:  getEnv("SES_FROM_NAME", "Heartloom"),
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./heartloom-data"
	}
	return filepath.Join(home, ".heartloom")
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
