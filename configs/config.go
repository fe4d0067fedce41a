package config

import (
	"os"
)

// Config holds the application configuration
type Config struct {
	Port           string
	Environment    string
	APIKey         string
	DataDir        string
	ArtifactsDir   string
	ClinicLat      string
	ClinicLon      string
	ClinicTimezone string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		APIKey:         getEnv("API_KEY", ""),
		DataDir:        getEnv("DATA_DIR", "data/raw"),
		ArtifactsDir:   getEnv("ARTIFACTS_DIR", "ml/artifacts"),
		ClinicLat:      getEnv("CLINIC_LAT", "12.9716"),
		ClinicLon:      getEnv("CLINIC_LON", "77.5946"),
		ClinicTimezone: getEnv("CLINIC_TIMEZONE", "Asia/Kolkata"),
	}
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
