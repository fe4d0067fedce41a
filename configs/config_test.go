package config

import (
	"os"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	// テスト用の環境変数を設定
	testCases := map[string]string{
		"PORT":            "9090",
		"ENVIRONMENT":     "test",
		"API_KEY":         "test-key",
		"DATA_DIR":        "/tmp/data",
		"ARTIFACTS_DIR":   "/tmp/artifacts",
		"CLINIC_LAT":      "12.97",
		"CLINIC_LON":      "77.59",
		"CLINIC_TIMEZONE": "Asia/Kolkata",
	}

	// 環境変数を設定
	for key, value := range testCases {
		os.Setenv(key, value)
	}

	// テスト後にクリーンアップ
	defer func() {
		for key := range testCases {
			os.Unsetenv(key)
		}
	}()

	// 設定を読み込み
	cfg := LoadConfig()

	// 検証
	if cfg.Port != "9090" {
		t.Errorf("Expected Port to be '9090', got '%s'", cfg.Port)
	}

	if cfg.Environment != "test" {
		t.Errorf("Expected Environment to be 'test', got '%s'", cfg.Environment)
	}

	if cfg.APIKey != "test-key" {
		t.Errorf("Expected APIKey to be 'test-key', got '%s'", cfg.APIKey)
	}

	if cfg.DataDir != "/tmp/data" {
		t.Errorf("Expected DataDir to be '/tmp/data', got '%s'", cfg.DataDir)
	}

	if cfg.ArtifactsDir != "/tmp/artifacts" {
		t.Errorf("Expected ArtifactsDir to be '/tmp/artifacts', got '%s'", cfg.ArtifactsDir)
	}

	if cfg.ClinicLat != "12.97" {
		t.Errorf("Expected ClinicLat to be '12.97', got '%s'", cfg.ClinicLat)
	}

	if cfg.ClinicLon != "77.59" {
		t.Errorf("Expected ClinicLon to be '77.59', got '%s'", cfg.ClinicLon)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	// 環境変数をクリア
	vars := []string{
		"PORT", "ENVIRONMENT", "API_KEY", "DATA_DIR",
		"ARTIFACTS_DIR", "CLINIC_LAT", "CLINIC_LON", "CLINIC_TIMEZONE",
	}

	for _, v := range vars {
		os.Unsetenv(v)
	}

	// 設定を読み込み
	cfg := LoadConfig()

	// デフォルト値の検証
	if cfg.Port != "8080" {
		t.Errorf("Expected default Port to be '8080', got '%s'", cfg.Port)
	}

	if cfg.Environment != "development" {
		t.Errorf("Expected default Environment to be 'development', got '%s'", cfg.Environment)
	}

	if cfg.DataDir != "data/raw" {
		t.Errorf("Expected default DataDir to be 'data/raw', got '%s'", cfg.DataDir)
	}

	if cfg.ClinicTimezone != "Asia/Kolkata" {
		t.Errorf("Expected default ClinicTimezone to be 'Asia/Kolkata', got '%s'", cfg.ClinicTimezone)
	}
}

func TestGetOpenWeatherMapConfigDefaults(t *testing.T) {
	os.Unsetenv("OPENWEATHERMAP_API_KEY")
	os.Unsetenv("OPENWEATHERMAP_BASE_URL")

	cfg := GetOpenWeatherMapConfig()

	if cfg.APIKey != "" {
		t.Errorf("Expected empty APIKey, got '%s'", cfg.APIKey)
	}

	if cfg.BaseURL != "https://api.openweathermap.org/data/2.5" {
		t.Errorf("Expected default BaseURL, got '%s'", cfg.BaseURL)
	}
}
