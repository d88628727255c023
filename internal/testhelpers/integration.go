//go:build integration
// +build integration

package testhelpers

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/weatherupdate/weather-update-service/internal/client"
	"github.com/weatherupdate/weather-update-service/internal/service"
	"github.com/weatherupdate/weather-update-service/internal/store"
	"github.com/weatherupdate/weather-update-service/internal/throttle"
)

// IntegrationTestConfig holds configuration for integration tests that hit
// the live OpenWeatherMap API or external backends.
type IntegrationTestConfig struct {
	APIKey          string
	CurrentURL      string
	ForecastURL     string
	StoreBackend    string // "memory" or "sqlite"
	ThrottleBackend string // "memory" or "memcached"
	MemcachedAddrs  string
}

// GetIntegrationConfig loads integration test configuration from environment.
// Skips the test when OPENWEATHER_API_KEY is not set.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	apiKey := os.Getenv("OPENWEATHER_API_KEY")
	if apiKey == "" {
		t.Skip("OPENWEATHER_API_KEY not set, skipping integration test")
	}

	currentURL := os.Getenv("WEATHER_CURRENT_URL")
	if currentURL == "" {
		currentURL = "https://api.openweathermap.org/data/2.5/weather"
	}
	forecastURL := os.Getenv("WEATHER_FORECAST_URL")
	if forecastURL == "" {
		forecastURL = "https://api.openweathermap.org/data/2.5/forecast"
	}

	memcachedAddrs := os.Getenv("MEMCACHED_ADDRS")
	if memcachedAddrs == "" {
		memcachedAddrs = "localhost:11211"
	}

	return IntegrationTestConfig{
		APIKey:          apiKey,
		CurrentURL:      currentURL,
		ForecastURL:     forecastURL,
		StoreBackend:    os.Getenv("INTEGRATION_STORE_BACKEND"),
		ThrottleBackend: os.Getenv("INTEGRATION_THROTTLE_BACKEND"),
		MemcachedAddrs:  memcachedAddrs,
	}
}

// SetupIntegrationService creates a weather service wired to the live provider.
func SetupIntegrationService(t *testing.T, cfg IntegrationTestConfig) *service.WeatherService {
	weatherClient, err := client.NewOpenWeatherClient(cfg.APIKey, cfg.CurrentURL, cfg.ForecastURL, 5*time.Second)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}
	return service.NewWeatherService(weatherClient)
}

// SetupIntegrationClient creates a provider client for integration tests.
func SetupIntegrationClient(t *testing.T, cfg IntegrationTestConfig) client.WeatherClient {
	c, err := client.NewOpenWeatherClient(cfg.APIKey, cfg.CurrentURL, cfg.ForecastURL, 5*time.Second)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}
	return c
}

// SetupIntegrationStore creates the credential store named by the config.
// The sqlite store lives in a test temp dir and closes on cleanup.
func SetupIntegrationStore(t *testing.T, cfg IntegrationTestConfig) store.Store {
	if cfg.StoreBackend == "sqlite" {
		st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "users.db"))
		if err != nil {
			t.Fatalf("NewSQLiteStore() error = %v", err)
		}
		t.Cleanup(func() { _ = st.Close() })
		return st
	}
	return store.NewMemoryStore()
}

// SetupIntegrationCounter creates the login failure counter named by the
// config, falling back to the in-memory counter when memcached is down.
func SetupIntegrationCounter(t *testing.T, cfg IntegrationTestConfig) throttle.Counter {
	if cfg.ThrottleBackend == "memcached" {
		mc, err := throttle.NewMemcachedCounter(cfg.MemcachedAddrs, 500*time.Millisecond, 2)
		if err == nil && mc.Ping() == nil {
			t.Cleanup(func() { _ = mc.Close() })
			t.Logf("Using memcached counter at %s", cfg.MemcachedAddrs)
			return mc
		}
		t.Logf("Memcached not available, using in-memory counter")
	}
	return throttle.NewMemoryCounter()
}
