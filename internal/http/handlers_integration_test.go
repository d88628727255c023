//go:build integration
// +build integration

package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/weatherupdate/weather-update-service/internal/auth"
	"github.com/weatherupdate/weather-update-service/internal/testhelpers"
	"github.com/weatherupdate/weather-update-service/internal/throttle"
	"github.com/weatherupdate/weather-update-service/internal/traffic"
)

// TestFullFlow_Integration runs the register, login, and current weather flow
// against the live provider with the store and throttle backends named by the
// integration environment.
func TestFullFlow_Integration(t *testing.T) {
	traffic.Reset()
	t.Cleanup(traffic.Reset)

	cfg := testhelpers.GetIntegrationConfig(t)
	weatherService := testhelpers.SetupIntegrationService(t, cfg)
	weatherClient := testhelpers.SetupIntegrationClient(t, cfg)
	credStore := testhelpers.SetupIntegrationStore(t, cfg)
	counter := testhelpers.SetupIntegrationCounter(t, cfg)

	logger := zap.NewNop()
	issuer, err := auth.NewIssuer(credStore, "integration-secret", 30*time.Minute)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	loginLimiter := throttle.NewLoginLimiter(counter, 5, time.Minute, logger)

	healthConfig := &HealthConfig{
		StartTime: time.Now(),
		StorePing: credStore.Ping,
	}
	handler := NewHandler(
		weatherService, weatherClient, credStore, issuer, loginLimiter,
		healthConfig, logger, 2, 80,
	)
	router := NewRouter(handler, issuer, logger, nil, 10*time.Second)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	creds, _ := json.Marshal(map[string]string{
		"username": "integration_user",
		"password": "integration-pass-1",
	})
	resp, err := http.Post(srv.URL+"/register", "application/json", bytes.NewReader(creds))
	if err != nil {
		t.Fatalf("POST /register: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, want 201", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+"/login", "application/json", bytes.NewReader(creds))
	if err != nil {
		t.Fatalf("POST /login: %v", err)
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want 200", resp.StatusCode)
	}
	if login.Token == "" {
		t.Fatal("login returned empty token")
	}

	req, err := http.NewRequest("GET", srv.URL+"/weather/current?city=London", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+login.Token)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /weather/current: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("current weather status = %d, want 200 (API key may not be activated yet)", resp.StatusCode)
	}
	var weather struct {
		City      string `json:"city"`
		Condition string `json:"condition"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&weather); err != nil {
		t.Fatalf("decode weather: %v", err)
	}
	if weather.City == "" {
		t.Error("current weather returned empty city")
	}
	if weather.Condition == "" {
		t.Error("current weather returned empty condition")
	}
}
