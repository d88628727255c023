package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/weatherupdate/weather-update-service/internal/client"
	"github.com/weatherupdate/weather-update-service/internal/models"
)

// mockClient records calls and returns canned results.
type mockClient struct {
	currentCalls  int
	forecastCalls int
	lastCity      string
	lastDays      int
	current       models.CurrentWeather
	entries       []models.ForecastEntry
	err           error
}

func (m *mockClient) GetCurrentWeather(ctx context.Context, city string) (models.CurrentWeather, error) {
	m.currentCalls++
	m.lastCity = city
	if m.err != nil {
		return models.CurrentWeather{}, m.err
	}
	return m.current, nil
}

func (m *mockClient) GetForecast(ctx context.Context, city string, days int) ([]models.ForecastEntry, error) {
	m.forecastCalls++
	m.lastCity = city
	m.lastDays = days
	if m.err != nil {
		return nil, m.err
	}
	return m.entries, nil
}

func (m *mockClient) ValidateAPIKey(ctx context.Context) error { return nil }

func TestCurrentWeather_NormalizesCity(t *testing.T) {
	mock := &mockClient{current: models.CurrentWeather{City: "London", TemperatureC: 10}}
	svc := NewWeatherService(mock)

	got, err := svc.CurrentWeather(context.Background(), "  LoNdOn  ")
	if err != nil {
		t.Fatalf("CurrentWeather: %v", err)
	}
	if mock.lastCity != "london" {
		t.Errorf("client received city %q, want london", mock.lastCity)
	}
	if got.City != "London" {
		t.Errorf("City = %q, want London", got.City)
	}
	if mock.currentCalls != 1 {
		t.Errorf("client calls = %d, want exactly 1", mock.currentCalls)
	}
}

func TestForecast_PassesDaysThrough(t *testing.T) {
	mock := &mockClient{entries: make([]models.ForecastEntry, 24)}
	svc := NewWeatherService(mock)

	entries, err := svc.Forecast(context.Background(), "Tokyo", 3)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if mock.lastDays != 3 {
		t.Errorf("client received days = %d, want 3", mock.lastDays)
	}
	if len(entries) != 24 {
		t.Errorf("len(entries) = %d, want 24", len(entries))
	}
	if mock.forecastCalls != 1 {
		t.Errorf("client calls = %d, want exactly 1", mock.forecastCalls)
	}
}

func TestCurrentWeather_ErrorTranslation(t *testing.T) {
	tests := []struct {
		name        string
		clientErr   error
		wantMessage string
	}{
		{
			"city not found",
			client.ErrCityNotFound,
			"City 'atlantis' not found.",
		},
		{
			"rate limited",
			client.ErrRateLimited,
			"Weather provider rate limit reached. Try again shortly.",
		},
		{
			"invalid key",
			client.ErrInvalidAPIKey,
			"Weather provider rejected our credentials.",
		},
		{
			"timeout",
			context.DeadlineExceeded,
			"Weather provider timed out. Try again later.",
		},
		{
			"upstream failure",
			client.ErrUpstreamFailure,
			"Weather service unavailable. Try again later.",
		},
		{
			"unknown error",
			errors.New("connection reset"),
			"Weather service unavailable. Try again later.",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mock := &mockClient{err: tc.clientErr}
			svc := NewWeatherService(mock)

			_, err := svc.CurrentWeather(context.Background(), "Atlantis")
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var provErr *ProviderError
			if !errors.As(err, &provErr) {
				t.Fatalf("error = %T, want *ProviderError", err)
			}
			if provErr.Message != tc.wantMessage {
				t.Errorf("Message = %q, want %q", provErr.Message, tc.wantMessage)
			}
			if !errors.Is(err, tc.clientErr) {
				t.Errorf("ProviderError does not wrap the client error %v", tc.clientErr)
			}
			if mock.currentCalls != 1 {
				t.Errorf("client calls = %d, want exactly 1 (no retry)", mock.currentCalls)
			}
		})
	}
}

func TestForecast_ErrorTranslation(t *testing.T) {
	mock := &mockClient{err: client.ErrCityNotFound}
	svc := NewWeatherService(mock)

	_, err := svc.Forecast(context.Background(), "Nowhere", 5)
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("error = %T, want *ProviderError", err)
	}
	if provErr.Message != "City 'nowhere' not found." {
		t.Errorf("Message = %q, want City 'nowhere' not found.", provErr.Message)
	}
	if mock.forecastCalls != 1 {
		t.Errorf("client calls = %d, want exactly 1 (no retry)", mock.forecastCalls)
	}
}

func TestCurrentWeather_NoCaching(t *testing.T) {
	mock := &mockClient{current: models.CurrentWeather{City: "London", Timestamp: time.Now()}}
	svc := NewWeatherService(mock)

	for i := 0; i < 3; i++ {
		if _, err := svc.CurrentWeather(context.Background(), "london"); err != nil {
			t.Fatalf("CurrentWeather call %d: %v", i+1, err)
		}
	}
	if mock.currentCalls != 3 {
		t.Errorf("client calls = %d, want 3 (every request hits the provider)", mock.currentCalls)
	}
}
