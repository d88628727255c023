package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/weatherupdate/weather-update-service/internal/client"
	"github.com/weatherupdate/weather-update-service/internal/models"
	"github.com/weatherupdate/weather-update-service/internal/observability"
)

// ProviderError wraps any weather provider failure with a human-readable
// message. The HTTP edge maps it to 502; the distinction between rate limit,
// unknown city, and upstream failure lives in the message only.
type ProviderError struct {
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// WeatherService is the gateway the handlers use. It normalizes the city,
// delegates to the provider client, and translates every client failure into
// a ProviderError. Weather data is fetched live on every call and never
// cached or persisted.
type WeatherService struct {
	client client.WeatherClient
}

// NewWeatherService creates a WeatherService over the provider client.
func NewWeatherService(client client.WeatherClient) *WeatherService {
	return &WeatherService{client: client}
}

// loggerFromContext extracts a zap.Logger from request context if present.
// Returns nil if logger is not found or context is invalid.
func loggerFromContext(ctx context.Context) *zap.Logger {
	if v := ctx.Value("logger"); v != nil {
		if l, ok := v.(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return nil
}

// CurrentWeather fetches live current conditions for the city. Exactly one
// provider call per invocation; a failure surfaces immediately as a
// ProviderError.
func (s *WeatherService) CurrentWeather(ctx context.Context, city string) (models.CurrentWeather, error) {
	key := normalizeCity(city)
	start := time.Now()
	logger := loggerFromContext(ctx)

	observability.RecordWeatherQuery(key)
	data, err := s.client.GetCurrentWeather(ctx, key)
	if err != nil {
		observability.ProviderErrorsTotal.WithLabelValues(string(client.CategorizeError(err))).Inc()
		if logger != nil {
			logger.Warn("current weather fetch failed", zap.String("city", key), zap.Error(err))
		}
		return models.CurrentWeather{}, translateProviderError(key, err)
	}
	if logger != nil {
		logger.Debug("current weather served", zap.String("city", key), zap.Duration("duration", time.Since(start)))
	}
	return data, nil
}

// Forecast fetches days of 3-hourly forecast entries for the city.
func (s *WeatherService) Forecast(ctx context.Context, city string, days int) ([]models.ForecastEntry, error) {
	key := normalizeCity(city)
	start := time.Now()
	logger := loggerFromContext(ctx)

	observability.RecordWeatherQuery(key)
	entries, err := s.client.GetForecast(ctx, key, days)
	if err != nil {
		observability.ProviderErrorsTotal.WithLabelValues(string(client.CategorizeError(err))).Inc()
		if logger != nil {
			logger.Warn("forecast fetch failed", zap.String("city", key), zap.Int("days", days), zap.Error(err))
		}
		return nil, translateProviderError(key, err)
	}
	if logger != nil {
		logger.Debug("forecast served", zap.String("city", key), zap.Int("days", days),
			zap.Int("entries", len(entries)), zap.Duration("duration", time.Since(start)))
	}
	return entries, nil
}

// translateProviderError maps a client failure to a ProviderError with a
// message fit for end users.
func translateProviderError(city string, err error) error {
	msg := "Weather service unavailable. Try again later."
	switch {
	case errors.Is(err, client.ErrCityNotFound):
		msg = "City '" + city + "' not found."
	case errors.Is(err, client.ErrRateLimited):
		msg = "Weather provider rate limit reached. Try again shortly."
	case errors.Is(err, client.ErrInvalidAPIKey):
		msg = "Weather provider rejected our credentials."
	case errors.Is(err, context.DeadlineExceeded):
		msg = "Weather provider timed out. Try again later."
	}
	return &ProviderError{Message: msg, Err: err}
}

// normalizeCity normalizes city strings by trimming whitespace and converting
// to lowercase. Ensures consistent provider requests and metric labels
// regardless of input format.
func normalizeCity(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}
