package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/weatherupdate/weather-update-service/internal/models"
	"github.com/weatherupdate/weather-update-service/internal/observability"
)

// WeatherClient is the provider-facing interface. GetForecast returns up to
// days*8 three-hour entries (the provider serves 8 slots per day).
type WeatherClient interface {
	GetCurrentWeather(ctx context.Context, city string) (models.CurrentWeather, error)
	GetForecast(ctx context.Context, city string, days int) ([]models.ForecastEntry, error)
	ValidateAPIKey(ctx context.Context) error
}

var (
	ErrInvalidAPIKey   = errors.New("invalid API key")
	ErrCityNotFound    = errors.New("city not found")
	ErrUpstreamFailure = errors.New("upstream failure")
	ErrRateLimited     = errors.New("rate limited")
)

// slotsPerDay is the provider's 3-hour forecast resolution.
const slotsPerDay = 8

// OpenWeatherClient calls the OpenWeatherMap current-conditions and forecast
// endpoints. A provider failure surfaces immediately to the caller; there is
// no retry.
type OpenWeatherClient struct {
	apiKey      string
	currentURL  string
	forecastURL string
	timeout     time.Duration
	client      *http.Client
}

// NewOpenWeatherClient validates the key shape and returns a client.
// currentURL and forecastURL are the provider endpoint base URLs.
func NewOpenWeatherClient(apiKey, currentURL, forecastURL string, timeout time.Duration) (*OpenWeatherClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidAPIKey)
	}
	if len(apiKey) < 10 {
		return nil, fmt.Errorf("%w: API key appears invalid (too short)", ErrInvalidAPIKey)
	}

	return &OpenWeatherClient{
		apiKey:      apiKey,
		currentURL:  currentURL,
		forecastURL: forecastURL,
		timeout:     timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// conditions is the shared weather[] element of both provider responses.
type conditions struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

// slot is the shared measurement shape of both provider responses.
type slot struct {
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Weather []conditions `json:"weather"`
	Wind    struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Visibility int `json:"visibility"`
}

type currentResponse struct {
	slot
	Name string `json:"name"`
	Dt   int64  `json:"dt"`
}

type forecastResponse struct {
	City struct {
		Name string `json:"name"`
	} `json:"city"`
	List []struct {
		slot
		Dt int64 `json:"dt"`
	} `json:"list"`
}

// GetCurrentWeather fetches current conditions for the city.
func (c *OpenWeatherClient) GetCurrentWeather(ctx context.Context, city string) (models.CurrentWeather, error) {
	body, err := c.callAPI(ctx, c.currentURL, map[string]string{"q": city})
	if err != nil {
		return models.CurrentWeather{}, err
	}

	var apiResp currentResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return models.CurrentWeather{}, fmt.Errorf("parse response: %w", err)
	}
	return c.mapCurrent(apiResp, city), nil
}

// GetForecast fetches the 3-hourly forecast for the city covering days days.
// days is clamped to 1..5 (the provider horizon).
func (c *OpenWeatherClient) GetForecast(ctx context.Context, city string, days int) ([]models.ForecastEntry, error) {
	if days < 1 {
		days = 1
	}
	if days > 5 {
		days = 5
	}
	params := map[string]string{
		"q":   city,
		"cnt": fmt.Sprintf("%d", days*slotsPerDay),
	}
	body, err := c.callAPI(ctx, c.forecastURL, params)
	if err != nil {
		return nil, err
	}

	var apiResp forecastResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	entries := make([]models.ForecastEntry, 0, len(apiResp.List))
	for _, s := range apiResp.List {
		entries = append(entries, mapForecastEntry(s.slot, s.Dt))
	}
	return entries, nil
}

// callAPI performs one provider request and returns the response body.
// Exactly one upstream call per invocation.
func (c *OpenWeatherClient) callAPI(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, endpoint, params)
	if err != nil {
		observability.ProviderCallsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("build request: %w", err)
	}

	corrID := extractCorrelationID(ctx)
	if corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		duration := time.Since(start).Seconds()
		observability.ProviderCallsTotal.WithLabelValues("error").Inc()
		observability.ProviderCallDuration.WithLabelValues("error").Observe(duration)

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("request timeout: %w", err)
		}
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start).Seconds()
	status := statusLabel(resp.StatusCode)
	observability.ProviderCallsTotal.WithLabelValues(status).Inc()
	observability.ProviderCallDuration.WithLabelValues(status).Observe(duration)

	if err := c.handleErrorResponse(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}

func (c *OpenWeatherClient) buildRequest(ctx context.Context, endpoint string, params map[string]string) (*http.Request, error) {
	baseURL, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	values.Set("appid", c.apiKey)
	values.Set("units", "metric")
	baseURL.RawQuery = values.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *OpenWeatherClient) handleErrorResponse(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: invalid API key", ErrInvalidAPIKey)
	case http.StatusNotFound:
		return fmt.Errorf("%w", ErrCityNotFound)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w", ErrRateLimited)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}

	return nil
}

func (c *OpenWeatherClient) mapCurrent(apiResp currentResponse, city string) models.CurrentWeather {
	condition, icon := mapCondition(apiResp.Weather)

	displayName := apiResp.Name
	if displayName == "" {
		displayName = city
	}

	ts := time.Now().UTC()
	if apiResp.Dt > 0 {
		ts = time.Unix(apiResp.Dt, 0).UTC()
	}

	return models.CurrentWeather{
		City:         displayName,
		Condition:    condition,
		Icon:         icon,
		TemperatureC: roundC(apiResp.Main.Temp),
		FeelsLikeC:   roundC(apiResp.Main.FeelsLike),
		HumidityPct:  apiResp.Main.Humidity,
		WindSpeedKmh: windKmh(apiResp.Wind.Speed),
		VisibilityKm: visibilityKm(apiResp.Visibility),
		Timestamp:    ts,
	}
}

func mapForecastEntry(s slot, dt int64) models.ForecastEntry {
	condition, icon := mapCondition(s.Weather)
	return models.ForecastEntry{
		Timestamp:    time.Unix(dt, 0).UTC(),
		Condition:    condition,
		Icon:         icon,
		TemperatureC: roundC(s.Main.Temp),
		FeelsLikeC:   roundC(s.Main.FeelsLike),
		HumidityPct:  s.Main.Humidity,
		WindSpeedKmh: windKmh(s.Wind.Speed),
		VisibilityKm: visibilityKm(s.Visibility),
	}
}

// mapCondition returns the title-cased description and the icon for the
// provider's main condition group.
func mapCondition(w []conditions) (string, string) {
	if len(w) == 0 {
		return "", ConditionIcon("")
	}
	description := w[0].Description
	if description == "" {
		description = w[0].Main
	}
	return titleCase(description), ConditionIcon(w[0].Main)
}

// roundC rounds a metric temperature to a whole degree Celsius.
func roundC(t float64) int {
	return int(math.Round(t))
}

// windKmh converts provider wind speed (m/s in metric units) to whole km/h.
func windKmh(ms float64) int {
	return int(math.Round(ms * 3.6))
}

// visibilityKm converts provider visibility (meters) to km with one decimal.
func visibilityKm(m int) float64 {
	return math.Round(float64(m)/100) / 10
}

// titleCase uppercases the first letter of each space-separated word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func extractCorrelationID(ctx context.Context) string {
	if corrIDVal := ctx.Value("correlation_id"); corrIDVal != nil {
		if corrID, ok := corrIDVal.(string); ok {
			return corrID
		}
	}
	return ""
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}

// ValidateAPIKey makes a lightweight provider call to confirm the key is
// active. Used by the health endpoint.
func (c *OpenWeatherClient) ValidateAPIKey(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := c.buildRequest(ctx, c.currentURL, map[string]string{"q": "London"})
	if err != nil {
		return fmt.Errorf("build validation request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("validation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: API key is invalid or not activated", ErrInvalidAPIKey)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("validation failed: HTTP %d", resp.StatusCode)
	}

	return nil
}
