package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/weatherupdate/weather-update-service/internal/models"
)

// APIError is a decoded API service error envelope. Status is the HTTP
// status; Code and Message come from the envelope body.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

// ErrUnreachable is returned when the API service cannot be reached at all.
// The dashboard shows a friendly message instead of crashing the session.
var ErrUnreachable = &APIError{
	Status:  0,
	Code:    "API_UNREACHABLE",
	Message: "Cannot reach the weather API. Make sure the API service is running.",
}

// APIClient is the typed HTTP client the dashboard uses to talk to the API
// service.
type APIClient struct {
	baseURL string
	client  *http.Client
}

// NewAPIClient creates an APIClient for the API service at baseURL.
func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Register creates an account and returns the API's confirmation message.
func (c *APIClient) Register(ctx context.Context, username, password string) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	err := c.postJSON(ctx, "/register", map[string]string{
		"username": username,
		"password": password,
	}, "", &resp)
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Login authenticates and returns the bearer token.
func (c *APIClient) Login(ctx context.Context, username, password string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	err := c.postJSON(ctx, "/login", map[string]string{
		"username": username,
		"password": password,
	}, "", &resp)
	if err != nil {
		return "", err
	}
	return resp.Token, nil
}

// Me returns the username the token belongs to.
func (c *APIClient) Me(ctx context.Context, token string) (string, error) {
	var resp struct {
		Username string `json:"username"`
	}
	if err := c.getJSON(ctx, "/me", nil, token, &resp); err != nil {
		return "", err
	}
	return resp.Username, nil
}

// CurrentWeather fetches current conditions for the city.
func (c *APIClient) CurrentWeather(ctx context.Context, token, city string) (models.CurrentWeather, error) {
	var resp models.CurrentWeather
	params := url.Values{"city": {city}}
	if err := c.getJSON(ctx, "/weather/current", params, token, &resp); err != nil {
		return models.CurrentWeather{}, err
	}
	return resp, nil
}

// Forecast fetches days of 3-hourly forecast entries for the city.
func (c *APIClient) Forecast(ctx context.Context, token, city string, days int) (models.Forecast, error) {
	var resp models.Forecast
	params := url.Values{
		"city": {city},
		"days": {strconv.Itoa(days)},
	}
	if err := c.getJSON(ctx, "/weather/forecast", params, token, &resp); err != nil {
		return models.Forecast{}, err
	}
	return resp, nil
}

func (c *APIClient) postJSON(ctx context.Context, path string, body interface{}, token string, out interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, token, out)
}

func (c *APIClient) getJSON(ctx context.Context, path string, params url.Values, token string, out interface{}) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, token, out)
}

// do sends the request and decodes either the success body into out or the
// error envelope into an APIError. Transport failures map to ErrUnreachable.
func (c *APIClient) do(req *http.Request, token string, out interface{}) error {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return ErrUnreachable
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	apiErr := &APIError{Status: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error.Code != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	} else {
		apiErr.Code = "UNKNOWN"
		apiErr.Message = fmt.Sprintf("Request failed with status %d", resp.StatusCode)
	}
	return apiErr
}
