package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/weatherupdate/weather-update-service/internal/auth"
	"github.com/weatherupdate/weather-update-service/internal/client"
	"github.com/weatherupdate/weather-update-service/internal/lifecycle"
	"github.com/weatherupdate/weather-update-service/internal/observability"
	"github.com/weatherupdate/weather-update-service/internal/service"
	"github.com/weatherupdate/weather-update-service/internal/store"
	"github.com/weatherupdate/weather-update-service/internal/throttle"
	"github.com/weatherupdate/weather-update-service/internal/traffic"
	"github.com/weatherupdate/weather-update-service/internal/validation"
)

// HealthConfig holds lifecycle thresholds for the health handler.
type HealthConfig struct {
	OverloadWindow         time.Duration
	OverloadThresholdPct   int
	RateLimitRPS           int
	DegradedWindow         time.Duration
	DegradedErrorPct       int
	IdleWindow             time.Duration
	IdleThresholdReqPerMin int
	MinimumLifespan        time.Duration
	StartTime              time.Time
	// StorePing, when set, is called to check credential store reachability.
	StorePing func() error
	// ThrottlePing, when set, is called to check the login failure counter
	// backend. Used when the backend is memcached.
	ThrottlePing func() error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	weather          *service.WeatherService
	client           client.WeatherClient
	store            store.Store
	issuer           *auth.Issuer
	loginLimiter     *throttle.LoginLimiter
	healthConfig     *HealthConfig
	logger           *zap.Logger
	cityMinLength    int
	cityMaxLength    int
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler.
func NewHandler(
	weather *service.WeatherService,
	client client.WeatherClient,
	st store.Store,
	issuer *auth.Issuer,
	loginLimiter *throttle.LoginLimiter,
	healthConfig *HealthConfig,
	logger *zap.Logger,
	cityMinLength, cityMaxLength int,
) *Handler {
	return &Handler{
		weather:       weather,
		client:        client,
		store:         st,
		issuer:        issuer,
		loginLimiter:  loginLimiter,
		healthConfig:  healthConfig,
		logger:        logger,
		cityMinLength: cityMinLength,
		cityMaxLength: cityMaxLength,
	}
}

// credentialsRequest is the body of POST /register and POST /login.
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register handles POST /register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var body credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION", "Request body must be JSON with username and password")
		return
	}

	username, err := validation.ValidateUsername(body.Username)
	if err != nil {
		observability.RegistrationsTotal.WithLabelValues("invalid").Inc()
		writeError(w, r, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}
	password, err := validation.ValidatePassword(body.Password)
	if err != nil {
		observability.RegistrationsTotal.WithLabelValues("invalid").Inc()
		writeError(w, r, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		observability.RegistrationsTotal.WithLabelValues("error").Inc()
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "Unable to create account")
		return
	}

	if err := h.store.Register(r.Context(), username, hash); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			observability.RegistrationsTotal.WithLabelValues("conflict").Inc()
			writeError(w, r, http.StatusConflict, "USERNAME_TAKEN", "Username already exists.")
			return
		}
		observability.RegistrationsTotal.WithLabelValues("error").Inc()
		if logger := loggerFromRequest(r); logger != nil {
			logger.Error("register failed", zap.Error(err))
		}
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "Unable to create account")
		return
	}

	observability.RegistrationsTotal.WithLabelValues("created").Inc()
	if logger := loggerFromRequest(r); logger != nil {
		logger.Info("account created", zap.String("username", username))
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "Account created successfully for '" + username + "'.",
	})
}

// loginResponse is the body of a successful POST /login.
type loginResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"tokenType"`
	ExpiresIn int    `json:"expiresIn"` // seconds
}

// Login handles POST /login. Throttling is applied before the credential
// check so a brute-forced username never reaches the hash compare.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION", "Request body must be JSON with username and password")
		return
	}

	username, err := validation.ValidateUsername(body.Username)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}
	password, err := validation.ValidatePassword(body.Password)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	if h.loginLimiter != nil && !h.loginLimiter.Allow(r.Context(), username) {
		observability.LoginsTotal.WithLabelValues("throttled").Inc()
		writeError(w, r, http.StatusTooManyRequests, "LOGIN_THROTTLED", "Too many failed login attempts; try again later")
		return
	}

	token, err := h.issuer.Issue(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			if h.loginLimiter != nil {
				h.loginLimiter.RecordFailure(r.Context(), username)
			}
			observability.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
			writeError(w, r, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password.")
			return
		}
		observability.LoginsTotal.WithLabelValues("error").Inc()
		if logger := loggerFromRequest(r); logger != nil {
			logger.Error("login failed", zap.Error(err))
		}
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "Unable to log in")
		return
	}

	if h.loginLimiter != nil {
		h.loginLimiter.RecordSuccess(r.Context(), username)
	}
	observability.LoginsTotal.WithLabelValues("success").Inc()
	observability.TokensIssuedTotal.Inc()
	if logger := loggerFromRequest(r); logger != nil {
		logger.Info("login succeeded", zap.String("username", username))
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		TokenType: "bearer",
		ExpiresIn: int(h.issuer.TTL().Seconds()),
	})
}

// GetMe handles GET /me. Requires a verified bearer token.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"username": usernameFromContext(r.Context()),
	})
}

// GetCurrentWeather handles GET /weather/current?city=...
func (h *Handler) GetCurrentWeather(w http.ResponseWriter, r *http.Request) {
	city, err := validation.ValidateCity(r.URL.Query().Get("city"), h.cityMinLength, h.cityMaxLength)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_CITY", err.Error())
		return
	}

	traffic.RecordRequest()
	result, err := h.weather.CurrentWeather(r.Context(), city)
	if err != nil {
		traffic.RecordError()
		writeProviderError(w, r, err)
		return
	}
	traffic.RecordSuccess()
	writeJSON(w, http.StatusOK, result)
}

// forecastResponse is the body of GET /weather/forecast.
type forecastResponse struct {
	City    string      `json:"city"`
	Days    int         `json:"days"`
	Entries interface{} `json:"entries"`
}

// GetForecast handles GET /weather/forecast?city=...&days=...
func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	city, err := validation.ValidateCity(r.URL.Query().Get("city"), h.cityMinLength, h.cityMaxLength)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_CITY", err.Error())
		return
	}
	days, err := validation.ValidateDays(r.URL.Query().Get("days"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_DAYS", err.Error())
		return
	}

	traffic.RecordRequest()
	entries, err := h.weather.Forecast(r.Context(), city, days)
	if err != nil {
		traffic.RecordError()
		writeProviderError(w, r, err)
		return
	}
	traffic.RecordSuccess()
	writeJSON(w, http.StatusOK, forecastResponse{
		City:    city,
		Days:    days,
		Entries: entries,
	})
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus(r.Context())

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := make(map[string]string)
	if result.status == "degraded" {
		checks["provider"] = "unhealthy"
	} else {
		checks["provider"] = "healthy"
	}
	if h.healthConfig != nil && h.healthConfig.StorePing != nil {
		if h.healthConfig.StorePing() == nil {
			checks["store"] = "healthy"
		} else {
			checks["store"] = "unhealthy"
			if result.statusCode == http.StatusOK {
				result = healthResult{"degraded", http.StatusServiceUnavailable, "store_unreachable"}
			}
		}
	}
	if h.healthConfig != nil && h.healthConfig.ThrottlePing != nil {
		if h.healthConfig.ThrottlePing() == nil {
			checks["throttle"] = "healthy"
		} else {
			// Throttle fails open; degraded counter backend does not fail the service.
			checks["throttle"] = "unhealthy"
		}
	}
	resp := map[string]interface{}{
		"status":    result.status,
		"service":   "weather-update-service",
		"version":   "dev",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(result.statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

// computeHealthStatus determines the current health status by evaluating multiple conditions
// in priority order. Returns healthResult with status, HTTP status code, and reason.
// Decision order: shutting-down > API key invalid > overloaded > idle > degraded > healthy.
// Each condition is evaluated only if previous conditions are not met.
func (h *Handler) computeHealthStatus(ctx context.Context) healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if err := h.client.ValidateAPIKey(ctx); err != nil {
		return healthResult{"degraded", http.StatusServiceUnavailable, "api_key_invalid"}
	}
	if h.healthConfig == nil {
		return healthResult{"healthy", http.StatusOK, ""}
	}
	// Overloaded when rate-limit denials exceed the configured share of window capacity.
	threshold := float64(h.healthConfig.RateLimitRPS) * h.healthConfig.OverloadWindow.Seconds() * float64(h.healthConfig.OverloadThresholdPct) / 100
	if float64(traffic.LoadCount(h.healthConfig.OverloadWindow)) > threshold {
		return healthResult{"overloaded", http.StatusServiceUnavailable, "overload_threshold"}
	}
	// Idle only after the minimum lifespan, so a fresh deploy is not reported idle.
	if h.healthConfig.IdleWindow > 0 && h.healthConfig.MinimumLifespan > 0 && time.Since(h.healthConfig.StartTime) >= h.healthConfig.MinimumLifespan {
		if traffic.RequestCount(h.healthConfig.IdleWindow) < h.healthConfig.IdleThresholdReqPerMin {
			return healthResult{"idle", http.StatusOK, "low_traffic"}
		}
	}
	// Degraded when the provider error rate breaches the configured threshold.
	if h.healthConfig.DegradedWindow > 0 && h.healthConfig.DegradedErrorPct > 0 {
		errCount, total := traffic.ErrorRate(h.healthConfig.DegradedWindow)
		if total > 0 {
			pct := float64(errCount) * 100 / float64(total)
			if pct >= float64(h.healthConfig.DegradedErrorPct) {
				return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
			}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// loggerFromRequest extracts the per-request logger placed in context by
// CorrelationIDMiddleware.
func loggerFromRequest(r *http.Request) *zap.Logger {
	if logger, ok := r.Context().Value("logger").(*zap.Logger); ok {
		return logger
	}
	return nil
}

// writeJSON writes a JSON response with the specified HTTP status code.
// Sets Content-Type header to application/json and encodes the provided value.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID := ""
	if v := r.Context().Value("correlation_id"); v != nil {
		corrID = v.(string)
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}

// writeProviderError writes a 502 Bad Gateway response carrying the
// gateway's human-readable message. Logs the underlying error at DEBUG level
// if logger is available in request context.
func writeProviderError(w http.ResponseWriter, r *http.Request, err error) {
	message := "Weather service unavailable. Try again later."
	var pe *service.ProviderError
	if errors.As(err, &pe) {
		message = pe.Message
	}
	writeError(w, r, http.StatusBadGateway, "PROVIDER_ERROR", message)
	if logger := loggerFromRequest(r); logger != nil {
		logger.Debug("provider error", zap.Error(err))
	}
}
