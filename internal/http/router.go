package http

import (
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/weatherupdate/weather-update-service/internal/auth"
	"github.com/weatherupdate/weather-update-service/internal/observability"
)

// NewRouter assembles the API route table. Registration and login are open;
// the weather routes and /me sit behind bearer auth, and the weather routes
// additionally get rate limiting and a request deadline. Auth runs before
// rate limiting so an unauthenticated caller cannot drain the token bucket.
func NewRouter(h *Handler, issuer *auth.Issuer, logger *zap.Logger, limiter *rate.Limiter, requestTimeout time.Duration) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)

	router.HandleFunc("/health", h.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler())
	router.HandleFunc("/register", h.Register).Methods("POST")
	router.HandleFunc("/login", h.Login).Methods("POST")

	me := router.PathPrefix("/me").Subrouter()
	me.Use(BearerAuthMiddleware(issuer))
	me.HandleFunc("", h.GetMe).Methods("GET")

	weather := router.PathPrefix("/weather").Subrouter()
	weather.Use(BearerAuthMiddleware(issuer))
	weather.Use(RateLimitMiddleware(limiter))
	weather.Use(TimeoutMiddleware(requestTimeout))
	weather.HandleFunc("/current", h.GetCurrentWeather).Methods("GET")
	weather.HandleFunc("/forecast", h.GetForecast).Methods("GET")

	return router
}
