package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/weatherupdate/weather-update-service/internal/auth"
	"github.com/weatherupdate/weather-update-service/internal/client"
	"github.com/weatherupdate/weather-update-service/internal/config"
	httphandler "github.com/weatherupdate/weather-update-service/internal/http"
	"github.com/weatherupdate/weather-update-service/internal/lifecycle"
	"github.com/weatherupdate/weather-update-service/internal/observability"
	"github.com/weatherupdate/weather-update-service/internal/service"
	"github.com/weatherupdate/weather-update-service/internal/store"
	"github.com/weatherupdate/weather-update-service/internal/throttle"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	weatherClient, err := client.NewOpenWeatherClient(
		cfg.ProviderAPIKey,
		cfg.ProviderCurrentURL,
		cfg.ProviderForecastURL,
		cfg.ProviderTimeout,
	)
	if err != nil {
		logger.Fatal("weather client", zap.Error(err))
	}
	weatherService := service.NewWeatherService(weatherClient)

	var credStore store.Store
	switch cfg.StoreBackend {
	case "sqlite":
		st, err := store.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			logger.Fatal("sqlite store", zap.Error(err))
		}
		credStore = st
		logger.Info("store backend: sqlite", zap.String("path", cfg.SQLitePath))
	default:
		credStore = store.NewMemoryStore()
		logger.Info("store backend: memory")
	}

	issuer, err := auth.NewIssuer(credStore, cfg.SecretKey, cfg.TokenTTL)
	if err != nil {
		logger.Fatal("token issuer", zap.Error(err))
	}

	var counter throttle.Counter
	var memcacheCloser *throttle.MemcachedCounter
	switch cfg.ThrottleBackend {
	case "memcached":
		mc, err := throttle.NewMemcachedCounter(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			logger.Fatal("memcached counter", zap.Error(err))
		}
		memcacheCloser = mc
		counter = mc
		logger.Info("throttle backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	default:
		counter = throttle.NewMemoryCounter()
		logger.Info("throttle backend: memory")
	}
	loginLimiter := throttle.NewLoginLimiter(counter, cfg.ThrottleMaxFailures, cfg.ThrottleWindow, logger)

	healthConfig := &httphandler.HealthConfig{
		OverloadWindow:         cfg.OverloadWindow,
		OverloadThresholdPct:   cfg.OverloadThresholdPct,
		RateLimitRPS:           cfg.RateLimitRPS,
		DegradedWindow:         cfg.DegradedWindow,
		DegradedErrorPct:       cfg.DegradedErrorPct,
		IdleWindow:             cfg.IdleWindow,
		IdleThresholdReqPerMin: cfg.IdleThresholdReqPerMin,
		MinimumLifespan:        cfg.MinimumLifespan,
		StartTime:              time.Now(),
		StorePing:              credStore.Ping,
	}
	if memcacheCloser != nil {
		healthConfig.ThrottlePing = memcacheCloser.Ping
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	handler := httphandler.NewHandler(
		weatherService, weatherClient, credStore, issuer, loginLimiter,
		healthConfig, logger, cfg.CityMinLength, cfg.CityMaxLength,
	)

	observability.RegisterTrafficGauges(cfg.OverloadWindow)
	if len(cfg.TrackedCities) > 0 {
		observability.SetTrackedCities(cfg.TrackedCities)
	}

	router := httphandler.NewRouter(handler, issuer, logger, limiter, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	inFlight := httphandler.InFlightCount()
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}

	if err := credStore.Close(); err != nil {
		logger.Error("store close", zap.Error(err))
	}
	if memcacheCloser != nil {
		if err := memcacheCloser.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
}
