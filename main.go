package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fakhrymubarak/weather-dashboard/internal/config"
	"github.com/fakhrymubarak/weather-dashboard/internal/handler"
	"github.com/fakhrymubarak/weather-dashboard/internal/location"
	"github.com/fakhrymubarak/weather-dashboard/internal/middleware"
	"github.com/fakhrymubarak/weather-dashboard/internal/model"
	"github.com/fakhrymubarak/weather-dashboard/internal/preferences"
	"github.com/fakhrymubarak/weather-dashboard/internal/redis"
	"github.com/fakhrymubarak/weather-dashboard/internal/repository"
	"github.com/fakhrymubarak/weather-dashboard/internal/service"
)

func main() {
	log := config.GetLogger()
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := newServer(ctx)
	if err != nil {
		log.Fatalw("Startup failed", "error", err)
	}

	go func() {
		log.Infow("Weather dashboard server running", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("Server stopped", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Graceful shutdown failed", "error", err)
	}
	_ = redis.GetClient().Close()
}

// newServer wires config, storage, resolver and orchestrator into an http.Server.
// A missing API key or unreachable Redis is a startup error.
func newServer(ctx context.Context) (*http.Server, error) {
	apiKey, err := config.RequireOpenWeatherMapAPIKey()
	if err != nil {
		return nil, err
	}
	if err := redis.Ping(ctx); err != nil {
		return nil, err
	}

	prefs, err := preferences.Open(ctx, preferences.NewRedisPersister(redis.GetClient(), config.GetPreferencesKey()))
	if err != nil {
		return nil, err
	}

	provider := repository.NewOpenWeatherClient(apiKey)
	weatherService := service.NewWeatherService(repository.NewWeatherRepository(provider))
	resolver := location.NewResolver(location.NewPositioner(config.GetDeviceSource()), provider)

	weatherService.Subscribe(func(coord model.Coordinate, state model.QueryState) {
		config.GetLogger().Debugw("Weather state changed", "coord", coord.Key(), "status", state.Status, "error", state.Err)
	})

	mux := http.NewServeMux()
	h := handler.NewWeatherHandler(weatherService, resolver, prefs)
	h.Register(mux)
	h.RegisterPreferences(mux)

	middleware.StartRateLimiterCleanup()

	return &http.Server{
		Addr:              ":" + config.GetServerPort(),
		Handler:           middleware.Recover(middleware.RateLimitMiddleware(mux)),
		ReadHeaderTimeout: config.GetServerTimeoutDuration("read_header_timeout", 15*time.Second),
		ReadTimeout:       config.GetServerTimeoutDuration("read_timeout", 15*time.Second),
		WriteTimeout:      config.GetServerTimeoutDuration("write_timeout", 10*time.Second),
		IdleTimeout:       config.GetServerTimeoutDuration("idle_timeout", 30*time.Second),
	}, nil
}
