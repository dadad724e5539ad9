package integrationtest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/alicebob/miniredis/v2"
	"github.com/fakhrymubarak/weather-dashboard/internal/config"
	"github.com/fakhrymubarak/weather-dashboard/internal/handler"
	"github.com/fakhrymubarak/weather-dashboard/internal/location"
	"github.com/fakhrymubarak/weather-dashboard/internal/middleware"
	"github.com/fakhrymubarak/weather-dashboard/internal/preferences"
	"github.com/fakhrymubarak/weather-dashboard/internal/redis"
	"github.com/fakhrymubarak/weather-dashboard/internal/repository"
	"github.com/fakhrymubarak/weather-dashboard/internal/service"
)

const (
	// malformedLat makes the mock /onecall drop current.weather.
	malformedLat = "1"
	knownCity    = "Colombo"
)

var miniRedisMock *miniredis.Miniredis

func createMockRedisServer() {
	miniRedisMock = miniredis.NewMiniRedis()
	if err := miniRedisMock.StartAddr(config.GetTestRedisMockPort()); err != nil {
		panic(err)
	}
}

// mockOWM serves the three provider endpoints and counts /onecall hits.
type mockOWM struct {
	*httptest.Server
	oneCallHits atomic.Int32
}

func newMockOWM() *mockOWM {
	m := &mockOWM{}
	mux := http.NewServeMux()
	mux.HandleFunc("/onecall", func(w http.ResponseWriter, r *http.Request) {
		m.oneCallHits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		lat, _ := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
		withWeather := lat != 1
		_, _ = w.Write(repository.OneCallFixture(20, 48, 8, withWeather))
	})
	mux.HandleFunc("/weather", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !strings.EqualFold(r.URL.Query().Get("q"), knownCity) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"name":  knownCity,
			"coord": map[string]float64{"lat": 6.9271, "lon": 79.8612},
		})
	})
	mux.HandleFunc("/geo/1.0/direct", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"name":"Colombo","lat":6.9271,"lon":79.8612,"country":"LK","state":"Western Province"},
			{"name":"Colombo","lat":-20.0,"lon":-45.0,"country":"BR"}
		]`))
	})
	m.Server = httptest.NewServer(mux)
	return m
}

// newDashboardServer wires the same stack as main against the current viper settings.
func newDashboardServer(ctx context.Context) (*httptest.Server, error) {
	apiKey, err := config.RequireOpenWeatherMapAPIKey()
	if err != nil {
		return nil, err
	}
	prefs, err := preferences.Open(ctx, preferences.NewRedisPersister(redis.GetClient(), config.GetPreferencesKey()))
	if err != nil {
		return nil, err
	}

	provider := repository.NewOpenWeatherClient(apiKey)
	weatherService := service.NewWeatherService(repository.NewWeatherRepository(provider))
	resolver := location.NewResolver(location.NewPositioner(config.GetDeviceSource()), provider)

	mux := http.NewServeMux()
	h := handler.NewWeatherHandler(weatherService, resolver, prefs)
	h.Register(mux)
	h.RegisterPreferences(mux)

	return httptest.NewServer(middleware.Recover(middleware.RateLimitMiddleware(mux))), nil
}
