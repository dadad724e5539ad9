package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/fakhrymubarak/weather-dashboard/internal/config"
	"github.com/fakhrymubarak/weather-dashboard/internal/location"
	"github.com/fakhrymubarak/weather-dashboard/internal/model"
	"github.com/fakhrymubarak/weather-dashboard/internal/preferences"
	"github.com/fakhrymubarak/weather-dashboard/internal/service"
)

const (
	msgLocationNotFound = "Unable to find location. Please try again."
	msgWeatherFailed    = "Error loading weather data"
)

// LocationResolver resolves device positions and place names.
type LocationResolver interface {
	ResolveDevice(ctx context.Context) model.ResolvedLocation
	ResolvePlace(ctx context.Context, name string) (model.ResolvedLocation, error)
	Search(ctx context.Context, query string) ([]model.ResolvedLocation, error)
}

// PreferenceStore is the user's persisted unit, history and favorites.
type PreferenceStore interface {
	Get() model.Preferences
	ToggleUnit(ctx context.Context) (model.Preferences, error)
	AddRecentSearch(ctx context.Context, name string) (model.Preferences, error)
	ToggleFavorite(ctx context.Context, name string) (model.Preferences, error)
}

type WeatherHandler struct {
	WeatherService service.WeatherServiceInterface
	Resolver       LocationResolver
	Preferences    PreferenceStore
}

func NewWeatherHandler(svc service.WeatherServiceInterface, resolver LocationResolver, prefs PreferenceStore) *WeatherHandler {
	return &WeatherHandler{
		WeatherService: svc,
		Resolver:       resolver,
		Preferences:    prefs,
	}
}

// Register mounts every dashboard route on mux.
func (h *WeatherHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/weather", h.HandleWeather)
	mux.HandleFunc("/weather/current", h.HandleCurrentLocation)
	mux.HandleFunc("/weather/refresh", h.HandleRefresh)
	mux.HandleFunc("/locations", h.HandleSearch)
}

func (h *WeatherHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	writeJSON(w, statusCode, data)
}

func (h *WeatherHandler) writeError(w http.ResponseWriter, statusCode int, errMsg string) {
	h.writeJSONResponse(w, statusCode, model.Response{
		Error:   &errMsg,
		Message: "Error",
	})
}

// HandleWeather serves GET /weather?lat=&lon= and GET /weather?location=.
func (h *WeatherHandler) HandleWeather(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	ctx := r.Context()
	q := r.URL.Query()

	if name := q.Get("location"); name != "" {
		loc, err := h.Resolver.ResolvePlace(ctx, name)
		if err != nil {
			if errors.Is(err, location.ErrResolutionNotFound) {
				h.writeError(w, http.StatusNotFound, msgLocationNotFound)
				return
			}
			h.writeError(w, http.StatusInternalServerError, msgWeatherFailed)
			return
		}
		if _, err := h.Preferences.AddRecentSearch(ctx, loc.Name(name)); err != nil && !errors.Is(err, preferences.ErrEmptyName) {
			config.GetLogger().Warnw("Could not record recent search", "location", name, "error", err)
		}
		h.respondWithWeather(w, r, loc)
		return
	}

	if q.Get("lat") == "" && q.Get("lon") == "" {
		h.writeError(w, http.StatusBadRequest, "Missing 'location' or 'lat'/'lon' query parameters")
		return
	}
	coord, err := parseCoordinate(q.Get("lat"), q.Get("lon"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid 'lat'/'lon' query parameters")
		return
	}
	h.respondWithWeather(w, r, model.ResolvedLocation{Coordinate: coord})
}

// HandleCurrentLocation serves GET /weather/current using the device position,
// falling back to the default coordinate when it is unavailable.
func (h *WeatherHandler) HandleCurrentLocation(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	loc := h.Resolver.ResolveDevice(r.Context())
	h.respondWithWeather(w, r, loc)
}

// HandleRefresh serves POST /weather/refresh, refetching the active coordinate.
func (h *WeatherHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	coord, state, err := h.WeatherService.Refresh(r.Context())
	if errors.Is(err, service.ErrNoCoordinate) {
		h.writeError(w, http.StatusConflict, "No location selected yet")
		return
	}
	h.respondWithState(w, model.ResolvedLocation{Coordinate: coord}, state)
}

// HandleSearch serves GET /locations?q= with up to five matches.
func (h *WeatherHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "Missing 'q' query parameter")
		return
	}
	matches, err := h.Resolver.Search(r.Context(), query)
	if err != nil {
		h.writeError(w, http.StatusNotFound, msgLocationNotFound)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, model.Response{
		Data:    matches,
		Message: "Success",
	})
}

func (h *WeatherHandler) respondWithWeather(w http.ResponseWriter, r *http.Request, loc model.ResolvedLocation) {
	state := h.WeatherService.Fetch(r.Context(), loc.Coordinate)
	h.respondWithState(w, loc, state)
}

func (h *WeatherHandler) respondWithState(w http.ResponseWriter, loc model.ResolvedLocation, state model.QueryState) {
	view := renderDashboard(loc, state, h.Preferences.Get())
	if state.Status != model.StatusSuccess {
		errMsg := msgWeatherFailed
		h.writeJSONResponse(w, http.StatusBadGateway, model.Response{
			Data:    view,
			Error:   &errMsg,
			Message: "Error",
		})
		return
	}
	h.writeJSONResponse(w, http.StatusOK, model.Response{
		Data:    view,
		Message: "Success",
	})
}

func parseCoordinate(latStr, lonStr string) (model.Coordinate, error) {
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return model.Coordinate{}, err
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return model.Coordinate{}, err
	}
	return model.NewCoordinate(lat, lon)
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	errMsg := "Method not allowed"
	w.Header().Set("Allow", method)
	writeJSON(w, http.StatusMethodNotAllowed, model.Response{
		Error:   &errMsg,
		Message: "Error",
	})
	return false
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		config.GetLogger().Errorw("could not encode json", "error", err)
	}
}
