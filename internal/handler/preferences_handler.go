package handler

import (
	"errors"
	"net/http"

	"github.com/fakhrymubarak/weather-dashboard/internal/model"
	"github.com/fakhrymubarak/weather-dashboard/internal/preferences"
)

// RegisterPreferences mounts the preference routes on mux.
func (h *WeatherHandler) RegisterPreferences(mux *http.ServeMux) {
	mux.HandleFunc("/preferences", h.HandlePreferences)
	mux.HandleFunc("/preferences/unit", h.HandleToggleUnit)
	mux.HandleFunc("/preferences/favorites", h.HandleToggleFavorite)
	mux.HandleFunc("/preferences/recent", h.HandleAddRecentSearch)
}

// HandlePreferences serves GET /preferences.
func (h *WeatherHandler) HandlePreferences(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	h.writeJSONResponse(w, http.StatusOK, model.Response{
		Data:    h.Preferences.Get(),
		Message: "Success",
	})
}

// HandleToggleUnit serves POST /preferences/unit.
func (h *WeatherHandler) HandleToggleUnit(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	prefs, err := h.Preferences.ToggleUnit(r.Context())
	h.respondWithPreferences(w, prefs, err)
}

// HandleToggleFavorite serves POST /preferences/favorites?name=.
func (h *WeatherHandler) HandleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	prefs, err := h.Preferences.ToggleFavorite(r.Context(), r.URL.Query().Get("name"))
	h.respondWithPreferences(w, prefs, err)
}

// HandleAddRecentSearch serves POST /preferences/recent?name=.
func (h *WeatherHandler) HandleAddRecentSearch(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	prefs, err := h.Preferences.AddRecentSearch(r.Context(), r.URL.Query().Get("name"))
	h.respondWithPreferences(w, prefs, err)
}

func (h *WeatherHandler) respondWithPreferences(w http.ResponseWriter, prefs model.Preferences, err error) {
	switch {
	case errors.Is(err, preferences.ErrEmptyName):
		h.writeError(w, http.StatusBadRequest, "Missing 'name' query parameter")
	case err != nil:
		errMsg := "Preferences changed but could not be saved"
		h.writeJSONResponse(w, http.StatusInternalServerError, model.Response{
			Data:    prefs,
			Error:   &errMsg,
			Message: "Error",
		})
	default:
		h.writeJSONResponse(w, http.StatusOK, model.Response{
			Data:    prefs,
			Message: "Success",
		})
	}
}
