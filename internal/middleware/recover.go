package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/fakhrymubarak/weather-dashboard/internal/config"
	"github.com/fakhrymubarak/weather-dashboard/internal/model"
)

// ReloadHint tells clients how to recover from an unhandled error.
const ReloadHint = "Refresh Page"

type unhandledError struct {
	Message string `json:"message"`
	Action  string `json:"action"`
}

// Recover is the top-level error boundary: any panic raised while serving a
// request is logged and turned into a 500 with a reload action. The server keeps running.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			config.GetLogger().Errorw("Uncaught error", "path", r.URL.Path, "panic", rec, "stack", string(debug.Stack()))

			errMsg := fmt.Sprint(rec)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(model.Response{
				Data:    unhandledError{Message: errMsg, Action: ReloadHint},
				Error:   &errMsg,
				Message: "Oops! Something went wrong.",
			})
		}()
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, message, errMsg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.Response{
		Error:   &errMsg,
		Message: message,
	})
}
