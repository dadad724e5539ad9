package repository

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fakhrymubarak/weather-dashboard/internal/model"
)

// Custom error types
var (
	ErrLocationNotFound  = errors.New("location not found")
	ErrNetwork           = errors.New("network error")
	ErrProvider          = errors.New("provider error")
	ErrMalformedResponse = errors.New("malformed response")
	ErrCacheMiss         = errors.New("cache miss")
)

// ProviderError is a non-2xx answer from the provider. It matches ErrProvider with errors.Is.
type ProviderError struct {
	StatusCode int
	Message    string
	Body       string
}

func newProviderError(status int, body []byte) *ProviderError {
	pe := &ProviderError{StatusCode: status, Body: string(body)}
	var payload model.ProviderErrorBody
	if err := json.Unmarshal(body, &payload); err == nil {
		pe.Message = payload.Message
	}
	return pe
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("provider returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider returned %d", e.StatusCode)
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrProvider
}

// Kind maps a repository error onto the query failure taxonomy.
func Kind(err error) model.ErrorKind {
	switch {
	case err == nil:
		return model.ErrorKindNone
	case errors.Is(err, ErrMalformedResponse):
		return model.MalformedResponse
	case errors.Is(err, ErrProvider):
		return model.ProviderError
	default:
		return model.NetworkError
	}
}
