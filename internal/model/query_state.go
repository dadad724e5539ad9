package model

import "time"

type QueryStatus string

const (
	StatusIdle    QueryStatus = "idle"
	StatusLoading QueryStatus = "loading"
	StatusSuccess QueryStatus = "success"
	StatusFailure QueryStatus = "failure"
)

// ErrorKind tells failure causes apart for logging and tests.
// Presentation treats every kind as the same "data unavailable" state.
type ErrorKind string

const (
	ErrorKindNone     ErrorKind = ""
	NetworkError      ErrorKind = "network_error"
	ProviderError     ErrorKind = "provider_error"
	MalformedResponse ErrorKind = "malformed_response"
)

// QueryState is the observable state of a weather query for one coordinate.
type QueryState struct {
	Status    QueryStatus      `json:"status"`
	Snapshot  *WeatherSnapshot `json:"snapshot,omitempty"`
	Err       ErrorKind        `json:"error,omitempty"`
	Cached    bool             `json:"cached"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

func Idle() QueryState {
	return QueryState{Status: StatusIdle}
}

func Loading() QueryState {
	return QueryState{Status: StatusLoading, UpdatedAt: time.Now()}
}

func Success(s *WeatherSnapshot, cached bool) QueryState {
	return QueryState{Status: StatusSuccess, Snapshot: s, Cached: cached, UpdatedAt: time.Now()}
}

func Failure(kind ErrorKind) QueryState {
	return QueryState{Status: StatusFailure, Err: kind, UpdatedAt: time.Now()}
}

// Terminal reports whether the query has settled.
func (q QueryState) Terminal() bool {
	return q.Status == StatusSuccess || q.Status == StatusFailure
}
