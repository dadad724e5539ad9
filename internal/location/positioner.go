package location

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/fakhrymubarak/weather-dashboard/internal/config"
	"github.com/fakhrymubarak/weather-dashboard/internal/model"
	"github.com/go-resty/resty/v2"
)

var ErrGeolocationUnavailable = errors.New("geolocation unavailable")

// Positioner reports the device's best-effort current position.
type Positioner interface {
	CurrentPosition(ctx context.Context) (model.Coordinate, error)
}

// NewPositioner picks a positioner from the device.source setting.
func NewPositioner(source string, httpClient ...*http.Client) Positioner {
	switch source {
	case "ip":
		return NewIPPositioner(config.GetDeviceIPUrl(), httpClient...)
	case "static":
		lat, lon := config.GetDeviceCoordinate()
		return StaticPositioner{Coordinate: model.Coordinate{Latitude: lat, Longitude: lon}}
	default:
		return UnavailablePositioner{}
	}
}

// StaticPositioner always reports a fixed, configured position.
type StaticPositioner struct {
	Coordinate model.Coordinate
}

func (p StaticPositioner) CurrentPosition(ctx context.Context) (model.Coordinate, error) {
	return p.Coordinate, nil
}

// UnavailablePositioner models a host with no position source at all.
type UnavailablePositioner struct{}

func (UnavailablePositioner) CurrentPosition(ctx context.Context) (model.Coordinate, error) {
	return model.Coordinate{}, fmt.Errorf("%w: no position source configured", ErrGeolocationUnavailable)
}

type ipLookupResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
}

// IPPositioner estimates the position from the host's public IP address.
type IPPositioner struct {
	rest *resty.Client
	url  string
}

func NewIPPositioner(url string, httpClient ...*http.Client) *IPPositioner {
	hc := &http.Client{}
	if len(httpClient) > 0 && httpClient[0] != nil {
		hc = httpClient[0]
	}
	return &IPPositioner{
		rest: resty.NewWithClient(hc).
			SetLogger(config.GetLogger()).
			SetTimeout(config.GetProviderTimeout()),
		url: url,
	}
}

func (p *IPPositioner) CurrentPosition(ctx context.Context) (model.Coordinate, error) {
	var body ipLookupResponse
	resp, err := p.rest.R().SetContext(ctx).SetResult(&body).Get(p.url)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("%w: %v", ErrGeolocationUnavailable, err)
	}
	if !resp.IsSuccess() {
		return model.Coordinate{}, fmt.Errorf("%w: lookup returned %d", ErrGeolocationUnavailable, resp.StatusCode())
	}
	if body.Status != "" && body.Status != "success" {
		return model.Coordinate{}, fmt.Errorf("%w: %s", ErrGeolocationUnavailable, body.Message)
	}
	if body.Lat == nil || body.Lon == nil {
		return model.Coordinate{}, fmt.Errorf("%w: lookup returned no position", ErrGeolocationUnavailable)
	}
	// Without a status, {0,0} is an empty answer rather than a position.
	if body.Status == "" && *body.Lat == 0 && *body.Lon == 0 {
		return model.Coordinate{}, fmt.Errorf("%w: lookup returned an empty position", ErrGeolocationUnavailable)
	}
	return model.Coordinate{Latitude: *body.Lat, Longitude: *body.Lon}, nil
}
