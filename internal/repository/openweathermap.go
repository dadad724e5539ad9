package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fakhrymubarak/weather-dashboard/internal/config"
	"github.com/fakhrymubarak/weather-dashboard/internal/model"
	"github.com/go-resty/resty/v2"
)

const (
	minHourlyPoints = 24
	minDailyPoints  = 5
	searchLimit     = 5
)

// WeatherProvider is the OpenWeatherMap contract the rest of the app consumes.
type WeatherProvider interface {
	GetOneCall(ctx context.Context, coord model.Coordinate) (*model.WeatherSnapshot, error)
	LookupByName(ctx context.Context, name string) (*model.ResolvedLocation, error)
	SearchLocations(ctx context.Context, query string) ([]model.GeoDirectResult, error)
}

type openWeatherClient struct {
	rest       *resty.Client
	apiKey     string
	oneCallURL string
	weatherURL string
	geoURL     string
}

// NewOpenWeatherClient builds the provider client. Transient failures (transport errors, 5xx)
// are retried by resty up to the configured retry count with its own backoff.
func NewOpenWeatherClient(apiKey string, httpClient ...*http.Client) WeatherProvider {
	hc := &http.Client{}
	if len(httpClient) > 0 && httpClient[0] != nil {
		hc = httpClient[0]
	}
	wait, maxWait := config.GetRetryWait()
	rest := resty.NewWithClient(hc).
		SetLogger(config.GetLogger()).
		SetTimeout(config.GetProviderTimeout()).
		SetRetryCount(config.GetRetryCount()).
		SetRetryWaitTime(wait).
		SetRetryMaxWaitTime(maxWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= http.StatusInternalServerError
		})

	return &openWeatherClient{
		rest:       rest,
		apiKey:     apiKey,
		oneCallURL: strings.TrimSuffix(config.GetOneCallApiUrl(), "/"),
		weatherURL: strings.TrimSuffix(config.GetOpenWeatherApiUrl(), "/"),
		geoURL:     strings.TrimSuffix(config.GetGeocodingApiUrl(), "/"),
	}
}

func (c *openWeatherClient) get(ctx context.Context, url string, params map[string]string) ([]byte, error) {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("appid", c.apiKey).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if !resp.IsSuccess() {
		return nil, newProviderError(resp.StatusCode(), resp.Body())
	}
	return resp.Body(), nil
}

// GetOneCall fetches current, hourly and daily weather for a coordinate.
func (c *openWeatherClient) GetOneCall(ctx context.Context, coord model.Coordinate) (*model.WeatherSnapshot, error) {
	body, err := c.get(ctx, c.oneCallURL+"/onecall", map[string]string{
		"lat":     formatFloat(coord.Latitude),
		"lon":     formatFloat(coord.Longitude),
		"exclude": "minutely,alerts",
		"units":   "metric",
	})
	if err != nil {
		return nil, err
	}

	var data model.OneCallResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return toSnapshot(&data)
}

// LookupByName turns a free-text place name into a coordinate using the first match.
func (c *openWeatherClient) LookupByName(ctx context.Context, name string) (*model.ResolvedLocation, error) {
	body, err := c.get(ctx, c.weatherURL+"/weather", map[string]string{
		"q":     name,
		"units": "metric",
	})
	if err != nil {
		var pe *ProviderError
		if errors.As(err, &pe) && pe.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrLocationNotFound, name)
		}
		return nil, err
	}

	var data model.OpenWeatherMapResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if data.Coord == nil {
		return nil, fmt.Errorf("%w: coord missing", ErrMalformedResponse)
	}
	coord, err := model.NewCoordinate(data.Coord.Lat, data.Coord.Lon)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	displayName := data.Name
	return &model.ResolvedLocation{Coordinate: coord, DisplayName: &displayName}, nil
}

// SearchLocations returns up to five geocoding matches for a query.
func (c *openWeatherClient) SearchLocations(ctx context.Context, query string) ([]model.GeoDirectResult, error) {
	body, err := c.get(ctx, c.geoURL+"/geo/1.0/direct", map[string]string{
		"q":     query,
		"limit": strconv.Itoa(searchLimit),
	})
	if err != nil {
		return nil, err
	}

	var results []model.GeoDirectResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return results, nil
}

func toSnapshot(data *model.OneCallResponse) (*model.WeatherSnapshot, error) {
	cur := data.Current
	switch {
	case cur == nil:
		return nil, fmt.Errorf("%w: current missing", ErrMalformedResponse)
	case cur.Temp == nil:
		return nil, fmt.Errorf("%w: current.temp missing", ErrMalformedResponse)
	case len(cur.Weather) == 0:
		return nil, fmt.Errorf("%w: current.weather[0] missing", ErrMalformedResponse)
	case len(data.Hourly) < minHourlyPoints:
		return nil, fmt.Errorf("%w: %d hourly points, need %d", ErrMalformedResponse, len(data.Hourly), minHourlyPoints)
	case len(data.Daily) < minDailyPoints:
		return nil, fmt.Errorf("%w: %d daily points, need %d", ErrMalformedResponse, len(data.Daily), minDailyPoints)
	}

	snapshot := &model.WeatherSnapshot{
		Current: model.CurrentConditions{
			Temperature:   *cur.Temp,
			Humidity:      cur.Humidity,
			WindSpeed:     cur.WindSpeed,
			UVIndex:       cur.UVI,
			Pressure:      cur.Pressure,
			ConditionCode: cur.Weather[0].Icon,
			Description:   cur.Weather[0].Description,
		},
		Hourly: make([]model.HourlyPoint, 0, len(data.Hourly)),
		Daily:  make([]model.DailyPoint, 0, len(data.Daily)),
	}
	for _, h := range data.Hourly {
		snapshot.Hourly = append(snapshot.Hourly, model.HourlyPoint{
			Time:          time.Unix(h.Dt, 0).UTC(),
			Temperature:   h.Temp,
			ConditionCode: iconOf(h.Weather),
		})
	}
	for _, d := range data.Daily {
		snapshot.Daily = append(snapshot.Daily, model.DailyPoint{
			Time:          time.Unix(d.Dt, 0).UTC(),
			TempMax:       d.Temp.Max,
			TempMin:       d.Temp.Min,
			ConditionCode: iconOf(d.Weather),
		})
	}
	if err := snapshot.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return snapshot, nil
}

func iconOf(conds []model.OpenWeatherMapCond) string {
	if len(conds) == 0 {
		return ""
	}
	return conds[0].Icon
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
