package model

import (
	"errors"
	"fmt"
	"time"
)

var ErrTimestampOrder = errors.New("timestamps are not strictly increasing")

// CurrentConditions holds the observation at fetch time. Temperature is in °C.
type CurrentConditions struct {
	Temperature   float64 `json:"temperature"`
	Humidity      int     `json:"humidity"`
	WindSpeed     float64 `json:"windSpeed"`
	UVIndex       float64 `json:"uvIndex"`
	Pressure      int     `json:"pressure"`
	ConditionCode string  `json:"conditionCode"`
	Description   string  `json:"description"`
}

type HourlyPoint struct {
	Time          time.Time `json:"time"`
	Temperature   float64   `json:"temperature"`
	ConditionCode string    `json:"conditionCode"`
}

type DailyPoint struct {
	Time          time.Time `json:"time"`
	TempMax       float64   `json:"tempMax"`
	TempMin       float64   `json:"tempMin"`
	ConditionCode string    `json:"conditionCode"`
}

// WeatherSnapshot is the normalized weather for one coordinate.
// All temperatures are stored in °C; unit conversion happens only when rendering.
type WeatherSnapshot struct {
	Current CurrentConditions `json:"current"`
	Hourly  []HourlyPoint     `json:"hourly"`
	Daily   []DailyPoint      `json:"daily"`
}

// Validate checks that hourly and daily timestamps are strictly increasing.
func (s *WeatherSnapshot) Validate() error {
	for i := 1; i < len(s.Hourly); i++ {
		if !s.Hourly[i].Time.After(s.Hourly[i-1].Time) {
			return fmt.Errorf("hourly[%d]: %w", i, ErrTimestampOrder)
		}
	}
	for i := 1; i < len(s.Daily); i++ {
		if !s.Daily[i].Time.After(s.Daily[i-1].Time) {
			return fmt.Errorf("daily[%d]: %w", i, ErrTimestampOrder)
		}
	}
	return nil
}
