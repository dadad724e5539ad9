package model

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Coordinate identifies a query location. It is the key every weather fetch is made under.
type Coordinate struct {
	Latitude  float64 `json:"lat" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"lon" validate:"gte=-180,lte=180"`
}

func NewCoordinate(lat, lon float64) (Coordinate, error) {
	c := Coordinate{Latitude: lat, Longitude: lon}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// Validate reports whether the coordinate lies within the valid latitude/longitude ranges.
func (c Coordinate) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid coordinate %s: %w", c.Key(), err)
	}
	return nil
}

// Key renders the coordinate as a stable string used for caching and dedup.
func (c Coordinate) Key() string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

func (c Coordinate) String() string {
	return c.Key()
}

// ResolvedLocation is the outcome of a single resolution attempt.
// A nil DisplayName means the position came without a name (device position).
type ResolvedLocation struct {
	Coordinate  Coordinate `json:"coordinate"`
	DisplayName *string    `json:"displayName,omitempty"`
}

// Name returns the display name or fallback when none is known.
func (l ResolvedLocation) Name(fallback string) string {
	if l.DisplayName == nil || *l.DisplayName == "" {
		return fallback
	}
	return *l.DisplayName
}
