package location

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fakhrymubarak/weather-dashboard/internal/config"
	"github.com/fakhrymubarak/weather-dashboard/internal/model"
	"github.com/fakhrymubarak/weather-dashboard/internal/repository"
)

// ErrResolutionNotFound is returned when an explicit place-name search has no usable match.
var ErrResolutionNotFound = errors.New("location could not be resolved")

// DefaultCoordinate is used whenever the device position is unavailable.
var DefaultCoordinate = model.Coordinate{Latitude: 7.087310, Longitude: 80.014366}

// Geocoder is the part of the weather provider that turns names into coordinates.
type Geocoder interface {
	LookupByName(ctx context.Context, name string) (*model.ResolvedLocation, error)
	SearchLocations(ctx context.Context, query string) ([]model.GeoDirectResult, error)
}

// Resolver turns a device position or a place name into a single ResolvedLocation.
type Resolver struct {
	positioner Positioner
	geocoder   Geocoder
}

func NewResolver(positioner Positioner, geocoder Geocoder) *Resolver {
	return &Resolver{positioner: positioner, geocoder: geocoder}
}

// ResolveDevice never fails: an unavailable or invalid position is logged and
// replaced by DefaultCoordinate so there is always something to show.
func (r *Resolver) ResolveDevice(ctx context.Context) model.ResolvedLocation {
	coord, err := r.positioner.CurrentPosition(ctx)
	if err == nil {
		err = coord.Validate()
	}
	if err != nil {
		config.GetLogger().Warnw("Error getting location, using default coordinate",
			"error", err, "default", DefaultCoordinate.Key())
		return model.ResolvedLocation{Coordinate: DefaultCoordinate}
	}
	return model.ResolvedLocation{Coordinate: coord}
}

// ResolvePlace looks a place name up with the provider. Every failure is
// reported as ErrResolutionNotFound; there is no fallback coordinate.
func (r *Resolver) ResolvePlace(ctx context.Context, name string) (model.ResolvedLocation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.ResolvedLocation{}, fmt.Errorf("%w: empty query", ErrResolutionNotFound)
	}

	loc, err := r.geocoder.LookupByName(ctx, name)
	if err != nil {
		config.GetLogger().Infow("Error fetching coordinates", "query", name, "error", err)
		return model.ResolvedLocation{}, fmt.Errorf("%w: %q: %v", ErrResolutionNotFound, name, err)
	}
	return *loc, nil
}

// Search returns every match the provider knows for query, best first.
func (r *Resolver) Search(ctx context.Context, query string) ([]model.ResolvedLocation, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", ErrResolutionNotFound)
	}

	matches, err := r.geocoder.SearchLocations(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrResolutionNotFound, query, err)
	}

	out := make([]model.ResolvedLocation, 0, len(matches))
	for _, m := range matches {
		coord, err := model.NewCoordinate(m.Lat, m.Lon)
		if err != nil {
			continue
		}
		name := displayName(m)
		out = append(out, model.ResolvedLocation{Coordinate: coord, DisplayName: &name})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrResolutionNotFound, query)
	}
	return out, nil
}

func displayName(m model.GeoDirectResult) string {
	parts := []string{m.Name}
	if m.State != "" {
		parts = append(parts, m.State)
	}
	if m.Country != "" {
		parts = append(parts, m.Country)
	}
	return strings.Join(parts, ", ")
}

var _ Geocoder = repository.WeatherProvider(nil)
