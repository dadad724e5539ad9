package preferences

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fakhrymubarak/weather-dashboard/internal/config"
	"github.com/fakhrymubarak/weather-dashboard/internal/model"
)

var (
	ErrEmptyName = errors.New("name must not be empty")
	ErrNotFound  = errors.New("preferences not found")
	ErrCorrupt   = errors.New("preferences record is corrupt")
)

// Persister saves and restores the whole preference record.
type Persister interface {
	// Load returns ErrNotFound when nothing has been saved yet.
	Load(ctx context.Context) (model.Preferences, error)
	Save(ctx context.Context, prefs model.Preferences) error
}

// Store is the single owner of the user's preferences. Every mutation is
// applied and persisted under one lock, so mutations never interleave.
type Store struct {
	mu        sync.Mutex
	prefs     model.Preferences
	persister Persister
}

// Open restores the last persisted preferences, or defaults when none exist.
func Open(ctx context.Context, persister Persister) (*Store, error) {
	prefs, err := persister.Load(ctx)
	switch {
	case errors.Is(err, ErrNotFound):
		prefs = model.DefaultPreferences()
	case errors.Is(err, ErrCorrupt):
		config.GetLogger().Warnw("Discarding unreadable preferences", "error", err)
		prefs = model.DefaultPreferences()
	case err != nil:
		return nil, fmt.Errorf("restore preferences: %w", err)
	}
	return &Store{prefs: normalize(prefs), persister: persister}, nil
}

// Get returns a copy of the current preferences.
func (s *Store) Get() model.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs.Clone()
}

// ToggleUnit flips between Celsius and Fahrenheit.
func (s *Store) ToggleUnit(ctx context.Context) (model.Preferences, error) {
	return s.mutate(ctx, func(p *model.Preferences) {
		if p.Unit == model.Fahrenheit {
			p.Unit = model.Celsius
		} else {
			p.Unit = model.Fahrenheit
		}
	})
}

// AddRecentSearch moves name to the front of the history, keeping at most five unique entries.
func (s *Store) AddRecentSearch(ctx context.Context, name string) (model.Preferences, error) {
	if strings.TrimSpace(name) == "" {
		return s.Get(), ErrEmptyName
	}
	return s.mutate(ctx, func(p *model.Preferences) {
		recent := make([]string, 0, model.MaxRecentSearches)
		recent = append(recent, name)
		for _, r := range p.RecentSearches {
			if r != name && len(recent) < model.MaxRecentSearches {
				recent = append(recent, r)
			}
		}
		p.RecentSearches = recent
	})
}

// ToggleFavorite removes name from favorites if present, otherwise appends it.
func (s *Store) ToggleFavorite(ctx context.Context, name string) (model.Preferences, error) {
	if strings.TrimSpace(name) == "" {
		return s.Get(), ErrEmptyName
	}
	return s.mutate(ctx, func(p *model.Preferences) {
		if !p.IsFavorite(name) {
			p.Favorites = append(p.Favorites, name)
			return
		}
		kept := make([]string, 0, len(p.Favorites))
		for _, f := range p.Favorites {
			if f != name {
				kept = append(kept, f)
			}
		}
		p.Favorites = kept
	})
}

// mutate applies fn and persists the result. The mutation only takes effect
// once it is saved; on a failed save the previous value is kept and returned.
func (s *Store) mutate(ctx context.Context, fn func(p *model.Preferences)) (model.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.prefs.Clone()
	fn(&next)

	if err := s.persister.Save(ctx, next); err != nil {
		config.GetLogger().Errorw("Failed to persist preferences", "error", err)
		return s.prefs.Clone(), fmt.Errorf("persist preferences: %w", err)
	}
	s.prefs = next
	return next.Clone(), nil
}

// normalize repairs a restored record so the store's invariants hold.
func normalize(p model.Preferences) model.Preferences {
	out := model.DefaultPreferences()
	if p.Unit == model.Fahrenheit {
		out.Unit = model.Fahrenheit
	}
	seen := make(map[string]bool)
	for _, r := range p.RecentSearches {
		if r == "" || seen[r] || len(out.RecentSearches) == model.MaxRecentSearches {
			continue
		}
		seen[r] = true
		out.RecentSearches = append(out.RecentSearches, r)
	}
	seen = make(map[string]bool)
	for _, f := range p.Favorites {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out.Favorites = append(out.Favorites, f)
	}
	return out
}
