package service

import (
	"context"
	"errors"
	"sync"

	"github.com/fakhrymubarak/weather-dashboard/internal/config"
	"github.com/fakhrymubarak/weather-dashboard/internal/model"
	"github.com/fakhrymubarak/weather-dashboard/internal/repository"
	"golang.org/x/sync/singleflight"
)

var ErrNoCoordinate = errors.New("no coordinate selected")

// Listener receives every state change that becomes visible.
type Listener func(coord model.Coordinate, state model.QueryState)

// WeatherServiceInterface is the query orchestrator consumed by the handlers.
type WeatherServiceInterface interface {
	Fetch(ctx context.Context, coord model.Coordinate) model.QueryState
	Select(ctx context.Context, coord model.Coordinate)
	Refresh(ctx context.Context) (model.Coordinate, model.QueryState, error)
	Current() (model.Coordinate, model.QueryState, bool)
	Subscribe(fn Listener) (cancel func())
}

// WeatherService keys every weather query by coordinate. Only results for the
// active coordinate are ever surfaced; a result that lands after the active
// coordinate changed is dropped.
type WeatherService struct {
	WeatherRepo repository.WeatherRepository

	group singleflight.Group

	// notifyMu serializes state publication so listeners see changes in order.
	notifyMu sync.Mutex

	mu         sync.Mutex
	active     model.Coordinate
	hasActive  bool
	generation uint64
	state      model.QueryState
	listeners  map[int]Listener
	nextID     int
}

type fetchResult struct {
	snapshot *model.WeatherSnapshot
	cached   bool
}

func NewWeatherService(repo repository.WeatherRepository) *WeatherService {
	return &WeatherService{
		WeatherRepo: repo,
		state:       model.Idle(),
		listeners:   make(map[int]Listener),
	}
}

// Fetch makes coord the active key and blocks until its query settles. The
// returned state always belongs to coord, even if coord was superseded meanwhile.
func (s *WeatherService) Fetch(ctx context.Context, coord model.Coordinate) model.QueryState {
	gen := s.activate(coord)
	return s.await(ctx, coord, gen)
}

// Select makes coord the active key and runs the query in the background.
func (s *WeatherService) Select(ctx context.Context, coord model.Coordinate) {
	gen := s.activate(coord)
	go s.await(context.WithoutCancel(ctx), coord, gen)
}

// Refresh drops the cached snapshot of the active key and fetches it again.
// The returned state belongs to the returned coordinate, which may no longer
// be active by the time Refresh returns.
func (s *WeatherService) Refresh(ctx context.Context) (model.Coordinate, model.QueryState, error) {
	coord, _, ok := s.Current()
	if !ok {
		return model.Coordinate{}, model.Idle(), ErrNoCoordinate
	}
	if err := s.WeatherRepo.Invalidate(ctx, coord); err != nil {
		config.GetLogger().Warnw("Failed to invalidate cached snapshot", "coord", coord.Key(), "error", err)
	}
	return coord, s.Fetch(ctx, coord), nil
}

// Current returns the active coordinate and its visible state. ok is false while idle.
func (s *WeatherService) Current() (model.Coordinate, model.QueryState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.state, s.hasActive
}

// Subscribe registers fn for visible state changes. fn runs synchronously and
// must not call Fetch, Select or Refresh itself.
func (s *WeatherService) Subscribe(fn Listener) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// activate switches the active key. Coordinates are the same key when their
// Key() matches, the identity used for dedup and caching. A new key bumps the
// generation, which retires every in-flight completion issued under the old one.
func (s *WeatherService) activate(coord model.Coordinate) uint64 {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if !s.hasActive || s.active.Key() != coord.Key() {
		s.generation++
		s.active = coord
		s.hasActive = true
	} else if s.state.Status == model.StatusSuccess {
		// Same key with data on screen: keep showing it while revalidating.
		gen := s.generation
		s.mu.Unlock()
		return gen
	}
	s.state = model.Loading()
	gen, state := s.generation, s.state
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	publish(listeners, coord, state)
	return gen
}

func (s *WeatherService) await(ctx context.Context, coord model.Coordinate, gen uint64) model.QueryState {
	ch := s.group.DoChan(coord.Key(), func() (interface{}, error) {
		// The flight may be shared with other callers, so it must outlive this one.
		snapshot, cached, err := s.WeatherRepo.GetWeather(context.WithoutCancel(ctx), coord)
		return fetchResult{snapshot: snapshot, cached: cached}, err
	})

	select {
	case res := <-ch:
		state := toState(coord, res)
		s.apply(coord, gen, state)
		return state
	case <-ctx.Done():
		go func() {
			s.apply(coord, gen, toState(coord, <-ch))
		}()
		return model.Failure(repository.Kind(ctx.Err()))
	}
}

// apply publishes state only if coord is still the active key of generation gen.
func (s *WeatherService) apply(coord model.Coordinate, gen uint64, state model.QueryState) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if !s.hasActive || s.generation != gen || s.active.Key() != coord.Key() {
		s.mu.Unlock()
		config.GetLogger().Debugw("Discarding superseded weather result", "coord", coord.Key(), "status", state.Status)
		return
	}
	s.state = state
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	publish(listeners, coord, state)
}

func (s *WeatherService) snapshotListeners() []Listener {
	out := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		out = append(out, l)
	}
	return out
}

func publish(listeners []Listener, coord model.Coordinate, state model.QueryState) {
	for _, l := range listeners {
		l(coord, state)
	}
}

func toState(coord model.Coordinate, res singleflight.Result) model.QueryState {
	if res.Err != nil {
		kind := repository.Kind(res.Err)
		config.GetLogger().Errorw("Error loading weather data", "coord", coord.Key(), "kind", kind, "error", res.Err)
		return model.Failure(kind)
	}
	r := res.Val.(fetchResult)
	if r.cached {
		config.GetLogger().Debugw("Cache HIT", "coord", coord.Key())
	}
	return model.Success(r.snapshot, r.cached)
}
