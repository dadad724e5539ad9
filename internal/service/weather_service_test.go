package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fakhrymubarak/weather-dashboard/internal/model"
	"github.com/fakhrymubarak/weather-dashboard/internal/redis"
	"github.com/fakhrymubarak/weather-dashboard/internal/repository"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	colombo = model.Coordinate{Latitude: 6.9271, Longitude: 79.8612}
	kandy   = model.Coordinate{Latitude: 7.2906, Longitude: 80.6337}
)

// mockWeatherRepository answers per coordinate and can hold a coordinate's
// answer back until the test releases it.
type mockWeatherRepository struct {
	mu          sync.Mutex
	calls       map[model.Coordinate]int
	gates       map[model.Coordinate]chan struct{}
	errs        map[model.Coordinate]error
	invalidated []model.Coordinate
}

func newMockRepo() *mockWeatherRepository {
	return &mockWeatherRepository{
		calls: make(map[model.Coordinate]int),
		gates: make(map[model.Coordinate]chan struct{}),
		errs:  make(map[model.Coordinate]error),
	}
}

func (m *mockWeatherRepository) hold(c model.Coordinate) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	gate := make(chan struct{})
	m.gates[c] = gate
	return gate
}

func (m *mockWeatherRepository) callCount(c model.Coordinate) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[c]
}

func (m *mockWeatherRepository) GetWeather(ctx context.Context, c model.Coordinate) (*model.WeatherSnapshot, bool, error) {
	m.mu.Lock()
	m.calls[c]++
	gate := m.gates[c]
	err := m.errs[c]
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, false, err
	}
	return &model.WeatherSnapshot{Current: model.CurrentConditions{Description: c.Key()}}, false, nil
}

func (m *mockWeatherRepository) Invalidate(ctx context.Context, c model.Coordinate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated = append(m.invalidated, c)
	return nil
}

// Ensure WeatherService implements WeatherServiceInterface
var _ WeatherServiceInterface = (*WeatherService)(nil)

func TestWeatherService_IdleUntilCoordinate(t *testing.T) {
	repo := newMockRepo()
	svc := NewWeatherService(repo)

	_, state, ok := svc.Current()
	assert.False(t, ok)
	assert.Equal(t, model.StatusIdle, state.Status)
	assert.Empty(t, repo.calls)
}

func TestWeatherService_FetchSuccess(t *testing.T) {
	svc := NewWeatherService(newMockRepo())

	var seen []model.QueryStatus
	svc.Subscribe(func(c model.Coordinate, st model.QueryState) { seen = append(seen, st.Status) })

	state := svc.Fetch(context.Background(), colombo)
	require.Equal(t, model.StatusSuccess, state.Status)
	assert.Equal(t, colombo.Key(), state.Snapshot.Current.Description)

	coord, current, ok := svc.Current()
	assert.True(t, ok)
	assert.Equal(t, colombo, coord)
	assert.Equal(t, model.StatusSuccess, current.Status)
	assert.Equal(t, []model.QueryStatus{model.StatusLoading, model.StatusSuccess}, seen)
}

func TestWeatherService_FailureKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want model.ErrorKind
	}{
		{"network", fmt.Errorf("%w: dial tcp", repository.ErrNetwork), model.NetworkError},
		{"provider", &repository.ProviderError{StatusCode: 503}, model.ProviderError},
		{"malformed", fmt.Errorf("%w: current.weather[0] missing", repository.ErrMalformedResponse), model.MalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockRepo()
			repo.errs[colombo] = tt.err
			svc := NewWeatherService(repo)

			state := svc.Fetch(context.Background(), colombo)
			assert.Equal(t, model.StatusFailure, state.Status)
			assert.Equal(t, tt.want, state.Err)
			assert.Nil(t, state.Snapshot)

			_, current, _ := svc.Current()
			assert.Equal(t, tt.want, current.Err)
		})
	}
}

func TestWeatherService_StaleResultIsDiscarded(t *testing.T) {
	repo := newMockRepo()
	gate := repo.hold(colombo)
	svc := NewWeatherService(repo)

	var mu sync.Mutex
	var surfaced []model.Coordinate
	svc.Subscribe(func(c model.Coordinate, st model.QueryState) {
		if st.Terminal() {
			mu.Lock()
			surfaced = append(surfaced, c)
			mu.Unlock()
		}
	})

	staleDone := make(chan model.QueryState)
	go func() { staleDone <- svc.Fetch(context.Background(), colombo) }()
	require.Eventually(t, func() bool { return repo.callCount(colombo) == 1 }, time.Second, time.Millisecond)

	fresh := svc.Fetch(context.Background(), kandy)
	require.Equal(t, model.StatusSuccess, fresh.Status)

	close(gate)
	stale := <-staleDone
	// The caller still gets its own answer...
	assert.Equal(t, colombo.Key(), stale.Snapshot.Current.Description)

	// ...but the visible state stays on the active key.
	coord, current, _ := svc.Current()
	assert.Equal(t, kandy, coord)
	assert.Equal(t, kandy.Key(), current.Snapshot.Current.Description)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []model.Coordinate{kandy}, surfaced)
}

func TestWeatherService_SelectSupersedesInFlight(t *testing.T) {
	repo := newMockRepo()
	gate := repo.hold(colombo)
	svc := NewWeatherService(repo)

	svc.Select(context.Background(), colombo)
	require.Eventually(t, func() bool { return repo.callCount(colombo) == 1 }, time.Second, time.Millisecond)
	svc.Select(context.Background(), kandy)

	require.Eventually(t, func() bool {
		_, st, _ := svc.Current()
		return st.Status == model.StatusSuccess
	}, time.Second, time.Millisecond)
	close(gate)

	// Give the superseded flight time to land; it must not win.
	time.Sleep(20 * time.Millisecond)
	coord, st, _ := svc.Current()
	assert.Equal(t, kandy, coord)
	assert.Equal(t, kandy.Key(), st.Snapshot.Current.Description)
}

func TestWeatherService_DedupConcurrentFetches(t *testing.T) {
	repo := newMockRepo()
	gate := repo.hold(colombo)
	svc := NewWeatherService(repo)

	var wg sync.WaitGroup
	var successes int32
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if svc.Fetch(context.Background(), colombo).Status == model.StatusSuccess {
				atomic.AddInt32(&successes, 1)
			}
		}()
	}
	require.Eventually(t, func() bool { return repo.callCount(colombo) == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, 1, repo.callCount(colombo))
	assert.Equal(t, int32(5), successes)
}

func TestWeatherService_CancelledCallerStillSettlesState(t *testing.T) {
	repo := newMockRepo()
	gate := repo.hold(colombo)
	svc := NewWeatherService(repo)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan model.QueryState)
	go func() { done <- svc.Fetch(ctx, colombo) }()
	require.Eventually(t, func() bool { return repo.callCount(colombo) == 1 }, time.Second, time.Millisecond)

	cancel()
	assert.Equal(t, model.StatusFailure, (<-done).Status)

	close(gate)
	require.Eventually(t, func() bool {
		_, st, _ := svc.Current()
		return st.Status == model.StatusSuccess
	}, time.Second, time.Millisecond)
}

func TestWeatherService_SameKeyKeepsDataWhileRevalidating(t *testing.T) {
	svc := NewWeatherService(newMockRepo())
	svc.Fetch(context.Background(), colombo)

	var seen []model.QueryStatus
	svc.Subscribe(func(c model.Coordinate, st model.QueryState) { seen = append(seen, st.Status) })
	svc.Fetch(context.Background(), colombo)

	assert.Equal(t, []model.QueryStatus{model.StatusSuccess}, seen)
}

func TestWeatherService_Unsubscribe(t *testing.T) {
	svc := NewWeatherService(newMockRepo())
	calls := 0
	cancel := svc.Subscribe(func(model.Coordinate, model.QueryState) { calls++ })
	cancel()
	svc.Fetch(context.Background(), colombo)
	assert.Zero(t, calls)
}

func currentGeneration(svc *WeatherService) uint64 {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.generation
}

func TestWeatherService_CoordinatesWithSameKeyAreOneQuery(t *testing.T) {
	repo := newMockRepo()
	svc := NewWeatherService(repo)
	nearColombo := model.Coordinate{Latitude: colombo.Latitude + 1e-8, Longitude: colombo.Longitude}
	require.NotEqual(t, colombo, nearColombo)
	require.Equal(t, colombo.Key(), nearColombo.Key())

	svc.Fetch(context.Background(), colombo)
	gen := currentGeneration(svc)

	var published []model.QueryStatus
	svc.Subscribe(func(_ model.Coordinate, st model.QueryState) { published = append(published, st.Status) })

	state := svc.Fetch(context.Background(), nearColombo)

	assert.Equal(t, model.StatusSuccess, state.Status)
	assert.Equal(t, gen, currentGeneration(svc))
	assert.NotContains(t, published, model.StatusLoading)
	_, current, _ := svc.Current()
	assert.Equal(t, model.StatusSuccess, current.Status)
}

func TestWeatherService_SameKeyResultIsNotDiscarded(t *testing.T) {
	repo := newMockRepo()
	gate := repo.hold(colombo)
	svc := NewWeatherService(repo)
	nearColombo := model.Coordinate{Latitude: colombo.Latitude, Longitude: colombo.Longitude - 1e-8}

	done := make(chan model.QueryState)
	go func() { done <- svc.Fetch(context.Background(), colombo) }()
	require.Eventually(t, func() bool { return repo.callCount(colombo) == 1 }, time.Second, time.Millisecond)

	gen := currentGeneration(svc)
	// Selecting the same place again must not retire the in-flight query.
	svc.Select(context.Background(), nearColombo)
	assert.Equal(t, gen, currentGeneration(svc))

	close(gate)
	require.Equal(t, model.StatusSuccess, (<-done).Status)
	require.Eventually(t, func() bool {
		_, st, _ := svc.Current()
		return st.Status == model.StatusSuccess
	}, time.Second, time.Millisecond)
	active, _, _ := svc.Current()
	assert.Equal(t, colombo.Key(), active.Key())
}

func TestWeatherService_Refresh(t *testing.T) {
	repo := newMockRepo()
	svc := NewWeatherService(repo)

	_, _, err := svc.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrNoCoordinate)

	svc.Fetch(context.Background(), colombo)
	coord, state, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, colombo, coord)
	assert.Equal(t, model.StatusSuccess, state.Status)
	assert.Equal(t, []model.Coordinate{colombo}, repo.invalidated)
	assert.Equal(t, 2, repo.callCount(colombo))
}

func TestWeatherService_RefreshReturnsItsOwnCoordinateWhenSuperseded(t *testing.T) {
	repo := newMockRepo()
	svc := NewWeatherService(repo)
	svc.Fetch(context.Background(), colombo)

	gate := repo.hold(colombo)
	type refreshed struct {
		coord model.Coordinate
		state model.QueryState
	}
	done := make(chan refreshed)
	go func() {
		coord, state, _ := svc.Refresh(context.Background())
		done <- refreshed{coord, state}
	}()
	require.Eventually(t, func() bool { return repo.callCount(colombo) == 2 }, time.Second, time.Millisecond)

	require.Equal(t, model.StatusSuccess, svc.Fetch(context.Background(), kandy).Status)
	close(gate)
	got := <-done

	assert.Equal(t, colombo, got.coord)
	assert.Equal(t, colombo.Key(), got.state.Snapshot.Current.Description)
	active, _, _ := svc.Current()
	assert.Equal(t, kandy, active)
}

type countingProvider struct {
	calls int32
}

func (p *countingProvider) GetOneCall(ctx context.Context, c model.Coordinate) (*model.WeatherSnapshot, error) {
	atomic.AddInt32(&p.calls, 1)
	return &model.WeatherSnapshot{Current: model.CurrentConditions{Temperature: 30}}, nil
}

func (p *countingProvider) LookupByName(ctx context.Context, name string) (*model.ResolvedLocation, error) {
	return nil, repository.ErrLocationNotFound
}

func (p *countingProvider) SearchLocations(ctx context.Context, q string) ([]model.GeoDirectResult, error) {
	return nil, nil
}

func TestWeatherService_FreshnessWindowSkipsNetwork(t *testing.T) {
	mr := miniredis.RunT(t)
	prev := viper.GetString("redis.addr")
	viper.Set("redis.addr", mr.Addr())
	redis.ResetClientForTest()
	t.Cleanup(func() {
		viper.Set("redis.addr", prev)
		redis.ResetClientForTest()
	})

	provider := &countingProvider{}
	svc := NewWeatherService(repository.NewWeatherRepository(provider))
	ctx := context.Background()

	first := svc.Fetch(ctx, colombo)
	require.Equal(t, model.StatusSuccess, first.Status)
	assert.False(t, first.Cached)

	// Switch away and back: the cached entry for colombo is still fresh.
	svc.Fetch(ctx, kandy)
	again := svc.Fetch(ctx, colombo)
	assert.True(t, again.Cached)
	assert.Equal(t, int32(2), atomic.LoadInt32(&provider.calls))

	mr.FastForward(31 * time.Minute)
	svc.Fetch(ctx, kandy)
	expired := svc.Fetch(ctx, colombo)
	assert.False(t, expired.Cached)
	assert.Equal(t, int32(4), atomic.LoadInt32(&provider.calls))
}
