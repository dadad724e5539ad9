package repository

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fakhrymubarak/weather-dashboard/internal/model"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	calls    int32
	snapshot *model.WeatherSnapshot
	err      error
}

func (s *stubProvider) GetOneCall(ctx context.Context, coord model.Coordinate) (*model.WeatherSnapshot, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.snapshot, s.err
}

func (s *stubProvider) LookupByName(ctx context.Context, name string) (*model.ResolvedLocation, error) {
	return nil, ErrLocationNotFound
}

func (s *stubProvider) SearchLocations(ctx context.Context, query string) ([]model.GeoDirectResult, error) {
	return nil, nil
}

func newTestRepository(t *testing.T, provider WeatherProvider) (*weatherRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redisv9.NewClient(&redisv9.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return &weatherRepository{
		redisClient: client,
		provider:    provider,
		staleTime:   30 * time.Minute,
	}, mr
}

func TestNewWeatherRepository(t *testing.T) {
	repo := NewWeatherRepository(&stubProvider{})
	if repo == nil {
		t.Error("Expected repository to be created")
	}
}

func TestGetWeather_CacheMissThenHit(t *testing.T) {
	provider := &stubProvider{snapshot: &model.WeatherSnapshot{Current: model.CurrentConditions{Temperature: 21.5}}}
	repo, mr := newTestRepository(t, provider)
	ctx := context.Background()

	snapshot, cached, err := repo.GetWeather(ctx, colombo)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 21.5, snapshot.Current.Temperature)
	assert.True(t, mr.Exists("weather:"+colombo.Key()))
	assert.Equal(t, 30*time.Minute, mr.TTL("weather:"+colombo.Key()))

	for i := 0; i < 3; i++ {
		snapshot, cached, err = repo.GetWeather(ctx, colombo)
		require.NoError(t, err)
		assert.True(t, cached)
		assert.Equal(t, 21.5, snapshot.Current.Temperature)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&provider.calls))
}

func TestGetWeather_RefetchAfterFreshnessWindow(t *testing.T) {
	provider := &stubProvider{snapshot: &model.WeatherSnapshot{}}
	repo, mr := newTestRepository(t, provider)
	ctx := context.Background()

	_, _, err := repo.GetWeather(ctx, colombo)
	require.NoError(t, err)

	mr.FastForward(31 * time.Minute)

	_, cached, err := repo.GetWeather(ctx, colombo)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, int32(2), atomic.LoadInt32(&provider.calls))
}

func TestGetWeather_ErrorIsNotCached(t *testing.T) {
	provider := &stubProvider{err: &ProviderError{StatusCode: 500}}
	repo, mr := newTestRepository(t, provider)

	_, _, err := repo.GetWeather(context.Background(), colombo)
	assert.True(t, errors.Is(err, ErrProvider))
	assert.False(t, mr.Exists("weather:"+colombo.Key()))
}

func TestGetWeather_RedisDownFallsThroughToProvider(t *testing.T) {
	provider := &stubProvider{snapshot: &model.WeatherSnapshot{}}
	repo, mr := newTestRepository(t, provider)
	mr.Close()

	_, cached, err := repo.GetWeather(context.Background(), colombo)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, int32(1), atomic.LoadInt32(&provider.calls))
}

func TestInvalidate(t *testing.T) {
	provider := &stubProvider{snapshot: &model.WeatherSnapshot{}}
	repo, mr := newTestRepository(t, provider)
	ctx := context.Background()

	_, _, err := repo.GetWeather(ctx, colombo)
	require.NoError(t, err)
	require.NoError(t, repo.Invalidate(ctx, colombo))
	assert.False(t, mr.Exists("weather:"+colombo.Key()))

	_, cached, err := repo.GetWeather(ctx, colombo)
	require.NoError(t, err)
	assert.False(t, cached)
}
