package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fakhrymubarak/weather-dashboard/internal/config"
	"github.com/fakhrymubarak/weather-dashboard/internal/model"
	"github.com/fakhrymubarak/weather-dashboard/internal/redis"
	redisv9 "github.com/redis/go-redis/v9"
)

// redisClient is the subset of the go-redis client the cache needs.
type redisClient interface {
	Get(ctx context.Context, key string) *redisv9.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redisv9.StatusCmd
	Del(ctx context.Context, keys ...string) *redisv9.IntCmd
}

// WeatherRepository defines the interface for weather data access
type WeatherRepository interface {
	// GetWeather returns a snapshot for coord and whether it was served from the freshness window.
	GetWeather(ctx context.Context, coord model.Coordinate) (*model.WeatherSnapshot, bool, error)
	// Invalidate drops the cached snapshot for coord.
	Invalidate(ctx context.Context, coord model.Coordinate) error
}

// weatherRepository implements WeatherRepository
type weatherRepository struct {
	redisClient redisClient
	provider    WeatherProvider
	staleTime   time.Duration
}

type cachedSnapshot struct {
	Snapshot  *model.WeatherSnapshot `json:"snapshot"`
	FetchedAt time.Time              `json:"fetchedAt"`
}

// NewWeatherRepository creates a new weather repository instance
func NewWeatherRepository(provider WeatherProvider) WeatherRepository {
	return &weatherRepository{
		redisClient: redis.GetClient(),
		provider:    provider,
		staleTime:   config.GetStaleTime(),
	}
}

// GetWeather retrieves weather data, checking cache first, then external API
func (r *weatherRepository) GetWeather(ctx context.Context, coord model.Coordinate) (*model.WeatherSnapshot, bool, error) {
	// Try to get from cache first
	if cached, err := r.getFromCache(ctx, coord); err == nil {
		return cached, true, nil
	} else if !errors.Is(err, ErrCacheMiss) {
		config.GetLogger().Warnw("Snapshot cache read failed", "coord", coord.Key(), "error", err)
	}

	// If not in cache, fetch from external API
	snapshot, err := r.provider.GetOneCall(ctx, coord)
	if err != nil {
		return nil, false, err
	}

	// Cache the result
	r.cacheWeather(ctx, coord, snapshot)

	return snapshot, false, nil
}

func (r *weatherRepository) Invalidate(ctx context.Context, coord model.Coordinate) error {
	return r.redisClient.Del(ctx, cacheKey(coord)).Err()
}

// getFromCache retrieves a snapshot still inside the freshness window
func (r *weatherRepository) getFromCache(ctx context.Context, coord model.Coordinate) (*model.WeatherSnapshot, error) {
	val, err := r.redisClient.Get(ctx, cacheKey(coord)).Result()
	if errors.Is(err, redisv9.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	var entry cachedSnapshot
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		return nil, err
	}
	if entry.Snapshot == nil || time.Since(entry.FetchedAt) >= r.staleTime {
		return nil, ErrCacheMiss
	}
	return entry.Snapshot, nil
}

// cacheWeather stores the snapshot in Redis for the freshness window
func (r *weatherRepository) cacheWeather(ctx context.Context, coord model.Coordinate, snapshot *model.WeatherSnapshot) {
	b, err := json.Marshal(cachedSnapshot{Snapshot: snapshot, FetchedAt: time.Now()})
	if err != nil {
		return
	}
	if err := r.redisClient.Set(ctx, cacheKey(coord), b, r.staleTime).Err(); err != nil {
		config.GetLogger().Warnw("Snapshot cache write failed", "coord", coord.Key(), "error", err)
	}
}

func cacheKey(coord model.Coordinate) string {
	return "weather:" + coord.Key()
}
