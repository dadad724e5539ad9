package redis

import (
	"context"
	"sync"

	"github.com/fakhrymubarak/weather-dashboard/internal/config"
	redisv9 "github.com/redis/go-redis/v9"
)

var (
	client *redisv9.Client
	once   sync.Once
)

// GetClient returns the process-wide Redis client that backs the snapshot cache and preference record.
func GetClient() *redisv9.Client {
	once.Do(func() {
		timeout := config.GetRedisTimeout()
		client = redisv9.NewClient(&redisv9.Options{
			Addr:         config.GetRedisAddr(),
			DB:           config.GetRedisDB(),
			DialTimeout:  timeout,
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		})
	})
	return client
}

// Ping checks that Redis is reachable at startup.
func Ping(ctx context.Context) error {
	if err := GetClient().Ping(ctx).Err(); err != nil {
		config.GetLogger().Errorw("Redis unreachable", "addr", config.GetRedisAddr(), "error", err)
		return err
	}
	return nil
}

// ResetClientForTest drops the singleton so the next GetClient picks up changed settings. Use only in tests.
func ResetClientForTest() {
	if client != nil {
		_ = client.Close()
	}
	once = sync.Once{}
	client = nil
}
