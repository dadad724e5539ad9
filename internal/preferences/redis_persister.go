package preferences

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fakhrymubarak/weather-dashboard/internal/model"
	redisv9 "github.com/redis/go-redis/v9"
)

type redisClient interface {
	Get(ctx context.Context, key string) *redisv9.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redisv9.StatusCmd
}

// RedisPersister keeps the preference record as one JSON value under a fixed key, without expiry.
type RedisPersister struct {
	client redisClient
	key    string
}

func NewRedisPersister(client redisClient, key string) *RedisPersister {
	return &RedisPersister{client: client, key: key}
}

func (p *RedisPersister) Load(ctx context.Context) (model.Preferences, error) {
	val, err := p.client.Get(ctx, p.key).Result()
	if errors.Is(err, redisv9.Nil) {
		return model.Preferences{}, ErrNotFound
	}
	if err != nil {
		return model.Preferences{}, err
	}

	var prefs model.Preferences
	if err := json.Unmarshal([]byte(val), &prefs); err != nil {
		return model.Preferences{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, p.key, err)
	}
	return prefs, nil
}

func (p *RedisPersister) Save(ctx context.Context, prefs model.Preferences) error {
	b, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	return p.client.Set(ctx, p.key, b, 0).Err()
}
