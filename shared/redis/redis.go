package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int
	DialTimeout   time.Duration
}

type Redis struct {
	conn *redis.Client
}

func NewRedis(cfg RedisConfig) (*Redis, error) {
	conn := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		DialTimeout: cfg.DialTimeout,
	})

	return &Redis{conn: conn}, nil
}

func (r *Redis) HealthCheck(ctx context.Context) error {
	return r.conn.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

func (r *Redis) IsConnected(ctx context.Context) bool {
	if r.conn == nil {
		return false
	}
	return r.conn.Ping(ctx).Err() == nil
}

// SetWithExpiration sets a key-value pair with expiration time
func (r *Redis) SetWithExpiration(ctx context.Context, key, value string, expiration time.Duration) error {
	return r.conn.Set(ctx, key, value, expiration).Err()
}

// Get retrieves a value by key
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	return r.conn.Get(ctx, key).Result()
}

// Delete removes keys
func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	return r.conn.Del(ctx, keys...).Err()
}

// Exists checks if keys exist
func (r *Redis) Exists(ctx context.Context, keys ...string) (int64, error) {
	return r.conn.Exists(ctx, keys...).Result()
}
