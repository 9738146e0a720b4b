package redis

import (
	"context"
	"time"

	v9 "github.com/redis/go-redis/v9"
)

// Client defines the interface for a Redis client.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=redis_mock
type Client interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Ping(ctx context.Context) error

	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) (int64, error)

	ZAdd(ctx context.Context, key string, members ...v9.Z) (int64, error)
	ZPopMin(ctx context.Context, key string, count int64) ([]v9.Z, error)
	ZRem(ctx context.Context, key string, members ...any) (int64, error)
	ZCard(ctx context.Context, key string) (int64, error)

	Eval(ctx context.Context, script string, keys []string, args ...any) (any, error)
}
