package locker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL   = 30 * time.Second
	defaultWait  = 10 * time.Second
	defaultRetry = 50 * time.Millisecond
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every process using the same Redis.
// Locks expire after ttl so a crashed holder cannot block an entity forever.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
	logger *slog.Logger
}

type RedisOption func(*Redis)

func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) { r.ttl = ttl }
}

func WithWait(wait time.Duration) RedisOption {
	return func(r *Redis) { r.wait = wait }
}

func NewRedis(client redis.UniversalClient, logger *slog.Logger, opts ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		ttl:    defaultTTL,
		wait:   defaultWait,
		retry:  defaultRetry,
		logger: logger.With("module", "redis_locker"),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = client.Ping(pingCtx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

func (r *Redis) Lock(ctx context.Context, key string) (Unlock, error) {
	token := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, r.wait)
	defer cancel()

	ticker := time.NewTicker(r.retry)
	defer ticker.Stop()

	for {
		acquired, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}

		if acquired {
			return r.unlock(key, token), nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w", key, ErrLockTimeout)
		}
	}
}

func (r *Redis) unlock(key, token string) Unlock {
	return func(ctx context.Context) error {
		released, err := releaseScript.Run(ctx, r.client, []string{key}, token).Int()
		if err != nil {
			return fmt.Errorf("failed to release lock %s: %w", key, err)
		}

		if released == 0 {
			r.logger.WarnContext(ctx, "Lock expired before release", "key", key)
		}

		return nil
	}
}
