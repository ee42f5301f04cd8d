package locker

import (
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}

	ctx := t.Context()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(container)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func TestRedis_Lock(t *testing.T) {
	url := setupRedis(t)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	client, err := Connect(t.Context(), url)
	require.NoError(t, err)

	defer func() { _ = client.Close() }()

	t.Run("mutual exclusion", func(t *testing.T) {
		exerciseMutualExclusion(t, NewRedis(client, logger), "clientflow:lock:test:1")
	})

	t.Run("timeout while held", func(t *testing.T) {
		l := NewRedis(client, logger, WithWait(100*time.Millisecond))

		unlock, err := l.Lock(t.Context(), "clientflow:lock:test:2")
		require.NoError(t, err)

		_, err = l.Lock(t.Context(), "clientflow:lock:test:2")
		require.ErrorIs(t, err, ErrLockTimeout)

		require.NoError(t, unlock(t.Context()))

		again, err := l.Lock(t.Context(), "clientflow:lock:test:2")
		require.NoError(t, err)
		require.NoError(t, again(t.Context()))
	})

	t.Run("expired lock is not released by old holder", func(t *testing.T) {
		l := NewRedis(client, logger, WithTTL(50*time.Millisecond), WithWait(time.Second))

		stale, err := l.Lock(t.Context(), "clientflow:lock:test:3")
		require.NoError(t, err)

		fresh, err := l.Lock(t.Context(), "clientflow:lock:test:3")
		require.NoError(t, err)

		require.NoError(t, stale(t.Context()))

		exists, err := client.Exists(t.Context(), "clientflow:lock:test:3").Result()
		require.NoError(t, err)
		assert.Equal(t, int64(1), exists)

		require.NoError(t, fresh(t.Context()))
	})
}
