// Package locker serializes work on one entity across goroutines or processes.
package locker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
)

// ErrLockTimeout is returned when a lock could not be acquired before the wait elapsed.
var ErrLockTimeout = errors.New("timed out waiting for lock")

// Unlock releases a lock obtained from a Locker.
type Unlock func(ctx context.Context) error

// Locker grants exclusive access to a key.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

// EntityKey is the lock key of one entity.
func EntityKey(kind models.EntityKind, entityID string) string {
	return fmt.Sprintf("clientflow:lock:%s:%s", kind, entityID)
}

// Memory is an in-process Locker.
type Memory struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
	wait  time.Duration
}

// NewMemory returns a Locker for a single process. wait bounds how long Lock blocks;
// zero means until ctx is done.
func NewMemory(wait time.Duration) *Memory {
	return &Memory{locks: make(map[string]chan struct{}), wait: wait}
}

func (m *Memory) Lock(ctx context.Context, key string) (Unlock, error) {
	if m.wait > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, m.wait)
		defer cancel()
	}

	for {
		m.mu.Lock()

		held, busy := m.locks[key]
		if !busy {
			released := make(chan struct{})
			m.locks[key] = released
			m.mu.Unlock()

			var once sync.Once

			return func(context.Context) error {
				once.Do(func() {
					m.mu.Lock()
					delete(m.locks, key)
					m.mu.Unlock()
					close(released)
				})

				return nil
			}, nil
		}

		m.mu.Unlock()

		select {
		case <-held:
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w", key, ErrLockTimeout)
		}
	}
}
