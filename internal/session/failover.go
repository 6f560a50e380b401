package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const retryPrimaryAfter = time.Minute

// FailoverStore uses primary while it answers and switches to fallback on errors.
// After retryPrimaryAfter it tries the primary again.
type FailoverStore struct {
	primary  Store
	fallback Store
	logger   zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

var _ Store = (*FailoverStore)(nil)

func NewFailoverStore(primary, fallback Store, logger *zerolog.Logger) *FailoverStore {
	return &FailoverStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger.With().Str("component", "session_failover").Logger(),
	}
}

func (f *FailoverStore) usePrimary() bool {
	if !f.isDown.Load() {
		return true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return time.Since(f.lastCheck) >= retryPrimaryAfter
}

func (f *FailoverStore) markDown(op string, err error) {
	if !f.isDown.Swap(true) {
		f.logger.Error().Err(err).Str("op", op).Msg("session primary failed, switching to fallback")
	}
	f.mu.Lock()
	f.lastCheck = time.Now()
	f.mu.Unlock()
}

func (f *FailoverStore) markUp() {
	if f.isDown.Swap(false) {
		f.logger.Info().Msg("session primary recovered")
	}
}

func (f *FailoverStore) Get(ctx context.Context, key string, out any) error {
	if f.usePrimary() {
		err := f.primary.Get(ctx, key, out)
		if err == nil || errors.Is(err, ErrNotFound) {
			f.markUp()
			return err
		}
		f.markDown("get", err)
	}
	return f.fallback.Get(ctx, key, out)
}

func (f *FailoverStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if f.usePrimary() {
		err := f.primary.Set(ctx, key, value, ttl)
		if err == nil {
			f.markUp()
			return nil
		}
		f.markDown("set", err)
	}
	return f.fallback.Set(ctx, key, value, ttl)
}

// Delete removes the key from both stores.
func (f *FailoverStore) Delete(ctx context.Context, key string) error {
	if err := f.fallback.Delete(ctx, key); err != nil {
		return err
	}
	if f.usePrimary() {
		if err := f.primary.Delete(ctx, key); err != nil {
			f.markDown("delete", err)
		} else {
			f.markUp()
		}
	}
	return nil
}
