package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ngavde/education-management/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLockerSerializesPerKey(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	var inFlight, maxInFlight int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(ctx, "submission:1", "", 0)
			if err != nil {
				t.Error(err)
				return
			}
			n := atomic.AddInt32(&inFlight, 1)
			for {
				m := atomic.LoadInt32(&maxInFlight)
				if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInFlight)
	assert.Empty(t, l.locks, "released keys are dropped")
}

func TestLocalLockerHonoursContext(t *testing.T) {
	l := NewLocalLocker()
	release, err := l.Acquire(context.Background(), "k", "", 0)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "k", "", 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := l.Acquire(context.Background(), "other", "", 0)
	require.NoError(t, err)
	other()
	other()
}

type flakyLocker struct {
	busy int
}

func (f *flakyLocker) Acquire(ctx context.Context, key, token string, ttl time.Duration) (func(), error) {
	if f.busy > 0 {
		f.busy--
		return nil, cache.ErrLockHeld
	}
	return func() {}, nil
}

func TestAcquireLockRetriesWhileHeld(t *testing.T) {
	f := &flakyLocker{busy: 2}
	release, err := acquireLock(context.Background(), f, "k", "t", time.Second)
	require.NoError(t, err)
	release()
	assert.Zero(t, f.busy)
}
