package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ngavde/education-management/internal/cache"
)

const (
	lockPollInterval = 50 * time.Millisecond
	lockMaxWait      = 5 * time.Second
)

// LocalLocker is a keyed mutex for a single process. Waiters block until
// the holder releases or their context ends.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// NewLocalLocker creates an empty keyed lock set
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*keyLock)}
}

// Acquire blocks until key is free. token and ttl are unused in-process.
func (l *LocalLocker) Acquire(ctx context.Context, key, _ string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, kl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.ch
			l.unref(key, kl)
		})
	}, nil
}

func (l *LocalLocker) unref(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

// acquireLock takes a lock from any Locker, polling while a distributed
// lock is held elsewhere
func acquireLock(ctx context.Context, locker Locker, key, token string, ttl time.Duration) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, lockMaxWait)
	defer cancel()

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		release, err := locker.Acquire(ctx, key, token, ttl)
		if err == nil {
			return release, nil
		}
		if !errors.Is(err, cache.ErrLockHeld) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, err
		case <-ticker.C:
		}
	}
}
