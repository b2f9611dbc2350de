package locker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
)

var ErrNotObtained = errors.New("lock is held")

const (
	defaultExpiry = 10 * time.Second
	defaultTries  = 32
)

type RedsyncLocker struct {
	rs *redsync.Redsync
}

func NewRedsyncLocker(rs *redsync.Redsync) *RedsyncLocker {
	return &RedsyncLocker{rs}
}

func (l *RedsyncLocker) Obtain(ctx context.Context, key string) (func(), error) {
	mutex := l.rs.NewMutex(key, redsync.WithExpiry(defaultExpiry), redsync.WithTries(defaultTries))
	if err := mutex.LockContext(ctx); err != nil {
		return nil, err
	}

	return func() {
		// nolint:errcheck
		mutex.Unlock()
	}, nil
}

func (l *RedsyncLocker) TryObtain(ctx context.Context, key string) (func(), error) {
	mutex := l.rs.NewMutex(key, redsync.WithExpiry(defaultExpiry))
	if err := mutex.TryLockContext(ctx); err != nil {
		return nil, errors.Join(ErrNotObtained, err)
	}

	return func() {
		// nolint:errcheck
		mutex.Unlock()
	}, nil
}

// LocalLocker keys in-process mutexes. For single-instance runs and tests.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: map[string]*sync.Mutex{}}
}

func (l *LocalLocker) mutex(key string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	return m
}

func (l *LocalLocker) Obtain(_ context.Context, key string) (func(), error) {
	m := l.mutex(key)
	m.Lock()
	return m.Unlock, nil
}

func (l *LocalLocker) TryObtain(_ context.Context, key string) (func(), error) {
	m := l.mutex(key)
	if !m.TryLock() {
		return nil, ErrNotObtained
	}
	return m.Unlock, nil
}
