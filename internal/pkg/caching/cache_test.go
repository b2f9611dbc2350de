package caching

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCache struct {
	values map[string]any
}

func (m *mapCache) Get(_ context.Context, key string, target any) error {
	v, ok := m.values[key]
	if !ok {
		return ErrCacheMiss
	}
	*(target.(*int)) = v.(int)
	return nil
}

func (m *mapCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.values[key] = value
	return nil
}

func (m *mapCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func TestUseCacheFillsOnMiss(t *testing.T) {
	ctx := context.Background()
	c := &mapCache{values: map[string]any{}}
	calls := 0
	load := func() (int, error) {
		calls++
		return 42, nil
	}

	v, err := UseCache(ctx, c, "answer", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = UseCache(ctx, c, "answer", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)
}

func TestUseCacheNopAlwaysLoads(t *testing.T) {
	ctx := context.Background()
	calls := 0
	load := func() (int, error) {
		calls++
		return calls, nil
	}

	_, _ = UseCache[int](ctx, NopCache{}, "k", time.Minute, load)
	v, err := UseCache[int](ctx, NopCache{}, "k", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestUseCachePropagatesLoadError(t *testing.T) {
	boom := errors.New("boom")
	_, err := UseCache(context.Background(), NopCache{}, "k", time.Minute, func() (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
}
