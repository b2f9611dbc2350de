package locker

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLockerSerializesSameKey(t *testing.T) {
	l := NewLocalLocker()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Obtain(context.Background(), "lock:game-state:u1")
			require.NoError(t, err)
			defer unlock()

			v := counter
			v++
			counter = v
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestLocalLockerIndependentKeys(t *testing.T) {
	l := NewLocalLocker()

	unlockA, err := l.Obtain(context.Background(), "a")
	require.NoError(t, err)
	defer unlockA()

	unlockB, err := l.Obtain(context.Background(), "b")
	require.NoError(t, err)
	unlockB()
}

func TestLocalLockerTryObtain(t *testing.T) {
	l := NewLocalLocker()

	unlock, err := l.TryObtain(context.Background(), "lock:corruption-tick")
	require.NoError(t, err)

	_, err = l.TryObtain(context.Background(), "lock:corruption-tick")
	assert.ErrorIs(t, err, ErrNotObtained)

	unlock()
	unlock, err = l.TryObtain(context.Background(), "lock:corruption-tick")
	require.NoError(t, err)
	unlock()
}
