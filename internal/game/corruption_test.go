package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorruptionStaysInBounds(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	c := Corruption{}

	for i := 0; i < 10000; i++ {
		delta := r.Float64()*80 - 40
		c, _ = c.Apply(delta)
		require.GreaterOrEqual(t, c.Value, CorruptionMin)
		require.LessOrEqual(t, c.Value, CorruptionMax)
	}
}

func TestPenitentHysteresis(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	c := Corruption{Value: 50}

	for i := 0; i < 10000; i++ {
		prev := c
		var tr Transition
		c, tr = c.Apply(r.Float64()*30 - 15)

		switch tr {
		case TransitionEnteredPenitent:
			assert.Equal(t, CorruptionMax, c.Value)
		case TransitionLeftPenitent:
			assert.Less(t, c.Value, PenitentExit)
		case TransitionNone:
			assert.Equal(t, prev.Penitent, c.Penitent)
		}
		if c.Value >= PenitentExit && c.Value < PenitentEnter {
			assert.Equal(t, prev.Penitent, c.Penitent, "mode changed inside the band at %v", c.Value)
		}
	}
}

func TestPenitentBand(t *testing.T) {
	c := Corruption{Value: 99}
	c, tr := c.Apply(0.5)
	assert.False(t, c.Penitent)
	assert.Equal(t, TransitionNone, tr)

	c, tr = c.Apply(10)
	assert.Equal(t, 100.0, c.Value)
	assert.True(t, c.Penitent)
	assert.Equal(t, TransitionEnteredPenitent, tr)

	c, tr = c.Apply(-20)
	assert.Equal(t, 80.0, c.Value)
	assert.True(t, c.Penitent, "80 is not below the exit threshold")
	assert.Equal(t, TransitionNone, tr)

	c, tr = c.Apply(15)
	assert.True(t, c.Penitent)
	assert.Equal(t, TransitionNone, tr)

	c, tr = c.Apply(-15.5)
	assert.Equal(t, 79.5, c.Value)
	assert.False(t, c.Penitent)
	assert.Equal(t, TransitionLeftPenitent, tr)

	c, _ = c.Apply(19)
	assert.False(t, c.Penitent)
}

func TestOverdueScenario(t *testing.T) {
	c := Corruption{Value: 95}

	c, tr := c.Apply(TickDelta(2, nil))
	assert.Equal(t, 97.0, c.Value)
	assert.Equal(t, TransitionNone, tr)

	c, tr = c.Apply(TickDelta(2, nil))
	assert.Equal(t, 99.0, c.Value)
	assert.False(t, c.Penitent)
	assert.Equal(t, TransitionNone, tr)

	c, tr = c.Apply(TickDelta(2, nil))
	assert.Equal(t, 100.0, c.Value)
	assert.True(t, c.Penitent)
	assert.Equal(t, TransitionEnteredPenitent, tr)

	c, tr = c.Apply(CleansingCorruption)
	assert.Equal(t, 70.0, c.Value)
	assert.False(t, c.Penitent)
	assert.Equal(t, TransitionLeftPenitent, tr)
}

func TestTickDelta(t *testing.T) {
	assert.Equal(t, 0.0, TickDelta(0, nil))
	assert.Equal(t, 0.0, TickDelta(-3, []string{ShrineTrait}))
	assert.Equal(t, 3.0, TickDelta(3, []string{"forge"}))
	assert.Equal(t, 1.5, TickDelta(3, []string{"forge", ShrineTrait}))
}

func TestNextPenitent(t *testing.T) {
	cases := []struct {
		value float64
		was   bool
		want  bool
	}{
		{100, false, true},
		{100, true, true},
		{99.9, false, false},
		{99.9, true, true},
		{80, true, true},
		{79.99, true, false},
		{0, false, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NextPenitent(tc.value, tc.was), "value=%v was=%v", tc.value, tc.was)
	}
}

func TestTransitionString(t *testing.T) {
	assert.Equal(t, "entered_penitent", TransitionBetween(false, true).String())
	assert.Equal(t, "left_penitent", TransitionBetween(true, false).String())
	assert.Equal(t, "none", TransitionBetween(true, true).String())
}
