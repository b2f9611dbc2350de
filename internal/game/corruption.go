package game

import "math"

const (
	CorruptionMin = 0.0
	CorruptionMax = 100.0

	// PenitentEnter and PenitentExit bound the hysteresis band.
	PenitentEnter = 100.0
	PenitentExit  = 80.0

	TaskCompletionCorruption = -2.0
	CleansingCorruption      = -30.0
	SectorDefeatCorruption   = 5.0

	ShrineTrait      = "shrine"
	ShrineMultiplier = 0.5
)

type Transition int

const (
	TransitionNone Transition = iota
	TransitionEnteredPenitent
	TransitionLeftPenitent
)

func (t Transition) String() string {
	switch t {
	case TransitionEnteredPenitent:
		return "entered_penitent"
	case TransitionLeftPenitent:
		return "left_penitent"
	}
	return "none"
}

type Corruption struct {
	Value    float64
	Penitent bool
}

func ClampCorruption(v float64) float64 {
	return math.Min(CorruptionMax, math.Max(CorruptionMin, v))
}

// NextPenitent decides the mode for a clamped value given the previous mode.
func NextPenitent(value float64, wasPenitent bool) bool {
	switch {
	case value >= PenitentEnter:
		return true
	case value < PenitentExit:
		return false
	}
	return wasPenitent
}

func (c Corruption) Apply(delta float64) (Corruption, Transition) {
	value := ClampCorruption(c.Value + delta)
	next := Corruption{Value: value, Penitent: NextPenitent(value, c.Penitent)}
	return next, TransitionBetween(c.Penitent, next.Penitent)
}

func TransitionBetween(was, is bool) Transition {
	switch {
	case !was && is:
		return TransitionEnteredPenitent
	case was && !is:
		return TransitionLeftPenitent
	}
	return TransitionNone
}

// TickDelta is the corruption gained in one tick for the given overdue count.
func TickDelta(overdue int, traits []string) float64 {
	if overdue <= 0 {
		return 0
	}
	delta := float64(overdue)
	for _, t := range traits {
		if t == ShrineTrait {
			return delta * ShrineMultiplier
		}
	}
	return delta
}
