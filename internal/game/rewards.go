package game

import (
	"math"
	"time"
)

const (
	TaskRPPerDifficulty    = 10
	TaskStreakBonusCap     = 10
	ProjectRPPerDifficulty = 100
	ProjectGloryPerDiff    = 20
)

type Reward struct {
	RP    int `json:"rp"`
	Glory int `json:"glory"`
}

func TaskReward(difficulty, streak int) Reward {
	bonus := streak
	if bonus > TaskStreakBonusCap {
		bonus = TaskStreakBonusCap
	}
	if bonus < 0 {
		bonus = 0
	}
	return Reward{
		RP:    TaskRPPerDifficulty*difficulty + bonus,
		Glory: difficulty,
	}
}

func ProjectReward(difficulty int) Reward {
	return Reward{
		RP:    ProjectRPPerDifficulty * difficulty,
		Glory: ProjectGloryPerDiff * difficulty,
	}
}

// NextStreak continues the streak when the previous completion was on the
// previous or same calendar day, otherwise restarts at 1.
func NextStreak(streak int, last *time.Time, now time.Time) int {
	if last == nil {
		return 1
	}
	days := daysBetween(*last, now)
	switch {
	case days <= 0:
		if streak < 1 {
			return 1
		}
		return streak
	case days == 1:
		return streak + 1
	}
	return 1
}

func daysBetween(a, b time.Time) int {
	a = truncateDay(a.In(b.Location()))
	b = truncateDay(b)
	return int(math.Round(b.Sub(a).Hours() / 24))
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
