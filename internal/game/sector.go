package game

import (
	"math"
	"time"

	"crusade/internal/models"
)

const (
	SectorBaseThreat   = 100.0
	SectorThreatGrowth = 1.15

	OutcomeVictory = "victory"
	OutcomeDefeat  = "defeat"
)

// SectorThreat scales with the number of sectors already engaged and with corruption.
func SectorThreat(engaged int, corruption float64) int {
	if engaged < 0 {
		engaged = 0
	}
	threat := SectorBaseThreat * math.Pow(SectorThreatGrowth, float64(engaged)) * (1 + ClampCorruption(corruption)/200)
	return int(math.Round(threat))
}

type Engagement struct {
	Record          models.SectorRecord `json:"record"`
	GloryGained     int                 `json:"glory_gained"`
	CorruptionDelta float64             `json:"corruption_delta"`
}

func Engage(sector string, power int, history []models.SectorRecord, corruption float64, now time.Time) Engagement {
	threat := SectorThreat(len(history), corruption)
	record := models.SectorRecord{
		Sector: sector,
		Threat: threat,
		Power:  power,
		At:     now,
	}

	if power >= threat {
		record.Outcome = OutcomeVictory
		return Engagement{Record: record, GloryGained: threat / 10}
	}

	record.Outcome = OutcomeDefeat
	return Engagement{Record: record, CorruptionDelta: SectorDefeatCorruption}
}
