package game

import "crusade/internal/models"

const CurrentStateVersion = 2

// migrations[i] upgrades a state from version i to i+1. Only additive changes.
var migrations = []func(*models.GameState){
	migrateV0,
	migrateV1,
}

// NewGameState is the state a user starts with.
func NewGameState(userID string) *models.GameState {
	g := &models.GameState{UserID: userID}
	MigrateState(g)
	return g
}

// MigrateState brings g up to CurrentStateVersion and reports whether it changed.
// It also fills the derived mode.
func MigrateState(g *models.GameState) bool {
	changed := false
	for g.Version < CurrentStateVersion {
		migrations[g.Version](g)
		g.Version++
		changed = true
	}
	g.Mode = ModeOf(g.Penitent)
	return changed
}

func ModeOf(penitent bool) models.Mode {
	if penitent {
		return models.ModePenitent
	}
	return models.ModeNormal
}

func migrateV0(g *models.GameState) {
	if g.ArmyStrength.Units == nil {
		g.ArmyStrength.Units = map[string]int{}
	}
	g.ArmyStrength.Power = ArmyPower(g.ArmyStrength.Units)
	if g.SectorHistory == nil {
		g.SectorHistory = []models.SectorRecord{}
	}
	if g.WorldTraits == nil {
		g.WorldTraits = []string{}
	}
	if g.Astartes.Resources == nil {
		g.Astartes.Resources = map[string]int{}
	}
	if g.Astartes.UnlockedUpgrades == nil {
		g.Astartes.UnlockedUpgrades = []string{}
	}
	if g.Astartes.CompletedStages == nil {
		g.Astartes.CompletedStages = []string{}
	}
	if g.Astartes.Activities == nil {
		g.Astartes.Activities = []models.RitualActivity{}
	}
	g.Corruption = ClampCorruption(g.Corruption)
}

func migrateV1(g *models.GameState) {
	if g.Astartes.Resources == nil {
		g.Astartes.Resources = map[string]int{}
	}
	for _, r := range AscensionResources {
		if _, ok := g.Astartes.Resources[r]; !ok {
			g.Astartes.Resources[r] = 0
		}
	}
}

func Summarize(g *models.GameState) models.GameSummary {
	return models.GameSummary{
		Resources:         g.Resources,
		Corruption:        g.Corruption,
		Mode:              ModeOf(g.Penitent),
		ArmyPower:         ArmyPower(g.ArmyStrength.Units),
		SectorsEngaged:    len(g.SectorHistory),
		NextSectorThreat:  SectorThreat(len(g.SectorHistory), g.Corruption),
		AstartesResources: g.Astartes.Resources,
		UnlockedUpgrades:  len(g.Astartes.UnlockedUpgrades),
	}
}
