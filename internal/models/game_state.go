package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Mode string

const (
	ModeNormal   Mode = "normal"
	ModePenitent Mode = "penitent"
)

type Resources struct {
	RP    int `json:"rp"`
	Glory int `json:"glory"`
}

type ArmyStrength struct {
	Units map[string]int `json:"units"`
	Power int            `json:"power"`
}

type SectorRecord struct {
	Sector  string    `json:"sector"`
	Threat  int       `json:"threat"`
	Power   int       `json:"power"`
	Outcome string    `json:"outcome"`
	At      time.Time `json:"at"`
}

type RitualActivity struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Resource string `json:"resource"`
	Amount   int    `json:"amount"`
}

type Astartes struct {
	Resources        map[string]int   `json:"resources"`
	UnlockedUpgrades []string         `json:"unlocked_upgrades"`
	CompletedStages  []string         `json:"completed_stages"`
	Activities       []RitualActivity `json:"activities"`
}

func (a *Astartes) HasUpgrade(id string) bool {
	for _, u := range a.UnlockedUpgrades {
		if u == id {
			return true
		}
	}
	return false
}

func (a *Astartes) HasStage(id string) bool {
	for _, s := range a.CompletedStages {
		if s == id {
			return true
		}
	}
	return false
}

func (a *Astartes) FindActivity(id string) (int, *RitualActivity) {
	for i := range a.Activities {
		if a.Activities[i].ID == id {
			return i, &a.Activities[i]
		}
	}
	return -1, nil
}

// GameState is the single per-user progression row. Corruption and Penitent
// are written only by datastore.AdjustCorruption.
type GameState struct {
	bun.BaseModel `bun:"table:game_state"`
	UserID        string         `bun:"user_id,pk" json:"user_id"`
	Version       int            `bun:"version" json:"version"`
	Resources     Resources      `bun:"resources,type:jsonb" json:"resources"`
	Corruption    float64        `bun:"corruption,type:double precision" json:"corruption"`
	Penitent      bool           `bun:"penitent" json:"penitent"`
	ArmyStrength  ArmyStrength   `bun:"army_strength,type:jsonb" json:"army_strength"`
	SectorHistory []SectorRecord `bun:"sector_history,type:jsonb" json:"sector_history"`
	Astartes      Astartes       `bun:"astartes,type:jsonb" json:"astartes"`
	WorldTraits   []string       `bun:"world_traits,type:jsonb" json:"world_traits"`
	Mode          Mode           `bun:"-" json:"mode"`
	CreatedAt     time.Time      `bun:"created_at,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time      `bun:"updated_at,default:current_timestamp" json:"updated_at"`
}

func (g *GameState) HasTrait(trait string) bool {
	for _, t := range g.WorldTraits {
		if t == trait {
			return true
		}
	}
	return false
}

// GameStatePatch is the client sync payload. Corruption is server-owned and
// has no field here.
type GameStatePatch struct {
	Resources     *Resources      `json:"resources"`
	ArmyStrength  *ArmyStrength   `json:"army_strength"`
	SectorHistory *[]SectorRecord `json:"sector_history"`
	Astartes      *Astartes       `json:"astartes"`
	WorldTraits   *[]string       `json:"world_traits"`
}

func (p *GameStatePatch) Apply(g *GameState) []string {
	var columns []string

	if p.Resources != nil {
		g.Resources = *p.Resources
		columns = append(columns, "resources")
	}
	if p.ArmyStrength != nil {
		g.ArmyStrength = *p.ArmyStrength
		columns = append(columns, "army_strength")
	}
	if p.SectorHistory != nil {
		g.SectorHistory = *p.SectorHistory
		columns = append(columns, "sector_history")
	}
	if p.Astartes != nil {
		g.Astartes = *p.Astartes
		columns = append(columns, "astartes")
	}
	if p.WorldTraits != nil {
		g.WorldTraits = *p.WorldTraits
		columns = append(columns, "world_traits")
	}

	return columns
}

type GameSummary struct {
	Resources         Resources      `json:"resources"`
	Corruption        float64        `json:"corruption"`
	Mode              Mode           `json:"mode"`
	ArmyPower         int            `json:"army_power"`
	SectorsEngaged    int            `json:"sectors_engaged"`
	NextSectorThreat  int            `json:"next_sector_threat"`
	AstartesResources map[string]int `json:"astartes_resources"`
	UnlockedUpgrades  int            `json:"unlocked_upgrades"`
}
