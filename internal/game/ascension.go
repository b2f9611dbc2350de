package game

import (
	"errors"

	"crusade/internal/models"
)

const (
	ResourceGeneseed = "geneseed"
	ResourceRelics   = "relics"
	ResourceFaith    = "faith"
)

var (
	ErrUnknownUpgrade     = errors.New("unknown upgrade")
	ErrUpgradeUnlocked    = errors.New("upgrade already unlocked")
	ErrUpgradeLocked      = errors.New("previous stage not completed")
	ErrInsufficientAmount = errors.New("insufficient resources")
	ErrUnknownResource    = errors.New("unknown ascension resource")
	ErrUnknownActivity    = errors.New("unknown ritual activity")
	ErrActivityName       = errors.New("activity name is required")
	ErrActivityAmount     = errors.New("activity amount must be between 1 and 10")
)

const MaxRitualAmount = 10

var AscensionResources = []string{ResourceGeneseed, ResourceRelics, ResourceFaith}

func IsAscensionResource(name string) bool {
	for _, r := range AscensionResources {
		if r == name {
			return true
		}
	}
	return false
}

type Upgrade struct {
	ID    string         `json:"id"`
	Stage string         `json:"stage"`
	Cost  map[string]int `json:"cost"`
}

type Stage struct {
	ID       string   `json:"id"`
	Requires string   `json:"requires,omitempty"`
	Upgrades []string `json:"upgrades"`
}

var stages = []Stage{
	{ID: "neophyte", Upgrades: []string{"black_carapace", "occulobe"}},
	{ID: "scout", Requires: "neophyte", Upgrades: []string{"sinew_coil", "ossmodula", "betchers_gland"}},
	{ID: "battle_brother", Requires: "scout", Upgrades: []string{"progenoid", "larramans_organ"}},
	{ID: "veteran", Requires: "battle_brother", Upgrades: []string{"crux_terminatus"}},
}

var upgrades = map[string]Upgrade{
	"black_carapace":  {ID: "black_carapace", Stage: "neophyte", Cost: map[string]int{ResourceGeneseed: 5}},
	"occulobe":        {ID: "occulobe", Stage: "neophyte", Cost: map[string]int{ResourceGeneseed: 5, ResourceFaith: 5}},
	"sinew_coil":      {ID: "sinew_coil", Stage: "scout", Cost: map[string]int{ResourceGeneseed: 10, ResourceRelics: 2}},
	"ossmodula":       {ID: "ossmodula", Stage: "scout", Cost: map[string]int{ResourceGeneseed: 10, ResourceFaith: 10}},
	"betchers_gland":  {ID: "betchers_gland", Stage: "scout", Cost: map[string]int{ResourceRelics: 5, ResourceFaith: 10}},
	"progenoid":       {ID: "progenoid", Stage: "battle_brother", Cost: map[string]int{ResourceGeneseed: 25, ResourceRelics: 10}},
	"larramans_organ": {ID: "larramans_organ", Stage: "battle_brother", Cost: map[string]int{ResourceFaith: 25, ResourceRelics: 10}},
	"crux_terminatus": {ID: "crux_terminatus", Stage: "veteran", Cost: map[string]int{ResourceGeneseed: 50, ResourceRelics: 25, ResourceFaith: 50}},
}

func Stages() []Stage {
	return stages
}

// UpgradeCost returns a copy of the upgrade cost, nil for an unknown id.
func UpgradeCost(id string) map[string]int {
	up, ok := upgrades[id]
	if !ok {
		return nil
	}
	cost := make(map[string]int, len(up.Cost))
	for res, amount := range up.Cost {
		cost[res] = amount
	}
	return cost
}

func findStage(id string) (Stage, bool) {
	for _, s := range stages {
		if s.ID == id {
			return s, true
		}
	}
	return Stage{}, false
}

// UnlockUpgrade spends the upgrade cost from the astartes resources and
// records the stage as completed once all of its upgrades are unlocked.
// It returns the completed stage id, or "".
func UnlockUpgrade(a *models.Astartes, id string) (string, error) {
	up, ok := upgrades[id]
	if !ok {
		return "", ErrUnknownUpgrade
	}
	if a.HasUpgrade(id) {
		return "", ErrUpgradeUnlocked
	}

	stage, _ := findStage(up.Stage)
	if stage.Requires != "" && !a.HasStage(stage.Requires) {
		return "", ErrUpgradeLocked
	}

	for res, cost := range up.Cost {
		if a.Resources[res] < cost {
			return "", ErrInsufficientAmount
		}
	}
	if a.Resources == nil {
		a.Resources = map[string]int{}
	}
	for res, cost := range up.Cost {
		a.Resources[res] -= cost
	}
	a.UnlockedUpgrades = append(a.UnlockedUpgrades, id)

	for _, u := range stage.Upgrades {
		if !a.HasUpgrade(u) {
			return "", nil
		}
	}
	if a.HasStage(stage.ID) {
		return "", nil
	}
	a.CompletedStages = append(a.CompletedStages, stage.ID)
	return stage.ID, nil
}

// PerformRitual grants the activity amount of its resource.
func PerformRitual(a *models.Astartes, activityID string) (*models.RitualActivity, error) {
	_, activity := a.FindActivity(activityID)
	if activity == nil {
		return nil, ErrUnknownActivity
	}
	if a.Resources == nil {
		a.Resources = map[string]int{}
	}
	a.Resources[activity.Resource] += activity.Amount
	return activity, nil
}

func ValidateActivity(act models.RitualActivity) error {
	if act.Name == "" {
		return ErrActivityName
	}
	if !IsAscensionResource(act.Resource) {
		return ErrUnknownResource
	}
	if act.Amount < 1 || act.Amount > MaxRitualAmount {
		return ErrActivityAmount
	}
	return nil
}

// SaveActivity inserts or replaces an activity by id.
func SaveActivity(a *models.Astartes, act models.RitualActivity) error {
	if err := ValidateActivity(act); err != nil {
		return err
	}
	if i, _ := a.FindActivity(act.ID); i >= 0 {
		a.Activities[i] = act
		return nil
	}
	a.Activities = append(a.Activities, act)
	return nil
}

func DeleteActivity(a *models.Astartes, id string) error {
	i, _ := a.FindActivity(id)
	if i < 0 {
		return ErrUnknownActivity
	}
	a.Activities = append(a.Activities[:i], a.Activities[i+1:]...)
	return nil
}
