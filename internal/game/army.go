package game

import (
	"errors"
	"sort"

	"crusade/internal/models"

	"github.com/mroth/weightedrand/v2"
)

var ErrUnknownUnit = errors.New("unknown unit")

type Unit struct {
	Name  string `json:"name"`
	Power int    `json:"power"`
	Cost  Reward `json:"cost"`
	// Weight is the requisition draw weight; zero keeps the unit out of the draw.
	Weight int `json:"weight"`
}

var units = map[string]Unit{
	"guardsman":    {Name: "guardsman", Power: 1, Cost: Reward{RP: 10}, Weight: 60},
	"servitor":     {Name: "servitor", Power: 2, Cost: Reward{RP: 25}, Weight: 25},
	"space_marine": {Name: "space_marine", Power: 10, Cost: Reward{RP: 100, Glory: 5}, Weight: 10},
	"terminator":   {Name: "terminator", Power: 25, Cost: Reward{RP: 250, Glory: 20}, Weight: 4},
	"dreadnought":  {Name: "dreadnought", Power: 60, Cost: Reward{RP: 600, Glory: 50}, Weight: 1},
}

func LookupUnit(name string) (Unit, error) {
	u, ok := units[name]
	if !ok {
		return Unit{}, ErrUnknownUnit
	}
	return u, nil
}

func Units() []Unit {
	out := make([]Unit, 0, len(units))
	for _, u := range units {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Power < out[j].Power })
	return out
}

// ArmyPower sums count × unit power; unknown unit names contribute nothing.
func ArmyPower(counts map[string]int) int {
	total := 0
	for name, count := range counts {
		if u, ok := units[name]; ok && count > 0 {
			total += u.Power * count
		}
	}
	return total
}

// Recruit adds count units to the army and refreshes its power.
func Recruit(army *models.ArmyStrength, unit string, count int) {
	if army.Units == nil {
		army.Units = map[string]int{}
	}
	army.Units[unit] += count
	army.Power = ArmyPower(army.Units)
}

type Requisitioner struct {
	chooser *weightedrand.Chooser[string, int]
}

func NewRequisitioner() (*Requisitioner, error) {
	choices := []weightedrand.Choice[string, int]{}
	for _, u := range Units() {
		if u.Weight > 0 {
			choices = append(choices, weightedrand.NewChoice(u.Name, u.Weight))
		}
	}

	chooser, err := weightedrand.NewChooser(choices...)
	if err != nil {
		return nil, err
	}

	return &Requisitioner{chooser}, nil
}

func (r *Requisitioner) Pick() string {
	return r.chooser.Pick()
}
