package game

import (
	"fmt"

	"github.com/pixil98/go-errors"
)

// Stats are the battle attributes of a catalog combatant. The JSON names
// match the catalog asset files.
type Stats struct {
	HP             int     `json:"HP"`
	Attack         int     `json:"Attack"`
	Defense        int     `json:"Defense"`
	Speed          int     `json:"Speed"`
	CriticalChance float64 `json:"Critical Chance"`
}

// CritProbability returns CriticalChance as a probability in [0,1].
// Catalog values of 1 or more are percentages, so 1 means 1% and certainty
// is written as 100. Values below 1 are fractions.
func (s Stats) CritProbability() float64 {
	p := s.CriticalChance
	if p >= 1 {
		p /= 100
	}
	return min(max(p, 0), 1)
}

type CombatantMeta struct {
	Name  string `json:"name"`
	Stats Stats  `json:"stats"`
}

// Combatant is an immutable stat block from the catalog. ID is filled from
// the asset id on lookup.
type Combatant struct {
	ID   string        `json:"id,omitempty"`
	Meta CombatantMeta `json:"meta"`
}

func (c *Combatant) Name() string {
	return c.Meta.Name
}

func (c *Combatant) Validate() error {
	if c == nil {
		return fmt.Errorf("combatant spec is required")
	}

	el := errors.NewErrorList()

	if c.Meta.Name == "" {
		el.Add(fmt.Errorf("meta.name is required"))
	}
	if c.Meta.Stats.HP <= 0 {
		el.Add(fmt.Errorf("HP must be positive"))
	}
	if c.Meta.Stats.Attack < 0 {
		el.Add(fmt.Errorf("Attack must not be negative"))
	}
	if c.Meta.Stats.Defense < 0 {
		el.Add(fmt.Errorf("Defense must not be negative"))
	}
	if c.Meta.Stats.CriticalChance < 0 || c.Meta.Stats.CriticalChance > 100 {
		el.Add(fmt.Errorf("Critical Chance must be between 0 and 100"))
	}

	return el.Err()
}
