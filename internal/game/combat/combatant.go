// Package combat implements the turn-based PvP battle engine.
package combat

import (
	"github.com/cory-johannsen/pvp/internal/game/effect"
	"github.com/cory-johannsen/pvp/internal/game/stats"
)

// DefaultMaxActionPoints is the per-turn action point budget when none is configured.
const DefaultMaxActionPoints = 4

// Participant is the caller-supplied input for one side of a new battle.
// Stats come from stats.Derive; the engine never fetches player data itself.
type Participant struct {
	PlayerID  string
	Name      string
	Stats     stats.Base
	Abilities []string
}

// Combatant is one participant's in-battle state.
//
// Invariant: 0 <= HP <= MaxHP; 0 <= ActionPoints <= MaxActionPoints.
type Combatant struct {
	PlayerID        string          `json:"player_id"`
	Name            string          `json:"name"`
	HP              int             `json:"hp"`
	MaxHP           int             `json:"max_hp"`
	ActionPoints    int             `json:"action_points"`
	MaxActionPoints int             `json:"max_action_points"`
	Attack          int             `json:"attack"`
	Defense         int             `json:"defense"`
	Evasion         int             `json:"evasion"`
	CritChance      float64         `json:"crit_chance"`
	Speed           int             `json:"speed"`
	Perception      int             `json:"perception"`
	Initiative      int             `json:"initiative"`
	Effects         []effect.Status `json:"effects"`
	Abilities       []string        `json:"abilities"`
	DamageDealt     int             `json:"damage_dealt"`
	DamageTaken     int             `json:"damage_taken"`
}

// NewCombatant builds a full-health Combatant from p with maxAP action points.
//
// Precondition: maxAP >= 1.
// Postcondition: HP == MaxHP == p.Stats.MaxHP; ActionPoints == MaxActionPoints == maxAP.
func NewCombatant(p Participant, maxAP int) *Combatant {
	abilities := make([]string, len(p.Abilities))
	copy(abilities, p.Abilities)
	return &Combatant{
		PlayerID:        p.PlayerID,
		Name:            p.Name,
		HP:              p.Stats.MaxHP,
		MaxHP:           p.Stats.MaxHP,
		ActionPoints:    maxAP,
		MaxActionPoints: maxAP,
		Attack:          p.Stats.Attack,
		Defense:         p.Stats.Defense,
		Evasion:         p.Stats.Evasion,
		CritChance:      p.Stats.CritChance,
		Speed:           p.Stats.Speed,
		Perception:      p.Stats.Perception,
		Abilities:       abilities,
	}
}

// IsDead reports whether the combatant has no hp left.
func (c *Combatant) IsDead() bool { return c.HP <= 0 }

// ApplyDamage reduces HP by amount, flooring at zero, and returns the hp actually removed.
// Precondition: amount >= 0.
// Postcondition: HP >= 0.
func (c *Combatant) ApplyDamage(amount int) int {
	dealt := min(amount, c.HP)
	c.HP -= dealt
	c.DamageTaken += dealt
	return dealt
}

// Heal raises HP by amount, capped at MaxHP, and returns the hp actually restored.
// Postcondition: HP <= MaxHP.
func (c *Combatant) Heal(amount int) int {
	healed := max(0, min(amount, c.MaxHP-c.HP))
	c.HP += healed
	return healed
}

// HasAbility reports whether id is among the combatant's equipped abilities.
func (c *Combatant) HasAbility(id string) bool {
	for _, a := range c.Abilities {
		if a == id {
			return true
		}
	}
	return false
}

func (c *Combatant) clone() *Combatant {
	cp := *c
	cp.Effects = effect.Clone(c.Effects)
	if c.Abilities != nil {
		cp.Abilities = make([]string, len(c.Abilities))
		copy(cp.Abilities, c.Abilities)
	}
	return &cp
}
