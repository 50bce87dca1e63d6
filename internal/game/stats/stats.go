// Package stats derives combat attributes from a player's trait set.
package stats

// DefaultTrait is the value assumed for any trait absent from the input map.
const DefaultTrait = 50.0

// Trait names recognised by Derive.
const (
	Endurance  = "endurance"
	Strength   = "strength"
	Dexterity  = "dexterity"
	Resilience = "resilience"
	Perception = "perception"
	Speed      = "speed"
	Focus      = "focus"
)

// Base holds the combat attributes derived from a trait set.
type Base struct {
	HP         int     `json:"hp"`
	MaxHP      int     `json:"max_hp"`
	Attack     int     `json:"attack"`
	Defense    int     `json:"defense"`
	Evasion    int     `json:"evasion"`
	CritChance float64 `json:"crit_chance"`

	// Speed and Perception are kept as the initiative basis.
	Speed      int `json:"speed"`
	Perception int `json:"perception"`
}

// Derive converts a trait map (0-100 per trait) into Base combat attributes.
//
//	hp = max_hp = endurance * 10
//	attack      = (strength + dexterity) / 2
//	defense     = (resilience + perception) / 2
//	evasion     = speed / 2
//	crit_chance = 0.10 + focus / 1000
//
// Precondition: none; a nil map yields defaults for every trait.
// Postcondition: HP == MaxHP; fractional results are truncated toward zero.
func Derive(traits map[string]float64) Base {
	get := func(name string) float64 {
		if v, ok := traits[name]; ok {
			return v
		}
		return DefaultTrait
	}

	maxHP := int(get(Endurance) * 10)
	return Base{
		HP:         maxHP,
		MaxHP:      maxHP,
		Attack:     int((get(Strength) + get(Dexterity)) / 2),
		Defense:    int((get(Resilience) + get(Perception)) / 2),
		Evasion:    int(get(Speed) / 2),
		CritChance: 0.10 + get(Focus)/1000,
		Speed:      int(get(Speed)),
		Perception: int(get(Perception)),
	}
}
