package combat

import (
	"math"

	"github.com/cory-johannsen/pvp/internal/game/dice"
	"github.com/cory-johannsen/pvp/internal/game/effect"
)

// HeavyAttackMultiplier scales base damage for heavy attacks.
const HeavyAttackMultiplier = 1.5

// AttackResult holds the outcome of a single attack.
type AttackResult struct {
	// EvasionRoll is the d100 draw compared against the defender's evasion.
	EvasionRoll int
	Evaded      bool
	Critical    bool
	// Variance is the multiplier drawn from [0.9, 1.1).
	Variance float64
	// Damage is the final damage; 0 when evaded, otherwise >= 1.
	Damage int
}

// ResolveAttack resolves one attack of attacker against defender.
//
// Draw order is fixed: d100 evasion, then (when not evaded) the crit float,
// then the variance float. Active attack_up and defense_up effects are added
// to attack and defense.
//
// Precondition: attacker, defender and src must be non-nil.
// Postcondition: Evaded implies Damage == 0; otherwise Damage >= 1. Neither combatant is modified.
func ResolveAttack(attacker, defender *Combatant, heavy bool, src dice.Source) AttackResult {
	roll := dice.IntRange(src, 1, 100)
	if roll <= defender.Evasion {
		return AttackResult{EvasionRoll: roll, Evaded: true}
	}

	base := float64(attacker.Attack + effect.AttackBonus(attacker.Effects))
	if heavy {
		base *= HeavyAttackMultiplier
	}
	def := float64(defender.Defense + effect.DefenseBonus(defender.Effects))
	dmg := math.Max(1, base-def*0.5)

	crit := src.Float64() < attacker.CritChance
	if crit {
		dmg *= 2
	}
	variance := dice.Uniform(src, 0.9, 1.1)
	dmg *= variance

	return AttackResult{
		EvasionRoll: roll,
		Critical:    crit,
		Variance:    variance,
		Damage:      max(1, int(math.Round(dmg))),
	}
}
