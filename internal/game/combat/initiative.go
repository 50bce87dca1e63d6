package combat

import (
	"sort"

	"github.com/cory-johannsen/pvp/internal/game/dice"
)

// RollInitiative sets each combatant's Initiative in slice order.
// Formula: speed + perception + d20.
//
// Precondition: src must be non-nil.
// Postcondition: Each combatant's Initiative is in [speed+perception+1, speed+perception+20].
func RollInitiative(combatants []*Combatant, src dice.Source) {
	for _, c := range combatants {
		c.Initiative = c.Speed + c.Perception + dice.IntRange(src, 1, 20)
	}
}

// sortByInitiativeDesc orders combatants highest initiative first; ties keep insertion order.
func sortByInitiativeDesc(combatants []*Combatant) {
	sort.SliceStable(combatants, func(i, j int) bool {
		return combatants[i].Initiative > combatants[j].Initiative
	})
}
