package stats_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/pvp/internal/game/stats"
)

func TestDerive_Defaults(t *testing.T) {
	b := stats.Derive(nil)
	assert.Equal(t, 500, b.HP)
	assert.Equal(t, 500, b.MaxHP)
	assert.Equal(t, 50, b.Attack)
	assert.Equal(t, 50, b.Defense)
	assert.Equal(t, 25, b.Evasion)
	assert.InDelta(t, 0.15, b.CritChance, 1e-9)
	assert.Equal(t, 50, b.Speed)
	assert.Equal(t, 50, b.Perception)
}

func TestDerive_Formulas(t *testing.T) {
	b := stats.Derive(map[string]float64{
		stats.Endurance:  12,
		stats.Strength:   81,
		stats.Dexterity:  40,
		stats.Resilience: 30,
		stats.Perception: 11,
		stats.Speed:      99,
		stats.Focus:      100,
	})
	assert.Equal(t, 120, b.MaxHP)
	assert.Equal(t, 60, b.Attack)
	assert.Equal(t, 20, b.Defense)
	assert.Equal(t, 49, b.Evasion)
	assert.InDelta(t, 0.20, b.CritChance, 1e-9)
	assert.Equal(t, 99, b.Speed)
	assert.Equal(t, 11, b.Perception)
}

func TestDerive_PartialTraitsFallBackToDefault(t *testing.T) {
	b := stats.Derive(map[string]float64{stats.Strength: 100})
	assert.Equal(t, 75, b.Attack)
	assert.Equal(t, 500, b.MaxHP)
}

func TestProperty_Derive_Ranges(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		trait := func(name string) float64 {
			return rapid.Float64Range(0, 100).Draw(rt, name)
		}
		b := stats.Derive(map[string]float64{
			stats.Endurance:  trait("endurance"),
			stats.Strength:   trait("strength"),
			stats.Dexterity:  trait("dexterity"),
			stats.Resilience: trait("resilience"),
			stats.Perception: trait("perception"),
			stats.Speed:      trait("speed"),
			stats.Focus:      trait("focus"),
		})
		if b.HP != b.MaxHP {
			rt.Fatalf("hp %d != max_hp %d", b.HP, b.MaxHP)
		}
		if b.Defense < 0 {
			rt.Fatalf("defense %d < 0", b.Defense)
		}
		if b.Evasion < 0 || b.Evasion > 50 {
			rt.Fatalf("evasion %d outside [0,50]", b.Evasion)
		}
		if b.CritChance < 0.10 || b.CritChance > 0.20 {
			rt.Fatalf("crit_chance %f outside [0.10,0.20]", b.CritChance)
		}
	})
}
