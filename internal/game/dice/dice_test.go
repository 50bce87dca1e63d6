package dice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/pvp/internal/game/dice"
)

// TestCryptoSource_Intn_InRange verifies every value returned by Intn(6) is in [0, 6).
func TestCryptoSource_Intn_InRange(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 1000; i++ {
		v := src.Intn(6)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 6)
	}
}

func TestCryptoSource_Intn_PanicsOnZero(t *testing.T) {
	src := dice.NewCryptoSource()
	assert.Panics(t, func() { src.Intn(0) })
}

func TestCryptoSource_Float64_InRange(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 1000; i++ {
		v := src.Float64()
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}

func TestSeededSource_SameSeedSameStream(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Uint64().Draw(rt, "seed")
		a := dice.NewSeededSource(seed)
		b := dice.NewSeededSource(seed)
		for i := 0; i < 50; i++ {
			assert.Equal(rt, a.Intn(100), b.Intn(100))
			assert.Equal(rt, a.Float64(), b.Float64())
		}
	})
}

func TestIntRange_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		lo := rapid.IntRange(-50, 50).Draw(rt, "lo")
		hi := lo + rapid.IntRange(0, 100).Draw(rt, "span")
		v := dice.IntRange(dice.NewSeededSource(rapid.Uint64().Draw(rt, "seed")), lo, hi)
		assert.GreaterOrEqual(rt, v, lo)
		assert.LessOrEqual(rt, v, hi)
	})
}

func TestUniform_Bounds(t *testing.T) {
	src := dice.NewScriptedSource(nil, []float64{0, 0.5, 0.999})
	assert.InDelta(t, 0.9, dice.Uniform(src, 0.9, 1.1), 1e-9)
	assert.InDelta(t, 1.0, dice.Uniform(src, 0.9, 1.1), 1e-9)
	assert.Less(t, dice.Uniform(src, 0.9, 1.1), 1.1)
}

func TestScriptedSource_ClampsAndRepeats(t *testing.T) {
	src := dice.NewScriptedSource([]int{3, 250}, []float64{0.25})
	assert.Equal(t, 3, src.Intn(10))
	assert.Equal(t, 99, src.Intn(100), "values past n are clamped to n-1")
	assert.Equal(t, 99, src.Intn(100), "exhausted sequence repeats the last value")
	assert.Equal(t, 0.25, src.Float64())
	assert.Equal(t, 0.25, src.Float64())
}

func TestScriptedSource_Empty(t *testing.T) {
	src := dice.NewScriptedSource(nil, nil)
	assert.Equal(t, 0, src.Intn(20))
	assert.Equal(t, 0.0, src.Float64())
}

func TestChance(t *testing.T) {
	src := dice.NewScriptedSource(nil, []float64{0.79, 0.8})
	assert.True(t, dice.Chance(src, 0.8))
	assert.False(t, dice.Chance(src, 0.8))
}

func TestLoggedSource_LogsDraws(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	src := dice.NewLoggedSource(dice.NewScriptedSource([]int{4}, []float64{0.5}), zap.New(core))
	assert.Equal(t, 4, src.Intn(6))
	assert.Equal(t, 0.5, src.Float64())
	assert.Equal(t, 2, logs.FilterMessage("dice draw").Len())
}
