package scripting_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/pvp/internal/game/combat"
	"github.com/cory-johannsen/pvp/internal/game/dice"
	"github.com/cory-johannsen/pvp/internal/game/effect"
	"github.com/cory-johannsen/pvp/internal/game/pvperr"
	"github.com/cory-johannsen/pvp/internal/scripting"
)

func newTestResolver(t testing.TB, src dice.Source) (*scripting.Resolver, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	r := scripting.NewResolver(effect.DefaultRegistry(), src, zap.New(core))
	t.Cleanup(r.Close)
	return r, logs
}

func writeTempLua(t testing.TB, filename, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(src), 0644))
	return dir
}

func request(kind combat.AbilityKind, id string) combat.AbilityRequest {
	return combat.AbilityRequest{
		BattleID:  "b1",
		Kind:      kind,
		AbilityID: id,
		Turn:      3,
		Actor:     combat.Combatant{PlayerID: "alice", Name: "Alice", HP: 300, MaxHP: 500, Attack: 60},
		Target:    combat.Combatant{PlayerID: "bob", Name: "Bob", HP: 500, MaxHP: 500, Attack: 50},
	}
}

func TestResolver_PowerOutcome(t *testing.T) {
	r, _ := newTestResolver(t, dice.NewScriptedSource([]int{4}, nil))
	dir := writeTempLua(t, "p.lua", `
		engine.register_power("zap", function(req)
			return {
				damage = req.actor.attack + engine.roll(1, 10),
				heal = 5,
				detail = req.actor.name .. " zaps " .. req.target.name,
				target_effects = { "venom" },
				self_effects = { { type = "defense_up", magnitude = 7, duration = 1 } },
			}
		end)
	`)
	require.NoError(t, r.LoadDir(dir, 0))

	out, err := r.Resolve(context.Background(), request(combat.AbilityPower, "zap"))
	require.NoError(t, err)
	assert.Equal(t, 65, out.Damage)
	assert.Equal(t, 5, out.Heal)
	assert.Equal(t, "Alice zaps Bob", out.Detail)
	assert.Equal(t, []effect.Status{{Type: effect.Poison, Magnitude: 5, Remaining: 3}}, out.TargetEffects)
	assert.Equal(t, []effect.Status{{Type: effect.DefenseUp, Magnitude: 7, Remaining: 1}}, out.SelfEffects)
}

func TestResolver_NilReturnIsEmptyOutcome(t *testing.T) {
	r, _ := newTestResolver(t, dice.NewSeededSource(1))
	dir := writeTempLua(t, "i.lua", `engine.register_item("dud", function(req) end)`)
	require.NoError(t, r.LoadDir(dir, 0))

	out, err := r.Resolve(context.Background(), request(combat.AbilityItem, "dud"))
	require.NoError(t, err)
	assert.Equal(t, combat.AbilityOutcome{}, out)
}

func TestResolver_KindsAreSeparate(t *testing.T) {
	r, _ := newTestResolver(t, dice.NewSeededSource(1))
	dir := writeTempLua(t, "p.lua", `engine.register_power("zap", function(req) return { damage = 1 } end)`)
	require.NoError(t, r.LoadDir(dir, 0))

	_, err := r.Resolve(context.Background(), request(combat.AbilityItem, "zap"))
	assert.ErrorIs(t, err, pvperr.ErrUnknownAbility)
	_, err = r.Resolve(context.Background(), request(combat.AbilityPower, "nope"))
	assert.ErrorIs(t, err, pvperr.ErrUnknownAbility)
}

func TestResolver_BeforeLoad(t *testing.T) {
	r, _ := newTestResolver(t, dice.NewSeededSource(1))
	_, err := r.Resolve(context.Background(), request(combat.AbilityPower, "zap"))
	assert.ErrorIs(t, err, pvperr.ErrUnknownAbility)
}

func TestResolver_RuntimeErrorLoggedAndReturned(t *testing.T) {
	r, logs := newTestResolver(t, dice.NewSeededSource(1))
	dir := writeTempLua(t, "bad.lua", `engine.register_power("boom", function(req) error("intentional") end)`)
	require.NoError(t, r.LoadDir(dir, 0))

	_, err := r.Resolve(context.Background(), request(combat.AbilityPower, "boom"))
	require.Error(t, err)
	assert.Equal(t, 1, logs.FilterLevelExact(zap.WarnLevel).Len())
}

func TestResolver_RunawayHandlerStopped(t *testing.T) {
	r, _ := newTestResolver(t, dice.NewSeededSource(1))
	dir := writeTempLua(t, "loop.lua", `
		engine.register_power("spin", function(req) while true do end end)
		engine.register_power("ok", function(req) return { damage = 2 } end)
	`)
	require.NoError(t, r.LoadDir(dir, 1000))

	_, err := r.Resolve(context.Background(), request(combat.AbilityPower, "spin"))
	require.Error(t, err)

	out, err := r.Resolve(context.Background(), request(combat.AbilityPower, "ok"))
	require.NoError(t, err, "the VM stays usable after a runaway handler")
	assert.Equal(t, 2, out.Damage)
}

func TestResolver_RejectsBadOutcomes(t *testing.T) {
	r, _ := newTestResolver(t, dice.NewSeededSource(1))
	dir := writeTempLua(t, "bad.lua", `
		engine.register_power("str", function(req) return "nope" end)
		engine.register_power("unknown_effect", function(req) return { target_effects = { "plague" } } end)
		engine.register_power("bad_kind", function(req) return { self_effects = { { type = "haste", magnitude = 1, duration = 1 } } } end)
		engine.register_power("no_duration", function(req) return { self_effects = { { type = "regen", magnitude = 1 } } } end)
	`)
	require.NoError(t, r.LoadDir(dir, 0))

	for _, id := range []string{"str", "unknown_effect", "bad_kind", "no_duration"} {
		_, err := r.Resolve(context.Background(), request(combat.AbilityPower, id))
		assert.Error(t, err, id)
	}
}

func TestResolver_NegativeNumbersClampToZero(t *testing.T) {
	r, _ := newTestResolver(t, dice.NewSeededSource(1))
	dir := writeTempLua(t, "n.lua", `engine.register_power("neg", function(req) return { damage = -5, heal = -1 } end)`)
	require.NoError(t, r.LoadDir(dir, 0))

	out, err := r.Resolve(context.Background(), request(combat.AbilityPower, "neg"))
	require.NoError(t, err)
	assert.Zero(t, out.Damage)
	assert.Zero(t, out.Heal)
}

func TestResolver_LoadFailureKeepsPrevious(t *testing.T) {
	r, _ := newTestResolver(t, dice.NewSeededSource(1))
	good := writeTempLua(t, "a.lua", `engine.register_power("zap", function(req) return { damage = 1 } end)`)
	require.NoError(t, r.LoadDir(good, 0))

	bad := writeTempLua(t, "a.lua", `this is not lua`)
	require.Error(t, r.LoadDir(bad, 0))
	assert.Equal(t, []string{"zap"}, r.Powers())

	require.Error(t, r.LoadDir(filepath.Join(t.TempDir(), "missing"), 0))
}

func TestResolver_ConcurrentResolve(t *testing.T) {
	r, _ := newTestResolver(t, dice.NewSeededSource(9))
	dir := writeTempLua(t, "p.lua", `engine.register_power("zap", function(req) return { damage = engine.roll(1, 6) } end)`)
	require.NoError(t, r.LoadDir(dir, 0))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := r.Resolve(context.Background(), request(combat.AbilityPower, "zap"))
			assert.NoError(t, err)
			assert.True(t, out.Damage >= 1 && out.Damage <= 6)
		}()
	}
	wg.Wait()
}

func TestResolver_ShippedScripts(t *testing.T) {
	r, _ := newTestResolver(t, dice.NewSeededSource(1))
	require.NoError(t, r.LoadDir(filepath.Join("..", "..", "content", "scripts"), 0))

	assert.Equal(t, []string{"fireball", "second_wind", "shield_wall", "venom_strike", "war_cry"}, r.Powers())
	assert.Equal(t, []string{"fire_bomb", "health_potion", "regen_tonic"}, r.Items())

	for _, id := range r.Powers() {
		_, err := r.Resolve(context.Background(), request(combat.AbilityPower, id))
		assert.NoError(t, err, id)
	}
	for _, id := range r.Items() {
		_, err := r.Resolve(context.Background(), request(combat.AbilityItem, id))
		assert.NoError(t, err, id)
	}
}
