package scripting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/pvp/internal/game/combat"
	"github.com/cory-johannsen/pvp/internal/game/dice"
	"github.com/cory-johannsen/pvp/internal/game/effect"
	"github.com/cory-johannsen/pvp/internal/game/pvperr"
)

// Resolver resolves powers and items with handlers registered by Lua scripts.
//
// A script registers a handler with engine.register_power(id, fn) or
// engine.register_item(id, fn). The handler receives a request table
// {battle_id, turn, actor, target} and returns nil or an outcome table:
//
//	{damage = n, heal = n, detail = "...",
//	 target_effects = {"venom", {type = "poison", magnitude = 3, duration = 2}},
//	 self_effects = {...}}
//
// String effect entries name a definition in the effect registry.
//
// Resolver is safe for concurrent use; calls into the VM are serialised.
type Resolver struct {
	mu        sync.Mutex
	state     *lua.LState
	powers    map[string]*lua.LFunction
	items     map[string]*lua.LFunction
	instLimit int

	effects *effect.Registry
	src     dice.Source
	logger  *zap.Logger
}

// NewResolver creates a Resolver with no scripts loaded.
//
// Precondition: effects, src and logger must be non-nil.
func NewResolver(effects *effect.Registry, src dice.Source, logger *zap.Logger) *Resolver {
	return &Resolver{
		powers:  make(map[string]*lua.LFunction),
		items:   make(map[string]*lua.LFunction),
		effects: effects,
		src:     src,
		logger:  logger,
	}
}

// LoadDir builds a fresh VM, runs every *.lua file in dir in lexicographic
// order, then replaces the current VM and handlers.
//
// Precondition: dir must be a readable directory; instLimit >= 0.
// Postcondition: on error the previously loaded scripts stay active.
func (r *Resolver) LoadDir(dir string, instLimit int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q: %w", dir, err)
	}
	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	L := NewSandboxedState()
	powers := make(map[string]*lua.LFunction)
	items := make(map[string]*lua.LFunction)
	r.registerModules(L, powers, items)

	for _, path := range luaFiles {
		release := LimitInstructions(context.Background(), L, instLimit)
		err := L.DoFile(path)
		release()
		if err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q: %w", path, err)
		}
	}

	r.mu.Lock()
	old := r.state
	r.state, r.powers, r.items, r.instLimit = L, powers, items, instLimit
	r.mu.Unlock()
	if old != nil {
		old.Close()
	}
	r.logger.Info("ability scripts loaded",
		zap.String("dir", dir),
		zap.Int("powers", len(powers)),
		zap.Int("items", len(items)),
	)
	return nil
}

// Close releases the VM.
func (r *Resolver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != nil {
		r.state.Close()
		r.state = nil
	}
}

// Powers returns the registered power ids, sorted.
func (r *Resolver) Powers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedKeys(r.powers)
}

// Items returns the registered item ids, sorted.
func (r *Resolver) Items() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedKeys(r.items)
}

// Resolve implements combat.AbilityResolver. Unknown ids fail with
// pvperr.ErrUnknownAbility. Lua runtime errors, including an exhausted
// instruction budget, are logged at Warn level and returned.
func (r *Resolver) Resolve(ctx context.Context, req combat.AbilityRequest) (combat.AbilityOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	handlers := r.powers
	if req.Kind == combat.AbilityItem {
		handlers = r.items
	}
	fn, ok := handlers[req.AbilityID]
	if !ok || r.state == nil {
		return combat.AbilityOutcome{}, fmt.Errorf("%w: %s %s", pvperr.ErrUnknownAbility, req.Kind, req.AbilityID)
	}
	L := r.state

	release := LimitInstructions(ctx, L, r.instLimit)
	err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, requestTable(L, req))
	release()
	if err != nil {
		r.logger.Warn("scripting: Lua runtime error",
			zap.String("ability_id", req.AbilityID),
			zap.String("kind", string(req.Kind)),
			zap.Error(err),
		)
		return combat.AbilityOutcome{}, fmt.Errorf("scripting: %s %s: %w", req.Kind, req.AbilityID, err)
	}
	ret := L.Get(-1)
	L.Pop(1)

	out, err := r.outcomeFrom(ret)
	if err != nil {
		return combat.AbilityOutcome{}, fmt.Errorf("scripting: %s %s: %w", req.Kind, req.AbilityID, err)
	}
	return out, nil
}

func requestTable(L *lua.LState, req combat.AbilityRequest) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("battle_id", lua.LString(req.BattleID))
	t.RawSetString("ability_id", lua.LString(req.AbilityID))
	t.RawSetString("turn", lua.LNumber(req.Turn))
	t.RawSetString("actor", combatantTable(L, &req.Actor))
	t.RawSetString("target", combatantTable(L, &req.Target))
	return t
}

func combatantTable(L *lua.LState, c *combat.Combatant) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("player_id", lua.LString(c.PlayerID))
	t.RawSetString("name", lua.LString(c.Name))
	t.RawSetString("hp", lua.LNumber(c.HP))
	t.RawSetString("max_hp", lua.LNumber(c.MaxHP))
	t.RawSetString("action_points", lua.LNumber(c.ActionPoints))
	t.RawSetString("attack", lua.LNumber(c.Attack))
	t.RawSetString("defense", lua.LNumber(c.Defense))
	t.RawSetString("evasion", lua.LNumber(c.Evasion))
	t.RawSetString("crit_chance", lua.LNumber(c.CritChance))
	effects := L.NewTable()
	for _, st := range c.Effects {
		e := L.NewTable()
		e.RawSetString("type", lua.LString(st.Type))
		e.RawSetString("magnitude", lua.LNumber(st.Magnitude))
		e.RawSetString("remaining", lua.LNumber(st.Remaining))
		effects.Append(e)
	}
	t.RawSetString("effects", effects)
	return t
}

func (r *Resolver) outcomeFrom(v lua.LValue) (combat.AbilityOutcome, error) {
	var out combat.AbilityOutcome
	if v == lua.LNil {
		return out, nil
	}
	t, ok := v.(*lua.LTable)
	if !ok {
		return out, fmt.Errorf("handler returned %s, want table", v.Type())
	}
	out.Damage = nonNegative(t.RawGetString("damage"))
	out.Heal = nonNegative(t.RawGetString("heal"))
	if s, ok := t.RawGetString("detail").(lua.LString); ok {
		out.Detail = string(s)
	}
	var err error
	if out.TargetEffects, err = r.effectList(t.RawGetString("target_effects")); err != nil {
		return out, fmt.Errorf("target_effects: %w", err)
	}
	if out.SelfEffects, err = r.effectList(t.RawGetString("self_effects")); err != nil {
		return out, fmt.Errorf("self_effects: %w", err)
	}
	return out, nil
}

func (r *Resolver) effectList(v lua.LValue) ([]effect.Status, error) {
	if v == lua.LNil {
		return nil, nil
	}
	t, ok := v.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("got %s, want table", v.Type())
	}
	var out []effect.Status
	for i := 1; i <= t.Len(); i++ {
		switch e := t.RawGetInt(i).(type) {
		case lua.LString:
			def, ok := r.effects.Get(string(e))
			if !ok {
				return nil, fmt.Errorf("unknown effect %q", string(e))
			}
			out = append(out, def.Status())
		case *lua.LTable:
			st := effect.Status{
				Type:      effect.Kind(lua.LVAsString(e.RawGetString("type"))),
				Magnitude: nonNegative(e.RawGetString("magnitude")),
				Remaining: nonNegative(e.RawGetString("duration")),
			}
			if !st.Type.Valid() {
				return nil, fmt.Errorf("unknown effect type %q", st.Type)
			}
			if st.Remaining == 0 {
				return nil, fmt.Errorf("effect %q needs a positive duration", st.Type)
			}
			out = append(out, st)
		default:
			return nil, fmt.Errorf("entry %d is %s", i, e.Type())
		}
	}
	return out, nil
}

func nonNegative(v lua.LValue) int {
	n, ok := v.(lua.LNumber)
	if !ok || n < 0 {
		return 0
	}
	return int(n)
}

func sortedKeys(m map[string]*lua.LFunction) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
