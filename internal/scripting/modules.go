package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/pvp/internal/game/dice"
)

// registerModules defines the engine global in L. Handlers registered by
// scripts land in the powers and items maps.
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine.register_power, engine.register_item, engine.roll,
// engine.chance and engine.log are defined in L.
func (r *Resolver) registerModules(L *lua.LState, powers, items map[string]*lua.LFunction) {
	engine := L.NewTable()
	L.SetField(engine, "register_power", L.NewFunction(registerInto(powers)))
	L.SetField(engine, "register_item", L.NewFunction(registerInto(items)))
	L.SetField(engine, "roll", L.NewFunction(func(L *lua.LState) int {
		lo, hi := L.CheckInt(1), L.CheckInt(2)
		if hi < lo {
			L.ArgError(2, "hi must be >= lo")
			return 0
		}
		L.Push(lua.LNumber(dice.IntRange(r.src, lo, hi)))
		return 1
	}))
	L.SetField(engine, "chance", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(dice.Chance(r.src, float64(L.CheckNumber(1)))))
		return 1
	}))
	L.SetField(engine, "log", L.NewFunction(func(L *lua.LState) int {
		r.logger.Debug("script", zap.String("msg", L.CheckString(1)))
		return 0
	}))
	L.SetGlobal("engine", engine)
}

func registerInto(dst map[string]*lua.LFunction) lua.LGFunction {
	return func(L *lua.LState) int {
		id := L.CheckString(1)
		fn := L.CheckFunction(2)
		if id == "" {
			L.ArgError(1, "ability id must be non-empty")
			return 0
		}
		dst[id] = fn
		return 0
	}
}
