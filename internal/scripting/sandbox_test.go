package scripting_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/pvp/internal/scripting"
)

func TestNewSandboxedState_UnsafeLibsNil(t *testing.T) {
	L := scripting.NewSandboxedState()
	require.NotNil(t, L)
	defer L.Close()
	for _, name := range []string{"os", "io", "debug"} {
		assert.Equal(t, lua.LNil, L.GetGlobal(name), "expected %s to be nil", name)
	}
}

func TestNewSandboxedState_DangerousGlobalsNil(t *testing.T) {
	L := scripting.NewSandboxedState()
	require.NotNil(t, L)
	defer L.Close()
	for _, name := range []string{"dofile", "loadfile", "load", "collectgarbage", "require"} {
		assert.Equal(t, lua.LNil, L.GetGlobal(name), "expected %s to be nil", name)
	}
}

func TestNewSandboxedState_SafeLibsAvailable(t *testing.T) {
	L := scripting.NewSandboxedState()
	require.NotNil(t, L)
	defer L.Close()
	err := L.DoString(`
		local x = math.sqrt(4)
		assert(x == 2.0, "math.sqrt failed")
		local s = string.upper("hello")
		assert(s == "HELLO", "string.upper failed")
	`)
	assert.NoError(t, err)
}

func TestLimitInstructions_StopsRunawayLoop(t *testing.T) {
	L := scripting.NewSandboxedState()
	defer L.Close()
	release := scripting.LimitInstructions(context.Background(), L, 10)
	err := L.DoString(`while true do end`)
	release()
	assert.Error(t, err, "expected instruction limit error")
}

func TestLimitInstructions_FreshBudgetPerCall(t *testing.T) {
	L := scripting.NewSandboxedState()
	defer L.Close()
	for i := 0; i < 5; i++ {
		release := scripting.LimitInstructions(context.Background(), L, 0)
		err := L.DoString(`local n = 0 for i = 1, 1000 do n = n + i end`)
		release()
		require.NoError(t, err, "call %d", i)
	}
}

func TestLimitInstructions_HonoursParentCancel(t *testing.T) {
	L := scripting.NewSandboxedState()
	defer L.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	release := scripting.LimitInstructions(ctx, L, 0)
	defer release()
	assert.Error(t, L.DoString(`local x = 1 + 1`))
}

func TestProperty_InstructionLimitAlwaysErrors(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		limit := rapid.IntRange(1, 50).Draw(t, "limit")
		L := scripting.NewSandboxedState()
		defer L.Close()
		release := scripting.LimitInstructions(context.Background(), L, limit)
		defer release()
		err := L.DoString(`while true do end`)
		if err == nil {
			t.Fatalf("expected error with limit=%d but got nil", limit)
		}
	})
}
