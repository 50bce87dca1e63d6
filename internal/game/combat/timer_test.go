package combat_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/cory-johannsen/pvp/internal/game/combat"
)

func TestTurnTimer_Fires(t *testing.T) {
	var called atomic.Int32
	combat.NewTurnTimer(20*time.Millisecond, func() {
		called.Add(1)
	})
	time.Sleep(60 * time.Millisecond)
	if called.Load() != 1 {
		t.Fatalf("expected callback called once, got %d", called.Load())
	}
}

func TestTurnTimer_Stop_PreventsCallback(t *testing.T) {
	var called atomic.Int32
	tt := combat.NewTurnTimer(50*time.Millisecond, func() {
		called.Add(1)
	})
	tt.Stop()
	time.Sleep(80 * time.Millisecond)
	if called.Load() != 0 {
		t.Fatalf("expected callback not called, got %d", called.Load())
	}
}

func TestTurnTimer_StopIdempotent(t *testing.T) {
	tt := combat.NewTurnTimer(50*time.Millisecond, func() {})
	tt.Stop()
	tt.Stop()
}
