package combat

import (
	"sync"
	"time"
)

// TurnTimer fires a callback once after a duration unless stopped.
// It is safe for concurrent use.
type TurnTimer struct {
	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewTurnTimer creates and starts a timer that calls onFire after duration.
// onFire is called in a separate goroutine.
//
// Precondition: duration > 0; onFire must not be nil.
// Postcondition: onFire will be called unless Stop is called first.
func NewTurnTimer(duration time.Duration, onFire func()) *TurnTimer {
	tt := &TurnTimer{}
	tt.mu.Lock()
	defer tt.mu.Unlock()
	tt.timer = time.AfterFunc(duration, func() {
		tt.mu.Lock()
		stopped := tt.stopped
		tt.stopped = true
		tt.mu.Unlock()
		if !stopped {
			onFire()
		}
	})
	return tt
}

// Stop prevents the callback from firing. Safe to call multiple times.
//
// Postcondition: onFire will not be called after Stop returns, unless it had already started.
func (tt *TurnTimer) Stop() {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	tt.stopped = true
	tt.timer.Stop()
}
