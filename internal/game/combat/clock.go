package combat

import (
	"sync"
	"time"

	"github.com/cory-johannsen/pvp/internal/game/effect"
)

// TurnClock owns per-battle turn deadlines and the turn-advance bookkeeping
// (action point refill and status effect ticks).
// All methods are safe for concurrent use.
type TurnClock struct {
	mu        sync.Mutex
	deadlines map[string]time.Time
	timers    map[string]*TurnTimer
	now       func() time.Time
}

// NewTurnClock creates a TurnClock reading time from now.
//
// Precondition: now must not be nil.
func NewTurnClock(now func() time.Time) *TurnClock {
	return &TurnClock{
		deadlines: make(map[string]time.Time),
		timers:    make(map[string]*TurnTimer),
		now:       now,
	}
}

// StartTurn records deadline = now + limit for battleID, replacing any previous
// deadline. When onExpire is non-nil it is called once the deadline passes.
// A non-positive limit clears the deadline.
//
// Postcondition: any timer armed by an earlier StartTurn for battleID is stopped.
func (c *TurnClock) StartTurn(battleID string, limit time.Duration, onExpire func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.timers[battleID]; ok {
		t.Stop()
		delete(c.timers, battleID)
	}
	if limit <= 0 {
		delete(c.deadlines, battleID)
		return
	}
	c.deadlines[battleID] = c.now().Add(limit)
	if onExpire != nil {
		c.timers[battleID] = NewTurnTimer(limit, onExpire)
	}
}

// TimeRemaining returns the time left before the current deadline, floored at zero.
// The second result is false when battleID has no deadline.
func (c *TurnClock) TimeRemaining(battleID string) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.deadlines[battleID]
	if !ok {
		return 0, false
	}
	return max(0, d.Sub(c.now())), true
}

// IsExpired reports whether battleID has a deadline that has passed.
func (c *TurnClock) IsExpired(battleID string) bool {
	rem, ok := c.TimeRemaining(battleID)
	return ok && rem == 0
}

// Stop drops the deadline and timer for battleID.
func (c *TurnClock) Stop(battleID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.timers[battleID]; ok {
		t.Stop()
		delete(c.timers, battleID)
	}
	delete(c.deadlines, battleID)
}

// OnTurnAdvance refills the new current actor's action points and ticks status
// effects on every combatant. It returns one effect_tick log entry per
// combatant whose hp or effects changed. The deadline itself is restarted by
// the engine once the advanced state is committed.
//
// Precondition: b has already been advanced to the new actor.
// Postcondition: b.CurrentActor().ActionPoints == MaxActionPoints; 0 <= hp <= max_hp for all combatants.
func (c *TurnClock) OnTurnAdvance(b *Battle) []LogEntry {
	actor := b.CurrentActor()
	actor.ActionPoints = actor.MaxActionPoints

	ts := c.now()
	var entries []LogEntry
	for _, cbt := range b.Combatants {
		if len(cbt.Effects) == 0 {
			continue
		}
		var res effect.TickResult
		cbt.Effects, cbt.HP, res = effect.Tick(cbt.Effects, cbt.HP, cbt.MaxHP)
		cbt.DamageTaken += res.Damage
		entries = append(entries, LogEntry{
			Turn:   b.CurrentTurn,
			Actor:  cbt.PlayerID,
			Action: LogEffectTick,
			Target: cbt.PlayerID,
			Result: ActionResult{
				Damage:   res.Damage,
				Healed:   res.Healed,
				Expired:  res.Expired,
				TargetHP: cbt.HP,
			},
			Timestamp: ts,
		})
	}
	return entries
}
