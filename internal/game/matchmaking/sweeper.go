package matchmaking

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/pvp/internal/game/combat"
	"github.com/cory-johannsen/pvp/internal/game/pvperr"
)

// Sweeper periodically attempts a match for every waiting player.
//
// Invariant: at most one sweep runs at a time.
type Sweeper struct {
	queue    *Queue
	interval time.Duration
	onMatch  func(*combat.Battle)
	logger   *zap.Logger
}

// NewSweeper returns a sweeper over q that fires every interval.
// onMatch, when non-nil, is called once per battle started by a sweep.
//
// Precondition: interval must be > 0.
func NewSweeper(q *Queue, interval time.Duration, onMatch func(*combat.Battle), logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		panic("matchmaking.NewSweeper: interval must be > 0")
	}
	return &Sweeper{queue: q, interval: interval, onMatch: onMatch, logger: logger}
}

// Sweep runs one pass in join order and returns the battles it started.
// Players matched earlier in the pass are skipped.
func (s *Sweeper) Sweep(ctx context.Context) []*combat.Battle {
	var started []*combat.Battle
	for _, id := range s.queue.Waiting() {
		if ctx.Err() != nil {
			break
		}
		b, err := s.queue.FindMatch(ctx, id)
		switch {
		case errors.Is(err, pvperr.ErrNotQueued):
			continue
		case err != nil:
			s.logger.Warn("sweep match failed", zap.String("player_id", id), zap.Error(err))
			continue
		case b == nil:
			continue
		}
		started = append(started, b)
		if s.onMatch != nil {
			s.onMatch(b)
		}
	}
	return started
}

// Start begins the sweep loop. Runs until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(ctx)
			}
		}
	}()
}
