// Package matchmaking pairs queued players into battles.
//
// The Queue is a single mutex-guarded map. A matched pair is removed under
// that mutex before the battle is started, so concurrent FindMatch callers
// can never match the same entry twice.
package matchmaking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/pvp/internal/game/combat"
	"github.com/cory-johannsen/pvp/internal/game/dice"
	"github.com/cory-johannsen/pvp/internal/game/pvperr"
)

// DefaultRatingWindow is the widest rating gap accepted for a ranked match.
const DefaultRatingWindow = 200

// Entry is one waiting player.
type Entry struct {
	PlayerID string    `json:"player_id"`
	Name     string    `json:"name"`
	Rating   int       `json:"rating"`
	Ranked   bool      `json:"ranked"`
	JoinedAt time.Time `json:"joined_at"`
}

// Status describes a queued player's standing.
type Status struct {
	Entry    Entry         `json:"entry"`
	Position int           `json:"position"`
	Queued   int           `json:"queued"`
	Waited   time.Duration `json:"waited"`
}

// Starter creates the battle for a matched pair.
type Starter interface {
	StartBattle(ctx context.Context, p1ID, p2ID string, opts combat.Options) (*combat.Battle, error)
}

// BattleChecker reports whether a player is already fighting.
type BattleChecker interface {
	InBattle(playerID string) bool
}

// Config tunes the queue.
type Config struct {
	// RatingWindow bounds |Δrating| for ranked matches. Non-positive selects DefaultRatingWindow.
	RatingWindow int
	// MaxWait drops entries older than this on the next queue operation. Zero disables pruning.
	MaxWait time.Duration
	// BattleType is the type of every battle the queue starts. Empty selects arena.
	BattleType combat.BattleType
}

// Queue is the shared matchmaking queue.
type Queue struct {
	mu      sync.Mutex
	entries map[string]*Entry

	cfg     Config
	starter Starter
	battles BattleChecker
	src     dice.Source
	logger  *zap.Logger
	now     func() time.Time
}

// NewQueue creates an empty Queue.
//
// Precondition: starter, src and logger must be non-nil.
func NewQueue(cfg Config, starter Starter, src dice.Source, logger *zap.Logger) *Queue {
	if cfg.RatingWindow <= 0 {
		cfg.RatingWindow = DefaultRatingWindow
	}
	if cfg.BattleType == "" {
		cfg.BattleType = combat.BattleArena
	}
	return &Queue{
		entries: make(map[string]*Entry),
		cfg:     cfg,
		starter: starter,
		src:     src,
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock replaces the queue's time source.
func (q *Queue) SetClock(now func() time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.now = now
}

// SetBattleChecker makes the queue drop entries of players who are already
// in a battle, however they got there.
func (q *Queue) SetBattleChecker(b BattleChecker) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.battles = b
}

// pruneLocked drops entries that waited longer than MaxWait and entries of
// players who entered a battle elsewhere.
//
// Precondition: q.mu is held.
func (q *Queue) pruneLocked(now time.Time) {
	for id, e := range q.entries {
		switch {
		case q.cfg.MaxWait > 0 && now.Sub(e.JoinedAt) > q.cfg.MaxWait:
			delete(q.entries, id)
			q.logger.Info("queue entry expired", zap.String("player_id", id))
		case q.inBattle(id):
			delete(q.entries, id)
			q.logger.Info("queue entry dropped, player in battle", zap.String("player_id", id))
		}
	}
}

func (q *Queue) inBattle(playerID string) bool {
	return q.battles != nil && q.battles.InBattle(playerID)
}

// orderedLocked returns the entries sorted by JoinedAt, then PlayerID.
//
// Precondition: q.mu is held.
func (q *Queue) orderedLocked() []*Entry {
	out := make([]*Entry, 0, len(q.entries))
	for _, e := range q.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	return out
}

// Join enqueues playerID with a rating snapshot.
//
// Postcondition: on success the player has exactly one entry.
func (q *Queue) Join(playerID, name string, rating int, ranked bool) (Entry, error) {
	if playerID == "" {
		return Entry{}, fmt.Errorf("%w: player_id", pvperr.ErrMissingField)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	q.pruneLocked(now)
	if _, ok := q.entries[playerID]; ok {
		return Entry{}, fmt.Errorf("%w: %s", pvperr.ErrAlreadyQueued, playerID)
	}
	e := &Entry{PlayerID: playerID, Name: name, Rating: rating, Ranked: ranked, JoinedAt: now}
	q.entries[playerID] = e
	q.logger.Debug("player queued",
		zap.String("player_id", playerID),
		zap.Int("rating", rating),
		zap.Bool("ranked", ranked),
	)
	return *e, nil
}

// Leave removes playerID's entry and reports whether one existed.
func (q *Queue) Leave(playerID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.entries[playerID]
	delete(q.entries, playerID)
	return ok
}

// Len returns the number of waiting players.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pruneLocked(q.now())
	return len(q.entries)
}

// Position returns playerID's 1-indexed place by join time across all entries.
func (q *Queue) Position(playerID string) (int, error) {
	st, err := q.Status(playerID)
	if err != nil {
		return 0, err
	}
	return st.Position, nil
}

// Status reports playerID's entry, position and wait time.
func (q *Queue) Status(playerID string) (Status, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	q.pruneLocked(now)
	if _, ok := q.entries[playerID]; !ok {
		return Status{}, fmt.Errorf("%w: %s", pvperr.ErrNotQueued, playerID)
	}
	ordered := q.orderedLocked()
	for i, e := range ordered {
		if e.PlayerID == playerID {
			return Status{Entry: *e, Position: i + 1, Queued: len(ordered), Waited: now.Sub(e.JoinedAt)}, nil
		}
	}
	return Status{}, fmt.Errorf("%w: %s", pvperr.ErrNotQueued, playerID)
}

// pickLocked selects an opponent for self, or nil.
//
// Precondition: q.mu is held.
func (q *Queue) pickLocked(self *Entry) *Entry {
	var candidates []*Entry
	for _, e := range q.orderedLocked() {
		if e.PlayerID == self.PlayerID || e.Ranked != self.Ranked {
			continue
		}
		if self.Ranked && abs(e.Rating-self.Rating) > q.cfg.RatingWindow {
			continue
		}
		candidates = append(candidates, e)
	}
	if len(candidates) == 0 {
		return nil
	}
	if !self.Ranked {
		return candidates[q.src.Intn(len(candidates))]
	}
	// candidates are in join order, so the first minimum is the earliest joined.
	best := candidates[0]
	for _, e := range candidates[1:] {
		if abs(e.Rating-self.Rating) < abs(best.Rating-self.Rating) {
			best = e
		}
	}
	return best
}

// FindMatch looks for an opponent for playerID and starts a battle.
// It returns (nil, nil) when no opponent is available; the caller stays queued.
//
// Postcondition: on success neither player has an entry. When the starter
// fails both entries are restored unless the player has since re-joined or
// is now in a battle.
func (q *Queue) FindMatch(ctx context.Context, playerID string) (*combat.Battle, error) {
	q.mu.Lock()
	q.pruneLocked(q.now())
	self, ok := q.entries[playerID]
	if !ok {
		q.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", pvperr.ErrNotQueued, playerID)
	}
	opp := q.pickLocked(self)
	if opp == nil {
		q.mu.Unlock()
		return nil, nil
	}
	delete(q.entries, self.PlayerID)
	delete(q.entries, opp.PlayerID)
	q.mu.Unlock()

	b, err := q.starter.StartBattle(ctx, self.PlayerID, opp.PlayerID, combat.Options{Type: q.cfg.BattleType, Ranked: self.Ranked})
	if err != nil {
		q.restore(self, opp)
		q.logger.Warn("starting matched battle",
			zap.String("player_id", self.PlayerID),
			zap.String("opponent_id", opp.PlayerID),
			zap.Error(err),
		)
		return nil, err
	}
	q.logger.Info("match found",
		zap.String("battle_id", b.ID),
		zap.String("player_id", self.PlayerID),
		zap.String("opponent_id", opp.PlayerID),
		zap.Bool("ranked", self.Ranked),
	)
	return b, nil
}

func (q *Queue) restore(entries ...*Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range entries {
		if _, ok := q.entries[e.PlayerID]; ok || q.inBattle(e.PlayerID) {
			continue
		}
		q.entries[e.PlayerID] = e
	}
}

// Waiting returns the ids of every queued player in join order.
func (q *Queue) Waiting() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pruneLocked(q.now())
	ordered := q.orderedLocked()
	ids := make([]string, len(ordered))
	for i, e := range ordered {
		ids[i] = e.PlayerID
	}
	return ids
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
