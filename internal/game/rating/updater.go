package rating

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/pvp/internal/game/combat"
	"github.com/cory-johannsen/pvp/internal/game/pvperr"
)

// Result is one player's outcome in a finished battle.
type Result string

const (
	ResultWin  Result = "win"
	ResultLoss Result = "loss"
	ResultDraw Result = "draw"
	ResultFlee Result = "flee"
)

// Stats is a player's persistent combat record.
type Stats struct {
	PlayerID      string    `json:"player_id"`
	Rating        int       `json:"pvp_rating"`
	Wins          int       `json:"wins"`
	Losses        int       `json:"losses"`
	Draws         int       `json:"draws"`
	Flees         int       `json:"flees"`
	BattlesPlayed int       `json:"battles_played"`
	WinStreak     int       `json:"win_streak"`
	BestStreak    int       `json:"best_streak"`
	DamageDealt   int64     `json:"damage_dealt"`
	DamageTaken   int64     `json:"damage_taken"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Tier returns the arena tier for the record's rating.
func (s Stats) Tier() Tier { return TierFor(s.Rating) }

// Delta is an increment applied atomically by a Store.
// Result drives the streak columns: a win extends the streak, anything else resets it.
type Delta struct {
	Result      Result
	RatingDelta int
	DamageDealt int
	DamageTaken int
	// BaseRating seeds the rating when the player has no record yet.
	BaseRating int
}

// Store persists Stats. GetStats wraps pvperr.ErrPlayerNotFound when the
// player has no record yet; RecordOutcome creates the record on first use.
type Store interface {
	GetStats(ctx context.Context, playerID string) (Stats, error)
	RecordOutcome(ctx context.Context, playerID string, d Delta) (Stats, error)
}

// PlayerResult is one participant's line in an Outcome.
type PlayerResult struct {
	PlayerID    string
	Result      Result
	DamageDealt int
	DamageTaken int
}

// Outcome is the input to ApplyResult.
type Outcome struct {
	BattleID string
	Ranked   bool
	Players  []PlayerResult
}

// OutcomeOf builds the Outcome of a terminal battle.
//
// Precondition: b.Status is terminal.
func OutcomeOf(b *combat.Battle) Outcome {
	o := Outcome{BattleID: b.ID, Ranked: b.Ranked}
	for _, c := range b.Combatants {
		r := ResultLoss
		switch {
		case b.Draw:
			r = ResultDraw
		case c.PlayerID == b.WinnerID:
			r = ResultWin
		case c.PlayerID == b.LoserID && b.Status == combat.StatusFled:
			r = ResultFlee
		case b.Status == combat.StatusFled && b.WinnerID == "":
			// several opponents remained; only the fleeing player has a result
			continue
		}
		o.Players = append(o.Players, PlayerResult{
			PlayerID:    c.PlayerID,
			Result:      r,
			DamageDealt: c.DamageDealt,
			DamageTaken: c.DamageTaken,
		})
	}
	return o
}

// Config holds the updater's tunables.
type Config struct {
	KFactor       float64
	DefaultRating int
	FleePenalty   int
}

// Updater is the only writer of Stats.
type Updater struct {
	store  Store
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// NewUpdater creates an Updater. Zero fields in cfg take the package defaults.
//
// Precondition: store and logger must be non-nil.
func NewUpdater(store Store, cfg Config, logger *zap.Logger) *Updater {
	if cfg.KFactor <= 0 {
		cfg.KFactor = DefaultKFactor
	}
	if cfg.DefaultRating <= 0 {
		cfg.DefaultRating = DefaultRating
	}
	if cfg.FleePenalty <= 0 {
		cfg.FleePenalty = DefaultFleePenalty
	}
	return &Updater{store: store, cfg: cfg, logger: logger, now: time.Now}
}

// Stats returns playerID's record, or a fresh record at the default rating.
func (u *Updater) Stats(ctx context.Context, playerID string) (Stats, error) {
	s, err := u.store.GetStats(ctx, playerID)
	if errors.Is(err, pvperr.ErrPlayerNotFound) {
		return Stats{PlayerID: playerID, Rating: u.cfg.DefaultRating}, nil
	}
	if err != nil {
		return Stats{}, fmt.Errorf("loading stats for %s: %w", playerID, err)
	}
	return s, nil
}

// Rating returns playerID's current rating.
func (u *Updater) Rating(ctx context.Context, playerID string) (int, error) {
	s, err := u.Stats(ctx, playerID)
	return s.Rating, err
}

// ApplyBattle applies the outcome of the terminal battle b.
func (u *Updater) ApplyBattle(ctx context.Context, b *combat.Battle) (combat.Settlement, error) {
	if !b.Status.Terminal() {
		return combat.Settlement{}, fmt.Errorf("%w: battle %s is still active", pvperr.ErrInvalidState, b.ID)
	}
	return u.ApplyResult(ctx, OutcomeOf(b))
}

// ApplyResult records o. Ranked two-player win/loss and draw outcomes move
// ratings by Elo; a flee costs the fleeing player a flat penalty and leaves
// the opponent's rating alone. Counters, streaks and damage totals always move.
//
// Postcondition: one settlement entry per player in o, in order.
func (u *Updater) ApplyResult(ctx context.Context, o Outcome) (combat.Settlement, error) {
	before := make(map[string]int, len(o.Players))
	for _, p := range o.Players {
		r, err := u.Rating(ctx, p.PlayerID)
		if err != nil {
			return combat.Settlement{}, err
		}
		before[p.PlayerID] = r
	}

	deltas := u.ratingDeltas(o, before)
	settlement := combat.Settlement{Ranked: o.Ranked, SettledAt: u.now()}
	for _, p := range o.Players {
		after, err := u.store.RecordOutcome(ctx, p.PlayerID, Delta{
			Result:      p.Result,
			RatingDelta: deltas[p.PlayerID],
			DamageDealt: p.DamageDealt,
			DamageTaken: p.DamageTaken,
			BaseRating:  u.cfg.DefaultRating,
		})
		if err != nil {
			return combat.Settlement{}, fmt.Errorf("recording outcome for %s: %w", p.PlayerID, err)
		}
		settlement.Entries = append(settlement.Entries, combat.SettlementEntry{
			PlayerID:     p.PlayerID,
			Result:       string(p.Result),
			RatingBefore: before[p.PlayerID],
			RatingAfter:  after.Rating,
		})
	}
	u.logger.Info("battle settled",
		zap.String("battle_id", o.BattleID),
		zap.Bool("ranked", o.Ranked),
		zap.Any("deltas", deltas),
	)
	return settlement, nil
}

func (u *Updater) ratingDeltas(o Outcome, before map[string]int) map[string]int {
	deltas := make(map[string]int, len(o.Players))
	for _, p := range o.Players {
		if p.Result == ResultFlee {
			deltas[p.PlayerID] = -u.cfg.FleePenalty
		}
	}
	if !o.Ranked || len(o.Players) != 2 {
		return deltas
	}
	a, b := o.Players[0], o.Players[1]
	var actualA float64
	switch {
	case a.Result == ResultWin && b.Result == ResultLoss:
		actualA = 1
	case a.Result == ResultLoss && b.Result == ResultWin:
		actualA = 0
	case a.Result == ResultDraw && b.Result == ResultDraw:
		actualA = 0.5
	default:
		return deltas
	}
	ra, rb := before[a.PlayerID], before[b.PlayerID]
	deltas[a.PlayerID] = NewRating(ra, rb, actualA, u.cfg.KFactor) - ra
	deltas[b.PlayerID] = NewRating(rb, ra, 1-actualA, u.cfg.KFactor) - rb
	return deltas
}
