package challenge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/pvp/internal/game/combat"
	"github.com/cory-johannsen/pvp/internal/game/pvperr"
)

// Store persists challenges. GetChallenge wraps pvperr.ErrChallengeNotFound
// when the id is unknown.
type Store interface {
	SaveChallenge(ctx context.Context, c *Challenge) error
	GetChallenge(ctx context.Context, id string) (*Challenge, error)
	// ListPendingChallenges returns pending challenges sent or received by playerID, oldest first.
	ListPendingChallenges(ctx context.Context, playerID string) ([]*Challenge, error)
}

// Players resolves display names. DisplayName wraps pvperr.ErrPlayerNotFound
// for unknown players.
type Players interface {
	DisplayName(ctx context.Context, playerID string) (string, error)
}

// BattleChecker reports whether a player is already fighting.
type BattleChecker interface {
	InBattle(playerID string) bool
}

// Starter creates the battle for an accepted challenge.
type Starter interface {
	StartBattle(ctx context.Context, p1ID, p2ID string, opts combat.Options) (*combat.Battle, error)
}

// Broker creates, accepts and declines challenges.
// Expiry is lazy: a pending challenge past ExpiresAt is marked expired by
// Accept, Decline or ListPending when they read it. There is no background sweep.
type Broker struct {
	store   Store
	players Players
	battles BattleChecker
	starter Starter
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time

	locksMu sync.Mutex
	locks   map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewBroker creates a Broker. A non-positive ttl selects DefaultTTL.
//
// Precondition: every argument except ttl must be non-nil.
func NewBroker(store Store, players Players, battles BattleChecker, starter Starter, ttl time.Duration, logger *zap.Logger) *Broker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Broker{
		store:   store,
		players: players,
		battles: battles,
		starter: starter,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
		locks:   make(map[string]*keyLock),
	}
}

// SetClock replaces the broker's time source.
func (b *Broker) SetClock(now func() time.Time) { b.now = now }

// lock serialises Accept and Decline on one challenge id and returns the unlock func.
func (b *Broker) lock(id string) func() {
	b.locksMu.Lock()
	l, ok := b.locks[id]
	if !ok {
		l = &keyLock{}
		b.locks[id] = l
	}
	l.refs++
	b.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		b.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(b.locks, id)
		}
		b.locksMu.Unlock()
	}
}

// Create persists a pending challenge from challengerID to targetID.
//
// Postcondition: on success Status is pending and ExpiresAt == CreatedAt + ttl.
func (b *Broker) Create(ctx context.Context, challengerID, targetID, combatType, message string) (*Challenge, error) {
	if challengerID == "" || targetID == "" {
		return nil, fmt.Errorf("%w: challenger and target are required", pvperr.ErrMissingField)
	}
	if challengerID == targetID {
		return nil, fmt.Errorf("%w: cannot challenge yourself", pvperr.ErrInvalidChallenge)
	}
	if b.battles.InBattle(challengerID) {
		return nil, fmt.Errorf("%w: %s is already in a battle", pvperr.ErrInvalidChallenge, challengerID)
	}
	bt, err := combat.ParseBattleType(combatType)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, combatType)
	}
	challengerName, err := b.players.DisplayName(ctx, challengerID)
	if err != nil {
		return nil, err
	}
	targetName, err := b.players.DisplayName(ctx, targetID)
	if err != nil {
		return nil, err
	}

	now := b.now()
	c := &Challenge{
		ID:             uuid.NewString(),
		ChallengerID:   challengerID,
		ChallengerName: challengerName,
		TargetID:       targetID,
		TargetName:     targetName,
		CombatType:     bt,
		Status:         StatusPending,
		Message:        message,
		CreatedAt:      now,
		ExpiresAt:      now.Add(b.ttl),
	}
	if err := b.store.SaveChallenge(ctx, c); err != nil {
		return nil, fmt.Errorf("saving challenge: %w", err)
	}
	b.logger.Info("challenge created",
		zap.String("challenge_id", c.ID),
		zap.String("challenger_id", challengerID),
		zap.String("target_id", targetID),
		zap.String("combat_type", string(bt)),
	)
	return c, nil
}

// loadPending fetches id and checks that actorID is its target and that it is
// still pending. A lapsed challenge is marked expired before ErrChallengeExpired is returned.
func (b *Broker) loadPending(ctx context.Context, id, actorID string) (*Challenge, error) {
	c, err := b.store.GetChallenge(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.TargetID != actorID {
		return nil, fmt.Errorf("%w: only the challenged player may respond", pvperr.ErrForbidden)
	}
	switch c.Status {
	case StatusPending:
	case StatusExpired:
		return nil, fmt.Errorf("%w: %s", pvperr.ErrChallengeExpired, id)
	default:
		return nil, fmt.Errorf("%w: challenge is %s", pvperr.ErrInvalidState, c.Status)
	}
	if c.expiredAt(b.now()) {
		c.Status = StatusExpired
		if err := b.store.SaveChallenge(ctx, c); err != nil {
			return nil, fmt.Errorf("expiring challenge %s: %w", id, err)
		}
		return nil, fmt.Errorf("%w: %s", pvperr.ErrChallengeExpired, id)
	}
	return c, nil
}

// Accept starts the battle for a pending challenge addressed to accepterID.
//
// Postcondition: on success the challenge is accepted and records the battle id.
func (b *Broker) Accept(ctx context.Context, challengeID, accepterID string) (*combat.Battle, error) {
	unlock := b.lock(challengeID)
	defer unlock()

	c, err := b.loadPending(ctx, challengeID, accepterID)
	if err != nil {
		return nil, err
	}
	battle, err := b.starter.StartBattle(ctx, c.ChallengerID, c.TargetID, combat.Options{Type: c.CombatType, Ranked: c.Ranked()})
	if err != nil {
		return nil, err
	}
	c.Status = StatusAccepted
	c.BattleID = battle.ID
	if err := b.store.SaveChallenge(ctx, c); err != nil {
		// The battle is authoritative once started; the challenge row stays pending.
		b.logger.Error("recording accepted challenge",
			zap.String("challenge_id", c.ID),
			zap.String("battle_id", battle.ID),
			zap.Error(err),
		)
	}
	b.logger.Info("challenge accepted", zap.String("challenge_id", c.ID), zap.String("battle_id", battle.ID))
	return battle, nil
}

// Decline refuses a pending challenge addressed to declinerID.
func (b *Broker) Decline(ctx context.Context, challengeID, declinerID string) (*Challenge, error) {
	unlock := b.lock(challengeID)
	defer unlock()

	c, err := b.loadPending(ctx, challengeID, declinerID)
	if err != nil {
		return nil, err
	}
	c.Status = StatusDeclined
	if err := b.store.SaveChallenge(ctx, c); err != nil {
		return nil, fmt.Errorf("saving challenge: %w", err)
	}
	return c, nil
}

// ListPending returns playerID's live pending challenges, expiring any that lapsed.
func (b *Broker) ListPending(ctx context.Context, playerID string) ([]*Challenge, error) {
	all, err := b.store.ListPendingChallenges(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("listing challenges: %w", err)
	}
	now := b.now()
	live := make([]*Challenge, 0, len(all))
	for _, c := range all {
		if !c.expiredAt(now) {
			live = append(live, c)
			continue
		}
		if err := b.expire(ctx, c.ID, now); err != nil {
			b.logger.Warn("expiring challenge", zap.String("challenge_id", c.ID), zap.Error(err))
		}
	}
	return live, nil
}

// expire marks id expired if, under its lock, it is still a lapsed pending challenge.
func (b *Broker) expire(ctx context.Context, id string, now time.Time) error {
	unlock := b.lock(id)
	defer unlock()

	c, err := b.store.GetChallenge(ctx, id)
	if err != nil {
		return err
	}
	if c.Status != StatusPending || !c.expiredAt(now) {
		return nil
	}
	c.Status = StatusExpired
	return b.store.SaveChallenge(ctx, c)
}
