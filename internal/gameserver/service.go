package gameserver

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/cory-johannsen/pvp/internal/game/challenge"
	"github.com/cory-johannsen/pvp/internal/game/combat"
	"github.com/cory-johannsen/pvp/internal/game/matchmaking"
	"github.com/cory-johannsen/pvp/internal/game/pvperr"
	"github.com/cory-johannsen/pvp/internal/game/rating"
	"github.com/cory-johannsen/pvp/internal/game/stats"
	"github.com/cory-johannsen/pvp/internal/storage"
)

const (
	// DefaultHistoryLimit is the page size of GetCombatHistory when none is given.
	DefaultHistoryLimit = 20
	// MaxHistoryLimit caps the page size of GetCombatHistory.
	MaxHistoryLimit = 100

	tracerName = "github.com/cory-johannsen/pvp/internal/gameserver"
)

// CombatStats is a player's record together with the baseline combat
// attributes derived from their current traits.
type CombatStats struct {
	rating.Stats
	Base stats.Base  `json:"base"`
	Tier rating.Tier `json:"arena_tier"`
}

// QueueResult is the outcome of JoinQueue. Battle is set when the join
// produced an immediate match.
type QueueResult struct {
	Status matchmaking.Status `json:"status"`
	Battle *combat.Battle     `json:"battle,omitempty"`
}

// Service is the operation surface of the PvP core. Transports call it; it
// owns no state of its own beyond its collaborators.
type Service struct {
	engine   *combat.Engine
	broker   *challenge.Broker
	queue    *matchmaking.Queue
	updater  *rating.Updater
	store    storage.Store
	notifier *Notifier
	tracer   trace.Tracer
	logger   *zap.Logger
}

// NewService creates a Service.
//
// Precondition: every argument must be non-nil.
func NewService(
	engine *combat.Engine,
	broker *challenge.Broker,
	queue *matchmaking.Queue,
	updater *rating.Updater,
	store storage.Store,
	notifier *Notifier,
	logger *zap.Logger,
) *Service {
	return &Service{
		engine:   engine,
		broker:   broker,
		queue:    queue,
		updater:  updater,
		store:    store,
		notifier: notifier,
		tracer:   otel.Tracer(tracerName),
		logger:   logger,
	}
}

func (s *Service) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "pvp."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, pvperr.CodeOf(err))
	}
	span.End()
}

// CreateChallenge sends a challenge and notifies its target.
func (s *Service) CreateChallenge(ctx context.Context, challengerID, targetID, combatType, message string) (c *challenge.Challenge, err error) {
	ctx, span := s.span(ctx, "CreateChallenge",
		attribute.String("challenger_id", challengerID),
		attribute.String("target_id", targetID),
		attribute.String("combat_type", combatType),
	)
	defer func() { endSpan(span, err) }()

	c, err = s.broker.Create(ctx, challengerID, targetID, combatType, message)
	if err != nil {
		return nil, err
	}
	s.notifier.Publish(c.TargetID, Event{Type: EventChallengeReceived, Challenge: c})
	return c, nil
}

// AcceptChallenge accepts a pending challenge and starts its battle.
func (s *Service) AcceptChallenge(ctx context.Context, challengeID, playerID string) (b *combat.Battle, err error) {
	ctx, span := s.span(ctx, "AcceptChallenge",
		attribute.String("challenge_id", challengeID),
		attribute.String("player_id", playerID),
	)
	defer func() { endSpan(span, err) }()

	b, err = s.broker.Accept(ctx, challengeID, playerID)
	if err != nil {
		return nil, err
	}
	for _, pid := range b.PlayerIDs() {
		if s.queue.Leave(pid) {
			s.logger.Info("left queue for challenge battle",
				zap.String("player_id", pid),
				zap.String("battle_id", b.ID),
			)
		}
	}
	return b, nil
}

// DeclineChallenge declines a pending challenge and notifies the challenger.
func (s *Service) DeclineChallenge(ctx context.Context, challengeID, playerID string) (c *challenge.Challenge, err error) {
	ctx, span := s.span(ctx, "DeclineChallenge",
		attribute.String("challenge_id", challengeID),
		attribute.String("player_id", playerID),
	)
	defer func() { endSpan(span, err) }()

	c, err = s.broker.Decline(ctx, challengeID, playerID)
	if err != nil {
		return nil, err
	}
	s.notifier.Publish(c.ChallengerID, Event{Type: EventChallengeDeclined, Challenge: c})
	return c, nil
}

// ListChallenges returns the pending challenges sent or received by playerID.
func (s *Service) ListChallenges(ctx context.Context, playerID string) (out []*challenge.Challenge, err error) {
	ctx, span := s.span(ctx, "ListChallenges", attribute.String("player_id", playerID))
	defer func() { endSpan(span, err) }()

	return s.broker.ListPending(ctx, playerID)
}

// GetActiveBattle returns playerID's active battle.
//
// Postcondition: Returns pvperr.ErrBattleNotFound when the player is not fighting.
func (s *Service) GetActiveBattle(ctx context.Context, playerID string) (b *combat.Battle, err error) {
	ctx, span := s.span(ctx, "GetActiveBattle", attribute.String("player_id", playerID))
	defer func() { endSpan(span, err) }()

	if playerID == "" {
		return nil, fmt.Errorf("%w: player_id", pvperr.ErrMissingField)
	}
	return s.engine.ActiveBattleFor(ctx, playerID)
}

// GetBattleState returns a snapshot of any battle, active or finished.
func (s *Service) GetBattleState(ctx context.Context, battleID string) (b *combat.Battle, err error) {
	ctx, span := s.span(ctx, "GetBattleState", attribute.String("battle_id", battleID))
	defer func() { endSpan(span, err) }()

	if battleID == "" {
		return nil, fmt.Errorf("%w: battle_id", pvperr.ErrMissingField)
	}
	return s.engine.Get(ctx, battleID)
}

// ExecuteAction parses the wire action name and submits it to the engine.
func (s *Service) ExecuteAction(ctx context.Context, battleID, playerID, action, targetID, abilityID string) (b *combat.Battle, err error) {
	ctx, span := s.span(ctx, "ExecuteAction",
		attribute.String("battle_id", battleID),
		attribute.String("player_id", playerID),
		attribute.String("action", action),
	)
	defer func() { endSpan(span, err) }()

	at, err := combat.ParseActionType(action)
	if err != nil {
		return nil, err
	}
	return s.engine.ExecuteAction(ctx, combat.ActionRequest{
		BattleID:  battleID,
		PlayerID:  playerID,
		Action:    at,
		TargetID:  targetID,
		AbilityID: abilityID,
	})
}

// AttemptFlee tries to leave the battle.
func (s *Service) AttemptFlee(ctx context.Context, battleID, playerID string) (b *combat.Battle, err error) {
	ctx, span := s.span(ctx, "AttemptFlee",
		attribute.String("battle_id", battleID),
		attribute.String("player_id", playerID),
	)
	defer func() { endSpan(span, err) }()

	return s.engine.AttemptFlee(ctx, battleID, playerID)
}

// JoinQueue enters playerID into matchmaking at their current rating and
// tries to match them at once.
//
// Postcondition: on an immediate match both players are removed from the
// queue and the result carries the new battle.
func (s *Service) JoinQueue(ctx context.Context, playerID string, ranked bool) (res QueueResult, err error) {
	ctx, span := s.span(ctx, "JoinQueue",
		attribute.String("player_id", playerID),
		attribute.Bool("ranked", ranked),
	)
	defer func() { endSpan(span, err) }()

	if playerID == "" {
		return QueueResult{}, fmt.Errorf("%w: player_id", pvperr.ErrMissingField)
	}
	if s.engine.InBattle(playerID) {
		return QueueResult{}, fmt.Errorf("%w: %s", pvperr.ErrAlreadyInCombat, playerID)
	}
	name, err := s.store.DisplayName(ctx, playerID)
	if err != nil {
		return QueueResult{}, err
	}
	r, err := s.updater.Rating(ctx, playerID)
	if err != nil {
		return QueueResult{}, err
	}
	entry, err := s.queue.Join(playerID, name, r, ranked)
	if err != nil {
		return QueueResult{}, err
	}
	span.SetAttributes(attribute.Int("rating", entry.Rating))

	b, err := s.queue.FindMatch(ctx, playerID)
	if err != nil {
		s.logger.Warn("immediate match failed", zap.String("player_id", playerID), zap.Error(err))
	}
	if b != nil {
		s.AnnounceMatch(b)
		return QueueResult{Status: matchmaking.Status{Entry: entry}, Battle: b}, nil
	}
	st, err := s.queue.Status(playerID)
	if err != nil {
		return QueueResult{}, err
	}
	return QueueResult{Status: st}, nil
}

// AnnounceMatch tells both players of a queue match about their battle.
func (s *Service) AnnounceMatch(b *combat.Battle) {
	s.notifier.PublishAll(b.PlayerIDs(), Event{Type: EventMatchFound, Battle: b})
}

// LeaveQueue removes playerID from matchmaking.
//
// Postcondition: Returns pvperr.ErrNotQueued when the player was not queued.
func (s *Service) LeaveQueue(ctx context.Context, playerID string) (err error) {
	_, span := s.span(ctx, "LeaveQueue", attribute.String("player_id", playerID))
	defer func() { endSpan(span, err) }()

	if !s.queue.Leave(playerID) {
		return fmt.Errorf("%w: %s", pvperr.ErrNotQueued, playerID)
	}
	return nil
}

// GetQueueStatus reports playerID's queue position and wait.
func (s *Service) GetQueueStatus(ctx context.Context, playerID string) (st matchmaking.Status, err error) {
	_, span := s.span(ctx, "GetQueueStatus", attribute.String("player_id", playerID))
	defer func() { endSpan(span, err) }()

	return s.queue.Status(playerID)
}

// GetCombatHistory returns a page of playerID's finished battles, newest first.
// A non-positive limit selects DefaultHistoryLimit; limits above MaxHistoryLimit are capped.
func (s *Service) GetCombatHistory(ctx context.Context, playerID string, limit, skip int) (out []*combat.Battle, err error) {
	ctx, span := s.span(ctx, "GetCombatHistory",
		attribute.String("player_id", playerID),
		attribute.Int("limit", limit),
		attribute.Int("skip", skip),
	)
	defer func() { endSpan(span, err) }()

	if playerID == "" {
		return nil, fmt.Errorf("%w: player_id", pvperr.ErrMissingField)
	}
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}
	if skip < 0 {
		skip = 0
	}
	return s.store.ListBattlesForPlayer(ctx, playerID, limit, skip)
}

// GetCombatStats returns playerID's record and trait-derived baseline.
func (s *Service) GetCombatStats(ctx context.Context, playerID string) (cs CombatStats, err error) {
	ctx, span := s.span(ctx, "GetCombatStats", attribute.String("player_id", playerID))
	defer func() { endSpan(span, err) }()

	traits, err := s.store.Traits(ctx, playerID)
	if err != nil {
		return CombatStats{}, err
	}
	st, err := s.updater.Stats(ctx, playerID)
	if err != nil {
		return CombatStats{}, err
	}
	return CombatStats{Stats: st, Base: stats.Derive(traits), Tier: st.Tier()}, nil
}

// Leaderboard returns the top limit records by rating.
func (s *Service) Leaderboard(ctx context.Context, limit int) (out []rating.Stats, err error) {
	ctx, span := s.span(ctx, "Leaderboard", attribute.Int("limit", limit))
	defer func() { endSpan(span, err) }()

	if limit <= 0 || limit > MaxHistoryLimit {
		limit = DefaultHistoryLimit
	}
	return s.store.TopRatings(ctx, limit)
}

// Subscribe registers a notification subscriber for playerID.
func (s *Service) Subscribe(playerID string) *Subscriber {
	return s.notifier.Subscribe(playerID)
}

// Unsubscribe drops sub.
func (s *Service) Unsubscribe(sub *Subscriber) {
	s.notifier.Unsubscribe(sub)
}
