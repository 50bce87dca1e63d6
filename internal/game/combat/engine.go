package combat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/pvp/internal/game/dice"
	"github.com/cory-johannsen/pvp/internal/game/effect"
	"github.com/cory-johannsen/pvp/internal/game/pvperr"
)

// MaxFleeChance caps the probability of a successful flee.
const MaxFleeChance = 0.8

// TimeoutPolicy selects what happens when a turn deadline passes.
type TimeoutPolicy string

const (
	// TimeoutPass logs a timeout entry and advances to the next actor.
	TimeoutPass TimeoutPolicy = "pass"
	// TimeoutForfeit ends the battle with the idle actor as loser.
	TimeoutForfeit TimeoutPolicy = "forfeit"
	// TimeoutNone leaves the deadline advisory; only IsExpired reflects it.
	TimeoutNone TimeoutPolicy = "none"
)

// Store persists battles. Implementations wrap pvperr.ErrBattleNotFound when
// a battle id is unknown.
type Store interface {
	SaveBattle(ctx context.Context, b *Battle) error
	GetBattle(ctx context.Context, id string) (*Battle, error)
	// FindActiveBattleForPlayer returns (nil, nil) when the player has no active battle.
	FindActiveBattleForPlayer(ctx context.Context, playerID string) (*Battle, error)
	ListActiveBattles(ctx context.Context) ([]*Battle, error)
}

// AbilityKind distinguishes powers from consumable items.
type AbilityKind string

const (
	AbilityPower AbilityKind = "power"
	AbilityItem  AbilityKind = "item"
)

// AbilityRequest is the battle context handed to an AbilityResolver.
// Actor and Target are copies; mutating them has no effect.
type AbilityRequest struct {
	BattleID  string
	Kind      AbilityKind
	AbilityID string
	Turn      int
	Actor     Combatant
	Target    Combatant
}

// AbilityOutcome is the delta an AbilityResolver asks the engine to apply.
type AbilityOutcome struct {
	Damage        int
	Heal          int
	TargetEffects []effect.Status
	SelfEffects   []effect.Status
	Detail        string
}

// AbilityResolver computes the effect of a power or item.
// Implementations return pvperr.ErrUnknownAbility for ids they cannot resolve.
type AbilityResolver interface {
	Resolve(ctx context.Context, req AbilityRequest) (AbilityOutcome, error)
}

// Listener observes committed battle changes.
//
// BattleStarted and BattleUpdated run while the battle is locked, so
// notifications keep log order; they must not block or call back into the
// Engine. BattleEnded runs after the lock is released.
type Listener interface {
	BattleStarted(b *Battle)
	BattleUpdated(b *Battle, entries []LogEntry)
	BattleEnded(ctx context.Context, b *Battle)
}

type nopListener struct{}

func (nopListener) BattleStarted(*Battle)                {}
func (nopListener) BattleUpdated(*Battle, []LogEntry)    {}
func (nopListener) BattleEnded(context.Context, *Battle) {}

// Config holds the engine's tunables.
type Config struct {
	MaxActionPoints int
	TurnTimeLimits  map[BattleType]time.Duration
	TimeoutPolicy   TimeoutPolicy
}

// Options are per-battle creation settings.
type Options struct {
	Type   BattleType
	Ranked bool
	// TurnTimeLimit overrides the configured limit for Type when > 0.
	TurnTimeLimit time.Duration
}

type slot struct {
	mu     sync.Mutex
	battle *Battle
}

// Engine manages every active Battle.
// All methods are safe for concurrent use.
//
// e.mu guards only the slots map and the player index; each battle is
// serialised by its own slot mutex. Lock order is slot.mu before e.mu.
type Engine struct {
	mu     sync.Mutex
	slots  map[string]*slot
	active map[string]string // player id -> battle id

	cfg       Config
	store     Store
	src       dice.Source
	effects   *effect.Registry
	abilities AbilityResolver
	clock     *TurnClock
	listener  Listener
	logger    *zap.Logger
	now       func() time.Time
}

// NewEngine creates an Engine.
//
// Precondition: store, src, effects and logger must be non-nil; abilities may be nil,
// in which case use_power and use_item only spend action points and log the attempt.
// Postcondition: Returns a non-nil Engine with a no-op Listener.
func NewEngine(cfg Config, store Store, src dice.Source, effects *effect.Registry, abilities AbilityResolver, logger *zap.Logger) *Engine {
	if cfg.MaxActionPoints <= 0 {
		cfg.MaxActionPoints = DefaultMaxActionPoints
	}
	if cfg.TimeoutPolicy == "" {
		cfg.TimeoutPolicy = TimeoutPass
	}
	e := &Engine{
		slots:     make(map[string]*slot),
		active:    make(map[string]string),
		cfg:       cfg,
		store:     store,
		src:       src,
		effects:   effects,
		abilities: abilities,
		listener:  nopListener{},
		logger:    logger,
		now:       time.Now,
	}
	e.clock = NewTurnClock(func() time.Time { return e.now() })
	return e
}

// SetListener installs l. It must be called before the engine serves requests.
func (e *Engine) SetListener(l Listener) {
	if l == nil {
		l = nopListener{}
	}
	e.listener = l
}

// SetClock replaces the engine's time source.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Clock returns the engine's TurnClock.
func (e *Engine) Clock() *TurnClock { return e.clock }

// Create starts a battle between p1 and p2.
//
// Precondition: p1 and p2 are distinct players with non-empty ids.
// Postcondition: on success the battle is persisted, active, indexed for both players
// and its first turn clock is running; on error nothing is reserved.
func (e *Engine) Create(ctx context.Context, p1, p2 Participant, opts Options) (*Battle, error) {
	if p1.PlayerID == "" || p2.PlayerID == "" {
		return nil, fmt.Errorf("%w: player id", pvperr.ErrMissingField)
	}
	if p1.PlayerID == p2.PlayerID {
		return nil, fmt.Errorf("%w: a player cannot fight themselves", pvperr.ErrInvalidTarget)
	}
	if _, err := ParseBattleType(string(opts.Type)); err != nil {
		return nil, fmt.Errorf("%w: %q", err, opts.Type)
	}

	id := uuid.NewString()
	// Readers of the reserved id block on sl until the battle is set.
	sl := &slot{}
	sl.mu.Lock()
	if err := e.reserve(id, sl, p1.PlayerID, p2.PlayerID); err != nil {
		sl.mu.Unlock()
		return nil, err
	}
	b, err := e.createReserved(ctx, id, p1, p2, opts)
	if err != nil {
		e.release(id, p1.PlayerID, p2.PlayerID)
		sl.mu.Unlock()
		return nil, err
	}

	sl.battle = b
	e.armClock(b)
	e.listener.BattleStarted(b.Clone())
	out := b.Clone()
	sl.mu.Unlock()

	e.logger.Info("battle started",
		zap.String("battle_id", id),
		zap.String("battle_type", string(b.Type)),
		zap.Strings("turn_order", b.PlayerIDs()),
	)
	return out, nil
}

func (e *Engine) createReserved(ctx context.Context, id string, p1, p2 Participant, opts Options) (*Battle, error) {
	for _, pid := range []string{p1.PlayerID, p2.PlayerID} {
		existing, err := e.store.FindActiveBattleForPlayer(ctx, pid)
		if err != nil {
			return nil, fmt.Errorf("looking up active battle for %s: %w", pid, err)
		}
		if existing != nil && existing.ID != id {
			return nil, fmt.Errorf("%w: %s is in battle %s", pvperr.ErrAlreadyInCombat, pid, existing.ID)
		}
	}

	combatants := []*Combatant{
		NewCombatant(p1, e.cfg.MaxActionPoints),
		NewCombatant(p2, e.cfg.MaxActionPoints),
	}
	RollInitiative(combatants, e.src)
	sortByInitiativeDesc(combatants)

	limit := opts.TurnTimeLimit
	if limit <= 0 {
		limit = e.cfg.TurnTimeLimits[opts.Type]
	}
	b := &Battle{
		ID:            id,
		Type:          opts.Type,
		Ranked:        opts.Ranked,
		Status:        StatusActive,
		Combatants:    combatants,
		CurrentTurn:   1,
		Log:           []LogEntry{},
		TurnTimeLimit: limit,
		StartedAt:     e.now(),
	}
	if err := e.store.SaveBattle(ctx, b); err != nil {
		return nil, fmt.Errorf("saving battle %s: %w", id, err)
	}
	return b, nil
}

// reserve indexes playerIDs under battleID and publishes sl.
//
// Precondition: the caller holds sl.mu.
func (e *Engine) reserve(battleID string, sl *slot, playerIDs ...string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, pid := range playerIDs {
		if existing, ok := e.active[pid]; ok {
			return fmt.Errorf("%w: %s is in battle %s", pvperr.ErrAlreadyInCombat, pid, existing)
		}
	}
	for _, pid := range playerIDs {
		e.active[pid] = battleID
	}
	e.slots[battleID] = sl
	return nil
}

func (e *Engine) release(battleID string, playerIDs ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, pid := range playerIDs {
		if e.active[pid] == battleID {
			delete(e.active, pid)
		}
	}
	delete(e.slots, battleID)
}

// InBattle reports whether playerID is a combatant in an active battle.
func (e *Engine) InBattle(playerID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.active[playerID]
	return ok
}

// Get returns a snapshot of the battle. Finished battles are read from the store.
func (e *Engine) Get(ctx context.Context, battleID string) (*Battle, error) {
	e.mu.Lock()
	sl, ok := e.slots[battleID]
	e.mu.Unlock()
	if ok {
		sl.mu.Lock()
		defer sl.mu.Unlock()
		if sl.battle == nil {
			// creation failed while we waited
			return nil, fmt.Errorf("%w: %s", pvperr.ErrBattleNotFound, battleID)
		}
		return sl.battle.Clone(), nil
	}
	return e.store.GetBattle(ctx, battleID)
}

// ActiveBattleFor returns a snapshot of playerID's active battle.
//
// Postcondition: Returns pvperr.ErrBattleNotFound when the player is not in an active battle.
func (e *Engine) ActiveBattleFor(ctx context.Context, playerID string) (*Battle, error) {
	e.mu.Lock()
	id, ok := e.active[playerID]
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: no active battle for %s", pvperr.ErrBattleNotFound, playerID)
	}
	return e.Get(ctx, id)
}

// Recover adopts every active battle in the store, restarting each turn clock
// with a full turn. It is intended to run once at startup.
//
// Postcondition: Returns the number of battles adopted.
func (e *Engine) Recover(ctx context.Context) (int, error) {
	battles, err := e.store.ListActiveBattles(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing active battles: %w", err)
	}
	n := 0
	for _, b := range battles {
		if b.Status != StatusActive || len(b.Combatants) < 2 {
			continue
		}
		sl := &slot{battle: b}
		sl.mu.Lock()
		if err := e.reserve(b.ID, sl, b.PlayerIDs()...); err != nil {
			sl.mu.Unlock()
			e.logger.Warn("skipping battle during recovery", zap.String("battle_id", b.ID), zap.Error(err))
			continue
		}
		e.armClock(b)
		sl.mu.Unlock()
		n++
	}
	e.logger.Info("recovered active battles", zap.Int("count", n))
	return n, nil
}

// lockActive returns the locked slot for battleID.
// A battle that is known to the store but no longer active yields ErrBattleNotActive.
func (e *Engine) lockActive(ctx context.Context, battleID string) (*slot, error) {
	e.mu.Lock()
	sl, ok := e.slots[battleID]
	e.mu.Unlock()
	if !ok {
		if _, err := e.store.GetBattle(ctx, battleID); err != nil {
			if errors.Is(err, pvperr.ErrBattleNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("loading battle %s: %w", battleID, err)
		}
		return nil, fmt.Errorf("%w: %s", pvperr.ErrBattleNotActive, battleID)
	}
	sl.mu.Lock()
	if sl.battle == nil {
		sl.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", pvperr.ErrBattleNotFound, battleID)
	}
	if sl.battle.Status != StatusActive {
		sl.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", pvperr.ErrBattleNotActive, battleID)
	}
	return sl, nil
}

// ExecuteAction performs one action for the current actor. Flee is delegated
// to AttemptFlee and may be submitted off-turn.
//
// Postcondition: on error the battle is unchanged. On success the action is
// logged and, unless the battle ended, the turn advanced.
func (e *Engine) ExecuteAction(ctx context.Context, req ActionRequest) (*Battle, error) {
	if req.Action == ActionFlee {
		return e.AttemptFlee(ctx, req.BattleID, req.PlayerID)
	}
	sl, err := e.lockActive(ctx, req.BattleID)
	if err != nil {
		return nil, err
	}
	cur := sl.battle
	idx := cur.IndexOf(req.PlayerID)
	if idx < 0 {
		sl.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", pvperr.ErrNotCombatant, req.PlayerID)
	}
	if idx != cur.CurrentActorIndex {
		sl.mu.Unlock()
		return nil, fmt.Errorf("%w: waiting on %s", pvperr.ErrNotYourTurn, cur.CurrentActor().PlayerID)
	}
	if _, ok := actionNames[req.Action]; !ok {
		sl.mu.Unlock()
		return nil, pvperr.ErrUnknownActionType
	}

	next := cur.Clone()
	entry, err := e.dispatch(ctx, next, idx, req)
	if err != nil {
		sl.mu.Unlock()
		return nil, err
	}
	entries := []LogEntry{entry}
	next.Log = append(next.Log, entry)

	if !checkBattleEnd(next, e.now()) {
		next.advance()
		ticks := e.clock.OnTurnAdvance(next)
		next.Log = append(next.Log, ticks...)
		entries = append(entries, ticks...)
		checkBattleEnd(next, e.now())
	}
	return e.commit(ctx, sl, next, entries, true)
}

func (e *Engine) dispatch(ctx context.Context, b *Battle, idx int, req ActionRequest) (LogEntry, error) {
	actor := b.Combatants[idx]
	if !CanPerformAction(actor, req.Action) {
		return LogEntry{}, fmt.Errorf("%w: %s needs %d, have %d",
			pvperr.ErrInsufficientPoints, req.Action, req.Action.Cost(), actor.ActionPoints)
	}

	entry := LogEntry{
		Turn:      b.CurrentTurn,
		Actor:     actor.PlayerID,
		Action:    req.Action.String(),
		Timestamp: e.now(),
	}

	var target *Combatant
	if req.Action.Offensive() {
		t, err := resolveTarget(b, idx, req.TargetID)
		if err != nil {
			return LogEntry{}, err
		}
		target = t
		entry.Target = t.PlayerID
	}

	switch req.Action {
	case ActionAttack, ActionHeavyAttack:
		res := ResolveAttack(actor, target, req.Action == ActionHeavyAttack, e.src)
		dealt := target.ApplyDamage(res.Damage)
		actor.DamageDealt += dealt
		entry.Result = ActionResult{
			Damage:   dealt,
			Evaded:   res.Evaded,
			Critical: res.Critical,
			TargetHP: target.HP,
		}
	case ActionDefend:
		def, ok := e.effects.Get(effect.DefendID)
		if !ok {
			return LogEntry{}, fmt.Errorf("effect %q is not registered", effect.DefendID)
		}
		st := def.Status()
		actor.Effects = effect.Apply(actor.Effects, st)
		entry.Target = actor.PlayerID
		entry.Result = ActionResult{Applied: []effect.Status{st}, TargetHP: actor.HP}
	case ActionUsePower, ActionUseItem:
		res, err := e.resolveAbility(ctx, b, actor, target, req)
		if err != nil {
			return LogEntry{}, err
		}
		entry.Result = res
	}

	if err := ConsumeActionPoints(actor, req.Action); err != nil {
		return LogEntry{}, err
	}
	return entry, nil
}

func (e *Engine) resolveAbility(ctx context.Context, b *Battle, actor, target *Combatant, req ActionRequest) (ActionResult, error) {
	if req.AbilityID == "" {
		return ActionResult{}, fmt.Errorf("%w: ability_id", pvperr.ErrMissingField)
	}
	kind := AbilityItem
	if req.Action == ActionUsePower {
		kind = AbilityPower
		if !actor.HasAbility(req.AbilityID) {
			return ActionResult{}, fmt.Errorf("%w: %s", pvperr.ErrUnknownAbility, req.AbilityID)
		}
	}
	res := ActionResult{AbilityID: req.AbilityID, TargetHP: target.HP}
	if e.abilities == nil {
		return res, nil
	}

	out, err := e.abilities.Resolve(ctx, AbilityRequest{
		BattleID:  b.ID,
		Kind:      kind,
		AbilityID: req.AbilityID,
		Turn:      b.CurrentTurn,
		Actor:     *actor.clone(),
		Target:    *target.clone(),
	})
	if err != nil {
		return ActionResult{}, err
	}

	if out.Damage > 0 {
		res.Damage = target.ApplyDamage(out.Damage)
		actor.DamageDealt += res.Damage
	}
	if out.Heal > 0 {
		res.Healed = actor.Heal(out.Heal)
	}
	for _, st := range out.TargetEffects {
		target.Effects = effect.Apply(target.Effects, st)
		res.Applied = append(res.Applied, st)
	}
	for _, st := range out.SelfEffects {
		actor.Effects = effect.Apply(actor.Effects, st)
		res.Applied = append(res.Applied, st)
	}
	res.TargetHP = target.HP
	res.Detail = out.Detail
	return res, nil
}

// resolveTarget picks the explicit target, or the sole living opponent.
func resolveTarget(b *Battle, actorIdx int, targetID string) (*Combatant, error) {
	if targetID != "" {
		i := b.IndexOf(targetID)
		if i < 0 || i == actorIdx || b.Combatants[i].IsDead() {
			return nil, fmt.Errorf("%w: %s", pvperr.ErrInvalidTarget, targetID)
		}
		return b.Combatants[i], nil
	}
	var opponents []*Combatant
	for i, c := range b.Combatants {
		if i != actorIdx && !c.IsDead() {
			opponents = append(opponents, c)
		}
	}
	if len(opponents) != 1 {
		return nil, fmt.Errorf("%w: a target is required", pvperr.ErrInvalidTarget)
	}
	return opponents[0], nil
}

// AttemptFlee resolves a flee attempt by playerID, on or off turn.
// Success chance is min(0.8, evasion/100) from a single draw.
//
// Postcondition: on success Status is StatusFled and LoserID is playerID; on
// failure only the log and the fleeing combatant's action points change and the
// turn does not advance.
func (e *Engine) AttemptFlee(ctx context.Context, battleID, playerID string) (*Battle, error) {
	sl, err := e.lockActive(ctx, battleID)
	if err != nil {
		return nil, err
	}
	idx := sl.battle.IndexOf(playerID)
	if idx < 0 {
		sl.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", pvperr.ErrNotCombatant, playerID)
	}

	next := sl.battle.Clone()
	c := next.Combatants[idx]
	if err := ConsumeActionPoints(c, ActionFlee); err != nil {
		sl.mu.Unlock()
		return nil, err
	}
	chance := min(MaxFleeChance, float64(c.Evasion)/100)
	fled := dice.Chance(e.src, chance)
	now := e.now()
	entry := LogEntry{
		Turn:      next.CurrentTurn,
		Actor:     playerID,
		Action:    ActionFlee.String(),
		Result:    ActionResult{Fled: fled, Chance: chance, TargetHP: c.HP},
		Timestamp: now,
	}
	next.Log = append(next.Log, entry)
	if fled {
		next.Status = StatusFled
		next.LoserID = playerID
		if len(next.Combatants) == 2 {
			next.WinnerID = next.Combatants[1-idx].PlayerID
		}
		next.EndedAt = &now
	}
	return e.commit(ctx, sl, next, []LogEntry{entry}, false)
}

// commit persists next, swaps it in and releases sl. The turn clock is
// re-armed when advanced is true.
func (e *Engine) commit(ctx context.Context, sl *slot, next *Battle, entries []LogEntry, advanced bool) (*Battle, error) {
	if err := e.store.SaveBattle(ctx, next); err != nil {
		sl.mu.Unlock()
		return nil, fmt.Errorf("saving battle %s: %w", next.ID, err)
	}
	sl.battle = next
	ended := next.Status.Terminal()
	switch {
	case ended:
		e.clock.Stop(next.ID)
		e.release(next.ID, next.PlayerIDs()...)
	case advanced:
		e.armClock(next)
	}
	e.listener.BattleUpdated(next.Clone(), entries)
	out := next.Clone()
	sl.mu.Unlock()

	if ended {
		e.logger.Info("battle ended",
			zap.String("battle_id", next.ID),
			zap.String("status", string(next.Status)),
			zap.String("winner_id", next.WinnerID),
			zap.String("loser_id", next.LoserID),
			zap.Bool("draw", next.Draw),
		)
		e.listener.BattleEnded(ctx, out.Clone())
	}
	return out, nil
}

// armClock starts the deadline for b's current turn.
// Precondition: the caller holds b's slot lock.
func (e *Engine) armClock(b *Battle) {
	var onExpire func()
	if e.cfg.TimeoutPolicy != TimeoutNone {
		id, turn, actor := b.ID, b.CurrentTurn, b.CurrentActorIndex
		onExpire = func() { e.handleTimeout(id, turn, actor) }
	}
	e.clock.StartTurn(b.ID, b.TurnTimeLimit, onExpire)
}

// handleTimeout applies the timeout policy if the battle is still on the turn
// the timer was armed for.
func (e *Engine) handleTimeout(battleID string, turn, actorIdx int) {
	ctx := context.Background()
	e.mu.Lock()
	sl, ok := e.slots[battleID]
	e.mu.Unlock()
	if !ok {
		return
	}
	sl.mu.Lock()
	cur := sl.battle
	if cur == nil || cur.Status != StatusActive || cur.CurrentTurn != turn || cur.CurrentActorIndex != actorIdx {
		sl.mu.Unlock()
		return
	}

	next := cur.Clone()
	idle := next.CurrentActor()
	now := e.now()
	entry := LogEntry{
		Turn:      next.CurrentTurn,
		Actor:     idle.PlayerID,
		Action:    LogTimeout,
		Result:    ActionResult{Detail: string(e.cfg.TimeoutPolicy), TargetHP: idle.HP},
		Timestamp: now,
	}
	next.Log = append(next.Log, entry)
	entries := []LogEntry{entry}

	if e.cfg.TimeoutPolicy == TimeoutForfeit {
		next.Status = StatusCompleted
		next.LoserID = idle.PlayerID
		for _, c := range next.Combatants {
			if c.PlayerID != idle.PlayerID && !c.IsDead() {
				next.WinnerID = c.PlayerID
				break
			}
		}
		next.EndedAt = &now
	} else {
		next.advance()
		ticks := e.clock.OnTurnAdvance(next)
		next.Log = append(next.Log, ticks...)
		entries = append(entries, ticks...)
		checkBattleEnd(next, now)
	}

	e.logger.Info("turn timed out",
		zap.String("battle_id", battleID),
		zap.String("player_id", idle.PlayerID),
		zap.String("policy", string(e.cfg.TimeoutPolicy)),
	)
	if _, err := e.commit(ctx, sl, next, entries, true); err != nil {
		e.logger.Error("applying turn timeout", zap.String("battle_id", battleID), zap.Error(err))
	}
}

// Settle writes the one-time settlement annotation on a finished battle.
//
// Postcondition: Returns pvperr.ErrInvalidState if the battle is active or already settled.
func (e *Engine) Settle(ctx context.Context, battleID string, s Settlement) (*Battle, error) {
	b, err := e.store.GetBattle(ctx, battleID)
	if err != nil {
		return nil, err
	}
	if !b.Status.Terminal() {
		return nil, fmt.Errorf("%w: battle %s is still active", pvperr.ErrInvalidState, battleID)
	}
	if b.Settlement != nil {
		return nil, fmt.Errorf("%w: battle %s is already settled", pvperr.ErrInvalidState, battleID)
	}
	if s.SettledAt.IsZero() {
		s.SettledAt = e.now()
	}
	b.Settlement = &s
	if err := e.store.SaveBattle(ctx, b); err != nil {
		return nil, fmt.Errorf("saving settlement for %s: %w", battleID, err)
	}
	return b, nil
}
