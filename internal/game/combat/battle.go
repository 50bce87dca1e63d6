package combat

import (
	"time"

	"github.com/cory-johannsen/pvp/internal/game/effect"
	"github.com/cory-johannsen/pvp/internal/game/pvperr"
)

// BattleType names the kind of encounter a battle represents.
type BattleType string

const (
	BattleDuel     BattleType = "duel"
	BattleAmbush   BattleType = "ambush"
	BattleArena    BattleType = "arena"
	BattleGuildWar BattleType = "guild_war"
)

// ParseBattleType converts s into a BattleType.
//
// Postcondition: Returns pvperr.ErrUnknownBattleType for anything outside the closed set.
func ParseBattleType(s string) (BattleType, error) {
	switch t := BattleType(s); t {
	case BattleDuel, BattleAmbush, BattleArena, BattleGuildWar:
		return t, nil
	}
	return "", pvperr.ErrUnknownBattleType
}

// Status is the lifecycle state of a battle.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFled      Status = "fled"
)

// Terminal reports whether s is an end state.
func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusFled }

// ActionResult is the structured outcome recorded with a log entry.
type ActionResult struct {
	Damage    int             `json:"damage,omitempty"`
	Healed    int             `json:"healed,omitempty"`
	Evaded    bool            `json:"evaded,omitempty"`
	Critical  bool            `json:"critical,omitempty"`
	Fled      bool            `json:"fled,omitempty"`
	Chance    float64         `json:"chance,omitempty"`
	AbilityID string          `json:"ability_id,omitempty"`
	Applied   []effect.Status `json:"applied,omitempty"`
	Expired   []effect.Kind   `json:"expired,omitempty"`
	TargetHP  int             `json:"target_hp"`
	Detail    string          `json:"detail,omitempty"`
}

// LogEntry is one immutable line of a battle's combat log.
type LogEntry struct {
	Turn      int          `json:"turn"`
	Actor     string       `json:"actor"`
	Action    string       `json:"action"`
	Target    string       `json:"target,omitempty"`
	Result    ActionResult `json:"result"`
	Timestamp time.Time    `json:"timestamp"`
}

// Log actions that are not player-chosen action types.
const (
	LogEffectTick = "effect_tick"
	LogTimeout    = "timeout"
)

// SettlementEntry records one player's rating movement for a finished battle.
type SettlementEntry struct {
	PlayerID     string `json:"player_id"`
	Result       string `json:"result"`
	RatingBefore int    `json:"rating_before"`
	RatingAfter  int    `json:"rating_after"`
}

// Settlement is the one-time annotation written on a terminal battle once
// ratings and counters have been applied.
type Settlement struct {
	Ranked    bool              `json:"ranked"`
	Entries   []SettlementEntry `json:"entries"`
	SettledAt time.Time         `json:"settled_at"`
}

// Battle is the aggregate owned by the Engine.
//
// Invariant: CurrentActorIndex is a valid index into Combatants; Log is append-only.
type Battle struct {
	ID                string        `json:"id"`
	Type              BattleType    `json:"battle_type"`
	Ranked            bool          `json:"ranked"`
	Status            Status        `json:"status"`
	Combatants        []*Combatant  `json:"combatants"`
	CurrentTurn       int           `json:"current_turn"`
	CurrentActorIndex int           `json:"current_actor_index"`
	Log               []LogEntry    `json:"combat_log"`
	WinnerID          string        `json:"winner_id,omitempty"`
	LoserID           string        `json:"loser_id,omitempty"`
	Draw              bool          `json:"draw,omitempty"`
	Settlement        *Settlement   `json:"settlement,omitempty"`
	TurnTimeLimit     time.Duration `json:"turn_time_limit"`
	StartedAt         time.Time     `json:"started_at"`
	EndedAt           *time.Time    `json:"ended_at,omitempty"`
}

// CurrentActor returns the combatant whose turn it is.
func (b *Battle) CurrentActor() *Combatant {
	return b.Combatants[b.CurrentActorIndex]
}

// IndexOf returns the index of playerID in Combatants, or -1.
func (b *Battle) IndexOf(playerID string) int {
	for i, c := range b.Combatants {
		if c.PlayerID == playerID {
			return i
		}
	}
	return -1
}

// Combatant returns the combatant for playerID, or nil.
func (b *Battle) Combatant(playerID string) *Combatant {
	if i := b.IndexOf(playerID); i >= 0 {
		return b.Combatants[i]
	}
	return nil
}

// PlayerIDs returns the combatant player ids in turn order.
func (b *Battle) PlayerIDs() []string {
	out := make([]string, len(b.Combatants))
	for i, c := range b.Combatants {
		out[i] = c.PlayerID
	}
	return out
}

// Clone returns a deep copy of b. Log entries are shared by value.
func (b *Battle) Clone() *Battle {
	cp := *b
	cp.Combatants = make([]*Combatant, len(b.Combatants))
	for i, c := range b.Combatants {
		cp.Combatants[i] = c.clone()
	}
	cp.Log = make([]LogEntry, len(b.Log))
	copy(cp.Log, b.Log)
	if b.Settlement != nil {
		s := *b.Settlement
		s.Entries = append([]SettlementEntry(nil), b.Settlement.Entries...)
		cp.Settlement = &s
	}
	if b.EndedAt != nil {
		t := *b.EndedAt
		cp.EndedAt = &t
	}
	return &cp
}

// advance moves to the next actor, incrementing CurrentTurn on wrap.
//
// Postcondition: CurrentActorIndex in [0, len(Combatants)); CurrentTurn non-decreasing.
func (b *Battle) advance() {
	b.CurrentActorIndex = (b.CurrentActorIndex + 1) % len(b.Combatants)
	if b.CurrentActorIndex == 0 {
		b.CurrentTurn++
	}
}

// checkBattleEnd ends the battle when any combatant is at or below zero hp.
// The first living combatant wins and the first dead one loses; when nobody
// is left standing the battle completes as a draw.
//
// Postcondition: Returns true iff Status was moved to StatusCompleted.
func checkBattleEnd(b *Battle, now time.Time) bool {
	var alive, dead []*Combatant
	for _, c := range b.Combatants {
		if c.IsDead() {
			dead = append(dead, c)
		} else {
			alive = append(alive, c)
		}
	}
	if len(dead) == 0 {
		return false
	}
	b.Status = StatusCompleted
	b.EndedAt = &now
	if len(alive) == 0 {
		b.Draw = true
		return true
	}
	b.WinnerID = alive[0].PlayerID
	b.LoserID = dead[0].PlayerID
	return true
}
