// Package challenge negotiates a battle between two players.
package challenge

import (
	"time"

	"github.com/cory-johannsen/pvp/internal/game/combat"
)

// DefaultTTL is how long a pending challenge stays acceptable.
const DefaultTTL = 5 * time.Minute

// Status is the lifecycle state of a challenge.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
	StatusExpired  Status = "expired"
)

// Challenge is one player's invitation to another.
//
// Invariant: a challenge whose Status is not StatusPending is never modified.
type Challenge struct {
	ID             string            `json:"id"`
	ChallengerID   string            `json:"challenger_id"`
	ChallengerName string            `json:"challenger_name"`
	TargetID       string            `json:"target_id"`
	TargetName     string            `json:"target_name"`
	CombatType     combat.BattleType `json:"combat_type"`
	Status         Status            `json:"status"`
	Message        string            `json:"message,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	ExpiresAt      time.Time         `json:"expires_at"`
	BattleID       string            `json:"battle_id,omitempty"`
}

// Ranked reports whether a battle started from this challenge affects ratings.
// Only duels are ranked.
func (c *Challenge) Ranked() bool { return c.CombatType == combat.BattleDuel }

// expiredAt reports whether a pending challenge is past its deadline at now.
func (c *Challenge) expiredAt(now time.Time) bool {
	return c.Status == StatusPending && !now.Before(c.ExpiresAt)
}
