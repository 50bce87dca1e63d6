// Package storage defines the persistence contract shared by the postgres and
// sqlite backends.
package storage

import (
	"context"
	"time"

	"github.com/cory-johannsen/pvp/internal/game/challenge"
	"github.com/cory-johannsen/pvp/internal/game/combat"
	"github.com/cory-johannsen/pvp/internal/game/rating"
)

// Player is the attribute record consumed by stat derivation.
type Player struct {
	ID        string             `json:"id"`
	Name      string             `json:"display_name"`
	Traits    map[string]float64 `json:"traits"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Players persists player attributes. GetPlayer, Traits and DisplayName wrap
// pvperr.ErrPlayerNotFound for unknown ids.
type Players interface {
	UpsertPlayer(ctx context.Context, p Player) (Player, error)
	GetPlayer(ctx context.Context, id string) (Player, error)
	Traits(ctx context.Context, id string) (map[string]float64, error)
	DisplayName(ctx context.Context, id string) (string, error)
}

// History lists finished battles.
type History interface {
	// ListBattlesForPlayer returns playerID's finished battles, newest first.
	ListBattlesForPlayer(ctx context.Context, playerID string, limit, skip int) ([]*combat.Battle, error)
}

// Leaderboard ranks combat records.
type Leaderboard interface {
	// TopRatings returns the highest-rated records, best first.
	TopRatings(ctx context.Context, limit int) ([]rating.Stats, error)
}

// Store is everything the server persists.
//
// SaveBattle fails with pvperr.ErrAlreadyInCombat when an active battle would
// give a player a second active battle.
type Store interface {
	combat.Store
	challenge.Store
	rating.Store
	Players
	History
	Leaderboard
	Close() error
}
