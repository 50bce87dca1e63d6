package gameserver

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/pvp/internal/game/combat"
	"github.com/cory-johannsen/pvp/internal/game/stats"
)

// PlayerAttributes supplies the traits and name of a player.
type PlayerAttributes interface {
	Traits(ctx context.Context, playerID string) (map[string]float64, error)
	DisplayName(ctx context.Context, playerID string) (string, error)
}

// Loadout lists the powers every combatant enters battle with.
type Loadout interface {
	Powers() []string
}

// BattleStarter turns two player ids into a running battle. It serves both
// the challenge broker and the match queue.
type BattleStarter struct {
	players PlayerAttributes
	engine  *combat.Engine
	loadout Loadout
	logger  *zap.Logger
}

// NewBattleStarter creates a BattleStarter.
//
// Precondition: players, engine and logger must be non-nil; loadout may be nil.
func NewBattleStarter(players PlayerAttributes, engine *combat.Engine, loadout Loadout, logger *zap.Logger) *BattleStarter {
	return &BattleStarter{players: players, engine: engine, loadout: loadout, logger: logger}
}

// StartBattle derives both players' stats and creates the battle.
//
// Postcondition: Returns the created battle, or an error with nothing reserved.
func (s *BattleStarter) StartBattle(ctx context.Context, p1ID, p2ID string, opts combat.Options) (*combat.Battle, error) {
	p1, err := s.participant(ctx, p1ID)
	if err != nil {
		return nil, err
	}
	p2, err := s.participant(ctx, p2ID)
	if err != nil {
		return nil, err
	}
	return s.engine.Create(ctx, p1, p2, opts)
}

func (s *BattleStarter) participant(ctx context.Context, playerID string) (combat.Participant, error) {
	traits, err := s.players.Traits(ctx, playerID)
	if err != nil {
		return combat.Participant{}, fmt.Errorf("loading traits for %s: %w", playerID, err)
	}
	name, err := s.players.DisplayName(ctx, playerID)
	if err != nil {
		return combat.Participant{}, fmt.Errorf("loading name for %s: %w", playerID, err)
	}
	p := combat.Participant{PlayerID: playerID, Name: name, Stats: stats.Derive(traits)}
	if s.loadout != nil {
		p.Abilities = s.loadout.Powers()
	}
	return p, nil
}
