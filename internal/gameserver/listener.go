package gameserver

import (
	"context"

	"go.uber.org/zap"

	"github.com/cory-johannsen/pvp/internal/game/combat"
)

// Settler computes the rating settlement of a finished battle.
type Settler interface {
	ApplyBattle(ctx context.Context, b *combat.Battle) (combat.Settlement, error)
}

// BattleAnnotator writes the settlement onto the stored battle.
type BattleAnnotator interface {
	Settle(ctx context.Context, battleID string, s combat.Settlement) (*combat.Battle, error)
}

// battleEvents pushes engine changes to the combatants and settles finished battles.
type battleEvents struct {
	notifier  *Notifier
	settler   Settler
	annotator BattleAnnotator
	logger    *zap.Logger
}

// NewBattleEvents returns the combat.Listener that publishes battle progress
// and applies ratings once a battle ends.
//
// Precondition: every argument must be non-nil.
func NewBattleEvents(notifier *Notifier, settler Settler, annotator BattleAnnotator, logger *zap.Logger) combat.Listener {
	return &battleEvents{notifier: notifier, settler: settler, annotator: annotator, logger: logger}
}

func (l *battleEvents) BattleStarted(b *combat.Battle) {
	l.notifier.PublishAll(b.PlayerIDs(), Event{Type: EventBattleStarted, Battle: b})
}

func (l *battleEvents) BattleUpdated(b *combat.Battle, entries []combat.LogEntry) {
	l.notifier.PublishAll(b.PlayerIDs(), Event{Type: EventTurnResult, Battle: b, Entries: entries})
}

// BattleEnded settles b. A settlement failure is logged and the battle is
// announced unsettled.
func (l *battleEvents) BattleEnded(ctx context.Context, b *combat.Battle) {
	final := b
	settlement, err := l.settler.ApplyBattle(ctx, b)
	if err != nil {
		l.logger.Error("applying battle result", zap.String("battle_id", b.ID), zap.Error(err))
	} else if settled, err := l.annotator.Settle(ctx, b.ID, settlement); err != nil {
		l.logger.Error("annotating settlement", zap.String("battle_id", b.ID), zap.Error(err))
	} else {
		final = settled
	}
	l.notifier.PublishAll(final.PlayerIDs(), Event{Type: EventBattleEnded, Battle: final})
}
