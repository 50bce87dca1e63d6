package gameserver_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/pvp/internal/game/challenge"
	"github.com/cory-johannsen/pvp/internal/game/combat"
	"github.com/cory-johannsen/pvp/internal/game/dice"
	"github.com/cory-johannsen/pvp/internal/game/effect"
	"github.com/cory-johannsen/pvp/internal/game/matchmaking"
	"github.com/cory-johannsen/pvp/internal/game/rating"
	"github.com/cory-johannsen/pvp/internal/gameserver"
	"github.com/cory-johannsen/pvp/internal/storage"
	"github.com/cory-johannsen/pvp/internal/storage/sqlite"
)

type fixture struct {
	svc      *gameserver.Service
	store    *sqlite.Store
	engine   *combat.Engine
	notifier *gameserver.Notifier
}

// hitSource never evades, never crits and rolls the variance midpoint.
func hitSource() dice.Source {
	return dice.NewScriptedSource([]int{99}, []float64{0.5})
}

// newFixture wires a Service over an in-memory store with alice, bob and
// carol registered at 50 hp.
func newFixture(t *testing.T, src dice.Source) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)

	store, err := sqlite.Open(sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	engine := combat.NewEngine(combat.Config{MaxActionPoints: 4, TimeoutPolicy: combat.TimeoutNone},
		store, src, effect.DefaultRegistry(), nil, logger)
	updater := rating.NewUpdater(store, rating.Config{}, logger)
	notifier := gameserver.NewNotifier(16, logger)
	engine.SetListener(gameserver.NewBattleEvents(notifier, updater, engine, logger))

	starter := gameserver.NewBattleStarter(store, engine, nil, logger)
	broker := challenge.NewBroker(store, store, engine, starter, 0, logger)
	queue := matchmaking.NewQueue(matchmaking.Config{}, starter, src, logger)
	queue.SetBattleChecker(engine)
	svc := gameserver.NewService(engine, broker, queue, updater, store, notifier, logger)

	for _, p := range []storage.Player{
		{ID: "alice", Name: "Alice", Traits: map[string]float64{"endurance": 5}},
		{ID: "bob", Name: "Bob", Traits: map[string]float64{"endurance": 5}},
		{ID: "carol", Name: "Carol", Traits: map[string]float64{"endurance": 5}},
	} {
		_, err := store.UpsertPlayer(context.Background(), p)
		require.NoError(t, err)
	}
	return &fixture{svc: svc, store: store, engine: engine, notifier: notifier}
}

// duel starts a ranked duel between alice and bob through a challenge.
func (f *fixture) duel(t *testing.T) *combat.Battle {
	t.Helper()
	ctx := context.Background()
	c, err := f.svc.CreateChallenge(ctx, "alice", "bob", "duel", "")
	require.NoError(t, err)
	b, err := f.svc.AcceptChallenge(ctx, c.ID, "bob")
	require.NoError(t, err)
	return b
}

// fightToEnd has whoever's turn it is attack until the battle ends.
func (f *fixture) fightToEnd(t *testing.T, battleID string) *combat.Battle {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 50; i++ {
		b, err := f.svc.GetBattleState(ctx, battleID)
		require.NoError(t, err)
		if b.Status.Terminal() {
			return b
		}
		_, err = f.svc.ExecuteAction(ctx, battleID, b.CurrentActor().PlayerID, "attack", "", "")
		require.NoError(t, err)
	}
	t.Fatalf("battle %s did not end", battleID)
	return nil
}

// drain returns the events buffered on sub without blocking.
func drain(sub *gameserver.Subscriber) []gameserver.Event {
	var out []gameserver.Event
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

func eventTypes(evs []gameserver.Event) []gameserver.EventType {
	out := make([]gameserver.EventType, len(evs))
	for i, ev := range evs {
		out[i] = ev.Type
	}
	return out
}
