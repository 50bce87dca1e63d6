package gameserver_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/pvp/internal/gameserver"
)

func TestNotifier_PublishReachesOnlyThePlayer(t *testing.T) {
	n := gameserver.NewNotifier(4, zap.NewNop())
	alice := n.Subscribe("alice")
	bob := n.Subscribe("bob")

	n.Publish("alice", gameserver.Event{Type: gameserver.EventMatchFound})

	got := drain(alice)
	require.Len(t, got, 1)
	assert.Equal(t, gameserver.EventMatchFound, got[0].Type)
	assert.False(t, got[0].At.IsZero(), "publish stamps the event")
	assert.Empty(t, drain(bob))
}

func TestNotifier_MultipleSubscribersPerPlayer(t *testing.T) {
	n := gameserver.NewNotifier(4, zap.NewNop())
	a1 := n.Subscribe("alice")
	a2 := n.Subscribe("alice")
	assert.Equal(t, 2, n.Subscribers("alice"))

	n.PublishAll([]string{"alice"}, gameserver.Event{Type: gameserver.EventTurnResult})
	assert.Len(t, drain(a1), 1)
	assert.Len(t, drain(a2), 1)
}

func TestNotifier_BroadcastReachesEveryone(t *testing.T) {
	n := gameserver.NewNotifier(4, zap.NewNop())
	subs := []*gameserver.Subscriber{n.Subscribe("alice"), n.Subscribe("bob"), n.Subscribe("carol")}

	n.Broadcast(gameserver.Event{Type: gameserver.EventBattleEnded})
	for _, s := range subs {
		assert.Len(t, drain(s), 1, s.PlayerID())
	}
}

func TestNotifier_FullBufferDropsSubscriber(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	n := gameserver.NewNotifier(1, zap.New(core))
	sub := n.Subscribe("alice")

	n.Publish("alice", gameserver.Event{Type: gameserver.EventTurnResult})
	n.Publish("alice", gameserver.Event{Type: gameserver.EventTurnResult})

	assert.Equal(t, 0, n.Subscribers("alice"))
	assert.Equal(t, 1, logs.FilterMessage("dropping subscriber").Len())

	// the buffered event is still readable, then the channel is closed
	_, ok := <-sub.Events()
	assert.True(t, ok)
	_, ok = <-sub.Events()
	assert.False(t, ok)

	// later publishes are not retried
	n.Publish("alice", gameserver.Event{Type: gameserver.EventTurnResult})
	assert.Equal(t, 1, logs.FilterMessage("dropping subscriber").Len())
}

func TestNotifier_UnsubscribeIsIdempotent(t *testing.T) {
	n := gameserver.NewNotifier(0, zap.NewNop())
	sub := n.Subscribe("alice")
	n.Unsubscribe(sub)
	n.Unsubscribe(sub)
	assert.Equal(t, 0, n.Subscribers("alice"))
	_, ok := <-sub.Events()
	assert.False(t, ok)
}
