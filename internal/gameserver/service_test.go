package gameserver_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/pvp/internal/game/combat"
	"github.com/cory-johannsen/pvp/internal/game/dice"
	"github.com/cory-johannsen/pvp/internal/game/pvperr"
	"github.com/cory-johannsen/pvp/internal/game/rating"
	"github.com/cory-johannsen/pvp/internal/gameserver"
)

func TestService_ChallengeDuelSettlesRatings(t *testing.T) {
	f := newFixture(t, hitSource())
	ctx := context.Background()

	b := f.duel(t)
	assert.Equal(t, combat.BattleDuel, b.Type)
	assert.True(t, b.Ranked)

	active, err := f.svc.GetActiveBattle(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, b.ID, active.ID)

	final := f.fightToEnd(t, b.ID)
	assert.Equal(t, combat.StatusCompleted, final.Status)
	require.NotNil(t, final.Settlement, "finished battles carry their settlement")
	require.Len(t, final.Settlement.Entries, 2)

	winner, err := f.svc.GetCombatStats(ctx, final.WinnerID)
	require.NoError(t, err)
	assert.Equal(t, 1, winner.Wins)
	assert.Equal(t, 1016, winner.Rating)
	assert.Equal(t, 50, winner.Base.MaxHP)
	assert.Equal(t, rating.TierFor(1016), winner.Tier)

	loser, err := f.svc.GetCombatStats(ctx, final.LoserID)
	require.NoError(t, err)
	assert.Equal(t, 1, loser.Losses)
	assert.Equal(t, 984, loser.Rating)

	_, err = f.svc.GetActiveBattle(ctx, "alice")
	assert.ErrorIs(t, err, pvperr.ErrBattleNotFound)

	history, err := f.svc.GetCombatHistory(ctx, "bob", 0, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, b.ID, history[0].ID)
}

func TestService_FleeCostsOnlyTheFleeingPlayer(t *testing.T) {
	// every flee succeeds
	f := newFixture(t, dice.NewScriptedSource([]int{99}, []float64{0}))
	ctx := context.Background()
	b := f.duel(t)

	idle := b.Combatants[1-b.CurrentActorIndex].PlayerID
	fled, err := f.svc.AttemptFlee(ctx, b.ID, idle)
	require.NoError(t, err, "flee may be attempted off-turn")
	assert.Equal(t, combat.StatusFled, fled.Status)
	assert.Equal(t, idle, fled.LoserID)

	st, err := f.svc.GetCombatStats(ctx, idle)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Flees)
	assert.Equal(t, 1, st.Losses, "a flee counts as a loss")
	assert.Equal(t, 1000-rating.DefaultFleePenalty, st.Rating)

	other, err := f.svc.GetCombatStats(ctx, fled.WinnerID)
	require.NoError(t, err)
	assert.Equal(t, 1000, other.Rating)
	assert.Equal(t, 1, other.Wins)
}

func TestService_ActionRejections(t *testing.T) {
	f := newFixture(t, hitSource())
	ctx := context.Background()
	b := f.duel(t)
	actor := b.CurrentActor().PlayerID
	idle := b.Combatants[1-b.CurrentActorIndex].PlayerID

	_, err := f.svc.ExecuteAction(ctx, b.ID, actor, "dance", "", "")
	assert.ErrorIs(t, err, pvperr.ErrUnknownActionType)

	_, err = f.svc.ExecuteAction(ctx, b.ID, idle, "attack", "", "")
	assert.ErrorIs(t, err, pvperr.ErrNotYourTurn)

	_, err = f.svc.ExecuteAction(ctx, b.ID, "carol", "attack", "", "")
	assert.ErrorIs(t, err, pvperr.ErrNotCombatant)

	_, err = f.svc.ExecuteAction(ctx, "nope", actor, "attack", "", "")
	assert.Equal(t, pvperr.CategoryNotFound, pvperr.CategoryOf(err))

	_, err = f.svc.GetBattleState(ctx, "")
	assert.ErrorIs(t, err, pvperr.ErrMissingField)

	// rejections left the battle untouched
	got, err := f.svc.GetBattleState(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Log)
	assert.Equal(t, actor, got.CurrentActor().PlayerID)
}

func TestService_ChallengeRejections(t *testing.T) {
	f := newFixture(t, hitSource())
	ctx := context.Background()

	_, err := f.svc.CreateChallenge(ctx, "alice", "alice", "duel", "")
	assert.Equal(t, pvperr.CategoryValidation, pvperr.CategoryOf(err))

	_, err = f.svc.CreateChallenge(ctx, "alice", "bob", "brawl", "")
	assert.ErrorIs(t, err, pvperr.ErrUnknownBattleType)

	_, err = f.svc.CreateChallenge(ctx, "alice", "zed", "duel", "")
	assert.ErrorIs(t, err, pvperr.ErrPlayerNotFound)

	c, err := f.svc.CreateChallenge(ctx, "alice", "bob", "arena", "")
	require.NoError(t, err)
	_, err = f.svc.AcceptChallenge(ctx, c.ID, "carol")
	assert.Equal(t, pvperr.CategoryForbidden, pvperr.CategoryOf(err))

	declined, err := f.svc.DeclineChallenge(ctx, c.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, "declined", string(declined.Status))

	pending, err := f.svc.ListChallenges(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestService_QueueMatchesImmediately(t *testing.T) {
	f := newFixture(t, hitSource())
	ctx := context.Background()
	aliceSub := f.svc.Subscribe("alice")

	res, err := f.svc.JoinQueue(ctx, "alice", true)
	require.NoError(t, err)
	assert.Nil(t, res.Battle)
	assert.Equal(t, 1, res.Status.Position)
	assert.Equal(t, 1000, res.Status.Entry.Rating)

	st, err := f.svc.GetQueueStatus(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", st.Entry.Name)

	_, err = f.svc.JoinQueue(ctx, "alice", true)
	assert.ErrorIs(t, err, pvperr.ErrAlreadyQueued)

	res, err = f.svc.JoinQueue(ctx, "bob", true)
	require.NoError(t, err)
	require.NotNil(t, res.Battle)
	assert.Equal(t, combat.BattleArena, res.Battle.Type)
	assert.True(t, res.Battle.Ranked)
	assert.ElementsMatch(t, []string{"alice", "bob"}, res.Battle.PlayerIDs())

	_, err = f.svc.GetQueueStatus(ctx, "alice")
	assert.ErrorIs(t, err, pvperr.ErrNotQueued)

	assert.Contains(t, eventTypes(drain(aliceSub)), gameserver.EventMatchFound)

	_, err = f.svc.JoinQueue(ctx, "alice", true)
	assert.ErrorIs(t, err, pvperr.ErrAlreadyInCombat)
}

func TestService_AcceptedChallengeLeavesQueue(t *testing.T) {
	f := newFixture(t, hitSource())
	ctx := context.Background()

	_, err := f.svc.JoinQueue(ctx, "carol", false)
	require.NoError(t, err)

	c, err := f.svc.CreateChallenge(ctx, "alice", "carol", "arena", "")
	require.NoError(t, err)
	b, err := f.svc.AcceptChallenge(ctx, c.ID, "carol")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "carol"}, b.PlayerIDs())

	_, err = f.svc.GetQueueStatus(ctx, "carol")
	assert.ErrorIs(t, err, pvperr.ErrNotQueued)

	for i := 0; i < 3; i++ {
		res, err := f.svc.JoinQueue(ctx, "bob", false)
		require.NoError(t, err)
		assert.Nil(t, res.Battle)
		assert.Equal(t, 1, res.Status.Queued)
		assert.Equal(t, 1, res.Status.Position)
		require.NoError(t, f.svc.LeaveQueue(ctx, "bob"))
	}
}

func TestService_LeaveQueue(t *testing.T) {
	f := newFixture(t, hitSource())
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.LeaveQueue(ctx, "alice"), pvperr.ErrNotQueued)
	_, err := f.svc.JoinQueue(ctx, "alice", false)
	require.NoError(t, err)
	require.NoError(t, f.svc.LeaveQueue(ctx, "alice"))
	_, err = f.svc.GetQueueStatus(ctx, "alice")
	assert.ErrorIs(t, err, pvperr.ErrNotQueued)

	_, err = f.svc.JoinQueue(ctx, "zed", false)
	assert.ErrorIs(t, err, pvperr.ErrPlayerNotFound)
}

func TestService_NotifiesParticipants(t *testing.T) {
	f := newFixture(t, hitSource())
	ctx := context.Background()
	aliceSub := f.svc.Subscribe("alice")
	bobSub := f.svc.Subscribe("bob")

	c, err := f.svc.CreateChallenge(ctx, "alice", "bob", "duel", "on guard")
	require.NoError(t, err)
	bobEvents := drain(bobSub)
	require.Len(t, bobEvents, 1)
	assert.Equal(t, gameserver.EventChallengeReceived, bobEvents[0].Type)
	assert.Equal(t, c.ID, bobEvents[0].Challenge.ID)

	b, err := f.svc.AcceptChallenge(ctx, c.ID, "bob")
	require.NoError(t, err)
	f.fightToEnd(t, b.ID)

	types := eventTypes(drain(aliceSub))
	require.NotEmpty(t, types)
	assert.Equal(t, gameserver.EventBattleStarted, types[0])
	assert.Contains(t, types, gameserver.EventTurnResult)
	assert.Equal(t, gameserver.EventBattleEnded, types[len(types)-1])
}

func TestService_HistoryLimits(t *testing.T) {
	f := newFixture(t, hitSource())
	ctx := context.Background()

	_, err := f.svc.GetCombatHistory(ctx, "", 10, 0)
	assert.ErrorIs(t, err, pvperr.ErrMissingField)

	for i := 0; i < 3; i++ {
		f.fightToEnd(t, f.duel(t).ID)
	}
	page, err := f.svc.GetCombatHistory(ctx, "alice", 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)
	page, err = f.svc.GetCombatHistory(ctx, "alice", 1000, -4)
	require.NoError(t, err)
	assert.Len(t, page, 3)

	top, err := f.svc.Leaderboard(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, top, 2)
}
