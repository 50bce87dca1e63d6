// Package storagetest holds the behaviour every storage.Store backend must share.
package storagetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/pvp/internal/game/challenge"
	"github.com/cory-johannsen/pvp/internal/game/combat"
	"github.com/cory-johannsen/pvp/internal/game/pvperr"
	"github.com/cory-johannsen/pvp/internal/game/rating"
	"github.com/cory-johannsen/pvp/internal/storage"
)

// Factory returns an empty, migrated store. The factory owns cleanup.
type Factory func(t *testing.T) storage.Store

// Run exercises newStore against the shared storage contract.
func Run(t *testing.T, newStore Factory) {
	t.Run("battles", func(t *testing.T) { testBattles(t, newStore(t)) })
	t.Run("active conflict", func(t *testing.T) { testActiveConflict(t, newStore(t)) })
	t.Run("history", func(t *testing.T) { testHistory(t, newStore(t)) })
	t.Run("challenges", func(t *testing.T) { testChallenges(t, newStore(t)) })
	t.Run("stats", func(t *testing.T) { testStats(t, newStore(t)) })
	t.Run("leaderboard", func(t *testing.T) { testLeaderboard(t, newStore(t)) })
	t.Run("players", func(t *testing.T) { testPlayers(t, newStore(t)) })
}

// Battle builds a minimal battle between players, started at start.
func Battle(id string, status combat.Status, start time.Time, players ...string) *combat.Battle {
	b := &combat.Battle{
		ID:          id,
		Type:        combat.BattleDuel,
		Ranked:      true,
		Status:      status,
		CurrentTurn: 1,
		StartedAt:   start.UTC().Truncate(time.Millisecond),
	}
	for _, p := range players {
		b.Combatants = append(b.Combatants, &combat.Combatant{
			PlayerID: p, Name: p, HP: 100, MaxHP: 100, ActionPoints: 4, MaxActionPoints: 4,
		})
	}
	if status.Terminal() {
		end := b.StartedAt.Add(time.Minute)
		b.EndedAt = &end
		b.WinnerID = players[0]
		if len(players) > 1 {
			b.LoserID = players[1]
		}
	}
	return b
}

func testBattles(t *testing.T, s storage.Store) {
	ctx := context.Background()
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	_, err := s.GetBattle(ctx, "missing")
	assert.ErrorIs(t, err, pvperr.ErrBattleNotFound)

	none, err := s.FindActiveBattleForPlayer(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, none)

	b := Battle("b1", combat.StatusActive, start, "alice", "bob")
	b.Log = append(b.Log, combat.LogEntry{Turn: 1, Actor: "alice", Action: "attack", Target: "bob",
		Result: combat.ActionResult{Damage: 7, TargetHP: 93}, Timestamp: start})
	require.NoError(t, s.SaveBattle(ctx, b))

	got, err := s.GetBattle(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, combat.StatusActive, got.Status)
	assert.Equal(t, []string{"alice", "bob"}, got.PlayerIDs())
	require.Len(t, got.Log, 1)
	assert.Equal(t, 7, got.Log[0].Result.Damage)

	active, err := s.FindActiveBattleForPlayer(ctx, "bob")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "b1", active.ID)

	list, err := s.ListActiveBattles(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// re-saving the same active battle keeps the index
	b.CurrentTurn = 2
	require.NoError(t, s.SaveBattle(ctx, b))

	b.Status = combat.StatusCompleted
	end := start.Add(time.Minute)
	b.EndedAt = &end
	b.WinnerID, b.LoserID = "alice", "bob"
	require.NoError(t, s.SaveBattle(ctx, b))

	active, err = s.FindActiveBattleForPlayer(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, active)
	list, err = s.ListActiveBattles(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	got, err = s.GetBattle(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, combat.StatusCompleted, got.Status)
	assert.Equal(t, 2, got.CurrentTurn)
}

func testActiveConflict(t *testing.T, s storage.Store) {
	ctx := context.Background()
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, s.SaveBattle(ctx, Battle("b1", combat.StatusActive, start, "alice", "bob")))
	err := s.SaveBattle(ctx, Battle("b2", combat.StatusActive, start, "carol", "bob"))
	require.ErrorIs(t, err, pvperr.ErrAlreadyInCombat)

	// nothing of b2 was written
	_, err = s.GetBattle(ctx, "b2")
	assert.ErrorIs(t, err, pvperr.ErrBattleNotFound)
	active, err := s.FindActiveBattleForPlayer(ctx, "carol")
	require.NoError(t, err)
	assert.Nil(t, active)

	// once b1 ends bob is free again
	require.NoError(t, s.SaveBattle(ctx, Battle("b1", combat.StatusFled, start, "alice", "bob")))
	require.NoError(t, s.SaveBattle(ctx, Battle("b2", combat.StatusActive, start, "carol", "bob")))
	active, err = s.FindActiveBattleForPlayer(ctx, "bob")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "b2", active.ID)
}

func testHistory(t *testing.T, s storage.Store) {
	ctx := context.Background()
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i := 0; i < 5; i++ {
		b := Battle(fmt.Sprintf("h%d", i), combat.StatusCompleted, start.Add(time.Duration(i)*time.Hour), "alice", "bob")
		require.NoError(t, s.SaveBattle(ctx, b))
	}
	require.NoError(t, s.SaveBattle(ctx, Battle("live", combat.StatusActive, start.Add(10*time.Hour), "alice", "carol")))
	require.NoError(t, s.SaveBattle(ctx, Battle("other", combat.StatusCompleted, start, "carol", "dave")))

	page, err := s.ListBattlesForPlayer(ctx, "alice", 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "h4", page[0].ID)
	assert.Equal(t, "h3", page[1].ID)

	page, err = s.ListBattlesForPlayer(ctx, "bob", 10, 3)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "h1", page[0].ID)
	assert.Equal(t, "h0", page[1].ID)

	page, err = s.ListBattlesForPlayer(ctx, "nobody", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func testChallenges(t *testing.T, s storage.Store) {
	ctx := context.Background()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	_, err := s.GetChallenge(ctx, "missing")
	assert.ErrorIs(t, err, pvperr.ErrChallengeNotFound)

	mk := func(id, from, to string, at time.Time) *challenge.Challenge {
		return &challenge.Challenge{
			ID: id, ChallengerID: from, ChallengerName: from, TargetID: to, TargetName: to,
			CombatType: combat.BattleDuel, Status: challenge.StatusPending, Message: "fight me",
			CreatedAt: at, ExpiresAt: at.Add(5 * time.Minute),
		}
	}
	require.NoError(t, s.SaveChallenge(ctx, mk("c1", "alice", "bob", now)))
	require.NoError(t, s.SaveChallenge(ctx, mk("c2", "carol", "alice", now.Add(time.Second))))
	require.NoError(t, s.SaveChallenge(ctx, mk("c3", "carol", "dave", now)))

	got, err := s.GetChallenge(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "bob", got.TargetID)
	assert.Equal(t, "fight me", got.Message)
	assert.Empty(t, got.BattleID)
	assert.True(t, got.ExpiresAt.Equal(now.Add(5*time.Minute)))

	pending, err := s.ListPendingChallenges(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "c1", pending[0].ID)
	assert.Equal(t, "c2", pending[1].ID)

	got.Status = challenge.StatusAccepted
	got.BattleID = "b9"
	require.NoError(t, s.SaveChallenge(ctx, got))

	got, err = s.GetChallenge(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, challenge.StatusAccepted, got.Status)
	assert.Equal(t, "b9", got.BattleID)

	pending, err = s.ListPendingChallenges(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "c2", pending[0].ID)
}

func testStats(t *testing.T, s storage.Store) {
	ctx := context.Background()

	_, err := s.GetStats(ctx, "alice")
	assert.ErrorIs(t, err, pvperr.ErrPlayerNotFound)

	st, err := s.RecordOutcome(ctx, "alice", rating.Delta{Result: rating.ResultWin, RatingDelta: 16, DamageDealt: 40, DamageTaken: 12, BaseRating: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1016, st.Rating)
	assert.Equal(t, 1, st.Wins)
	assert.Equal(t, 1, st.BattlesPlayed)
	assert.Equal(t, 1, st.WinStreak)
	assert.Equal(t, 1, st.BestStreak)
	assert.Equal(t, int64(40), st.DamageDealt)

	st, err = s.RecordOutcome(ctx, "alice", rating.Delta{Result: rating.ResultWin, RatingDelta: 15, DamageDealt: 10, BaseRating: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1031, st.Rating)
	assert.Equal(t, 2, st.WinStreak)
	assert.Equal(t, 2, st.BestStreak)

	st, err = s.RecordOutcome(ctx, "alice", rating.Delta{Result: rating.ResultFlee, RatingDelta: -10, DamageTaken: 5, BaseRating: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1021, st.Rating)
	assert.Equal(t, 1, st.Flees)
	assert.Equal(t, 1, st.Losses)
	assert.Equal(t, 0, st.WinStreak)
	assert.Equal(t, 2, st.BestStreak)
	assert.Equal(t, 3, st.BattlesPlayed)
	assert.Equal(t, int64(50), st.DamageDealt)
	assert.Equal(t, int64(17), st.DamageTaken)

	st, err = s.RecordOutcome(ctx, "alice", rating.Delta{Result: rating.ResultDraw, BaseRating: 1000})
	require.NoError(t, err)
	st, err = s.RecordOutcome(ctx, "alice", rating.Delta{Result: rating.ResultLoss, RatingDelta: -12, BaseRating: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1, st.Draws)
	assert.Equal(t, 2, st.Losses)
	assert.Equal(t, 5, st.BattlesPlayed)

	loaded, err := s.GetStats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, st.Rating, loaded.Rating)
	assert.Equal(t, st.BestStreak, loaded.BestStreak)
}

func testLeaderboard(t *testing.T, s storage.Store) {
	ctx := context.Background()
	for id, delta := range map[string]int{"alice": 40, "bob": -20, "carol": 40, "dave": 5} {
		_, err := s.RecordOutcome(ctx, id, rating.Delta{Result: rating.ResultWin, RatingDelta: delta, BaseRating: 1000})
		require.NoError(t, err)
	}
	top, err := s.TopRatings(ctx, 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, "alice", top[0].PlayerID)
	assert.Equal(t, "carol", top[1].PlayerID)
	assert.Equal(t, "dave", top[2].PlayerID)
}

func testPlayers(t *testing.T, s storage.Store) {
	ctx := context.Background()

	_, err := s.GetPlayer(ctx, "alice")
	assert.ErrorIs(t, err, pvperr.ErrPlayerNotFound)
	_, err = s.DisplayName(ctx, "alice")
	assert.ErrorIs(t, err, pvperr.ErrPlayerNotFound)

	p, err := s.UpsertPlayer(ctx, storage.Player{ID: "alice", Name: "Alice", Traits: map[string]float64{"level": 5, "strength": 14}})
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.Name)
	assert.False(t, p.CreatedAt.IsZero())

	p, err = s.UpsertPlayer(ctx, storage.Player{ID: "alice", Name: "Alice the Bold", Traits: map[string]float64{"level": 6}})
	require.NoError(t, err)
	assert.Equal(t, "Alice the Bold", p.Name)

	traits, err := s.Traits(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"level": 6}, traits)

	name, err := s.DisplayName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice the Bold", name)

	p, err = s.UpsertPlayer(ctx, storage.Player{ID: "bob", Name: "Bob"})
	require.NoError(t, err)
	assert.Empty(t, p.Traits)
}
