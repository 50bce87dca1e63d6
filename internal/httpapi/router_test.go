package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/pvp/internal/game/challenge"
	"github.com/cory-johannsen/pvp/internal/game/combat"
	"github.com/cory-johannsen/pvp/internal/game/matchmaking"
	"github.com/cory-johannsen/pvp/internal/game/pvperr"
	"github.com/cory-johannsen/pvp/internal/game/rating"
	"github.com/cory-johannsen/pvp/internal/gameserver"
	"github.com/cory-johannsen/pvp/internal/httpapi"
)

type fakeQueries struct {
	battles   map[string]*combat.Battle
	active    map[string]string
	lastLimit int
	lastSkip  int
	failStats error
}

func (f *fakeQueries) GetBattleState(_ context.Context, id string) (*combat.Battle, error) {
	if b, ok := f.battles[id]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("%w: %s", pvperr.ErrBattleNotFound, id)
}

func (f *fakeQueries) GetActiveBattle(ctx context.Context, playerID string) (*combat.Battle, error) {
	id, ok := f.active[playerID]
	if !ok {
		return nil, pvperr.ErrBattleNotFound
	}
	return f.GetBattleState(ctx, id)
}

func (f *fakeQueries) GetCombatHistory(_ context.Context, _ string, limit, skip int) ([]*combat.Battle, error) {
	f.lastLimit, f.lastSkip = limit, skip
	return nil, nil
}

func (f *fakeQueries) GetCombatStats(_ context.Context, playerID string) (gameserver.CombatStats, error) {
	if f.failStats != nil {
		return gameserver.CombatStats{}, f.failStats
	}
	return gameserver.CombatStats{Stats: rating.Stats{PlayerID: playerID, Rating: 1234}, Tier: rating.TierFor(1234)}, nil
}

func (f *fakeQueries) ListChallenges(context.Context, string) ([]*challenge.Challenge, error) {
	return nil, nil
}

func (f *fakeQueries) GetQueueStatus(_ context.Context, playerID string) (matchmaking.Status, error) {
	return matchmaking.Status{}, fmt.Errorf("%w: %s", pvperr.ErrNotQueued, playerID)
}

func (f *fakeQueries) Leaderboard(_ context.Context, limit int) ([]rating.Stats, error) {
	f.lastLimit = limit
	return []rating.Stats{{PlayerID: "alice", Rating: 1500}}, nil
}

func newTestRouter(t *testing.T, health httpapi.HealthFunc) (*gin.Engine, *fakeQueries) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	q := &fakeQueries{
		battles: map[string]*combat.Battle{"b1": {ID: "b1", Type: combat.BattleDuel, Status: combat.StatusActive}},
		active:  map[string]string{"alice": "b1"},
	}
	return httpapi.NewRouter(q, health, zap.NewNop()), q
}

func get(t *testing.T, r http.Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestRouter_Battle(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	w, body := get(t, r, "/api/v1/battles/b1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "b1", body["id"])

	w, body = get(t, r, "/api/v1/battles/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "battle_not_found", body["code"])
}

func TestRouter_ActiveBattle(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	w, body := get(t, r, "/api/v1/players/alice/battle")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "duel", body["battle_type"])

	w, _ = get(t, r, "/api/v1/players/bob/battle")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_HistoryPaging(t *testing.T) {
	r, q := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/players/alice/history?limit=5&skip=10", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
	assert.Equal(t, 5, q.lastLimit)
	assert.Equal(t, 10, q.lastSkip)

	get(t, r, "/api/v1/players/alice/history?limit=abc")
	assert.Equal(t, gameserver.DefaultHistoryLimit, q.lastLimit)
}

func TestRouter_Stats(t *testing.T) {
	r, q := newTestRouter(t, nil)

	w, body := get(t, r, "/api/v1/players/alice/stats")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1234), body["pvp_rating"])
	assert.Equal(t, "silver", body["arena_tier"])

	q.failStats = errors.New("disk on fire")
	w, body = get(t, r, "/api/v1/players/alice/stats")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal", body["code"])
}

func TestRouter_QueueAndChallenges(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	w, body := get(t, r, "/api/v1/players/alice/queue")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_queued", body["code"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/players/alice/challenges", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestRouter_Leaderboard(t *testing.T) {
	r, q := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var out []rating.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "alice", out[0].PlayerID)
	assert.Equal(t, 10, q.lastLimit)
}

func TestRouter_Health(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	w, body := get(t, r, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])

	r, _ = newTestRouter(t, func(context.Context) error { return errors.New("db down") })
	w, _ = get(t, r, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{pvperr.ErrMissingField, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", pvperr.ErrNotYourTurn), http.StatusConflict},
		{pvperr.ErrChallengeNotFound, http.StatusNotFound},
		{pvperr.ErrInsufficientPoints, http.StatusTooManyRequests},
		{pvperr.ErrForbidden, http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, httpapi.StatusFor(tt.err), tt.err.Error())
	}
}
