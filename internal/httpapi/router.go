// Package httpapi serves read-only battle, player and leaderboard views over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cory-johannsen/pvp/internal/game/challenge"
	"github.com/cory-johannsen/pvp/internal/game/combat"
	"github.com/cory-johannsen/pvp/internal/game/matchmaking"
	"github.com/cory-johannsen/pvp/internal/game/pvperr"
	"github.com/cory-johannsen/pvp/internal/game/rating"
	"github.com/cory-johannsen/pvp/internal/gameserver"
)

// Route paths.
const (
	RouteAPIPrefix    = "/api/v1"
	RouteHealth       = "/healthz"
	RouteBattle       = "/battles/:id"
	RouteActiveBattle = "/players/:id/battle"
	RouteHistory      = "/players/:id/history"
	RouteStats        = "/players/:id/stats"
	RouteChallenges   = "/players/:id/challenges"
	RouteQueue        = "/players/:id/queue"
	RouteLeaderboard  = "/leaderboard"

	jsonKeyError = "error"
	jsonKeyCode  = "code"
)

// Queries is the read surface of gameserver.Service.
type Queries interface {
	GetBattleState(ctx context.Context, battleID string) (*combat.Battle, error)
	GetActiveBattle(ctx context.Context, playerID string) (*combat.Battle, error)
	GetCombatHistory(ctx context.Context, playerID string, limit, skip int) ([]*combat.Battle, error)
	GetCombatStats(ctx context.Context, playerID string) (gameserver.CombatStats, error)
	ListChallenges(ctx context.Context, playerID string) ([]*challenge.Challenge, error)
	GetQueueStatus(ctx context.Context, playerID string) (matchmaking.Status, error)
	Leaderboard(ctx context.Context, limit int) ([]rating.Stats, error)
}

// HealthFunc reports whether the backing store is reachable.
type HealthFunc func(ctx context.Context) error

// Handler serves the routes registered by NewRouter.
type Handler struct {
	q      Queries
	health HealthFunc
	logger *zap.Logger
}

// NewRouter builds the gin engine. health may be nil.
//
// Precondition: q and logger must be non-nil.
func NewRouter(q Queries, health HealthFunc, logger *zap.Logger) *gin.Engine {
	h := &Handler{q: q, health: health, logger: logger}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))
	router.GET(RouteHealth, h.Health)

	api := router.Group(RouteAPIPrefix)
	{
		api.GET(RouteBattle, h.GetBattle)
		api.GET(RouteActiveBattle, h.GetActiveBattle)
		api.GET(RouteHistory, h.GetHistory)
		api.GET(RouteStats, h.GetStats)
		api.GET(RouteChallenges, h.ListChallenges)
		api.GET(RouteQueue, h.GetQueueStatus)
		api.GET(RouteLeaderboard, h.ListLeaderboard)
	}
	return router
}

// NewServer wraps router in an http.Server bound to addr.
func NewServer(addr string, router http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

// Health returns 200 when the store answers and 503 otherwise.
func (h *Handler) Health(c *gin.Context) {
	if h.health != nil {
		if err := h.health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", jsonKeyError: err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetBattle returns any battle by id.
func (h *Handler) GetBattle(c *gin.Context) {
	b, err := h.q.GetBattleState(c.Request.Context(), c.Param("id"))
	h.respond(c, b, err)
}

// GetActiveBattle returns the player's active battle.
func (h *Handler) GetActiveBattle(c *gin.Context) {
	b, err := h.q.GetActiveBattle(c.Request.Context(), c.Param("id"))
	h.respond(c, b, err)
}

// GetHistory returns a page of finished battles; ?limit=N&skip=M.
func (h *Handler) GetHistory(c *gin.Context) {
	limit := queryInt(c, "limit", gameserver.DefaultHistoryLimit)
	skip := queryInt(c, "skip", 0)
	out, err := h.q.GetCombatHistory(c.Request.Context(), c.Param("id"), limit, skip)
	if out == nil {
		out = []*combat.Battle{}
	}
	h.respond(c, out, err)
}

// GetStats returns the player's combat record.
func (h *Handler) GetStats(c *gin.Context) {
	st, err := h.q.GetCombatStats(c.Request.Context(), c.Param("id"))
	h.respond(c, st, err)
}

// ListChallenges returns the player's pending challenges.
func (h *Handler) ListChallenges(c *gin.Context) {
	out, err := h.q.ListChallenges(c.Request.Context(), c.Param("id"))
	if out == nil {
		out = []*challenge.Challenge{}
	}
	h.respond(c, out, err)
}

// GetQueueStatus returns the player's queue standing.
func (h *Handler) GetQueueStatus(c *gin.Context) {
	st, err := h.q.GetQueueStatus(c.Request.Context(), c.Param("id"))
	h.respond(c, st, err)
}

// ListLeaderboard returns the top records by rating; ?limit=N.
func (h *Handler) ListLeaderboard(c *gin.Context) {
	out, err := h.q.Leaderboard(c.Request.Context(), queryInt(c, "limit", 10))
	if out == nil {
		out = []rating.Stats{}
	}
	h.respond(c, out, err)
}

func (h *Handler) respond(c *gin.Context, v any, err error) {
	if err != nil {
		st := StatusFor(err)
		if st == http.StatusInternalServerError {
			h.logger.Error("http handler failed", zap.String("path", c.FullPath()), zap.Error(err))
		}
		c.JSON(st, gin.H{jsonKeyError: err.Error(), jsonKeyCode: pvperr.CodeOf(err)})
		return
	}
	c.JSON(http.StatusOK, v)
}

// StatusFor maps a pvperr category onto an HTTP status.
func StatusFor(err error) int {
	switch pvperr.CategoryOf(err) {
	case pvperr.CategoryValidation:
		return http.StatusBadRequest
	case pvperr.CategoryConflict:
		return http.StatusConflict
	case pvperr.CategoryNotFound:
		return http.StatusNotFound
	case pvperr.CategoryExhausted:
		return http.StatusTooManyRequests
	case pvperr.CategoryForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func queryInt(c *gin.Context, key string, def int) int {
	if s := c.Query(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}
