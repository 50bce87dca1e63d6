package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/pvp/internal/game/pvperr"
	"github.com/cory-johannsen/pvp/internal/game/rating"
)

const statsColumns = `player_id, pvp_rating, wins, losses, draws, flees, battles_played,
	win_streak, best_streak, damage_dealt, damage_taken, updated_at`

// StatsRepository persists per-player combat records. Every mutation is a
// single atomic upsert with SQL increments.
type StatsRepository struct {
	db *pgxpool.Pool
}

// NewStatsRepository creates a StatsRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewStatsRepository(db *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{db: db}
}

// GetStats loads playerID's record.
//
// Postcondition: Returns an error wrapping pvperr.ErrPlayerNotFound when no record exists.
func (r *StatsRepository) GetStats(ctx context.Context, playerID string) (rating.Stats, error) {
	s, err := scanStats(r.db.QueryRow(ctx, `SELECT `+statsColumns+` FROM combat_stats WHERE player_id = $1`, playerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rating.Stats{}, fmt.Errorf("%w: %s", pvperr.ErrPlayerNotFound, playerID)
		}
		return rating.Stats{}, fmt.Errorf("querying stats for %s: %w", playerID, err)
	}
	return s, nil
}

// RecordOutcome applies d to playerID's record, creating it at d.BaseRating if absent.
//
// Postcondition: Returns the record as written.
func (r *StatsRepository) RecordOutcome(ctx context.Context, playerID string, d rating.Delta) (rating.Stats, error) {
	win, loss, draw, flee := resultCounters(d.Result)
	s, err := scanStats(r.db.QueryRow(ctx,
		`INSERT INTO combat_stats AS s (player_id, pvp_rating, wins, losses, draws, flees,
		                                battles_played, win_streak, best_streak,
		                                damage_dealt, damage_taken, updated_at)
		 VALUES ($1, $2::int + $3::int, $4::int, $5::int, $6::int, $7::int, 1, $4, $4, $8::bigint, $9::bigint, NOW())
		 ON CONFLICT (player_id) DO UPDATE SET
		     pvp_rating     = s.pvp_rating + $3,
		     wins           = s.wins + $4,
		     losses         = s.losses + $5,
		     draws          = s.draws + $6,
		     flees          = s.flees + $7,
		     battles_played = s.battles_played + 1,
		     win_streak     = CASE WHEN $4 = 1 THEN s.win_streak + 1 ELSE 0 END,
		     best_streak    = GREATEST(s.best_streak, CASE WHEN $4 = 1 THEN s.win_streak + 1 ELSE 0 END),
		     damage_dealt   = s.damage_dealt + $8,
		     damage_taken   = s.damage_taken + $9,
		     updated_at     = NOW()
		 RETURNING `+statsColumns,
		playerID, d.BaseRating, d.RatingDelta, win, loss, draw, flee,
		int64(d.DamageDealt), int64(d.DamageTaken),
	))
	if err != nil {
		return rating.Stats{}, fmt.Errorf("recording outcome for %s: %w", playerID, err)
	}
	return s, nil
}

// TopRatings returns the highest-rated records, best first.
//
// Precondition: limit > 0.
func (r *StatsRepository) TopRatings(ctx context.Context, limit int) ([]rating.Stats, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+statsColumns+` FROM combat_stats ORDER BY pvp_rating DESC, player_id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying leaderboard: %w", err)
	}
	defer rows.Close()
	var out []rating.Stats
	for rows.Next() {
		s, err := scanStats(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning stats: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// resultCounters maps a result onto the win, loss, draw and flee increments.
func resultCounters(r rating.Result) (win, loss, draw, flee int) {
	switch r {
	case rating.ResultWin:
		return 1, 0, 0, 0
	case rating.ResultLoss:
		return 0, 1, 0, 0
	case rating.ResultDraw:
		return 0, 0, 1, 0
	case rating.ResultFlee:
		// a flee is a loss that is also tallied on its own
		return 0, 1, 0, 1
	}
	return 0, 0, 0, 0
}

func scanStats(row pgx.Row) (rating.Stats, error) {
	var s rating.Stats
	err := row.Scan(&s.PlayerID, &s.Rating, &s.Wins, &s.Losses, &s.Draws, &s.Flees, &s.BattlesPlayed,
		&s.WinStreak, &s.BestStreak, &s.DamageDealt, &s.DamageTaken, &s.UpdatedAt)
	return s, err
}
