package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cory-johannsen/pvp/internal/game/pvperr"
	"github.com/cory-johannsen/pvp/internal/game/rating"
)

const statsColumns = `player_id, pvp_rating, wins, losses, draws, flees, battles_played,
	win_streak, best_streak, damage_dealt, damage_taken, updated_at`

// GetStats loads playerID's record.
//
// Postcondition: Returns an error wrapping pvperr.ErrPlayerNotFound when no record exists.
func (s *Store) GetStats(ctx context.Context, playerID string) (rating.Stats, error) {
	st, err := scanStats(s.sqlDB.QueryRowContext(ctx, `SELECT `+statsColumns+` FROM combat_stats WHERE player_id = ?`, playerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rating.Stats{}, fmt.Errorf("%w: %s", pvperr.ErrPlayerNotFound, playerID)
		}
		return rating.Stats{}, fmt.Errorf("get stats for %s: %w", playerID, err)
	}
	return st, nil
}

// RecordOutcome applies d to playerID's record in one upsert, creating it at
// d.BaseRating if absent.
func (s *Store) RecordOutcome(ctx context.Context, playerID string, d rating.Delta) (rating.Stats, error) {
	win, loss, draw, flee := resultCounters(d.Result)
	st, err := scanStats(s.sqlDB.QueryRowContext(ctx,
		`INSERT INTO combat_stats (player_id, pvp_rating, wins, losses, draws, flees,
		                           battles_played, win_streak, best_streak,
		                           damage_dealt, damage_taken, updated_at)
		 VALUES (?1, ?2 + ?3, ?4, ?5, ?6, ?7, 1, ?4, ?4, ?8, ?9, ?10)
		 ON CONFLICT (player_id) DO UPDATE SET
		     pvp_rating     = combat_stats.pvp_rating + ?3,
		     wins           = combat_stats.wins + ?4,
		     losses         = combat_stats.losses + ?5,
		     draws          = combat_stats.draws + ?6,
		     flees          = combat_stats.flees + ?7,
		     battles_played = combat_stats.battles_played + 1,
		     win_streak     = CASE WHEN ?4 = 1 THEN combat_stats.win_streak + 1 ELSE 0 END,
		     best_streak    = MAX(combat_stats.best_streak, CASE WHEN ?4 = 1 THEN combat_stats.win_streak + 1 ELSE 0 END),
		     damage_dealt   = combat_stats.damage_dealt + ?8,
		     damage_taken   = combat_stats.damage_taken + ?9,
		     updated_at     = ?10
		 RETURNING `+statsColumns,
		playerID, d.BaseRating, d.RatingDelta, win, loss, draw, flee,
		int64(d.DamageDealt), int64(d.DamageTaken), toMillis(s.now()),
	))
	if err != nil {
		return rating.Stats{}, fmt.Errorf("record outcome for %s: %w", playerID, err)
	}
	return st, nil
}

// TopRatings returns the highest-rated records, best first.
func (s *Store) TopRatings(ctx context.Context, limit int) ([]rating.Stats, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+statsColumns+` FROM combat_stats ORDER BY pvp_rating DESC, player_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()
	var out []rating.Stats
	for rows.Next() {
		st, err := scanStats(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

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

func scanStats(row rowScanner) (rating.Stats, error) {
	var st rating.Stats
	var updatedAt int64
	err := row.Scan(&st.PlayerID, &st.Rating, &st.Wins, &st.Losses, &st.Draws, &st.Flees, &st.BattlesPlayed,
		&st.WinStreak, &st.BestStreak, &st.DamageDealt, &st.DamageTaken, &updatedAt)
	st.UpdatedAt = fromMillis(updatedAt)
	return st, err
}
