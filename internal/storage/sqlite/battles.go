package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cory-johannsen/pvp/internal/game/combat"
	"github.com/cory-johannsen/pvp/internal/game/pvperr"
)

// SaveBattle upserts b and maintains the active-player index in one transaction.
//
// Postcondition: Returns pvperr.ErrAlreadyInCombat, and writes nothing, when a
// player of an active b is already indexed under another battle.
func (s *Store) SaveBattle(ctx context.Context, b *combat.Battle) error {
	state, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode battle %s: %w", b.ID, err)
	}
	var endedAt sql.NullInt64
	if b.EndedAt != nil {
		endedAt = sql.NullInt64{Int64: toMillis(*b.EndedAt), Valid: true}
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO battles (id, battle_type, ranked, status, state, started_at, ended_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		     status     = excluded.status,
		     state      = excluded.state,
		     ended_at   = excluded.ended_at,
		     updated_at = excluded.updated_at`,
		b.ID, string(b.Type), b.Ranked, string(b.Status), string(state),
		toMillis(b.StartedAt), endedAt, toMillis(s.now()),
	)
	if err != nil {
		return fmt.Errorf("upsert battle %s: %w", b.ID, err)
	}

	for _, pid := range b.PlayerIDs() {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO battle_players (battle_id, player_id) VALUES (?, ?)`, b.ID, pid); err != nil {
			return fmt.Errorf("index battle player %s: %w", pid, err)
		}
	}

	if b.Status == combat.StatusActive {
		for _, pid := range b.PlayerIDs() {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO active_battles (player_id, battle_id) VALUES (?, ?)
				 ON CONFLICT (player_id) DO UPDATE SET battle_id = excluded.battle_id
				 WHERE active_battles.battle_id = excluded.battle_id`,
				pid, b.ID,
			)
			if err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("%w: %s", pvperr.ErrAlreadyInCombat, pid)
				}
				return fmt.Errorf("index active player %s: %w", pid, err)
			}
			if n, err := res.RowsAffected(); err == nil && n == 0 {
				return fmt.Errorf("%w: %s", pvperr.ErrAlreadyInCombat, pid)
			}
		}
	} else {
		if _, err := tx.ExecContext(ctx, `DELETE FROM active_battles WHERE battle_id = ?`, b.ID); err != nil {
			return fmt.Errorf("clear active players of %s: %w", b.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit battle %s: %w", b.ID, err)
	}
	return nil
}

// GetBattle loads the battle with the given id.
//
// Postcondition: Returns an error wrapping pvperr.ErrBattleNotFound for unknown ids.
func (s *Store) GetBattle(ctx context.Context, id string) (*combat.Battle, error) {
	var state string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT state FROM battles WHERE id = ?`, id).Scan(&state)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", pvperr.ErrBattleNotFound, id)
		}
		return nil, fmt.Errorf("get battle %s: %w", id, err)
	}
	return decodeJSON[combat.Battle](state)
}

// FindActiveBattleForPlayer returns playerID's active battle, or (nil, nil).
func (s *Store) FindActiveBattleForPlayer(ctx context.Context, playerID string) (*combat.Battle, error) {
	var state string
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT b.state FROM active_battles a
		 JOIN battles b ON b.id = a.battle_id
		 WHERE a.player_id = ?`,
		playerID,
	).Scan(&state)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active battle for %s: %w", playerID, err)
	}
	return decodeJSON[combat.Battle](state)
}

// ListActiveBattles returns every active battle, oldest first.
func (s *Store) ListActiveBattles(ctx context.Context) ([]*combat.Battle, error) {
	return s.queryBattles(ctx, `SELECT state FROM battles WHERE status = 'active' ORDER BY started_at, id`)
}

// ListBattlesForPlayer returns playerID's finished battles, newest first.
//
// Precondition: limit > 0; skip >= 0.
func (s *Store) ListBattlesForPlayer(ctx context.Context, playerID string, limit, skip int) ([]*combat.Battle, error) {
	return s.queryBattles(ctx,
		`SELECT b.state FROM battles b
		 JOIN battle_players p ON p.battle_id = b.id
		 WHERE p.player_id = ? AND b.status <> 'active'
		 ORDER BY b.started_at DESC, b.id
		 LIMIT ? OFFSET ?`,
		playerID, limit, skip,
	)
}

func (s *Store) queryBattles(ctx context.Context, query string, args ...any) ([]*combat.Battle, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query battles: %w", err)
	}
	defer rows.Close()

	var out []*combat.Battle
	for rows.Next() {
		var state string
		if err := rows.Scan(&state); err != nil {
			return nil, fmt.Errorf("scan battle: %w", err)
		}
		b, err := decodeJSON[combat.Battle](state)
		if err != nil {
			return nil, fmt.Errorf("decode battle: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
