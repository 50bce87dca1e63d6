package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/pvp/internal/game/combat"
	"github.com/cory-johannsen/pvp/internal/game/pvperr"
)

// BattleRepository persists battles as JSONB documents. The active_battles
// table holds one row per player in an active battle.
type BattleRepository struct {
	db *pgxpool.Pool
}

// NewBattleRepository creates a BattleRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewBattleRepository(db *pgxpool.Pool) *BattleRepository {
	return &BattleRepository{db: db}
}

// SaveBattle upserts b and maintains the active-player index in one transaction.
//
// Postcondition: Returns pvperr.ErrAlreadyInCombat, and writes nothing, when a
// player of an active b is already indexed under another battle.
func (r *BattleRepository) SaveBattle(ctx context.Context, b *combat.Battle) error {
	state, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encoding battle %s: %w", b.ID, err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO battles (id, battle_type, ranked, status, player_ids, state, started_at, ended_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		 ON CONFLICT (id) DO UPDATE SET
		     status     = EXCLUDED.status,
		     player_ids = EXCLUDED.player_ids,
		     state      = EXCLUDED.state,
		     ended_at   = EXCLUDED.ended_at,
		     updated_at = NOW()`,
		b.ID, string(b.Type), b.Ranked, string(b.Status), b.PlayerIDs(), state, b.StartedAt, b.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting battle %s: %w", b.ID, err)
	}

	if b.Status == combat.StatusActive {
		for _, pid := range b.PlayerIDs() {
			tag, err := tx.Exec(ctx,
				`INSERT INTO active_battles (player_id, battle_id) VALUES ($1, $2)
				 ON CONFLICT (player_id) DO UPDATE SET battle_id = EXCLUDED.battle_id
				 WHERE active_battles.battle_id = EXCLUDED.battle_id`,
				pid, b.ID,
			)
			if err != nil {
				return fmt.Errorf("indexing active player %s: %w", pid, err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("%w: %s", pvperr.ErrAlreadyInCombat, pid)
			}
		}
	} else {
		if _, err := tx.Exec(ctx, `DELETE FROM active_battles WHERE battle_id = $1`, b.ID); err != nil {
			return fmt.Errorf("clearing active players of %s: %w", b.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing battle %s: %w", b.ID, err)
	}
	return nil
}

// GetBattle loads the battle with the given id.
//
// Postcondition: Returns an error wrapping pvperr.ErrBattleNotFound for unknown ids.
func (r *BattleRepository) GetBattle(ctx context.Context, id string) (*combat.Battle, error) {
	var state []byte
	err := r.db.QueryRow(ctx, `SELECT state FROM battles WHERE id = $1`, id).Scan(&state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", pvperr.ErrBattleNotFound, id)
		}
		return nil, fmt.Errorf("querying battle %s: %w", id, err)
	}
	return decodeJSON[combat.Battle](state)
}

// FindActiveBattleForPlayer returns playerID's active battle, or (nil, nil).
func (r *BattleRepository) FindActiveBattleForPlayer(ctx context.Context, playerID string) (*combat.Battle, error) {
	var state []byte
	err := r.db.QueryRow(ctx,
		`SELECT b.state FROM active_battles a
		 JOIN battles b ON b.id = a.battle_id
		 WHERE a.player_id = $1`,
		playerID,
	).Scan(&state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying active battle for %s: %w", playerID, err)
	}
	return decodeJSON[combat.Battle](state)
}

// ListActiveBattles returns every active battle, oldest first.
func (r *BattleRepository) ListActiveBattles(ctx context.Context) ([]*combat.Battle, error) {
	return r.queryBattles(ctx,
		`SELECT state FROM battles WHERE status = 'active' ORDER BY started_at`)
}

// ListBattlesForPlayer returns playerID's finished battles, newest first.
//
// Precondition: limit > 0; skip >= 0.
func (r *BattleRepository) ListBattlesForPlayer(ctx context.Context, playerID string, limit, skip int) ([]*combat.Battle, error) {
	return r.queryBattles(ctx,
		`SELECT state FROM battles
		 WHERE $1 = ANY (player_ids) AND status <> 'active'
		 ORDER BY started_at DESC, id
		 LIMIT $2 OFFSET $3`,
		playerID, limit, skip,
	)
}

func (r *BattleRepository) queryBattles(ctx context.Context, sql string, args ...any) ([]*combat.Battle, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("querying battles: %w", err)
	}
	states, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, fmt.Errorf("scanning battles: %w", err)
	}
	out := make([]*combat.Battle, 0, len(states))
	for _, s := range states {
		b, err := decodeJSON[combat.Battle](s)
		if err != nil {
			return nil, fmt.Errorf("decoding battle: %w", err)
		}
		out = append(out, b)
	}
	return out, nil
}
