package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/pvp/internal/game/challenge"
	"github.com/cory-johannsen/pvp/internal/game/combat"
	"github.com/cory-johannsen/pvp/internal/game/pvperr"
)

const challengeColumns = `id, challenger_id, challenger_name, target_id, target_name,
	combat_type, status, message, created_at, expires_at, COALESCE(battle_id, '')`

// ChallengeRepository provides challenge persistence operations.
type ChallengeRepository struct {
	db *pgxpool.Pool
}

// NewChallengeRepository creates a ChallengeRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewChallengeRepository(db *pgxpool.Pool) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

// SaveChallenge inserts c or overwrites its mutable columns.
func (r *ChallengeRepository) SaveChallenge(ctx context.Context, c *challenge.Challenge) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO challenges (id, challenger_id, challenger_name, target_id, target_name,
		                         combat_type, status, message, created_at, expires_at, battle_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''))
		 ON CONFLICT (id) DO UPDATE SET
		     status    = EXCLUDED.status,
		     battle_id = EXCLUDED.battle_id`,
		c.ID, c.ChallengerID, c.ChallengerName, c.TargetID, c.TargetName,
		string(c.CombatType), string(c.Status), c.Message, c.CreatedAt, c.ExpiresAt, c.BattleID,
	)
	if err != nil {
		return fmt.Errorf("upserting challenge %s: %w", c.ID, err)
	}
	return nil
}

// GetChallenge loads a challenge by id.
//
// Postcondition: Returns an error wrapping pvperr.ErrChallengeNotFound for unknown ids.
func (r *ChallengeRepository) GetChallenge(ctx context.Context, id string) (*challenge.Challenge, error) {
	c, err := scanChallenge(r.db.QueryRow(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", pvperr.ErrChallengeNotFound, id)
		}
		return nil, fmt.Errorf("querying challenge %s: %w", id, err)
	}
	return c, nil
}

// ListPendingChallenges returns pending challenges sent or received by playerID, oldest first.
func (r *ChallengeRepository) ListPendingChallenges(ctx context.Context, playerID string) ([]*challenge.Challenge, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+challengeColumns+` FROM challenges
		 WHERE status = 'pending' AND (challenger_id = $1 OR target_id = $1)
		 ORDER BY created_at, id`,
		playerID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying challenges for %s: %w", playerID, err)
	}
	defer rows.Close()

	var out []*challenge.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning challenge: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanChallenge(row pgx.Row) (*challenge.Challenge, error) {
	var c challenge.Challenge
	var combatType, status string
	err := row.Scan(&c.ID, &c.ChallengerID, &c.ChallengerName, &c.TargetID, &c.TargetName,
		&combatType, &status, &c.Message, &c.CreatedAt, &c.ExpiresAt, &c.BattleID)
	if err != nil {
		return nil, err
	}
	c.CombatType = combat.BattleType(combatType)
	c.Status = challenge.Status(status)
	return &c, nil
}
