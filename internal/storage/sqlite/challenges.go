package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cory-johannsen/pvp/internal/game/challenge"
	"github.com/cory-johannsen/pvp/internal/game/combat"
	"github.com/cory-johannsen/pvp/internal/game/pvperr"
)

const challengeColumns = `id, challenger_id, challenger_name, target_id, target_name,
	combat_type, status, message, created_at, expires_at, battle_id`

// SaveChallenge inserts c or overwrites its mutable columns.
func (s *Store) SaveChallenge(ctx context.Context, c *challenge.Challenge) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO challenges (`+challengeColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		     status    = excluded.status,
		     battle_id = excluded.battle_id`,
		c.ID, c.ChallengerID, c.ChallengerName, c.TargetID, c.TargetName,
		string(c.CombatType), string(c.Status), c.Message,
		toMillis(c.CreatedAt), toMillis(c.ExpiresAt), c.BattleID,
	)
	if err != nil {
		return fmt.Errorf("upsert challenge %s: %w", c.ID, err)
	}
	return nil
}

// GetChallenge loads a challenge by id.
//
// Postcondition: Returns an error wrapping pvperr.ErrChallengeNotFound for unknown ids.
func (s *Store) GetChallenge(ctx context.Context, id string) (*challenge.Challenge, error) {
	c, err := scanChallenge(s.sqlDB.QueryRowContext(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", pvperr.ErrChallengeNotFound, id)
		}
		return nil, fmt.Errorf("get challenge %s: %w", id, err)
	}
	return c, nil
}

// ListPendingChallenges returns pending challenges sent or received by playerID, oldest first.
func (s *Store) ListPendingChallenges(ctx context.Context, playerID string) ([]*challenge.Challenge, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+challengeColumns+` FROM challenges
		 WHERE status = 'pending' AND (challenger_id = ?1 OR target_id = ?1)
		 ORDER BY created_at, id`,
		playerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list challenges for %s: %w", playerID, err)
	}
	defer rows.Close()

	var out []*challenge.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan challenge: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChallenge(row rowScanner) (*challenge.Challenge, error) {
	var (
		c                    challenge.Challenge
		combatType, status   string
		createdAt, expiresAt int64
	)
	err := row.Scan(&c.ID, &c.ChallengerID, &c.ChallengerName, &c.TargetID, &c.TargetName,
		&combatType, &status, &c.Message, &createdAt, &expiresAt, &c.BattleID)
	if err != nil {
		return nil, err
	}
	c.CombatType = combat.BattleType(combatType)
	c.Status = challenge.Status(status)
	c.CreatedAt = fromMillis(createdAt)
	c.ExpiresAt = fromMillis(expiresAt)
	return &c, nil
}
