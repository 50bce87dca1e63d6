package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cory-johannsen/pvp/internal/game/pvperr"
	"github.com/cory-johannsen/pvp/internal/storage"
)

const playerColumns = `id, display_name, traits, created_at, updated_at`

// UpsertPlayer creates p or replaces its name and traits.
//
// Postcondition: Returns the stored player with timestamps set.
func (s *Store) UpsertPlayer(ctx context.Context, p storage.Player) (storage.Player, error) {
	traits := p.Traits
	if traits == nil {
		traits = map[string]float64{}
	}
	data, err := json.Marshal(traits)
	if err != nil {
		return storage.Player{}, fmt.Errorf("encode traits: %w", err)
	}
	now := toMillis(s.now())
	out, err := scanPlayer(s.sqlDB.QueryRowContext(ctx,
		`INSERT INTO players (`+playerColumns+`) VALUES (?1, ?2, ?3, ?4, ?4)
		 ON CONFLICT (id) DO UPDATE SET
		     display_name = excluded.display_name,
		     traits       = excluded.traits,
		     updated_at   = excluded.updated_at
		 RETURNING `+playerColumns,
		p.ID, p.Name, string(data), now,
	))
	if err != nil {
		return storage.Player{}, fmt.Errorf("upsert player %s: %w", p.ID, err)
	}
	return out, nil
}

// GetPlayer loads a player by id.
//
// Postcondition: Returns an error wrapping pvperr.ErrPlayerNotFound for unknown ids.
func (s *Store) GetPlayer(ctx context.Context, id string) (storage.Player, error) {
	p, err := scanPlayer(s.sqlDB.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Player{}, fmt.Errorf("%w: %s", pvperr.ErrPlayerNotFound, id)
		}
		return storage.Player{}, fmt.Errorf("get player %s: %w", id, err)
	}
	return p, nil
}

// Traits returns the player's raw trait map.
func (s *Store) Traits(ctx context.Context, id string) (map[string]float64, error) {
	p, err := s.GetPlayer(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.Traits, nil
}

// DisplayName returns the player's display name.
func (s *Store) DisplayName(ctx context.Context, id string) (string, error) {
	p, err := s.GetPlayer(ctx, id)
	if err != nil {
		return "", err
	}
	return p.Name, nil
}

func scanPlayer(row rowScanner) (storage.Player, error) {
	var (
		p                    storage.Player
		traits               string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&p.ID, &p.Name, &traits, &createdAt, &updatedAt); err != nil {
		return storage.Player{}, err
	}
	if err := json.Unmarshal([]byte(traits), &p.Traits); err != nil {
		return storage.Player{}, fmt.Errorf("decode traits of %s: %w", p.ID, err)
	}
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return p, nil
}
