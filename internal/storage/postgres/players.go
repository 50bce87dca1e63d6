package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/pvp/internal/game/pvperr"
	"github.com/cory-johannsen/pvp/internal/storage"
)

// PlayerRepository provides player attribute persistence.
type PlayerRepository struct {
	db *pgxpool.Pool
}

// NewPlayerRepository creates a PlayerRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewPlayerRepository(db *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// UpsertPlayer creates p or replaces its name and traits.
//
// Precondition: p.ID and p.Name must be non-empty.
// Postcondition: Returns the stored player with timestamps set.
func (r *PlayerRepository) UpsertPlayer(ctx context.Context, p storage.Player) (storage.Player, error) {
	traits := p.Traits
	if traits == nil {
		traits = map[string]float64{}
	}
	data, err := json.Marshal(traits)
	if err != nil {
		return storage.Player{}, fmt.Errorf("encoding traits: %w", err)
	}
	out, err := scanPlayer(r.db.QueryRow(ctx,
		`INSERT INTO players (id, display_name, traits)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET
		     display_name = EXCLUDED.display_name,
		     traits       = EXCLUDED.traits,
		     updated_at   = NOW()
		 RETURNING id, display_name, traits, created_at, updated_at`,
		p.ID, p.Name, data,
	))
	if err != nil {
		return storage.Player{}, fmt.Errorf("upserting player %s: %w", p.ID, err)
	}
	return out, nil
}

// GetPlayer loads a player by id.
//
// Postcondition: Returns an error wrapping pvperr.ErrPlayerNotFound for unknown ids.
func (r *PlayerRepository) GetPlayer(ctx context.Context, id string) (storage.Player, error) {
	p, err := scanPlayer(r.db.QueryRow(ctx,
		`SELECT id, display_name, traits, created_at, updated_at FROM players WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.Player{}, fmt.Errorf("%w: %s", pvperr.ErrPlayerNotFound, id)
		}
		return storage.Player{}, fmt.Errorf("querying player %s: %w", id, err)
	}
	return p, nil
}

// Traits returns the player's raw trait map.
func (r *PlayerRepository) Traits(ctx context.Context, id string) (map[string]float64, error) {
	p, err := r.GetPlayer(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.Traits, nil
}

// DisplayName returns the player's display name.
func (r *PlayerRepository) DisplayName(ctx context.Context, id string) (string, error) {
	var name string
	err := r.db.QueryRow(ctx, `SELECT display_name FROM players WHERE id = $1`, id).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("%w: %s", pvperr.ErrPlayerNotFound, id)
		}
		return "", fmt.Errorf("querying player %s: %w", id, err)
	}
	return name, nil
}

func scanPlayer(row pgx.Row) (storage.Player, error) {
	var p storage.Player
	var traits []byte
	if err := row.Scan(&p.ID, &p.Name, &traits, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return storage.Player{}, err
	}
	if err := json.Unmarshal(traits, &p.Traits); err != nil {
		return storage.Player{}, fmt.Errorf("decoding traits of %s: %w", p.ID, err)
	}
	return p, nil
}
