package postgres

import (
	"github.com/cory-johannsen/pvp/internal/storage"
)

// Store bundles the repositories behind one storage.Store.
type Store struct {
	*BattleRepository
	*ChallengeRepository
	*StatsRepository
	*PlayerRepository
	pool *Pool
}

var _ storage.Store = (*Store)(nil)

// NewStore creates a Store over pool. Closing the Store closes the pool.
//
// Precondition: pool must be connected.
func NewStore(pool *Pool) *Store {
	db := pool.DB()
	return &Store{
		BattleRepository:    NewBattleRepository(db),
		ChallengeRepository: NewChallengeRepository(db),
		StatsRepository:     NewStatsRepository(db),
		PlayerRepository:    NewPlayerRepository(db),
		pool:                pool,
	}
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
