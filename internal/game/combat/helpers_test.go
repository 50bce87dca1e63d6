package combat_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/pvp/internal/game/combat"
	"github.com/cory-johannsen/pvp/internal/game/dice"
	"github.com/cory-johannsen/pvp/internal/game/effect"
	"github.com/cory-johannsen/pvp/internal/game/pvperr"
	"github.com/cory-johannsen/pvp/internal/game/stats"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var errStoreDown = errors.New("store unavailable")

// memStore keeps battles as JSON documents, the way the real stores do.
type memStore struct {
	mu       sync.Mutex
	battles  map[string][]byte
	failSave bool
	saves    int
}

func newMemStore() *memStore {
	return &memStore{battles: make(map[string][]byte)}
}

func (s *memStore) setFailSave(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSave = v
}

func (s *memStore) SaveBattle(_ context.Context, b *combat.Battle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return errStoreDown
	}
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	s.battles[b.ID] = data
	s.saves++
	return nil
}

func (s *memStore) GetBattle(_ context.Context, id string) (*combat.Battle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.battles[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", pvperr.ErrBattleNotFound, id)
	}
	var b combat.Battle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *memStore) all() []*combat.Battle {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*combat.Battle
	for _, data := range s.battles {
		var b combat.Battle
		if err := json.Unmarshal(data, &b); err == nil {
			out = append(out, &b)
		}
	}
	return out
}

func (s *memStore) FindActiveBattleForPlayer(_ context.Context, playerID string) (*combat.Battle, error) {
	for _, b := range s.all() {
		if b.Status == combat.StatusActive && b.IndexOf(playerID) >= 0 {
			return b, nil
		}
	}
	return nil, nil
}

func (s *memStore) ListActiveBattles(_ context.Context) ([]*combat.Battle, error) {
	var out []*combat.Battle
	for _, b := range s.all() {
		if b.Status == combat.StatusActive {
			out = append(out, b)
		}
	}
	return out, nil
}

// gatedStore holds the first SaveBattle until release is closed.
type gatedStore struct {
	*memStore
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{memStore: newMemStore(), entered: make(chan struct{}), release: make(chan struct{})}
}

func (s *gatedStore) SaveBattle(ctx context.Context, b *combat.Battle) error {
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.entered)
		<-s.release
	}
	return s.memStore.SaveBattle(ctx, b)
}

type stubAbilities struct {
	outcomes map[string]combat.AbilityOutcome
	calls    []combat.AbilityRequest
}

func (s *stubAbilities) Resolve(_ context.Context, req combat.AbilityRequest) (combat.AbilityOutcome, error) {
	s.calls = append(s.calls, req)
	out, ok := s.outcomes[req.AbilityID]
	if !ok {
		return combat.AbilityOutcome{}, pvperr.ErrUnknownAbility
	}
	return out, nil
}

type recordingListener struct {
	mu      sync.Mutex
	started int
	updates [][]combat.LogEntry
	ended   []*combat.Battle
}

func (l *recordingListener) BattleStarted(*combat.Battle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.started++
}

func (l *recordingListener) BattleUpdated(_ *combat.Battle, entries []combat.LogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.updates = append(l.updates, entries)
}

func (l *recordingListener) BattleEnded(_ context.Context, b *combat.Battle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ended = append(l.ended, b)
}

func (l *recordingListener) endedCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ended)
}

func participant(id string, base stats.Base, abilities ...string) combat.Participant {
	return combat.Participant{PlayerID: id, Name: "Name " + id, Stats: base, Abilities: abilities}
}

// baseStats returns a Base with the given hp and attack, no evasion and a
// speed that keeps initiative ties on insertion order.
func baseStats(hp, attack, defense int) stats.Base {
	return stats.Base{HP: hp, MaxHP: hp, Attack: attack, Defense: defense, CritChance: 0.15, Speed: 10, Perception: 10}
}

func newTestEngine(t *testing.T, store *memStore, src dice.Source, cfg combat.Config, abilities combat.AbilityResolver) *combat.Engine {
	t.Helper()
	e := combat.NewEngine(cfg, store, src, effect.DefaultRegistry(), abilities, zap.NewNop())
	e.SetClock(func() time.Time { return fixedNow })
	return e
}
