package store

import (
	"context"
	"math/big"
	"sync"

	"github.com/etfinity/synthetic-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing and
// development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu        sync.RWMutex
	positions map[string]*model.Position
	shares    map[string]*big.Int
	pool      *model.PoolState
	params    *model.ProtocolParameters
	events    []model.Event
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		positions: make(map[string]*model.Position),
		shares:    make(map[string]*big.Int),
		pool:      model.NewPoolState(),
	}
}

func (s *MemoryStore) GetPosition(_ context.Context, user string) (*model.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.positions[user]; ok {
		return p.Clone(), nil
	}
	return model.NewPosition(user), nil
}

func (s *MemoryStore) TotalDebt(_ context.Context) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := big.NewInt(0)
	for _, p := range s.positions {
		if p.DebtAmount != nil {
			total.Add(total, p.DebtAmount)
		}
	}
	return total, nil
}

func (s *MemoryStore) GetParameters(_ context.Context) (*model.ProtocolParameters, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.params == nil {
		return nil, ErrNotFound
	}
	cp := *s.params
	return &cp, nil
}

func (s *MemoryStore) SaveParameters(_ context.Context, params *model.ProtocolParameters) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *params
	s.params = &cp
	return nil
}

func (s *MemoryStore) GetPool(_ context.Context) (*model.PoolState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pool.Clone(), nil
}

func (s *MemoryStore) GetPoolShares(_ context.Context, user string) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sh, ok := s.shares[user]; ok {
		return new(big.Int).Set(sh), nil
	}
	return big.NewInt(0), nil
}

func (s *MemoryStore) Apply(_ context.Context, tx Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range tx.Positions {
		s.positions[p.User] = p.Clone()
	}
	if tx.Pool != nil {
		s.pool = tx.Pool.Clone()
	}
	for user, sh := range tx.PoolShares {
		s.shares[user] = new(big.Int).Set(sh)
	}
	s.events = append(s.events, tx.Event)
	return nil
}

func (s *MemoryStore) AppendEvent(_ context.Context, event model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, event)
	return nil
}

func (s *MemoryStore) ListEvents(_ context.Context, user string, limit int) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Event
	for i := len(s.events) - 1; i >= 0; i-- {
		e := s.events[i]
		if user != "" && e.User != user {
			continue
		}
		result = append(result, e)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}
