package store

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/etfinity/synthetic-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache for the hot read paths: positions and protocol parameters. Writes go
// to the primary store and invalidate the affected keys; reads check Redis
// first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{primary: primary, rdb: rdb, ttl: ttl}
}

// --- Read-through ---

func (s *CachedStore) GetPosition(ctx context.Context, user string) (*model.Position, error) {
	data, err := s.rdb.Get(ctx, positionKey(user)).Bytes()
	if err == nil {
		var p model.Position
		if json.Unmarshal(data, &p) == nil && p.CollateralAmount != nil && p.DebtAmount != nil {
			return &p, nil
		}
	}

	p, err := s.primary.GetPosition(ctx, user)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(p); err == nil {
		s.rdb.Set(ctx, positionKey(user), data, s.ttl)
	}
	return p, nil
}

func (s *CachedStore) GetParameters(ctx context.Context) (*model.ProtocolParameters, error) {
	data, err := s.rdb.Get(ctx, paramsKey).Bytes()
	if err == nil {
		var params model.ProtocolParameters
		if json.Unmarshal(data, &params) == nil {
			return &params, nil
		}
	}

	params, err := s.primary.GetParameters(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(params); err == nil {
		s.rdb.Set(ctx, paramsKey, data, s.ttl)
	}
	return params, nil
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) SaveParameters(ctx context.Context, params *model.ProtocolParameters) error {
	if err := s.primary.SaveParameters(ctx, params); err != nil {
		return err
	}
	s.rdb.Del(ctx, paramsKey)
	return nil
}

func (s *CachedStore) Apply(ctx context.Context, tx Transition) error {
	if err := s.primary.Apply(ctx, tx); err != nil {
		return err
	}
	// Invalidate every touched position; next read re-populates.
	keys := make([]string, 0, len(tx.Positions))
	for _, p := range tx.Positions {
		keys = append(keys, positionKey(p.User))
	}
	if len(keys) > 0 {
		s.rdb.Del(ctx, keys...)
	}
	return nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) TotalDebt(ctx context.Context) (*big.Int, error) {
	return s.primary.TotalDebt(ctx)
}

func (s *CachedStore) GetPool(ctx context.Context) (*model.PoolState, error) {
	return s.primary.GetPool(ctx)
}

func (s *CachedStore) GetPoolShares(ctx context.Context, user string) (*big.Int, error) {
	return s.primary.GetPoolShares(ctx, user)
}

func (s *CachedStore) AppendEvent(ctx context.Context, event model.Event) error {
	return s.primary.AppendEvent(ctx, event)
}

func (s *CachedStore) ListEvents(ctx context.Context, user string, limit int) ([]model.Event, error) {
	return s.primary.ListEvents(ctx, user, limit)
}

// --- Cache keys ---

const paramsKey = "protocol:parameters"

func positionKey(user string) string { return fmt.Sprintf("position:%s", user) }
