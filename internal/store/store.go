// Package store defines the persistence interface for the protocol ledger.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing and no-DB development).
package store

import (
	"context"
	"errors"
	"math/big"

	"github.com/etfinity/synthetic-engine/internal/model"
)

// ErrNotFound is returned for lookups of records that do not exist. Position
// reads never return it; positions are implicitly zero-valued.
var ErrNotFound = errors.New("store: not found")

// Transition is one atomic ledger mutation: the positions it rewrites, the
// optional pool-state rewrite, optional per-user LP share updates, and the
// audit event recording it. Implementations commit everything or nothing.
type Transition struct {
	Positions  []*model.Position
	Pool       *model.PoolState
	PoolShares map[string]*big.Int
	Event      model.Event
}

// Store is the ledger persistence interface.
type Store interface {
	// GetPosition returns the user's position, zero-valued if the user has
	// never interacted. Implementations return a copy the caller may mutate.
	GetPosition(ctx context.Context, user string) (*model.Position, error)

	// TotalDebt returns the synthetic debt outstanding across all positions.
	TotalDebt(ctx context.Context) (*big.Int, error)

	// GetParameters returns the protocol risk parameters, or ErrNotFound
	// before genesis parameters are saved.
	GetParameters(ctx context.Context) (*model.ProtocolParameters, error)

	// SaveParameters persists the protocol risk parameters.
	SaveParameters(ctx context.Context, params *model.ProtocolParameters) error

	// GetPool returns the liquidity pool state, zero-valued when empty.
	GetPool(ctx context.Context) (*model.PoolState, error)

	// GetPoolShares returns the user's LP share balance, zero if none.
	GetPoolShares(ctx context.Context, user string) (*big.Int, error)

	// Apply commits one state transition atomically and appends its event.
	Apply(ctx context.Context, tx Transition) error

	// AppendEvent records an event with no state change (admin actions).
	AppendEvent(ctx context.Context, event model.Event) error

	// ListEvents returns events newest-first, optionally filtered by user;
	// limit <= 0 means no limit.
	ListEvents(ctx context.Context, user string, limit int) ([]model.Event, error)
}
