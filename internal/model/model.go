// Package model defines the core domain types shared across the synthetic
// asset engine. All monetary quantities are raw fixed-point integers in the
// owning token's native decimals — never float64 for money.
package model

import (
	"math/big"
	"time"
)

// Position is one user's collateral/debt pair. Both amounts are raw units:
// collateral in the collateral token's decimals, debt in the synthetic
// token's decimals. Positions are created implicitly on first interaction
// and persist at zero after a full unwind.
type Position struct {
	User             string    `json:"user"`
	CollateralAmount *big.Int  `json:"collateral_amount"`
	DebtAmount       *big.Int  `json:"debt_amount"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewPosition returns a zero-valued position for the given user.
func NewPosition(user string) *Position {
	return &Position{
		User:             user,
		CollateralAmount: big.NewInt(0),
		DebtAmount:       big.NewInt(0),
	}
}

// Clone returns a deep copy so callers can mutate freely before committing.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	cp := &Position{User: p.User, UpdatedAt: p.UpdatedAt}
	if p.CollateralAmount != nil {
		cp.CollateralAmount = new(big.Int).Set(p.CollateralAmount)
	} else {
		cp.CollateralAmount = big.NewInt(0)
	}
	if p.DebtAmount != nil {
		cp.DebtAmount = new(big.Int).Set(p.DebtAmount)
	} else {
		cp.DebtAmount = big.NewInt(0)
	}
	return cp
}

// PriceQuote is the normalized output of a price feed read. It is ephemeral:
// produced fresh on every oracle read and never stored or cached across
// operations.
type PriceQuote struct {
	Price      *big.Int  `json:"price"`
	Decimals   uint8     `json:"decimals"`
	ObservedAt time.Time `json:"observed_at"`
}

// ProtocolParameters are the global, admin-mutable risk settings.
// Ratios are integers scaled by 100 (15000 = 150.00%); the liquidation
// bonus is a plain percentage (10 = 10%).
type ProtocolParameters struct {
	TargetCollateralizationRatio int64 `json:"target_cr"`
	MinCollateralizationRatio    int64 `json:"min_cr"`
	LiquidationBonus             int64 `json:"liquidation_bonus"`
}

// PoolState is the aggregate bookkeeping for the liquidity pool: reserves in
// raw units plus total LP shares outstanding. Share accounting only; no
// swap pricing happens here.
type PoolState struct {
	SSPYReserve *big.Int `json:"sspy_reserve"`
	USDCReserve *big.Int `json:"usdc_reserve"`
	TotalShares *big.Int `json:"total_shares"`
}

// NewPoolState returns an empty pool.
func NewPoolState() *PoolState {
	return &PoolState{
		SSPYReserve: big.NewInt(0),
		USDCReserve: big.NewInt(0),
		TotalShares: big.NewInt(0),
	}
}

// Clone returns a deep copy of the pool state.
func (ps *PoolState) Clone() *PoolState {
	if ps == nil {
		return nil
	}
	cp := NewPoolState()
	if ps.SSPYReserve != nil {
		cp.SSPYReserve.Set(ps.SSPYReserve)
	}
	if ps.USDCReserve != nil {
		cp.USDCReserve.Set(ps.USDCReserve)
	}
	if ps.TotalShares != nil {
		cp.TotalShares.Set(ps.TotalShares)
	}
	return cp
}

// Event types recorded in the append-only log, one per successful state
// transition. Names follow the protocol's on-chain event vocabulary.
const (
	EventMinted           = "SPYMinted"
	EventRedeemed         = "SPYRedeemed"
	EventLiquidated       = "PositionLiquidated"
	EventLiquidityAdded   = "LiquidityAdded"
	EventLiquidityRemoved = "LiquidityRemoved"
	EventRatiosUpdated    = "CollateralizationRatioUpdated"
	EventBonusUpdated     = "LiquidationBonusUpdated"
	EventOracleUpdated    = "OracleAddressUpdated"
	EventPaused           = "Paused"
	EventUnpaused         = "Unpaused"
)

// Event is an immutable audit record. Once appended it is never modified or
// deleted. Amounts is a flat map of named raw quantities rendered as decimal
// strings so the log survives serialization without precision loss.
type Event struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	User      string            `json:"user"`
	Amounts   map[string]string `json:"amounts,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
