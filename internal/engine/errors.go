package engine

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrInvalidAmount is returned when an input amount is zero or negative
	// after decimal normalization. Rejected before any state read.
	ErrInvalidAmount = errors.New("engine: amount must be positive")

	// ErrInvalidAddress is returned for an empty user account identifier.
	ErrInvalidAddress = errors.New("engine: account must not be empty")

	// ErrCollateralCalculation is returned when price data is so degenerate
	// the computed output is zero or the division is undefined.
	ErrCollateralCalculation = errors.New("engine: collateral calculation produced no output")

	// ErrInvalidCollateralRatio is returned when a parameter update would
	// violate minCR < targetCR (or set a non-positive ratio).
	ErrInvalidCollateralRatio = errors.New("engine: invalid collateralization ratios")

	// ErrInvalidBonus is returned for a negative liquidation bonus.
	ErrInvalidBonus = errors.New("engine: invalid liquidation bonus")

	// ErrLiquidationAmountTooLarge is returned when the repay amount
	// exceeds the borrower's outstanding debt.
	ErrLiquidationAmountTooLarge = errors.New("engine: repay amount exceeds borrower debt")
)

// InsufficientFundsError is an economic rejection carrying the numeric
// context: what was short, how much exists, how much the operation needed.
type InsufficientFundsError struct {
	What      string
	Available *big.Int
	Required  *big.Int
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("engine: insufficient %s: have %s, need %s", e.What, e.Available, e.Required)
}

// LiquidationNotAllowedError is returned when the borrower's position is
// healthy at call time.
type LiquidationNotAllowedError struct {
	Borrower    string
	Reason      string
	CurrentBps  *big.Int // nil when the ratio is infinite
	RequiredBps int64
}

func (e *LiquidationNotAllowedError) Error() string {
	current := "infinite"
	if e.CurrentBps != nil {
		current = e.CurrentBps.String()
	}
	return fmt.Sprintf("engine: liquidation of %s not allowed: %s (ratio %s, liquidation below %d)",
		e.Borrower, e.Reason, current, e.RequiredBps)
}
