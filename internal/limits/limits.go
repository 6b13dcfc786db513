// Package limits enforces issuance ceilings on the synthetic debt the
// protocol will underwrite: a per-position cap and a global outstanding cap.
// Ceilings bound the blast radius of an oracle fault or a collateral
// depeg. Admission control on top of the ratio check, not a replacement
// for it.
package limits

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrUserCapExceeded is returned when a mint would push a single
	// position's debt beyond the per-user maximum.
	ErrUserCapExceeded = errors.New("limits: per-user debt ceiling exceeded")

	// ErrGlobalCapExceeded is returned when a mint would push total
	// outstanding synthetic debt beyond the global maximum.
	ErrGlobalCapExceeded = errors.New("limits: global debt ceiling exceeded")
)

// DebtLimiter checks mint admissions against debt ceilings. A nil cap (or
// zero) disables that ceiling. Amounts are raw synthetic units.
type DebtLimiter struct {
	// MaxPerUser is the maximum debt a single position may carry.
	MaxPerUser *big.Int

	// MaxTotal is the maximum synthetic debt outstanding protocol-wide.
	MaxTotal *big.Int
}

// NewDebtLimiter creates a limiter with the given ceilings.
func NewDebtLimiter(maxPerUser, maxTotal *big.Int) *DebtLimiter {
	return &DebtLimiter{MaxPerUser: maxPerUser, MaxTotal: maxTotal}
}

// CheckMint validates that adding mintAmount of debt to a position with
// currentDebt, given totalOutstanding across all positions, stays within the
// ceilings. Returns nil when admissible.
func (l *DebtLimiter) CheckMint(currentDebt, totalOutstanding, mintAmount *big.Int) error {
	if l == nil || mintAmount == nil || mintAmount.Sign() <= 0 {
		return nil
	}

	if enabled(l.MaxPerUser) {
		next := new(big.Int).Add(orZero(currentDebt), mintAmount)
		if next.Cmp(l.MaxPerUser) > 0 {
			return fmt.Errorf("%w: position debt would be %s, ceiling %s",
				ErrUserCapExceeded, next, l.MaxPerUser)
		}
	}

	if enabled(l.MaxTotal) {
		next := new(big.Int).Add(orZero(totalOutstanding), mintAmount)
		if next.Cmp(l.MaxTotal) > 0 {
			return fmt.Errorf("%w: outstanding debt would be %s, ceiling %s",
				ErrGlobalCapExceeded, next, l.MaxTotal)
		}
	}

	return nil
}

func enabled(cap *big.Int) bool {
	return cap != nil && cap.Sign() > 0
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
