// Package ratio implements the collateralization ratio math for the
// synthetic asset protocol.
//
// A position's health is the value of posted collateral divided by the value
// of outstanding synthetic debt, expressed in basis points (15000 = 150.00%).
// Division rounds down: flooring is conservative because it never overstates
// a position's health.
//
// A position with zero debt has no meaningful ratio. Rather than a
// max-integer sentinel that could leak into arithmetic, the result is a
// tagged value: either Finite(bps) or Infinite. Callers must branch on
// IsInfinite before doing numeric work.
//
// All quantities are raw fixed-point integers with explicit decimals —
// never float64 for money. The math here is pure: no state, no side effects.
package ratio

import (
	"math/big"

	"github.com/etfinity/synthetic-engine/internal/model"
)

// scale converts a value ratio into basis points: 1.5 → 15000.
var scale = big.NewInt(10_000)

// Ratio is a collateralization ratio in basis points, or Infinite for
// debt-free positions.
type Ratio struct {
	finite bool
	bps    *big.Int
}

// Finite constructs a numeric ratio from basis points.
func Finite(bps *big.Int) Ratio {
	return Ratio{finite: true, bps: new(big.Int).Set(bps)}
}

// Infinite is the ratio of a position with no debt: unconditionally healthy,
// never comparable as a number.
func Infinite() Ratio {
	return Ratio{}
}

// IsInfinite reports whether the position carries no debt.
func (r Ratio) IsInfinite() bool { return !r.finite }

// Bps returns the ratio in basis points. ok is false for Infinite; the
// returned value must not be used in that case.
func (r Ratio) Bps() (bps *big.Int, ok bool) {
	if !r.finite {
		return nil, false
	}
	return new(big.Int).Set(r.bps), true
}

// Below reports whether the ratio is strictly under the given basis-point
// threshold. Infinite is never below any threshold.
func (r Ratio) Below(thresholdBps int64) bool {
	if !r.finite {
		return false
	}
	return r.bps.Cmp(big.NewInt(thresholdBps)) < 0
}

// String renders "15000" or "infinite". Display only.
func (r Ratio) String() string {
	if !r.finite {
		return "infinite"
	}
	return r.bps.String()
}

// Current computes the position's collateralization ratio at the supplied
// prices:
//
//	ratio = floor( collateralValue * 10000 / debtValue )
//
// where each side's value is amount × price adjusted for the token's and the
// feed's decimals. The two power-of-ten adjustments are folded into the
// numerator and denominator so the only division is the final floor, with
// no intermediate precision loss.
func Current(pos *model.Position, collQuote, synQuote model.PriceQuote, collDecimals, synDecimals uint8) Ratio {
	if pos == nil || pos.DebtAmount == nil || pos.DebtAmount.Sign() == 0 {
		return Infinite()
	}
	collateral := pos.CollateralAmount
	if collateral == nil {
		collateral = big.NewInt(0)
	}

	// collateralValue scaled by 10^(synDecimals+synQuote.Decimals):
	num := new(big.Int).Mul(collateral, collQuote.Price)
	num.Mul(num, pow10(int(synDecimals)+int(synQuote.Decimals)))
	num.Mul(num, scale)

	// debtValue scaled by 10^(collDecimals+collQuote.Decimals):
	den := new(big.Int).Mul(pos.DebtAmount, synQuote.Price)
	den.Mul(den, pow10(int(collDecimals)+int(collQuote.Decimals)))

	if den.Sign() == 0 {
		// Degenerate prices are rejected upstream by the oracle adapter;
		// treat as zero health rather than dividing by zero.
		return Finite(big.NewInt(0))
	}
	return Finite(num.Quo(num, den))
}

// IsUndercollateralized reports whether the position's ratio at the supplied
// prices is strictly below minCR (basis points). Debt-free positions are
// never undercollateralized.
func IsUndercollateralized(pos *model.Position, collQuote, synQuote model.PriceQuote, collDecimals, synDecimals uint8, minCRBps int64) bool {
	return Current(pos, collQuote, synQuote, collDecimals, synDecimals).Below(minCRBps)
}

// pow10 returns 10^n as a big integer. n is small (sum of two decimals
// counts), so a loop is fine.
func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
