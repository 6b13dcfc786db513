// Package asset holds the registry of tokens the protocol touches and the
// conversion between human-unit decimal amounts and raw fixed-point integer
// units. The core engine only ever sees raw units; shopspring/decimal is
// confined to this boundary so no rounding can leak into accounting.
package asset

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Well-known asset identifiers.
const (
	USDC = "USDC"
	SSPY = "sSPY"
)

var (
	ErrUnknownAsset   = errors.New("asset: unknown asset")
	ErrInvalidAmount  = errors.New("asset: invalid amount")
	ErrTooManyDigits  = errors.New("asset: amount has more fractional digits than the asset supports")
	ErrNegativeAmount = errors.New("asset: amount must not be negative")
)

// Asset describes one token: its symbol and native decimals.
type Asset struct {
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// Registry maps asset symbols to their definitions. Lookup is
// case-insensitive on the symbol.
type Registry struct {
	assets map[string]Asset
}

// NewRegistry builds a registry from the given assets.
func NewRegistry(assets ...Asset) *Registry {
	r := &Registry{assets: make(map[string]Asset, len(assets))}
	for _, a := range assets {
		r.assets[strings.ToUpper(a.Symbol)] = a
	}
	return r
}

// DefaultRegistry returns the standard USDC (6 decimals) / sSPY (18 decimals)
// pair the protocol trades in.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Asset{Symbol: USDC, Decimals: 6},
		Asset{Symbol: SSPY, Decimals: 18},
	)
}

// Get returns the asset definition for a symbol.
func (r *Registry) Get(symbol string) (Asset, error) {
	a, ok := r.assets[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return Asset{}, fmt.Errorf("%w: %s", ErrUnknownAsset, symbol)
	}
	return a, nil
}

// ParseAmount converts a human-unit decimal string ("1500.25") into raw
// integer units of the asset. Fails if the string is not a valid decimal,
// is negative, or carries more fractional digits than the asset supports.
// Silently truncating user input would misstate balances.
func (r *Registry) ParseAmount(symbol, value string) (*big.Int, error) {
	a, err := r.Get(symbol)
	if err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	if d.IsNegative() {
		return nil, ErrNegativeAmount
	}
	shifted := d.Shift(int32(a.Decimals))
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, fmt.Errorf("%w: %s supports %d decimals", ErrTooManyDigits, a.Symbol, a.Decimals)
	}
	return shifted.BigInt(), nil
}

// FormatAmount renders raw integer units as a human-unit decimal string.
func (r *Registry) FormatAmount(symbol string, raw *big.Int) (string, error) {
	a, err := r.Get(symbol)
	if err != nil {
		return "", err
	}
	if raw == nil {
		raw = big.NewInt(0)
	}
	return decimal.NewFromBigInt(raw, -int32(a.Decimals)).String(), nil
}

// MustFormat is FormatAmount for call sites that already validated the
// symbol; it falls back to the raw string on registry misses.
func (r *Registry) MustFormat(symbol string, raw *big.Int) string {
	s, err := r.FormatAmount(symbol, raw)
	if err != nil {
		if raw == nil {
			return "0"
		}
		return raw.String()
	}
	return s
}
