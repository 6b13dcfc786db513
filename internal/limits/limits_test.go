package limits_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/etfinity/synthetic-engine/internal/limits"
)

func TestCheckMint(t *testing.T) {
	l := limits.NewDebtLimiter(big.NewInt(1000), big.NewInt(5000))

	tests := []struct {
		name        string
		currentDebt int64
		total       int64
		mint        int64
		wantErr     error
	}{
		{name: "well within", currentDebt: 100, total: 1000, mint: 200},
		{name: "exactly at user cap", currentDebt: 400, total: 1000, mint: 600},
		{name: "user cap exceeded", currentDebt: 400, total: 1000, mint: 601, wantErr: limits.ErrUserCapExceeded},
		{name: "exactly at global cap", currentDebt: 0, total: 4000, mint: 1000},
		{name: "global cap exceeded", currentDebt: 0, total: 4500, mint: 501, wantErr: limits.ErrGlobalCapExceeded},
		{name: "zero mint always passes", currentDebt: 1000, total: 5000, mint: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.CheckMint(big.NewInt(tt.currentDebt), big.NewInt(tt.total), big.NewInt(tt.mint))
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCheckMint_DisabledCaps(t *testing.T) {
	l := limits.NewDebtLimiter(nil, nil)
	huge, _ := new(big.Int).SetString("1000000000000000000000000000000", 10)
	if err := l.CheckMint(huge, huge, huge); err != nil {
		t.Fatalf("disabled ceilings must not reject: %v", err)
	}

	var nilLimiter *limits.DebtLimiter
	if err := nilLimiter.CheckMint(huge, huge, huge); err != nil {
		t.Fatalf("nil limiter must not reject: %v", err)
	}
}
