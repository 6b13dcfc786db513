package asset_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/etfinity/synthetic-engine/internal/asset"
)

func TestParseAmount(t *testing.T) {
	r := asset.DefaultRegistry()

	tests := []struct {
		name    string
		symbol  string
		value   string
		want    string // raw units
		wantErr error
	}{
		{name: "whole usdc", symbol: "USDC", value: "1500", want: "1500000000"},
		{name: "fractional usdc", symbol: "USDC", value: "0.25", want: "250000"},
		{name: "max precision usdc", symbol: "USDC", value: "1.000001", want: "1000001"},
		{name: "sspy full precision", symbol: "sSPY", value: "0.2", want: "200000000000000000"},
		{name: "case insensitive", symbol: "usdc", value: "1", want: "1000000"},
		{name: "too many digits", symbol: "USDC", value: "1.0000001", wantErr: asset.ErrTooManyDigits},
		{name: "negative", symbol: "USDC", value: "-5", wantErr: asset.ErrNegativeAmount},
		{name: "garbage", symbol: "USDC", value: "abc", wantErr: asset.ErrInvalidAmount},
		{name: "unknown asset", symbol: "DOGE", value: "1", wantErr: asset.ErrUnknownAsset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ParseAmount(tt.symbol, tt.value)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			want, _ := new(big.Int).SetString(tt.want, 10)
			if got.Cmp(want) != 0 {
				t.Errorf("got %s, want %s", got, want)
			}
		})
	}
}

func TestFormatAmount(t *testing.T) {
	r := asset.DefaultRegistry()

	raw, _ := new(big.Int).SetString("200000000000000000", 10)
	s, err := r.FormatAmount("sSPY", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != "0.2" {
		t.Errorf("got %s, want 0.2", s)
	}

	s, err = r.FormatAmount("USDC", big.NewInt(770_000_000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != "770" {
		t.Errorf("got %s, want 770", s)
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	r := asset.DefaultRegistry()

	for _, v := range []string{"0", "1", "1500", "0.000001", "123456.789012"} {
		raw, err := r.ParseAmount("USDC", v)
		if err != nil {
			t.Fatalf("parse %s: %v", v, err)
		}
		back, err := r.FormatAmount("USDC", raw)
		if err != nil {
			t.Fatalf("format %s: %v", v, err)
		}
		reparsed, err := r.ParseAmount("USDC", back)
		if err != nil {
			t.Fatalf("reparse %s: %v", back, err)
		}
		if raw.Cmp(reparsed) != 0 {
			t.Errorf("round trip lost precision: %s -> %s", v, back)
		}
	}
}
