package engine

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/etfinity/synthetic-engine/internal/access"
	"github.com/etfinity/synthetic-engine/internal/asset"
	"github.com/etfinity/synthetic-engine/internal/limits"
	"github.com/etfinity/synthetic-engine/internal/model"
	"github.com/etfinity/synthetic-engine/internal/oracle"
	"github.com/etfinity/synthetic-engine/internal/store"
)

const admin = "0xadmin"

var testTime = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	engine   *Engine
	store    *store.MemoryStore
	usdcFeed *oracle.ManualFeed
	sspyFeed *oracle.ManualFeed
}

// newFixture wires an engine against the in-memory store with USDC at $1.00
// and sSPY at $5000.00 (8-decimal feeds), target CR 150%, min CR 110%,
// liquidation bonus 10%.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := store.NewMemoryStore()
	adapter := oracle.NewAdapter(time.Hour)
	adapter.SetClock(func() time.Time { return testTime })

	usdcFeed := oracle.NewManualFeed(8)
	usdcFeed.Post(big.NewInt(1_0000_0000), testTime)
	sspyFeed := oracle.NewManualFeed(8)
	sspyFeed.Post(big.NewInt(5000_0000_0000), testTime)
	adapter.SetFeed("USDC", usdcFeed)
	adapter.SetFeed("sSPY", sspyFeed)

	reg := asset.DefaultRegistry()
	usdc, _ := reg.Get("USDC")
	sspy, _ := reg.Get("sSPY")

	eng := New(st, adapter, access.NewRegistry(admin), nil, usdc, sspy)
	eng.SetClock(func() time.Time { return testTime })
	if err := eng.Init(context.Background(), model.ProtocolParameters{
		TargetCollateralizationRatio: 15000,
		MinCollateralizationRatio:    11000,
		LiquidationBonus:             10,
	}); err != nil {
		t.Fatalf("init: %v", err)
	}
	return &fixture{engine: eng, store: st, usdcFeed: usdcFeed, sspyFeed: sspyFeed}
}

func usdc(t *testing.T, human string) *big.Int {
	t.Helper()
	raw, err := asset.DefaultRegistry().ParseAmount("USDC", human)
	if err != nil {
		t.Fatalf("parse USDC %q: %v", human, err)
	}
	return raw
}

func sspy(t *testing.T, human string) *big.Int {
	t.Helper()
	raw, err := asset.DefaultRegistry().ParseAmount("sSPY", human)
	if err != nil {
		t.Fatalf("parse sSPY %q: %v", human, err)
	}
	return raw
}

func TestMintAtTargetRatio(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.engine.Mint(ctx, "alice", usdc(t, "1500"))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	// 1500 USDC at $1 against sSPY at $5000 and 150% target: 0.2 sSPY.
	if want := sspy(t, "0.2"); out.Cmp(want) != 0 {
		t.Fatalf("minted %s, want %s", out, want)
	}

	r, err := f.engine.CurrentRatio(ctx, "alice")
	if err != nil {
		t.Fatalf("ratio: %v", err)
	}
	bps, ok := r.Bps()
	if !ok || bps.Int64() != 15000 {
		t.Fatalf("post-mint ratio = %s, want 15000", r)
	}
}

func TestMintValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.engine.Mint(ctx, "", usdc(t, "100")); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("empty user: got %v", err)
	}
	if _, err := f.engine.Mint(ctx, "alice", big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amount: got %v", err)
	}
	if _, err := f.engine.Mint(ctx, "alice", big.NewInt(-5)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("negative amount: got %v", err)
	}
}

func TestMintRejectsStalePrice(t *testing.T) {
	f := newFixture(t)
	f.sspyFeed.Post(big.NewInt(5000_0000_0000), testTime.Add(-2*time.Hour))

	_, err := f.engine.Mint(context.Background(), "alice", usdc(t, "1500"))
	if !errors.Is(err, oracle.ErrDataStale) {
		t.Fatalf("got %v, want stale price error", err)
	}
	pos, _ := f.engine.Position(context.Background(), "alice")
	if pos.CollateralAmount.Sign() != 0 {
		t.Fatalf("rejected mint changed state: %+v", pos)
	}
}

func TestRedeemRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	minted, err := f.engine.Mint(ctx, "alice", usdc(t, "1500"))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	back, err := f.engine.Redeem(ctx, "alice", minted)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	// Same prices, full unwind: the round trip may lose at most one raw
	// unit to flooring, never gain.
	diff := new(big.Int).Sub(usdc(t, "1500"), back)
	if diff.Sign() < 0 || diff.Cmp(big.NewInt(1)) > 0 {
		t.Fatalf("round trip returned %s of 1500 USDC (diff %s)", back, diff)
	}

	pos, err := f.engine.Position(ctx, "alice")
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if pos.DebtAmount.Sign() != 0 {
		t.Fatalf("debt after full redeem = %s", pos.DebtAmount)
	}
	if pos.CollateralAmount.Sign() < 0 {
		t.Fatalf("negative collateral: %s", pos.CollateralAmount)
	}
}

func TestRedeemMoreThanDebt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.engine.Mint(ctx, "alice", usdc(t, "1500")); err != nil {
		t.Fatalf("mint: %v", err)
	}
	_, err := f.engine.Redeem(ctx, "alice", sspy(t, "0.3"))
	var insufficient *InsufficientFundsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("got %v, want InsufficientFundsError", err)
	}
}

func TestRedeemCollateralShortfall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.engine.Mint(ctx, "alice", usdc(t, "1500")); err != nil {
		t.Fatalf("mint: %v", err)
	}
	// sSPY doubles: redeeming all debt at target CR would now return more
	// collateral than the position holds. Must error, not partially fill.
	f.sspyFeed.Post(big.NewInt(10000_0000_0000), testTime)

	_, err := f.engine.Redeem(ctx, "alice", sspy(t, "0.2"))
	var insufficient *InsufficientFundsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("got %v, want InsufficientFundsError", err)
	}
	pos, _ := f.engine.Position(ctx, "alice")
	if pos.DebtAmount.Cmp(sspy(t, "0.2")) != 0 {
		t.Fatalf("failed redeem changed debt: %s", pos.DebtAmount)
	}
}

func TestRatioDropsWithPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.engine.Mint(ctx, "alice", usdc(t, "1500")); err != nil {
		t.Fatalf("mint: %v", err)
	}
	// sSPY $5000 → $7000: 1500 / (0.2×7000) = 107.14%.
	f.sspyFeed.Post(big.NewInt(7000_0000_0000), testTime)

	r, err := f.engine.CurrentRatio(ctx, "alice")
	if err != nil {
		t.Fatalf("ratio: %v", err)
	}
	bps, ok := r.Bps()
	if !ok || bps.Int64() != 10714 {
		t.Fatalf("ratio = %s, want 10714", r)
	}
}

func TestRatioInfiniteWithoutDebt(t *testing.T) {
	f := newFixture(t)

	r, err := f.engine.CurrentRatio(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("ratio: %v", err)
	}
	if !r.IsInfinite() {
		t.Fatalf("ratio of empty position = %s, want infinite", r)
	}
}

func TestLiquidateHealthyPositionRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.engine.Mint(ctx, "alice", usdc(t, "1500")); err != nil {
		t.Fatalf("mint: %v", err)
	}
	_, _, err := f.engine.Liquidate(ctx, "bob", "alice", sspy(t, "0.1"))
	var notAllowed *LiquidationNotAllowedError
	if !errors.As(err, &notAllowed) {
		t.Fatalf("got %v, want LiquidationNotAllowedError", err)
	}
	if notAllowed.CurrentBps == nil || notAllowed.CurrentBps.Int64() != 15000 {
		t.Fatalf("error carries ratio %v, want 15000", notAllowed.CurrentBps)
	}
}

func TestLiquidatePartial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.engine.Mint(ctx, "alice", usdc(t, "1500")); err != nil {
		t.Fatalf("mint: %v", err)
	}
	// $7000 puts alice at 107.14%, under the 110% minimum.
	f.sspyFeed.Post(big.NewInt(7000_0000_0000), testTime)

	seized, bonus, err := f.engine.Liquidate(ctx, "bob", "alice", sspy(t, "0.1"))
	if err != nil {
		t.Fatalf("liquidate: %v", err)
	}
	// 0.1 sSPY × $7000 = $700 base, +10% bonus = 770 USDC.
	if want := usdc(t, "770"); seized.Cmp(want) != 0 {
		t.Fatalf("seized %s, want %s", seized, want)
	}
	if want := usdc(t, "70"); bonus.Cmp(want) != 0 {
		t.Fatalf("bonus %s, want %s", bonus, want)
	}

	pos, _ := f.engine.Position(ctx, "alice")
	if pos.DebtAmount.Cmp(sspy(t, "0.1")) != 0 {
		t.Fatalf("remaining debt %s, want 0.1 sSPY", pos.DebtAmount)
	}
	if pos.CollateralAmount.Cmp(usdc(t, "730")) != 0 {
		t.Fatalf("remaining collateral %s, want 730 USDC", pos.CollateralAmount)
	}
}

func TestLiquidateSeizeTruncatedAtCollateral(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.engine.Mint(ctx, "alice", usdc(t, "1500")); err != nil {
		t.Fatalf("mint: %v", err)
	}
	f.sspyFeed.Post(big.NewInt(7000_0000_0000), testTime)

	// Full repay: base 1400 + bonus 140 = 1540 > 1500 posted. Seizure
	// truncates and the shortfall comes out of the bonus.
	seized, bonus, err := f.engine.Liquidate(ctx, "bob", "alice", sspy(t, "0.2"))
	if err != nil {
		t.Fatalf("liquidate: %v", err)
	}
	if want := usdc(t, "1500"); seized.Cmp(want) != 0 {
		t.Fatalf("seized %s, want all 1500 USDC", seized)
	}
	if want := usdc(t, "100"); bonus.Cmp(want) != 0 {
		t.Fatalf("bonus %s, want 100 USDC", bonus)
	}

	pos, _ := f.engine.Position(ctx, "alice")
	if pos.CollateralAmount.Sign() != 0 || pos.DebtAmount.Sign() != 0 {
		t.Fatalf("position not fully closed: %+v", pos)
	}
}

func TestLiquidateRepayExceedsDebt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.engine.Mint(ctx, "alice", usdc(t, "1500")); err != nil {
		t.Fatalf("mint: %v", err)
	}
	f.sspyFeed.Post(big.NewInt(7000_0000_0000), testTime)

	_, _, err := f.engine.Liquidate(ctx, "bob", "alice", sspy(t, "0.5"))
	if !errors.Is(err, ErrLiquidationAmountTooLarge) {
		t.Fatalf("got %v, want ErrLiquidationAmountTooLarge", err)
	}
}

func TestPauseBlocksMutations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.engine.PauseProtocol(ctx, admin); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if _, err := f.engine.Mint(ctx, "alice", usdc(t, "100")); !errors.Is(err, access.ErrPaused) {
		t.Fatalf("mint while paused: got %v", err)
	}
	if _, err := f.engine.Redeem(ctx, "alice", sspy(t, "0.1")); !errors.Is(err, access.ErrPaused) {
		t.Fatalf("redeem while paused: got %v", err)
	}
	if _, _, err := f.engine.Liquidate(ctx, "bob", "alice", sspy(t, "0.1")); !errors.Is(err, access.ErrPaused) {
		t.Fatalf("liquidate while paused: got %v", err)
	}

	// Reads keep working.
	if _, err := f.engine.Position(ctx, "alice"); err != nil {
		t.Fatalf("read while paused: %v", err)
	}

	if err := f.engine.UnpauseProtocol(ctx, admin); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	if _, err := f.engine.Mint(ctx, "alice", usdc(t, "100")); err != nil {
		t.Fatalf("mint after unpause: %v", err)
	}
}

func TestPauseRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.engine.PauseProtocol(ctx, "mallory")
	var unauthorized *access.UnauthorizedError
	if !errors.As(err, &unauthorized) {
		t.Fatalf("got %v, want UnauthorizedError", err)
	}
	if f.engine.Paused() {
		t.Fatal("unauthorized caller paused the protocol")
	}
}

func TestUnpauseWhenRunning(t *testing.T) {
	f := newFixture(t)
	if err := f.engine.UnpauseProtocol(context.Background(), admin); !errors.Is(err, access.ErrNotPaused) {
		t.Fatalf("got %v, want ErrNotPaused", err)
	}
}

func TestUpdateRatiosValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.engine.UpdateCollateralizationRatios(ctx, admin, 11000, 15000); !errors.Is(err, ErrInvalidCollateralRatio) {
		t.Fatalf("min above target: got %v", err)
	}
	if err := f.engine.UpdateCollateralizationRatios(ctx, admin, 15000, 15000); !errors.Is(err, ErrInvalidCollateralRatio) {
		t.Fatalf("min equal target: got %v", err)
	}
	if err := f.engine.UpdateCollateralizationRatios(ctx, admin, 20000, 12000); err != nil {
		t.Fatalf("valid update: %v", err)
	}
	params, err := f.engine.Parameters(ctx)
	if err != nil {
		t.Fatalf("parameters: %v", err)
	}
	if params.TargetCollateralizationRatio != 20000 || params.MinCollateralizationRatio != 12000 {
		t.Fatalf("parameters not persisted: %+v", params)
	}
}

func TestUpdateBonus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.engine.UpdateLiquidationBonus(ctx, admin, -1); !errors.Is(err, ErrInvalidBonus) {
		t.Fatalf("negative bonus: got %v", err)
	}
	if err := f.engine.UpdateLiquidationBonus(ctx, "mallory", 5); err == nil {
		t.Fatal("non-admin updated bonus")
	}
	if err := f.engine.UpdateLiquidationBonus(ctx, admin, 5); err != nil {
		t.Fatalf("update bonus: %v", err)
	}
	params, _ := f.engine.Parameters(ctx)
	if params.LiquidationBonus != 5 {
		t.Fatalf("bonus = %d, want 5", params.LiquidationBonus)
	}
}

func TestUpdatePriceFeedRequiresOracleAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	feed := oracle.NewManualFeed(8)
	feed.Post(big.NewInt(6000_0000_0000), testTime)

	if err := f.engine.UpdatePriceFeed(ctx, "mallory", "sSPY", feed); err == nil {
		t.Fatal("non-admin swapped a price feed")
	}
	if err := f.engine.UpdatePriceFeed(ctx, admin, "sSPY", feed); err != nil {
		t.Fatalf("update feed: %v", err)
	}
}

func TestDebtCeilings(t *testing.T) {
	st := store.NewMemoryStore()
	adapter := oracle.NewAdapter(time.Hour)
	adapter.SetClock(func() time.Time { return testTime })
	usdcFeed := oracle.NewManualFeed(8)
	usdcFeed.Post(big.NewInt(1_0000_0000), testTime)
	sspyFeed := oracle.NewManualFeed(8)
	sspyFeed.Post(big.NewInt(5000_0000_0000), testTime)
	adapter.SetFeed("USDC", usdcFeed)
	adapter.SetFeed("sSPY", sspyFeed)

	reg := asset.DefaultRegistry()
	usdcAsset, _ := reg.Get("USDC")
	sspyAsset, _ := reg.Get("sSPY")

	// Per-user cap of 0.25 sSPY.
	limiter := limits.NewDebtLimiter(sspy(t, "0.25"), nil)
	eng := New(st, adapter, access.NewRegistry(admin), limiter, usdcAsset, sspyAsset)
	eng.SetClock(func() time.Time { return testTime })
	if err := eng.Init(context.Background(), model.ProtocolParameters{
		TargetCollateralizationRatio: 15000,
		MinCollateralizationRatio:    11000,
		LiquidationBonus:             10,
	}); err != nil {
		t.Fatalf("init: %v", err)
	}

	ctx := context.Background()
	if _, err := eng.Mint(ctx, "alice", usdc(t, "1500")); err != nil {
		t.Fatalf("first mint: %v", err)
	}
	_, err := eng.Mint(ctx, "alice", usdc(t, "1500"))
	if !errors.Is(err, limits.ErrUserCapExceeded) {
		t.Fatalf("got %v, want ErrUserCapExceeded", err)
	}
}

func TestLiquidityPoolShares(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	minted, err := f.engine.AddLiquidity(ctx, "alice", sspy(t, "1"), usdc(t, "5000"))
	if err != nil {
		t.Fatalf("first deposit: %v", err)
	}
	if want := usdc(t, "5000"); minted.Cmp(want) != 0 {
		t.Fatalf("initial shares %s, want %s", minted, want)
	}

	// Proportional second deposit mints proportional shares.
	second, err := f.engine.AddLiquidity(ctx, "bob", sspy(t, "0.5"), usdc(t, "2500"))
	if err != nil {
		t.Fatalf("second deposit: %v", err)
	}
	if want := usdc(t, "2500"); second.Cmp(want) != 0 {
		t.Fatalf("second shares %s, want %s", second, want)
	}

	// Lopsided deposit mints by the smaller leg.
	third, err := f.engine.AddLiquidity(ctx, "carol", sspy(t, "1"), usdc(t, "2500"))
	if err != nil {
		t.Fatalf("lopsided deposit: %v", err)
	}
	if want := usdc(t, "2500"); third.Cmp(want) != 0 {
		t.Fatalf("lopsided shares %s, want %s", third, want)
	}
}

func TestRemoveLiquidity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.engine.AddLiquidity(ctx, "alice", sspy(t, "1"), usdc(t, "5000")); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	shares, _ := f.engine.PoolShares(ctx, "alice")

	half := new(big.Int).Quo(shares, big.NewInt(2))
	sspyOut, usdcOut, err := f.engine.RemoveLiquidity(ctx, "alice", half)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if want := sspy(t, "0.5"); sspyOut.Cmp(want) != 0 {
		t.Fatalf("sSPY out %s, want %s", sspyOut, want)
	}
	if want := usdc(t, "2500"); usdcOut.Cmp(want) != 0 {
		t.Fatalf("USDC out %s, want %s", usdcOut, want)
	}

	// Burning more than held is rejected.
	_, _, err = f.engine.RemoveLiquidity(ctx, "alice", shares)
	var insufficient *InsufficientFundsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("got %v, want InsufficientFundsError", err)
	}
}

func TestEventsRecorded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var received []model.Event
	f.engine.Subscribe(func(e model.Event) { received = append(received, e) })

	minted, err := f.engine.Mint(ctx, "alice", usdc(t, "1500"))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := f.engine.Redeem(ctx, "alice", minted); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	events, err := f.engine.Events(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	// Newest first.
	if events[0].Type != model.EventRedeemed || events[1].Type != model.EventMinted {
		t.Fatalf("event order: %s, %s", events[0].Type, events[1].Type)
	}
	if events[1].Amounts["collateralDeposited"] != usdc(t, "1500").String() {
		t.Fatalf("mint event amounts: %v", events[1].Amounts)
	}
	if len(received) != 2 {
		t.Fatalf("subscriber saw %d events, want 2", len(received))
	}
}
