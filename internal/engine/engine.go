// Package engine implements the collateralized synthetic-asset accounting
// core: mint, redeem, liquidate, and the liquidity-pool bookkeeping, plus
// the role-gated admin surface.
//
// Every mutating operation is serialized behind one mutex and committed
// through a single atomic store transition: all-or-nothing, no partial
// effects, equivalent to the single-writer execution model of a chain VM.
// Prices are re-read from the oracle adapter at the start of every
// operation and never cached across operations.
//
// All arithmetic is integer arithmetic on raw fixed-point amounts. Every
// division is a floor, and every floor falls in the protocol's favor.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/etfinity/synthetic-engine/internal/access"
	"github.com/etfinity/synthetic-engine/internal/asset"
	"github.com/etfinity/synthetic-engine/internal/limits"
	"github.com/etfinity/synthetic-engine/internal/model"
	"github.com/etfinity/synthetic-engine/internal/oracle"
	"github.com/etfinity/synthetic-engine/internal/ratio"
	"github.com/etfinity/synthetic-engine/internal/store"
)

// ratioScale converts percentage-times-100 parameters into the basis-point
// arithmetic used throughout (15000 = 150.00%).
var ratioScale = big.NewInt(10_000)

// Engine orchestrates the protocol's state transitions.
type Engine struct {
	mu      sync.Mutex
	store   store.Store
	oracle  *oracle.Adapter
	roles   *access.Registry
	pause   *access.Pause
	limiter *limits.DebtLimiter

	collateral asset.Asset
	synthetic  asset.Asset

	now  func() time.Time
	subs []func(model.Event)
}

// New constructs an engine. The genesis parameters are persisted on Init if
// the store carries none yet.
func New(st store.Store, orc *oracle.Adapter, roles *access.Registry, limiter *limits.DebtLimiter, collateral, synthetic asset.Asset) *Engine {
	return &Engine{
		store:      st,
		oracle:     orc,
		roles:      roles,
		pause:      &access.Pause{},
		limiter:    limiter,
		collateral: collateral,
		synthetic:  synthetic,
		now:        time.Now,
	}
}

// Init seeds the protocol parameters when the ledger is empty. genesis must
// satisfy minCR < targetCR.
func (e *Engine) Init(ctx context.Context, genesis model.ProtocolParameters) error {
	if err := validateRatios(genesis.TargetCollateralizationRatio, genesis.MinCollateralizationRatio); err != nil {
		return err
	}
	if genesis.LiquidationBonus < 0 {
		return ErrInvalidBonus
	}
	if _, err := e.store.GetParameters(ctx); err == nil {
		return nil // already initialised
	} else if err != store.ErrNotFound {
		return err
	}
	return e.store.SaveParameters(ctx, &genesis)
}

// SetClock overrides the time source, for tests.
func (e *Engine) SetClock(now func() time.Time) {
	if now != nil {
		e.now = now
	}
}

// Subscribe registers a callback invoked synchronously with every event
// appended by a successful state transition.
func (e *Engine) Subscribe(fn func(model.Event)) {
	if fn != nil {
		e.subs = append(e.subs, fn)
	}
}

// --- Mutating operations ---

// Mint deposits collateralIn (raw collateral units) and issues synthetic
// units at exactly the target collateralization ratio:
//
//	out = collateralValue / (syntheticPrice × targetCR)
//
// A mint can therefore never itself create a position below target, though
// later price moves can. Returns the synthetic amount issued.
func (e *Engine) Mint(ctx context.Context, user string, collateralIn *big.Int) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.pause.Guard(); err != nil {
		return nil, err
	}
	if user == "" {
		return nil, ErrInvalidAddress
	}
	if collateralIn == nil || collateralIn.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	collQuote, synQuote, err := e.readPrices()
	if err != nil {
		return nil, err
	}
	params, err := e.store.GetParameters(ctx)
	if err != nil {
		return nil, fmt.Errorf("load parameters: %w", err)
	}

	// out = collIn × collPrice × 10^(synDec+synPriceDec) × 10000
	//     / (synPrice × 10^(collDec+collPriceDec) × targetCR)
	num := new(big.Int).Mul(collateralIn, collQuote.Price)
	num.Mul(num, pow10(int(e.synthetic.Decimals)+int(synQuote.Decimals)))
	num.Mul(num, ratioScale)
	den := new(big.Int).Mul(synQuote.Price, pow10(int(e.collateral.Decimals)+int(collQuote.Decimals)))
	den.Mul(den, big.NewInt(params.TargetCollateralizationRatio))
	if den.Sign() == 0 {
		return nil, ErrCollateralCalculation
	}
	syntheticOut := num.Quo(num, den)
	if syntheticOut.Sign() == 0 {
		return nil, ErrCollateralCalculation
	}

	pos, err := e.store.GetPosition(ctx, user)
	if err != nil {
		return nil, err
	}
	totalDebt, err := e.store.TotalDebt(ctx)
	if err != nil {
		return nil, err
	}
	if err := e.limiter.CheckMint(pos.DebtAmount, totalDebt, syntheticOut); err != nil {
		return nil, err
	}

	pos.CollateralAmount.Add(pos.CollateralAmount, collateralIn)
	pos.DebtAmount.Add(pos.DebtAmount, syntheticOut)
	pos.UpdatedAt = e.now()

	resulting := ratio.Current(pos, collQuote, synQuote, e.collateral.Decimals, e.synthetic.Decimals)
	event := e.newEvent(model.EventMinted, user, map[string]string{
		"collateralDeposited": collateralIn.String(),
		"sspyMinted":          syntheticOut.String(),
		"resultingRatio":      resulting.String(),
	})

	if err := e.store.Apply(ctx, store.Transition{Positions: []*model.Position{pos}, Event: event}); err != nil {
		return nil, fmt.Errorf("commit mint: %w", err)
	}
	e.emit(event)

	slog.Info("minted",
		"user", user,
		"collateral_in", collateralIn.String(),
		"synthetic_out", syntheticOut.String(),
		"resulting_ratio", resulting.String(),
	)
	return syntheticOut, nil
}

// Redeem burns syntheticIn of the caller's debt and returns collateral at
// the target ratio, the exact inverse of Mint, independent of the rest of
// the position. A computed return exceeding the posted collateral is an
// error, not a partial fill.
func (e *Engine) Redeem(ctx context.Context, user string, syntheticIn *big.Int) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.pause.Guard(); err != nil {
		return nil, err
	}
	if user == "" {
		return nil, ErrInvalidAddress
	}
	if syntheticIn == nil || syntheticIn.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	collQuote, synQuote, err := e.readPrices()
	if err != nil {
		return nil, err
	}
	params, err := e.store.GetParameters(ctx)
	if err != nil {
		return nil, fmt.Errorf("load parameters: %w", err)
	}

	pos, err := e.store.GetPosition(ctx, user)
	if err != nil {
		return nil, err
	}
	if syntheticIn.Cmp(pos.DebtAmount) > 0 {
		return nil, &InsufficientFundsError{
			What:      "synthetic debt",
			Available: new(big.Int).Set(pos.DebtAmount),
			Required:  new(big.Int).Set(syntheticIn),
		}
	}

	// collOut = synIn × synPrice × targetCR × 10^(collDec+collPriceDec)
	//         / (collPrice × 10^(synDec+synPriceDec) × 10000)
	num := new(big.Int).Mul(syntheticIn, synQuote.Price)
	num.Mul(num, big.NewInt(params.TargetCollateralizationRatio))
	num.Mul(num, pow10(int(e.collateral.Decimals)+int(collQuote.Decimals)))
	den := new(big.Int).Mul(collQuote.Price, pow10(int(e.synthetic.Decimals)+int(synQuote.Decimals)))
	den.Mul(den, ratioScale)
	collateralOut := num.Quo(num, den)

	if collateralOut.Cmp(pos.CollateralAmount) > 0 {
		return nil, &InsufficientFundsError{
			What:      "posted collateral",
			Available: new(big.Int).Set(pos.CollateralAmount),
			Required:  collateralOut,
		}
	}

	pos.DebtAmount.Sub(pos.DebtAmount, syntheticIn)
	pos.CollateralAmount.Sub(pos.CollateralAmount, collateralOut)
	pos.UpdatedAt = e.now()

	event := e.newEvent(model.EventRedeemed, user, map[string]string{
		"sspyBurned":         syntheticIn.String(),
		"collateralReturned": collateralOut.String(),
	})
	if err := e.store.Apply(ctx, store.Transition{Positions: []*model.Position{pos}, Event: event}); err != nil {
		return nil, fmt.Errorf("commit redeem: %w", err)
	}
	e.emit(event)

	slog.Info("redeemed",
		"user", user,
		"synthetic_in", syntheticIn.String(),
		"collateral_out", collateralOut.String(),
	)
	return collateralOut, nil
}

// Liquidate lets liquidator repay part (or all) of an undercollateralized
// borrower's debt in exchange for the value-equivalent collateral plus the
// liquidation bonus. The seizure is truncated at the borrower's posted
// collateral so balances can never go negative. Returns the total
// collateral seized and the bonus portion of it.
func (e *Engine) Liquidate(ctx context.Context, liquidator, borrower string, syntheticToRepay *big.Int) (*big.Int, *big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.pause.Guard(); err != nil {
		return nil, nil, err
	}
	if liquidator == "" || borrower == "" {
		return nil, nil, ErrInvalidAddress
	}
	if syntheticToRepay == nil || syntheticToRepay.Sign() <= 0 {
		return nil, nil, ErrInvalidAmount
	}

	collQuote, synQuote, err := e.readPrices()
	if err != nil {
		return nil, nil, err
	}
	params, err := e.store.GetParameters(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load parameters: %w", err)
	}

	pos, err := e.store.GetPosition(ctx, borrower)
	if err != nil {
		return nil, nil, err
	}

	// Eligibility is re-checked at call time, never cached.
	current := ratio.Current(pos, collQuote, synQuote, e.collateral.Decimals, e.synthetic.Decimals)
	if pos.DebtAmount.Sign() == 0 {
		return nil, nil, &LiquidationNotAllowedError{
			Borrower:    borrower,
			Reason:      "position has no debt",
			RequiredBps: params.MinCollateralizationRatio,
		}
	}
	if !current.Below(params.MinCollateralizationRatio) {
		bps, _ := current.Bps()
		return nil, nil, &LiquidationNotAllowedError{
			Borrower:    borrower,
			Reason:      "position is healthy",
			CurrentBps:  bps,
			RequiredBps: params.MinCollateralizationRatio,
		}
	}
	if syntheticToRepay.Cmp(pos.DebtAmount) > 0 {
		return nil, nil, ErrLiquidationAmountTooLarge
	}

	// base = repay × synPrice × 10^(collDec+collPriceDec)
	//      / (collPrice × 10^(synDec+synPriceDec))
	num := new(big.Int).Mul(syntheticToRepay, synQuote.Price)
	num.Mul(num, pow10(int(e.collateral.Decimals)+int(collQuote.Decimals)))
	den := new(big.Int).Mul(collQuote.Price, pow10(int(e.synthetic.Decimals)+int(synQuote.Decimals)))
	base := num.Quo(num, den)

	bonus := new(big.Int).Mul(base, big.NewInt(params.LiquidationBonus))
	bonus.Quo(bonus, big.NewInt(100))

	seized := new(big.Int).Add(base, bonus)
	if seized.Cmp(pos.CollateralAmount) > 0 {
		// Never seize more than exists. The shortfall comes out of the
		// bonus first.
		seized = new(big.Int).Set(pos.CollateralAmount)
	}
	bonusPaid := new(big.Int).Sub(seized, base)
	if bonusPaid.Sign() < 0 {
		bonusPaid = big.NewInt(0)
	}

	pos.DebtAmount.Sub(pos.DebtAmount, syntheticToRepay)
	pos.CollateralAmount.Sub(pos.CollateralAmount, seized)
	pos.UpdatedAt = e.now()

	event := e.newEvent(model.EventLiquidated, borrower, map[string]string{
		"liquidator":         liquidator,
		"sspyRepaid":         syntheticToRepay.String(),
		"collateralReceived": seized.String(),
		"liquidationBonus":   bonusPaid.String(),
	})
	if err := e.store.Apply(ctx, store.Transition{Positions: []*model.Position{pos}, Event: event}); err != nil {
		return nil, nil, fmt.Errorf("commit liquidation: %w", err)
	}
	e.emit(event)

	slog.Info("position liquidated",
		"borrower", borrower,
		"liquidator", liquidator,
		"repaid", syntheticToRepay.String(),
		"seized", seized.String(),
		"bonus", bonusPaid.String(),
	)
	return seized, bonusPaid, nil
}

// AddLiquidity deposits sSPY and USDC into the pool and mints LP shares.
// First deposit seeds the pool 1:1 against the USDC leg; later deposits
// mint the smaller of the two proportional entitlements. Bookkeeping only;
// the pool does no pricing.
func (e *Engine) AddLiquidity(ctx context.Context, user string, sspyIn, usdcIn *big.Int) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.pause.Guard(); err != nil {
		return nil, err
	}
	if user == "" {
		return nil, ErrInvalidAddress
	}
	if sspyIn == nil || sspyIn.Sign() <= 0 || usdcIn == nil || usdcIn.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	pool, err := e.store.GetPool(ctx)
	if err != nil {
		return nil, err
	}

	var minted *big.Int
	if pool.TotalShares.Sign() == 0 {
		minted = new(big.Int).Set(usdcIn)
	} else {
		bySSPY := new(big.Int).Mul(sspyIn, pool.TotalShares)
		bySSPY.Quo(bySSPY, pool.SSPYReserve)
		byUSDC := new(big.Int).Mul(usdcIn, pool.TotalShares)
		byUSDC.Quo(byUSDC, pool.USDCReserve)
		minted = bySSPY
		if byUSDC.Cmp(minted) < 0 {
			minted = byUSDC
		}
	}
	if minted.Sign() == 0 {
		return nil, ErrCollateralCalculation
	}

	shares, err := e.store.GetPoolShares(ctx, user)
	if err != nil {
		return nil, err
	}
	shares.Add(shares, minted)

	pool.SSPYReserve.Add(pool.SSPYReserve, sspyIn)
	pool.USDCReserve.Add(pool.USDCReserve, usdcIn)
	pool.TotalShares.Add(pool.TotalShares, minted)

	event := e.newEvent(model.EventLiquidityAdded, user, map[string]string{
		"sspyAmount":     sspyIn.String(),
		"usdcAmount":     usdcIn.String(),
		"lpTokensMinted": minted.String(),
	})
	err = e.store.Apply(ctx, store.Transition{
		Pool:       pool,
		PoolShares: map[string]*big.Int{user: shares},
		Event:      event,
	})
	if err != nil {
		return nil, fmt.Errorf("commit add liquidity: %w", err)
	}
	e.emit(event)

	slog.Info("liquidity added", "user", user, "lp_minted", minted.String())
	return minted, nil
}

// RemoveLiquidity burns LP shares and returns the pro-rata slice of both
// reserves, floored.
func (e *Engine) RemoveLiquidity(ctx context.Context, user string, lpTokens *big.Int) (*big.Int, *big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.pause.Guard(); err != nil {
		return nil, nil, err
	}
	if user == "" {
		return nil, nil, ErrInvalidAddress
	}
	if lpTokens == nil || lpTokens.Sign() <= 0 {
		return nil, nil, ErrInvalidAmount
	}

	shares, err := e.store.GetPoolShares(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	if lpTokens.Cmp(shares) > 0 {
		return nil, nil, &InsufficientFundsError{
			What:      "LP shares",
			Available: shares,
			Required:  new(big.Int).Set(lpTokens),
		}
	}

	pool, err := e.store.GetPool(ctx)
	if err != nil {
		return nil, nil, err
	}

	sspyOut := new(big.Int).Mul(lpTokens, pool.SSPYReserve)
	sspyOut.Quo(sspyOut, pool.TotalShares)
	usdcOut := new(big.Int).Mul(lpTokens, pool.USDCReserve)
	usdcOut.Quo(usdcOut, pool.TotalShares)

	shares.Sub(shares, lpTokens)
	pool.SSPYReserve.Sub(pool.SSPYReserve, sspyOut)
	pool.USDCReserve.Sub(pool.USDCReserve, usdcOut)
	pool.TotalShares.Sub(pool.TotalShares, lpTokens)

	event := e.newEvent(model.EventLiquidityRemoved, user, map[string]string{
		"lpTokensBurned": lpTokens.String(),
		"sspyReturned":   sspyOut.String(),
		"usdcReturned":   usdcOut.String(),
	})
	err = e.store.Apply(ctx, store.Transition{
		Pool:       pool,
		PoolShares: map[string]*big.Int{user: shares},
		Event:      event,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("commit remove liquidity: %w", err)
	}
	e.emit(event)

	slog.Info("liquidity removed", "user", user, "lp_burned", lpTokens.String())
	return sspyOut, usdcOut, nil
}

// --- Read-only queries ---

// Position returns the user's collateral/debt pair.
func (e *Engine) Position(ctx context.Context, user string) (*model.Position, error) {
	if user == "" {
		return nil, ErrInvalidAddress
	}
	return e.store.GetPosition(ctx, user)
}

// CurrentRatio computes the user's live collateralization ratio at current
// prices. Infinite when the position carries no debt.
func (e *Engine) CurrentRatio(ctx context.Context, user string) (ratio.Ratio, error) {
	if user == "" {
		return ratio.Ratio{}, ErrInvalidAddress
	}
	pos, err := e.store.GetPosition(ctx, user)
	if err != nil {
		return ratio.Ratio{}, err
	}
	if pos.DebtAmount.Sign() == 0 {
		// No debt needs no prices.
		return ratio.Infinite(), nil
	}
	collQuote, synQuote, err := e.readPrices()
	if err != nil {
		return ratio.Ratio{}, err
	}
	return ratio.Current(pos, collQuote, synQuote, e.collateral.Decimals, e.synthetic.Decimals), nil
}

// Parameters returns the protocol risk parameters.
func (e *Engine) Parameters(ctx context.Context) (*model.ProtocolParameters, error) {
	return e.store.GetParameters(ctx)
}

// PoolShares returns the user's LP share balance.
func (e *Engine) PoolShares(ctx context.Context, user string) (*big.Int, error) {
	if user == "" {
		return nil, ErrInvalidAddress
	}
	return e.store.GetPoolShares(ctx, user)
}

// Events returns the audit log, newest first.
func (e *Engine) Events(ctx context.Context, user string, limit int) ([]model.Event, error) {
	return e.store.ListEvents(ctx, user, limit)
}

// Paused reports the pause switch.
func (e *Engine) Paused() bool { return e.pause.Paused() }

// --- Admin operations (role-gated) ---

// Pause stops all mutating operations. Admin only.
func (e *Engine) PauseProtocol(ctx context.Context, caller string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.roles.Require(access.RoleAdmin, caller); err != nil {
		return err
	}
	if err := e.pause.Set(); err != nil {
		return err
	}
	event := e.newEvent(model.EventPaused, caller, nil)
	if err := e.store.AppendEvent(ctx, event); err != nil {
		return err
	}
	e.emit(event)
	slog.Warn("protocol paused", "by", caller)
	return nil
}

// Unpause resumes mutating operations. Admin only; fails if not paused.
func (e *Engine) UnpauseProtocol(ctx context.Context, caller string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.roles.Require(access.RoleAdmin, caller); err != nil {
		return err
	}
	if err := e.pause.Clear(); err != nil {
		return err
	}
	event := e.newEvent(model.EventUnpaused, caller, nil)
	if err := e.store.AppendEvent(ctx, event); err != nil {
		return err
	}
	e.emit(event)
	slog.Info("protocol unpaused", "by", caller)
	return nil
}

// UpdateCollateralizationRatios replaces the target and minimum ratios.
// minCR < targetCR is enforced at update time, not just at genesis.
func (e *Engine) UpdateCollateralizationRatios(ctx context.Context, caller string, targetCR, minCR int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.roles.Require(access.RoleAdmin, caller); err != nil {
		return err
	}
	if err := validateRatios(targetCR, minCR); err != nil {
		return err
	}
	params, err := e.store.GetParameters(ctx)
	if err != nil {
		return err
	}
	old := *params
	params.TargetCollateralizationRatio = targetCR
	params.MinCollateralizationRatio = minCR
	if err := e.store.SaveParameters(ctx, params); err != nil {
		return err
	}
	event := e.newEvent(model.EventRatiosUpdated, caller, map[string]string{
		"oldTargetRatio": fmt.Sprint(old.TargetCollateralizationRatio),
		"newTargetRatio": fmt.Sprint(targetCR),
		"oldMinRatio":    fmt.Sprint(old.MinCollateralizationRatio),
		"newMinRatio":    fmt.Sprint(minCR),
	})
	if err := e.store.AppendEvent(ctx, event); err != nil {
		return err
	}
	e.emit(event)
	slog.Info("collateralization ratios updated", "target", targetCR, "min", minCR, "by", caller)
	return nil
}

// UpdateLiquidationBonus replaces the liquidator incentive percentage.
func (e *Engine) UpdateLiquidationBonus(ctx context.Context, caller string, bonus int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.roles.Require(access.RoleAdmin, caller); err != nil {
		return err
	}
	if bonus < 0 {
		return ErrInvalidBonus
	}
	params, err := e.store.GetParameters(ctx)
	if err != nil {
		return err
	}
	old := params.LiquidationBonus
	params.LiquidationBonus = bonus
	if err := e.store.SaveParameters(ctx, params); err != nil {
		return err
	}
	event := e.newEvent(model.EventBonusUpdated, caller, map[string]string{
		"oldBonus": fmt.Sprint(old),
		"newBonus": fmt.Sprint(bonus),
	})
	if err := e.store.AppendEvent(ctx, event); err != nil {
		return err
	}
	e.emit(event)
	slog.Info("liquidation bonus updated", "bonus", bonus, "by", caller)
	return nil
}

// UpdatePriceFeed swaps the feed backing an asset. Oracle admin only.
func (e *Engine) UpdatePriceFeed(ctx context.Context, caller, assetID string, feed oracle.Feed) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.roles.Require(access.RoleOracleAdmin, caller); err != nil {
		return err
	}
	e.oracle.SetFeed(assetID, feed)
	event := e.newEvent(model.EventOracleUpdated, caller, map[string]string{"asset": assetID})
	if err := e.store.AppendEvent(ctx, event); err != nil {
		return err
	}
	e.emit(event)
	slog.Info("price feed updated", "asset", assetID, "by", caller)
	return nil
}

// --- Internals ---

// readPrices fetches both quotes fresh. One synchronous read at the start
// of an operation; nothing blocks mid-transaction after this.
func (e *Engine) readPrices() (coll, syn model.PriceQuote, err error) {
	coll, err = e.oracle.GetPrice(e.collateral.Symbol)
	if err != nil {
		return model.PriceQuote{}, model.PriceQuote{}, err
	}
	syn, err = e.oracle.GetPrice(e.synthetic.Symbol)
	if err != nil {
		return model.PriceQuote{}, model.PriceQuote{}, err
	}
	return coll, syn, nil
}

func (e *Engine) newEvent(kind, user string, amounts map[string]string) model.Event {
	return model.Event{
		ID:        uuid.New().String(),
		Type:      kind,
		User:      user,
		Amounts:   amounts,
		Timestamp: e.now().UTC(),
	}
}

func (e *Engine) emit(event model.Event) {
	for _, fn := range e.subs {
		fn(event)
	}
}

func validateRatios(targetCR, minCR int64) error {
	if minCR <= 0 || targetCR <= 0 || minCR >= targetCR {
		return fmt.Errorf("%w: min %d must be positive and below target %d",
			ErrInvalidCollateralRatio, minCR, targetCR)
	}
	return nil
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
