// Package service provides the HTTP handlers for the synthetic asset
// protocol: minting, redeeming, liquidations, liquidity-pool operations,
// position/ratio queries, and the role-gated admin surface.
//
// Request and response amounts are human-readable decimal strings
// (shopspring/decimal) in the token's display units; the asset registry
// converts them to and from the raw fixed-point integers the engine works
// in. Never float64 for money.
package service

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/etfinity/synthetic-engine/internal/access"
	"github.com/etfinity/synthetic-engine/internal/asset"
	"github.com/etfinity/synthetic-engine/internal/engine"
	"github.com/etfinity/synthetic-engine/internal/limits"
	"github.com/etfinity/synthetic-engine/internal/metrics"
	"github.com/etfinity/synthetic-engine/internal/model"
	"github.com/etfinity/synthetic-engine/internal/oracle"
	"github.com/etfinity/synthetic-engine/internal/store"
)

// accountHeader carries the acting account on admin endpoints.
const accountHeader = "X-Account"

// Service handles protocol operations over HTTP. The engine serializes
// execution internally; handlers stay lock-free.
type Service struct {
	engine       *engine.Engine
	assets       *asset.Registry
	hub          *WSHub // optional WebSocket hub for real-time broadcasts
	feedDecimals uint8
}

// NewService creates the HTTP service. Pass nil for hub if WebSocket
// broadcasting is not needed. feedDecimals is the precision used for
// admin-posted prices.
func NewService(eng *engine.Engine, assets *asset.Registry, hub *WSHub, feedDecimals uint8) *Service {
	return &Service{engine: eng, assets: assets, hub: hub, feedDecimals: feedDecimals}
}

// Routes mounts all handlers on a chi router.
func (s *Service) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/mint", s.Mint)
		r.Post("/redeem", s.Redeem)
		r.Post("/liquidate", s.Liquidate)
		r.Post("/liquidity/add", s.AddLiquidity)
		r.Post("/liquidity/remove", s.RemoveLiquidity)

		r.Get("/positions/{user}", s.GetPosition)
		r.Get("/ratio/{user}", s.GetRatio)
		r.Get("/parameters", s.GetParameters)
		r.Get("/events", s.ListEvents)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/pause", s.AdminPause)
			r.Post("/unpause", s.AdminUnpause)
			r.Post("/ratios", s.AdminUpdateRatios)
			r.Post("/bonus", s.AdminUpdateBonus)
			r.Post("/price", s.AdminPostPrice)
		})

		if s.hub != nil {
			r.Get("/ws", s.hub.HandleWS)
		}
	})
	r.Get("/health", s.Health)
}

// --- Request/Response types ---

// MintRequest is the JSON body for POST /api/v1/mint.
type MintRequest struct {
	User             string          `json:"user"`
	CollateralAmount decimal.Decimal `json:"collateral_amount"` // USDC, display units
}

// MintResponse is returned from POST /api/v1/mint.
type MintResponse struct {
	User                string `json:"user"`
	CollateralDeposited string `json:"collateral_deposited"`
	SSPYMinted          string `json:"sspy_minted"`
	Ratio               string `json:"ratio"`
}

// RedeemRequest is the JSON body for POST /api/v1/redeem.
type RedeemRequest struct {
	User       string          `json:"user"`
	SSPYAmount decimal.Decimal `json:"sspy_amount"`
}

// RedeemResponse is returned from POST /api/v1/redeem.
type RedeemResponse struct {
	User               string `json:"user"`
	SSPYBurned         string `json:"sspy_burned"`
	CollateralReturned string `json:"collateral_returned"`
}

// LiquidateRequest is the JSON body for POST /api/v1/liquidate.
type LiquidateRequest struct {
	Liquidator string          `json:"liquidator"`
	Borrower   string          `json:"borrower"`
	SSPYAmount decimal.Decimal `json:"sspy_amount"` // debt to repay
}

// LiquidateResponse is returned from POST /api/v1/liquidate.
type LiquidateResponse struct {
	Borrower           string `json:"borrower"`
	Liquidator         string `json:"liquidator"`
	SSPYRepaid         string `json:"sspy_repaid"`
	CollateralReceived string `json:"collateral_received"`
	LiquidationBonus   string `json:"liquidation_bonus"`
}

// LiquidityRequest is the JSON body for POST /api/v1/liquidity/add.
type LiquidityRequest struct {
	User       string          `json:"user"`
	SSPYAmount decimal.Decimal `json:"sspy_amount"`
	USDCAmount decimal.Decimal `json:"usdc_amount"`
}

// LiquidityResponse is returned from the liquidity endpoints. LP tokens are
// denominated in the collateral token's units.
type LiquidityResponse struct {
	User         string `json:"user"`
	LPTokens     string `json:"lp_tokens"`
	SSPYReturned string `json:"sspy_returned,omitempty"`
	USDCReturned string `json:"usdc_returned,omitempty"`
}

// RemoveLiquidityRequest is the JSON body for POST /api/v1/liquidity/remove.
type RemoveLiquidityRequest struct {
	User     string          `json:"user"`
	LPTokens decimal.Decimal `json:"lp_tokens"`
}

// PositionResponse is returned from GET /api/v1/positions/{user}.
type PositionResponse struct {
	User             string    `json:"user"`
	CollateralAmount string    `json:"collateral_amount"`
	DebtAmount       string    `json:"debt_amount"`
	LPShares         string    `json:"lp_shares"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// RatioResponse is returned from GET /api/v1/ratio/{user}. Bps is omitted
// when the position carries no debt.
type RatioResponse struct {
	User     string `json:"user"`
	Infinite bool   `json:"infinite"`
	Bps      string `json:"bps,omitempty"`
	Healthy  bool   `json:"healthy"`
}

// UpdateRatiosRequest is the JSON body for POST /api/v1/admin/ratios.
type UpdateRatiosRequest struct {
	TargetRatio int64 `json:"target_ratio"` // scaled by 100, 15000 = 150%
	MinRatio    int64 `json:"min_ratio"`
}

// UpdateBonusRequest is the JSON body for POST /api/v1/admin/bonus.
type UpdateBonusRequest struct {
	Bonus int64 `json:"bonus"` // percentage, 10 = 10%
}

// PostPriceRequest is the JSON body for POST /api/v1/admin/price.
type PostPriceRequest struct {
	Asset string          `json:"asset"`
	Price decimal.Decimal `json:"price"` // display units, e.g. "5000.00"
}

// --- HTTP Handlers ---

// Mint handles POST /api/v1/mint.
func (s *Service) Mint(w http.ResponseWriter, r *http.Request) {
	var req MintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	collateralIn, err := s.assets.ParseAmount("USDC", req.CollateralAmount.String())
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	minted, err := s.engine.Mint(r.Context(), req.User, collateralIn)
	if err != nil {
		s.writeEngineError(w, "mint", err)
		return
	}
	metrics.MintsTotal.Inc()

	current, err := s.engine.CurrentRatio(r.Context(), req.User)
	if err != nil {
		s.writeEngineError(w, "mint", err)
		return
	}

	writeJSON(w, http.StatusOK, MintResponse{
		User:                req.User,
		CollateralDeposited: s.assets.MustFormat("USDC", collateralIn),
		SSPYMinted:          s.assets.MustFormat("sSPY", minted),
		Ratio:               current.String(),
	})
}

// Redeem handles POST /api/v1/redeem.
func (s *Service) Redeem(w http.ResponseWriter, r *http.Request) {
	var req RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	syntheticIn, err := s.assets.ParseAmount("sSPY", req.SSPYAmount.String())
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	returned, err := s.engine.Redeem(r.Context(), req.User, syntheticIn)
	if err != nil {
		s.writeEngineError(w, "redeem", err)
		return
	}
	metrics.RedeemsTotal.Inc()

	writeJSON(w, http.StatusOK, RedeemResponse{
		User:               req.User,
		SSPYBurned:         s.assets.MustFormat("sSPY", syntheticIn),
		CollateralReturned: s.assets.MustFormat("USDC", returned),
	})
}

// Liquidate handles POST /api/v1/liquidate.
func (s *Service) Liquidate(w http.ResponseWriter, r *http.Request) {
	var req LiquidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	repay, err := s.assets.ParseAmount("sSPY", req.SSPYAmount.String())
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	seized, bonus, err := s.engine.Liquidate(r.Context(), req.Liquidator, req.Borrower, repay)
	if err != nil {
		s.writeEngineError(w, "liquidate", err)
		return
	}
	metrics.LiquidationsTotal.Inc()

	writeJSON(w, http.StatusOK, LiquidateResponse{
		Borrower:           req.Borrower,
		Liquidator:         req.Liquidator,
		SSPYRepaid:         s.assets.MustFormat("sSPY", repay),
		CollateralReceived: s.assets.MustFormat("USDC", seized),
		LiquidationBonus:   s.assets.MustFormat("USDC", bonus),
	})
}

// AddLiquidity handles POST /api/v1/liquidity/add.
func (s *Service) AddLiquidity(w http.ResponseWriter, r *http.Request) {
	var req LiquidityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	sspyIn, err := s.assets.ParseAmount("sSPY", req.SSPYAmount.String())
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	usdcIn, err := s.assets.ParseAmount("USDC", req.USDCAmount.String())
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	minted, err := s.engine.AddLiquidity(r.Context(), req.User, sspyIn, usdcIn)
	if err != nil {
		s.writeEngineError(w, "add_liquidity", err)
		return
	}

	writeJSON(w, http.StatusOK, LiquidityResponse{
		User:     req.User,
		LPTokens: s.assets.MustFormat("USDC", minted),
	})
}

// RemoveLiquidity handles POST /api/v1/liquidity/remove.
func (s *Service) RemoveLiquidity(w http.ResponseWriter, r *http.Request) {
	var req RemoveLiquidityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	lpTokens, err := s.assets.ParseAmount("USDC", req.LPTokens.String())
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	sspyOut, usdcOut, err := s.engine.RemoveLiquidity(r.Context(), req.User, lpTokens)
	if err != nil {
		s.writeEngineError(w, "remove_liquidity", err)
		return
	}

	writeJSON(w, http.StatusOK, LiquidityResponse{
		User:         req.User,
		LPTokens:     s.assets.MustFormat("USDC", lpTokens),
		SSPYReturned: s.assets.MustFormat("sSPY", sspyOut),
		USDCReturned: s.assets.MustFormat("USDC", usdcOut),
	})
}

// GetPosition handles GET /api/v1/positions/{user}.
func (s *Service) GetPosition(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")

	pos, err := s.engine.Position(r.Context(), user)
	if err != nil {
		s.writeEngineError(w, "position", err)
		return
	}
	shares, err := s.engine.PoolShares(r.Context(), user)
	if err != nil {
		s.writeEngineError(w, "position", err)
		return
	}

	writeJSON(w, http.StatusOK, PositionResponse{
		User:             user,
		CollateralAmount: s.assets.MustFormat("USDC", pos.CollateralAmount),
		DebtAmount:       s.assets.MustFormat("sSPY", pos.DebtAmount),
		LPShares:         s.assets.MustFormat("USDC", shares),
		UpdatedAt:        pos.UpdatedAt,
	})
}

// GetRatio handles GET /api/v1/ratio/{user}.
func (s *Service) GetRatio(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")

	current, err := s.engine.CurrentRatio(r.Context(), user)
	if err != nil {
		s.writeEngineError(w, "ratio", err)
		return
	}
	params, err := s.engine.Parameters(r.Context())
	if err != nil {
		s.writeEngineError(w, "ratio", err)
		return
	}

	resp := RatioResponse{
		User:     user,
		Infinite: current.IsInfinite(),
		Healthy:  !current.Below(params.MinCollateralizationRatio),
	}
	if bps, ok := current.Bps(); ok {
		resp.Bps = bps.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetParameters handles GET /api/v1/parameters.
func (s *Service) GetParameters(w http.ResponseWriter, r *http.Request) {
	params, err := s.engine.Parameters(r.Context())
	if err != nil {
		s.writeEngineError(w, "parameters", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"target_ratio":      params.TargetCollateralizationRatio,
		"min_ratio":         params.MinCollateralizationRatio,
		"liquidation_bonus": params.LiquidationBonus,
		"paused":            s.engine.Paused(),
	})
}

// ListEvents handles GET /api/v1/events?user=&limit=.
func (s *Service) ListEvents(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	events, err := s.engine.Events(r.Context(), user, limit)
	if err != nil {
		s.writeEngineError(w, "events", err)
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// Health handles GET /health.
func (s *Service) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"paused": s.engine.Paused(),
	})
}

// --- Admin handlers ---

// AdminPause handles POST /api/v1/admin/pause.
func (s *Service) AdminPause(w http.ResponseWriter, r *http.Request) {
	caller := r.Header.Get(accountHeader)
	if err := s.engine.PauseProtocol(r.Context(), caller); err != nil {
		s.writeEngineError(w, "pause", err)
		return
	}
	metrics.ProtocolPaused.Set(1)
	writeJSON(w, http.StatusOK, map[string]bool{"paused": true})
}

// AdminUnpause handles POST /api/v1/admin/unpause.
func (s *Service) AdminUnpause(w http.ResponseWriter, r *http.Request) {
	caller := r.Header.Get(accountHeader)
	if err := s.engine.UnpauseProtocol(r.Context(), caller); err != nil {
		s.writeEngineError(w, "unpause", err)
		return
	}
	metrics.ProtocolPaused.Set(0)
	writeJSON(w, http.StatusOK, map[string]bool{"paused": false})
}

// AdminUpdateRatios handles POST /api/v1/admin/ratios.
func (s *Service) AdminUpdateRatios(w http.ResponseWriter, r *http.Request) {
	caller := r.Header.Get(accountHeader)
	var req UpdateRatiosRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.engine.UpdateCollateralizationRatios(r.Context(), caller, req.TargetRatio, req.MinRatio); err != nil {
		s.writeEngineError(w, "update_ratios", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{
		"target_ratio": req.TargetRatio,
		"min_ratio":    req.MinRatio,
	})
}

// AdminUpdateBonus handles POST /api/v1/admin/bonus.
func (s *Service) AdminUpdateBonus(w http.ResponseWriter, r *http.Request) {
	caller := r.Header.Get(accountHeader)
	var req UpdateBonusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.engine.UpdateLiquidationBonus(r.Context(), caller, req.Bonus); err != nil {
		s.writeEngineError(w, "update_bonus", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"bonus": req.Bonus})
}

// AdminPostPrice handles POST /api/v1/admin/price. Installs a fresh manual
// feed for the asset carrying the posted price, through the engine's
// oracle-admin gate.
func (s *Service) AdminPostPrice(w http.ResponseWriter, r *http.Request) {
	caller := r.Header.Get(accountHeader)
	var req PostPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Asset == "" {
		writeError(w, "asset is required", http.StatusBadRequest)
		return
	}
	raw := req.Price.Shift(int32(s.feedDecimals))
	if !raw.IsInteger() || raw.Sign() <= 0 {
		writeError(w, "price must be positive with at most the feed's precision", http.StatusBadRequest)
		return
	}

	feed := oracle.NewManualFeed(s.feedDecimals)
	feed.Post(raw.BigInt(), time.Now())
	if err := s.engine.UpdatePriceFeed(r.Context(), caller, req.Asset, feed); err != nil {
		s.writeEngineError(w, "post_price", err)
		return
	}

	slog.Info("price posted", "asset", req.Asset, "price", req.Price.String(), "by", caller)
	writeJSON(w, http.StatusOK, map[string]string{
		"asset": req.Asset,
		"price": req.Price.String(),
	})
}

// --- Error mapping ---

// writeEngineError translates engine errors into HTTP responses: validation
// failures are 400, missing records 404, economic rejections 409, access
// denials 403, oracle and pause conditions 503.
func (s *Service) writeEngineError(w http.ResponseWriter, operation string, err error) {
	var (
		insufficient *engine.InsufficientFundsError
		notAllowed   *engine.LiquidationNotAllowedError
		unauthorized *access.UnauthorizedError
	)
	switch {
	case errors.Is(err, engine.ErrInvalidAmount),
		errors.Is(err, engine.ErrInvalidAddress),
		errors.Is(err, engine.ErrInvalidCollateralRatio),
		errors.Is(err, engine.ErrInvalidBonus):
		s.reject(operation, "validation")
		writeError(w, err.Error(), http.StatusBadRequest)

	case errors.Is(err, store.ErrNotFound):
		writeError(w, "not found", http.StatusNotFound)

	case errors.As(err, &insufficient),
		errors.As(err, &notAllowed),
		errors.Is(err, engine.ErrLiquidationAmountTooLarge),
		errors.Is(err, engine.ErrCollateralCalculation),
		errors.Is(err, limits.ErrUserCapExceeded),
		errors.Is(err, limits.ErrGlobalCapExceeded),
		errors.Is(err, access.ErrNotPaused):
		s.reject(operation, "economic")
		writeError(w, err.Error(), http.StatusConflict)

	case errors.As(err, &unauthorized):
		s.reject(operation, "access")
		writeError(w, err.Error(), http.StatusForbidden)

	case errors.Is(err, access.ErrPaused):
		s.reject(operation, "paused")
		writeError(w, err.Error(), http.StatusServiceUnavailable)

	case errors.Is(err, oracle.ErrFeedNotSet),
		errors.Is(err, oracle.ErrDataInvalid),
		errors.Is(err, oracle.ErrDataStale):
		s.reject(operation, "oracle")
		writeError(w, err.Error(), http.StatusServiceUnavailable)

	default:
		slog.Error("internal error", "operation", operation, "err", err)
		writeError(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Service) reject(operation, reason string) {
	metrics.OperationsRejected.WithLabelValues(operation, reason).Inc()
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
