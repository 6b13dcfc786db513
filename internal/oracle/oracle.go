// Package oracle wraps external price feeds behind a normalized adapter.
// The adapter enforces the two hard admission rules on every read: the
// reported price must be positive and the observation must be inside the
// configured freshness window. A stale price in a leveraged accounting
// system misprices collateral, so staleness is a hard rejection surfaced to
// the caller: no retries, no fallback to the last good value.
package oracle

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/etfinity/synthetic-engine/internal/model"
)

var (
	// ErrFeedNotSet is returned when no feed is registered for an asset.
	ErrFeedNotSet = errors.New("oracle: price feed not set")

	// ErrDataInvalid is returned when a feed reports a non-positive price.
	ErrDataInvalid = errors.New("oracle: price feed data invalid")

	// ErrDataStale is returned when the observation is older than the
	// freshness window.
	ErrDataStale = errors.New("oracle: price feed data stale")
)

// Feed supplies the latest observation for one asset. Implementations are
// expected to be fast and local; the adapter performs no retries.
type Feed interface {
	LatestQuote() (model.PriceQuote, error)
}

// Adapter resolves per-asset quotes and applies the freshness and validity
// checks. Feeds can be swapped at runtime through the role-gated admin
// surface; the adapter itself holds no price state.
type Adapter struct {
	mu     sync.RWMutex
	feeds  map[string]Feed
	maxAge time.Duration
	now    func() time.Time
}

// NewAdapter creates an adapter with the given freshness window.
func NewAdapter(maxAge time.Duration) *Adapter {
	return &Adapter{
		feeds:  make(map[string]Feed),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// SetClock overrides the time source. Tests use this to pin "now".
func (a *Adapter) SetClock(now func() time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if now != nil {
		a.now = now
	}
}

// SetFeed registers or replaces the feed for an asset.
func (a *Adapter) SetFeed(assetID string, feed Feed) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.feeds[normalize(assetID)] = feed
}

// GetPrice returns a validated, fresh quote for the asset.
func (a *Adapter) GetPrice(assetID string) (model.PriceQuote, error) {
	a.mu.RLock()
	feed, ok := a.feeds[normalize(assetID)]
	now := a.now
	maxAge := a.maxAge
	a.mu.RUnlock()

	if !ok || feed == nil {
		return model.PriceQuote{}, fmt.Errorf("%w: %s", ErrFeedNotSet, assetID)
	}

	quote, err := feed.LatestQuote()
	if err != nil {
		return model.PriceQuote{}, fmt.Errorf("%w: %s: %v", ErrDataInvalid, assetID, err)
	}
	if quote.Price == nil || quote.Price.Sign() <= 0 {
		return model.PriceQuote{}, fmt.Errorf("%w: %s reported non-positive price", ErrDataInvalid, assetID)
	}
	if maxAge > 0 {
		if age := now().Sub(quote.ObservedAt); age > maxAge {
			return model.PriceQuote{}, fmt.Errorf("%w: %s observation is %s old (max %s)",
				ErrDataStale, assetID, age.Round(time.Second), maxAge)
		}
	}
	return quote, nil
}

// MaxAge returns the configured freshness window.
func (a *Adapter) MaxAge() time.Duration {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.maxAge
}

func normalize(assetID string) string {
	return strings.ToUpper(strings.TrimSpace(assetID))
}

// ManualFeed is a feed whose price is posted by an operator or test. It
// stands in for an on-chain aggregator: each post records the price, its
// decimals, and the observation time.
type ManualFeed struct {
	mu       sync.RWMutex
	quote    model.PriceQuote
	hasQuote bool
}

// NewManualFeed creates a feed with no initial observation.
func NewManualFeed(decimals uint8) *ManualFeed {
	return &ManualFeed{quote: model.PriceQuote{Decimals: decimals}}
}

// Post records a new observation.
func (f *ManualFeed) Post(price *big.Int, observedAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quote.Price = new(big.Int).Set(price)
	f.quote.ObservedAt = observedAt
	f.hasQuote = true
}

// LatestQuote implements Feed.
func (f *ManualFeed) LatestQuote() (model.PriceQuote, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.hasQuote {
		return model.PriceQuote{}, errors.New("no observation posted")
	}
	q := model.PriceQuote{
		Price:      new(big.Int).Set(f.quote.Price),
		Decimals:   f.quote.Decimals,
		ObservedAt: f.quote.ObservedAt,
	}
	return q, nil
}
