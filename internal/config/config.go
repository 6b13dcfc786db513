// Package config loads runtime configuration from environment variables.
package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config represents runtime configuration for the synthetic asset engine.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string

	// AdminAccount is granted DEFAULT_ADMIN_ROLE and ORACLE_ADMIN_ROLE at
	// startup.
	AdminAccount string

	// Risk parameters, used as genesis values when the store is empty.
	// Ratios are scaled by 100 (15000 = 150.00%); the bonus is a plain
	// percentage.
	TargetRatio      int64
	MinRatio         int64
	LiquidationBonus int64

	// OracleMaxAge is the freshness window for price observations.
	OracleMaxAge time.Duration

	// FeedDecimals is the precision of posted prices.
	FeedDecimals uint8

	// Initial feed prices in display units ("1", "5000").
	USDCPrice decimal.Decimal
	SSPYPrice decimal.Decimal

	// Debt ceilings in raw sSPY units; nil disables the cap.
	MaxDebtPerUser *big.Int
	MaxTotalDebt   *big.Int

	CacheTTL time.Duration
}

// FromEnv loads configuration from environment variables. Unset values fall
// back to development defaults; malformed values are errors.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:         getEnvDefault("PORT", "8080"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RedisURL:     os.Getenv("REDIS_URL"),
		AdminAccount: getEnvDefault("ADMIN_ACCOUNT", "admin"),
	}

	var err error
	if cfg.TargetRatio, err = parseInt64Env("TARGET_RATIO", 15000); err != nil {
		return nil, err
	}
	if cfg.MinRatio, err = parseInt64Env("MIN_RATIO", 11000); err != nil {
		return nil, err
	}
	if cfg.LiquidationBonus, err = parseInt64Env("LIQUIDATION_BONUS", 10); err != nil {
		return nil, err
	}

	maxAgeSeconds, err := parseInt64Env("ORACLE_MAX_AGE_SECONDS", 3600)
	if err != nil {
		return nil, err
	}
	cfg.OracleMaxAge = time.Duration(maxAgeSeconds) * time.Second

	feedDecimals, err := parseInt64Env("FEED_DECIMALS", 8)
	if err != nil {
		return nil, err
	}
	if feedDecimals < 0 || feedDecimals > 18 {
		return nil, fmt.Errorf("FEED_DECIMALS %d out of range", feedDecimals)
	}
	cfg.FeedDecimals = uint8(feedDecimals)

	if cfg.USDCPrice, err = parseDecimalEnv("USDC_PRICE", "1"); err != nil {
		return nil, err
	}
	if cfg.SSPYPrice, err = parseDecimalEnv("SSPY_PRICE", "5000"); err != nil {
		return nil, err
	}

	// Caps are given in sSPY display units ("100.5"); converted to raw
	// 18-decimal units here.
	if cfg.MaxDebtPerUser, err = parseAmountEnv("MAX_DEBT_PER_USER", 18); err != nil {
		return nil, err
	}
	if cfg.MaxTotalDebt, err = parseAmountEnv("MAX_TOTAL_DEBT", 18); err != nil {
		return nil, err
	}

	cacheTTLSeconds, err := parseInt64Env("CACHE_TTL_SECONDS", 30)
	if err != nil {
		return nil, err
	}
	cfg.CacheTTL = time.Duration(cacheTTLSeconds) * time.Second

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.AdminAccount) == "" {
		return fmt.Errorf("ADMIN_ACCOUNT must not be empty")
	}
	if c.MinRatio <= 0 || c.TargetRatio <= 0 || c.MinRatio >= c.TargetRatio {
		return fmt.Errorf("MIN_RATIO %d must be positive and below TARGET_RATIO %d", c.MinRatio, c.TargetRatio)
	}
	if c.LiquidationBonus < 0 {
		return fmt.Errorf("LIQUIDATION_BONUS must not be negative")
	}
	if c.OracleMaxAge <= 0 {
		return fmt.Errorf("ORACLE_MAX_AGE_SECONDS must be positive")
	}
	if c.USDCPrice.Sign() <= 0 || c.SSPYPrice.Sign() <= 0 {
		return fmt.Errorf("initial prices must be positive")
	}
	return nil
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt64Env(key string, def int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return def, nil
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return parsed, nil
}

func parseDecimalEnv(key, def string) (decimal.Decimal, error) {
	value := getEnvDefault(key, def)
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return parsed, nil
}

// parseAmountEnv converts a display-unit amount to raw units with the given
// decimals. Unset means no cap (nil).
func parseAmountEnv(key string, decimals int32) (*big.Int, error) {
	value := os.Getenv(key)
	if value == "" {
		return nil, nil
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	raw := parsed.Shift(decimals)
	if !raw.IsInteger() || raw.Sign() <= 0 {
		return nil, fmt.Errorf("invalid %s %q: must be positive with at most %d decimals", key, value, decimals)
	}
	return raw.BigInt(), nil
}
