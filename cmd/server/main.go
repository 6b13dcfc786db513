package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/etfinity/synthetic-engine/internal/access"
	"github.com/etfinity/synthetic-engine/internal/asset"
	"github.com/etfinity/synthetic-engine/internal/config"
	"github.com/etfinity/synthetic-engine/internal/engine"
	"github.com/etfinity/synthetic-engine/internal/limits"
	"github.com/etfinity/synthetic-engine/internal/metrics"
	"github.com/etfinity/synthetic-engine/internal/model"
	"github.com/etfinity/synthetic-engine/internal/oracle"
	"github.com/etfinity/synthetic-engine/internal/service"
	"github.com/etfinity/synthetic-engine/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		pg := store.NewPostgresStore(pool)
		if err := pg.EnsureSchema(context.Background()); err != nil {
			slog.Error("schema migration failed", "err", err)
			os.Exit(1)
		}
		st = pg
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if cfg.RedisURL != "" {
			opt, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, cfg.CacheTTL)
			slog.Info("Redis cache enabled")
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Assets and oracle ---
	assets := asset.DefaultRegistry()
	usdc, err := assets.Get("USDC")
	if err != nil {
		slog.Error("asset registry", "err", err)
		os.Exit(1)
	}
	sspy, err := assets.Get("sSPY")
	if err != nil {
		slog.Error("asset registry", "err", err)
		os.Exit(1)
	}

	adapter := oracle.NewAdapter(cfg.OracleMaxAge)
	now := time.Now()
	usdcFeed := oracle.NewManualFeed(cfg.FeedDecimals)
	usdcFeed.Post(cfg.USDCPrice.Shift(int32(cfg.FeedDecimals)).BigInt(), now)
	sspyFeed := oracle.NewManualFeed(cfg.FeedDecimals)
	sspyFeed.Post(cfg.SSPYPrice.Shift(int32(cfg.FeedDecimals)).BigInt(), now)
	adapter.SetFeed(usdc.Symbol, usdcFeed)
	adapter.SetFeed(sspy.Symbol, sspyFeed)

	// --- Access control and debt ceilings ---
	roles := access.NewRegistry(cfg.AdminAccount)
	var limiter *limits.DebtLimiter
	if cfg.MaxDebtPerUser != nil || cfg.MaxTotalDebt != nil {
		limiter = limits.NewDebtLimiter(cfg.MaxDebtPerUser, cfg.MaxTotalDebt)
	}

	// --- Engine ---
	eng := engine.New(st, adapter, roles, limiter, usdc, sspy)
	if err := eng.Init(context.Background(), model.ProtocolParameters{
		TargetCollateralizationRatio: cfg.TargetRatio,
		MinCollateralizationRatio:    cfg.MinRatio,
		LiquidationBonus:             cfg.LiquidationBonus,
	}); err != nil {
		slog.Error("engine init failed", "err", err)
		os.Exit(1)
	}

	// --- WebSocket hub ---
	wsHub := service.NewWSHub()
	go wsHub.Run()
	eng.Subscribe(wsHub.BroadcastEvent)

	// --- HTTP service ---
	svc := service.NewService(eng, assets, wsHub, cfg.FeedDecimals)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Account")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	svc.Routes(r)

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("synthetic-engine listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down synthetic-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("synthetic-engine stopped")
}
