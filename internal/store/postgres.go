package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/etfinity/synthetic-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact integer precision and
// travel to and from the database as strings.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema applies the DDL. Safe to run repeatedly.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS positions (
			user_id    TEXT PRIMARY KEY,
			collateral NUMERIC NOT NULL DEFAULT 0,
			debt       NUMERIC NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS pool_state (
			id           BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (id),
			sspy_reserve NUMERIC NOT NULL DEFAULT 0,
			usdc_reserve NUMERIC NOT NULL DEFAULT 0,
			total_shares NUMERIC NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS pool_shares (
			user_id TEXT PRIMARY KEY,
			shares  NUMERIC NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS protocol_parameters (
			id        BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (id),
			target_cr BIGINT NOT NULL,
			min_cr    BIGINT NOT NULL,
			bonus     BIGINT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS events (
			id        TEXT PRIMARY KEY,
			type      TEXT NOT NULL,
			user_id   TEXT NOT NULL DEFAULT '',
			amounts   JSONB,
			timestamp TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS events_user_idx ON events (user_id, timestamp DESC);
	`)
	return err
}

func (s *PostgresStore) GetPosition(ctx context.Context, user string) (*model.Position, error) {
	p := model.NewPosition(user)
	var collateral, debt string

	err := s.pool.QueryRow(ctx,
		`SELECT collateral::TEXT, debt::TEXT, updated_at
		 FROM positions WHERE user_id = $1`, user).
		Scan(&collateral, &debt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, nil // implicit zero position
	}
	if err != nil {
		return nil, fmt.Errorf("get position %s: %w", user, err)
	}

	if err := setBig(p.CollateralAmount, collateral); err != nil {
		return nil, fmt.Errorf("position %s collateral: %w", user, err)
	}
	if err := setBig(p.DebtAmount, debt); err != nil {
		return nil, fmt.Errorf("position %s debt: %w", user, err)
	}
	return p, nil
}

func (s *PostgresStore) TotalDebt(ctx context.Context) (*big.Int, error) {
	var totalS string
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(debt), 0)::TEXT FROM positions`).Scan(&totalS)
	if err != nil {
		return nil, fmt.Errorf("total debt: %w", err)
	}
	total := new(big.Int)
	if err := setBig(total, totalS); err != nil {
		return nil, err
	}
	return total, nil
}

func (s *PostgresStore) GetParameters(ctx context.Context) (*model.ProtocolParameters, error) {
	var params model.ProtocolParameters
	err := s.pool.QueryRow(ctx,
		`SELECT target_cr, min_cr, bonus FROM protocol_parameters WHERE id`).
		Scan(&params.TargetCollateralizationRatio,
			&params.MinCollateralizationRatio,
			&params.LiquidationBonus)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get parameters: %w", err)
	}
	return &params, nil
}

func (s *PostgresStore) SaveParameters(ctx context.Context, params *model.ProtocolParameters) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO protocol_parameters (id, target_cr, min_cr, bonus)
		 VALUES (TRUE, $1, $2, $3)
		 ON CONFLICT (id) DO UPDATE
		 SET target_cr = EXCLUDED.target_cr,
		     min_cr = EXCLUDED.min_cr,
		     bonus = EXCLUDED.bonus`,
		params.TargetCollateralizationRatio,
		params.MinCollateralizationRatio,
		params.LiquidationBonus,
	)
	return err
}

func (s *PostgresStore) GetPool(ctx context.Context) (*model.PoolState, error) {
	ps := model.NewPoolState()
	var sspy, usdc, shares string

	err := s.pool.QueryRow(ctx,
		`SELECT sspy_reserve::TEXT, usdc_reserve::TEXT, total_shares::TEXT
		 FROM pool_state WHERE id`).Scan(&sspy, &usdc, &shares)
	if errors.Is(err, pgx.ErrNoRows) {
		return ps, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pool: %w", err)
	}

	if err := setBig(ps.SSPYReserve, sspy); err != nil {
		return nil, err
	}
	if err := setBig(ps.USDCReserve, usdc); err != nil {
		return nil, err
	}
	if err := setBig(ps.TotalShares, shares); err != nil {
		return nil, err
	}
	return ps, nil
}

func (s *PostgresStore) GetPoolShares(ctx context.Context, user string) (*big.Int, error) {
	var sharesS string
	err := s.pool.QueryRow(ctx,
		`SELECT shares::TEXT FROM pool_shares WHERE user_id = $1`, user).Scan(&sharesS)
	if errors.Is(err, pgx.ErrNoRows) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pool shares %s: %w", user, err)
	}
	shares := new(big.Int)
	if err := setBig(shares, sharesS); err != nil {
		return nil, err
	}
	return shares, nil
}

// Apply commits the transition in one database transaction so a crash can
// never leave a position updated without its audit event (or vice versa).
func (s *PostgresStore) Apply(ctx context.Context, tx Transition) error {
	dbtx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transition: %w", err)
	}
	defer dbtx.Rollback(ctx)

	for _, p := range tx.Positions {
		if _, err := dbtx.Exec(ctx,
			`INSERT INTO positions (user_id, collateral, debt, updated_at)
			 VALUES ($1, $2::NUMERIC, $3::NUMERIC, $4)
			 ON CONFLICT (user_id) DO UPDATE
			 SET collateral = EXCLUDED.collateral,
			     debt = EXCLUDED.debt,
			     updated_at = EXCLUDED.updated_at`,
			p.User, p.CollateralAmount.String(), p.DebtAmount.String(), p.UpdatedAt,
		); err != nil {
			return fmt.Errorf("apply position %s: %w", p.User, err)
		}
	}

	if tx.Pool != nil {
		if _, err := dbtx.Exec(ctx,
			`INSERT INTO pool_state (id, sspy_reserve, usdc_reserve, total_shares)
			 VALUES (TRUE, $1::NUMERIC, $2::NUMERIC, $3::NUMERIC)
			 ON CONFLICT (id) DO UPDATE
			 SET sspy_reserve = EXCLUDED.sspy_reserve,
			     usdc_reserve = EXCLUDED.usdc_reserve,
			     total_shares = EXCLUDED.total_shares`,
			tx.Pool.SSPYReserve.String(), tx.Pool.USDCReserve.String(), tx.Pool.TotalShares.String(),
		); err != nil {
			return fmt.Errorf("apply pool state: %w", err)
		}
	}

	for user, shares := range tx.PoolShares {
		if _, err := dbtx.Exec(ctx,
			`INSERT INTO pool_shares (user_id, shares)
			 VALUES ($1, $2::NUMERIC)
			 ON CONFLICT (user_id) DO UPDATE SET shares = EXCLUDED.shares`,
			user, shares.String(),
		); err != nil {
			return fmt.Errorf("apply pool shares %s: %w", user, err)
		}
	}

	if err := insertEvent(ctx, dbtx, tx.Event); err != nil {
		return err
	}

	return dbtx.Commit(ctx)
}

func (s *PostgresStore) AppendEvent(ctx context.Context, event model.Event) error {
	return insertEvent(ctx, s.pool, event)
}

func (s *PostgresStore) ListEvents(ctx context.Context, user string, limit int) ([]model.Event, error) {
	query := `SELECT id, type, user_id, amounts, timestamp FROM events`
	args := []any{}
	if user != "" {
		query += ` WHERE user_id = $1`
		args = append(args, user)
	}
	query += ` ORDER BY timestamp DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		var amounts []byte
		if err := rows.Scan(&e.ID, &e.Type, &e.User, &amounts, &e.Timestamp); err != nil {
			return nil, err
		}
		if len(amounts) > 0 {
			if err := json.Unmarshal(amounts, &e.Amounts); err != nil {
				return nil, fmt.Errorf("event %s amounts: %w", e.ID, err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// pgExecer covers both pgxpool.Pool and pgx.Tx for event insertion.
type pgExecer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func insertEvent(ctx context.Context, db pgExecer, event model.Event) error {
	var amounts []byte
	if len(event.Amounts) > 0 {
		var err error
		amounts, err = json.Marshal(event.Amounts)
		if err != nil {
			return fmt.Errorf("marshal event amounts: %w", err)
		}
	}
	if _, err := db.Exec(ctx,
		`INSERT INTO events (id, type, user_id, amounts, timestamp)
		 VALUES ($1, $2, $3, $4, $5)`,
		event.ID, event.Type, event.User, amounts, event.Timestamp,
	); err != nil {
		return fmt.Errorf("append event %s: %w", event.ID, err)
	}
	return nil
}

func setBig(dst *big.Int, s string) error {
	if _, ok := dst.SetString(s, 10); !ok {
		return fmt.Errorf("invalid numeric %q", s)
	}
	return nil
}
