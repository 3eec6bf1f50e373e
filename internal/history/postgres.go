package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/suwandre/arbwatch/internal/models"
)

const createOpportunityTable = `
	CREATE TABLE IF NOT EXISTS opportunity_history (
		id                 UUID PRIMARY KEY,
		symbol             TEXT NOT NULL,
		observed_at        TIMESTAMPTZ NOT NULL,
		buy_exchange       TEXT NOT NULL,
		buy_price_raw      DOUBLE PRECISION NOT NULL,
		buy_price_fee_adj  DOUBLE PRECISION NOT NULL,
		buy_fee_rate       DOUBLE PRECISION NOT NULL,
		sell_exchange      TEXT NOT NULL,
		sell_price_raw     DOUBLE PRECISION NOT NULL,
		sell_price_fee_adj DOUBLE PRECISION NOT NULL,
		sell_fee_rate      DOUBLE PRECISION NOT NULL,
		quantity           DOUBLE PRECISION NOT NULL,
		capital_invested   DOUBLE PRECISION NOT NULL,
		capital_received   DOUBLE PRECISION NOT NULL,
		profit             DOUBLE PRECISION NOT NULL,
		profit_pct         DOUBLE PRECISION NOT NULL,
		same_venue         BOOLEAN NOT NULL DEFAULT FALSE,
		recorded_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS opportunity_history_observed_at_idx
		ON opportunity_history (observed_at DESC);`

// Existing rows are never touched; a replayed ID is ignored.
const insertOpportunity = `
	INSERT INTO opportunity_history (
		id, symbol, observed_at,
		buy_exchange, buy_price_raw, buy_price_fee_adj, buy_fee_rate,
		sell_exchange, sell_price_raw, sell_price_fee_adj, sell_fee_rate,
		quantity, capital_invested, capital_received, profit, profit_pct,
		same_venue
	) VALUES (
		$1, $2, $3,
		$4, $5, $6, $7,
		$8, $9, $10, $11,
		$12, $13, $14, $15, $16,
		$17
	)
	ON CONFLICT (id) DO NOTHING`

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRecorder appends opportunities to the opportunity_history table.
type PostgresRecorder struct {
	db    execer
	close func()
}

// NewPostgresRecorder connects to dsn, verifies the connection and makes sure
// the history table exists.
func NewPostgresRecorder(ctx context.Context, dsn string) (*PostgresRecorder, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres history: parse config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres history: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres history: ping: %w", err)
	}

	r := &PostgresRecorder{db: pool, close: pool.Close}
	if err := r.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

func (r *PostgresRecorder) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createOpportunityTable); err != nil {
		return fmt.Errorf("postgres history: create table: %w", err)
	}
	return nil
}

func (r *PostgresRecorder) Record(ctx context.Context, opp models.Opportunity) error {
	_, err := r.db.Exec(ctx, insertOpportunity,
		opp.ID, opp.Symbol, opp.ObservedAt,
		opp.BuyExchange, opp.BuyPriceRaw, opp.BuyPriceFeeAdj, opp.BuyFeeRate,
		opp.SellExchange, opp.SellPriceRaw, opp.SellPriceFeeAdj, opp.SellFeeRate,
		opp.Quantity, opp.CapitalInvested, opp.CapitalReceived, opp.Profit, opp.ProfitPct,
		opp.SameVenue,
	)
	if err != nil {
		return fmt.Errorf("postgres history: insert opportunity %s: %w", opp.ID, err)
	}
	return nil
}

func (r *PostgresRecorder) Close() error {
	if r.close != nil {
		r.close()
	}
	return nil
}
