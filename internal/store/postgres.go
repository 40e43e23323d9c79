package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aman-zulfiqar/arb-social-trading/internal/models"
	"github.com/aman-zulfiqar/arb-social-trading/internal/storage"
)

// SchemaSQL creates the trade-history table. tx_hash is unique so a retried
// POST cannot record the same swap twice.
const SchemaSQL = `
CREATE SCHEMA IF NOT EXISTS ecosystem;

CREATE TABLE IF NOT EXISTS ecosystem.arb_social_trading (
	id                BIGSERIAL PRIMARY KEY,
	fid               BIGINT        NOT NULL,
	wallet_address    TEXT          NOT NULL DEFAULT '',
	tx_hash           TEXT          NOT NULL UNIQUE,
	token_address_in  TEXT          NOT NULL DEFAULT '',
	token_address_out TEXT          NOT NULL DEFAULT '',
	amount_in         NUMERIC       NOT NULL DEFAULT 0 CHECK (amount_in >= 0),
	amount_out        NUMERIC       NOT NULL DEFAULT 0 CHECK (amount_out >= 0),
	timestamp         TIMESTAMPTZ   NOT NULL,
	chain             BIGINT        NOT NULL,
	created_at        TIMESTAMPTZ   NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS arb_social_trading_fid_idx ON ecosystem.arb_social_trading (fid);
`

const tradeColumns = `id, fid, wallet_address, tx_hash, token_address_in, token_address_out,
	amount_in::float8, amount_out::float8, timestamp, chain, created_at`

type PG struct {
	pool *pgxpool.Pool
}

var _ storage.TradeStore = (*PG)(nil)

// NewPG opens a managed pool capped at maxConns connections.
func NewPG(ctx context.Context, dsn string, maxConns int) (*PG, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	return &PG{pool: pool}, nil
}

func (p *PG) Close() { p.pool.Close() }

func (p *PG) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

// Migrate applies SchemaSQL.
func (p *PG) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, SchemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (p *PG) InsertTrade(ctx context.Context, t *models.TradeRecord) (*models.TradeRow, bool, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO ecosystem.arb_social_trading (
			fid, wallet_address, tx_hash, token_address_in, token_address_out,
			amount_in, amount_out, timestamp, chain
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (tx_hash) DO NOTHING
		RETURNING `+tradeColumns,
		t.FID, t.WalletAddress, t.TxHash, t.TokenAddressIn, t.TokenAddressOut,
		t.AmountIn, t.AmountOut, t.Timestamp, t.Chain)

	out, err := scanTrade(row)
	if err == nil {
		return out, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("insert trade: %w", err)
	}

	// Conflict on tx_hash: hand back the row that is already there.
	existing, err := scanTrade(p.pool.QueryRow(ctx,
		`SELECT `+tradeColumns+` FROM ecosystem.arb_social_trading WHERE tx_hash = $1`, t.TxHash))
	if err != nil {
		return nil, false, fmt.Errorf("load existing trade: %w", err)
	}
	return existing, false, nil
}

// TradesByFID lists a user's trades, newest first. A chain of 0 matches
// every chain.
func (p *PG) TradesByFID(ctx context.Context, fid, chain int64, limit int) ([]*models.TradeRow, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+tradeColumns+` FROM ecosystem.arb_social_trading
		WHERE fid = $1 AND ($2::bigint = 0 OR chain = $2)
		ORDER BY timestamp DESC LIMIT $3`,
		fid, chain, limit)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	out := []*models.TradeRow{}
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTrade(row pgx.Row) (*models.TradeRow, error) {
	var t models.TradeRow
	err := row.Scan(&t.ID, &t.FID, &t.WalletAddress, &t.TxHash, &t.TokenAddressIn, &t.TokenAddressOut,
		&t.AmountIn, &t.AmountOut, &t.Timestamp, &t.Chain, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
