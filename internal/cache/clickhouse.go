package cache

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/aman-zulfiqar/arb-social-trading/internal/models"
	"github.com/aman-zulfiqar/arb-social-trading/internal/storage"
)

// ClickHouseSchemaSQL is the analytics mirror of the trade-history table.
const ClickHouseSchemaSQL = `
CREATE TABLE IF NOT EXISTS trades (
	id                UInt64,
	fid               Int64,
	wallet_address    String,
	tx_hash           String,
	token_address_in  String,
	token_address_out String,
	amount_in         Float64,
	amount_out        Float64,
	timestamp         DateTime64(3, 'UTC'),
	chain             Int64,
	created_at        DateTime64(3, 'UTC')
) ENGINE = ReplacingMergeTree
ORDER BY (chain, tx_hash)
`

type ClickHouseOptions struct {
	Addr     string
	Database string
	Username string
	Password string
}

type ClickHouseStore struct {
	conn driver.Conn
}

var _ storage.TradeSink = (*ClickHouseStore)(nil)

func NewClickHouseStore(ctx context.Context, opts ClickHouseOptions) (*ClickHouseStore, error) {
	if opts.Username == "" {
		opts.Username = "default"
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &ClickHouseStore{conn: conn}, nil
}

// Migrate creates the trades table if missing.
func (c *ClickHouseStore) Migrate(ctx context.Context) error {
	if err := c.conn.Exec(ctx, ClickHouseSchemaSQL); err != nil {
		return fmt.Errorf("failed to create trades table: %w", err)
	}
	return nil
}

func (c *ClickHouseStore) InsertTrade(ctx context.Context, t *models.TradeRow) error {
	query := `
		INSERT INTO trades (
			id, fid, wallet_address, tx_hash, token_address_in, token_address_out,
			amount_in, amount_out, timestamp, chain, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := c.conn.Exec(ctx, query,
		uint64(t.ID),
		t.FID,
		t.WalletAddress,
		t.TxHash,
		t.TokenAddressIn,
		t.TokenAddressOut,
		t.AmountIn,
		t.AmountOut,
		t.Timestamp,
		t.Chain,
		t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	return nil
}

func (c *ClickHouseStore) Ping(ctx context.Context) error { return c.conn.Ping(ctx) }

func (c *ClickHouseStore) Close() error { return c.conn.Close() }
