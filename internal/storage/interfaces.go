package storage

import (
	"context"
	"io"
	"time"

	"github.com/aman-zulfiqar/arb-social-trading/internal/models"
)

// TradeStore persists trade records
type TradeStore interface {
	// InsertTrade stores the record and returns the persisted row. If a row
	// with the same tx hash already exists it is returned with created=false.
	InsertTrade(ctx context.Context, trade *models.TradeRecord) (row *models.TradeRow, created bool, err error)

	// TradesByFID lists a user's trades newest first, optionally on one chain
	TradesByFID(ctx context.Context, fid, chain int64, limit int) ([]*models.TradeRow, error)

	// Ping checks if the store is reachable
	Ping(ctx context.Context) error

	// Close releases the connection pool
	Close()
}

// TokenCache caches token listings from the blockchain data provider
type TokenCache interface {
	// GetTokens returns the cached listing for key, or ok=false on a miss
	GetTokens(ctx context.Context, key string) (tokens []models.Token, ok bool, err error)

	// SetTokens caches a listing for ttl
	SetTokens(ctx context.Context, key string, tokens []models.Token, ttl time.Duration) error
}

// TradeFeed distributes stored trades to live subscribers
type TradeFeed interface {
	// PublishTrade publishes a stored trade
	PublishTrade(ctx context.Context, trade *models.TradeRow) error

	// SubscribeTrades streams trades published on channel until ctx ends
	SubscribeTrades(ctx context.Context, channel string) (<-chan *models.TradeRow, error)
}

// TradeSink mirrors stored trades into an analytics store
type TradeSink interface {
	// InsertTrade appends a stored trade
	InsertTrade(ctx context.Context, trade *models.TradeRow) error

	// Ping checks if the sink is reachable
	Ping(ctx context.Context) error

	io.Closer
}
