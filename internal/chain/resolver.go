package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/arb-social-trading/internal/constants"
	"github.com/aman-zulfiqar/arb-social-trading/internal/metrics"
)

// ErrReceiptNotFound means no configured chain produced a receipt in time.
var ErrReceiptNotFound = errors.New("transaction receipt not found on any chain")

// Endpoint is one chain the resolver may look on.
type Endpoint struct {
	ChainID int64
	Client  ReceiptFetcher
}

// Resolution is a receipt and the chain it was found on.
type Resolution struct {
	ChainID int64
	TxHash  string
	Receipt *types.Receipt
}

// Resolver looks for a receipt on each endpoint in order. The next chain is
// queried only after the previous one timed out or failed.
type Resolver struct {
	endpoints    []Endpoint
	timeout      time.Duration
	pollInterval time.Duration
	logger       *logrus.Logger
}

// ResolverConfig holds configuration for the resolver
type ResolverConfig struct {
	Endpoints    []Endpoint
	Timeout      time.Duration
	PollInterval time.Duration
	Logger       *logrus.Logger
}

// NewResolver creates a resolver over the given endpoints
func NewResolver(cfg ResolverConfig) (*Resolver, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("resolver needs at least one endpoint")
	}
	for _, ep := range cfg.Endpoints {
		if ep.Client == nil {
			return nil, fmt.Errorf("endpoint for chain %d has no client", ep.ChainID)
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = constants.ReceiptTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = constants.ReceiptPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	return &Resolver{
		endpoints:    cfg.Endpoints,
		timeout:      cfg.Timeout,
		pollInterval: cfg.PollInterval,
		logger:       cfg.Logger,
	}, nil
}

// Chains returns the configured chain ids in lookup order.
func (r *Resolver) Chains() []int64 {
	out := make([]int64, 0, len(r.endpoints))
	for _, ep := range r.endpoints {
		out = append(out, ep.ChainID)
	}
	return out
}

// Resolve tries every configured chain in order.
func (r *Resolver) Resolve(ctx context.Context, txHash string) (*Resolution, error) {
	return r.ResolveOn(ctx, txHash)
}

// ResolveOn tries only the listed chains, keeping the configured order.
// With no chain ids it tries all of them.
func (r *Resolver) ResolveOn(ctx context.Context, txHash string, chainIDs ...int64) (*Resolution, error) {
	hash := common.HexToHash(txHash)

	for _, ep := range r.endpoints {
		if len(chainIDs) > 0 && !contains(chainIDs, ep.ChainID) {
			continue
		}

		w := &Waiter{
			ChainID:  ep.ChainID,
			Fetcher:  ep.Client,
			Timeout:  r.timeout,
			Interval: r.pollInterval,
			Logger:   r.logger,
		}
		receipt, err := w.Wait(ctx, hash)
		if err == nil {
			metrics.ReceiptLookups.WithLabelValues(chainLabel(ep.ChainID), "found").Inc()
			r.logger.WithFields(logrus.Fields{
				"chain": ep.ChainID,
				"tx":    txHash,
			}).Info("resolved receipt")
			return &Resolution{ChainID: ep.ChainID, TxHash: txHash, Receipt: receipt}, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		metrics.ReceiptLookups.WithLabelValues(chainLabel(ep.ChainID), "missed").Inc()
		r.logger.WithError(err).WithFields(logrus.Fields{
			"chain": ep.ChainID,
			"tx":    txHash,
		}).Debug("receipt not found on chain")
	}

	r.logger.WithField("tx", txHash).Warn("transaction not found on any configured chain")
	return nil, ErrReceiptNotFound
}

// DialEndpoints connects an ethclient per RPC url, keyed by chain id, in the
// order given.
func DialEndpoints(ctx context.Context, chains []int64, urls map[int64]string) ([]Endpoint, func(), error) {
	var clients []*ethclient.Client
	closeAll := func() {
		for _, c := range clients {
			c.Close()
		}
	}

	endpoints := make([]Endpoint, 0, len(chains))
	for _, id := range chains {
		url, ok := urls[id]
		if !ok || url == "" {
			closeAll()
			return nil, nil, fmt.Errorf("no RPC url configured for chain %d", id)
		}
		c, err := ethclient.DialContext(ctx, url)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("failed to connect to chain %d RPC: %w", id, err)
		}
		clients = append(clients, c)
		endpoints = append(endpoints, Endpoint{ChainID: id, Client: c})
	}
	return endpoints, closeAll, nil
}

func chainLabel(id int64) string {
	if name, ok := constants.ChainNames[id]; ok {
		return name
	}
	return fmt.Sprintf("%d", id)
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
