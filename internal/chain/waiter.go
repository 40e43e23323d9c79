package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

// ReceiptFetcher is the subset of ethclient.Client the resolver needs.
type ReceiptFetcher interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// ErrWaitTimeout is returned when no receipt shows up within the bounded wait.
var ErrWaitTimeout = errors.New("timed out waiting for receipt")

// ErrLookupFailed is returned when the RPC answers with anything but not-found.
var ErrLookupFailed = errors.New("receipt lookup failed")

// Waiter polls one chain for a transaction receipt.
type Waiter struct {
	ChainID  int64
	Fetcher  ReceiptFetcher
	Timeout  time.Duration
	Interval time.Duration
	Logger   *logrus.Logger
}

// Wait polls until a receipt is returned, the timeout elapses, or ctx ends.
// Only not-found keeps the poll going; any other RPC error ends the wait on
// this chain at once.
func (w *Waiter) Wait(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, w.Timeout)
	defer cancel()

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		receipt, err := w.Fetcher.TransactionReceipt(waitCtx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) && waitCtx.Err() == nil {
			w.Logger.WithError(err).WithFields(logrus.Fields{
				"chain": w.ChainID,
				"tx":    hash.Hex(),
			}).Debug("receipt poll failed")
			return nil, fmt.Errorf("%w on chain %d: %v", ErrLookupFailed, w.ChainID, err)
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w on chain %d", ErrWaitTimeout, w.ChainID)
		case <-ticker.C:
		}
	}
}
