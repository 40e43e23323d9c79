package recorder

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/arb-social-trading/internal/amounts"
	"github.com/aman-zulfiqar/arb-social-trading/internal/constants"
	"github.com/aman-zulfiqar/arb-social-trading/internal/metrics"
	"github.com/aman-zulfiqar/arb-social-trading/internal/models"
)

// Task resolves, extracts and submits one settled swap.
type Task struct {
	TxHash string
	Token  models.Token

	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	outcome Outcome
}

func newTask(txHash string, token models.Token, cancel context.CancelFunc) *Task {
	return &Task{
		TxHash:  txHash,
		Token:   token,
		cancel:  cancel,
		done:    make(chan struct{}),
		outcome: Outcome{State: StateAwaitingReceipt},
	}
}

// Done is closed when the task has finished.
func (t *Task) Done() <-chan struct{} { return t.done }

// Outcome returns the current result. It is final once Done is closed.
func (t *Task) Outcome() Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.outcome
}

// Cancel stops the task. A cancelled task submits nothing.
func (t *Task) Cancel() { t.cancel() }

// Wait blocks until the task finishes or ctx ends.
func (t *Task) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-t.done:
		return t.Outcome(), nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

func (t *Task) setOutcome(o Outcome) {
	t.mu.Lock()
	t.outcome = o
	t.mu.Unlock()
}

func (r *Recorder) run(ctx context.Context, t *Task, sess Session) {
	defer r.wg.Done()
	defer close(t.done)
	defer t.cancel()
	defer r.removePending(t.TxHash)

	log := r.logger.WithFields(logrus.Fields{"tx": t.TxHash, "fid": sess.FID})
	out := Outcome{State: StateAwaitingReceipt, ChainID: constants.PrimaryChain}

	var chains []int64
	if !r.loadCapabilities(ctx).CrossChainFallback {
		chains = []int64{constants.PrimaryChain}
	}

	res, err := r.resolver.ResolveOn(ctx, t.TxHash, chains...)
	if ctx.Err() != nil {
		out.ResolveErr = ctx.Err()
		out.SubmitErr = ctx.Err()
		t.setOutcome(out)
		r.finish(out)
		log.Info("recorder task cancelled")
		return
	}
	if err != nil {
		out.ResolveErr = err
		log.WithError(err).Warn("receipt not found, recording with fallback amounts")
	} else {
		out.ChainID = res.ChainID
		// A zero wallet would match mint transfers.
		if sess.Wallet != (common.Address{}) {
			out.Amounts = amounts.ExtractForChain(res.Receipt, res.ChainID, extractRequest(sess, t.Token))
		}
	}

	out.Record = r.buildRecord(sess, t, out.ChainID, out.Amounts)
	if out.Amounts != nil {
		out.State = StateRecorded
	} else {
		out.State = StateRecordedWithFallback
	}

	if sess.FID <= 0 {
		out.SubmitErr = ErrNoUser
	} else {
		out.Row, out.SubmitErr = r.submitter.SubmitTrade(ctx, out.Record)
	}
	if out.SubmitErr != nil {
		// Telemetry only: the user already saw the swap succeed.
		log.WithError(out.SubmitErr).Warn("failed to record trade")
	} else {
		log.WithFields(logrus.Fields{
			"chain":      out.ChainID,
			"amount_in":  out.Record.AmountIn,
			"amount_out": out.Record.AmountOut,
			"state":      out.State.String(),
		}).Info("trade recorded")
	}

	t.setOutcome(out)
	r.finish(out)
}

func (r *Recorder) finish(out Outcome) {
	metrics.RecorderOutcomes.WithLabelValues(out.State.String(), strconv.FormatBool(out.SubmitErr == nil)).Inc()
}

func extractRequest(sess Session, token models.Token) amounts.Request {
	outDecimals := token.Decimals
	if outDecimals <= 0 {
		outDecimals = constants.DefaultTokenDecimals
	}
	return amounts.Request{
		User:             sess.Wallet,
		TokenIn:          common.HexToAddress(constants.USDCAddresses[constants.SellChain]),
		TokenOut:         common.HexToAddress(token.Address),
		TokenInDecimals:  constants.USDCDecimals,
		TokenOutDecimals: outDecimals,
	}
}

func (r *Recorder) buildRecord(sess Session, t *Task, chainID int64, amt *models.SwapAmounts) *models.TradeRecord {
	rec := &models.TradeRecord{
		FID:             sess.FID,
		TxHash:          t.TxHash,
		TokenAddressIn:  constants.USDCAddresses[constants.SellChain],
		TokenAddressOut: t.Token.Address,
		AmountIn:        r.fallbackAmountIn,
		AmountOut:       r.fallbackAmountOut,
		Timestamp:       time.Now().UTC(),
		Chain:           chainID,
	}
	if sess.Wallet != (common.Address{}) {
		rec.WalletAddress = sess.Wallet.Hex()
	}
	if amt != nil {
		rec.AmountIn = amounts.FormatTokenAmount(amt.AmountIn, amt.TokenInDecimals)
		rec.AmountOut = amounts.FormatTokenAmount(amt.AmountOut, amt.TokenOutDecimals)
	}
	return rec
}
