package recorder

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/arb-social-trading/internal/chain"
	"github.com/aman-zulfiqar/arb-social-trading/internal/constants"
	"github.com/aman-zulfiqar/arb-social-trading/internal/flags"
	"github.com/aman-zulfiqar/arb-social-trading/internal/models"
)

// Recorder drives one-tap swaps and records each settled swap as a trade.
type Recorder struct {
	action       SwapAction
	resolver     ReceiptResolver
	submitter    TradeSubmitter
	capabilities CapabilitySource
	notifier     Notifier
	logger       *logrus.Logger

	allowConcurrent      bool
	fallbackAmountIn     float64
	fallbackAmountOut    float64
	onConnectionRequired func()
	onTokenSelect        func(models.Token)

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	swapping int
	pending  map[string]*Task
}

// Config holds configuration for the recorder
type Config struct {
	Action       SwapAction
	Resolver     ReceiptResolver
	Submitter    TradeSubmitter
	Capabilities CapabilitySource // nil enables every capability
	Notifier     Notifier         // nil logs notifications
	Logger       *logrus.Logger

	// AllowConcurrent lets a new swap start while another is swapping or
	// awaiting its receipt.
	AllowConcurrent bool

	FallbackAmountIn  float64
	FallbackAmountOut float64

	OnConnectionRequired func()
	OnTokenSelect        func(models.Token)
}

// DefaultConfig returns a config with the standard fallback amounts.
func DefaultConfig() Config {
	return Config{
		FallbackAmountIn:  constants.FallbackAmountIn,
		FallbackAmountOut: constants.FallbackAmountOut,
	}
}

func New(cfg Config) (*Recorder, error) {
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("recorder needs a receipt resolver")
	}
	if cfg.Submitter == nil {
		return nil, fmt.Errorf("recorder needs a trade submitter")
	}
	if cfg.FallbackAmountIn < 0 || cfg.FallbackAmountOut < 0 {
		return nil, fmt.Errorf("fallback amounts must be >= 0")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = logNotifier{logger: cfg.Logger}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Recorder{
		action:               cfg.Action,
		resolver:             cfg.Resolver,
		submitter:            cfg.Submitter,
		capabilities:         cfg.Capabilities,
		notifier:             cfg.Notifier,
		logger:               cfg.Logger,
		allowConcurrent:      cfg.AllowConcurrent,
		fallbackAmountIn:     cfg.FallbackAmountIn,
		fallbackAmountOut:    cfg.FallbackAmountOut,
		onConnectionRequired: cfg.OnConnectionRequired,
		onTokenSelect:        cfg.OnTokenSelect,
		baseCtx:              ctx,
		baseCancel:           cancel,
		pending:              make(map[string]*Task),
	}, nil
}

// NewSwapRequest sells 1 USDC on the sell chain for token on the buy chain.
func NewSwapRequest(token models.Token) SwapRequest {
	sellAmount := new(big.Int).Exp(big.NewInt(10), big.NewInt(constants.USDCDecimals), nil)
	sellAmount.Mul(sellAmount, big.NewInt(constants.DefaultSellAmountUSDC))

	return SwapRequest{
		SellToken:  chain.ERC20AssetID(constants.SellChain, constants.USDCAddresses[constants.SellChain]),
		BuyToken:   chain.ERC20AssetID(constants.BuyChain, token.Address),
		SellAmount: sellAmount.String(),
	}
}

// Swap runs the swap action for token. A successful swap with a transaction
// starts a background Task that records the trade.
func (r *Recorder) Swap(ctx context.Context, sess Session, token models.Token) (*Attempt, error) {
	if r.action == nil {
		return nil, fmt.Errorf("recorder has no swap action")
	}

	caps := r.loadCapabilities(ctx)
	if caps.ConnectionGating && !sess.Connected {
		if r.onConnectionRequired != nil {
			r.onConnectionRequired()
		}
		return nil, ErrConnectionRequired
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRecorderClosed
	}
	if !r.allowConcurrent && (r.swapping > 0 || len(r.pending) > 0) {
		r.mu.Unlock()
		return nil, ErrSwapInProgress
	}
	r.swapping++
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.swapping--
		r.mu.Unlock()
	}()

	attempt := &Attempt{Token: token, State: StateSwapping}
	log := r.logger.WithFields(logrus.Fields{"token": token.Address, "fid": sess.FID})

	res, err := r.action.SwapToken(ctx, NewSwapRequest(token))
	if err != nil || res == nil || !res.Success {
		msg := res.FailureMessage()
		if err != nil {
			msg = err.Error()
			if msg == "" {
				msg = "Failed to swap tokens"
			}
		}
		attempt.State = StateFailed
		attempt.Message = msg
		r.notifier.Failure(token, msg)
		log.WithField("reason", msg).Warn("swap failed")
		return attempt, fmt.Errorf("%w: %s", ErrSwapFailed, msg)
	}

	attempt.State = StateSettled
	attempt.TxHash = res.TxHash()
	r.notifier.Success(token, attempt.TxHash)
	if r.onTokenSelect != nil {
		r.onTokenSelect(token)
	}
	log.WithField("tx", attempt.TxHash).Info("swap settled")

	if attempt.TxHash != "" {
		task, err := r.Track(sess, token, attempt.TxHash)
		if err != nil {
			log.WithError(err).Warn("trade not recorded")
			return attempt, err
		}
		attempt.Task = task
	}
	return attempt, nil
}

// Track starts recording a swap that has already settled. Tracking a hash
// that is still pending returns the existing task. After Close it returns
// ErrRecorderClosed.
func (r *Recorder) Track(sess Session, token models.Token, txHash string) (*Task, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRecorderClosed
	}
	if t, ok := r.pending[txHash]; ok {
		r.mu.Unlock()
		return t, nil
	}

	ctx, cancel := context.WithCancel(r.baseCtx)
	t := newTask(txHash, token, cancel)
	r.pending[txHash] = t
	r.wg.Add(1)
	r.mu.Unlock()

	go r.run(ctx, t, sess)
	return t, nil
}

// Pending lists the swaps still awaiting a receipt.
func (r *Recorder) Pending() []models.PendingSwap {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.PendingSwap, 0, len(r.pending))
	for hash, t := range r.pending {
		out = append(out, models.PendingSwap{Token: t.Token, TxHash: hash})
	}
	return out
}

// Close stops new tracking and waits for in-flight tasks. If ctx ends first
// the remaining tasks are cancelled and ctx's error is returned.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.baseCancel()
		return nil
	case <-ctx.Done():
		r.baseCancel()
		<-done
		return ctx.Err()
	}
}

func (r *Recorder) loadCapabilities(ctx context.Context) flags.Capabilities {
	if r.capabilities == nil {
		return flags.AllCapabilities()
	}
	caps, err := r.capabilities.Capabilities(ctx)
	if err != nil {
		r.logger.WithError(err).Warn("capability lookup failed, using defaults")
		return flags.AllCapabilities()
	}
	return caps
}

func (r *Recorder) removePending(txHash string) {
	r.mu.Lock()
	delete(r.pending, txHash)
	r.mu.Unlock()
}

type logNotifier struct {
	logger *logrus.Logger
}

func (n logNotifier) Success(token models.Token, txHash string) {
	n.logger.WithFields(logrus.Fields{"token": token.Symbol, "tx": txHash}).Info("Swap successful!")
}

func (n logNotifier) Failure(token models.Token, message string) {
	n.logger.WithField("token", token.Symbol).Warnf("Swap failed: %s", message)
}
