package recorder

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/arb-social-trading/internal/amounts"
	"github.com/aman-zulfiqar/arb-social-trading/internal/chain"
	"github.com/aman-zulfiqar/arb-social-trading/internal/constants"
	"github.com/aman-zulfiqar/arb-social-trading/internal/flags"
	"github.com/aman-zulfiqar/arb-social-trading/internal/models"
)

const testTx = "0x1c8a0b0e4f0a2d3c4b5a69788796a5b4c3d2e1f00112233445566778899aabbc"

var (
	testWallet = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testPool   = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testToken  = models.Token{Address: "0x912CE59144191C1204E64559FE8253a0e49E6548", Symbol: "ARB", Decimals: 18}
	testUser   = Session{FID: 3, Wallet: testWallet, Connected: true}
)

type fakeAction struct {
	mu     sync.Mutex
	calls  []SwapRequest
	result *SwapResult
	err    error
}

func (f *fakeAction) SwapToken(_ context.Context, req SwapRequest) (*SwapResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	return f.result, f.err
}

func (f *fakeAction) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func settled(tx string) *SwapResult {
	return &SwapResult{Success: true, Swap: &SwapDetail{Transactions: []string{tx}}}
}

type fakeResolver struct {
	mu      sync.Mutex
	chains  [][]int64
	res     *chain.Resolution
	err     error
	release chan struct{}
}

func (f *fakeResolver) ResolveOn(ctx context.Context, txHash string, chainIDs ...int64) (*chain.Resolution, error) {
	f.mu.Lock()
	f.chains = append(f.chains, chainIDs)
	f.mu.Unlock()

	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.res, f.err
}

type fakeSubmitter struct {
	mu      sync.Mutex
	records []*models.TradeRecord
	err     error
}

func (f *fakeSubmitter) SubmitTrade(_ context.Context, trade *models.TradeRecord) (*models.TradeRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, trade)
	if f.err != nil {
		return nil, f.err
	}
	return &models.TradeRow{ID: int64(len(f.records)), TradeRecord: *trade}, nil
}

func (f *fakeSubmitter) submitted() []*models.TradeRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.TradeRecord(nil), f.records...)
}

type fixedCaps flags.Capabilities

func (c fixedCaps) Capabilities(context.Context) (flags.Capabilities, error) {
	return flags.Capabilities(c), nil
}

type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	failures  []string
}

func (n *recordingNotifier) Success(_ models.Token, txHash string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, txHash)
}

func (n *recordingNotifier) Failure(_ models.Token, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, message)
}

func transferLog(token, from, to common.Address, amount *big.Int) *types.Log {
	return &types.Log{
		Address: token,
		Topics: []common.Hash{
			amounts.TransferTopic,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data: common.LeftPadBytes(amount.Bytes(), 32),
	}
}

func arbitrumSwapReceipt() *types.Receipt {
	usdc := common.HexToAddress(constants.USDCAddresses[constants.ChainArbitrum])
	out, _ := new(big.Int).SetString("5000000000000000000", 10)
	return &types.Receipt{Logs: []*types.Log{
		transferLog(usdc, testWallet, testPool, big.NewInt(1_000_000)),
		transferLog(common.HexToAddress(testToken.Address), testPool, testWallet, out),
	}}
}

type harness struct {
	rec       *Recorder
	action    *fakeAction
	resolver  *fakeResolver
	submitter *fakeSubmitter
	notifier  *recordingNotifier
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()
	h := &harness{
		action:    &fakeAction{result: settled(testTx)},
		resolver:  &fakeResolver{err: chain.ErrReceiptNotFound},
		submitter: &fakeSubmitter{},
		notifier:  &recordingNotifier{},
	}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	cfg := DefaultConfig()
	cfg.Action = h.action
	cfg.Resolver = h.resolver
	cfg.Submitter = h.submitter
	cfg.Notifier = h.notifier
	cfg.Logger = logger
	if mutate != nil {
		mutate(&cfg)
	}

	rec, err := New(cfg)
	require.NoError(t, err)
	h.rec = rec
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = rec.Close(ctx)
	})
	return h
}

func mustTrack(t *testing.T, r *Recorder, sess Session, token models.Token, txHash string) *Task {
	t.Helper()
	task, err := r.Track(sess, token, txHash)
	require.NoError(t, err)
	return task
}

func waitOutcome(t *testing.T, task *Task) Outcome {
	t.Helper()
	require.NotNil(t, task)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out, err := task.Wait(ctx)
	require.NoError(t, err)
	return out
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Config{Submitter: &fakeSubmitter{}})
	assert.Error(t, err)

	_, err = New(Config{Resolver: &fakeResolver{}})
	assert.Error(t, err)

	_, err = New(Config{Resolver: &fakeResolver{}, Submitter: &fakeSubmitter{}, FallbackAmountIn: -1})
	assert.Error(t, err)
}

func TestNewSwapRequest(t *testing.T) {
	req := NewSwapRequest(testToken)
	assert.Equal(t, "eip155:8453/erc20:0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", req.SellToken)
	assert.Equal(t, "eip155:42161/erc20:0x912CE59144191C1204E64559FE8253a0e49E6548", req.BuyToken)
	assert.Equal(t, "1000000", req.SellAmount)
}

func TestSwap_ConnectionRequired(t *testing.T) {
	var prompted int
	h := newHarness(t, func(c *Config) {
		c.OnConnectionRequired = func() { prompted++ }
	})

	attempt, err := h.rec.Swap(context.Background(), Session{FID: 3}, testToken)
	assert.ErrorIs(t, err, ErrConnectionRequired)
	assert.Nil(t, attempt)
	assert.Equal(t, 1, prompted)
	assert.Zero(t, h.action.callCount())
}

func TestSwap_GatingDisabledSkipsConnectionCheck(t *testing.T) {
	caps := flags.AllCapabilities()
	caps.ConnectionGating = false
	h := newHarness(t, func(c *Config) { c.Capabilities = fixedCaps(caps) })

	attempt, err := h.rec.Swap(context.Background(), Session{FID: 3, Wallet: testWallet}, testToken)
	require.NoError(t, err)
	assert.Equal(t, StateSettled, attempt.State)
	waitOutcome(t, attempt.Task)
}

func TestSwap_FailureMessages(t *testing.T) {
	tests := []struct {
		name   string
		result *SwapResult
		err    error
		want   string
	}{
		{
			name:   "error message",
			result: &SwapResult{Reason: "failed", Error: &SwapError{Error: "E1", Message: "insufficient funds"}},
			want:   "insufficient funds",
		},
		{
			name:   "reason only",
			result: &SwapResult{Reason: "rejected_by_user"},
			want:   "Swap failed: rejected_by_user",
		},
		{
			name: "action error",
			err:  errors.New("wallet unavailable"),
			want: "wallet unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.action.result = tt.result
			h.action.err = tt.err

			attempt, err := h.rec.Swap(context.Background(), testUser, testToken)
			assert.ErrorIs(t, err, ErrSwapFailed)
			require.NotNil(t, attempt)
			assert.Equal(t, StateFailed, attempt.State)
			assert.Equal(t, tt.want, attempt.Message)
			assert.Nil(t, attempt.Task)
			assert.Equal(t, []string{tt.want}, h.notifier.failures)
			assert.Empty(t, h.rec.Pending())
			assert.Empty(t, h.submitter.submitted())
			assert.Equal(t, 1, h.action.callCount())
		})
	}
}

func TestSwap_RecordsExtractedAmounts(t *testing.T) {
	var selected []models.Token
	h := newHarness(t, func(c *Config) {
		c.OnTokenSelect = func(tok models.Token) { selected = append(selected, tok) }
	})
	h.resolver.err = nil
	h.resolver.res = &chain.Resolution{ChainID: constants.ChainArbitrum, TxHash: testTx, Receipt: arbitrumSwapReceipt()}

	attempt, err := h.rec.Swap(context.Background(), testUser, testToken)
	require.NoError(t, err)
	assert.Equal(t, StateSettled, attempt.State)
	assert.Equal(t, testTx, attempt.TxHash)
	assert.Equal(t, []string{testTx}, h.notifier.successes)
	assert.Equal(t, []models.Token{testToken}, selected)

	out := waitOutcome(t, attempt.Task)
	assert.Equal(t, StateRecorded, out.State)
	assert.NoError(t, out.SubmitErr)
	require.NotNil(t, out.Row)

	recs := h.submitter.submitted()
	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, int64(3), rec.FID)
	assert.Equal(t, testWallet.Hex(), rec.WalletAddress)
	assert.Equal(t, testTx, rec.TxHash)
	assert.Equal(t, constants.USDCAddresses[constants.ChainBase], rec.TokenAddressIn)
	assert.Equal(t, testToken.Address, rec.TokenAddressOut)
	assert.Equal(t, 1.0, rec.AmountIn)
	assert.Equal(t, 5.0, rec.AmountOut)
	assert.Equal(t, constants.ChainArbitrum, rec.Chain)
	assert.False(t, rec.Timestamp.IsZero())
	assert.Empty(t, h.rec.Pending())
}

func TestSwap_NotFoundRecordsFallback(t *testing.T) {
	h := newHarness(t, nil)

	attempt, err := h.rec.Swap(context.Background(), testUser, testToken)
	require.NoError(t, err)

	out := waitOutcome(t, attempt.Task)
	assert.Equal(t, StateRecordedWithFallback, out.State)
	assert.ErrorIs(t, out.ResolveErr, chain.ErrReceiptNotFound)

	recs := h.submitter.submitted()
	require.Len(t, recs, 1)
	assert.Equal(t, 1.0, recs[0].AmountIn)
	assert.Equal(t, 0.0, recs[0].AmountOut)
	assert.Equal(t, constants.PrimaryChain, recs[0].Chain)
}

func TestSwap_NoMatchingLogsRecordsFallbackOnFoundChain(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		c.FallbackAmountIn = 2
		c.FallbackAmountOut = 0.5
	})
	h.resolver.err = nil
	h.resolver.res = &chain.Resolution{ChainID: constants.ChainBase, TxHash: testTx, Receipt: &types.Receipt{}}

	attempt, err := h.rec.Swap(context.Background(), testUser, testToken)
	require.NoError(t, err)

	out := waitOutcome(t, attempt.Task)
	assert.Equal(t, StateRecordedWithFallback, out.State)
	assert.Equal(t, constants.ChainBase, out.Record.Chain)
	assert.Equal(t, 2.0, out.Record.AmountIn)
	assert.Equal(t, 0.5, out.Record.AmountOut)
}

func TestSwap_SubmitFailureIsSilent(t *testing.T) {
	h := newHarness(t, nil)
	h.submitter.err = errors.New("backend down")

	attempt, err := h.rec.Swap(context.Background(), testUser, testToken)
	require.NoError(t, err)

	out := waitOutcome(t, attempt.Task)
	assert.EqualError(t, out.SubmitErr, "backend down")
	assert.Equal(t, StateRecordedWithFallback, out.State)
	assert.Empty(t, h.notifier.failures)
	assert.Empty(t, h.rec.Pending())
}

func TestSwap_NoTransactionStartsNoTask(t *testing.T) {
	h := newHarness(t, nil)
	h.action.result = &SwapResult{Success: true, Swap: &SwapDetail{}}

	attempt, err := h.rec.Swap(context.Background(), testUser, testToken)
	require.NoError(t, err)
	assert.Equal(t, StateSettled, attempt.State)
	assert.Nil(t, attempt.Task)
	assert.Empty(t, h.rec.Pending())
}

func TestSwap_RejectsWhilePending(t *testing.T) {
	h := newHarness(t, nil)
	h.resolver.release = make(chan struct{})

	first, err := h.rec.Swap(context.Background(), testUser, testToken)
	require.NoError(t, err)

	pending := h.rec.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, testTx, pending[0].TxHash)
	assert.Equal(t, StateAwaitingReceipt, first.Task.Outcome().State)

	_, err = h.rec.Swap(context.Background(), testUser, testToken)
	assert.ErrorIs(t, err, ErrSwapInProgress)
	assert.Equal(t, 1, h.action.callCount())

	close(h.resolver.release)
	waitOutcome(t, first.Task)

	h.action.result = settled("0x" + testTx[4:] + "ff")
	second, err := h.rec.Swap(context.Background(), testUser, testToken)
	require.NoError(t, err)
	waitOutcome(t, second.Task)
}

func TestSwap_AllowConcurrent(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.AllowConcurrent = true })
	h.resolver.release = make(chan struct{})

	first, err := h.rec.Swap(context.Background(), testUser, testToken)
	require.NoError(t, err)

	h.action.result = settled("0xabcdef" + testTx[8:])
	second, err := h.rec.Swap(context.Background(), testUser, testToken)
	require.NoError(t, err)

	assert.Len(t, h.rec.Pending(), 2)

	close(h.resolver.release)
	waitOutcome(t, first.Task)
	waitOutcome(t, second.Task)
	assert.Len(t, h.submitter.submitted(), 2)
}

func TestTask_CrossChainFallbackDisabled(t *testing.T) {
	caps := flags.AllCapabilities()
	caps.CrossChainFallback = false
	h := newHarness(t, func(c *Config) { c.Capabilities = fixedCaps(caps) })

	waitOutcome(t, mustTrack(t, h.rec, testUser, testToken, testTx))

	h.resolver.mu.Lock()
	defer h.resolver.mu.Unlock()
	require.Len(t, h.resolver.chains, 1)
	assert.Equal(t, []int64{constants.PrimaryChain}, h.resolver.chains[0])
}

func TestTask_AllChainsByDefault(t *testing.T) {
	h := newHarness(t, nil)

	waitOutcome(t, mustTrack(t, h.rec, testUser, testToken, testTx))

	h.resolver.mu.Lock()
	defer h.resolver.mu.Unlock()
	require.Len(t, h.resolver.chains, 1)
	assert.Empty(t, h.resolver.chains[0])
}

func TestTrack_SameHashReturnsExistingTask(t *testing.T) {
	h := newHarness(t, nil)
	h.resolver.release = make(chan struct{})

	a := mustTrack(t, h.rec, testUser, testToken, testTx)
	b := mustTrack(t, h.rec, testUser, testToken, testTx)
	assert.Same(t, a, b)
	assert.Equal(t, []models.PendingSwap{{Token: testToken, TxHash: testTx}}, h.rec.Pending())

	close(h.resolver.release)
	waitOutcome(t, a)
	assert.Len(t, h.submitter.submitted(), 1)
	assert.Empty(t, h.rec.Pending())
}

func TestTask_CancelSubmitsNothing(t *testing.T) {
	h := newHarness(t, nil)
	h.resolver.release = make(chan struct{})

	task := mustTrack(t, h.rec, testUser, testToken, testTx)
	task.Cancel()

	out := waitOutcome(t, task)
	assert.ErrorIs(t, out.SubmitErr, context.Canceled)
	assert.Equal(t, StateAwaitingReceipt, out.State)
	assert.Empty(t, h.submitter.submitted())
	assert.Empty(t, h.rec.Pending())
}

func TestTask_NoUserSkipsSubmit(t *testing.T) {
	h := newHarness(t, nil)

	out := waitOutcome(t, mustTrack(t, h.rec, Session{Wallet: testWallet, Connected: true}, testToken, testTx))
	assert.ErrorIs(t, out.SubmitErr, ErrNoUser)
	assert.Empty(t, h.submitter.submitted())
}

func TestClose_WaitsForTasks(t *testing.T) {
	h := newHarness(t, nil)
	h.resolver.release = make(chan struct{})

	task := mustTrack(t, h.rec, testUser, testToken, testTx)

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(h.resolver.release)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.rec.Close(ctx))

	select {
	case <-task.Done():
	default:
		t.Fatal("task still running after Close")
	}
	assert.Len(t, h.submitter.submitted(), 1)
}

func TestClose_DeadlineCancelsTasks(t *testing.T) {
	h := newHarness(t, nil)
	h.resolver.release = make(chan struct{})

	task := mustTrack(t, h.rec, testUser, testToken, testTx)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, h.rec.Close(ctx), context.DeadlineExceeded)

	<-task.Done()
	assert.Empty(t, h.submitter.submitted())
}

func TestTrack_RejectedAfterClose(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.rec.Close(context.Background()))

	task, err := h.rec.Track(testUser, testToken, testTx)
	assert.Nil(t, task)
	assert.ErrorIs(t, err, ErrRecorderClosed)
	assert.Empty(t, h.rec.Pending())

	h.resolver.mu.Lock()
	defer h.resolver.mu.Unlock()
	assert.Empty(t, h.resolver.chains)
}

func TestSwap_RejectedAfterClose(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.rec.Close(context.Background()))

	attempt, err := h.rec.Swap(context.Background(), testUser, testToken)
	assert.Nil(t, attempt)
	assert.ErrorIs(t, err, ErrRecorderClosed)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "recorded_with_fallback", StateRecordedWithFallback.String())
	assert.Equal(t, "awaiting_receipt", StateAwaitingReceipt.String())
	assert.Equal(t, "unknown", State(99).String())
}
