package recorder

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/aman-zulfiqar/arb-social-trading/internal/chain"
	"github.com/aman-zulfiqar/arb-social-trading/internal/flags"
	"github.com/aman-zulfiqar/arb-social-trading/internal/models"
)

var (
	ErrConnectionRequired = errors.New("wallet connection required")
	ErrSwapInProgress     = errors.New("a swap is already in progress")
	ErrSwapFailed         = errors.New("swap failed")
	ErrNoUser             = errors.New("session has no user fid")
	ErrRecorderClosed     = errors.New("recorder is closed")
)

// State is where a swap attempt is in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateSwapping
	StateSettled
	StateFailed
	StateAwaitingReceipt
	StateRecorded
	StateRecordedWithFallback
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSwapping:
		return "swapping"
	case StateSettled:
		return "settled"
	case StateFailed:
		return "failed"
	case StateAwaitingReceipt:
		return "awaiting_receipt"
	case StateRecorded:
		return "recorded"
	case StateRecordedWithFallback:
		return "recorded_with_fallback"
	default:
		return "unknown"
	}
}

// Session is the signed-in user and their wallet.
type Session struct {
	FID       int64
	Wallet    common.Address
	Connected bool
}

// SwapRequest is handed to the host's swap action. Tokens are CAIP-19 ids and
// SellAmount is in the sell token's base units.
type SwapRequest struct {
	SellToken  string `json:"sellToken"`
	BuyToken   string `json:"buyToken"`
	SellAmount string `json:"sellAmount"`
}

type SwapResult struct {
	Success bool        `json:"success"`
	Swap    *SwapDetail `json:"swap,omitempty"`
	Reason  string      `json:"reason,omitempty"`
	Error   *SwapError  `json:"error,omitempty"`
}

type SwapDetail struct {
	Transactions []string `json:"transactions"`
}

type SwapError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// FailureMessage is the text shown to the user for an unsuccessful result.
func (r *SwapResult) FailureMessage() string {
	if r == nil {
		return "Failed to swap tokens"
	}
	if r.Error != nil && r.Error.Message != "" {
		return r.Error.Message
	}
	return "Swap failed: " + r.Reason
}

// TxHash returns the first transaction of a successful swap, if any.
func (r *SwapResult) TxHash() string {
	if r == nil || r.Swap == nil || len(r.Swap.Transactions) == 0 {
		return ""
	}
	return r.Swap.Transactions[0]
}

// SwapAction executes a swap in the user's wallet.
type SwapAction interface {
	SwapToken(ctx context.Context, req SwapRequest) (*SwapResult, error)
}

// ReceiptResolver finds the chain a transaction landed on.
type ReceiptResolver interface {
	ResolveOn(ctx context.Context, txHash string, chainIDs ...int64) (*chain.Resolution, error)
}

// TradeSubmitter records a finished trade with the backend.
type TradeSubmitter interface {
	SubmitTrade(ctx context.Context, trade *models.TradeRecord) (*models.TradeRow, error)
}

// CapabilitySource resolves the current capability set. *flags.Store
// implements it.
type CapabilitySource interface {
	Capabilities(ctx context.Context) (flags.Capabilities, error)
}

// Notifier surfaces swap results to the user.
type Notifier interface {
	Success(token models.Token, txHash string)
	Failure(token models.Token, message string)
}

// Attempt is the synchronous result of Swap.
type Attempt struct {
	Token   models.Token
	State   State
	TxHash  string
	Message string
	Task    *Task
}

// Outcome is the final result of a recorder task.
type Outcome struct {
	State      State
	ChainID    int64
	Amounts    *models.SwapAmounts
	Record     *models.TradeRecord
	Row        *models.TradeRow
	ResolveErr error
	SubmitErr  error
}
