package models

import (
	"math/big"
	"time"
)

// TradeRecord is the telemetry row written once per settled swap.
type TradeRecord struct {
	FID             int64     `json:"fid"`
	WalletAddress   string    `json:"wallet_address"`
	TxHash          string    `json:"tx_hash"`
	TokenAddressIn  string    `json:"token_address_in"`
	TokenAddressOut string    `json:"token_address_out"`
	AmountIn        float64   `json:"amount_in"`
	AmountOut       float64   `json:"amount_out"`
	Timestamp       time.Time `json:"timestamp"`
	Chain           int64     `json:"chain"`
}

// TradeRow is a persisted TradeRecord.
type TradeRow struct {
	ID int64 `json:"id"`
	TradeRecord
	CreatedAt time.Time `json:"created_at"`
}

// SwapAmounts are the raw token amounts recovered from a receipt.
// An unobserved leg is zero.
type SwapAmounts struct {
	AmountIn         *big.Int `json:"amount_in"`
	AmountOut        *big.Int `json:"amount_out"`
	TokenInDecimals  int      `json:"token_in_decimals"`
	TokenOutDecimals int      `json:"token_out_decimals"`
}

// PendingSwap is a settled swap whose receipt has not been resolved yet.
type PendingSwap struct {
	Token  Token  `json:"token"`
	TxHash string `json:"tx_hash"`
}
