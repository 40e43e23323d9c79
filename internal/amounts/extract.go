// Package amounts recovers swap amounts from ERC-20 Transfer logs in a
// transaction receipt.
package amounts

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"github.com/aman-zulfiqar/arb-social-trading/internal/constants"
	"github.com/aman-zulfiqar/arb-social-trading/internal/models"
)

// TransferTopic is keccak256("Transfer(address,address,uint256)").
var TransferTopic = crypto.Keccak256Hash([]byte(constants.TransferEventSignature))

// Request names the user and the two token contracts of a swap.
type Request struct {
	User             common.Address
	TokenIn          common.Address
	TokenOut         common.Address
	TokenInDecimals  int
	TokenOutDecimals int
}

// Extract scans the receipt's Transfer logs for the amount the user sent of
// TokenIn and the amount the user received of TokenOut. When several logs
// match a leg the last one wins. It returns nil when neither leg was seen.
func Extract(receipt *types.Receipt, req Request) *models.SwapAmounts {
	if receipt == nil {
		return nil
	}

	amountIn := new(big.Int)
	amountOut := new(big.Int)

	for _, log := range receipt.Logs {
		if log == nil || len(log.Topics) < 3 || log.Topics[0] != TransferTopic {
			continue
		}

		from := common.BytesToAddress(log.Topics[1].Bytes())
		to := common.BytesToAddress(log.Topics[2].Bytes())
		amount := new(big.Int).SetBytes(log.Data)

		if from == req.User && log.Address == req.TokenIn {
			amountIn = amount
		}
		if to == req.User && log.Address == req.TokenOut {
			amountOut = amount
		}
	}

	if amountIn.Sign() == 0 && amountOut.Sign() == 0 {
		return nil
	}

	return &models.SwapAmounts{
		AmountIn:         amountIn,
		AmountOut:        amountOut,
		TokenInDecimals:  req.TokenInDecimals,
		TokenOutDecimals: req.TokenOutDecimals,
	}
}

// ExtractForChain swaps TokenIn for the chain's canonical USDC contract when
// the chain is known, then extracts as usual. USDC lives at a different
// address on every chain.
func ExtractForChain(receipt *types.Receipt, chainID int64, req Request) *models.SwapAmounts {
	req.TokenIn = ChainUSDC(chainID, req.TokenIn)
	return Extract(receipt, req)
}

// ChainUSDC returns the USDC address on chainID, or fallback for unknown chains.
func ChainUSDC(chainID int64, fallback common.Address) common.Address {
	if addr, ok := constants.USDCAddresses[chainID]; ok {
		return common.HexToAddress(addr)
	}
	return fallback
}

// FormatTokenAmount scales a raw integer amount down by decimals.
func FormatTokenAmount(amount *big.Int, decimals int) float64 {
	if amount == nil {
		return 0
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).InexactFloat64()
}
