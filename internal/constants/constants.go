package constants

import (
	"time"

	"github.com/aman-zulfiqar/arb-social-trading/internal/models"
)

// Chain ids (EIP-155)
const (
	ChainEthereum int64 = 1
	ChainBase     int64 = 8453
	ChainArbitrum int64 = 42161

	// PrimaryChain is recorded when a trade omits its chain or its receipt
	// could not be located.
	PrimaryChain = ChainArbitrum
)

// ChainNames maps supported chain ids to the names used by upstream APIs.
var ChainNames = map[int64]string{
	ChainEthereum: "ethereum",
	ChainBase:     "base",
	ChainArbitrum: "arbitrum",
}

// TradeChains are the chains a trade record may reference.
var TradeChains = []int64{ChainBase, ChainArbitrum}

// USDC contract per chain
var USDCAddresses = map[int64]string{
	ChainEthereum: "0xA0b86a33E6441227a5f1F3AeAA2A04D9cdB6d59b",
	ChainBase:     "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
	ChainArbitrum: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831",
}

const (
	USDCDecimals         = 6
	DefaultTokenDecimals = 18
)

// Swap defaults
const (
	// DefaultSellAmountUSDC is how much USDC a one-tap swap sells.
	DefaultSellAmountUSDC = 1
	SellChain             = ChainBase
	BuyChain              = ChainArbitrum

	// Recorded when the receipt yields no usable Transfer logs.
	FallbackAmountIn  = 1.0
	FallbackAmountOut = 0.0
)

// Receipt resolution
const (
	ReceiptTimeout      = 30 * time.Second
	ReceiptPollInterval = 2 * time.Second
)

// TransferEventSignature is the ERC-20 Transfer event.
const TransferEventSignature = "Transfer(address,address,uint256)"

// Redis keys
const (
	RedisKeyTokensPrefix = "tokens:"
	TokenCacheTTL        = 5 * time.Minute
)

// Redis Pub/Sub channels
const (
	PubSubChannelTrades      = "trades:live"
	PubSubChannelChainPrefix = "trades:chain:"
)

// Upstreams
const (
	QuotientBaseURL   = "https://api.quotient.social/v1"
	BlockscoutBaseURL = "https://arbitrum.blockscout.com/api/v2"
	HoldingsChain     = "arbitrum"
	PopularTokenLimit = 10
)

// DefaultTokens is the curated Arbitrum token list shown when search is off.
var DefaultTokens = []models.Token{
	{
		Address:  "0x912CE59144191C1204E64559FE8253a0e49E6548",
		Name:     "Arbitrum",
		Symbol:   "ARB",
		Decimals: 18,
		Type:     "ERC-20",
		Holders:  1540467,
		IconURL:  "https://assets.coingecko.com/coins/images/16547/small/arb.jpg?1721358242",
	},
	{
		Address:  "0x13A7DeDb7169a17bE92B0E3C7C2315B46f4772B3",
		Name:     "Boop",
		Symbol:   "BOOP",
		Decimals: 18,
		Type:     "ERC-20",
		Holders:  12687,
		IconURL:  "https://assets.coingecko.com/coins/images/33874/small/Boop_resized.png?1703144302",
	},
	{
		Address:  "0x09199d9A5F4448D0848e4395D065e1ad9c4a1F74",
		Name:     "Bonk",
		Symbol:   "BONK",
		Decimals: 5,
		Type:     "ERC-20",
		Holders:  5401,
		IconURL:  "https://assets.coingecko.com/coins/images/28600/small/bonk.jpg?1696527587",
	},
	{
		Address:  "0x25d887Ce7a35172C62FeBFD67a1856F20FaEbB00",
		Name:     "Pepe",
		Symbol:   "PEPE",
		Decimals: 18,
		Type:     "ERC-20",
		Holders:  25977,
		IconURL:  "https://assets.coingecko.com/coins/images/29850/small/pepe-token.jpeg?1696528776",
	},
	{
		Address:  "0x0c880f6761F1af8d9Aa9C466984b80DAb9a8c9e8",
		Name:     "Pendle",
		Symbol:   "PENDLE",
		Decimals: 18,
		Type:     "ERC-20",
		Holders:  60637,
		IconURL:  "https://assets.coingecko.com/coins/images/15069/small/Pendle_Logo_Normal-03.png?1696514728",
	},
	{
		Address:  "0xba5DdD1f9d7F570dc94a51479a000E3BCE967196",
		Name:     "Aave",
		Symbol:   "AAVE",
		Decimals: 18,
		Type:     "ERC-20",
		Holders:  22393,
		IconURL:  "https://assets.coingecko.com/coins/images/12645/small/aave-token-round.png?1720472354",
	},
}

// IsTradeChain reports whether id is a chain a trade may be recorded on.
func IsTradeChain(id int64) bool {
	for _, c := range TradeChains {
		if c == id {
			return true
		}
	}
	return false
}
