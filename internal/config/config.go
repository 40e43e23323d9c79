package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/arb-social-trading/internal/constants"
)

type Config struct {
	// API server
	APIAddr string
	APIKey  string
	DevMode bool

	// Social graph upstream
	QuotientBaseURL string
	QuotientAPIKey  string
	QuotientRPS     float64
	HoldingsChain   string

	// Token data upstream
	BlockscoutBaseURL string
	TokenCacheTTL     time.Duration

	// Trade history store
	DatabaseURL string
	DBMaxConns  int

	// Redis settings
	RedisAddr string

	// ClickHouse settings
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// AI settings
	OpenRouterAPIKey string
	AIModel          string

	// Chain RPC settings
	BaseRPCURL          string
	ArbitrumRPCURL      string
	ReceiptTimeout      time.Duration
	ReceiptPollInterval time.Duration

	// Recorder settings
	BackendURL        string
	HTTPTimeout       time.Duration
	FallbackAmountIn  float64
	FallbackAmountOut float64
}

func Load() *Config {
	return &Config{
		// API
		APIAddr: getEnv("API_ADDR", ":8090"),
		APIKey:  getEnv("API_KEY", ""),
		DevMode: getBoolEnv("DEV_MODE", false),

		// Quotient
		QuotientBaseURL: getEnv("QUOTIENT_BASE_URL", constants.QuotientBaseURL),
		QuotientAPIKey:  getEnv("QUOTIENT_API_KEY", ""),
		QuotientRPS:     getFloatEnv("QUOTIENT_RPS", 5),
		HoldingsChain:   getEnv("HOLDINGS_CHAIN", constants.HoldingsChain),

		// Blockscout
		BlockscoutBaseURL: getEnv("BLOCKSCOUT_BASE_URL", constants.BlockscoutBaseURL),
		TokenCacheTTL:     getDurationEnv("TOKEN_CACHE_TTL", constants.TokenCacheTTL),

		// Postgres
		DatabaseURL: getEnv("DATABASE_URL", ""),
		DBMaxConns:  getIntEnv("DB_MAX_CONNS", 4),

		// Redis
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "arb_social"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// AI
		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
		AIModel:          getEnv("AI_MODEL", "openai/gpt-4.1-mini"),

		// Chains
		BaseRPCURL:          getEnv("BASE_RPC_URL", "https://mainnet.base.org"),
		ArbitrumRPCURL:      getEnv("ARBITRUM_RPC_URL", "https://arb1.arbitrum.io/rpc"),
		ReceiptTimeout:      getDurationEnv("RECEIPT_TIMEOUT", constants.ReceiptTimeout),
		ReceiptPollInterval: getDurationEnv("RECEIPT_POLL_INTERVAL", constants.ReceiptPollInterval),

		// Recorder
		BackendURL:        getEnv("BACKEND_URL", "http://localhost:8090"),
		HTTPTimeout:       getDurationEnv("HTTP_TIMEOUT", 15*time.Second),
		FallbackAmountIn:  getFloatEnv("FALLBACK_AMOUNT_IN", constants.FallbackAmountIn),
		FallbackAmountOut: getFloatEnv("FALLBACK_AMOUNT_OUT", constants.FallbackAmountOut),
	}
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIAddr) == "" {
		return fmt.Errorf("API_ADDR must not be empty")
	}
	if c.QuotientRPS <= 0 {
		return fmt.Errorf("QUOTIENT_RPS must be positive, got %v", c.QuotientRPS)
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be at least 1, got %d", c.DBMaxConns)
	}
	if c.ReceiptTimeout <= 0 {
		return fmt.Errorf("RECEIPT_TIMEOUT must be positive")
	}
	if c.ReceiptPollInterval <= 0 || c.ReceiptPollInterval > c.ReceiptTimeout {
		return fmt.Errorf("RECEIPT_POLL_INTERVAL must be positive and not exceed RECEIPT_TIMEOUT")
	}
	if c.FallbackAmountIn < 0 || c.FallbackAmountOut < 0 {
		return fmt.Errorf("fallback amounts must be non-negative")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
