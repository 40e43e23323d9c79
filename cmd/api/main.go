package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/aman-zulfiqar/arb-social-trading/internal/ai"
	"github.com/aman-zulfiqar/arb-social-trading/internal/blockscout"
	"github.com/aman-zulfiqar/arb-social-trading/internal/cache"
	"github.com/aman-zulfiqar/arb-social-trading/internal/config"
	"github.com/aman-zulfiqar/arb-social-trading/internal/flags"
	"github.com/aman-zulfiqar/arb-social-trading/internal/quotient"
	"github.com/aman-zulfiqar/arb-social-trading/internal/server"
	"github.com/aman-zulfiqar/arb-social-trading/internal/store"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	// Get the project root directory (where go.mod is)
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// main is the entry point for the API server
// It initializes all dependencies and starts the HTTP server with graceful shutdown
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	// load .env BEFORE anything reads os.Getenv
	loadEnv(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if cfg.DevMode {
		logger.SetLevel(logrus.DebugLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown (Ctrl+C, SIGTERM)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	healthChecks := map[string]func(context.Context) error{}

	// Redis backs the token cache, the live trade feed and feature flags
	rclient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   0,
	})
	if err := rclient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}
	defer rclient.Close()
	healthChecks["redis"] = func(ctx context.Context) error { return rclient.Ping(ctx).Err() }

	flagStore, err := flags.NewStore(rclient)
	if err != nil {
		logger.WithError(err).Fatal("failed to create flags store")
	}
	if err := flagStore.EnsureDefaults(ctx, flags.CapabilityKeys...); err != nil {
		logger.WithError(err).Warn("failed to seed capability flags")
	}

	// Trade history store is optional; without it POST /trade reports a
	// configuration error.
	var trades *store.PG
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPG(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to Postgres")
		}
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			logger.WithError(err).Fatal("failed to migrate trade store")
		}
		trades = pg
		healthChecks["postgres"] = pg.Ping
	} else {
		logger.Warn("DATABASE_URL not set, trade recording disabled")
	}

	// ClickHouse mirror feeds the AI agent
	var sink *cache.ClickHouseStore
	if cfg.ClickHouseAddr != "" {
		ch, err := cache.NewClickHouseStore(ctx, cache.ClickHouseOptions{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
		})
		if err != nil {
			logger.WithError(err).Warn("clickhouse unavailable, analytics mirror disabled")
		} else {
			defer ch.Close()
			if err := ch.Migrate(ctx); err != nil {
				logger.WithError(err).Warn("failed to migrate clickhouse trades table")
			}
			sink = ch
			healthChecks["clickhouse"] = ch.Ping
		}
	}

	var agent *ai.Agent
	aiBase := ai.AgentConfig{
		ClickHouseAddr:     cfg.ClickHouseAddr,
		ClickHouseDatabase: cfg.ClickHouseDatabase,
		ClickHouseUsername: cfg.ClickHouseUsername,
		ClickHousePassword: cfg.ClickHousePassword,
		OpenRouterAPIKey:   cfg.OpenRouterAPIKey,
		Model:              cfg.AIModel,
		Logger:             logger,
	}
	if cfg.OpenRouterAPIKey != "" && cfg.ClickHouseAddr != "" {
		a, err := ai.NewAgent(ctx, aiBase)
		if err != nil {
			logger.WithError(err).Warn("failed to initialize ai agent")
		} else {
			agent = a
			defer func() {
				_ = agent.Close()
			}()
		}
	}

	h := &server.Handlers{
		Social:        quotient.NewClient(cfg.QuotientBaseURL, cfg.QuotientAPIKey, cfg.QuotientRPS),
		Tokens:        blockscout.NewClient(cfg.BlockscoutBaseURL),
		TokenCache:    cache.NewRedisCache(rclient),
		TokenCacheTTL: cfg.TokenCacheTTL,
		HoldingsChain: cfg.HoldingsChain,
		Feed:          cache.NewPubSubManager(rclient, logger),
		Flags:         flagStore,
		AI:            agent,
		AIBaseConfig:  aiBase,
		HealthChecks:  healthChecks,
		DevMode:       cfg.DevMode,
		Logger:        logger,
	}
	// Keep typed nil pointers out of the interface fields.
	if trades != nil {
		h.Trades = trades
	}
	if sink != nil {
		h.Sink = sink
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:    cfg.APIAddr,
			DevMode: cfg.DevMode,
			APIKey:  cfg.APIKey,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
		defer stop()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.WithFields(logrus.Fields{
		"addr":       cfg.APIAddr,
		"trades":     trades != nil,
		"clickhouse": sink != nil,
		"ai":         agent != nil,
	}).Info("api server starting")
	if err := srv.Start(); err != nil {
		// "http: Server closed" is expected during graceful shutdown
		if err.Error() != "http: Server closed" {
			logger.WithError(err).Fatal("api server failed")
		}
	}

	if err := srv.WaitClosed(context.Background()); err != nil {
		fmt.Println(err)
	}
}
