package main

import (
	"context"
	"flag"
	"time"

	"github.com/aman-zulfiqar/arb-social-trading/internal/cache"
	"github.com/aman-zulfiqar/arb-social-trading/internal/config"
	"github.com/aman-zulfiqar/arb-social-trading/internal/store"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// migrator creates the trade history table in Postgres and the analytics
// mirror in ClickHouse. Both migrations are idempotent.
func main() {
	skipClickHouse := flag.Bool("skip-clickhouse", false, "Only migrate Postgres")
	timeout := flag.Duration("timeout", 30*time.Second, "Overall migration timeout")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file in working directory")
	}

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pg, err := store.NewPG(ctx, cfg.DatabaseURL, 1)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to Postgres")
	}
	defer pg.Close()

	if err := pg.Migrate(ctx); err != nil {
		logger.WithError(err).Fatal("postgres migration failed")
	}
	logger.Info("postgres trade table ready")

	if *skipClickHouse || cfg.ClickHouseAddr == "" {
		logger.Info("skipping clickhouse migration")
		return
	}

	ch, err := cache.NewClickHouseStore(ctx, cache.ClickHouseOptions{
		Addr:     cfg.ClickHouseAddr,
		Database: cfg.ClickHouseDatabase,
		Username: cfg.ClickHouseUsername,
		Password: cfg.ClickHousePassword,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to ClickHouse")
	}
	defer ch.Close()

	if err := ch.Migrate(ctx); err != nil {
		logger.WithError(err).Fatal("clickhouse migration failed")
	}
	logger.WithField("database", cfg.ClickHouseDatabase).Info("clickhouse trades table ready")
}
