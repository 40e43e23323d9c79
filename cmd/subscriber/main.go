// ============================================================================
// cmd/subscriber/main.go - Live trade feed consumer
// ============================================================================
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/aman-zulfiqar/arb-social-trading/internal/cache"
	"github.com/aman-zulfiqar/arb-social-trading/internal/config"
	"github.com/aman-zulfiqar/arb-social-trading/internal/constants"
	"github.com/aman-zulfiqar/arb-social-trading/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	chainFlag := flag.Int64("chain", 0, "Only show trades recorded on this chain id")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	rclient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rclient.Close()

	pubsub := cache.NewPubSubManager(rclient, logger)

	channel := constants.PubSubChannelTrades
	if *chainFlag != 0 {
		channel = cache.ChainChannel(*chainFlag)
	}

	trades, err := pubsub.SubscribeTrades(ctx, channel)
	if err != nil {
		logger.WithError(err).Fatal("failed to subscribe")
	}

	logger.WithField("channel", channel).Info("subscriber running, press Ctrl+C to stop")

	for {
		select {
		case <-sigChan:
			logger.Info("shutting down subscriber")
			return
		case trade, ok := <-trades:
			if !ok {
				logger.Warn("trade feed closed")
				return
			}
			logTrade(logger, trade)
		}
	}
}

func logTrade(logger *logrus.Logger, t *models.TradeRow) {
	logger.WithFields(logrus.Fields{
		"id":        t.ID,
		"fid":       t.FID,
		"tx":        t.TxHash,
		"chain":     t.Chain,
		"token_out": t.TokenAddressOut,
		"amount_in": t.AmountIn,
		"amount":    t.AmountOut,
	}).Info("trade recorded")
}
