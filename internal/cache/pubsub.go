package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/arb-social-trading/internal/constants"
	"github.com/aman-zulfiqar/arb-social-trading/internal/models"
	"github.com/aman-zulfiqar/arb-social-trading/internal/storage"
)

type PubSubManager struct {
	client *redis.Client
	logger *logrus.Logger
}

var _ storage.TradeFeed = (*PubSubManager)(nil)

func NewPubSubManager(client *redis.Client, logger *logrus.Logger) *PubSubManager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &PubSubManager{client: client, logger: logger}
}

// ChainChannel is the per-chain trade channel.
func ChainChannel(chainID int64) string {
	return fmt.Sprintf("%s%d", constants.PubSubChannelChainPrefix, chainID)
}

// PublishTrade publishes to the live channel and the trade's chain channel.
func (p *PubSubManager) PublishTrade(ctx context.Context, trade *models.TradeRow) error {
	data, err := json.Marshal(trade)
	if err != nil {
		return err
	}

	channels := []string{
		constants.PubSubChannelTrades,
		ChainChannel(trade.Chain),
	}

	pipe := p.client.Pipeline()
	for _, channel := range channels {
		pipe.Publish(ctx, channel, data)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// SubscribeTrades decodes trades from channel until ctx is cancelled.
// Channels ending in '*' are pattern subscriptions.
func (p *PubSubManager) SubscribeTrades(ctx context.Context, channel string) (<-chan *models.TradeRow, error) {
	var ps *redis.PubSub
	if n := len(channel); n > 0 && channel[n-1] == '*' {
		ps = p.client.PSubscribe(ctx, channel)
	} else {
		ps = p.client.Subscribe(ctx, channel)
	}
	// Wait for the subscription confirmation so errors surface here.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	p.logger.WithField("channel", channel).Info("subscribed to trade feed")

	out := make(chan *models.TradeRow)
	go func() {
		defer close(out)
		defer ps.Close()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var trade models.TradeRow
				if err := json.Unmarshal([]byte(msg.Payload), &trade); err != nil {
					p.logger.WithError(err).WithField("channel", msg.Channel).Warn("dropping malformed trade message")
					continue
				}
				select {
				case out <- &trade:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
