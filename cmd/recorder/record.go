package main

import (
	"context"
	"errors"
	"time"

	"github.com/aman-zulfiqar/arb-social-trading/internal/config"
	"github.com/aman-zulfiqar/arb-social-trading/internal/constants"
	"github.com/aman-zulfiqar/arb-social-trading/internal/flags"
	"github.com/aman-zulfiqar/arb-social-trading/internal/models"
	"github.com/aman-zulfiqar/arb-social-trading/internal/recorder"
	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var record = cli.Command{
	Name:  "record",
	Usage: "record a settled swap with the backend once its receipt resolves",
	Flags: []cli.Flag{
		&cli.Int64Flag{
			Name:     "fid",
			Usage:    "farcaster id of the user",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "tx",
			Usage:    "transaction hash of the swap",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "token",
			Usage:    "address of the token bought",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "wallet",
			Usage: "wallet that made the swap",
		},
		&cli.StringFlag{
			Name:  "symbol",
			Usage: "symbol of the token bought",
		},
		&cli.IntFlag{
			Name:  "decimals",
			Usage: "decimals of the token bought",
			Value: constants.DefaultTokenDecimals,
		},
		&cli.DurationFlag{
			Name:  "wait",
			Usage: "how long to wait for the trade to be recorded",
			Value: 2 * time.Minute,
		},
	},
	Action: recordAction,
}

type recordReply struct {
	State     string           `json:"state"`
	ChainID   int64            `json:"chain_id"`
	Trade     *models.TradeRow `json:"trade,omitempty"`
	Error     string           `json:"error,omitempty"`
	NotFound  bool             `json:"receipt_not_found,omitempty"`
	Submitted bool             `json:"submitted"`
}

func recordAction(c *cli.Context) error {
	sess := recorder.Session{FID: c.Int64("fid"), Connected: true}
	if w := c.String("wallet"); w != "" {
		if !common.IsHexAddress(w) {
			return errors.New("invalid wallet address")
		}
		sess.Wallet = common.HexToAddress(w)
	}
	if !common.IsHexAddress(c.String("token")) {
		return errors.New("invalid token address")
	}
	token := models.Token{
		Address:  c.String("token"),
		Symbol:   c.String("symbol"),
		Decimals: c.Int("decimals"),
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(c)
	ctx := context.Background()

	resolver, cleanup, err := newResolver(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	rcfg := recorder.DefaultConfig()
	rcfg.Resolver = resolver
	rcfg.Submitter = recorder.NewHTTPSubmitter(cfg.BackendURL, cfg.HTTPTimeout)
	rcfg.FallbackAmountIn = cfg.FallbackAmountIn
	rcfg.FallbackAmountOut = cfg.FallbackAmountOut
	rcfg.Logger = logger
	if caps, closeCaps := capabilitySource(ctx, cfg, logger); caps != nil {
		defer closeCaps()
		rcfg.Capabilities = caps
	}

	rec, err := recorder.New(rcfg)
	if err != nil {
		return err
	}

	task, err := rec.Track(sess, token, c.String("tx"))
	if err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.Duration("wait"))
	defer cancel()

	out, err := task.Wait(waitCtx)
	closeErr := rec.Close(waitCtx)
	if err != nil {
		return err
	}
	if closeErr != nil {
		logger.WithError(closeErr).Warn("recorder did not shut down cleanly")
	}

	reply := recordReply{
		State:     out.State.String(),
		ChainID:   out.ChainID,
		Trade:     out.Row,
		NotFound:  out.ResolveErr != nil,
		Submitted: out.SubmitErr == nil,
	}
	if out.SubmitErr != nil {
		reply.Error = out.SubmitErr.Error()
	}
	printJSON(reply)
	return nil
}

// capabilitySource reads capability flags from Redis when it is reachable.
func capabilitySource(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (recorder.CapabilitySource, func()) {
	rclient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rclient.Ping(pingCtx).Err(); err != nil {
		logger.WithError(err).Debug("redis unavailable, all capabilities enabled")
		_ = rclient.Close()
		return nil, nil
	}

	store, err := flags.NewStore(rclient)
	if err != nil {
		_ = rclient.Close()
		return nil, nil
	}
	return store, func() { _ = rclient.Close() }
}
