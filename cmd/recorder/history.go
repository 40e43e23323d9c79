package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/aman-zulfiqar/arb-social-trading/internal/config"
	"github.com/aman-zulfiqar/arb-social-trading/internal/constants"
	"github.com/aman-zulfiqar/arb-social-trading/internal/store"
	"github.com/urfave/cli/v2"
)

var history = cli.Command{
	Name:  "history",
	Usage: "list a user's recorded trades from the trade store, newest first",
	Flags: []cli.Flag{
		&cli.Int64Flag{
			Name:     "fid",
			Usage:    "farcaster id of the user",
			Required: true,
		},
		&cli.Int64Flag{
			Name:  "chain",
			Usage: "only trades on this chain id (8453 or 42161)",
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "maximum number of trades",
			Value: 20,
		},
	},
	Action: historyAction,
}

func historyAction(c *cli.Context) error {
	fid, chain := c.Int64("fid"), c.Int64("chain")
	if fid <= 0 {
		return errors.New("fid must be positive")
	}
	if err := checkTradeChain(chain); err != nil {
		return err
	}
	if c.Int("limit") <= 0 {
		return errors.New("limit must be positive")
	}

	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pg, err := store.NewPG(ctx, cfg.DatabaseURL, 1)
	if err != nil {
		return err
	}
	defer pg.Close()

	rows, err := pg.TradesByFID(ctx, fid, chain, c.Int("limit"))
	if err != nil {
		return err
	}
	printJSON(rows)
	return nil
}

// checkTradeChain accepts 0 (any chain) or a chain trades are recorded on.
func checkTradeChain(chain int64) error {
	if chain != 0 && !slices.Contains(constants.TradeChains, chain) {
		return fmt.Errorf("unsupported chain %d", chain)
	}
	return nil
}
