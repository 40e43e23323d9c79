package main

import (
	"context"
	"errors"

	"github.com/aman-zulfiqar/arb-social-trading/internal/amounts"
	"github.com/aman-zulfiqar/arb-social-trading/internal/chain"
	"github.com/aman-zulfiqar/arb-social-trading/internal/config"
	"github.com/aman-zulfiqar/arb-social-trading/internal/constants"
	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"
)

var resolve = cli.Command{
	Name:  "resolve",
	Usage: "find the chain a transaction landed on and the swap amounts in its receipt",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "tx",
			Usage:    "transaction hash",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "wallet",
			Usage: "wallet that made the swap, enables amount extraction",
		},
		&cli.StringFlag{
			Name:  "token",
			Usage: "address of the token bought",
		},
		&cli.IntFlag{
			Name:  "decimals",
			Usage: "decimals of the token bought",
			Value: constants.DefaultTokenDecimals,
		},
	},
	Action: resolveAction,
}

type resolveReply struct {
	Found     bool    `json:"found"`
	ChainID   int64   `json:"chain_id"`
	TxHash    string  `json:"tx_hash"`
	Status    uint64  `json:"status,omitempty"`
	AmountIn  float64 `json:"amount_in,omitempty"`
	AmountOut float64 `json:"amount_out,omitempty"`
}

func resolveAction(c *cli.Context) error {
	txHash := c.String("tx")
	if !common.IsHexAddress(c.String("wallet")) && c.String("wallet") != "" {
		return errors.New("invalid wallet address")
	}

	cfg := config.Load()
	logger := newLogger(c)
	ctx := context.Background()

	resolver, cleanup, err := newResolver(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := resolver.Resolve(ctx, txHash)
	if errors.Is(err, chain.ErrReceiptNotFound) {
		printJSON(resolveReply{TxHash: txHash, ChainID: constants.PrimaryChain})
		return nil
	}
	if err != nil {
		return err
	}

	reply := resolveReply{
		Found:   true,
		ChainID: res.ChainID,
		TxHash:  txHash,
		Status:  res.Receipt.Status,
	}

	if wallet := c.String("wallet"); wallet != "" && common.IsHexAddress(c.String("token")) {
		amt := amounts.ExtractForChain(res.Receipt, res.ChainID, amounts.Request{
			User:             common.HexToAddress(wallet),
			TokenOut:         common.HexToAddress(c.String("token")),
			TokenInDecimals:  constants.USDCDecimals,
			TokenOutDecimals: c.Int("decimals"),
		})
		if amt != nil {
			reply.AmountIn = amounts.FormatTokenAmount(amt.AmountIn, amt.TokenInDecimals)
			reply.AmountOut = amounts.FormatTokenAmount(amt.AmountOut, amt.TokenOutDecimals)
		}
	}

	printJSON(reply)
	return nil
}
