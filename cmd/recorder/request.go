package main

import (
	"errors"

	"github.com/aman-zulfiqar/arb-social-trading/internal/models"
	"github.com/aman-zulfiqar/arb-social-trading/internal/recorder"
	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"
)

var request = cli.Command{
	Name:  "request",
	Usage: "print the cross-chain swap request the mini app sends for a token",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "token",
			Usage:    "address of the token to buy on Arbitrum",
			Required: true,
		},
	},
	Action: requestAction,
}

func requestAction(c *cli.Context) error {
	addr := c.String("token")
	if !common.IsHexAddress(addr) {
		return errors.New("invalid token address")
	}
	printJSON(recorder.NewSwapRequest(models.Token{Address: addr}))
	return nil
}
