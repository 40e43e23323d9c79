package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aman-zulfiqar/arb-social-trading/internal/chain"
	"github.com/aman-zulfiqar/arb-social-trading/internal/config"
	"github.com/aman-zulfiqar/arb-social-trading/internal/constants"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.NewApp()

	app.Name = "recorder"
	app.Usage = "Resolve swap receipts, record settled trades and look back over them"
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug logging",
		},
	}
	app.Before = func(c *cli.Context) error {
		_ = godotenv.Load()
		return nil
	}
	app.Commands = append(
		app.Commands,
		&resolve,
		&record,
		&request,
		&history,
		&ask,
	)

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}

func newLogger(c *cli.Context) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	if c.Bool("debug") {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// newResolver dials Base then Arbitrum.
func newResolver(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*chain.Resolver, func(), error) {
	endpoints, closeAll, err := chain.DialEndpoints(ctx,
		[]int64{constants.ChainBase, constants.ChainArbitrum},
		map[int64]string{
			constants.ChainBase:     cfg.BaseRPCURL,
			constants.ChainArbitrum: cfg.ArbitrumRPCURL,
		},
	)
	if err != nil {
		return nil, nil, err
	}

	r, err := chain.NewResolver(chain.ResolverConfig{
		Endpoints:    endpoints,
		Timeout:      cfg.ReceiptTimeout,
		PollInterval: cfg.ReceiptPollInterval,
		Logger:       logger,
	})
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	return r, closeAll, nil
}

func printJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		fatal(err)
	}
	fmt.Println(string(out))
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[recorder] %v\n", err)
	os.Exit(1)
}
