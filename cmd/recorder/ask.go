package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/aman-zulfiqar/arb-social-trading/internal/ai"
	"github.com/aman-zulfiqar/arb-social-trading/internal/config"
	"github.com/urfave/cli/v2"
)

var ask = cli.Command{
	Name:      "ask",
	Usage:     "ask a question about recorded trades; without a question, start an interactive session",
	ArgsUsage: "[question]",
	Flags: []cli.Flag{
		&cli.Int64Flag{
			Name:  "fid",
			Usage: "only consider this user's trades",
		},
		&cli.Int64Flag{
			Name:  "chain",
			Usage: "only consider trades on this chain id (8453 or 42161)",
		},
		&cli.StringFlag{
			Name:  "model",
			Usage: "OpenRouter model, defaults to AI_MODEL",
		},
	},
	Action: askAction,
}

func askAction(c *cli.Context) error {
	scope := ai.Scope{FID: c.Int64("fid"), Chain: c.Int64("chain")}
	if scope.FID < 0 {
		return errors.New("fid must be positive")
	}
	if err := checkTradeChain(scope.Chain); err != nil {
		return err
	}

	cfg := config.Load()
	model := c.String("model")
	if model == "" {
		model = cfg.AIModel
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agent, err := ai.NewAgent(ctx, ai.AgentConfig{
		ClickHouseAddr:     cfg.ClickHouseAddr,
		ClickHouseDatabase: cfg.ClickHouseDatabase,
		ClickHouseUsername: cfg.ClickHouseUsername,
		ClickHousePassword: cfg.ClickHousePassword,
		OpenRouterAPIKey:   cfg.OpenRouterAPIKey,
		Model:              model,
		Logger:             newLogger(c),
	})
	if err != nil {
		return err
	}
	defer agent.Close()

	if q := strings.Join(c.Args().Slice(), " "); q != "" {
		res, err := agent.Ask(ctx, q, scope)
		if err != nil {
			return err
		}
		printAnswer(os.Stdout, res)
		return nil
	}
	return askSession(ctx, agent, scope, os.Stdin, os.Stdout)
}

// asker is the part of *ai.Agent a session needs.
type asker interface {
	Ask(ctx context.Context, question string, scope ai.Scope) (*ai.AskResult, error)
}

// askSession reads questions line by line. Lines starting with ":" change
// the scope instead: ":fid N", ":chain N", ":all" and ":scope".
func askSession(ctx context.Context, agent asker, scope ai.Scope, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "asking about %s. :fid N, :chain N, :all or :scope adjust it, an empty line quits.\n", scope)

	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			return nil
		}

		if strings.HasPrefix(line, ":") {
			next, err := applyScopeCommand(scope, line)
			if err != nil {
				fmt.Fprintln(out, "error:", err)
				continue
			}
			scope = next
			fmt.Fprintln(out, "scope:", scope)
			continue
		}

		res, err := agent.Ask(ctx, line, scope)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintln(out, "error:", err)
			continue
		}
		printAnswer(out, res)
	}
}

func applyScopeCommand(scope ai.Scope, line string) (ai.Scope, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":all":
		return ai.Scope{}, nil
	case ":scope":
		return scope, nil
	case ":fid", ":chain":
		if len(fields) != 2 {
			return scope, fmt.Errorf("usage: %s N", fields[0])
		}
		n, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil || n < 0 {
			return scope, fmt.Errorf("%q is not a valid number", fields[1])
		}
		if fields[0] == ":fid" {
			scope.FID = n
			return scope, nil
		}
		if err := checkTradeChain(n); err != nil {
			return scope, err
		}
		scope.Chain = n
		return scope, nil
	}
	return scope, fmt.Errorf("unknown command %s", fields[0])
}

func printAnswer(out io.Writer, res *ai.AskResult) {
	fmt.Fprintf(out, "\n%s\n\n%s\n", res.SQL, res.Answer)
	if res.Truncated {
		fmt.Fprintf(out, "(based on the first %d rows)\n", res.Rows)
	}
	fmt.Fprintln(out)
}
