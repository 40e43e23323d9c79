package ai

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aman-zulfiqar/arb-social-trading/internal/cache"
)

const (
	DefaultModel    = "openai/gpt-4.1-mini"
	DefaultDatabase = "arb_social"
)

// column is one column of the ClickHouse trades mirror.
type column struct {
	Name string
	Type string
}

var columnRe = regexp.MustCompile(`^\s*([a-z_]+)\s+([A-Za-z0-9_]+(?:\([^)]*\))?),?\s*$`)

// tradeColumns reads the column list out of the mirror's DDL so the prompt
// always describes the table the sink writes.
func tradeColumns() []column {
	ddl := cache.ClickHouseSchemaSQL
	open, end := strings.Index(ddl, "("), strings.Index(ddl, ") ENGINE")
	if open < 0 || end <= open {
		return nil
	}

	var cols []column
	for _, line := range strings.Split(ddl[open+1:end], "\n") {
		m := columnRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		cols = append(cols, column{Name: m[1], Type: m[2]})
	}
	return cols
}

var columnNotes = map[string]string{
	"id":                "row id in the Postgres trade store",
	"fid":               "Farcaster id of the trader",
	"wallet_address":    "trader wallet, 0x-prefixed, empty when unknown",
	"tx_hash":           "swap transaction hash, one row per hash and chain",
	"token_address_in":  "token sold, Base USDC for one-tap swaps",
	"token_address_out": "token bought on Arbitrum",
	"amount_in":         "USDC sold, human units",
	"amount_out":        "tokens bought, human units, 0 when unknown",
	"timestamp":         "when the trade was recorded",
	"chain":             "chain the receipt was found on",
	"created_at":        "when the row was stored",
}

// schemaDescription renders the trades mirror for the SQL prompt.
func schemaDescription(database string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Table %s.trades (ClickHouse, ReplacingMergeTree ordered by chain, tx_hash)\n", database)
	for _, c := range tradeColumns() {
		fmt.Fprintf(&b, "  %-18s %-22s", c.Name, c.Type)
		if note, ok := columnNotes[c.Name]; ok {
			b.WriteString(" ")
			b.WriteString(note)
		}
		b.WriteString("\n")
	}
	b.WriteString("Chains: 8453 = Base, 42161 = Arbitrum.\n")
	b.WriteString("amount_in = 1 with amount_out = 0 marks a trade whose receipt had no readable transfers.\n")
	return b.String()
}
