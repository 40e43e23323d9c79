package ai

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aman-zulfiqar/arb-social-trading/internal/constants"
)

// Scope narrows every read of the trades table to one trader, one chain,
// or both. The zero Scope reads everything.
type Scope struct {
	FID   int64
	Chain int64
}

func (s Scope) IsZero() bool { return s.FID <= 0 && s.Chain <= 0 }

func (s Scope) filter() string {
	var conds []string
	if s.FID > 0 {
		conds = append(conds, fmt.Sprintf("fid = %d", s.FID))
	}
	if s.Chain > 0 {
		conds = append(conds, fmt.Sprintf("chain = %d", s.Chain))
	}
	return strings.Join(conds, " AND ")
}

// String describes the scope for prompts and logs.
func (s Scope) String() string {
	if s.IsZero() {
		return "all traders on all chains"
	}
	var parts []string
	if s.FID > 0 {
		parts = append(parts, fmt.Sprintf("fid %d", s.FID))
	}
	if s.Chain > 0 {
		name, ok := constants.ChainNames[s.Chain]
		if !ok {
			name = fmt.Sprintf("chain %d", s.Chain)
		}
		parts = append(parts, "on "+name)
	}
	return strings.Join(parts, " ")
}

// cleanSQL strips markdown fences, a leading "sql" tag and a trailing
// semicolon from model output.
func cleanSQL(s string) string {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "```"); ok {
		s = rest
		if i := strings.Index(s, "```"); i >= 0 {
			s = s[:i]
		}
	}
	s = strings.TrimSpace(s)
	if len(s) >= 3 && strings.EqualFold(s[:3], "sql") {
		s = s[3:]
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, ";"))
}

var writeKeywords = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|DROP|ALTER|TRUNCATE|CREATE|RENAME|ATTACH|DETACH|OPTIMIZE|GRANT)\b`)

var fromRe = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+(?:([a-z0-9_]+)\.)?([a-z0-9_]+)\b`)

// checkSQL accepts a single SELECT whose every FROM and JOIN reads the
// trades table of database.
func checkSQL(s, database string) error {
	if s == "" {
		return fmt.Errorf("model returned no SQL")
	}
	if !strings.HasPrefix(strings.ToUpper(s), "SELECT") {
		return fmt.Errorf("only SELECT queries are allowed")
	}
	if strings.Contains(s, ";") {
		return fmt.Errorf("only one statement is allowed")
	}
	if m := writeKeywords.FindString(s); m != "" {
		return fmt.Errorf("keyword %s is not allowed", strings.ToUpper(m))
	}

	refs := fromRe.FindAllStringSubmatch(s, -1)
	if len(refs) == 0 {
		return fmt.Errorf("query must read %s.trades", database)
	}
	for _, m := range refs {
		if (m[1] != "" && !strings.EqualFold(m[1], database)) || !strings.EqualFold(m[2], "trades") {
			return fmt.Errorf("query reads %q, only %s.trades is allowed", strings.TrimPrefix(m[1]+"."+m[2], "."), database)
		}
	}
	return nil
}

// scopeSQL replaces each reference to the trades table with a subquery that
// applies the scope filter. s must already pass checkSQL.
func scopeSQL(s, database string, scope Scope) string {
	if scope.IsZero() {
		return s
	}
	sub := fmt.Sprintf("(SELECT * FROM %s.trades WHERE %s)", database, scope.filter())

	var b strings.Builder
	last := 0
	for _, loc := range fromRe.FindAllStringSubmatchIndex(s, -1) {
		ref := loc[4]
		if loc[2] >= 0 {
			ref = loc[2]
		}
		b.WriteString(s[last:ref])
		b.WriteString(sub)
		if !hasAlias(s[loc[1]:]) {
			b.WriteString(" AS trades")
		}
		last = loc[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

var clauseWords = map[string]bool{
	"WHERE": true, "PREWHERE": true, "GROUP": true, "ORDER": true, "LIMIT": true,
	"OFFSET": true, "HAVING": true, "JOIN": true, "INNER": true, "LEFT": true,
	"RIGHT": true, "FULL": true, "CROSS": true, "ANY": true, "ALL": true,
	"SEMI": true, "ANTI": true, "ASOF": true, "GLOBAL": true, "ARRAY": true,
	"ON": true, "USING": true, "UNION": true, "INTERSECT": true, "EXCEPT": true,
	"SETTINGS": true, "FINAL": true, "SAMPLE": true, "FORMAT": true, "WINDOW": true,
	"QUALIFY": true,
}

// hasAlias reports whether the table reference followed by rest already
// carries an alias.
func hasAlias(rest string) bool {
	rest = strings.TrimLeft(rest, " \t\r\n")
	end := strings.IndexFunc(rest, func(r rune) bool {
		return !(r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	})
	if end < 0 {
		end = len(rest)
	}
	word := strings.ToUpper(rest[:end])
	if word == "" {
		return false
	}
	return word == "AS" || !clauseWords[word]
}
