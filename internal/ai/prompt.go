package ai

import (
	"fmt"
	"strings"
)

func sqlPrompt(database string, scope Scope, question string) string {
	var b strings.Builder
	b.WriteString("Write one ClickHouse SELECT that answers a question about social trades.\n\n")
	b.WriteString(schemaDescription(database))
	b.WriteString("\nRules:\n")
	fmt.Fprintf(&b, "- Read only from %s.trades. Reply with the SQL and nothing else.\n", database)
	b.WriteString("- Filter time on timestamp, e.g. timestamp >= now() - INTERVAL 7 DAY.\n")
	b.WriteString("- USDC volume is sum(amount_in). Popular tokens group by token_address_out.\n")
	b.WriteString("- Always LIMIT row-returning queries to 50 rows or fewer.\n")
	if !scope.IsZero() {
		fmt.Fprintf(&b, "- Rows are already restricted to %s. Do not filter on fid or chain for that.\n", scope)
	}
	fmt.Fprintf(&b, "\nQuestion: %s\n", question)
	return b.String()
}

func answerPrompt(question, query, rowsJSON string, truncated bool, scope Scope) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Answer a question about social trades by %s on Base and Arbitrum.\n\n", scope)
	fmt.Fprintf(&b, "Question: %s\n\nSQL:\n%s\n\nRows (JSON):\n%s\n", question, query, rowsJSON)
	if truncated {
		b.WriteString("(only the first rows are shown)\n")
	}
	b.WriteString("\nKeep it short. Say plainly when there are no rows. ")
	b.WriteString("Name chains rather than ids, round USDC to cents and never paste the JSON back.\n")
	return b.String()
}
