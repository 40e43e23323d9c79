package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/arb-social-trading/internal/constants"
	"github.com/aman-zulfiqar/arb-social-trading/internal/models"
)

var (
	fidParamRe = regexp.MustCompile(`^\d+$`)
	txHashRe   = regexp.MustCompile(`^0x[a-fA-F0-9]{64}$`)
	addressRe  = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
)

// timestampLayouts are tried in order. RFC3339 also accepts fractional seconds.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123,
	time.RFC1123Z,
}

// FieldError is one failed rule.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every failed rule in field order.
type ValidationError struct {
	Issues []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, is.Field+": "+is.Message)
	}
	return strings.Join(parts, ", ")
}

func (e *ValidationError) add(field, msg string) {
	e.Issues = append(e.Issues, FieldError{Field: field, Message: msg})
}

// ParseFIDParam validates a path fid: digits only and positive.
func ParseFIDParam(s string) (int64, bool) {
	if !fidParamRe.MatchString(s) {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// ParseTimestamp accepts RFC3339 and the common ISO-8601 date forms.
// Values without a zone are UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ParseTradeRequest decodes and validates a POST /trade body.
func ParseTradeRequest(body []byte) (*models.TradeRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil || raw == nil {
		return nil, &ValidationError{Issues: []FieldError{{Field: "body", Message: "Expected object"}}}
	}

	verr := &ValidationError{}
	rec := &models.TradeRecord{Chain: constants.PrimaryChain}

	if v, ok := present(raw, "fid"); !ok {
		verr.add("fid", "Required")
	} else if n, ok := asInt(v); !ok || n <= 0 {
		verr.add("fid", "FID must be a positive integer")
	} else {
		rec.FID = n
	}

	rec.WalletAddress = optionalAddress(raw, "wallet_address", verr)

	if v, ok := present(raw, "tx_hash"); !ok {
		verr.add("tx_hash", "Required")
	} else if s, ok := v.(string); !ok {
		verr.add("tx_hash", "Expected string")
	} else if len(s) != 66 {
		verr.add("tx_hash", "Transaction hash must be exactly 66 characters")
	} else if !txHashRe.MatchString(s) {
		verr.add("tx_hash", "Invalid transaction hash format")
	} else {
		rec.TxHash = s
	}

	rec.TokenAddressIn = optionalAddress(raw, "token_address_in", verr)
	rec.TokenAddressOut = optionalAddress(raw, "token_address_out", verr)
	rec.AmountIn = optionalAmount(raw, "amount_in", verr)
	rec.AmountOut = optionalAmount(raw, "amount_out", verr)

	if v, ok := present(raw, "timestamp"); !ok {
		verr.add("timestamp", "Required")
	} else if s, ok := v.(string); !ok {
		verr.add("timestamp", "Expected string")
	} else if ts, ok := ParseTimestamp(s); !ok {
		verr.add("timestamp", "Invalid timestamp format")
	} else {
		rec.Timestamp = ts
	}

	if v, ok := present(raw, "chain"); ok {
		n, ok := asInt(v)
		if !ok || !constants.IsTradeChain(n) {
			verr.add("chain", fmt.Sprintf("Chain must be %d or %d", constants.ChainBase, constants.ChainArbitrum))
		} else {
			rec.Chain = n
		}
	}

	if len(verr.Issues) > 0 {
		return nil, verr
	}
	return rec, nil
}

// present treats a missing key and JSON null alike.
func present(raw map[string]any, key string) (any, bool) {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func optionalAddress(raw map[string]any, key string, verr *ValidationError) string {
	v, ok := present(raw, key)
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		verr.add(key, "Expected string")
		return ""
	}
	if s == "" {
		return ""
	}
	if !addressRe.MatchString(s) {
		verr.add(key, "Invalid address format")
		return ""
	}
	return s
}

func optionalAmount(raw map[string]any, key string, verr *ValidationError) float64 {
	v, ok := present(raw, key)
	if !ok {
		return 0
	}
	n, ok := v.(json.Number)
	if !ok {
		verr.add(key, "Expected number")
		return 0
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		verr.add(key, "Expected number")
		return 0
	}
	if f < 0 {
		verr.add(key, "Amount must be greater than or equal to 0")
		return 0
	}
	return f
}

// asInt accepts integral JSON numbers, including forms like 3.0 and 3e2.
func asInt(v any) (int64, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	if i, err := n.Int64(); err == nil {
		return i, true
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, false
	}
	return int64(f), true
}
