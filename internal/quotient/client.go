package quotient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/aman-zulfiqar/arb-social-trading/internal/constants"
	"github.com/aman-zulfiqar/arb-social-trading/internal/metrics"
	"github.com/aman-zulfiqar/arb-social-trading/internal/models"
)

// Client talks to the Quotient social-graph API. It never retries: one call
// in is one call out.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
	limiter *rate.Limiter
}

// NewClient builds a client. rps caps outbound calls; rps <= 0 disables the cap.
func NewClient(baseURL, apiKey string, rps float64) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = constants.QuotientBaseURL
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  strings.TrimSpace(apiKey),
		HTTP: &http.Client{
			Timeout: 12 * time.Second,
		},
		limiter: rate.NewLimiter(limit, 5),
	}
}

type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	b := strings.TrimSpace(string(e.Body))
	if b == "" {
		return fmt.Sprintf("quotient http %d", e.StatusCode)
	}
	return fmt.Sprintf("quotient http %d: %s", e.StatusCode, b)
}

type mutualsRequest struct {
	FID    int64  `json:"fid"`
	APIKey string `json:"api_key"`
}

type holdingsRequest struct {
	FIDs   []int64 `json:"fids"`
	APIKey string  `json:"api_key"`
	Chain  string  `json:"chain"`
}

// Mutuals returns the users that follow fid and are followed back.
func (c *Client) Mutuals(ctx context.Context, fid int64) (*models.FollowerResponse, error) {
	if fid <= 0 {
		return nil, fmt.Errorf("fid must be positive")
	}

	body, err := c.post(ctx, "mutuals", "/farcaster-users/mutuals", mutualsRequest{FID: fid, APIKey: c.APIKey})
	if err != nil {
		return nil, err
	}

	var out models.FollowerResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode quotient mutuals response: %w", err)
	}
	return &out, nil
}

// HoldsClankers returns the clanker tokens held by any of fids on chain. The
// body is returned as received so callers can pass it through untouched.
func (c *Client) HoldsClankers(ctx context.Context, fids []int64, chain string) (json.RawMessage, error) {
	if fids == nil {
		fids = []int64{}
	}
	if strings.TrimSpace(chain) == "" {
		chain = constants.HoldingsChain
	}

	body, err := c.post(ctx, "holdings", "/holds-clankers", holdingsRequest{FIDs: fids, APIKey: c.APIKey, Chain: chain})
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("quotient holdings response is not valid json")
	}
	return json.RawMessage(body), nil
}

func (c *Client) post(ctx context.Context, upstream, path string, payload any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("quotient rate limit wait: %w", err)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("accept", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(upstream, "error").Inc()
		return nil, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		metrics.UpstreamRequests.WithLabelValues(upstream, "status").Inc()
		return nil, &HTTPError{StatusCode: res.StatusCode, Body: body}
	}
	metrics.UpstreamRequests.WithLabelValues(upstream, "ok").Inc()
	return body, nil
}
