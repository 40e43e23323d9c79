package blockscout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aman-zulfiqar/arb-social-trading/internal/constants"
	"github.com/aman-zulfiqar/arb-social-trading/internal/metrics"
	"github.com/aman-zulfiqar/arb-social-trading/internal/models"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = constants.BlockscoutBaseURL
	}
	return &Client{
		BaseURL: baseURL,
		HTTP: &http.Client{
			Timeout: 12 * time.Second,
		},
	}
}

type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	b := strings.TrimSpace(string(e.Body))
	if b == "" {
		return fmt.Sprintf("blockscout http %d", e.StatusCode)
	}
	return fmt.Sprintf("blockscout http %d: %s", e.StatusCode, b)
}

// TokensResponse is one page of /tokens.
type TokensResponse struct {
	Items          []models.Token  `json:"items"`
	NextPageParams *NextPageParams `json:"next_page_params,omitempty"`
}

type NextPageParams struct {
	ItemsCount      int   `json:"items_count"`
	SmartContractID int64 `json:"smart_contract_id"`
}

// TokenQuery narrows the ERC-20 listing. Zero values are omitted.
type TokenQuery struct {
	Query  string
	Filter string
}

// Tokens lists ERC-20 tokens matching q.
func (c *Client) Tokens(ctx context.Context, q TokenQuery) ([]models.Token, error) {
	v := url.Values{}
	v.Set("type", "ERC-20")
	if s := strings.TrimSpace(q.Query); s != "" {
		v.Set("q", s)
	}
	if q.Filter != "" {
		v.Set("filter", q.Filter)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/tokens?"+v.Encode(), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("accept", "application/json")

	res, err := c.HTTP.Do(httpReq)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues("blockscout", "error").Inc()
		return nil, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		metrics.UpstreamRequests.WithLabelValues("blockscout", "status").Inc()
		return nil, &HTTPError{StatusCode: res.StatusCode, Body: body}
	}
	metrics.UpstreamRequests.WithLabelValues("blockscout", "ok").Inc()

	var out TokensResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode blockscout tokens response: %w", err)
	}
	if out.Items == nil {
		out.Items = []models.Token{}
	}
	return out.Items, nil
}

// Search lists tokens whose name, symbol or address matches query.
func (c *Client) Search(ctx context.Context, query string) ([]models.Token, error) {
	return c.Tokens(ctx, TokenQuery{Query: query})
}

// Popular returns the top tokens by volume.
func (c *Client) Popular(ctx context.Context) ([]models.Token, error) {
	items, err := c.Tokens(ctx, TokenQuery{Filter: "by_volume"})
	if err != nil {
		return nil, err
	}
	if len(items) > constants.PopularTokenLimit {
		items = items[:constants.PopularTokenLimit]
	}
	return items, nil
}
