package recorder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aman-zulfiqar/arb-social-trading/internal/models"
)

// HTTPSubmitter posts trades to the backend's POST /trade.
type HTTPSubmitter struct {
	BaseURL string
	HTTP    *http.Client
}

func NewHTTPSubmitter(baseURL string, timeout time.Duration) *HTTPSubmitter {
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &HTTPSubmitter{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type tradeResponse struct {
	Success bool             `json:"success"`
	Data    *models.TradeRow `json:"data"`
	Error   string           `json:"error"`
	Details string           `json:"details"`
}

// SubmitError is a rejected submission.
type SubmitError struct {
	StatusCode int
	Message    string
}

func (e *SubmitError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("trade submit http %d", e.StatusCode)
	}
	return fmt.Sprintf("trade submit http %d: %s", e.StatusCode, e.Message)
}

func (s *HTTPSubmitter) SubmitTrade(ctx context.Context, trade *models.TradeRecord) (*models.TradeRow, error) {
	b, err := json.Marshal(trade)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/trade", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("accept", "application/json")

	res, err := s.HTTP.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	var out tradeResponse
	decodeErr := json.Unmarshal(body, &out)

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		if decodeErr == nil && out.Error != "" {
			msg = out.Error
		}
		return nil, &SubmitError{StatusCode: res.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode trade response: %w", decodeErr)
	}
	if !out.Success {
		return nil, &SubmitError{StatusCode: res.StatusCode, Message: out.Error}
	}
	return out.Data, nil
}
