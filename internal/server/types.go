package server

import "github.com/aman-zulfiqar/arb-social-trading/internal/models"

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// MessageResponse is the bare error body of the token endpoint.
type MessageResponse struct {
	Error string `json:"error"`
}

// TradeResponse is the POST /trade envelope.
type TradeResponse struct {
	Success bool             `json:"success"`
	Data    *models.TradeRow `json:"data,omitempty"`
	Error   string           `json:"error,omitempty"`
	Details string           `json:"details,omitempty"`
}

// TradeListResponse wraps a page of trade history.
type TradeListResponse struct {
	Items []*models.TradeRow `json:"items"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK     bool              `json:"ok"`               // Overall health
	Checks map[string]string `json:"checks,omitempty"` // Per-dependency result, "ok" or the error
}

// TokenListResponse wraps a token listing.
type TokenListResponse struct {
	Items []models.Token `json:"items"`
}

// FlagUpsertRequest represents a request to create or update a feature flag
type FlagUpsertRequest struct {
	Key   string `json:"key"`   // Flag key (must match regex pattern)
	Value bool   `json:"value"` // Flag value (true/false)
}

// FlagUpdateRequest represents a request to update an existing feature flag
type FlagUpdateRequest struct {
	Value bool `json:"value"` // New flag value
}

// AIAskRequest represents a natural language query request
type AIAskRequest struct {
	Question string `json:"question"`        // Natural language question about trade activity
	Model    string `json:"model"`           // Optional AI model override
	FID      int64  `json:"fid,omitempty"`   // Limit answers to one trader
	Chain    int64  `json:"chain,omitempty"` // Limit answers to one chain
}

// AIAskResponse represents the response from an AI query
type AIAskResponse struct {
	SQL       string `json:"sql"`                 // Query that ran, scope filter included
	Answer    string `json:"answer"`              // Natural language answer
	Rows      int    `json:"rows"`                // Rows the answer was based on
	Truncated bool   `json:"truncated,omitempty"` // More rows matched than were summarised
	TookMs    int64  `json:"took_ms"`             // Execution time in milliseconds
}
