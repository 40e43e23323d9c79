package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/arb-social-trading/internal/ai"
	"github.com/aman-zulfiqar/arb-social-trading/internal/constants"
	"github.com/aman-zulfiqar/arb-social-trading/internal/flags"
	"github.com/aman-zulfiqar/arb-social-trading/internal/models"
	"github.com/aman-zulfiqar/arb-social-trading/internal/storage"
)

// SocialGraph is the Farcaster social-graph upstream.
type SocialGraph interface {
	Mutuals(ctx context.Context, fid int64) (*models.FollowerResponse, error)
	HoldsClankers(ctx context.Context, fids []int64, chain string) (json.RawMessage, error)
}

// TokenDirectory is the blockchain data provider used for token discovery.
type TokenDirectory interface {
	Search(ctx context.Context, query string) ([]models.Token, error)
	Popular(ctx context.Context) ([]models.Token, error)
}

// FlagStore is the feature-flag store. *flags.Store implements it.
type FlagStore interface {
	Upsert(ctx context.Context, key string, value bool) (*flags.Flag, error)
	Get(ctx context.Context, key string) (*flags.Flag, error)
	List(ctx context.Context) ([]*flags.Flag, error)
	Delete(ctx context.Context, key string) error
}

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Social        SocialGraph        // Mutuals and token holdings upstream
	Tokens        TokenDirectory     // Token search and popularity (optional)
	TokenCache    storage.TokenCache // Redis-backed token listing cache (optional)
	TokenCacheTTL time.Duration      // Lifetime of cached token listings
	HoldingsChain string             // Chain name sent to the holdings upstream
	Trades        storage.TradeStore // Trade history store; nil means not configured
	Feed          storage.TradeFeed  // Live trade feed (optional)
	Sink          storage.TradeSink  // Analytics mirror (optional)
	Flags         FlagStore          // Redis-backed feature flags store
	AI            *ai.Agent          // AI agent for natural language queries
	AIBaseConfig  ai.AgentConfig     // Base configuration for AI agents
	HealthChecks  map[string]func(context.Context) error
	DevMode       bool           // Enable detailed error responses in development
	Logger        *logrus.Logger // Structured logger
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

func (h *Handlers) log() *logrus.Logger {
	if h.Logger == nil {
		return logrus.StandardLogger()
	}
	return h.Logger
}

// Root is the plain-text liveness check.
func (h *Handlers) Root(c echo.Context) error {
	return c.String(http.StatusOK, "Hello Hono!")
}

// Health reports liveness plus the result of each dependency check.
func (h *Handlers) Health(c echo.Context) error {
	resp := HealthResponse{OK: true}
	if len(h.HealthChecks) > 0 {
		ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
		defer cancel()

		resp.Checks = make(map[string]string, len(h.HealthChecks))
		for name, check := range h.HealthChecks {
			if err := check(ctx); err != nil {
				resp.OK = false
				resp.Checks[name] = err.Error()
				continue
			}
			resp.Checks[name] = "ok"
		}
	}
	if !resp.OK {
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

// Capabilities returns the resolved capability set.
func (h *Handlers) Capabilities(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	caps, err := flags.LoadCapabilities(ctx, h.flagGetter())
	if err != nil {
		h.log().WithError(err).Warn("capability lookup failed, using defaults")
	}
	return c.JSON(http.StatusOK, caps)
}

func (h *Handlers) flagGetter() flags.Getter {
	if h.Flags == nil {
		return nil
	}
	return h.Flags
}

// capabilityEnabled fails open: a lookup error leaves the capability on.
func (h *Handlers) capabilityEnabled(ctx context.Context, key string) bool {
	on, err := flags.Enabled(ctx, h.flagGetter(), key)
	if err != nil {
		h.log().WithError(err).WithField("flag", key).Warn("capability lookup failed")
	}
	return on
}

// FlagsUpsert creates or updates a feature flag with the given key and value
// Validates key format and returns the created/updated flag
func (h *Handlers) FlagsUpsert(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "flags are not configured", nil)
	}
	var req FlagUpsertRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if err := flags.ValidateKey(req.Key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, req.Key, req.Value)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to upsert flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsUpdate updates an existing feature flag with the given key
// Validates key format and returns the updated flag
func (h *Handlers) FlagsUpdate(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "flags are not configured", nil)
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}
	var req FlagUpdateRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, key, req.Value)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to update flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsGet retrieves a feature flag by its key
// Returns 404 if flag doesn't exist
func (h *Handlers) FlagsGet(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "flags are not configured", nil)
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Get(ctx, key)
	if err != nil {
		if errors.Is(err, flags.ErrNotFound) {
			return h.err(c, http.StatusNotFound, "flag not found", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsList returns all feature flags in the system
func (h *Handlers) FlagsList(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "flags are not configured", nil)
	}
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Flags.List(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list flags", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// FlagsDelete removes a feature flag by its key
// Returns 204 No Content on successful deletion
func (h *Handlers) FlagsDelete(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "flags are not configured", nil)
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Flags.Delete(ctx, key); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to delete flag", nil)
	}
	return c.NoContent(http.StatusNoContent)
}

// AIAsk answers natural language questions about recorded trades
// Supports optional model override for one-off requests
// Returns SQL query and answer with execution time
func (h *Handlers) AIAsk(c echo.Context) error {
	if h.AI == nil {
		return h.err(c, http.StatusBadRequest, "ai is not configured", nil)
	}

	var req AIAskRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return h.err(c, http.StatusBadRequest, "question is required", map[string]any{"question": "required"})
	}
	if req.FID < 0 {
		return h.err(c, http.StatusBadRequest, "invalid fid", map[string]any{"fid": "must be positive"})
	}
	if req.Chain != 0 && !slices.Contains(constants.TradeChains, req.Chain) {
		return h.err(c, http.StatusBadRequest, "unsupported chain", map[string]any{"chain": req.Chain})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 45*time.Second)
	defer cancel()

	start := time.Now()

	// A model override gets a short-lived agent of its own.
	agent := h.AI
	if m := strings.TrimSpace(req.Model); m != "" {
		cfg := h.AIBaseConfig
		cfg.Model = m
		a, err := ai.NewAgent(ctx, cfg)
		if err != nil {
			h.log().WithError(err).WithField("model", m).Warn("failed to create ai agent")
			return h.err(c, http.StatusInternalServerError, "failed to create ai agent", nil)
		}
		defer a.Close()
		agent = a
	}

	res, err := agent.Ask(ctx, req.Question, ai.Scope{FID: req.FID, Chain: req.Chain})
	if err != nil {
		h.log().WithError(err).Warn("ai ask failed")
		return h.err(c, http.StatusInternalServerError, "ai ask failed", map[string]any{"err": err.Error()})
	}

	return c.JSON(http.StatusOK, AIAskResponse{
		SQL:       res.SQL,
		Answer:    res.Answer,
		Rows:      res.Rows,
		Truncated: res.Truncated,
		TookMs:    time.Since(start).Milliseconds(),
	})
}
