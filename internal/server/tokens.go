package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/arb-social-trading/internal/constants"
	"github.com/aman-zulfiqar/arb-social-trading/internal/flags"
	"github.com/aman-zulfiqar/arb-social-trading/internal/models"
)

// TokensByFID returns the tokens held by the mutual followers of fid. The
// holdings body is relayed as received.
func (h *Handlers) TokensByFID(c echo.Context) error {
	fid, ok := ParseFIDParam(c.Param("fid"))
	if !ok {
		return c.JSON(http.StatusBadRequest, MessageResponse{Error: "FID must be a valid number"})
	}
	if h.Social == nil {
		return c.JSON(http.StatusInternalServerError, MessageResponse{Error: "Problem fetching follower data"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 25*time.Second)
	defer cancel()

	log := h.log().WithField("fid", fid)

	followers, err := h.Social.Mutuals(ctx, fid)
	if err != nil {
		log.WithError(err).Warn("mutuals lookup failed")
		return c.JSON(http.StatusInternalServerError, MessageResponse{Error: "Problem fetching follower data"})
	}

	fids := followers.FIDs()
	log.WithField("mutuals", len(fids)).Debug("fetched mutual followers")

	chain := h.HoldingsChain
	if chain == "" {
		chain = constants.HoldingsChain
	}
	body, err := h.Social.HoldsClankers(ctx, fids, chain)
	if err != nil {
		log.WithError(err).Warn("holdings lookup failed")
		return c.JSON(http.StatusInternalServerError, MessageResponse{Error: "Problem fetching token data"})
	}

	return c.JSONBlob(http.StatusOK, body)
}

// SearchTokens searches the token directory by name, symbol or address.
func (h *Handlers) SearchTokens(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return h.err(c, http.StatusBadRequest, "q is required", map[string]any{"q": "required"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	if !h.capabilityEnabled(ctx, flags.CapabilitySearch) {
		return h.err(c, http.StatusForbidden, "token search is disabled", nil)
	}
	if h.Tokens == nil {
		return h.err(c, http.StatusServiceUnavailable, "token directory is not configured", nil)
	}

	items, err := h.cachedTokens(ctx, "search:"+strings.ToLower(q), func(ctx context.Context) ([]models.Token, error) {
		return h.Tokens.Search(ctx, q)
	})
	if err != nil {
		return h.err(c, http.StatusBadGateway, "failed to search tokens", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, TokenListResponse{Items: items})
}

// PopularTokens returns the top tokens by volume.
func (h *Handlers) PopularTokens(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	if !h.capabilityEnabled(ctx, flags.CapabilitySearch) {
		return h.err(c, http.StatusForbidden, "token search is disabled", nil)
	}
	if h.Tokens == nil {
		return h.err(c, http.StatusServiceUnavailable, "token directory is not configured", nil)
	}

	items, err := h.cachedTokens(ctx, "popular", h.Tokens.Popular)
	if err != nil {
		return h.err(c, http.StatusBadGateway, "failed to fetch popular tokens", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, TokenListResponse{Items: items})
}

// CuratedTokens returns the built-in token list.
func (h *Handlers) CuratedTokens(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if !h.capabilityEnabled(ctx, flags.CapabilityCuratedList) {
		return h.err(c, http.StatusForbidden, "curated token list is disabled", nil)
	}
	return c.JSON(http.StatusOK, TokenListResponse{Items: constants.DefaultTokens})
}

// cachedTokens serves key from the token cache, filling it from fetch on a
// miss. Cache errors fall through to fetch.
func (h *Handlers) cachedTokens(ctx context.Context, key string, fetch func(context.Context) ([]models.Token, error)) ([]models.Token, error) {
	log := h.log().WithField("key", key)

	if h.TokenCache != nil {
		items, ok, err := h.TokenCache.GetTokens(ctx, key)
		if err != nil {
			log.WithError(err).Warn("token cache read failed")
		} else if ok {
			return items, nil
		}
	}

	items, err := fetch(ctx)
	if err != nil {
		log.WithError(err).Warn("token directory request failed")
		return nil, err
	}

	if h.TokenCache != nil {
		ttl := h.TokenCacheTTL
		if ttl <= 0 {
			ttl = constants.TokenCacheTTL
		}
		if err := h.TokenCache.SetTokens(ctx, key, items, ttl); err != nil {
			log.WithFields(logrus.Fields{"ttl": ttl}).WithError(err).Warn("token cache write failed")
		}
	}
	return items, nil
}
