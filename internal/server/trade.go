package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/arb-social-trading/internal/constants"
	"github.com/aman-zulfiqar/arb-social-trading/internal/metrics"
	"github.com/aman-zulfiqar/arb-social-trading/internal/models"
)

// TradeBodyLimit caps POST /trade bodies; larger ones get a 413.
const TradeBodyLimit = "64K"

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// PostTrade validates and stores one trade record. A repeated tx hash returns
// the stored row without inserting.
func (h *Handlers) PostTrade(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		return c.JSON(http.StatusBadRequest, TradeResponse{Success: false, Error: "invalid body"})
	}

	rec, err := ParseTradeRequest(body)
	if err != nil {
		metrics.TradesStored.WithLabelValues("invalid").Inc()
		return c.JSON(http.StatusBadRequest, TradeResponse{Success: false, Error: err.Error()})
	}

	if h.Trades == nil {
		h.log().Error("trade store is not configured")
		return c.JSON(http.StatusInternalServerError, TradeResponse{Success: false, Error: "Database configuration missing"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	log := h.log().WithFields(logrus.Fields{"fid": rec.FID, "tx": rec.TxHash, "chain": rec.Chain})

	row, created, err := h.Trades.InsertTrade(ctx, rec)
	if err != nil {
		metrics.TradesStored.WithLabelValues("error").Inc()
		log.WithError(err).Error("failed to store trade")
		return c.JSON(http.StatusInternalServerError, TradeResponse{
			Success: false,
			Error:   err.Error(),
			Details: err.Error(),
		})
	}

	if !created {
		metrics.TradesStored.WithLabelValues("duplicate").Inc()
		log.Info("trade already recorded")
		return c.JSON(http.StatusOK, TradeResponse{Success: true, Data: row})
	}

	metrics.TradesStored.WithLabelValues("inserted").Inc()
	log.WithField("id", row.ID).Info("trade recorded")
	h.fanOut(row)

	return c.JSON(http.StatusOK, TradeResponse{Success: true, Data: row})
}

// TradeHistory lists a user's recorded trades, newest first. The optional
// chain query parameter keeps one chain and limit caps the page size.
func (h *Handlers) TradeHistory(c echo.Context) error {
	fid, ok := ParseFIDParam(c.Param("fid"))
	if !ok {
		return h.err(c, http.StatusBadRequest, "FID must be a valid number", nil)
	}

	var chain int64
	if v := c.QueryParam("chain"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || !slices.Contains(constants.TradeChains, n) {
			return h.err(c, http.StatusBadRequest, "unsupported chain", map[string]any{"chain": v})
		}
		chain = n
	}

	limit := defaultHistoryLimit
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return h.err(c, http.StatusBadRequest, "limit must be a positive number", nil)
		}
		limit = min(n, maxHistoryLimit)
	}

	if h.Trades == nil {
		return h.err(c, http.StatusServiceUnavailable, "trade store is not configured", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	rows, err := h.Trades.TradesByFID(ctx, fid, chain, limit)
	if err != nil {
		h.log().WithError(err).WithField("fid", fid).Error("failed to list trades")
		return h.err(c, http.StatusInternalServerError, "failed to list trades", err.Error())
	}
	return c.JSON(http.StatusOK, TradeListResponse{Items: rows})
}

// fanOut publishes and mirrors a stored trade in the background. Failures
// are logged only.
func (h *Handlers) fanOut(row *models.TradeRow) {
	if h.Feed == nil && h.Sink == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		log := h.log().WithField("tx", row.TxHash)
		if h.Feed != nil {
			if err := h.Feed.PublishTrade(ctx, row); err != nil {
				log.WithError(err).Warn("failed to publish trade")
			}
		}
		if h.Sink != nil {
			if err := h.Sink.InsertTrade(ctx, row); err != nil {
				log.WithError(err).Warn("failed to mirror trade to analytics")
			}
		}
	}()
}
