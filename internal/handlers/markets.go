package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// MarketSnapshot handles GET /api/markets/:zip
// Live lookup that is stored as today's snapshot; falls back to the most
// recent stored snapshot when the provider is unavailable.
func (h *Handler) MarketSnapshot(c echo.Context) error {
	snap, err := h.markets.Snapshot(c.Request().Context(), c.Param("zip"))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, snap)
}

// MarketHistory handles GET /api/markets/:zip/history
func (h *Handler) MarketHistory(c echo.Context) error {
	zip := c.Param("zip")
	history, err := h.markets.History(c.Request().Context(), zip)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"zip_code":  zip,
		"snapshots": history,
	})
}

// CompareMarkets handles GET /api/markets/compare?zips=53081,53202
// Zips without stored data are omitted.
func (h *Handler) CompareMarkets(c echo.Context) error {
	raw := c.QueryParam("zips")
	if strings.TrimSpace(raw) == "" {
		return badRequest(c, "zips parameter is required (e.g., ?zips=53081,53202)")
	}

	snaps, err := h.markets.Compare(c.Request().Context(), strings.Split(raw, ","))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, snaps)
}
