package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mauv0809/dealscope/internal/ingest"
	"github.com/mauv0809/dealscope/internal/service"
	"github.com/sirupsen/logrus"
)

// Lookups fetches provider data for an address.
type Lookups interface {
	Lookup(ctx context.Context, address string) (service.LookupResult, error)
	Comps(ctx context.Context, address string, radius float64) ([]ingest.RentalComp, error)
}

// LookupHandler serves the property-data provider endpoints.
type LookupHandler struct {
	lookups Lookups
	log     *logrus.Logger
}

// NewLookupHandler creates a new lookup handler.
func NewLookupHandler(lookups Lookups, log *logrus.Logger) *LookupHandler {
	return &LookupHandler{lookups: lookups, log: log}
}

// Routes registers the lookup endpoints.
func (h *LookupHandler) Routes(e *echo.Echo) {
	api := e.Group("/api")
	api.GET("/properties/lookup", h.Lookup)
	api.GET("/properties/comps", h.Comps)
}

// Lookup handles GET /api/properties/lookup?address=
// Returns the property record merged with its rent and value estimates,
// for prefilling a deal.
func (h *LookupHandler) Lookup(c echo.Context) error {
	address := c.QueryParam("address")
	if address == "" {
		return badRequest(c, "address parameter is required")
	}

	start := time.Now()
	res, err := h.lookups.Lookup(c.Request().Context(), address)
	if err != nil {
		return fail(c, h.log, err)
	}

	h.log.WithField("elapsed", time.Since(start).String()).Debug("property lookup served")
	return c.JSON(http.StatusOK, res)
}

// Comps handles GET /api/properties/comps?address=&radius=
// radius is in miles (default 1).
func (h *LookupHandler) Comps(c echo.Context) error {
	address := c.QueryParam("address")
	if address == "" {
		return badRequest(c, "address parameter is required")
	}

	radius := 0.0
	if raw := c.QueryParam("radius"); raw != "" {
		var err error
		radius, err = strconv.ParseFloat(raw, 64)
		if err != nil || radius <= 0 {
			return badRequest(c, "radius must be a positive number")
		}
	}

	comps, err := h.lookups.Comps(c.Request().Context(), address, radius)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"address": address,
		"count":   len(comps),
		"comps":   comps,
	})
}

// MarketIngester refreshes stored market snapshots in bulk.
type MarketIngester interface {
	Ingest(ctx context.Context, zips []string) (service.IngestResult, error)
}

// IngestResponse represents the response from ingestion operations
type IngestResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Count   int      `json:"count,omitempty"`
	Skipped []string `json:"skipped,omitempty"`
	Elapsed string   `json:"elapsed,omitempty"`
}

// IngestRequest lists the zips to ingest.
type IngestRequest struct {
	Zips []string `json:"zips"`
}

// IngestHandler serves the admin ingestion endpoints.
type IngestHandler struct {
	ingester MarketIngester
	log      *logrus.Logger
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(ingester MarketIngester, log *logrus.Logger) *IngestHandler {
	return &IngestHandler{ingester: ingester, log: log}
}

// Routes registers the admin ingestion endpoints.
func (h *IngestHandler) Routes(e *echo.Echo) {
	admin := e.Group("/api/admin/ingest")
	admin.POST("/markets", h.IngestMarkets)
}

// IngestMarkets handles POST /api/admin/ingest/markets
// Zips come from the body ({"zips": [...]}) or the zips query parameter.
func (h *IngestHandler) IngestMarkets(c echo.Context) error {
	var req IngestRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
	}
	if raw := c.QueryParam("zips"); raw != "" {
		req.Zips = append(req.Zips, strings.Split(raw, ",")...)
	}
	if len(req.Zips) == 0 {
		return badRequest(c, "zips are required (body {\"zips\": [...]} or ?zips=53081,53202)")
	}

	start := time.Now()
	res, err := h.ingester.Ingest(c.Request().Context(), req.Zips)
	if err != nil {
		return fail(c, h.log, err)
	}

	elapsed := time.Since(start)
	h.log.WithFields(logrus.Fields{
		"count":   res.Ingested,
		"skipped": len(res.Skipped),
		"elapsed": elapsed.String(),
	}).Info("market ingestion served")

	return c.JSON(http.StatusOK, IngestResponse{
		Success: true,
		Message: fmt.Sprintf("Successfully ingested %d market snapshots", res.Ingested),
		Count:   res.Ingested,
		Skipped: res.Skipped,
		Elapsed: elapsed.String(),
	})
}
