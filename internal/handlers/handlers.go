package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/mauv0809/dealscope/internal/db"
	"github.com/mauv0809/dealscope/internal/deal"
	"github.com/mauv0809/dealscope/internal/finance"
	"github.com/mauv0809/dealscope/internal/ingest"
	"github.com/mauv0809/dealscope/internal/models"
	"github.com/mauv0809/dealscope/internal/projection"
	"github.com/mauv0809/dealscope/internal/service"
	"github.com/sirupsen/logrus"
)

// Deals is the deal workflow the handlers drive.
type Deals interface {
	Preview(in deal.Inputs) (service.Analysis, error)
	Create(ctx context.Context, req service.DealRequest) (models.Deal, error)
	Get(ctx context.Context, id uuid.UUID) (models.Deal, error)
	List(ctx context.Context, f db.DealFilter) ([]models.Deal, error)
	Update(ctx context.Context, id uuid.UUID, req service.DealRequest) (models.Deal, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Projections(ctx context.Context, id uuid.UUID, a projection.Assumptions) (projection.Result, error)
}

// Markets serves market snapshots.
type Markets interface {
	Snapshot(ctx context.Context, zip string) (models.MarketSnapshot, error)
	History(ctx context.Context, zip string) ([]models.MarketSnapshot, error)
	Compare(ctx context.Context, zips []string) ([]models.MarketSnapshot, error)
}

// Properties stores properties.
type Properties interface {
	Create(ctx context.Context, p models.Property) (models.Property, error)
	Get(ctx context.Context, id uuid.UUID) (models.Property, error)
	List(ctx context.Context, limit, offset int) ([]models.Property, error)
	Update(ctx context.Context, id uuid.UUID, u service.PropertyUpdate) (models.Property, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SampleData() service.LookupResult
}

type Handler struct {
	deals      Deals
	markets    Markets
	properties Properties
	log        *logrus.Logger
}

func New(deals Deals, markets Markets, properties Properties, log *logrus.Logger) *Handler {
	return &Handler{deals: deals, markets: markets, properties: properties, log: log}
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code"`
}

// Routes registers every endpoint except the provider lookups.
func (h *Handler) Routes(e *echo.Echo) {
	e.GET("/health", h.Health)

	api := e.Group("/api")
	api.POST("/deals/preview", h.PreviewDeal)
	api.POST("/deals", h.CreateDeal)
	api.GET("/deals", h.ListDeals)
	api.GET("/deals/:id", h.GetDeal)
	api.PUT("/deals/:id", h.UpdateDeal)
	api.DELETE("/deals/:id", h.DeleteDeal)
	api.GET("/deals/:id/projections", h.DealProjections)
	api.POST("/projections", h.RunProjection)

	api.GET("/risk/factors", h.RiskFactors)

	api.POST("/properties", h.CreateProperty)
	api.GET("/properties", h.ListProperties)
	api.GET("/properties/sample-data", h.PropertySampleData)
	api.GET("/properties/:id", h.GetProperty)
	api.PUT("/properties/:id", h.UpdateProperty)
	api.DELETE("/properties/:id", h.DeleteProperty)

	api.GET("/markets/compare", h.CompareMarkets)
	api.GET("/markets/:zip", h.MarketSnapshot)
	api.GET("/markets/:zip/history", h.MarketHistory)
}

// Health returns application health status
// @Summary Health check
// @Description Returns the health status of the application
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// fail maps domain errors to a status and error code. Unexpected errors
// are logged and hidden from the client.
func fail(c echo.Context, log *logrus.Logger, err error) error {
	status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
	message := err.Error()

	switch {
	case errors.Is(err, finance.ErrInvalidInput):
		status, code = http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, db.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, ingest.ErrPropertyNotFound):
		status, code = http.StatusNotFound, "PROPERTY_NOT_FOUND"
		message = "We couldn't find that property. Check the address and try again."
	case errors.Is(err, ingest.ErrQuotaExhausted):
		status, code = http.StatusTooManyRequests, "QUOTA_EXHAUSTED"
	case errors.Is(err, ingest.ErrMissingAPIKey), errors.Is(err, ingest.ErrUnavailable):
		status, code = http.StatusServiceUnavailable, "PROVIDER_UNAVAILABLE"
	case errors.Is(err, ingest.ErrServerError):
		status, code = http.StatusBadGateway, "PROVIDER_ERROR"
	default:
		log.WithFields(logrus.Fields{
			"method": c.Request().Method,
			"path":   c.Path(),
			"error":  err.Error(),
		}).Error("request failed")
		message = "internal error"
	}

	return c.JSON(status, ErrorResponse{Success: false, Message: message, ErrorCode: code})
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Message: message, ErrorCode: "INVALID_INPUT"})
}

func parseID(c echo.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	return id, err == nil
}

// queryInt returns def when the parameter is absent.
func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
