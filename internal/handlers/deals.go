package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/mauv0809/dealscope/internal/db"
	"github.com/mauv0809/dealscope/internal/deal"
	"github.com/mauv0809/dealscope/internal/projection"
	"github.com/mauv0809/dealscope/internal/risk"
	"github.com/mauv0809/dealscope/internal/service"
	"github.com/shopspring/decimal"
)

// ProjectionRequest is the body of POST /api/projections. Omitted
// assumptions keep their defaults.
type ProjectionRequest struct {
	deal.Inputs
	projection.Assumptions
}

// PreviewDeal handles POST /api/deals/preview
// Computes metrics and risk without saving anything.
func (h *Handler) PreviewDeal(c echo.Context) error {
	var in deal.Inputs
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid request body")
	}

	res, err := h.deals.Preview(in)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// CreateDeal handles POST /api/deals
func (h *Handler) CreateDeal(c echo.Context) error {
	var req service.DealRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	d, err := h.deals.Create(c.Request().Context(), req)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, d)
}

// ListDeals handles GET /api/deals
// Query params:
// - status: exact status match (optional)
// - property_id: only deals of this property (optional)
// - limit: page size, 1-100 (default 20)
// - offset: rows to skip (default 0)
func (h *Handler) ListDeals(c echo.Context) error {
	f := db.DealFilter{Status: strings.TrimSpace(c.QueryParam("status"))}

	if raw := c.QueryParam("property_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return badRequest(c, "property_id must be a uuid")
		}
		f.PropertyID = &id
	}

	var err error
	if f.Limit, err = queryInt(c, "limit", service.DefaultPageSize); err != nil || f.Limit < 1 || f.Limit > service.MaxPageSize {
		return badRequest(c, "limit must be between 1 and 100")
	}
	if f.Offset, err = queryInt(c, "offset", 0); err != nil || f.Offset < 0 {
		return badRequest(c, "offset must be >= 0")
	}

	deals, err := h.deals.List(c.Request().Context(), f)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, deals)
}

// GetDeal handles GET /api/deals/:id
func (h *Handler) GetDeal(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "id must be a uuid")
	}

	d, err := h.deals.Get(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, d)
}

// UpdateDeal handles PUT /api/deals/:id
// The body replaces the deal's inputs; metrics and risk are recomputed.
func (h *Handler) UpdateDeal(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "id must be a uuid")
	}

	var req service.DealRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	d, err := h.deals.Update(c.Request().Context(), id, req)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, d)
}

// DeleteDeal handles DELETE /api/deals/:id
func (h *Handler) DeleteDeal(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "id must be a uuid")
	}

	if err := h.deals.Delete(c.Request().Context(), id); err != nil {
		return fail(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// DealProjections handles GET /api/deals/:id/projections
// Query params (all optional, percentages in percent):
// - years: 1-30 (default 10)
// - appreciation, rent_growth, expense_growth (defaults 3, 2, 2)
// - selling_costs (default 6)
func (h *Handler) DealProjections(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "id must be a uuid")
	}

	a, msg := assumptionsFromQuery(c)
	if msg != "" {
		return badRequest(c, msg)
	}

	res, err := h.deals.Projections(c.Request().Context(), id, a)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// RunProjection handles POST /api/projections
// Projects unsaved deal inputs.
func (h *Handler) RunProjection(c echo.Context) error {
	req := ProjectionRequest{Assumptions: projection.DefaultAssumptions()}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	res, err := service.Project(req.Inputs, req.Assumptions)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// RiskFactors handles GET /api/risk/factors
func (h *Handler) RiskFactors(c echo.Context) error {
	return c.JSON(http.StatusOK, risk.Factors())
}

func assumptionsFromQuery(c echo.Context) (projection.Assumptions, string) {
	a := projection.DefaultAssumptions()

	years, err := queryInt(c, "years", a.Years)
	if err != nil {
		return a, "years must be an integer"
	}
	a.Years = years

	pcts := []struct {
		param string
		dst   *decimal.Decimal
	}{
		{"appreciation", &a.AppreciationPct},
		{"rent_growth", &a.RentGrowthPct},
		{"expense_growth", &a.ExpenseGrowthPct},
		{"selling_costs", &a.SellingCostPct},
	}
	for _, p := range pcts {
		raw := c.QueryParam(p.param)
		if raw == "" {
			continue
		}
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return a, p.param + " must be a number"
		}
		*p.dst = v
	}

	return a, ""
}
