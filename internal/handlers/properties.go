package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mauv0809/dealscope/internal/models"
	"github.com/mauv0809/dealscope/internal/service"
)

// CreateProperty handles POST /api/properties
func (h *Handler) CreateProperty(c echo.Context) error {
	var p models.Property
	if err := c.Bind(&p); err != nil {
		return badRequest(c, "invalid request body")
	}

	created, err := h.properties.Create(c.Request().Context(), p)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, created)
}

// ListProperties handles GET /api/properties?limit=&offset=
func (h *Handler) ListProperties(c echo.Context) error {
	limit, err := queryInt(c, "limit", service.DefaultPageSize)
	if err != nil || limit < 1 || limit > service.MaxPageSize {
		return badRequest(c, "limit must be between 1 and 100")
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		return badRequest(c, "offset must be >= 0")
	}

	properties, err := h.properties.List(c.Request().Context(), limit, offset)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, properties)
}

// GetProperty handles GET /api/properties/:id
func (h *Handler) GetProperty(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "id must be a uuid")
	}

	p, err := h.properties.Get(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, p)
}

// UpdateProperty handles PUT /api/properties/:id
// Only the fields present in the body are changed.
func (h *Handler) UpdateProperty(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "id must be a uuid")
	}

	var u service.PropertyUpdate
	if err := c.Bind(&u); err != nil {
		return badRequest(c, "invalid request body")
	}

	p, err := h.properties.Update(c.Request().Context(), id, u)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, p)
}

// DeleteProperty handles DELETE /api/properties/:id
// Deals attached to the property are removed with it.
func (h *Handler) DeleteProperty(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "id must be a uuid")
	}

	if err := h.properties.Delete(c.Request().Context(), id); err != nil {
		return fail(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// PropertySampleData handles GET /api/properties/sample-data
func (h *Handler) PropertySampleData(c echo.Context) error {
	return c.JSON(http.StatusOK, h.properties.SampleData())
}
