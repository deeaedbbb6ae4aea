package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/regenpgc/trialbase/internal/datastore/entities"
)

func (c *Controller) initPeopleRoutes() {
	g := c.Group.Group("/people")
	g.GET("", c.ListPeople)
	g.POST("", c.CreatePerson)
	g.GET("/:id", c.GetPerson)
	g.PUT("/:id", c.UpdatePerson)
	g.DELETE("/:id", c.DeletePerson)
}

// ListPeople handles GET /api/v2/people
func (c *Controller) ListPeople(ctx echo.Context) error {
	page, err := pageParams(ctx)
	if err != nil {
		return c.HandleError(ctx, err)
	}
	people, total, err := c.Trials.ListPeople(ctx.Request().Context(), page)
	if err != nil {
		return c.HandleError(ctx, err)
	}
	if people == nil {
		people = []entities.Person{}
	}
	return ctx.JSON(http.StatusOK, paged(people, page, total))
}

// CreatePerson handles POST /api/v2/people
func (c *Controller) CreatePerson(ctx echo.Context) error {
	var p entities.Person
	if err := bind(ctx, &p); err != nil {
		return c.HandleError(ctx, err)
	}
	// Identifiers are assigned by the server.
	p.ID = ""
	if err := c.Trials.CreatePerson(ctx.Request().Context(), &p); err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.JSON(http.StatusCreated, single(p))
}

// GetPerson handles GET /api/v2/people/:id
func (c *Controller) GetPerson(ctx echo.Context) error {
	p, err := c.Trials.GetPerson(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, single(p))
}

// UpdatePerson handles PUT /api/v2/people/:id. The body replaces the stored
// record.
func (c *Controller) UpdatePerson(ctx echo.Context) error {
	var p entities.Person
	if err := bind(ctx, &p); err != nil {
		return c.HandleError(ctx, err)
	}
	p.ID = ctx.Param("id")
	if err := c.Trials.UpdatePerson(ctx.Request().Context(), &p); err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, single(p))
}

// DeletePerson handles DELETE /api/v2/people/:id
func (c *Controller) DeletePerson(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	report, err := c.Trials.DeletePerson(reqCtx, ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err)
	}
	// Trials managed by the person are gone, and their plots with them.
	c.plotCache.Flush()
	c.purgeImages(reqCtx, "person_id", ctx.Param("id"), report.ImageURLs)
	return ctx.NoContent(http.StatusNoContent)
}
