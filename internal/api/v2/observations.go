package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/regenpgc/trialbase/internal/datastore/entities"
	"github.com/regenpgc/trialbase/internal/datastore/repository"
	"github.com/regenpgc/trialbase/internal/errors"
)

func (c *Controller) initObservationRoutes() {
	g := c.Group.Group("/observations")
	g.GET("", c.ListObservations)
	g.POST("", c.RecordObservation)
	g.GET("/:id", c.GetObservation)
}

// RecordObservation handles POST /api/v2/observations. The value is checked
// against the bounds of its variable.
func (c *Controller) RecordObservation(ctx echo.Context) error {
	var o entities.Observation
	if err := bind(ctx, &o); err != nil {
		return c.HandleError(ctx, err)
	}
	o.ID = ""
	if err := c.Trials.RecordObservation(ctx.Request().Context(), &o); err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.JSON(http.StatusCreated, single(o))
}

// GetObservation handles GET /api/v2/observations/:id
func (c *Controller) GetObservation(ctx echo.Context) error {
	o, err := c.Trials.GetObservation(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, single(o))
}

// ListObservations handles GET /api/v2/observations. Filters: plotCropId,
// variable, observerId, and from/to as RFC 3339 times.
func (c *Controller) ListObservations(ctx echo.Context) error {
	page, err := pageParams(ctx)
	if err != nil {
		return c.HandleError(ctx, err)
	}
	filter := repository.ObservationFilter{
		PlotCropID:    ctx.QueryParam("plotCropId"),
		VariableLabel: ctx.QueryParam("variable"),
		ObserverID:    ctx.QueryParam("observerId"),
	}
	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"from", &filter.From}, {"to", &filter.To}} {
		raw := ctx.QueryParam(p.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.HandleError(ctx, errors.FieldError(p.name, "%s must be an RFC 3339 time", p.name))
		}
		*p.dst = t
	}

	observations, total, err := c.Trials.ListObservations(ctx.Request().Context(), filter, page)
	if err != nil {
		return c.HandleError(ctx, err)
	}
	if observations == nil {
		observations = []entities.Observation{}
	}
	return ctx.JSON(http.StatusOK, paged(observations, page, total))
}
