package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/regenpgc/trialbase/internal/datastore/entities"
)

func (c *Controller) initTrialRoutes() {
	g := c.Group.Group("/trials")
	g.GET("", c.ListTrials)
	g.GET("/:id", c.GetTrial)
	g.POST("/:id/years", c.AddTrialYear)
}

// ListTrials handles GET /api/v2/trials
func (c *Controller) ListTrials(ctx echo.Context) error {
	page, err := pageParams(ctx)
	if err != nil {
		return c.HandleError(ctx, err)
	}
	trials, total, err := c.Trials.ListTrials(ctx.Request().Context(), page)
	if err != nil {
		return c.HandleError(ctx, err)
	}
	if trials == nil {
		trials = []entities.Trial{}
	}
	return ctx.JSON(http.StatusOK, paged(trials, page, total))
}

// GetTrial handles GET /api/v2/trials/:id
func (c *Controller) GetTrial(ctx echo.Context) error {
	t, err := c.Trials.GetTrial(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, single(t))
}

// TrialYearRequest is the body of POST /trials/:id/years.
type TrialYearRequest struct {
	Year int `json:"year"`
}

// AddTrialYear handles POST /api/v2/trials/:id/years. A year before the
// trial's establishment year is rejected with 400.
func (c *Controller) AddTrialYear(ctx echo.Context) error {
	var req TrialYearRequest
	if err := bind(ctx, &req); err != nil {
		return c.HandleError(ctx, err)
	}
	ty, err := c.Trials.AddTrialYear(ctx.Request().Context(), ctx.Param("id"), req.Year)
	if err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.JSON(http.StatusCreated, single(ty))
}
