package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/regenpgc/trialbase/internal/datastore/entities"
	"github.com/regenpgc/trialbase/internal/fieldtrial"
	"github.com/regenpgc/trialbase/internal/logger"
)

func (c *Controller) initPlotRoutes() {
	g := c.Group.Group("/plots")
	g.GET("", c.ListPlots)
	g.POST("", c.CreatePlot)
	g.GET("/:id", c.GetPlot)
	g.GET("/:id/children", c.GetPlotChildren)
	g.DELETE("/:id", c.DeletePlot)
}

type plotPage struct {
	plots []fieldtrial.PlotNode
	total int64
}

// ListPlots handles GET /api/v2/plots. The optional trialId query parameter
// limits the listing to one trial. Every plot carries the ids of its
// children. Listings are cached until the next plot write.
func (c *Controller) ListPlots(ctx echo.Context) error {
	page, err := pageParams(ctx)
	if err != nil {
		return c.HandleError(ctx, err)
	}
	trialID := ctx.QueryParam("trialId")
	key := fmt.Sprintf("plots:%s:%d:%d", trialID, page.Number, page.Size)

	if cached, ok := c.plotCache.Get(key); ok {
		c.recordCacheLookup(true)
		pp := cached.(plotPage)
		return ctx.JSON(http.StatusOK, paged(pp.plots, page, pp.total))
	}
	c.recordCacheLookup(false)

	plots, total, err := c.Trials.ListPlots(ctx.Request().Context(), trialID, page)
	if err != nil {
		return c.HandleError(ctx, err)
	}
	if plots == nil {
		plots = []fieldtrial.PlotNode{}
	}
	c.plotCache.SetDefault(key, plotPage{plots: plots, total: total})
	return ctx.JSON(http.StatusOK, paged(plots, page, total))
}

func (c *Controller) recordCacheLookup(hit bool) {
	if c.metrics != nil {
		c.metrics.HTTP.RecordCacheLookup(hit)
	}
}

// CreatePlot handles POST /api/v2/plots
func (c *Controller) CreatePlot(ctx echo.Context) error {
	var p entities.Plot
	if err := bind(ctx, &p); err != nil {
		return c.HandleError(ctx, err)
	}
	p.ID = ""
	if err := c.Trials.CreatePlot(ctx.Request().Context(), &p); err != nil {
		return c.HandleError(ctx, err)
	}
	c.plotCache.Flush()
	return ctx.JSON(http.StatusCreated, single(p))
}

// GetPlot handles GET /api/v2/plots/:id
func (c *Controller) GetPlot(ctx echo.Context) error {
	node, err := c.Trials.GetPlot(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, single(node))
}

// GetPlotChildren handles GET /api/v2/plots/:id/children
func (c *Controller) GetPlotChildren(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	id := ctx.Param("id")
	if _, err := c.Trials.GetPlot(reqCtx, id); err != nil {
		return c.HandleError(ctx, err)
	}
	children, err := c.Trials.Children(reqCtx, id)
	if err != nil {
		return c.HandleError(ctx, err)
	}
	if children == nil {
		children = []entities.Plot{}
	}
	return ctx.JSON(http.StatusOK, paged(children, pageOf(len(children)), int64(len(children))))
}

// DeletePlot handles DELETE /api/v2/plots/:id. The plot subtree and
// everything recorded on it are deleted; image blobs are purged afterwards
// and a purge failure is logged without failing the request.
func (c *Controller) DeletePlot(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	report, err := c.Trials.DeletePlot(reqCtx, ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err)
	}
	c.plotCache.Flush()
	c.purgeImages(reqCtx, "plot_id", ctx.Param("id"), report.ImageURLs)
	return ctx.JSON(http.StatusOK, single(report))
}

// purgeImages removes the blobs of images deleted by a cascade. Failures are
// logged; the rows are already gone.
func (c *Controller) purgeImages(ctx context.Context, key, id string, urls []string) {
	if c.Images == nil || len(urls) == 0 {
		return
	}
	purged, err := c.Images.PurgeBlobs(ctx, urls)
	if err != nil {
		c.log.Warn("image blobs left behind after cascade delete",
			logger.String(key, id),
			logger.Int("purged", purged),
			logger.Int("images", len(urls)),
			logger.Error(err))
	}
}
