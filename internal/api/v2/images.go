package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/regenpgc/trialbase/internal/blob"
	"github.com/regenpgc/trialbase/internal/datastore/entities"
	"github.com/regenpgc/trialbase/internal/errors"
	"github.com/regenpgc/trialbase/internal/imaging"
)

func (c *Controller) initImageRoutes() {
	if c.Images == nil {
		c.log.Info("image store not configured, image routes disabled")
		return
	}
	g := c.Group.Group("/images")
	g.POST("", c.UploadImage)
	g.GET("/:id", c.GetImage)
	g.GET("/:id/url", c.GetImageURL)
	g.GET("/:id/content", c.GetImageContent)
	g.GET("/:id/operations", c.ListImageOperations)
	g.POST("/:id/operations", c.StartImageOperation)

	c.Group.PUT("/operations/:id", c.CompleteImageOperation)
	c.Group.POST("/models", c.RegisterModel)
}

// UploadImage handles POST /api/v2/images as multipart/form-data with the
// fields file, height, width and the optional observationId.
func (c *Controller) UploadImage(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return c.HandleError(ctx, errors.FieldError("file", "multipart field file is required"))
	}
	height, err := formInt(ctx, "height")
	if err != nil {
		return c.HandleError(ctx, err)
	}
	width, err := formInt(ctx, "width")
	if err != nil {
		return c.HandleError(ctx, err)
	}

	f, err := fh.Open()
	if err != nil {
		return c.HandleError(ctx, err)
	}
	defer f.Close()

	req := imaging.UploadRequest{
		Filename: fh.Filename,
		Height:   height,
		Width:    width,
		Body:     f,
	}
	// Clients that do not know the type send octet-stream; the extension
	// decides then.
	if ct := fh.Header.Get(echo.HeaderContentType); ct != echo.MIMEOctetStream {
		req.ContentType = ct
	}
	if obs := ctx.FormValue("observationId"); obs != "" {
		req.ObservationID = &obs
	}

	img, err := c.Images.Upload(ctx.Request().Context(), req)
	if err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.JSON(http.StatusCreated, single(img))
}

func formInt(ctx echo.Context, name string) (int, error) {
	n, err := strconv.Atoi(ctx.FormValue(name))
	if err != nil {
		return 0, errors.FieldError(name, "%s must be an integer", name)
	}
	return n, nil
}

// GetImage handles GET /api/v2/images/:id
func (c *Controller) GetImage(ctx echo.Context) error {
	img, err := c.Images.GetImage(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, single(img))
}

// GetImageURL handles GET /api/v2/images/:id/url. Stores that cannot sign
// URLs answer 501 and the content route serves the bytes instead.
func (c *Controller) GetImageURL(ctx echo.Context) error {
	url, err := c.Images.SignedURL(ctx.Request().Context(), ctx.Param("id"))
	if errors.Is(err, blob.ErrUnsupported) {
		return c.HandleError(ctx, echo.NewHTTPError(http.StatusNotImplemented, "image store cannot sign URLs"))
	}
	if err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, single(map[string]string{"url": url}))
}

// GetImageContent handles GET /api/v2/images/:id/content
func (c *Controller) GetImageContent(ctx echo.Context) error {
	_, info, rc, err := c.Images.Open(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err)
	}
	defer rc.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	if info.Size > 0 {
		ctx.Response().Header().Set(echo.HeaderContentLength, strconv.FormatInt(info.Size, 10))
	}
	if info.ETag != "" {
		ctx.Response().Header().Set("ETag", info.ETag)
	}
	return ctx.Stream(http.StatusOK, contentType, rc)
}

// ListImageOperations handles GET /api/v2/images/:id/operations
func (c *Controller) ListImageOperations(ctx echo.Context) error {
	ops, err := c.Images.Operations(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err)
	}
	if ops == nil {
		ops = []entities.ImageOperation{}
	}
	return ctx.JSON(http.StatusOK, paged(ops, pageOf(len(ops)), int64(len(ops))))
}

// OperationRequest starts or completes an image operation.
type OperationRequest struct {
	ModelID string `json:"modelId"`
	Status  string `json:"status"`
}

// StartImageOperation handles POST /api/v2/images/:id/operations
func (c *Controller) StartImageOperation(ctx echo.Context) error {
	var req OperationRequest
	if err := bind(ctx, &req); err != nil {
		return c.HandleError(ctx, err)
	}
	op, err := c.Images.StartOperation(ctx.Request().Context(), ctx.Param("id"), req.ModelID)
	if err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.JSON(http.StatusCreated, single(op))
}

// CompleteImageOperation handles PUT /api/v2/operations/:id. Only an
// operation in progress can move to success or failure; anything else is
// 409.
func (c *Controller) CompleteImageOperation(ctx echo.Context) error {
	var req OperationRequest
	if err := bind(ctx, &req); err != nil {
		return c.HandleError(ctx, err)
	}
	op, err := c.Images.CompleteOperation(ctx.Request().Context(), ctx.Param("id"), entities.OperationStatus(req.Status))
	if err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, single(op))
}

// RegisterModel handles POST /api/v2/models. Registering an existing name
// and version returns the stored model.
func (c *Controller) RegisterModel(ctx echo.Context) error {
	var m entities.AwsModel
	if err := bind(ctx, &m); err != nil {
		return c.HandleError(ctx, err)
	}
	m.ID = ""
	model, err := c.Images.RegisterModel(ctx.Request().Context(), &m)
	if err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, single(model))
}
