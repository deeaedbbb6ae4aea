package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/regenpgc/trialbase/internal/datastore/repository"
	"github.com/regenpgc/trialbase/internal/errors"
	"github.com/regenpgc/trialbase/internal/logger"
)

// Status message types.
const (
	MessageInfo  = "INFO"
	MessageError = "ERROR"
)

// Envelope wraps every response body.
type Envelope struct {
	Metadata Metadata `json:"metadata"`
	Result   Result   `json:"result"`
}

type Metadata struct {
	Datafiles  []string   `json:"datafiles"`
	Pagination Pagination `json:"pagination"`
	Status     []Status   `json:"status"`
}

type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	PageSize    int   `json:"pageSize"`
	TotalCount  int64 `json:"totalCount"`
	TotalPages  int   `json:"totalPages"`
}

// Status is one message about the request. Field names the offending input
// of a validation error.
type Status struct {
	Message       string `json:"message"`
	MessageType   string `json:"messageType"`
	Field         string `json:"field,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
}

type Result struct {
	Data any `json:"data"`
}

const okMessage = "Request accepted, response successful"

// single builds the envelope of a one-object response.
func single(data any) Envelope {
	return Envelope{
		Metadata: Metadata{
			Datafiles:  []string{},
			Pagination: Pagination{PageSize: 1, TotalCount: 1, TotalPages: 1},
			Status:     []Status{{Message: okMessage, MessageType: MessageInfo}},
		},
		Result: Result{Data: data},
	}
}

// paged builds the envelope of one page of a listing.
func paged(data any, page repository.Page, total int64) Envelope {
	return Envelope{
		Metadata: Metadata{
			Datafiles: []string{},
			Pagination: Pagination{
				CurrentPage: page.Number,
				PageSize:    page.Size,
				TotalCount:  total,
				TotalPages:  page.TotalPages(total),
			},
			Status: []Status{{Message: okMessage, MessageType: MessageInfo}},
		},
		Result: Result{Data: data},
	}
}

// StatusFor maps an error to its HTTP status code.
func StatusFor(err error) int {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.IsValidation(err):
		return http.StatusBadRequest
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.IsConflict(err), errors.IsState(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// HandleError writes err as an error envelope. Messages of internal errors
// are not exposed.
func (c *Controller) HandleError(ctx echo.Context, err error) error {
	code := StatusFor(err)
	status := Status{
		Message:       err.Error(),
		MessageType:   MessageError,
		Field:         errors.FieldOf(err),
		CorrelationID: uuid.NewString()[:8],
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		if msg, ok := he.Message.(string); ok {
			status.Message = msg
		} else {
			status.Message = http.StatusText(code)
		}
	}

	fields := []logger.Field{
		logger.String("correlation_id", status.CorrelationID),
		logger.String("method", ctx.Request().Method),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("ip", ctx.RealIP()),
		logger.Int("code", code),
		logger.Error(err),
	}
	if code >= http.StatusInternalServerError {
		status.Message = http.StatusText(code)
		c.log.Error("API error", fields...)
	} else {
		c.log.Debug("API request rejected", fields...)
	}

	return ctx.JSON(code, Envelope{
		Metadata: Metadata{
			Datafiles: []string{},
			Status:    []Status{status},
		},
		Result: Result{Data: nil},
	})
}

// errorHandler is installed as the echo HTTPErrorHandler so router and
// middleware errors also use the envelope.
func (c *Controller) errorHandler(err error, ctx echo.Context) {
	if ctx.Response().Committed {
		return
	}
	if herr := c.HandleError(ctx, err); herr != nil {
		c.log.Warn("failed to write error response", logger.Error(herr))
	}
}

// pageParams reads page and pageSize from the query string.
func pageParams(ctx echo.Context) (repository.Page, error) {
	page := repository.Page{}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"page", &page.Number}, {"pageSize", &page.Size}} {
		raw := ctx.QueryParam(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return page, errors.FieldError(p.name, "%s must be a non-negative integer", p.name)
		}
		*p.dst = n
	}
	return page.Normalize(), nil
}

// bind decodes the request body into dst.
func bind(ctx echo.Context, dst any) error {
	if err := ctx.Bind(dst); err != nil {
		return errors.New(err).
			Component("api").
			Category(errors.CategoryValidation).
			Field("body").
			Build()
	}
	return nil
}

// pageOf describes an unpaged listing of n items as a single page.
func pageOf(n int) repository.Page {
	return repository.Page{Size: max(n, 1)}
}
