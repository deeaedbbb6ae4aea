package blob

import (
	"context"
	"io"
	"time"

	"github.com/regenpgc/trialbase/internal/errors"
	"github.com/regenpgc/trialbase/internal/observability/metrics"
)

// Instrumented wraps a Store and records every call with a metrics.Recorder.
type Instrumented struct {
	Store
	rec metrics.Recorder
}

// WithMetrics wraps store. A nil recorder returns store unchanged.
func WithMetrics(store Store, rec metrics.Recorder) Store {
	if rec == nil {
		return store
	}
	return &Instrumented{Store: store, rec: rec}
}

func (i *Instrumented) Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error) {
	start := time.Now()
	info, err := i.Store.Put(ctx, key, r, opts)
	i.observe(metrics.OpBlobPut, start, err)
	return info, err
}

func (i *Instrumented) Get(ctx context.Context, key string) (Info, io.ReadCloser, error) {
	start := time.Now()
	info, rc, err := i.Store.Get(ctx, key)
	i.observe(metrics.OpBlobGet, start, err)
	return info, rc, err
}

func (i *Instrumented) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := i.Store.Delete(ctx, key)
	i.observe(metrics.OpBlobDelete, start, err)
	return err
}

func (i *Instrumented) SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	start := time.Now()
	u, err := i.Store.SignedURL(ctx, key, expiry)
	i.observe(metrics.OpBlobURL, start, err)
	return u, err
}

func (i *Instrumented) observe(op string, start time.Time, err error) {
	i.rec.RecordDuration(op, time.Since(start).Seconds())
	if err != nil {
		i.rec.RecordOperation(op, metrics.StatusError)
		i.rec.RecordError(op, errorType(err))
		return
	}
	i.rec.RecordOperation(op, metrics.StatusSuccess)
}

func errorType(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrExists):
		return "exists"
	case errors.Is(err, ErrInvalidKey):
		return "invalid_key"
	case errors.Is(err, ErrUnsupported):
		return "unsupported"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "backend"
	}
}
