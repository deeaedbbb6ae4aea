package blob

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regenpgc/trialbase/internal/observability/metrics"
)

type recordingRecorder struct {
	mu         sync.Mutex
	operations []string
	errs       []string
	durations  int
}

func (r *recordingRecorder) RecordOperation(op, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operations = append(r.operations, op+":"+status)
}

func (r *recordingRecorder) RecordDuration(string, float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durations++
}

func (r *recordingRecorder) RecordError(op, errorType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, op+":"+errorType)
}

func TestWithMetrics(t *testing.T) {
	t.Parallel()
	rec := &recordingRecorder{}
	store := WithMetrics(NewMemoryStore(), rec)
	ctx := t.Context()

	_, err := store.Put(ctx, "images/a.jpg", strings.NewReader("a"), PutOptions{})
	require.NoError(t, err)
	_, _, err = store.Get(ctx, "images/missing.jpg")
	require.Error(t, err)
	_, err = store.SignedURL(ctx, "images/a.jpg", 0)
	require.Error(t, err)
	require.NoError(t, store.Delete(ctx, "images/a.jpg"))

	assert.Equal(t, []string{
		"put:" + metrics.StatusSuccess,
		"get:" + metrics.StatusError,
		"url:" + metrics.StatusError,
		"delete:" + metrics.StatusSuccess,
	}, rec.operations)
	assert.Equal(t, []string{"get:not_found", "url:unsupported"}, rec.errs)
	assert.Equal(t, 4, rec.durations)

	// Locator and KeyFor pass through to the wrapped store.
	key, ok := store.KeyFor(store.Locator("images/b.jpg"))
	assert.True(t, ok)
	assert.Equal(t, "images/b.jpg", key)
}

func TestWithMetrics_NilRecorder(t *testing.T) {
	t.Parallel()
	inner := NewMemoryStore()
	assert.Same(t, inner, WithMetrics(inner, nil))
}
