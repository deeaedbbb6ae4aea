package imaging

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regenpgc/trialbase/internal/datastore/entities"
	"github.com/regenpgc/trialbase/internal/errors"
)

func TestRegisterModel(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := t.Context()

	first, err := env.svc.RegisterModel(ctx, &entities.AwsModel{Name: " leaf-counter ", Version: "2"})
	require.NoError(t, err)
	again, err := env.svc.RegisterModel(ctx, &entities.AwsModel{Name: "leaf-counter", Version: "2"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	_, err = env.svc.RegisterModel(ctx, &entities.AwsModel{Name: "leaf-counter"})
	require.Error(t, err)
	assert.Equal(t, "version", errors.FieldOf(err))
}

func TestRegisterModel_Concurrent(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	models := make([]*entities.AwsModel, 8)
	errs := make([]error, len(models))
	var wg sync.WaitGroup
	for i := range models {
		wg.Go(func() {
			models[i], errs[i] = env.svc.RegisterModel(t.Context(), &entities.AwsModel{Name: "canopy-cover", Version: "1"})
		})
	}
	wg.Wait()

	for i := range models {
		require.NoError(t, errs[i], "caller %d", i)
		assert.Equal(t, models[0].ID, models[i].ID, "every caller gets the same row")
	}
}

func TestOperationLifecycle(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := t.Context()

	img, err := env.svc.Upload(ctx, UploadRequest{Filename: "a.png", Height: 4, Width: 4, Body: strings.NewReader("png")})
	require.NoError(t, err)
	model := env.fx.AwsModel()

	op, err := env.svc.StartOperation(ctx, img.ID, model.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusInProgress, op.Status)
	assert.Equal(t, testNow, op.DateTime)

	done, err := env.svc.CompleteOperation(ctx, op.ID, entities.StatusSuccess)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusSuccess, done.Status)

	// Terminal operations cannot move again.
	_, err = env.svc.CompleteOperation(ctx, op.ID, entities.StatusFailure)
	require.Error(t, err)
	assert.True(t, errors.IsState(err))

	ops, err := env.svc.Operations(ctx, img.ID)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, entities.StatusSuccess, ops[0].Status)

	assert.Equal(t, []string{"image.operation.in_progress", "image.operation.success"}, env.publisher.Topics())
}

func TestStartOperation_References(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := t.Context()
	img := env.fx.Image(nil)

	_, err := env.svc.StartOperation(ctx, "image_missing", env.fx.AwsModel().ID)
	require.Error(t, err)
	assert.Equal(t, "imageId", errors.FieldOf(err))

	_, err = env.svc.StartOperation(ctx, img.ID, "awsModel_missing")
	require.Error(t, err)
	assert.Equal(t, "modelId", errors.FieldOf(err))
}

func TestCompleteOperation_InvalidStatus(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	op := env.fx.ImageOperation(env.fx.Image(nil), env.fx.AwsModel())

	_, err := env.svc.CompleteOperation(t.Context(), op.ID, entities.OperationStatus("paused"))
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	_, err = env.svc.CompleteOperation(t.Context(), op.ID, entities.StatusInProgress)
	require.Error(t, err)
	assert.True(t, errors.IsState(err))
}

func TestCompleteOperation_Concurrent(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	op := env.fx.ImageOperation(env.fx.Image(nil), env.fx.AwsModel())

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, status := range []entities.OperationStatus{entities.StatusSuccess, entities.StatusFailure} {
		wg.Go(func() {
			_, results[i] = env.svc.CompleteOperation(t.Context(), op.ID, status)
		})
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.IsState(err), "loser gets a state error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
}
