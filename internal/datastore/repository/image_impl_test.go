package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regenpgc/trialbase/internal/datastore/entities"
	"github.com/regenpgc/trialbase/internal/datastore/testutil"
	"github.com/regenpgc/trialbase/internal/errors"
)

func TestImageRepository_UpdateOperationStatus(t *testing.T) {
	t.Parallel()

	db := testutil.OpenSQLite(t)
	fx := testutil.NewFixture(t, db)
	repo := NewImageRepository(db)
	ctx := context.Background()

	op := fx.ImageOperation(fx.Image(nil), fx.AwsModel())
	assert.Equal(t, entities.StatusInProgress, op.Status)

	require.NoError(t, repo.UpdateOperationStatus(ctx, op.ID, entities.StatusInProgress, entities.StatusSuccess))
	got, err := repo.GetOperation(ctx, op.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusSuccess, got.Status)

	err = repo.UpdateOperationStatus(ctx, op.ID, entities.StatusInProgress, entities.StatusFailure)
	assert.ErrorIs(t, err, ErrStaleState)
	assert.True(t, errors.IsState(err))

	err = repo.UpdateOperationStatus(ctx, "imageOperation_missing", entities.StatusInProgress, entities.StatusFailure)
	assert.ErrorIs(t, err, ErrImageOperationNotFound)
}

func TestImageRepository_ObservationDeleteKeepsImage(t *testing.T) {
	t.Parallel()

	db := testutil.OpenSQLite(t)
	fx := testutil.NewFixture(t, db)
	images := NewImageRepository(db)
	observations := NewObservationRepository(db)
	ctx := context.Background()

	trial := fx.Trial(2024)
	crop := fx.PlotCrop(fx.Plot(trial, "1", entities.PlotTypeMain, nil), fx.Germplasm(), 2024)
	obs := fx.Observation(crop, fx.Variable(nil, nil), "tall")
	img := fx.Image(obs)

	attached, err := images.ImagesByObservation(ctx, obs.ID)
	require.NoError(t, err)
	require.Len(t, attached, 1)

	require.NoError(t, observations.Delete(ctx, obs.ID))

	got, err := images.GetImage(ctx, img.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ObservationID)
}

func TestImageRepository_ModelUnique(t *testing.T) {
	t.Parallel()

	db := testutil.OpenSQLite(t)
	repo := NewImageRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.CreateModel(ctx, &entities.AwsModel{Name: "stand-count", Version: "1"}))
	require.NoError(t, repo.CreateModel(ctx, &entities.AwsModel{Name: "stand-count", Version: "2"}))
	assert.ErrorIs(t, repo.CreateModel(ctx, &entities.AwsModel{Name: "stand-count", Version: "1"}), ErrDuplicateKey)

	m, err := repo.GetModelByName(ctx, "stand-count", "2")
	require.NoError(t, err)
	assert.Equal(t, "2", m.Version)
}
