package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/regenpgc/trialbase/internal/datastore/entities"
	"github.com/regenpgc/trialbase/internal/errors"
)

// imageRepository implements ImageRepository.
type imageRepository struct {
	db *gorm.DB
}

// NewImageRepository creates a new ImageRepository.
func NewImageRepository(db *gorm.DB) ImageRepository {
	return &imageRepository{db: db}
}

func (r *imageRepository) CreateImage(ctx context.Context, img *entities.Image) error {
	return createRow(ctx, r.db, img, "image")
}

func (r *imageRepository) GetImage(ctx context.Context, id string) (*entities.Image, error) {
	return getRow[entities.Image](ctx, r.db, id, ErrImageNotFound, "image")
}

func (r *imageRepository) ImagesByObservation(ctx context.Context, observationID string) ([]entities.Image, error) {
	var images []entities.Image
	err := r.db.WithContext(ctx).Where("observation_id = ?", observationID).Order("creation_date_time ASC").Find(&images).Error
	return images, classify(err, "list", "image")
}

func (r *imageRepository) DeleteImage(ctx context.Context, id string) error {
	return deleteRow[entities.Image](ctx, r.db, id, ErrImageNotFound, "image")
}

func (r *imageRepository) CreateModel(ctx context.Context, m *entities.AwsModel) error {
	return createRow(ctx, r.db, m, "model")
}

func (r *imageRepository) GetModel(ctx context.Context, id string) (*entities.AwsModel, error) {
	return getRow[entities.AwsModel](ctx, r.db, id, ErrAwsModelNotFound, "model")
}

func (r *imageRepository) GetModelByName(ctx context.Context, name, version string) (*entities.AwsModel, error) {
	return firstRow[entities.AwsModel](ctx, r.db, ErrAwsModelNotFound, "model", "name = ? AND version = ?", name, version)
}

func (r *imageRepository) CreateOperation(ctx context.Context, op *entities.ImageOperation) error {
	return createRow(ctx, r.db, op, "image operation")
}

func (r *imageRepository) GetOperation(ctx context.Context, id string) (*entities.ImageOperation, error) {
	return getRow[entities.ImageOperation](ctx, r.db, id, ErrImageOperationNotFound, "image operation")
}

func (r *imageRepository) Operations(ctx context.Context, imageID string) ([]entities.ImageOperation, error) {
	var ops []entities.ImageOperation
	err := r.db.WithContext(ctx).Where("image_id = ?", imageID).Order("date_time ASC").Find(&ops).Error
	return ops, classify(err, "list", "image operation")
}

func (r *imageRepository) UpdateOperationStatus(ctx context.Context, id string, from, to entities.OperationStatus) error {
	result := r.db.WithContext(ctx).Model(&entities.ImageOperation{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return classify(result.Error, "update", "image operation")
	}
	if result.RowsAffected == 1 {
		return nil
	}

	if _, err := r.GetOperation(ctx, id); err != nil {
		return err
	}
	return errors.New(ErrStaleState).
		Component("datastore").
		Category(errors.CategoryState).
		Entity("image operation", id).
		Build()
}
