package repository

import (
	"context"

	"github.com/regenpgc/trialbase/internal/datastore/entities"
)

// ImageRepository stores images, analysis models and the operations that run
// models over images.
type ImageRepository interface {
	CreateImage(ctx context.Context, img *entities.Image) error
	GetImage(ctx context.Context, id string) (*entities.Image, error)
	ImagesByObservation(ctx context.Context, observationID string) ([]entities.Image, error)
	DeleteImage(ctx context.Context, id string) error

	CreateModel(ctx context.Context, m *entities.AwsModel) error
	GetModel(ctx context.Context, id string) (*entities.AwsModel, error)
	GetModelByName(ctx context.Context, name, version string) (*entities.AwsModel, error)

	CreateOperation(ctx context.Context, op *entities.ImageOperation) error
	GetOperation(ctx context.Context, id string) (*entities.ImageOperation, error)
	Operations(ctx context.Context, imageID string) ([]entities.ImageOperation, error)
	// UpdateOperationStatus moves an operation from one status to another.
	// It returns ErrStaleState when the operation is no longer in from.
	UpdateOperationStatus(ctx context.Context, id string, from, to entities.OperationStatus) error
}
