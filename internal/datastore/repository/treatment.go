package repository

import (
	"context"

	"github.com/regenpgc/trialbase/internal/datastore/entities"
)

// TreatmentRepository stores treatment factors and their levels.
type TreatmentRepository interface {
	Create(ctx context.Context, t *entities.Treatment) error
	Get(ctx context.Context, id string) (*entities.Treatment, error)
	GetByName(ctx context.Context, name string) (*entities.Treatment, error)
	List(ctx context.Context) ([]entities.Treatment, error)

	CreateLevel(ctx context.Context, l *entities.TreatmentLevel) error
	GetLevel(ctx context.Context, id string) (*entities.TreatmentLevel, error)
	GetLevelByName(ctx context.Context, treatmentID, level string) (*entities.TreatmentLevel, error)
	Levels(ctx context.Context, treatmentID string) ([]entities.TreatmentLevel, error)
}
