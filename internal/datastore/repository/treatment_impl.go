package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/regenpgc/trialbase/internal/datastore/entities"
)

// treatmentRepository implements TreatmentRepository.
type treatmentRepository struct {
	db *gorm.DB
}

// NewTreatmentRepository creates a new TreatmentRepository.
func NewTreatmentRepository(db *gorm.DB) TreatmentRepository {
	return &treatmentRepository{db: db}
}

func (r *treatmentRepository) Create(ctx context.Context, t *entities.Treatment) error {
	return createRow(ctx, r.db, t, "treatment")
}

func (r *treatmentRepository) Get(ctx context.Context, id string) (*entities.Treatment, error) {
	return getRow[entities.Treatment](ctx, r.db, id, ErrTreatmentNotFound, "treatment")
}

func (r *treatmentRepository) GetByName(ctx context.Context, name string) (*entities.Treatment, error) {
	return firstRow[entities.Treatment](ctx, r.db, ErrTreatmentNotFound, "treatment", "name = ?", name)
}

func (r *treatmentRepository) List(ctx context.Context) ([]entities.Treatment, error) {
	var treatments []entities.Treatment
	err := r.db.WithContext(ctx).Order("name ASC").Find(&treatments).Error
	return treatments, classify(err, "list", "treatment")
}

func (r *treatmentRepository) CreateLevel(ctx context.Context, l *entities.TreatmentLevel) error {
	return createRow(ctx, r.db, l, "treatment level")
}

func (r *treatmentRepository) GetLevel(ctx context.Context, id string) (*entities.TreatmentLevel, error) {
	return getRow[entities.TreatmentLevel](ctx, r.db, id, ErrTreatmentLevelNotFound, "treatment level")
}

func (r *treatmentRepository) GetLevelByName(ctx context.Context, treatmentID, level string) (*entities.TreatmentLevel, error) {
	return firstRow[entities.TreatmentLevel](ctx, r.db, ErrTreatmentLevelNotFound, "treatment level",
		"treatment_id = ? AND level = ?", treatmentID, level)
}

func (r *treatmentRepository) Levels(ctx context.Context, treatmentID string) ([]entities.TreatmentLevel, error) {
	var levels []entities.TreatmentLevel
	err := r.db.WithContext(ctx).Where("treatment_id = ?", treatmentID).Order("level ASC").Find(&levels).Error
	return levels, classify(err, "list", "treatment level")
}
