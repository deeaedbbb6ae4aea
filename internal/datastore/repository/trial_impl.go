package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/regenpgc/trialbase/internal/datastore/entities"
)

// trialRepository implements TrialRepository.
type trialRepository struct {
	db *gorm.DB
}

// NewTrialRepository creates a new TrialRepository.
func NewTrialRepository(db *gorm.DB) TrialRepository {
	return &trialRepository{db: db}
}

func (r *trialRepository) Create(ctx context.Context, t *entities.Trial) error {
	return createRow(ctx, r.db, t, "trial")
}

func (r *trialRepository) Get(ctx context.Context, id string) (*entities.Trial, error) {
	return getRow[entities.Trial](ctx, r.db, id, ErrTrialNotFound, "trial")
}

func (r *trialRepository) GetByName(ctx context.Context, name string) (*entities.Trial, error) {
	return firstRow[entities.Trial](ctx, r.db, ErrTrialNotFound, "trial", "name = ?", name)
}

func (r *trialRepository) List(ctx context.Context, page Page) ([]entities.Trial, int64, error) {
	return listRows[entities.Trial](ctx, r.db, page, "name ASC", "trial", nil)
}

func (r *trialRepository) Delete(ctx context.Context, id string) error {
	return deleteRow[entities.Trial](ctx, r.db, id, ErrTrialNotFound, "trial")
}

func (r *trialRepository) AddYear(ctx context.Context, y *entities.TrialYear) error {
	return createRow(ctx, r.db, y, "trial year")
}

func (r *trialRepository) Years(ctx context.Context, trialID string) ([]entities.TrialYear, error) {
	var years []entities.TrialYear
	err := r.db.WithContext(ctx).Where("trial_id = ?", trialID).Order("year ASC").Find(&years).Error
	return years, classify(err, "list", "trial year")
}

func (r *trialRepository) AddAttribute(ctx context.Context, a *entities.TrialAttribute) error {
	return createRow(ctx, r.db, a, "trial attribute")
}

func (r *trialRepository) Attributes(ctx context.Context, trialID string) ([]entities.TrialAttribute, error) {
	var attrs []entities.TrialAttribute
	err := r.db.WithContext(ctx).Where("trial_id = ?", trialID).Order("attr_key ASC").Find(&attrs).Error
	return attrs, classify(err, "list", "trial attribute")
}

func (r *trialRepository) AddEvent(ctx context.Context, e *entities.TrialEvent) error {
	return createRow(ctx, r.db, e, "trial event")
}

func (r *trialRepository) Events(ctx context.Context, trialID string) ([]entities.TrialEvent, error) {
	var events []entities.TrialEvent
	err := r.db.WithContext(ctx).Where("trial_id = ?", trialID).Order("event_date ASC").Find(&events).Error
	return events, classify(err, "list", "trial event")
}

func (r *trialRepository) AssignTreatment(ctx context.Context, tt *entities.TrialTreatment) error {
	return createRow(ctx, r.db, tt, "trial treatment")
}

func (r *trialRepository) HasTreatment(ctx context.Context, trialID, treatmentID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entities.TrialTreatment{}).
		Where("trial_id = ? AND treatment_id = ?", trialID, treatmentID).
		Count(&n).Error
	if err != nil {
		return false, classify(err, "count", "trial treatment")
	}
	return n > 0, nil
}

func (r *trialRepository) Treatments(ctx context.Context, trialID string) ([]entities.Treatment, error) {
	var treatments []entities.Treatment
	err := r.db.WithContext(ctx).
		Joins("JOIN trial_treatments ON trial_treatments.treatment_id = treatments.id").
		Where("trial_treatments.trial_id = ?", trialID).
		Order("treatments.name ASC").
		Find(&treatments).Error
	return treatments, classify(err, "list", "treatment")
}
