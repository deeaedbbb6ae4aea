package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/regenpgc/trialbase/internal/datastore/entities"
)

// observationRepository implements ObservationRepository.
type observationRepository struct {
	db *gorm.DB
}

// NewObservationRepository creates a new ObservationRepository.
func NewObservationRepository(db *gorm.DB) ObservationRepository {
	return &observationRepository{db: db}
}

func (r *observationRepository) Create(ctx context.Context, o *entities.Observation) error {
	return createRow(ctx, r.db, o, "observation")
}

func (r *observationRepository) Get(ctx context.Context, id string) (*entities.Observation, error) {
	return getRow[entities.Observation](ctx, r.db, id, ErrObservationNotFound, "observation")
}

func (r *observationRepository) List(ctx context.Context, filter ObservationFilter, page Page) ([]entities.Observation, int64, error) {
	scope := func(q *gorm.DB) *gorm.DB {
		if filter.PlotCropID != "" {
			q = q.Where("plot_crop_id = ?", filter.PlotCropID)
		}
		if filter.VariableLabel != "" {
			q = q.Where("variable_label = ?", filter.VariableLabel)
		}
		if filter.ObserverID != "" {
			q = q.Where("observer_id = ?", filter.ObserverID)
		}
		if !filter.From.IsZero() {
			q = q.Where("date_time >= ?", filter.From)
		}
		if !filter.To.IsZero() {
			q = q.Where("date_time < ?", filter.To)
		}
		return q
	}
	return listRows[entities.Observation](ctx, r.db, page, "date_time ASC, id ASC", "observation", scope)
}

// Delete removes an observation. Images attached to it are kept with their
// observation cleared.
func (r *observationRepository) Delete(ctx context.Context, id string) error {
	return deleteRow[entities.Observation](ctx, r.db, id, ErrObservationNotFound, "observation")
}
