package repository

import (
	"context"
	"time"

	"github.com/regenpgc/trialbase/internal/datastore/entities"
)

// ObservationFilter narrows an observation listing. Zero fields match
// everything.
type ObservationFilter struct {
	PlotCropID    string
	VariableLabel string
	ObserverID    string
	From, To      time.Time
}

// ObservationRepository stores observations.
type ObservationRepository interface {
	Create(ctx context.Context, o *entities.Observation) error
	Get(ctx context.Context, id string) (*entities.Observation, error)
	// List returns one page of observations ordered by time.
	List(ctx context.Context, filter ObservationFilter, page Page) ([]entities.Observation, int64, error)
	Delete(ctx context.Context, id string) error
}
