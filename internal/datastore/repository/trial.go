package repository

import (
	"context"

	"github.com/regenpgc/trialbase/internal/datastore/entities"
)

// TrialRepository stores trials and the rows hanging directly off them:
// years, attributes, events and treatment assignments.
type TrialRepository interface {
	Create(ctx context.Context, t *entities.Trial) error
	Get(ctx context.Context, id string) (*entities.Trial, error)
	GetByName(ctx context.Context, name string) (*entities.Trial, error)
	List(ctx context.Context, page Page) ([]entities.Trial, int64, error)
	Delete(ctx context.Context, id string) error

	AddYear(ctx context.Context, y *entities.TrialYear) error
	Years(ctx context.Context, trialID string) ([]entities.TrialYear, error)

	AddAttribute(ctx context.Context, a *entities.TrialAttribute) error
	Attributes(ctx context.Context, trialID string) ([]entities.TrialAttribute, error)

	AddEvent(ctx context.Context, e *entities.TrialEvent) error
	Events(ctx context.Context, trialID string) ([]entities.TrialEvent, error)

	AssignTreatment(ctx context.Context, tt *entities.TrialTreatment) error
	// HasTreatment reports whether treatmentID is assigned to trialID.
	HasTreatment(ctx context.Context, trialID, treatmentID string) (bool, error)
	Treatments(ctx context.Context, trialID string) ([]entities.Treatment, error)
}
