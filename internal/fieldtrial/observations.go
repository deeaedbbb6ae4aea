package fieldtrial

import (
	"context"

	"github.com/regenpgc/trialbase/internal/datastore/entities"
	"github.com/regenpgc/trialbase/internal/datastore/repository"
	"github.com/regenpgc/trialbase/internal/notify"
)

// RecordObservation validates the value against the variable's bounds and
// stores the observation with the trimmed value. A zero DateTime is set to
// now.
func (s *Service) RecordObservation(ctx context.Context, o *entities.Observation) error {
	if err := firstError(
		required("variable", o.VariableLabel),
		required("plotCropId", o.PlotCropID),
		required("observerId", o.ObserverID),
	); err != nil {
		return s.finish("record_observation", err)
	}
	if o.DateTime.IsZero() {
		o.DateTime = s.now().UTC()
	}

	err := s.inTx(ctx, func(r repos) error {
		v, err := r.ontology.GetVariableByLabel(ctx, o.VariableLabel)
		if err != nil {
			return reference(err, "variable")
		}
		value, err := ValidateObservationValue(v, o.Value)
		if err != nil {
			return err
		}
		o.Value = value
		if _, err := r.plots.GetCrop(ctx, o.PlotCropID); err != nil {
			return reference(err, "plotCropId")
		}
		if _, err := r.people.Get(ctx, o.ObserverID); err != nil {
			return reference(err, "observerId")
		}
		return r.observations.Create(ctx, o)
	})
	if err != nil {
		return s.finish("record_observation", err)
	}
	s.publish(ctx, notify.TopicObservationRecorded, o)
	return s.finish("record_observation", nil)
}

// GetObservation returns one observation.
func (s *Service) GetObservation(ctx context.Context, id string) (*entities.Observation, error) {
	return s.repos().observations.Get(ctx, id)
}

// ListObservations returns one page of observations matching filter.
func (s *Service) ListObservations(ctx context.Context, filter repository.ObservationFilter, page repository.Page) ([]entities.Observation, int64, error) {
	return s.repos().observations.List(ctx, filter, page)
}
