package fieldtrial

import (
	"context"
	"strings"

	"github.com/regenpgc/trialbase/internal/datastore/entities"
	"github.com/regenpgc/trialbase/internal/datastore/repository"
)

// CreateTrial validates and stores a trial. The location must be a trial
// location.
func (s *Service) CreateTrial(ctx context.Context, t *entities.Trial) error {
	t.Name = strings.TrimSpace(t.Name)
	if err := ValidateTrial(t, s.now()); err != nil {
		return s.finish("create_trial", err)
	}

	err := s.inTx(ctx, func(r repos) error {
		loc, err := r.reference.GetLocation(ctx, t.LocationID)
		if err != nil {
			return reference(err, "locationId")
		}
		if loc.Type != entities.LocationTypeTrial {
			return invalid("locationId", RuleReference, "location %s is a %s location, not a trial location", loc.Name, loc.Type)
		}
		if _, err := r.people.Get(ctx, t.ManagerID); err != nil {
			return reference(err, "managerId")
		}
		if _, err := r.reference.GetProject(ctx, t.ProjectID); err != nil {
			return reference(err, "projectId")
		}
		if _, err := r.reference.GetOrganization(ctx, t.AffiliationID); err != nil {
			return reference(err, "affiliationId")
		}
		return r.trials.Create(ctx, t)
	})
	return s.finish("create_trial", err)
}

// GetTrial returns one trial.
func (s *Service) GetTrial(ctx context.Context, id string) (*entities.Trial, error) {
	return s.repos().trials.Get(ctx, id)
}

// ListTrials returns one page of trials and the total count.
func (s *Service) ListTrials(ctx context.Context, page repository.Page) ([]entities.Trial, int64, error) {
	return s.repos().trials.List(ctx, page)
}

// AddTrialYear records a season of a trial. Years before the establishment
// year are rejected; a repeated year is a conflict.
func (s *Service) AddTrialYear(ctx context.Context, trialID string, year int) (*entities.TrialYear, error) {
	var ty *entities.TrialYear
	err := s.inTx(ctx, func(r repos) error {
		trial, err := r.trials.Get(ctx, trialID)
		if err != nil {
			return err
		}
		if err := ValidateTrialYear(trial, year); err != nil {
			return err
		}
		ty = &entities.TrialYear{TrialID: trial.ID, Year: year}
		return r.trials.AddYear(ctx, ty)
	})
	if err != nil {
		return nil, s.finish("add_trial_year", err)
	}
	return ty, s.finish("add_trial_year", nil)
}

// AddTrialAttribute attaches a key/value pair to a trial.
func (s *Service) AddTrialAttribute(ctx context.Context, trialID, key, value string) (*entities.TrialAttribute, error) {
	key, value = strings.TrimSpace(key), strings.TrimSpace(value)
	if err := firstError(required("key", key), required("value", value)); err != nil {
		return nil, s.finish("add_trial_attribute", err)
	}
	attr := &entities.TrialAttribute{TrialID: trialID, Key: key, Value: value}
	err := s.inTx(ctx, func(r repos) error {
		if _, err := r.trials.Get(ctx, trialID); err != nil {
			return err
		}
		return r.trials.AddAttribute(ctx, attr)
	})
	if err != nil {
		return nil, s.finish("add_trial_attribute", err)
	}
	return attr, s.finish("add_trial_attribute", nil)
}

// AddTrialEvent records a field operation. The event may not predate the
// trial.
func (s *Service) AddTrialEvent(ctx context.Context, e *entities.TrialEvent) error {
	if e.EventDate.IsZero() {
		return s.finish("add_trial_event", invalid("eventDate", RuleRequired, "eventDate is required"))
	}
	err := s.inTx(ctx, func(r repos) error {
		trial, err := r.trials.Get(ctx, e.TrialID)
		if err != nil {
			return err
		}
		if e.EventDate.Year() < trial.EstablishmentYear {
			return invalid("eventDate", RuleTrialYear,
				"event date %s is before the establishment year %d", e.EventDate.Format("2006-01-02"), trial.EstablishmentYear)
		}
		if e.ProcessID != nil {
			if _, err := r.ontology.GetAgroProcess(ctx, *e.ProcessID); err != nil {
				return reference(err, "processId")
			}
		}
		return r.trials.AddEvent(ctx, e)
	})
	return s.finish("add_trial_event", err)
}

// AssignTreatmentToTrial makes a treatment available to the plots of a
// trial.
func (s *Service) AssignTreatmentToTrial(ctx context.Context, trialID, treatmentID string) (*entities.TrialTreatment, error) {
	tt := &entities.TrialTreatment{TrialID: trialID, TreatmentID: treatmentID}
	err := s.inTx(ctx, func(r repos) error {
		if _, err := r.trials.Get(ctx, trialID); err != nil {
			return err
		}
		if _, err := r.treatments.Get(ctx, treatmentID); err != nil {
			return reference(err, "treatmentId")
		}
		return r.trials.AssignTreatment(ctx, tt)
	})
	if err != nil {
		return nil, s.finish("assign_trial_treatment", err)
	}
	return tt, s.finish("assign_trial_treatment", nil)
}

// CreateTreatment stores a treatment with its levels.
func (s *Service) CreateTreatment(ctx context.Context, t *entities.Treatment, levels ...string) ([]entities.TreatmentLevel, error) {
	if err := ValidateTreatment(t); err != nil {
		return nil, s.finish("create_treatment", err)
	}
	for _, level := range levels {
		if err := required("level", level); err != nil {
			return nil, s.finish("create_treatment", err)
		}
	}

	out := make([]entities.TreatmentLevel, len(levels))
	err := s.inTx(ctx, func(r repos) error {
		if err := r.treatments.Create(ctx, t); err != nil {
			return err
		}
		for i, level := range levels {
			out[i] = entities.TreatmentLevel{TreatmentID: t.ID, Level: strings.TrimSpace(level)}
			if err := r.treatments.CreateLevel(ctx, &out[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.finish("create_treatment", err)
	}
	return out, s.finish("create_treatment", nil)
}

// CreateGermplasm stores a germplasm entry, creating its common name when
// commonName is new.
func (s *Service) CreateGermplasm(ctx context.Context, g *entities.Germplasm, commonName string, aliases ...string) error {
	if err := ValidateGermplasm(g); err != nil {
		return s.finish("create_germplasm", err)
	}
	err := s.inTx(ctx, func(r repos) error {
		if name := strings.TrimSpace(commonName); name != "" {
			cn, err := r.germplasm.GetOrCreateCommonName(ctx, name)
			if err != nil {
				return err
			}
			g.CommonNameID = &cn.ID
		}
		if err := r.germplasm.Create(ctx, g); err != nil {
			return err
		}
		for _, alias := range aliases {
			if err := r.germplasm.AddAlias(ctx, &entities.GermplasmAlias{GermplasmID: g.ID, Alias: alias}); err != nil {
				return err
			}
		}
		return nil
	})
	return s.finish("create_germplasm", err)
}
