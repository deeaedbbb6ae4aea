package fieldtrial

import (
	"context"
	"strings"

	"github.com/regenpgc/trialbase/internal/datastore/entities"
	"github.com/regenpgc/trialbase/internal/datastore/repository"
	"github.com/regenpgc/trialbase/internal/logger"
)

// CreatePerson validates and stores a researcher.
func (s *Service) CreatePerson(ctx context.Context, p *entities.Person) error {
	normalizePerson(p)
	if err := ValidatePerson(p); err != nil {
		return s.finish("create_person", err)
	}
	err := s.inTx(ctx, func(r repos) error {
		if _, err := r.reference.GetOrganization(ctx, p.AffiliationID); err != nil {
			return reference(err, "affiliationId")
		}
		return r.people.Create(ctx, p)
	})
	return s.finish("create_person", err)
}

// UpdatePerson replaces an existing researcher.
func (s *Service) UpdatePerson(ctx context.Context, p *entities.Person) error {
	normalizePerson(p)
	if err := ValidatePerson(p); err != nil {
		return s.finish("update_person", err)
	}
	err := s.inTx(ctx, func(r repos) error {
		if _, err := r.reference.GetOrganization(ctx, p.AffiliationID); err != nil {
			return reference(err, "affiliationId")
		}
		return r.people.Update(ctx, p)
	})
	return s.finish("update_person", err)
}

// GetPerson returns one researcher.
func (s *Service) GetPerson(ctx context.Context, id string) (*entities.Person, error) {
	return s.repos().people.Get(ctx, id)
}

// ListPeople returns one page of researchers and the total count.
func (s *Service) ListPeople(ctx context.Context, page repository.Page) ([]entities.Person, int64, error) {
	return s.repos().people.List(ctx, page)
}

// DeletePerson deletes a researcher together with the trials they manage and
// every observation they recorded. As with DeletePlot, the report lists the
// storage URLs of deleted images and their blobs are left to the caller.
func (s *Service) DeletePerson(ctx context.Context, id string) (*repository.CascadeReport, error) {
	report, err := s.repos().people.DeleteCascade(ctx, id)
	if err != nil {
		return nil, s.finish("delete_person", err)
	}
	s.metrics.RecordCascadeDelete(report.Plots, report.Observations, report.Images)
	s.log.Info("person deleted",
		logger.String("person_id", id),
		logger.Int64("trials", report.Trials),
		logger.Int64("plots", report.Plots),
		logger.Int64("images", report.Images))
	return report, s.finish("delete_person", nil)
}

// normalizePerson trims names and turns empty optional fields into NULL so
// the unique email index ignores them.
func normalizePerson(p *entities.Person) {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.MiddleInitial = strings.TrimSpace(p.MiddleInitial)
	for _, field := range []**string{&p.Orcid, &p.Email, &p.PhoneNumber} {
		if *field != nil && strings.TrimSpace(**field) == "" {
			*field = nil
		}
	}
}

// CreateAddress validates and stores an address.
func (s *Service) CreateAddress(ctx context.Context, a *entities.Address) error {
	if err := ValidateAddress(a); err != nil {
		return s.finish("create_address", err)
	}
	return s.finish("create_address", s.repos().reference.CreateAddress(ctx, a))
}

// CreateOrganization validates and stores an organization.
func (s *Service) CreateOrganization(ctx context.Context, o *entities.Organization) error {
	if err := ValidateOrganization(o); err != nil {
		return s.finish("create_organization", err)
	}
	return s.finish("create_organization", s.repos().reference.CreateOrganization(ctx, o))
}

// CreateLocation validates and stores a location.
func (s *Service) CreateLocation(ctx context.Context, l *entities.Location) error {
	if err := ValidateLocation(l); err != nil {
		return s.finish("create_location", err)
	}
	return s.finish("create_location", s.repos().reference.CreateLocation(ctx, l))
}

// CreateProject stores a project.
func (s *Service) CreateProject(ctx context.Context, p *entities.Project) error {
	if err := required("name", p.Name); err != nil {
		return s.finish("create_project", err)
	}
	return s.finish("create_project", s.repos().reference.CreateProject(ctx, p))
}
