package repository

import (
	"context"

	"github.com/regenpgc/trialbase/internal/datastore/entities"
)

// PersonRepository stores researchers.
type PersonRepository interface {
	Create(ctx context.Context, p *entities.Person) error
	Get(ctx context.Context, id string) (*entities.Person, error)
	// List returns one page of people ordered by last and first name, and
	// the total count.
	List(ctx context.Context, page Page) ([]entities.Person, int64, error)
	// Update replaces every column of an existing person.
	Update(ctx context.Context, p *entities.Person) error
	Delete(ctx context.Context, id string) error
	// DeleteCascade deletes a person, the trials they manage with every plot
	// tree in them, and the observations they recorded elsewhere, in one
	// transaction.
	DeleteCascade(ctx context.Context, id string) (*CascadeReport, error)
	Count(ctx context.Context) (int64, error)
}

// ReferenceRepository stores the slowly changing reference data: states,
// addresses, organizations, locations, projects and attributes.
type ReferenceRepository interface {
	CreateState(ctx context.Context, s *entities.State) error
	GetStateByAbbreviation(ctx context.Context, abbreviation string) (*entities.State, error)
	ListStates(ctx context.Context) ([]entities.State, error)

	CreateAddress(ctx context.Context, a *entities.Address) error
	ListAddresses(ctx context.Context) ([]entities.Address, error)

	CreateOrganization(ctx context.Context, o *entities.Organization) error
	GetOrganization(ctx context.Context, id string) (*entities.Organization, error)
	GetOrganizationByAbbreviation(ctx context.Context, abbreviation string) (*entities.Organization, error)
	ListOrganizations(ctx context.Context) ([]entities.Organization, error)

	CreateLocation(ctx context.Context, l *entities.Location) error
	GetLocation(ctx context.Context, id string) (*entities.Location, error)
	// ListLocations returns locations of the given type, or all of them when
	// locationType is empty.
	ListLocations(ctx context.Context, locationType entities.LocationType) ([]entities.Location, error)

	CreateProject(ctx context.Context, p *entities.Project) error
	GetProject(ctx context.Context, id string) (*entities.Project, error)
	ListProjects(ctx context.Context) ([]entities.Project, error)

	CreateAttribute(ctx context.Context, a *entities.Attribute) error
	ListAttributes(ctx context.Context, domain entities.AttributeDomain) ([]entities.Attribute, error)
}
