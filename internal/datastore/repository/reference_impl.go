package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/regenpgc/trialbase/internal/datastore/entities"
)

// personRepository implements PersonRepository.
type personRepository struct {
	db *gorm.DB
}

// NewPersonRepository creates a new PersonRepository.
func NewPersonRepository(db *gorm.DB) PersonRepository {
	return &personRepository{db: db}
}

func (r *personRepository) Create(ctx context.Context, p *entities.Person) error {
	return createRow(ctx, r.db, p, "person")
}

func (r *personRepository) Get(ctx context.Context, id string) (*entities.Person, error) {
	return getRow[entities.Person](ctx, r.db, id, ErrPersonNotFound, "person")
}

func (r *personRepository) List(ctx context.Context, page Page) ([]entities.Person, int64, error) {
	return listRows[entities.Person](ctx, r.db, page, "last_name ASC, first_name ASC, id ASC", "person", nil)
}

// Update checks the person exists before saving, since Save on a missing
// primary key would insert.
func (r *personRepository) Update(ctx context.Context, p *entities.Person) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getRow[entities.Person](ctx, tx, p.ID, ErrPersonNotFound, "person"); err != nil {
			return err
		}
		return classify(tx.Save(p).Error, "update", "person")
	})
}

func (r *personRepository) Delete(ctx context.Context, id string) error {
	return deleteRow[entities.Person](ctx, r.db, id, ErrPersonNotFound, "person")
}

func (r *personRepository) DeleteCascade(ctx context.Context, id string) (*CascadeReport, error) {
	report := &CascadeReport{RootID: id}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getRow[entities.Person](ctx, tx, id, ErrPersonNotFound, "person"); err != nil {
			return err
		}

		trialIDs, err := pluckIDs(tx, &entities.Trial{}, "manager_id", []string{id})
		if err != nil {
			return classify(err, "list", "trial")
		}
		var roots []string
		err = forChunks(trialIDs, func(chunk []string) error {
			var ids []string
			if err := tx.Model(&entities.Plot{}).
				Where("trial_id IN ? AND parent_plot_id IS NULL", chunk).
				Pluck("id", &ids).Error; err != nil {
				return err
			}
			roots = append(roots, ids...)
			return nil
		})
		if err != nil {
			return classify(err, "list", "plot")
		}
		for _, root := range roots {
			if err := deleteSubtree(tx, root, report); err != nil {
				return err
			}
		}

		// Observations the person recorded in trials managed by others.
		obsIDs, err := pluckIDs(tx, &entities.Observation{}, "observer_id", []string{id})
		if err != nil {
			return classify(err, "list", "observation")
		}
		if err := deleteObservations(tx, obsIDs, report); err != nil {
			return err
		}

		if report.Trials, err = deleteIn(tx, &entities.Trial{}, "id", trialIDs); err != nil {
			return classify(err, "delete", "trial")
		}
		return deleteRow[entities.Person](ctx, tx, id, ErrPersonNotFound, "person")
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (r *personRepository) Count(ctx context.Context) (int64, error) {
	return countRows[entities.Person](ctx, r.db, "person")
}

// referenceRepository implements ReferenceRepository.
type referenceRepository struct {
	db *gorm.DB
}

// NewReferenceRepository creates a new ReferenceRepository.
func NewReferenceRepository(db *gorm.DB) ReferenceRepository {
	return &referenceRepository{db: db}
}

func (r *referenceRepository) CreateState(ctx context.Context, s *entities.State) error {
	return createRow(ctx, r.db, s, "state")
}

func (r *referenceRepository) GetStateByAbbreviation(ctx context.Context, abbreviation string) (*entities.State, error) {
	return firstRow[entities.State](ctx, r.db, ErrStateNotFound, "state", "abbreviation = ?", abbreviation)
}

func (r *referenceRepository) ListStates(ctx context.Context) ([]entities.State, error) {
	var states []entities.State
	err := r.db.WithContext(ctx).Order("name ASC").Find(&states).Error
	return states, classify(err, "list", "state")
}

func (r *referenceRepository) CreateAddress(ctx context.Context, a *entities.Address) error {
	return createRow(ctx, r.db, a, "address")
}

func (r *referenceRepository) ListAddresses(ctx context.Context) ([]entities.Address, error) {
	var addresses []entities.Address
	err := r.db.WithContext(ctx).Order("name ASC").Find(&addresses).Error
	return addresses, classify(err, "list", "address")
}

func (r *referenceRepository) CreateOrganization(ctx context.Context, o *entities.Organization) error {
	return createRow(ctx, r.db, o, "organization")
}

func (r *referenceRepository) GetOrganization(ctx context.Context, id string) (*entities.Organization, error) {
	return getRow[entities.Organization](ctx, r.db, id, ErrOrganizationNotFound, "organization")
}

func (r *referenceRepository) GetOrganizationByAbbreviation(ctx context.Context, abbreviation string) (*entities.Organization, error) {
	return firstRow[entities.Organization](ctx, r.db, ErrOrganizationNotFound, "organization", "abbreviation = ?", abbreviation)
}

func (r *referenceRepository) ListOrganizations(ctx context.Context) ([]entities.Organization, error) {
	var orgs []entities.Organization
	err := r.db.WithContext(ctx).Order("name ASC").Find(&orgs).Error
	return orgs, classify(err, "list", "organization")
}

func (r *referenceRepository) CreateLocation(ctx context.Context, l *entities.Location) error {
	return createRow(ctx, r.db, l, "location")
}

func (r *referenceRepository) GetLocation(ctx context.Context, id string) (*entities.Location, error) {
	return getRow[entities.Location](ctx, r.db, id, ErrLocationNotFound, "location")
}

func (r *referenceRepository) ListLocations(ctx context.Context, locationType entities.LocationType) ([]entities.Location, error) {
	q := r.db.WithContext(ctx).Order("name ASC")
	if locationType != "" {
		q = q.Where("type = ?", locationType)
	}
	var locations []entities.Location
	err := q.Find(&locations).Error
	return locations, classify(err, "list", "location")
}

func (r *referenceRepository) CreateProject(ctx context.Context, p *entities.Project) error {
	return createRow(ctx, r.db, p, "project")
}

func (r *referenceRepository) GetProject(ctx context.Context, id string) (*entities.Project, error) {
	return getRow[entities.Project](ctx, r.db, id, ErrProjectNotFound, "project")
}

func (r *referenceRepository) ListProjects(ctx context.Context) ([]entities.Project, error) {
	var projects []entities.Project
	err := r.db.WithContext(ctx).Order("name ASC").Find(&projects).Error
	return projects, classify(err, "list", "project")
}

func (r *referenceRepository) CreateAttribute(ctx context.Context, a *entities.Attribute) error {
	return createRow(ctx, r.db, a, "attribute")
}

func (r *referenceRepository) ListAttributes(ctx context.Context, domain entities.AttributeDomain) ([]entities.Attribute, error) {
	q := r.db.WithContext(ctx).Order("label ASC")
	if domain != "" {
		q = q.Where("domain = ?", domain)
	}
	var attrs []entities.Attribute
	err := q.Find(&attrs).Error
	return attrs, classify(err, "list", "attribute")
}
