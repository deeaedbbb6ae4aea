// Package seed populates an empty database with reference data and the
// keystone field trial: states, organizations, people, projects, trial
// locations, trials, treatments, the keystone plot layout, SOP documents and
// common names. Each block only runs when its table is empty, so seeding is
// safe to repeat.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"math/rand/v2"
	"time"

	"gorm.io/gorm"

	"github.com/regenpgc/trialbase/internal/datastore/entities"
	"github.com/regenpgc/trialbase/internal/datastore/repository"
	"github.com/regenpgc/trialbase/internal/errors"
	"github.com/regenpgc/trialbase/internal/fieldtrial"
	"github.com/regenpgc/trialbase/internal/importer"
	"github.com/regenpgc/trialbase/internal/logger"
)

// KeystoneTrial is the name of the trial that receives the plot list.
const KeystoneTrial = "FABPGC_TLI_keystone"

// KeystoneYears are the seasons recorded for the keystone trial.
var KeystoneYears = []int{2024, 2025, 2026, 2027}

const (
	peoplePerOrganization = 10
	trialLocations        = 10
	randomTrials          = 4
	seedOrcid             = "1234-1244-1233-1224"
)

var (
	//go:embed data/keystone_plot_list.csv
	defaultPlotList []byte

	//go:embed data/sop_documents.csv
	defaultSOPList []byte
)

// Options configure a seed run.
type Options struct {
	// PlotList and SOPList are CSV or XLSX files. Empty selects the
	// embedded lists.
	PlotList string
	SOPList  string

	// Rand drives the generated names, coordinates and trial choices. Nil
	// selects a generator seeded from the clock.
	Rand *rand.Rand

	Now    func() time.Time
	Logger logger.Logger
}

// Report counts the rows created by a run.
type Report struct {
	States          int
	Addresses       int
	Organizations   int
	People          int
	Projects        int
	Locations       int
	Trials          int
	TrialYears      int
	Treatments      int
	TrialTreatments int
	Plots           int
	SOPs            int
	SOPsSkipped     int
	CommonNames     int
}

// Total returns the number of rows created.
func (r *Report) Total() int {
	return r.States + r.Addresses + r.Organizations + r.People + r.Projects +
		r.Locations + r.Trials + r.TrialYears + r.Treatments + r.TrialTreatments +
		r.Plots + r.SOPs + r.CommonNames
}

type seeder struct {
	tx     *fieldtrial.Service
	db     *gorm.DB
	names  *nameGen
	rng    *rand.Rand
	now    time.Time
	report *Report
	opts   Options
}

// Run seeds svc's database in one transaction. Any failure rolls the whole
// run back.
func Run(ctx context.Context, svc *fieldtrial.Service, opts Options) (*Report, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logger.Global().Module("seed")
	}
	if opts.Rand == nil {
		t := uint64(opts.Now().UnixNano()) //nolint:gosec // only used as a seed
		opts.Rand = rand.New(rand.NewPCG(t, t>>32))
	}

	// Parse the files before opening the transaction.
	plots, err := loadPlots(opts.PlotList)
	if err != nil {
		return nil, err
	}
	sops, err := loadSOPs(opts.SOPList)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var report *Report
	err = svc.Transaction(ctx, func(tx *fieldtrial.Service) error {
		s := &seeder{
			tx:     tx,
			db:     tx.DB().WithContext(ctx),
			names:  newNameGen(opts.Rand),
			rng:    opts.Rand,
			now:    opts.Now(),
			report: &Report{},
			opts:   opts,
		}
		steps := []struct {
			name string
			fn   func(context.Context) error
		}{
			{"states", s.states},
			{"addresses", s.addresses},
			{"organizations", s.organizations},
			{"people", s.people},
			{"projects", s.projects},
			{"locations", s.locations},
			{"trials", s.trials},
			{"trial_years", s.trialYears},
			{"treatments", s.treatments},
			{"trial_treatments", s.trialTreatments},
			{"plots", func(ctx context.Context) error { return s.plots(ctx, plots) }},
			{"sop_documents", func(ctx context.Context) error { return s.sops(ctx, sops) }},
			{"common_names", s.commonNames},
		}
		for _, step := range steps {
			if err := step.fn(ctx); err != nil {
				return errors.New(err).
					Component("seed").
					Context(errors.ContextOperation, "seed_"+step.name).
					Build()
			}
		}
		report = s.report
		return nil
	})
	if err != nil {
		opts.Logger.Error("seeding failed, no rows were written", logger.Error(err))
		return nil, err
	}

	opts.Logger.Info("seeding complete",
		logger.Int("rows_created", report.Total()),
		logger.Int("plots", report.Plots),
		logger.Int("sop_documents", report.SOPs),
		logger.Duration("duration", time.Since(start)))
	return report, nil
}

func loadPlots(path string) ([]importer.PlotRow, error) {
	if path == "" {
		return importer.ReadPlots(bytes.NewReader(defaultPlotList), importer.FormatCSV)
	}
	return importer.ReadPlotsFile(path)
}

func loadSOPs(path string) ([]importer.SOPRow, error) {
	if path == "" {
		return importer.ReadSOPs(bytes.NewReader(defaultSOPList), importer.FormatCSV)
	}
	return importer.ReadSOPsFile(path)
}

// empty reports whether the table of T has no rows.
func empty[T any](db *gorm.DB) (bool, error) {
	var n int64
	if err := db.Model(new(T)).Count(&n).Error; err != nil {
		return false, errors.New(err).Category(errors.CategoryDatabase).Build()
	}
	return n == 0, nil
}

func all[T any](db *gorm.DB, query string, args ...any) ([]T, error) {
	var out []T
	q := db.Order("id")
	if query != "" {
		q = q.Where(query, args...)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, errors.New(err).Category(errors.CategoryDatabase).Build()
	}
	return out, nil
}

func one[T any](db *gorm.DB, query string, args ...any) (*T, error) {
	var out T
	if err := db.Where(query, args...).First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf("seed reference not found: %s %v", query, args).
				Category(errors.CategoryNotFound).
				Build()
		}
		return nil, errors.New(err).Category(errors.CategoryDatabase).Build()
	}
	return &out, nil
}

func (s *seeder) states(ctx context.Context) error {
	if ok, err := empty[entities.State](s.db); !ok || err != nil {
		return err
	}
	ref := repository.NewReferenceRepository(s.tx.DB())
	for _, st := range usStates {
		if err := ref.CreateState(ctx, &entities.State{Name: st[0], Abbreviation: st[1]}); err != nil {
			return err
		}
		s.report.States++
	}
	return nil
}

type addressSeed struct {
	name, line1, building, suite, city, state, zip string
}

var seedAddresses = []addressSeed{
	{name: "Corteva - Johnston", line1: "7000 NW 62nd Ave.", city: "Johnston", state: "IA", zip: "50131"},
	{name: "The Land Institute - Salina", line1: "2440 E. Water Well Rd.", city: "Salina", state: "KS", zip: "67401"},
	{name: "Iowa State University ABE - Ames", line1: "605 Bissell Rd.", building: "Elings Hall", suite: "1340", city: "Ames", state: "IA", zip: "50011"},
	{name: "University of Nebraska - Lincoln", line1: "1400 R St.", city: "Lincoln", state: "NE", zip: "68588"},
	{name: "University of Wisconsin - Madison", line1: "500 Lincoln Dr.", city: "Madison", state: "WI", zip: "53706"},
}

func (s *seeder) addresses(ctx context.Context) error {
	if ok, err := empty[entities.Address](s.db); !ok || err != nil {
		return err
	}
	ref := repository.NewReferenceRepository(s.tx.DB())
	for _, a := range seedAddresses {
		state, err := ref.GetStateByAbbreviation(ctx, a.state)
		if err != nil {
			return err
		}
		addr := &entities.Address{
			Name:         a.name,
			AddressLine1: a.line1,
			City:         a.city,
			StateID:      state.ID,
			PostalCode:   a.zip,
		}
		if a.building != "" {
			addr.BuildingName = &a.building
		}
		if a.suite != "" {
			addr.BuildingSuiteNumber = &a.suite
		}
		if err := s.tx.CreateAddress(ctx, addr); err != nil {
			return err
		}
		s.report.Addresses++
	}
	return nil
}

var seedOrganizations = []struct {
	name, abbreviation, address, ror, logo string
}{
	{"Corteva Agriscience", "CTV", "Corteva - Johnston", "https://ror.org/02pm1jf23", "assets/corteva_agriscience.png"},
	{"The Land Institute", "TLI", "The Land Institute - Salina", "https://ror.org/00jxaym78", "assets/the_land_institute.png"},
	{"Iowa State University", "ISU", "Iowa State University ABE - Ames", "https://ror.org/04rswrd78", "assets/iowa_state_university.png"},
	{"University of Nebraska - Lincoln", "UNL", "University of Nebraska - Lincoln", "https://ror.org/043mer456", "assets/university_of_nebraska_lincoln.jpg"},
	{"University of Wisconsin - Madison", "UWM", "University of Wisconsin - Madison", "https://ror.org/01y2jtd41", "assets/university_of_wisconsin.jpg"},
}

func (s *seeder) organizations(ctx context.Context) error {
	if ok, err := empty[entities.Organization](s.db); !ok || err != nil {
		return err
	}
	for _, o := range seedOrganizations {
		addr, err := one[entities.Address](s.db, "name = ?", o.address)
		if err != nil {
			return err
		}
		org := &entities.Organization{
			Name:         o.name,
			Abbreviation: o.abbreviation,
			AddressID:    addr.ID,
			RorID:        o.ror,
			LogoURL:      &o.logo,
		}
		if err := s.tx.CreateOrganization(ctx, org); err != nil {
			return err
		}
		s.report.Organizations++
	}
	return nil
}

func (s *seeder) people(ctx context.Context) error {
	if ok, err := empty[entities.Person](s.db); !ok || err != nil {
		return err
	}
	orgs, err := all[entities.Organization](s.db, "")
	if err != nil {
		return err
	}
	for _, org := range orgs {
		for range peoplePerOrganization {
			first, last := s.names.firstName(), s.names.lastName()
			email, phone, orcid := s.names.email(first, last), s.names.phone(), seedOrcid
			p := &entities.Person{
				FirstName:     first,
				LastName:      last,
				MiddleInitial: s.names.initial(),
				AffiliationID: org.ID,
				Orcid:         &orcid,
				Email:         &email,
				PhoneNumber:   &phone,
			}
			if err := s.tx.CreatePerson(ctx, p); err != nil {
				return err
			}
			s.report.People++
		}
	}
	return nil
}

func (s *seeder) projects(ctx context.Context) error {
	if ok, err := empty[entities.Project](s.db); !ok || err != nil {
		return err
	}
	website := "https://www.regenpgc.org/"
	projects := []*entities.Project{
		{
			Name:        "Regen PGC",
			Description: "Regenerating America's landscape through perennial groundcovers",
			Funding:     "USDA-AFRI 123456789",
			Website:     &website,
		},
		{
			Name:        "FAB PGC",
			Description: "A project that generates lots of data through keystone field experiments",
			Funding:     "DOE 123456789",
		},
	}
	for _, p := range projects {
		if err := s.tx.CreateProject(ctx, p); err != nil {
			return err
		}
		s.report.Projects++
	}
	return nil
}

func (s *seeder) locations(ctx context.Context) error {
	if ok, err := empty[entities.Location](s.db); !ok || err != nil {
		return err
	}
	for range trialLocations {
		l := &entities.Location{
			Name:      "trial_" + s.names.word(),
			Latitude:  s.names.latitude(),
			Longitude: s.names.longitude(),
			Type:      entities.LocationTypeTrial,
		}
		if err := s.tx.CreateLocation(ctx, l); err != nil {
			return err
		}
		s.report.Locations++
	}
	return nil
}

func (s *seeder) trials(ctx context.Context) error {
	if ok, err := empty[entities.Trial](s.db); !ok || err != nil {
		return err
	}
	orgs, err := all[entities.Organization](s.db, "")
	if err != nil {
		return err
	}
	locations, err := all[entities.Location](s.db, "type = ?", entities.LocationTypeTrial)
	if err != nil {
		return err
	}
	projects, err := all[entities.Project](s.db, "")
	if err != nil {
		return err
	}
	if len(orgs) == 0 || len(locations) == 0 || len(projects) == 0 {
		return errors.Newf("trials need organizations, trial locations and projects").
			Category(errors.CategoryState).
			Build()
	}

	used := make(map[string]bool)
	for range randomTrials {
		org := orgs[s.rng.IntN(len(orgs))]
		manager, err := s.managerFor(org.ID)
		if err != nil {
			return err
		}
		name := fmt.Sprintf("%s_trial_%d", org.Abbreviation, s.rng.IntN(1_000_000))
		for used[name] {
			name = fmt.Sprintf("%s_trial_%d", org.Abbreviation, s.rng.IntN(1_000_000))
		}
		used[name] = true

		span := s.now.Year() - fieldtrial.MinEstablishmentYear + 1
		t := &entities.Trial{
			Name:              name,
			LocationID:        locations[s.rng.IntN(len(locations))].ID,
			ManagerID:         manager.ID,
			ProjectID:         projects[s.rng.IntN(len(projects))].ID,
			AffiliationID:     org.ID,
			EstablishmentYear: fieldtrial.MinEstablishmentYear + s.rng.IntN(span),
			MultiYear:         s.rng.IntN(2) == 1,
		}
		if err := s.tx.CreateTrial(ctx, t); err != nil {
			return err
		}
		s.report.Trials++
	}

	tli, err := one[entities.Organization](s.db, "abbreviation = ?", "TLI")
	if err != nil {
		return err
	}
	fab, err := one[entities.Project](s.db, "name = ?", "FAB PGC")
	if err != nil {
		return err
	}
	manager, err := s.managerFor(tli.ID)
	if err != nil {
		return err
	}
	keystone := &entities.Trial{
		Name:              KeystoneTrial,
		LocationID:        locations[s.rng.IntN(len(locations))].ID,
		ManagerID:         manager.ID,
		ProjectID:         fab.ID,
		AffiliationID:     tli.ID,
		EstablishmentYear: 2024,
		MultiYear:         true,
	}
	if err := s.tx.CreateTrial(ctx, keystone); err != nil {
		return err
	}
	s.report.Trials++
	return nil
}

func (s *seeder) managerFor(orgID string) (*entities.Person, error) {
	people, err := all[entities.Person](s.db, "affiliation_id = ?", orgID)
	if err != nil {
		return nil, err
	}
	if len(people) == 0 {
		return nil, errors.Newf("organization %s has no people to manage a trial", orgID).
			Category(errors.CategoryState).
			Build()
	}
	return &people[s.rng.IntN(len(people))], nil
}

func (s *seeder) keystone() (*entities.Trial, error) {
	return one[entities.Trial](s.db, "name = ?", KeystoneTrial)
}

func (s *seeder) trialYears(ctx context.Context) error {
	if ok, err := empty[entities.TrialYear](s.db); !ok || err != nil {
		return err
	}
	trial, err := s.keystone()
	if err != nil {
		return err
	}
	for _, year := range KeystoneYears {
		if _, err := s.tx.AddTrialYear(ctx, trial.ID, year); err != nil {
			return err
		}
		s.report.TrialYears++
	}
	return nil
}

var seedTreatments = []struct {
	name        string
	kind        entities.TreatmentType
	description string
	levels      []string
}{
	{
		"FABPGC Crop Rotation", entities.TreatmentTypePlanting,
		"A crop rotation treatment that consists of three levels: corn-corn, corn-soybean, and soybean-corn",
		[]string{"corn-corn", "corn-soybean", "soybean-corn"},
	},
	{
		"FABPGC PGC", entities.TreatmentTypeGermplasm,
		"A PGC treatment group that consists of three levels: kbg (Kentucky Bluegrass), poa bulbosa (Radix Poa bulbosa), and no pgc (Control)",
		[]string{"kbg", "poa bulbosa", "no pgc"},
	},
	{
		"FABPGC Harvest", entities.TreatmentTypeOperations,
		"A harvest treatment group that consists of two different levels: corn-harvest, and corn-stover-harvest",
		[]string{"corn-harvest", "corn-stover-harvest"},
	},
	{
		"FABPGC Cash Crop", entities.TreatmentTypeGermplasm,
		"A cash crop germplasm treatment group that consists of several different corn and soybean treatment levels: H1 and H2 (corn hybrids), and V1 and V2 (soybean varieties)",
		[]string{"H1", "H2", "V1", "V2"},
	},
}

func (s *seeder) treatments(ctx context.Context) error {
	if ok, err := empty[entities.Treatment](s.db); !ok || err != nil {
		return err
	}
	for _, t := range seedTreatments {
		tr := &entities.Treatment{Name: t.name, Type: t.kind, Description: t.description}
		if _, err := s.tx.CreateTreatment(ctx, tr, t.levels...); err != nil {
			return err
		}
		s.report.Treatments++
	}
	return nil
}

func (s *seeder) trialTreatments(ctx context.Context) error {
	if ok, err := empty[entities.TrialTreatment](s.db); !ok || err != nil {
		return err
	}
	trial, err := s.keystone()
	if err != nil {
		return err
	}
	treatments, err := all[entities.Treatment](s.db, "")
	if err != nil {
		return err
	}
	for _, t := range treatments {
		if _, err := s.tx.AssignTreatmentToTrial(ctx, trial.ID, t.ID); err != nil {
			return err
		}
		s.report.TrialTreatments++
	}
	return nil
}

func (s *seeder) plots(ctx context.Context, rows []importer.PlotRow) error {
	if ok, err := empty[entities.Plot](s.db); !ok || err != nil {
		return err
	}
	trial, err := s.keystone()
	if err != nil {
		return err
	}
	n, err := importer.ImportPlots(ctx, s.tx, trial.ID, rows)
	if err != nil {
		return err
	}
	s.report.Plots = n
	return nil
}

func (s *seeder) sops(ctx context.Context, rows []importer.SOPRow) error {
	if ok, err := empty[entities.SopDocument](s.db); !ok || err != nil {
		return err
	}
	created, skipped, err := importer.ImportSOPs(ctx, s.tx, rows)
	if err != nil {
		return err
	}
	s.report.SOPs, s.report.SOPsSkipped = created, skipped
	return nil
}

var seedCommonNames = []string{"Corn", "Soybean", "Kentucky Bluegrass", "Poa bulbosa", "Kura clover"}

func (s *seeder) commonNames(ctx context.Context) error {
	if ok, err := empty[entities.CommonName](s.db); !ok || err != nil {
		return err
	}
	germplasm := repository.NewGermplasmRepository(s.tx.DB())
	for _, name := range seedCommonNames {
		if _, err := germplasm.GetOrCreateCommonName(ctx, name); err != nil {
			return err
		}
		s.report.CommonNames++
	}
	return nil
}
