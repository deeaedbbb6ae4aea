package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/regenpgc/trialbase/internal/datastore/entities"
)

// Fixture inserts minimal valid rows. Names are made unique with a counter,
// so one Fixture can build any number of independent trials.
type Fixture struct {
	tb testing.TB
	DB *gorm.DB
	n  int

	org     *entities.Organization
	project *entities.Project
}

// NewFixture returns a Fixture writing to db.
func NewFixture(tb testing.TB, db *gorm.DB) *Fixture {
	return &Fixture{tb: tb, DB: db}
}

func (f *Fixture) next() int {
	f.n++
	return f.n
}

func (f *Fixture) create(v any) {
	f.tb.Helper()
	require.NoError(f.tb, f.DB.Create(v).Error)
}

// Organization returns the fixture organization, creating it with its
// state and address on first use.
func (f *Fixture) Organization() *entities.Organization {
	f.tb.Helper()
	if f.org != nil {
		return f.org
	}
	state := &entities.State{Name: "Wisconsin", Abbreviation: "WI"}
	f.create(state)
	addr := &entities.Address{
		Name: "Campus", AddressLine1: "1575 Linden Dr", City: "Madison",
		StateID: state.ID, PostalCode: "53706",
	}
	f.create(addr)
	f.org = &entities.Organization{
		Name: "University of Wisconsin", Abbreviation: "UW",
		AddressID: addr.ID, RorID: "https://ror.org/01y2jtd41",
	}
	f.create(f.org)
	return f.org
}

// Person creates a new person in the fixture organization.
func (f *Fixture) Person() *entities.Person {
	f.tb.Helper()
	n := f.next()
	p := &entities.Person{
		FirstName: "Field", LastName: fmt.Sprintf("Tech %d", n),
		AffiliationID: f.Organization().ID,
	}
	f.create(p)
	return p
}

// Project returns the fixture project.
func (f *Fixture) Project() *entities.Project {
	f.tb.Helper()
	if f.project == nil {
		f.project = &entities.Project{Name: "Perennial groundcover", Funding: "USDA"}
		f.create(f.project)
	}
	return f.project
}

// Location creates a location of the given type.
func (f *Fixture) Location(locationType entities.LocationType) *entities.Location {
	f.tb.Helper()
	l := &entities.Location{
		Name: fmt.Sprintf("Location %d", f.next()), Latitude: 43.07, Longitude: -89.4,
		Type: locationType,
	}
	f.create(l)
	return l
}

// Trial creates a trial established in establishmentYear.
func (f *Fixture) Trial(establishmentYear int) *entities.Trial {
	f.tb.Helper()
	t := &entities.Trial{
		Name:              fmt.Sprintf("UW_trial_%d", f.next()),
		LocationID:        f.Location(entities.LocationTypeTrial).ID,
		ManagerID:         f.Person().ID,
		ProjectID:         f.Project().ID,
		AffiliationID:     f.Organization().ID,
		EstablishmentYear: establishmentYear,
		MultiYear:         true,
	}
	f.create(t)
	return t
}

// Plot creates a plot in trial under parent, which may be nil.
func (f *Fixture) Plot(trial *entities.Trial, label string, plotType entities.PlotType, parent *entities.Plot) *entities.Plot {
	f.tb.Helper()
	p := &entities.Plot{
		Label: label, Type: plotType, WidthM: 3, LengthM: 10, TrialID: trial.ID,
	}
	if parent != nil {
		p.ParentPlotID = &parent.ID
	}
	f.create(p)
	return p
}

// Germplasm creates a crop germplasm entry.
func (f *Fixture) Germplasm() *entities.Germplasm {
	f.tb.Helper()
	g := &entities.Germplasm{
		Name: fmt.Sprintf("Germplasm %d", f.next()), Type: entities.GermplasmTypeCrop, Genus: "Zea",
	}
	f.create(g)
	return g
}

// PlotCrop plants germplasm in plot for year.
func (f *Fixture) PlotCrop(plot *entities.Plot, g *entities.Germplasm, year int) *entities.PlotCrop {
	f.tb.Helper()
	c := &entities.PlotCrop{PlotID: plot.ID, GermplasmID: g.ID, PlotYear: year}
	f.create(c)
	return c
}

// Treatment creates a treatment with the given levels.
func (f *Fixture) Treatment(levels ...string) (*entities.Treatment, []entities.TreatmentLevel) {
	f.tb.Helper()
	t := &entities.Treatment{Name: fmt.Sprintf("Treatment %d", f.next()), Type: entities.TreatmentTypeOther}
	f.create(t)
	out := make([]entities.TreatmentLevel, len(levels))
	for i, level := range levels {
		out[i] = entities.TreatmentLevel{TreatmentID: t.ID, Level: level}
		f.create(&out[i])
	}
	return t, out
}

// AssignTreatment links a treatment to a trial.
func (f *Fixture) AssignTreatment(trial *entities.Trial, t *entities.Treatment) {
	f.tb.Helper()
	f.create(&entities.TrialTreatment{TrialID: trial.ID, TreatmentID: t.ID})
}

// Variable creates a variable with its trait, method and scale. Nil bounds
// leave the variable unbounded on that side.
func (f *Fixture) Variable(minValue, maxValue *float64) *entities.Variable {
	f.tb.Helper()
	n := f.next()
	entity := &entities.TraitEntity{Label: fmt.Sprintf("entity %d", n)}
	f.create(entity)
	attr := &entities.TraitAttribute{Label: fmt.Sprintf("attribute %d", n)}
	f.create(attr)
	trait := &entities.VarTrait{Label: fmt.Sprintf("trait %d", n), EntityID: entity.ID, AttributeID: attr.ID}
	f.create(trait)
	method := &entities.VarMethod{Label: fmt.Sprintf("method %d", n)}
	f.create(method)
	scale := &entities.VarScale{Label: fmt.Sprintf("scale %d", n)}
	f.create(scale)

	v := &entities.Variable{
		Label:        fmt.Sprintf("variable %d", n),
		Abbreviation: fmt.Sprintf("V%d", n),
		TraitID:      trait.ID, MethodID: method.ID, ScaleID: scale.ID,
		MinValue: minValue, MaxValue: maxValue,
		Type: entities.VariableTypeCorn,
	}
	f.create(v)
	return v
}

// Observation records value for variable on crop.
func (f *Fixture) Observation(crop *entities.PlotCrop, v *entities.Variable, value string) *entities.Observation {
	f.tb.Helper()
	o := &entities.Observation{
		DateTime: time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC), ObserverID: f.Person().ID,
		PlotCropID: crop.ID, VariableLabel: v.Label, Value: value,
	}
	f.create(o)
	return o
}

// Image attaches an image to observation, which may be nil.
func (f *Fixture) Image(obs *entities.Observation) *entities.Image {
	f.tb.Helper()
	n := f.next()
	img := &entities.Image{
		Filename: fmt.Sprintf("photo_%d.jpg", n), Height: 480, Width: 640,
		CreationDateTime: time.Date(2024, 7, 1, 10, 5, 0, 0, time.UTC),
		StorageURL:       fmt.Sprintf("mem://images/%d/photo_%d.jpg", n, n),
	}
	if obs != nil {
		img.ObservationID = &obs.ID
	}
	f.create(img)
	return img
}

// AwsModel creates an image analysis model.
func (f *Fixture) AwsModel() *entities.AwsModel {
	f.tb.Helper()
	m := &entities.AwsModel{Name: fmt.Sprintf("model %d", f.next()), Version: "1"}
	f.create(m)
	return m
}

// ImageOperation starts an operation of model on img.
func (f *Fixture) ImageOperation(img *entities.Image, m *entities.AwsModel) *entities.ImageOperation {
	f.tb.Helper()
	op := &entities.ImageOperation{ImageID: img.ID, ModelID: m.ID, DateTime: time.Now().UTC()}
	f.create(op)
	return op
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
