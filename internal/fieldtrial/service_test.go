package fieldtrial

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regenpgc/trialbase/internal/datastore/entities"
	"github.com/regenpgc/trialbase/internal/datastore/repository"
	"github.com/regenpgc/trialbase/internal/datastore/testutil"
	"github.com/regenpgc/trialbase/internal/errors"
	"github.com/regenpgc/trialbase/internal/logger"
	"github.com/regenpgc/trialbase/internal/notify"
)

// recordingMetrics counts what the service reports.
type recordingMetrics struct {
	mu         sync.Mutex
	operations map[string]int
	rejections map[string]int
	cascades   int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{operations: map[string]int{}, rejections: map[string]int{}}
}

func (m *recordingMetrics) RecordOperation(operation, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operations[operation+"/"+status]++
}

func (m *recordingMetrics) RecordValidationRejection(rule string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejections[rule]++
}

func (m *recordingMetrics) RecordCascadeDelete(int64, int64, int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cascades++
}

type testEnv struct {
	svc       *Service
	fx        *testutil.Fixture
	publisher *notify.MemoryPublisher
	metrics   *recordingMetrics
}

var testNow = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.OpenSQLite(t)
	env := &testEnv{
		fx:        testutil.NewFixture(t, db),
		publisher: notify.NewMemoryPublisher(),
		metrics:   newRecordingMetrics(),
	}
	env.svc = NewService(db,
		WithLogger(logger.NewDiscardLogger()),
		WithPublisher(env.publisher),
		WithMetrics(env.metrics),
		WithClock(func() time.Time { return testNow }),
	)
	return env
}

func mainPlot(trial *entities.Trial, label string) *entities.Plot {
	return &entities.Plot{Label: label, Type: entities.PlotTypeMain, WidthM: 6, LengthM: 12, TrialID: trial.ID}
}

func TestAddTrialYear(t *testing.T) {
	t.Parallel()
	t.Attr("component", "fieldtrial")

	env := newTestEnv(t)
	ctx := context.Background()
	trial := env.fx.Trial(2024)

	_, err := env.svc.AddTrialYear(ctx, trial.ID, 2023)
	requireInvalid(t, err, "year", RuleTrialYear)

	ty, err := env.svc.AddTrialYear(ctx, trial.ID, 2024)
	require.NoError(t, err)
	assert.NotEmpty(t, ty.ID)

	_, err = env.svc.AddTrialYear(ctx, trial.ID, 2024)
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err), "got %v", err)

	_, err = env.svc.AddTrialYear(ctx, "trial_missing", 2024)
	assert.True(t, errors.IsNotFound(err), "got %v", err)

	assert.Equal(t, 1, env.metrics.rejections[RuleTrialYear])
	assert.Equal(t, 1, env.metrics.operations["add_trial_year/success"])
}

func TestCreateTrial(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	fx := env.fx

	newTrial := func(name string, year int, loc *entities.Location) *entities.Trial {
		return &entities.Trial{
			Name: name, LocationID: loc.ID, ManagerID: fx.Person().ID, ProjectID: fx.Project().ID,
			AffiliationID: fx.Organization().ID, EstablishmentYear: year,
		}
	}
	trialLoc := fx.Location(entities.LocationTypeTrial)

	require.NoError(t, env.svc.CreateTrial(ctx, newTrial(" UW_corn ", 2024, trialLoc)))
	got, err := env.svc.repos().trials.GetByName(ctx, "UW_corn")
	require.NoError(t, err)
	assert.Equal(t, 2024, got.EstablishmentYear)

	requireInvalid(t, env.svc.CreateTrial(ctx, newTrial("UW_old", 1969, trialLoc)), "establishmentYear", RuleEstablishmentYear)
	requireInvalid(t, env.svc.CreateTrial(ctx, newTrial("UW_future", 2047, trialLoc)), "establishmentYear", RuleEstablishmentYear)
	requireInvalid(t, env.svc.CreateTrial(ctx, newTrial("UW_plotloc", 2024, fx.Location(entities.LocationTypePlot))), "locationId", RuleReference)

	missing := newTrial("UW_nomanager", 2024, trialLoc)
	missing.ManagerID = "person_missing"
	requireInvalid(t, env.svc.CreateTrial(ctx, missing), "managerId", RuleReference)

	err = env.svc.CreateTrial(ctx, newTrial("UW_corn", 2025, trialLoc))
	assert.True(t, errors.IsConflict(err), "got %v", err)
}

func TestCreatePlot_Hierarchy(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	trialA := env.fx.Trial(2024)
	trialB := env.fx.Trial(2024)

	root := mainPlot(trialA, "101")
	require.NoError(t, env.svc.CreatePlot(ctx, root))

	split := &entities.Plot{Label: "101a", Type: entities.PlotTypeSplit, WidthM: 3, LengthM: 12, TrialID: trialA.ID, ParentPlotID: &root.ID}
	require.NoError(t, env.svc.CreatePlot(ctx, split))

	// Duplicate label within the trial.
	err := env.svc.CreatePlot(ctx, mainPlot(trialA, "101"))
	assert.True(t, errors.IsConflict(err), "got %v", err)
	assert.ErrorIs(t, err, repository.ErrDuplicateKey)

	// Same label in another trial.
	require.NoError(t, env.svc.CreatePlot(ctx, mainPlot(trialB, "101")))

	// Parent from another trial.
	cross := &entities.Plot{Label: "201a", Type: entities.PlotTypeSplit, WidthM: 3, LengthM: 12, TrialID: trialB.ID, ParentPlotID: &root.ID}
	requireInvalid(t, env.svc.CreatePlot(ctx, cross), "parentPlotId", RuleParentTrial)

	orphan := &entities.Plot{Label: "103a", Type: entities.PlotTypeSplit, WidthM: 3, LengthM: 12, TrialID: trialA.ID, ParentPlotID: ptr("plot_missing")}
	requireInvalid(t, env.svc.CreatePlot(ctx, orphan), "parentPlotId", RuleReference)

	requireInvalid(t, env.svc.CreatePlot(ctx, mainPlot(&entities.Trial{ID: "trial_missing"}, "1")), "trialId", RuleReference)

	// An empty parent id is a root.
	emptyParent := mainPlot(trialA, "104")
	emptyParent.ParentPlotID = ptr("")
	require.NoError(t, env.svc.CreatePlot(ctx, emptyParent))
	assert.Nil(t, emptyParent.ParentPlotID)

	node, err := env.svc.GetPlot(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{split.ID}, node.Children)

	nodes, total, err := env.svc.ListPlots(ctx, trialA.ID, repository.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	for _, n := range nodes {
		assert.NotNil(t, n.Children, "children of %s", n.Label)
	}

	_, err = env.svc.Children(ctx, "plot_missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestCreatePlot_ArbitraryDepth(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	trial := env.fx.Trial(2024)

	p1 := mainPlot(trial, "P1")
	require.NoError(t, env.svc.CreatePlot(ctx, p1))
	p1a := mainPlot(trial, "P1-A")
	p1a.ParentPlotID = &p1.ID
	require.NoError(t, env.svc.CreatePlot(ctx, p1a), "a child may share its parent's type")

	parent := p1a
	types := []entities.PlotType{
		entities.PlotTypeSplit, entities.PlotTypeSplitSplit,
		entities.PlotTypeSplitSplitSplit, entities.PlotTypeSplitSplitSplit,
		entities.PlotTypeSplitSplitSplit,
	}
	for i, pt := range types {
		child := &entities.Plot{
			Label: fmt.Sprintf("P1-A-%d", i), Type: pt, WidthM: 1, LengthM: 1,
			TrialID: trial.ID, ParentPlotID: &parent.ID,
		}
		require.NoError(t, env.svc.CreatePlot(ctx, child), "level %d", i+2)
		parent = child
	}

	ancestors, err := env.svc.Ancestors(ctx, parent.ID)
	require.NoError(t, err)
	assert.Len(t, ancestors, 6)

	report, err := env.svc.DeletePlot(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), report.Plots)
	assert.Equal(t, 6, report.Depth)
}

func TestCreatePlot_ConcurrentDuplicate(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	trial := env.fx.Trial(2024)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Go(func() {
			errs[i] = env.svc.CreatePlot(context.Background(), mainPlot(trial, "race"))
		})
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.IsConflict(err):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)
}

func TestMovePlot(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	fx := env.fx
	trial := fx.Trial(2024)

	a := fx.Plot(trial, "A", entities.PlotTypeMain, nil)
	b := fx.Plot(trial, "B", entities.PlotTypeMain, nil)
	a1 := fx.Plot(trial, "A1", entities.PlotTypeSplit, a)
	a1x := fx.Plot(trial, "A1x", entities.PlotTypeSplitSplit, a1)

	require.NoError(t, env.svc.MovePlot(ctx, a1.ID, &b.ID))
	children, err := env.svc.Children(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, a1.ID, children[0].ID)

	requireInvalid(t, env.svc.MovePlot(ctx, a1.ID, &a1.ID), "parentPlotId", RulePlotCycle)
	requireInvalid(t, env.svc.MovePlot(ctx, a1.ID, &a1x.ID), "parentPlotId", RulePlotCycle)

	// Detach A1 into a root of its own.
	require.NoError(t, env.svc.MovePlot(ctx, a1.ID, nil))
	ancestors, err := env.svc.Ancestors(ctx, a1x.ID)
	require.NoError(t, err)
	require.Len(t, ancestors, 1)
	assert.Equal(t, a1.ID, ancestors[0].ID)

	other := fx.Plot(fx.Trial(2024), "C", entities.PlotTypeMain, nil)
	requireInvalid(t, env.svc.MovePlot(ctx, a1.ID, &other.ID), "parentPlotId", RuleParentTrial)
}

func TestMovePlot_RejectsDescendant(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	fx := env.fx
	trial := fx.Trial(2024)

	// Types say nothing about order, so only the ancestor check stops this.
	a := fx.Plot(trial, "A", entities.PlotTypeMain, nil)
	a1 := fx.Plot(trial, "A1", entities.PlotTypeSplitSplit, a)
	a1x := fx.Plot(trial, "A1x", entities.PlotTypeSplit, a1)

	requireInvalid(t, env.svc.MovePlot(context.Background(), a1.ID, &a1x.ID), "parentPlotId", RulePlotCycle)

	parent, err := env.svc.GetPlot(context.Background(), a1.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, *parent.ParentPlotID, "failed move leaves the tree unchanged")
}

func TestDeletePlot_Cascade(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	fx := env.fx
	trial := fx.Trial(2024)
	g := fx.Germplasm()
	v := fx.Variable(testutil.Float(0), testutil.Float(10))

	root := fx.Plot(trial, "1", entities.PlotTypeMain, nil)
	child := fx.Plot(trial, "1a", entities.PlotTypeSplit, root)
	grandchild := fx.Plot(trial, "1a-i", entities.PlotTypeSplitSplit, child)
	sibling := fx.Plot(trial, "2", entities.PlotTypeMain, nil)

	var urls []string
	for _, p := range []*entities.Plot{root, child, grandchild} {
		crop := fx.PlotCrop(p, g, 2024)
		obs := fx.Observation(crop, v, "5")
		urls = append(urls, fx.Image(obs).StorageURL)
	}
	keep := fx.Observation(fx.PlotCrop(sibling, g, 2024), v, "3")

	report, err := env.svc.DeletePlot(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), report.Plots)
	assert.Equal(t, int64(3), report.PlotCrops)
	assert.Equal(t, int64(3), report.Observations)
	assert.Equal(t, int64(3), report.Images)
	assert.ElementsMatch(t, urls, report.ImageURLs)

	for _, id := range []string{root.ID, child.ID, grandchild.ID} {
		_, err := env.svc.GetPlot(ctx, id)
		assert.True(t, errors.IsNotFound(err), "plot %s should be gone", id)
	}
	_, err = env.svc.GetObservation(ctx, keep.ID)
	require.NoError(t, err, "observations outside the subtree stay")

	assert.Equal(t, []string{notify.TopicPlotDeleted}, env.publisher.Topics())
	assert.Equal(t, 1, env.metrics.cascades)

	_, err = env.svc.DeletePlot(ctx, root.ID)
	assert.True(t, errors.IsNotFound(err))
}

func TestCreatePlotCrop(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	fx := env.fx
	trial := fx.Trial(2024)
	plotA := fx.Plot(trial, "A", entities.PlotTypeMain, nil)
	plotB := fx.Plot(trial, "B", entities.PlotTypeMain, nil)
	g1, g2 := fx.Germplasm(), fx.Germplasm()

	_, err := env.svc.CreatePlotCrop(ctx, plotA.ID, g1.ID, 2023)
	requireInvalid(t, err, "plotYear", RuleTrialYear)

	_, err = env.svc.CreatePlotCrop(ctx, plotA.ID, g1.ID, 2024)
	require.NoError(t, err)

	_, err = env.svc.CreatePlotCrop(ctx, plotA.ID, g1.ID, 2024)
	assert.True(t, errors.IsConflict(err), "got %v", err)

	// Changing any one of plot, germplasm or year is a new row.
	for _, c := range []struct {
		plot, germplasm string
		year            int
	}{{plotB.ID, g1.ID, 2024}, {plotA.ID, g2.ID, 2024}, {plotA.ID, g1.ID, 2025}} {
		_, err := env.svc.CreatePlotCrop(ctx, c.plot, c.germplasm, c.year)
		assert.NoError(t, err)
	}

	_, err = env.svc.CreatePlotCrop(ctx, plotA.ID, "germplasm_missing", 2024)
	requireInvalid(t, err, "germplasmId", RuleReference)
}

func TestAssignTreatment(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	fx := env.fx
	trial := fx.Trial(2024)
	crop := fx.PlotCrop(fx.Plot(trial, "1", entities.PlotTypeMain, nil), fx.Germplasm(), 2024)

	rotation, rotationLevels := fx.Treatment("corn-soy", "corn-soy-wheat")
	_, tillageLevels := fx.Treatment("no-till")
	fx.AssignTreatment(trial, rotation)

	_, err := env.svc.AssignTreatment(ctx, crop.ID, tillageLevels[0].ID)
	requireInvalid(t, err, "treatmentLevelId", RuleTreatmentAssignment)

	pt, err := env.svc.AssignTreatment(ctx, crop.ID, rotationLevels[0].ID)
	require.NoError(t, err)
	assert.Equal(t, rotation.ID, pt.TreatmentID)

	// A second level of the same treatment on the same plot crop.
	_, err = env.svc.AssignTreatment(ctx, crop.ID, rotationLevels[1].ID)
	assert.True(t, errors.IsConflict(err), "got %v", err)

	_, err = env.svc.AssignTreatment(ctx, crop.ID, rotationLevels[0].ID)
	assert.True(t, errors.IsConflict(err), "got %v", err)
}

func TestRecordObservation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	fx := env.fx
	trial := fx.Trial(2024)
	crop := fx.PlotCrop(fx.Plot(trial, "1", entities.PlotTypeMain, nil), fx.Germplasm(), 2024)
	observer := fx.Person()
	height := fx.Variable(testutil.Float(0), testutil.Float(10))
	notes := fx.Variable(nil, nil)

	record := func(v *entities.Variable, value string) (*entities.Observation, error) {
		o := &entities.Observation{ObserverID: observer.ID, PlotCropID: crop.ID, VariableLabel: v.Label, Value: value}
		return o, env.svc.RecordObservation(ctx, o)
	}

	for _, value := range []string{"5", "10", "0"} {
		_, err := record(height, value)
		assert.NoError(t, err, value)
	}
	for _, value := range []string{"-1", "11"} {
		_, err := record(height, value)
		requireInvalid(t, err, "value", RuleObservationBounds)
	}
	_, err := record(height, "tall")
	requireInvalid(t, err, "value", RuleObservationValue)

	o, err := record(notes, "  heavy lodging ")
	require.NoError(t, err)
	assert.Equal(t, "heavy lodging", o.Value)
	assert.Equal(t, testNow, o.DateTime)

	_, err = record(&entities.Variable{Label: "unknown"}, "1")
	requireInvalid(t, err, "variable", RuleReference)

	list, total, err := env.svc.ListObservations(ctx, repository.ObservationFilter{VariableLabel: height.Label}, repository.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, list, 3)

	assert.Len(t, env.publisher.Topics(), 4)
	assert.Equal(t, 3, env.metrics.rejections[RuleObservationBounds]+env.metrics.rejections[RuleObservationValue])
}

func TestCreatePerson(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	org := env.fx.Organization()

	a := &entities.Person{FirstName: " Ada ", LastName: "Lovelace", AffiliationID: org.ID, Email: ptr("")}
	b := &entities.Person{FirstName: "Grace", LastName: "Hopper", AffiliationID: org.ID, Email: ptr(" ")}
	require.NoError(t, env.svc.CreatePerson(ctx, a))
	require.NoError(t, env.svc.CreatePerson(ctx, b), "blank emails are stored as NULL")
	assert.Equal(t, "Ada", a.FirstName)
	assert.Nil(t, a.Email)

	c := &entities.Person{FirstName: "Alan", LastName: "Turing", AffiliationID: "org_missing"}
	requireInvalid(t, env.svc.CreatePerson(ctx, c), "affiliationId", RuleReference)

	a.MiddleInitial = "K"
	require.NoError(t, env.svc.UpdatePerson(ctx, a))
	got, err := env.svc.GetPerson(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "K", got.MiddleInitial)

	_, err = env.svc.DeletePerson(ctx, a.ID)
	require.NoError(t, err)
	_, err = env.svc.GetPerson(ctx, a.ID)
	assert.True(t, errors.IsNotFound(err))
}

func TestDefineVariable(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	spec := VariableSpec{
		Label: "corn plant height", Abbreviation: "CPH",
		Entity: "plant", Attribute: "height", Trait: "plant height",
		Method: "ruler", Scale: "cm",
		MinValue: ptr(0.0), MaxValue: ptr(400.0), Type: entities.VariableTypeCorn,
	}
	v, err := env.svc.DefineVariable(ctx, spec)
	require.NoError(t, err)
	assert.NotEmpty(t, v.TraitID)

	// Existing terms are reused.
	spec.Label, spec.Abbreviation = "soy plant height", "SPH"
	spec.Type = entities.VariableTypeSoybean
	v2, err := env.svc.DefineVariable(ctx, spec)
	require.NoError(t, err)
	assert.Equal(t, v.TraitID, v2.TraitID)
	assert.Equal(t, v.ScaleID, v2.ScaleID)

	spec.Label, spec.Abbreviation = "bad", "BAD"
	spec.MinValue, spec.MaxValue = ptr(5.0), ptr(1.0)
	_, err = env.svc.DefineVariable(ctx, spec)
	requireInvalid(t, err, "minValue", RuleVariableBounds)
}
