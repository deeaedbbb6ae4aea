package fieldtrial

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regenpgc/trialbase/internal/datastore/entities"
	"github.com/regenpgc/trialbase/internal/errors"
)

// TestKeystoneTrialScenario walks the life of the TLI keystone trial through
// the service: reference data, trial, seasons, plots and deletion.
func TestKeystoneTrialScenario(t *testing.T) {
	t.Parallel()
	t.Attr("scenario", "FABPGC_TLI_keystone")

	env := newTestEnv(t)
	svc := env.svc
	ctx := context.Background()

	kansas := &entities.State{Name: "Kansas", Abbreviation: "KS"}
	require.NoError(t, svc.repos().reference.CreateState(ctx, kansas))

	addr := &entities.Address{
		Name: "The Land Institute", AddressLine1: "2440 E Water Well Rd", City: "Salina",
		StateID: kansas.ID, PostalCode: "67401",
	}
	require.NoError(t, svc.CreateAddress(ctx, addr))

	tli := &entities.Organization{
		Name: "The Land Institute", Abbreviation: "TLI", AddressID: addr.ID,
		RorID: "https://ror.org/05x7nfz17",
	}
	require.NoError(t, svc.CreateOrganization(ctx, tli))

	manager := &entities.Person{FirstName: "Tim", LastName: "Crews", AffiliationID: tli.ID, Email: ptr("crews@example.org")}
	require.NoError(t, svc.CreatePerson(ctx, manager))

	project := &entities.Project{Name: "FAB PGC", Funding: "USDA SAS"}
	require.NoError(t, svc.CreateProject(ctx, project))

	site := &entities.Location{Name: "Salina research farm", Latitude: 38.77, Longitude: -97.6, Type: entities.LocationTypeTrial}
	require.NoError(t, svc.CreateLocation(ctx, site))

	trial := &entities.Trial{
		Name: "FABPGC_TLI_keystone", LocationID: site.ID, ManagerID: manager.ID,
		ProjectID: project.ID, AffiliationID: tli.ID, EstablishmentYear: 2024, MultiYear: true,
	}
	require.NoError(t, svc.CreateTrial(ctx, trial))

	_, err := svc.AddTrialYear(ctx, trial.ID, 2023)
	requireInvalid(t, err, "year", RuleTrialYear)

	_, err = svc.AddTrialYear(ctx, trial.ID, 2024)
	require.NoError(t, err)

	p1 := &entities.Plot{Label: "P1", Type: entities.PlotTypeMain, WidthM: 6, LengthM: 12, TrialID: trial.ID}
	require.NoError(t, svc.CreatePlot(ctx, p1))

	p1a := &entities.Plot{Label: "P1-A", Type: entities.PlotTypeSplit, WidthM: 3, LengthM: 12, TrialID: trial.ID, ParentPlotID: &p1.ID}
	require.NoError(t, svc.CreatePlot(ctx, p1a))

	children, err := svc.Children(ctx, p1.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "P1-A", children[0].Label)

	report, err := svc.DeletePlot(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), report.Plots)

	_, err = svc.GetPlot(ctx, p1a.ID)
	assert.True(t, errors.IsNotFound(err), "child plot must be removed with its parent")

	years, err := svc.repos().trials.Years(ctx, trial.ID)
	require.NoError(t, err)
	require.Len(t, years, 1)
	assert.Equal(t, 2024, years[0].Year)
}
