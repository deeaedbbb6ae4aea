package fieldtrial

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regenpgc/trialbase/internal/datastore/entities"
	"github.com/regenpgc/trialbase/internal/errors"
)

func ptr[T any](v T) *T { return &v }

func requireInvalid(t *testing.T, err error, field, rule string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err), "expected validation error, got %v", err)
	assert.Equal(t, field, errors.FieldOf(err))
	assert.Equal(t, rule, RuleOf(err))
}

func TestValidateTrialYear(t *testing.T) {
	t.Parallel()

	trial := &entities.Trial{Name: "TLI_trial", EstablishmentYear: 2024}

	requireInvalid(t, ValidateTrialYear(trial, 2023), "year", RuleTrialYear)
	assert.NoError(t, ValidateTrialYear(trial, 2024))
	assert.NoError(t, ValidateTrialYear(trial, 2027))

	requireInvalid(t, ValidatePlotYear(trial, 2020), "plotYear", RuleTrialYear)
	assert.NoError(t, ValidatePlotYear(trial, 2024))
}

func TestValidateEstablishmentYear(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	assert.NoError(t, ValidateEstablishmentYear(1970, now))
	assert.NoError(t, ValidateEstablishmentYear(2046, now))
	requireInvalid(t, ValidateEstablishmentYear(1969, now), "establishmentYear", RuleEstablishmentYear)
	requireInvalid(t, ValidateEstablishmentYear(2047, now), "establishmentYear", RuleEstablishmentYear)
}

func TestValidateObservationValue(t *testing.T) {
	t.Parallel()

	bounded := &entities.Variable{Label: "plant height", MinValue: ptr(0.0), MaxValue: ptr(10.0)}
	minOnly := &entities.Variable{Label: "biomass", MinValue: ptr(0.0)}
	unbounded := &entities.Variable{Label: "notes"}

	tests := []struct {
		name     string
		variable *entities.Variable
		value    string
		want     string
		rule     string
	}{
		{"within bounds", bounded, "5", "5", ""},
		{"below minimum", bounded, "-1", "", RuleObservationBounds},
		{"at maximum", bounded, "10", "10", ""},
		{"above maximum", bounded, "11", "", RuleObservationBounds},
		{"at zero minimum", bounded, "0", "0", ""},
		{"trimmed", bounded, "  7.5 ", "7.5", ""},
		{"non numeric", bounded, "tall", "", RuleObservationValue},
		{"NaN", bounded, "NaN", "", RuleObservationValue},
		{"infinity", minOnly, "+Inf", "", RuleObservationValue},
		{"zero bound counts as set", minOnly, "-0.5", "", RuleObservationBounds},
		{"no upper bound", minOnly, "1e6", "1e6", ""},
		{"empty", unbounded, "   ", "", RuleRequired},
		{"free text when unbounded", unbounded, " lodging after storm ", "lodging after storm", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ValidateObservationValue(tt.variable, tt.value)
			if tt.rule != "" {
				requireInvalid(t, err, "value", tt.rule)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateVariable(t *testing.T) {
	t.Parallel()

	valid := entities.Variable{Label: "yield", Abbreviation: "YLD", Type: entities.VariableTypeCorn}
	assert.NoError(t, ValidateVariable(&valid))

	v := valid
	v.MinValue, v.MaxValue = ptr(10.0), ptr(1.0)
	requireInvalid(t, ValidateVariable(&v), "minValue", RuleVariableBounds)

	v = valid
	v.MinValue, v.MaxValue = ptr(3.0), ptr(3.0)
	assert.NoError(t, ValidateVariable(&v))

	v = valid
	v.MaxValue = ptr(math.Inf(1))
	requireInvalid(t, ValidateVariable(&v), "maxValue", RuleVariableBounds)

	v = valid
	v.Type = "barley"
	requireInvalid(t, ValidateVariable(&v), "type", RuleEnum)

	v = valid
	v.Abbreviation = ""
	requireInvalid(t, ValidateVariable(&v), "abbreviation", RuleRequired)
}

func TestValidatePlot(t *testing.T) {
	t.Parallel()

	p := &entities.Plot{Label: " 101 ", Type: entities.PlotTypeMain, WidthM: 3, LengthM: 10, TrialID: "trial_1"}
	require.NoError(t, ValidatePlot(p))
	assert.Equal(t, "101", p.Label)

	tests := []struct {
		name  string
		plot  entities.Plot
		field string
		rule  string
	}{
		{"empty label", entities.Plot{Label: " ", Type: entities.PlotTypeMain, WidthM: 1, LengthM: 1, TrialID: "t"}, "label", RuleRequired},
		{"no trial", entities.Plot{Label: "1", Type: entities.PlotTypeMain, WidthM: 1, LengthM: 1}, "trialId", RuleRequired},
		{"bad type", entities.Plot{Label: "1", Type: "strip plot", WidthM: 1, LengthM: 1, TrialID: "t"}, "type", RuleEnum},
		{"zero width", entities.Plot{Label: "1", Type: entities.PlotTypeMain, LengthM: 1, TrialID: "t"}, "widthM", RulePlotDimensions},
		{"negative length", entities.Plot{Label: "1", Type: entities.PlotTypeMain, WidthM: 1, LengthM: -2, TrialID: "t"}, "lengthM", RulePlotDimensions},
		{"NaN width", entities.Plot{Label: "1", Type: entities.PlotTypeMain, WidthM: math.NaN(), LengthM: 1, TrialID: "t"}, "widthM", RulePlotDimensions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			requireInvalid(t, ValidatePlot(&tt.plot), tt.field, tt.rule)
		})
	}
}

func TestValidatePlotParent(t *testing.T) {
	t.Parallel()

	main := &entities.Plot{Label: "1", Type: entities.PlotTypeMain, TrialID: "a"}
	split := &entities.Plot{Label: "1a", Type: entities.PlotTypeSplit, TrialID: "a"}
	splitSplit := &entities.Plot{Label: "1a-i", Type: entities.PlotTypeSplitSplit, TrialID: "a"}
	otherTrial := &entities.Plot{Label: "1b", Type: entities.PlotTypeSplit, TrialID: "b"}

	assert.NoError(t, ValidatePlotParent(main, split))
	assert.NoError(t, ValidatePlotParent(main, splitSplit))
	assert.NoError(t, ValidatePlotParent(split, main), "type does not order nesting")
	assert.NoError(t, ValidatePlotParent(split, split))
	requireInvalid(t, ValidatePlotParent(main, otherTrial), "parentPlotId", RuleParentTrial)
}

func TestValidatePerson(t *testing.T) {
	t.Parallel()

	valid := entities.Person{FirstName: "Ada", LastName: "Lovelace", AffiliationID: "org_1", Orcid: ptr("0000-0002-1825-009X"), Email: ptr("ada@example.org")}
	assert.NoError(t, ValidatePerson(&valid))

	p := valid
	p.Orcid = ptr("0000-0002-1825-00")
	requireInvalid(t, ValidatePerson(&p), "orcid", RuleFormat)

	p = valid
	p.Email = ptr("ada.example.org")
	requireInvalid(t, ValidatePerson(&p), "email", RuleFormat)

	p = valid
	p.MiddleInitial = "AB"
	requireInvalid(t, ValidatePerson(&p), "middleInitial", RuleFormat)

	p = valid
	p.MiddleInitial = "É"
	assert.NoError(t, ValidatePerson(&p))

	p = valid
	p.LastName = ""
	requireInvalid(t, ValidatePerson(&p), "lastName", RuleRequired)
}

func TestValidateAddressAndOrganization(t *testing.T) {
	t.Parallel()

	addr := entities.Address{Name: "HQ", AddressLine1: "2440 E Water Well Rd", City: "Salina", StateID: "state_1", PostalCode: "67401"}
	assert.NoError(t, ValidateAddress(&addr))
	addr.PostalCode = "67401-1234"
	assert.NoError(t, ValidateAddress(&addr))
	addr.PostalCode = "6740"
	requireInvalid(t, ValidateAddress(&addr), "postalCode", RuleFormat)

	org := entities.Organization{Name: "The Land Institute", Abbreviation: "TLI", AddressID: "addr_1", RorID: "https://ror.org/05x7nfz17"}
	assert.NoError(t, ValidateOrganization(&org))
	org.RorID = "https://ror.org/05x7nfz1"
	requireInvalid(t, ValidateOrganization(&org), "rorId", RuleFormat)
	org.RorID = "http://ror.org/05x7nfz17"
	requireInvalid(t, ValidateOrganization(&org), "rorId", RuleFormat)
}

func TestValidateLocation(t *testing.T) {
	t.Parallel()

	loc := entities.Location{Name: "Salina", Latitude: 38.77, Longitude: -97.6, Type: entities.LocationTypeTrial}
	assert.NoError(t, ValidateLocation(&loc))

	bad := loc
	bad.Latitude = 91
	requireInvalid(t, ValidateLocation(&bad), "latitude", RuleCoordinates)

	bad = loc
	bad.Longitude = -180.5
	requireInvalid(t, ValidateLocation(&bad), "longitude", RuleCoordinates)

	bad = loc
	bad.Type = "field"
	requireInvalid(t, ValidateLocation(&bad), "type", RuleEnum)
}

func TestValidateImageFile(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateImageFile("quadrat.JPG", 480, 640))
	assert.NoError(t, ValidateImageFile("scan.tiff", 1, MaxImageDimension))
	requireInvalid(t, ValidateImageFile("notes.pdf", 480, 640), "filename", RuleImageFile)
	requireInvalid(t, ValidateImageFile("noext", 480, 640), "filename", RuleImageFile)
	requireInvalid(t, ValidateImageFile("a.png", 0, 640), "height", RuleImageFile)
	requireInvalid(t, ValidateImageFile("a.png", 480, MaxImageDimension+1), "width", RuleImageFile)
}

func TestTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to entities.OperationStatus
		ok       bool
	}{
		{entities.StatusInProgress, entities.StatusSuccess, true},
		{entities.StatusInProgress, entities.StatusFailure, true},
		{entities.StatusInProgress, entities.StatusInProgress, false},
		{entities.StatusSuccess, entities.StatusFailure, false},
		{entities.StatusSuccess, entities.StatusInProgress, false},
		{entities.StatusFailure, entities.StatusSuccess, false},
		{entities.StatusFailure, entities.StatusFailure, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			t.Parallel()
			err := Transition(tt.from, tt.to)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsState(err), "expected state error, got %v", err)
		})
	}

	requireInvalid(t, Transition(entities.StatusInProgress, "done"), "status", RuleEnum)
}
