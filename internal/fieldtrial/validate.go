package fieldtrial

import (
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/regenpgc/trialbase/internal/datastore/entities"
	"github.com/regenpgc/trialbase/internal/errors"
)

// Validation rule names, attached to errors under ContextRule and counted in
// metrics.
const (
	RuleRequired            = "required"
	RuleEnum                = "enum"
	RuleFormat              = "format"
	RuleTrialYear           = "trial_year"
	RuleEstablishmentYear   = "establishment_year"
	RulePlotDimensions      = "plot_dimensions"
	RuleParentTrial         = "parent_trial"
	RulePlotCycle           = "plot_cycle"
	RuleReference           = "reference"
	RuleTreatmentAssignment = "treatment_assignment"
	RuleObservationValue    = "observation_value"
	RuleObservationBounds   = "observation_bounds"
	RuleVariableBounds      = "variable_bounds"
	RuleCoordinates         = "coordinates"
	RuleImageFile           = "image_file"
)

// ContextRule is the error context key holding the violated rule.
const ContextRule = "rule"

// Establishment years are limited to [MinEstablishmentYear, now + MaxYearsAhead].
const (
	MinEstablishmentYear = 1970
	MaxYearsAhead        = 20
)

// MaxImageDimension bounds image height and width in pixels.
const MaxImageDimension = 99999

var (
	postalCodePattern = regexp.MustCompile(`^\d{5}(?:-\d{4})?$`)
	rorPattern        = regexp.MustCompile(`^https://ror\.org/[a-zA-Z0-9]{9}$`)
	orcidPattern      = regexp.MustCompile(`^\d{4}-\d{4}-\d{4}-\d{3}[\dX]$`)

	imageExtensions = map[string]bool{
		".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
		".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
	}
)

// invalid builds a validation error for field.
func invalid(field, rule, format string, args ...any) error {
	return errors.Newf(format, args...).
		Component("fieldtrial").
		Category(errors.CategoryValidation).
		Field(field).
		Context(ContextRule, rule).
		Build()
}

// RuleOf returns the rule recorded on a validation error, or "".
func RuleOf(err error) string {
	var ee *errors.EnhancedError
	if !errors.As(err, &ee) {
		return ""
	}
	return ee.ContextString(ContextRule)
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid(field, RuleRequired, "%s is required", field)
	}
	return nil
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// ValidateTrialYear rejects a season before the trial was established.
func ValidateTrialYear(trial *entities.Trial, year int) error {
	if year < trial.EstablishmentYear {
		return invalid("year", RuleTrialYear,
			"year %d is before the establishment year %d of trial %s", year, trial.EstablishmentYear, trial.Name)
	}
	return nil
}

// ValidatePlotYear applies the trial year rule to a plot crop through the
// plot's trial.
func ValidatePlotYear(trial *entities.Trial, year int) error {
	if year < trial.EstablishmentYear {
		return invalid("plotYear", RuleTrialYear,
			"plot year %d is before the establishment year %d of trial %s", year, trial.EstablishmentYear, trial.Name)
	}
	return nil
}

// ValidateEstablishmentYear checks year against the allowed range relative to
// now.
func ValidateEstablishmentYear(year int, now time.Time) error {
	maxYear := now.Year() + MaxYearsAhead
	if year < MinEstablishmentYear || year > maxYear {
		return invalid("establishmentYear", RuleEstablishmentYear,
			"establishment year %d is outside %d..%d", year, MinEstablishmentYear, maxYear)
	}
	return nil
}

// ValidateObservationValue checks value against the variable's bounds and
// returns it trimmed. Bounded variables accept only finite numbers within
// the inclusive bounds; unbounded variables accept any non-empty text.
func ValidateObservationValue(v *entities.Variable, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", invalid("value", RuleRequired, "value is required")
	}
	if !v.Bounded() {
		return value, nil
	}

	n, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return "", invalid("value", RuleObservationValue,
			"value %q of variable %s is not a finite number", value, v.Label)
	}
	if v.MinValue != nil && n < *v.MinValue {
		return "", invalid("value", RuleObservationBounds,
			"value %s of variable %s is below the minimum %s", value, v.Label, formatBound(*v.MinValue))
	}
	if v.MaxValue != nil && n > *v.MaxValue {
		return "", invalid("value", RuleObservationBounds,
			"value %s of variable %s is above the maximum %s", value, v.Label, formatBound(*v.MaxValue))
	}
	return value, nil
}

func formatBound(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// ValidateVariable checks the required fields, the type and the bounds of a
// variable.
func ValidateVariable(v *entities.Variable) error {
	if err := firstError(required("label", v.Label), required("abbreviation", v.Abbreviation)); err != nil {
		return err
	}
	if !v.Type.Valid() {
		return invalid("type", RuleEnum, "unknown variable type %q", v.Type)
	}
	for _, b := range []struct {
		field string
		value *float64
	}{{"minValue", v.MinValue}, {"maxValue", v.MaxValue}} {
		if b.value != nil && (math.IsNaN(*b.value) || math.IsInf(*b.value, 0)) {
			return invalid(b.field, RuleVariableBounds, "%s must be a finite number", b.field)
		}
	}
	if v.MinValue != nil && v.MaxValue != nil && *v.MinValue > *v.MaxValue {
		return invalid("minValue", RuleVariableBounds,
			"minimum %s is greater than maximum %s", formatBound(*v.MinValue), formatBound(*v.MaxValue))
	}
	return nil
}

// ValidatePlot checks the fields of a plot that do not need the database.
func ValidatePlot(p *entities.Plot) error {
	p.Label = strings.TrimSpace(p.Label)
	if err := firstError(required("label", p.Label), required("trialId", p.TrialID)); err != nil {
		return err
	}
	if !p.Type.Valid() {
		return invalid("type", RuleEnum, "unknown plot type %q", p.Type)
	}
	if !(p.WidthM > 0) || math.IsInf(p.WidthM, 0) {
		return invalid("widthM", RulePlotDimensions, "width must be greater than 0")
	}
	if !(p.LengthM > 0) || math.IsInf(p.LengthM, 0) {
		return invalid("lengthM", RulePlotDimensions, "length must be greater than 0")
	}
	return nil
}

// ValidatePlotParent checks that child may sit under parent. Both must belong
// to the same trial; plot types do not restrict nesting depth.
func ValidatePlotParent(parent, child *entities.Plot) error {
	if parent.TrialID != child.TrialID {
		return invalid("parentPlotId", RuleParentTrial,
			"parent plot %s belongs to another trial", parent.Label)
	}
	return nil
}

// ValidatePerson checks names and the optional identifiers of a person.
func ValidatePerson(p *entities.Person) error {
	if err := firstError(
		required("firstName", p.FirstName),
		required("lastName", p.LastName),
		required("affiliationId", p.AffiliationID),
	); err != nil {
		return err
	}
	if utf8.RuneCountInString(p.MiddleInitial) > 1 {
		return invalid("middleInitial", RuleFormat, "middle initial must be a single character")
	}
	if p.Orcid != nil && *p.Orcid != "" && !orcidPattern.MatchString(*p.Orcid) {
		return invalid("orcid", RuleFormat, "ORCID %q does not match 0000-0000-0000-000X", *p.Orcid)
	}
	if p.Email != nil && *p.Email != "" && !strings.Contains(*p.Email, "@") {
		return invalid("email", RuleFormat, "email %q is not an address", *p.Email)
	}
	return nil
}

// ValidateAddress checks the required fields and the ZIP code.
func ValidateAddress(a *entities.Address) error {
	if err := firstError(
		required("name", a.Name),
		required("addressLine1", a.AddressLine1),
		required("city", a.City),
		required("stateId", a.StateID),
	); err != nil {
		return err
	}
	if !postalCodePattern.MatchString(a.PostalCode) {
		return invalid("postalCode", RuleFormat, "postal code %q is not a ZIP or ZIP+4 code", a.PostalCode)
	}
	return nil
}

// ValidateOrganization checks the required fields and the ROR id.
func ValidateOrganization(o *entities.Organization) error {
	if err := firstError(
		required("name", o.Name),
		required("abbreviation", o.Abbreviation),
		required("addressId", o.AddressID),
	); err != nil {
		return err
	}
	if !rorPattern.MatchString(o.RorID) {
		return invalid("rorId", RuleFormat, "ROR id %q does not match https://ror.org/<9 characters>", o.RorID)
	}
	return nil
}

// ValidateLocation checks the name, type and coordinates of a location.
func ValidateLocation(l *entities.Location) error {
	if err := required("name", l.Name); err != nil {
		return err
	}
	if !l.Type.Valid() {
		return invalid("type", RuleEnum, "unknown location type %q", l.Type)
	}
	if math.IsNaN(l.Latitude) || l.Latitude < -90 || l.Latitude > 90 {
		return invalid("latitude", RuleCoordinates, "latitude %v is outside -90..90", l.Latitude)
	}
	if math.IsNaN(l.Longitude) || l.Longitude < -180 || l.Longitude > 180 {
		return invalid("longitude", RuleCoordinates, "longitude %v is outside -180..180", l.Longitude)
	}
	return nil
}

// ValidateTrial checks the fields of a trial that do not need the database.
func ValidateTrial(t *entities.Trial, now time.Time) error {
	if err := firstError(
		required("name", t.Name),
		required("locationId", t.LocationID),
		required("managerId", t.ManagerID),
		required("projectId", t.ProjectID),
		required("affiliationId", t.AffiliationID),
	); err != nil {
		return err
	}
	return ValidateEstablishmentYear(t.EstablishmentYear, now)
}

// ValidateTreatment checks the name and type of a treatment.
func ValidateTreatment(t *entities.Treatment) error {
	if err := required("name", t.Name); err != nil {
		return err
	}
	if !t.Type.Valid() {
		return invalid("type", RuleEnum, "unknown treatment type %q", t.Type)
	}
	return nil
}

// ValidateGermplasm checks the name and type of a germplasm entry.
func ValidateGermplasm(g *entities.Germplasm) error {
	if err := required("name", g.Name); err != nil {
		return err
	}
	if !g.Type.Valid() {
		return invalid("type", RuleEnum, "unknown germplasm type %q", g.Type)
	}
	return nil
}

// ValidateImageFile checks the file extension and pixel dimensions of an
// image.
func ValidateImageFile(filename string, height, width int) error {
	if err := required("filename", filename); err != nil {
		return err
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !imageExtensions[ext] {
		return invalid("filename", RuleImageFile, "unsupported image extension %q", ext)
	}
	if height < 1 || height > MaxImageDimension {
		return invalid("height", RuleImageFile, "height %d is outside 1..%d", height, MaxImageDimension)
	}
	if width < 1 || width > MaxImageDimension {
		return invalid("width", RuleImageFile, "width %d is outside 1..%d", width, MaxImageDimension)
	}
	return nil
}
