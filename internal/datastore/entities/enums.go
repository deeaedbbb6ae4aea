package entities

import (
	"fmt"
	"slices"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// title returns s in English title case. A Caser is stateful, so one is
// built per call.
func title(s string) string { return cases.Title(language.English).String(s) }

func parseEnum[T ~string](kind, s string, values []T) (T, error) {
	for _, v := range values {
		if string(v) == s {
			return v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, s)
}

// PlotType labels the role of a plot within a split-plot design. It does
// not limit how deep plots nest.
type PlotType string

const (
	PlotTypeMain            PlotType = "main plot"
	PlotTypeSplit           PlotType = "split plot"
	PlotTypeSplitSplit      PlotType = "split split plot"
	PlotTypeSplitSplitSplit PlotType = "split split split plot"
)

// PlotTypes lists the plot types.
var PlotTypes = []PlotType{PlotTypeMain, PlotTypeSplit, PlotTypeSplitSplit, PlotTypeSplitSplitSplit}

func (t PlotType) Valid() bool   { return slices.Contains(PlotTypes, t) }
func (t PlotType) Label() string { return title(string(t)) }

func ParsePlotType(s string) (PlotType, error) { return parseEnum("plot type", s, PlotTypes) }

// TreatmentType classifies a treatment factor.
type TreatmentType string

const (
	TreatmentTypeGermplasm  TreatmentType = "germplasm"
	TreatmentTypePlanting   TreatmentType = "planting"
	TreatmentTypeFertilizer TreatmentType = "fertilizer"
	TreatmentTypeOperations TreatmentType = "operations"
	TreatmentTypeHerbicide  TreatmentType = "herbicide"
	TreatmentTypeOther      TreatmentType = "other"
)

var TreatmentTypes = []TreatmentType{
	TreatmentTypeGermplasm, TreatmentTypePlanting, TreatmentTypeFertilizer,
	TreatmentTypeOperations, TreatmentTypeHerbicide, TreatmentTypeOther,
}

func (t TreatmentType) Valid() bool   { return slices.Contains(TreatmentTypes, t) }
func (t TreatmentType) Label() string { return title(string(t)) }

func ParseTreatmentType(s string) (TreatmentType, error) {
	return parseEnum("treatment type", s, TreatmentTypes)
}

// GermplasmType separates perennial groundcovers from cash crops.
type GermplasmType string

const (
	GermplasmTypePGC  GermplasmType = "pgc"
	GermplasmTypeCrop GermplasmType = "crop"
)

var GermplasmTypes = []GermplasmType{GermplasmTypePGC, GermplasmTypeCrop}

func (t GermplasmType) Valid() bool { return slices.Contains(GermplasmTypes, t) }

func (t GermplasmType) Label() string {
	if t == GermplasmTypePGC {
		return "PGC"
	}
	return title(string(t))
}

func ParseGermplasmType(s string) (GermplasmType, error) {
	return parseEnum("germplasm type", s, GermplasmTypes)
}

// VariableType is the subject a variable is measured on.
type VariableType string

const (
	VariableTypeCorn      VariableType = "corn"
	VariableTypeSoybean   VariableType = "soybean"
	VariableTypePGCGrass  VariableType = "pgc grass"
	VariableTypePGCClover VariableType = "pgc clover"
	VariableTypeWeed      VariableType = "weed"
	VariableTypeSoil      VariableType = "soil"
)

var VariableTypes = []VariableType{
	VariableTypeCorn, VariableTypeSoybean, VariableTypePGCGrass,
	VariableTypePGCClover, VariableTypeWeed, VariableTypeSoil,
}

func (t VariableType) Valid() bool { return slices.Contains(VariableTypes, t) }

func (t VariableType) Label() string {
	switch t {
	case VariableTypePGCGrass:
		return "PGC Grass"
	case VariableTypePGCClover:
		return "PGC Clover"
	}
	return title(string(t))
}

func ParseVariableType(s string) (VariableType, error) {
	return parseEnum("variable type", s, VariableTypes)
}

// OperationStatus is the state of an image operation.
type OperationStatus string

const (
	StatusInProgress OperationStatus = "in progress"
	StatusSuccess    OperationStatus = "success"
	StatusFailure    OperationStatus = "failure"
)

var OperationStatuses = []OperationStatus{StatusInProgress, StatusSuccess, StatusFailure}

func (s OperationStatus) Valid() bool   { return slices.Contains(OperationStatuses, s) }
func (s OperationStatus) Label() string { return title(string(s)) }

// Terminal reports whether no further transition is allowed.
func (s OperationStatus) Terminal() bool { return s == StatusSuccess || s == StatusFailure }

func ParseOperationStatus(s string) (OperationStatus, error) {
	return parseEnum("operation status", s, OperationStatuses)
}

// LocationType tells what a Location row describes.
type LocationType string

const (
	LocationTypePlot    LocationType = "plot"
	LocationTypeTrial   LocationType = "trial"
	LocationTypeGeneral LocationType = "general"
)

var LocationTypes = []LocationType{LocationTypePlot, LocationTypeTrial, LocationTypeGeneral}

func (t LocationType) Valid() bool   { return slices.Contains(LocationTypes, t) }
func (t LocationType) Label() string { return title(string(t)) }

func ParseLocationType(s string) (LocationType, error) {
	return parseEnum("location type", s, LocationTypes)
}

// AttributeDomain is the entity kind an Attribute applies to.
type AttributeDomain string

const (
	AttributeDomainTrial     AttributeDomain = "trial"
	AttributeDomainProject   AttributeDomain = "project"
	AttributeDomainGermplasm AttributeDomain = "germplasm"
)

var AttributeDomains = []AttributeDomain{AttributeDomainTrial, AttributeDomainProject, AttributeDomainGermplasm}

func (d AttributeDomain) Valid() bool   { return slices.Contains(AttributeDomains, d) }
func (d AttributeDomain) Label() string { return title(string(d)) }

func ParseAttributeDomain(s string) (AttributeDomain, error) {
	return parseEnum("attribute domain", s, AttributeDomains)
}
