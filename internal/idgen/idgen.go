// Package idgen issues the string identifiers used as primary keys for every
// stored entity.
//
// An identifier is "<prefix>_<uuid v7>". Version 7 UUIDs carry a millisecond
// Unix timestamp in their most significant bits followed by a per-process
// monotonic sequence, so their canonical lowercase hex form sorts in creation
// order. Identifiers sharing a prefix therefore sort by creation time.
package idgen

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Prefix names the entity kind an identifier belongs to.
type Prefix string

// Entity prefixes.
const (
	Attribute      Prefix = "attr"
	Location       Prefix = "loc"
	State          Prefix = "state"
	Address        Prefix = "addr"
	Organization   Prefix = "org"
	Person         Prefix = "person"
	Project        Prefix = "proj"
	Trial          Prefix = "trial"
	TrialYear      Prefix = "trialYear"
	TrialAttribute Prefix = "trialAttr"
	TrialEvent     Prefix = "trialEvent"
	Treatment      Prefix = "treatment"
	TreatmentLevel Prefix = "treatmentLevel"
	TrialTreatment Prefix = "trialTreatment"
	CommonName     Prefix = "commonName"
	Germplasm      Prefix = "germplasm"
	GermplasmAlias Prefix = "germplasmAlias"
	Plot           Prefix = "plot"
	PlotCrop       Prefix = "plotCrop"
	PlotTreatment  Prefix = "plotTreatment"
	TraitEntity    Prefix = "traitEntity"
	TraitAttribute Prefix = "traitAttr"
	VarTrait       Prefix = "varTrait"
	VarMethod      Prefix = "varMethod"
	VarScale       Prefix = "varScale"
	Variable       Prefix = "variable"
	SopDocument    Prefix = "sop"
	AgroProcess    Prefix = "agroProcess"
	Observation    Prefix = "obs"
	AwsModel       Prefix = "awsModel"
	Image          Prefix = "image"
	ImageOperation Prefix = "imageOperation"
)

const separator = "_"

// New returns a fresh identifier for the given prefix. An empty prefix yields a
// bare UUID string.
func New(p Prefix) string {
	// NewV7 only fails when the system random source fails, which crypto/rand
	// treats as fatal.
	u := uuid.Must(uuid.NewV7())
	if p == "" {
		return u.String()
	}
	return string(p) + separator + u.String()
}

// Split separates an identifier into its prefix and UUID parts.
func Split(id string) (Prefix, string) {
	i := strings.LastIndex(id, separator)
	if i < 0 {
		return "", id
	}
	return Prefix(id[:i]), id[i+1:]
}

// HasPrefix reports whether id was issued for prefix p.
func HasPrefix(id string, p Prefix) bool {
	got, _ := Split(id)
	return got == p
}

// Timestamp returns the creation time embedded in id. It reports false when id
// was not produced by New.
func Timestamp(id string) (time.Time, bool) {
	_, raw := Split(id)
	u, err := uuid.Parse(raw)
	if err != nil || u.Version() != 7 {
		return time.Time{}, false
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec), true
}
