package entities

import (
	"gorm.io/gorm"

	"github.com/regenpgc/trialbase/internal/idgen"
)

// assignID fills an empty primary key with a new identifier for prefix.
// Explicit ids are kept so seed data and imports can reference rows they
// have not inserted yet.
func assignID(id *string, prefix idgen.Prefix) {
	if *id == "" {
		*id = idgen.New(prefix)
	}
}

func (e *State) BeforeCreate(*gorm.DB) error { assignID(&e.ID, idgen.State); return nil }
func (e *Address) BeforeCreate(*gorm.DB) error { assignID(&e.ID, idgen.Address); return nil }
func (e *Organization) BeforeCreate(*gorm.DB) error { assignID(&e.ID, idgen.Organization); return nil }
func (e *Person) BeforeCreate(*gorm.DB) error { assignID(&e.ID, idgen.Person); return nil }
func (e *Location) BeforeCreate(*gorm.DB) error { assignID(&e.ID, idgen.Location); return nil }
func (e *Attribute) BeforeCreate(*gorm.DB) error { assignID(&e.ID, idgen.Attribute); return nil }
func (e *Project) BeforeCreate(*gorm.DB) error { assignID(&e.ID, idgen.Project); return nil }
func (e *Trial) BeforeCreate(*gorm.DB) error { assignID(&e.ID, idgen.Trial); return nil }
func (e *TrialYear) BeforeCreate(*gorm.DB) error { assignID(&e.ID, idgen.TrialYear); return nil }
func (e *TrialAttribute) BeforeCreate(*gorm.DB) error { assignID(&e.ID, idgen.TrialAttribute); return nil }
func (e *TrialEvent) BeforeCreate(*gorm.DB) error { assignID(&e.ID, idgen.TrialEvent); return nil }
func (e *Treatment) BeforeCreate(*gorm.DB) error { assignID(&e.ID, idgen.Treatment); return nil }
func (e *TreatmentLevel) BeforeCreate(*gorm.DB) error { assignID(&e.ID, idgen.TreatmentLevel); return nil }
func (e *TrialTreatment) BeforeCreate(*gorm.DB) error { assignID(&e.ID, idgen.TrialTreatment); return nil }
func (e *CommonName) BeforeCreate(*gorm.DB) error { assignID(&e.ID, idgen.CommonName); return nil }
func (e *GermplasmAlias) BeforeCreate(*gorm.DB) error { assignID(&e.ID, idgen.GermplasmAlias); return nil }
func (e *Plot) BeforeCreate(*gorm.DB) error { assignID(&e.ID, idgen.Plot); return nil }
func (e *PlotCrop) BeforeCreate(*gorm.DB) error { assignID(&e.ID, idgen.PlotCrop); return nil }
func (e *PlotTreatment) BeforeCreate(*gorm.DB) error { assignID(&e.ID, idgen.PlotTreatment); return nil }
func (e *TraitEntity) BeforeCreate(*gorm.DB) error { assignID(&e.ID, idgen.TraitEntity); return nil }
func (e *TraitAttribute) BeforeCreate(*gorm.DB) error { assignID(&e.ID, idgen.TraitAttribute); return nil }
func (e *VarTrait) BeforeCreate(*gorm.DB) error { assignID(&e.ID, idgen.VarTrait); return nil }
func (e *VarMethod) BeforeCreate(*gorm.DB) error { assignID(&e.ID, idgen.VarMethod); return nil }
func (e *VarScale) BeforeCreate(*gorm.DB) error { assignID(&e.ID, idgen.VarScale); return nil }
func (e *Variable) BeforeCreate(*gorm.DB) error { assignID(&e.ID, idgen.Variable); return nil }
func (e *SopDocument) BeforeCreate(*gorm.DB) error { assignID(&e.ID, idgen.SopDocument); return nil }
func (e *AgroProcess) BeforeCreate(*gorm.DB) error { assignID(&e.ID, idgen.AgroProcess); return nil }
func (e *Observation) BeforeCreate(*gorm.DB) error { assignID(&e.ID, idgen.Observation); return nil }
func (e *AwsModel) BeforeCreate(*gorm.DB) error { assignID(&e.ID, idgen.AwsModel); return nil }
func (e *Image) BeforeCreate(*gorm.DB) error { assignID(&e.ID, idgen.Image); return nil }

// BeforeCreate also defaults the species.
func (e *Germplasm) BeforeCreate(*gorm.DB) error {
	assignID(&e.ID, idgen.Germplasm)
	if e.Species == "" {
		e.Species = DefaultSpecies
	}
	return nil
}

// BeforeCreate also starts every operation in progress.
func (e *ImageOperation) BeforeCreate(*gorm.DB) error {
	assignID(&e.ID, idgen.ImageOperation)
	if e.Status == "" {
		e.Status = StatusInProgress
	}
	return nil
}
