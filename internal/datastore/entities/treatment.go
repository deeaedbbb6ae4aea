package entities

// Treatment is an experimental factor such as crop rotation or fertilizer.
type Treatment struct {
	ID          string        `gorm:"primaryKey;size:64" json:"id"`
	Name        string        `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Type        TreatmentType `gorm:"size:16;not null" json:"type"`
	Description string        `gorm:"type:text" json:"description"`
}

func (Treatment) TableName() string { return "treatments" }

// TreatmentLevel is one value of a treatment factor.
type TreatmentLevel struct {
	ID          string `gorm:"primaryKey;size:64" json:"id"`
	TreatmentID string `gorm:"size:64;not null;uniqueIndex:idx_treatment_level" json:"treatmentId"`
	Level       string `gorm:"size:255;not null;uniqueIndex:idx_treatment_level" json:"level"`

	Treatment *Treatment `gorm:"foreignKey:TreatmentID;constraint:OnDelete:CASCADE" json:"-"`
}

func (TreatmentLevel) TableName() string { return "treatment_levels" }

// TrialTreatment assigns a treatment factor to a trial.
type TrialTreatment struct {
	ID          string `gorm:"primaryKey;size:64" json:"id"`
	TrialID     string `gorm:"size:64;not null;uniqueIndex:idx_trial_treatment" json:"trialId"`
	TreatmentID string `gorm:"size:64;not null;uniqueIndex:idx_trial_treatment;index" json:"treatmentId"`

	Trial     *Trial     `gorm:"foreignKey:TrialID;constraint:OnDelete:CASCADE" json:"-"`
	Treatment *Treatment `gorm:"foreignKey:TreatmentID;constraint:OnDelete:CASCADE" json:"-"`
}

func (TrialTreatment) TableName() string { return "trial_treatments" }
