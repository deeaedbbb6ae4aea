package entities

import "time"

// Trial is a field experiment run by an organization within a project.
// EstablishmentYear is fixed at creation.
type Trial struct {
	ID                string `gorm:"primaryKey;size:64" json:"id"`
	Name              string `gorm:"size:255;not null;uniqueIndex" json:"name"`
	LocationID        string `gorm:"size:64;not null;index" json:"locationId"`
	ManagerID         string `gorm:"size:64;not null;index" json:"managerId"`
	ProjectID         string `gorm:"size:64;not null;index" json:"projectId"`
	AffiliationID     string `gorm:"size:64;not null;index" json:"affiliationId"`
	EstablishmentYear int    `gorm:"not null" json:"establishmentYear"`
	MultiYear         bool   `gorm:"not null;default:false" json:"multiYear"`

	Location    *Location     `gorm:"foreignKey:LocationID;constraint:OnDelete:CASCADE" json:"-"`
	Manager     *Person       `gorm:"foreignKey:ManagerID;constraint:OnDelete:CASCADE" json:"-"`
	Project     *Project      `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	Affiliation *Organization `gorm:"foreignKey:AffiliationID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Trial) TableName() string { return "trials" }

// TrialYear is a season in which a trial is active.
type TrialYear struct {
	ID      string `gorm:"primaryKey;size:64" json:"id"`
	TrialID string `gorm:"size:64;not null;uniqueIndex:idx_trial_year" json:"trialId"`
	Year    int    `gorm:"not null;uniqueIndex:idx_trial_year" json:"year"`

	Trial *Trial `gorm:"foreignKey:TrialID;constraint:OnDelete:CASCADE" json:"-"`
}

func (TrialYear) TableName() string { return "trial_years" }

// TrialAttribute is a free-form key/value pair describing a trial.
type TrialAttribute struct {
	ID      string `gorm:"primaryKey;size:64" json:"id"`
	TrialID string `gorm:"size:64;not null;index" json:"trialId"`
	Key     string `gorm:"column:attr_key;size:255;not null" json:"key"`
	Value   string `gorm:"column:attr_value;type:text;not null" json:"value"`

	Trial *Trial `gorm:"foreignKey:TrialID;constraint:OnDelete:CASCADE" json:"-"`
}

func (TrialAttribute) TableName() string { return "trial_attributes" }

// TrialEvent records a field operation on a trial. Deleting the agronomic
// process clears ProcessID.
type TrialEvent struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	TrialID     string    `gorm:"size:64;not null;index" json:"trialId"`
	EventDate   time.Time `gorm:"not null" json:"eventDate"`
	ProcessID   *string   `gorm:"size:64;index" json:"processId,omitempty"`
	Description string    `gorm:"type:text" json:"description"`

	Trial   *Trial       `gorm:"foreignKey:TrialID;constraint:OnDelete:CASCADE" json:"-"`
	Process *AgroProcess `gorm:"foreignKey:ProcessID;constraint:OnDelete:SET NULL" json:"-"`
}

func (TrialEvent) TableName() string { return "trial_events" }
