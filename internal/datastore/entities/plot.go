package entities

// Plot is a rectangular experimental unit. Plots form a forest through
// ParentPlotID: a main plot holds split plots, which hold split split plots.
// A parent always belongs to the same trial and has a shallower Type.
type Plot struct {
	ID           string   `gorm:"primaryKey;size:64" json:"id"`
	Label        string   `gorm:"size:128;not null;uniqueIndex:idx_plot_trial_label" json:"label"`
	Type         PlotType `gorm:"size:32;not null" json:"type"`
	Block        *string  `gorm:"size:64" json:"block,omitempty"`
	Row          *int     `gorm:"column:plot_row" json:"row,omitempty"`
	Column       *int     `gorm:"column:plot_column" json:"column,omitempty"`
	WidthM       float64  `gorm:"column:width_m;not null" json:"widthM"`
	LengthM      float64  `gorm:"column:length_m;not null" json:"lengthM"`
	ParentPlotID *string  `gorm:"size:64;index" json:"parentPlotId,omitempty"`
	TrialID      string   `gorm:"size:64;not null;uniqueIndex:idx_plot_trial_label;index" json:"trialId"`
	LocationID   *string  `gorm:"size:64;index" json:"locationId,omitempty"`

	ParentPlot *Plot     `gorm:"foreignKey:ParentPlotID;constraint:OnDelete:CASCADE" json:"-"`
	Trial      *Trial    `gorm:"foreignKey:TrialID;constraint:OnDelete:CASCADE" json:"-"`
	Location   *Location `gorm:"foreignKey:LocationID;constraint:OnDelete:SET NULL" json:"-"`
}

func (Plot) TableName() string { return "plots" }

// IsRoot reports whether the plot has no parent.
func (p *Plot) IsRoot() bool { return p.ParentPlotID == nil || *p.ParentPlotID == "" }

// PlotCrop is a germplasm grown in a plot in a given year.
type PlotCrop struct {
	ID          string `gorm:"primaryKey;size:64" json:"id"`
	PlotID      string `gorm:"size:64;not null;uniqueIndex:idx_plot_crop" json:"plotId"`
	GermplasmID string `gorm:"size:64;not null;uniqueIndex:idx_plot_crop;index" json:"germplasmId"`
	PlotYear    int    `gorm:"not null;uniqueIndex:idx_plot_crop" json:"plotYear"`

	Plot      *Plot      `gorm:"foreignKey:PlotID;constraint:OnDelete:CASCADE" json:"-"`
	Germplasm *Germplasm `gorm:"foreignKey:GermplasmID;constraint:OnDelete:CASCADE" json:"-"`
}

func (PlotCrop) TableName() string { return "plot_crops" }

// PlotTreatment applies a treatment level to a plot crop. TreatmentID copies
// the level's treatment so the database rejects a second level of the same
// treatment on one plot crop.
type PlotTreatment struct {
	ID               string `gorm:"primaryKey;size:64" json:"id"`
	PlotCropID       string `gorm:"size:64;not null;uniqueIndex:idx_plot_treatment_level;uniqueIndex:idx_plot_treatment_factor" json:"plotCropId"`
	TreatmentLevelID string `gorm:"size:64;not null;uniqueIndex:idx_plot_treatment_level;index" json:"treatmentLevelId"`
	TreatmentID      string `gorm:"size:64;not null;uniqueIndex:idx_plot_treatment_factor" json:"treatmentId"`

	PlotCrop       *PlotCrop       `gorm:"foreignKey:PlotCropID;constraint:OnDelete:CASCADE" json:"-"`
	TreatmentLevel *TreatmentLevel `gorm:"foreignKey:TreatmentLevelID;constraint:OnDelete:CASCADE" json:"-"`
}

func (PlotTreatment) TableName() string { return "plot_treatments" }
