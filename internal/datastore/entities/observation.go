package entities

import "time"

// Observation is one recorded value of a variable on a plot crop. Value is
// stored as text; bounded variables only accept numbers within bounds.
type Observation struct {
	ID            string    `gorm:"primaryKey;size:64" json:"id"`
	DateTime      time.Time `gorm:"not null;index" json:"dateTime"`
	ObserverID    string    `gorm:"size:64;not null;index" json:"observerId"`
	PlotCropID    string    `gorm:"size:64;not null;index" json:"plotCropId"`
	VariableLabel string    `gorm:"size:255;not null;index" json:"variable"`
	Value         string    `gorm:"size:255;not null" json:"value"`

	Observer *Person   `gorm:"foreignKey:ObserverID;constraint:OnDelete:CASCADE" json:"-"`
	PlotCrop *PlotCrop `gorm:"foreignKey:PlotCropID;constraint:OnDelete:CASCADE" json:"-"`
	Variable *Variable `gorm:"foreignKey:VariableLabel;references:Label;constraint:OnDelete:CASCADE" json:"-"`
}

func (Observation) TableName() string { return "observations" }

// AwsModel is a hosted image analysis model.
type AwsModel struct {
	ID          string `gorm:"primaryKey;size:64" json:"id"`
	Name        string `gorm:"size:255;not null;uniqueIndex:idx_aws_model" json:"name"`
	Version     string `gorm:"size:64;not null;uniqueIndex:idx_aws_model" json:"version"`
	Description string `gorm:"type:text" json:"description"`
	EndpointURL string `gorm:"size:512" json:"endpointUrl"`
}

func (AwsModel) TableName() string { return "aws_models" }

// Image is a photograph stored in the blob store. Deleting its observation
// clears ObservationID.
type Image struct {
	ID               string    `gorm:"primaryKey;size:64" json:"id"`
	Filename         string    `gorm:"size:255;not null" json:"filename"`
	Height           int       `gorm:"not null" json:"height"`
	Width            int       `gorm:"not null" json:"width"`
	CreationDateTime time.Time `gorm:"not null" json:"creationDateTime"`
	StorageURL       string    `gorm:"size:1024;not null" json:"storageUrl"`
	ObservationID    *string   `gorm:"size:64;index" json:"observationId,omitempty"`

	Observation *Observation `gorm:"foreignKey:ObservationID;constraint:OnDelete:SET NULL" json:"-"`
}

func (Image) TableName() string { return "images" }

// ImageOperation is one run of a model over an image.
type ImageOperation struct {
	ID       string          `gorm:"primaryKey;size:64" json:"id"`
	ImageID  string          `gorm:"size:64;not null;index" json:"imageId"`
	ModelID  string          `gorm:"size:64;not null;index" json:"modelId"`
	DateTime time.Time       `gorm:"not null" json:"dateTime"`
	Status   OperationStatus `gorm:"size:16;not null;index" json:"status"`

	Image *Image    `gorm:"foreignKey:ImageID;constraint:OnDelete:CASCADE" json:"-"`
	Model *AwsModel `gorm:"foreignKey:ModelID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ImageOperation) TableName() string { return "image_operations" }
