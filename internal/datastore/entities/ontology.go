package entities

// TraitEntity is the "what" of a trait, e.g. leaf or grain.
type TraitEntity struct {
	ID                        string  `gorm:"primaryKey;size:64" json:"id"`
	Label                     string  `gorm:"size:255;not null;uniqueIndex" json:"label"`
	ExternalOntologyReference *string `gorm:"size:512" json:"externalOntologyReference,omitempty"`
}

func (TraitEntity) TableName() string { return "trait_entities" }

// TraitAttribute is the measured property of a trait entity, e.g. moisture.
type TraitAttribute struct {
	ID                        string  `gorm:"primaryKey;size:64" json:"id"`
	Label                     string  `gorm:"size:255;not null;uniqueIndex" json:"label"`
	ExternalOntologyReference *string `gorm:"size:512" json:"externalOntologyReference,omitempty"`
}

func (TraitAttribute) TableName() string { return "trait_attributes" }

// VarTrait combines an entity and an attribute.
type VarTrait struct {
	ID                        string  `gorm:"primaryKey;size:64" json:"id"`
	Label                     string  `gorm:"size:255;not null;uniqueIndex" json:"label"`
	EntityID                  string  `gorm:"size:64;not null;index" json:"entityId"`
	AttributeID               string  `gorm:"size:64;not null;index" json:"attributeId"`
	ExternalOntologyReference *string `gorm:"size:512" json:"externalOntologyReference,omitempty"`

	Entity    *TraitEntity    `gorm:"foreignKey:EntityID;constraint:OnDelete:CASCADE" json:"-"`
	Attribute *TraitAttribute `gorm:"foreignKey:AttributeID;constraint:OnDelete:CASCADE" json:"-"`
}

func (VarTrait) TableName() string { return "var_traits" }

// VarMethod describes how a trait is measured.
type VarMethod struct {
	ID                        string  `gorm:"primaryKey;size:64" json:"id"`
	Label                     string  `gorm:"size:255;not null;uniqueIndex" json:"label"`
	Description               string  `gorm:"type:text" json:"description"`
	ExternalOntologyReference *string `gorm:"size:512" json:"externalOntologyReference,omitempty"`
}

func (VarMethod) TableName() string { return "var_methods" }

// VarScale is the unit or scale a measurement is expressed in.
type VarScale struct {
	ID                        string  `gorm:"primaryKey;size:64" json:"id"`
	Label                     string  `gorm:"size:255;not null;uniqueIndex" json:"label"`
	Description               string  `gorm:"type:text" json:"description"`
	ExternalOntologyReference *string `gorm:"size:512" json:"externalOntologyReference,omitempty"`
}

func (VarScale) TableName() string { return "var_scales" }

// Variable is an observable quantity: trait, method and scale with optional
// inclusive bounds. Observations reference it by Label.
type Variable struct {
	ID           string       `gorm:"primaryKey;size:64" json:"id"`
	Label        string       `gorm:"size:255;not null;uniqueIndex" json:"label"`
	Abbreviation string       `gorm:"size:64;not null;uniqueIndex" json:"abbreviation"`
	TraitID      string       `gorm:"size:64;not null;index" json:"traitId"`
	MethodID     string       `gorm:"size:64;not null;index" json:"methodId"`
	ScaleID      string       `gorm:"size:64;not null;index" json:"scaleId"`
	MinValue     *float64     `json:"minValue,omitempty"`
	MaxValue     *float64     `json:"maxValue,omitempty"`
	Type         VariableType `gorm:"size:16;not null" json:"type"`

	Trait  *VarTrait  `gorm:"foreignKey:TraitID;constraint:OnDelete:CASCADE" json:"-"`
	Method *VarMethod `gorm:"foreignKey:MethodID;constraint:OnDelete:CASCADE" json:"-"`
	Scale  *VarScale  `gorm:"foreignKey:ScaleID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Variable) TableName() string { return "variables" }

// Bounded reports whether either bound is set.
func (v *Variable) Bounded() bool { return v.MinValue != nil || v.MaxValue != nil }

// SopDocument is a standard operating procedure, optionally tied to the
// variable it measures. Deleting the variable clears VariableID.
type SopDocument struct {
	ID           string  `gorm:"primaryKey;size:64" json:"id"`
	DocumentName string  `gorm:"size:255;not null" json:"documentName"`
	Label        string  `gorm:"size:255;not null;index" json:"label"`
	Version      string  `gorm:"size:32" json:"version"`
	DOI          string  `gorm:"column:doi;size:255" json:"doi"`
	DocURL       string  `gorm:"size:512" json:"docUrl"`
	Description  string  `gorm:"type:text" json:"description"`
	VariableID   *string `gorm:"size:64;index" json:"variableId,omitempty"`

	Variable *Variable `gorm:"foreignKey:VariableID;constraint:OnDelete:SET NULL" json:"-"`
}

func (SopDocument) TableName() string { return "sop_documents" }

// AgroProcess is an agronomic operation type such as tillage or harvest.
type AgroProcess struct {
	ID                string `gorm:"primaryKey;size:64" json:"id"`
	Label             string `gorm:"size:255;not null;uniqueIndex" json:"label"`
	Description       string `gorm:"type:text" json:"description"`
	ExternalID        string `gorm:"size:128" json:"externalId"`
	ExternalReference string `gorm:"size:512" json:"externalReference"`
}

func (AgroProcess) TableName() string { return "agro_processes" }
