package entities

// State is a US state. The 50 states are seeded.
type State struct {
	ID           string `gorm:"primaryKey;size:64" json:"id"`
	Name         string `gorm:"size:64;not null;uniqueIndex" json:"name"`
	Abbreviation string `gorm:"size:8;not null;uniqueIndex" json:"abbreviation"`
}

func (State) TableName() string { return "states" }

// Address is a postal address of an organization.
type Address struct {
	ID                  string  `gorm:"primaryKey;size:64" json:"id"`
	Name                string  `gorm:"size:255;not null;uniqueIndex" json:"name"`
	AddressLine1        string  `gorm:"size:255;not null" json:"addressLine1"`
	AddressLine2        *string `gorm:"size:255" json:"addressLine2,omitempty"`
	BuildingName        *string `gorm:"size:255" json:"buildingName,omitempty"`
	BuildingSuiteNumber *string `gorm:"size:64" json:"buildingSuiteNumber,omitempty"`
	City                string  `gorm:"size:128;not null" json:"city"`
	StateID             string  `gorm:"size:64;not null;index" json:"stateId"`
	PostalCode          string  `gorm:"size:10;not null" json:"postalCode"`

	State *State `gorm:"foreignKey:StateID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Address) TableName() string { return "addresses" }

// Organization is a research institution. Its abbreviation prefixes the
// names of generated trials.
type Organization struct {
	ID           string  `gorm:"primaryKey;size:64" json:"id"`
	Name         string  `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Abbreviation string  `gorm:"size:32;not null;uniqueIndex" json:"abbreviation"`
	AddressID    string  `gorm:"size:64;not null;index" json:"addressId"`
	RorID        string  `gorm:"column:ror_id;size:64;not null;uniqueIndex" json:"rorId"`
	LogoURL      *string `gorm:"size:512" json:"logoUrl,omitempty"`

	Address *Address `gorm:"foreignKey:AddressID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Organization) TableName() string { return "organizations" }

// Person is a researcher affiliated with an organization.
type Person struct {
	ID            string  `gorm:"primaryKey;size:64" json:"id"`
	FirstName     string  `gorm:"size:128;not null" json:"firstName"`
	LastName      string  `gorm:"size:128;not null" json:"lastName"`
	MiddleInitial string  `gorm:"size:1" json:"middleInitial"`
	AffiliationID string  `gorm:"size:64;not null;index" json:"affiliationId"`
	Orcid         *string `gorm:"size:19" json:"orcid,omitempty"`
	Email         *string `gorm:"size:255;uniqueIndex" json:"email,omitempty"`
	PhoneNumber   *string `gorm:"size:32" json:"phoneNumber,omitempty"`

	Affiliation *Organization `gorm:"foreignKey:AffiliationID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Person) TableName() string { return "people" }

// Location is a named coordinate for a trial, a plot or anything else.
type Location struct {
	ID        string       `gorm:"primaryKey;size:64" json:"id"`
	Name      string       `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Latitude  float64      `gorm:"not null" json:"latitude"`
	Longitude float64      `gorm:"not null" json:"longitude"`
	Type      LocationType `gorm:"size:16;not null;index" json:"type"`
}

func (Location) TableName() string { return "locations" }

// Attribute is a descriptor that can be attached to a trial, project or
// germplasm.
type Attribute struct {
	ID           string          `gorm:"primaryKey;size:64" json:"id"`
	Label        string          `gorm:"size:255;not null" json:"label"`
	Abbreviation string          `gorm:"size:64" json:"abbreviation"`
	Description  string          `gorm:"type:text" json:"description"`
	Domain       AttributeDomain `gorm:"size:16;not null;index" json:"domain"`
}

func (Attribute) TableName() string { return "attributes" }

// Project is a funded research program grouping trials.
type Project struct {
	ID          string  `gorm:"primaryKey;size:64" json:"id"`
	Name        string  `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Description string  `gorm:"type:text" json:"description"`
	Funding     string  `gorm:"size:255" json:"funding"`
	Website     *string `gorm:"size:512" json:"website,omitempty"`
}

func (Project) TableName() string { return "projects" }
