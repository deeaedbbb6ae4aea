package entities

// CommonName is the vernacular name shared by germplasm entries.
type CommonName struct {
	ID   string `gorm:"primaryKey;size:64" json:"id"`
	Name string `gorm:"size:255;not null;uniqueIndex" json:"name"`
}

func (CommonName) TableName() string { return "common_names" }

// DefaultSpecies is stored when a germplasm species is not known.
const DefaultSpecies = "spp."

// Germplasm is a cultivar or accession planted in plots. Deleting the
// common name clears CommonNameID.
type Germplasm struct {
	ID           string        `gorm:"primaryKey;size:64" json:"id"`
	Name         string        `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Type         GermplasmType `gorm:"size:8;not null" json:"type"`
	CommonNameID *string       `gorm:"size:64;index" json:"commonNameId,omitempty"`
	Genus        string        `gorm:"size:128" json:"genus"`
	Species      string        `gorm:"size:128;not null;default:spp." json:"species"`

	CommonName *CommonName `gorm:"foreignKey:CommonNameID;constraint:OnDelete:SET NULL" json:"-"`
}

func (Germplasm) TableName() string { return "germplasm" }

// GermplasmAlias is an alternative name of a germplasm entry.
type GermplasmAlias struct {
	ID          string `gorm:"primaryKey;size:64" json:"id"`
	GermplasmID string `gorm:"size:64;not null;uniqueIndex:idx_germplasm_alias" json:"germplasmId"`
	Alias       string `gorm:"size:255;not null;uniqueIndex:idx_germplasm_alias" json:"alias"`

	Germplasm *Germplasm `gorm:"foreignKey:GermplasmID;constraint:OnDelete:CASCADE" json:"-"`
}

func (GermplasmAlias) TableName() string { return "germplasm_aliases" }
