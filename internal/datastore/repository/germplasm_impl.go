package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/regenpgc/trialbase/internal/datastore/entities"
	"github.com/regenpgc/trialbase/internal/errors"
)

// germplasmRepository implements GermplasmRepository.
type germplasmRepository struct {
	db *gorm.DB
}

// NewGermplasmRepository creates a new GermplasmRepository.
func NewGermplasmRepository(db *gorm.DB) GermplasmRepository {
	return &germplasmRepository{db: db}
}

func (r *germplasmRepository) Create(ctx context.Context, g *entities.Germplasm) error {
	return createRow(ctx, r.db, g, "germplasm")
}

func (r *germplasmRepository) Get(ctx context.Context, id string) (*entities.Germplasm, error) {
	return getRow[entities.Germplasm](ctx, r.db, id, ErrGermplasmNotFound, "germplasm")
}

func (r *germplasmRepository) GetByName(ctx context.Context, name string) (*entities.Germplasm, error) {
	return firstRow[entities.Germplasm](ctx, r.db, ErrGermplasmNotFound, "germplasm", "name = ?", name)
}

func (r *germplasmRepository) List(ctx context.Context) ([]entities.Germplasm, error) {
	var germplasm []entities.Germplasm
	err := r.db.WithContext(ctx).Order("name ASC").Find(&germplasm).Error
	return germplasm, classify(err, "list", "germplasm")
}

func (r *germplasmRepository) AddAlias(ctx context.Context, a *entities.GermplasmAlias) error {
	return createRow(ctx, r.db, a, "germplasm alias")
}

func (r *germplasmRepository) Aliases(ctx context.Context, germplasmID string) ([]entities.GermplasmAlias, error) {
	var aliases []entities.GermplasmAlias
	err := r.db.WithContext(ctx).Where("germplasm_id = ?", germplasmID).Order("alias ASC").Find(&aliases).Error
	return aliases, classify(err, "list", "germplasm alias")
}

func (r *germplasmRepository) GetOrCreateCommonName(ctx context.Context, name string) (*entities.CommonName, error) {
	var cn entities.CommonName
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&cn).Error
	if err == nil {
		return &cn, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, classify(err, "get", "common name")
	}

	cn = entities.CommonName{Name: name}
	createErr := r.db.WithContext(ctx).Create(&cn).Error
	if createErr != nil {
		// Another writer may have inserted the same name first.
		var existing entities.CommonName
		if findErr := r.db.WithContext(ctx).Where("name = ?", name).First(&existing).Error; findErr != nil {
			return nil, classify(createErr, "create", "common name")
		}
		return &existing, nil
	}
	return &cn, nil
}

func (r *germplasmRepository) ListCommonNames(ctx context.Context) ([]entities.CommonName, error) {
	var names []entities.CommonName
	err := r.db.WithContext(ctx).Order("name ASC").Find(&names).Error
	return names, classify(err, "list", "common name")
}
