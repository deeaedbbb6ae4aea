package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/regenpgc/trialbase/internal/datastore/entities"
)

// ontologyRepository implements OntologyRepository.
type ontologyRepository struct {
	db *gorm.DB
}

// NewOntologyRepository creates a new OntologyRepository.
func NewOntologyRepository(db *gorm.DB) OntologyRepository {
	return &ontologyRepository{db: db}
}

func (r *ontologyRepository) CreateTraitEntity(ctx context.Context, e *entities.TraitEntity) error {
	return createRow(ctx, r.db, e, "trait entity")
}

func (r *ontologyRepository) CreateTraitAttribute(ctx context.Context, a *entities.TraitAttribute) error {
	return createRow(ctx, r.db, a, "trait attribute")
}

func (r *ontologyRepository) CreateTrait(ctx context.Context, t *entities.VarTrait) error {
	return createRow(ctx, r.db, t, "trait")
}

func (r *ontologyRepository) CreateMethod(ctx context.Context, m *entities.VarMethod) error {
	return createRow(ctx, r.db, m, "method")
}

func (r *ontologyRepository) CreateScale(ctx context.Context, s *entities.VarScale) error {
	return createRow(ctx, r.db, s, "scale")
}

func (r *ontologyRepository) CreateVariable(ctx context.Context, v *entities.Variable) error {
	return createRow(ctx, r.db, v, "variable")
}

func (r *ontologyRepository) GetVariable(ctx context.Context, id string) (*entities.Variable, error) {
	return getRow[entities.Variable](ctx, r.db, id, ErrVariableNotFound, "variable")
}

func (r *ontologyRepository) GetVariableByLabel(ctx context.Context, label string) (*entities.Variable, error) {
	return firstRow[entities.Variable](ctx, r.db, ErrVariableNotFound, "variable", "label = ?", label)
}

func (r *ontologyRepository) ListVariables(ctx context.Context) ([]entities.Variable, error) {
	var vars []entities.Variable
	err := r.db.WithContext(ctx).Order("label ASC").Find(&vars).Error
	return vars, classify(err, "list", "variable")
}

func (r *ontologyRepository) CreateSop(ctx context.Context, d *entities.SopDocument) error {
	return createRow(ctx, r.db, d, "sop document")
}

func (r *ontologyRepository) ListSops(ctx context.Context) ([]entities.SopDocument, error) {
	var docs []entities.SopDocument
	err := r.db.WithContext(ctx).Order("label ASC, version ASC").Find(&docs).Error
	return docs, classify(err, "list", "sop document")
}

func (r *ontologyRepository) CountSops(ctx context.Context) (int64, error) {
	return countRows[entities.SopDocument](ctx, r.db, "sop document")
}

func (r *ontologyRepository) CreateAgroProcess(ctx context.Context, p *entities.AgroProcess) error {
	return createRow(ctx, r.db, p, "agro process")
}

func (r *ontologyRepository) GetAgroProcess(ctx context.Context, id string) (*entities.AgroProcess, error) {
	return getRow[entities.AgroProcess](ctx, r.db, id, ErrAgroProcessNotFound, "agro process")
}

func (r *ontologyRepository) GetAgroProcessByLabel(ctx context.Context, label string) (*entities.AgroProcess, error) {
	return firstRow[entities.AgroProcess](ctx, r.db, ErrAgroProcessNotFound, "agro process", "label = ?", label)
}
