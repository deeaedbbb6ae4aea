package repository

import (
	"context"

	"github.com/regenpgc/trialbase/internal/datastore/entities"
)

// OntologyRepository stores the trait ontology, variables, SOP documents and
// agronomic process types.
type OntologyRepository interface {
	CreateTraitEntity(ctx context.Context, e *entities.TraitEntity) error
	CreateTraitAttribute(ctx context.Context, a *entities.TraitAttribute) error
	CreateTrait(ctx context.Context, t *entities.VarTrait) error
	CreateMethod(ctx context.Context, m *entities.VarMethod) error
	CreateScale(ctx context.Context, s *entities.VarScale) error

	CreateVariable(ctx context.Context, v *entities.Variable) error
	GetVariable(ctx context.Context, id string) (*entities.Variable, error)
	GetVariableByLabel(ctx context.Context, label string) (*entities.Variable, error)
	ListVariables(ctx context.Context) ([]entities.Variable, error)

	CreateSop(ctx context.Context, d *entities.SopDocument) error
	// ListSops returns SOP documents ordered by label and version.
	ListSops(ctx context.Context) ([]entities.SopDocument, error)
	CountSops(ctx context.Context) (int64, error)

	CreateAgroProcess(ctx context.Context, p *entities.AgroProcess) error
	GetAgroProcess(ctx context.Context, id string) (*entities.AgroProcess, error)
	GetAgroProcessByLabel(ctx context.Context, label string) (*entities.AgroProcess, error)
}
