package repository

import (
	"context"

	"github.com/regenpgc/trialbase/internal/datastore/entities"
)

// GermplasmRepository stores germplasm entries, their aliases and common
// names.
type GermplasmRepository interface {
	Create(ctx context.Context, g *entities.Germplasm) error
	Get(ctx context.Context, id string) (*entities.Germplasm, error)
	GetByName(ctx context.Context, name string) (*entities.Germplasm, error)
	List(ctx context.Context) ([]entities.Germplasm, error)

	AddAlias(ctx context.Context, a *entities.GermplasmAlias) error
	Aliases(ctx context.Context, germplasmID string) ([]entities.GermplasmAlias, error)

	// GetOrCreateCommonName returns the common name row for name, creating
	// it when missing. Concurrent callers receive the same row.
	GetOrCreateCommonName(ctx context.Context, name string) (*entities.CommonName, error)
	ListCommonNames(ctx context.Context) ([]entities.CommonName, error)
}
