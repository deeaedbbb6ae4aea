package repository

import (
	"context"

	"github.com/regenpgc/trialbase/internal/datastore/entities"
)

// CascadeReport counts the rows removed by a cascade deletion rooted at a
// plot or a person.
type CascadeReport struct {
	RootID          string   `json:"rootId"`
	Trials          int64    `json:"trials,omitempty"`
	Plots           int64    `json:"plots"`
	PlotCrops       int64    `json:"plotCrops"`
	PlotTreatments  int64    `json:"plotTreatments"`
	Observations    int64    `json:"observations"`
	Images          int64    `json:"images"`
	ImageOperations int64    `json:"imageOperations"`
	ImageURLs       []string `json:"-"` // storage URLs of removed images
	Depth           int      `json:"depth"`
}

// PlotRepository stores the plot forest of each trial together with the
// crops grown in plots and the treatment levels applied to them.
type PlotRepository interface {
	Create(ctx context.Context, p *entities.Plot) error
	Get(ctx context.Context, id string) (*entities.Plot, error)
	GetByLabel(ctx context.Context, trialID, label string) (*entities.Plot, error)
	// List returns one page of plots, restricted to trialID when it is not
	// empty, ordered by trial and label.
	List(ctx context.Context, trialID string, page Page) ([]entities.Plot, int64, error)
	// SetParent re-parents a plot; nil makes it a root.
	SetParent(ctx context.Context, id string, parentID *string) error

	// Children returns the direct children of a plot ordered by label.
	Children(ctx context.Context, id string) ([]entities.Plot, error)
	// ChildIDs maps each of parentIDs to the ids of its direct children.
	ChildIDs(ctx context.Context, parentIDs []string) (map[string][]string, error)
	// Subtree returns the plot and all its descendants, breadth first.
	Subtree(ctx context.Context, id string) ([]entities.Plot, error)
	// Ancestors returns the parent chain of a plot, nearest first.
	Ancestors(ctx context.Context, id string) ([]entities.Plot, error)
	// Roots returns the plots of a trial without a parent.
	Roots(ctx context.Context, trialID string) ([]entities.Plot, error)
	// DeleteSubtree deletes a plot, its descendants and everything recorded
	// on them in one transaction.
	DeleteSubtree(ctx context.Context, id string) (*CascadeReport, error)

	CreateCrop(ctx context.Context, c *entities.PlotCrop) error
	GetCrop(ctx context.Context, id string) (*entities.PlotCrop, error)
	Crops(ctx context.Context, plotID string) ([]entities.PlotCrop, error)

	AddTreatment(ctx context.Context, t *entities.PlotTreatment) error
	Treatments(ctx context.Context, plotCropID string) ([]entities.PlotTreatment, error)
}
