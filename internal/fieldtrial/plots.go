package fieldtrial

import (
	"context"
	"slices"

	"github.com/regenpgc/trialbase/internal/datastore/entities"
	"github.com/regenpgc/trialbase/internal/datastore/repository"
	"github.com/regenpgc/trialbase/internal/logger"
	"github.com/regenpgc/trialbase/internal/notify"
)

// PlotNode is a plot with the ids of its direct children.
type PlotNode struct {
	entities.Plot
	Children []string `json:"children"`
}

// CreatePlot validates and stores a plot. A parent must exist in the same
// trial and have a shallower plot type. A repeated label within the trial
// is a conflict.
func (s *Service) CreatePlot(ctx context.Context, p *entities.Plot) error {
	if err := ValidatePlot(p); err != nil {
		return s.finish("create_plot", err)
	}
	if p.IsRoot() {
		p.ParentPlotID = nil
	}

	err := s.inTx(ctx, func(r repos) error {
		if _, err := r.trials.Get(ctx, p.TrialID); err != nil {
			return reference(err, "trialId")
		}
		if p.LocationID != nil {
			loc, err := r.reference.GetLocation(ctx, *p.LocationID)
			if err != nil {
				return reference(err, "locationId")
			}
			if loc.Type != entities.LocationTypePlot {
				return invalid("locationId", RuleReference, "location %s is a %s location, not a plot location", loc.Name, loc.Type)
			}
		}
		if p.ParentPlotID != nil {
			parent, err := r.plots.Get(ctx, *p.ParentPlotID)
			if err != nil {
				return reference(err, "parentPlotId")
			}
			if err := ValidatePlotParent(parent, p); err != nil {
				return err
			}
		}
		return r.plots.Create(ctx, p)
	})
	return s.finish("create_plot", err)
}

// GetPlot returns one plot with its child ids.
func (s *Service) GetPlot(ctx context.Context, id string) (*PlotNode, error) {
	r := s.repos()
	p, err := r.plots.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	children, err := r.plots.ChildIDs(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	return &PlotNode{Plot: *p, Children: nonNil(children[id])}, nil
}

// ListPlots returns one page of plots, optionally of one trial, each with
// its child ids.
func (s *Service) ListPlots(ctx context.Context, trialID string, page repository.Page) ([]PlotNode, int64, error) {
	r := s.repos()
	plots, total, err := r.plots.List(ctx, trialID, page)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]string, len(plots))
	for i := range plots {
		ids[i] = plots[i].ID
	}
	children, err := r.plots.ChildIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	nodes := make([]PlotNode, len(plots))
	for i := range plots {
		nodes[i] = PlotNode{Plot: plots[i], Children: nonNil(children[plots[i].ID])}
	}
	return nodes, total, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// Children returns the direct children of an existing plot.
func (s *Service) Children(ctx context.Context, id string) ([]entities.Plot, error) {
	r := s.repos()
	if _, err := r.plots.Get(ctx, id); err != nil {
		return nil, err
	}
	return r.plots.Children(ctx, id)
}

// Subtree returns a plot and all its descendants, breadth first.
func (s *Service) Subtree(ctx context.Context, id string) ([]entities.Plot, error) {
	return s.repos().plots.Subtree(ctx, id)
}

// Ancestors returns the parent chain of a plot, nearest first.
func (s *Service) Ancestors(ctx context.Context, id string) ([]entities.Plot, error) {
	return s.repos().plots.Ancestors(ctx, id)
}

// DeletePlot deletes a plot with all descendants and everything recorded on
// them. The returned report lists the storage URLs of deleted images; their
// blobs are not removed here.
func (s *Service) DeletePlot(ctx context.Context, id string) (*repository.CascadeReport, error) {
	report, err := s.repos().plots.DeleteSubtree(ctx, id)
	if err != nil {
		return nil, s.finish("delete_plot", err)
	}
	s.metrics.RecordCascadeDelete(report.Plots, report.Observations, report.Images)
	s.log.Info("plot subtree deleted",
		logger.String("plot_id", id),
		logger.Int64("plots", report.Plots),
		logger.Int64("observations", report.Observations),
		logger.Int64("images", report.Images))
	s.publish(ctx, notify.TopicPlotDeleted, report)
	return report, s.finish("delete_plot", nil)
}

// MovePlot re-parents a plot within its trial. A nil parent makes the plot a
// root. A plot cannot be moved under itself or one of its descendants.
func (s *Service) MovePlot(ctx context.Context, id string, parentID *string) error {
	if parentID != nil && *parentID == "" {
		parentID = nil
	}
	err := s.inTx(ctx, func(r repos) error {
		p, err := r.plots.Get(ctx, id)
		if err != nil {
			return err
		}
		if parentID != nil {
			if *parentID == id {
				return invalid("parentPlotId", RulePlotCycle, "plot %s cannot be its own parent", p.Label)
			}
			parent, err := r.plots.Get(ctx, *parentID)
			if err != nil {
				return reference(err, "parentPlotId")
			}
			if err := ValidatePlotParent(parent, p); err != nil {
				return err
			}
			ancestors, err := r.plots.Ancestors(ctx, parent.ID)
			if err != nil {
				return err
			}
			if slices.ContainsFunc(ancestors, func(a entities.Plot) bool { return a.ID == id }) {
				return invalid("parentPlotId", RulePlotCycle, "plot %s cannot be moved under its descendant %s", p.Label, parent.Label)
			}
		}
		return r.plots.SetParent(ctx, id, parentID)
	})
	return s.finish("move_plot", err)
}

// CreatePlotCrop plants germplasm in a plot for a season. The season may not
// predate the plot's trial.
func (s *Service) CreatePlotCrop(ctx context.Context, plotID, germplasmID string, year int) (*entities.PlotCrop, error) {
	crop := &entities.PlotCrop{PlotID: plotID, GermplasmID: germplasmID, PlotYear: year}
	err := s.inTx(ctx, func(r repos) error {
		plot, err := r.plots.Get(ctx, plotID)
		if err != nil {
			return reference(err, "plotId")
		}
		trial, err := r.trials.Get(ctx, plot.TrialID)
		if err != nil {
			return err
		}
		if err := ValidatePlotYear(trial, year); err != nil {
			return err
		}
		if _, err := r.germplasm.Get(ctx, germplasmID); err != nil {
			return reference(err, "germplasmId")
		}
		return r.plots.CreateCrop(ctx, crop)
	})
	if err != nil {
		return nil, s.finish("create_plot_crop", err)
	}
	return crop, s.finish("create_plot_crop", nil)
}

// AssignTreatment applies a treatment level to a plot crop. The level's
// treatment must be assigned to the plot's trial, and a plot crop holds at
// most one level of each treatment.
func (s *Service) AssignTreatment(ctx context.Context, plotCropID, treatmentLevelID string) (*entities.PlotTreatment, error) {
	var pt *entities.PlotTreatment
	err := s.inTx(ctx, func(r repos) error {
		crop, err := r.plots.GetCrop(ctx, plotCropID)
		if err != nil {
			return reference(err, "plotCropId")
		}
		plot, err := r.plots.Get(ctx, crop.PlotID)
		if err != nil {
			return err
		}
		level, err := r.treatments.GetLevel(ctx, treatmentLevelID)
		if err != nil {
			return reference(err, "treatmentLevelId")
		}
		assigned, err := r.trials.HasTreatment(ctx, plot.TrialID, level.TreatmentID)
		if err != nil {
			return err
		}
		if !assigned {
			return invalid("treatmentLevelId", RuleTreatmentAssignment,
				"treatment of level %s is not assigned to the trial of plot %s", level.Level, plot.Label)
		}
		pt = &entities.PlotTreatment{
			PlotCropID:       crop.ID,
			TreatmentLevelID: level.ID,
			TreatmentID:      level.TreatmentID,
		}
		return r.plots.AddTreatment(ctx, pt)
	})
	if err != nil {
		return nil, s.finish("assign_plot_treatment", err)
	}
	return pt, s.finish("assign_plot_treatment", nil)
}
