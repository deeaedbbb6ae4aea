package repository

import (
	"context"
	"slices"

	"gorm.io/gorm"

	"github.com/regenpgc/trialbase/internal/datastore/entities"
)

// inChunkSize bounds the number of bind variables in one IN clause.
const inChunkSize = 500

// plotRepository implements PlotRepository.
type plotRepository struct {
	db *gorm.DB
}

// NewPlotRepository creates a new PlotRepository.
func NewPlotRepository(db *gorm.DB) PlotRepository {
	return &plotRepository{db: db}
}

func (r *plotRepository) Create(ctx context.Context, p *entities.Plot) error {
	return createRow(ctx, r.db, p, "plot")
}

func (r *plotRepository) Get(ctx context.Context, id string) (*entities.Plot, error) {
	return getRow[entities.Plot](ctx, r.db, id, ErrPlotNotFound, "plot")
}

func (r *plotRepository) GetByLabel(ctx context.Context, trialID, label string) (*entities.Plot, error) {
	return firstRow[entities.Plot](ctx, r.db, ErrPlotNotFound, "plot", "trial_id = ? AND label = ?", trialID, label)
}

func (r *plotRepository) List(ctx context.Context, trialID string, page Page) ([]entities.Plot, int64, error) {
	var scope func(*gorm.DB) *gorm.DB
	if trialID != "" {
		scope = func(q *gorm.DB) *gorm.DB { return q.Where("trial_id = ?", trialID) }
	}
	return listRows[entities.Plot](ctx, r.db, page, "trial_id ASC, label ASC", "plot", scope)
}

func (r *plotRepository) SetParent(ctx context.Context, id string, parentID *string) error {
	result := r.db.WithContext(ctx).Model(&entities.Plot{}).Where("id = ?", id).Update("parent_plot_id", parentID)
	if result.Error != nil {
		return classify(result.Error, "update", "plot")
	}
	if result.RowsAffected == 0 {
		return notFound(ErrPlotNotFound, "plot", id)
	}
	return nil
}

func (r *plotRepository) Children(ctx context.Context, id string) ([]entities.Plot, error) {
	var plots []entities.Plot
	err := r.db.WithContext(ctx).Where("parent_plot_id = ?", id).Order("label ASC").Find(&plots).Error
	return plots, classify(err, "list", "plot")
}

func (r *plotRepository) ChildIDs(ctx context.Context, parentIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(parentIDs))
	for _, id := range parentIDs {
		out[id] = []string{}
	}

	type edge struct {
		ID           string
		ParentPlotID string
	}
	err := forChunks(parentIDs, func(chunk []string) error {
		var edges []edge
		err := r.db.WithContext(ctx).Model(&entities.Plot{}).
			Select("id, parent_plot_id").
			Where("parent_plot_id IN ?", chunk).
			Order("label ASC").
			Scan(&edges).Error
		if err != nil {
			return err
		}
		for _, e := range edges {
			out[e.ParentPlotID] = append(out[e.ParentPlotID], e.ID)
		}
		return nil
	})
	if err != nil {
		return nil, classify(err, "list", "plot")
	}
	return out, nil
}

func (r *plotRepository) Subtree(ctx context.Context, id string) ([]entities.Plot, error) {
	db := r.db.WithContext(ctx)
	root, err := getRow[entities.Plot](ctx, db, id, ErrPlotNotFound, "plot")
	if err != nil {
		return nil, err
	}

	levels, err := subtreeLevels(db, id)
	if err != nil {
		return nil, classify(err, "list", "plot")
	}

	out := []entities.Plot{*root}
	for _, level := range levels[1:] {
		err := forChunks(level, func(chunk []string) error {
			var plots []entities.Plot
			if err := db.Where("id IN ?", chunk).Order("label ASC").Find(&plots).Error; err != nil {
				return err
			}
			out = append(out, plots...)
			return nil
		})
		if err != nil {
			return nil, classify(err, "list", "plot")
		}
	}
	return out, nil
}

func (r *plotRepository) Ancestors(ctx context.Context, id string) ([]entities.Plot, error) {
	db := r.db.WithContext(ctx)
	plot, err := getRow[entities.Plot](ctx, db, id, ErrPlotNotFound, "plot")
	if err != nil {
		return nil, err
	}

	var out []entities.Plot
	seen := map[string]bool{plot.ID: true}
	for !plot.IsRoot() {
		parentID := *plot.ParentPlotID
		if seen[parentID] {
			break
		}
		seen[parentID] = true
		plot, err = getRow[entities.Plot](ctx, db, parentID, ErrPlotNotFound, "plot")
		if err != nil {
			return nil, err
		}
		out = append(out, *plot)
	}
	return out, nil
}

func (r *plotRepository) Roots(ctx context.Context, trialID string) ([]entities.Plot, error) {
	var plots []entities.Plot
	err := r.db.WithContext(ctx).
		Where("trial_id = ? AND parent_plot_id IS NULL", trialID).
		Order("label ASC").
		Find(&plots).Error
	return plots, classify(err, "list", "plot")
}

// DeleteSubtree removes rows children first so the result does not depend on
// the database honouring ON DELETE CASCADE.
func (r *plotRepository) DeleteSubtree(ctx context.Context, id string) (*CascadeReport, error) {
	report := &CascadeReport{RootID: id}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getRow[entities.Plot](ctx, tx, id, ErrPlotNotFound, "plot"); err != nil {
			return err
		}
		return deleteSubtree(tx, id, report)
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// deleteSubtree deletes the plot rootID with its descendants and everything
// recorded on them, adding the counts to report. tx must be a transaction.
func deleteSubtree(tx *gorm.DB, rootID string, report *CascadeReport) error {
	levels, err := subtreeLevels(tx, rootID)
	if err != nil {
		return classify(err, "list", "plot")
	}
	report.Depth = max(report.Depth, len(levels)-1)
	plotIDs := slices.Concat(levels...)

	cropIDs, err := pluckIDs(tx, &entities.PlotCrop{}, "plot_id", plotIDs)
	if err != nil {
		return classify(err, "list", "plot crop")
	}
	obsIDs, err := pluckIDs(tx, &entities.Observation{}, "plot_crop_id", cropIDs)
	if err != nil {
		return classify(err, "list", "observation")
	}
	if err := deleteObservations(tx, obsIDs, report); err != nil {
		return err
	}

	n, err := deleteIn(tx, &entities.PlotTreatment{}, "plot_crop_id", cropIDs)
	if err != nil {
		return classify(err, "delete", "plot treatment")
	}
	report.PlotTreatments += n
	if n, err = deleteIn(tx, &entities.PlotCrop{}, "id", cropIDs); err != nil {
		return classify(err, "delete", "plot crop")
	}
	report.PlotCrops += n

	// Deepest level first so no plot outlives its parent.
	for i := len(levels) - 1; i >= 0; i-- {
		n, err := deleteIn(tx, &entities.Plot{}, "id", levels[i])
		if err != nil {
			return classify(err, "delete", "plot")
		}
		report.Plots += n
	}
	return nil
}

// deleteObservations deletes observations together with their images and the
// operations run on those images. Image rows would otherwise survive with a
// NULL observation, so they are removed explicitly and their storage URLs
// reported for blob cleanup.
func deleteObservations(tx *gorm.DB, obsIDs []string, report *CascadeReport) error {
	var imageIDs []string
	err := forChunks(obsIDs, func(chunk []string) error {
		var images []entities.Image
		if err := tx.Select("id, storage_url").Where("observation_id IN ?", chunk).Find(&images).Error; err != nil {
			return err
		}
		for i := range images {
			imageIDs = append(imageIDs, images[i].ID)
			report.ImageURLs = append(report.ImageURLs, images[i].StorageURL)
		}
		return nil
	})
	if err != nil {
		return classify(err, "list", "image")
	}

	steps := []struct {
		model  any
		column string
		ids    []string
		count  *int64
		entity string
	}{
		{&entities.ImageOperation{}, "image_id", imageIDs, &report.ImageOperations, "image operation"},
		{&entities.Image{}, "id", imageIDs, &report.Images, "image"},
		{&entities.Observation{}, "id", obsIDs, &report.Observations, "observation"},
	}
	for _, step := range steps {
		n, err := deleteIn(tx, step.model, step.column, step.ids)
		if err != nil {
			return classify(err, "delete", step.entity)
		}
		*step.count += n
	}
	return nil
}

func (r *plotRepository) CreateCrop(ctx context.Context, c *entities.PlotCrop) error {
	return createRow(ctx, r.db, c, "plot crop")
}

func (r *plotRepository) GetCrop(ctx context.Context, id string) (*entities.PlotCrop, error) {
	return getRow[entities.PlotCrop](ctx, r.db, id, ErrPlotCropNotFound, "plot crop")
}

func (r *plotRepository) Crops(ctx context.Context, plotID string) ([]entities.PlotCrop, error) {
	var crops []entities.PlotCrop
	err := r.db.WithContext(ctx).Where("plot_id = ?", plotID).Order("plot_year ASC, germplasm_id ASC").Find(&crops).Error
	return crops, classify(err, "list", "plot crop")
}

func (r *plotRepository) AddTreatment(ctx context.Context, t *entities.PlotTreatment) error {
	return createRow(ctx, r.db, t, "plot treatment")
}

func (r *plotRepository) Treatments(ctx context.Context, plotCropID string) ([]entities.PlotTreatment, error) {
	var treatments []entities.PlotTreatment
	err := r.db.WithContext(ctx).Where("plot_crop_id = ?", plotCropID).Order("treatment_id ASC").Find(&treatments).Error
	return treatments, classify(err, "list", "plot treatment")
}

// subtreeLevels walks the forest below rootID one level at a time. Level 0
// holds rootID. Ids already seen are skipped, so a corrupted cycle ends the
// walk instead of looping.
func subtreeLevels(db *gorm.DB, rootID string) ([][]string, error) {
	levels := [][]string{{rootID}}
	seen := map[string]bool{rootID: true}
	frontier := []string{rootID}

	for len(frontier) > 0 {
		var next []string
		err := forChunks(frontier, func(chunk []string) error {
			var ids []string
			if err := db.Model(&entities.Plot{}).Where("parent_plot_id IN ?", chunk).Pluck("id", &ids).Error; err != nil {
				return err
			}
			for _, id := range ids {
				if !seen[id] {
					seen[id] = true
					next = append(next, id)
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		if len(next) > 0 {
			levels = append(levels, next)
		}
		frontier = next
	}
	return levels, nil
}

// pluckIDs returns the ids of model rows whose column is in values.
func pluckIDs(db *gorm.DB, model any, column string, values []string) ([]string, error) {
	var out []string
	err := forChunks(values, func(chunk []string) error {
		var ids []string
		if err := db.Model(model).Where(column+" IN ?", chunk).Pluck("id", &ids).Error; err != nil {
			return err
		}
		out = append(out, ids...)
		return nil
	})
	return out, err
}

// deleteIn deletes model rows whose column is in values and returns how many
// went.
func deleteIn(db *gorm.DB, model any, column string, values []string) (int64, error) {
	var total int64
	err := forChunks(values, func(chunk []string) error {
		result := db.Where(column+" IN ?", chunk).Delete(model)
		if result.Error != nil {
			return result.Error
		}
		total += result.RowsAffected
		return nil
	})
	return total, err
}

// forChunks calls fn with consecutive slices of at most inChunkSize values.
// It does nothing for an empty input.
func forChunks(values []string, fn func([]string) error) error {
	for chunk := range slices.Chunk(values, inChunkSize) {
		if err := fn(chunk); err != nil {
			return err
		}
	}
	return nil
}
