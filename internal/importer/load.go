package importer

import (
	"cmp"
	"context"
	"slices"

	"github.com/regenpgc/trialbase/internal/datastore/entities"
	"github.com/regenpgc/trialbase/internal/datastore/repository"
	"github.com/regenpgc/trialbase/internal/errors"
	"github.com/regenpgc/trialbase/internal/fieldtrial"
)

// SortPlots orders rows so every parent precedes its children: by the
// number of ancestors listed in the same file, then by file line. A parent
// label not in the file counts as a root that already exists.
func SortPlots(rows []PlotRow) {
	parents := make(map[string]string, len(rows))
	for _, row := range rows {
		parents[row.Label] = row.ParentLabel
	}
	depth := make(map[string]int, len(rows))
	for _, row := range rows {
		d := 0
		// Bounded by len(rows) so a cycle in the file cannot loop forever.
		for label := row.ParentLabel; label != "" && d < len(rows); d++ {
			next, ok := parents[label]
			if !ok {
				break
			}
			label = next
		}
		depth[row.Label] = d
	}

	slices.SortStableFunc(rows, func(a, b PlotRow) int {
		return cmp.Or(cmp.Compare(depth[a.Label], depth[b.Label]), cmp.Compare(a.Line, b.Line))
	})
}

// ImportPlots creates rows as plots of trialID in one transaction. Parent
// labels resolve against plots already in the trial and rows created
// earlier in the same import. Any failure rolls the whole import back and
// is reported with its line.
func ImportPlots(ctx context.Context, svc *fieldtrial.Service, trialID string, rows []PlotRow) (int, error) {
	rows = slices.Clone(rows)
	SortPlots(rows)

	created := 0
	err := svc.Transaction(ctx, func(tx *fieldtrial.Service) error {
		created = 0
		plots := repository.NewPlotRepository(tx.DB())
		byLabel := make(map[string]string, len(rows))

		for _, row := range rows {
			p := &entities.Plot{
				TrialID: trialID,
				Label:   row.Label,
				Type:    row.Type,
				WidthM:  row.WidthM,
				LengthM: row.LengthM,
			}
			if row.Block != "" {
				p.Block = &row.Block
			}
			if row.ParentLabel != "" {
				parentID, ok := byLabel[row.ParentLabel]
				if !ok {
					parent, err := plots.GetByLabel(ctx, trialID, row.ParentLabel)
					if err != nil {
						if errors.IsNotFound(err) {
							return rowError(row.Line, "parent_plot_id", errors.Newf("no plot labelled %q in trial", row.ParentLabel).Build())
						}
						return err
					}
					parentID = parent.ID
				}
				p.ParentPlotID = &parentID
			}

			if err := tx.CreatePlot(ctx, p); err != nil {
				return rowError(row.Line, columnFor(errors.FieldOf(err)), err)
			}
			byLabel[p.Label] = p.ID
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// ImportSOPs creates SOP documents in one transaction. A document whose
// label and version already exist is skipped.
func ImportSOPs(ctx context.Context, svc *fieldtrial.Service, rows []SOPRow) (created, skipped int, err error) {
	err = svc.Transaction(ctx, func(tx *fieldtrial.Service) error {
		created, skipped = 0, 0
		existing, err := repository.NewOntologyRepository(tx.DB()).ListSops(ctx)
		if err != nil {
			return err
		}
		have := make(map[[2]string]bool, len(existing))
		for _, d := range existing {
			have[[2]string{d.Label, d.Version}] = true
		}

		for _, row := range rows {
			key := [2]string{row.Label, row.Version}
			if have[key] {
				skipped++
				continue
			}
			doc := &entities.SopDocument{
				DocumentName: row.DocumentName,
				Label:        row.Label,
				Version:      row.Version,
				DOI:          row.DOI,
				DocURL:       row.DocURL,
				Description:  row.Description,
			}
			if err := tx.CreateSop(ctx, doc); err != nil {
				return rowError(row.Line, columnFor(errors.FieldOf(err)), err)
			}
			have[key] = true
			created++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return created, skipped, nil
}

// columnFor maps a service field name to the file column it came from.
func columnFor(field string) string {
	switch field {
	case "label":
		return "label"
	case "type":
		return "type"
	case "widthM":
		return "width_m"
	case "lengthM":
		return "length_m"
	case "parentPlotId":
		return "parent_plot_id"
	case "documentName":
		return "document_name"
	default:
		return field
	}
}
