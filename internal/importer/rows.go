package importer

import (
	"io"
	"os"
	"strconv"

	"github.com/regenpgc/trialbase/internal/datastore/entities"
	"github.com/regenpgc/trialbase/internal/errors"
)

// Plot list and SOP list columns.
var (
	PlotColumns = []string{"block", "label", "type", "width_m", "length_m", "parent_plot_id"}
	SOPColumns  = []string{"document_name", "label", "version", "doi", "doc_url", "description"}
)

// PlotRow is one line of a plot list. ParentLabel names the parent plot
// within the same trial; it is empty for main plots.
type PlotRow struct {
	Line        int
	Block       string
	Label       string
	Type        entities.PlotType
	WidthM      float64
	LengthM     float64
	ParentLabel string
}

// SOPRow is one line of a SOP document list.
type SOPRow struct {
	Line         int
	DocumentName string
	Label        string
	Version      string
	DOI          string
	DocURL       string
	Description  string
}

// ReadPlots parses a plot list. Blank lines are skipped. Every malformed
// cell is reported, joined into one error.
func ReadPlots(r io.Reader, format Format) ([]PlotRow, error) {
	t, err := readTable(r, format)
	if err != nil {
		return nil, err
	}
	if err := t.require("label", "type", "width_m", "length_m"); err != nil {
		return nil, err
	}

	var (
		out  []PlotRow
		errs []error
	)
	for i, row := range t.rows {
		if blank(row) {
			continue
		}
		line := t.lines[i]
		pr := PlotRow{
			Line:        line,
			Block:       t.get(row, "block"),
			Label:       t.get(row, "label"),
			ParentLabel: t.get(row, "parent_plot_id"),
		}
		if pr.Label == "" {
			errs = append(errs, rowError(line, "label", errors.NewStd("label is required")))
		}
		pt, err := entities.ParsePlotType(t.get(row, "type"))
		if err != nil {
			errs = append(errs, rowError(line, "type", err))
		}
		pr.Type = pt
		if pr.WidthM, err = parseFloat(t.get(row, "width_m")); err != nil {
			errs = append(errs, rowError(line, "width_m", err))
		}
		if pr.LengthM, err = parseFloat(t.get(row, "length_m")); err != nil {
			errs = append(errs, rowError(line, "length_m", err))
		}
		out = append(out, pr)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// ReadSOPs parses a SOP document list.
func ReadSOPs(r io.Reader, format Format) ([]SOPRow, error) {
	t, err := readTable(r, format)
	if err != nil {
		return nil, err
	}
	if err := t.require("document_name", "label"); err != nil {
		return nil, err
	}

	var (
		out  []SOPRow
		errs []error
	)
	for i, row := range t.rows {
		if blank(row) {
			continue
		}
		line := t.lines[i]
		sr := SOPRow{
			Line:         line,
			DocumentName: t.get(row, "document_name"),
			Label:        t.get(row, "label"),
			Version:      t.get(row, "version"),
			DOI:          t.get(row, "doi"),
			DocURL:       t.get(row, "doc_url"),
			Description:  t.get(row, "description"),
		}
		if sr.DocumentName == "" {
			errs = append(errs, rowError(line, "document_name", errors.NewStd("document name is required")))
		}
		if sr.Label == "" {
			errs = append(errs, rowError(line, "label", errors.NewStd("label is required")))
		}
		out = append(out, sr)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// ReadPlotsFile is ReadPlots over a file, with the format taken from its
// extension.
func ReadPlotsFile(path string) ([]PlotRow, error) {
	var rows []PlotRow
	err := withFile(path, func(r io.Reader, f Format) (err error) {
		rows, err = ReadPlots(r, f)
		return err
	})
	return rows, err
}

// ReadSOPsFile is ReadSOPs over a file.
func ReadSOPsFile(path string) ([]SOPRow, error) {
	var rows []SOPRow
	err := withFile(path, func(r io.Reader, f Format) (err error) {
		rows, err = ReadSOPs(r, f)
		return err
	})
	return rows, err
}

func withFile(path string, fn func(io.Reader, Format) error) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	f, err := os.Open(path) //nolint:gosec // operator supplied import file
	if err != nil {
		return errors.New(err).
			Component("importer").
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Build()
	}
	defer f.Close()
	if err := fn(f, format); err != nil {
		return errors.New(err).
			Component("importer").
			Category(errors.CategoryFileParsing).
			Context("file", path).
			Build()
	}
	return nil
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, errors.NewStd("value is required")
	}
	return strconv.ParseFloat(s, 64)
}
