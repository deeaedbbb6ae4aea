// Package importer reads plot lists and SOP document lists from CSV or
// XLSX files and loads them through the field trial service.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/regenpgc/trialbase/internal/errors"
)

// Format is a tabular file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatOf selects the format from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", errors.Newf("unsupported import file %q, want .csv or .xlsx", filepath.Base(path)).
			Component("importer").
			Category(errors.CategoryValidation).
			Field("file").
			Build()
	}
}

// RowError locates a problem in an input file. Line is 1-based and counts
// the header.
type RowError struct {
	Line   int
	Column string
	Err    error
}

func (e *RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d, column %s: %v", e.Line, e.Column, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

func rowError(line int, column string, err error) error {
	return errors.New(&RowError{Line: line, Column: column, Err: err}).
		Component("importer").
		Category(errors.CategoryFileParsing).
		Context("line", line).
		Context("column", column).
		Build()
}

// table is a header-addressed view of the rows of a file. lines holds the
// 1-based file line of each row.
type table struct {
	columns map[string]int
	rows    [][]string
	lines   []int
}

func readTable(r io.Reader, format Format) (*table, error) {
	var (
		records [][]string
		lines   []int
	)
	switch format {
	case FormatCSV:
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true
		for {
			record, err := cr.Read()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				var pe *csv.ParseError
				if errors.As(err, &pe) {
					return nil, rowError(pe.Line, "", pe.Err)
				}
				return nil, errors.New(err).Component("importer").Category(errors.CategoryFileParsing).Build()
			}
			// encoding/csv skips empty lines, so take the line from the reader.
			line, _ := cr.FieldPos(0)
			records = append(records, record)
			lines = append(lines, line)
		}
	case FormatXLSX:
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, errors.New(err).Component("importer").Category(errors.CategoryFileParsing).Build()
		}
		defer f.Close()
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, rowError(1, "", errors.NewStd("workbook has no sheets"))
		}
		all, err := f.GetRows(sheets[0])
		if err != nil {
			return nil, errors.New(err).Component("importer").Category(errors.CategoryFileParsing).Build()
		}
		records = all
		for i := range all {
			lines = append(lines, i+1)
		}
	default:
		return nil, errors.Newf("unsupported format %q", format).
			Component("importer").
			Category(errors.CategoryValidation).
			Build()
	}

	if len(records) == 0 {
		return nil, rowError(1, "", errors.NewStd("file has no header row"))
	}
	t := &table{columns: make(map[string]int, len(records[0])), rows: records[1:], lines: lines[1:]}
	for i, name := range records[0] {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if name != "" {
			t.columns[name] = i
		}
	}
	return t, nil
}

// require checks that every named column is present in the header.
func (t *table) require(names ...string) error {
	for _, name := range names {
		if _, ok := t.columns[name]; !ok {
			return rowError(1, name, errors.NewStd("missing column"))
		}
	}
	return nil
}

// get returns the trimmed cell of row in column, or "" when the row is short
// or the column is absent.
func (t *table) get(row []string, column string) string {
	i, ok := t.columns[column]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
