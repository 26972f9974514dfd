package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Dataset is an ordered sequence of rows parsed from an uploaded file. All
// rows of a well-formed file share the declared header; short spreadsheet
// rows simply leave keys absent, which the upsert loop re-checks.
type Dataset struct {
	Columns []string
	Rows    []map[string]string
}

// ParseFile dispatches to the CSV or XLSX parser based on the original
// filename's extension. Callers gate extensions before saving the file, so an
// unknown extension here is a programming error, not user input.
func ParseFile(path, filename string) (*Dataset, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, &UnreadableError{Cause: err}
		}
		defer f.Close()
		return ParseCSV(f)
	case ".xlsx":
		return ParseXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported extension on %q", filename)
	}
}

// ParseCSV reads a headered CSV stream into a Dataset.
func ParseCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, classifyParseErr(err)
	}
	ds := &Dataset{Columns: trimAll(header)}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, classifyParseErr(err)
		}
		row := make(map[string]string, len(ds.Columns))
		for i, col := range ds.Columns {
			row[col] = rec[i]
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

// ParseXLSX reads the first sheet of a workbook into a Dataset. Cells past
// the end of a short row are left absent rather than defaulted.
func ParseXLSX(path string) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &UnreadableError{Cause: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &UnreadableError{Cause: err}
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmptyFile
	}
	ds := &Dataset{Columns: trimAll(rows[0])}
	for _, rec := range rows[1:] {
		if allEmpty(rec) {
			continue // trailing blank rows are common in spreadsheets
		}
		row := make(map[string]string, len(rec))
		for i, cell := range rec {
			if i < len(ds.Columns) {
				row[ds.Columns[i]] = cell
			}
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

func classifyParseErr(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return fmt.Errorf("%w (line %d: %v)", ErrMalformedFile, pe.Line, pe.Err)
	}
	return &UnreadableError{Cause: err}
}

func trimAll(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

func allEmpty(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
