package importer

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyFile is returned when the uploaded file contains no data at all.
var ErrEmptyFile = errors.New("file is empty")

// ErrMalformedFile is returned when the file has structurally broken rows
// (e.g. a record with the wrong number of fields).
var ErrMalformedFile = errors.New("could not parse file: malformed rows")

// UnreadableError covers any other parse-time fault and carries the
// underlying message for the caller.
type UnreadableError struct {
	Cause error
}

func (e *UnreadableError) Error() string {
	return fmt.Sprintf("error reading file: %v. Ensure it is a valid CSV or XLSX file.", e.Cause)
}

func (e *UnreadableError) Unwrap() error { return e.Cause }

// SchemaError reports the exact difference between the uploaded header and
// the required User columns. Both sets are sorted alphabetically.
type SchemaError struct {
	Missing []string
	Extra   []string
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString("Uploaded file columns do not match expected 'User' table structure. ")
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, "Missing columns: %s. ", strings.Join(e.Missing, ", "))
	}
	if len(e.Extra) > 0 {
		fmt.Fprintf(&b, "Unexpected columns: %s. ", strings.Join(e.Extra, ", "))
	}
	fmt.Fprintf(&b, "Please ensure the file has exactly these headers: %s.", strings.Join(TargetColumns, ", "))
	return b.String()
}

// RowError reports a row missing required data. Row is the 1-based display
// row in the file (data index + header + 1).
type RowError struct {
	Row int
}

func (e *RowError) Error() string {
	return fmt.Sprintf("Row %d is missing required data. All columns (%s) must have values.",
		e.Row, strings.Join(TargetColumns, ", "))
}

// ConflictError reports a uniqueness violation raised while upserting a row.
type ConflictError struct {
	Row   int
	Cause error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("duplicate entry found at row %d: %v", e.Row, e.Cause)
}

func (e *ConflictError) Unwrap() error { return e.Cause }

// StoreError reports any other store-level fault while upserting a row.
type StoreError struct {
	Row   int
	Cause error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("database error processing row %d: %v", e.Row, e.Cause)
}

func (e *StoreError) Unwrap() error { return e.Cause }
