// Package importer implements the bulk user-upload pipeline: parse an
// uploaded CSV/XLSX file, reconcile its columns against the User table
// schema, and upsert the rows in a single all-or-nothing transaction.
package importer

import (
	"errors"
	"sort"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"internhub/models"
)

// TargetColumns is the exact header required for a User upload.
var TargetColumns = []string{"ssn", "name", "email", "address", "date_of_birth"}

// Run executes the whole pipeline against the saved upload at path. It
// returns the number of rows written; on any error nothing is committed.
func Run(db *gorm.DB, path, filename string) (int, error) {
	ds, err := ParseFile(path, filename)
	if err != nil {
		return 0, err
	}
	if serr := ValidateColumns(ds); serr != nil {
		return 0, serr
	}
	return ImportUsers(db, ds)
}

// ValidateColumns checks the dataset header against TargetColumns. The check
// is strict set equality; any missing or unexpected column rejects the file.
func ValidateColumns(ds *Dataset) *SchemaError {
	want := make(map[string]bool, len(TargetColumns))
	for _, c := range TargetColumns {
		want[c] = true
	}
	have := make(map[string]bool, len(ds.Columns))
	for _, c := range ds.Columns {
		have[c] = true
	}

	serr := &SchemaError{}
	for c := range want {
		if !have[c] {
			serr.Missing = append(serr.Missing, c)
		}
	}
	for c := range have {
		if !want[c] {
			serr.Extra = append(serr.Extra, c)
		}
	}
	if len(serr.Missing) == 0 && len(serr.Extra) == 0 {
		return nil
	}
	sort.Strings(serr.Missing)
	sort.Strings(serr.Extra)
	return serr
}

// ImportUsers upserts every dataset row into the users table inside one
// transaction. Rows are keyed by ssn; a key conflict overwrites the non-key
// fields (last write wins on re-upload). The first failing row aborts the
// batch and rolls back everything written before it.
func ImportUsers(db *gorm.DB, ds *Dataset) (int, error) {
	written := 0
	err := db.Transaction(func(tx *gorm.DB) error {
		for i, row := range ds.Rows {
			displayRow := i + 2 // 1-based, plus the header line
			for _, col := range TargetColumns {
				if _, ok := row[col]; !ok {
					return &RowError{Row: displayRow}
				}
			}
			u := models.User{
				SSN:         row["ssn"],
				Name:        row["name"],
				Email:       row["email"],
				Address:     row["address"],
				DateOfBirth: row["date_of_birth"],
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "ssn"}},
				UpdateAll: true,
			}).Create(&u).Error
			if err != nil {
				if IsUniqueViolation(err) {
					return &ConflictError{Row: displayRow, Cause: err}
				}
				return &StoreError{Row: displayRow, Cause: err}
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// IsUniqueViolation reports whether err is a uniqueness-constraint violation.
// Postgres errors are matched by SQLSTATE; the string fallback covers other
// engines (the test store among them).
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "unique constraint") || strings.Contains(s, "already exists")
}
