package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"github.com/regenpgc/trialbase/internal/errors"
)

// Sentinel errors for repository operations.
var (
	ErrPersonNotFound         = errors.NewStd("person not found")
	ErrOrganizationNotFound   = errors.NewStd("organization not found")
	ErrLocationNotFound       = errors.NewStd("location not found")
	ErrProjectNotFound        = errors.NewStd("project not found")
	ErrStateNotFound          = errors.NewStd("state not found")
	ErrTrialNotFound          = errors.NewStd("trial not found")
	ErrTreatmentNotFound      = errors.NewStd("treatment not found")
	ErrTreatmentLevelNotFound = errors.NewStd("treatment level not found")
	ErrGermplasmNotFound      = errors.NewStd("germplasm not found")
	ErrPlotNotFound           = errors.NewStd("plot not found")
	ErrPlotCropNotFound       = errors.NewStd("plot crop not found")
	ErrVariableNotFound       = errors.NewStd("variable not found")
	ErrAgroProcessNotFound    = errors.NewStd("agro process not found")
	ErrObservationNotFound    = errors.NewStd("observation not found")
	ErrImageNotFound          = errors.NewStd("image not found")
	ErrAwsModelNotFound       = errors.NewStd("model not found")
	ErrImageOperationNotFound = errors.NewStd("image operation not found")

	// ErrDuplicateKey indicates a unique constraint violation.
	ErrDuplicateKey = errors.NewStd("duplicate key")

	// ErrForeignKey indicates a row references a parent that does not exist,
	// or a parent still has children that do not cascade.
	ErrForeignKey = errors.NewStd("foreign key violation")

	// ErrStaleState indicates a conditional update matched no row because
	// the row changed since it was read.
	ErrStaleState = errors.NewStd("row changed concurrently")
)

// MySQL and PostgreSQL codes for constraint violations.
const (
	mysqlDuplicateEntry     = 1062
	mysqlRowIsReferenced    = 1451
	mysqlNoReferencedRow    = 1452
	pgUniqueViolation       = "23505"
	pgForeignKeyViolation   = "23503"
	sqliteUniqueMessage     = "unique constraint failed"
	sqliteForeignKeyMessage = "foreign key constraint failed"
)

// notFound wraps a sentinel with the not-found category.
func notFound(sentinel error, entity, id string) error {
	return errors.New(sentinel).
		Component("datastore").
		Category(errors.CategoryNotFound).
		Entity(entity, id).
		Build()
}

// classify converts a GORM or driver error into an EnhancedError. Unique and
// foreign key violations become conflicts wrapping ErrDuplicateKey or
// ErrForeignKey; anything else is a database error. Errors that are already
// enhanced pass through unchanged.
func classify(err error, operation, entity string) error {
	if err == nil {
		return nil
	}
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var sentinel error
	switch {
	case IsDuplicateKey(err):
		sentinel = ErrDuplicateKey
	case IsForeignKeyViolation(err):
		sentinel = ErrForeignKey
	}

	if sentinel != nil {
		return errors.New(fmt.Errorf("%s %s: %w: %w", operation, entity, sentinel, err)).
			Component("datastore").
			Category(errors.CategoryConflict).
			Entity(entity, "").
			Context(errors.ContextOperation, operation).
			Build()
	}

	return errors.New(fmt.Errorf("%s %s: %w", operation, entity, err)).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Priority(errors.PriorityHigh).
		Entity(entity, "").
		Context(errors.ContextOperation, operation).
		Build()
}

// IsDuplicateKey reports whether err is a unique constraint violation from
// any supported driver.
func IsDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, ErrDuplicateKey) {
		return true
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntry
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	// The pure Go SQLite driver only exposes the message.
	return strings.Contains(strings.ToLower(err.Error()), sqliteUniqueMessage)
}

// IsForeignKeyViolation reports whether err is a foreign key violation from
// any supported driver.
func IsForeignKeyViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) || errors.Is(err, ErrForeignKey) {
		return true
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlNoReferencedRow || mysqlErr.Number == mysqlRowIsReferenced
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgForeignKeyViolation
	}

	return strings.Contains(strings.ToLower(err.Error()), sqliteForeignKeyMessage)
}
