package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/regenpgc/trialbase/internal/errors"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		sentinel error
		category errors.ErrorCategory
	}{
		{"gorm duplicate", gorm.ErrDuplicatedKey, ErrDuplicateKey, errors.CategoryConflict},
		{"gorm foreign key", gorm.ErrForeignKeyViolated, ErrForeignKey, errors.CategoryConflict},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, ErrDuplicateKey, errors.CategoryConflict},
		{"mysql missing parent", &mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"}, ErrForeignKey, errors.CategoryConflict},
		{"postgres unique", &pgconn.PgError{Code: "23505"}, ErrDuplicateKey, errors.CategoryConflict},
		{"postgres foreign key", &pgconn.PgError{Code: "23503"}, ErrForeignKey, errors.CategoryConflict},
		{"pure sqlite unique", fmt.Errorf("constraint failed: UNIQUE constraint failed: plots.trial_id, plots.label (2067)"), ErrDuplicateKey, errors.CategoryConflict},
		{"pure sqlite foreign key", fmt.Errorf("constraint failed: FOREIGN KEY constraint failed (787)"), ErrForeignKey, errors.CategoryConflict},
		{"other", fmt.Errorf("disk I/O error"), nil, errors.CategoryDatabase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := classify(tt.err, "create", "plot")
			assert.True(t, errors.IsCategory(err, tt.category), "got %v", err)
			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestClassify_DatabaseErrorsAreHighPriority(t *testing.T) {
	t.Parallel()

	var ee *errors.EnhancedError
	require.True(t, errors.As(classify(errors.NewStd("disk I/O error"), "list", "plot"), &ee))
	assert.Equal(t, errors.PriorityHigh, ee.Priority)
	assert.False(t, ee.Timestamp.IsZero())

	require.True(t, errors.As(classify(ErrDuplicateKey, "create", "plot"), &ee))
	assert.Empty(t, ee.Priority, "conflicts are client faults")
}

func TestClassifyPassThrough(t *testing.T) {
	t.Parallel()

	assert.NoError(t, classify(nil, "get", "plot"))
	assert.Equal(t, context.Canceled, classify(context.Canceled, "get", "plot"))

	nf := notFound(ErrPlotNotFound, "plot", "plot_x")
	assert.Same(t, nf, classify(nf, "get", "plot"))
}

func TestPage(t *testing.T) {
	t.Parallel()

	p := Page{Number: -1, Size: 5000}.Normalize()
	assert.Equal(t, 0, p.Number)
	assert.Equal(t, MaxPageSize, p.Size)
	assert.Equal(t, DefaultPageSize, Page{}.Normalize().Size)

	p = Page{Number: 2, Size: 10}
	assert.Equal(t, 20, p.Offset())
	assert.Equal(t, 3, p.TotalPages(21))
	assert.Equal(t, 2, p.TotalPages(20))
	assert.Equal(t, 0, p.TotalPages(0))
}
