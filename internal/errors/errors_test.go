package errors

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tests touching the global reporter or hook list do not run in parallel.

func TestFastPathNoTelemetry(t *testing.T) {
	SetTelemetryReporter(nil)
	ClearErrorHooks()

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
}

func TestHooksReceiveBuiltErrors(t *testing.T) {
	t.Cleanup(ClearErrorHooks)

	var calls atomic.Int32
	var lastCategory atomic.Value
	AddErrorHook(func(ee *EnhancedError) {
		calls.Add(1)
		lastCategory.Store(ee.Category)
	})
	require.True(t, hasActiveReporting.Load())

	_ = New(fmt.Errorf("plot missing")).Category(CategoryNotFound).Build()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, CategoryNotFound, lastCategory.Load())

	ClearErrorHooks()
	assert.False(t, hasActiveReporting.Load())
}

func TestCategoryHelpers(t *testing.T) {
	t.Parallel()
	t.Attr("component", "errors")
	t.Attr("type", "unit")

	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"validation", FieldError("label", "label is required"), IsValidation, true},
		{"validation wrapped", fmt.Errorf("create plot: %w", FieldError("label", "bad")), IsValidation, true},
		{"conflict", New(NewStd("duplicate")).Category(CategoryConflict).Build(), IsConflict, true},
		{"state", New(NewStd("closed")).Category(CategoryState).Build(), IsState, true},
		{"not found", New(NewStd("gone")).Category(CategoryNotFound).Build(), IsNotFound, true},
		{"plain error", NewStd("plain"), IsNotFound, false},
		{"other category", FieldError("x", "bad"), IsConflict, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.check(tt.err))
		})
	}
}

func TestFieldOf(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("update trial: %w", FieldError("establishmentYear", "year %d out of range", 1900))
	assert.Equal(t, "establishmentYear", FieldOf(err))
	assert.Contains(t, err.Error(), "year 1900 out of range")
	assert.Empty(t, FieldOf(NewStd("plain")))
}

func TestIsMatchesCategory(t *testing.T) {
	t.Parallel()

	sentinel := NewStd("sentinel")
	a := New(sentinel).Category(CategoryConflict).Build()
	b := New(NewStd("other")).Category(CategoryConflict).Build()
	c := New(NewStd("other")).Category(CategoryDatabase).Build()

	assert.True(t, Is(a, b))
	assert.False(t, Is(a, c))
	assert.True(t, Is(a, sentinel))
}

func TestDetectCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		msg       string
		component string
		want      ErrorCategory
	}{
		{"record not found", "datastore", CategoryNotFound},
		{"UNIQUE constraint failed: plots.label", "datastore", CategoryConflict},
		{"invalid year", "fieldtrial", CategoryValidation},
		{"connection refused", "datastore", CategoryDatabase},
		{"upload failed", "blob", CategoryStorage},
		{"bad row", "importer", CategoryFileParsing},
		{"broker down", "notify", CategoryMessaging},
		{"boom", "api", CategoryGeneric},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, detectCategory(NewStd(tt.msg), tt.component), tt.msg)
	}
	assert.Equal(t, CategoryGeneric, detectCategory(nil, ""))
}

func TestContextIsCopied(t *testing.T) {
	t.Parallel()

	ee := New(NewStd("x")).Entity("plot", "plot_1").Timing("delete_subtree", 0).Build()
	ctx := ee.GetContext()
	ctx["entity"] = "changed"

	assert.Equal(t, "plot", ee.ContextString(ContextEntity))
	assert.Equal(t, "plot_1", ee.ContextString(ContextID))
	assert.Equal(t, "delete_subtree", ee.ContextString(ContextOperation))
}

func TestFileContext(t *testing.T) {
	t.Parallel()

	ee := FileError(NewStd("cannot open"), "/data/plots/keystone_plot_list.CSV", 5*1024*1024)
	assert.Equal(t, CategoryFileIO, ee.Category)
	assert.Equal(t, "csv", ee.GetContext()["file_extension"])
	assert.Equal(t, "medium (1-10MB)", ee.GetContext()["file_size_category"])
}

func TestBasicScrub(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		absent  []string
		present string
	}{
		{
			name:    "url query",
			in:      "Error at https://bucket.example.com/img.png?X-Amz-Signature=abc123",
			absent:  []string{"abc123"},
			present: "https://bucket.example.com/img.png?[REDACTED]",
		},
		{
			name:    "mysql dsn",
			in:      "dial trial:hunter2@tcp(db:3306)/trialbase failed",
			absent:  []string{"hunter2"},
			present: "trial:[REDACTED]@tcp(",
		},
		{
			name:    "credentials",
			in:      "config: password=s3cret token:abc",
			absent:  []string{"s3cret", "abc"},
			present: "password=[REDACTED]",
		},
		{
			name:    "email",
			in:      "person jane.doe@example.org already exists",
			absent:  []string{"jane.doe"},
			present: "[EMAIL_REDACTED]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := basicScrub(tt.in)
			for _, s := range tt.absent {
				assert.NotContains(t, got, s)
			}
			assert.Contains(t, got, tt.present)
		})
	}
}

func TestGenerateErrorTitle(t *testing.T) {
	t.Parallel()

	ee := New(NewStd("upload failed")).
		Component("blob").
		Category(CategoryStorage).
		Context(ContextOperation, "put_object").
		Build()

	assert.Equal(t, "Blob Blob Storage Error Put Object", generateErrorTitle(ee))
	assert.True(t, isClientFault(CategoryConflict))
	assert.False(t, isClientFault(CategoryDatabase))
}
