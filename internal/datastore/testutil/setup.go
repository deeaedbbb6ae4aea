package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/regenpgc/trialbase/internal/conf"
	"github.com/regenpgc/trialbase/internal/datastore"
	"github.com/regenpgc/trialbase/internal/logger"
)

// OpenSQLite creates a migrated SQLite database in a temporary directory and
// closes it when the test ends. Foreign keys are enforced.
func OpenSQLite(tb testing.TB) *gorm.DB {
	tb.Helper()
	return OpenManager(tb, conf.DriverSQLite).DB()
}

// OpenManager is OpenSQLite for a specific SQLite driver, returning the
// manager.
func OpenManager(tb testing.TB, driver string) datastore.Manager {
	tb.Helper()

	mgr, err := datastore.Open(datastore.Config{
		Settings: conf.DatabaseSettings{
			Driver: driver,
			Path:   filepath.Join(tb.TempDir(), "trialbase_test.db"),
		},
		Logger: logger.NewDiscardLogger(),
	})
	require.NoError(tb, err)
	tb.Cleanup(func() { _ = mgr.Close() })

	require.NoError(tb, mgr.Initialize(context.Background()))
	return mgr
}
