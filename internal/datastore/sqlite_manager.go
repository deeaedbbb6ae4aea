package datastore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	puresqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/regenpgc/trialbase/internal/conf"
)

// SQLiteManager handles a single-file SQLite database, opened either through
// the cgo driver or the pure Go one.
type SQLiteManager struct {
	db     *gorm.DB
	dbPath string
	pure   bool
}

// NewSQLiteManager opens the database at cfg.Settings.Path, or the DSN when
// one is given. Foreign keys are always enforced; cascade deletes depend on
// it.
func NewSQLiteManager(cfg Config, pure bool) (*SQLiteManager, error) {
	dbPath := cfg.Settings.Path
	if cfg.Settings.DSN != "" {
		dbPath = cfg.Settings.DSN
	}
	if dbPath == "" {
		dbPath = "trialbase.db"
	}

	if !isMemoryPath(dbPath) {
		if dir := filepath.Dir(sqliteFile(dbPath)); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, openError(err, driverName(pure), dbPath)
			}
		}
	}

	var dialector gorm.Dialector
	if pure {
		dialector = puresqlite.Open(pureSQLiteDSN(dbPath))
	} else {
		dialector = sqlite.Open(cgoSQLiteDSN(dbPath))
	}

	db, err := gorm.Open(dialector, gormConfig(cfg))
	if err != nil {
		return nil, openError(err, driverName(pure), dbPath)
	}

	// Every connection to ":memory:" is a separate database.
	if isMemoryPath(dbPath) {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying database: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return &SQLiteManager{db: db, dbPath: sqliteFile(dbPath), pure: pure}, nil
}

// cgoSQLiteDSN appends the mattn/go-sqlite3 pragmas. Transactions take the
// write lock on BEGIN and wait on the busy timeout.
func cgoSQLiteDSN(path string) string {
	return appendQuery(path, "_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON&_txlock=immediate")
}

// pureSQLiteDSN appends the same pragmas in the modernc syntax.
func pureSQLiteDSN(path string) string {
	return appendQuery(path, "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
}

func appendQuery(path, query string) string {
	if strings.Contains(path, "?") {
		return path + "&" + query
	}
	return path + "?" + query
}

// sqliteFile strips any query string from a DSN.
func sqliteFile(dsn string) string {
	if i := strings.IndexByte(dsn, '?'); i >= 0 {
		return dsn[:i]
	}
	return dsn
}

func isMemoryPath(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file::memory:")
}

func driverName(pure bool) string {
	if pure {
		return conf.DriverSQLitePure
	}
	return conf.DriverSQLite
}

// Initialize creates the schema.
func (m *SQLiteManager) Initialize(ctx context.Context) error {
	return migrate(ctx, m.db, m.Driver())
}

func (m *SQLiteManager) DB() *gorm.DB   { return m.db }
func (m *SQLiteManager) Driver() string { return driverName(m.pure) }
func (m *SQLiteManager) Path() string   { return m.dbPath }

func (m *SQLiteManager) Ping(ctx context.Context) error { return pingDB(ctx, m.db) }

func (m *SQLiteManager) Close() error { return closeDB(m.db) }

// Exists reports whether the database file exists.
func (m *SQLiteManager) Exists() bool {
	if isMemoryPath(m.dbPath) {
		return true
	}
	_, err := os.Stat(m.dbPath)
	return err == nil
}

// Delete closes the database and removes its file along with the WAL and
// SHM side files.
func (m *SQLiteManager) Delete() error {
	if err := m.Close(); err != nil {
		return fmt.Errorf("failed to close database before deletion: %w", err)
	}
	if isMemoryPath(m.dbPath) {
		return nil
	}
	if err := os.Remove(m.dbPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete database file: %w", err)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(m.dbPath + suffix)
	}
	return nil
}

var _ Manager = (*SQLiteManager)(nil)
