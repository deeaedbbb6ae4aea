// Package datastore opens the relational store behind trialbase and migrates
// the field trial schema. Four drivers are supported: sqlite (cgo, default),
// sqlite-pure (pure Go, for static builds), mysql and postgres.
package datastore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/regenpgc/trialbase/internal/conf"
	"github.com/regenpgc/trialbase/internal/datastore/entities"
	"github.com/regenpgc/trialbase/internal/errors"
	"github.com/regenpgc/trialbase/internal/logger"
)

// Manager owns one database connection pool.
type Manager interface {
	// Initialize creates or upgrades the schema.
	Initialize(ctx context.Context) error
	// DB returns the underlying GORM database.
	DB() *gorm.DB
	// Driver returns the configured driver name.
	Driver() string
	// Path returns the database location for display: a file path for
	// SQLite, host/database otherwise. Credentials are never included.
	Path() string
	// Ping checks that the database answers.
	Ping(ctx context.Context) error
	// Close closes the connection pool.
	Close() error
}

// Config holds everything needed to open a manager.
type Config struct {
	Settings conf.DatabaseSettings
	// Logger receives SQL tracing. Nil selects the global "datastore" module.
	Logger logger.Logger
	// Observer, when set, is called after every statement.
	Observer logger.QueryObserver
}

// Open returns a manager for the configured driver. The schema is not
// touched until Initialize is called.
func Open(cfg Config) (Manager, error) {
	if cfg.Logger == nil {
		cfg.Logger = logger.Global().Module("datastore")
	}

	switch cfg.Settings.Driver {
	case conf.DriverSQLite, "":
		return NewSQLiteManager(cfg, false)
	case conf.DriverSQLitePure:
		return NewSQLiteManager(cfg, true)
	case conf.DriverMySQL:
		return NewMySQLManager(cfg)
	case conf.DriverPostgres:
		return NewPostgresManager(cfg)
	default:
		return nil, errors.Newf("unsupported database driver %q", cfg.Settings.Driver).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Field("database.driver").
			Build()
	}
}

// gormConfig returns the shared GORM configuration. Timestamps are stored in
// UTC and driver errors are translated to gorm.ErrDuplicatedKey and
// gorm.ErrForeignKeyViolated where the dialect supports it.
func gormConfig(cfg Config) *gorm.Config {
	adapter := logger.NewGormLoggerAdapter(cfg.Logger, cfg.Settings.SlowThreshold)
	if cfg.Observer != nil {
		adapter = adapter.WithObserver(cfg.Observer)
	}
	return &gorm.Config{
		Logger:         adapter,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
}

// migrate runs AutoMigrate over every entity.
func migrate(ctx context.Context, db *gorm.DB, driver string) error {
	start := time.Now()
	if err := db.WithContext(ctx).AutoMigrate(entities.All()...); err != nil {
		return errors.New(fmt.Errorf("failed to migrate schema: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("driver", driver).
			Timing("auto_migrate", time.Since(start)).
			Build()
	}
	return nil
}

// pingDB pings the pool behind db.
func pingDB(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// closeDB closes the pool behind db.
func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}

// openError wraps a connection failure.
func openError(err error, driver, location string) error {
	return errors.New(fmt.Errorf("failed to open %s database: %w", driver, err)).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Priority(errors.PriorityHigh).
		Context("driver", driver).
		Context("location", location).
		Build()
}
