package datastore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/regenpgc/trialbase/internal/conf"
)

// PostgresManager handles a PostgreSQL database reached through pgx.
type PostgresManager struct {
	db       *gorm.DB
	location string
}

// NewPostgresManager opens the database named by the settings DSN, which may
// be a URL or a keyword/value string.
func NewPostgresManager(cfg Config) (*PostgresManager, error) {
	dsn := cfg.Settings.DSN

	pgCfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, openError(err, conf.DriverPostgres, "dsn")
	}
	location := fmt.Sprintf("%s:%d/%s", pgCfg.Host, pgCfg.Port, pgCfg.Database)

	db, err := gorm.Open(postgres.New(postgres.Config{DSN: dsn}), gormConfig(cfg))
	if err != nil {
		return nil, openError(err, conf.DriverPostgres, location)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &PostgresManager{db: db, location: location}, nil
}

func (m *PostgresManager) Initialize(ctx context.Context) error {
	return migrate(ctx, m.db, conf.DriverPostgres)
}

func (m *PostgresManager) DB() *gorm.DB   { return m.db }
func (m *PostgresManager) Driver() string { return conf.DriverPostgres }
func (m *PostgresManager) Path() string   { return m.location }

func (m *PostgresManager) Ping(ctx context.Context) error { return pingDB(ctx, m.db) }

func (m *PostgresManager) Close() error { return closeDB(m.db) }

var _ Manager = (*PostgresManager)(nil)
