package datastore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/regenpgc/trialbase/internal/conf"
	"github.com/regenpgc/trialbase/internal/datastore/entities"
)

// MySQLManager handles a MySQL or MariaDB database.
type MySQLManager struct {
	db       *gorm.DB
	location string // host:port/database for display
}

// MySQLDSN builds a go-sql-driver DSN from the individual settings.
func MySQLDSN(s conf.MySQLSettings) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		s.Username, s.Password, s.Host, s.Port, s.Database)
}

// NewMySQLManager opens the database. A DSN in the settings takes precedence
// over the host fields.
func NewMySQLManager(cfg Config) (*MySQLManager, error) {
	s := cfg.Settings.MySQL
	dsn := cfg.Settings.DSN
	location := fmt.Sprintf("%s:%s/%s", s.Host, s.Port, s.Database)
	if dsn == "" {
		dsn = MySQLDSN(s)
	} else {
		location = "dsn"
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig(cfg))
	if err != nil {
		return nil, openError(err, conf.DriverMySQL, location)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &MySQLManager{db: db, location: location}, nil
}

// Initialize creates the schema with InnoDB tables so foreign keys are
// enforced.
func (m *MySQLManager) Initialize(ctx context.Context) error {
	db := m.db.Set("gorm:table_options", "ENGINE=InnoDB DEFAULT CHARSET=utf8mb4")
	return migrate(ctx, db, conf.DriverMySQL)
}

func (m *MySQLManager) DB() *gorm.DB   { return m.db }
func (m *MySQLManager) Driver() string { return conf.DriverMySQL }
func (m *MySQLManager) Path() string   { return m.location }

func (m *MySQLManager) Ping(ctx context.Context) error { return pingDB(ctx, m.db) }

func (m *MySQLManager) Close() error { return closeDB(m.db) }

// Delete drops every trialbase table, children first.
func (m *MySQLManager) Delete() error {
	for _, table := range entities.DeleteOrder() {
		if err := m.db.Exec("DROP TABLE IF EXISTS " + table).Error; err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}

var _ Manager = (*MySQLManager)(nil)
