// validate.go - settings validation
package conf

import (
	"slices"
	"strings"

	"github.com/labstack/gommon/bytes"

	"github.com/regenpgc/trialbase/internal/errors"
)

var (
	supportedDatabaseDrivers = []string{DriverSQLite, DriverSQLitePure, DriverMySQL, DriverPostgres}
	supportedBlobDrivers     = []string{BlobDriverFS, BlobDriverMemory, BlobDriverS3}
)

// ValidateSettings checks settings for values that would prevent startup and
// returns every problem found joined into one error.
func ValidateSettings(settings *Settings) error {
	var errs []error

	add := func(field, format string, args ...any) {
		errs = append(errs, errors.Newf(format, args...).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Field(field).
			Build())
	}

	db := settings.Database
	if !slices.Contains(supportedDatabaseDrivers, db.Driver) {
		add("database.driver", "unsupported database driver %q, expected one of %s", db.Driver, strings.Join(supportedDatabaseDrivers, ", "))
	}
	switch db.Driver {
	case DriverSQLite, DriverSQLitePure:
		if db.DSN == "" && db.Path == "" {
			add("database.path", "sqlite database path must be set")
		}
	case DriverMySQL:
		if db.DSN == "" && (db.MySQL.Host == "" || db.MySQL.Database == "") {
			add("database.mysql", "mysql host and database must be set when no dsn is given")
		}
	case DriverPostgres:
		if db.DSN == "" {
			add("database.dsn", "postgres requires a dsn")
		}
	}
	if db.SlowThreshold < 0 {
		add("database.slowthreshold", "slow query threshold must not be negative")
	}

	ws := settings.WebServer
	if ws.Listen == "" {
		add("webserver.listen", "listen address must be set")
	}
	if ws.BodyLimit != "" {
		if _, err := bytes.Parse(ws.BodyLimit); err != nil {
			add("webserver.bodylimit", "invalid body limit %q", ws.BodyLimit)
		}
	}
	if ws.RateLimit < 0 {
		add("webserver.ratelimit", "rate limit must not be negative")
	}
	if ws.CacheTTL < 0 {
		add("webserver.cachettl", "cache ttl must not be negative")
	}

	blob := settings.Blob
	if !slices.Contains(supportedBlobDrivers, blob.Driver) {
		add("blob.driver", "unsupported blob driver %q, expected one of %s", blob.Driver, strings.Join(supportedBlobDrivers, ", "))
	}
	switch blob.Driver {
	case BlobDriverFS:
		if blob.FSRoot == "" {
			add("blob.fsroot", "blob fsroot must be set for the fs driver")
		}
	case BlobDriverS3:
		if blob.S3.Bucket == "" {
			add("blob.s3.bucket", "s3 bucket must be set for the s3 driver")
		}
	}
	if blob.PresignExpiry <= 0 {
		add("blob.presignexpiry", "presign expiry must be positive")
	}

	if settings.MQTT.Enabled && settings.MQTT.Broker == "" {
		add("mqtt.broker", "mqtt broker must be set when mqtt is enabled")
	}

	return errors.Join(errs...)
}
