// defaults.go - default configuration values
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaultConfig sets the default value of every configuration key.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	// Logging
	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", "logs/trialbase.log")
	viper.SetDefault("logging.file_output.level", "info")

	// Database
	viper.SetDefault("database.driver", DriverSQLite)
	viper.SetDefault("database.dsn", "")
	viper.SetDefault("database.path", "trialbase.db")
	viper.SetDefault("database.slowthreshold", 200*time.Millisecond)
	viper.SetDefault("database.mysql.host", "localhost")
	viper.SetDefault("database.mysql.port", "3306")
	viper.SetDefault("database.mysql.username", "")
	viper.SetDefault("database.mysql.password", "")
	viper.SetDefault("database.mysql.database", "trialbase")

	// Web server
	viper.SetDefault("webserver.listen", ":8080")
	viper.SetDefault("webserver.bodylimit", "2M")
	viper.SetDefault("webserver.ratelimit", 20.0)
	viper.SetDefault("webserver.cachettl", 30*time.Second)
	viper.SetDefault("webserver.allowedorigins", []string{"*"})

	// Metrics
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.listen", "")

	// Blob storage
	viper.SetDefault("blob.driver", BlobDriverFS)
	viper.SetDefault("blob.fsroot", "data/blobs")
	viper.SetDefault("blob.s3.bucket", "")
	viper.SetDefault("blob.s3.region", "us-east-1")
	viper.SetDefault("blob.s3.endpoint", "")
	viper.SetDefault("blob.s3.pathstyle", false)
	viper.SetDefault("blob.presignexpiry", 15*time.Minute)

	// MQTT
	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.clientid", "trialbase")
	viper.SetDefault("mqtt.topicprefix", "trialbase")

	// Seed
	viper.SetDefault("seed.plotlist", "")
	viper.SetDefault("seed.soplist", "")
	viper.SetDefault("seed.randomseed", 1)

	// Telemetry
	viper.SetDefault("telemetry.sentry.dsn", "")
	viper.SetDefault("telemetry.sentry.environment", "production")
}
