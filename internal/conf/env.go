// env.go - environment variable configuration and validation for trialbase
package conf

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", EnvPrefix + "DEBUG", validateEnvBool},
		{"logging.default_level", EnvPrefix + "LOG_LEVEL", validateEnvLogLevel},

		// Database
		{"database.driver", EnvPrefix + "DATABASE_DRIVER", validateEnvDatabaseDriver},
		{"database.dsn", EnvPrefix + "DATABASE_DSN", nil},
		{"database.path", EnvPrefix + "DATABASE_PATH", nil},
		{"database.slowthreshold", EnvPrefix + "DATABASE_SLOWTHRESHOLD", validateEnvDuration},
		{"database.mysql.host", EnvPrefix + "MYSQL_HOST", nil},
		{"database.mysql.port", EnvPrefix + "MYSQL_PORT", validateEnvPort},
		{"database.mysql.username", EnvPrefix + "MYSQL_USERNAME", nil},
		{"database.mysql.password", EnvPrefix + "MYSQL_PASSWORD", nil},
		{"database.mysql.database", EnvPrefix + "MYSQL_DATABASE", nil},

		// Web server
		{"webserver.listen", EnvPrefix + "LISTEN", nil},
		{"webserver.ratelimit", EnvPrefix + "RATELIMIT", validateEnvNonNegativeFloat},

		// Metrics
		{"metrics.enabled", EnvPrefix + "METRICS_ENABLED", validateEnvBool},
		{"metrics.listen", EnvPrefix + "METRICS_LISTEN", nil},

		// Blob storage
		{"blob.driver", EnvPrefix + "BLOB_DRIVER", validateEnvBlobDriver},
		{"blob.fsroot", EnvPrefix + "BLOB_FSROOT", nil},
		{"blob.s3.bucket", EnvPrefix + "S3_BUCKET", nil},
		{"blob.s3.region", EnvPrefix + "S3_REGION", nil},
		{"blob.s3.endpoint", EnvPrefix + "S3_ENDPOINT", validateEnvURL},
		{"blob.s3.pathstyle", EnvPrefix + "S3_PATHSTYLE", validateEnvBool},
		{"blob.s3.accesskeyid", EnvPrefix + "S3_ACCESS_KEY_ID", nil},
		{"blob.s3.secretaccesskey", EnvPrefix + "S3_SECRET_ACCESS_KEY", nil},

		// MQTT
		{"mqtt.enabled", EnvPrefix + "MQTT_ENABLED", validateEnvBool},
		{"mqtt.broker", EnvPrefix + "MQTT_BROKER", validateEnvURL},
		{"mqtt.username", EnvPrefix + "MQTT_USERNAME", nil},
		{"mqtt.password", EnvPrefix + "MQTT_PASSWORD", nil},

		// Seed
		{"seed.randomseed", EnvPrefix + "SEED", validateEnvUint},

		// Telemetry
		{"telemetry.sentry.dsn", EnvPrefix + "SENTRY_DSN", validateEnvURL},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value: %v", binding.EnvVar, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f", value)
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	if !slices.Contains([]string{"trace", "debug", "info", "warn", "error"}, strings.ToLower(value)) {
		return fmt.Errorf("log level must be one of trace, debug, info, warn, error, got '%s'", value)
	}
	return nil
}

func validateEnvDatabaseDriver(value string) error {
	if !slices.Contains(supportedDatabaseDrivers, value) {
		return fmt.Errorf("database driver must be one of %s, got '%s'", strings.Join(supportedDatabaseDrivers, ", "), value)
	}
	return nil
}

func validateEnvBlobDriver(value string) error {
	if !slices.Contains(supportedBlobDrivers, value) {
		return fmt.Errorf("blob driver must be one of %s, got '%s'", strings.Join(supportedBlobDrivers, ", "), value)
	}
	return nil
}

func validateEnvDuration(value string) error {
	if _, err := time.ParseDuration(value); err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

func validateEnvNonNegativeFloat(value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid number: %w", err)
	}
	if f < 0 {
		return fmt.Errorf("must not be negative, got %g", f)
	}
	return nil
}

func validateEnvUint(value string) error {
	if _, err := strconv.ParseUint(value, 10, 64); err != nil {
		return fmt.Errorf("invalid unsigned integer: %w", err)
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("URL must include scheme and host, got '%s'", value)
	}
	return nil
}
