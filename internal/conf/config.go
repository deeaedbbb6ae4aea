// config.go - configuration loading for trialbase
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/regenpgc/trialbase/internal/errors"
	"github.com/regenpgc/trialbase/internal/logger"
)

//go:embed default_config.yaml
var configFiles embed.FS

// DatabaseSettings selects and configures the relational store.
type DatabaseSettings struct {
	Driver        string        `yaml:"driver"`        // sqlite, sqlite-pure, mysql or postgres
	DSN           string        `yaml:"dsn"`           // full DSN, overrides the driver specific fields
	Path          string        `yaml:"path"`          // sqlite database file
	SlowThreshold time.Duration `yaml:"slowthreshold"` // queries slower than this are logged at warn
	MySQL         MySQLSettings `yaml:"mysql"`
}

// MySQLSettings holds the connection fields used when no DSN is given.
type MySQLSettings struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// WebServerSettings configures the REST API listener.
type WebServerSettings struct {
	Listen         string        `yaml:"listen"`
	BodyLimit      string        `yaml:"bodylimit"` // echo size string, e.g. "2M"
	RateLimit      float64       `yaml:"ratelimit"` // requests per second per client, 0 disables
	CacheTTL       time.Duration `yaml:"cachettl"`  // lifetime of cached plot listings
	AllowedOrigins []string      `yaml:"allowedorigins"`
}

// MetricsSettings configures the prometheus endpoint. The API always serves
// /api/v2/metrics; Listen adds a dedicated listener.
type MetricsSettings struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// S3Settings configures the S3 compatible image store.
type S3Settings struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"pathstyle"`
	AccessKeyID     string `yaml:"accesskeyid"`
	SecretAccessKey string `yaml:"secretaccesskey"`
}

// BlobSettings selects where image bytes are stored.
type BlobSettings struct {
	Driver        string        `yaml:"driver"` // fs, memory or s3
	FSRoot        string        `yaml:"fsroot"`
	S3            S3Settings    `yaml:"s3"`
	PresignExpiry time.Duration `yaml:"presignexpiry"`
}

// MQTTSettings configures event publishing.
type MQTTSettings struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"clientid"`
	TopicPrefix string `yaml:"topicprefix"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
}

// SeedSettings configures the bulk seed command. Empty file paths select the
// embedded defaults.
type SeedSettings struct {
	PlotList   string `yaml:"plotlist"`
	SOPList    string `yaml:"soplist"`
	RandomSeed uint64 `yaml:"randomseed"`
}

// SentrySettings enables error telemetry when DSN is set.
type SentrySettings struct {
	DSN         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
}

type TelemetrySettings struct {
	Sentry SentrySettings `yaml:"sentry"`
}

// Settings is the root configuration.
type Settings struct {
	Debug     bool                 `yaml:"debug"`
	Logging   logger.LoggingConfig `yaml:"logging"`
	Database  DatabaseSettings     `yaml:"database"`
	WebServer WebServerSettings    `yaml:"webserver"`
	Metrics   MetricsSettings      `yaml:"metrics"`
	Blob      BlobSettings         `yaml:"blob"`
	MQTT      MQTTSettings         `yaml:"mqtt"`
	Seed      SeedSettings         `yaml:"seed"`
	Telemetry TelemetrySettings    `yaml:"telemetry"`

	// configFile is the file the settings were read from, if any.
	configFile string
}

// ConfigFile returns the path the settings were loaded from.
func (s *Settings) ConfigFile() string {
	return s.configFile
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
	once             sync.Once
)

// Load reads .env, the configuration file and TRIALBASE_* environment
// variables, validates the result and installs it as the current settings.
// An empty configFile searches the default paths and writes a default file
// when none exists.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	log := logger.Global().Module("configuration")

	if err := loadDotEnv(".env"); err != nil {
		log.Warn("failed to load .env file", logger.Error(err))
	}

	if err := initViper(configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := bindEnvVars(); err != nil {
		// Invalid environment values are reported but the loader continues;
		// Validate rejects anything that would break startup.
		log.Warn("environment variable issues", logger.Error(err))
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context(errors.ContextOperation, "unmarshal_config").
			Build()
	}
	settings.configFile = viper.ConfigFileUsed()

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// loadDotEnv loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// initViper initializes viper with default values and reads the configuration file.
func initViper(configFile string) error {
	setDefaultConfig()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return errors.New(err).
				Category(errors.CategoryConfiguration).
				FileContext(configFile, 0).
				Context(errors.ContextOperation, "read_config").
				Build()
		}
		return nil
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig(configPaths)
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded default configuration into the
// first user level config path and reads it back.
func createDefaultConfig(configPaths []string) error {
	// Index 0 is the working directory; the default goes to the user path.
	target := configPaths[0]
	if len(configPaths) > 1 {
		target = configPaths[1]
	}
	configPath := filepath.Join(target, "config.yaml")

	data, err := fs.ReadFile(configFiles, "default_config.yaml")
	if err != nil {
		return fmt.Errorf("error reading embedded default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context(errors.ContextOperation, "create_config_dir").
			Build()
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return errors.FileError(err, configPath, int64(len(data)))
	}

	logger.Global().Module("configuration").Info("created default config file", logger.String("path", configPath))
	viper.SetConfigFile(configPath)
	return viper.ReadInConfig()
}

// GetDefaultConfigPaths returns the directories searched for config.yaml, in
// order: the working directory, the user config directory and /etc.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context(errors.ContextOperation, "get_home_directory").
			Build()
	}

	return []string{
		".",
		filepath.Join(homeDir, ".config", "trialbase"),
		"/etc/trialbase",
	}, nil
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings, loading them from the default paths
// on first use.
func Setting() *Settings {
	once.Do(func() {
		if GetSettings() == nil {
			if _, err := Load(""); err != nil {
				logger.Global().Module("configuration").Error("error loading settings", logger.Error(err))
				os.Exit(1)
			}
		}
	})
	return GetSettings()
}

// WatchConfig reloads the configuration when the file changes and passes the
// new settings to onChange. Reloads that fail validation are logged and
// ignored.
func WatchConfig(onChange func(*Settings)) {
	log := logger.Global().Module("configuration")

	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		settings := &Settings{}
		if err := viper.Unmarshal(settings); err != nil {
			log.Warn("ignoring config change", logger.String("file", e.Name), logger.Error(err))
			return
		}
		if err := ValidateSettings(settings); err != nil {
			log.Warn("ignoring invalid config change", logger.String("file", e.Name), logger.Error(err))
			return
		}
		settings.configFile = e.Name

		settingsMutex.Lock()
		settingsInstance = settings
		settingsMutex.Unlock()

		log.Info("configuration reloaded", logger.String("file", e.Name))
		if onChange != nil {
			onChange(settings)
		}
	})
	viper.WatchConfig()
}

// SaveYAMLConfig writes settings to configPath through a temporary file and
// rename. Comments in an existing file are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return errors.FileError(err, configPath, int64(len(yamlData)))
	}
	return nil
}
