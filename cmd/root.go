// Package cmd builds the trialbase command line.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/regenpgc/trialbase/cmd/importdata"
	"github.com/regenpgc/trialbase/cmd/migrate"
	"github.com/regenpgc/trialbase/cmd/seed"
	"github.com/regenpgc/trialbase/cmd/serve"
	"github.com/regenpgc/trialbase/internal/conf"
	"github.com/regenpgc/trialbase/internal/logger"
)

// globalFlags are bound before the configuration is loaded and override it.
type globalFlags struct {
	configFile string
	debug      bool
	dbDriver   string
	dbDSN      string
}

// RootCommand creates and returns the root command. settings is filled in
// before any subcommand runs.
func RootCommand(settings *conf.Settings) *cobra.Command {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:           "trialbase",
		Short:         "Field trial research data service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	setupFlags(rootCmd, &flags)

	subcommands := []*cobra.Command{
		serve.Command(settings),
		seed.Command(settings),
		importdata.Command(settings),
		migrate.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initialize(cmd, settings, &flags)
	}

	return rootCmd
}

// initialize loads the configuration, applies the global flags and sets up
// the central logger.
func initialize(cmd *cobra.Command, settings *conf.Settings, flags *globalFlags) error {
	loaded, err := conf.Load(flags.configFile)
	if err != nil {
		return err
	}
	*settings = *loaded

	pf := cmd.Flags()
	if pf.Changed("debug") {
		settings.Debug = flags.debug
	}
	if pf.Changed("db-driver") {
		settings.Database.Driver = flags.dbDriver
	}
	if pf.Changed("db-dsn") {
		settings.Database.DSN = flags.dbDSN
	}
	if err := conf.ValidateSettings(settings); err != nil {
		return err
	}

	if settings.Debug {
		settings.Logging.DefaultLevel = "debug"
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = "debug"
		}
	}
	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(central)

	if file := settings.ConfigFile(); file != "" {
		central.Module("main").Debug("configuration loaded", logger.String("file", file))
	}
	return nil
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, flags *globalFlags) {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "Path to config.yaml (default: search ., ~/.config/trialbase, /etc/trialbase)")
	pf.BoolVarP(&flags.debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	pf.StringVar(&flags.dbDriver, "db-driver", "", "Database driver: sqlite, sqlite-pure, mysql or postgres")
	pf.StringVar(&flags.dbDSN, "db-dsn", "", "Database DSN, overrides the driver specific settings")
}
