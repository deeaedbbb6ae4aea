// Package serve runs the REST API.
package serve

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/regenpgc/trialbase/internal/api"
	"github.com/regenpgc/trialbase/internal/app"
	"github.com/regenpgc/trialbase/internal/buildinfo"
	"github.com/regenpgc/trialbase/internal/conf"
	"github.com/regenpgc/trialbase/internal/errors"
	"github.com/regenpgc/trialbase/internal/logger"
	"github.com/regenpgc/trialbase/internal/observability"
)

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API",
		Long:  "Open the database, migrate the schema and serve the v2 REST API until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				settings.WebServer.Listen = listen
			}
			return Run(cmd.Context(), settings)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address of the API, overrides webserver.listen")

	return cmd
}

// Run serves until ctx is cancelled. The API server, the optional
// dedicated metrics listener and the configuration watcher share one
// errgroup, so the first failure stops all of them.
func Run(ctx context.Context, settings *conf.Settings) error {
	log := logger.Global().Module("main")
	version := buildinfo.Current().GetVersion()

	sentry := settings.Telemetry.Sentry
	if err := errors.InitSentry(sentry.DSN, sentry.Environment, version); err != nil {
		log.Warn("sentry disabled", logger.Error(err))
	} else if sentry.DSN != "" {
		defer errors.FlushSentry(2 * time.Second)
	}

	a, err := app.Open(ctx, settings, app.WithImages(), app.WithEvents())
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("shutdown", logger.Error(err))
		}
	}()
	a.Metrics.InstallErrorHook()

	opts := []api.ServerOption{
		api.WithImages(a.Images),
		api.WithLogger(logger.Global().Module("api")),
	}
	if settings.Metrics.Enabled {
		opts = append(opts, api.WithMetrics(a.Metrics))
	}
	server, err := api.New(settings, a.Trials, opts...)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(ctx) })

	if settings.Metrics.Enabled && settings.Metrics.Listen != "" {
		endpoint, err := observability.NewEndpoint(settings.Metrics, a.Metrics)
		if err != nil {
			return err
		}
		g.Go(func() error { return endpoint.Run(ctx) })
	}

	if settings.ConfigFile() != "" {
		conf.WatchConfig(func(updated *conf.Settings) {
			log.Info("configuration changed; restart to apply database, listener or storage changes",
				logger.Bool("debug", updated.Debug))
		})
	}

	log.Info("trialbase started",
		logger.String("listen", settings.WebServer.Listen),
		logger.String("version", version))

	return g.Wait()
}
