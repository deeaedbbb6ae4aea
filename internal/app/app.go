// Package app assembles the long-lived parts of trialbase from the settings:
// the database manager, the services, the blob store, the event publisher
// and the metrics registry. The CLI commands share it.
package app

import (
	"context"
	stderrors "errors"

	"github.com/regenpgc/trialbase/internal/blob"
	"github.com/regenpgc/trialbase/internal/conf"
	"github.com/regenpgc/trialbase/internal/datastore"
	"github.com/regenpgc/trialbase/internal/errors"
	"github.com/regenpgc/trialbase/internal/fieldtrial"
	"github.com/regenpgc/trialbase/internal/imaging"
	"github.com/regenpgc/trialbase/internal/logger"
	"github.com/regenpgc/trialbase/internal/notify"
	"github.com/regenpgc/trialbase/internal/observability"
)

// App holds the opened components. Close releases them in reverse order.
type App struct {
	Settings  *conf.Settings
	Manager   datastore.Manager
	Metrics   *observability.Metrics
	Publisher notify.Publisher
	Trials    *fieldtrial.Service
	Images    *imaging.Service // nil unless opened WithImages

	log     logger.Logger
	closers []func() error
}

type options struct {
	images  bool
	publish bool
}

// Option selects optional components.
type Option func(*options)

// WithImages opens the blob store and the imaging service.
func WithImages() Option { return func(o *options) { o.images = true } }

// WithEvents connects the MQTT publisher when it is enabled in the settings.
func WithEvents() Option { return func(o *options) { o.publish = true } }

// Open builds the components selected by opts and migrates the schema.
func Open(ctx context.Context, settings *conf.Settings, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		Settings:  settings,
		Publisher: notify.NoopPublisher{},
		log:       logger.Global().Module("app"),
	}

	m, err := observability.NewMetrics()
	if err != nil {
		return nil, err
	}
	a.Metrics = m

	manager, err := datastore.Open(datastore.Config{
		Settings: settings.Database,
		Logger:   logger.Global().Module("datastore"),
		Observer: m.QueryObserver(),
	})
	if err != nil {
		return nil, err
	}
	a.Manager = manager
	a.closers = append(a.closers, manager.Close)

	if err := manager.Initialize(ctx); err != nil {
		return nil, a.closeWith(err)
	}
	a.log.Info("database ready",
		logger.String("driver", manager.Driver()),
		logger.String("location", manager.Path()))

	if o.publish && settings.MQTT.Enabled {
		pub := notify.NewMQTTPublisher(notify.ConfigFromSettings(settings.MQTT), logger.Global().Module("notify"))
		if err := pub.Connect(ctx); err != nil {
			// Events are best effort; the API keeps working without a broker.
			a.log.Warn("mqtt broker unavailable, events disabled", logger.Error(err))
		} else {
			a.Publisher = pub
			a.closers = append(a.closers, pub.Close)
		}
	}

	a.Trials = fieldtrial.NewService(manager.DB(),
		fieldtrial.WithLogger(logger.Global().Module("fieldtrial")),
		fieldtrial.WithPublisher(a.Publisher),
		fieldtrial.WithMetrics(m.Datastore))

	if o.images {
		store, err := blob.Open(ctx, settings.Blob)
		if err != nil {
			return nil, a.closeWith(err)
		}
		a.Images = imaging.NewService(manager.DB(), blob.WithMetrics(store, m.Storage),
			imaging.WithLogger(logger.Global().Module("imaging")),
			imaging.WithPublisher(a.Publisher),
			imaging.WithPresignExpiry(settings.Blob.PresignExpiry))
	}

	return a, nil
}

func (a *App) closeWith(err error) error {
	if cerr := a.Close(); cerr != nil {
		a.log.Warn("cleanup after failed start", logger.Error(cerr))
	}
	return err
}

// Close releases every opened component.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := stderrors.Join(errs...); err != nil {
		return errors.New(err).
			Component("app").
			Category(errors.CategorySystem).
			Context(errors.ContextOperation, "close").
			Build()
	}
	return nil
}
