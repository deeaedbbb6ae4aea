// Package fieldtrial enforces the integrity rules of the trial hierarchy on
// top of the repositories: year bounds, the plot forest, treatment
// assignment and observation bounds. Multi-step writes run in one database
// transaction.
package fieldtrial

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/regenpgc/trialbase/internal/datastore/repository"
	"github.com/regenpgc/trialbase/internal/errors"
	"github.com/regenpgc/trialbase/internal/logger"
	"github.com/regenpgc/trialbase/internal/notify"
)

// Metrics receives service outcomes. observability.DatastoreMetrics
// implements it.
type Metrics interface {
	RecordOperation(operation, status string)
	RecordValidationRejection(rule string)
	RecordCascadeDelete(plots, observations, images int64)
}

type noopMetrics struct{}

func (noopMetrics) RecordOperation(string, string)          {}
func (noopMetrics) RecordValidationRejection(string)        {}
func (noopMetrics) RecordCascadeDelete(int64, int64, int64) {}

// Service is the entry point for writes to the trial hierarchy.
type Service struct {
	db        *gorm.DB
	log       logger.Logger
	publisher notify.Publisher
	metrics   Metrics
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithPublisher sets the event publisher.
func WithPublisher(p notify.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService returns a Service over db.
func NewService(db *gorm.DB, opts ...Option) *Service {
	s := &Service{
		db:        db,
		log:       logger.Global().Module("fieldtrial"),
		publisher: notify.NoopPublisher{},
		metrics:   noopMetrics{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying database handle.
func (s *Service) DB() *gorm.DB { return s.db }

// Transaction runs fn with a copy of the service bound to one database
// transaction. The copy does not publish events.
func (s *Service) Transaction(ctx context.Context, fn func(tx *Service) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		txSvc := *s
		txSvc.db = db
		txSvc.publisher = notify.NoopPublisher{}
		return fn(&txSvc)
	})
}

// repos groups the repositories bound to one handle, either the service
// database or a transaction.
type repos struct {
	db           *gorm.DB
	people       repository.PersonRepository
	reference    repository.ReferenceRepository
	trials       repository.TrialRepository
	treatments   repository.TreatmentRepository
	germplasm    repository.GermplasmRepository
	plots        repository.PlotRepository
	ontology     repository.OntologyRepository
	observations repository.ObservationRepository
	images       repository.ImageRepository
}

func reposFor(db *gorm.DB) repos {
	return repos{
		db:           db,
		people:       repository.NewPersonRepository(db),
		reference:    repository.NewReferenceRepository(db),
		trials:       repository.NewTrialRepository(db),
		treatments:   repository.NewTreatmentRepository(db),
		germplasm:    repository.NewGermplasmRepository(db),
		plots:        repository.NewPlotRepository(db),
		ontology:     repository.NewOntologyRepository(db),
		observations: repository.NewObservationRepository(db),
		images:       repository.NewImageRepository(db),
	}
}

func (s *Service) repos() repos { return reposFor(s.db) }

// inTx runs fn with repositories bound to a new transaction.
func (s *Service) inTx(ctx context.Context, fn func(r repos) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(reposFor(tx))
	})
}

// finish records the outcome of operation and returns err unchanged.
func (s *Service) finish(operation string, err error) error {
	switch {
	case err == nil:
		s.metrics.RecordOperation(operation, "success")
	case errors.IsValidation(err):
		s.metrics.RecordOperation(operation, "rejected")
		s.metrics.RecordValidationRejection(RuleOf(err))
		s.log.Debug("validation failed", logger.String("operation", operation), logger.Error(err))
	case errors.IsConflict(err), errors.IsNotFound(err), errors.IsState(err):
		s.metrics.RecordOperation(operation, "rejected")
	default:
		s.metrics.RecordOperation(operation, "error")
		s.log.Error("operation failed", logger.String("operation", operation), logger.Error(err))
	}
	return err
}

// publish sends an event after a committed write. Failures are logged.
func (s *Service) publish(ctx context.Context, topic string, payload any) {
	if err := s.publisher.Publish(ctx, topic, payload); err != nil {
		s.log.Warn("failed to publish event", logger.String("topic", topic), logger.Error(err))
	}
}

// reference turns a missing referenced row into a validation error on field.
// Other errors are returned unchanged.
func reference(err error, field string) error {
	if err != nil && errors.IsNotFound(err) {
		return errors.New(err).
			Component("fieldtrial").
			Category(errors.CategoryValidation).
			Field(field).
			Context(ContextRule, RuleReference).
			Build()
	}
	return err
}
