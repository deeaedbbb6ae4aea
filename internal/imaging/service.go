// Package imaging stores field photographs in the blob store and tracks the
// model runs over them.
package imaging

import (
	"context"
	"io"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/regenpgc/trialbase/internal/blob"
	"github.com/regenpgc/trialbase/internal/datastore/entities"
	"github.com/regenpgc/trialbase/internal/datastore/repository"
	"github.com/regenpgc/trialbase/internal/errors"
	"github.com/regenpgc/trialbase/internal/fieldtrial"
	"github.com/regenpgc/trialbase/internal/idgen"
	"github.com/regenpgc/trialbase/internal/logger"
	"github.com/regenpgc/trialbase/internal/notify"
)

// KeyPrefix is the blob key prefix of every stored image.
const KeyPrefix = "images"

const purgeConcurrency = 4

// Service uploads images and drives image operations.
type Service struct {
	db            *gorm.DB
	store         blob.Store
	log           logger.Logger
	publisher     notify.Publisher
	now           func() time.Time
	presignExpiry time.Duration
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(l logger.Logger) Option        { return func(s *Service) { s.log = l } }
func WithPublisher(p notify.Publisher) Option  { return func(s *Service) { s.publisher = p } }
func WithClock(now func() time.Time) Option    { return func(s *Service) { s.now = now } }
func WithPresignExpiry(d time.Duration) Option { return func(s *Service) { s.presignExpiry = d } }

// NewService returns a Service storing bytes in store and rows in db.
func NewService(db *gorm.DB, store blob.Store, opts ...Option) *Service {
	s := &Service{
		db:        db,
		store:     store,
		log:       logger.Global().Module("imaging"),
		publisher: notify.NoopPublisher{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UploadRequest describes one image upload.
type UploadRequest struct {
	Filename      string
	Height        int
	Width         int
	ObservationID *string
	ContentType   string
	Body          io.Reader
}

// Key returns the blob key of an image.
func Key(imageID, filename string) string {
	return path.Join(KeyPrefix, imageID, filepath.Base(filename))
}

// Upload validates req, stores its bytes and records the Image row. The blob
// is removed again when the row cannot be written.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*entities.Image, error) {
	req.Filename = strings.TrimSpace(filepath.Base(req.Filename))
	if err := fieldtrial.ValidateImageFile(req.Filename, req.Height, req.Width); err != nil {
		return nil, err
	}
	if req.Body == nil {
		return nil, errors.Newf("image body is required").
			Component("imaging").
			Category(errors.CategoryValidation).
			Field("file").
			Context(fieldtrial.ContextRule, fieldtrial.RuleRequired).
			Build()
	}

	images := repository.NewImageRepository(s.db)
	if req.ObservationID != nil {
		if _, err := repository.NewObservationRepository(s.db).Get(ctx, *req.ObservationID); err != nil {
			return nil, referenceError(err, "observationId")
		}
	}

	img := &entities.Image{
		ID:               idgen.New(idgen.Image),
		Filename:         req.Filename,
		Height:           req.Height,
		Width:            req.Width,
		CreationDateTime: s.now().UTC(),
		ObservationID:    req.ObservationID,
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(req.Filename)))
	}

	key := Key(img.ID, img.Filename)
	info, err := s.store.Put(ctx, key, req.Body, blob.PutOptions{
		ContentType: contentType,
		Metadata:    map[string]string{"image-id": img.ID},
	})
	if err != nil {
		return nil, err
	}
	img.StorageURL = info.URL

	if err := images.CreateImage(ctx, img); err != nil {
		if delErr := s.store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.log.Warn("failed to remove orphaned image blob", logger.String("key", key), logger.Error(delErr))
		}
		return nil, err
	}

	s.log.Info("image uploaded",
		logger.String("image_id", img.ID),
		logger.String("key", key),
		logger.Int64("bytes", info.Size))
	return img, nil
}

// GetImage returns an image row.
func (s *Service) GetImage(ctx context.Context, id string) (*entities.Image, error) {
	return repository.NewImageRepository(s.db).GetImage(ctx, id)
}

// Open returns the image row and a reader over its bytes. The caller closes
// the reader.
func (s *Service) Open(ctx context.Context, id string) (*entities.Image, blob.Info, io.ReadCloser, error) {
	img, err := s.GetImage(ctx, id)
	if err != nil {
		return nil, blob.Info{}, nil, err
	}
	key, err := s.keyOf(img)
	if err != nil {
		return nil, blob.Info{}, nil, err
	}
	info, rc, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, blob.Info{}, nil, err
	}
	return img, info, rc, nil
}

// SignedURL returns a time limited download URL for an image, or
// blob.ErrUnsupported when the store cannot sign URLs.
func (s *Service) SignedURL(ctx context.Context, id string) (string, error) {
	img, err := s.GetImage(ctx, id)
	if err != nil {
		return "", err
	}
	key, err := s.keyOf(img)
	if err != nil {
		return "", err
	}
	return s.store.SignedURL(ctx, key, s.presignExpiry)
}

func (s *Service) keyOf(img *entities.Image) (string, error) {
	key, ok := s.store.KeyFor(img.StorageURL)
	if !ok {
		return "", errors.Newf("image storage url is not served by the %s blob store", s.store.Driver()).
			Component("imaging").
			Category(errors.CategoryStorage).
			Entity("image", img.ID).
			Build()
	}
	return key, nil
}

// PurgeBlobs deletes the blobs behind storage URLs, typically those reported
// by a plot cascade delete. URLs owned by another store are skipped. It
// returns the number of blobs deleted.
func (s *Service) PurgeBlobs(ctx context.Context, urls []string) (int, error) {
	keys := make([]string, 0, len(urls))
	for _, u := range urls {
		key, ok := s.store.KeyFor(u)
		if !ok {
			s.log.Warn("skipping blob owned by another store", logger.String("url", u))
			continue
		}
		keys = append(keys, key)
	}

	errs := make([]error, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(purgeConcurrency)
	for i, key := range keys {
		g.Go(func() error {
			errs[i] = s.store.Delete(gctx, key)
			return nil
		})
	}
	_ = g.Wait()

	deleted := 0
	for _, err := range errs {
		if err == nil {
			deleted++
		}
	}
	if err := errors.Join(errs...); err != nil {
		return deleted, err
	}
	s.log.Debug("purged image blobs", logger.Int("count", deleted))
	return deleted, nil
}

func referenceError(err error, field string) error {
	if errors.IsNotFound(err) {
		return errors.New(err).
			Component("imaging").
			Category(errors.CategoryValidation).
			Field(field).
			Context(fieldtrial.ContextRule, fieldtrial.RuleReference).
			Build()
	}
	return err
}
