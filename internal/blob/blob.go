// Package blob stores image bytes outside the relational database. Keys are
// slash separated relative paths; every store also hands out a locator URL
// that is persisted on the Image row and can be resolved back to a key.
package blob

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/regenpgc/trialbase/internal/errors"
)

// Driver identifies a concrete blob storage backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverMemory     Driver = "memory"
	DriverS3         Driver = "s3"
)

// Sentinel errors returned by every store.
var (
	ErrNotFound    = errors.NewStd("blob not found")
	ErrExists      = errors.NewStd("blob already exists")
	ErrInvalidKey  = errors.NewStd("invalid blob key")
	ErrUnsupported = errors.NewStd("operation not supported by blob driver")
)

// PutOptions are optional parameters for Put.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Info describes a stored blob.
type Info struct {
	Key          string
	Size         int64
	ContentType  string
	ETag         string
	Metadata     map[string]string
	LastModified time.Time
	URL          string
}

// Store is a create-only key/value store for binary objects.
type Store interface {
	Driver() Driver
	// Put stores r under key. It fails with ErrExists when key is taken.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Locator returns the URL persisted for key.
	Locator(key string) string
	// KeyFor resolves a locator produced by this store back to its key.
	KeyFor(locator string) (string, bool)
	// SignedURL returns a time limited download URL, or ErrUnsupported.
	SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// CleanKey validates key and returns its normalized form.
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	switch {
	case key == "":
		return "", errors.New(ErrInvalidKey).Component("blob").Category(errors.CategoryValidation).Field("key").Build()
	case strings.HasPrefix(key, "/"), strings.Contains(key, "\\"):
		return "", errors.New(ErrInvalidKey).Component("blob").Category(errors.CategoryValidation).Field("key").Context("key", key).Build()
	}
	for seg := range strings.SplitSeq(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", errors.New(ErrInvalidKey).Component("blob").Category(errors.CategoryValidation).Field("key").Context("key", key).Build()
		}
	}
	return key, nil
}

func notFound(key string) error {
	return errors.New(ErrNotFound).
		Component("blob").
		Category(errors.CategoryNotFound).
		Entity("blob", key).
		Build()
}

func exists(key string) error {
	return errors.New(ErrExists).
		Component("blob").
		Category(errors.CategoryConflict).
		Entity("blob", key).
		Build()
}

func storageError(err error, op, key string) error {
	return errors.New(err).
		Component("blob").
		Category(errors.CategoryStorage).
		Context(errors.ContextOperation, op).
		Context("key", key).
		Build()
}

func cloneMetadata(md map[string]string) map[string]string {
	if len(md) == 0 {
		return nil
	}
	out := make(map[string]string, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}
