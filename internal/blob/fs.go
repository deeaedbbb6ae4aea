package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/regenpgc/trialbase/internal/errors"
)

const fsScheme = "file://"

// FSStore keeps blobs as files under a root directory. Each blob has a JSON
// sidecar (<file>.meta) holding its content type, metadata and digest.
type FSStore struct {
	root string
}

type metaFile struct {
	ContentType string            `json:"content_type,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	ETag        string            `json:"etag"`
	Size        int64             `json:"size"`
	CreatedAt   time.Time         `json:"created_at"`
}

// NewFSStore returns a filesystem store rooted at root, creating it if needed.
func NewFSStore(root string) (*FSStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.Newf("filesystem blob root is empty").
			Component("blob").
			Category(errors.CategoryConfiguration).
			Field("blob.fsroot").
			Build()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, storageError(err, "resolve_root", root)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, errors.New(err).
			Component("blob").
			Category(errors.CategoryFileIO).
			Context(errors.ContextOperation, "create_root").
			Build()
	}
	return &FSStore{root: abs}, nil
}

func (s *FSStore) Driver() Driver { return DriverFilesystem }

// Root returns the absolute root directory.
func (s *FSStore) Root() string { return s.root }

func (s *FSStore) paths(key string) (clean, dataPath, metaPath string, err error) {
	clean, err = CleanKey(key)
	if err != nil {
		return "", "", "", err
	}
	dataPath = filepath.Join(s.root, filepath.FromSlash(clean))
	return clean, dataPath, dataPath + ".meta", nil
}

func (s *FSStore) Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error) {
	key, dataPath, metaPath, err := s.paths(key)
	if err != nil {
		return Info{}, err
	}
	if _, err := os.Stat(dataPath); err == nil {
		return Info{}, exists(key)
	}
	if err := os.MkdirAll(filepath.Dir(dataPath), 0o755); err != nil {
		return Info{}, storageError(err, "mkdir", key)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dataPath), ".tmp-*")
	if err != nil {
		return Info{}, storageError(err, "put", key)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return Info{}, storageError(err, "put", key)
	}
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}

	// Link fails if another writer created the file since the Stat above.
	if err := os.Link(tmp.Name(), dataPath); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return Info{}, exists(key)
		}
		return Info{}, storageError(err, "put", key)
	}

	now := time.Now().UTC()
	mf := metaFile{
		ContentType: opts.ContentType,
		Metadata:    cloneMetadata(opts.Metadata),
		ETag:        hex.EncodeToString(h.Sum(nil)),
		Size:        size,
		CreatedAt:   now,
	}
	data, err := json.Marshal(mf)
	if err != nil {
		return Info{}, storageError(err, "put_meta", key)
	}
	if err := os.WriteFile(metaPath, data, 0o600); err != nil {
		_ = os.Remove(dataPath)
		return Info{}, storageError(err, "put_meta", key)
	}

	return s.info(key, mf), nil
}

func (s *FSStore) Get(_ context.Context, key string) (Info, io.ReadCloser, error) {
	key, dataPath, metaPath, err := s.paths(key)
	if err != nil {
		return Info{}, nil, err
	}
	file, err := os.Open(dataPath) //nolint:gosec // path is confined to the root by CleanKey
	if errors.Is(err, fs.ErrNotExist) {
		return Info{}, nil, notFound(key)
	}
	if err != nil {
		return Info{}, nil, storageError(err, "get", key)
	}
	raw, err := os.ReadFile(metaPath) //nolint:gosec // sidecar of a confined path
	if err != nil {
		_ = file.Close()
		return Info{}, nil, storageError(err, "get_meta", key)
	}
	var mf metaFile
	if err := json.Unmarshal(raw, &mf); err != nil {
		_ = file.Close()
		return Info{}, nil, storageError(err, "get_meta", key)
	}
	return s.info(key, mf), file, nil
}

func (s *FSStore) Delete(_ context.Context, key string) error {
	key, dataPath, metaPath, err := s.paths(key)
	if err != nil {
		return err
	}
	for _, p := range []string{dataPath, metaPath} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return storageError(err, "delete", key)
		}
	}
	return nil
}

func (s *FSStore) Locator(key string) string {
	return fsScheme + filepath.ToSlash(filepath.Join(s.root, filepath.FromSlash(key)))
}

func (s *FSStore) KeyFor(locator string) (string, bool) {
	path, ok := strings.CutPrefix(locator, fsScheme)
	if !ok {
		return "", false
	}
	rel, err := filepath.Rel(s.root, filepath.FromSlash(path))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (s *FSStore) SignedURL(context.Context, string, time.Duration) (string, error) {
	return "", ErrUnsupported
}

func (s *FSStore) info(key string, mf metaFile) Info {
	return Info{
		Key:          key,
		Size:         mf.Size,
		ContentType:  mf.ContentType,
		ETag:         mf.ETag,
		Metadata:     cloneMetadata(mf.Metadata),
		LastModified: mf.CreatedAt,
		URL:          s.Locator(key),
	}
}

var _ Store = (*FSStore)(nil)
