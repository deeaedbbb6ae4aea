package blob

import (
	"context"
	"strings"

	"github.com/regenpgc/trialbase/internal/conf"
	"github.com/regenpgc/trialbase/internal/errors"
)

// Open builds the store selected by the blob configuration section. An empty
// driver selects the filesystem store.
func Open(ctx context.Context, settings conf.BlobSettings) (Store, error) {
	switch Driver(strings.ToLower(strings.TrimSpace(settings.Driver))) {
	case "", DriverFilesystem:
		return NewFSStore(settings.FSRoot)
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverS3:
		return NewS3Store(ctx, S3ConfigFromSettings(settings.S3))
	default:
		return nil, errors.Newf("unsupported blob driver %q", settings.Driver).
			Component("blob").
			Category(errors.CategoryConfiguration).
			Field("blob.driver").
			Build()
	}
}
