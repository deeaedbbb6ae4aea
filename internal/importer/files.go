package importer

import (
	"os"
	"slices"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/regenpgc/trialbase/internal/errors"
)

// ExpandPatterns resolves doublestar glob patterns (including **) to a
// sorted, de-duplicated list of regular files. A pattern that matches
// nothing is an error.
func ExpandPatterns(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		if !doublestar.ValidatePathPattern(pattern) {
			return nil, errors.Newf("invalid file pattern %q", pattern).
				Component("importer").
				Category(errors.CategoryValidation).
				Field("pattern").
				Build()
		}
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, errors.New(err).
				Component("importer").
				Category(errors.CategoryFileIO).
				Context("pattern", pattern).
				Build()
		}
		if len(matches) == 0 {
			return nil, errors.Newf("no files match %q", pattern).
				Component("importer").
				Category(errors.CategoryNotFound).
				Context("pattern", pattern).
				Build()
		}
		for _, m := range matches {
			if seen[m] {
				continue
			}
			if fi, err := os.Stat(m); err != nil || !fi.Mode().IsRegular() {
				continue
			}
			seen[m] = true
			files = append(files, m)
		}
	}
	slices.Sort(files)
	return files, nil
}
