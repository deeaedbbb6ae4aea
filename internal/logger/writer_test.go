package logger

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferedFileWriter(t *testing.T) {
	t.Parallel()
	t.Attr("component", "logger")

	path := filepath.Join(t.TempDir(), "w.log")
	w, err := NewBufferedFileWriter(path, 0)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			for range 100 {
				_, _ = w.Write([]byte("line\n"))
			}
		})
	}
	wg.Wait()

	require.NoError(t, w.Close())
	require.NoError(t, w.Close(), "close must be idempotent")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, data, 8*100*len("line\n"))

	_, err = w.Write([]byte("late"))
	assert.ErrorIs(t, err, os.ErrClosed)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(LogFilePermissions), info.Mode().Perm())
}
