// Package local_test tests the local filesystem blob store.
package local_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/keyword-crawler/internal/storage"
	"github.com/JakeFAU/keyword-crawler/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		store, err := local.New(local.Config{BaseDir: t.TempDir()})
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("CreatesMissingDir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "artifacts", "run")
		_, err := local.New(local.Config{BaseDir: dir})
		require.NoError(t, err)
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		_, err := local.New(local.Config{BaseDir: file})
		assert.Error(t, err)
	})

	t.Run("BaseDirNotWritable", func(t *testing.T) {
		if os.Geteuid() == 0 {
			t.Skip("root ignores directory permissions")
		}
		tempDir := t.TempDir()
		// #nosec G302 -- directory permissions adjusted intentionally for test coverage.
		require.NoError(t, os.Chmod(tempDir, 0o500))
		t.Cleanup(func() {
			// #nosec G302 -- reverting permissions to allow cleanup.
			_ = os.Chmod(tempDir, 0o700)
		})
		_, err := local.New(local.Config{BaseDir: tempDir})
		assert.Error(t, err)
	})
}

func TestObjectLifecycle(t *testing.T) {
	ctx := context.Background()
	tempDir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: tempDir})
	require.NoError(t, err)

	t.Run("PutGetDelete", func(t *testing.T) {
		data := []byte("<html>data science</html>")
		uri, err := store.PutObject(ctx, "page_0.html", "text/html", bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, "file://"+filepath.Join(tempDir, "page_0.html"), uri)

		rc, err := store.GetObject(ctx, "page_0.html")
		require.NoError(t, err)
		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		assert.Equal(t, data, got)

		require.NoError(t, store.DeleteObject(ctx, "page_0.html"))
		_, err = os.Stat(filepath.Join(tempDir, "page_0.html"))
		assert.True(t, os.IsNotExist(err))
		require.NoError(t, store.DeleteObject(ctx, "page_0.html"), "second delete is a no-op")
	})

	t.Run("NestedPath", func(t *testing.T) {
		_, err := store.PutObject(ctx, "a/b/page_1.html", "text/html", bytes.NewReader([]byte("nested")))
		require.NoError(t, err)
		// #nosec G304 -- test reads from the controlled temp directory.
		readData, err := os.ReadFile(filepath.Join(tempDir, "a", "b", "page_1.html"))
		require.NoError(t, err)
		assert.Equal(t, "nested", string(readData))
	})

	t.Run("OverwriteTruncates", func(t *testing.T) {
		_, err := store.PutObject(ctx, "page_2.html", "text/html", bytes.NewReader([]byte("long content")))
		require.NoError(t, err)
		_, err = store.PutObject(ctx, "page_2.html", "text/html", bytes.NewReader([]byte("short")))
		require.NoError(t, err)
		// #nosec G304 -- test reads from the controlled temp directory.
		readData, err := os.ReadFile(filepath.Join(tempDir, "page_2.html"))
		require.NoError(t, err)
		assert.Equal(t, "short", string(readData))
	})

	t.Run("MissingObject", func(t *testing.T) {
		_, err := store.GetObject(ctx, "page_404.html")
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("InvalidPaths", func(t *testing.T) {
		_, err := store.PutObject(ctx, "", "text/html", bytes.NewReader([]byte("data")))
		require.ErrorIs(t, err, storage.ErrInvalidPath)
		_, err = store.PutObject(ctx, "../outside.html", "text/html", bytes.NewReader([]byte("data")))
		require.ErrorIs(t, err, storage.ErrInvalidPath)
	})
}
