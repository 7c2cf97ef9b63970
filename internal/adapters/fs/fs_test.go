package fs_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/core/domain"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), domain.DirPerm))
	require.NoError(t, os.WriteFile(path, []byte(content), domain.FilePerm))
}

func TestWalker_WalkFiles(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, ".git", "config"), "git config")
	writeFile(t, filepath.Join(tmpDir, ".kiln", "cache", "blob"), "{}")
	writeFile(t, filepath.Join(tmpDir, "node_modules", "x", "index.js"), "")
	writeFile(t, filepath.Join(tmpDir, "ignored", "file"), "ignored")
	writeFile(t, filepath.Join(tmpDir, "src", "main.ts"), "export {}")
	writeFile(t, filepath.Join(tmpDir, "src", "main.test.ts"), "test")
	writeFile(t, filepath.Join(tmpDir, "README.md"), "# Readme")

	walker := fs.NewWalker()

	var files []string
	for path := range walker.WalkFiles(tmpDir, []string{"ignored", "*.test.ts"}) {
		rel, err := filepath.Rel(tmpDir, path)
		require.NoError(t, err)
		files = append(files, rel)
	}

	assert.Equal(t, []string{"README.md", filepath.Join("src", "main.ts")}, files)
}

func TestWalker_WalkFiles_StopsEarly(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "a"), "a")
	writeFile(t, filepath.Join(tmpDir, "b"), "b")

	count := 0
	for range fs.NewWalker().WalkFiles(tmpDir, nil) {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestSnapshotter_ComputeFileHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.txt")
	writeFile(t, path, "hello world")

	s := fs.NewSnapshotter(fs.NewWalker())

	hash1, err := s.ComputeFileHash(path)
	require.NoError(t, err)
	assert.Len(t, hash1, 16)

	hash2, err := s.ComputeFileHash(path)
	require.NoError(t, err)
	assert.Equal(t, hash1, hash2)

	_, err = s.ComputeFileHash(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorContains(t, err, domain.ErrFileOpenFailed.Error())
}

func TestSnapshotter_CaptureAndValidate(t *testing.T) {
	tmpDir := t.TempDir()
	entry := filepath.Join(tmpDir, "src", "index.ts")
	dep := filepath.Join(tmpDir, "lib", "util.ts")
	writeFile(t, entry, "import './util'")
	writeFile(t, dep, "export const x = 1")

	s := fs.NewSnapshotter(fs.NewWalker())

	snapshot, err := s.Capture([]string{entry, filepath.Join(tmpDir, "lib")})
	require.NoError(t, err)
	require.Len(t, snapshot.Files, 2)
	assert.Contains(t, snapshot.Files, dep)

	t.Run("unchanged", func(t *testing.T) {
		valid, err := s.Validate(snapshot)
		require.NoError(t, err)
		assert.True(t, valid)
	})

	t.Run("touched but same content", func(t *testing.T) {
		later := time.Now().Add(time.Hour)
		require.NoError(t, os.Chtimes(dep, later, later))

		valid, err := s.Validate(snapshot)
		require.NoError(t, err)
		assert.True(t, valid)
	})

	t.Run("same size different content", func(t *testing.T) {
		writeFile(t, dep, "export const y = 1")
		later := time.Now().Add(2 * time.Hour)
		require.NoError(t, os.Chtimes(dep, later, later))

		valid, err := s.Validate(snapshot)
		require.NoError(t, err)
		assert.False(t, valid)
	})

	t.Run("removed", func(t *testing.T) {
		require.NoError(t, os.Remove(entry))

		valid, err := s.Validate(snapshot)
		require.NoError(t, err)
		assert.False(t, valid)
	})
}

func TestSnapshotter_Capture_Missing(t *testing.T) {
	s := fs.NewSnapshotter(fs.NewWalker())

	_, err := s.Capture([]string{filepath.Join(t.TempDir(), "missing.ts")})
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrPathStatFailed.Error())
}
