package dat

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readTree(t *testing.T, root string) map[string]string {
	t.Helper()
	files := make(map[string]string)
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return files
}

func TestExtract(t *testing.T) {
	t.Parallel()

	r, err := OpenSource(buildArchive(t, []testFile{
		{path: "/a.txt", content: "hello world"},
		{path: "dir/b.txt", content: "bbb", compress: true},
		{path: `win\style\c.txt`, content: "c"},
		{path: "empty", content: ""},
	}))
	require.NoError(t, err)

	for _, workers := range []int{-1, 0, 3} {
		dest := t.TempDir()
		var (
			mu     sync.Mutex
			events []ProgressEvent
		)
		stats, err := r.Extract(context.Background(), dest,
			ExtractWithWorkers(workers),
			ExtractWithProgress(func(ev ProgressEvent) {
				mu.Lock()
				defer mu.Unlock()
				events = append(events, ev)
			}))
		require.NoError(t, err)

		assert.Equal(t, ExtractStats{Files: 4, Bytes: 15}, stats)
		assert.Equal(t, map[string]string{
			"a.txt":           "hello world",
			"dir/b.txt":       "bbb",
			"win/style/c.txt": "c",
			"empty":           "",
		}, readTree(t, dest))
		require.Len(t, events, 4)
		for _, ev := range events {
			assert.Equal(t, StageExtracting, ev.Stage)
			assert.Equal(t, 4, ev.FilesTotal)
		}
	}
}

func TestExtractUnsafePath(t *testing.T) {
	t.Parallel()

	for _, bad := range []string{"../evil", "a/../../evil", "/", "a/./b", "a//b"} {
		r, err := OpenSource(buildArchive(t, []testFile{
			{path: "fine", content: "ok"},
			{path: bad, content: "evil"},
		}))
		require.NoError(t, err)

		parent := t.TempDir()
		dest := filepath.Join(parent, "out")
		_, err = r.Extract(context.Background(), dest)
		require.ErrorIs(t, err, ErrUnsafePath, bad)

		_, statErr := os.Stat(dest)
		require.ErrorIs(t, statErr, os.ErrNotExist, "nothing is written for %q", bad)
	}
}

func TestExtractTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"/a.txt", "a.txt"},
		{"//a/b", "a/b"},
		{`\textures\stone.png`, "textures/stone.png"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		got, err := ExtractTarget(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ExtractTarget("..")
	require.ErrorIs(t, err, ErrUnsafePath)
}

func TestExtractOverwrite(t *testing.T) {
	t.Parallel()

	r, err := OpenSource(buildArchive(t, []testFile{
		{path: "a", content: "new a"},
		{path: "b", content: "new b"},
	}))
	require.NoError(t, err)

	dest := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dest, "a"), []byte("old a"), 0o600))

	stats, err := r.Extract(context.Background(), dest)
	require.NoError(t, err)
	assert.Equal(t, ExtractStats{Files: 1, Skipped: 1, Bytes: 5}, stats)
	assert.Equal(t, map[string]string{"a": "old a", "b": "new b"}, readTree(t, dest))

	stats, err = r.Extract(context.Background(), dest, ExtractWithOverwrite(true))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Files)
	assert.Equal(t, map[string]string{"a": "new a", "b": "new b"}, readTree(t, dest))
}

func TestExtractRefusesDirectoryTarget(t *testing.T) {
	t.Parallel()

	r, err := OpenSource(buildArchive(t, []testFile{{path: "a", content: "x"}}))
	require.NoError(t, err)

	dest := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dest, "a"), 0o750))

	_, err = r.Extract(context.Background(), dest, ExtractWithOverwrite(true))
	require.Error(t, err)
	info, statErr := os.Stat(filepath.Join(dest, "a"))
	require.NoError(t, statErr)
	assert.True(t, info.IsDir())
}

func TestExtractPaths(t *testing.T) {
	t.Parallel()

	r, err := OpenSource(buildArchive(t, []testFile{
		{path: "a", content: "a"},
		{path: "b", content: "b"},
		{path: "c", content: "c"},
	}))
	require.NoError(t, err)

	dest := t.TempDir()
	stats, err := r.Extract(context.Background(), dest, ExtractPaths("a", "c"))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Files)
	assert.Equal(t, map[string]string{"a": "a", "c": "c"}, readTree(t, dest))

	_, err = r.Extract(context.Background(), dest, ExtractPaths("missing"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestExtractTargetCollision(t *testing.T) {
	t.Parallel()

	r, err := OpenSource(buildArchive(t, []testFile{
		{path: "/same", content: "first"},
		{path: "same", content: "second"},
	}))
	require.NoError(t, err)

	dest := t.TempDir()
	stats, err := r.Extract(context.Background(), dest)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Files)
	assert.Equal(t, map[string]string{"same": "second"}, readTree(t, dest))
}

func TestExtractCanceled(t *testing.T) {
	t.Parallel()

	r, err := OpenSource(buildArchive(t, []testFile{{path: "a", content: "a"}}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Extract(ctx, t.TempDir())
	require.ErrorIs(t, err, context.Canceled)
}

func TestExtractStrictIntegrity(t *testing.T) {
	t.Parallel()

	data := buildArchive(t, []testFile{{path: "a", content: "payload"}}).Bytes()
	data[HeaderSize] ^= 0xFF

	r, err := OpenSource(bytes.NewReader(data), WithIntegrityPolicy(IntegrityStrict))
	require.NoError(t, err)

	dest := t.TempDir()
	_, err = r.Extract(context.Background(), dest)
	require.ErrorIs(t, err, ErrIntegrity)
	assert.Empty(t, readTree(t, dest))
}
