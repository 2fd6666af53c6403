package archive

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igsaved/pkg/logger"
)

// buildTree writes a small download tree and returns its root.
func buildTree(t *testing.T) string {
	t.Helper()

	root := filepath.Join(t.TempDir(), "downloads")
	files := map[string]string{
		"photos/101.jpg":     "jpeg-bytes",
		"videos/102.mp4":     "mp4-bytes",
		"albums/104_0.jpg":   "child-0",
		"albums/104_1.jpg":   "child-1",
		"metadata/101.json":  `{"pk":"101"}`,
		"metadata/102.json":  `{"pk":"102"}`,
		"metadata/104.json":  `{"pk":"104"}`,
	}
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func zipNames(t *testing.T, path string) []string {
	t.Helper()

	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

func TestCreateIncludesEveryFile(t *testing.T) {
	root := buildTree(t)
	out := filepath.Join(t.TempDir(), "backup.zip")

	require.NoError(t, Create(root, out, Options{}, logger.NewTestLogger()))

	names := zipNames(t, out)
	assert.Equal(t, []string{
		"downloads/albums/104_0.jpg",
		"downloads/albums/104_1.jpg",
		"downloads/metadata/101.json",
		"downloads/metadata/102.json",
		"downloads/metadata/104.json",
		"downloads/photos/101.jpg",
		"downloads/videos/102.mp4",
	}, names)
}

func TestCreatePreservesContent(t *testing.T) {
	root := buildTree(t)
	out := filepath.Join(t.TempDir(), "backup.zip")

	require.NoError(t, Create(root, out, Options{}, logger.NewTestLogger()))

	r, err := zip.OpenReader(out)
	require.NoError(t, err)
	defer r.Close()

	for _, f := range r.File {
		if f.Name != "downloads/photos/101.jpg" {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		assert.Equal(t, []byte("jpeg-bytes"), data)
		return
	}
	t.Fatal("photo entry not found in archive")
}

func TestCreateMetadataOnly(t *testing.T) {
	root := buildTree(t)
	out := filepath.Join(t.TempDir(), "backup.zip")

	require.NoError(t, Create(root, out, Options{MetadataOnly: true}, logger.NewTestLogger()))

	names := zipNames(t, out)
	assert.Equal(t, []string{
		"downloads/metadata/101.json",
		"downloads/metadata/102.json",
		"downloads/metadata/104.json",
	}, names)
}

func TestCreateOverwritesExistingArchive(t *testing.T) {
	root := buildTree(t)
	out := filepath.Join(t.TempDir(), "backup.zip")
	require.NoError(t, os.WriteFile(out, []byte("stale"), 0644))

	require.NoError(t, Create(root, out, Options{}, logger.NewTestLogger()))

	// The result is a valid archive, not the stale bytes.
	assert.NotEmpty(t, zipNames(t, out))
}

func TestCreateSkipsTempFiles(t *testing.T) {
	root := buildTree(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "photos", "999.jpg.tmp"), []byte("partial"), 0644))

	out := filepath.Join(t.TempDir(), "backup.zip")
	require.NoError(t, Create(root, out, Options{}, logger.NewTestLogger()))

	for _, name := range zipNames(t, out) {
		assert.NotContains(t, name, ".tmp")
	}
}

func TestCreateEmptyTree(t *testing.T) {
	root := filepath.Join(t.TempDir(), "downloads")
	require.NoError(t, os.MkdirAll(root, 0755))

	out := filepath.Join(t.TempDir(), "backup.zip")
	require.NoError(t, Create(root, out, Options{}, logger.NewTestLogger()))

	r, err := zip.OpenReader(out)
	require.NoError(t, err)
	defer r.Close()
	assert.Empty(t, r.File)
}
