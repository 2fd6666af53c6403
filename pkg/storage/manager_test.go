package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igsaved/pkg/models"
)

func TestAssetPathLayout(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	tests := []struct {
		name string
		kind models.MediaKind
		pk   string
		seq  int
		ext  string
		want string
	}{
		{"photo", models.KindPhoto, "101", 0, "jpg", filepath.Join("photos", "101.jpg")},
		{"video", models.KindVideo, "102", 0, "mp4", filepath.Join("videos", "102.mp4")},
		{"reel shares the video bucket", models.KindReel, "103", 0, "mp4", filepath.Join("videos", "103.mp4")},
		{"carousel child", models.KindCarousel, "104", 2, "jpg", filepath.Join("albums", "104_2.jpg")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.AssetPath(tt.kind, tt.pk, tt.seq, tt.ext)
			assert.Equal(t, filepath.Join(m.Root(), tt.want), got)
		})
	}
}

func TestSaveAsset(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	path, err := m.SaveAsset([]byte("jpeg-bytes"), models.KindPhoto, "101", 0, "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(m.Root(), "photos", "101.jpg"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), data)

	// No temp file left behind.
	matches, err := filepath.Glob(filepath.Join(m.Root(), "photos", "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSaveAssetCreatesBucketOnDemand(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	// Only the root exists before the first write.
	_, statErr := os.Stat(filepath.Join(m.Root(), "videos"))
	assert.True(t, os.IsNotExist(statErr))

	_, err = m.SaveAsset([]byte("vid"), models.KindReel, "103", 0, "video/mp4")
	require.NoError(t, err)

	_, statErr = os.Stat(filepath.Join(m.Root(), "videos"))
	assert.NoError(t, statErr)
}

func TestWriteMetadataFile(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	path, err := m.WriteMetadataFile("101", []byte(`{"pk": "101"}`))
	require.NoError(t, err)
	assert.Equal(t, m.MetadataPath("101"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"pk": "101"}`, string(data))
}

func TestExtensionForContentType(t *testing.T) {
	tests := []struct {
		contentType string
		kind        models.MediaKind
		want        string
	}{
		{"image/jpeg", models.KindPhoto, "jpg"},
		{"image/jpeg; charset=binary", models.KindPhoto, "jpg"},
		{"image/png", models.KindPhoto, "png"},
		{"image/webp", models.KindPhoto, "webp"},
		{"video/mp4", models.KindReel, "mp4"},
		{"video/quicktime", models.KindVideo, "mov"},
		// Unknown subtypes fall back by type family.
		{"video/x-something", models.KindCarousel, "mp4"},
		{"image/x-other", models.KindCarousel, "jpg"},
		// Missing content type falls back by media kind.
		{"", models.KindVideo, "mp4"},
		{"", models.KindPhoto, "jpg"},
		{"", models.KindCarousel, "jpg"},
	}

	for _, tt := range tests {
		got := ExtensionForContentType(tt.contentType, tt.kind)
		assert.Equal(t, tt.want, got, "content type %q kind %s", tt.contentType, tt.kind)
	}
}
