package storage

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"igsaved/pkg/models"
)

// Subdirectories of the output root, one per media bucket.
const (
	PhotosDir   = "photos"
	VideosDir   = "videos"
	AlbumsDir   = "albums"
	MetadataDir = "metadata"
)

// Manager lays out the download tree and writes files atomically. Asset
// files are written to a temp path and renamed, so an aborted run never
// leaves a half-written file that looks complete.
type Manager struct {
	root string
}

// NewManager creates a storage manager rooted at root, creating the root
// directory if needed. Bucket directories are created on first write.
func NewManager(root string) (*Manager, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Manager{root: root}, nil
}

// Root returns the output root directory.
func (m *Manager) Root() string {
	return m.root
}

// MetadataPath returns the metadata file path for a post.
func (m *Manager) MetadataPath(pk string) string {
	return filepath.Join(m.root, MetadataDir, pk+".json")
}

// bucketFor maps a media kind onto its directory. Reels live with videos;
// carousel children land in albums regardless of their own kind.
func bucketFor(postKind models.MediaKind) string {
	switch postKind {
	case models.KindVideo, models.KindReel:
		return VideosDir
	case models.KindCarousel:
		return AlbumsDir
	default:
		return PhotosDir
	}
}

// AssetPath builds the target path for one asset: {root}/{bucket}/{pk}.{ext}
// for single media, {root}/albums/{pk}_{seq}.{ext} for carousel children.
func (m *Manager) AssetPath(postKind models.MediaKind, pk string, seq int, ext string) string {
	name := pk
	if postKind == models.KindCarousel {
		name = fmt.Sprintf("%s_%d", pk, seq)
	}
	return filepath.Join(m.root, bucketFor(postKind), name+"."+ext)
}

// SaveAsset writes one media binary to its target path atomically and
// returns the path written.
func (m *Manager) SaveAsset(data []byte, postKind models.MediaKind, pk string, seq int, contentType string) (string, error) {
	ext := ExtensionForContentType(contentType, postKind)
	path := m.AssetPath(postKind, pk, seq, ext)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}

	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// WriteMetadataFile writes a post's metadata document atomically and
// returns the path written.
func (m *Manager) WriteMetadataFile(pk string, data []byte) (string, error) {
	path := m.MetadataPath(pk)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create metadata directory: %w", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// writeFileAtomic writes data to a temp file and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tempPath := path + ".tmp"
	out, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, writeErr := out.Write(data)
	closeErr := out.Close()

	if writeErr != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to write file data: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

// ExtensionForContentType derives a file extension from the response
// Content-Type. The URL's apparent extension is never trusted. Unknown
// types fall back to the media kind's conventional extension.
func ExtensionForContentType(contentType string, postKind models.MediaKind) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil {
		switch mediaType {
		case "image/jpeg":
			return "jpg"
		case "image/png":
			return "png"
		case "image/webp":
			return "webp"
		case "image/heic":
			return "heic"
		case "video/mp4":
			return "mp4"
		case "video/webm":
			return "webm"
		case "video/quicktime":
			return "mov"
		}
		if exts, _ := mime.ExtensionsByType(mediaType); len(exts) > 0 {
			return strings.TrimPrefix(exts[0], ".")
		}
		if strings.HasPrefix(mediaType, "video/") {
			return "mp4"
		}
		if strings.HasPrefix(mediaType, "image/") {
			return "jpg"
		}
	}

	switch postKind {
	case models.KindVideo, models.KindReel:
		return "mp4"
	default:
		return "jpg"
	}
}
