package metadata

import (
	"fmt"
	"regexp"
	"time"

	"github.com/goccy/go-json"

	"igsaved/pkg/models"
)

// Record is the JSON document written per downloaded post.
type Record struct {
	PK           string   `json:"pk"`
	MediaType    string   `json:"media_type"`
	Caption      string   `json:"caption"`
	Username     string   `json:"username"`
	TakenAt      string   `json:"taken_at"`
	ProductType  string   `json:"product_type"`
	Audio        *string  `json:"audio"`
	Hashtags     []string `json:"hashtags"`
	Mentions     []string `json:"mentions,omitempty"`
	Code         string   `json:"code,omitempty"`
	LikeCount    int      `json:"like_count"`
	CommentCount int      `json:"comment_count"`
	CarouselSize int      `json:"carousel_count,omitempty"`
	DownloadedAt string   `json:"downloaded_at"`
}

var (
	hashtagRe = regexp.MustCompile(`#(\w+)`)
	mentionRe = regexp.MustCompile(`@(\w+)`)
)

// NewRecord builds the metadata projection of a post.
func NewRecord(post *models.Post, downloadedAt time.Time) *Record {
	rec := &Record{
		PK:           post.PK,
		MediaType:    post.Kind.String(),
		Caption:      post.Caption,
		Username:     post.Username,
		TakenAt:      post.TakenAt.UTC().Format(time.RFC3339),
		ProductType:  post.ProductType,
		Hashtags:     extractTags(hashtagRe, post.Caption),
		Mentions:     extractTags(mentionRe, post.Caption),
		Code:         post.Code,
		LikeCount:    post.LikeCount,
		CommentCount: post.CommentCount,
		CarouselSize: len(post.Children),
		DownloadedAt: downloadedAt.UTC().Format(time.RFC3339),
	}

	if post.Audio != "" {
		audio := post.Audio
		rec.Audio = &audio
	}

	return rec
}

// MetadataStore writes metadata documents; the storage manager satisfies it.
type MetadataStore interface {
	WriteMetadataFile(pk string, data []byte) (string, error)
}

// Writer serializes metadata records through a store.
type Writer struct {
	store MetadataStore
}

// NewWriter creates a metadata writer backed by store.
func NewWriter(store MetadataStore) *Writer {
	return &Writer{store: store}
}

// Write serializes the record for post and returns the path written.
func (w *Writer) Write(post *models.Post, downloadedAt time.Time) (string, error) {
	rec := NewRecord(post, downloadedAt)

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata for %s: %w", post.PK, err)
	}

	path, err := w.store.WriteMetadataFile(post.PK, data)
	if err != nil {
		return "", fmt.Errorf("failed to write metadata for %s: %w", post.PK, err)
	}
	return path, nil
}

// extractTags pulls #tags or @mentions from text, de-duplicated, keeping
// the order of first appearance.
func extractTags(re *regexp.Regexp, text string) []string {
	if text == "" {
		return []string{}
	}

	seen := make(map[string]struct{})
	var tags []string
	for _, match := range re.FindAllStringSubmatch(text, -1) {
		tag := match[1]
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	if tags == nil {
		return []string{}
	}
	return tags
}
