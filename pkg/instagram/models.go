package instagram

import (
	"strconv"
	"time"

	"igsaved/pkg/models"
)

// Wire types for the private feed API. Field names follow the JSON the
// remote actually returns; only what the pipeline consumes is declared.

type currentUserResponse struct {
	User struct {
		PK       int64  `json:"pk"`
		Username string `json:"username"`
	} `json:"user"`
	Status string `json:"status"`
}

type collectionsResponse struct {
	Items []struct {
		CollectionID         string `json:"collection_id"`
		CollectionName       string `json:"collection_name"`
		CollectionType       string `json:"collection_type"`
		CollectionMediaCount int    `json:"collection_media_count"`
	} `json:"items"`
	Status string `json:"status"`
}

type savedFeedResponse struct {
	Items []struct {
		Media *mediaJSON `json:"media"`
	} `json:"items"`
	MoreAvailable bool   `json:"more_available"`
	NextMaxID     string `json:"next_max_id"`
	Status        string `json:"status"`
}

type candidateJSON struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type mediaJSON struct {
	PK          int64  `json:"pk"`
	ID          string `json:"id"`
	Code        string `json:"code"`
	TakenAt     int64  `json:"taken_at"`
	MediaType   int    `json:"media_type"`
	ProductType string `json:"product_type"`

	Caption *struct {
		Text string `json:"text"`
	} `json:"caption"`

	User struct {
		PK       int64  `json:"pk"`
		Username string `json:"username"`
	} `json:"user"`

	ImageVersions2 struct {
		Candidates []candidateJSON `json:"candidates"`
	} `json:"image_versions2"`
	VideoVersions []candidateJSON `json:"video_versions"`
	CarouselMedia []mediaJSON     `json:"carousel_media"`

	ClipsMetadata *struct {
		MusicInfo *struct {
			MusicAssetInfo struct {
				Title         string `json:"title"`
				DisplayArtist string `json:"display_artist"`
			} `json:"music_asset_info"`
		} `json:"music_info"`
		OriginalSoundInfo *struct {
			OriginalAudioTitle string `json:"original_audio_title"`
		} `json:"original_sound_info"`
	} `json:"clips_metadata"`

	LikeCount    int `json:"like_count"`
	CommentCount int `json:"comment_count"`
}

// Remote media_type values.
const (
	mediaTypePhoto    = 1
	mediaTypeVideo    = 2
	mediaTypeCarousel = 8
)

// kind maps the numeric media_type plus product_type onto the closed
// variant. Videos published as clips are reels.
func (m *mediaJSON) kind() models.MediaKind {
	switch m.MediaType {
	case mediaTypePhoto:
		return models.KindPhoto
	case mediaTypeVideo:
		if m.ProductType == "clips" {
			return models.KindReel
		}
		return models.KindVideo
	case mediaTypeCarousel:
		return models.KindCarousel
	default:
		return models.KindUnknown
	}
}

// assetURL picks the best binary URL for a non-carousel media: the first
// video version for videos, the first (largest) image candidate otherwise.
func (m *mediaJSON) assetURL() string {
	if m.MediaType == mediaTypeVideo && len(m.VideoVersions) > 0 {
		return m.VideoVersions[0].URL
	}
	if len(m.ImageVersions2.Candidates) > 0 {
		return m.ImageVersions2.Candidates[0].URL
	}
	return ""
}

// audioTitle extracts the track name for reels, if any.
func (m *mediaJSON) audioTitle() string {
	cm := m.ClipsMetadata
	if cm == nil {
		return ""
	}
	if cm.MusicInfo != nil && cm.MusicInfo.MusicAssetInfo.Title != "" {
		return cm.MusicInfo.MusicAssetInfo.Title
	}
	if cm.OriginalSoundInfo != nil {
		return cm.OriginalSoundInfo.OriginalAudioTitle
	}
	return ""
}

// toPost normalizes a wire media item into the domain Post.
func (m *mediaJSON) toPost() *models.Post {
	post := &models.Post{
		PK:           strconv.FormatInt(m.PK, 10),
		Kind:         m.kind(),
		Code:         m.Code,
		Username:     m.User.Username,
		TakenAt:      time.Unix(m.TakenAt, 0).UTC(),
		ProductType:  m.ProductType,
		Audio:        m.audioTitle(),
		AssetURL:     m.assetURL(),
		LikeCount:    m.LikeCount,
		CommentCount: m.CommentCount,
	}

	if m.Caption != nil {
		post.Caption = m.Caption.Text
	}

	for i, child := range m.CarouselMedia {
		post.Children = append(post.Children, models.ChildMedia{
			PK:   strconv.FormatInt(child.PK, 10),
			Seq:  i,
			Kind: child.kind(),
			URL:  child.assetURL(),
		})
	}

	return post
}
