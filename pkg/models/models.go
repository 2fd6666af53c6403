package models

import "time"

// MediaKind is the closed set of media variants a saved post can be.
type MediaKind int

const (
	KindUnknown MediaKind = iota
	KindPhoto
	KindVideo
	KindReel
	KindCarousel
)

// String returns the lowercase name of the media kind.
func (k MediaKind) String() string {
	switch k {
	case KindPhoto:
		return "photo"
	case KindVideo:
		return "video"
	case KindReel:
		return "reel"
	case KindCarousel:
		return "carousel"
	default:
		return "unknown"
	}
}

// Collection is a user-defined named grouping of saved posts, as returned
// by the remote account. Read-only.
type Collection struct {
	ID         string
	Name       string
	MediaCount int
}

// ChildMedia is one item inside a carousel. Seq is the zero-based position.
type ChildMedia struct {
	PK   string
	Seq  int
	Kind MediaKind
	URL  string
}

// Post is one saved post, normalized from the remote feed. Immutable once
// fetched within a run.
type Post struct {
	PK          string
	Kind        MediaKind
	Code        string
	Caption     string
	Username    string
	TakenAt     time.Time
	ProductType string
	Audio       string // track or original-audio title, empty when none

	// AssetURL is the single media URL for photo/video/reel posts.
	AssetURL string

	// Children is non-empty only for carousel posts.
	Children []ChildMedia

	LikeCount    int
	CommentCount int
}

// OutcomeStatus classifies the result of processing one post.
type OutcomeStatus int

const (
	OutcomeSuccess OutcomeStatus = iota
	OutcomePartial
	OutcomeFailure
	OutcomeSkipped
)

func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeSuccess:
		return "success"
	case OutcomePartial:
		return "partial"
	case OutcomeFailure:
		return "failure"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// DownloadOutcome reports what happened to a single post: the paths that
// were written, the carousel children that failed, and the error for a
// full failure.
type DownloadOutcome struct {
	PK        string
	Status    OutcomeStatus
	Paths     []string
	FailedSeq []int
	Err       error
}

// ProgressEvent is emitted once per processed post so presentation shells
// can render progress without the core depending on them.
type ProgressEvent struct {
	PK       string
	Username string
	Kind     MediaKind
	Status   OutcomeStatus
	Err      error
}

// Summary is the final per-run accounting. No failure vanishes from it.
type Summary struct {
	Attempted int
	Succeeded int
	Partial   int
	Failed    int
	Skipped   int
}

// NewDownloads is the count of posts that produced at least one asset.
func (s Summary) NewDownloads() int {
	return s.Succeeded + s.Partial
}
