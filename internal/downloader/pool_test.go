package downloader

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igsaved/pkg/errors"
	"igsaved/pkg/logger"
	"igsaved/pkg/models"
)

// fakeFetcher serves canned bytes by URL and records what was requested.
type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string][]byte
	failures  map[string]error
	requested []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		responses: make(map[string][]byte),
		failures:  make(map[string]error),
	}
}

func (f *fakeFetcher) DownloadAsset(ctx context.Context, url string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	f.mu.Lock()
	f.requested = append(f.requested, url)
	f.mu.Unlock()

	if err, ok := f.failures[url]; ok {
		return nil, "", err
	}
	if data, ok := f.responses[url]; ok {
		return data, "image/jpeg", nil
	}
	return nil, "", errors.Newf(errors.KindNotFound, "no response for %s", url)
}

// fakeStore records saved assets keyed by pk/seq.
type fakeStore struct {
	mu    sync.Mutex
	saved map[string][]byte
	fail  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{saved: make(map[string][]byte)}
}

func (s *fakeStore) SaveAsset(data []byte, postKind models.MediaKind, pk string, seq int, contentType string) (string, error) {
	if s.fail {
		return "", fmt.Errorf("disk full")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("%s_%d", pk, seq)
	s.saved[key] = data
	return "/downloads/" + key + ".jpg", nil
}

// runOne pushes a single post through a one-worker pool and returns its result.
func runOne(t *testing.T, fetcher AssetFetcher, store AssetStore, post *models.Post) Result {
	t.Helper()

	pool := NewWorkerPool(context.Background(), 1, fetcher, store, logger.NewTestLogger())
	pool.Start()
	require.NoError(t, pool.Submit(Job{Post: post}))
	go pool.Stop()

	select {
	case result := <-pool.Results():
		return result
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for result")
		return Result{}
	}
}

func TestDownloadSinglePhoto(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.responses["https://cdn/p1.jpg"] = []byte("photo-bytes")
	store := newFakeStore()

	result := runOne(t, fetcher, store, &models.Post{
		PK:       "p1",
		Kind:     models.KindPhoto,
		AssetURL: "https://cdn/p1.jpg",
	})

	assert.Equal(t, models.OutcomeSuccess, result.Outcome.Status)
	assert.Len(t, result.Outcome.Paths, 1)
	assert.NoError(t, result.Outcome.Err)
	assert.Equal(t, []byte("photo-bytes"), store.saved["p1_0"])
}

func TestDownloadSingleMissingURL(t *testing.T) {
	result := runOne(t, newFakeFetcher(), newFakeStore(), &models.Post{
		PK:   "p2",
		Kind: models.KindVideo,
	})

	assert.Equal(t, models.OutcomeFailure, result.Outcome.Status)
	assert.Empty(t, result.Outcome.Paths)
	assert.True(t, errors.Is(result.Outcome.Err, errors.KindParsing))
}

func TestDownloadSingleFetchError(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.failures["https://cdn/p3.mp4"] = errors.New(errors.KindNetwork, "connection reset")

	result := runOne(t, fetcher, newFakeStore(), &models.Post{
		PK:       "p3",
		Kind:     models.KindReel,
		AssetURL: "https://cdn/p3.mp4",
	})

	assert.Equal(t, models.OutcomeFailure, result.Outcome.Status)
	assert.True(t, errors.Is(result.Outcome.Err, errors.KindNetwork))
}

func TestDownloadSingleStoreError(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.responses["https://cdn/p4.jpg"] = []byte("x")
	store := newFakeStore()
	store.fail = true

	result := runOne(t, fetcher, store, &models.Post{
		PK:       "p4",
		Kind:     models.KindPhoto,
		AssetURL: "https://cdn/p4.jpg",
	})

	assert.Equal(t, models.OutcomeFailure, result.Outcome.Status)
	assert.True(t, errors.Is(result.Outcome.Err, errors.KindWrite))
}

func TestDownloadCarouselAllChildren(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.responses["https://cdn/c_0.jpg"] = []byte("a")
	fetcher.responses["https://cdn/c_1.jpg"] = []byte("b")
	fetcher.responses["https://cdn/c_2.mp4"] = []byte("c")
	store := newFakeStore()

	result := runOne(t, fetcher, store, &models.Post{
		PK:   "c1",
		Kind: models.KindCarousel,
		Children: []models.ChildMedia{
			{PK: "c1a", Seq: 0, Kind: models.KindPhoto, URL: "https://cdn/c_0.jpg"},
			{PK: "c1b", Seq: 1, Kind: models.KindPhoto, URL: "https://cdn/c_1.jpg"},
			{PK: "c1c", Seq: 2, Kind: models.KindVideo, URL: "https://cdn/c_2.mp4"},
		},
	})

	assert.Equal(t, models.OutcomeSuccess, result.Outcome.Status)
	assert.Len(t, result.Outcome.Paths, 3)
	assert.Empty(t, result.Outcome.FailedSeq)
	assert.Len(t, store.saved, 3)
}

func TestDownloadCarouselPartialFailure(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.responses["https://cdn/c_0.jpg"] = []byte("a")
	fetcher.failures["https://cdn/c_1.jpg"] = errors.New(errors.KindNetwork, "timeout")
	fetcher.responses["https://cdn/c_2.jpg"] = []byte("c")

	result := runOne(t, fetcher, newFakeStore(), &models.Post{
		PK:   "c2",
		Kind: models.KindCarousel,
		Children: []models.ChildMedia{
			{Seq: 0, Kind: models.KindPhoto, URL: "https://cdn/c_0.jpg"},
			{Seq: 1, Kind: models.KindPhoto, URL: "https://cdn/c_1.jpg"},
			{Seq: 2, Kind: models.KindPhoto, URL: "https://cdn/c_2.jpg"},
		},
	})

	assert.Equal(t, models.OutcomePartial, result.Outcome.Status)
	assert.Len(t, result.Outcome.Paths, 2)
	assert.Equal(t, []int{1}, result.Outcome.FailedSeq)
	assert.True(t, errors.Is(result.Outcome.Err, errors.KindNetwork))
}

func TestDownloadCarouselAllFail(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.failures["https://cdn/c_0.jpg"] = errors.New(errors.KindNetwork, "timeout")

	result := runOne(t, fetcher, newFakeStore(), &models.Post{
		PK:   "c3",
		Kind: models.KindCarousel,
		Children: []models.ChildMedia{
			{Seq: 0, Kind: models.KindPhoto, URL: "https://cdn/c_0.jpg"},
			{Seq: 1, Kind: models.KindPhoto, URL: ""},
		},
	})

	assert.Equal(t, models.OutcomeFailure, result.Outcome.Status)
	assert.Empty(t, result.Outcome.Paths)
	assert.Equal(t, []int{0, 1}, result.Outcome.FailedSeq)
	assert.Error(t, result.Outcome.Err)
}

func TestDownloadCarouselNoChildren(t *testing.T) {
	result := runOne(t, newFakeFetcher(), newFakeStore(), &models.Post{
		PK:   "c4",
		Kind: models.KindCarousel,
	})

	assert.Equal(t, models.OutcomeFailure, result.Outcome.Status)
	assert.Error(t, result.Outcome.Err)
}

func TestUnknownKindFails(t *testing.T) {
	result := runOne(t, newFakeFetcher(), newFakeStore(), &models.Post{
		PK:   "u1",
		Kind: models.KindUnknown,
	})

	assert.Equal(t, models.OutcomeFailure, result.Outcome.Status)
	assert.True(t, errors.Is(result.Outcome.Err, errors.KindUnknown))
}

func TestPoolProcessesManyJobs(t *testing.T) {
	fetcher := newFakeFetcher()
	store := newFakeStore()

	const n = 20
	for i := 0; i < n; i++ {
		fetcher.responses[fmt.Sprintf("https://cdn/m%d.jpg", i)] = []byte("data")
	}

	pool := NewWorkerPool(context.Background(), 3, fetcher, store, logger.NewTestLogger())
	pool.Start()

	done := make(chan int)
	go func() {
		count := 0
		for result := range pool.Results() {
			assert.Equal(t, models.OutcomeSuccess, result.Outcome.Status)
			count++
		}
		done <- count
	}()

	for i := 0; i < n; i++ {
		require.NoError(t, pool.Submit(Job{Post: &models.Post{
			PK:       fmt.Sprintf("m%d", i),
			Kind:     models.KindPhoto,
			AssetURL: fmt.Sprintf("https://cdn/m%d.jpg", i),
		}}))
	}
	pool.Stop()

	assert.Equal(t, n, <-done)
	assert.Len(t, store.saved, n)
}

func TestSubmitAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewWorkerPool(ctx, 1, newFakeFetcher(), newFakeStore(), logger.NewTestLogger())
	pool.Start()
	cancel()

	// The queue may still accept a buffered job right after cancel, but
	// submission must fail once the shutdown is observed.
	deadline := time.After(2 * time.Second)
	for {
		err := pool.Submit(Job{Post: &models.Post{PK: "late", Kind: models.KindPhoto, AssetURL: "https://cdn/x.jpg"}})
		if err != nil {
			assert.Contains(t, err.Error(), "shutting down")
			return
		}
		select {
		case <-deadline:
			t.Fatal("submit never failed after cancellation")
		default:
		}
	}
}
