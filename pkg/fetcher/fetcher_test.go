package fetcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igsaved/pkg/config"
	"igsaved/pkg/errors"
	"igsaved/pkg/instagram"
	"igsaved/pkg/logger"
	"igsaved/pkg/models"
)

// fakeFetcher serves a scripted sequence of pages or errors.
type fakeFetcher struct {
	pages []pageOrErr
	calls int

	gotCollections []string
	gotCursors     []string
}

type pageOrErr struct {
	page *instagram.SavedPage
	err  error
}

func (f *fakeFetcher) FetchSavedPage(ctx context.Context, collectionID, cursor string) (*instagram.SavedPage, error) {
	f.gotCollections = append(f.gotCollections, collectionID)
	f.gotCursors = append(f.gotCursors, cursor)

	if f.calls >= len(f.pages) {
		return &instagram.SavedPage{}, nil
	}
	entry := f.pages[f.calls]
	f.calls++
	if entry.err != nil {
		return nil, entry.err
	}
	return entry.page, nil
}

func post(pk string) *models.Post {
	return &models.Post{PK: pk, Kind: models.KindPhoto}
}

func page(more bool, next string, posts ...*models.Post) pageOrErr {
	return pageOrErr{page: &instagram.SavedPage{Posts: posts, NextCursor: next, More: more}}
}

func fastRetry() config.RetryConfig {
	return config.RetryConfig{
		MaxAttempts:     2,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Multiplier:      2.0,
	}
}

func collect(t *testing.T, it *Iterator) []string {
	t.Helper()
	var pks []string
	for it.Next(context.Background()) {
		pks = append(pks, it.Post().PK)
	}
	return pks
}

func TestIteratorWalksAllPages(t *testing.T) {
	f := &fakeFetcher{pages: []pageOrErr{
		page(true, "c1", post("1"), post("2")),
		page(true, "c2", post("3")),
		page(false, "", post("4")),
	}}

	it := New(f, Options{}, fastRetry(), logger.NewTestLogger())
	pks := collect(t, it)

	require.NoError(t, it.Err())
	assert.Equal(t, []string{"1", "2", "3", "4"}, pks)
	assert.Equal(t, 4, it.Count())

	// Cursor from each page feeds the next request.
	assert.Equal(t, []string{"", "c1", "c2"}, f.gotCursors)
}

func TestIteratorHonorsLimit(t *testing.T) {
	f := &fakeFetcher{pages: []pageOrErr{
		page(true, "c1", post("1"), post("2"), post("3")),
		page(false, "", post("4")),
	}}

	it := New(f, Options{Limit: 2}, fastRetry(), logger.NewTestLogger())
	pks := collect(t, it)

	require.NoError(t, it.Err())
	assert.Equal(t, []string{"1", "2"}, pks)
	// The second page is never requested.
	assert.Equal(t, 1, f.calls)
}

func TestIteratorScopesToCollection(t *testing.T) {
	f := &fakeFetcher{pages: []pageOrErr{
		page(false, "", post("1")),
	}}

	it := New(f, Options{CollectionID: "1784"}, fastRetry(), logger.NewTestLogger())
	collect(t, it)

	require.NotEmpty(t, f.gotCollections)
	assert.Equal(t, "1784", f.gotCollections[0])
}

func TestIteratorDedupesWithinRun(t *testing.T) {
	f := &fakeFetcher{pages: []pageOrErr{
		page(true, "c1", post("1"), post("2")),
		// The remote shifted and repeated a post across pages.
		page(false, "", post("2"), post("3")),
	}}

	it := New(f, Options{}, fastRetry(), logger.NewTestLogger())
	pks := collect(t, it)

	require.NoError(t, it.Err())
	assert.Equal(t, []string{"1", "2", "3"}, pks)
}

func TestIteratorRetriesTransientPageFailure(t *testing.T) {
	f := &fakeFetcher{pages: []pageOrErr{
		{err: errors.New(errors.KindNetwork, "flaky")},
		page(false, "", post("1")),
	}}

	it := New(f, Options{}, fastRetry(), logger.NewTestLogger())
	pks := collect(t, it)

	require.NoError(t, it.Err())
	assert.Equal(t, []string{"1"}, pks)
}

func TestIteratorTerminalErrorPreservesYielded(t *testing.T) {
	f := &fakeFetcher{pages: []pageOrErr{
		page(true, "c1", post("1"), post("2")),
		{err: errors.New(errors.KindAuth, "session expired")},
	}}

	it := New(f, Options{}, fastRetry(), logger.NewTestLogger())
	pks := collect(t, it)

	// Posts yielded before the failure stand.
	assert.Equal(t, []string{"1", "2"}, pks)
	require.Error(t, it.Err())
	assert.True(t, errors.Is(it.Err(), errors.KindFetch))
}

func TestIteratorStopsOnEmptyPageWithMore(t *testing.T) {
	f := &fakeFetcher{pages: []pageOrErr{
		page(true, "c1"),
	}}

	it := New(f, Options{}, fastRetry(), logger.NewTestLogger())
	pks := collect(t, it)

	require.NoError(t, it.Err())
	assert.Empty(t, pks)
	assert.Equal(t, 1, f.calls)
}

func TestIteratorCancellation(t *testing.T) {
	f := &fakeFetcher{pages: []pageOrErr{
		page(true, "c1", post("1")),
		page(false, "", post("2")),
	}}

	ctx, cancel := context.WithCancel(context.Background())

	it := New(f, Options{}, fastRetry(), logger.NewTestLogger())
	require.True(t, it.Next(ctx))
	cancel()

	assert.False(t, it.Next(ctx))
	assert.ErrorIs(t, it.Err(), context.Canceled)
}
