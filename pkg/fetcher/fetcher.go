package fetcher

import (
	"context"

	"igsaved/pkg/config"
	"igsaved/pkg/errors"
	"igsaved/pkg/instagram"
	"igsaved/pkg/logger"
	"igsaved/pkg/models"
	"igsaved/pkg/retry"
)

// PageFetcher is the slice of the Instagram client the iterator needs.
type PageFetcher interface {
	FetchSavedPage(ctx context.Context, collectionID, cursor string) (*instagram.SavedPage, error)
}

// Options scope one fetch run.
type Options struct {
	// CollectionID scopes the run to one collection; empty means all
	// saved posts.
	CollectionID string

	// Limit caps the number of distinct posts yielded; zero means no cap.
	Limit int
}

// Iterator walks the saved feed one post at a time, requesting successive
// pages lazily. Usage follows the bufio.Scanner pattern:
//
//	it := fetcher.New(client, opts, retryCfg, log)
//	for it.Next(ctx) {
//		post := it.Post()
//		...
//	}
//	if err := it.Err(); err != nil { ... }
//
// A failing page is retried with bounded backoff before Err reports a
// fetch error; posts already yielded stand.
type Iterator struct {
	client   PageFetcher
	opts     Options
	retryCfg config.RetryConfig
	logger   logger.Logger

	buf     []*models.Post
	current *models.Post
	cursor  string
	more    bool
	started bool
	seen    map[string]struct{}
	yielded int
	err     error
}

// New creates an iterator. It performs no network calls until Next.
func New(client PageFetcher, opts Options, retryCfg config.RetryConfig, log logger.Logger) *Iterator {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Iterator{
		client:   client,
		opts:     opts,
		retryCfg: retryCfg,
		logger:   log,
		seen:     make(map[string]struct{}),
	}
}

// Next advances to the next post, fetching a new page when the buffer is
// exhausted. It returns false at the end of the feed, at the limit, on
// cancellation, or on a terminal fetch error.
func (it *Iterator) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	if it.opts.Limit > 0 && it.yielded >= it.opts.Limit {
		return false
	}

	for {
		if len(it.buf) > 0 {
			it.current = it.buf[0]
			it.buf = it.buf[1:]
			it.yielded++
			return true
		}

		if it.started && !it.more {
			return false
		}

		if !it.fetchPage(ctx) {
			return false
		}
	}
}

// Post returns the post advanced to by the last successful Next call.
func (it *Iterator) Post() *models.Post {
	return it.current
}

// Err returns the error that terminated iteration early, if any.
func (it *Iterator) Err() error {
	return it.err
}

// Count returns the number of posts yielded so far.
func (it *Iterator) Count() int {
	return it.yielded
}

// fetchPage requests the next page with retry and fills the buffer,
// dropping pks already yielded in this run.
func (it *Iterator) fetchPage(ctx context.Context) bool {
	if ctx.Err() != nil {
		it.err = ctx.Err()
		return false
	}

	var page *instagram.SavedPage
	err := retry.Do(ctx, it.logger, "fetch saved page", func() error {
		var fetchErr error
		page, fetchErr = it.client.FetchSavedPage(ctx, it.opts.CollectionID, it.cursor)
		return fetchErr
	}, it.retryCfg)

	if err != nil {
		if ctx.Err() != nil {
			it.err = ctx.Err()
		} else {
			it.err = errors.Wrap(errors.KindFetch, err, "pagination failed")
		}
		it.logger.WithError(err).WithFields(map[string]interface{}{
			"collection_id": it.opts.CollectionID,
			"cursor":        it.cursor,
			"yielded":       it.yielded,
		}).Error("giving up on saved feed page")
		return false
	}

	it.started = true
	it.cursor = page.NextCursor
	it.more = page.More && page.NextCursor != ""

	for _, post := range page.Posts {
		if _, dup := it.seen[post.PK]; dup {
			continue
		}
		it.seen[post.PK] = struct{}{}
		it.buf = append(it.buf, post)
	}

	// An empty page with more available would spin; treat it as the end.
	if len(it.buf) == 0 && len(page.Posts) == 0 {
		it.more = false
	}

	return true
}
