// Package pipeline wires the fetch, dedupe, download, metadata, and
// archive stages into a single backup run.
package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"igsaved/internal/downloader"
	"igsaved/pkg/archive"
	"igsaved/pkg/config"
	"igsaved/pkg/errors"
	"igsaved/pkg/fetcher"
	"igsaved/pkg/instagram"
	"igsaved/pkg/ledger"
	"igsaved/pkg/logger"
	"igsaved/pkg/metadata"
	"igsaved/pkg/models"
	"igsaved/pkg/storage"
)

// failureLogName is the JSON-lines file, under the data directory, that
// records every post that could not be fully downloaded.
const failureLogName = "failures.log"

// Options select what a single run covers.
type Options struct {
	// CollectionID scopes the run to one collection. Empty means the
	// full saved feed.
	CollectionID string

	// Limit caps the number of posts considered, 0 means no cap.
	Limit int

	// SkipArchive suppresses the end-of-run ZIP even when the config
	// enables it.
	SkipArchive bool

	// MetadataOnlyArchive restricts the ZIP to metadata files.
	MetadataOnlyArchive bool
}

// Pipeline runs one backup of the account's saved posts.
type Pipeline struct {
	cfg    *config.Config
	client *instagram.Client
	logger logger.Logger
	events chan models.ProgressEvent
}

// New builds a pipeline around an authenticated client. The caller must
// drain Events while Run executes; the channel is closed when Run returns.
func New(cfg *config.Config, client *instagram.Client, log logger.Logger) *Pipeline {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Pipeline{
		cfg:    cfg,
		client: client,
		logger: log,
		events: make(chan models.ProgressEvent, 64),
	}
}

// Events streams one event per processed post.
func (p *Pipeline) Events() <-chan models.ProgressEvent {
	return p.events
}

// Run executes the backup. It always returns a summary covering whatever
// was processed before completion, cancellation, or error, and the dedupe
// ledger is persisted in all of those cases.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*models.Summary, error) {
	defer close(p.events)

	summary := &models.Summary{}

	username, err := p.client.VerifySession(ctx)
	if err != nil {
		return summary, err
	}
	p.logger.InfoWithFields("session verified", map[string]interface{}{
		"username": username,
	})

	led, err := ledger.Open(p.cfg.Output.DataDirectory, p.logger)
	if err != nil {
		return summary, err
	}
	defer func() {
		if perr := led.Persist(); perr != nil {
			p.logger.ErrorWithFields("failed to persist download ledger", map[string]interface{}{
				"error": perr.Error(),
			})
		}
	}()

	store, err := storage.NewManager(p.cfg.Output.BaseDirectory)
	if err != nil {
		return summary, err
	}
	metaWriter := metadata.NewWriter(store)

	failLog, err := logger.NewFailureLog(filepath.Join(p.cfg.Output.DataDirectory, failureLogName))
	if err != nil {
		p.logger.WarnWithFields("failure log unavailable", map[string]interface{}{
			"error": err.Error(),
		})
		failLog = nil
	}

	it := fetcher.New(p.client, fetcher.Options{
		CollectionID: opts.CollectionID,
		Limit:        opts.Limit,
	}, p.cfg.Retry, p.logger)

	pool := downloader.NewWorkerPool(ctx, p.cfg.Download.ConcurrentDownloads, p.client, store, p.logger)
	pool.Start()

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		for result := range pool.Results() {
			p.handleResult(result, led, metaWriter, failLog, summary)
		}
	}()

	// The iterator dedupes within the run, so a ledger check here is
	// the only claim needed before a post reaches the pool.
	for it.Next(ctx) {
		post := it.Post()
		if led.Contains(post.PK) {
			summary.Skipped++
			p.logger.DebugWithFields("already downloaded, skipping", map[string]interface{}{
				"pk": post.PK,
			})
			continue
		}
		if submitErr := pool.Submit(downloader.Job{Post: post}); submitErr != nil {
			break
		}
	}

	pool.Stop()
	<-consumerDone

	if iterErr := it.Err(); iterErr != nil {
		return summary, iterErr
	}
	if ctx.Err() != nil {
		return summary, ctx.Err()
	}

	if perr := led.Persist(); perr != nil {
		return summary, perr
	}

	if p.cfg.Archive.Enabled && !opts.SkipArchive {
		archiveOpts := archive.Options{MetadataOnly: opts.MetadataOnlyArchive}
		if aerr := archive.Create(store.Root(), p.cfg.Archive.Path, archiveOpts, p.logger); aerr != nil {
			return summary, aerr
		}
	}

	return summary, nil
}

// handleResult finishes one post: metadata for anything that produced
// assets, a ledger entry only once both media and metadata are on disk,
// and a failure-log line for everything else.
func (p *Pipeline) handleResult(result downloader.Result, led *ledger.Ledger, metaWriter *metadata.Writer, failLog logger.Logger, summary *models.Summary) {
	outcome := result.Outcome
	summary.Attempted++

	if outcome.Status == models.OutcomeSuccess || outcome.Status == models.OutcomePartial {
		downloadedAt := time.Now().UTC()
		if _, werr := metaWriter.Write(result.Post, downloadedAt); werr != nil {
			outcome.Status = models.OutcomeFailure
			outcome.Err = errors.Wrap(errors.KindWrite, werr, "failed to write metadata")
		} else {
			led.MarkDone(result.Post.PK, downloadedAt)
		}
	}

	switch outcome.Status {
	case models.OutcomeSuccess:
		summary.Succeeded++
	case models.OutcomePartial:
		summary.Partial++
		p.logFailure(failLog, result.Post, outcome)
	default:
		summary.Failed++
		p.logFailure(failLog, result.Post, outcome)
	}

	p.events <- models.ProgressEvent{
		PK:       result.Post.PK,
		Username: result.Post.Username,
		Kind:     result.Post.Kind,
		Status:   outcome.Status,
		Err:      outcome.Err,
	}
}

func (p *Pipeline) logFailure(failLog logger.Logger, post *models.Post, outcome models.DownloadOutcome) {
	if failLog == nil {
		return
	}
	fields := map[string]interface{}{
		"pk":       post.PK,
		"username": post.Username,
		"kind":     post.Kind.String(),
		"status":   outcome.Status.String(),
	}
	if len(outcome.FailedSeq) > 0 {
		fields["failed_seq"] = outcome.FailedSeq
	}
	if outcome.Err != nil {
		fields["error"] = outcome.Err.Error()
	}
	failLog.ErrorWithFields("post not fully downloaded", fields)
}
