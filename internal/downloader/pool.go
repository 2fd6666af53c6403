package downloader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"igsaved/pkg/errors"
	"igsaved/pkg/logger"
	"igsaved/pkg/models"
)

// Job is one post to download.
type Job struct {
	Post *models.Post
}

// Result is the outcome of one job.
type Result struct {
	Post     *models.Post
	Outcome  models.DownloadOutcome
	Duration time.Duration
}

// AssetFetcher retrieves media binaries; the Instagram client satisfies it.
type AssetFetcher interface {
	DownloadAsset(ctx context.Context, url string) ([]byte, string, error)
}

// AssetStore persists media binaries; the storage manager satisfies it.
type AssetStore interface {
	SaveAsset(data []byte, postKind models.MediaKind, pk string, seq int, contentType string) (string, error)
}

// WorkerPool downloads independent posts concurrently. Posts never contend
// on the same path or ledger key, so the only required exclusion is each
// post's final commit, which the result consumer owns.
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	client      AssetFetcher
	store       AssetStore
	logger      logger.Logger
}

// NewWorkerPool creates a download worker pool. The parent context bounds
// all network calls issued by the workers.
func NewWorkerPool(ctx context.Context, numWorkers int, client AssetFetcher, store AssetStore, log logger.Logger) *WorkerPool {
	poolCtx, cancel := context.WithCancel(ctx)

	if log == nil {
		log = logger.GetLogger()
	}

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2),
		resultQueue: make(chan Result, numWorkers),
		ctx:         poolCtx,
		cancel:      cancel,
		client:      client,
		store:       store,
		logger:      log,
	}
}

// Start launches the workers.
func (wp *WorkerPool) Start() {
	wp.logger.InfoWithFields("starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the job queue, waits for in-flight work to finish, and
// closes the result queue.
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()

	wp.logger.Info("worker pool stopped")
}

// Submit enqueues a job. It fails once the pool is shutting down.
func (wp *WorkerPool) Submit(job Job) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	}
}

// Results returns the channel of per-post outcomes.
func (wp *WorkerPool) Results() <-chan Result {
	return wp.resultQueue
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		select {
		case <-wp.ctx.Done():
			return
		default:
		}

		result := wp.processJob(job, id)

		select {
		case wp.resultQueue <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

// processJob downloads all assets of one post, dispatching on the media
// kind variant.
func (wp *WorkerPool) processJob(job Job, workerID int) Result {
	start := time.Now()
	post := job.Post

	wp.logger.DebugWithFields("worker processing post", map[string]interface{}{
		"worker_id": workerID,
		"pk":        post.PK,
		"kind":      post.Kind.String(),
	})

	var outcome models.DownloadOutcome
	switch post.Kind {
	case models.KindCarousel:
		outcome = wp.downloadCarousel(post)
	case models.KindPhoto, models.KindVideo, models.KindReel:
		outcome = wp.downloadSingle(post)
	default:
		outcome = models.DownloadOutcome{
			PK:     post.PK,
			Status: models.OutcomeFailure,
			Err:    errors.Newf(errors.KindUnknown, "unsupported media kind for post %s", post.PK),
		}
	}

	duration := time.Since(start)

	if outcome.Status == models.OutcomeFailure {
		wp.logger.ErrorWithFields("post download failed", map[string]interface{}{
			"worker_id": workerID,
			"pk":        post.PK,
			"error":     outcome.Err.Error(),
			"duration":  duration,
		})
	} else {
		wp.logger.DebugWithFields("post download finished", map[string]interface{}{
			"worker_id": workerID,
			"pk":        post.PK,
			"status":    outcome.Status.String(),
			"assets":    len(outcome.Paths),
			"duration":  duration,
		})
	}

	return Result{Post: post, Outcome: outcome, Duration: duration}
}

// downloadSingle retrieves the one asset of a photo, video, or reel.
func (wp *WorkerPool) downloadSingle(post *models.Post) models.DownloadOutcome {
	if post.AssetURL == "" {
		return models.DownloadOutcome{
			PK:     post.PK,
			Status: models.OutcomeFailure,
			Err:    errors.Newf(errors.KindParsing, "post %s has no asset URL", post.PK),
		}
	}

	path, err := wp.fetchAndStore(post.Kind, post.PK, 0, post.AssetURL)
	if err != nil {
		return models.DownloadOutcome{PK: post.PK, Status: models.OutcomeFailure, Err: err}
	}

	return models.DownloadOutcome{
		PK:     post.PK,
		Status: models.OutcomeSuccess,
		Paths:  []string{path},
	}
}

// downloadCarousel retrieves each child independently, continuing past
// individual failures. At least one failed child with at least one
// success is a partial failure; all children failing fails the post.
func (wp *WorkerPool) downloadCarousel(post *models.Post) models.DownloadOutcome {
	outcome := models.DownloadOutcome{PK: post.PK}
	var firstErr error

	for _, child := range post.Children {
		if wp.ctx.Err() != nil {
			// Treat unprocessed children as failed so the commit
			// policy decides; nothing half-written exists for them.
			outcome.FailedSeq = append(outcome.FailedSeq, child.Seq)
			if firstErr == nil {
				firstErr = wp.ctx.Err()
			}
			continue
		}

		if child.URL == "" {
			outcome.FailedSeq = append(outcome.FailedSeq, child.Seq)
			if firstErr == nil {
				firstErr = errors.Newf(errors.KindParsing, "carousel child %d of %s has no asset URL", child.Seq, post.PK)
			}
			continue
		}

		path, err := wp.fetchAndStore(post.Kind, post.PK, child.Seq, child.URL)
		if err != nil {
			outcome.FailedSeq = append(outcome.FailedSeq, child.Seq)
			if firstErr == nil {
				firstErr = err
			}
			wp.logger.WarnWithFields("carousel child failed", map[string]interface{}{
				"pk":    post.PK,
				"seq":   child.Seq,
				"error": err.Error(),
			})
			continue
		}
		outcome.Paths = append(outcome.Paths, path)
	}

	switch {
	case len(outcome.Paths) == 0:
		outcome.Status = models.OutcomeFailure
		outcome.Err = firstErr
		if outcome.Err == nil {
			outcome.Err = errors.Newf(errors.KindUnknown, "carousel %s has no children", post.PK)
		}
	case len(outcome.FailedSeq) > 0:
		outcome.Status = models.OutcomePartial
		outcome.Err = firstErr
	default:
		outcome.Status = models.OutcomeSuccess
	}

	return outcome
}

// fetchAndStore downloads one binary and writes it to its target path.
func (wp *WorkerPool) fetchAndStore(postKind models.MediaKind, pk string, seq int, url string) (string, error) {
	data, contentType, err := wp.client.DownloadAsset(wp.ctx, url)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}

	path, err := wp.store.SaveAsset(data, postKind, pk, seq, contentType)
	if err != nil {
		return "", errors.Wrap(errors.KindWrite, err, "save failed")
	}

	return path, nil
}
