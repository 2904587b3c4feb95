package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/cv-search/internal/repositories"
)

type Worker interface {
	Start(ctx context.Context)
	Stop()
	EnqueueJob(candidateID uuid.UUID)
}

type worker struct {
	repo         repositories.CandidateRepository
	indexer      IndexerService
	jobQueue     chan uuid.UUID
	concurrency  int
	pollInterval time.Duration
	log          *zap.Logger
	wg           sync.WaitGroup
	stopChan     chan struct{}
	stopOnce     sync.Once
}

func NewWorker(
	repo repositories.CandidateRepository,
	indexer IndexerService,
	concurrency int,
	pollInterval time.Duration,
	log *zap.Logger,
) Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	return &worker{
		repo:         repo,
		indexer:      indexer,
		jobQueue:     make(chan uuid.UUID, 100),
		concurrency:  concurrency,
		pollInterval: pollInterval,
		log:          log,
		stopChan:     make(chan struct{}),
	}
}

func (w *worker) Start(ctx context.Context) {
	w.log.Info("starting index workers", zap.Int("concurrency", w.concurrency))

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}

	w.wg.Add(1)
	go w.pollPendingJobs(ctx)
}

func (w *worker) Stop() {
	w.stopOnce.Do(func() {
		w.log.Info("stopping index workers")
		close(w.stopChan)
	})
	w.wg.Wait()
}

func (w *worker) EnqueueJob(candidateID uuid.UUID) {
	select {
	case w.jobQueue <- candidateID:
		w.log.Debug("index job enqueued", zap.String("candidate_id", candidateID.String()))
	case <-w.stopChan:
		w.log.Warn("worker stopped, job not enqueued", zap.String("candidate_id", candidateID.String()))
	}
}

func (w *worker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()
	log := w.log.With(zap.Int("worker", workerID))

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case id := <-w.jobQueue:
			if err := w.indexer.IndexCandidate(ctx, id); err != nil {
				log.Error("index job failed", zap.String("candidate_id", id.String()), zap.Error(err))
			}
		}
	}
}

// pollPendingJobs picks up queued candidates left over from a restart.
func (w *worker) pollPendingJobs(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			pending, err := w.repo.FindPendingJobs(10)
			if err != nil {
				w.log.Warn("failed to fetch pending jobs", zap.Error(err))
				continue
			}

			if len(pending) > 0 {
				w.log.Info("found pending jobs", zap.Int("count", len(pending)))
			}

			for _, rec := range pending {
				w.EnqueueJob(rec.ID)
			}
		}
	}
}
