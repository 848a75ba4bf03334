package service

import (
	"context"
	"sync"
	"time"

	"cointracker/internal/core/domain"
	"cointracker/internal/core/ports"
	"cointracker/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const drainTimeout = 30 * time.Second

// jobRunner executes a queued job to a terminal state.
type jobRunner interface {
	StartSync(ctx context.Context, address string) (*domain.SyncJob, error)
	GetJob(ctx context.Context, jobID uuid.UUID) (*domain.SyncJob, error)
	Run(ctx context.Context, jobID uuid.UUID) error
}

// Scheduler dispatches sync jobs to a fixed worker pool over a buffered
// queue. Enqueue never blocks: when the queue is full the job is marked
// failed and the caller gets apperror.ErrQueueFull. Per-wallet
// exclusivity is the job store's concern, not the pool's.
type Scheduler struct {
	runner  jobRunner
	jobRepo ports.SyncJobRepository
	log     zerolog.Logger

	queue   chan uuid.UUID
	workers int

	wg       sync.WaitGroup
	stopOnce sync.Once
	baseCtx  context.Context
	cancel   context.CancelFunc
}

// NewScheduler creates a Scheduler with the given pool size and queue
// capacity. Call Start before Enqueue.
func NewScheduler(runner jobRunner, jobRepo ports.SyncJobRepository, workers, queueSize int, log zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		runner:  runner,
		jobRepo: jobRepo,
		log:     log,
		queue:   make(chan uuid.UUID, queueSize),
		workers: workers,
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Start launches the worker pool.
func (s *Scheduler) Start() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
	s.log.Info().Int("workers", s.workers).Int("queue_size", cap(s.queue)).Msg("scheduler started")
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()
	for jobID := range s.queue {
		if err := s.runner.Run(s.baseCtx, jobID); err != nil {
			s.log.Warn().Err(err).Int("worker", id).Str("job_id", jobID.String()).Msg("job finished with error")
		}
	}
}

// Enqueue creates a queued job for the wallet and hands it to the pool
// without blocking the caller. The returned id can be polled via GetJob.
func (s *Scheduler) Enqueue(ctx context.Context, address string) (uuid.UUID, error) {
	job, err := s.runner.StartSync(ctx, address)
	if err != nil {
		return uuid.Nil, err
	}

	select {
	case s.queue <- job.ID:
		return job.ID, nil
	default:
		// Queue saturated. The row exists, so fail it rather than leave
		// a queued job nothing will ever pick up.
		s.failUndispatched(ctx, job.ID)
		return uuid.Nil, apperror.ErrQueueFull()
	}
}

// GetJob returns the job snapshot or apperror.ErrJobNotFound.
func (s *Scheduler) GetJob(ctx context.Context, jobID uuid.UUID) (*domain.SyncJob, error) {
	return s.runner.GetJob(ctx, jobID)
}

func (s *Scheduler) failUndispatched(ctx context.Context, jobID uuid.UUID) {
	s.log.Warn().Str("job_id", jobID.String()).Msg("sync queue full, rejecting job")
	if err := s.jobRepo.MarkFailed(ctx, jobID, time.Now().UTC(), "sync queue full"); err != nil {
		s.log.Error().Err(err).Str("job_id", jobID.String()).Msg("failed to mark rejected job")
	}
}

// Stop closes the queue and waits for in-flight jobs, bounded by
// drainTimeout. Jobs still running after the bound are abandoned; their
// contexts are cancelled so they fail and record a message.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.queue)

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			s.log.Info().Msg("scheduler drained")
		case <-time.After(drainTimeout):
			s.log.Warn().Msg("scheduler drain timed out, cancelling in-flight jobs")
			s.cancel()
			<-done
		}
		s.cancel()
	})
}
