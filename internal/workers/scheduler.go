package workers

import (
	"context"
	"sync"
	"time"

	"huddle/internal/metrics"
	"huddle/pkg/errors"
	"huddle/pkg/logger"
)

// shutdownTimeout bounds how long Stop waits for in-flight iterations;
// a refresh pass is bounded by the provider HTTP timeout plus pacing.
const shutdownTimeout = 30 * time.Second

// Scheduler manages and coordinates multiple workers
type Scheduler struct {
	workers []Worker
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	log     *logger.Logger
	started bool
}

// NewScheduler creates a new worker scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{
		workers: make([]Worker, 0),
		log:     logger.Get(),
	}
}

// RegisterWorker adds a worker to the scheduler
func (s *Scheduler) RegisterWorker(w Worker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		s.log.Warnw("Cannot register worker after scheduler has started", "worker", w.Name())
		return
	}

	s.workers = append(s.workers, w)
	s.log.Infow("Worker registered", "worker", w.Name(), "interval", w.Interval())
}

// Start begins running all registered workers. Each enabled worker
// gets its own loop goroutine.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.Wrapf(errors.ErrInternal, "scheduler already started")
	}

	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.log.Infow("Starting worker scheduler", "workers", len(s.workers))

	for _, worker := range s.workers {
		if !worker.Enabled() {
			s.log.Infow("Skipping disabled worker", "worker", worker.Name())
			continue
		}

		s.wg.Add(1)
		go s.runWorker(worker)
	}

	return nil
}

// Stop gracefully shuts down all workers, waiting up to shutdownTimeout
// for in-flight iterations to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return errors.Wrapf(errors.ErrInternal, "scheduler not started")
	}
	s.cancel()
	s.mu.Unlock()

	s.log.Info("Stopping worker scheduler...")

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	var shutdownErr error
	select {
	case <-done:
		s.log.Info("All workers stopped gracefully")
	case <-time.After(shutdownTimeout):
		s.log.Warnw("Worker shutdown timed out", "timeout", shutdownTimeout)
		shutdownErr = errors.Wrapf(errors.ErrInternal, "shutdown timeout after %s", shutdownTimeout)
	}

	s.mu.Lock()
	s.started = false
	s.mu.Unlock()

	return shutdownErr
}

// runWorker executes a single worker in a loop. Cancellation is
// checked only at the sleep boundary, so an iteration that has started
// always completes. A failed iteration reschedules after the worker's
// cooldown instead of its interval, keeping a persistent fault from
// hammering the provider while guaranteeing the loop itself survives.
func (s *Scheduler) runWorker(worker Worker) {
	defer s.wg.Done()

	s.log.Infow("Worker started", "worker", worker.Name())

	err := s.executeWorker(worker)
	timer := time.NewTimer(s.nextDelay(worker, err))
	defer timer.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.log.Infow("Worker stopping", "worker", worker.Name())
			return

		case <-timer.C:
			err = s.executeWorker(worker)
			timer.Reset(s.nextDelay(worker, err))
		}
	}
}

// nextDelay picks the pause before the next iteration: the cooldown
// after a failure when the worker declares one, the interval otherwise.
func (s *Scheduler) nextDelay(worker Worker, lastErr error) time.Duration {
	if lastErr != nil {
		if cw, ok := worker.(CooldownWorker); ok && cw.Cooldown() > 0 {
			return cw.Cooldown()
		}
	}
	return worker.Interval()
}

// executeWorker runs a single iteration with panic recovery; a panic
// counts as a failed iteration, never a dead loop.
func (s *Scheduler) executeWorker(worker Worker) (err error) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("worker %s panicked: %v", worker.Name(), r)
			s.log.Errorw("Worker panicked",
				"worker", worker.Name(),
				"panic", r,
			)
		}
		metrics.RecordWorkerExecution(worker.Name(), time.Since(start), err)
	}()

	if err = worker.Run(s.ctx); err != nil {
		s.log.Errorw("Worker execution failed",
			"worker", worker.Name(),
			"error", err,
			"duration", time.Since(start),
		)
		return err
	}

	s.log.Debugw("Worker execution completed",
		"worker", worker.Name(),
		"duration", time.Since(start),
	)
	return nil
}

// Workers returns all registered workers for monitoring surfaces.
func (s *Scheduler) Workers() []Worker {
	s.mu.RLock()
	defer s.mu.RUnlock()

	workers := make([]Worker, len(s.workers))
	copy(workers, s.workers)
	return workers
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}
