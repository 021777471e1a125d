package queue

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Yunusemreunal45/ezcad2-wscad/config"
	"github.com/Yunusemreunal45/ezcad2-wscad/errors"
	"github.com/Yunusemreunal45/ezcad2-wscad/watcher"
)

// Executor runs one claimed job body. On success it fills job.Result;
// infrastructure records the outcome either way.
type Executor interface {
	Execute(ctx context.Context, job *Job) error
}

// SchedulerConfig tunes the worker pool and the janitor
type SchedulerConfig struct {
	Workers      int           // worker pool size (>= 1)
	PollInterval time.Duration // dequeue poll; bounds how fast Stop is observed
	SweepSpec    string        // cron spec for the terminal-record sweep
	SweepAge     time.Duration // terminal records older than this are removed
}

// DefaultSchedulerConfig returns sensible defaults
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Workers:      1,
		PollInterval: time.Second,
		SweepSpec:    "@hourly",
		SweepAge:     24 * time.Hour,
	}
}

// Scheduler runs the worker pool and the bridge goroutine that turns file
// notifications into jobs. A worker loop never dies on an individual job
// failure; dispatch errors are logged and retried after a backoff.
type Scheduler struct {
	queue         *Queue
	executor      Executor
	cfgman        *config.Manager
	schedCfg      SchedulerConfig
	notifications <-chan watcher.Notification
	logger        *zap.SugaredLogger

	parentCtx context.Context
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	janitor   *cron.Cron

	mu      sync.Mutex
	running bool
	active  int // workers currently executing a job
}

// NewScheduler creates a scheduler. notifications may be nil when no
// watcher is wired; the bridge goroutine is skipped in that case.
func NewScheduler(ctx context.Context, db *sql.DB, executor Executor, cfgman *config.Manager,
	schedCfg SchedulerConfig, notifications <-chan watcher.Notification, logger *zap.SugaredLogger) *Scheduler {
	if schedCfg.Workers < 1 {
		schedCfg.Workers = 1
	}
	if schedCfg.PollInterval <= 0 {
		schedCfg.PollInterval = time.Second
	}

	return &Scheduler{
		queue:         NewQueue(db),
		executor:      executor,
		cfgman:        cfgman,
		schedCfg:      schedCfg,
		notifications: notifications,
		logger:        logger.Named("scheduler"),
		parentCtx:     ctx,
	}
}

// Queue exposes the underlying queue for enqueue and inspection
func (s *Scheduler) Queue() *Queue {
	return s.queue
}

// Start spins up the worker pool, the notification bridge, and the sweep
// janitor. Calling Start while running is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("Scheduler already running, ignoring start")
		return
	}
	s.ctx, s.cancel = context.WithCancel(s.parentCtx)
	s.running = true
	s.mu.Unlock()

	// Jobs left running by a previous process will never finish on their own
	if n, err := s.queue.RecoverOrphans(); err != nil {
		s.logger.Warnw("Failed to recover orphaned jobs", "error", err)
	} else if n > 0 {
		s.logger.Infow("Failed orphaned jobs from previous run", "count", n)
	}

	if warning := s.checkMemoryPressure(); warning != "" {
		s.logger.Warnw("Memory pressure warning", "warning", warning, "workers", s.schedCfg.Workers)
	}

	for i := 0; i < s.schedCfg.Workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	if s.notifications != nil {
		s.wg.Add(1)
		go s.bridge()
	}

	if s.schedCfg.SweepSpec != "" {
		s.janitor = cron.New()
		_, err := s.janitor.AddFunc(s.schedCfg.SweepSpec, s.sweep)
		if err != nil {
			s.logger.Errorw("Invalid sweep schedule, janitor disabled",
				"spec", s.schedCfg.SweepSpec, "error", err)
			s.janitor = nil
		} else {
			s.janitor.Start()
		}
	}

	s.logger.Infow("Scheduler started",
		"workers", s.schedCfg.Workers,
		"poll_interval", s.schedCfg.PollInterval)
}

// Stop signals all loops to exit after their current unit of work and
// blocks until they have. Idempotent; safe to call when already stopped.
// Liveness: loops observe the stop signal within about one poll interval,
// though an in-flight job is allowed to finish first.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	janitor := s.janitor
	s.janitor = nil
	s.mu.Unlock()

	if janitor != nil {
		<-janitor.Stop().Done()
	}
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

// Running reports whether the scheduler is started
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// worker repeatedly claims and executes jobs until stopped
func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.schedCfg.PollInterval)
	defer ticker.Stop()

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := s.processNext(); err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, sql.ErrConnDone) {
					return // database closed during shutdown
				}

				// Transient dispatch failure: log, back off, keep the loop alive
				s.logger.Errorw("Worker dispatch error", "worker_id", id, "error", err)
				select {
				case <-s.ctx.Done():
					return
				case <-time.After(backoff):
				}
				if backoff *= 2; backoff > maxBackoff {
					backoff = maxBackoff
				}
			} else {
				backoff = time.Second
			}
		}
	}
}

// processNext claims one job and executes it. Errors from the job body are
// recorded on the record, never returned; only dispatch-level failures
// (store access) propagate to the caller's backoff.
func (s *Scheduler) processNext() error {
	job, err := s.queue.Dequeue()
	if err != nil {
		return err
	}
	if job == nil {
		return nil
	}

	s.mu.Lock()
	s.active++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
	}()

	s.logger.Infow("Job started", "job_id", job.ID, "type", job.Type, "file", job.FilePath)

	if err := s.executeGuarded(job); err != nil {
		s.logger.Errorw("Job failed", "job_id", job.ID, "error", err)
		return s.queue.Fail(job, err)
	}

	s.logger.Infow("Job completed", "job_id", job.ID)
	return s.queue.Complete(job, job.Result)
}

// executeGuarded runs the job body with a panic boundary so a worker loop
// can never crash on one bad job.
func (s *Scheduler) executeGuarded(job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("job body panicked: %v", r)
		}
	}()
	return s.executor.Execute(s.ctx, job)
}

// bridge consumes file notifications and creates jobs when auto-trigger is
// enabled. Job type follows which pattern set matched; watch events carry
// default priority.
func (s *Scheduler) bridge() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case n, ok := <-s.notifications:
			if !ok {
				return
			}
			s.handleNotification(n)
		}
	}
}

func (s *Scheduler) handleNotification(n watcher.Notification) {
	cfg := s.cfgman.Active()

	if !cfg.Settings.AutoTrigger {
		s.logger.Debugw("Auto-trigger disabled, ignoring file", "path", n.Path)
		return
	}

	var jobType Type
	switch {
	case config.ParsePatterns(cfg.Settings.SpreadsheetPattern).Matches(n.Path):
		jobType = TypeSpreadsheet
	case config.ParsePatterns(cfg.Settings.ArtifactPattern).Matches(n.Path):
		jobType = TypeArtifact
	default:
		s.logger.Debugw("File matches no tracked pattern, ignoring", "path", n.Path)
		return
	}

	job, err := s.queue.Enqueue(n.Path, jobType, 0)
	if err != nil {
		s.logger.Errorw("Failed to enqueue watched file", "path", n.Path, "error", err)
		return
	}

	s.logger.Infow("Enqueued watched file",
		"job_id", job.ID, "path", n.Path, "type", jobType, "event", n.Kind)
}

// sweep removes terminal records older than the configured age
func (s *Scheduler) sweep() {
	n, err := s.queue.ClearTerminal(s.schedCfg.SweepAge)
	if err != nil {
		s.logger.Errorw("Terminal job sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Infow("Swept terminal jobs", "removed", n, "older_than", s.schedCfg.SweepAge)
	}
}

// ActiveWorkers returns the number of workers currently executing a job
func (s *Scheduler) ActiveWorkers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
