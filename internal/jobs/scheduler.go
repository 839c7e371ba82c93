package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/timegrid-hq/timegrid-api/pkg/jobs"
)

// Sweep is a stateless, idempotent job runnable on every tick.
type Sweep interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler ticks registered sweeps on fixed intervals, pushing each run
// through the worker queue so retries and concurrency limits apply.
type Scheduler struct {
	queue  *jobs.Queue
	sweeps map[string]Sweep
	specs  []tickerSpec
	logger *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

type tickerSpec struct {
	name  string
	every time.Duration
}

// NewScheduler builds a scheduler backed by a dedicated queue.
func NewScheduler(cfg jobs.QueueConfig, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		sweeps: make(map[string]Sweep),
		logger: logger,
	}
	s.queue = jobs.NewQueue("sweeps", s.handle, cfg)
	return s
}

// Register adds a sweep with its tick interval. Must be called before Start.
func (s *Scheduler) Register(sweep Sweep, every time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweeps[sweep.Name()] = sweep
	s.specs = append(s.specs, tickerSpec{name: sweep.Name(), every: every})
	s.logger.Sugar().Infow("sweep registered", "sweep", sweep.Name(), "interval", every)
}

// Start launches the queue workers and the interval tickers.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.queue.Start(runCtx)

	for _, spec := range s.specs {
		spec := spec
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			ticker := time.NewTicker(spec.every)
			defer ticker.Stop()
			for {
				select {
				case <-runCtx.Done():
					return
				case <-ticker.C:
					if err := s.queue.Enqueue(jobs.Job{
						ID:       uuid.NewString(),
						Type:     spec.name,
						Enqueued: time.Now(),
					}); err != nil {
						s.logger.Warn("sweep enqueue failed", zap.String("sweep", spec.name), zap.Error(err))
					}
				}
			}
		}()
	}
	s.started = true
}

// Stop halts tickers and drains the queue workers.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.started = false
	s.mu.Unlock()
	s.wg.Wait()
	s.queue.Stop()
}

func (s *Scheduler) handle(ctx context.Context, job jobs.Job) error {
	s.mu.Lock()
	sweep, ok := s.sweeps[job.Type]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown sweep %s", job.Type)
	}
	return sweep.Run(ctx)
}
