package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"PulseWatch/internal/domain/models"
	"PulseWatch/pkg/cache"
	"PulseWatch/pkg/logger"
)

var ErrTickInProgress = errors.New("a monitoring tick is already running")

const tickLockKey = "monitor:tick"

// TickRunner is satisfied by *PriceMonitor.
type TickRunner interface {
	RunTick(ctx context.Context) models.TickReport
}

type SchedulerConfig struct {
	Interval   time.Duration
	RunOnStart bool
	// LockTTL bounds how long a crashed instance can hold the shared tick
	// lock. Zero disables the shared lock.
	LockTTL time.Duration
}

// Scheduler drives ticks on a fixed interval. Ticks never overlap: within a
// process an atomic flag guards RunTick, across replicas a cache lock does.
// A timer firing while a tick is running is skipped, not queued.
type Scheduler struct {
	runner TickRunner
	lock   cache.Service
	log    *logger.Logger
	cfg    SchedulerConfig

	running atomic.Bool
	last    atomic.Pointer[models.TickReport]

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(runner TickRunner, lock cache.Service, log *logger.Logger, cfg SchedulerConfig) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Minute
	}
	return &Scheduler{runner: runner, lock: lock, log: log, cfg: cfg}
}

func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.loop(ctx)
	s.log.Info("monitor scheduler started",
		logger.Duration("interval_ms", s.cfg.Interval),
		logger.Bool("run_on_start", s.cfg.RunOnStart))
}

func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// Trigger runs a tick now unless one is already in flight.
func (s *Scheduler) Trigger(ctx context.Context) (models.TickReport, error) {
	return s.tick(ctx)
}

func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// LastReport returns the most recent completed tick, if any.
func (s *Scheduler) LastReport() (models.TickReport, bool) {
	r := s.last.Load()
	if r == nil {
		return models.TickReport{}, false
	}
	return *r, true
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	if s.cfg.RunOnStart {
		s.runScheduled(ctx)
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runScheduled(ctx)
		}
	}
}

func (s *Scheduler) runScheduled(ctx context.Context) {
	if _, err := s.tick(ctx); errors.Is(err, ErrTickInProgress) {
		s.log.Warn("skipping monitor tick: previous tick still running")
	}
}

func (s *Scheduler) tick(ctx context.Context) (models.TickReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return models.TickReport{}, ErrTickInProgress
	}
	defer s.running.Store(false)

	if s.lock != nil && s.cfg.LockTTL > 0 {
		token, ok, err := s.lock.TryLock(ctx, tickLockKey, s.cfg.LockTTL)
		switch {
		case err != nil:
			// run anyway; the local flag still prevents overlap here
			s.log.Warn("tick lock unavailable", logger.Error(err))
		case !ok:
			return models.TickReport{}, ErrTickInProgress
		default:
			defer func() {
				if err := s.lock.Unlock(context.WithoutCancel(ctx), tickLockKey, token); err != nil {
					s.log.Warn("tick unlock failed", logger.Error(err))
				}
			}()
		}
	}

	report := s.runner.RunTick(ctx)
	s.last.Store(&report)
	return report, nil
}
