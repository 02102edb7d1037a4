package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/crimson-sun/paperscout/internal/digest"
	"github.com/crimson-sun/paperscout/internal/store"
)

const defaultInterval = time.Hour

// RunFunc executes one workflow pass. The scheduler invokes it when a
// digest is due.
type RunFunc func(ctx context.Context) error

// Scheduler periodically checks whether a digest is due and triggers
// the workflow when it is. The due decision lives here; the workflow
// re-checks before actually sending, so a spurious trigger is harmless.
type Scheduler struct {
	store    *store.Store
	run      RunFunc
	log      *zap.Logger
	interval time.Duration
	now      func() time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval overrides the hourly check interval.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.interval = d }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New creates a Scheduler around the store and workflow.
func New(st *store.Store, run RunFunc, log *zap.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:    st,
		run:      run,
		log:      log,
		interval: defaultInterval,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start checks once immediately, then on every tick, until the context
// is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.log.Info("scheduler started", zap.Duration("interval", s.interval))
	s.check(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.check(ctx)
		}
	}
}

func (s *Scheduler) check(ctx context.Context) {
	prefs, err := s.store.GetPreferences()
	if err != nil {
		s.log.Error("load preferences", zap.Error(err))
		return
	}
	if !prefs.DigestEnabled || prefs.Email == "" {
		s.log.Debug("digest disabled or no recipient set")
		return
	}

	if now := s.now(); now.Hour() < prefs.DigestHour {
		s.log.Debug("before digest hour", zap.Int("hour", now.Hour()), zap.Int("digest_hour", prefs.DigestHour))
		return
	}

	last, err := s.store.LastDigestAt()
	if err != nil {
		s.log.Error("last digest", zap.Error(err))
		return
	}
	if !digest.Due(last, prefs.DigestFrequency, s.now()) {
		s.log.Debug("digest not due", zap.Time("last_sent", last))
		return
	}

	s.log.Info("digest due, running workflow", zap.String("frequency", prefs.DigestFrequency))
	if err := s.run(ctx); err != nil {
		s.log.Error("workflow run failed", zap.Error(err))
	}
}
