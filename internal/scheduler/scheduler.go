// Package scheduler runs the server's periodic maintenance jobs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	authdomain "github.com/smallbiznis/cbam/internal/auth/domain"
	"github.com/smallbiznis/cbam/internal/clock"
	obscontext "github.com/smallbiznis/cbam/internal/observability/context"
	obslogger "github.com/smallbiznis/cbam/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/cbam/internal/observability/metrics"
	"github.com/smallbiznis/cbam/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobPurgeSessions = "purge_sessions"

	lockPrefix = "cbam:scheduler:"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log     *zap.Logger
	AuthSvc authdomain.Service
	Locker  ratelimit.Locker
	Clock   clock.Clock         `optional:"true"`
	Metrics *obsmetrics.Metrics `optional:"true"`
	Config  Config              `optional:"true"`
}

type Scheduler struct {
	log     *zap.Logger
	cfg     Config
	clock   clock.Clock
	authSvc authdomain.Service
	locker  ratelimit.Locker
	metrics *obsmetrics.Metrics
}

type job struct {
	name string
	run  func(ctx context.Context) (int64, error)
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.AuthSvc == nil || p.Locker == nil {
		return nil, ErrInvalidConfig
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.System()
	}
	return &Scheduler{
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:     p.Config.withDefaults(),
		clock:   clk,
		authSvc: p.AuthSvc,
		locker:  p.Locker,
		metrics: p.Metrics,
	}, nil
}

func (s *Scheduler) jobs() []job {
	return []job{
		{name: JobPurgeSessions, run: func(ctx context.Context) (int64, error) {
			return s.authSvc.PurgeStaleSessions(ctx, s.cfg.BatchSize)
		}},
	}
}

// RunOnce runs every job a single time. A job whose lease is held by another
// replica is skipped.
func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error
	for _, j := range s.jobs() {
		err = errors.Join(err, s.runJob(parent, j))
	}
	return err
}

func (s *Scheduler) runJob(parent context.Context, j job) error {
	ctx := obscontext.WithRequestID(parent, uuid.NewString())
	log := obslogger.WithContext(ctx, s.log).With(zap.String("job", j.name))

	key := lockPrefix + j.name
	token, ok, err := s.locker.TryLock(ctx, key, s.cfg.LockTTL)
	if err != nil {
		s.metrics.RecordJob(j.name, 0, false, err)
		return fmt.Errorf("%s: lock: %w", j.name, err)
	}
	if !ok {
		log.Debug("scheduler.job.skipped", zap.String("reason", "lock_held"))
		s.metrics.RecordJob(j.name, 0, true, nil)
		return nil
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			log.Warn("scheduler.lock.release_failed", zap.Error(err))
		}
	}()

	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	defer cancel()

	log.Info("scheduler.job.start", zap.Int("batch_size", s.cfg.BatchSize))
	processed, err := j.run(ctx)
	elapsed := s.clock.Now().Sub(start)
	s.metrics.RecordJob(j.name, elapsed, false, err)

	fields := []zap.Field{
		zap.Int64("duration_ms", elapsed.Milliseconds()),
		zap.Int64("processed_count", processed),
	}
	if err == nil {
		log.Info("scheduler.job.finish", fields...)
		return nil
	}

	// deadline is a soft timeout, the next tick picks up the rest
	if errors.Is(err, context.DeadlineExceeded) {
		log.Warn("scheduler.job.timeout", append(fields, zap.Duration("timeout", s.cfg.JobTimeout))...)
		return nil
	}
	log.Error("scheduler.job.failed", append(fields, zap.Error(err))...)
	return fmt.Errorf("%s: %w", j.name, err)
}

// RunForever runs all jobs immediately and then on every interval until ctx ends.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
