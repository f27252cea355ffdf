package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/learnsprout/sproutlink/internal/clock"
	ingestdomain "github.com/learnsprout/sproutlink/internal/ingest/domain"
	"github.com/learnsprout/sproutlink/internal/observability/metrics"
	"github.com/learnsprout/sproutlink/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const jobSyncOrders = "sync_orders"

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

type Params struct {
	fx.In

	Log     *zap.Logger
	Clock   clock.Clock
	Ingest  ingestdomain.Service
	Limiter *ratelimit.PublicLimiter `optional:"true"`
	Metrics *metrics.SyncMetrics     `optional:"true"`
	Config  Config                   `optional:"true"`
}

type Scheduler struct {
	log     *zap.Logger
	cfg     Config
	clock   clock.Clock
	ingest  ingestdomain.Service
	limiter *ratelimit.PublicLimiter
	metrics *metrics.SyncMetrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.Ingest == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:     p.Config.withDefaults(),
		clock:   p.Clock,
		ingest:  p.Ingest,
		limiter: p.Limiter,
		metrics: p.Metrics,
	}, nil
}

// RunOnce performs a single sync pass under the run timeout. The
// deadline is a soft stop: an order left unprocessed this run gets
// picked up on the next tick, so hitting it is not an error.
func (s *Scheduler) RunOnce(parent context.Context) error {
	return s.runJob(parent, jobSyncOrders, s.cfg.RunTimeout, func(ctx context.Context) error {
		lockToken, ok, err := s.limiter.TryLockSync(ctx)
		if err != nil {
			return err
		}
		if !ok {
			s.log.Info("sync pass already running elsewhere, skipping")
			return nil
		}
		defer func() {
			if err := s.limiter.ReleaseSync(context.WithoutCancel(ctx), lockToken); err != nil {
				s.log.Warn("sync lock release failed", zap.Error(err))
			}
		}()

		report, err := s.ingest.SyncOrders(ctx)
		if err != nil {
			return err
		}
		if len(report.Failed) > 0 {
			s.log.Warn("sync pass had failed orders", zap.Int("failed", len(report.Failed)))
		}
		return nil
	})
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	s.metrics.IncJobRun(name)
	err := fn(ctx)
	s.metrics.ObserveJobDuration(name, time.Since(start))
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.metrics.IncJobTimeout(name)
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	s.metrics.IncJobError(name, err)
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduled sync failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
