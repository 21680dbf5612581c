package jobs

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"kpim/internal/platform/config"
	"kpim/internal/platform/metrics"
)

// Recomputer is implemented by the aggregation service.
type Recomputer interface {
	Recompute(ctx context.Context, kpiID string) error
	RecomputeAll(ctx context.Context) error
}

// Service owns the asynchronous aggregation work: a channel worker drains
// per-KPI recompute requests, and a cron sweep recomputes everything as a
// repair pass. Recompute is idempotent, so duplicate deliveries are fine and
// a dropped request is healed by the next sweep.
type Service struct {
	agg     Recomputer
	queue   chan string
	cron    *cron.Cron
	metrics *metrics.Collector
}

func New(agg Recomputer, cfg config.Config, collector *metrics.Collector) *Service {
	return &Service{
		agg:     agg,
		queue:   make(chan string, cfg.RecomputeQueueSize),
		cron:    cron.New(),
		metrics: collector,
	}
}

func (s *Service) Start(ctx context.Context, sweepSpec string) error {
	go s.worker(ctx)

	if sweepSpec != "" {
		if _, err := s.cron.AddFunc(sweepSpec, func() {
			if err := s.agg.RecomputeAll(ctx); err != nil {
				slog.Warn("recompute sweep failed", "err", err)
			}
		}); err != nil {
			return err
		}
		s.cron.Start()
	}
	return nil
}

func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// EnqueueRecompute never blocks a request path: when the queue is full the
// request is dropped and the nightly sweep picks the KPI up.
func (s *Service) EnqueueRecompute(kpiID string) {
	select {
	case s.queue <- kpiID:
	default:
		slog.Warn("recompute queue full, dropping", "kpiId", kpiID)
	}
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case kpiID := <-s.queue:
			err := s.agg.Recompute(ctx, kpiID)
			if err != nil {
				slog.Warn("kpi recompute failed", "kpiId", kpiID, "err", err)
			}
			if s.metrics != nil {
				s.metrics.RecordRecompute(err == nil)
			}
		}
	}
}
