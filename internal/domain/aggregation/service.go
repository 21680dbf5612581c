package aggregation

import (
	"context"
	"fmt"
	"log/slog"

	"kpim/internal/domain/auth"
)

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

// Recompute refreshes the denormalized actual_value cache on the KPI row.
// It is a pure function of the current assignment and value rows, so running
// it twice for the same KPI is harmless; the jobs worker relies on that for
// at-least-once event delivery.
func (s *Service) Recompute(ctx context.Context, kpiID string) error {
	in, err := s.store.LoadInput(ctx, kpiID)
	if err != nil {
		return fmt.Errorf("load aggregation input: %w", err)
	}
	report := Compute(in)
	if err := s.store.UpdateActualValue(ctx, kpiID, report.Actual); err != nil {
		return fmt.Errorf("write actual value: %w", err)
	}
	return nil
}

// RecomputeAll is the repair sweep: a failing KPI is logged and skipped so
// one bad row never blocks the rest.
func (s *Service) RecomputeAll(ctx context.Context) error {
	ids, err := s.store.ListKPIIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.Recompute(ctx, id); err != nil {
			slog.Warn("kpi recompute failed", "kpiId", id, "err", err)
		}
	}
	return nil
}

// Report computes the per-level breakdown for a read path, restricted to the
// caller's visibility. The cached actual_value is not consulted here; reads
// always reflect the rows the caller may see.
func (s *Service) Report(ctx context.Context, user auth.UserContext, kpiID string) (Report, error) {
	in, err := s.store.LoadInputScoped(ctx, kpiID, user)
	if err != nil {
		return Report{}, err
	}
	return Compute(in), nil
}
