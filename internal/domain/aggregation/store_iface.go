package aggregation

import (
	"context"

	"kpim/internal/domain/auth"
)

type StoreAPI interface {
	LoadInput(ctx context.Context, kpiID string) (Input, error)
	LoadInputScoped(ctx context.Context, kpiID string, user auth.UserContext) (Input, error)
	UpdateActualValue(ctx context.Context, kpiID string, actual float64) error
	ListKPIIDs(ctx context.Context) ([]string, error)
}
