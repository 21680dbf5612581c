package formula

import "context"

type StoreAPI interface {
	List(ctx context.Context) ([]Formula, error)
	Get(ctx context.Context, formulaID string) (Formula, error)
	Create(ctx context.Context, name, expression string, kpiID *string) (string, error)
	Update(ctx context.Context, formulaID, name, expression string, kpiID *string) error
	Delete(ctx context.Context, formulaID string) error
	ExpressionForKPI(ctx context.Context, kpiID string) (string, error)
}
