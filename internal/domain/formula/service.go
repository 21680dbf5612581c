package formula

import "context"

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

func (s *Service) List(ctx context.Context) ([]Formula, error) {
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, formulaID string) (Formula, error) {
	return s.store.Get(ctx, formulaID)
}

// Define validates against the canonical scope before anything is persisted,
// so a formula that reaches the table is known to evaluate.
func (s *Service) Define(ctx context.Context, name, expression string, kpiID *string) (string, error) {
	if err := Validate(expression); err != nil {
		return "", err
	}
	return s.store.Create(ctx, name, expression, kpiID)
}

func (s *Service) Update(ctx context.Context, formulaID, name, expression string, kpiID *string) error {
	if err := Validate(expression); err != nil {
		return err
	}
	return s.store.Update(ctx, formulaID, name, expression, kpiID)
}

func (s *Service) Delete(ctx context.Context, formulaID string) error {
	return s.store.Delete(ctx, formulaID)
}

// ForKPI returns the expression bound to a KPI, "" when none is configured.
func (s *Service) ForKPI(ctx context.Context, kpiID string) (string, error) {
	return s.store.ExpressionForKPI(ctx, kpiID)
}
