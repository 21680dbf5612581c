package kpi

import (
	"context"

	"kpim/internal/domain/auth"
)

type StoreAPI interface {
	ListKPIs(ctx context.Context, user auth.UserContext, limit, offset int) ([]KPI, error)
	GetKPI(ctx context.Context, kpiID string) (KPI, error)
	ListAssignments(ctx context.Context, user auth.UserContext, kpiID string, limit, offset int) ([]Assignment, error)
	GetAssignment(ctx context.Context, assignmentID string) (Assignment, error)
	CreateValueRecord(ctx context.Context, assignmentID string, value float64, submittedBy string) (string, error)
	// ResolveValueRecord flips a PENDING record to APPROVED or REJECTED and
	// reports the KPI and employee the assignment belongs to.
	ResolveValueRecord(ctx context.Context, valueID, status string) (kpiID string, employeeID string, err error)
}
