package review

import (
	"context"

	"kpim/internal/domain/auth"
)

// Mutator validates and applies one transition against the locked record.
// Returning an error rolls the whole transition back.
type Mutator func(rec *Record) (HistoryPayload, error)

type StoreAPI interface {
	Get(ctx context.Context, recordID string) (Record, error)
	GetScoped(ctx context.Context, user auth.UserContext, recordID string) (Record, error)
	List(ctx context.Context, user auth.UserContext, cycle, kpiID string, limit, offset int) ([]Record, error)
	ListMine(ctx context.Context, employeeID, cycle string) ([]Record, error)
	ListForSection(ctx context.Context, sectionID, cycle string) ([]Record, error)
	ListForDepartment(ctx context.Context, departmentID, cycle string) ([]Record, error)

	// The Ensure methods lazily create records for approved, non-deleted
	// assignments that have none for the cycle, one per assignment target
	// kind: the employee's own assignments, or the assignments attributed to
	// the section or department unit itself.
	EnsureForEmployee(ctx context.Context, employeeID, cycle string) (int, error)
	EnsureForSection(ctx context.Context, sectionID, cycle string) (int, error)
	EnsureForDepartment(ctx context.Context, departmentID, cycle string) (int, error)

	// Transition runs read+validate+write+history-append as one atomic unit
	// under a row lock.
	Transition(ctx context.Context, recordID, actorID string, mutate Mutator) (Record, error)

	History(ctx context.Context, kpiID, employeeID, cycle string) ([]HistoryEntry, error)
	HistoryForRecord(ctx context.Context, recordID string) ([]HistoryEntry, error)
}
