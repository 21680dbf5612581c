package notifications

import "context"

// Event is the well-typed payload the workflow emits on every state change.
// Delivery is fire-and-forget: the emitting transition has already committed
// and must not depend on any subscriber being present.
type Event struct {
	Type         string `json:"type"`
	KPIID        string `json:"kpiId,omitempty"`
	ReviewID     string `json:"reviewId,omitempty"`
	EmployeeID   string `json:"employeeId,omitempty"`
	SectionID    string `json:"sectionId,omitempty"`
	DepartmentID string `json:"departmentId,omitempty"`
	Cycle        string `json:"cycle,omitempty"`
	Status       string `json:"status,omitempty"`
	ActorID      string `json:"actorId,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event)
}
