package review

import "time"

// Record is one KPI review per (assignment, cycle). It is created lazily,
// mutated only through transitions, and never hard-deleted.
type Record struct {
	ID                string     `json:"id"`
	KPIID             string     `json:"kpiId"`
	EmployeeID        *string    `json:"employeeId,omitempty"`
	DepartmentID      *string    `json:"departmentId,omitempty"`
	SectionID         *string    `json:"sectionId,omitempty"`
	AssignmentID      *string    `json:"assignmentId,omitempty"`
	Cycle             string     `json:"cycle"`
	TargetValue       float64    `json:"targetValue"`
	ActualValue       float64    `json:"actualValue"`
	SelfScore         *float64   `json:"selfScore,omitempty"`
	SelfComment       *string    `json:"selfComment,omitempty"`
	SectionScore      *float64   `json:"sectionScore,omitempty"`
	SectionComment    *string    `json:"sectionComment,omitempty"`
	DepartmentScore   *float64   `json:"departmentScore,omitempty"`
	DepartmentComment *string    `json:"departmentComment,omitempty"`
	ManagerScore      *float64   `json:"managerScore,omitempty"`
	ManagerComment    *string    `json:"managerComment,omitempty"`
	EmployeeFeedback  *string    `json:"employeeFeedback,omitempty"`
	RejectionReason   *string    `json:"rejectionReason,omitempty"`
	Status            string     `json:"status"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// HistoryEntry is one immutable ledger row per transition.
type HistoryEntry struct {
	ID              string    `json:"id"`
	KPIID           string    `json:"kpiId"`
	EmployeeID      *string   `json:"employeeId,omitempty"`
	Cycle           string    `json:"cycle"`
	Status          string    `json:"status"`
	Score           *float64  `json:"score,omitempty"`
	Comment         *string   `json:"comment,omitempty"`
	RejectionReason *string   `json:"rejectionReason,omitempty"`
	ReviewedBy      string    `json:"reviewedBy"`
	CreatedAt       time.Time `json:"createdAt"`
}

// HistoryPayload is what one transition contributes to its ledger row; the
// rest of the entry comes from the post-transition record.
type HistoryPayload struct {
	Score           *float64
	Comment         *string
	RejectionReason *string
}
