package kpi

import "time"

type KPI struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Unit        string     `json:"unit,omitempty"`
	FormulaID   *string    `json:"formulaId,omitempty"`
	ActualValue float64    `json:"actualValue"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

// Assignment binds a KPI to exactly one target: employee, section,
// department, or team.
type Assignment struct {
	ID           string     `json:"id"`
	KPIID        string     `json:"kpiId"`
	EmployeeID   *string    `json:"employeeId,omitempty"`
	SectionID    *string    `json:"sectionId,omitempty"`
	DepartmentID *string    `json:"departmentId,omitempty"`
	TeamID       *string    `json:"teamId,omitempty"`
	TargetValue  float64    `json:"targetValue"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	DeletedAt    *time.Time `json:"deletedAt,omitempty"`
}

type ValueRecord struct {
	ID           string    `json:"id"`
	AssignmentID string    `json:"assignmentId"`
	Value        float64   `json:"value"`
	Status       string    `json:"status"`
	SubmittedBy  string    `json:"submittedBy"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
