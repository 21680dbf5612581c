package kpi

const (
	ValueStatusPending  = "PENDING"
	ValueStatusApproved = "APPROVED"
	ValueStatusRejected = "REJECTED"

	AssignmentStatusPending  = "PENDING"
	AssignmentStatusApproved = "APPROVED"
)
