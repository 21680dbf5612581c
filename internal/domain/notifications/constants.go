package notifications

const (
	TypeSectionPending    = "review.section_pending"
	TypeDepartmentPending = "review.department_pending"
	TypeManagerPending    = "review.manager_pending"
	TypeFeedbackPending   = "review.feedback_pending"
	TypeCompleted         = "review.completed"
	TypeRejected          = "review.rejected"
	TypeValueSubmitted    = "kpi.value.submitted"
	TypeValueApproved     = "kpi.value.approved"
)
