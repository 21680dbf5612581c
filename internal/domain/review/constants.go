package review

const (
	StatusPending            = "PENDING"
	StatusSelfReviewed       = "SELF_REVIEWED"
	StatusSectionReviewed    = "SECTION_REVIEWED"
	StatusDepartmentReviewed = "DEPARTMENT_REVIEWED"
	StatusManagerReviewed    = "MANAGER_REVIEWED"
	StatusEmployeeFeedback   = "EMPLOYEE_FEEDBACK"
	StatusCompleted          = "COMPLETED"
	StatusSectionRejected    = "SECTION_REJECTED"
	StatusDepartmentRejected = "DEPARTMENT_REJECTED"
	StatusManagerRejected    = "MANAGER_REJECTED"
)

func isRejected(status string) bool {
	switch status {
	case StatusSectionRejected, StatusDepartmentRejected, StatusManagerRejected:
		return true
	}
	return false
}
