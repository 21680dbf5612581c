package review

import "kpim/internal/domain/auth"

// canSelfReview: a rejection at any level sends the workflow back to the
// employee, so self-review is open from PENDING and every rejected state.
func canSelfReview(status string) bool {
	return status == StatusPending || isRejected(status)
}

func canSectionReview(status string) bool {
	return status == StatusSelfReviewed
}

// ownedBy reports whether the caller is the record's subject. Employee
// records belong to the employee; records attributed to a section or
// department belong to the caller acting for that unit. Section takes
// precedence because section-owned records also carry their department.
func ownedBy(rec *Record, user auth.UserContext) bool {
	switch {
	case rec.EmployeeID != nil:
		return user.EmployeeID != "" && *rec.EmployeeID == user.EmployeeID
	case rec.SectionID != nil:
		return user.Role == auth.RoleSection && user.SectionID != "" && *rec.SectionID == user.SectionID
	case rec.DepartmentID != nil:
		return user.Role == auth.RoleDepartment && user.DepartmentID != "" && *rec.DepartmentID == user.DepartmentID
	}
	return false
}

// ownedByDepartment reports whether the record is attributed to the
// department itself, not to a section or employee inside it. Section-owned
// records carry their department too, so the nil checks matter here.
func ownedByDepartment(rec *Record, departmentID string) bool {
	return rec.EmployeeID == nil && rec.SectionID == nil && rec.DepartmentID != nil &&
		departmentID != "" && *rec.DepartmentID == departmentID
}

// Department and manager approvals are skip-level: they may act even when the
// level below never did.
func canDepartmentReview(status string) bool {
	switch status {
	case StatusSelfReviewed, StatusSectionReviewed, StatusDepartmentReviewed:
		return true
	}
	return false
}

func canManagerReview(status string) bool {
	switch status {
	case StatusSelfReviewed, StatusSectionReviewed, StatusDepartmentReviewed, StatusManagerReviewed:
		return true
	}
	return false
}

// rejectedStatusFor maps the acting role to its terminal rejection state.
// The Role enum is closed, so the false return only fires for roles that hold
// no rejection authority at all.
func rejectedStatusFor(role auth.Role) (string, bool) {
	switch role {
	case auth.RoleAdmin, auth.RoleManager:
		return StatusManagerRejected, true
	case auth.RoleDepartment:
		return StatusDepartmentRejected, true
	case auth.RoleSection:
		return StatusSectionRejected, true
	}
	return "", false
}

// FinalScore resolves the display score for the record's current status:
// the highest workflow stage still valid wins. Recomputed on every read so it
// can never drift from the status.
func FinalScore(rec Record) *float64 {
	switch rec.Status {
	case StatusManagerReviewed, StatusEmployeeFeedback, StatusCompleted:
		return rec.ManagerScore
	case StatusDepartmentReviewed:
		return rec.DepartmentScore
	case StatusSectionReviewed:
		return rec.SectionScore
	case StatusSelfReviewed:
		return rec.SelfScore
	}
	return nil
}
