// Package scope builds the role-scoped visibility predicate that every
// list and aggregate read query must carry. The predicate is additive: it is
// ANDed onto whatever filter the store already built, never replaces it.
package scope

import (
	"fmt"

	"kpim/internal/domain/auth"
)

// Columns names the SQL columns the predicate compares against, so the same
// rule applies to differently aliased queries.
type Columns struct {
	EmployeeID         string // record's employee, e.g. "rr.employee_id"
	SectionID          string // assignment's target section
	DepartmentID       string // assignment's target department
	SectionDepartment  string // parent department of the assignment's section
	EmployeeSection    string // current section of the assignment's employee
	EmployeeDepartment string // current department of the assignment's employee
}

// Filter appends the visibility condition for user to query/args and returns
// both. Callers with no placement for their role get "AND false": a section
// approver without a section sees nothing, not everything.
func Filter(user auth.UserContext, cols Columns, query string, args []any) (string, []any) {
	switch user.Role {
	case auth.RoleAdmin, auth.RoleManager:
		return query, args

	case auth.RoleSection:
		if user.SectionID == "" {
			return query + " AND false", args
		}
		args = append(args, user.SectionID)
		n := len(args)
		return query + fmt.Sprintf(" AND (%s = $%d OR %s = $%d)",
			cols.SectionID, n, cols.EmployeeSection, n), args

	case auth.RoleDepartment:
		if user.DepartmentID == "" {
			return query + " AND false", args
		}
		args = append(args, user.DepartmentID)
		n := len(args)
		return query + fmt.Sprintf(" AND (%s = $%d OR %s = $%d OR %s = $%d)",
			cols.DepartmentID, n, cols.SectionDepartment, n, cols.EmployeeDepartment, n), args

	default:
		// Self scope for every remaining role.
		if user.EmployeeID == "" {
			return query + " AND false", args
		}
		args = append(args, user.EmployeeID)
		return query + fmt.Sprintf(" AND %s = $%d", cols.EmployeeID, len(args)), args
	}
}
