package auth

// Role is the closed set of caller roles the workflow understands. Handlers
// only ever construct a Role through ParseRole, so an unrecognized role string
// is rejected at the edge instead of leaking into transition dispatch.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleDepartment Role = "department"
	RoleSection    Role = "section"
	RoleEmployee   Role = "employee"
)

func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleAdmin, RoleManager, RoleDepartment, RoleSection, RoleEmployee:
		return Role(raw), true
	}
	return "", false
}

// CompanyScope reports whether the role sees every record unrestricted.
func (r Role) CompanyScope() bool {
	return r == RoleAdmin || r == RoleManager
}

type UserContext struct {
	UserID       string
	EmployeeID   string
	Role         Role
	DepartmentID string
	SectionID    string
}
