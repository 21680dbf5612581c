package auth

const (
	PermReviewRead     = "review.read"
	PermReviewSubmit   = "review.submit"
	PermReviewApprove  = "review.approve"
	PermReviewComplete = "review.complete"
	PermKPIRead        = "kpi.read"
	PermValueSubmit    = "kpi.value.submit"
	PermValueApprove   = "kpi.value.approve"
	PermFormulaRead    = "formula.read"
	PermFormulaWrite   = "formula.write"
	PermMetricsRead    = "metrics.read"
)

var DefaultPermissions = []string{
	PermReviewRead,
	PermReviewSubmit,
	PermReviewApprove,
	PermReviewComplete,
	PermKPIRead,
	PermValueSubmit,
	PermValueApprove,
	PermFormulaRead,
	PermFormulaWrite,
	PermMetricsRead,
}

// RolePermissionDefaults seeds the externally managed permission table; the
// workflow itself only ever consults HasPermission through the middleware.
var RolePermissionDefaults = map[Role][]string{
	RoleAdmin:      DefaultPermissions,
	RoleManager:    DefaultPermissions,
	RoleDepartment: {PermReviewRead, PermReviewSubmit, PermReviewApprove, PermKPIRead, PermValueApprove, PermFormulaRead},
	RoleSection:    {PermReviewRead, PermReviewSubmit, PermReviewApprove, PermKPIRead, PermValueApprove, PermFormulaRead},
	RoleEmployee:   {PermReviewRead, PermReviewSubmit, PermKPIRead, PermValueSubmit, PermFormulaRead},
}
