package aggregation

import (
	"log/slog"
	"math"

	"kpim/internal/domain/formula"
)

// EmployeeValue is one active employee-targeted assignment. Value is nil when
// the assignment has no approved value record yet; its target still counts.
type EmployeeValue struct {
	AssignmentID string
	EmployeeID   string
	SectionID    string
	Target       float64
	Value        *float64
}

// SectionAssignment is an active section-targeted assignment.
type SectionAssignment struct {
	AssignmentID string
	SectionID    string
	DepartmentID string
	Target       float64
}

// DepartmentAssignment is an active department-targeted assignment.
type DepartmentAssignment struct {
	AssignmentID string
	DepartmentID string
	Target       float64
}

type Input struct {
	KPIID       string
	Expression  string // "" means no formula: fall back to summation
	Employees   []EmployeeValue
	Sections    []SectionAssignment
	Departments []DepartmentAssignment
}

type LevelActual struct {
	TargetID string  `json:"targetId"`
	Actual   float64 `json:"actual"`
	Target   float64 `json:"target"`
	HasValue bool    `json:"hasValue"`
}

type Report struct {
	KPIID       string        `json:"kpiId"`
	Actual      float64       `json:"actualValue"`
	Source      string        `json:"source"` // level the headline value came from
	Employees   []LevelActual `json:"employees,omitempty"`
	Sections    []LevelActual `json:"sections,omitempty"`
	Departments []LevelActual `json:"departments,omitempty"`
}

const (
	SourceDepartment = "department"
	SourceSection    = "section"
	SourceEmployee   = "employee"
	SourceNone       = "none"
)

// Compute rolls assignment values up strictly bottom-up: employees feed
// sections, sections feed departments, and the headline value is taken from
// the most aggregated level that has assignments at all. Levels are never
// mixed in one aggregate.
func Compute(in Input) Report {
	report := Report{KPIID: in.KPIID, Source: SourceNone}

	// Employee pass: approved values only; targets always.
	sectionValues := map[string][]float64{}
	sectionTargets := map[string][]float64{}
	sectionOrder := []string{}
	for _, ev := range in.Employees {
		entry := LevelActual{TargetID: ev.EmployeeID, Target: ev.Target}
		if ev.Value != nil {
			entry.Actual = *ev.Value
			entry.HasValue = true
		}
		report.Employees = append(report.Employees, entry)

		if _, seen := sectionTargets[ev.SectionID]; !seen {
			sectionOrder = append(sectionOrder, ev.SectionID)
		}
		sectionTargets[ev.SectionID] = append(sectionTargets[ev.SectionID], ev.Target)
		if ev.Value != nil {
			sectionValues[ev.SectionID] = append(sectionValues[ev.SectionID], *ev.Value)
		}
	}

	// Section pass.
	sectionActuals := map[string]float64{}
	for _, sectionID := range sectionOrder {
		sectionActuals[sectionID] = aggregate(in.KPIID, in.Expression, sectionValues[sectionID], sectionTargets[sectionID])
	}
	for _, sa := range in.Sections {
		entry := LevelActual{TargetID: sa.SectionID, Target: sa.Target}
		if actual, ok := sectionActuals[sa.SectionID]; ok {
			entry.Actual = actual
			entry.HasValue = true
		}
		report.Sections = append(report.Sections, entry)
	}

	// Department pass: section actuals are its values, section assignment
	// targets are its targets.
	departmentValues := map[string][]float64{}
	departmentTargets := map[string][]float64{}
	for _, sa := range in.Sections {
		departmentTargets[sa.DepartmentID] = append(departmentTargets[sa.DepartmentID], sa.Target)
		if actual, ok := sectionActuals[sa.SectionID]; ok {
			departmentValues[sa.DepartmentID] = append(departmentValues[sa.DepartmentID], actual)
		}
	}
	departmentActuals := map[string]float64{}
	for _, da := range in.Departments {
		actual, computed := departmentActuals[da.DepartmentID]
		if !computed {
			actual = aggregate(in.KPIID, in.Expression, departmentValues[da.DepartmentID], departmentTargets[da.DepartmentID])
			departmentActuals[da.DepartmentID] = actual
		}
		report.Departments = append(report.Departments, LevelActual{
			TargetID: da.DepartmentID,
			Actual:   actual,
			Target:   da.Target,
			HasValue: true,
		})
	}

	// Headline precedence: most aggregated level with assignments wins.
	switch {
	case len(in.Departments) > 0:
		report.Source = SourceDepartment
		total := 0.0
		for _, actual := range departmentActuals {
			total += actual
		}
		report.Actual = round2(total)
	case len(in.Sections) > 0:
		report.Source = SourceSection
		total := 0.0
		for _, sa := range in.Sections {
			total += sectionActuals[sa.SectionID]
		}
		report.Actual = round2(total)
	case len(in.Employees) > 0:
		report.Source = SourceEmployee
		total := 0.0
		for _, ev := range in.Employees {
			if ev.Value != nil {
				total += *ev.Value
			}
		}
		report.Actual = round2(total)
	}

	return report
}

// aggregate applies the KPI formula over one level's values and targets, or
// sums values when no formula is configured. The sum (not average) keeps
// partial reporting from diluting totals. A failing formula degrades this
// level to 0 and is logged; siblings are unaffected.
func aggregate(kpiID, expression string, values, targets []float64) float64 {
	if expression == "" {
		total := 0.0
		for _, v := range values {
			total += v
		}
		return round2(total)
	}

	result, ok := formula.Evaluate(expression, formula.Scope{Values: values, Targets: targets})
	if !ok {
		slog.Warn("formula evaluation failed, degrading level to 0", "kpiId", kpiID)
		return 0
	}
	return result
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
