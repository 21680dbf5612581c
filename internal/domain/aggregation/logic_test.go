package aggregation

import "testing"

func ptr(v float64) *float64 { return &v }

func testInput() Input {
	return Input{
		KPIID: "kpi-1",
		Employees: []EmployeeValue{
			{AssignmentID: "a1", EmployeeID: "e1", SectionID: "s1", Target: 10, Value: ptr(4)},
			{AssignmentID: "a2", EmployeeID: "e2", SectionID: "s1", Target: 10, Value: ptr(6)},
			{AssignmentID: "a3", EmployeeID: "e3", SectionID: "s2", Target: 10, Value: ptr(5)},
			{AssignmentID: "a4", EmployeeID: "e4", SectionID: "s2", Target: 10}, // no approved value yet
		},
		Sections: []SectionAssignment{
			{AssignmentID: "a5", SectionID: "s1", DepartmentID: "d1", Target: 20},
			{AssignmentID: "a6", SectionID: "s2", DepartmentID: "d1", Target: 20},
		},
		Departments: []DepartmentAssignment{
			{AssignmentID: "a7", DepartmentID: "d1", Target: 40},
		},
	}
}

func TestComputeSumFallbackMonotonicity(t *testing.T) {
	report := Compute(testInput())

	// Department total equals section totals equals approved employee values.
	if report.Actual != 15 {
		t.Fatalf("expected department headline 15, got %v", report.Actual)
	}
	if report.Source != SourceDepartment {
		t.Fatalf("expected department source, got %s", report.Source)
	}

	sectionTotal := 0.0
	for _, s := range report.Sections {
		sectionTotal += s.Actual
	}
	if sectionTotal != 15 {
		t.Fatalf("expected section totals 15, got %v", sectionTotal)
	}

	employeeTotal := 0.0
	for _, e := range report.Employees {
		if e.HasValue {
			employeeTotal += e.Actual
		}
	}
	if employeeTotal != 15 {
		t.Fatalf("expected employee totals 15, got %v", employeeTotal)
	}
}

func TestComputePartialReportingDoesNotDilute(t *testing.T) {
	// One of two employees reported; sum fallback must not average.
	in := Input{
		KPIID: "kpi-1",
		Employees: []EmployeeValue{
			{AssignmentID: "a1", EmployeeID: "e1", SectionID: "s1", Target: 10, Value: ptr(8)},
			{AssignmentID: "a2", EmployeeID: "e2", SectionID: "s1", Target: 10},
		},
		Sections: []SectionAssignment{{AssignmentID: "a3", SectionID: "s1", DepartmentID: "d1", Target: 20}},
	}
	report := Compute(in)
	if report.Source != SourceSection {
		t.Fatalf("expected section source, got %s", report.Source)
	}
	if report.Actual != 8 {
		t.Fatalf("expected 8, got %v", report.Actual)
	}
}

func TestComputeHeadlinePrecedence(t *testing.T) {
	in := testInput()

	in.Departments = nil
	if report := Compute(in); report.Source != SourceSection {
		t.Fatalf("expected section source without department assignments, got %s", report.Source)
	}

	in.Sections = nil
	if report := Compute(in); report.Source != SourceEmployee {
		t.Fatalf("expected employee source without section assignments, got %s", report.Source)
	}

	in.Employees = nil
	report := Compute(in)
	if report.Source != SourceNone || report.Actual != 0 {
		t.Fatalf("expected empty report, got %+v", report)
	}
}

func TestComputeWithFormula(t *testing.T) {
	in := testInput()
	in.Expression = "sum(values) / sum(targets) * 100"
	report := Compute(in)

	// s1: 10/20*100 = 50, s2: 5/20*100 = 25; d1: (50+25)/40*100 = 187.5
	if report.Actual != 187.5 {
		t.Fatalf("expected 187.5, got %v", report.Actual)
	}
	for _, s := range report.Sections {
		if s.TargetID == "s1" && s.Actual != 50 {
			t.Fatalf("expected s1 actual 50, got %v", s.Actual)
		}
		if s.TargetID == "s2" && s.Actual != 25 {
			t.Fatalf("expected s2 actual 25, got %v", s.Actual)
		}
	}
}

func TestComputeFormulaFailureDegradesLevelOnly(t *testing.T) {
	in := testInput()
	// values[3] is out of range for s2 (one value) but fine nowhere; every
	// level that fails degrades to 0 without aborting siblings.
	in.Expression = "values[1]"
	report := Compute(in)

	var s1, s2 float64
	for _, s := range report.Sections {
		switch s.TargetID {
		case "s1":
			s1 = s.Actual
		case "s2":
			s2 = s.Actual
		}
	}
	if s1 != 6 {
		t.Fatalf("expected s1 second value 6, got %v", s1)
	}
	if s2 != 0 {
		t.Fatalf("expected s2 degraded to 0, got %v", s2)
	}
}

func TestComputeEmployeeTargetsCountWithoutValues(t *testing.T) {
	in := Input{
		KPIID: "kpi-1",
		Employees: []EmployeeValue{
			{AssignmentID: "a1", EmployeeID: "e1", SectionID: "s1", Target: 7, Value: ptr(3)},
			{AssignmentID: "a2", EmployeeID: "e2", SectionID: "s1", Target: 5},
		},
		Sections:   []SectionAssignment{{AssignmentID: "a3", SectionID: "s1", DepartmentID: "d1", Target: 12}},
		Expression: "sum(values) / sum(targets) * 100",
	}
	report := Compute(in)
	// targets include the unreported employee: 3 / 12 * 100 = 25.
	if report.Actual != 25 {
		t.Fatalf("expected 25, got %v", report.Actual)
	}
}
