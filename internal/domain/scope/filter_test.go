package scope

import (
	"strings"
	"testing"

	"kpim/internal/domain/auth"
)

var testCols = Columns{
	EmployeeID:         "rr.employee_id",
	SectionID:          "a.section_id",
	DepartmentID:       "a.department_id",
	SectionDepartment:  "s.department_id",
	EmployeeSection:    "e.section_id",
	EmployeeDepartment: "e.department_id",
}

func TestFilterCompanyScopeUnrestricted(t *testing.T) {
	for _, role := range []auth.Role{auth.RoleAdmin, auth.RoleManager} {
		query, args := Filter(auth.UserContext{Role: role}, testCols, "SELECT 1 WHERE true", nil)
		if query != "SELECT 1 WHERE true" {
			t.Fatalf("%s: expected unrestricted query, got %q", role, query)
		}
		if len(args) != 0 {
			t.Fatalf("%s: expected no args, got %v", role, args)
		}
	}
}

func TestFilterSectionScope(t *testing.T) {
	user := auth.UserContext{Role: auth.RoleSection, SectionID: "sec-1"}
	query, args := Filter(user, testCols, "WHERE cycle = $1", []any{"2026-Q1"})
	if !strings.Contains(query, "a.section_id = $2") || !strings.Contains(query, "e.section_id = $2") {
		t.Fatalf("unexpected section predicate: %q", query)
	}
	if len(args) != 2 || args[1] != "sec-1" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestFilterSectionWithoutPlacementFailsClosed(t *testing.T) {
	query, args := Filter(auth.UserContext{Role: auth.RoleSection}, testCols, "WHERE true", nil)
	if !strings.HasSuffix(query, " AND false") {
		t.Fatalf("expected fail-closed predicate, got %q", query)
	}
	if len(args) != 0 {
		t.Fatalf("expected no args, got %v", args)
	}
}

func TestFilterDepartmentScope(t *testing.T) {
	user := auth.UserContext{Role: auth.RoleDepartment, DepartmentID: "dep-1"}
	query, args := Filter(user, testCols, "WHERE true", nil)
	for _, col := range []string{"a.department_id = $1", "s.department_id = $1", "e.department_id = $1"} {
		if !strings.Contains(query, col) {
			t.Fatalf("expected %q in predicate %q", col, query)
		}
	}
	if len(args) != 1 || args[0] != "dep-1" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestFilterDepartmentWithoutPlacementFailsClosed(t *testing.T) {
	query, _ := Filter(auth.UserContext{Role: auth.RoleDepartment}, testCols, "WHERE true", nil)
	if !strings.HasSuffix(query, " AND false") {
		t.Fatalf("expected fail-closed predicate, got %q", query)
	}
}

func TestFilterDefaultSelfScope(t *testing.T) {
	user := auth.UserContext{Role: auth.RoleEmployee, EmployeeID: "emp-9"}
	query, args := Filter(user, testCols, "WHERE true", nil)
	if !strings.Contains(query, "rr.employee_id = $1") {
		t.Fatalf("expected self scope predicate, got %q", query)
	}
	if len(args) != 1 || args[0] != "emp-9" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestFilterSelfScopeWithoutEmployeeFailsClosed(t *testing.T) {
	query, _ := Filter(auth.UserContext{Role: auth.RoleEmployee}, testCols, "WHERE true", nil)
	if !strings.HasSuffix(query, " AND false") {
		t.Fatalf("expected fail-closed predicate, got %q", query)
	}
}
