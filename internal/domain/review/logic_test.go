package review

import (
	"testing"

	"kpim/internal/domain/auth"
)

func f64p(v float64) *float64 { return &v }

func TestFinalScoreFollowsStatus(t *testing.T) {
	rec := Record{
		SelfScore:       f64p(5),
		SectionScore:    f64p(6),
		DepartmentScore: f64p(7),
		ManagerScore:    f64p(8.5),
	}

	cases := []struct {
		status string
		want   *float64
	}{
		{StatusPending, nil},
		{StatusSelfReviewed, f64p(5)},
		{StatusSectionReviewed, f64p(6)},
		{StatusDepartmentReviewed, f64p(7)},
		{StatusManagerReviewed, f64p(8.5)},
		{StatusEmployeeFeedback, f64p(8.5)},
		{StatusCompleted, f64p(8.5)},
		{StatusSectionRejected, nil},
	}
	for _, tc := range cases {
		rec.Status = tc.status
		got := FinalScore(rec)
		if (got == nil) != (tc.want == nil) {
			t.Fatalf("status %s: got %v want %v", tc.status, got, tc.want)
		}
		if got != nil && *got != *tc.want {
			t.Fatalf("status %s: got %v want %v", tc.status, *got, *tc.want)
		}
	}
}

func TestFinalScoreNeverFallsBackAcrossStages(t *testing.T) {
	rec := Record{Status: StatusManagerReviewed, SelfScore: f64p(9)}
	if got := FinalScore(rec); got != nil {
		t.Fatalf("manager stage without manager score must yield nil, got %v", *got)
	}
}

func TestRejectedStatusFor(t *testing.T) {
	cases := []struct {
		role auth.Role
		want string
		ok   bool
	}{
		{auth.RoleAdmin, StatusManagerRejected, true},
		{auth.RoleManager, StatusManagerRejected, true},
		{auth.RoleDepartment, StatusDepartmentRejected, true},
		{auth.RoleSection, StatusSectionRejected, true},
		{auth.RoleEmployee, "", false},
	}
	for _, tc := range cases {
		got, ok := rejectedStatusFor(tc.role)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("role %s: got (%q,%v) want (%q,%v)", tc.role, got, ok, tc.want, tc.ok)
		}
	}
}

func TestSelfReviewReopensAfterRejection(t *testing.T) {
	for _, status := range []string{StatusSectionRejected, StatusDepartmentRejected, StatusManagerRejected, StatusPending} {
		if !canSelfReview(status) {
			t.Fatalf("self review must be open from %s", status)
		}
	}
	for _, status := range []string{StatusSelfReviewed, StatusCompleted, StatusEmployeeFeedback} {
		if canSelfReview(status) {
			t.Fatalf("self review must be closed from %s", status)
		}
	}
}

func TestSkipLevelApprovalWindows(t *testing.T) {
	if canSectionReview(StatusPending) {
		t.Fatal("section review must wait for self review")
	}
	if !canDepartmentReview(StatusSelfReviewed) {
		t.Fatal("department may skip the section step")
	}
	if !canManagerReview(StatusSelfReviewed) {
		t.Fatal("manager may skip both lower steps")
	}
	if canDepartmentReview(StatusManagerReviewed) {
		t.Fatal("department cannot act after the manager stage")
	}
	if !canManagerReview(StatusManagerReviewed) {
		t.Fatal("manager may re-review at the manager stage")
	}
}
