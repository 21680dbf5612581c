package review

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"kpim/internal/domain/auth"
	"kpim/internal/domain/notifications"
)

// seedAssignment stands in for an approved, non-deleted assignment row.
// Exactly one of the three target fields is set, matching the table's check
// constraint.
type seedAssignment struct {
	ID           string
	KPIID        string
	EmployeeID   *string
	SectionID    *string
	DepartmentID *string
	Target       float64
}

type fakeStore struct {
	records     map[string]*Record
	assignments []seedAssignment
	history     []HistoryEntry
	nextID      int
}

func newFakeStore(records ...Record) *fakeStore {
	s := &fakeStore{records: map[string]*Record{}}
	for i := range records {
		rec := records[i]
		s.records[rec.ID] = &rec
	}
	return s
}

func (s *fakeStore) hasRecordFor(assignmentID, cycle string) bool {
	for _, rec := range s.records {
		if rec.AssignmentID != nil && *rec.AssignmentID == assignmentID && rec.Cycle == cycle {
			return true
		}
	}
	return false
}

// ensure mirrors the INSERT ... SELECT creation path: one record per missing
// (assignment, cycle) pair, attribution columns copied from the assignment's
// target.
func (s *fakeStore) ensure(cycle string, match func(seedAssignment) bool, attribute func(seedAssignment, *Record)) int {
	created := 0
	for _, a := range s.assignments {
		if !match(a) || s.hasRecordFor(a.ID, cycle) {
			continue
		}
		s.nextID++
		assignmentID := a.ID
		rec := &Record{
			ID:           fmt.Sprintf("rr%d", s.nextID),
			KPIID:        a.KPIID,
			AssignmentID: &assignmentID,
			Cycle:        cycle,
			TargetValue:  a.Target,
			Status:       StatusPending,
		}
		attribute(a, rec)
		s.records[rec.ID] = rec
		created++
	}
	return created
}

func (s *fakeStore) Get(_ context.Context, recordID string) (Record, error) {
	rec, ok := s.records[recordID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return *rec, nil
}

func (s *fakeStore) GetScoped(ctx context.Context, _ auth.UserContext, recordID string) (Record, error) {
	return s.Get(ctx, recordID)
}

func (s *fakeStore) List(_ context.Context, _ auth.UserContext, cycle, kpiID string, _, _ int) ([]Record, error) {
	var out []Record
	for _, rec := range s.records {
		if cycle != "" && rec.Cycle != cycle {
			continue
		}
		if kpiID != "" && rec.KPIID != kpiID {
			continue
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (s *fakeStore) ListMine(_ context.Context, employeeID, cycle string) ([]Record, error) {
	var out []Record
	for _, rec := range s.records {
		if rec.EmployeeID == nil || *rec.EmployeeID != employeeID || rec.Cycle != cycle {
			continue
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (s *fakeStore) EnsureForEmployee(_ context.Context, employeeID, cycle string) (int, error) {
	return s.ensure(cycle, func(a seedAssignment) bool {
		return a.EmployeeID != nil && *a.EmployeeID == employeeID
	}, func(a seedAssignment, rec *Record) {
		rec.EmployeeID = a.EmployeeID
	}), nil
}

func (s *fakeStore) EnsureForSection(_ context.Context, sectionID, cycle string) (int, error) {
	return s.ensure(cycle, func(a seedAssignment) bool {
		return a.SectionID != nil && *a.SectionID == sectionID
	}, func(a seedAssignment, rec *Record) {
		rec.SectionID = a.SectionID
	}), nil
}

func (s *fakeStore) EnsureForDepartment(_ context.Context, departmentID, cycle string) (int, error) {
	return s.ensure(cycle, func(a seedAssignment) bool {
		return a.DepartmentID != nil && *a.DepartmentID == departmentID
	}, func(a seedAssignment, rec *Record) {
		rec.DepartmentID = a.DepartmentID
	}), nil
}

func (s *fakeStore) ListForSection(_ context.Context, sectionID, cycle string) ([]Record, error) {
	var out []Record
	for _, rec := range s.records {
		if rec.EmployeeID != nil || rec.SectionID == nil || *rec.SectionID != sectionID || rec.Cycle != cycle {
			continue
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (s *fakeStore) ListForDepartment(_ context.Context, departmentID, cycle string) ([]Record, error) {
	var out []Record
	for _, rec := range s.records {
		if rec.EmployeeID != nil || rec.SectionID != nil || rec.DepartmentID == nil ||
			*rec.DepartmentID != departmentID || rec.Cycle != cycle {
			continue
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (s *fakeStore) Transition(_ context.Context, recordID, actorID string, mutate Mutator) (Record, error) {
	rec, ok := s.records[recordID]
	if !ok {
		return Record{}, ErrNotFound
	}
	working := *rec
	payload, err := mutate(&working)
	if err != nil {
		return Record{}, err
	}
	working.UpdatedAt = time.Now()
	*rec = working

	s.nextID++
	s.history = append(s.history, HistoryEntry{
		ID:              fmt.Sprintf("h%d", s.nextID),
		KPIID:           working.KPIID,
		EmployeeID:      working.EmployeeID,
		Cycle:           working.Cycle,
		Status:          working.Status,
		Score:           payload.Score,
		Comment:         payload.Comment,
		RejectionReason: payload.RejectionReason,
		ReviewedBy:      actorID,
		CreatedAt:       time.Now(),
	})
	return working, nil
}

func (s *fakeStore) History(_ context.Context, kpiID, employeeID, cycle string) ([]HistoryEntry, error) {
	var out []HistoryEntry
	for _, entry := range s.history {
		if entry.KPIID != kpiID || entry.Cycle != cycle {
			continue
		}
		if employeeID != "" && (entry.EmployeeID == nil || *entry.EmployeeID != employeeID) {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func (s *fakeStore) HistoryForRecord(_ context.Context, recordID string) ([]HistoryEntry, error) {
	rec, ok := s.records[recordID]
	if !ok {
		return nil, ErrNotFound
	}
	var out []HistoryEntry
	for _, entry := range s.history {
		if entry.KPIID == rec.KPIID && entry.Cycle == rec.Cycle {
			out = append(out, entry)
		}
	}
	return out, nil
}

type capturedEvents struct {
	types []string
}

func (c *capturedEvents) Publish(_ context.Context, event notifications.Event) {
	c.types = append(c.types, event.Type)
}

func strp(v string) *string { return &v }

// seedRecord is an employee-owned record as the creation path produces it:
// attribution columns beyond the employee stay empty.
func seedRecord() Record {
	return Record{
		ID:           "r1",
		KPIID:        "k1",
		EmployeeID:   strp("emp1"),
		AssignmentID: strp("a1"),
		Cycle:        "2026-H1",
		TargetValue:  100,
		Status:       StatusPending,
	}
}

var (
	employeeUser = auth.UserContext{UserID: "u-emp", EmployeeID: "emp1", Role: auth.RoleEmployee, SectionID: "sec1", DepartmentID: "dep1"}
	sectionUser  = auth.UserContext{UserID: "u-sec", Role: auth.RoleSection, SectionID: "sec2", DepartmentID: "dep1"}
	deptUser     = auth.UserContext{UserID: "u-dep", Role: auth.RoleDepartment, DepartmentID: "dep1"}
	managerUser  = auth.UserContext{UserID: "u-mgr", Role: auth.RoleManager}
)

func TestFullReviewWorkflow(t *testing.T) {
	store := newFakeStore(seedRecord())
	events := &capturedEvents{}
	svc := NewService(store, events)
	ctx := context.Background()

	if _, err := svc.SubmitSelfReview(ctx, employeeUser, "r1", f64p(7), "my half"); err != nil {
		t.Fatalf("self review: %v", err)
	}
	if _, err := svc.SubmitSectionReview(ctx, sectionUser, "r1", f64p(7.5), "section view"); err != nil {
		t.Fatalf("section review: %v", err)
	}
	if _, err := svc.SubmitDepartmentReview(ctx, deptUser, "r1", f64p(8), ""); err != nil {
		t.Fatalf("department review: %v", err)
	}
	rec, err := svc.SubmitManagerReview(ctx, managerUser, "r1", f64p(8.5), "final call")
	if err != nil {
		t.Fatalf("manager review: %v", err)
	}
	if rec.Status != StatusEmployeeFeedback {
		t.Fatalf("manager approval must open feedback, got %s", rec.Status)
	}

	rec, err = svc.SubmitEmployeeFeedback(ctx, employeeUser, "r1", "acknowledged")
	if err != nil {
		t.Fatalf("feedback: %v", err)
	}
	if rec.Status != StatusManagerReviewed {
		t.Fatalf("feedback must return to manager reviewed, got %s", rec.Status)
	}

	rec, err = svc.CompleteReview(ctx, managerUser, "r1")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if rec.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", rec.Status)
	}
	if score := FinalScore(rec); score == nil || *score != 8.5 {
		t.Fatalf("final score must be the manager score, got %v", score)
	}

	trail, err := svc.History(ctx, managerUser, "k1", "emp1", "2026-H1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(trail) != 6 {
		t.Fatalf("expected 6 ledger entries, got %d", len(trail))
	}
	wantStatuses := []string{
		StatusSelfReviewed, StatusSectionReviewed, StatusDepartmentReviewed,
		StatusEmployeeFeedback, StatusManagerReviewed, StatusCompleted,
	}
	for i, want := range wantStatuses {
		if trail[i].Status != want {
			t.Fatalf("entry %d: got %s want %s", i, trail[i].Status, want)
		}
	}

	wantEvents := []string{
		notifications.TypeSectionPending,
		notifications.TypeDepartmentPending,
		notifications.TypeManagerPending,
		notifications.TypeFeedbackPending,
		notifications.TypeManagerPending,
		notifications.TypeCompleted,
	}
	if len(events.types) != len(wantEvents) {
		t.Fatalf("expected %d events, got %d", len(wantEvents), len(events.types))
	}
	for i, want := range wantEvents {
		if events.types[i] != want {
			t.Fatalf("event %d: got %s want %s", i, events.types[i], want)
		}
	}
}

func TestCompletedIsTerminal(t *testing.T) {
	rec := seedRecord()
	rec.Status = StatusCompleted
	store := newFakeStore(rec)
	svc := NewService(store, nil)
	ctx := context.Background()

	if _, err := svc.SubmitSelfReview(ctx, employeeUser, "r1", f64p(5), ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("self review after completion: got %v", err)
	}
	if _, err := svc.Reject(ctx, managerUser, "r1", "too late"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("reject after completion: got %v", err)
	}
	if _, err := svc.CompleteReview(ctx, managerUser, "r1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("double complete: got %v", err)
	}
}

func TestTransitionErrorCarriesCurrentStatus(t *testing.T) {
	store := newFakeStore(seedRecord())
	svc := NewService(store, nil)

	_, err := svc.SubmitSectionReview(context.Background(), sectionUser, "r1", f64p(6), "")
	var transition *TransitionError
	if !errors.As(err, &transition) {
		t.Fatalf("expected TransitionError, got %v", err)
	}
	if transition.Current != StatusPending {
		t.Fatalf("expected current status %s, got %s", StatusPending, transition.Current)
	}
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatal("TransitionError must match ErrInvalidTransition")
	}
}

func TestSectionCannotApproveOwnReview(t *testing.T) {
	store := newFakeStore()
	store.assignments = []seedAssignment{
		{ID: "a-sec", KPIID: "k2", SectionID: strp("sec1"), Target: 40},
	}
	svc := NewService(store, nil)
	ctx := context.Background()

	ownSection := auth.UserContext{UserID: "u-own", Role: auth.RoleSection, SectionID: "sec1"}
	records, err := svc.MyReviews(ctx, ownSection, "2026-H1")
	if err != nil {
		t.Fatalf("my reviews: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one section-owned record, got %d", len(records))
	}
	rec := records[0]
	if rec.EmployeeID != nil || rec.SectionID == nil || *rec.SectionID != "sec1" {
		t.Fatalf("record must be attributed to the section, got %+v", rec)
	}

	if _, err := svc.SubmitSelfReview(ctx, ownSection, rec.ID, f64p(6), "our half"); err != nil {
		t.Fatalf("section self review on its own record: %v", err)
	}

	if _, err := svc.SubmitSectionReview(ctx, ownSection, rec.ID, f64p(6), ""); !errors.Is(err, ErrSelfApprovalForbidden) {
		t.Fatalf("expected self approval rejection, got %v", err)
	}

	out, err := svc.SubmitSectionReview(ctx, sectionUser, rec.ID, f64p(6), "")
	if err != nil {
		t.Fatalf("sibling section must be allowed: %v", err)
	}
	if out.Status != StatusSectionReviewed {
		t.Fatalf("expected section reviewed, got %s", out.Status)
	}
}

func TestDepartmentCannotApproveOwnReview(t *testing.T) {
	store := newFakeStore()
	store.assignments = []seedAssignment{
		{ID: "a-dep", KPIID: "k3", DepartmentID: strp("dep1"), Target: 60},
	}
	svc := NewService(store, nil)
	ctx := context.Background()

	records, err := svc.MyReviews(ctx, deptUser, "2026-H1")
	if err != nil {
		t.Fatalf("my reviews: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one department-owned record, got %d", len(records))
	}
	rec := records[0]

	if _, err := svc.SubmitSelfReview(ctx, deptUser, rec.ID, f64p(7), ""); err != nil {
		t.Fatalf("department self review on its own record: %v", err)
	}
	if _, err := svc.SubmitDepartmentReview(ctx, deptUser, rec.ID, f64p(7), ""); !errors.Is(err, ErrSelfApprovalForbidden) {
		t.Fatalf("expected self approval rejection, got %v", err)
	}

	other := auth.UserContext{UserID: "u-dep2", Role: auth.RoleDepartment, DepartmentID: "dep2"}
	if _, err := svc.SubmitDepartmentReview(ctx, other, rec.ID, f64p(7), ""); err != nil {
		t.Fatalf("sibling department must be allowed: %v", err)
	}
}

func TestMyReviewsMaterializesPerTarget(t *testing.T) {
	store := newFakeStore()
	store.assignments = []seedAssignment{
		{ID: "a-emp", KPIID: "k1", EmployeeID: strp("emp1"), Target: 100},
		{ID: "a-sec", KPIID: "k2", SectionID: strp("sec1"), Target: 40},
		{ID: "a-dep", KPIID: "k3", DepartmentID: strp("dep1"), Target: 60},
	}
	svc := NewService(store, nil)
	ctx := context.Background()

	mine, err := svc.MyReviews(ctx, employeeUser, "2026-H1")
	if err != nil {
		t.Fatalf("employee reviews: %v", err)
	}
	if len(mine) != 1 || mine[0].EmployeeID == nil || *mine[0].EmployeeID != "emp1" {
		t.Fatalf("employee must see only their own record, got %+v", mine)
	}
	if mine[0].SectionID != nil || mine[0].DepartmentID != nil {
		t.Fatalf("employee record must carry no unit attribution, got %+v", mine[0])
	}

	// Calling twice must not duplicate: the (assignment, cycle) key converges.
	again, err := svc.MyReviews(ctx, employeeUser, "2026-H1")
	if err != nil {
		t.Fatalf("employee reviews again: %v", err)
	}
	if len(again) != 1 {
		t.Fatalf("expected the same single record, got %d", len(again))
	}

	leader := auth.UserContext{UserID: "u-lead", Role: auth.RoleSection, SectionID: "sec1"}
	owned, err := svc.MyReviews(ctx, leader, "2026-H1")
	if err != nil {
		t.Fatalf("section reviews: %v", err)
	}
	if len(owned) != 1 || owned[0].SectionID == nil || *owned[0].SectionID != "sec1" {
		t.Fatalf("section must see its unit record, got %+v", owned)
	}
}

func TestSkipLevelManagerApproval(t *testing.T) {
	rec := seedRecord()
	rec.Status = StatusSelfReviewed
	store := newFakeStore(rec)
	svc := NewService(store, nil)

	out, err := svc.SubmitManagerReview(context.Background(), managerUser, "r1", f64p(9), "")
	if err != nil {
		t.Fatalf("skip-level manager review: %v", err)
	}
	if out.Status != StatusEmployeeFeedback {
		t.Fatalf("expected feedback stage, got %s", out.Status)
	}
	if out.SectionScore != nil || out.DepartmentScore != nil {
		t.Fatal("skipped stages must stay empty")
	}
}

func TestRejectionResetsToSelfReview(t *testing.T) {
	rec := seedRecord()
	rec.Status = StatusSectionReviewed
	store := newFakeStore(rec)
	svc := NewService(store, nil)
	ctx := context.Background()

	out, err := svc.Reject(ctx, deptUser, "r1", "numbers do not add up")
	if err != nil {
		t.Fatalf("department reject: %v", err)
	}
	if out.Status != StatusDepartmentRejected {
		t.Fatalf("expected department rejected, got %s", out.Status)
	}
	if out.RejectionReason == nil || *out.RejectionReason != "numbers do not add up" {
		t.Fatalf("rejection reason lost: %v", out.RejectionReason)
	}

	out, err = svc.SubmitSelfReview(ctx, employeeUser, "r1", f64p(6.5), "revised")
	if err != nil {
		t.Fatalf("resubmit after rejection: %v", err)
	}
	if out.Status != StatusSelfReviewed {
		t.Fatalf("expected self reviewed, got %s", out.Status)
	}
	if out.RejectionReason != nil {
		t.Fatal("resubmission must clear the rejection reason")
	}
}

func TestSelfReviewGuards(t *testing.T) {
	store := newFakeStore(seedRecord())
	svc := NewService(store, nil)
	ctx := context.Background()

	if _, err := svc.SubmitSelfReview(ctx, employeeUser, "r1", nil, ""); !errors.Is(err, ErrMissingScore) {
		t.Fatalf("expected missing score, got %v", err)
	}

	stranger := auth.UserContext{UserID: "u-other", EmployeeID: "emp2", Role: auth.RoleEmployee}
	if _, err := svc.SubmitSelfReview(ctx, stranger, "r1", f64p(5), ""); !errors.Is(err, ErrNotRecordOwner) {
		t.Fatalf("expected employee mismatch, got %v", err)
	}

	if _, err := svc.SubmitSelfReview(ctx, employeeUser, "missing", f64p(5), ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFeedbackRequiresRecordOwner(t *testing.T) {
	rec := seedRecord()
	rec.Status = StatusEmployeeFeedback
	store := newFakeStore(rec)
	svc := NewService(store, nil)

	stranger := auth.UserContext{UserID: "u-other", EmployeeID: "emp2", Role: auth.RoleEmployee}
	if _, err := svc.SubmitEmployeeFeedback(context.Background(), stranger, "r1", "not mine"); !errors.Is(err, ErrNotRecordOwner) {
		t.Fatalf("expected employee mismatch, got %v", err)
	}
}

func TestSubmitByRoleDispatch(t *testing.T) {
	rec := seedRecord()
	rec.Status = StatusSelfReviewed
	store := newFakeStore(rec)
	svc := NewService(store, nil)
	ctx := context.Background()

	out, err := svc.SubmitByRole(ctx, deptUser, "r1", f64p(7), "")
	if err != nil {
		t.Fatalf("dispatch department: %v", err)
	}
	if out.Status != StatusDepartmentReviewed {
		t.Fatalf("expected department reviewed, got %s", out.Status)
	}

	if _, err := svc.SubmitByRole(ctx, employeeUser, "r1", f64p(7), ""); !errors.Is(err, ErrUnsupportedRole) {
		t.Fatalf("employee dispatch must fail, got %v", err)
	}
	if _, err := svc.RejectByRole(ctx, employeeUser, "r1", "nope"); !errors.Is(err, ErrUnsupportedRole) {
		t.Fatalf("employee reject must fail, got %v", err)
	}
}

func TestEmployeeHistoryIsScopedToSelf(t *testing.T) {
	store := newFakeStore(seedRecord())
	svc := NewService(store, nil)
	ctx := context.Background()

	if _, err := svc.SubmitSelfReview(ctx, employeeUser, "r1", f64p(7), ""); err != nil {
		t.Fatalf("self review: %v", err)
	}

	trail, err := svc.History(ctx, employeeUser, "k1", "emp999", "2026-H1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	for _, entry := range trail {
		if entry.EmployeeID == nil || *entry.EmployeeID != "emp1" {
			t.Fatalf("employee saw a foreign trail entry: %+v", entry)
		}
	}
	if len(trail) != 1 {
		t.Fatalf("expected the employee's own entry, got %d", len(trail))
	}
}
