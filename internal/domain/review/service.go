package review

import (
	"context"

	"kpim/internal/domain/auth"
	"kpim/internal/domain/notifications"
)

type Service struct {
	store  StoreAPI
	events notifications.Publisher
}

func NewService(store StoreAPI, events notifications.Publisher) *Service {
	return &Service{store: store, events: events}
}

// MyReviews lazily materializes review records for the caller's approved
// assignments before listing them. An employee gets records for assignments
// targeting them; a section or department caller additionally gets the
// records attributed to their own unit.
func (s *Service) MyReviews(ctx context.Context, user auth.UserContext, cycle string) ([]Record, error) {
	var records []Record
	if user.EmployeeID != "" {
		if _, err := s.store.EnsureForEmployee(ctx, user.EmployeeID, cycle); err != nil {
			return nil, err
		}
		mine, err := s.store.ListMine(ctx, user.EmployeeID, cycle)
		if err != nil {
			return nil, err
		}
		records = append(records, mine...)
	}
	if user.Role == auth.RoleSection && user.SectionID != "" {
		if _, err := s.store.EnsureForSection(ctx, user.SectionID, cycle); err != nil {
			return nil, err
		}
		owned, err := s.store.ListForSection(ctx, user.SectionID, cycle)
		if err != nil {
			return nil, err
		}
		records = append(records, owned...)
	}
	if user.Role == auth.RoleDepartment && user.DepartmentID != "" {
		if _, err := s.store.EnsureForDepartment(ctx, user.DepartmentID, cycle); err != nil {
			return nil, err
		}
		owned, err := s.store.ListForDepartment(ctx, user.DepartmentID, cycle)
		if err != nil {
			return nil, err
		}
		records = append(records, owned...)
	}
	return records, nil
}

func (s *Service) List(ctx context.Context, user auth.UserContext, cycle, kpiID string, limit, offset int) ([]Record, error) {
	return s.store.List(ctx, user, cycle, kpiID, limit, offset)
}

func (s *Service) Get(ctx context.Context, user auth.UserContext, recordID string) (Record, error) {
	return s.store.GetScoped(ctx, user, recordID)
}

func (s *Service) HistoryForRecord(ctx context.Context, user auth.UserContext, recordID string) ([]HistoryEntry, error) {
	if _, err := s.store.GetScoped(ctx, user, recordID); err != nil {
		return nil, err
	}
	return s.store.HistoryForRecord(ctx, recordID)
}

// History reads the ledger for one (kpi, employee, cycle) triple. Employees
// see only their own trail regardless of the requested employee.
func (s *Service) History(ctx context.Context, user auth.UserContext, kpiID, employeeID, cycle string) ([]HistoryEntry, error) {
	if user.Role == auth.RoleEmployee {
		employeeID = user.EmployeeID
	}
	return s.store.History(ctx, kpiID, employeeID, cycle)
}

func (s *Service) SubmitSelfReview(ctx context.Context, user auth.UserContext, recordID string, score *float64, comment string) (Record, error) {
	if score == nil {
		return Record{}, ErrMissingScore
	}
	rec, err := s.store.Transition(ctx, recordID, user.UserID, func(rec *Record) (HistoryPayload, error) {
		if !canSelfReview(rec.Status) {
			return HistoryPayload{}, &TransitionError{Op: "self review", Current: rec.Status}
		}
		if !ownedBy(rec, user) {
			return HistoryPayload{}, ErrNotRecordOwner
		}
		rec.SelfScore = score
		rec.SelfComment = optional(comment)
		rec.RejectionReason = nil
		rec.Status = StatusSelfReviewed
		return HistoryPayload{Score: score, Comment: optional(comment)}, nil
	})
	if err != nil {
		return Record{}, err
	}
	s.emit(ctx, notifications.TypeSectionPending, rec, user)
	return rec, nil
}

func (s *Service) SubmitSectionReview(ctx context.Context, user auth.UserContext, recordID string, score *float64, comment string) (Record, error) {
	if score == nil {
		return Record{}, ErrMissingScore
	}
	rec, err := s.store.Transition(ctx, recordID, user.UserID, func(rec *Record) (HistoryPayload, error) {
		if !canSectionReview(rec.Status) {
			return HistoryPayload{}, &TransitionError{Op: "section review", Current: rec.Status}
		}
		// A section never approves a review attributed to itself. This is a
		// workflow rule, deliberately distinct from the RBAC check.
		if rec.SectionID != nil && user.SectionID != "" && *rec.SectionID == user.SectionID {
			return HistoryPayload{}, ErrSelfApprovalForbidden
		}
		rec.SectionScore = score
		rec.SectionComment = optional(comment)
		rec.Status = StatusSectionReviewed
		return HistoryPayload{Score: score, Comment: optional(comment)}, nil
	})
	if err != nil {
		return Record{}, err
	}
	s.emit(ctx, notifications.TypeDepartmentPending, rec, user)
	return rec, nil
}

// SubmitDepartmentReview is skip-level: it accepts the record even when the
// section step never happened, and always lands on DEPARTMENT_REVIEWED.
func (s *Service) SubmitDepartmentReview(ctx context.Context, user auth.UserContext, recordID string, score *float64, comment string) (Record, error) {
	if score == nil {
		return Record{}, ErrMissingScore
	}
	rec, err := s.store.Transition(ctx, recordID, user.UserID, func(rec *Record) (HistoryPayload, error) {
		if !canDepartmentReview(rec.Status) {
			return HistoryPayload{}, &TransitionError{Op: "department review", Current: rec.Status}
		}
		if ownedByDepartment(rec, user.DepartmentID) {
			return HistoryPayload{}, ErrSelfApprovalForbidden
		}
		rec.DepartmentScore = score
		rec.DepartmentComment = optional(comment)
		rec.Status = StatusDepartmentReviewed
		return HistoryPayload{Score: score, Comment: optional(comment)}, nil
	})
	if err != nil {
		return Record{}, err
	}
	s.emit(ctx, notifications.TypeManagerPending, rec, user)
	return rec, nil
}

// SubmitManagerReview always opens the employee feedback step, never
// completes directly.
func (s *Service) SubmitManagerReview(ctx context.Context, user auth.UserContext, recordID string, score *float64, comment string) (Record, error) {
	if score == nil {
		return Record{}, ErrMissingScore
	}
	rec, err := s.store.Transition(ctx, recordID, user.UserID, func(rec *Record) (HistoryPayload, error) {
		if !canManagerReview(rec.Status) {
			return HistoryPayload{}, &TransitionError{Op: "manager review", Current: rec.Status}
		}
		rec.ManagerScore = score
		rec.ManagerComment = optional(comment)
		rec.Status = StatusEmployeeFeedback
		return HistoryPayload{Score: score, Comment: optional(comment)}, nil
	})
	if err != nil {
		return Record{}, err
	}
	s.emit(ctx, notifications.TypeFeedbackPending, rec, user)
	return rec, nil
}

func (s *Service) SubmitEmployeeFeedback(ctx context.Context, user auth.UserContext, recordID, feedback string) (Record, error) {
	rec, err := s.store.Transition(ctx, recordID, user.UserID, func(rec *Record) (HistoryPayload, error) {
		if rec.Status != StatusEmployeeFeedback {
			return HistoryPayload{}, &TransitionError{Op: "employee feedback", Current: rec.Status}
		}
		if !ownedBy(rec, user) {
			return HistoryPayload{}, ErrNotRecordOwner
		}
		rec.EmployeeFeedback = optional(feedback)
		rec.Status = StatusManagerReviewed
		return HistoryPayload{Comment: optional(feedback)}, nil
	})
	if err != nil {
		return Record{}, err
	}
	s.emit(ctx, notifications.TypeManagerPending, rec, user)
	return rec, nil
}

// CompleteReview closes the record. COMPLETED is terminal: every later
// transition fails with InvalidTransition.
func (s *Service) CompleteReview(ctx context.Context, user auth.UserContext, recordID string) (Record, error) {
	rec, err := s.store.Transition(ctx, recordID, user.UserID, func(rec *Record) (HistoryPayload, error) {
		if rec.Status != StatusManagerReviewed {
			return HistoryPayload{}, &TransitionError{Op: "complete review", Current: rec.Status}
		}
		rec.Status = StatusCompleted
		return HistoryPayload{}, nil
	})
	if err != nil {
		return Record{}, err
	}
	s.emit(ctx, notifications.TypeCompleted, rec, user)
	return rec, nil
}

// Reject moves the record to the acting role's rejection state. A rejection
// always resets the workflow back to needing self-review.
func (s *Service) Reject(ctx context.Context, user auth.UserContext, recordID, reason string) (Record, error) {
	target, ok := rejectedStatusFor(user.Role)
	if !ok {
		return Record{}, ErrUnsupportedRole
	}
	rec, err := s.store.Transition(ctx, recordID, user.UserID, func(rec *Record) (HistoryPayload, error) {
		if rec.Status == StatusCompleted {
			return HistoryPayload{}, &TransitionError{Op: "reject", Current: rec.Status}
		}
		rec.RejectionReason = optional(reason)
		rec.Status = target
		return HistoryPayload{RejectionReason: optional(reason)}, nil
	})
	if err != nil {
		return Record{}, err
	}
	s.emit(ctx, notifications.TypeRejected, rec, user)
	return rec, nil
}

// SubmitByRole routes an approval to the transition matching the caller's
// role, admin/manager taking precedence over department over section.
func (s *Service) SubmitByRole(ctx context.Context, user auth.UserContext, recordID string, score *float64, comment string) (Record, error) {
	switch user.Role {
	case auth.RoleAdmin, auth.RoleManager:
		return s.SubmitManagerReview(ctx, user, recordID, score, comment)
	case auth.RoleDepartment:
		return s.SubmitDepartmentReview(ctx, user, recordID, score, comment)
	case auth.RoleSection:
		return s.SubmitSectionReview(ctx, user, recordID, score, comment)
	}
	return Record{}, ErrUnsupportedRole
}

func (s *Service) RejectByRole(ctx context.Context, user auth.UserContext, recordID, reason string) (Record, error) {
	return s.Reject(ctx, user, recordID, reason)
}

func (s *Service) emit(ctx context.Context, eventType string, rec Record, actor auth.UserContext) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, notifications.Event{
		Type:         eventType,
		KPIID:        rec.KPIID,
		ReviewID:     rec.ID,
		EmployeeID:   deref(rec.EmployeeID),
		SectionID:    deref(rec.SectionID),
		DepartmentID: deref(rec.DepartmentID),
		Cycle:        rec.Cycle,
		Status:       rec.Status,
		ActorID:      actor.UserID,
		Reason:       deref(rec.RejectionReason),
	})
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
