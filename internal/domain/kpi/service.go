package kpi

import (
	"context"

	"kpim/internal/domain/auth"
	"kpim/internal/domain/notifications"
)

// Recomputer enqueues an aggregation refresh; delivery is at-least-once and
// the recompute itself is idempotent.
type Recomputer interface {
	EnqueueRecompute(kpiID string)
}

type Service struct {
	store     StoreAPI
	events    notifications.Publisher
	recompute Recomputer
}

func NewService(store StoreAPI, events notifications.Publisher, recompute Recomputer) *Service {
	return &Service{store: store, events: events, recompute: recompute}
}

func (s *Service) ListKPIs(ctx context.Context, user auth.UserContext, limit, offset int) ([]KPI, error) {
	return s.store.ListKPIs(ctx, user, limit, offset)
}

func (s *Service) GetKPI(ctx context.Context, kpiID string) (KPI, error) {
	return s.store.GetKPI(ctx, kpiID)
}

func (s *Service) ListAssignments(ctx context.Context, user auth.UserContext, kpiID string, limit, offset int) ([]Assignment, error) {
	return s.store.ListAssignments(ctx, user, kpiID, limit, offset)
}

// SubmitValue records a PENDING actual-value submission against an active
// assignment. It only enters aggregation once approved.
func (s *Service) SubmitValue(ctx context.Context, user auth.UserContext, kpiID, assignmentID string, value float64) (string, error) {
	assignment, err := s.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return "", err
	}
	if assignment.KPIID != kpiID {
		return "", ErrAssignmentNotFound
	}
	id, err := s.store.CreateValueRecord(ctx, assignmentID, value, user.UserID)
	if err != nil {
		return "", err
	}
	if s.events != nil {
		s.events.Publish(ctx, notifications.Event{
			Type:       notifications.TypeValueSubmitted,
			KPIID:      assignment.KPIID,
			EmployeeID: deref(assignment.EmployeeID),
			SectionID:  deref(assignment.SectionID),
			ActorID:    user.UserID,
		})
	}
	return id, nil
}

// ApproveValue resolves a pending record and triggers the asynchronous
// recompute of the KPI's cached actual value.
func (s *Service) ApproveValue(ctx context.Context, user auth.UserContext, valueID string) error {
	kpiID, employeeID, err := s.store.ResolveValueRecord(ctx, valueID, ValueStatusApproved)
	if err != nil {
		return err
	}
	if s.events != nil {
		s.events.Publish(ctx, notifications.Event{
			Type:       notifications.TypeValueApproved,
			KPIID:      kpiID,
			EmployeeID: employeeID,
			ActorID:    user.UserID,
		})
	}
	if s.recompute != nil {
		s.recompute.EnqueueRecompute(kpiID)
	}
	return nil
}

func (s *Service) RejectValue(ctx context.Context, user auth.UserContext, valueID string) error {
	_, _, err := s.store.ResolveValueRecord(ctx, valueID, ValueStatusRejected)
	return err
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
