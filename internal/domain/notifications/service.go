package notifications

import (
	"context"
	"encoding/json"
	"log/slog"

	"kpim/internal/domain/orgdir"
)

// Service routes domain events to notification rows. Every failure here is
// logged and swallowed: the transition that emitted the event has already
// committed, and a missing notification must never look like a failed write.
type Service struct {
	store StoreAPI
	dir   orgdir.API
}

func New(store StoreAPI, dir orgdir.API) *Service {
	return &Service{store: store, dir: dir}
}

func (s *Service) Publish(ctx context.Context, event Event) {
	recipients := s.recipients(ctx, event)
	if len(recipients) == 0 {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Warn("event payload marshal failed", "type", event.Type, "err", err)
		return
	}
	for _, userID := range recipients {
		if userID == "" {
			continue
		}
		if err := s.store.Create(ctx, userID, event.Type, payload); err != nil {
			slog.Warn("notification write failed", "type", event.Type, "userId", userID, "err", err)
		}
	}
}

// recipients resolves who should hear about the event using the directory.
// Routing is best-effort; lookup failures drop the notification, not the
// request.
func (s *Service) recipients(ctx context.Context, event Event) []string {
	switch event.Type {
	case TypeSectionPending, TypeValueSubmitted:
		sectionID := event.SectionID
		if sectionID == "" && event.EmployeeID != "" {
			sectionID, _ = s.employeeOrgPair(ctx, event.EmployeeID)
		}
		if sectionID == "" {
			return nil
		}
		leader, err := s.dir.SectionLeaderUserID(ctx, sectionID)
		if err != nil {
			slog.Warn("section leader lookup failed", "sectionId", sectionID, "err", err)
			return nil
		}
		return []string{leader}

	case TypeDepartmentPending:
		departmentID := event.DepartmentID
		if departmentID == "" && event.EmployeeID != "" {
			_, departmentID = s.employeeOrgPair(ctx, event.EmployeeID)
		}
		if departmentID == "" {
			return nil
		}
		manager, err := s.dir.DepartmentManagerUserID(ctx, departmentID)
		if err != nil {
			slog.Warn("department manager lookup failed", "departmentId", departmentID, "err", err)
			return nil
		}
		return []string{manager}

	case TypeManagerPending:
		managers, err := s.dir.ManagerUserIDs(ctx)
		if err != nil {
			slog.Warn("manager lookup failed", "err", err)
			return nil
		}
		return managers

	case TypeFeedbackPending, TypeCompleted, TypeRejected, TypeValueApproved:
		if event.EmployeeID == "" {
			return nil
		}
		userID, err := s.dir.EmployeeUserID(ctx, event.EmployeeID)
		if err != nil {
			slog.Warn("employee lookup failed", "employeeId", event.EmployeeID, "err", err)
			return nil
		}
		return []string{userID}
	}
	return nil
}

func (s *Service) employeeOrgPair(ctx context.Context, employeeID string) (string, string) {
	sectionID, departmentID, err := s.dir.EmployeeOrg(ctx, employeeID)
	if err != nil {
		slog.Warn("employee org lookup failed", "employeeId", employeeID, "err", err)
		return "", ""
	}
	return sectionID, departmentID
}

func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Notification, error) {
	return s.store.List(ctx, userID, limit, offset)
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.store.Count(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID, notificationID string) error {
	return s.store.MarkRead(ctx, userID, notificationID)
}
