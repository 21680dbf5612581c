package kpihandler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kpim/internal/domain/aggregation"
	"kpim/internal/domain/auth"
	"kpim/internal/domain/kpi"
	"kpim/internal/transport/http/api"
	"kpim/internal/transport/http/middleware"
	"kpim/internal/transport/http/shared"
)

type Handler struct {
	Service     *kpi.Service
	Aggregation *aggregation.Service
	Perms       middleware.PermissionStore
}

func NewHandler(service *kpi.Service, agg *aggregation.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Aggregation: agg, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/kpis", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermKPIRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermKPIRead, h.Perms)).Get("/{kpiID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermKPIRead, h.Perms)).Get("/{kpiID}/assignments", h.handleListAssignments)
		r.With(middleware.RequirePermission(auth.PermKPIRead, h.Perms)).Get("/{kpiID}/aggregation", h.handleAggregation)
		r.With(middleware.RequirePermission(auth.PermValueSubmit, h.Perms)).Post("/{kpiID}/values", h.handleSubmitValue)
	})
	r.Route("/values", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermValueApprove, h.Perms)).Post("/{valueID}/approve", h.handleApproveValue)
		r.With(middleware.RequirePermission(auth.PermValueApprove, h.Perms)).Post("/{valueID}/reject", h.handleRejectValue)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	page := shared.ParsePagination(r, 50, 200)
	kpis, err := h.Service.ListKPIs(r.Context(), user, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "kpi_list_failed", "failed to list kpis", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, kpis, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	record, err := h.Service.GetKPI(r.Context(), chi.URLParam(r, "kpiID"))
	if err != nil {
		h.fail(w, r, "kpi_get_failed", "failed to load kpi", err)
		return
	}
	api.Success(w, record, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListAssignments(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	page := shared.ParsePagination(r, 50, 200)
	assignments, err := h.Service.ListAssignments(r.Context(), user, chi.URLParam(r, "kpiID"), page.Limit, page.Offset)
	if err != nil {
		h.fail(w, r, "assignment_list_failed", "failed to list assignments", err)
		return
	}
	api.Success(w, assignments, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAggregation(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	report, err := h.Aggregation.Report(r.Context(), user, chi.URLParam(r, "kpiID"))
	if err != nil {
		if errors.Is(err, aggregation.ErrKPINotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "kpi not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "aggregation_failed", "failed to compute aggregation", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, report, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSubmitValue(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		AssignmentID string   `json:"assignmentId"`
		Value        *float64 `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("assignmentId", payload.AssignmentID, "assignmentId is required")
	if payload.Value == nil {
		v.Add("value", "value is required")
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	valueID, err := h.Service.SubmitValue(r.Context(), user, chi.URLParam(r, "kpiID"), payload.AssignmentID, *payload.Value)
	if err != nil {
		h.fail(w, r, "value_submit_failed", "failed to submit value", err)
		return
	}
	api.Created(w, map[string]string{"id": valueID}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleApproveValue(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Service.ApproveValue(r.Context(), user, chi.URLParam(r, "valueID")); err != nil {
		h.fail(w, r, "value_approve_failed", "failed to approve value", err)
		return
	}
	api.Success(w, map[string]string{"status": kpi.ValueStatusApproved}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRejectValue(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Service.RejectValue(r.Context(), user, chi.URLParam(r, "valueID")); err != nil {
		h.fail(w, r, "value_reject_failed", "failed to reject value", err)
		return
	}
	api.Success(w, map[string]string{"status": kpi.ValueStatusRejected}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, code, message string, err error) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, kpi.ErrKPINotFound),
		errors.Is(err, kpi.ErrAssignmentNotFound),
		errors.Is(err, kpi.ErrValueNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	case errors.Is(err, kpi.ErrValueNotPending):
		api.Fail(w, http.StatusConflict, "value_resolved", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}
