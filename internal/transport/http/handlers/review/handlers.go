package reviewhandler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kpim/internal/domain/auth"
	"kpim/internal/domain/review"
	"kpim/internal/platform/metrics"
	"kpim/internal/transport/http/api"
	"kpim/internal/transport/http/middleware"
	"kpim/internal/transport/http/shared"
)

type Handler struct {
	Service *review.Service
	Perms   middleware.PermissionStore
	Idem    *middleware.IdempotencyStore
	Metrics *metrics.Collector
}

func NewHandler(service *review.Service, perms middleware.PermissionStore, idem *middleware.IdempotencyStore, collector *metrics.Collector) *Handler {
	return &Handler{Service: service, Perms: perms, Idem: idem, Metrics: collector}
}

func (h *Handler) recordTransition(ok bool) {
	if h.Metrics != nil {
		h.Metrics.RecordTransition(ok)
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reviews", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermReviewRead, h.Perms)).Get("/mine", h.handleMyReviews)
		r.With(middleware.RequirePermission(auth.PermReviewRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermReviewRead, h.Perms)).Get("/history", h.handleHistory)
		r.With(middleware.RequirePermission(auth.PermReviewRead, h.Perms)).Get("/{recordID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermReviewRead, h.Perms)).Get("/{recordID}/history", h.handleRecordHistory)
		r.With(middleware.RequirePermission(auth.PermReviewSubmit, h.Perms)).Post("/{recordID}/self", h.handleSelfReview)
		r.With(middleware.RequirePermission(auth.PermReviewApprove, h.Perms)).Post("/{recordID}/submit", h.handleSubmit)
		r.With(middleware.RequirePermission(auth.PermReviewApprove, h.Perms)).Post("/{recordID}/reject", h.handleReject)
		r.With(middleware.RequirePermission(auth.PermReviewSubmit, h.Perms)).Post("/{recordID}/feedback", h.handleFeedback)
		r.With(middleware.RequirePermission(auth.PermReviewComplete, h.Perms)).Post("/{recordID}/complete", h.handleComplete)
	})
}

// recordView decorates a record with the derived final score so clients do
// not re-implement the precedence order.
type recordView struct {
	review.Record
	FinalScore *float64 `json:"finalScore,omitempty"`
}

func viewOf(rec review.Record) recordView {
	return recordView{Record: rec, FinalScore: review.FinalScore(rec)}
}

func viewsOf(records []review.Record) []recordView {
	out := make([]recordView, 0, len(records))
	for _, rec := range records {
		out = append(out, viewOf(rec))
	}
	return out
}

func (h *Handler) handleMyReviews(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	cycle := r.URL.Query().Get("cycle")
	v := shared.NewValidator()
	v.Required("cycle", cycle, "cycle is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	records, err := h.Service.MyReviews(r.Context(), user, cycle)
	if err != nil {
		h.fail(w, r, "review_list_failed", "failed to list reviews", err)
		return
	}
	api.Success(w, viewsOf(records), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	page := shared.ParsePagination(r, 50, 200)
	cycle := r.URL.Query().Get("cycle")
	kpiID := r.URL.Query().Get("kpiId")

	records, err := h.Service.List(r.Context(), user, cycle, kpiID, page.Limit, page.Offset)
	if err != nil {
		h.fail(w, r, "review_list_failed", "failed to list reviews", err)
		return
	}
	api.Success(w, viewsOf(records), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	rec, err := h.Service.Get(r.Context(), user, chi.URLParam(r, "recordID"))
	if err != nil {
		h.fail(w, r, "review_get_failed", "failed to load review", err)
		return
	}
	api.Success(w, viewOf(rec), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRecordHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	entries, err := h.Service.HistoryForRecord(r.Context(), user, chi.URLParam(r, "recordID"))
	if err != nil {
		h.fail(w, r, "review_history_failed", "failed to load review history", err)
		return
	}
	api.Success(w, entries, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	kpiID := r.URL.Query().Get("kpiId")
	employeeID := r.URL.Query().Get("employeeId")
	cycle := r.URL.Query().Get("cycle")

	v := shared.NewValidator()
	v.Required("kpiId", kpiID, "kpiId is required")
	v.Required("cycle", cycle, "cycle is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	entries, err := h.Service.History(r.Context(), user, kpiID, employeeID, cycle)
	if err != nil {
		h.fail(w, r, "review_history_failed", "failed to load review history", err)
		return
	}
	api.Success(w, entries, middleware.GetRequestID(r.Context()))
}

type scorePayload struct {
	Score   *float64 `json:"score"`
	Comment string   `json:"comment"`
}

func (h *Handler) handleSelfReview(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload scorePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if payload.Score != nil {
		v := shared.NewValidator()
		v.Range("score", *payload.Score, 0, 100, "score must be between 0 and 100")
		if v.Reject(w, middleware.GetRequestID(r.Context())) {
			return
		}
	}

	rec, err := h.Service.SubmitSelfReview(r.Context(), user, chi.URLParam(r, "recordID"), payload.Score, payload.Comment)
	h.recordTransition(err == nil)
	if err != nil {
		h.fail(w, r, "self_review_failed", "failed to submit self review", err)
		return
	}
	api.Success(w, viewOf(rec), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload scorePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if payload.Score != nil {
		v := shared.NewValidator()
		v.Range("score", *payload.Score, 0, 100, "score must be between 0 and 100")
		if v.Reject(w, middleware.GetRequestID(r.Context())) {
			return
		}
	}

	rec, err := h.Service.SubmitByRole(r.Context(), user, chi.URLParam(r, "recordID"), payload.Score, payload.Comment)
	h.recordTransition(err == nil)
	if err != nil {
		h.fail(w, r, "review_submit_failed", "failed to submit review", err)
		return
	}
	api.Success(w, viewOf(rec), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("reason", payload.Reason, "rejection reason is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	rec, err := h.Service.RejectByRole(r.Context(), user, chi.URLParam(r, "recordID"), payload.Reason)
	h.recordTransition(err == nil)
	if err != nil {
		h.fail(w, r, "review_reject_failed", "failed to reject review", err)
		return
	}
	api.Success(w, viewOf(rec), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleFeedback(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		Feedback string `json:"feedback"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	rec, err := h.Service.SubmitEmployeeFeedback(r.Context(), user, chi.URLParam(r, "recordID"), payload.Feedback)
	h.recordTransition(err == nil)
	if err != nil {
		h.fail(w, r, "review_feedback_failed", "failed to submit feedback", err)
		return
	}
	api.Success(w, viewOf(rec), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	recordID := chi.URLParam(r, "recordID")
	endpoint := "reviews.complete"
	idemKey := r.Header.Get("Idempotency-Key")
	requestHash := middleware.RequestHash([]byte(recordID))

	if idemKey != "" {
		stored, found, err := h.Idem.Check(r.Context(), user.UserID, endpoint, idemKey, requestHash)
		if err != nil {
			if errors.Is(err, middleware.ErrIdempotencyConflict) {
				api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key already used with a different request", middleware.GetRequestID(r.Context()))
				return
			}
			h.fail(w, r, "review_complete_failed", "failed to complete review", err)
			return
		}
		if found {
			var replay recordView
			if err := json.Unmarshal(stored, &replay); err == nil {
				api.Success(w, replay, middleware.GetRequestID(r.Context()))
				return
			}
		}
	}

	rec, err := h.Service.CompleteReview(r.Context(), user, recordID)
	h.recordTransition(err == nil)
	if err != nil {
		h.fail(w, r, "review_complete_failed", "failed to complete review", err)
		return
	}

	view := viewOf(rec)
	if idemKey != "" {
		if body, err := json.Marshal(view); err == nil {
			if err := h.Idem.Save(r.Context(), user.UserID, endpoint, idemKey, requestHash, body); err != nil {
				h.fail(w, r, "review_complete_failed", "failed to complete review", err)
				return
			}
		}
	}
	api.Success(w, view, middleware.GetRequestID(r.Context()))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, code, message string, err error) {
	requestID := middleware.GetRequestID(r.Context())

	var transition *review.TransitionError
	switch {
	case errors.Is(err, review.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "review record not found", requestID)
	case errors.As(err, &transition):
		api.FailWithDetails(w, http.StatusConflict, "invalid_transition", transition.Error(),
			map[string]any{"currentStatus": transition.Current}, requestID)
	case errors.Is(err, review.ErrInvalidTransition):
		api.Fail(w, http.StatusConflict, "invalid_transition", err.Error(), requestID)
	case errors.Is(err, review.ErrSelfApprovalForbidden):
		api.Fail(w, http.StatusForbidden, "self_approval_forbidden", err.Error(), requestID)
	case errors.Is(err, review.ErrNotRecordOwner):
		api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), requestID)
	case errors.Is(err, review.ErrMissingScore):
		api.Fail(w, http.StatusBadRequest, "missing_score", err.Error(), requestID)
	case errors.Is(err, review.ErrUnsupportedRole):
		api.Fail(w, http.StatusBadRequest, "unsupported_role", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}
