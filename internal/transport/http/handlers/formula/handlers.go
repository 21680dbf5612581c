package formulahandler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kpim/internal/domain/auth"
	"kpim/internal/domain/formula"
	"kpim/internal/transport/http/api"
	"kpim/internal/transport/http/middleware"
	"kpim/internal/transport/http/shared"
)

type Handler struct {
	Service *formula.Service
	Perms   middleware.PermissionStore
}

func NewHandler(service *formula.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/formulas", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermFormulaRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermFormulaRead, h.Perms)).Get("/by-kpi/{kpiID}", h.handleForKPI)
		r.With(middleware.RequirePermission(auth.PermFormulaRead, h.Perms)).Get("/{formulaID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermFormulaWrite, h.Perms)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermFormulaWrite, h.Perms)).Put("/{formulaID}", h.handleUpdate)
		r.With(middleware.RequirePermission(auth.PermFormulaWrite, h.Perms)).Delete("/{formulaID}", h.handleDelete)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	formulas, err := h.Service.List(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "formula_list_failed", "failed to list formulas", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, formulas, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	record, err := h.Service.Get(r.Context(), chi.URLParam(r, "formulaID"))
	if err != nil {
		h.fail(w, r, "formula_get_failed", "failed to load formula", err)
		return
	}
	api.Success(w, record, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleForKPI(w http.ResponseWriter, r *http.Request) {
	expression, err := h.Service.ForKPI(r.Context(), chi.URLParam(r, "kpiID"))
	if err != nil {
		h.fail(w, r, "formula_get_failed", "failed to load formula", err)
		return
	}
	api.Success(w, map[string]string{"expression": expression}, middleware.GetRequestID(r.Context()))
}

type formulaPayload struct {
	Name       string  `json:"name"`
	Expression string  `json:"expression"`
	KPIID      *string `json:"kpiId"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload formulaPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	v.Required("expression", payload.Expression, "expression is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Service.Define(r.Context(), payload.Name, payload.Expression, payload.KPIID)
	if err != nil {
		h.fail(w, r, "formula_create_failed", "failed to create formula", err)
		return
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var payload formulaPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	v.Required("expression", payload.Expression, "expression is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	if err := h.Service.Update(r.Context(), chi.URLParam(r, "formulaID"), payload.Name, payload.Expression, payload.KPIID); err != nil {
		h.fail(w, r, "formula_update_failed", "failed to update formula", err)
		return
	}
	api.Success(w, map[string]string{"id": chi.URLParam(r, "formulaID")}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), chi.URLParam(r, "formulaID")); err != nil {
		h.fail(w, r, "formula_delete_failed", "failed to delete formula", err)
		return
	}
	api.Success(w, map[string]bool{"deleted": true}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, code, message string, err error) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, formula.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "formula not found", requestID)
	case errors.Is(err, formula.ErrInvalidFormula):
		api.Fail(w, http.StatusUnprocessableEntity, "invalid_formula", err.Error(), requestID)
	case errors.Is(err, formula.ErrUnknownKPI):
		api.Fail(w, http.StatusBadRequest, "unknown_kpi", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}
