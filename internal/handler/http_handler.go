// Package handler implements the HTTP surface of the proposal service.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/trustvest/be-proposals/internal/apperr"
	"github.com/trustvest/be-proposals/internal/logger"
	"github.com/trustvest/be-proposals/internal/middleware"
	"github.com/trustvest/be-proposals/internal/workflow"
)

// HTTPHandler exposes the workflow engine over REST. Every mutation responds
// with the fully updated proposal so clients never need a follow-up fetch,
// and the acting identity always comes from the authenticated request, never
// from the body.
type HTTPHandler struct {
	engine *workflow.Engine
	log    *logger.Logger
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(engine *workflow.Engine, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{engine: engine, log: log}
}

// Register attaches all routes to the mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/proposals", h.ListProposals)
	mux.HandleFunc("POST /api/proposals", h.CreateProposal)
	mux.HandleFunc("GET /api/proposals/{id}", h.GetProposal)
	mux.HandleFunc("POST /api/proposals/{id}/submit", h.SubmitProposal)
	mux.HandleFunc("POST /api/proposals/{id}/approve", h.ApproveStep)
	mux.HandleFunc("POST /api/proposals/{id}/reject", h.RejectProposal)
	mux.HandleFunc("GET /api/audit", h.AuditTrail)
}

// CreateProposal handles POST /api/proposals.
func (h *HTTPHandler) CreateProposal(w http.ResponseWriter, r *http.Request) {
	var req workflow.CreateRequest
	if err := decodeBody(r, &req); err != nil {
		if errors.Is(err, io.EOF) {
			err = apperr.New(apperr.CodeValidation, "request body is required")
		}
		h.writeError(w, r, err)
		return
	}

	proposal, err := h.engine.Create(r.Context(), &req, actor(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, proposal)
}

// GetProposal handles GET /api/proposals/{id}.
func (h *HTTPHandler) GetProposal(w http.ResponseWriter, r *http.Request) {
	id, err := proposalID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	proposal, err := h.engine.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, proposal)
}

// ListProposals handles GET /api/proposals. Proposals are returned in
// ascending id order.
func (h *HTTPHandler) ListProposals(w http.ResponseWriter, r *http.Request) {
	proposals, err := h.engine.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, proposals)
}

// SubmitProposal handles POST /api/proposals/{id}/submit. The optional body
// is a JSON array of step names; absent or empty selects the default chain.
func (h *HTTPHandler) SubmitProposal(w http.ResponseWriter, r *http.Request) {
	id, err := proposalID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	sel := workflow.DefaultChain()
	var names []string
	switch err := decodeBody(r, &names); {
	case err == nil:
		if len(names) > 0 {
			sel = workflow.CustomChain(names)
		}
	case errors.Is(err, io.EOF):
		// No body: default chain.
	default:
		h.writeError(w, r, err)
		return
	}

	proposal, err := h.engine.Submit(r.Context(), id, sel, actor(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, proposal)
}

// ApproveStep handles POST /api/proposals/{id}/approve. The approver is the
// authenticated actor.
func (h *HTTPHandler) ApproveStep(w http.ResponseWriter, r *http.Request) {
	id, err := proposalID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req struct {
		Comments *string `json:"comments"`
	}
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, r, err)
		return
	}

	proposal, err := h.engine.ApproveStep(r.Context(), id, actor(r), req.Comments)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, proposal)
}

// RejectProposal handles POST /api/proposals/{id}/reject. Comments are
// mandatory; the approver is the authenticated actor.
func (h *HTTPHandler) RejectProposal(w http.ResponseWriter, r *http.Request) {
	id, err := proposalID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req struct {
		Comments string `json:"comments"`
	}
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, r, err)
		return
	}

	proposal, err := h.engine.RejectProposal(r.Context(), id, actor(r), req.Comments)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, proposal)
}

// AuditTrail handles GET /api/audit with an optional proposalId filter.
func (h *HTTPHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	var filter *int64
	if raw := r.URL.Query().Get("proposalId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.writeError(w, r, apperr.InvalidInput("proposalId", "must be an integer"))
			return
		}
		filter = &id
	}

	entries, err := h.engine.AuditTrail(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entries)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func actor(r *http.Request) string {
	return middleware.ActorFromContext(r.Context())
}

func proposalID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.InvalidInput("id", "must be a positive integer")
	}
	return id, nil
}

func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return err
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperr.Wrap(err, apperr.CodeValidation, "invalid request body")
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("failed to encode response")
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":     err.Error(),
		"code":      string(apperr.CodeOf(err)),
		"retryable": apperr.IsRetryable(err),
	})
}
