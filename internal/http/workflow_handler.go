package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"shuttle-ledger/internal/domain"
	"shuttle-ledger/internal/repository"
	"shuttle-ledger/internal/service"
)

// WorkflowHandler alerts, notices and the parent-initiated requests
type WorkflowHandler struct {
	workflow service.WorkflowService
	logger   *zap.Logger
}

func NewWorkflowHandler(workflow service.WorkflowService, logger *zap.Logger) *WorkflowHandler {
	return &WorkflowHandler{workflow: workflow, logger: logger}
}

func (h *WorkflowHandler) RequestPaymentCheck(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "RequestPaymentCheck", err)
		return
	}
	var req service.PaymentCheckRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, "RequestPaymentCheck", err)
		return
	}
	res, err := h.workflow.RequestPaymentCheck(r.Context(), actor, req)
	if err != nil {
		writeError(w, h.logger, "RequestPaymentCheck", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

func (h *WorkflowHandler) SendShortageNotices(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "SendShortageNotices", err)
		return
	}
	var req service.ShortageNoticeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, "SendShortageNotices", err)
		return
	}
	res, err := h.workflow.SendShortageNotices(r.Context(), actor, req)
	if err != nil {
		writeError(w, h.logger, "SendShortageNotices", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

func (h *WorkflowHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "ListAlerts", err)
		return
	}
	q := r.URL.Query()
	items, err := h.workflow.ListAlerts(r.Context(), actor, repository.AlertFilter{
		SchoolID:  q.Get("school_id"),
		StudentID: q.Get("student_id"),
		Type:      domain.AlertType(q.Get("type")),
	})
	if err != nil {
		writeError(w, h.logger, "ListAlerts", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(PageOf(items)))
}

func (h *WorkflowHandler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "ResolveAlert", err)
		return
	}
	if err := h.workflow.ResolveAlert(r.Context(), actor, r.PathValue("id")); err != nil {
		writeError(w, h.logger, "ResolveAlert", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
}

func (h *WorkflowHandler) ChangePickupPoint(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "ChangePickupPoint", err)
		return
	}
	var req service.PickupChangeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, "ChangePickupPoint", err)
		return
	}
	req.StudentID = r.PathValue("id")
	res, err := h.workflow.ChangePickupPoint(r.Context(), actor, req)
	if err != nil {
		writeError(w, h.logger, "ChangePickupPoint", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

func (h *WorkflowHandler) RequestSchoolMatch(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "RequestSchoolMatch", err)
		return
	}
	res, err := h.workflow.RequestSchoolMatch(r.Context(), actor)
	if err != nil {
		writeError(w, h.logger, "RequestSchoolMatch", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

func (h *WorkflowHandler) LockBoardPost(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "LockBoardPost", err)
		return
	}
	post, err := h.workflow.LockBoardPost(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, "LockBoardPost", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(post))
}
