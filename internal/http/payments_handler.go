package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"shuttle-ledger/internal/domain"
	"shuttle-ledger/internal/service"
)

// PaymentsHandler ledger writes and reconciliation reads
type PaymentsHandler struct {
	ledger service.LedgerService
	recon  service.ReconciliationService
	logger *zap.Logger
}

func NewPaymentsHandler(ledger service.LedgerService, recon service.ReconciliationService, logger *zap.Logger) *PaymentsHandler {
	return &PaymentsHandler{ledger: ledger, recon: recon, logger: logger}
}

func (h *PaymentsHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "RecordPayment", err)
		return
	}
	var req service.RecordPaymentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, "RecordPayment", err)
		return
	}
	p, err := h.ledger.RecordPayment(r.Context(), actor, req)
	if err != nil {
		writeError(w, h.logger, "RecordPayment", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(p))
}

func (h *PaymentsHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "ListPayments", err)
		return
	}
	q := service.PaymentQuery{
		StudentID: r.URL.Query().Get("student_id"),
		SchoolID:  r.URL.Query().Get("school_id"),
	}
	items, err := h.ledger.ListPayments(r.Context(), actor, q)
	if err != nil {
		writeError(w, h.logger, "ListPayments", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(PageOf(items)))
}

// CountByStatus ?status=PAID,PARTIAL
func (h *PaymentsHandler) CountByStatus(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "CountByStatus", err)
		return
	}
	var statuses []domain.PaymentStatus
	for _, s := range strings.Split(r.URL.Query().Get("status"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			statuses = append(statuses, domain.PaymentStatus(strings.ToUpper(s)))
		}
	}
	n, err := h.ledger.CountByStatus(r.Context(), actor, statuses...)
	if err != nil {
		writeError(w, h.logger, "CountByStatus", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"count": n}))
}

func (h *PaymentsHandler) DeleteSchoolPayments(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "DeleteSchoolPayments", err)
		return
	}
	if err := h.ledger.DeleteSchoolPayments(r.Context(), actor, r.PathValue("id")); err != nil {
		writeError(w, h.logger, "DeleteSchoolPayments", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
}

func (h *PaymentsHandler) MonthlySummary(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "MonthlySummary", err)
		return
	}
	q := r.URL.Query()
	sum, err := h.recon.MonthlySummary(r.Context(), actor, q.Get("school_id"), parseInt(q.Get("year"), 0))
	if err != nil {
		writeError(w, h.logger, "MonthlySummary", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(sum))
}

func (h *PaymentsHandler) YearlySummary(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "YearlySummary", err)
		return
	}
	q := r.URL.Query()
	report, err := h.recon.YearlySummary(r.Context(), actor, q.Get("school_id"), parseInt(q.Get("year"), 0))
	if err != nil {
		writeError(w, h.logger, "YearlySummary", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(report))
}

func (h *PaymentsHandler) Shortages(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "Shortages", err)
		return
	}
	q := r.URL.Query()
	rows, err := h.recon.Shortages(r.Context(), actor, q.Get("school_id"), parseInt(q.Get("year"), 0), parseInt(q.Get("month"), 0))
	if err != nil {
		writeError(w, h.logger, "Shortages", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(PageOf(rows)))
}

func (h *PaymentsHandler) StudentStatus(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "StudentStatus", err)
		return
	}
	q := r.URL.Query()
	st, err := h.recon.StudentStatus(r.Context(), actor, q.Get("student_id"), parseInt(q.Get("year"), 0), parseInt(q.Get("month"), 0))
	if err != nil {
		writeError(w, h.logger, "StudentStatus", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(st))
}

func (h *PaymentsHandler) ExportShortages(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "ExportShortages", err)
		return
	}
	q := r.URL.Query()
	year, month := parseInt(q.Get("year"), 0), parseInt(q.Get("month"), 0)
	data, err := h.recon.ExportShortages(r.Context(), actor, q.Get("school_id"), year, month)
	if err != nil {
		writeError(w, h.logger, "ExportShortages", err)
		return
	}
	writeXLSX(w, fmt.Sprintf("shortages-%d-%02d.xlsx", year, month), data)
}

func (h *PaymentsHandler) ExportYearly(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "ExportYearly", err)
		return
	}
	q := r.URL.Query()
	year := parseInt(q.Get("year"), 0)
	data, err := h.recon.ExportYearly(r.Context(), actor, q.Get("school_id"), year)
	if err != nil {
		writeError(w, h.logger, "ExportYearly", err)
		return
	}
	writeXLSX(w, fmt.Sprintf("yearly-%d.xlsx", year), data)
}
