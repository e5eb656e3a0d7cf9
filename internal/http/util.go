package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"shuttle-ledger/internal/apperr"
	"shuttle-ledger/internal/domain"
)

const maxBodyBytes = 1 << 20

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Asserted identity headers; the core trusts them as given.
const (
	headerUserID   = "X-User-Id"
	headerUserRole = "X-User-Role"
	headerUserName = "X-User-Name"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy to a status; store and saga detail stays in the log
func writeError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error(op+" failed", zap.Error(err), zap.Bool("retryable", apperr.IsRetryable(err)))
	} else {
		logger.Debug(op+" rejected", zap.Error(err))
	}
	writeJSON(w, status, FailFor(err))
}

func writeXLSX(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func decodeBody(r *http.Request, out any) error {
	if err := readBodyJSON(r, maxBodyBytes, out); err != nil {
		return apperr.NewValidationError("body", "", "invalid body")
	}
	return nil
}

// actorFrom reads the asserted caller; a missing id or unknown role is refused
func actorFrom(r *http.Request) (domain.Actor, error) {
	a := domain.Actor{
		UserID: strings.TrimSpace(r.Header.Get(headerUserID)),
		Name:   strings.TrimSpace(r.Header.Get(headerUserName)),
		Role:   domain.Role(strings.ToUpper(strings.TrimSpace(r.Header.Get(headerUserRole)))),
	}
	if a.UserID == "" || !a.Role.Valid() {
		return domain.Actor{}, apperr.PermissionError{Role: string(a.Role)}
	}
	return a, nil
}
