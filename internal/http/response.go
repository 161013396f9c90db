package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"cashbook/internal/core"
)

// WriteJSON writes v as a JSON body with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError writes {"error": msg}.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, errorResponse{Error: msg})
}

type errorResponse struct {
	Error   string       `json:"error"`
	Details []fieldError `json:"details,omitempty"`
}

// statusFor maps an error category to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, core.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError answers with the status of err's category. Client errors
// carry the error text; server errors a fixed message.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	switch {
	case status < 500:
		slog.WarnContext(r.Context(), "Request rejected", "status_code", status, "error", err)
		WriteError(w, status, err.Error())
	case errors.Is(err, core.ErrConsistency):
		slog.ErrorContext(r.Context(), "Ledger diverged from storage", "error", err)
		WriteError(w, status, "Ledger out of sync, please reload")
	case status == http.StatusBadGateway:
		slog.ErrorContext(r.Context(), "Upstream failure", "error", err)
		WriteError(w, status, "Upstream service unavailable")
	default:
		slog.ErrorContext(r.Context(), "Request failed", "error", err)
		WriteError(w, status, "Internal server error")
	}
}

// proxyFailure names the message for each failure status a proxy route
// reports. An empty message means the category falls through to Fallback.
type proxyFailure struct {
	BadRequest string
	Forbidden  string
	NotFound   string
	Fallback   string
}

func (f proxyFailure) write(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := http.StatusInternalServerError, f.Fallback
	switch {
	case f.BadRequest != "" && errors.Is(err, core.ErrInvalidRequest):
		status, msg = http.StatusBadRequest, f.BadRequest
	case f.Forbidden != "" && errors.Is(err, core.ErrPermission):
		status, msg = http.StatusForbidden, f.Forbidden
	case f.NotFound != "" && errors.Is(err, core.ErrNotFound):
		status, msg = http.StatusNotFound, f.NotFound
	}
	slog.ErrorContext(r.Context(), "Report proxy call failed",
		"path", r.URL.Path, "status_code", status, "error", err)
	WriteError(w, status, msg)
}

var (
	copyFailure = proxyFailure{
		BadRequest: "Invalid request parameters",
		Forbidden:  "Access denied",
		NotFound:   "Source file not found",
		Fallback:   "Failed to copy file",
	}
	updateFailure = proxyFailure{
		BadRequest: "Invalid request parameters",
		Forbidden:  "Access denied",
		NotFound:   "File not found",
		Fallback:   "Failed to update sheet",
	}
	getFileFailure   = proxyFailure{NotFound: "File not found", Fallback: "Failed to get file"}
	listFilesFailure = proxyFailure{Fallback: "Failed to list files"}
	getSheetFailure  = proxyFailure{Fallback: "Failed to get spreadsheet"}
)
