package web

// errors.go provides unified error responses for the API.
//
// Technical detail is logged server-side with the request ID; clients
// get a stable machine-readable code plus a message an operator can act
// on without reading our logs.

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/contaflow/contaflow/internal/importer"
	"github.com/contaflow/contaflow/internal/sheets"
	"github.com/go-chi/chi/v5/middleware"
)

// ErrorResponse is the JSON structure for API error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// respondError logs the technical error and writes a user-facing response.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	code, message := mapError(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    code,
	})
}

// mapError translates internal errors to a stable code and an
// operator-facing message.
func mapError(err error) (code, message string) {
	switch {
	case errors.Is(err, importer.ErrTooManyImports):
		return "too_many_imports", "All import slots are busy. Retry in a moment."
	case errors.Is(err, sheets.ErrSourceUnavailable):
		return "source_unavailable", "The spreadsheet could not be reached. Check the workbook ID and that the service account has access."
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout", "The import did not finish in time. Re-run it; already-imported rows are skipped."
	case errors.Is(err, context.Canceled):
		return "cancelled", "The import was cancelled. Re-run it; already-imported rows are skipped."
	default:
		return "internal", "Something went wrong processing the request."
	}
}

// respondJSON writes v as a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}
