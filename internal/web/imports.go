package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/contaflow/contaflow/internal/importer"
	"github.com/contaflow/contaflow/internal/logging"
	"github.com/contaflow/contaflow/internal/store"
	"github.com/google/uuid"
)

// ImportHandler exposes the importer over HTTP.
type ImportHandler struct {
	importer *importer.Importer
	store    store.Store
	limiter  *importer.RunLimiter
	timeout  time.Duration
}

// NewImportHandler wires the importer with its per-run timeout and the
// concurrency limiter. The store is only read for run history.
func NewImportHandler(imp *importer.Importer, st store.Store, limiter *importer.RunLimiter, timeout time.Duration) *ImportHandler {
	return &ImportHandler{importer: imp, store: st, limiter: limiter, timeout: timeout}
}

// importRequest is the POST /api/imports body.
type importRequest struct {
	WorkbookID     string `json:"workbook_id"`
	TenantID       string `json:"tenant_id"`
	BusinessUnitID string `json:"business_unit_id"`
}

// validate parses the request into an importer.Request.
func (ir importRequest) validate() (importer.Request, error) {
	if ir.WorkbookID == "" {
		return importer.Request{}, fmt.Errorf("workbook_id is required")
	}
	tenantID, err := uuid.Parse(ir.TenantID)
	if err != nil {
		return importer.Request{}, fmt.Errorf("tenant_id: %w", err)
	}
	buID, err := uuid.Parse(ir.BusinessUnitID)
	if err != nil {
		return importer.Request{}, fmt.Errorf("business_unit_id: %w", err)
	}
	return importer.Request{
		WorkbookID:     ir.WorkbookID,
		TenantID:       tenantID,
		BusinessUnitID: buID,
	}, nil
}

// handleRunImport runs one import synchronously and returns the result
// contract. Partial success still returns 200 with success=false in the
// body; only fatal failures (unreachable workbook, bad request) map to
// error statuses.
func (h *ImportHandler) handleRunImport(w http.ResponseWriter, r *http.Request) {
	var body importRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, r, fmt.Errorf("decode request: %w", err), http.StatusBadRequest)
		return
	}

	req, err := body.validate()
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	if err := h.limiter.Acquire(r.Context()); err != nil {
		respondError(w, r, err, http.StatusTooManyRequests)
		return
	}
	defer h.limiter.Release()

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	log := logging.FromContext(r.Context())
	log.Info("import requested", "workbook", req.WorkbookID, "tenant", req.TenantID)

	result, err := h.importer.Run(ctx, req)
	if err != nil {
		respondError(w, r, err, http.StatusBadGateway)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// runView is the GET /api/imports representation of one past run.
type runView struct {
	ID             uuid.UUID `json:"id"`
	BusinessUnitID uuid.UUID `json:"business_unit_id"`
	WorkbookID     string    `json:"workbook_id"`
	WorkbookTitle  string    `json:"workbook_title"`
	Success        bool      `json:"success"`
	Groups         int       `json:"groups"`
	Subgroups      int       `json:"subgroups"`
	Accounts       int       `json:"accounts"`
	Transactions   int       `json:"transactions"`
	Forecasts      int       `json:"forecasts"`
	ErrorCount     int       `json:"error_count"`
	DurationMS     int64     `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// handleListImports returns the tenant's recent run history, newest
// first. The default page of 20 covers the dashboard use; limit caps at
// 100 to keep the query bounded.
func (h *ImportHandler) handleListImports(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(r.URL.Query().Get("tenant_id"))
	if err != nil {
		respondError(w, r, fmt.Errorf("tenant_id: %w", err), http.StatusBadRequest)
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			respondError(w, r, fmt.Errorf("limit must be a positive integer"), http.StatusBadRequest)
			return
		}
		if limit > 100 {
			limit = 100
		}
	}

	tx, err := h.store.Begin(r.Context())
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(r.Context()) }()

	runs, err := tx.ListImportRuns(r.Context(), tenantID, limit)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	views := make([]runView, 0, len(runs))
	for _, run := range runs {
		views = append(views, runView{
			ID:             run.ID,
			BusinessUnitID: run.BusinessUnitID,
			WorkbookID:     run.WorkbookID,
			WorkbookTitle:  run.WorkbookTitle,
			Success:        run.Success,
			Groups:         run.Groups,
			Subgroups:      run.Subgroups,
			Accounts:       run.Accounts,
			Transactions:   run.Transactions,
			Forecasts:      run.Forecasts,
			ErrorCount:     run.ErrorCount,
			DurationMS:     run.Duration.Milliseconds(),
			CreatedAt:      run.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"runs": views})
}
