package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contaflow/contaflow/internal/domain"
	"github.com/contaflow/contaflow/internal/importer"
	"github.com/contaflow/contaflow/internal/sheets"
	"github.com/contaflow/contaflow/internal/store"
)

// stubSource serves one fixed workbook with a single transactions sheet
// referencing a pre-seeded account.
type stubSource struct {
	err error
}

func (s *stubSource) ListSheets(ctx context.Context, workbookID string) (sheets.Workbook, error) {
	if s.err != nil {
		return sheets.Workbook{}, s.err
	}
	return sheets.Workbook{
		ID:    workbookID,
		Title: "Financeiro",
		Sheets: []sheets.SheetInfo{
			{Name: "Plano de Contas", RowCount: 2},
			{Name: "Lançamentos", RowCount: 2},
		},
	}, nil
}

func (s *stubSource) Values(ctx context.Context, workbookID, sheetName string) ([][]string, error) {
	switch sheetName {
	case "Plano de Contas":
		return [][]string{
			{"Grupo", "Subgrupo", "Conta"},
			{"Despesas", "Ocupação", "Aluguel"},
		}, nil
	default:
		return [][]string{
			{"Data", "Conta", "Valor"},
			{"05/01/2025", "Aluguel", "1.200,00"},
		}, nil
	}
}

func newTestHandler(src sheets.Source, mem *store.Memory) *ImportHandler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	imp := importer.New(src, mem, log, 0)
	limiter := importer.NewRunLimiter(2, 100*time.Millisecond)
	return NewImportHandler(imp, mem, limiter, time.Minute)
}

func postImport(t *testing.T, h *ImportHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/imports", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.handleRunImport(rec, req)
	return rec
}

func TestHandleRunImport(t *testing.T) {
	mem := store.NewMemory()
	h := newTestHandler(&stubSource{}, mem)

	body := fmt.Sprintf(`{"workbook_id":"wb-1","tenant_id":%q,"business_unit_id":%q}`,
		uuid.New(), uuid.New())
	rec := postImport(t, h, body)

	require.Equal(t, http.StatusOK, rec.Code)

	var result importer.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, "Financeiro", result.WorkbookTitle)
	assert.Equal(t, 1, result.DataImported.Transactions)
	assert.Len(t, mem.Ledger, 1)
}

func TestHandleRunImport_BadRequests(t *testing.T) {
	h := newTestHandler(&stubSource{}, store.NewMemory())

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{`},
		{name: "missing workbook", body: fmt.Sprintf(`{"tenant_id":%q,"business_unit_id":%q}`, uuid.New(), uuid.New())},
		{name: "bad tenant id", body: `{"workbook_id":"wb-1","tenant_id":"nope","business_unit_id":"nope"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postImport(t, h, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandleRunImport_SourceUnavailable(t *testing.T) {
	src := &stubSource{err: fmt.Errorf("auth: %w", sheets.ErrSourceUnavailable)}
	h := newTestHandler(src, store.NewMemory())

	body := fmt.Sprintf(`{"workbook_id":"wb-1","tenant_id":%q,"business_unit_id":%q}`,
		uuid.New(), uuid.New())
	rec := postImport(t, h, body)

	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "source_unavailable", resp.Code)
}

func TestHandleRunImport_RejectsWhenSlotsBusy(t *testing.T) {
	mem := store.NewMemory()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	imp := importer.New(&stubSource{}, mem, log, 0)
	limiter := importer.NewRunLimiter(1, 20*time.Millisecond)
	h := NewImportHandler(imp, mem, limiter, time.Minute)

	// Occupy the only slot out of band.
	require.NoError(t, limiter.Acquire(context.Background()))
	defer limiter.Release()

	body := fmt.Sprintf(`{"workbook_id":"wb-1","tenant_id":%q,"business_unit_id":%q}`,
		uuid.New(), uuid.New())
	rec := postImport(t, h, body)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "too_many_imports", resp.Code)
}

func TestHandleListImports(t *testing.T) {
	mem := store.NewMemory()
	h := newTestHandler(&stubSource{}, mem)

	tenantID := uuid.New()
	mem.Runs = []domain.ImportRun{
		{ID: uuid.New(), TenantID: tenantID, WorkbookID: "wb-1", Success: true, Transactions: 3, Duration: 1500 * time.Millisecond},
		{ID: uuid.New(), TenantID: uuid.New(), WorkbookID: "wb-other"},
		{ID: uuid.New(), TenantID: tenantID, WorkbookID: "wb-2", Success: false, ErrorCount: 2},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/imports?tenant_id="+tenantID.String(), nil)
	rec := httptest.NewRecorder()
	h.handleListImports(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Runs []runView `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	// Newest first, other tenants filtered out.
	require.Len(t, resp.Runs, 2)
	assert.Equal(t, "wb-2", resp.Runs[0].WorkbookID)
	assert.Equal(t, "wb-1", resp.Runs[1].WorkbookID)
	assert.Equal(t, int64(1500), resp.Runs[1].DurationMS)
}

func TestHandleListImports_BadParams(t *testing.T) {
	h := newTestHandler(&stubSource{}, store.NewMemory())

	req := httptest.NewRequest(http.MethodGet, "/api/imports", nil)
	rec := httptest.NewRecorder()
	h.handleListImports(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/imports?tenant_id="+uuid.NewString()+"&limit=-1", nil)
	rec = httptest.NewRecorder()
	h.handleListImports(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
