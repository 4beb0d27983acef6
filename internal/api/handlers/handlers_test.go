package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerkit/finrecon/internal/api/middleware"
	"github.com/ledgerkit/finrecon/internal/domain"
	"github.com/ledgerkit/finrecon/internal/jobs"
	jobsmem "github.com/ledgerkit/finrecon/internal/jobs/inmemory"
	"github.com/ledgerkit/finrecon/internal/service"
	"github.com/ledgerkit/finrecon/internal/store/inmemory"
)

const testOwner = "owner-1"

const barclaysCSV = `Date,Description,Amount,Reference
01/03/2024,TESCO STORES 3301,25.00,ref-1
05/03/2024,PRET A MANGER - LONDON,4.50,ref-2
`

const ledgerCSV = `Transaction ID,Date,Time,Type,Name,Category,Amount,Currency,Notes and Tags,Description
tx-1,01/03/2024,09:15:00,Card payment,Tesco,Groceries,-25.00,GBP,,TESCO STORES 3301
tx-2,05/03/2024,13:20:00,Card payment,Pret,Eating Out,-4.50,GBP,,PRET A MANGER
`

type testEnv struct {
	svc      *service.Service
	st       *inmemory.Store
	jobStore *jobsmem.JobStore
	queue    *jobsmem.Queue
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := inmemory.New()
	now := time.Date(2024, 4, 15, 12, 0, 0, 0, time.UTC)
	svc := service.New(st, service.WithClock(func() time.Time { return now }))
	jobStore := jobsmem.NewJobStore()
	queue := jobsmem.NewQueue(8, jobStore)
	t.Cleanup(func() { _ = queue.Close() })
	return &testEnv{svc: svc, st: st, jobStore: jobStore, queue: queue}
}

// do runs a handler through the Owner middleware the way the router does.
func do(h http.HandlerFunc, method, target, ownerID string, body interface{}) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	if ownerID != "" {
		req.Header.Set("X-Owner-ID", ownerID)
	}
	rec := httptest.NewRecorder()
	middleware.Owner(h).ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func TestOwnerMiddlewareRequired(t *testing.T) {
	env := newTestEnv(t)
	h := NewImportsHandler(env.svc, env.queue, zerolog.Nop())

	rec := do(h.ImportExternal, http.MethodPost, "/api/imports/external", "", importRequest{Source: "barclays", CSV: barclaysCSV})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestImportExternalInline(t *testing.T) {
	env := newTestEnv(t)
	h := NewImportsHandler(env.svc, env.queue, zerolog.Nop())

	rec := do(h.ImportExternal, http.MethodPost, "/api/imports/external", testOwner, importRequest{Source: "barclays", CSV: barclaysCSV})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Parsed      int
		TotalStored int
	}
	decode(t, rec, &resp)
	assert.Equal(t, 2, resp.Parsed)
	assert.Equal(t, 2, resp.TotalStored)

	rows, err := env.st.ListExternal(context.Background(), testOwner, domain.SourceBarclays)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestImportExternalMissingSource(t *testing.T) {
	env := newTestEnv(t)
	h := NewImportsHandler(env.svc, env.queue, zerolog.Nop())

	rec := do(h.ImportExternal, http.MethodPost, "/api/imports/external", testOwner, importRequest{CSV: barclaysCSV})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportExternalEmptyCSV(t *testing.T) {
	env := newTestEnv(t)
	h := NewImportsHandler(env.svc, env.queue, zerolog.Nop())

	rec := do(h.ImportExternal, http.MethodPost, "/api/imports/external", testOwner, importRequest{Source: "barclays"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportExternalGCSURIEnqueues(t *testing.T) {
	env := newTestEnv(t)
	h := NewImportsHandler(env.svc, env.queue, zerolog.Nop())

	rec := do(h.ImportExternal, http.MethodPost, "/api/imports/external", testOwner, importRequest{
		Source: "barclays",
		GCSURI: "gs://uploads/statement.csv",
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	decode(t, rec, &resp)
	require.NotEmpty(t, resp.JobID)
	assert.Equal(t, string(jobs.JobStatusPending), resp.Status)

	job, err := env.jobStore.GetJob(context.Background(), resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, jobs.JobTypeImportExternal, job.Type)
	assert.Equal(t, testOwner, job.OwnerID)
	assert.Equal(t, "gs://uploads/statement.csv", job.GCSURI)
}

func TestMatchAndListMatches(t *testing.T) {
	env := newTestEnv(t)
	imports := NewImportsHandler(env.svc, env.queue, zerolog.Nop())
	recon := NewReconHandler(env.svc, env.st, zerolog.Nop())

	rec := do(imports.ImportExternal, http.MethodPost, "/api/imports/external", testOwner, importRequest{Source: "barclays", CSV: barclaysCSV})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(imports.ImportLedger, http.MethodPost, "/api/imports/ledger", testOwner, importRequest{CSV: ledgerCSV})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(recon.Match, http.MethodPost, "/api/match", testOwner, map[string]interface{}{"source": "barclays"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var matchResp struct {
		Matched   int
		Unmatched int
	}
	decode(t, rec, &matchResp)
	assert.Equal(t, 2, matchResp.Matched)
	assert.Equal(t, 0, matchResp.Unmatched)

	rec = do(recon.ListMatches, http.MethodGet, "/api/matches?source=barclays", testOwner, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listResp struct {
		Count int `json:"count"`
	}
	decode(t, rec, &listResp)
	assert.Equal(t, 2, listResp.Count)
}

func TestGetDebtServiceNotFound(t *testing.T) {
	env := newTestEnv(t)
	recon := NewReconHandler(env.svc, env.st, zerolog.Nop())

	rec := do(recon.GetDebtService, http.MethodGet, "/api/debt-service?source=barclays", testOwner, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(recon.GetDebtService, http.MethodGet, "/api/debt-service", testOwner, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecomputeThenGetDebtService(t *testing.T) {
	env := newTestEnv(t)
	imports := NewImportsHandler(env.svc, env.queue, zerolog.Nop())
	recon := NewReconHandler(env.svc, env.st, zerolog.Nop())

	rec := do(imports.ImportExternal, http.MethodPost, "/api/imports/external", testOwner, importRequest{Source: "barclays", CSV: barclaysCSV})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(recon.RecomputeDebtService, http.MethodPost, "/api/debt-service/recompute", testOwner, map[string]string{"source": "barclays"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(recon.GetDebtService, http.MethodGet, "/api/debt-service?source=barclays", testOwner, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report domain.DebtServiceReport
	decode(t, rec, &report)
	assert.Equal(t, domain.SourceBarclays, report.Source)
}

func TestDashboardDateValidation(t *testing.T) {
	env := newTestEnv(t)
	recon := NewReconHandler(env.svc, env.st, zerolog.Nop())

	rec := do(recon.Dashboard, http.MethodGet, "/api/dashboard?start_date=banana", testOwner, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(recon.Dashboard, http.MethodGet, "/api/dashboard", testOwner, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestListTransactions(t *testing.T) {
	env := newTestEnv(t)
	imports := NewImportsHandler(env.svc, env.queue, zerolog.Nop())
	txs := NewTransactionsHandler(env.st, zerolog.Nop())

	rec := do(imports.ImportLedger, http.MethodPost, "/api/imports/ledger", testOwner, importRequest{CSV: ledgerCSV})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(txs.ListLedger, http.MethodGet, "/api/transactions/ledger", testOwner, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Count int `json:"count"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, 2, resp.Count)

	// A different owner sees nothing.
	rec = do(txs.ListLedger, http.MethodGet, "/api/transactions/ledger", "someone-else", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &resp)
	assert.Equal(t, 0, resp.Count)
}

func TestActionStatusErrors(t *testing.T) {
	env := newTestEnv(t)
	actions := NewActionsHandler(env.svc, zerolog.Nop())

	rec := do(func(w http.ResponseWriter, r *http.Request) {
		actions.UpdateStatus(w, r, "missing-action")
	}, http.MethodPatch, "/api/actions/missing-action", testOwner, map[string]string{"status": "dismissed"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(func(w http.ResponseWriter, r *http.Request) {
		actions.UpdateStatus(w, r, "a1")
	}, http.MethodPatch, "/api/actions/a1", testOwner, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestActionStatusOwnershipMismatch(t *testing.T) {
	env := newTestEnv(t)
	actions := NewActionsHandler(env.svc, zerolog.Nop())

	require.NoError(t, env.st.ReplaceActions(context.Background(), "owner-2", []domain.Action{
		{ID: "a1", Type: domain.ActionCancel, Status: "suggested"},
	}))

	rec := do(func(w http.ResponseWriter, r *http.Request) {
		actions.UpdateStatus(w, r, "a1")
	}, http.MethodPatch, "/api/actions/a1", testOwner, map[string]string{"status": "dismissed"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCategoriesRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	cats := NewCategoriesHandler(env.st, zerolog.Nop())

	rec := do(cats.List, http.MethodGet, "/api/categories", testOwner, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listResp struct {
		Count      int               `json:"count"`
		Categories []domain.Category `json:"categories"`
	}
	decode(t, rec, &listResp)
	baseline := listResp.Count
	require.Greater(t, baseline, 0)

	rec = do(cats.SaveOverrides, http.MethodPut, "/api/categories", testOwner, map[string]interface{}{
		"categories": []domain.Category{
			{Key: "groceries", Label: "Food Shop", Bucket: "mandatory"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(cats.List, http.MethodGet, "/api/categories", testOwner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &listResp)
	assert.Equal(t, baseline, listResp.Count)

	var found bool
	for _, c := range listResp.Categories {
		if c.Key == "groceries" {
			found = true
			assert.Equal(t, "Food Shop", c.Label)
		}
	}
	assert.True(t, found)
}

func TestUploadValidation(t *testing.T) {
	disabled := NewUploadsHandler("", zerolog.Nop())
	rec := do(disabled.Upload, http.MethodPost, "/api/uploads?filename=a.csv", testOwner, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	enabled := NewUploadsHandler("uploads-bucket", zerolog.Nop())
	rec = do(enabled.Upload, http.MethodPost, "/api/uploads", testOwner, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobsEndpoints(t *testing.T) {
	env := newTestEnv(t)
	jh := NewJobsHandler(env.jobStore, zerolog.Nop())

	ctx := context.Background()
	require.NoError(t, env.jobStore.SaveJob(ctx, &jobs.ReconJob{
		JobID: "j1", OwnerID: testOwner, Type: jobs.JobTypeMatch,
		Status: jobs.JobStatusCompleted, CreatedAt: time.Now(),
	}))
	require.NoError(t, env.jobStore.SaveJob(ctx, &jobs.ReconJob{
		JobID: "j2", OwnerID: "owner-2", Type: jobs.JobTypeMatch,
		Status: jobs.JobStatusPending, CreatedAt: time.Now(),
	}))

	rec := do(jh.ListJobs, http.MethodGet, "/api/jobs", testOwner, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listResp struct {
		Count int `json:"count"`
	}
	decode(t, rec, &listResp)
	assert.Equal(t, 1, listResp.Count)

	rec = do(func(w http.ResponseWriter, r *http.Request) {
		jh.GetJob(w, r, "j1")
	}, http.MethodGet, "/api/jobs/j1", testOwner, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(func(w http.ResponseWriter, r *http.Request) {
		jh.GetJob(w, r, "j2")
	}, http.MethodGet, "/api/jobs/j2", testOwner, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(func(w http.ResponseWriter, r *http.Request) {
		jh.GetJob(w, r, "nope")
	}, http.MethodGet, "/api/jobs/nope", testOwner, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
