// Package handlers exposes the reconciliation engine over HTTP. Every
// endpoint is owner-scoped via the Owner middleware.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerkit/finrecon/internal/api/middleware"
	"github.com/ledgerkit/finrecon/internal/categories"
	"github.com/ledgerkit/finrecon/internal/domain"
	"github.com/ledgerkit/finrecon/internal/gcsupload"
	"github.com/ledgerkit/finrecon/internal/jobs"
	"github.com/ledgerkit/finrecon/internal/service"
	"github.com/ledgerkit/finrecon/internal/store"
)

// writeServiceError maps service errors onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyCSV),
		errors.Is(err, service.ErrMissingOwner),
		errors.Is(err, service.ErrMissingActionID):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrActionNotFound):
		middleware.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrOwnershipMismatch):
		middleware.WriteError(w, http.StatusForbidden, err.Error())
	default:
		middleware.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

// ImportsHandler handles CSV import endpoints. Inline CSV runs
// synchronously; a gcs_uri payload is enqueued for the worker instead.
type ImportsHandler struct {
	svc       *service.Service
	publisher jobs.Publisher
	log       zerolog.Logger
}

func NewImportsHandler(svc *service.Service, publisher jobs.Publisher, log zerolog.Logger) *ImportsHandler {
	return &ImportsHandler{svc: svc, publisher: publisher, log: log}
}

type importRequest struct {
	Source string `json:"source,omitempty"`
	CSV    string `json:"csv,omitempty"`
	GCSURI string `json:"gcs_uri,omitempty"`
}

// ImportExternal handles POST /api/imports/external
func (h *ImportsHandler) ImportExternal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := middleware.OwnerID(ctx)

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Source == "" {
		middleware.WriteError(w, http.StatusBadRequest, "source is required")
		return
	}

	if req.GCSURI != "" {
		h.enqueue(w, r, &jobs.ReconJob{
			Type:    jobs.JobTypeImportExternal,
			OwnerID: ownerID,
			Source:  req.Source,
			GCSURI:  req.GCSURI,
		})
		return
	}

	result, err := h.svc.ImportExternalCSV(ctx, ownerID, req.Source, req.CSV)
	if err != nil {
		h.log.Error().Err(err).Str("owner_id", ownerID).Msg("External import failed")
		writeServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// ImportLedger handles POST /api/imports/ledger
func (h *ImportsHandler) ImportLedger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := middleware.OwnerID(ctx)

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.GCSURI != "" {
		h.enqueue(w, r, &jobs.ReconJob{
			Type:    jobs.JobTypeImportLedger,
			OwnerID: ownerID,
			GCSURI:  req.GCSURI,
		})
		return
	}

	result, err := h.svc.ImportLedgerCSV(ctx, ownerID, req.CSV)
	if err != nil {
		h.log.Error().Err(err).Str("owner_id", ownerID).Msg("Ledger import failed")
		writeServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

func (h *ImportsHandler) enqueue(w http.ResponseWriter, r *http.Request, job *jobs.ReconJob) {
	if h.publisher == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Async imports are not configured")
		return
	}
	if err := h.publisher.Publish(r.Context(), job); err != nil {
		h.log.Error().Err(err).Str("owner_id", job.OwnerID).Msg("Failed to enqueue import job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("type", string(job.Type)).Msg("Import job enqueued")
	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// ReconHandler handles matching, reports and the dashboard.
type ReconHandler struct {
	svc *service.Service
	st  store.Store
	log zerolog.Logger
}

func NewReconHandler(svc *service.Service, st store.Store, log zerolog.Logger) *ReconHandler {
	return &ReconHandler{svc: svc, st: st, log: log}
}

// Match handles POST /api/match
func (h *ReconHandler) Match(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := middleware.OwnerID(ctx)

	var req struct {
		Source               string `json:"source,omitempty"`
		WindowDays           int    `json:"window_days,omitempty"`
		AmountToleranceMinor int64  `json:"amount_tolerance_minor,omitempty"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	result, err := h.svc.MatchTransactions(ctx, ownerID, req.Source, req.WindowDays, req.AmountToleranceMinor)
	if err != nil {
		h.log.Error().Err(err).Str("owner_id", ownerID).Msg("Matching run failed")
		writeServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// ListMatches handles GET /api/matches
func (h *ReconHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := middleware.OwnerID(ctx)

	var source domain.ExternalSource
	if raw := r.URL.Query().Get("source"); raw != "" {
		source = domain.NormalizeSource(raw)
	}

	records, err := h.st.ListMatches(ctx, ownerID, source)
	if err != nil {
		h.log.Error().Err(err).Str("owner_id", ownerID).Msg("Failed to list matches")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list matches")
		return
	}
	if records == nil {
		records = []domain.MatchRecord{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"matches": records,
		"count":   len(records),
	})
}

// RecomputeDebtService handles POST /api/debt-service/recompute
func (h *ReconHandler) RecomputeDebtService(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := middleware.OwnerID(ctx)

	var req struct {
		Source string `json:"source"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	report, err := h.svc.RecomputeDebtService(ctx, ownerID, req.Source)
	if err != nil {
		h.log.Error().Err(err).Str("owner_id", ownerID).Msg("Debt service recompute failed")
		writeServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, report)
}

// GetDebtService handles GET /api/debt-service
func (h *ReconHandler) GetDebtService(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := middleware.OwnerID(ctx)

	raw := r.URL.Query().Get("source")
	if raw == "" {
		middleware.WriteError(w, http.StatusBadRequest, "source is required")
		return
	}
	source := domain.NormalizeSource(raw)

	report, err := h.st.DebtService(ctx, ownerID, source)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "No debt service report computed for this source")
			return
		}
		h.log.Error().Err(err).Str("owner_id", ownerID).Msg("Failed to read debt service report")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read debt service report")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, report)
}

// Dashboard handles GET /api/dashboard
func (h *ReconHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := middleware.OwnerID(ctx)

	query := r.URL.Query()
	var start, end time.Time
	var err error

	if s := query.Get("start_date"); s != "" {
		start, err = time.Parse("2006-01-02", s)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid start_date format")
			return
		}
	}
	if s := query.Get("end_date"); s != "" {
		end, err = time.Parse("2006-01-02", s)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid end_date format")
			return
		}
	}

	dashboard, err := h.svc.Dashboard(ctx, ownerID, start, end)
	if err != nil {
		h.log.Error().Err(err).Str("owner_id", ownerID).Msg("Failed to build dashboard")
		writeServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dashboard)
}

// TransactionsHandler serves stored transaction rows.
type TransactionsHandler struct {
	st  store.Store
	log zerolog.Logger
}

func NewTransactionsHandler(st store.Store, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{st: st, log: log}
}

// ListExternal handles GET /api/transactions/external
func (h *TransactionsHandler) ListExternal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := middleware.OwnerID(ctx)

	var source domain.ExternalSource
	if raw := r.URL.Query().Get("source"); raw != "" {
		source = domain.NormalizeSource(raw)
	}

	rows, err := h.st.ListExternal(ctx, ownerID, source)
	if err != nil {
		h.log.Error().Err(err).Str("owner_id", ownerID).Msg("Failed to list external transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}
	if rows == nil {
		rows = []domain.ExternalTransaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": rows,
		"count":        len(rows),
	})
}

// ListLedger handles GET /api/transactions/ledger
func (h *TransactionsHandler) ListLedger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := middleware.OwnerID(ctx)

	rows, err := h.st.ListLedger(ctx, ownerID)
	if err != nil {
		h.log.Error().Err(err).Str("owner_id", ownerID).Msg("Failed to list ledger transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}
	if rows == nil {
		rows = []domain.LedgerTransaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": rows,
		"count":        len(rows),
	})
}

// ActionsHandler handles savings action endpoints.
type ActionsHandler struct {
	svc *service.Service
	log zerolog.Logger
}

func NewActionsHandler(svc *service.Service, log zerolog.Logger) *ActionsHandler {
	return &ActionsHandler{svc: svc, log: log}
}

// Generate handles POST /api/actions/generate
func (h *ActionsHandler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := middleware.OwnerID(ctx)

	var req struct {
		Source     string `json:"source,omitempty"`
		MaxActions int    `json:"max_actions,omitempty"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	result, err := h.svc.GenerateActions(ctx, ownerID, req.Source, req.MaxActions)
	if err != nil {
		h.log.Error().Err(err).Str("owner_id", ownerID).Msg("Action generation failed")
		writeServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// List handles GET /api/actions
func (h *ActionsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := middleware.OwnerID(ctx)

	actions, err := h.svc.ListActions(ctx, ownerID)
	if err != nil {
		h.log.Error().Err(err).Str("owner_id", ownerID).Msg("Failed to list actions")
		writeServiceError(w, err)
		return
	}
	if actions == nil {
		actions = []domain.Action{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"actions": actions,
		"count":   len(actions),
	})
}

// UpdateStatus handles PATCH /api/actions/{id}
func (h *ActionsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, actionID string) {
	ctx := r.Context()
	ownerID := middleware.OwnerID(ctx)

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Status == "" {
		middleware.WriteError(w, http.StatusBadRequest, "status is required")
		return
	}

	if err := h.svc.UpdateActionStatus(ctx, ownerID, actionID, req.Status); err != nil {
		writeServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"action_id": actionID,
		"status":    req.Status,
	})
}

// CategoriesHandler serves the merged taxonomy and stores overrides.
type CategoriesHandler struct {
	st  store.Store
	log zerolog.Logger
}

func NewCategoriesHandler(st store.Store, log zerolog.Logger) *CategoriesHandler {
	return &CategoriesHandler{st: st, log: log}
}

// List handles GET /api/categories
func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := middleware.OwnerID(ctx)

	overrides, err := h.st.CategoryOverrides(ctx, ownerID)
	if err != nil {
		h.log.Error().Err(err).Str("owner_id", ownerID).Msg("Failed to read category overrides")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list categories")
		return
	}

	merged := categories.Merge(overrides)
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": merged,
		"count":      len(merged),
	})
}

// SaveOverrides handles PUT /api/categories
func (h *CategoriesHandler) SaveOverrides(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := middleware.OwnerID(ctx)

	var req struct {
		Categories []domain.Category `json:"categories"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.st.SaveCategoryOverrides(ctx, ownerID, req.Categories); err != nil {
		h.log.Error().Err(err).Str("owner_id", ownerID).Msg("Failed to save category overrides")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save categories")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"saved": len(req.Categories),
	})
}

// UploadsHandler streams CSV uploads into the GCS bucket and hands back
// the gs:// URI to pass to an import job.
type UploadsHandler struct {
	bucket string
	log    zerolog.Logger
}

func NewUploadsHandler(bucket string, log zerolog.Logger) *UploadsHandler {
	return &UploadsHandler{bucket: bucket, log: log}
}

// Upload handles POST /api/uploads
func (h *UploadsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.bucket == "" {
		middleware.WriteError(w, http.StatusServiceUnavailable, "No upload bucket configured")
		return
	}

	filename := r.URL.Query().Get("filename")
	if filename == "" {
		middleware.WriteError(w, http.StatusBadRequest, "filename is required")
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/csv"
	}

	object := gcsupload.ObjectName(filename, time.Now())
	uri, err := gcsupload.Upload(r.Context(), h.bucket, object, contentType, r.Body)
	if err != nil {
		h.log.Error().Err(err).Str("bucket", h.bucket).Msg("Upload failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to upload file")
		return
	}

	h.log.Info().Str("gcs_uri", uri).Msg("File uploaded")
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"gcs_uri": uri,
		"object":  object,
	})
}

// JobsHandler handles job status endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: store, log: log}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	if job.OwnerID != middleware.OwnerID(ctx) {
		middleware.WriteError(w, http.StatusForbidden, "Job belongs to a different owner")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		OwnerID: middleware.OwnerID(ctx),
		Type:    jobs.JobType(query.Get("type")),
		Status:  jobs.JobStatus(query.Get("status")),
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}
	if jobsList == nil {
		jobsList = []*jobs.ReconJob{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
