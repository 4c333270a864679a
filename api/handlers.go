/*
handlers.go - HTTP API handlers for the budget execution engine

PURPOSE:
  Exposes the execution engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Executions (scoped to project/facility/period):
    POST   .../executions            Submit or update one quarter
    GET    .../executions            List all quarters on file
    GET    .../executions/{quarter}  Get one quarter's entry

  Catalog:
    GET    /api/catalog              Activity catalog for a project/facility pair

  Health:
    GET    /api/health               Liveness probe

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (service, catalog)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, unparseable input
  - 404: Entry not found
  - 409: Concurrent modification (safe to retry)
  - 422: Statement failed the accounting identity check
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/warp/execution-engine/execution"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *execution.Service
	Catalog execution.CatalogService
	Logger  zerolog.Logger
}

// NewHandler creates a new handler.
func NewHandler(service *execution.Service, catalog execution.CatalogService, logger zerolog.Logger) *Handler {
	return &Handler{
		Service: service,
		Catalog: catalog,
		Logger:  logger,
	}
}

// =============================================================================
// EXECUTION HANDLERS
// =============================================================================

func scopeFromRequest(r *http.Request) execution.EntryKey {
	return execution.EntryKey{
		ProjectID:         chi.URLParam(r, "projectID"),
		FacilityID:        chi.URLParam(r, "facilityID"),
		ReportingPeriodID: chi.URLParam(r, "periodID"),
	}
}

// SubmitExecution handles POST .../executions.
func (h *Handler) SubmitExecution(w http.ResponseWriter, r *http.Request) {
	var req SubmitExecutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	key := scopeFromRequest(r)
	submission := execution.SubmissionRequest{
		ProjectID:         key.ProjectID,
		FacilityID:        key.FacilityID,
		ReportingPeriodID: key.ReportingPeriodID,
		Quarter:           execution.Quarter(req.Quarter),
		ProjectType:       req.ProjectType,
		FacilityType:      req.FacilityType,
		Activities:        make(map[string]execution.ActivityInput, len(req.Activities)),
	}
	for code, values := range req.Activities {
		submission.Activities[code] = execution.ActivityInput{
			Name: values.Name,
			Q1:   toDecimalPtr(values.Q1),
			Q2:   toDecimalPtr(values.Q2),
			Q3:   toDecimalPtr(values.Q3),
			Q4:   toDecimalPtr(values.Q4),
		}
	}

	result, err := h.Service.SubmitQuarter(r.Context(), submission)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, SubmitExecutionResponse{
		ExecutionDTO:    toExecutionDTO(result.Entry),
		Created:         result.Created,
		CascadeImpact:   toCascadeImpactDTO(result.Cascade),
		QuarterSequence: toQuarterSequenceDTO(result.Sequence),
	})
}

// GetExecution handles GET .../executions/{quarter}.
func (h *Handler) GetExecution(w http.ResponseWriter, r *http.Request) {
	quarter := execution.Quarter(chi.URLParam(r, "quarter"))
	entry, err := h.Service.GetEntry(r.Context(), scopeFromRequest(r), quarter)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExecutionDTO(entry))
}

// ListExecutions handles GET .../executions.
func (h *Handler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Service.ListQuarters(r.Context(), scopeFromRequest(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]ExecutionDTO, 0, len(entries))
	for _, entry := range entries {
		dtos = append(dtos, toExecutionDTO(entry))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// CATALOG HANDLERS
// =============================================================================

// GetCatalog handles GET /api/catalog?projectType=HIV&facilityType=HC.
func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	projectType := r.URL.Query().Get("projectType")
	facilityType := r.URL.Query().Get("facilityType")
	if projectType == "" || facilityType == "" {
		writeError(w, http.StatusBadRequest, "projectType and facilityType query parameters are required", nil)
		return
	}
	if h.Catalog == nil {
		writeError(w, http.StatusNotFound, "No catalog configured", nil)
		return
	}

	items, err := h.Catalog.Lookup(r.Context(), projectType, facilityType)
	if err != nil {
		writeError(w, http.StatusNotFound, "Unknown project/facility combination", err)
		return
	}

	dtos := make([]CatalogItemDTO, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, CatalogItemDTO{
			Code:         item.Code,
			Name:         item.Name,
			DisplayOrder: item.DisplayOrder,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Health handles GET /api/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

// writeDomainError maps domain errors to HTTP status codes. A balance
// mismatch gets its own status and carries the offending figures so the
// client can show them without re-deriving anything.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var mismatch *execution.BalanceMismatchError
	if errors.As(err, &mismatch) {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorDTO{
			Error: "Statement does not balance",
			Details: map[string]any{
				"netFinancialAssets": toFloat(mismatch.NetFinancialAssets),
				"closingBalance":     toFloat(mismatch.ClosingBalance),
				"difference":         toFloat(mismatch.Difference),
			},
		})
		return
	}

	switch {
	case execution.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Execution entry not found", err)
	case execution.IsRetryable(err):
		writeError(w, http.StatusConflict, "Entry was modified concurrently, retry the request", err)
	case execution.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid submission", err)
	default:
		h.Logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorDTO{Error: message}
	if err != nil {
		resp.Details = map[string]any{"reason": err.Error()}
	}
	writeJSON(w, status, resp)
}
