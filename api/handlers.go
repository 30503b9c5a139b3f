/*
handlers.go - HTTP API handlers for the payroll basis engine

PURPOSE:
  Exposes the refresh orchestrator and the stored basis via REST. Handles
  HTTP request/response, JSON serialization, and delegates to the payroll
  package and the SQLite store.

ENDPOINTS (all under /api/orgs/{orgID}):
  Payroll basis:
    POST   /payroll-basis/refresh              Recompute entries for a period
    GET    /payroll-basis?start=&end=          Read stored entries
    GET    /payroll-basis/export.xlsx          XLSX export (export.go)
    POST   /payroll-basis/{personID}/lock      Freeze an entry
    POST   /payroll-basis/{personID}/unlock    Unfreeze an entry

  Config:
    GET    /payroll-config                     Stored org config
    PUT    /payroll-config                     Replace org config (validated)

  Spans:
    GET    /spans?start=&end=&person_id=       Raw records in a period
    POST   /spans                              Ingest raw records

  Holidays:
    GET    /holidays                           Org and global holidays
    POST   /holidays                           Add a company holiday
    POST   /holidays/defaults                  Add Swedish public holidays
    DELETE /holidays/{id}                      Remove a company holiday

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input (validator/v10 tags on the DTOs)
  3. Call domain logic (refresher, store)
  4. Serialize response
  5. Map errors to status codes in writeDomainError

ERROR HANDLING:
  - 400: validation errors, configuration errors, malformed periods
  - 404: org config or basis entry not found
  - 504: request timeout elapsed during a refresh
  - 500: internal errors

SECURITY NOTE:
  No authentication. The actor on lock requests is taken from the body.

SEE ALSO:
  - dto.go: Request/response data structures
  - export.go: XLSX export
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/warp/payroll-basis/generic"
	"github.com/warp/payroll-basis/payroll"
	"github.com/warp/payroll-basis/store/sqlite"
)

// maxConfigBytes bounds PUT /payroll-config bodies.
const maxConfigBytes = 1 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Refresher *payroll.Refresher
	Logger    zerolog.Logger
	Now       func() time.Time

	validate *validator.Validate

	// Track currently loaded demo scenario
	mu              sync.Mutex
	currentScenario *ScenarioDTO
}

// NewHandler creates a handler over store. The refresher reads spans from
// and writes entries to the same store.
func NewHandler(store *sqlite.Store, refresher *payroll.Refresher, logger zerolog.Logger) *Handler {
	return &Handler{
		Store:     store,
		Refresher: refresher,
		Logger:    logger,
		Now:       time.Now,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func orgParam(r *http.Request) payroll.OrgID {
	return payroll.OrgID(chi.URLParam(r, "orgID"))
}

// =============================================================================
// PAYROLL BASIS HANDLERS
// =============================================================================

// RefreshBasis recomputes entries for a period.
// POST /api/orgs/{orgID}/payroll-basis/refresh
func (h *Handler) RefreshBasis(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	period, err := generic.ParsePeriod(req.Start, req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}

	input := payroll.RefreshInput{OrgID: orgParam(r), Period: period}
	for _, id := range req.PersonIDs {
		input.PersonIDs = append(input.PersonIDs, payroll.PersonID(id))
	}

	result, err := h.Refresher.Refresh(r.Context(), input)
	if err != nil {
		// a missing org config is a configuration problem here, not a 404
		if payroll.IsConfigurationError(err) {
			writeError(w, http.StatusBadRequest, "Refresh failed", err)
			return
		}
		writeDomainError(w, "Refresh failed", err)
		return
	}

	writeJSON(w, http.StatusOK, NewRefreshResponse(result))
}

// ListBasis returns stored entries without recomputing.
// GET /api/orgs/{orgID}/payroll-basis?start=&end=
func (h *Handler) ListBasis(w http.ResponseWriter, r *http.Request) {
	period, ok := periodFromQuery(w, r)
	if !ok {
		return
	}

	entries, err := h.Store.ListBasis(r.Context(), orgParam(r), period)
	if err != nil {
		writeDomainError(w, "Failed to list payroll basis", err)
		return
	}

	dtos := make([]BasisEntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toBasisEntryDTO(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"period_start": period.Start.String(),
		"period_end":   period.End.String(),
		"entries":      dtos,
	})
}

// LockBasis freezes an entry so refreshes skip it.
// POST /api/orgs/{orgID}/payroll-basis/{personID}/lock
func (h *Handler) LockBasis(w http.ResponseWriter, r *http.Request) {
	var req LockRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	key, ok := basisKey(w, r, req.PeriodRequest)
	if !ok {
		return
	}

	if err := h.Store.LockBasis(r.Context(), key, req.Actor, h.now()); err != nil {
		writeDomainError(w, "Failed to lock entry", err)
		return
	}
	h.Logger.Info().Str("key", key.String()).Str("actor", req.Actor).Msg("payroll basis locked")
	h.writeEntry(w, r, key)
}

// UnlockBasis makes an entry refreshable again.
// POST /api/orgs/{orgID}/payroll-basis/{personID}/unlock
func (h *Handler) UnlockBasis(w http.ResponseWriter, r *http.Request) {
	var req PeriodRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	key, ok := basisKey(w, r, req)
	if !ok {
		return
	}

	if err := h.Store.UnlockBasis(r.Context(), key); err != nil {
		writeDomainError(w, "Failed to unlock entry", err)
		return
	}
	h.Logger.Info().Str("key", key.String()).Msg("payroll basis unlocked")
	h.writeEntry(w, r, key)
}

func (h *Handler) writeEntry(w http.ResponseWriter, r *http.Request, key payroll.BasisKey) {
	entry, err := h.Store.GetBasis(r.Context(), key)
	if err != nil {
		writeDomainError(w, "Failed to read entry", err)
		return
	}
	writeJSON(w, http.StatusOK, toBasisEntryDTO(*entry))
}

func basisKey(w http.ResponseWriter, r *http.Request, req PeriodRequest) (payroll.BasisKey, bool) {
	period, err := generic.ParsePeriod(req.Start, req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return payroll.BasisKey{}, false
	}
	return payroll.BasisKey{
		OrgID:    orgParam(r),
		PersonID: payroll.PersonID(chi.URLParam(r, "personID")),
		Period:   period,
	}, true
}

// =============================================================================
// ORG CONFIG HANDLERS
// =============================================================================

// GetOrgConfig returns the stored JSON config.
// GET /api/orgs/{orgID}/payroll-config
func (h *Handler) GetOrgConfig(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Store.GetOrgConfig(r.Context(), orgParam(r))
	if err != nil {
		writeDomainError(w, "Failed to get payroll config", err)
		return
	}
	writeJSON(w, http.StatusOK, OrgConfigDTO{
		OrgID:     string(rec.OrgID),
		Version:   rec.Version,
		UpdatedAt: rec.UpdatedAt,
		Config:    rawJSON(rec.ConfigJSON),
	})
}

// PutOrgConfig replaces the org config after validating it.
// PUT /api/orgs/{orgID}/payroll-config
func (h *Handler) PutOrgConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxConfigBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}

	orgID := orgParam(r)
	if err := h.Store.SaveOrgConfig(r.Context(), orgID, string(body)); err != nil {
		writeDomainError(w, "Invalid payroll config", err)
		return
	}
	h.Logger.Info().Str("org_id", string(orgID)).Msg("payroll config updated")
	h.GetOrgConfig(w, r)
}

// =============================================================================
// SPAN HANDLERS
// =============================================================================

// ListSpans returns raw records overlapping the period's local days.
// GET /api/orgs/{orgID}/spans?start=&end=&person_id=
func (h *Handler) ListSpans(w http.ResponseWriter, r *http.Request) {
	period, ok := periodFromQuery(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	orgID := orgParam(r)
	cfg, err := h.Store.LoadOrgConfig(ctx, orgID)
	if err != nil {
		writeDomainError(w, "Failed to load payroll config", err)
		return
	}

	bounds := period.Bounds(cfg.Location)
	personID := payroll.PersonID(r.URL.Query().Get("person_id"))
	records, err := h.Store.ListSpans(ctx, orgID, personID, bounds.Start, bounds.End)
	if err != nil {
		writeDomainError(w, "Failed to list spans", err)
		return
	}

	dtos := make([]SpanDTO, 0, len(records))
	for _, rec := range records {
		dtos = append(dtos, toSpanDTO(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"spans": dtos})
}

// CreateSpans ingests raw attendance sessions or time entries.
// POST /api/orgs/{orgID}/spans
func (h *Handler) CreateSpans(w http.ResponseWriter, r *http.Request) {
	var req CreateSpansRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	orgID := orgParam(r)
	records := make([]payroll.SpanRecord, 0, len(req.Spans))
	for _, s := range req.Spans {
		records = append(records, s.toRecord(orgID))
	}

	saved, err := h.Store.SaveSpans(r.Context(), records)
	if err != nil {
		writeDomainError(w, "Failed to save spans", err)
		return
	}

	dtos := make([]SpanDTO, 0, len(saved))
	for _, rec := range saved {
		dtos = append(dtos, toSpanDTO(rec))
	}
	writeJSON(w, http.StatusCreated, map[string]any{"spans": dtos})
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListHolidays returns org-specific and global holidays.
// GET /api/orgs/{orgID}/holidays
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.Store.ListHolidays(r.Context(), string(orgParam(r)))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get holidays", err)
		return
	}

	dtos := make([]HolidayDTO, 0, len(holidays))
	for _, hol := range holidays {
		dtos = append(dtos, toHolidayDTO(hol))
	}
	writeJSON(w, http.StatusOK, map[string]any{"holidays": dtos})
}

// CreateHoliday adds a company holiday.
// POST /api/orgs/{orgID}/holidays
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req CreateHolidayRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	date, err := generic.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	saved, err := h.Store.SaveHoliday(r.Context(), generic.Holiday{
		OrgID:     string(orgParam(r)),
		Date:      date,
		Name:      req.Name,
		Recurring: req.Recurring,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create holiday", err)
		return
	}
	writeJSON(w, http.StatusCreated, toHolidayDTO(saved))
}

// DeleteHoliday removes a company holiday.
// DELETE /api/orgs/{orgID}/holidays/{id}
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteHoliday(r.Context(), string(orgParam(r)), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete holiday", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// AddDefaultHolidays stores the Swedish public holidays of a year as company
// holidays, so they can be listed and individually removed.
// POST /api/orgs/{orgID}/holidays/defaults
func (h *Handler) AddDefaultHolidays(w http.ResponseWriter, r *http.Request) {
	var req DefaultHolidaysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}
	year := req.Year
	if year == 0 {
		year = h.now().Year()
	}

	orgID := string(orgParam(r))
	created := 0
	for _, hol := range generic.SwedishHolidays(year) {
		hol.OrgID = orgID
		hol.ID = ""
		if _, err := h.Store.SaveHoliday(r.Context(), hol); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to create holidays", err)
			return
		}
		created++
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"status": "created",
		"year":   year,
		"count":  created,
	})
}

// =============================================================================
// HEALTH
// =============================================================================

// Healthz reports whether the database answers.
// GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Database unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps payroll and generic errors to a status code.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, message, err)
	case payroll.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case payroll.IsConfigurationError(err), generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

// decodeAndValidate decodes the JSON body into dst and runs its validate
// tags. On failure it writes a 400 and returns false.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		resp := ErrorResponse{Error: "Validation failed", Details: err.Error()}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			resp.Fields = make(map[string]string, len(verrs))
			for _, fe := range verrs {
				resp.Fields[fe.Field()] = validationMessage(fe)
			}
		}
		writeJSON(w, http.StatusBadRequest, resp)
		return false
	}
	return true
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "datetime":
		return "must be a date (YYYY-MM-DD)"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gtfield":
		return "must be after " + fe.Param()
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// periodFromQuery reads ?start=&end=. On failure it writes a 400.
func periodFromQuery(w http.ResponseWriter, r *http.Request) (generic.Period, bool) {
	q := r.URL.Query()
	start, end := q.Get("start"), q.Get("end")
	if start == "" || end == "" {
		writeError(w, http.StatusBadRequest, "start and end are required (YYYY-MM-DD)", nil)
		return generic.Period{}, false
	}
	period, err := generic.ParsePeriod(start, end)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return generic.Period{}, false
	}
	return period, true
}
