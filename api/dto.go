/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the payroll domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Refresh:
    RefreshRequest, RefreshResponse, PersonOutcomeDTO

  Basis:
    BasisEntryDTO, WeekBucketDTO, LockRequest, PeriodRequest

  Spans:
    SpanDTO, CreateSpansRequest

  Holidays:
    HolidayDTO, CreateHolidayRequest, DefaultHolidaysRequest

VALIDATION:
  Request types carry go-playground/validator tags. Handlers call
  decodeAndValidate, which returns 400 with the failing fields.

HOUR VALUES:
  Hours are decimal.Decimal and marshal as JSON strings ("42.5"), so the
  rounded value a client sees is exactly the stored one.

SEE ALSO:
  - handlers.go: Uses these types
  - payroll/types.go: Domain types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-basis/generic"
	"github.com/warp/payroll-basis/payroll"
)

// =============================================================================
// REFRESH
// =============================================================================

// RefreshRequest is the body of POST /payroll-basis/refresh.
type RefreshRequest struct {
	Start     string   `json:"start" validate:"required,datetime=2006-01-02"`
	End       string   `json:"end" validate:"required,datetime=2006-01-02"`
	PersonIDs []string `json:"person_ids,omitempty" validate:"omitempty,dive,required"`
}

// PersonOutcomeDTO is one person's result in a refresh.
type PersonOutcomeDTO struct {
	PersonID string         `json:"person_id"`
	Outcome  string         `json:"outcome"`
	Error    string         `json:"error,omitempty"`
	Entry    *BasisEntryDTO `json:"entry,omitempty"`
}

// RefreshResponse summarizes a refresh run. Success is false when any person
// failed; the other persons' entries are still written.
type RefreshResponse struct {
	Success  bool               `json:"success"`
	Message  string             `json:"message"`
	NoData   bool               `json:"no_data"`
	Created  int                `json:"created"`
	Updated  int                `json:"updated"`
	Skipped  int                `json:"skipped"`
	Failed   int                `json:"failed"`
	Outcomes []PersonOutcomeDTO `json:"outcomes"`
}

// NewRefreshResponse converts a run result into its API form.
func NewRefreshResponse(r *payroll.RefreshResult) RefreshResponse {
	resp := RefreshResponse{
		Success:  r.Failed == 0,
		Message:  r.Message,
		NoData:   r.NoData,
		Created:  r.Created,
		Updated:  r.Updated,
		Skipped:  r.Skipped,
		Failed:   r.Failed,
		Outcomes: make([]PersonOutcomeDTO, 0, len(r.Outcomes)),
	}
	for _, o := range r.Outcomes {
		dto := PersonOutcomeDTO{PersonID: string(o.PersonID), Outcome: string(o.Outcome)}
		if o.Err != nil {
			dto.Error = o.Err.Error()
		}
		if o.Entry != nil {
			entry := toBasisEntryDTO(*o.Entry)
			dto.Entry = &entry
		}
		resp.Outcomes = append(resp.Outcomes, dto)
	}
	return resp
}

// =============================================================================
// BASIS ENTRIES
// =============================================================================

// WeekBucketDTO is the normal/overtime split of one ISO week.
type WeekBucketDTO struct {
	Week          string          `json:"week"`
	Hours         decimal.Decimal `json:"hours"`
	HoursNorm     decimal.Decimal `json:"hours_norm"`
	HoursOvertime decimal.Decimal `json:"hours_overtime"`
	CarriedHours  decimal.Decimal `json:"carried_hours"`
}

// BasisEntryDTO represents a stored payroll basis entry.
type BasisEntryDTO struct {
	ID                string                     `json:"id"`
	OrgID             string                     `json:"org_id"`
	PersonID          string                     `json:"person_id"`
	PeriodStart       string                     `json:"period_start"`
	PeriodEnd         string                     `json:"period_end"`
	HoursNorm         decimal.Decimal            `json:"hours_norm"`
	HoursOvertime     decimal.Decimal            `json:"hours_overtime"`
	OBHours           decimal.Decimal            `json:"ob_hours"`
	OBHoursActual     decimal.Decimal            `json:"ob_hours_actual"`
	OBHoursMultiplier decimal.Decimal            `json:"ob_hours_multiplier"`
	BreakHours        decimal.Decimal            `json:"break_hours"`
	TotalHours        decimal.Decimal            `json:"total_hours"`
	OBByCategory      map[string]decimal.Decimal `json:"ob_by_category,omitempty"`
	Weeks             []WeekBucketDTO            `json:"weeks"`
	SpanCount         int                        `json:"span_count"`
	ComputedAt        time.Time                  `json:"computed_at"`
	Locked            bool                       `json:"locked"`
	LockedBy          string                     `json:"locked_by,omitempty"`
	LockedAt          *time.Time                 `json:"locked_at,omitempty"`
}

func toBasisEntryDTO(e payroll.PayrollBasisEntry) BasisEntryDTO {
	dto := BasisEntryDTO{
		ID:                e.ID,
		OrgID:             string(e.OrgID),
		PersonID:          string(e.PersonID),
		PeriodStart:       e.Period.Start.String(),
		PeriodEnd:         e.Period.End.String(),
		HoursNorm:         e.HoursNorm,
		HoursOvertime:     e.HoursOvertime,
		OBHours:           e.OBHours,
		OBHoursActual:     e.OBHoursActual,
		OBHoursMultiplier: e.OBHoursMultiplier,
		BreakHours:        e.BreakHours,
		TotalHours:        e.TotalHours,
		OBByCategory:      e.OBByCategory,
		Weeks:             make([]WeekBucketDTO, 0, len(e.Weeks)),
		SpanCount:         e.SpanCount,
		ComputedAt:        e.ComputedAt,
		Locked:            e.Locked,
		LockedBy:          e.LockedBy,
		LockedAt:          e.LockedAt,
	}
	for _, w := range e.Weeks {
		dto.Weeks = append(dto.Weeks, WeekBucketDTO{
			Week:          w.Week.String(),
			Hours:         w.Hours,
			HoursNorm:     w.HoursNorm,
			HoursOvertime: w.HoursOvertime,
			CarriedHours:  w.CarriedHours,
		})
	}
	return dto
}

// PeriodRequest selects a basis entry's period.
type PeriodRequest struct {
	Start string `json:"start" validate:"required,datetime=2006-01-02"`
	End   string `json:"end" validate:"required,datetime=2006-01-02"`
}

// LockRequest is the body of POST /payroll-basis/{personID}/lock.
type LockRequest struct {
	PeriodRequest
	Actor string `json:"actor" validate:"required"`
}

// =============================================================================
// SPANS
// =============================================================================

// SpanDTO is one raw attendance session or time entry.
type SpanDTO struct {
	ID       string    `json:"id,omitempty"`
	PersonID string    `json:"person_id" validate:"required"`
	Kind     string    `json:"kind" validate:"required,oneof=attendance time_entries"`
	Approved bool      `json:"approved"`
	Start    time.Time `json:"start" validate:"required"`
	End      time.Time `json:"end" validate:"required,gtfield=Start"`
}

// CreateSpansRequest is the body of POST /spans.
type CreateSpansRequest struct {
	Spans []SpanDTO `json:"spans" validate:"required,min=1,dive"`
}

func toSpanDTO(r payroll.SpanRecord) SpanDTO {
	return SpanDTO{
		ID:       r.ID,
		PersonID: string(r.PersonID),
		Kind:     string(r.Kind),
		Approved: r.Approved,
		Start:    r.Interval.Start.UTC(),
		End:      r.Interval.End.UTC(),
	}
}

func (s SpanDTO) toRecord(orgID payroll.OrgID) payroll.SpanRecord {
	return payroll.SpanRecord{
		ID:       s.ID,
		OrgID:    orgID,
		PersonID: payroll.PersonID(s.PersonID),
		Kind:     payroll.SpanSourceKind(s.Kind),
		Approved: s.Approved,
		Interval: generic.Interval{Start: s.Start, End: s.End},
	}
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// HolidayDTO represents a holiday in API responses.
type HolidayDTO struct {
	ID        string `json:"id"`
	OrgID     string `json:"org_id"`
	Date      string `json:"date"`
	Name      string `json:"name"`
	Recurring bool   `json:"recurring"`
}

func toHolidayDTO(h generic.Holiday) HolidayDTO {
	return HolidayDTO{
		ID:        h.ID,
		OrgID:     h.OrgID,
		Date:      h.Date.String(),
		Name:      h.Name,
		Recurring: h.Recurring,
	}
}

// CreateHolidayRequest is the body of POST /holidays.
type CreateHolidayRequest struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Name      string `json:"name" validate:"required"`
	Recurring bool   `json:"recurring"`
}

// DefaultHolidaysRequest is the body of POST /holidays/defaults. A zero
// Year means the current year.
type DefaultHolidaysRequest struct {
	Year int `json:"year" validate:"omitempty,gte=1900,lte=2200"`
}

// =============================================================================
// ORG CONFIG
// =============================================================================

// OrgConfigDTO is a stored org config. Config is the raw JSON document.
type OrgConfigDTO struct {
	OrgID     string    `json:"org_id"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
	Config    rawJSON   `json:"config"`
}

// rawJSON embeds an already-encoded JSON document.
type rawJSON string

func (r rawJSON) MarshalJSON() ([]byte, error) { return []byte(r), nil }

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}
