/*
Package sqlite provides a SQLite-backed implementation of the payroll storage
interfaces.

PURPOSE:
  Implements the span source (read side), the basis store (write side) and
  the org holiday calendar using SQLite. In production, the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  payroll.SpanSource:      Org config + raw work spans
  payroll.BasisStore:      Payroll basis entries with locks
  generic.HolidayCalendar: Org-specific and global holidays

LOCK ENFORCEMENT:
  The basis upsert is a single statement:
    INSERT ... ON CONFLICT DO UPDATE ... WHERE payroll_basis.locked = 0
  A locked row is never overwritten, even if two writers race. Zero rows
  affected on an existing key means the row was locked.

KEY TABLES:
  org_configs:   JSON payroll config per organization (versioned)
  work_spans:    Attendance sessions and time entries (UTC instants)
  payroll_basis: One row per (org, person, period)
  holidays:      Org-specific ('' = global) holidays

TIME STORAGE:
  Instants are TEXT in RFC3339 UTC with second precision, so string order is
  time order. Calendar days are TEXT "YYYY-MM-DD". Hours are decimal TEXT.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  refresher := &payroll.Refresher{Source: store, Store: store, ...}

SEE ALSO:
  - payroll/store.go: Interface definitions
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-basis/factory"
	"github.com/warp/payroll-basis/generic"
	"github.com/warp/payroll-basis/payroll"
)

const instantLayout = "2006-01-02T15:04:05Z"

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ payroll.SpanSource      = (*Store)(nil)
	_ payroll.BasisStore      = (*Store)(nil)
	_ generic.HolidayCalendar = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Payroll configuration per organization
	CREATE TABLE IF NOT EXISTS org_configs (
		org_id TEXT PRIMARY KEY,
		config_json TEXT NOT NULL,
		version INTEGER DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Raw work spans: attendance sessions and time entries
	CREATE TABLE IF NOT EXISTS work_spans (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL,
		person_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		approved BOOLEAN DEFAULT FALSE,
		start_at TEXT NOT NULL,
		end_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Hot path: one person's spans overlapping a period
	CREATE INDEX IF NOT EXISTS idx_work_spans_org_person_start
		ON work_spans(org_id, person_id, start_at);
	CREATE INDEX IF NOT EXISTS idx_work_spans_org_start
		ON work_spans(org_id, start_at);

	-- Payroll basis (one row per org, person, period)
	CREATE TABLE IF NOT EXISTS payroll_basis (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL,
		person_id TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		hours_norm TEXT NOT NULL,
		hours_overtime TEXT NOT NULL,
		ob_hours TEXT NOT NULL,
		ob_hours_actual TEXT NOT NULL,
		ob_hours_multiplier TEXT NOT NULL,
		break_hours TEXT NOT NULL,
		total_hours TEXT NOT NULL,
		details_json TEXT,
		span_count INTEGER DEFAULT 0,
		computed_at TEXT NOT NULL,
		locked INTEGER NOT NULL DEFAULT 0,
		locked_by TEXT,
		locked_at TEXT,
		UNIQUE(org_id, person_id, period_start, period_end)
	);

	CREATE INDEX IF NOT EXISTS idx_payroll_basis_org_period
		ON payroll_basis(org_id, period_start, period_end);

	-- Holidays (org-specific and global)
	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		recurring BOOLEAN DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_org_date
		ON holidays(org_id, date);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_unique
		ON holidays(org_id, date, name);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ORG CONFIG STORE
// =============================================================================

// OrgConfigRecord is a stored org config with its JSON.
type OrgConfigRecord struct {
	OrgID      payroll.OrgID
	ConfigJSON string
	Version    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SaveOrgConfig validates configJSON and stores it, bumping the version.
func (s *Store) SaveOrgConfig(ctx context.Context, orgID payroll.OrgID, configJSON string) error {
	if _, err := factory.NewConfigFactory(nil).ParseOrgConfig(orgID, configJSON); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO org_configs (org_id, config_json, version, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(org_id) DO UPDATE SET
			config_json = excluded.config_json,
			version = org_configs.version + 1,
			updated_at = excluded.updated_at
	`

	now := formatInstant(time.Now())
	_, err := s.db.ExecContext(ctx, query, string(orgID), configJSON, now, now)
	return err
}

// GetOrgConfig returns the stored config record, or payroll.ErrOrgNotFound.
func (s *Store) GetOrgConfig(ctx context.Context, orgID payroll.OrgID) (*OrgConfigRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec OrgConfigRecord
	var id, createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT org_id, config_json, version, created_at, updated_at FROM org_configs WHERE org_id = ?",
		string(orgID),
	).Scan(&id, &rec.ConfigJSON, &rec.Version, &createdAt, &updatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, payroll.ErrOrgNotFound
	}
	if err != nil {
		return nil, err
	}

	rec.OrgID = payroll.OrgID(id)
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &rec, nil
}

// LoadOrgConfig parses the stored JSON config. The store's holiday table is
// part of the resulting calendar.
func (s *Store) LoadOrgConfig(ctx context.Context, orgID payroll.OrgID) (payroll.OrgPayrollConfig, error) {
	rec, err := s.GetOrgConfig(ctx, orgID)
	if err != nil {
		return payroll.OrgPayrollConfig{}, err
	}
	return factory.NewConfigFactory(s).ParseOrgConfig(orgID, rec.ConfigJSON)
}

// =============================================================================
// WORK SPAN STORE
// =============================================================================

// SaveSpans inserts raw records in one transaction. Records without an ID get
// a generated one; existing IDs are replaced.
func (s *Store) SaveSpans(ctx context.Context, records []payroll.SpanRecord) ([]payroll.SpanRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO work_spans (id, org_id, person_id, kind, approved, start_at, end_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			approved = excluded.approved,
			start_at = excluded.start_at,
			end_at = excluded.end_at
	`

	now := formatInstant(time.Now())
	out := make([]payroll.SpanRecord, 0, len(records))
	for _, rec := range records {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, query,
			rec.ID, string(rec.OrgID), string(rec.PersonID), string(rec.Kind), rec.Approved,
			formatInstant(rec.Interval.Start), formatInstant(rec.Interval.End), now,
		); err != nil {
			return nil, fmt.Errorf("save span %s: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, tx.Commit()
}

// ListSpans returns raw records for an org overlapping [from, to). An empty
// personID lists every person.
func (s *Store) ListSpans(ctx context.Context, orgID payroll.OrgID, personID payroll.PersonID, from, to time.Time) ([]payroll.SpanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, org_id, person_id, kind, approved, start_at, end_at
		FROM work_spans
		WHERE org_id = ? AND (? = '' OR person_id = ?)
		  AND start_at < ? AND end_at > ?
		ORDER BY person_id, start_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query,
		string(orgID), string(personID), string(personID), formatInstant(to), formatInstant(from),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []payroll.SpanRecord
	for rows.Next() {
		var rec payroll.SpanRecord
		var org, person, kind, startAt, endAt string
		if err := rows.Scan(&rec.ID, &org, &person, &kind, &rec.Approved, &startAt, &endAt); err != nil {
			return nil, err
		}
		rec.OrgID = payroll.OrgID(org)
		rec.PersonID = payroll.PersonID(person)
		rec.Kind = payroll.SpanSourceKind(kind)
		rec.Interval.Start, _ = time.Parse(time.RFC3339, startAt)
		rec.Interval.End, _ = time.Parse(time.RFC3339, endAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteSpan removes a raw record.
func (s *Store) DeleteSpan(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM work_spans WHERE id = ?", id)
	return err
}

func (s *Store) ListPersons(ctx context.Context, cfg payroll.OrgPayrollConfig, period generic.Period) ([]payroll.PersonID, error) {
	bounds := period.Bounds(cfg.Location)
	records, err := s.ListSpans(ctx, cfg.OrgID, "", bounds.Start, bounds.End)
	if err != nil {
		return nil, err
	}
	return payroll.PersonsWithSpans(records, cfg, period), nil
}

func (s *Store) LoadSpans(ctx context.Context, cfg payroll.OrgPayrollConfig, personID payroll.PersonID, period generic.Period) ([]payroll.WorkSpan, error) {
	bounds := period.Bounds(cfg.Location)
	records, err := s.ListSpans(ctx, cfg.OrgID, personID, bounds.Start, bounds.End)
	if err != nil {
		return nil, err
	}
	return payroll.SelectSpans(records, cfg, period), nil
}

// =============================================================================
// BASIS STORE
// =============================================================================

// basisDetails is the JSON payload of payroll_basis.details_json.
type basisDetails struct {
	OBByCategory map[string]decimal.Decimal `json:"ob_by_category,omitempty"`
	Weeks        []weekDetails              `json:"weeks,omitempty"`
}

type weekDetails struct {
	Week          string          `json:"week"`
	Year          int             `json:"year"`
	Number        int             `json:"number"`
	Hours         decimal.Decimal `json:"hours"`
	HoursNorm     decimal.Decimal `json:"hours_norm"`
	HoursOvertime decimal.Decimal `json:"hours_overtime"`
	CarriedHours  decimal.Decimal `json:"carried_hours"`
}

const basisColumns = `id, org_id, person_id, period_start, period_end,
	hours_norm, hours_overtime, ob_hours, ob_hours_actual, ob_hours_multiplier,
	break_hours, total_hours, details_json, span_count, computed_at,
	locked, locked_by, locked_at`

// UpsertBasis inserts or replaces an unlocked entry. The stored ID survives
// updates.
func (s *Store) UpsertBasis(ctx context.Context, e payroll.PayrollBasisEntry) (payroll.UpsertOutcome, error) {
	details, err := json.Marshal(toDetails(e))
	if err != nil {
		return "", fmt.Errorf("marshal basis details: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var existing int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM payroll_basis WHERE org_id = ? AND person_id = ? AND period_start = ? AND period_end = ?",
		string(e.OrgID), string(e.PersonID), e.Period.Start.String(), e.Period.End.String(),
	).Scan(&existing)
	if err != nil {
		return "", err
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	query := `
		INSERT INTO payroll_basis (
			id, org_id, person_id, period_start, period_end,
			hours_norm, hours_overtime, ob_hours, ob_hours_actual, ob_hours_multiplier,
			break_hours, total_hours, details_json, span_count, computed_at, locked
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT(org_id, person_id, period_start, period_end) DO UPDATE SET
			hours_norm = excluded.hours_norm,
			hours_overtime = excluded.hours_overtime,
			ob_hours = excluded.ob_hours,
			ob_hours_actual = excluded.ob_hours_actual,
			ob_hours_multiplier = excluded.ob_hours_multiplier,
			break_hours = excluded.break_hours,
			total_hours = excluded.total_hours,
			details_json = excluded.details_json,
			span_count = excluded.span_count,
			computed_at = excluded.computed_at
		WHERE payroll_basis.locked = 0
	`

	res, err := tx.ExecContext(ctx, query,
		e.ID, string(e.OrgID), string(e.PersonID), e.Period.Start.String(), e.Period.End.String(),
		e.HoursNorm.String(), e.HoursOvertime.String(), e.OBHours.String(), e.OBHoursActual.String(),
		e.OBHoursMultiplier.String(), e.BreakHours.String(), e.TotalHours.String(),
		string(details), e.SpanCount, formatInstant(e.ComputedAt),
	)
	if err != nil {
		return "", fmt.Errorf("upsert basis %s: %w", e.Key(), err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return "", err
	}
	if affected == 0 {
		return "", payroll.ErrEntryLocked
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}

	if existing > 0 {
		return payroll.UpsertUpdated, nil
	}
	return payroll.UpsertCreated, nil
}

func (s *Store) GetBasis(ctx context.Context, key payroll.BasisKey) (*payroll.PayrollBasisEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+basisColumns+" FROM payroll_basis WHERE org_id = ? AND person_id = ? AND period_start = ? AND period_end = ?",
		string(key.OrgID), string(key.PersonID), key.Period.Start.String(), key.Period.End.String(),
	)
	e, err := scanBasis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, payroll.ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) ListBasis(ctx context.Context, orgID payroll.OrgID, period generic.Period) ([]payroll.PayrollBasisEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+basisColumns+" FROM payroll_basis WHERE org_id = ? AND period_start = ? AND period_end = ? ORDER BY person_id",
		string(orgID), period.Start.String(), period.End.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []payroll.PayrollBasisEntry
	for rows.Next() {
		e, err := scanBasis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) LockBasis(ctx context.Context, key payroll.BasisKey, lockedBy string, at time.Time) error {
	return s.setLock(ctx, key,
		"UPDATE payroll_basis SET locked = 1, locked_by = ?, locked_at = ? WHERE org_id = ? AND person_id = ? AND period_start = ? AND period_end = ?",
		nullString(lockedBy), formatInstant(at))
}

func (s *Store) UnlockBasis(ctx context.Context, key payroll.BasisKey) error {
	return s.setLock(ctx, key,
		"UPDATE payroll_basis SET locked = 0, locked_by = NULL, locked_at = NULL WHERE org_id = ? AND person_id = ? AND period_start = ? AND period_end = ?")
}

func (s *Store) DeleteBasis(ctx context.Context, key payroll.BasisKey) error {
	return s.setLock(ctx, key,
		"DELETE FROM payroll_basis WHERE org_id = ? AND person_id = ? AND period_start = ? AND period_end = ?")
}

// setLock runs a keyed UPDATE/DELETE and maps zero affected rows to
// ErrEntryNotFound.
func (s *Store) setLock(ctx context.Context, key payroll.BasisKey, query string, args ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	args = append(args, string(key.OrgID), string(key.PersonID), key.Period.Start.String(), key.Period.End.String())
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return payroll.ErrEntryNotFound
	}
	return nil
}

// Reset deletes all payroll data (dev only).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"payroll_basis", "work_spans", "org_configs", "holidays"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBasis(row rowScanner) (payroll.PayrollBasisEntry, error) {
	var e payroll.PayrollBasisEntry
	var org, person, periodStart, periodEnd string
	var norm, overtime, ob, obActual, obMult, breaks, total string
	var details, lockedBy, lockedAt sql.NullString
	var computedAt string
	var locked int

	if err := row.Scan(&e.ID, &org, &person, &periodStart, &periodEnd,
		&norm, &overtime, &ob, &obActual, &obMult, &breaks, &total,
		&details, &e.SpanCount, &computedAt, &locked, &lockedBy, &lockedAt,
	); err != nil {
		return e, err
	}

	e.OrgID = payroll.OrgID(org)
	e.PersonID = payroll.PersonID(person)
	e.Period.Start, _ = generic.ParseDate(periodStart)
	e.Period.End, _ = generic.ParseDate(periodEnd)
	e.HoursNorm = parseDecimal(norm)
	e.HoursOvertime = parseDecimal(overtime)
	e.OBHours = parseDecimal(ob)
	e.OBHoursActual = parseDecimal(obActual)
	e.OBHoursMultiplier = parseDecimal(obMult)
	e.BreakHours = parseDecimal(breaks)
	e.TotalHours = parseDecimal(total)
	e.ComputedAt, _ = time.Parse(time.RFC3339, computedAt)
	e.Locked = locked != 0
	e.LockedBy = lockedBy.String
	if lockedAt.Valid {
		at, err := time.Parse(time.RFC3339, lockedAt.String)
		if err == nil {
			e.LockedAt = &at
		}
	}

	if details.Valid && details.String != "" {
		var d basisDetails
		if err := json.Unmarshal([]byte(details.String), &d); err != nil {
			return e, fmt.Errorf("decode basis details: %w", err)
		}
		e.OBByCategory = d.OBByCategory
		for _, w := range d.Weeks {
			e.Weeks = append(e.Weeks, payroll.WeekBucket{
				Week:          generic.ISOWeek{Year: w.Year, Week: w.Number},
				Hours:         w.Hours,
				HoursNorm:     w.HoursNorm,
				HoursOvertime: w.HoursOvertime,
				CarriedHours:  w.CarriedHours,
			})
		}
	}
	return e, nil
}

func toDetails(e payroll.PayrollBasisEntry) basisDetails {
	d := basisDetails{OBByCategory: e.OBByCategory}
	for _, w := range e.Weeks {
		d.Weeks = append(d.Weeks, weekDetails{
			Week:          w.Week.String(),
			Year:          w.Week.Year,
			Number:        w.Week.Week,
			Hours:         w.Hours,
			HoursNorm:     w.HoursNorm,
			HoursOvertime: w.HoursOvertime,
			CarriedHours:  w.CarriedHours,
		})
	}
	return d
}

func formatInstant(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(instantLayout)
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
