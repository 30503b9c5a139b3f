package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/warp/payroll-basis/generic"
)

// =============================================================================
// HOLIDAY CALENDAR IMPLEMENTATION
// =============================================================================

// SaveHoliday saves a holiday to the database. An empty OrgID makes it global.
func (s *Store) SaveHoliday(ctx context.Context, h generic.Holiday) (generic.Holiday, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h.ID == "" {
		h.ID = uuid.NewString()
	}

	query := `
		INSERT INTO holidays (id, org_id, date, name, recurring, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(org_id, date, name) DO UPDATE SET
			recurring = excluded.recurring
	`

	_, err := s.db.ExecContext(ctx, query,
		h.ID,
		h.OrgID,
		h.Date.String(),
		h.Name,
		h.Recurring,
		formatInstant(time.Now()),
	)
	return h, err
}

// DeleteHoliday deletes an org's holiday by ID.
func (s *Store) DeleteHoliday(ctx context.Context, orgID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ? AND org_id = ?", id, orgID)
	return err
}

// GetHolidays returns all holidays for an org in a given year.
// Includes both org-specific and global holidays.
func (s *Store) GetHolidays(orgID string, year int) []generic.Holiday {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, org_id, date, name, recurring
		FROM holidays
		WHERE (org_id = ? OR org_id = '')
		  AND (recurring = TRUE OR strftime('%Y', date) = ?)
		ORDER BY strftime('%m-%d', date) ASC
	`

	rows, err := s.db.Query(query, orgID, fmt.Sprintf("%04d", year))
	if err != nil {
		return nil
	}
	defer rows.Close()

	var holidays []generic.Holiday
	for rows.Next() {
		h, err := scanHoliday(rows)
		if err != nil {
			continue
		}
		// recurring holidays are reported in the requested year
		if h.Recurring {
			h.Date = generic.NewDate(year, h.Date.Month(), h.Date.Day())
		}
		holidays = append(holidays, h)
	}

	return holidays
}

// IsHoliday checks if a date is a holiday for the given org.
func (s *Store) IsHoliday(orgID string, date generic.Date) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT COUNT(*) FROM holidays
		WHERE (org_id = ? OR org_id = '')
		  AND (
			(recurring = FALSE AND date = ?)
			OR (recurring = TRUE AND strftime('%m-%d', date) = ?)
		  )
	`

	var count int
	err := s.db.QueryRow(query, orgID, date.String(), date.Time.Format("01-02")).Scan(&count)
	if err != nil {
		return false
	}
	return count > 0
}

// ListHolidays returns every stored holiday visible to an org (for admin UI).
func (s *Store) ListHolidays(ctx context.Context, orgID string) ([]generic.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, org_id, date, name, recurring
		FROM holidays
		WHERE org_id = ? OR org_id = ''
		ORDER BY date ASC
	`

	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []generic.Holiday
	for rows.Next() {
		h, err := scanHoliday(rows)
		if err != nil {
			return nil, err
		}
		holidays = append(holidays, h)
	}

	return holidays, rows.Err()
}

func scanHoliday(row rowScanner) (generic.Holiday, error) {
	var h generic.Holiday
	var dateStr string
	if err := row.Scan(&h.ID, &h.OrgID, &dateStr, &h.Name, &h.Recurring); err != nil {
		return h, err
	}
	d, err := generic.ParseDate(dateStr)
	if err != nil {
		return h, err
	}
	h.Date = d
	return h, nil
}
