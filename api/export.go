package api

import (
	"fmt"
	"net/http"

	"github.com/xuri/excelize/v2"

	"github.com/warp/payroll-basis/payroll"
)

const (
	basisSheet = "Payroll basis"
	weeksSheet = "Weeks"
)

var basisHeaders = []any{
	"Person", "Period start", "Period end",
	"Total hours", "Norm hours", "Overtime hours",
	"OB hours", "OB hours actual", "OB multiplier", "Break hours",
	"Spans", "Locked", "Locked by", "Computed at",
}

var weekHeaders = []any{"Person", "Week", "Hours", "Norm hours", "Overtime hours", "Carried hours"}

// ExportBasis streams the stored entries of a period as an XLSX workbook.
// GET /api/orgs/{orgID}/payroll-basis/export.xlsx?start=&end=
func (h *Handler) ExportBasis(w http.ResponseWriter, r *http.Request) {
	period, ok := periodFromQuery(w, r)
	if !ok {
		return
	}

	orgID := orgParam(r)
	entries, err := h.Store.ListBasis(r.Context(), orgID, period)
	if err != nil {
		writeDomainError(w, "Failed to list payroll basis", err)
		return
	}

	f, err := BuildBasisWorkbook(entries)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build export", err)
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("payroll-basis-%s-%s-%s.xlsx", orgID, period.Start, period.End)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := f.WriteTo(w); err != nil {
		h.Logger.Error().Err(err).Str("org_id", string(orgID)).Msg("write xlsx export")
		return
	}
	payroll.RecordExport("xlsx")
}

// BuildBasisWorkbook lays out one row per entry on the first sheet and one
// row per ISO week on the second.
func BuildBasisWorkbook(entries []payroll.PayrollBasisEntry) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", basisSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(weeksSheet); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	if err := writeRow(f, basisSheet, 1, basisHeaders); err != nil {
		return nil, err
	}
	if err := writeRow(f, weeksSheet, 1, weekHeaders); err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(basisSheet, 1, 1, bold); err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(weeksSheet, 1, 1, bold); err != nil {
		return nil, err
	}

	weekRow := 2
	for i, e := range entries {
		lockedBy, computedAt := "", ""
		if e.Locked {
			lockedBy = e.LockedBy
		}
		if !e.ComputedAt.IsZero() {
			computedAt = e.ComputedAt.UTC().Format("2006-01-02 15:04:05")
		}
		row := []any{
			string(e.PersonID), e.Period.Start.String(), e.Period.End.String(),
			e.TotalHours.InexactFloat64(), e.HoursNorm.InexactFloat64(), e.HoursOvertime.InexactFloat64(),
			e.OBHours.InexactFloat64(), e.OBHoursActual.InexactFloat64(), e.OBHoursMultiplier.InexactFloat64(),
			e.BreakHours.InexactFloat64(),
			e.SpanCount, e.Locked, lockedBy, computedAt,
		}
		if err := writeRow(f, basisSheet, i+2, row); err != nil {
			return nil, err
		}

		for _, wk := range e.Weeks {
			row := []any{
				string(e.PersonID), wk.Week.String(),
				wk.Hours.InexactFloat64(), wk.HoursNorm.InexactFloat64(),
				wk.HoursOvertime.InexactFloat64(), wk.CarriedHours.InexactFloat64(),
			}
			if err := writeRow(f, weeksSheet, weekRow, row); err != nil {
				return nil, err
			}
			weekRow++
		}
	}

	if err := f.SetColWidth(basisSheet, "A", "N", 14); err != nil {
		return nil, err
	}
	return f, nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
