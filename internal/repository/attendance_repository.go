package repository

import (
	"context"
	"strings"

	"github.com/noah-isme/fop-attendance-api/internal/models"
	"github.com/noah-isme/fop-attendance-api/internal/rowstore"
)

// AttendanceRepository converts between flat sheet rows and AttendanceRow
// values. It owns the table name and header schema; all row (de)serialization
// lives here so the service layer never sees positional slices.
type AttendanceRepository struct {
	store rowstore.Store
	table string
}

// NewAttendanceRepository constructs the repository for the given table.
func NewAttendanceRepository(store rowstore.Store, table string) *AttendanceRepository {
	return &AttendanceRepository{store: store, table: table}
}

// Append writes one row at the end of the attendance log.
func (r *AttendanceRepository) Append(ctx context.Context, row models.AttendanceRow) error {
	return r.store.Append(ctx, r.table, models.AttendanceHeaders, []string{
		row.RecordID,
		row.TeacherID,
		row.ClassName,
		row.RecordName,
		row.StudentID,
		row.StudentName,
		row.Timestamp,
	})
}

// ListRows scans the full attendance log in append order. Sheets pad or
// truncate trailing empty cells, so parsing is bounds-checked per column.
func (r *AttendanceRepository) ListRows(ctx context.Context) ([]models.AttendanceRow, error) {
	data, err := r.store.ReadAll(ctx, r.table, models.AttendanceHeaders)
	if err != nil {
		return nil, err
	}

	rows := make([]models.AttendanceRow, 0, len(data.Rows))
	for _, raw := range data.Rows {
		rows = append(rows, parseAttendanceRow(raw))
	}
	return rows, nil
}

func parseAttendanceRow(raw []string) models.AttendanceRow {
	return models.AttendanceRow{
		RecordID:    cell(raw, 0),
		TeacherID:   cell(raw, 1),
		ClassName:   cell(raw, 2),
		RecordName:  cell(raw, 3),
		StudentID:   cell(raw, 4),
		StudentName: cell(raw, 5),
		Timestamp:   cell(raw, 6),
	}
}

func cell(raw []string, i int) string {
	if i >= len(raw) {
		return ""
	}
	return strings.TrimSpace(raw[i])
}
