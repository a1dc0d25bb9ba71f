package service

import (
	"sort"
	"time"

	"github.com/noah-isme/fop-attendance-api/internal/models"
)

// foldRecords replays the append-only row log into per-record views. It is a
// pure function over already-filtered rows and knows nothing about storage.
//
// Meta rows supply createdAt; attendee rows populate the attendee list. A
// record whose meta row was lost or mangled is still returned when attendee
// rows exist, with a nil CreatedAt: resilience over strictness.
func foldRecords(rows []models.AttendanceRow) []*models.AttendanceRecord {
	byID := make(map[string]*models.AttendanceRecord)
	var order []string

	for _, row := range rows {
		kind := row.Kind()
		if kind == models.RowInvalid {
			continue
		}

		record, ok := byID[row.RecordID]
		if !ok {
			record = &models.AttendanceRecord{
				RecordID:  row.RecordID,
				TeacherID: row.TeacherID,
				Attendees: []models.Attendee{},
			}
			byID[row.RecordID] = record
			order = append(order, row.RecordID)
		}

		// Labels are duplicated on every row for redundancy; any non-empty
		// value refreshes the view.
		if row.ClassName != "" {
			record.ClassName = row.ClassName
		}
		if row.RecordName != "" {
			record.RecordName = row.RecordName
		}

		switch kind {
		case models.RowMeta:
			if row.Timestamp != "" {
				ts := row.Timestamp
				record.CreatedAt = &ts
			}
		case models.RowAttendee:
			record.Attendees = append(record.Attendees, models.Attendee{
				StudentID:   row.StudentID,
				StudentName: row.StudentName,
				Timestamp:   row.Timestamp,
			})
		}
	}

	records := make([]*models.AttendanceRecord, 0, len(order))
	for _, id := range order {
		records = append(records, byID[id])
	}
	return records
}

// groupByClass buckets records per class, classes alphabetical, records
// within a class newest first. Records without a class label land under
// "Ungrouped".
func groupByClass(records []*models.AttendanceRecord) []models.ClassGroup {
	byClass := make(map[string][]models.AttendanceRecord)
	for _, record := range records {
		key := record.ClassName
		if key == "" {
			key = "Ungrouped"
		}
		byClass[key] = append(byClass[key], *record)
	}

	names := make([]string, 0, len(byClass))
	for name := range byClass {
		names = append(names, name)
	}
	sort.Strings(names)

	groups := make([]models.ClassGroup, 0, len(names))
	for _, name := range names {
		bucket := byClass[name]
		sort.SliceStable(bucket, func(i, j int) bool {
			return recordCreatedAt(bucket[i]).After(recordCreatedAt(bucket[j]))
		})
		groups = append(groups, models.ClassGroup{ClassName: name, Records: bucket})
	}
	return groups
}

func recordCreatedAt(record models.AttendanceRecord) time.Time {
	if record.CreatedAt == nil {
		return time.Time{}
	}
	return parseTimestamp(*record.CreatedAt)
}

func parseTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return ts
}
