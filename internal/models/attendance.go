package models

// AttendanceHeaders is the column layout of the attendance sheet. Order is
// significant: rows are serialized positionally.
var AttendanceHeaders = []string{
	"record_id",
	"teacher_id",
	"class_name",
	"record_name",
	"student_id",
	"student_name",
	"timestamp",
}

// MetaSentinel fills both student columns of a record's meta row.
const MetaSentinel = "__meta__"

// RowKind tags the two variants stored in the flat attendance log.
type RowKind int

const (
	RowInvalid RowKind = iota
	RowMeta
	RowAttendee
)

// AttendanceRow is the only persisted attendance entity: one flat,
// append-only sheet row. Rows are never mutated or deleted.
type AttendanceRow struct {
	RecordID    string
	TeacherID   string
	ClassName   string
	RecordName  string
	StudentID   string
	StudentName string
	Timestamp   string
}

// Kind classifies the row. All sentinel matching lives here; callers must
// not compare student columns against MetaSentinel themselves.
func (r AttendanceRow) Kind() RowKind {
	if r.RecordID == "" || r.TeacherID == "" {
		return RowInvalid
	}
	if r.StudentID == MetaSentinel {
		return RowMeta
	}
	if r.StudentID != "" {
		return RowAttendee
	}
	return RowInvalid
}

// Attendee is one student's mark within a record. Timestamps are ISO-8601
// strings, stored verbatim.
type Attendee struct {
	StudentID   string `json:"studentId"`
	StudentName string `json:"studentName"`
	Timestamp   string `json:"timestamp"`
}

// AttendanceRecord is a derived view of one teaching session, reconstructed
// from its meta row plus attendee rows. Never persisted as such.
type AttendanceRecord struct {
	RecordID   string     `json:"recordId"`
	TeacherID  string     `json:"teacherId"`
	ClassName  string     `json:"className"`
	RecordName string     `json:"recordName"`
	CreatedAt  *string    `json:"createdAt"`
	Attendees  []Attendee `json:"attendees"`
}

// ClassGroup bundles the records of one class for the list view.
type ClassGroup struct {
	ClassName string             `json:"className"`
	Records   []AttendanceRecord `json:"records"`
}

// StudentIdentity is the ephemeral payload carried inside a student's QR
// code. It exists only on the wire, never in storage.
type StudentIdentity struct {
	StudentID   string `json:"studentId"`
	StudentName string `json:"studentName"`
}
