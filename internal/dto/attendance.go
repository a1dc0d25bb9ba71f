package dto

import "github.com/noah-isme/fop-attendance-api/internal/models"

// CreateRecordRequest opens a new attendance record.
type CreateRecordRequest struct {
	ClassName  string `json:"className" binding:"required"`
	RecordName string `json:"recordName" binding:"required"`
}

// MarkRequest submits one decoded QR payload against a record. TeacherID is
// honoured for admins only (marking on another teacher's behalf).
type MarkRequest struct {
	RecordID  string `json:"recordId" binding:"required"`
	QRPayload string `json:"qrPayload" binding:"required"`
	TeacherID string `json:"teacherId"`
}

// MarkResponse confirms a successful mark for the scanning UI.
type MarkResponse struct {
	Attendance models.Attendee `json:"attendance"`
}

// TeacherInfo is a roster entry in list responses.
type TeacherInfo struct {
	TeacherID string          `json:"teacherId"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Role      models.UserRole `json:"role"`
}

// ListResponse groups visible records by class; Teachers carries the roster
// for the admin filter dropdown and is empty for non-admins.
type ListResponse struct {
	Records  []models.ClassGroup `json:"records"`
	Teachers []TeacherInfo       `json:"teachers"`
}
