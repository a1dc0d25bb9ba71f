package dto

import "github.com/noah-isme/fop-attendance-api/internal/models"

// StartScanSessionRequest opens a scan session bound to one record.
type StartScanSessionRequest struct {
	RecordID string `json:"recordId" binding:"required"`
	SourceID string `json:"sourceId"`
}

// ScanRequest submits one decoded camera read.
type ScanRequest struct {
	Payload string `json:"payload" binding:"required"`
}

// ScanResponse reports the outcome of one scan. Dropped scans (debounce,
// already processed) carry no attendance and are not errors.
type ScanResponse struct {
	Attendance *models.Attendee `json:"attendance,omitempty"`
	Dropped    bool             `json:"dropped,omitempty"`
}

// ScanSessionResponse describes a session's state and confirmations.
type ScanSessionResponse struct {
	SessionID string            `json:"sessionId"`
	RecordID  string            `json:"recordId"`
	State     string            `json:"state"`
	Source    string            `json:"source,omitempty"`
	Results   []models.Attendee `json:"results"`
}
