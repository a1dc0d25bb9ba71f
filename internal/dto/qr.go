package dto

// QRRequest asks for a student QR code. IDs are opaque strings; leading
// zeros survive the round trip.
type QRRequest struct {
	StudentID   string `json:"studentId" binding:"required"`
	StudentName string `json:"studentName" binding:"required"`
	Size        int    `json:"size"`
}

// QRResponse carries the payload text and the rendered PNG (base64).
type QRResponse struct {
	Payload string `json:"payload"`
	Format  string `json:"format"`
	PNG     string `json:"png"`
}
