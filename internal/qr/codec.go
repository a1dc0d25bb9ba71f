package qr

import (
	"encoding/json"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/noah-isme/fop-attendance-api/internal/models"
	appErrors "github.com/noah-isme/fop-attendance-api/pkg/errors"
)

// Payload wire formats. The two observed formats are mutually incompatible;
// a deployment picks exactly one via configuration.
const (
	FormatJSON = "json"
	FormatPipe = "pipe"
)

// prefixTag identifies our payloads in the JSON format, so arbitrary QR
// codes (URLs, wifi configs) are rejected before hitting the ledger.
const prefixTag = "FOP_ATTENDANCE"

const pipeSeparator = "|"

type jsonPayload struct {
	Prefix string `json:"p"`
	ID     string `json:"id"`
	Name   string `json:"name"`
}

// Codec encodes a student identity into a single-line QR payload and back.
// The payload is plain text, not signed: physical presence plus knowledge of
// the format is the trust model.
type Codec struct {
	format string
}

// NewCodec builds a codec for the given format, defaulting to JSON.
func NewCodec(format string) *Codec {
	switch format {
	case FormatPipe:
		return &Codec{format: FormatPipe}
	default:
		return &Codec{format: FormatJSON}
	}
}

// Format reports the configured wire format.
func (c *Codec) Format() string {
	return c.format
}

// Encode trims both identity fields and produces the payload text. Empty
// fields after trimming are a validation error. The pipe format cannot
// escape its separator; an identity containing "|" is an unchecked
// precondition violation and will not survive the round trip.
func (c *Codec) Encode(identity models.StudentIdentity) (string, error) {
	id := strings.TrimSpace(identity.StudentID)
	name := strings.TrimSpace(identity.StudentName)
	if id == "" || name == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "student id and name are required")
	}

	if c.format == FormatPipe {
		return id + pipeSeparator + name, nil
	}

	raw, err := json.Marshal(jsonPayload{Prefix: prefixTag, ID: id, Name: name})
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode QR payload")
	}
	return string(raw), nil
}

// Decode parses a raw scan back into an identity. It returns nil for any
// malformed input and never panics: the scan loop feeds it arbitrary camera
// reads and must not crash on garbage.
func (c *Codec) Decode(raw string) *models.StudentIdentity {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	if c.format == FormatPipe {
		parts := strings.Split(raw, pipeSeparator)
		if len(parts) != 2 {
			return nil
		}
		id := strings.TrimSpace(parts[0])
		name := strings.TrimSpace(parts[1])
		if id == "" || name == "" {
			return nil
		}
		return &models.StudentIdentity{StudentID: id, StudentName: name}
	}

	var payload jsonPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil
	}
	if payload.Prefix != prefixTag {
		return nil
	}
	id := strings.TrimSpace(payload.ID)
	name := strings.TrimSpace(payload.Name)
	if id == "" || name == "" {
		return nil
	}
	return &models.StudentIdentity{StudentID: id, StudentName: name}
}

// ImagePNG renders the encoded identity as a PNG QR image. High error
// correction matches what phone screens in a lecture hall need.
func (c *Codec) ImagePNG(identity models.StudentIdentity, size int) ([]byte, error) {
	payload, err := c.Encode(identity)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(payload, qrcode.High, size)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render QR image")
	}
	return png, nil
}
