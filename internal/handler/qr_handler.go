package handler

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/fop-attendance-api/internal/dto"
	"github.com/noah-isme/fop-attendance-api/internal/models"
	"github.com/noah-isme/fop-attendance-api/internal/qr"
	appErrors "github.com/noah-isme/fop-attendance-api/pkg/errors"
	"github.com/noah-isme/fop-attendance-api/pkg/response"
)

const defaultQRSize = 256

// QRHandler renders student QR codes.
type QRHandler struct {
	codec *qr.Codec
}

// NewQRHandler creates a new handler.
func NewQRHandler(codec *qr.Codec) *QRHandler {
	return &QRHandler{codec: codec}
}

// Generate godoc
// @Summary Generate student QR code
// @Description Encode a student identity and render it as a PNG QR code
// @Tags QR
// @Accept json
// @Produce json
// @Param payload body dto.QRRequest true "Student identity"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /qr [post]
func (h *QRHandler) Generate(c *gin.Context) {
	var req dto.QRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid qr payload"))
		return
	}

	identity := models.StudentIdentity{StudentID: req.StudentID, StudentName: req.StudentName}
	payload, err := h.codec.Encode(identity)
	if err != nil {
		response.Error(c, err)
		return
	}

	size := req.Size
	if size <= 0 {
		size = defaultQRSize
	}
	png, err := h.codec.ImagePNG(identity, size)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, dto.QRResponse{
		Payload: payload,
		Format:  h.codec.Format(),
		PNG:     base64.StdEncoding.EncodeToString(png),
	}, nil)
}
