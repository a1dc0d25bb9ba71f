package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/fop-attendance-api/internal/dto"
	"github.com/noah-isme/fop-attendance-api/internal/scanner"
	"github.com/noah-isme/fop-attendance-api/internal/service"
	appErrors "github.com/noah-isme/fop-attendance-api/pkg/errors"
	"github.com/noah-isme/fop-attendance-api/pkg/response"
)

// ScanHandler manages scan session lifecycle over HTTP. Each session pairs
// one teacher with one record; the camera itself lives on the client, which
// posts decoded reads to the session.
type ScanHandler struct {
	registry *scanner.Registry
	opener   scanner.SourceOpener
	marker   scanner.Marker
	cfg      scanner.Config
	logger   *zap.Logger
}

// NewScanHandler creates a new handler.
func NewScanHandler(registry *scanner.Registry, opener scanner.SourceOpener, svc *service.AttendanceService, cfg scanner.Config, logger *zap.Logger) *ScanHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScanHandler{registry: registry, opener: opener, marker: svc, cfg: cfg, logger: logger}
}

// Start godoc
// @Summary Start scan session
// @Description Open a scan session bound to one attendance record
// @Tags Scan
// @Accept json
// @Produce json
// @Param payload body dto.StartScanSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /scan/sessions [post]
func (h *ScanHandler) Start(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.StartScanSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session payload"))
		return
	}

	controller := scanner.NewController(h.marker, h.opener, req.RecordID, claims.TeacherID, h.cfg, h.logger)
	if err := controller.Start(c.Request.Context(), req.SourceID); err != nil {
		response.Error(c, err)
		return
	}

	sessionID := h.registry.Add(controller)
	response.Created(c, sessionResponse(sessionID, controller))
}

// Get godoc
// @Summary Get scan session
// @Description Session state and its confirmation list, most recent first
// @Tags Scan
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /scan/sessions/{id} [get]
func (h *ScanHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	controller, err := h.registry.Get(c.Param("id"), claims.TeacherID, claims.IsAdmin())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, sessionResponse(c.Param("id"), controller), nil)
}

// Scan godoc
// @Summary Submit scan
// @Description Feed one decoded camera read into the session
// @Tags Scan
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.ScanRequest true "Scan payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /scan/sessions/{id}/scan [post]
func (h *ScanHandler) Scan(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	controller, err := h.registry.Get(c.Param("id"), claims.TeacherID, claims.IsAdmin())
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid scan payload"))
		return
	}

	attendee, err := controller.HandleScan(c.Request.Context(), req.Payload)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, dto.ScanResponse{Attendance: attendee, Dropped: attendee == nil}, nil)
}

// Switch godoc
// @Summary Switch camera source
// @Description Swap the session's active camera source
// @Tags Scan
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.StartScanSessionRequest true "Source payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /scan/sessions/{id}/source [put]
func (h *ScanHandler) Switch(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	controller, err := h.registry.Get(c.Param("id"), claims.TeacherID, claims.IsAdmin())
	if err != nil {
		response.Error(c, err)
		return
	}

	var req struct {
		SourceID string `json:"sourceId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "source id required"))
		return
	}

	if err := controller.Switch(c.Request.Context(), req.SourceID); err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, sessionResponse(c.Param("id"), controller), nil)
}

// Stop godoc
// @Summary Stop scan session
// @Description Release the camera source and discard session state
// @Tags Scan
// @Produce json
// @Param id path string true "Session ID"
// @Success 204 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /scan/sessions/{id} [delete]
func (h *ScanHandler) Stop(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.registry.Remove(c.Param("id"), claims.TeacherID, claims.IsAdmin()); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

func sessionResponse(sessionID string, controller *scanner.Controller) dto.ScanSessionResponse {
	return dto.ScanSessionResponse{
		SessionID: sessionID,
		RecordID:  controller.RecordID(),
		State:     string(controller.State()),
		Source:    controller.SourceLabel(),
		Results:   controller.Results(),
	}
}
