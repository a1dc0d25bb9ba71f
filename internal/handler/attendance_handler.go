package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/fop-attendance-api/internal/dto"
	"github.com/noah-isme/fop-attendance-api/internal/middleware"
	"github.com/noah-isme/fop-attendance-api/internal/service"
	appErrors "github.com/noah-isme/fop-attendance-api/pkg/errors"
	"github.com/noah-isme/fop-attendance-api/pkg/response"
)

// AttendanceHandler wires HTTP endpoints to the attendance ledger.
type AttendanceHandler struct {
	service  *service.AttendanceService
	auth     *service.AuthService
	exporter *service.ExportService
}

// NewAttendanceHandler creates a new handler.
func NewAttendanceHandler(svc *service.AttendanceService, auth *service.AuthService, exporter *service.ExportService) *AttendanceHandler {
	return &AttendanceHandler{service: svc, auth: auth, exporter: exporter}
}

// CreateRecord godoc
// @Summary Create attendance record
// @Description Open a new attendance record for a class session
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.CreateRecordRequest true "Record payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /attendance/records [post]
func (h *AttendanceHandler) CreateRecord(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid record payload"))
		return
	}

	record, err := h.service.CreateRecord(c.Request.Context(), claims.TeacherID, req.ClassName, req.RecordName)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, record)
}

// Mark godoc
// @Summary Mark attendance
// @Description Record one student's attendance from a scanned QR payload
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.MarkRequest true "Mark payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /attendance/mark [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.MarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid mark payload"))
		return
	}

	teacherID := claims.TeacherID
	if req.TeacherID != "" && claims.IsAdmin() {
		teacherID = req.TeacherID
	}

	attendee, err := h.service.Mark(c.Request.Context(), req.RecordID, teacherID, req.QRPayload)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.MarkResponse{Attendance: *attendee})
}

// List godoc
// @Summary List attendance records
// @Description Records grouped by class; admins see every teacher's records and may filter by teacherId
// @Tags Attendance
// @Produce json
// @Param teacherId query string false "Admin only: restrict to one teacher"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /attendance/records [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	teacherID := claims.TeacherID
	isAdmin := claims.IsAdmin()
	// An admin narrowing to one teacher gets that teacher's own view.
	if filter := strings.TrimSpace(c.Query("teacherId")); filter != "" && isAdmin {
		teacherID = filter
		isAdmin = false
	}

	groups, cacheHit, err := h.service.List(c.Request.Context(), teacherID, isAdmin)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)

	res := dto.ListResponse{Records: groups, Teachers: []dto.TeacherInfo{}}
	if claims.IsAdmin() {
		teachers, err := h.auth.ListTeachers(c.Request.Context())
		if err != nil {
			response.Error(c, err)
			return
		}
		for _, t := range teachers {
			res.Teachers = append(res.Teachers, dto.TeacherInfo{
				TeacherID: t.TeacherID,
				Name:      t.Name,
				Email:     t.Email,
				Role:      t.Role,
			})
		}
	}

	response.JSON(c, http.StatusOK, res, middleware.ExtractMeta(c))
}

// ListTeachers godoc
// @Summary List teachers
// @Description Registered teacher roster; admin only
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /attendance/teachers [get]
func (h *AttendanceHandler) ListTeachers(c *gin.Context) {
	teachers, err := h.auth.ListTeachers(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	roster := make([]dto.TeacherInfo, 0, len(teachers))
	for _, t := range teachers {
		roster = append(roster, dto.TeacherInfo{
			TeacherID: t.TeacherID,
			Name:      t.Name,
			Email:     t.Email,
			Role:      t.Role,
		})
	}
	response.JSON(c, http.StatusOK, roster, nil)
}

// Get godoc
// @Summary Get attendance record
// @Description One record with its attendee list, oldest scan first
// @Tags Attendance
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /attendance/records/{id} [get]
func (h *AttendanceHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	record, err := h.service.Get(c.Request.Context(), c.Param("id"), claims.TeacherID, claims.IsAdmin())
	if err != nil {
		response.Error(c, err)
		return
	}
	if record == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "record not found"))
		return
	}

	response.JSON(c, http.StatusOK, record, nil)
}

// Export godoc
// @Summary Export attendance record
// @Description Download one record as CSV or PDF
// @Tags Attendance
// @Produce octet-stream
// @Param id path string true "Record ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /attendance/records/{id}/export [get]
func (h *AttendanceHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	result, err := h.exporter.Export(c.Request.Context(), c.Param("id"), claims.TeacherID, claims.IsAdmin(), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
