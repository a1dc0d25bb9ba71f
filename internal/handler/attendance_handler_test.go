package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/fop-attendance-api/internal/middleware"
	"github.com/noah-isme/fop-attendance-api/internal/models"
	"github.com/noah-isme/fop-attendance-api/internal/qr"
	"github.com/noah-isme/fop-attendance-api/internal/repository"
	"github.com/noah-isme/fop-attendance-api/internal/rowstore"
	"github.com/noah-isme/fop-attendance-api/internal/scanner"
	"github.com/noah-isme/fop-attendance-api/internal/service"
)

type testAPI struct {
	router   *gin.Engine
	codec    *qr.Codec
	auth     *service.AuthService
	teachers *repository.TeacherRepository
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := rowstore.NewMemoryStore()
	codec := qr.NewCodec(qr.FormatPipe)
	attendanceRepo := repository.NewAttendanceRepository(store, "attendance")
	teacherRepo := repository.NewTeacherRepository(store, "teachers")

	attendanceSvc := service.NewAttendanceService(attendanceRepo, codec, nil, 0, nil, nil)
	authSvc := service.NewAuthService(teacherRepo, nil, service.AuthConfig{Secret: "test-secret", Expiry: time.Hour})
	exportSvc := service.NewExportService(attendanceSvc, nil, nil, nil)

	authHandler := NewAuthHandler(authSvc)
	attendanceHandler := NewAttendanceHandler(attendanceSvc, authSvc, exportSvc)
	scanHandler := NewScanHandler(scanner.NewRegistry(), scanner.NewRemoteOpener(), attendanceSvc, scanner.Config{}, nil)

	r := gin.New()
	api := r.Group("/api/v1")
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/register", authHandler.Register)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))
	protected.POST("/attendance/records", attendanceHandler.CreateRecord)
	protected.GET("/attendance/records", attendanceHandler.List)
	protected.GET("/attendance/records/:id", attendanceHandler.Get)
	protected.GET("/attendance/records/:id/export", attendanceHandler.Export)
	protected.POST("/attendance/mark", attendanceHandler.Mark)
	protected.GET("/attendance/teachers", middleware.RequireAdmin(), attendanceHandler.ListTeachers)
	protected.POST("/scan/sessions", scanHandler.Start)
	protected.POST("/scan/sessions/:id/scan", scanHandler.Scan)
	protected.DELETE("/scan/sessions/:id", scanHandler.Stop)

	return &testAPI{router: r, codec: codec, auth: authSvc, teachers: teacherRepo}
}

func (a *testAPI) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) registerTeacher(t *testing.T, email string) string {
	t.Helper()
	w := a.request(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name": "Jordan", "email": email, "password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var envelope struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope.Data.Token)
	return envelope.Data.Token
}

// registerAdmin seeds an admin account straight into the roster sheet, then
// logs in through the API. Registration always issues teacher-role accounts,
// so admins have to be provisioned out of band.
func (a *testAPI) registerAdmin(t *testing.T, email string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, a.teachers.Create(context.Background(), models.Teacher{
		TeacherID:    "admin-1",
		Name:         "Sam",
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	}))

	w := a.request(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email": email, "password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var envelope struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope.Data.Token)
	return envelope.Data.Token
}

func (a *testAPI) encode(t *testing.T, id, name string) string {
	t.Helper()
	payload, err := a.codec.Encode(models.StudentIdentity{StudentID: id, StudentName: name})
	require.NoError(t, err)
	return payload
}

func TestRoutesRequireToken(t *testing.T) {
	api := newTestAPI(t)

	w := api.request(t, http.MethodGet, "/api/v1/attendance/records", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.request(t, http.MethodGet, "/api/v1/attendance/records", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateMarkAndFetchFlow(t *testing.T) {
	api := newTestAPI(t)
	token := api.registerTeacher(t, "jordan@uni.edu")

	w := api.request(t, http.MethodPost, "/api/v1/attendance/records", token, gin.H{
		"className": "FOP", "recordName": "Lecture 3",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Data struct {
			RecordID string `json:"recordId"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = api.request(t, http.MethodPost, "/api/v1/attendance/mark", token, gin.H{
		"recordId": created.Data.RecordID, "qrPayload": api.encode(t, "007", "Alice"),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Second mark for the same student maps to 400.
	w = api.request(t, http.MethodPost, "/api/v1/attendance/mark", token, gin.H{
		"recordId": created.Data.RecordID, "qrPayload": api.encode(t, "007", "Alice"),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "DUPLICATE_ATTENDANCE")

	w = api.request(t, http.MethodGet, "/api/v1/attendance/records/"+created.Data.RecordID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Alice")
}

func TestMarkErrorStatusMapping(t *testing.T) {
	api := newTestAPI(t)
	token := api.registerTeacher(t, "jordan@uni.edu")

	w := api.request(t, http.MethodPost, "/api/v1/attendance/mark", token, gin.H{
		"recordId": "missing", "qrPayload": api.encode(t, "007", "Alice"),
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "RECORD_NOT_FOUND")

	w = api.request(t, http.MethodPost, "/api/v1/attendance/mark", token, gin.H{
		"recordId": "missing", "qrPayload": "https://example.com",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_QR")
}

func TestGetForbiddenForOtherTeacher(t *testing.T) {
	api := newTestAPI(t)
	owner := api.registerTeacher(t, "owner@uni.edu")
	other := api.registerTeacher(t, "other@uni.edu")

	w := api.request(t, http.MethodPost, "/api/v1/attendance/records", owner, gin.H{
		"className": "FOP", "recordName": "Lecture 3",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Data struct {
			RecordID string `json:"recordId"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = api.request(t, http.MethodGet, "/api/v1/attendance/records/"+created.Data.RecordID, other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestTeacherRosterAdminOnly(t *testing.T) {
	api := newTestAPI(t)
	teacher := api.registerTeacher(t, "jordan@uni.edu")
	admin := api.registerAdmin(t, "root@uni.edu")

	w := api.request(t, http.MethodGet, "/api/v1/attendance/teachers", teacher, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.request(t, http.MethodGet, "/api/v1/attendance/teachers", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "jordan@uni.edu")
	assert.NotContains(t, w.Body.String(), "passwordHash")
}

func TestExportDownload(t *testing.T) {
	api := newTestAPI(t)
	token := api.registerTeacher(t, "jordan@uni.edu")

	w := api.request(t, http.MethodPost, "/api/v1/attendance/records", token, gin.H{
		"className": "FOP", "recordName": "Lecture 3",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Data struct {
			RecordID string `json:"recordId"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = api.request(t, http.MethodGet, fmt.Sprintf("/api/v1/attendance/records/%s/export?format=csv", created.Data.RecordID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Body.String(), "Class,FOP")
}

func TestScanSessionOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	token := api.registerTeacher(t, "jordan@uni.edu")

	w := api.request(t, http.MethodPost, "/api/v1/attendance/records", token, gin.H{
		"className": "FOP", "recordName": "Lecture 3",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Data struct {
			RecordID string `json:"recordId"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = api.request(t, http.MethodPost, "/api/v1/scan/sessions", token, gin.H{
		"recordId": created.Data.RecordID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var session struct {
		Data struct {
			SessionID string `json:"sessionId"`
			State     string `json:"state"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	assert.Equal(t, "ready", session.Data.State)

	w = api.request(t, http.MethodPost, "/api/v1/scan/sessions/"+session.Data.SessionID+"/scan", token, gin.H{
		"payload": api.encode(t, "007", "Alice"),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Alice")

	w = api.request(t, http.MethodDelete, "/api/v1/scan/sessions/"+session.Data.SessionID, token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
