package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/fop-attendance-api/internal/models"
	appErrors "github.com/noah-isme/fop-attendance-api/pkg/errors"
)

type validatorStub struct {
	claims *models.JWTClaims
}

func (v validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if v.claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	return v.claims, nil
}

func newJWTRouter(v tokenValidator, adminOnly bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := []gin.HandlerFunc{JWT(v)}
	if adminOnly {
		handlers = append(handlers, RequireAdmin())
	}
	handlers = append(handlers, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/protected", handlers...)
	return r
}

func serve(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTRejectsMissingOrMalformedHeader(t *testing.T) {
	r := newJWTRouter(validatorStub{claims: &models.JWTClaims{TeacherID: "t-1"}}, false)

	assert.Equal(t, http.StatusUnauthorized, serve(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "token-without-scheme").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Basic dXNlcjpwYXNz").Code)
}

func TestJWTRejectsInvalidToken(t *testing.T) {
	r := newJWTRouter(validatorStub{}, false)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Bearer bad").Code)
}

func TestJWTAcceptsBearerToken(t *testing.T) {
	r := newJWTRouter(validatorStub{claims: &models.JWTClaims{TeacherID: "t-1", Role: models.RoleTeacher}}, false)
	assert.Equal(t, http.StatusOK, serve(r, "Bearer good").Code)
}

func TestRequireAdmin(t *testing.T) {
	teacher := newJWTRouter(validatorStub{claims: &models.JWTClaims{TeacherID: "t-1", Role: models.RoleTeacher}}, true)
	assert.Equal(t, http.StatusForbidden, serve(teacher, "Bearer good").Code)

	admin := newJWTRouter(validatorStub{claims: &models.JWTClaims{TeacherID: "a-1", Role: models.RoleAdmin}}, true)
	assert.Equal(t, http.StatusOK, serve(admin, "Bearer good").Code)
}
