package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the roles carried in auth claims.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleTeacher UserRole = "teacher"
)

// TeacherHeaders is the column layout of the teachers sheet.
var TeacherHeaders = []string{
	"teacher_id",
	"name",
	"email",
	"password_hash",
	"role",
}

// Teacher is one roster entry from the teachers sheet.
type Teacher struct {
	TeacherID    string   `json:"teacherId"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"-"`
	Role         UserRole `json:"role"`
}

// JWTClaims is the verified token payload the attendance ledger consumes.
// The ledger itself never verifies signatures.
type JWTClaims struct {
	TeacherID string   `json:"teacherId"`
	Name      string   `json:"name"`
	Role      UserRole `json:"role"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the claims grant cross-teacher access.
func (c *JWTClaims) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}
