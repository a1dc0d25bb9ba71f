package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/fop-attendance-api/internal/dto"
	"github.com/noah-isme/fop-attendance-api/internal/models"
	appErrors "github.com/noah-isme/fop-attendance-api/pkg/errors"
)

type teacherAccountRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Teacher, error)
	Create(ctx context.Context, teacher models.Teacher) error
	List(ctx context.Context) ([]models.Teacher, error)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	Secret string
	Expiry time.Duration
}

// AuthService authenticates teachers against the roster sheet and issues the
// signed claims the attendance ledger treats as opaque.
type AuthService struct {
	repo     teacherAccountRepository
	validate *validator.Validate
	logger   *zap.Logger
	config   AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo teacherAccountRepository, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Expiry <= 0 {
		config.Expiry = 12 * time.Hour
	}
	return &AuthService{repo: repo, validate: validator.New(), logger: logger, config: config}
}

// Login verifies credentials and returns a signed token.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error) {
	teacher, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if teacher == nil {
		return nil, appErrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(teacher.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.ErrInvalidCredentials
	}

	return s.issueToken(teacher)
}

// Register creates a teacher account with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "name is required")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a valid email address is required")
	}
	if err := s.validate.Var(req.Password, "required,min=8"); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "password must be at least 8 characters")
	}
	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a teacher account with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	teacher := models.Teacher{
		TeacherID:    uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleTeacher,
	}
	if err := s.repo.Create(ctx, teacher); err != nil {
		return nil, err
	}

	s.logger.Info("teacher registered", zap.String("teacher_id", teacher.TeacherID))
	return s.issueToken(&teacher)
}

// ValidateToken parses and verifies an access token, returning its claims.
func (s *AuthService) ValidateToken(token string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, appErrors.ErrUnauthorized
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	return claims, nil
}

// ListTeachers returns the roster for the admin list view.
func (s *AuthService) ListTeachers(ctx context.Context) ([]models.Teacher, error) {
	return s.repo.List(ctx)
}

func (s *AuthService) issueToken(teacher *models.Teacher) (*dto.AuthResponse, error) {
	now := time.Now().UTC()
	claims := &models.JWTClaims{
		TeacherID: teacher.TeacherID,
		Name:      teacher.Name,
		Role:      teacher.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   teacher.TeacherID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.Expiry)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}

	return &dto.AuthResponse{
		Token:     token,
		ExpiresIn: int64(s.config.Expiry.Seconds()),
		Teacher: dto.TeacherInfo{
			TeacherID: teacher.TeacherID,
			Name:      teacher.Name,
			Email:     teacher.Email,
			Role:      teacher.Role,
		},
	}, nil
}
