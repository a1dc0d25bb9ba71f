package repository

import (
	"context"
	"strings"

	"github.com/noah-isme/fop-attendance-api/internal/models"
	"github.com/noah-isme/fop-attendance-api/internal/rowstore"
)

// TeacherRepository manages the teacher roster sheet.
type TeacherRepository struct {
	store rowstore.Store
	table string
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(store rowstore.Store, table string) *TeacherRepository {
	return &TeacherRepository{store: store, table: table}
}

// FindByEmail returns the teacher with the given email, or nil when none
// matches. Emails compare case-insensitively.
func (r *TeacherRepository) FindByEmail(ctx context.Context, email string) (*models.Teacher, error) {
	teachers, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(email))
	for i := range teachers {
		if strings.ToLower(teachers[i].Email) == needle {
			return &teachers[i], nil
		}
	}
	return nil, nil
}

// Create appends a teacher row to the roster.
func (r *TeacherRepository) Create(ctx context.Context, teacher models.Teacher) error {
	return r.store.Append(ctx, r.table, models.TeacherHeaders, []string{
		teacher.TeacherID,
		teacher.Name,
		teacher.Email,
		teacher.PasswordHash,
		string(teacher.Role),
	})
}

// List scans the roster, skipping rows without a teacher ID.
func (r *TeacherRepository) List(ctx context.Context) ([]models.Teacher, error) {
	data, err := r.store.ReadAll(ctx, r.table, models.TeacherHeaders)
	if err != nil {
		return nil, err
	}

	teachers := make([]models.Teacher, 0, len(data.Rows))
	for _, raw := range data.Rows {
		t := models.Teacher{
			TeacherID:    cell(raw, 0),
			Name:         cell(raw, 1),
			Email:        cell(raw, 2),
			PasswordHash: cell(raw, 3),
			Role:         models.UserRole(cell(raw, 4)),
		}
		if t.TeacherID == "" {
			continue
		}
		if t.Role == "" {
			t.Role = models.RoleTeacher
		}
		teachers = append(teachers, t)
	}
	return teachers, nil
}
