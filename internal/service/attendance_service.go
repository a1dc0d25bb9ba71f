package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/fop-attendance-api/internal/models"
	appErrors "github.com/noah-isme/fop-attendance-api/pkg/errors"
)

const listCachePattern = "attendance:list:*"

type attendanceRowRepository interface {
	Append(ctx context.Context, row models.AttendanceRow) error
	ListRows(ctx context.Context) ([]models.AttendanceRow, error)
}

type qrDecoder interface {
	Decode(raw string) *models.StudentIdentity
}

type listCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// AttendanceService is the attendance ledger: record creation, duplicate-safe
// marking and reconstruction of grouped views from the flat row log. All
// invariant enforcement lives here.
type AttendanceService struct {
	repo     attendanceRowRepository
	codec    qrDecoder
	cache    listCache
	cacheTTL time.Duration
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
}

// NewAttendanceService constructs the ledger. cache may be nil to disable
// list caching; metrics may be nil.
func NewAttendanceService(repo attendanceRowRepository, codec qrDecoder, cache listCache, cacheTTL time.Duration, metrics *MetricsService, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		repo:     repo,
		codec:    codec,
		cache:    cache,
		cacheTTL: cacheTTL,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateRecord appends a meta row opening a new attendance record. Duplicate
// (teacher, class, name) tuples are allowed; records are told apart by ID.
func (s *AttendanceService) CreateRecord(ctx context.Context, teacherID, className, recordName string) (*models.AttendanceRecord, error) {
	cleanClass := strings.TrimSpace(className)
	cleanRecord := strings.TrimSpace(recordName)
	if cleanClass == "" || cleanRecord == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class name and record name are required")
	}

	recordID := uuid.NewString()
	timestamp := s.isoNow()

	err := s.repo.Append(ctx, models.AttendanceRow{
		RecordID:    recordID,
		TeacherID:   teacherID,
		ClassName:   cleanClass,
		RecordName:  cleanRecord,
		StudentID:   models.MetaSentinel,
		StudentName: models.MetaSentinel,
		Timestamp:   timestamp,
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncRowAppended()
	s.invalidateListCache(ctx)

	s.logger.Info("attendance record created",
		zap.String("record_id", recordID),
		zap.String("teacher_id", teacherID),
		zap.String("class_name", cleanClass),
	)

	return &models.AttendanceRecord{
		RecordID:   recordID,
		TeacherID:  teacherID,
		ClassName:  cleanClass,
		RecordName: cleanRecord,
		CreatedAt:  &timestamp,
		Attendees:  []models.Attendee{},
	}, nil
}

// Mark decodes a scanned QR payload and appends an attendee row, enforcing
// the core invariant: at most one attendance row per
// (recordId, teacherId, studentId), ever.
func (s *AttendanceService) Mark(ctx context.Context, recordID, teacherID, rawQR string) (*models.Attendee, error) {
	s.metrics.IncScan()

	if strings.TrimSpace(recordID) == "" || rawQR == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "record id and QR payload are required")
	}

	identity := s.codec.Decode(rawQR)
	if identity == nil {
		s.metrics.IncInvalidQR()
		return nil, appErrors.ErrInvalidQR
	}

	rows, err := s.repo.ListRows(ctx)
	if err != nil {
		return nil, err
	}

	var meta *models.AttendanceRow
	for i := range rows {
		row := rows[i]
		if row.RecordID != recordID || row.TeacherID != teacherID {
			continue
		}
		switch row.Kind() {
		case models.RowAttendee:
			if row.StudentID == identity.StudentID {
				s.metrics.IncDuplicate()
				return nil, appErrors.ErrDuplicateAttendance
			}
		case models.RowMeta:
			if meta == nil {
				meta = &rows[i]
			}
		}
	}

	if meta == nil {
		return nil, appErrors.ErrRecordNotFound
	}

	timestamp := s.isoNow()

	// Race window: a concurrent mark for the same student can land between
	// the scan above and this append. The store has no transactions, so a
	// duplicate row is possible under that interleaving and is accepted.
	err = s.repo.Append(ctx, models.AttendanceRow{
		RecordID:    recordID,
		TeacherID:   teacherID,
		ClassName:   meta.ClassName,
		RecordName:  meta.RecordName,
		StudentID:   identity.StudentID,
		StudentName: identity.StudentName,
		Timestamp:   timestamp,
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncMark()
	s.metrics.IncRowAppended()
	s.invalidateListCache(ctx)

	return &models.Attendee{
		StudentID:   identity.StudentID,
		StudentName: identity.StudentName,
		Timestamp:   timestamp,
	}, nil
}

// List reconstructs every visible record grouped by class. Non-admins only
// see their own rows. The bool result reports a cache hit.
func (s *AttendanceService) List(ctx context.Context, teacherID string, isAdmin bool) ([]models.ClassGroup, bool, error) {
	cacheKey := "attendance:list:" + teacherID
	if isAdmin {
		cacheKey = "attendance:list:admin"
	}

	if s.cache != nil {
		var cached []models.ClassGroup
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, true, nil
		}
	}

	rows, err := s.repo.ListRows(ctx)
	if err != nil {
		return nil, false, err
	}

	visible := make([]models.AttendanceRow, 0, len(rows))
	for _, row := range rows {
		if row.RecordID == "" || row.TeacherID == "" {
			continue
		}
		if !isAdmin && row.TeacherID != teacherID {
			continue
		}
		visible = append(visible, row)
	}

	groups := groupByClass(foldRecords(visible))

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, groups, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache attendance list", zap.Error(err))
		}
	}

	return groups, false, nil
}

// Get reconstructs a single record. It returns (nil, nil) when no row
// matches the ID at all, and ErrForbidden when any matching row belongs to
// another teacher and the caller is not an admin, so "not found" and
// "forbidden" stay distinguishable.
func (s *AttendanceService) Get(ctx context.Context, recordID, teacherID string, isAdmin bool) (*models.AttendanceRecord, error) {
	targetID := strings.TrimSpace(recordID)
	if targetID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "record id is required")
	}

	rows, err := s.repo.ListRows(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]models.AttendanceRow, 0, len(rows))
	for _, row := range rows {
		if row.RecordID != targetID {
			continue
		}
		if !isAdmin && row.TeacherID != teacherID {
			return nil, appErrors.ErrForbidden
		}
		matched = append(matched, row)
	}

	records := foldRecords(matched)
	if len(records) == 0 {
		return nil, nil
	}

	record := records[0]
	sort.SliceStable(record.Attendees, func(i, j int) bool {
		return parseTimestamp(record.Attendees[i].Timestamp).Before(parseTimestamp(record.Attendees[j].Timestamp))
	})
	return record, nil
}

func (s *AttendanceService) invalidateListCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, listCachePattern); err != nil {
		s.logger.Warn("failed to invalidate list cache", zap.Error(err))
	}
}

func (s *AttendanceService) isoNow() string {
	return s.now().UTC().Format(time.RFC3339)
}
