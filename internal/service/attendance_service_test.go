package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fop-attendance-api/internal/models"
	"github.com/noah-isme/fop-attendance-api/internal/qr"
	"github.com/noah-isme/fop-attendance-api/internal/repository"
	"github.com/noah-isme/fop-attendance-api/internal/rowstore"
	appErrors "github.com/noah-isme/fop-attendance-api/pkg/errors"
)

type failingRowRepo struct {
	err error
}

func (r failingRowRepo) Append(ctx context.Context, row models.AttendanceRow) error {
	return r.err
}

func (r failingRowRepo) ListRows(ctx context.Context) ([]models.AttendanceRow, error) {
	return nil, r.err
}

func newTestLedger(t *testing.T) (*AttendanceService, *qr.Codec) {
	t.Helper()
	codec := qr.NewCodec(qr.FormatPipe)
	repo := repository.NewAttendanceRepository(rowstore.NewMemoryStore(), "attendance")
	svc := NewAttendanceService(repo, codec, nil, 0, nil, nil)
	return svc, codec
}

func mustEncode(t *testing.T, codec *qr.Codec, id, name string) string {
	t.Helper()
	payload, err := codec.Encode(models.StudentIdentity{StudentID: id, StudentName: name})
	require.NoError(t, err)
	return payload
}

func TestCreateRecordAndGet(t *testing.T) {
	svc, _ := newTestLedger(t)

	record, err := svc.CreateRecord(context.Background(), "t-1", " CS101 ", " Week 1 ")
	require.NoError(t, err)
	assert.NotEmpty(t, record.RecordID)
	assert.Equal(t, "CS101", record.ClassName)
	assert.Equal(t, "Week 1", record.RecordName)
	require.NotNil(t, record.CreatedAt)
	assert.Empty(t, record.Attendees)

	fetched, err := svc.Get(context.Background(), record.RecordID, "t-1", false)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, record.RecordID, fetched.RecordID)
	assert.Empty(t, fetched.Attendees)
}

func TestCreateRecordValidation(t *testing.T) {
	svc, _ := newTestLedger(t)

	_, err := svc.CreateRecord(context.Background(), "t-1", "   ", "Week 1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.CreateRecord(context.Background(), "t-1", "CS101", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestMarkCopiesLabelsFromMetaRow(t *testing.T) {
	svc, codec := newTestLedger(t)

	record, err := svc.CreateRecord(context.Background(), "t-1", "CS101", "Week 1")
	require.NoError(t, err)

	attendee, err := svc.Mark(context.Background(), record.RecordID, "t-1", mustEncode(t, codec, "007", "Alice"))
	require.NoError(t, err)
	assert.Equal(t, "007", attendee.StudentID)
	assert.Equal(t, "Alice", attendee.StudentName)
	assert.NotEmpty(t, attendee.Timestamp)

	fetched, err := svc.Get(context.Background(), record.RecordID, "t-1", false)
	require.NoError(t, err)
	assert.Equal(t, "CS101", fetched.ClassName)
	assert.Equal(t, "Week 1", fetched.RecordName)
	require.Len(t, fetched.Attendees, 1)
}

func TestMarkRejectsDuplicateStudent(t *testing.T) {
	svc, codec := newTestLedger(t)

	record, err := svc.CreateRecord(context.Background(), "t-1", "CS101", "Week 1")
	require.NoError(t, err)

	payload := mustEncode(t, codec, "007", "Alice")
	_, err = svc.Mark(context.Background(), record.RecordID, "t-1", payload)
	require.NoError(t, err)

	_, err = svc.Mark(context.Background(), record.RecordID, "t-1", payload)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, "DUPLICATE_ATTENDANCE", appErr.Code)
	assert.Equal(t, 400, appErr.Status)

	fetched, err := svc.Get(context.Background(), record.RecordID, "t-1", false)
	require.NoError(t, err)
	assert.Len(t, fetched.Attendees, 1)
}

func TestMarkSameStudentAcrossRecords(t *testing.T) {
	svc, codec := newTestLedger(t)

	first, err := svc.CreateRecord(context.Background(), "t-1", "CS101", "Week 1")
	require.NoError(t, err)
	second, err := svc.CreateRecord(context.Background(), "t-1", "CS101", "Week 2")
	require.NoError(t, err)

	payload := mustEncode(t, codec, "007", "Alice")
	_, err = svc.Mark(context.Background(), first.RecordID, "t-1", payload)
	require.NoError(t, err)
	_, err = svc.Mark(context.Background(), second.RecordID, "t-1", payload)
	require.NoError(t, err)
}

func TestMarkUnknownRecord(t *testing.T) {
	svc, codec := newTestLedger(t)

	_, err := svc.Mark(context.Background(), "missing", "t-1", mustEncode(t, codec, "007", "Alice"))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, "RECORD_NOT_FOUND", appErr.Code)
	assert.Equal(t, 404, appErr.Status)
}

func TestMarkInvalidPayload(t *testing.T) {
	svc, _ := newTestLedger(t)

	record, err := svc.CreateRecord(context.Background(), "t-1", "CS101", "Week 1")
	require.NoError(t, err)

	_, err = svc.Mark(context.Background(), record.RecordID, "t-1", "https://example.com")
	require.Error(t, err)
	assert.Equal(t, "INVALID_QR", appErrors.FromError(err).Code)
}

func TestMarkStoreFailurePropagates(t *testing.T) {
	codec := qr.NewCodec(qr.FormatPipe)
	svc := NewAttendanceService(failingRowRepo{err: appErrors.ErrStoreUnavailable}, codec, nil, 0, nil, nil)

	_, err := svc.Mark(context.Background(), "rec-1", "t-1", "007|Alice")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStoreUnavailable.Code, appErrors.FromError(err).Code)
}

func TestListGroupsByClass(t *testing.T) {
	svc, _ := newTestLedger(t)

	times := []time.Time{
		time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC),
	}
	i := 0
	svc.now = func() time.Time {
		ts := times[i%len(times)]
		i++
		return ts
	}

	_, err := svc.CreateRecord(context.Background(), "t-1", "Databases", "Week 1")
	require.NoError(t, err)
	_, err = svc.CreateRecord(context.Background(), "t-1", "Algorithms", "Week 1")
	require.NoError(t, err)
	_, err = svc.CreateRecord(context.Background(), "t-1", "Databases", "Week 2")
	require.NoError(t, err)

	groups, cacheHit, err := svc.List(context.Background(), "t-1", false)
	require.NoError(t, err)
	assert.False(t, cacheHit)
	require.Len(t, groups, 2)

	assert.Equal(t, "Algorithms", groups[0].ClassName)
	require.Len(t, groups[0].Records, 1)

	assert.Equal(t, "Databases", groups[1].ClassName)
	require.Len(t, groups[1].Records, 2)
	assert.Equal(t, "Week 2", groups[1].Records[0].RecordName)
	assert.Equal(t, "Week 1", groups[1].Records[1].RecordName)
}

func TestListVisibility(t *testing.T) {
	svc, _ := newTestLedger(t)

	_, err := svc.CreateRecord(context.Background(), "t-1", "CS101", "Week 1")
	require.NoError(t, err)
	_, err = svc.CreateRecord(context.Background(), "t-2", "CS102", "Week 1")
	require.NoError(t, err)

	own, _, err := svc.List(context.Background(), "t-1", false)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "CS101", own[0].ClassName)

	all, _, err := svc.List(context.Background(), "admin-1", true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListKeepsRecordWithoutMetaRow(t *testing.T) {
	codec := qr.NewCodec(qr.FormatPipe)
	repo := repository.NewAttendanceRepository(rowstore.NewMemoryStore(), "attendance")
	svc := NewAttendanceService(repo, codec, nil, 0, nil, nil)

	// An attendee row whose opening meta row was lost from the sheet.
	require.NoError(t, repo.Append(context.Background(), models.AttendanceRow{
		RecordID:    "r-orphan",
		TeacherID:   "t-1",
		ClassName:   "CS101",
		RecordName:  "Week 1",
		StudentID:   "007",
		StudentName: "Alice",
		Timestamp:   "2026-03-01T09:00:00Z",
	}))

	groups, _, err := svc.List(context.Background(), "t-1", false)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Records, 1)

	record := groups[0].Records[0]
	assert.Equal(t, "r-orphan", record.RecordID)
	assert.Nil(t, record.CreatedAt)
	require.Len(t, record.Attendees, 1)
	assert.Equal(t, "007", record.Attendees[0].StudentID)

	// The surviving attendee row still blocks a re-mark; the missing meta
	// row is only noticed for genuinely new students.
	_, err = svc.Mark(context.Background(), "r-orphan", "t-1", mustEncode(t, codec, "007", "Alice"))
	require.Error(t, err)
	assert.Equal(t, "DUPLICATE_ATTENDANCE", appErrors.FromError(err).Code)

	_, err = svc.Mark(context.Background(), "r-orphan", "t-1", mustEncode(t, codec, "008", "Bob"))
	require.Error(t, err)
	assert.Equal(t, "RECORD_NOT_FOUND", appErrors.FromError(err).Code)
}

func TestGetOrdersAttendeesByTimestamp(t *testing.T) {
	svc, codec := newTestLedger(t)

	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	record, err := svc.CreateRecord(context.Background(), "t-1", "CS101", "Week 1")
	require.NoError(t, err)

	_, err = svc.Mark(context.Background(), record.RecordID, "t-1", mustEncode(t, codec, "008", "Bob"))
	require.NoError(t, err)
	_, err = svc.Mark(context.Background(), record.RecordID, "t-1", mustEncode(t, codec, "007", "Alice"))
	require.NoError(t, err)

	fetched, err := svc.Get(context.Background(), record.RecordID, "t-1", false)
	require.NoError(t, err)
	require.Len(t, fetched.Attendees, 2)
	assert.Equal(t, "008", fetched.Attendees[0].StudentID)
	assert.Equal(t, "007", fetched.Attendees[1].StudentID)
}

func TestGetAuthorization(t *testing.T) {
	svc, _ := newTestLedger(t)

	record, err := svc.CreateRecord(context.Background(), "t-1", "CS101", "Week 1")
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), record.RecordID, "t-2", false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	fetched, err := svc.Get(context.Background(), record.RecordID, "admin-1", true)
	require.NoError(t, err)
	assert.NotNil(t, fetched)
}

func TestGetMissingRecordReturnsNil(t *testing.T) {
	svc, _ := newTestLedger(t)

	fetched, err := svc.Get(context.Background(), "missing", "t-1", false)
	require.NoError(t, err)
	assert.Nil(t, fetched)
}

func TestScanSessionScenario(t *testing.T) {
	svc, codec := newTestLedger(t)

	record, err := svc.CreateRecord(context.Background(), "t-1", "FOP", "Lecture 3")
	require.NoError(t, err)

	alice := mustEncode(t, codec, "007", "Alice")
	bob := mustEncode(t, codec, "008", "Bob")

	_, err = svc.Mark(context.Background(), record.RecordID, "t-1", alice)
	require.NoError(t, err)
	_, err = svc.Mark(context.Background(), record.RecordID, "t-1", bob)
	require.NoError(t, err)
	_, err = svc.Mark(context.Background(), record.RecordID, "t-1", alice)
	require.Error(t, err)

	fetched, err := svc.Get(context.Background(), record.RecordID, "t-1", false)
	require.NoError(t, err)
	require.Len(t, fetched.Attendees, 2)
	assert.Equal(t, "007", fetched.Attendees[0].StudentID)
	assert.Equal(t, "008", fetched.Attendees[1].StudentID)
}
