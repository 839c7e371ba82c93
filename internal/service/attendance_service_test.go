package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/timegrid-hq/timegrid-api/internal/dto"
	"github.com/timegrid-hq/timegrid-api/internal/models"
	appErrors "github.com/timegrid-hq/timegrid-api/pkg/errors"
)

type stubPunchStore struct {
	created []models.AttendanceRecord
	records map[string]*models.AttendanceRecord
	deleted []string
}

func (s *stubPunchStore) Create(_ context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	s.created = append(s.created, *record)
	clone := *record
	return &clone, nil
}

func (s *stubPunchStore) FindByID(_ context.Context, _, id string) (*models.AttendanceRecord, error) {
	rec, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	clone := *rec
	return &clone, nil
}

func (s *stubPunchStore) List(_ context.Context, _ models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	return s.created, len(s.created), nil
}

func (s *stubPunchStore) Delete(_ context.Context, _, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type stubAttemptLog struct {
	attempts []models.PunchAttempt
}

func (s *stubAttemptLog) Log(_ context.Context, attempt models.PunchAttempt) error {
	s.attempts = append(s.attempts, attempt)
	return nil
}

type stubDeviceDirectory struct {
	device *models.Device
}

func (s *stubDeviceDirectory) FindBySerial(_ context.Context, serialNumber string) (*models.Device, error) {
	if s.device != nil && s.device.SerialNumber == serialNumber {
		return s.device, nil
	}
	return nil, nil
}

type stubEmployeeDirectory struct {
	employee *models.Employee
}

func (s *stubEmployeeDirectory) FindByID(_ context.Context, _, _ string) (*models.Employee, error) {
	return s.employee, nil
}

func (s *stubEmployeeDirectory) FindByMatricule(_ context.Context, _, matricule string) (*models.Employee, error) {
	if s.employee != nil && s.employee.Matricule == matricule {
		return s.employee, nil
	}
	return nil, nil
}

type stubAnomalyNotifier struct {
	notified []models.AttendanceRecord
}

func (s *stubAnomalyNotifier) NotifyAnomaly(record models.AttendanceRecord) {
	s.notified = append(s.notified, record)
}

type attendanceFixture struct {
	*classifierFixture
	store     *stubPunchStore
	attempts  *stubAttemptLog
	devices   *stubDeviceDirectory
	directory *stubEmployeeDirectory
	notifier  *stubAnomalyNotifier
	svc       *AttendanceService
}

func newAttendanceFixture(now time.Time) *attendanceFixture {
	base := newClassifierFixture(now)
	calc := NewMetricsCalculator(base.employees, base.holidays, base.policies, base.resolver, base.sessions, zap.NewNop())

	f := &attendanceFixture{
		classifierFixture: base,
		store:             &stubPunchStore{records: map[string]*models.AttendanceRecord{}},
		attempts:          &stubAttemptLog{},
		devices:           &stubDeviceDirectory{},
		directory:         &stubEmployeeDirectory{employee: &models.Employee{ID: "emp-1", TenantID: "tenant-1", Matricule: "M-100", IsActive: true}},
		notifier:          &stubAnomalyNotifier{},
	}
	f.svc = NewAttendanceService(f.store, f.attempts, f.devices, f.directory,
		base.leaves, base.holidays,
		base.classifier, calc, f.notifier, zap.NewNop())
	return f
}

func TestCreatePunchCleanIngestion(t *testing.T) {
	f := newAttendanceFixture(monday.Add(10 * time.Hour))
	f.publish(monday, dayShift())

	record, err := f.svc.CreatePunch(context.Background(), "tenant-1", dto.CreatePunchRequest{
		EmployeeID: "emp-1",
		Timestamp:  monday.Add(9*time.Hour + 5*time.Minute),
		Type:       "IN",
		Method:     "DEVICE",
	})
	require.NoError(t, err)
	assert.False(t, record.HasAnomaly)
	assert.NotEmpty(t, record.ID)
	require.NotNil(t, record.LateMinutes)
	assert.Equal(t, 0, *record.LateMinutes)
	assert.Empty(t, f.notifier.notified)
	require.Len(t, f.attempts.attempts, 1)
	assert.True(t, f.attempts.attempts[0].Success)
}

func TestCreatePunchResolvesOncePerRequest(t *testing.T) {
	f := newAttendanceFixture(monday.Add(10 * time.Hour))
	f.publish(monday, dayShift())

	_, err := f.svc.CreatePunch(context.Background(), "tenant-1", dto.CreatePunchRequest{
		EmployeeID: "emp-1",
		Timestamp:  monday.Add(9*time.Hour + 5*time.Minute),
		Type:       "IN",
		Method:     "DEVICE",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.policies.calls)
	assert.Equal(t, 1, f.schedules.publishedCalls)
}

func TestCreatePunchAnomalyNotifies(t *testing.T) {
	f := newAttendanceFixture(monday.Add(10 * time.Hour))
	f.publish(monday, dayShift())

	record, err := f.svc.CreatePunch(context.Background(), "tenant-1", dto.CreatePunchRequest{
		EmployeeID: "emp-1",
		Timestamp:  monday.Add(9*time.Hour + 25*time.Minute),
		Type:       "IN",
		Method:     "DEVICE",
	})
	require.NoError(t, err)
	assert.True(t, record.HasAnomaly)
	require.NotNil(t, record.AnomalyType)
	assert.Equal(t, models.AnomalyLate, *record.AnomalyType)
	require.NotNil(t, record.LateMinutes)
	assert.Equal(t, 15, *record.LateMinutes)
	assert.Len(t, f.notifier.notified, 1)
}

func TestCreatePunchUnknownEmployee(t *testing.T) {
	f := newAttendanceFixture(monday.Add(10 * time.Hour))
	f.directory.employee = nil

	_, err := f.svc.CreatePunch(context.Background(), "tenant-1", dto.CreatePunchRequest{
		EmployeeID: "ghost",
		Timestamp:  monday.Add(9 * time.Hour),
		Type:       "IN",
		Method:     "DEVICE",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	require.Len(t, f.attempts.attempts, 1)
	assert.False(t, f.attempts.attempts[0].Success)
	require.NotNil(t, f.attempts.attempts[0].FailCode)
	assert.Equal(t, appErrors.ErrNotFound.Code, *f.attempts.attempts[0].FailCode)
}

func TestCreatePunchInvalidPayload(t *testing.T) {
	f := newAttendanceFixture(monday.Add(10 * time.Hour))

	_, err := f.svc.CreatePunch(context.Background(), "tenant-1", dto.CreatePunchRequest{
		EmployeeID: "emp-1",
		Timestamp:  monday.Add(9 * time.Hour),
		Type:       "IN",
		Method:     "CARRIER_PIGEON",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreatePunchBreakDisabledForTenant(t *testing.T) {
	f := newAttendanceFixture(monday.Add(13 * time.Hour))
	f.publish(monday, dayShift())

	_, err := f.svc.CreatePunch(context.Background(), "tenant-1", dto.CreatePunchRequest{
		EmployeeID: "emp-1",
		Timestamp:  monday.Add(12 * time.Hour),
		Type:       "BREAK_START",
		Method:     "DEVICE",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreatePunchScheduleRequiredOnNonWorkingDay(t *testing.T) {
	sunday := monday.AddDate(0, 0, -1)
	f := newAttendanceFixture(sunday.Add(15 * time.Hour))
	policy := models.DefaultTenantPolicy("tenant-1")
	policy.RequireScheduleForPunch = true
	f.policies.policy = policy

	_, err := f.svc.CreatePunch(context.Background(), "tenant-1", dto.CreatePunchRequest{
		EmployeeID: "emp-1",
		Timestamp:  sunday.Add(10 * time.Hour),
		Type:       "IN",
		Method:     "DEVICE",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestHandleWebhookIngestsDevicePunch(t *testing.T) {
	f := newAttendanceFixture(monday.Add(10 * time.Hour))
	f.publish(monday, dayShift())
	siteID := "site-1"
	f.devices.device = &models.Device{ID: "dev-1", TenantID: "tenant-1", SerialNumber: "SN-1", SiteID: &siteID, IsActive: true}

	record, err := f.svc.HandleWebhook(context.Background(), dto.WebhookPunchRequest{
		SerialNumber: "SN-1",
		Matricule:    "M-100",
		Timestamp:    monday.Add(9*time.Hour + 5*time.Minute),
		Type:         "IN",
	})
	require.NoError(t, err)
	assert.Equal(t, "emp-1", record.EmployeeID)
	assert.Equal(t, models.MethodDevice, record.Method)
	require.NotNil(t, record.DeviceID)
	assert.Equal(t, "dev-1", *record.DeviceID)
	require.NotNil(t, record.SiteID)
	assert.Equal(t, "site-1", *record.SiteID)
}

func TestHandleWebhookUnknownDevice(t *testing.T) {
	f := newAttendanceFixture(monday.Add(10 * time.Hour))

	_, err := f.svc.HandleWebhook(context.Background(), dto.WebhookPunchRequest{
		SerialNumber: "SN-unknown",
		Matricule:    "M-100",
		Timestamp:    monday.Add(9 * time.Hour),
		Type:         "IN",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestHandleWebhookUnknownMatriculeLogsAttempt(t *testing.T) {
	f := newAttendanceFixture(monday.Add(10 * time.Hour))
	f.devices.device = &models.Device{ID: "dev-1", TenantID: "tenant-1", SerialNumber: "SN-1", IsActive: true}

	_, err := f.svc.HandleWebhook(context.Background(), dto.WebhookPunchRequest{
		SerialNumber: "SN-1",
		Matricule:    "M-999",
		Timestamp:    monday.Add(9 * time.Hour),
		Type:         "IN",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	require.Len(t, f.attempts.attempts, 1)
	assert.False(t, f.attempts.attempts[0].Success)
}

func TestDeleteOnlyManualPunches(t *testing.T) {
	f := newAttendanceFixture(monday.Add(10 * time.Hour))
	f.store.records["rec-device"] = &models.AttendanceRecord{ID: "rec-device", Method: models.MethodDevice}
	f.store.records["rec-manual"] = &models.AttendanceRecord{ID: "rec-manual", Method: models.MethodManual}

	err := f.svc.Delete(context.Background(), "tenant-1", "rec-device")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	err = f.svc.Delete(context.Background(), "tenant-1", "rec-manual")
	require.NoError(t, err)
	assert.Equal(t, []string{"rec-manual"}, f.store.deleted)
}

func TestListRejectsInvalidTypeFilter(t *testing.T) {
	f := newAttendanceFixture(monday.Add(10 * time.Hour))

	_, _, err := f.svc.List(context.Background(), "tenant-1", dto.ListAttendanceQuery{Type: "BOGUS"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
