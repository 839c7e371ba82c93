package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timegrid-hq/timegrid-api/internal/models"
)

func TestAttendanceFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery("SELECT .+ FROM attendance_records WHERE tenant_id").
		WithArgs("tenant-1", "missing").
		WillReturnError(sql.ErrNoRows)

	record, err := repo.FindByID(context.Background(), "tenant-1", "missing")
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceDeleteMissingRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec("DELETE FROM attendance_records").
		WithArgs("tenant-1", "rec-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "tenant-1", "rec-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceCountAnomaliesSince(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	since := time.Date(2025, 2, 8, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM attendance_records`).
		WithArgs("tenant-1", "emp-1", models.AnomalyDoubleIn, since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.CountAnomaliesSince(context.Background(), "tenant-1", "emp-1", models.AnomalyDoubleIn, since)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceAverageClockMinutesNoHistory(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	since := time.Date(2025, 2, 8, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT AVG").
		WithArgs("tenant-1", "emp-1", models.PunchIn, since).
		WillReturnRows(sqlmock.NewRows([]string{"avg"}).AddRow(nil))

	avg, err := repo.AverageClockMinutes(context.Background(), "tenant-1", "emp-1", models.PunchIn, since)
	require.NoError(t, err)
	assert.Nil(t, avg)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceAverageClockMinutes(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	since := time.Date(2025, 2, 8, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT AVG").
		WithArgs("tenant-1", "emp-1", models.PunchIn, since).
		WillReturnRows(sqlmock.NewRows([]string{"avg"}).AddRow(545.5))

	avg, err := repo.AverageClockMinutes(context.Background(), "tenant-1", "emp-1", models.PunchIn, since)
	require.NoError(t, err)
	require.NotNil(t, avg)
	assert.Equal(t, 545, *avg)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceMarkAnomaly(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec("UPDATE attendance_records").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkAnomaly(context.Background(), "tenant-1", "rec-1", models.AnomalyMissingOut, "session left open")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
