package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/timegrid-hq/timegrid-api/internal/models"
)

func newReconstructor(now time.Time) *SessionReconstructor {
	s := NewSessionReconstructor(&stubAttendanceRepo{}, zap.NewNop())
	s.now = func() time.Time { return now }
	return s
}

func punch(id string, ts time.Time, kind models.PunchType) models.AttendanceRecord {
	return models.AttendanceRecord{ID: id, Timestamp: ts, Type: kind}
}

func TestReconstructPairsSessions(t *testing.T) {
	s := newReconstructor(monday.Add(18 * time.Hour))
	day := s.Reconstruct([]models.AttendanceRecord{
		punch("a", monday.Add(9*time.Hour), models.PunchIn),
		punch("b", monday.Add(12*time.Hour), models.PunchOut),
		punch("c", monday.Add(13*time.Hour), models.PunchIn),
		punch("d", monday.Add(17*time.Hour), models.PunchOut),
	})

	require.Len(t, day.Sessions, 2)
	assert.Equal(t, "a", day.Sessions[0].In.ID)
	assert.Equal(t, "b", day.Sessions[0].Out.ID)
	assert.Equal(t, "c", day.Sessions[1].In.ID)
	assert.Equal(t, "d", day.Sessions[1].Out.ID)
	assert.Empty(t, day.OpenSessions)
}

func TestReconstructOpenSessions(t *testing.T) {
	s := newReconstructor(monday.Add(14 * time.Hour))
	day := s.Reconstruct([]models.AttendanceRecord{
		punch("a", monday.Add(9*time.Hour), models.PunchIn),
		punch("b", monday.Add(11*time.Hour), models.PunchIn),
	})

	assert.Empty(t, day.Sessions)
	require.Len(t, day.OpenSessions, 2)
	assert.Equal(t, "a", day.OpenSessions[0].In.ID)
	assert.InDelta(t, 5.0, day.OpenSessions[0].HoursOpen, 0.01)
	assert.Equal(t, "b", day.OpenSessions[1].In.ID)
	assert.InDelta(t, 3.0, day.OpenSessions[1].HoursOpen, 0.01)
}

func TestReconstructSortsInput(t *testing.T) {
	s := newReconstructor(monday.Add(18 * time.Hour))
	day := s.Reconstruct([]models.AttendanceRecord{
		punch("b", monday.Add(17*time.Hour), models.PunchOut),
		punch("a", monday.Add(9*time.Hour), models.PunchIn),
	})

	require.Len(t, day.Sessions, 1)
	assert.Equal(t, "a", day.Sessions[0].In.ID)
	assert.Equal(t, "b", day.Sessions[0].Out.ID)
	assert.Equal(t, "a", day.Records[0].ID)
}

func TestReconstructBreakMinutes(t *testing.T) {
	s := newReconstructor(monday.Add(18 * time.Hour))
	day := s.Reconstruct([]models.AttendanceRecord{
		punch("a", monday.Add(9*time.Hour), models.PunchIn),
		punch("b", monday.Add(12*time.Hour), models.PunchBreakStart),
		punch("c", monday.Add(12*time.Hour+45*time.Minute), models.PunchBreakEnd),
		punch("d", monday.Add(17*time.Hour), models.PunchOut),
	})

	assert.Equal(t, 45, day.BreakMinutes)
}

func TestReconstructUnmatchedBreakStartIgnored(t *testing.T) {
	s := newReconstructor(monday.Add(18 * time.Hour))
	day := s.Reconstruct([]models.AttendanceRecord{
		punch("a", monday.Add(9*time.Hour), models.PunchIn),
		punch("b", monday.Add(12*time.Hour), models.PunchBreakStart),
		punch("c", monday.Add(17*time.Hour), models.PunchOut),
	})

	assert.Equal(t, 0, day.BreakMinutes)
}
