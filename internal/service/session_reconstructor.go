package service

import (
	"context"
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/timegrid-hq/timegrid-api/internal/models"
	appErrors "github.com/timegrid-hq/timegrid-api/pkg/errors"
)

type attendanceDayReader interface {
	FindByEmployeeAndDay(ctx context.Context, tenantID, employeeID string, day time.Time) ([]models.AttendanceRecord, error)
}

// SessionReconstructor rebuilds a day's work sessions from raw punches.
type SessionReconstructor struct {
	records attendanceDayReader
	logger  *zap.Logger
	now     func() time.Time
}

// NewSessionReconstructor builds a reconstructor.
func NewSessionReconstructor(records attendanceDayReader, logger *zap.Logger) *SessionReconstructor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionReconstructor{records: records, logger: logger, now: time.Now}
}

// SessionsForDay loads and reconstructs the employee's punches for the day.
func (s *SessionReconstructor) SessionsForDay(ctx context.Context, tenantID, employeeID string, day time.Time) (*models.DaySessions, error) {
	return s.SessionsForDayExcluding(ctx, tenantID, employeeID, day, "")
}

// SessionsForDayExcluding reconstructs the day as if the identified record
// did not exist. A punch being corrected must not pair against its own stale
// row.
func (s *SessionReconstructor) SessionsForDayExcluding(ctx context.Context, tenantID, employeeID string, day time.Time, excludeID string) (*models.DaySessions, error) {
	records, err := s.records.FindByEmployeeAndDay(ctx, tenantID, employeeID, models.DateOnly(day))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "load day records")
	}
	return s.Reconstruct(withoutRecord(records, excludeID)), nil
}

// Reconstruct pairs each IN with the nearest subsequent OUT that has no
// intervening OUT; an IN left unmatched is an open session. Break pairs are
// matched strictly by alternating order, an unmatched BREAK_START contributes
// no break time.
func (s *SessionReconstructor) Reconstruct(records []models.AttendanceRecord) *models.DaySessions {
	sorted := make([]models.AttendanceRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	out := &models.DaySessions{Records: sorted}

	var openIn *models.AttendanceRecord
	for i := range sorted {
		rec := &sorted[i]
		switch rec.Type {
		case models.PunchIn:
			if openIn != nil {
				out.OpenSessions = append(out.OpenSessions, models.OpenSession{
					In:        openIn,
					HoursOpen: s.now().Sub(openIn.Timestamp).Hours(),
				})
			}
			openIn = rec
		case models.PunchOut:
			if openIn != nil {
				out.Sessions = append(out.Sessions, models.Session{In: openIn, Out: rec})
				openIn = nil
			}
		}
	}
	if openIn != nil {
		out.OpenSessions = append(out.OpenSessions, models.OpenSession{
			In:        openIn,
			HoursOpen: s.now().Sub(openIn.Timestamp).Hours(),
		})
	}

	out.BreakMinutes = breakMinutes(sorted)
	return out
}

func withoutRecord(records []models.AttendanceRecord, id string) []models.AttendanceRecord {
	if id == "" {
		return records
	}
	filtered := make([]models.AttendanceRecord, 0, len(records))
	for i := range records {
		if records[i].ID == id {
			continue
		}
		filtered = append(filtered, records[i])
	}
	return filtered
}

// breakMinutes sums strictly alternating BREAK_START/BREAK_END pairs.
func breakMinutes(records []models.AttendanceRecord) int {
	var total time.Duration
	var start *time.Time
	for i := range records {
		switch records[i].Type {
		case models.PunchBreakStart:
			ts := records[i].Timestamp
			start = &ts
		case models.PunchBreakEnd:
			if start != nil {
				total += records[i].Timestamp.Sub(*start)
				start = nil
			}
		}
	}
	return int(total.Minutes())
}
