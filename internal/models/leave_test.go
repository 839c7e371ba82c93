package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLeaveStatusSuppressing(t *testing.T) {
	assert.True(t, LeaveApproved.Suppressing())
	assert.True(t, LeaveManagerApproved.Suppressing())
	assert.True(t, LeaveHRApproved.Suppressing())
	assert.False(t, LeavePending.Suppressing())
	assert.False(t, LeaveRejected.Suppressing())
}

func TestLeaveCovers(t *testing.T) {
	leave := Leave{
		StartDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
	}

	assert.True(t, leave.Covers(time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)))
	assert.True(t, leave.Covers(time.Date(2025, 3, 12, 23, 59, 0, 0, time.UTC)))
	assert.False(t, leave.Covers(time.Date(2025, 3, 9, 23, 0, 0, 0, time.UTC)))
	assert.False(t, leave.Covers(time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC)))
}

func TestPunchTypeValid(t *testing.T) {
	assert.True(t, PunchIn.Valid())
	assert.True(t, PunchMissionEnd.Valid())
	assert.False(t, PunchType("SOMETHING").Valid())
}

func TestPunchTypeIsBreak(t *testing.T) {
	assert.True(t, PunchBreakStart.IsBreak())
	assert.True(t, PunchBreakEnd.IsBreak())
	assert.False(t, PunchOut.IsBreak())
}
