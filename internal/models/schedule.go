package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ScheduleStatus represents the publication state of a schedule.
type ScheduleStatus string

const (
	SchedulePublished ScheduleStatus = "PUBLISHED"
	ScheduleDraft     ScheduleStatus = "DRAFT"
	ScheduleArchived  ScheduleStatus = "ARCHIVED"
)

// Shift is a named time template. Start and End use "HH:mm".
type Shift struct {
	ID            string    `db:"id" json:"id"`
	TenantID      string    `db:"tenant_id" json:"tenant_id"`
	Name          string    `db:"name" json:"name"`
	StartTime     string    `db:"start_time" json:"start_time"`
	EndTime       string    `db:"end_time" json:"end_time"`
	BreakDuration int       `db:"break_duration" json:"break_duration"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// ParseClock converts an "HH:mm" string into minutes since midnight.
func ParseClock(value string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock value %q", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid clock hour %q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid clock minute %q", value)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("clock value %q out of range", value)
	}
	return hour*60 + minute, nil
}

// StartMinutes returns the shift start as minutes since midnight, -1 when unparseable.
func (s Shift) StartMinutes() int {
	m, err := ParseClock(s.StartTime)
	if err != nil {
		return -1
	}
	return m
}

// EndMinutes returns the shift end as minutes since midnight, -1 when unparseable.
func (s Shift) EndMinutes() int {
	m, err := ParseClock(s.EndTime)
	if err != nil {
		return -1
	}
	return m
}

// IsNight is the single night-shift predicate used everywhere cross-midnight
// logic matters: start at or after 20:00, end at or before 08:00, or a
// start/end pair that wraps past midnight.
func (s Shift) IsNight() bool {
	start := s.StartMinutes()
	end := s.EndMinutes()
	if start < 0 || end < 0 {
		return false
	}
	return start >= 20*60 || end <= 8*60 || start > end
}

// Schedule assigns one shift to one employee on one calendar date.
type Schedule struct {
	ID              string         `db:"id" json:"id"`
	TenantID        string         `db:"tenant_id" json:"tenant_id"`
	EmployeeID      string         `db:"employee_id" json:"employee_id"`
	ShiftID         string         `db:"shift_id" json:"shift_id"`
	Date            time.Time      `db:"date" json:"date"`
	Status          ScheduleStatus `db:"status" json:"status"`
	CustomStartTime *string        `db:"custom_start_time" json:"custom_start_time,omitempty"`
	CustomEndTime   *string        `db:"custom_end_time" json:"custom_end_time,omitempty"`
	SuspendedByID   *string        `db:"suspended_by_id" json:"suspended_by_id,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`

	Shift *Shift `db:"-" json:"shift,omitempty"`
}

// ScheduleSource tells where a resolved schedule came from.
type ScheduleSource string

const (
	SourcePublishedSchedule ScheduleSource = "published"
	SourcePreviousNight     ScheduleSource = "previous-night"
	SourceDefaultShift      ScheduleSource = "default-shift"
)

// ResolvedSchedule is the authoritative work-time expectation for one
// employee-date, produced once per request and passed down the pipeline.
type ResolvedSchedule struct {
	Source          ScheduleSource
	ScheduleID      string
	Status          ScheduleStatus
	Date            time.Time
	Shift           Shift
	CustomStartTime *string
	CustomEndTime   *string
}

// Virtual reports whether the schedule was synthesized from the default shift.
func (r ResolvedSchedule) Virtual() bool {
	return r.Source == SourceDefaultShift
}

// startClock returns the effective start clock, custom override first.
func (r ResolvedSchedule) startClock() string {
	if r.CustomStartTime != nil && *r.CustomStartTime != "" {
		return *r.CustomStartTime
	}
	return r.Shift.StartTime
}

// endClock returns the effective end clock, custom override first.
func (r ResolvedSchedule) endClock() string {
	if r.CustomEndTime != nil && *r.CustomEndTime != "" {
		return *r.CustomEndTime
	}
	return r.Shift.EndTime
}

// ExpectedStart anchors the effective start clock onto the given date (UTC).
func (r ResolvedSchedule) ExpectedStart(date time.Time) time.Time {
	return clockOn(date, r.startClock())
}

// ExpectedEnd anchors the effective end clock onto the given date, rolling
// forward one day when the window wraps past midnight.
func (r ResolvedSchedule) ExpectedEnd(date time.Time) time.Time {
	end := clockOn(date, r.endClock())
	startM, errS := ParseClock(r.startClock())
	endM, errE := ParseClock(r.endClock())
	if errS == nil && errE == nil && startM > endM {
		end = end.Add(24 * time.Hour)
	}
	return end
}

// PlannedMinutes is the planned window length minus the planned break.
func (r ResolvedSchedule) PlannedMinutes(plannedBreak int) int {
	startM, errS := ParseClock(r.startClock())
	endM, errE := ParseClock(r.endClock())
	if errS != nil || errE != nil {
		return 0
	}
	planned := endM - startM
	if planned < 0 {
		planned += 24 * 60
	}
	planned -= plannedBreak
	if planned < 0 {
		planned = 0
	}
	return planned
}

func clockOn(date time.Time, clock string) time.Time {
	minutes, err := ParseClock(clock)
	if err != nil {
		minutes = 0
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return day.Add(time.Duration(minutes) * time.Minute)
}

// DateOnly normalizes a timestamp to UTC midnight of its calendar day.
func DateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
