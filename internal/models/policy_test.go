package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsWorkingDay(t *testing.T) {
	policy := DefaultTenantPolicy("tenant-1")

	mondayTS := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	saturdayTS := time.Date(2025, 3, 8, 9, 0, 0, 0, time.UTC)
	sundayTS := time.Date(2025, 3, 9, 9, 0, 0, 0, time.UTC)

	assert.True(t, policy.IsWorkingDay(mondayTS))
	assert.True(t, policy.IsWorkingDay(saturdayTS))
	assert.False(t, policy.IsWorkingDay(sundayTS))
}

func TestIsWorkingDayCustomSet(t *testing.T) {
	policy := DefaultTenantPolicy("tenant-1")
	policy.WorkingDays = []int{1, 2, 3, 4, 5}

	fridayTS := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	saturdayTS := time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)

	assert.True(t, policy.IsWorkingDay(fridayTS))
	assert.False(t, policy.IsWorkingDay(saturdayTS))
}

func TestDefaultTenantPolicy(t *testing.T) {
	policy := DefaultTenantPolicy("tenant-1")

	assert.Equal(t, "tenant-1", policy.TenantID)
	assert.Equal(t, 10, policy.LateToleranceEntry)
	assert.Equal(t, 5, policy.EarlyToleranceExit)
	assert.InDelta(t, 2.0, policy.AbsencePartialThresholdHrs, 0.001)
	assert.InDelta(t, 11.0, policy.MinimumRestHours, 0.001)
}
