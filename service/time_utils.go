package service

import (
	"time"
)

// PeriodStartAt returns the most recent reset boundary at or before now
func PeriodStartAt(now time.Time, resetHour int) time.Time {
	now = now.UTC()
	periodStart := time.Date(now.Year(), now.Month(), now.Day(), resetHour, 0, 0, 0, time.UTC)

	// Before today's reset the period began yesterday
	if now.Before(periodStart) {
		periodStart = periodStart.AddDate(0, 0, -1)
	}

	return periodStart
}

// NextPeriodStartAt returns the first reset boundary strictly after now
func NextPeriodStartAt(now time.Time, resetHour int) time.Time {
	return PeriodStartAt(now, resetHour).AddDate(0, 0, 1)
}

// GetCurrentPeriodStart calculates when the current reward period started
func GetCurrentPeriodStart(resetHour int) time.Time {
	return PeriodStartAt(time.Now(), resetHour)
}
