// Package services runs the recurring transaction schedule on top of the ledger.
//
// Dueness is decided per repetition by a DuenessChecker strategy; all
// comparisons are on UTC calendar days.
package services

import (
	"fmt"
	"time"

	"fintrack/internal/core"
)

// DuenessChecker decides whether a recurring transaction should fire at now.
type DuenessChecker interface {
	// IsDue reports whether the template is due given its last execution
	// (zero when it never ran) and its start date.
	IsDue(lastExecution, now, startDate time.Time) bool
}

// DailyChecker fires once per calendar day.
type DailyChecker struct{}

func (DailyChecker) IsDue(lastExecution, now, _ time.Time) bool {
	if lastExecution.IsZero() {
		return true
	}
	return day(lastExecution).Before(day(now))
}

// WeeklyChecker fires when at least 7 calendar days passed since the last run.
type WeeklyChecker struct{}

func (WeeklyChecker) IsDue(lastExecution, now, _ time.Time) bool {
	if lastExecution.IsZero() {
		return true
	}
	return !day(now).Before(day(lastExecution).AddDate(0, 0, 7))
}

// MonthlyChecker fires once a month, on or after the start date's day of month.
// Days past the end of a short month clamp to its last day.
type MonthlyChecker struct{}

func (MonthlyChecker) IsDue(lastExecution, now, startDate time.Time) bool {
	if lastExecution.IsZero() {
		return true
	}
	last, now := lastExecution.UTC(), now.UTC()
	if last.Year() == now.Year() && last.Month() == now.Month() {
		return false
	}
	return now.Day() >= clampDay(now.Year(), now.Month(), startDate.UTC().Day())
}

// YearlyChecker fires once a year, on or after the start date's month and day.
type YearlyChecker struct{}

func (YearlyChecker) IsDue(lastExecution, now, startDate time.Time) bool {
	if lastExecution.IsZero() {
		return true
	}
	last, now, start := lastExecution.UTC(), now.UTC(), startDate.UTC()
	if last.Year() == now.Year() {
		return false
	}
	switch {
	case now.Month() < start.Month():
		return false
	case now.Month() == start.Month():
		return now.Day() >= clampDay(now.Year(), now.Month(), start.Day())
	default:
		return true
	}
}

var duenessStrategies = map[core.Repetition]DuenessChecker{
	core.RepeatDaily:   DailyChecker{},
	core.RepeatWeekly:  WeeklyChecker{},
	core.RepeatMonthly: MonthlyChecker{},
	core.RepeatYearly:  YearlyChecker{},
}

// GetDuenessChecker returns the checker for a repetition.
func GetDuenessChecker(every core.Repetition) (DuenessChecker, error) {
	checker, ok := duenessStrategies[every]
	if !ok {
		return nil, fmt.Errorf("unknown repetition type: %s", every)
	}
	return checker, nil
}

func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func clampDay(year int, month time.Month, target int) int {
	return min(target, core.LastDayOfMonth(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)))
}
