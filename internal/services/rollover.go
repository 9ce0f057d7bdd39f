package services

import "time"

// RolloverChecker decides when the worker's periodic pass should
// materialize debt sheets for a newly started month. Pure; the worker
// supplies the clock and records completions.
type RolloverChecker struct{}

// IsDue reports whether a rollover pass is due: none has completed yet,
// or the clock has entered a calendar month the last completed pass did
// not cover.
func (RolloverChecker) IsDue(lastCompleted, now time.Time) bool {
	if lastCompleted.IsZero() {
		return true
	}
	return lastCompleted.Year() != now.Year() || lastCompleted.Month() != now.Month()
}
