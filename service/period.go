package service

import (
	"fmt"
	"regexp"
	"time"
)

var periodIDPattern = regexp.MustCompile(`^\d{4}-W\d{2}$`)

// PeriodIDFor returns the draw period id for a moment in time, formatted as
// YYYY-Wnn. Weeks are counted from January 1st with the year's opening
// partial week as week one, so ids sort lexicographically within a year.
func PeriodIDFor(t time.Time) string {
	t = t.UTC()
	startOfYear := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	days := int(t.Sub(startOfYear).Hours() / 24)
	week := (days + int(startOfYear.Weekday()) + 1 + 6) / 7
	if week < 1 {
		week = 1
	}
	return fmt.Sprintf("%d-W%02d", t.Year(), week)
}

// CurrentPeriodID returns the period id for the current moment
func CurrentPeriodID() string {
	return PeriodIDFor(time.Now())
}

// ValidPeriodID reports whether s looks like a YYYY-Wnn period id
func ValidPeriodID(s string) bool {
	return periodIDPattern.MatchString(s)
}
