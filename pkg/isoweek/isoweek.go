// Package isoweek implements ISO-8601 year-week arithmetic. Weeks start on
// Monday and week 1 is the week containing the first Thursday of the year.
package isoweek

import (
	"fmt"
	"time"
)

// Format returns the ISO-8601 week label for t, e.g. "2026-W10".
func Format(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// Monday returns midnight UTC on the Monday of the given week label. It is
// the inverse of Format up to the representative day.
func Monday(label string) (time.Time, error) {
	var year, week int
	if _, err := fmt.Sscanf(label, "%d-W%d", &year, &week); err != nil {
		return time.Time{}, fmt.Errorf("invalid week label %q: %w", label, err)
	}
	if week < 1 || week > 53 {
		return time.Time{}, fmt.Errorf("invalid week label %q: week out of range", label)
	}

	// January 4 is always in ISO week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	weekday := int(jan4.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	week1Monday := jan4.AddDate(0, 0, 1-weekday)
	monday := week1Monday.AddDate(0, 0, (week-1)*7)

	if gotYear, gotWeek := monday.ISOWeek(); gotYear != year || gotWeek != week {
		return time.Time{}, fmt.Errorf("invalid week label %q: year has no such week", label)
	}
	return monday, nil
}

// Previous returns the label of the week immediately before the given one.
func Previous(label string) (string, error) {
	monday, err := Monday(label)
	if err != nil {
		return "", err
	}
	return Format(monday.AddDate(0, 0, -7)), nil
}
