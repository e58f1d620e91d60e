package matchmaking

import "time"

// weekCutoverHour is the Monday-morning grace window. A user opening the app
// on Monday before this hour still belongs to the previous week, so an
// unresolved Sunday-night drop does not vanish at midnight.
const weekCutoverHour = 8

// WeekStart computes the canonical week-start for a point in time: Monday
// 00:00 of the ISO week containing now, except that a Monday before 08:00
// local time still maps to the previous Monday. Pure and deterministic.
func WeekStart(now time.Time) time.Time {
	daysSinceMonday := (int(now.Weekday()) + 6) % 7

	monday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	monday = monday.AddDate(0, 0, -daysSinceMonday)

	if now.Weekday() == time.Monday && now.Hour() < weekCutoverHour {
		monday = monday.AddDate(0, 0, -7)
	}

	return monday
}
