// Package routine decides whether a routine task is due on a calendar
// date under daily, weekly, and monthly recurrence rules.
//
// All arithmetic works on calendar fields (year, month, day) normalized
// to UTC midnight, never on raw timestamps, so evaluation cannot drift a
// day around timezone or DST transitions.
package routine

import (
	"log/slog"
	"time"

	"github.com/riordanpawley/taskband/internal/domain"
)

// DateLayout is the calendar-date form used throughout the tracker.
const DateLayout = "2006-01-02"

// Engine evaluates routine recurrence rules. Stateless per call.
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates a recurrence engine with the given logger
func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{logger: logger}
}

// IsDue reports whether the rule fires on dateStr ("YYYY-MM-DD").
//
// Malformed rules or dates are configuration errors surfaced by upstream
// validation; here they evaluate to not-due rather than failing the
// whole day view.
func (e *Engine) IsDue(dateStr string, rule domain.RoutineRule) bool {
	if !rule.Enabled {
		return false
	}

	// A manual move fully overrides the rule: due on exactly the pinned
	// date, dormant everywhere else.
	if rule.MovedTargetDate != "" {
		return dateStr == rule.MovedTargetDate
	}

	target, ok := ParseDate(dateStr)
	if !ok {
		e.logger.Debug("unparseable date in recurrence check", "date", dateStr)
		return false
	}
	start, ok := ParseDate(rule.Start)
	if !ok {
		e.logger.Debug("unparseable rule start", "start", rule.Start)
		return false
	}
	if target.Before(start) {
		return false
	}

	interval := rule.Interval
	if interval < 1 {
		interval = 1
	}

	switch rule.Type {
	case domain.RoutineDaily:
		return daysBetween(start, target)%interval == 0

	case domain.RoutineWeekly:
		if rule.Weekday < 0 || rule.Weekday > 6 {
			return false
		}
		if int(target.Weekday()) != rule.Weekday {
			return false
		}
		weeks := daysBetween(start, target) / 7
		return weeks%interval == 0

	case domain.RoutineMonthly:
		if rule.Weekday < 0 || rule.Weekday > 6 || rule.Week == 0 {
			return false
		}
		months := monthsBetween(start, target)
		if months%interval != 0 {
			return false
		}
		due, ok := NthWeekdayOfMonth(target.Year(), target.Month(), time.Weekday(rule.Weekday), rule.Week)
		if !ok {
			return false
		}
		return target.Equal(due)

	default:
		return false
	}
}

// NthWeekdayOfMonth resolves "the n-th <weekday> of <year>/<month>" to a
// concrete date, or reports false when that ordinal occurrence does not
// exist (a fifth Wednesday in a four-Wednesday month). OrdinalLast
// selects the final occurrence.
func NthWeekdayOfMonth(year int, month time.Month, weekday time.Weekday, week domain.MonthOrdinal) (time.Time, bool) {
	if week == domain.OrdinalLast {
		last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
		offset := (int(last.Weekday()) - int(weekday) + 7) % 7
		return last.AddDate(0, 0, -offset), true
	}
	if week < 1 || week > 5 {
		return time.Time{}, false
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(weekday) - int(first.Weekday()) + 7) % 7
	day := first.AddDate(0, 0, offset+7*(int(week)-1))
	if day.Month() != month {
		return time.Time{}, false
	}
	return day, true
}

// ParseDate parses a "YYYY-MM-DD" string to UTC midnight.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// daysBetween counts whole days from a to b. Both are UTC midnights, so
// the division is exact and DST-proof.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// monthsBetween counts whole calendar months from a to b by field
// arithmetic, ignoring the day-of-month.
func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}
