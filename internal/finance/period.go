package finance

import (
	"fmt"
	"time"
)

// Period keys accepted by ResolveRange alongside explicit YYYY-MM codes.
const (
	PeriodSevenDays  = "7days"
	PeriodThisWeek   = "thisWeek"
	PeriodThirtyDays = "30days"
	PeriodThisMonth  = "thisMonth"
	PeriodThreeMonth = "3months"
	PeriodSixMonth   = "6months"
	PeriodCustom     = "custom"
)

const monthCodeLayout = "2006-01"

// Range is an inclusive date range. Both bounds are truncated to midnight
// UTC; membership is decided at day granularity.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether the given instant falls on a day inside the range.
func (r Range) Contains(t time.Time) bool {
	day := truncateDay(t)
	return !day.Before(r.Start) && !day.After(r.End)
}

// MonthCode renders the range's starting month as YYYY-MM. Used for
// archive filenames and cache keys of monthly ranges.
func (r Range) MonthCode() string {
	return r.Start.Format(monthCodeLayout)
}

// PeriodQuery carries a requested reporting window. Key is one of the named
// period constants or an explicit YYYY-MM code; From/To are only consulted
// for the custom key.
type PeriodQuery struct {
	Key  string
	From *time.Time
	To   *time.Time
}

// ResolveRange computes the date range for a period query relative to the
// asOf instant. Unknown keys and custom queries missing either bound fall
// back to the trailing 30-day window: a report must still render, so the
// resolver degrades instead of failing.
func ResolveRange(q PeriodQuery, asOf time.Time) Range {
	today := truncateDay(asOf)
	switch q.Key {
	case PeriodSevenDays:
		return Range{Start: today.AddDate(0, 0, -7), End: today}
	case PeriodThisWeek:
		return Range{Start: startOfWeek(today), End: today}
	case PeriodThirtyDays, "":
		return Range{Start: today.AddDate(0, 0, -30), End: today}
	case PeriodThisMonth:
		return Range{Start: startOfMonth(today), End: today}
	case PeriodThreeMonth:
		return Range{Start: today.AddDate(0, -3, 0), End: today}
	case PeriodSixMonth:
		return Range{Start: today.AddDate(0, -6, 0), End: today}
	case PeriodCustom:
		if q.From == nil || q.To == nil {
			return Range{Start: today.AddDate(0, 0, -30), End: today}
		}
		return Range{Start: truncateDay(*q.From), End: truncateDay(*q.To)}
	default:
		if r, err := MonthRange(q.Key); err == nil {
			return r
		}
		return Range{Start: today.AddDate(0, 0, -30), End: today}
	}
}

// MonthRange returns the full calendar month for a YYYY-MM code.
func MonthRange(code string) (Range, error) {
	first, err := time.ParseInLocation(monthCodeLayout, code, time.UTC)
	if err != nil {
		return Range{}, fmt.Errorf("finance: invalid month code %q: %w", code, err)
	}
	return Range{Start: first, End: first.AddDate(0, 1, -1)}, nil
}

// ArchiveMonths enumerates every YYYY-MM code between the earliest recorded
// event and asOf, most recent first. Months without events inside the span
// are included so the archive has no gaps. A zero earliest date means no
// events exist and yields an empty list.
func ArchiveMonths(earliest, asOf time.Time) []string {
	if earliest.IsZero() {
		return nil
	}
	first := startOfMonth(truncateDay(earliest))
	last := startOfMonth(truncateDay(asOf))
	if last.Before(first) {
		return nil
	}
	var codes []string
	for cursor := last; !cursor.Before(first); cursor = cursor.AddDate(0, -1, 0) {
		codes = append(codes, cursor.Format(monthCodeLayout))
	}
	return codes
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// startOfWeek returns the Monday on or before the given day.
func startOfWeek(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
