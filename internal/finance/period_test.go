package finance

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolveRangeNamedPeriods(t *testing.T) {
	// A Friday mid-month, with time-of-day noise to prove truncation.
	asOf := time.Date(2024, time.March, 15, 17, 42, 9, 0, time.UTC)

	cases := []struct {
		key   string
		start time.Time
		end   time.Time
	}{
		{PeriodSevenDays, date(2024, time.March, 8), date(2024, time.March, 15)},
		{PeriodThisWeek, date(2024, time.March, 11), date(2024, time.March, 15)},
		{PeriodThirtyDays, date(2024, time.February, 14), date(2024, time.March, 15)},
		{PeriodThisMonth, date(2024, time.March, 1), date(2024, time.March, 15)},
		{PeriodThreeMonth, date(2023, time.December, 15), date(2024, time.March, 15)},
		{PeriodSixMonth, date(2023, time.September, 15), date(2024, time.March, 15)},
	}
	for _, tc := range cases {
		r := ResolveRange(PeriodQuery{Key: tc.key}, asOf)
		if !r.Start.Equal(tc.start) || !r.End.Equal(tc.end) {
			t.Fatalf("%s: got [%s, %s] want [%s, %s]", tc.key, r.Start, r.End, tc.start, tc.end)
		}
	}
}

func TestResolveRangeCustom(t *testing.T) {
	asOf := date(2024, time.March, 15)
	from := time.Date(2024, time.January, 5, 13, 0, 0, 0, time.UTC)
	to := time.Date(2024, time.January, 20, 2, 0, 0, 0, time.UTC)

	r := ResolveRange(PeriodQuery{Key: PeriodCustom, From: &from, To: &to}, asOf)
	if !r.Start.Equal(date(2024, time.January, 5)) || !r.End.Equal(date(2024, time.January, 20)) {
		t.Fatalf("custom range = [%s, %s]", r.Start, r.End)
	}
}

func TestResolveRangeFallsBackToThirtyDays(t *testing.T) {
	asOf := date(2024, time.March, 15)
	want := Range{Start: date(2024, time.February, 14), End: date(2024, time.March, 15)}

	from := date(2024, time.January, 1)
	queries := []PeriodQuery{
		{Key: "yesterweek"},
		{Key: ""},
		{Key: PeriodCustom},
		{Key: PeriodCustom, From: &from},
		{Key: "2024-13"},
	}
	for _, q := range queries {
		if r := ResolveRange(q, asOf); r != want {
			t.Fatalf("query %+v resolved to [%s, %s]", q, r.Start, r.End)
		}
	}
}

func TestResolveRangeMonthCode(t *testing.T) {
	r := ResolveRange(PeriodQuery{Key: "2024-02"}, date(2024, time.June, 1))
	if !r.Start.Equal(date(2024, time.February, 1)) || !r.End.Equal(date(2024, time.February, 29)) {
		t.Fatalf("2024-02 resolved to [%s, %s]", r.Start, r.End)
	}
	if got := r.MonthCode(); got != "2024-02" {
		t.Fatalf("MonthCode() = %q", got)
	}
}

func TestMonthRangeRejectsBadCodes(t *testing.T) {
	for _, code := range []string{"2024", "03-2024", "2024-00", "latest"} {
		if _, err := MonthRange(code); err == nil {
			t.Fatalf("MonthRange(%q) accepted invalid code", code)
		}
	}
}

func TestRangeContainsIsInclusive(t *testing.T) {
	r := Range{Start: date(2024, time.March, 1), End: date(2024, time.March, 31)}

	if !r.Contains(time.Date(2024, time.March, 1, 0, 0, 1, 0, time.UTC)) {
		t.Fatal("start day should be inside")
	}
	if !r.Contains(time.Date(2024, time.March, 31, 23, 59, 59, 0, time.UTC)) {
		t.Fatal("end day should be inside")
	}
	if r.Contains(date(2024, time.February, 29)) || r.Contains(date(2024, time.April, 1)) {
		t.Fatal("days outside the bounds should be excluded")
	}
}

func TestArchiveMonthsIncludesGapMonths(t *testing.T) {
	// Earliest event in January, none in February, asOf mid-March: the empty
	// month still gets a slot.
	got := ArchiveMonths(date(2024, time.January, 20), date(2024, time.March, 15))
	want := []string{"2024-03", "2024-02", "2024-01"}
	if len(got) != len(want) {
		t.Fatalf("ArchiveMonths() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ArchiveMonths() = %v, want %v", got, want)
		}
	}
}

func TestArchiveMonthsEmptyHistory(t *testing.T) {
	if got := ArchiveMonths(time.Time{}, date(2024, time.March, 15)); len(got) != 0 {
		t.Fatalf("expected no archive months, got %v", got)
	}
}

func TestArchiveMonthsSpansYearBoundary(t *testing.T) {
	got := ArchiveMonths(date(2023, time.November, 3), date(2024, time.January, 10))
	want := []string{"2024-01", "2023-12", "2023-11"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ArchiveMonths() = %v, want %v", got, want)
		}
	}
}
