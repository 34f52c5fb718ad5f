package finance

import (
	"testing"
	"time"
)

func TestMonthlyEquivalent(t *testing.T) {
	if got := MonthlyEquivalent(Plan{Price: 30, Interval: IntervalMonth}); got != 30 {
		t.Fatalf("monthly plan = %v", got)
	}
	if got := MonthlyEquivalent(Plan{Price: 120, Interval: IntervalYear}); got != 10 {
		t.Fatalf("yearly plan = %v", got)
	}
	// Unknown intervals bill monthly, not zero.
	if got := MonthlyEquivalent(Plan{Price: 45, Interval: "week"}); got != 45 {
		t.Fatalf("unknown interval = %v", got)
	}
}

func TestContributes(t *testing.T) {
	period := Range{Start: date(2024, time.March, 1), End: date(2024, time.March, 31)}
	cancelMid := date(2024, time.March, 10)
	cancelOnStart := period.Start
	cancelBefore := date(2024, time.February, 20)

	cases := []struct {
		name string
		sub  Subscription
		want bool
	}{
		{
			name: "active started before period",
			sub:  Subscription{Status: SubscriptionStatusActive, StartDate: date(2023, time.June, 1)},
			want: true,
		},
		{
			name: "active started on period end",
			sub:  Subscription{Status: SubscriptionStatusActive, StartDate: period.End},
			want: true,
		},
		{
			name: "active started after period",
			sub:  Subscription{Status: SubscriptionStatusActive, StartDate: date(2024, time.April, 1)},
			want: false,
		},
		{
			name: "canceled inside period",
			sub:  Subscription{Status: SubscriptionStatusCanceled, StartDate: date(2023, time.June, 1), CanceledAt: &cancelMid},
			want: true,
		},
		{
			name: "canceled exactly on period start",
			sub:  Subscription{Status: SubscriptionStatusCanceled, StartDate: date(2023, time.June, 1), CanceledAt: &cancelOnStart},
			want: false,
		},
		{
			name: "canceled before period",
			sub:  Subscription{Status: SubscriptionStatusCanceled, StartDate: date(2023, time.June, 1), CanceledAt: &cancelBefore},
			want: false,
		},
		{
			name: "canceled without timestamp",
			sub:  Subscription{Status: SubscriptionStatusCanceled, StartDate: date(2023, time.June, 1)},
			want: false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Contributes(tc.sub, period); got != tc.want {
				t.Fatalf("Contributes() = %v, want %v", got, tc.want)
			}
		})
	}
}
