package finance

// MonthlyEquivalent converts a plan's billing price into its monthly figure:
// monthly plans contribute their price as-is, yearly plans one twelfth of
// it. Unrecognized intervals are billed monthly elsewhere in the product,
// so they are treated as monthly here rather than dropped to zero.
func MonthlyEquivalent(p Plan) float64 {
	if p.Interval == IntervalYear {
		return p.Price / 12
	}
	return p.Price
}

// Contributes reports whether the subscription adds its monthly equivalent
// to the given period. Proration is by period membership, not day fraction:
// a subscription active for any part of the period contributes exactly one
// monthly equivalent. Historical reports were produced under this rule, so
// switching to day-weighted proration would break comparability.
//
// A subscription contributes when it started on or before the period end
// and either is still active or was canceled strictly after the period
// start.
func Contributes(s Subscription, r Range) bool {
	if s.StartDate.After(r.End) {
		return false
	}
	if s.Status == SubscriptionStatusCanceled {
		return s.CanceledAt != nil && s.CanceledAt.After(r.Start)
	}
	return true
}
