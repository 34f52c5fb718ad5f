package finance

// RevenueTotals is the revenue side of a statement computation.
type RevenueTotals struct {
	PaidInvoices  float64
	Subscriptions float64
	ProductSales  float64
	Misc          float64
	Total         float64

	// UnpaidAmount and NewClients are not revenue but share the same
	// source scan, so the aggregator carries them along.
	UnpaidAmount float64
	NewClients   int
}

// AggregateRevenue sums all revenue sources for the period. Invoices, sold
// items and misc entries arrive pre-filtered from the store; subscriptions
// arrive unfiltered because their contribution depends on cross-period
// state and is decided by Contributes. The date guards on sold items and
// entries are re-applied here so a stale snapshot can never leak rows from
// outside the period into the totals.
func AggregateRevenue(src Sources, r Range) RevenueTotals {
	var totals RevenueTotals

	for _, inv := range src.Invoices {
		switch inv.Status {
		case InvoiceStatusPaid:
			totals.PaidInvoices += inv.Amount()
		case InvoiceStatusPending, InvoiceStatusOverdue:
			totals.UnpaidAmount += inv.Amount()
		}
	}
	for _, sub := range src.Subscriptions {
		if Contributes(sub, r) {
			totals.Subscriptions += MonthlyEquivalent(sub.Plan)
		}
	}
	for _, item := range src.SoldItems {
		if r.Contains(item.SoldAt) {
			totals.ProductSales += item.SalePrice
		}
	}
	for _, entry := range src.RevenueEntries {
		if r.Contains(entry.Date) {
			totals.Misc += entry.Amount
		}
	}

	totals.Total = totals.PaidInvoices + totals.Subscriptions + totals.ProductSales + totals.Misc
	totals.NewClients = src.NewClients
	return totals
}
