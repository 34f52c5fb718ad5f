package finance

// ExpenseTotals is the expense side of a statement computation.
type ExpenseTotals struct {
	COGS    float64
	Payroll float64
	Other   float64
	Total   float64
}

// AggregateExpenses sums the cost side for the period: cost basis of the
// sold items counted as product sales, gross salaries of every employee
// hired on or before the period end, and general expense records dated
// inside the period. There is no termination date in the employee model;
// an employee keeps costing payroll until removed upstream.
func AggregateExpenses(src Sources, r Range) ExpenseTotals {
	var totals ExpenseTotals

	for _, item := range src.SoldItems {
		if r.Contains(item.SoldAt) {
			totals.COGS += item.PurchasePrice
		}
	}
	for _, emp := range src.Employees {
		if !truncateDay(emp.HireDate).After(r.End) {
			totals.Payroll += emp.GrossSalary
		}
	}
	for _, exp := range src.Expenses {
		if r.Contains(exp.Date) {
			totals.Other += exp.Amount
		}
	}

	totals.Total = totals.COGS + totals.Payroll + totals.Other
	return totals
}
