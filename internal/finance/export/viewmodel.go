package export

import (
	"fmt"
	"html/template"
	"time"

	"github.com/ledgerdesk/ledgerdesk/internal/finance"
)

// Branding carries per-account presentation settings for the document.
type Branding struct {
	BusinessName string
	LogoURL      string
	Currency     finance.Currency
}

// SummaryRow is one line of the document's summary table.
type SummaryRow struct {
	Label string
	Value string
	// Class distinguishes the net result row: "positive" or "negative".
	Class string
}

// Section is one itemized block of the document. Sections with zero rows
// are never emitted.
type Section struct {
	Title   string
	Headers []string
	Rows    [][]string
	Total   string
}

// ViewModel is everything the document template needs. The exporter does
// not recompute totals: a mismatch between statement and items is the
// caller's defect, not something reconciled here.
type ViewModel struct {
	Title        string
	BusinessName string
	PeriodLabel  string
	// LogoDataURI is typed template.URL because the logo is embedded as a
	// base64 data URI, which the template engine would otherwise strip.
	LogoDataURI template.URL
	Summary     []SummaryRow
	Sections    []Section
}

// BuildViewModel maps a statement and its line items into the fixed
// document layout: summary first, then the itemized sections in a fixed
// order with empty sections omitted.
func BuildViewModel(st finance.Statement, lines finance.LineItems, period string, branding Branding) ViewModel {
	cur := branding.Currency
	vm := ViewModel{
		Title:        fmt.Sprintf("Financial Report %s", period),
		BusinessName: branding.BusinessName,
		PeriodLabel:  period,
		Summary: []SummaryRow{
			{Label: "Total revenue", Value: money(st.TotalRevenue, cur)},
			{Label: "Unpaid invoices", Value: money(st.UnpaidAmount, cur)},
			{Label: "New clients", Value: fmt.Sprintf("%d", st.NewClientsCount)},
			{Label: "Total expenses", Value: money(st.TotalExpenses, cur)},
			{Label: "Net result", Value: money(st.NetResult, cur), Class: netClass(st.NetResult)},
		},
	}

	if len(lines.PaidInvoices) > 0 {
		sec := Section{
			Title:   "Paid Invoices",
			Headers: []string{"Client", "Issued", "Amount"},
			Total:   money(st.PaidInvoiceRevenue, cur),
		}
		for _, inv := range lines.PaidInvoices {
			sec.Rows = append(sec.Rows, []string{inv.ClientName, date(inv.IssueDate), money(inv.Amount(), cur)})
		}
		vm.Sections = append(vm.Sections, sec)
	}

	if len(lines.Subscriptions) > 0 {
		sec := Section{
			Title:   "Subscription Revenue",
			Headers: []string{"Client", "Plan", "Since", "Monthly"},
			Total:   money(st.SubscriptionRevenue, cur),
		}
		for _, sub := range lines.Subscriptions {
			sec.Rows = append(sec.Rows, []string{
				sub.ClientName,
				sub.Plan.Name,
				date(sub.StartDate),
				money(finance.MonthlyEquivalent(sub.Plan), cur),
			})
		}
		vm.Sections = append(vm.Sections, sec)
	}

	if len(lines.SoldItems) > 0 {
		sec := Section{
			Title:   "Product Sales",
			Headers: []string{"Product", "Sold", "Sale Price"},
			Total:   money(st.ProductSaleRevenue, cur),
		}
		for _, item := range lines.SoldItems {
			sec.Rows = append(sec.Rows, []string{item.Name, date(item.SoldAt), money(item.SalePrice, cur)})
		}
		vm.Sections = append(vm.Sections, sec)
	}

	if len(lines.RevenueEntries) > 0 {
		sec := Section{
			Title:   "Other Revenue",
			Headers: []string{"Description", "Date", "Amount"},
			Total:   money(st.MiscRevenue, cur),
		}
		for _, entry := range lines.RevenueEntries {
			sec.Rows = append(sec.Rows, []string{entry.Description, date(entry.Date), money(entry.Amount, cur)})
		}
		vm.Sections = append(vm.Sections, sec)
	}

	if len(lines.Employees) > 0 {
		sec := Section{
			Title:   "Payroll",
			Headers: []string{"Employee", "Hired", "Gross Salary"},
			Total:   money(st.Payroll, cur),
		}
		for _, emp := range lines.Employees {
			sec.Rows = append(sec.Rows, []string{emp.Name, date(emp.HireDate), money(emp.GrossSalary, cur)})
		}
		vm.Sections = append(vm.Sections, sec)
	}

	if len(lines.SoldItems) > 0 {
		sec := Section{
			Title:   "Cost of Goods Sold",
			Headers: []string{"Product", "Sold", "Cost"},
			Total:   money(st.COGS, cur),
		}
		for _, item := range lines.SoldItems {
			sec.Rows = append(sec.Rows, []string{item.Name, date(item.SoldAt), money(item.PurchasePrice, cur)})
		}
		vm.Sections = append(vm.Sections, sec)
	}

	if len(lines.Expenses) > 0 {
		sec := Section{
			Title:   "General Expenses",
			Headers: []string{"Category", "Date", "Amount"},
			Total:   money(st.OtherExpenses, cur),
		}
		for _, exp := range lines.Expenses {
			sec.Rows = append(sec.Rows, []string{exp.Category, date(exp.Date), money(exp.Amount, cur)})
		}
		vm.Sections = append(vm.Sections, sec)
	}

	if len(lines.UnpaidInvoices) > 0 {
		sec := Section{
			Title:   "Unpaid Invoices",
			Headers: []string{"Client", "Due", "Amount"},
			Total:   money(st.UnpaidAmount, cur),
		}
		for _, inv := range lines.UnpaidInvoices {
			sec.Rows = append(sec.Rows, []string{inv.ClientName, date(inv.DueDate), money(inv.Amount(), cur)})
		}
		vm.Sections = append(vm.Sections, sec)
	}

	return vm
}

// money renders a value with the account currency symbol and exactly two
// decimals. Rounding happens only here, at presentation time.
func money(v float64, c finance.Currency) string {
	return fmt.Sprintf("%s%.2f", c.Symbol(), v)
}

func date(t time.Time) string {
	return t.Format("02/01/2006")
}

func netClass(net float64) string {
	if net < 0 {
		return "negative"
	}
	return "positive"
}
