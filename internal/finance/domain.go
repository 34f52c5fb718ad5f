package finance

import (
	"errors"
	"time"
)

// InvoiceStatus enumerates the billing states an invoice moves through.
type InvoiceStatus string

const (
	// InvoiceStatusPending marks an invoice awaiting payment.
	InvoiceStatusPending InvoiceStatus = "pending"
	// InvoiceStatusPaid marks a settled invoice.
	InvoiceStatusPaid InvoiceStatus = "paid"
	// InvoiceStatusOverdue marks an invoice past its due date.
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

// SubscriptionStatus enumerates subscription lifecycle states.
type SubscriptionStatus string

const (
	// SubscriptionStatusActive marks a running subscription.
	SubscriptionStatusActive SubscriptionStatus = "active"
	// SubscriptionStatusCanceled marks a terminated subscription.
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

// PlanInterval enumerates supported billing intervals.
type PlanInterval string

const (
	// IntervalMonth bills once per month.
	IntervalMonth PlanInterval = "month"
	// IntervalYear bills once per year.
	IntervalYear PlanInterval = "year"
)

// Currency enumerates the account currencies the product supports.
// The symbol is cosmetic; no FX conversion happens anywhere.
type Currency string

const (
	CurrencyEUR Currency = "eur"
	CurrencyUSD Currency = "usd"
	CurrencyCHF Currency = "chf"
)

// Symbol returns the display symbol for the currency. Unknown values fall
// back to the euro symbol, which is the product default.
func (c Currency) Symbol() string {
	switch c {
	case CurrencyUSD:
		return "$"
	case CurrencyCHF:
		return "CHF "
	default:
		return "€"
	}
}

// ParseCurrency resolves a configured currency code, defaulting to EUR.
func ParseCurrency(code string) Currency {
	switch Currency(code) {
	case CurrencyUSD:
		return CurrencyUSD
	case CurrencyCHF:
		return CurrencyCHF
	default:
		return CurrencyEUR
	}
}

// DeletedClientLabel replaces the client name when the referenced client
// record no longer exists. Labels never affect monetary totals.
const DeletedClientLabel = "(deleted client)"

// InvoiceItem is a single billed line on an invoice.
type InvoiceItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity" validate:"gte=0"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
}

// Invoice models a customer invoice. The monetary amount is always derived
// from the items and tax rate; it is never stored alongside them.
type Invoice struct {
	ID         int64         `json:"id"`
	OwnerID    int64         `json:"owner_id"`
	ClientName string        `json:"client_name"`
	Status     InvoiceStatus `json:"status"`
	Items      []InvoiceItem `json:"items"`
	TaxRate    float64       `json:"tax_rate" validate:"gte=0"`
	IssueDate  time.Time     `json:"issue_date"`
	DueDate    time.Time     `json:"due_date"`
}

// Amount computes the invoice total: sum of quantity times unit price across
// items, with the tax rate applied on top.
func (inv Invoice) Amount() float64 {
	var subtotal float64
	for _, item := range inv.Items {
		subtotal += item.Quantity * item.UnitPrice
	}
	return subtotal * (1 + inv.TaxRate/100)
}

// Plan describes the billing terms attached to a subscription.
type Plan struct {
	Name     string       `json:"name"`
	Price    float64      `json:"price" validate:"gte=0"`
	Interval PlanInterval `json:"interval"`
}

// Subscription models a recurring billing agreement with a client.
// CanceledAt is set only for canceled subscriptions and is never before
// StartDate.
type Subscription struct {
	ID         int64              `json:"id"`
	OwnerID    int64              `json:"owner_id"`
	ClientName string             `json:"client_name"`
	Status     SubscriptionStatus `json:"status"`
	StartDate  time.Time          `json:"start_date"`
	CanceledAt *time.Time         `json:"canceled_at,omitempty"`
	Plan       Plan               `json:"plan"`
}

// SoldItem records one realized inventory sale. A record is immutable once
// created; selling the same product again produces a new record.
type SoldItem struct {
	ID            int64     `json:"id"`
	OwnerID       int64     `json:"owner_id"`
	Name          string    `json:"name"`
	SalePrice     float64   `json:"sale_price" validate:"gte=0"`
	PurchasePrice float64   `json:"purchase_price" validate:"gte=0"`
	SoldAt        time.Time `json:"sold_at"`
}

// RevenueEntry is a free-form income record outside invoices and sales.
type RevenueEntry struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	Amount      float64   `json:"amount" validate:"gte=0"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
}

// Expense is a general business expense record.
type Expense struct {
	ID       int64     `json:"id"`
	OwnerID  int64     `json:"owner_id"`
	Amount   float64   `json:"amount" validate:"gte=0"`
	Category string    `json:"category"`
	Date     time.Time `json:"date"`
}

// Employee carries the payroll-relevant slice of an HR record. Gross salary
// is a recurring monthly cost from the hire date onward; the model has no
// termination date.
type Employee struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	Name        string    `json:"name"`
	GrossSalary float64   `json:"gross_salary" validate:"gte=0"`
	HireDate    time.Time `json:"hire_date"`
}

// Sources holds the joined snapshot of every collection one statement
// computation reads. Each computation owns its snapshot; nothing here is
// shared between concurrent computations.
type Sources struct {
	Invoices       []Invoice
	Subscriptions  []Subscription
	SoldItems      []SoldItem
	RevenueEntries []RevenueEntry
	Expenses       []Expense
	Employees      []Employee
	NewClients     int
}

// Statement is the immutable result of one financial computation for one
// period. It is rebuilt from scratch on every query and never persisted.
type Statement struct {
	Period              Range   `json:"period"`
	TotalRevenue        float64 `json:"total_revenue"`
	PaidInvoiceRevenue  float64 `json:"paid_invoice_revenue"`
	SubscriptionRevenue float64 `json:"subscription_revenue"`
	ProductSaleRevenue  float64 `json:"product_sale_revenue"`
	MiscRevenue         float64 `json:"misc_revenue"`
	UnpaidAmount        float64 `json:"unpaid_amount"`
	NewClientsCount     int     `json:"new_clients_count"`
	TotalExpenses       float64 `json:"total_expenses"`
	COGS                float64 `json:"cogs"`
	Payroll             float64 `json:"payroll"`
	OtherExpenses       float64 `json:"other_expenses"`
	NetResult           float64 `json:"net_result"`
}

// ErrSourceUnavailable is surfaced whenever any source read fails during a
// computation. Callers never see partial statements.
var ErrSourceUnavailable = errors.New("finance: unable to load financial data")
