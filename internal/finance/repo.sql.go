package finance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore implements Store on PostgreSQL. All validation and coercion of
// raw rows happens here, at the boundary: aggregation logic downstream can
// assume well-formed records.
type PGStore struct {
	pool     *pgxpool.Pool
	validate *validator.Validate
}

// NewPGStore constructs the store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{
		pool:     pool,
		validate: validator.New(),
	}
}

func upperBound(r Range) time.Time {
	return r.End.AddDate(0, 0, 1)
}

// ListInvoices returns the owner's invoices issued inside the period, with
// items aggregated per invoice. A deleted client degrades the display label
// only; totals come from the items.
func (s *PGStore) ListInvoices(ctx context.Context, ownerID int64, period Range) ([]Invoice, error) {
	if s == nil || s.pool == nil {
		return nil, errors.New("finance store not initialised")
	}
	rows, err := s.pool.Query(ctx, `SELECT i.id, i.status, c.name, COALESCE(i.tax_rate, 0), i.issue_date, i.due_date,
COALESCE(json_agg(json_build_object('description', it.description, 'quantity', it.quantity, 'unit_price', it.unit_price) ORDER BY it.id)
	FILTER (WHERE it.id IS NOT NULL), '[]') AS items
FROM invoices i
LEFT JOIN clients c ON c.id = i.client_id
LEFT JOIN invoice_items it ON it.invoice_id = i.id
WHERE i.owner_id = $1 AND i.issue_date >= $2 AND i.issue_date < $3
GROUP BY i.id, c.name
ORDER BY i.issue_date, i.id`, ownerID, period.Start, upperBound(period))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		var (
			inv        Invoice
			clientName *string
			itemsJSON  []byte
		)
		if err := rows.Scan(&inv.ID, &inv.Status, &clientName, &inv.TaxRate, &inv.IssueDate, &inv.DueDate, &itemsJSON); err != nil {
			return nil, err
		}
		inv.OwnerID = ownerID
		inv.ClientName = clientLabel(clientName)
		inv.Items, err = decodeInvoiceItems(itemsJSON)
		if err != nil {
			return nil, fmt.Errorf("finance: decode invoice %d items: %w", inv.ID, err)
		}
		invoices = append(invoices, s.normalizeInvoice(inv))
	}
	return invoices, rows.Err()
}

// ListSubscriptions returns the owner's full subscription history. No date
// filter on purpose: whether a subscription contributes to a period depends
// on cross-period state.
func (s *PGStore) ListSubscriptions(ctx context.Context, ownerID int64) ([]Subscription, error) {
	if s == nil || s.pool == nil {
		return nil, errors.New("finance store not initialised")
	}
	rows, err := s.pool.Query(ctx, `SELECT sub.id, c.name, sub.status, sub.start_date, sub.canceled_at,
COALESCE(p.name, ''), COALESCE(p.price, 0), COALESCE(p.billing_interval, 'month')
FROM subscriptions sub
LEFT JOIN clients c ON c.id = sub.client_id
LEFT JOIN plans p ON p.id = sub.plan_id
WHERE sub.owner_id = $1
ORDER BY sub.start_date, sub.id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []Subscription
	for rows.Next() {
		var (
			sub        Subscription
			clientName *string
		)
		if err := rows.Scan(&sub.ID, &clientName, &sub.Status, &sub.StartDate, &sub.CanceledAt,
			&sub.Plan.Name, &sub.Plan.Price, &sub.Plan.Interval); err != nil {
			return nil, err
		}
		sub.OwnerID = ownerID
		sub.ClientName = clientLabel(clientName)
		subs = append(subs, s.normalizeSubscription(sub))
	}
	return subs, rows.Err()
}

// ListSoldItems returns realized sale events inside the period.
func (s *PGStore) ListSoldItems(ctx context.Context, ownerID int64, period Range) ([]SoldItem, error) {
	if s == nil || s.pool == nil {
		return nil, errors.New("finance store not initialised")
	}
	rows, err := s.pool.Query(ctx, `SELECT id, COALESCE(name, ''), COALESCE(sale_price, 0), COALESCE(purchase_price, 0), sold_at
FROM inventory_sold_items
WHERE owner_id = $1 AND sold_at >= $2 AND sold_at < $3
ORDER BY sold_at, id`, ownerID, period.Start, upperBound(period))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []SoldItem
	for rows.Next() {
		var item SoldItem
		if err := rows.Scan(&item.ID, &item.Name, &item.SalePrice, &item.PurchasePrice, &item.SoldAt); err != nil {
			return nil, err
		}
		item.OwnerID = ownerID
		items = append(items, s.normalizeSoldItem(item))
	}
	return items, rows.Err()
}

// ListRevenueEntries returns miscellaneous revenue records inside the period.
func (s *PGStore) ListRevenueEntries(ctx context.Context, ownerID int64, period Range) ([]RevenueEntry, error) {
	if s == nil || s.pool == nil {
		return nil, errors.New("finance store not initialised")
	}
	rows, err := s.pool.Query(ctx, `SELECT id, COALESCE(amount, 0), entry_date, COALESCE(description, '')
FROM revenue_entries
WHERE owner_id = $1 AND entry_date >= $2 AND entry_date < $3
ORDER BY entry_date, id`, ownerID, period.Start, upperBound(period))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []RevenueEntry
	for rows.Next() {
		var entry RevenueEntry
		if err := rows.Scan(&entry.ID, &entry.Amount, &entry.Date, &entry.Description); err != nil {
			return nil, err
		}
		entry.OwnerID = ownerID
		entries = append(entries, s.normalizeRevenueEntry(entry))
	}
	return entries, rows.Err()
}

// ListExpenses returns general expense records inside the period.
func (s *PGStore) ListExpenses(ctx context.Context, ownerID int64, period Range) ([]Expense, error) {
	if s == nil || s.pool == nil {
		return nil, errors.New("finance store not initialised")
	}
	rows, err := s.pool.Query(ctx, `SELECT id, COALESCE(amount, 0), COALESCE(category, ''), expense_date
FROM expenses
WHERE owner_id = $1 AND expense_date >= $2 AND expense_date < $3
ORDER BY expense_date, id`, ownerID, period.Start, upperBound(period))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []Expense
	for rows.Next() {
		var exp Expense
		if err := rows.Scan(&exp.ID, &exp.Amount, &exp.Category, &exp.Date); err != nil {
			return nil, err
		}
		exp.OwnerID = ownerID
		expenses = append(expenses, s.normalizeExpense(exp))
	}
	return expenses, rows.Err()
}

// ListEmployees returns the owner's full staff list; payroll eligibility
// per period is decided by the aggregator from the hire date.
func (s *PGStore) ListEmployees(ctx context.Context, ownerID int64) ([]Employee, error) {
	if s == nil || s.pool == nil {
		return nil, errors.New("finance store not initialised")
	}
	rows, err := s.pool.Query(ctx, `SELECT id, COALESCE(full_name, ''), COALESCE(gross_salary, 0), hire_date
FROM employees
WHERE owner_id = $1
ORDER BY hire_date, id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		var emp Employee
		if err := rows.Scan(&emp.ID, &emp.Name, &emp.GrossSalary, &emp.HireDate); err != nil {
			return nil, err
		}
		emp.OwnerID = ownerID
		employees = append(employees, s.normalizeEmployee(emp))
	}
	return employees, rows.Err()
}

// CountNewClients counts client records created inside the period.
func (s *PGStore) CountNewClients(ctx context.Context, ownerID int64, period Range) (int, error) {
	if s == nil || s.pool == nil {
		return 0, errors.New("finance store not initialised")
	}
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM clients
WHERE owner_id = $1 AND created_at >= $2 AND created_at < $3`,
		ownerID, period.Start, upperBound(period)).Scan(&count)
	return count, err
}

// EarliestEventDate finds the first date any financial event was recorded
// for the owner across every source collection. Zero time means no events.
func (s *PGStore) EarliestEventDate(ctx context.Context, ownerID int64) (time.Time, error) {
	if s == nil || s.pool == nil {
		return time.Time{}, errors.New("finance store not initialised")
	}
	var earliest *time.Time
	err := s.pool.QueryRow(ctx, `SELECT MIN(d) FROM (
	SELECT MIN(issue_date) AS d FROM invoices WHERE owner_id = $1
	UNION ALL SELECT MIN(expense_date) FROM expenses WHERE owner_id = $1
	UNION ALL SELECT MIN(entry_date) FROM revenue_entries WHERE owner_id = $1
	UNION ALL SELECT MIN(sold_at) FROM inventory_sold_items WHERE owner_id = $1
	UNION ALL SELECT MIN(created_at) FROM employees WHERE owner_id = $1
	UNION ALL SELECT MIN(start_date) FROM subscriptions WHERE owner_id = $1
) events`, ownerID).Scan(&earliest)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	if earliest == nil {
		return time.Time{}, nil
	}
	return *earliest, nil
}

func clientLabel(name *string) string {
	if name == nil || *name == "" {
		return DeletedClientLabel
	}
	return *name
}

// invoiceItemRow mirrors the json_agg payload; quantity and unit price may
// be NULL in legacy rows and coerce to zero.
type invoiceItemRow struct {
	Description *string  `json:"description"`
	Quantity    *float64 `json:"quantity"`
	UnitPrice   *float64 `json:"unit_price"`
}

func decodeInvoiceItems(data []byte) ([]InvoiceItem, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var raw []invoiceItemRow
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	items := make([]InvoiceItem, 0, len(raw))
	for _, row := range raw {
		item := InvoiceItem{}
		if row.Description != nil {
			item.Description = *row.Description
		}
		if row.Quantity != nil {
			item.Quantity = *row.Quantity
		}
		if row.UnitPrice != nil {
			item.UnitPrice = *row.UnitPrice
		}
		items = append(items, item)
	}
	return items, nil
}

// Normalization clamps malformed numeric fields to zero instead of letting
// them poison the aggregates. Records are repaired, never dropped: a bad
// price must not make the rest of the invoice disappear from a report.

func (s *PGStore) normalizeInvoice(inv Invoice) Invoice {
	if err := s.validate.Struct(inv); err == nil {
		return inv
	}
	if inv.TaxRate < 0 {
		inv.TaxRate = 0
	}
	for i := range inv.Items {
		if inv.Items[i].Quantity < 0 {
			inv.Items[i].Quantity = 0
		}
		if inv.Items[i].UnitPrice < 0 {
			inv.Items[i].UnitPrice = 0
		}
	}
	return inv
}

func (s *PGStore) normalizeSubscription(sub Subscription) Subscription {
	if sub.Plan.Price < 0 {
		sub.Plan.Price = 0
	}
	// canceled_at before start_date breaks the contribution test; treat the
	// record as canceled at start.
	if sub.CanceledAt != nil && sub.CanceledAt.Before(sub.StartDate) {
		at := sub.StartDate
		sub.CanceledAt = &at
	}
	return sub
}

func (s *PGStore) normalizeSoldItem(item SoldItem) SoldItem {
	if err := s.validate.Struct(item); err == nil {
		return item
	}
	if item.SalePrice < 0 {
		item.SalePrice = 0
	}
	if item.PurchasePrice < 0 {
		item.PurchasePrice = 0
	}
	return item
}

func (s *PGStore) normalizeRevenueEntry(entry RevenueEntry) RevenueEntry {
	if entry.Amount < 0 {
		entry.Amount = 0
	}
	return entry
}

func (s *PGStore) normalizeExpense(exp Expense) Expense {
	if exp.Amount < 0 {
		exp.Amount = 0
	}
	return exp
}

func (s *PGStore) normalizeEmployee(emp Employee) Employee {
	if err := s.validate.Struct(emp); err == nil {
		return emp
	}
	if emp.GrossSalary < 0 {
		emp.GrossSalary = 0
	}
	return emp
}
