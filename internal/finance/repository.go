package finance

import (
	"context"
	"time"
)

// Store is the collaborator data store the engine reads from. Every read is
// scoped to one owner; period-scoped reads receive the resolved range.
// Subscriptions and employees are fetched without a date filter because
// their contribution to a period depends on state outside it (cancellation
// and hire dates). The engine never writes through this interface.
type Store interface {
	ListInvoices(ctx context.Context, ownerID int64, period Range) ([]Invoice, error)
	ListSubscriptions(ctx context.Context, ownerID int64) ([]Subscription, error)
	ListSoldItems(ctx context.Context, ownerID int64, period Range) ([]SoldItem, error)
	ListRevenueEntries(ctx context.Context, ownerID int64, period Range) ([]RevenueEntry, error)
	ListExpenses(ctx context.Context, ownerID int64, period Range) ([]Expense, error)
	ListEmployees(ctx context.Context, ownerID int64) ([]Employee, error)
	CountNewClients(ctx context.Context, ownerID int64, period Range) (int, error)

	// EarliestEventDate returns the earliest date any financial event was
	// recorded for the owner, or the zero time when no events exist.
	EarliestEventDate(ctx context.Context, ownerID int64) (time.Time, error)
}
