package finance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// AssembleStatement combines both aggregates into one Statement. The net
// result is revenue minus expenses; no other rule lives here. Dashboard and
// archive exporter both consume this shape, so what "total revenue" means
// can never drift between them.
func AssembleStatement(period Range, revenue RevenueTotals, expenses ExpenseTotals) Statement {
	return Statement{
		Period:              period,
		TotalRevenue:        revenue.Total,
		PaidInvoiceRevenue:  revenue.PaidInvoices,
		SubscriptionRevenue: revenue.Subscriptions,
		ProductSaleRevenue:  revenue.ProductSales,
		MiscRevenue:         revenue.Misc,
		UnpaidAmount:        revenue.UnpaidAmount,
		NewClientsCount:     revenue.NewClients,
		TotalExpenses:       expenses.Total,
		COGS:                expenses.COGS,
		Payroll:             expenses.Payroll,
		OtherExpenses:       expenses.Other,
		NetResult:           revenue.Total - expenses.Total,
	}
}

// LineItems carries the period-filtered records behind a Statement, grouped
// the way the report document itemizes them.
type LineItems struct {
	PaidInvoices   []Invoice
	Subscriptions  []Subscription
	SoldItems      []SoldItem
	RevenueEntries []RevenueEntry
	Employees      []Employee
	Expenses       []Expense
	UnpaidInvoices []Invoice
}

// BuildLineItems splits the snapshot into the itemized groups used by the
// report exporter, applying the same period and status rules as the
// aggregators so items and totals always agree.
func BuildLineItems(src Sources, r Range) LineItems {
	var items LineItems
	for _, inv := range src.Invoices {
		switch inv.Status {
		case InvoiceStatusPaid:
			items.PaidInvoices = append(items.PaidInvoices, inv)
		case InvoiceStatusPending, InvoiceStatusOverdue:
			items.UnpaidInvoices = append(items.UnpaidInvoices, inv)
		}
	}
	for _, sub := range src.Subscriptions {
		if Contributes(sub, r) {
			items.Subscriptions = append(items.Subscriptions, sub)
		}
	}
	for _, item := range src.SoldItems {
		if r.Contains(item.SoldAt) {
			items.SoldItems = append(items.SoldItems, item)
		}
	}
	for _, entry := range src.RevenueEntries {
		if r.Contains(entry.Date) {
			items.RevenueEntries = append(items.RevenueEntries, entry)
		}
	}
	for _, emp := range src.Employees {
		if !truncateDay(emp.HireDate).After(r.End) {
			items.Employees = append(items.Employees, emp)
		}
	}
	for _, exp := range src.Expenses {
		if r.Contains(exp.Date) {
			items.Expenses = append(items.Expenses, exp)
		}
	}
	return items
}

// ComputeRequest identifies one statement computation.
type ComputeRequest struct {
	OwnerID int64
	Period  PeriodQuery
	AsOf    time.Time
}

// Computation is the full result of one computation: the statement plus the
// line items it was built from, ready for rendering or export.
type Computation struct {
	Statement Statement
	Lines     LineItems
}

// StatementService runs financial computations against the collaborator
// store. It holds no mutable state; each call closes over its own snapshot.
type StatementService struct {
	store  Store
	logger *slog.Logger
}

// NewStatementService constructs the service.
func NewStatementService(store Store, logger *slog.Logger) *StatementService {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatementService{store: store, logger: logger}
}

// Compute resolves the requested period, fans out every source read
// concurrently, joins them, and aggregates the snapshot into a Statement.
// Aggregation never starts on a partial result set: if any read fails the
// whole computation aborts with ErrSourceUnavailable.
func (s *StatementService) Compute(ctx context.Context, req ComputeRequest) (Computation, error) {
	if s == nil || s.store == nil {
		return Computation{}, errors.New("finance: statement service not initialised")
	}
	if req.OwnerID <= 0 {
		return Computation{}, fmt.Errorf("finance: owner id required")
	}
	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	period := ResolveRange(req.Period, asOf)

	src, err := s.fetchSources(ctx, req.OwnerID, period)
	if err != nil {
		s.logger.Error("fetch financial sources",
			slog.Int64("owner_id", req.OwnerID),
			slog.String("period", period.MonthCode()),
			slog.Any("error", err))
		return Computation{}, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	revenue := AggregateRevenue(src, period)
	expenses := AggregateExpenses(src, period)
	return Computation{
		Statement: AssembleStatement(period, revenue, expenses),
		Lines:     BuildLineItems(src, period),
	}, nil
}

// ArchivePeriods lists every archivable YYYY-MM code for the owner, most
// recent first. Zero recorded events is a valid terminal state and returns
// an empty list.
func (s *StatementService) ArchivePeriods(ctx context.Context, ownerID int64, asOf time.Time) ([]string, error) {
	if s == nil || s.store == nil {
		return nil, errors.New("finance: statement service not initialised")
	}
	earliest, err := s.store.EarliestEventDate(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	return ArchiveMonths(earliest, asOf), nil
}

func (s *StatementService) fetchSources(ctx context.Context, ownerID int64, period Range) (Sources, error) {
	var src Sources
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		src.Invoices, err = s.store.ListInvoices(ctx, ownerID, period)
		return err
	})
	g.Go(func() (err error) {
		src.Subscriptions, err = s.store.ListSubscriptions(ctx, ownerID)
		return err
	})
	g.Go(func() (err error) {
		src.SoldItems, err = s.store.ListSoldItems(ctx, ownerID, period)
		return err
	})
	g.Go(func() (err error) {
		src.RevenueEntries, err = s.store.ListRevenueEntries(ctx, ownerID, period)
		return err
	})
	g.Go(func() (err error) {
		src.Expenses, err = s.store.ListExpenses(ctx, ownerID, period)
		return err
	})
	g.Go(func() (err error) {
		src.Employees, err = s.store.ListEmployees(ctx, ownerID)
		return err
	})
	g.Go(func() (err error) {
		src.NewClients, err = s.store.CountNewClients(ctx, ownerID, period)
		return err
	})
	if err := g.Wait(); err != nil {
		return Sources{}, err
	}
	return src, nil
}
