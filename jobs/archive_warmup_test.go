package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerdesk/ledgerdesk/internal/finance"
	"github.com/ledgerdesk/ledgerdesk/internal/finance/export"
	financehttp "github.com/ledgerdesk/ledgerdesk/internal/finance/http"
	"github.com/ledgerdesk/ledgerdesk/report"
)

type emptyStore struct {
	err error
}

func (s *emptyStore) ListInvoices(ctx context.Context, ownerID int64, period finance.Range) ([]finance.Invoice, error) {
	return nil, s.err
}

func (s *emptyStore) ListSubscriptions(ctx context.Context, ownerID int64) ([]finance.Subscription, error) {
	return nil, s.err
}

func (s *emptyStore) ListSoldItems(ctx context.Context, ownerID int64, period finance.Range) ([]finance.SoldItem, error) {
	return nil, s.err
}

func (s *emptyStore) ListRevenueEntries(ctx context.Context, ownerID int64, period finance.Range) ([]finance.RevenueEntry, error) {
	return nil, s.err
}

func (s *emptyStore) ListExpenses(ctx context.Context, ownerID int64, period finance.Range) ([]finance.Expense, error) {
	return nil, s.err
}

func (s *emptyStore) ListEmployees(ctx context.Context, ownerID int64) ([]finance.Employee, error) {
	return nil, s.err
}

func (s *emptyStore) CountNewClients(ctx context.Context, ownerID int64, period finance.Range) (int, error) {
	return 0, s.err
}

func (s *emptyStore) EarliestEventDate(ctx context.Context, ownerID int64) (time.Time, error) {
	return time.Time{}, s.err
}

func newWarmupJob(t *testing.T, store finance.Store, reports *financehttp.ReportCache) *ArchiveWarmupJob {
	t.Helper()
	exporter, err := export.NewExporter(report.NewClient(""), nil)
	require.NoError(t, err)
	service := finance.NewStatementService(store, nil)
	return NewArchiveWarmupJob(service, exporter, reports, export.Branding{Currency: finance.CurrencyEUR}, nil, nil, nil)
}

func TestArchiveWarmupSkipsMalformedPayload(t *testing.T) {
	job := newWarmupJob(t, &emptyStore{}, financehttp.NewReportCache(nil, time.Hour))

	task := asynq.NewTask(TaskReportArchiveWarmup, []byte("{not json"))
	err := job.Handle(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestArchiveWarmupRendersOwnerReport(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	reports := financehttp.NewReportCache(client, time.Hour)

	job := newWarmupJob(t, &emptyStore{}, reports)

	task, err := NewArchiveWarmupTask(ArchiveWarmupPayload{OwnerID: 7, Period: "2024-01"})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	assert.True(t, mr.Exists("report:7:2024-01"))
}

func TestArchiveWarmupReportsFailure(t *testing.T) {
	store := &emptyStore{err: errors.New("connection refused")}
	job := newWarmupJob(t, store, financehttp.NewReportCache(nil, time.Hour))

	task, err := NewArchiveWarmupTask(ArchiveWarmupPayload{OwnerID: 7, Period: "2024-01"})
	require.NoError(t, err)
	err = job.Handle(context.Background(), task)
	require.Error(t, err)
}

func TestArchiveWarmupNoOwnersIsNoop(t *testing.T) {
	job := newWarmupJob(t, &emptyStore{}, financehttp.NewReportCache(nil, time.Hour))

	// No explicit owner and no database pool: nothing to warm.
	task, err := NewArchiveWarmupTask(ArchiveWarmupPayload{})
	require.NoError(t, err)
	assert.NoError(t, job.Handle(context.Background(), task))
}
