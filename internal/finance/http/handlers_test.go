package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerdesk/ledgerdesk/internal/finance"
	"github.com/ledgerdesk/ledgerdesk/internal/finance/export"
)

type stubService struct {
	comp        finance.Computation
	periods     []string
	err         error
	computeCall int
	lastReq     finance.ComputeRequest
}

func (s *stubService) Compute(ctx context.Context, req finance.ComputeRequest) (finance.Computation, error) {
	s.computeCall++
	s.lastReq = req
	if s.err != nil {
		return finance.Computation{}, s.err
	}
	return s.comp, nil
}

func (s *stubService) ArchivePeriods(ctx context.Context, ownerID int64, asOf time.Time) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.periods, nil
}

type stubExporter struct {
	doc   export.Document
	err   error
	calls int
}

func (s *stubExporter) Export(ctx context.Context, period string, comp finance.Computation, branding export.Branding) (export.Document, error) {
	s.calls++
	if s.err != nil {
		return export.Document{}, s.err
	}
	return s.doc, nil
}

func frozenClock() func() time.Time {
	return func() time.Time {
		return time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
	}
}

func newTestRouter(t *testing.T, service *stubService, exporter *stubExporter, reports *ReportCache) *chi.Mux {
	t.Helper()
	h := NewHandler(nil, service, exporter, reports, export.Branding{Currency: finance.CurrencyEUR})
	h.WithNow(frozenClock())
	r := chi.NewRouter()
	r.Route("/finance", h.MountRoutes)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, target, owner string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if owner != "" {
		req.Header.Set(ownerHeader, owner)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestDashboardReturnsStatement(t *testing.T) {
	service := &stubService{comp: finance.Computation{Statement: finance.Statement{
		TotalRevenue:  210,
		TotalExpenses: 70,
		NetResult:     140,
	}}}
	router := newTestRouter(t, service, &stubExporter{}, nil)

	rec := doRequest(t, router, http.MethodGet, "/finance/dashboard?period=thisMonth", "7")
	require.Equal(t, http.StatusOK, rec.Code)

	var stmt finance.Statement
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stmt))
	assert.Equal(t, 210.0, stmt.TotalRevenue)
	assert.Equal(t, 140.0, stmt.NetResult)

	assert.Equal(t, int64(7), service.lastReq.OwnerID)
	assert.Equal(t, "thisMonth", service.lastReq.Period.Key)
	assert.Equal(t, frozenClock()(), service.lastReq.AsOf)
}

func TestDashboardCustomPeriodBounds(t *testing.T) {
	service := &stubService{}
	router := newTestRouter(t, service, &stubExporter{}, nil)

	rec := doRequest(t, router, http.MethodGet, "/finance/dashboard?period=custom&from=2024-01-05&to=2024-01-20", "7")
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, service.lastReq.Period.From)
	require.NotNil(t, service.lastReq.Period.To)
	assert.Equal(t, "2024-01-05", service.lastReq.Period.From.Format("2006-01-02"))
	assert.Equal(t, "2024-01-20", service.lastReq.Period.To.Format("2006-01-02"))
}

func TestDashboardCachesComputation(t *testing.T) {
	service := &stubService{}
	router := newTestRouter(t, service, &stubExporter{}, nil)

	for i := 0; i < 3; i++ {
		rec := doRequest(t, router, http.MethodGet, "/finance/dashboard?period=30days", "7")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 1, service.computeCall)
}

func TestDashboardRequiresOwner(t *testing.T) {
	router := newTestRouter(t, &stubService{}, &stubExporter{}, nil)

	for _, owner := range []string{"", "abc", "-4", "0"} {
		rec := doRequest(t, router, http.MethodGet, "/finance/dashboard", owner)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "owner %q", owner)
	}
}

func TestDashboardSourceFailureIs503(t *testing.T) {
	service := &stubService{err: fmt.Errorf("%w: connection refused", finance.ErrSourceUnavailable)}
	router := newTestRouter(t, service, &stubExporter{}, nil)

	rec := doRequest(t, router, http.MethodGet, "/finance/dashboard", "7")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var problem struct {
		Title  string `json:"title"`
		Status int    `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, http.StatusServiceUnavailable, problem.Status)
}

func TestArchiveListsPeriods(t *testing.T) {
	service := &stubService{periods: []string{"2024-03", "2024-02", "2024-01"}}
	router := newTestRouter(t, service, &stubExporter{}, nil)

	rec := doRequest(t, router, http.MethodGet, "/finance/archive", "7")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Periods []string `json:"periods"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"2024-03", "2024-02", "2024-01"}, body.Periods)
}

func TestArchiveEmptyHistoryIsEmptyList(t *testing.T) {
	router := newTestRouter(t, &stubService{}, &stubExporter{}, nil)

	rec := doRequest(t, router, http.MethodGet, "/finance/archive", "7")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"periods":[]}`, rec.Body.String())
}

func TestReportDownloadValidatesPeriod(t *testing.T) {
	router := newTestRouter(t, &stubService{}, &stubExporter{}, nil)

	for _, period := range []string{"march", "2024-3", "2024-13", "20240-01"} {
		rec := doRequest(t, router, http.MethodGet, "/finance/reports/"+period, "7")
		assert.Equal(t, http.StatusBadRequest, rec.Code, "period %q", period)
	}
}

func TestReportDownloadServesDocument(t *testing.T) {
	exporter := &stubExporter{doc: export.Document{
		Filename:    "financial-report-2024-02.pdf",
		ContentType: "application/pdf",
		Data:        []byte("%PDF-1.4 stub"),
	}}
	router := newTestRouter(t, &stubService{}, exporter, nil)

	rec := doRequest(t, router, http.MethodGet, "/finance/reports/2024-02", "7")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=financial-report-2024-02.pdf", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.4 stub", rec.Body.String())
}

func TestReportDownloadUsesRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	reports := NewReportCache(client, time.Hour)

	exporter := &stubExporter{doc: export.Document{
		Filename:    "financial-report-2024-02.html",
		ContentType: "text/html; charset=utf-8",
		Data:        []byte("<html>report</html>"),
	}}
	service := &stubService{}
	router := newTestRouter(t, service, exporter, reports)

	first := doRequest(t, router, http.MethodGet, "/finance/reports/2024-02", "7")
	require.Equal(t, http.StatusOK, first.Code)

	second := doRequest(t, router, http.MethodGet, "/finance/reports/2024-02", "7")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())

	// Second hit came from the cache, not a fresh render.
	assert.Equal(t, 1, exporter.calls)
	assert.Equal(t, 1, service.computeCall)

	require.True(t, mr.Exists("report:7:2024-02"))
}

func TestReportDownloadCurrentMonthNeverCached(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	reports := NewReportCache(client, time.Hour)

	exporter := &stubExporter{doc: export.Document{
		Filename:    "financial-report-2024-03.html",
		ContentType: "text/html; charset=utf-8",
		Data:        []byte("<html>€100.00</html>"),
	}}
	service := &stubService{}
	// Clock frozen mid-March: 2024-03 is still accruing figures.
	router := newTestRouter(t, service, exporter, reports)

	first := doRequest(t, router, http.MethodGet, "/finance/reports/2024-03", "7")
	require.Equal(t, http.StatusOK, first.Code)

	// New revenue lands between the two downloads.
	exporter.doc.Data = []byte("<html>€250.00</html>")

	second := doRequest(t, router, http.MethodGet, "/finance/reports/2024-03", "7")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "<html>€250.00</html>", second.Body.String())

	assert.Equal(t, 2, exporter.calls)
	assert.Equal(t, 2, service.computeCall)
	assert.False(t, mr.Exists("report:7:2024-03"))
}

func TestMonthClosed(t *testing.T) {
	asOf := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

	feb, err := finance.MonthRange("2024-02")
	require.NoError(t, err)
	assert.True(t, monthClosed(feb, asOf))

	mar, err := finance.MonthRange("2024-03")
	require.NoError(t, err)
	assert.False(t, monthClosed(mar, asOf))

	apr, err := finance.MonthRange("2024-04")
	require.NoError(t, err)
	assert.False(t, monthClosed(apr, asOf))
}

func TestReportDownloadExportFailure(t *testing.T) {
	exporter := &stubExporter{err: errors.New("template broke")}
	router := newTestRouter(t, &stubService{}, exporter, nil)

	rec := doRequest(t, router, http.MethodGet, "/finance/reports/2024-02", "7")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestReportCachePassThroughWithoutRedis(t *testing.T) {
	cache := NewReportCache(nil, time.Hour)
	calls := 0
	doc, err := cache.Fetch(context.Background(), "report:1:2024-01", func(ctx context.Context) (export.Document, error) {
		calls++
		return export.Document{Filename: "x"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "x", doc.Filename)
	assert.Equal(t, 1, calls)
}

func TestStatementCacheExpiry(t *testing.T) {
	cache := newStatementCache(10 * time.Millisecond)
	comp := finance.Computation{Statement: finance.Statement{TotalRevenue: 5}}
	cache.Set("k", comp)

	got, ok := cache.Get("k")
	require.True(t, ok)
	assert.Equal(t, comp, got)

	time.Sleep(20 * time.Millisecond)
	_, ok = cache.Get("k")
	assert.False(t, ok)
}

func TestStatementCacheSweepsExpiredOnSet(t *testing.T) {
	cache := newStatementCache(10 * time.Millisecond)
	cache.Set("stale-1", finance.Computation{})
	cache.Set("stale-2", finance.Computation{})

	time.Sleep(20 * time.Millisecond)
	cache.Set("fresh", finance.Computation{})

	cache.mu.RLock()
	defer cache.mu.RUnlock()
	assert.Len(t, cache.items, 1)
	_, ok := cache.items["fresh"]
	assert.True(t, ok)
}
