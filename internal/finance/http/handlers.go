package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/ledgerdesk/ledgerdesk/internal/finance"
	"github.com/ledgerdesk/ledgerdesk/internal/finance/export"
	"github.com/ledgerdesk/ledgerdesk/internal/platform/httpx"
)

// ownerHeader identifies the business account. Authentication happens
// upstream of this service; the header carries the already-resolved owner.
const ownerHeader = "X-Owner-ID"

var monthCodeRegex = regexp.MustCompile(`^\d{4}-\d{2}$`)

// StatementService is the computation contract consumed by the handler.
type StatementService interface {
	Compute(ctx context.Context, req finance.ComputeRequest) (finance.Computation, error)
	ArchivePeriods(ctx context.Context, ownerID int64, asOf time.Time) ([]string, error)
}

// Exporter renders a computed statement into a downloadable document.
type Exporter interface {
	Export(ctx context.Context, period string, comp finance.Computation, branding export.Branding) (export.Document, error)
}

// Handler serves the financial dashboard, the archive index, and report
// downloads.
type Handler struct {
	logger     *slog.Logger
	service    StatementService
	exporter   Exporter
	reports    *ReportCache
	statements *statementCache
	branding   export.Branding
	rateLimit  func(http.Handler) http.Handler
	now        func() time.Time
}

// NewHandler constructs the handler. Report downloads are rate limited per
// owner because each render may call the PDF backend.
func NewHandler(logger *slog.Logger, service StatementService, exporter Exporter, reports *ReportCache, branding export.Branding) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	limiter := httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
		if owner := r.Header.Get(ownerHeader); owner != "" {
			return "owner:" + owner, nil
		}
		return httprate.KeyByIP(r)
	}))
	return &Handler{
		logger:     logger,
		service:    service,
		exporter:   exporter,
		reports:    reports,
		statements: newStatementCache(statementCacheTTL),
		branding:   branding,
		rateLimit:  limiter,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

// MountRoutes registers the finance endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/dashboard", h.HandleDashboard)
	r.Get("/archive", h.HandleArchive)
	r.Group(func(r chi.Router) {
		r.Use(h.rateLimit)
		r.Get("/reports/{period}", h.HandleReportDownload)
	})
}

// HandleDashboard computes and returns the live statement for the
// requested period.
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.ownerFrom(w, r)
	if !ok {
		return
	}
	query := parsePeriodQuery(r)
	asOf := h.now()

	cacheKey := statementCacheKey(ownerID, query, asOf)
	if comp, ok := h.statements.Get(cacheKey); ok {
		recordCacheHit(ownerID)
		httpx.JSON(w, http.StatusOK, comp.Statement)
		return
	}
	recordCacheMiss(ownerID)

	result, err := singleflightCompute(r.Context(), cacheKey, func(ctx context.Context) (interface{}, error) {
		start := time.Now()
		defer func() {
			observeComputeDuration(ownerID, time.Since(start))
		}()
		return h.service.Compute(ctx, finance.ComputeRequest{OwnerID: ownerID, Period: query, AsOf: asOf})
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	comp, ok := result.(finance.Computation)
	if !ok {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	h.statements.Set(cacheKey, comp)
	httpx.JSON(w, http.StatusOK, comp.Statement)
}

// HandleArchive lists the archivable monthly periods for the owner.
func (h *Handler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.ownerFrom(w, r)
	if !ok {
		return
	}
	periods, err := h.service.ArchivePeriods(r.Context(), ownerID, h.now())
	if err != nil {
		h.respondError(w, err)
		return
	}
	if periods == nil {
		periods = []string{}
	}
	httpx.JSON(w, http.StatusOK, map[string]interface{}{"periods": periods})
}

// HandleReportDownload renders (or serves from cache) the frozen monthly
// report document.
func (h *Handler) HandleReportDownload(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.ownerFrom(w, r)
	if !ok {
		return
	}
	period := chi.URLParam(r, "period")
	if !monthCodeRegex.MatchString(period) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "period must be formatted YYYY-MM")
		return
	}
	monthRange, err := finance.MonthRange(period)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "period must be a valid month")
		return
	}

	asOf := h.now()
	render := func(ctx context.Context) (export.Document, error) {
		comp, err := h.service.Compute(ctx, finance.ComputeRequest{
			OwnerID: ownerID,
			Period:  finance.PeriodQuery{Key: period},
			AsOf:    asOf,
		})
		if err != nil {
			return export.Document{}, err
		}
		return h.exporter.Export(ctx, period, comp, h.branding)
	}

	// Only fully elapsed months are frozen snapshots. The in-progress month
	// re-renders on every download so mid-month figures never get pinned in
	// the cache.
	var doc export.Document
	if monthClosed(monthRange, asOf) {
		doc, err = h.reports.Fetch(r.Context(), h.reports.Key(ownerID, period), render)
	} else {
		doc, err = render(r.Context())
	}
	if err != nil {
		h.respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", doc.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Data)
}

// monthClosed reports whether the month ended before the month asOf falls
// in, i.e. its figures can no longer change.
func monthClosed(month finance.Range, asOf time.Time) bool {
	currentMonth := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, time.UTC)
	return month.End.Before(currentMonth)
}

func (h *Handler) ownerFrom(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.Header.Get(ownerHeader)
	if raw == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "missing owner header")
		return 0, false
	}
	ownerID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ownerID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid owner header")
		return 0, false
	}
	return ownerID, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	if errors.Is(err, finance.ErrSourceUnavailable) {
		h.logger.Error("financial computation failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", finance.ErrSourceUnavailable.Error())
		return
	}
	httpx.RespondError(w, err)
}

// parsePeriodQuery reads the period selection from query parameters. Bad or
// missing values degrade to the default window downstream; the dashboard
// must render regardless.
func parsePeriodQuery(r *http.Request) finance.PeriodQuery {
	q := finance.PeriodQuery{Key: r.URL.Query().Get("period")}
	if from, err := time.ParseInLocation("2006-01-02", r.URL.Query().Get("from"), time.UTC); err == nil {
		q.From = &from
	}
	if to, err := time.ParseInLocation("2006-01-02", r.URL.Query().Get("to"), time.UTC); err == nil {
		q.To = &to
	}
	return q
}
