package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerdesk/ledgerdesk/internal/finance"
	"github.com/ledgerdesk/ledgerdesk/internal/finance/export"
	financehttp "github.com/ledgerdesk/ledgerdesk/internal/finance/http"
	jobmetrics "github.com/ledgerdesk/ledgerdesk/internal/jobs"
)

// ArchiveWarmupJob pre-renders the previous month's financial report for
// every owner and parks the documents in the report cache. A warm-up
// failure only costs the first requester a cold render; on-demand
// generation is unaffected.
type ArchiveWarmupJob struct {
	Service  *finance.StatementService
	Exporter *export.Exporter
	Reports  *financehttp.ReportCache
	Branding export.Branding
	Pool     *pgxpool.Pool
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewArchiveWarmupJob wires dependencies for the warm-up handler.
func NewArchiveWarmupJob(service *finance.StatementService, exporter *export.Exporter, reports *financehttp.ReportCache, branding export.Branding, pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *ArchiveWarmupJob {
	return &ArchiveWarmupJob{
		Service:  service,
		Exporter: exporter,
		Reports:  reports,
		Branding: branding,
		Pool:     pool,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskReportArchiveWarmup tasks.
func (j *ArchiveWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil || j.Exporter == nil {
		return errors.New("archive warmup: handler not configured")
	}
	var payload ArchiveWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	asOf := j.clock()
	period := payload.Period
	if period == "" {
		period = asOf.AddDate(0, -1, 0).Format("2006-01")
	}

	tracker := j.metrics().Track(TaskReportArchiveWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("period", period))

	owners, err := j.owners(ctx, payload.OwnerID)
	if err != nil {
		resultErr = err
		logger.Error("load warmup owners", slog.Any("error", err))
		return resultErr
	}
	if len(owners) == 0 {
		logger.Info("no owners discovered for warmup")
		return nil
	}

	var failed int
	for _, ownerID := range owners {
		if err := j.warmOwner(ctx, ownerID, period, asOf); err != nil {
			failed++
			logger.Warn("warmup owner failed",
				slog.Int64("owner_id", ownerID),
				slog.Any("error", err))
		}
	}
	logger.Info("archive warmup finished",
		slog.Int("owners", len(owners)),
		slog.Int("failed", failed))
	if failed == len(owners) {
		resultErr = errors.New("archive warmup: all owners failed")
		return resultErr
	}
	return nil
}

func (j *ArchiveWarmupJob) warmOwner(ctx context.Context, ownerID int64, period string, asOf time.Time) error {
	_, err := j.Reports.Fetch(ctx, j.Reports.Key(ownerID, period), func(ctx context.Context) (export.Document, error) {
		comp, err := j.Service.Compute(ctx, finance.ComputeRequest{
			OwnerID: ownerID,
			Period:  finance.PeriodQuery{Key: period},
			AsOf:    asOf,
		})
		if err != nil {
			return export.Document{}, err
		}
		return j.Exporter.Export(ctx, period, comp, j.Branding)
	})
	return err
}

func (j *ArchiveWarmupJob) owners(ctx context.Context, ownerID int64) ([]int64, error) {
	if ownerID > 0 {
		return []int64{ownerID}, nil
	}
	if j.Pool == nil {
		return nil, nil
	}
	rows, err := j.Pool.Query(ctx, `SELECT id FROM owners WHERE active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var owners []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		owners = append(owners, id)
	}
	return owners, rows.Err()
}

func (j *ArchiveWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}

func (j *ArchiveWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
