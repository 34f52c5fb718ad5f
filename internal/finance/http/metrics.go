package http

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsMu          sync.Mutex
	metricsInitialized bool

	statementHitCounter  *prometheus.CounterVec
	statementMissCounter *prometheus.CounterVec
	computeHistogram     *prometheus.HistogramVec
	metricsError         error
)

// SetupMetrics registers the Prometheus collectors observing the statement
// cache and computation latency. Registration happens once; later calls
// return the first outcome.
func SetupMetrics(reg prometheus.Registerer) error {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	if metricsInitialized {
		return metricsError
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	statementHitCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgerdesk_statement_cache_hits_total",
		Help: "Number of dashboard statement cache hits.",
	}, []string{"owner"})
	statementMissCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgerdesk_statement_cache_miss_total",
		Help: "Number of dashboard statement cache misses.",
	}, []string{"owner"})
	computeHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledgerdesk_statement_compute_duration_seconds",
		Help:    "Duration of full statement computations.",
		Buckets: prometheus.DefBuckets,
	}, []string{"owner"})

	for _, collector := range []prometheus.Collector{statementHitCounter, statementMissCounter, computeHistogram} {
		if err := reg.Register(collector); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			metricsError = err
			break
		}
	}
	metricsInitialized = true
	return metricsError
}

func recordCacheHit(ownerID int64) {
	if statementHitCounter != nil {
		statementHitCounter.WithLabelValues(strconv.FormatInt(ownerID, 10)).Inc()
	}
}

func recordCacheMiss(ownerID int64) {
	if statementMissCounter != nil {
		statementMissCounter.WithLabelValues(strconv.FormatInt(ownerID, 10)).Inc()
	}
}

func observeComputeDuration(ownerID int64, d time.Duration) {
	if computeHistogram != nil {
		computeHistogram.WithLabelValues(strconv.FormatInt(ownerID, 10)).Observe(d.Seconds())
	}
}
