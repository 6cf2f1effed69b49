// Package metrics owns the service's Prometheus registry.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/librarydesk/circulation/internal/repo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

const namespace = "circulation"

// Outcome labels of ledger operations
const (
	OutcomeOK       = "ok"
	OutcomeRefused  = "refused"
	OutcomeNotFound = "not_found"
	OutcomeDenied   = "denied"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

// Metrics holds every collector the service exports
type Metrics struct {
	Registry        *prometheus.Registry
	LedgerOps       *prometheus.CounterVec
	RPCDuration     *prometheus.HistogramVec
	Loans           *prometheus.GaugeVec
	CatalogCopies   prometheus.Gauge
	EventsPublished *prometheus.CounterVec
}

// New creates the collectors on a fresh registry, together with Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		LedgerOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_operations_total",
			Help:      "Ledger operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		RPCDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grpc_request_duration_seconds",
			Help:      "Latency of unary gRPC calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "code"}),
		Loans: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "loans",
			Help:      "Borrow records by effective state.",
		}, []string{"state"}),
		CatalogCopies: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_copies",
			Help:      "Copies owned across active titles.",
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Events handed to the broker by type and outcome.",
		}, []string{"event_type", "outcome"}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.LedgerOps,
		m.RPCDuration,
		m.Loans,
		m.CatalogCopies,
		m.EventsPublished,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// ObserveLedgerOp counts one ledger operation, classified by its error.
func (m *Metrics) ObserveLedgerOp(operation string, err error) {
	m.LedgerOps.WithLabelValues(operation, Outcome(err)).Inc()
}

// ObservePublish counts one event publication.
func (m *Metrics) ObservePublish(eventType string, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.EventsPublished.WithLabelValues(eventType, outcome).Inc()
}

// Outcome maps a repository error to an outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, repo.ErrPolicyViolation):
		return OutcomeRefused
	case errors.Is(err, repo.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, repo.ErrPermissionDenied):
		return OutcomeDenied
	case errors.Is(err, repo.ErrConflict):
		return OutcomeConflict
	default:
		return OutcomeError
	}
}

// UnaryServerInterceptor records the latency of every unary call
func (m *Metrics) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		m.RPCDuration.WithLabelValues(info.FullMethod, status.Code(err).String()).Observe(time.Since(start).Seconds())
		return resp, err
	}
}

// StatsSource provides the counters behind the loan gauges
type StatsSource interface {
	DashboardStats(ctx context.Context, now time.Time) (*repo.DashboardStats, error)
}

// Refresh sets the gauges from src as of now.
func (m *Metrics) Refresh(ctx context.Context, src StatsSource, now time.Time) error {
	stats, err := src.DashboardStats(ctx, now)
	if err != nil {
		return err
	}
	m.Loans.WithLabelValues("pending").Set(float64(stats.PendingRequests))
	m.Loans.WithLabelValues("borrowed").Set(float64(stats.CurrentlyBorrowed))
	m.Loans.WithLabelValues("overdue").Set(float64(stats.Overdue))
	m.Loans.WithLabelValues("returned").Set(float64(stats.Returned))
	m.CatalogCopies.Set(float64(stats.TotalCopies))
	return nil
}

// RunStatsRefresher refreshes the gauges every interval until ctx is done.
func (m *Metrics) RunStatsRefresher(ctx context.Context, src StatsSource, interval time.Duration, log *zap.Logger) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := m.Refresh(ctx, src, time.Now().UTC()); err != nil && ctx.Err() == nil {
			log.Warn("Failed to refresh loan gauges", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
