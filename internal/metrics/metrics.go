package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mamadbah2/cafeledger/internal/repository/tabular"
)

const namespace = "cafeledger"

// Metrics groups the collectors exported on /metrics. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registrations *prometheus.CounterVec
	storeLatency  *prometheus.HistogramVec
	reports       *prometheus.CounterVec
	gatherer      prometheus.Gatherer
}

// New registers the collectors on reg. Passing a fresh prometheus.NewRegistry
// keeps tests isolated.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Ledger registration calls by entity and outcome.",
		}, []string{"entity", "outcome"}),
		storeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_seconds",
			Help:      "Latency of tabular store operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "collection", "result"}),
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_generated_total",
			Help:      "Reports generated by period.",
		}, []string{"period"}),
		gatherer: reg,
	}
	reg.MustRegister(m.registrations, m.storeLatency, m.reports)
	return m
}

// ObserveRegistration counts one registration attempt.
func (m *Metrics) ObserveRegistration(entity, outcome string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(entity, outcome).Inc()
}

// ObserveReport counts one generated report.
func (m *Metrics) ObserveReport(period string) {
	if m == nil {
		return
	}
	m.reports.WithLabelValues(period).Inc()
}

func (m *Metrics) observeStore(op, collection string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.storeLatency.WithLabelValues(op, collection, result).Observe(time.Since(start).Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// InstrumentStore wraps store so every call is timed.
func InstrumentStore(store tabular.Store, m *Metrics) tabular.Store {
	if m == nil {
		return store
	}
	return &instrumentedStore{next: store, metrics: m}
}

type instrumentedStore struct {
	next    tabular.Store
	metrics *Metrics
}

func (s *instrumentedStore) Append(ctx context.Context, collection string, record tabular.Record) (err error) {
	defer func(start time.Time) { s.metrics.observeStore("append", collection, start, err) }(time.Now())
	return s.next.Append(ctx, collection, record)
}

func (s *instrumentedStore) ReadAll(ctx context.Context, collection string) (records []tabular.Record, err error) {
	defer func(start time.Time) { s.metrics.observeStore("read", collection, start, err) }(time.Now())
	return s.next.ReadAll(ctx, collection)
}

func (s *instrumentedStore) ReplaceAll(ctx context.Context, collection string, records []tabular.Record) (err error) {
	defer func(start time.Time) { s.metrics.observeStore("replace", collection, start, err) }(time.Now())
	return s.next.ReplaceAll(ctx, collection, records)
}

func (s *instrumentedStore) UpdateOne(ctx context.Context, collection, idField, idValue string, patch tabular.Record) (ok bool, err error) {
	defer func(start time.Time) { s.metrics.observeStore("update", collection, start, err) }(time.Now())
	return s.next.UpdateOne(ctx, collection, idField, idValue, patch)
}

func (s *instrumentedStore) FindOne(ctx context.Context, collection, idField, idValue string) (rec tabular.Record, ok bool, err error) {
	defer func(start time.Time) { s.metrics.observeStore("find", collection, start, err) }(time.Now())
	return s.next.FindOne(ctx, collection, idField, idValue)
}
