package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"coinfeed/internal/fetcher"
	"coinfeed/internal/quote"
	"coinfeed/internal/refresh"
)

// Outcome labels for RefreshesTotal
const (
	OutcomeSuccess   = "success"
	OutcomeNetwork   = "network"
	OutcomeBadStatus = "bad_status"
	OutcomeMalformed = "malformed"
	OutcomeOther     = "other"
)

// Metrics holds the refresh pipeline's collectors
type Metrics struct {
	RefreshesTotal         *prometheus.CounterVec
	CoalescedTotal         *prometheus.CounterVec
	RefreshDurationSeconds prometheus.Histogram
	LastSuccessTimestamp   prometheus.Gauge
	Records                prometheus.Gauge
	SkippedRecordsTotal    prometheus.Counter
	Loading                prometheus.Gauge
}

// New registers the collectors with reg. Passing prometheus.DefaultRegisterer
// exposes them on the process-wide /metrics handler.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RefreshesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinfeed_refreshes_total",
				Help: "Completed refresh cycles by outcome",
			},
			[]string{"outcome"},
		),
		CoalescedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinfeed_refresh_coalesced_total",
				Help: "Refresh requests dropped because one was already in flight",
			},
			[]string{"source"},
		),
		RefreshDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "coinfeed_refresh_duration_seconds",
				Help:    "Duration of refresh cycles",
				Buckets: prometheus.DefBuckets,
			},
		),
		LastSuccessTimestamp: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "coinfeed_last_success_timestamp",
				Help: "Unix timestamp of the last published snapshot",
			},
		),
		Records: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "coinfeed_snapshot_records",
				Help: "Number of records in the current snapshot",
			},
		),
		SkippedRecordsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "coinfeed_skipped_records_total",
				Help: "Payload elements skipped for missing or non-scalar fields",
			},
		),
		Loading: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "coinfeed_refresh_loading",
				Help: "1 while a refresh cycle is in flight",
			},
		),
	}
}

// Observe is a refresh.Listener that records each transition
func (m *Metrics) Observe(ev refresh.Event) {
	switch ev.State {
	case refresh.Loading:
		m.Loading.Set(1)
		return
	case refresh.Idle:
		m.RefreshesTotal.WithLabelValues(OutcomeSuccess).Inc()
		m.LastSuccessTimestamp.Set(float64(ev.Snapshot.TakenAt().Unix()))
		m.Records.Set(float64(ev.Snapshot.Len()))
		m.SkippedRecordsTotal.Add(float64(ev.Skipped))
	case refresh.Failed:
		m.RefreshesTotal.WithLabelValues(Classify(ev.Err)).Inc()
	}
	m.Loading.Set(0)
	m.RefreshDurationSeconds.Observe(ev.Duration.Seconds())
}

// Coalesced counts a refresh request that was dropped
func (m *Metrics) Coalesced(source string) {
	m.CoalescedTotal.WithLabelValues(source).Inc()
}

// Classify maps a refresh failure to its outcome label
func Classify(err error) string {
	switch {
	case fetcher.IsNetwork(err):
		return OutcomeNetwork
	case fetcher.IsBadStatus(err):
		return OutcomeBadStatus
	case quote.IsMalformed(err):
		return OutcomeMalformed
	default:
		return OutcomeOther
	}
}
