// Package metrics exposes ingestion and query counters to Prometheus.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without a registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ladcache"

// Metrics holds the collectors for one process.
type Metrics struct {
	framesTotal    *prometheus.CounterVec
	frameBytes     *prometheus.CounterVec
	frameErrors    *prometheus.CounterVec
	skippedBytes   *prometheus.CounterVec
	recordsStored  *prometheus.CounterVec
	storeErrors    prometheus.Counter
	activeStreams  prometheus.Gauge
	queryDuration  *prometheus.HistogramVec
	queryResults   *prometheus.CounterVec
	queryErrors    *prometheus.CounterVec
	conversionErrs *prometheus.CounterVec
	droppedMsgs    *prometheus.CounterVec
	removed        *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil registerer
// yields a nil *Metrics.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &Metrics{
		framesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "frames_total",
			Help:      "Frames decoded into records",
		}, []string{"source"}),

		frameBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "frame_bytes_total",
			Help:      "Bytes of decoded frames, length field included",
		}, []string{"source"}),

		frameErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "frame_errors_total",
			Help:      "Frames lost to framing or decode errors",
		}, []string{"source", "kind"}),

		skippedBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "resync_skipped_bytes_total",
			Help:      "Bytes discarded while searching for a frame marker",
		}, []string{"source"}),

		recordsStored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "records_inserted_total",
			Help:      "Records inserted into the store",
		}, []string{"kind"}),

		storeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "insert_errors_total",
			Help:      "Records the store refused",
		}),

		activeStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "active_streams",
			Help:      "Streams currently being ingested",
		}),

		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Query latency",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"op"}),

		queryResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "results_total",
			Help:      "Records returned by queries",
		}, []string{"op"}),

		queryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "errors_total",
			Help:      "Failed queries",
		}, []string{"op"}),

		conversionErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconstruct",
			Name:      "errors_total",
			Help:      "Records skipped because they could not be reconstructed",
		}, []string{"kind"}),

		droppedMsgs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "dropped_messages_total",
			Help:      "Transport messages discarded before framing, leaving a gap in the stream",
		}, []string{"source"}),

		removed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "records_removed_total",
			Help:      "Records removed by pruning or reaping",
		}, []string{"reason"}),
	}

	for _, c := range []prometheus.Collector{
		m.framesTotal, m.frameBytes, m.frameErrors, m.skippedBytes,
		m.recordsStored, m.storeErrors, m.activeStreams,
		m.queryDuration, m.queryResults, m.queryErrors, m.conversionErrs,
		m.droppedMsgs, m.removed,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// FrameDecoded counts one record framed from source.
func (m *Metrics) FrameDecoded(source string, length uint32) {
	if m == nil {
		return
	}
	m.framesTotal.WithLabelValues(source).Inc()
	m.frameBytes.WithLabelValues(source).Add(float64(length))
}

// FrameError counts one lost frame. kind is "framing" or "decode".
func (m *Metrics) FrameError(source, kind string) {
	if m == nil {
		return
	}
	m.frameErrors.WithLabelValues(source, kind).Inc()
}

// BytesSkipped counts bytes dropped during marker search.
func (m *Metrics) BytesSkipped(source string, n uint64) {
	if m == nil || n == 0 {
		return
	}
	m.skippedBytes.WithLabelValues(source).Add(float64(n))
}

// RecordStored counts one inserted record, or one refused record when err
// is non-nil.
func (m *Metrics) RecordStored(kind string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.storeErrors.Inc()
		return
	}
	m.recordsStored.WithLabelValues(kind).Inc()
}

// StreamOpened increments the active stream gauge.
func (m *Metrics) StreamOpened() {
	if m == nil {
		return
	}
	m.activeStreams.Inc()
}

// StreamClosed decrements the active stream gauge.
func (m *Metrics) StreamClosed() {
	if m == nil {
		return
	}
	m.activeStreams.Dec()
}

// QueryDone records one query's latency and outcome.
func (m *Metrics) QueryDone(op string, d time.Duration, results int, err error) {
	if m == nil {
		return
	}
	m.queryDuration.WithLabelValues(op).Observe(d.Seconds())
	if err != nil {
		m.queryErrors.WithLabelValues(op).Inc()
		return
	}
	m.queryResults.WithLabelValues(op).Add(float64(results))
}

// ConversionFailed counts one record the reconstructor skipped.
func (m *Metrics) ConversionFailed(kind string) {
	if m == nil {
		return
	}
	m.conversionErrs.WithLabelValues(kind).Inc()
}

// MessagesDropped counts transport messages lost before framing.
func (m *Metrics) MessagesDropped(source string, n uint64) {
	if m == nil || n == 0 {
		return
	}
	m.droppedMsgs.WithLabelValues(source).Add(float64(n))
}

// RecordsRemoved counts records removed from the store. reason is "pruned"
// or "reaped".
func (m *Metrics) RecordsRemoved(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.removed.WithLabelValues(reason).Add(float64(n))
}
