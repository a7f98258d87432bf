package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "zepp_bridge_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	ingestRequests   *prometheus.CounterVec
	ingestRejections *prometheus.CounterVec
	ingestLatency    *prometheus.HistogramVec

	deviceErrors prometheus.Counter

	notifySends    *prometheus.CounterVec
	snapshotWrites *prometheus.CounterVec

	exportTotal *prometheus.CounterVec
)

// Init registers bridge metrics.
func Init() {
	registerOnce.Do(func() {
		ingestRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_requests_total",
				Help: "Total webhook ingest requests by result",
			},
			[]string{"result"},
		)
		ingestRejections = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_rejections_total",
				Help: "Total rejected webhook requests by reason",
			},
			[]string{"reason"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Webhook ingest latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		deviceErrors = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "device_reported_errors_total",
				Help: "Total device-reported errors captured from payloads",
			},
		)

		notifySends = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "notify_sends_total",
				Help: "Total outbound notifications by result",
			},
			[]string{"result"},
		)
		snapshotWrites = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "snapshot_writes_total",
				Help: "Total payload snapshot writes by result",
			},
			[]string{"result"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "summary_exports_total",
				Help: "Total summary exports by format and result",
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			ingestRequests,
			ingestRejections,
			ingestLatency,
			deviceErrors,
			notifySends,
			snapshotWrites,
			exportTotal,
		)
	})
}

// ObserveIngest records ingest request duration and result.
func ObserveIngest(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if ingestRequests != nil {
		ingestRequests.WithLabelValues(result).Inc()
	}
	if ingestLatency != nil {
		ingestLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncIngestRejection increments the rejection counter.
func IncIngestRejection(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if ingestRejections != nil {
		ingestRejections.WithLabelValues(reason).Inc()
	}
}

// IncDeviceError counts a device-reported error.
func IncDeviceError() {
	if deviceErrors != nil {
		deviceErrors.Inc()
	}
}

// IncNotifySend counts an outbound notification attempt.
func IncNotifySend(result string) {
	if result == "" {
		result = resultSuccess
	}
	if notifySends != nil {
		notifySends.WithLabelValues(result).Inc()
	}
}

// IncSnapshotWrite counts a payload snapshot write.
func IncSnapshotWrite(result string) {
	if result == "" {
		result = resultSuccess
	}
	if snapshotWrites != nil {
		snapshotWrites.WithLabelValues(result).Inc()
	}
}

// IncExport counts a summary export.
func IncExport(format, result string) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError

	RejectionRateLimited    = "rate_limited"
	RejectionInvalidJSON    = "invalid_json"
	RejectionInvalidPayload = "invalid_payload"
	RejectionUnknownDevice  = "unknown_device"
)
