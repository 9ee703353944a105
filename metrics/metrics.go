package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// DiagnosesTotal counts completed diagnosis requests by outcome.
	DiagnosesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "skinchecker",
		Subsystem: "diagnosis",
		Name:      "requests_total",
		Help:      "Total number of diagnosis requests, labeled by result.",
	}, []string{"result"})

	// DiagnosisDurationSeconds is end-to-end time per diagnosis, including
	// the backend call.
	DiagnosisDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "skinchecker",
		Subsystem: "diagnosis",
		Name:      "duration_seconds",
		Help:      "End-to-end time to serve a diagnosis request.",
		// Vision backends routinely take tens of seconds; keep the upper
		// buckets wide.
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60, 120, 180},
	}, []string{"result"})

	// UploadRejectedTotal counts uploads rejected before reaching the
	// backend, labeled by reason.
	UploadRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "skinchecker",
		Subsystem: "diagnosis",
		Name:      "upload_rejected_total",
		Help:      "Total number of uploads rejected during validation, labeled by reason.",
	}, []string{"reason"})

	// NormalizedImageBytes observes the encoded size actually sent to the
	// backend after normalization.
	NormalizedImageBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "skinchecker",
		Subsystem: "diagnosis",
		Name:      "normalized_image_bytes",
		Help:      "Size of the normalized image sent to the backend.",
		Buckets:   prometheus.ExponentialBuckets(16*1024, 2, 7),
	})
)

// Register registers service metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			DiagnosesTotal,
			DiagnosisDurationSeconds,
			UploadRejectedTotal,
			NormalizedImageBytes,
		)
	})
}
