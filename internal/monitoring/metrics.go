package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DownloadsTotal tracks total number of downloads by outcome and kind
	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voddl_downloads_total",
			Help: "Total number of downloads",
		},
		[]string{"status", "kind"},
	)

	// DownloadDuration tracks transfer duration in seconds by kind
	DownloadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "voddl_download_duration_seconds",
			Help:    "Download transfer duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1h
		},
		[]string{"kind"},
	)

	// QueueSize tracks current queue depth
	QueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "voddl_queue_size",
			Help: "Current number of pending jobs",
		},
	)

	// DownloadBytesTotal tracks total bytes downloaded
	DownloadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voddl_download_bytes_total",
			Help: "Total bytes downloaded",
		},
	)

	// StoreSavesTotal tracks record store saves by result
	StoreSavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voddl_store_saves_total",
			Help: "Total number of record store saves",
		},
		[]string{"result"},
	)

	// ScanMatchesTotal tracks catalog items auto-recorded from directory scans
	ScanMatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voddl_scan_matches_total",
			Help: "Total catalog items matched against files found on disk",
		},
	)

	// ProviderRequestsTotal tracks catalog provider requests by action and status
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voddl_provider_requests_total",
			Help: "Total number of catalog provider API requests",
		},
		[]string{"action", "status"},
	)

	// ErrorsTotal tracks errors by type
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voddl_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type"},
	)
)

// RecordDownloadComplete records a completed download
func RecordDownloadComplete(kind string, duration time.Duration, bytes int64) {
	DownloadsTotal.WithLabelValues("completed", kind).Inc()
	DownloadDuration.WithLabelValues(kind).Observe(duration.Seconds())
	DownloadBytesTotal.Add(float64(bytes))
}

// RecordDownloadFailed records a failed download
func RecordDownloadFailed(kind string, errorType string) {
	DownloadsTotal.WithLabelValues("failed", kind).Inc()
	ErrorsTotal.WithLabelValues(errorType).Inc()
}

// RecordDownloadStopped records a download cancelled by a stop command
func RecordDownloadStopped(kind string) {
	DownloadsTotal.WithLabelValues("stopped", kind).Inc()
}

// UpdateQueueSize updates the queue size gauge
func UpdateQueueSize(size int) {
	QueueSize.Set(float64(size))
}

// RecordStoreSave records a record store save attempt
func RecordStoreSave(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	StoreSavesTotal.WithLabelValues(result).Inc()
}

// RecordProviderRequest records a catalog provider request
func RecordProviderRequest(action string, status string) {
	ProviderRequestsTotal.WithLabelValues(action, status).Inc()
}

// RecordError records an error
func RecordError(errorType string) {
	ErrorsTotal.WithLabelValues(errorType).Inc()
}
