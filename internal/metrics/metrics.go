// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Download results used as the "result" label.
const (
	ResultOK          = "ok"
	ResultFailed      = "failed"
	ResultTooLarge    = "too_large"
	ResultSendFailed  = "send_failed"
	ResultInvalidMode = "invalid_mode"
)

var (
	// Downloads counts finished /download requests by mode and outcome.
	Downloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediabot_downloads_total",
		Help: "Total download requests by mode and result",
	}, []string{"mode", "result"})

	// DownloadDuration tracks how long the extractor ran.
	DownloadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mediabot_download_duration_seconds",
		Help:    "Duration of extractor runs",
		Buckets: prometheus.ExponentialBuckets(0.5, 2.0, 12), // 0.5s to ~17min
	}, []string{"mode"})

	// DeliveredBytes counts bytes uploaded to chats.
	DeliveredBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediabot_delivered_bytes_total",
		Help: "Total bytes delivered to chats",
	}, []string{"mode"})

	// RejectedCommands counts commands refused before any download started.
	RejectedCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediabot_rejected_commands_total",
		Help: "Commands rejected before download",
	}, []string{"reason"})

	JobsQueued = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mediabot_jobs_queued",
		Help: "Jobs waiting for a worker slot",
	})

	JobsRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mediabot_jobs_running",
		Help: "Jobs currently running",
	})

	JobPanics = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediabot_job_panics_total",
		Help: "Jobs that panicked and were recovered",
	})

	// WebhookUpdates counts inbound webhook requests by outcome.
	WebhookUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediabot_webhook_updates_total",
		Help: "Inbound webhook requests by result",
	}, []string{"result"})
)

// ObserveDownload records the outcome of one request.
func ObserveDownload(mode, result string) {
	Downloads.WithLabelValues(mode, result).Inc()
}

// IncRejected records a command refused before download.
func IncRejected(reason string) {
	RejectedCommands.WithLabelValues(reason).Inc()
}
