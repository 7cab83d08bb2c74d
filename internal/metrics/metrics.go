// Package metrics holds the Prometheus collectors for backup jobs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsTotal counts jobs that reached a terminal state.
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buddybox_backup_jobs_total",
			Help: "Backup jobs finished, by kind and terminal status",
		},
		[]string{"kind", "status"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "buddybox_backup_job_duration_seconds",
			Help:    "Wall time from job start to terminal state",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 1800, 3600, 7200},
		},
		[]string{"kind"},
	)

	JobsInProgress = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "buddybox_backup_jobs_in_progress",
		Help: "Backup jobs currently executing in this process",
	})

	ProducerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buddybox_producer_failures_total",
			Help: "Producer units that failed within otherwise continuing jobs",
		},
		[]string{"producer"},
	)

	ArchiveBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "buddybox_archive_size_bytes",
		Help:    "Size of completed backup archives",
		Buckets: prometheus.ExponentialBuckets(1<<20, 4, 10),
	})

	RetentionDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "buddybox_retention_deleted_total",
		Help: "Automated backups removed by the retention policy",
	})

	MetadataWriteRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "buddybox_metadata_write_retries_total",
		Help: "Retried terminal metadata writes",
	})
)
