// Package metrics provides Prometheus metrics for the shelf library.
//
// Nothing is served over the network; WriteTextfile dumps the default
// registry in the node_exporter textfile format when metrics are enabled.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Scan metrics
	scansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelf_scans_total",
			Help: "Total number of directory scans",
		},
		[]string{"root", "status"},
	)

	scanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shelf_scan_duration_seconds",
			Help:    "Directory scan duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"root"},
	)

	catalogEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shelf_catalog_entries",
			Help: "Number of entries in the most recent catalog",
		},
		[]string{"root"},
	)

	catalogBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shelf_catalog_bytes",
			Help: "Sum of known entry sizes in the most recent catalog",
		},
		[]string{"root"},
	)

	unknownEntriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shelf_unknown_entries_total",
			Help: "Entries dropped because no metadata could be read",
		},
	)

	// Thumbnail metrics
	thumbnailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelf_thumbnails_total",
			Help: "Thumbnail requests by result",
		},
		[]string{"result"}, // hit, miss, error
	)

	thumbnailDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shelf_thumbnail_generate_duration_seconds",
			Help:    "Time to decode, resize and encode one thumbnail",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		},
	)

	// Mutation metrics
	mutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelf_mutations_total",
			Help: "File mutations by operation and outcome",
		},
		[]string{"operation", "status"},
	)
)

// RecordScan records one completed scan.
func RecordScan(root, status string, entries int, bytes int64, duration time.Duration) {
	scansTotal.WithLabelValues(root, status).Inc()
	scanDuration.WithLabelValues(root).Observe(duration.Seconds())
	catalogEntries.WithLabelValues(root).Set(float64(entries))
	catalogBytes.WithLabelValues(root).Set(float64(bytes))
}

// RecordUnknownEntry counts an entry dropped for lack of metadata.
func RecordUnknownEntry() {
	unknownEntriesTotal.Inc()
}

// RecordThumbnailHit records a cache hit.
func RecordThumbnailHit() {
	thumbnailsTotal.WithLabelValues("hit").Inc()
}

// RecordThumbnailGenerated records a miss that produced a new thumbnail.
func RecordThumbnailGenerated(duration time.Duration) {
	thumbnailsTotal.WithLabelValues("miss").Inc()
	thumbnailDuration.Observe(duration.Seconds())
}

// RecordThumbnailError records a failed generation.
func RecordThumbnailError() {
	thumbnailsTotal.WithLabelValues("error").Inc()
}

// RecordMutation records a create, rename or delete.
func RecordMutation(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	mutationsTotal.WithLabelValues(operation, status).Inc()
}

// WriteTextfile writes the default registry to path. The file is written to
// a temporary name and renamed, so readers never see a partial file.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
