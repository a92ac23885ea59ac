package syncer

import "github.com/prometheus/client_golang/prometheus"

var (
	entriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gymsync",
		Subsystem: "sync",
		Name:      "queue_entries_total",
		Help:      "Sync queue entries processed, labeled by operation and result.",
	}, []string{"op", "result"})

	queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gymsync",
		Subsystem: "sync",
		Name:      "queue_retained_entries",
		Help:      "Entries left in the queue after the most recent pass.",
	})

	fullSyncsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gymsync",
		Subsystem: "sync",
		Name:      "full_syncs_total",
		Help:      "Full reconciliations attempted, labeled by result.",
	}, []string{"result"})

	fullSyncDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "gymsync",
		Subsystem: "sync",
		Name:      "full_sync_duration_seconds",
		Help:      "Time spent draining, fetching, and reconciling in a full sync.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	monthFetchFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gymsync",
		Subsystem: "sync",
		Name:      "partition_fetch_failures_total",
		Help:      "Remote monthly partitions that could not be fetched during a full sync.",
	})

	lastFullSync = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gymsync",
		Subsystem: "sync",
		Name:      "last_full_sync_timestamp_seconds",
		Help:      "Unix time of the last successful full sync.",
	})
)

func init() {
	prometheus.MustRegister(entriesTotal, queueDepth, fullSyncsTotal, fullSyncDuration, monthFetchFailures, lastFullSync)
}
