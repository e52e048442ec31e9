// Package metrics registers the replica's ingest counters on the default
// prometheus registerer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IngestAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "estar_ingest_accepted_total",
		Help: "Documents that passed validation and entered the replica.",
	})

	IngestRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "estar_ingest_rejected_total",
		Help: "Documents rejected during ingest, by first violated rule.",
	}, []string{"reason"})

	IngestThrottled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "estar_ingest_throttled_total",
		Help: "Documents dropped by the per-author rate limiter.",
	})

	IngestObsolete = promauto.NewCounter(prometheus.CounterOpts{
		Name: "estar_ingest_obsolete_total",
		Help: "Valid documents discarded because a newer version was already stored.",
	})

	DocumentsPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "estar_documents_pruned_total",
		Help: "Ephemeral documents removed after their delete_after passed.",
	})
)
