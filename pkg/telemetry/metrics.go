// Package telemetry exposes prometheus collectors for the sync core.
package telemetry

import "github.com/prometheus/client_golang/prometheus"

var (
	// BatchesReconciled counts reconcile invocations that committed.
	BatchesReconciled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chatsync_batches_reconciled_total",
		Help: "Total number of event batches reconciled into the local cache.",
	})
	// EventsApplied counts events whose mutation was applied, by kind.
	EventsApplied = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chatsync_events_applied_total",
		Help: "Total number of events whose mutation was applied.",
	}, []string{"kind"})
	// EventsSkipped counts events soft-skipped on a prefetch miss.
	EventsSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chatsync_events_skipped_total",
		Help: "Total number of events skipped because the referenced entity was absent.",
	}, []string{"kind"})
	// IntakeDropped counts raw event payloads dropped by a full intake queue.
	IntakeDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chatsync_intake_dropped_total",
		Help: "Total number of raw event payloads dropped due to a full intake queue.",
	})
	// IntakeDecodeErrors counts undecodable raw event payloads.
	IntakeDecodeErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chatsync_intake_decode_errors_total",
		Help: "Total number of raw event payloads that failed to decode.",
	})
	// RetryOutcomes counts retry sweep outcomes by entity and result.
	RetryOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chatsync_retry_outcomes_total",
		Help: "Total number of retry sweep outcomes.",
	}, []string{"entity", "outcome"})
	// StoreBatchWrites counts bulk upsert batches applied to the store.
	StoreBatchWrites = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chatsync_store_batch_writes_total",
		Help: "Total number of bulk upsert batches applied to the store.",
	})
)

func init() {
	prometheus.MustRegister(
		BatchesReconciled,
		EventsApplied,
		EventsSkipped,
		IntakeDropped,
		IntakeDecodeErrors,
		RetryOutcomes,
		StoreBatchWrites,
	)
}
