package models

// SyncStatus tracks the lifecycle of an entity created or mutated by a
// local write relative to server confirmation.
type SyncStatus int

const (
	// SyncStatusCompleted means the server confirmed the write. This is
	// the default for entities that arrive from the server.
	SyncStatusCompleted SyncStatus = iota
	// SyncStatusPendingLocal means the entity was created or changed
	// while offline, or a remote call for it is still in flight.
	SyncStatusPendingLocal
	// SyncStatusSyncNeeded means the remote call failed with a retryable
	// condition; the entity is eligible for the next retry sweep.
	SyncStatusSyncNeeded
	// SyncStatusFailedPermanently is terminal; the remote call failed
	// with a non-retryable condition and is never retried automatically.
	SyncStatusFailedPermanently
)

func (s SyncStatus) String() string {
	switch s {
	case SyncStatusCompleted:
		return "completed"
	case SyncStatusPendingLocal:
		return "pending_local"
	case SyncStatusSyncNeeded:
		return "sync_needed"
	case SyncStatusFailedPermanently:
		return "failed_permanently"
	}
	return "unknown"
}
