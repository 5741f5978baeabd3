package syncer

import (
	"context"

	"chatsync/pkg/logger"
	"chatsync/pkg/models"
	"chatsync/pkg/remote"
	"chatsync/pkg/telemetry"
)

// Sweep replays every SyncNeeded message and reaction against the
// server, rate limited, and records per-entity outcomes. A retryable
// failure leaves the entity SyncNeeded for the next sweep.
func (s *Syncer) Sweep(ctx context.Context) error {
	if !s.isOnline() {
		return nil
	}
	msgs, err := s.store.SelectSyncNeededMessages()
	if err != nil {
		return err
	}
	for _, m := range msgs {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		s.replayMessage(ctx, m)
	}
	reactions, err := s.store.SelectSyncNeededReactions()
	if err != nil {
		return err
	}
	for _, r := range reactions {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		s.replayReaction(ctx, r)
	}
	return nil
}

func (s *Syncer) replayMessage(ctx context.Context, m *models.Message) {
	var (
		confirmed *models.Message
		err       error
	)
	switch m.SyncOp {
	case opEdit:
		confirmed, err = s.remote.EditMessage(ctx, m)
	case opDelete:
		err = s.remote.DeleteMessage(ctx, m.ID)
	default:
		confirmed, err = s.remote.SendMessage(ctx, m)
		// A duplicate response means an earlier attempt already
		// landed; treat it as confirmation.
		if rerr, ok := remote.AsError(err); ok && rerr.Code == remote.CodeDuplicate {
			err = nil
		}
	}
	s.recordOutcome("message", err)
	if terr := s.transition(m, confirmed, err); terr != nil {
		logger.Error("sweep_message_store", "id", m.ID, "error", terr)
	}
}

func (s *Syncer) replayReaction(ctx context.Context, r *models.Reaction) {
	var err error
	if r.Deleted {
		err = s.remote.DeleteReaction(ctx, r)
	} else {
		_, err = s.remote.SendReaction(ctx, r)
		if rerr, ok := remote.AsError(err); ok && rerr.Code == remote.CodeDuplicate {
			err = nil
		}
	}
	s.recordOutcome("reaction", err)
	if terr := s.transitionReaction(r, err); terr != nil {
		logger.Error("sweep_reaction_store", "key", r.Key(), "error", terr)
	}
}

func (s *Syncer) recordOutcome(entity string, err error) {
	switch {
	case err == nil:
		telemetry.RetryOutcomes.WithLabelValues(entity, "confirmed").Inc()
	case remote.IsPermanent(err):
		telemetry.RetryOutcomes.WithLabelValues(entity, "permanent").Inc()
		logger.Warn("sweep_permanent_failure", "entity", entity, "error", err)
	default:
		telemetry.RetryOutcomes.WithLabelValues(entity, "retry").Inc()
	}
}

// ConnectivityHook bridges engine connectivity callbacks into the
// syncer: a reconnect requeues offline writes and sweeps them.
type ConnectivityHook struct {
	Syncer *Syncer
}

func (h *ConnectivityHook) WentOffline() {}
func (h *ConnectivityHook) WentOnline()  {}
func (h *ConnectivityHook) Initialized() {}

// Recovered requeues PendingLocal writes and replays them after a
// dropped connection is reestablished.
func (h *ConnectivityHook) Recovered(reconnect bool) {
	if !reconnect {
		return
	}
	if err := h.Syncer.store.RequeuePending(); err != nil {
		logger.Error("recovery_requeue", "error", err)
		return
	}
	if err := h.Syncer.Sweep(context.Background()); err != nil {
		logger.Error("recovery_sweep", "error", err)
	}
}
