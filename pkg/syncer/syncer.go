// Package syncer reconciles optimistic local writes with eventual
// server confirmation: it owns the per-entity sync-status state machine
// and the retry sweep that replays failed writes.
package syncer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"chatsync/pkg/logger"
	"chatsync/pkg/models"
	"chatsync/pkg/remote"
	"chatsync/pkg/store"
)

// Replay operations recorded on pending messages.
const (
	opSend   = "send"
	opEdit   = "edit"
	opDelete = "delete"
)

// Syncer applies local writes optimistically to the store and drives
// them to server confirmation.
type Syncer struct {
	store  *store.Store
	remote remote.Client
	userID string

	// online reports current connectivity; writes made while offline
	// stay PendingLocal until recovery requeues them.
	online func() bool

	// limiter bounds remote replay calls during a sweep.
	limiter *rate.Limiter
}

// New builds a syncer for the session user. online may be nil, in which
// case the syncer assumes connectivity.
func New(st *store.Store, client remote.Client, userID string, online func() bool, rps float64, burst int) *Syncer {
	if rps <= 0 {
		rps = 10
	}
	if burst <= 0 {
		burst = 1
	}
	return &Syncer{
		store:   st,
		remote:  client,
		userID:  userID,
		online:  online,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (s *Syncer) isOnline() bool {
	return s.online == nil || s.online()
}

// GenerateMessageID returns a locally generated, stable identifier for
// an optimistic write. The server recognizes a retried call carrying
// the same id as a re-send of the same logical write, which makes the
// sweep safely repeatable.
func (s *Syncer) GenerateMessageID() string {
	return s.userID + "-" + uuid.NewString()
}

// transition applies the success/retryable/permanent rule to a message
// after a remote call and persists it.
func (s *Syncer) transition(m *models.Message, confirmed *models.Message, err error) error {
	switch {
	case err == nil:
		if confirmed != nil {
			keepLocal(confirmed, m)
			*m = *confirmed
		}
		m.SyncStatus = models.SyncStatusCompleted
		m.SyncOp = ""
	case remote.IsPermanent(err):
		m.SyncStatus = models.SyncStatusFailedPermanently
	default:
		m.SyncStatus = models.SyncStatusSyncNeeded
	}
	return s.store.UpsertMessages([]*models.Message{m}, false)
}

// keepLocal preserves identity fields the server response may omit.
func keepLocal(confirmed, local *models.Message) {
	if confirmed.ID == "" {
		confirmed.ID = local.ID
	}
	if confirmed.CID == "" {
		confirmed.CID = local.CID
	}
	if confirmed.UserID == "" {
		confirmed.UserID = local.UserID
	}
	if confirmed.CreatedAt.IsZero() {
		confirmed.CreatedAt = local.CreatedAt
	}
}

// SendMessage stores the message immediately and attempts the remote
// send. Offline creates stay PendingLocal; a retryable failure leaves
// the message SyncNeeded for the next sweep; a permanent failure is
// terminal and returned to the caller.
func (s *Syncer) SendMessage(ctx context.Context, m *models.Message) (*models.Message, error) {
	if m.ID == "" {
		m.ID = s.GenerateMessageID()
	}
	if m.UserID == "" {
		m.UserID = s.userID
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m.SyncStatus = models.SyncStatusPendingLocal
	m.SyncOp = opSend
	if err := s.store.UpsertMessages([]*models.Message{m}, false); err != nil {
		return nil, err
	}
	if !s.isOnline() {
		logger.Debug("send_message_offline", "id", m.ID)
		return m, nil
	}
	confirmed, err := s.remote.SendMessage(ctx, m)
	if terr := s.transition(m, confirmed, err); terr != nil {
		return m, terr
	}
	return m, err
}

// EditMessage stores the edit immediately and attempts the remote call.
func (s *Syncer) EditMessage(ctx context.Context, m *models.Message) (*models.Message, error) {
	m.UpdatedAt = time.Now().UTC()
	m.SyncStatus = models.SyncStatusPendingLocal
	m.SyncOp = opEdit
	if err := s.store.UpsertMessages([]*models.Message{m}, false); err != nil {
		return nil, err
	}
	if !s.isOnline() {
		return m, nil
	}
	confirmed, err := s.remote.EditMessage(ctx, m)
	if terr := s.transition(m, confirmed, err); terr != nil {
		return m, terr
	}
	return m, err
}

// DeleteMessage soft-deletes locally and attempts the remote delete.
func (s *Syncer) DeleteMessage(ctx context.Context, id string) (*models.Message, error) {
	m, err := s.store.SelectMessage(id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, nil
	}
	now := time.Now().UTC()
	m.DeletedAt = &now
	m.SyncStatus = models.SyncStatusPendingLocal
	m.SyncOp = opDelete
	if err := s.store.UpsertMessages([]*models.Message{m}, false); err != nil {
		return nil, err
	}
	if !s.isOnline() {
		return m, nil
	}
	err = s.remote.DeleteMessage(ctx, m.ID)
	if terr := s.transition(m, nil, err); terr != nil {
		return m, terr
	}
	return m, err
}

// transitionReaction persists a reaction's post-call state.
func (s *Syncer) transitionReaction(r *models.Reaction, err error) error {
	switch {
	case err == nil:
		r.SyncStatus = models.SyncStatusCompleted
	case remote.IsPermanent(err):
		r.SyncStatus = models.SyncStatusFailedPermanently
	default:
		r.SyncStatus = models.SyncStatusSyncNeeded
	}
	return s.store.UpsertReactions([]*models.Reaction{r})
}

// SendReaction merges the reaction into its message optimistically and
// attempts the remote call.
func (s *Syncer) SendReaction(ctx context.Context, r *models.Reaction) (*models.Reaction, error) {
	if r.UserID == "" {
		r.UserID = s.userID
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if m, err := s.store.SelectMessage(r.MessageID); err != nil {
		return nil, err
	} else if m != nil {
		m.AddReaction(*r, r.UserID == s.userID)
		if err := s.store.UpsertMessages([]*models.Message{m}, false); err != nil {
			return nil, err
		}
	}
	r.SyncStatus = models.SyncStatusPendingLocal
	if err := s.store.UpsertReactions([]*models.Reaction{r}); err != nil {
		return nil, err
	}
	if !s.isOnline() {
		return r, nil
	}
	_, err := s.remote.SendReaction(ctx, r)
	if terr := s.transitionReaction(r, err); terr != nil {
		return r, terr
	}
	return r, err
}

// DeleteReaction removes the reaction from its message optimistically
// and attempts the remote call.
func (s *Syncer) DeleteReaction(ctx context.Context, r *models.Reaction) (*models.Reaction, error) {
	if r.UserID == "" {
		r.UserID = s.userID
	}
	if m, err := s.store.SelectMessage(r.MessageID); err != nil {
		return nil, err
	} else if m != nil {
		m.RemoveReaction(*r, true)
		if err := s.store.UpsertMessages([]*models.Message{m}, false); err != nil {
			return nil, err
		}
	}
	r.Deleted = true
	r.SyncStatus = models.SyncStatusPendingLocal
	if err := s.store.UpsertReactions([]*models.Reaction{r}); err != nil {
		return nil, err
	}
	if !s.isOnline() {
		return r, nil
	}
	err := s.remote.DeleteReaction(ctx, r)
	if terr := s.transitionReaction(r, err); terr != nil {
		return r, terr
	}
	return r, err
}
