package store

import (
	"strings"

	"github.com/cockroachdb/pebble"

	"chatsync/pkg/models"
)

// outboxIDs lists the ids under an outbox namespace whose stored status
// matches want.
func (s *Store) outboxIDs(prefix string, want models.SyncStatus) ([]string, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	lower := []byte(prefix)
	upper := []byte(prefix[:len(prefix)-1] + ";") // past "...:"
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var ids []string
	for ok := iter.First(); ok; ok = iter.Next() {
		if string(iter.Value()) != want.String() {
			continue
		}
		ids = append(ids, strings.TrimPrefix(string(iter.Key()), prefix))
	}
	return ids, iter.Error()
}

// SelectSyncNeededMessages returns every message awaiting a retry.
func (s *Store) SelectSyncNeededMessages() ([]*models.Message, error) {
	ids, err := s.outboxIDs(outboxMsgPrefix, models.SyncStatusSyncNeeded)
	if err != nil {
		return nil, err
	}
	return s.SelectMessages(ids)
}

// SelectSyncNeededReactions returns every reaction row awaiting a retry.
func (s *Store) SelectSyncNeededReactions() ([]*models.Reaction, error) {
	keys, err := s.outboxIDs(outboxReactPfx, models.SyncStatusSyncNeeded)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Reaction, 0, len(keys))
	for _, k := range keys {
		var r models.Reaction
		ok, err := s.get(reactionKey(k), &r)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, &r)
		}
	}
	return out, nil
}

// RequeuePending flips every PendingLocal outbox entry to SyncNeeded.
// Called on connection recovery: a write that was in flight when the
// connection dropped never got a server verdict, so it re-enters the
// retry sweep.
func (s *Store) RequeuePending() error {
	msgIDs, err := s.outboxIDs(outboxMsgPrefix, models.SyncStatusPendingLocal)
	if err != nil {
		return err
	}
	msgs, err := s.SelectMessages(msgIDs)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		m.SyncStatus = models.SyncStatusSyncNeeded
	}
	if err := s.UpsertMessages(msgs, false); err != nil {
		return err
	}

	reactKeys, err := s.outboxIDs(outboxReactPfx, models.SyncStatusPendingLocal)
	if err != nil {
		return err
	}
	var rs []*models.Reaction
	for _, k := range reactKeys {
		var r models.Reaction
		ok, err := s.get(reactionKey(k), &r)
		if err != nil {
			return err
		}
		if ok {
			r.SyncStatus = models.SyncStatusSyncNeeded
			rs = append(rs, &r)
		}
	}
	return s.UpsertReactions(rs)
}
