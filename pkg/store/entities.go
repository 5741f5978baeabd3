package store

import (
	"chatsync/pkg/models"
)

// SelectUsers returns the users present in the store for the given ids.
// Missing ids are silently absent from the result.
func (s *Store) SelectUsers(ids []string) ([]*models.User, error) {
	out := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		var u models.User
		ok, err := s.get(userKey(id), &u)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, &u)
		}
	}
	return out, nil
}

// SelectChannels returns the channels present in the store for the
// given cids.
func (s *Store) SelectChannels(cids []string) ([]*models.Channel, error) {
	out := make([]*models.Channel, 0, len(cids))
	for _, cid := range cids {
		var c models.Channel
		ok, err := s.get(channelKey(cid), &c)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, &c)
		}
	}
	return out, nil
}

// SelectMessages returns the messages present in the store for the
// given ids.
func (s *Store) SelectMessages(ids []string) ([]*models.Message, error) {
	out := make([]*models.Message, 0, len(ids))
	for _, id := range ids {
		var m models.Message
		ok, err := s.get(msgKey(id), &m)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, &m)
		}
	}
	return out, nil
}

// SelectMessage returns one message, or nil when absent.
func (s *Store) SelectMessage(id string) (*models.Message, error) {
	var m models.Message
	ok, err := s.get(msgKey(id), &m)
	if err != nil || !ok {
		return nil, err
	}
	return &m, nil
}

// SelectChannel returns one channel, or nil when absent.
func (s *Store) SelectChannel(cid string) (*models.Channel, error) {
	var c models.Channel
	ok, err := s.get(channelKey(cid), &c)
	if err != nil || !ok {
		return nil, err
	}
	return &c, nil
}

// UpsertUsers writes the given user snapshots in one batch.
func (s *Store) UpsertUsers(users []*models.User) error {
	if len(users) == 0 {
		return nil
	}
	wb := s.db.NewBatch()
	defer wb.Close()
	for _, u := range users {
		if err := setJSON(wb, userKey(u.ID), u); err != nil {
			return err
		}
	}
	return s.apply(wb)
}

// UpsertChannels writes the given channels in one batch.
func (s *Store) UpsertChannels(channels []*models.Channel) error {
	if len(channels) == 0 {
		return nil
	}
	wb := s.db.NewBatch()
	defer wb.Close()
	for _, c := range channels {
		if err := setJSON(wb, channelKey(c.CID), c); err != nil {
			return err
		}
	}
	return s.apply(wb)
}

// UpsertMessages writes the given messages and their per-channel
// ordering index entries in one batch. cacheObserved selects the write
// path used by the reconciliation engine for server-observed state: it
// marks rows freshly cache-observed and leaves the sync outbox alone,
// so retry bookkeeping is never perturbed by cache-only updates. Local
// write paths pass cacheObserved=false, which keeps the outbox index
// consistent with each message's sync status.
func (s *Store) UpsertMessages(msgs []*models.Message, cacheObserved bool) error {
	if len(msgs) == 0 {
		return nil
	}
	wb := s.db.NewBatch()
	defer wb.Close()
	observedIDs := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if err := setJSON(wb, msgKey(m.ID), m); err != nil {
			return err
		}
		if m.CID != "" && !m.CreatedAt.IsZero() {
			if err := wb.Set(chanMsgKey(m.CID, m.CreatedAt, m.ID), []byte(m.ID), nil); err != nil {
				return err
			}
		}
		if cacheObserved {
			observedIDs = append(observedIDs, m.ID)
			continue
		}
		switch m.SyncStatus {
		case models.SyncStatusPendingLocal, models.SyncStatusSyncNeeded:
			if err := wb.Set(outboxMsgKey(m.ID), []byte(m.SyncStatus.String()), nil); err != nil {
				return err
			}
		default:
			if err := wb.Delete(outboxMsgKey(m.ID), nil); err != nil {
				return err
			}
		}
	}
	if err := s.apply(wb); err != nil {
		return err
	}
	s.markObserved(observedIDs)
	return nil
}

// UpsertReactions writes locally authored reaction rows and keeps the
// reaction outbox consistent with their sync status. Reaction rows only
// exist for retry bookkeeping; reconciled server state lives inside the
// message windows.
func (s *Store) UpsertReactions(rs []*models.Reaction) error {
	if len(rs) == 0 {
		return nil
	}
	wb := s.db.NewBatch()
	defer wb.Close()
	for _, r := range rs {
		if err := setJSON(wb, reactionKey(r.Key()), r); err != nil {
			return err
		}
		switch r.SyncStatus {
		case models.SyncStatusPendingLocal, models.SyncStatusSyncNeeded:
			if err := wb.Set(outboxReactionKey(r.Key()), []byte(r.SyncStatus.String()), nil); err != nil {
				return err
			}
		default:
			if err := wb.Delete(outboxReactionKey(r.Key()), nil); err != nil {
				return err
			}
		}
	}
	return s.apply(wb)
}

// UpsertQuery persists a channel-list query entity.
func (s *Store) UpsertQuery(q *models.QueryChannels) error {
	wb := s.db.NewBatch()
	defer wb.Close()
	if err := setJSON(wb, queryKey(q.ID), q); err != nil {
		return err
	}
	return s.apply(wb)
}

// SelectQuery returns the cached query entity for the given identity,
// or nil when absent.
func (s *Store) SelectQuery(id string) (*models.QueryChannels, error) {
	var q models.QueryChannels
	ok, err := s.get(queryKey(id), &q)
	if err != nil || !ok {
		return nil, err
	}
	return &q, nil
}

// SessionState holds the session-wide unread summaries applied during
// batch commit.
type SessionState struct {
	UnreadChannels   int `json:"unread_channels"`
	TotalUnreadCount int `json:"total_unread_count"`
}

// SaveSessionState persists the session unread summaries.
func (s *Store) SaveSessionState(st SessionState) error {
	wb := s.db.NewBatch()
	defer wb.Close()
	if err := setJSON(wb, []byte(sessionStateKey), st); err != nil {
		return err
	}
	return s.apply(wb)
}

// SessionState returns the stored session unread summaries.
func (s *Store) SessionState() (SessionState, error) {
	var st SessionState
	if _, err := s.get([]byte(sessionStateKey), &st); err != nil {
		return SessionState{}, err
	}
	return st, nil
}

// DeleteMessage removes a message row. The channel index entry is left
// behind and resolves to nothing on read.
func (s *Store) DeleteMessage(id string) error {
	if s.db == nil {
		return ErrNotOpen
	}
	wb := s.db.NewBatch()
	defer wb.Close()
	if err := wb.Delete(msgKey(id), nil); err != nil {
		return err
	}
	if err := wb.Delete(outboxMsgKey(id), nil); err != nil {
		return err
	}
	return s.apply(wb)
}
