package store

import (
	"chatsync/pkg/models"
)

// ApplyReconciled commits one reconciliation write-set (users, channels
// and messages) in a single batch, so a batch either lands fully or not
// at all. Messages go through the cache-observed path: rows are marked
// freshly observed and the sync outbox is left untouched.
func (s *Store) ApplyReconciled(users []*models.User, channels []*models.Channel, msgs []*models.Message) error {
	if s.db == nil {
		return ErrNotOpen
	}
	if len(users) == 0 && len(channels) == 0 && len(msgs) == 0 {
		return nil
	}
	wb := s.db.NewBatch()
	defer wb.Close()
	for _, u := range users {
		if err := setJSON(wb, userKey(u.ID), u); err != nil {
			return err
		}
	}
	for _, c := range channels {
		if err := setJSON(wb, channelKey(c.CID), c); err != nil {
			return err
		}
	}
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
		observedIDs = append(observedIDs, m.ID)
	}
	if err := s.apply(wb); err != nil {
		return err
	}
	s.markObserved(observedIDs)
	return nil
}
