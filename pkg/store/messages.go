package store

import (
	"github.com/cockroachdb/pebble"

	"chatsync/pkg/models"
	"chatsync/pkg/pagination"
)

// SelectMessagesForChannel returns a bounded window of a channel's
// messages around the request's anchor, always in creation order
// (oldest first). The limit window hugs the anchor on the requested
// side: a "greater" comparison takes the oldest qualifying rows, a
// "less" comparison the newest qualifying rows. A first-page request
// (no comparison) returns the newest rows of the channel. An unknown
// anchor yields an empty result.
func (s *Store) SelectMessagesForChannel(cid string, p pagination.Request) ([]*models.Message, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	limit := p.MessageLimit
	if limit <= 0 {
		limit = 30
	}

	lower, upper := chanMsgBounds(cid)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var anchorKey []byte
	if p.HasFilter() {
		anchor, err := s.SelectMessage(p.MessageAnchorID)
		if err != nil {
			return nil, err
		}
		if anchor == nil {
			return []*models.Message{}, nil
		}
		anchorKey = chanMsgKey(cid, anchor.CreatedAt, anchor.ID)
	}

	var ids []string
	switch p.MessageDirection {
	case pagination.GreaterThan:
		for ok := iter.SeekGE(anchorKey); ok && len(ids) < limit; ok = iter.Next() {
			if string(iter.Key()) == string(anchorKey) {
				continue
			}
			ids = append(ids, string(iter.Value()))
		}
	case pagination.GreaterThanOrEqual:
		for ok := iter.SeekGE(anchorKey); ok && len(ids) < limit; ok = iter.Next() {
			ids = append(ids, string(iter.Value()))
		}
	case pagination.LessThan:
		for ok := iter.SeekLT(anchorKey); ok && len(ids) < limit; ok = iter.Prev() {
			ids = append(ids, string(iter.Value()))
		}
		reverse(ids)
	case pagination.LessThanOrEqual:
		// Include the anchor itself: seek strictly past it, then walk back.
		for ok := iter.SeekLT(append(anchorKey, 0)); ok && len(ids) < limit; ok = iter.Prev() {
			ids = append(ids, string(iter.Value()))
		}
		reverse(ids)
	default:
		// First page: the newest rows in the channel.
		for ok := iter.Last(); ok && len(ids) < limit; ok = iter.Prev() {
			ids = append(ids, string(iter.Value()))
		}
		reverse(ids)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}

	// Index entries may outlive their message row; resolve and drop
	// stale ones.
	return s.SelectMessages(ids)
}

func reverse(ids []string) {
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
}
