package models

import (
	"sort"
	"time"
)

// SortOption is one field of a channel-list sort specification.
// Direction is 1 for ascending, -1 for descending.
type SortOption struct {
	Field     string `json:"field"`
	Direction int    `json:"direction"`
}

// QueryChannels is a cached channel-list query result. ID is the stable
// identity derived from the normalized filter plus the sort spec; two
// descriptors that normalize identically share one entity.
type QueryChannels struct {
	ID     string         `json:"id"`
	Filter map[string]any `json:"filter"`
	Sort   []SortOption   `json:"sort,omitempty"`

	// CIDs is the ordered, duplicate-free set of member channel ids.
	CIDs []string `json:"cids,omitempty"`

	// Creation/update timestamps are tracked for staleness decisions;
	// the staleness policy itself is left to callers.
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// AddCID inserts cid into the sorted set, reporting whether it was new.
func (q *QueryChannels) AddCID(cid string) bool {
	i := sort.SearchStrings(q.CIDs, cid)
	if i < len(q.CIDs) && q.CIDs[i] == cid {
		return false
	}
	q.CIDs = append(q.CIDs, "")
	copy(q.CIDs[i+1:], q.CIDs[i:])
	q.CIDs[i] = cid
	return true
}

// RemoveCID drops cid from the set, reporting whether it was present.
func (q *QueryChannels) RemoveCID(cid string) bool {
	i := sort.SearchStrings(q.CIDs, cid)
	if i >= len(q.CIDs) || q.CIDs[i] != cid {
		return false
	}
	q.CIDs = append(q.CIDs[:i], q.CIDs[i+1:]...)
	return true
}
