// Package pagination holds the pure value objects describing bounded,
// directional fetch windows over channel, member, watcher and message
// collections.
package pagination

// Direction is the comparison applied to the message anchor id. The
// zero value means no message filter (first page).
type Direction int

const (
	None Direction = iota
	GreaterThan
	GreaterThanOrEqual
	LessThan
	LessThanOrEqual
)

func (d Direction) String() string {
	switch d {
	case GreaterThan:
		return "gt"
	case GreaterThanOrEqual:
		return "gte"
	case LessThan:
		return "lt"
	case LessThanOrEqual:
		return "lte"
	}
	return "none"
}

// Request describes one fetch window: independent (limit, offset) pairs
// for the channel, member and watcher pages, and a directional
// (limit, anchor, direction) triple for messages.
type Request struct {
	MessageLimit     int
	MessageDirection Direction
	MessageAnchorID  string

	ChannelLimit  int
	ChannelOffset int

	MemberLimit  int
	MemberOffset int

	WatcherLimit  int
	WatcherOffset int
}

// NewRequest returns a first-page request with the usual defaults.
func NewRequest(messageLimit int) Request {
	return Request{
		MessageLimit: messageLimit,
		ChannelLimit: 30,
		MemberLimit:  30,
		WatcherLimit: 30,
	}
}

// WithFilter sets the directional message filter relative to anchorID.
func (r Request) WithFilter(d Direction, anchorID string) Request {
	r.MessageDirection = d
	r.MessageAnchorID = anchorID
	return r
}

// HasFilter reports whether a message direction is set.
func (r Request) HasFilter() bool { return r.MessageDirection != None }

// IsFirstPage reports whether no message direction is set.
func (r Request) IsFirstPage() bool { return r.MessageDirection == None }

// IsFilteringNewer reports whether the request selects messages newer
// than the anchor.
func (r Request) IsFilteringNewer() bool {
	return r.MessageDirection == GreaterThan || r.MessageDirection == GreaterThanOrEqual
}

// IsFilteringOlder reports whether the request selects messages older
// than the anchor.
func (r Request) IsFilteringOlder() bool {
	return r.MessageDirection == LessThan || r.MessageDirection == LessThanOrEqual
}

// SliceIDs returns the (offset, limit) subsequence of ids. An offset at
// or past the end yields an empty slice, never an error.
func SliceIDs(ids []string, offset, limit int) []string {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(ids) {
		return []string{}
	}
	end := len(ids)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return ids[offset:end]
}
