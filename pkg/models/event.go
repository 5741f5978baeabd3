package models

import "time"

// EventKind enumerates the closed set of event kinds the engine handles.
// The reconciliation switch over kinds is exhaustive; adding a kind here
// means extending that switch.
type EventKind string

const (
	EventMessageNew     EventKind = "message.new"
	EventMessageUpdated EventKind = "message.updated"
	EventMessageDeleted EventKind = "message.deleted"
	EventMessageRead    EventKind = "message.read"

	EventReactionNew     EventKind = "reaction.new"
	EventReactionDeleted EventKind = "reaction.deleted"

	EventMemberAdded   EventKind = "member.added"
	EventMemberRemoved EventKind = "member.removed"
	EventMemberUpdated EventKind = "member.updated"

	EventChannelUpdated EventKind = "channel.updated"
	EventChannelHidden  EventKind = "channel.hidden"
	EventChannelDeleted EventKind = "channel.deleted"

	// EventNotificationAddedToChannel tells list consumers the session
	// user was added to a channel they may not track yet.
	EventNotificationAddedToChannel EventKind = "notification.added_to_channel"

	EventConnected    EventKind = "connection.connected"
	EventDisconnected EventKind = "connection.disconnected"
)

// ChatEvent is one server-originated event. Kind selects which payload
// pointers are populated; the rest stay nil. Order within a batch is
// significant and preserved through dispatch.
type ChatEvent struct {
	Kind      EventKind `json:"type"`
	CID       string    `json:"cid,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`

	// User is the acting user, when the event carries one.
	User *User `json:"user,omitempty"`

	Message  *Message  `json:"message,omitempty"`
	Reaction *Reaction `json:"reaction,omitempty"`
	Member   *Member   `json:"member,omitempty"`
	Channel  *Channel  `json:"channel,omitempty"`

	// Unread-count summaries may ride on any event.
	UnreadChannels   *int `json:"unread_channels,omitempty"`
	TotalUnreadCount *int `json:"total_unread_count,omitempty"`
}

// IsChannelEvent reports whether the event is scoped to a channel and
// should be forwarded to that channel's subscriber.
func (e *ChatEvent) IsChannelEvent() bool {
	return e.CID != "" && !e.IsConnectionEvent()
}

// IsConnectionEvent reports whether the event describes connectivity
// rather than chat state. Connection events are handled one by one,
// never through the batched merge.
func (e *ChatEvent) IsConnectionEvent() bool {
	return e.Kind == EventConnected || e.Kind == EventDisconnected
}
