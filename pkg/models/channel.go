package models

import "time"

// Channel is the locally cached channel entity, keyed by cid
// (channel type + channel id, ie "messaging:123").
type Channel struct {
	CID  string `json:"cid"`
	Type string `json:"type,omitempty"`
	Name string `json:"name,omitempty"`

	CreatedByID string `json:"created_by_id,omitempty"`
	Frozen      bool   `json:"frozen,omitempty"`
	Hidden      bool   `json:"hidden,omitempty"`
	Deleted     bool   `json:"deleted,omitempty"`

	CreatedAt time.Time  `json:"created_at,omitempty"`
	UpdatedAt time.Time  `json:"updated_at,omitempty"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	// Members maps user id -> membership; absence of a key means the
	// user is not a member.
	Members map[string]*Member `json:"members,omitempty"`

	// Reads maps user id -> last-read timestamp.
	Reads map[string]time.Time `json:"reads,omitempty"`

	// Denormalized last-message fields, kept current by the
	// reconciliation engine.
	LastMessageAt time.Time `json:"last_message_at,omitempty"`
	LastMessageID string    `json:"last_message_id,omitempty"`

	ExtraData map[string]any `json:"extra_data,omitempty"`
}

// SetMember sets or clears the membership entry for userID. A nil
// member clears it.
func (c *Channel) SetMember(userID string, m *Member) {
	if m == nil {
		delete(c.Members, userID)
		return
	}
	if c.Members == nil {
		c.Members = map[string]*Member{}
	}
	c.Members[userID] = m
}

// UpdateRead records the last-read timestamp for userID.
func (c *Channel) UpdateRead(userID string, lastRead time.Time) {
	if c.Reads == nil {
		c.Reads = map[string]time.Time{}
	}
	c.Reads[userID] = lastRead
}

// TouchLastMessage updates the denormalized last-message fields when the
// given message is newer than the current one.
func (c *Channel) TouchLastMessage(m *Message) {
	if m == nil {
		return
	}
	if m.CreatedAt.After(c.LastMessageAt) {
		c.LastMessageAt = m.CreatedAt
		c.LastMessageID = m.ID
	}
}
