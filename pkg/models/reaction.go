package models

import "time"

// Reaction is one user's reaction of a given type on a message. Identity
// is the (message id, user id, type) composite; structural equality on
// that key is what locates entries inside a message's reaction windows.
type Reaction struct {
	MessageID  string     `json:"message_id"`
	UserID     string     `json:"user_id"`
	Type       string     `json:"type"`
	Score      int        `json:"score"`
	CreatedAt  time.Time  `json:"created_at,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at,omitempty"`
	SyncStatus SyncStatus `json:"sync_status,omitempty"`
	// Deleted marks a locally deleted reaction awaiting server
	// confirmation of the delete.
	Deleted bool `json:"deleted,omitempty"`
}

// Key returns the composite identity of the reaction.
func (r Reaction) Key() string {
	return r.MessageID + "/" + r.UserID + "/" + r.Type
}

// SameKey reports whether two reactions share the composite identity.
func (r Reaction) SameKey(o Reaction) bool {
	return r.MessageID == o.MessageID && r.UserID == o.UserID && r.Type == o.Type
}
