package models

import "time"

// LatestReactionsCap bounds the per-message "latest reactions" window.
// The removal heuristic in RemoveReaction checks against the same
// constant: once the window has evicted entries, absence no longer
// proves a reaction was never counted.
const LatestReactionsCap = 5

// Message is the locally cached message entity. It is owned by the
// store and mutated only through the reaction merge rules below or a
// direct upsert.
type Message struct {
	ID     string `json:"id"`
	CID    string `json:"cid"`
	UserID string `json:"user_id"`

	Text        string       `json:"text,omitempty"`
	Type        string       `json:"type,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	ParentID    string       `json:"parent_id,omitempty"`
	ReplyCount  int          `json:"reply_count,omitempty"`

	CreatedAt time.Time  `json:"created_at,omitempty"`
	UpdatedAt time.Time  `json:"updated_at,omitempty"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	// LatestReactions is the bounded most-recent window of reactions on
	// this message, independent of authorship.
	LatestReactions []Reaction `json:"latest_reactions,omitempty"`
	// OwnReactions is the unbounded window of reactions authored by the
	// local session's user.
	OwnReactions []Reaction `json:"own_reactions,omitempty"`

	// ReactionCounts maps reaction type -> count, ie like:10 heart:4.
	ReactionCounts map[string]int `json:"reaction_counts,omitempty"`
	// ReactionScores maps reaction type -> summed score.
	ReactionScores map[string]int `json:"reaction_scores,omitempty"`

	MentionedUserIDs []string `json:"mentioned_user_ids,omitempty"`

	SyncStatus SyncStatus `json:"sync_status,omitempty"`
	// SyncOp records which remote operation a pending write replays:
	// "send", "edit" or "delete". Empty once the write is confirmed.
	SyncOp string `json:"sync_op,omitempty"`
}

// Attachment is an opaque message attachment.
type Attachment struct {
	Type     string `json:"type,omitempty"`
	Title    string `json:"title,omitempty"`
	AssetURL string `json:"asset_url,omitempty"`
	ThumbURL string `json:"thumb_url,omitempty"`
}

func containsReaction(window []Reaction, r Reaction) bool {
	for _, e := range window {
		if e.SameKey(r) {
			return true
		}
	}
	return false
}

func removeReactionFrom(window []Reaction, r Reaction) ([]Reaction, bool) {
	for i, e := range window {
		if e.SameKey(r) {
			return append(window[:i:i], window[i+1:]...), true
		}
	}
	return window, false
}

// AddReaction merges a new reaction into the message: it joins the
// latest-reactions window (evicting the oldest entry past
// LatestReactionsCap), joins own reactions when mine is set, and bumps
// the per-type count and score. Adding a reaction whose composite key is
// already tracked is a no-op, so duplicate event delivery cannot
// double-count.
func (m *Message) AddReaction(r Reaction, mine bool) {
	if containsReaction(m.LatestReactions, r) || containsReaction(m.OwnReactions, r) {
		return
	}

	if mine {
		m.OwnReactions = append(m.OwnReactions, r)
	}

	m.LatestReactions = append(m.LatestReactions, r)
	if len(m.LatestReactions) > LatestReactionsCap {
		m.LatestReactions = m.LatestReactions[len(m.LatestReactions)-LatestReactionsCap:]
	}

	if m.ReactionCounts == nil {
		m.ReactionCounts = map[string]int{}
	}
	m.ReactionCounts[r.Type]++
	if m.ReactionScores == nil {
		m.ReactionScores = map[string]int{}
	}
	m.ReactionScores[r.Type] += r.Score
}

// RemoveReaction removes the entry matching r's composite key from both
// windows. When updateCounts is set, count and score are decremented if
// the removal matched, or if the latest-reactions window was already at
// LatestReactionsCap before removal: a full window may have evicted the
// entry, so membership alone cannot prove the reaction was never
// counted and the decrement is applied conservatively.
func (m *Message) RemoveReaction(r Reaction, updateCounts bool) {
	wasFull := len(m.LatestReactions) >= LatestReactionsCap

	var removedOwn, removedLatest bool
	m.OwnReactions, removedOwn = removeReactionFrom(m.OwnReactions, r)
	m.LatestReactions, removedLatest = removeReactionFrom(m.LatestReactions, r)

	if !updateCounts {
		return
	}
	if removedOwn || removedLatest || wasFull {
		if m.ReactionCounts == nil {
			m.ReactionCounts = map[string]int{}
		}
		m.ReactionCounts[r.Type]--
		if m.ReactionScores == nil {
			m.ReactionScores = map[string]int{}
		}
		m.ReactionScores[r.Type] -= r.Score
	}
}
