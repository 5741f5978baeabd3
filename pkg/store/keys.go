package store

import (
	"fmt"
	"time"
)

// Key namespaces. Channel message index keys embed a zero-padded
// creation timestamp so prefix iteration yields creation order.
const (
	userPrefix       = "user:"
	channelPrefix    = "channel:"
	msgPrefix        = "msg:"
	chanMsgPrefix    = "chanmsg:"
	reactionPrefix   = "reaction:"
	queryPrefix      = "query:"
	outboxMsgPrefix  = "outbox:msg:"
	outboxReactPfx   = "outbox:reaction:"
	sessionStateKey  = "session:state"
	chanMsgKeyFormat = "%s%s:%020d:%s"
)

func userKey(id string) []byte     { return []byte(userPrefix + id) }
func channelKey(cid string) []byte { return []byte(channelPrefix + cid) }
func msgKey(id string) []byte      { return []byte(msgPrefix + id) }
func queryKey(id string) []byte    { return []byte(queryPrefix + id) }

func reactionKey(key string) []byte { return []byte(reactionPrefix + key) }

func outboxMsgKey(id string) []byte       { return []byte(outboxMsgPrefix + id) }
func outboxReactionKey(key string) []byte { return []byte(outboxReactPfx + key) }

// chanMsgKey builds the per-channel ordering index key for a message.
func chanMsgKey(cid string, created time.Time, msgID string) []byte {
	return []byte(fmt.Sprintf(chanMsgKeyFormat, chanMsgPrefix, cid, created.UTC().UnixNano(), msgID))
}

// chanMsgBounds returns the [lower, upper) key bounds covering every
// index entry of one channel.
func chanMsgBounds(cid string) ([]byte, []byte) {
	lower := []byte(chanMsgPrefix + cid + ":")
	upper := []byte(chanMsgPrefix + cid + ";") // ';' sorts just after ':'
	return lower, upper
}
