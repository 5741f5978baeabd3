package models

import (
	"testing"
	"time"
)

func TestTouchLastMessageKeepsNewest(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := &Channel{CID: "messaging:1"}

	c.TouchLastMessage(&Message{ID: "m1", CreatedAt: base})
	if c.LastMessageID != "m1" {
		t.Fatalf("last message = %s, want m1", c.LastMessageID)
	}

	// older message must not regress the denormalized fields
	c.TouchLastMessage(&Message{ID: "m0", CreatedAt: base.Add(-time.Hour)})
	if c.LastMessageID != "m1" {
		t.Fatalf("older message overwrote last message: %s", c.LastMessageID)
	}

	c.TouchLastMessage(&Message{ID: "m2", CreatedAt: base.Add(time.Hour)})
	if c.LastMessageID != "m2" || !c.LastMessageAt.Equal(base.Add(time.Hour)) {
		t.Fatalf("newer message not applied: %s at %s", c.LastMessageID, c.LastMessageAt)
	}
}

func TestSetMemberClearsOnNil(t *testing.T) {
	c := &Channel{CID: "messaging:1"}
	c.SetMember("alice", &Member{UserID: "alice"})
	if _, ok := c.Members["alice"]; !ok {
		t.Fatalf("member not set")
	}
	c.SetMember("alice", nil)
	if _, ok := c.Members["alice"]; ok {
		t.Fatalf("member not cleared")
	}
}

func TestQueryChannelsCIDSet(t *testing.T) {
	q := &QueryChannels{}
	if !q.AddCID("messaging:b") || !q.AddCID("messaging:a") {
		t.Fatalf("fresh inserts reported as duplicates")
	}
	if q.AddCID("messaging:a") {
		t.Fatalf("duplicate insert reported as new")
	}
	if len(q.CIDs) != 2 || q.CIDs[0] != "messaging:a" || q.CIDs[1] != "messaging:b" {
		t.Fatalf("cids = %v, want sorted unique pair", q.CIDs)
	}
	if !q.RemoveCID("messaging:a") {
		t.Fatalf("remove of present cid reported absent")
	}
	if q.RemoveCID("messaging:a") {
		t.Fatalf("remove of absent cid reported present")
	}
	if len(q.CIDs) != 1 || q.CIDs[0] != "messaging:b" {
		t.Fatalf("cids = %v after removal", q.CIDs)
	}
}
