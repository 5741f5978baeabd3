package query

import (
	"testing"

	"chatsync/pkg/models"
	"chatsync/pkg/pagination"
	"chatsync/pkg/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestIdentityStableAcrossShapes(t *testing.T) {
	// same structure, different construction order and numeric types
	a := map[string]any{"type": "messaging", "members": []any{"alice", "bob"}, "limit": 10}
	b := map[string]any{"limit": float64(10), "members": []any{"alice", "bob"}, "type": "messaging"}
	sort := []models.SortOption{{Field: "last_message_at", Direction: -1}}

	idA, err := Identity(a, sort)
	if err != nil {
		t.Fatalf("identity a: %v", err)
	}
	idB, err := Identity(b, sort)
	if err != nil {
		t.Fatalf("identity b: %v", err)
	}
	if idA != idB {
		t.Fatalf("structurally equal filters got distinct identities: %s vs %s", idA, idB)
	}
}

func TestIdentityDistinguishesFilterAndSort(t *testing.T) {
	base := map[string]any{"type": "messaging"}
	sortA := []models.SortOption{{Field: "last_message_at", Direction: -1}}
	sortB := []models.SortOption{{Field: "last_message_at", Direction: 1}}

	id1, _ := Identity(base, sortA)
	id2, _ := Identity(base, sortB)
	if id1 == id2 {
		t.Fatalf("sort direction not part of identity")
	}
	id3, _ := Identity(map[string]any{"type": "team"}, sortA)
	if id1 == id3 {
		t.Fatalf("filter not part of identity")
	}
}

func TestControllerPersistsAcrossReload(t *testing.T) {
	s := openTestStore(t)
	filter := map[string]any{"type": "messaging"}

	c1, err := NewController(s, filter, nil)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	c1.HandleEvents([]*models.ChatEvent{{
		Kind:    models.EventNotificationAddedToChannel,
		Channel: &models.Channel{CID: "messaging:1"},
	}})

	c2, err := NewController(s, filter, nil)
	if err != nil {
		t.Fatalf("reload controller: %v", err)
	}
	if c2.ID() != c1.ID() {
		t.Fatalf("identities diverged on reload")
	}
	cids := c2.CIDs()
	if len(cids) != 1 || cids[0] != "messaging:1" {
		t.Fatalf("cached set not reloaded: %v", cids)
	}
}

func TestControllerPredicateGatesAdditions(t *testing.T) {
	s := openTestStore(t)
	c, err := NewController(s, map[string]any{"type": "messaging"}, nil)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	c.NewChannelFilter = func(ch *models.Channel, _ map[string]any) bool {
		return ch.Type == "messaging"
	}

	c.HandleEvents([]*models.ChatEvent{
		{Kind: models.EventNotificationAddedToChannel,
			Channel: &models.Channel{CID: "messaging:1", Type: "messaging"}},
		{Kind: models.EventNotificationAddedToChannel,
			Channel: &models.Channel{CID: "team:9", Type: "team"}},
	})

	cids := c.CIDs()
	if len(cids) != 1 || cids[0] != "messaging:1" {
		t.Fatalf("predicate not applied: %v", cids)
	}
}

func TestControllerRemovesOnHiddenAndDeleted(t *testing.T) {
	s := openTestStore(t)
	c, err := NewController(s, nil, nil)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	c.HandleEvents([]*models.ChatEvent{
		{Kind: models.EventNotificationAddedToChannel, Channel: &models.Channel{CID: "messaging:1"}},
		{Kind: models.EventNotificationAddedToChannel, Channel: &models.Channel{CID: "messaging:2"}},
	})
	c.HandleEvents([]*models.ChatEvent{
		{Kind: models.EventChannelHidden, CID: "messaging:1"},
		{Kind: models.EventChannelDeleted, CID: "messaging:2"},
	})
	if cids := c.CIDs(); len(cids) != 0 {
		t.Fatalf("hidden/deleted channels still cached: %v", cids)
	}
}

func TestControllerPagination(t *testing.T) {
	s := openTestStore(t)
	c, err := NewController(s, nil, nil)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	for _, cid := range []string{"messaging:a", "messaging:b", "messaging:c"} {
		c.HandleEvents([]*models.ChatEvent{{
			Kind:    models.EventNotificationAddedToChannel,
			Channel: &models.Channel{CID: cid},
		}})
	}

	page := c.Page(1, 2)
	if len(page) != 2 || page[0] != "messaging:b" {
		t.Fatalf("page = %v", page)
	}
	if page := c.Page(5, 2); len(page) != 0 {
		t.Fatalf("offset past end = %v, want empty", page)
	}

	// resolution drops ids whose channel row is absent
	if err := s.UpsertChannels([]*models.Channel{{CID: "messaging:a"}}); err != nil {
		t.Fatalf("seed channel: %v", err)
	}
	chans, err := c.Channels(pagination.Request{ChannelLimit: 10})
	if err != nil {
		t.Fatalf("channels: %v", err)
	}
	if len(chans) != 1 || chans[0].CID != "messaging:a" {
		t.Fatalf("resolved channels = %+v", chans)
	}
}
