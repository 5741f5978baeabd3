package store

import (
	"testing"
	"time"

	"chatsync/pkg/models"
	"chatsync/pkg/pagination"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUpsertSelectRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if err := s.UpsertUsers([]*models.User{{ID: "alice", Name: "Alice"}}); err != nil {
		t.Fatalf("upsert users: %v", err)
	}
	users, err := s.SelectUsers([]string{"alice", "ghost"})
	if err != nil {
		t.Fatalf("select users: %v", err)
	}
	if len(users) != 1 || users[0].Name != "Alice" {
		t.Fatalf("users = %+v", users)
	}

	ch := &models.Channel{CID: "messaging:1", Type: "messaging", Name: "general"}
	if err := s.UpsertChannels([]*models.Channel{ch}); err != nil {
		t.Fatalf("upsert channels: %v", err)
	}
	got, err := s.SelectChannel("messaging:1")
	if err != nil {
		t.Fatalf("select channel: %v", err)
	}
	if got == nil || got.Name != "general" {
		t.Fatalf("channel = %+v", got)
	}
	if missing, err := s.SelectChannel("messaging:999"); err != nil || missing != nil {
		t.Fatalf("missing channel = %+v, err %v", missing, err)
	}
}

func seedMessages(t *testing.T, s *Store) []*models.Message {
	t.Helper()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	msgs := make([]*models.Message, 0, 5)
	for i, id := range []string{"m1", "m2", "m3", "m4", "m5"} {
		msgs = append(msgs, &models.Message{
			ID:        id,
			CID:       "messaging:1",
			UserID:    "alice",
			Text:      id,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	if err := s.UpsertMessages(msgs, true); err != nil {
		t.Fatalf("seed messages: %v", err)
	}
	return msgs
}

func assertIDs(t *testing.T, got []*models.Message, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d messages, want %d", len(got), len(want))
	}
	for i, m := range got {
		if m.ID != want[i] {
			t.Fatalf("position %d = %s, want %s", i, m.ID, want[i])
		}
	}
}

func TestSelectMessagesFirstPage(t *testing.T) {
	s := openTestStore(t)
	seedMessages(t, s)

	got, err := s.SelectMessagesForChannel("messaging:1", pagination.NewRequest(3))
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	// newest window, ascending creation order
	assertIDs(t, got, "m3", "m4", "m5")
}

func TestSelectMessagesDirectional(t *testing.T) {
	s := openTestStore(t)
	seedMessages(t, s)

	cases := []struct {
		dir   pagination.Direction
		limit int
		want  []string
	}{
		{pagination.GreaterThan, 1, []string{"m4"}},
		{pagination.GreaterThanOrEqual, 2, []string{"m3", "m4"}},
		{pagination.LessThan, 1, []string{"m2"}},
		{pagination.LessThanOrEqual, 2, []string{"m2", "m3"}},
		{pagination.GreaterThan, 10, []string{"m4", "m5"}},
		{pagination.LessThan, 10, []string{"m1", "m2"}},
	}
	for _, c := range cases {
		p := pagination.NewRequest(c.limit).WithFilter(c.dir, "m3")
		got, err := s.SelectMessagesForChannel("messaging:1", p)
		if err != nil {
			t.Fatalf("%s: %v", c.dir, err)
		}
		assertIDs(t, got, c.want...)
	}
}

func TestSelectMessagesMissingAnchor(t *testing.T) {
	s := openTestStore(t)
	seedMessages(t, s)

	p := pagination.NewRequest(10).WithFilter(pagination.GreaterThan, "missing")
	got, err := s.SelectMessagesForChannel("messaging:1", p)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("missing anchor returned %d messages", len(got))
	}
}

func TestOutboxLifecycle(t *testing.T) {
	s := openTestStore(t)

	m := &models.Message{
		ID: "m1", CID: "messaging:1", UserID: "alice",
		CreatedAt:  time.Now().UTC(),
		SyncStatus: models.SyncStatusSyncNeeded,
		SyncOp:     "send",
	}
	if err := s.UpsertMessages([]*models.Message{m}, false); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	pending, err := s.SelectSyncNeededMessages()
	if err != nil {
		t.Fatalf("select sync needed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "m1" {
		t.Fatalf("pending = %+v", pending)
	}

	// confirmation clears the outbox entry
	m.SyncStatus = models.SyncStatusCompleted
	m.SyncOp = ""
	if err := s.UpsertMessages([]*models.Message{m}, false); err != nil {
		t.Fatalf("upsert completed: %v", err)
	}
	pending, err = s.SelectSyncNeededMessages()
	if err != nil {
		t.Fatalf("reselect: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("completed message still queued: %+v", pending)
	}
}

func TestRequeuePending(t *testing.T) {
	s := openTestStore(t)

	m := &models.Message{
		ID: "m1", CID: "messaging:1", UserID: "alice",
		CreatedAt:  time.Now().UTC(),
		SyncStatus: models.SyncStatusPendingLocal,
		SyncOp:     "send",
	}
	r := &models.Reaction{
		MessageID: "m1", UserID: "alice", Type: "like", Score: 1,
		SyncStatus: models.SyncStatusPendingLocal,
	}
	if err := s.UpsertMessages([]*models.Message{m}, false); err != nil {
		t.Fatalf("upsert message: %v", err)
	}
	if err := s.UpsertReactions([]*models.Reaction{r}); err != nil {
		t.Fatalf("upsert reaction: %v", err)
	}

	// in-flight writes are invisible to the sweep until requeued
	if got, _ := s.SelectSyncNeededMessages(); len(got) != 0 {
		t.Fatalf("pending message visible to sweep: %+v", got)
	}

	if err := s.RequeuePending(); err != nil {
		t.Fatalf("requeue: %v", err)
	}
	msgs, err := s.SelectSyncNeededMessages()
	if err != nil {
		t.Fatalf("select messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].SyncStatus != models.SyncStatusSyncNeeded {
		t.Fatalf("msgs = %+v", msgs)
	}
	rs, err := s.SelectSyncNeededReactions()
	if err != nil {
		t.Fatalf("select reactions: %v", err)
	}
	if len(rs) != 1 || rs[0].SyncStatus != models.SyncStatusSyncNeeded {
		t.Fatalf("reactions = %+v", rs)
	}
}

func TestCacheObservedPathLeavesOutboxAlone(t *testing.T) {
	s := openTestStore(t)

	m := &models.Message{
		ID: "m1", CID: "messaging:1", UserID: "alice",
		CreatedAt:  time.Now().UTC(),
		SyncStatus: models.SyncStatusSyncNeeded,
		SyncOp:     "send",
	}
	if err := s.UpsertMessages([]*models.Message{m}, false); err != nil {
		t.Fatalf("upsert local: %v", err)
	}

	// a server-observed update of the same row must not clear the entry
	observed := *m
	observed.Text = "server copy"
	observed.SyncStatus = models.SyncStatusCompleted
	if err := s.UpsertMessages([]*models.Message{&observed}, true); err != nil {
		t.Fatalf("upsert observed: %v", err)
	}

	pending, err := s.SelectSyncNeededMessages()
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("outbox perturbed by cache-observed write: %+v", pending)
	}
	if _, ok := s.LastObserved("m1"); !ok {
		t.Fatalf("observed timestamp not recorded")
	}
}

func TestApplyReconciledAtomic(t *testing.T) {
	s := openTestStore(t)

	users := []*models.User{{ID: "alice"}}
	channels := []*models.Channel{{CID: "messaging:1", Type: "messaging"}}
	msgs := []*models.Message{{
		ID: "m1", CID: "messaging:1", UserID: "alice",
		CreatedAt: time.Now().UTC(),
	}}
	if err := s.ApplyReconciled(users, channels, msgs); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if got, err := s.SelectMessage("m1"); err != nil || got == nil {
		t.Fatalf("message missing after reconcile: %v %v", got, err)
	}
	if got, err := s.SelectChannel("messaging:1"); err != nil || got == nil {
		t.Fatalf("channel missing after reconcile: %v %v", got, err)
	}
	if pending, _ := s.SelectSyncNeededMessages(); len(pending) != 0 {
		t.Fatalf("reconcile write created outbox entries: %+v", pending)
	}
}

func TestSessionStateRoundTrip(t *testing.T) {
	s := openTestStore(t)
	if err := s.SaveSessionState(SessionState{UnreadChannels: 3, TotalUnreadCount: 17}); err != nil {
		t.Fatalf("save: %v", err)
	}
	st, err := s.SessionState()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if st.UnreadChannels != 3 || st.TotalUnreadCount != 17 {
		t.Fatalf("state = %+v", st)
	}
}
