// Package engine reconciles batches of server-originated chat events
// into the local store and fans them out to active subscribers.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"chatsync/pkg/logger"
	"chatsync/pkg/models"
	"chatsync/pkg/store"
	"chatsync/pkg/telemetry"
)

// ChannelSubscriber receives the ordered sub-list of one channel's
// events from a reconciled batch.
type ChannelSubscriber interface {
	HandleEvents(events []*models.ChatEvent)
}

// QuerySubscriber receives every reconciled batch, unfiltered: list
// consumers must see membership and visibility events even for channels
// they do not yet track.
type QuerySubscriber interface {
	HandleEvents(events []*models.ChatEvent)
}

// ConnectivityListener observes connection state transitions.
type ConnectivityListener interface {
	WentOffline()
	WentOnline()
	Initialized()
	Recovered(wasReconnect bool)
}

// Engine is the batched event-reconciliation engine. One Reconcile call
// is one unit of work; subscribers never observe partial-batch effects.
// Two concurrently running batches that touch overlapping entities race
// by commit order (later commit wins); the engine does not serialize
// them.
type Engine struct {
	store         *store.Store
	currentUserID string

	mu        sync.RWMutex
	channels  map[string]ChannelSubscriber
	queries   map[string]QuerySubscriber
	listeners []ConnectivityListener

	initialized atomic.Bool
	online      atomic.Bool
}

// New builds an engine for the session identified by currentUserID.
func New(st *store.Store, currentUserID string) *Engine {
	return &Engine{
		store:         st,
		currentUserID: currentUserID,
		channels:      map[string]ChannelSubscriber{},
		queries:       map[string]QuerySubscriber{},
	}
}

// ActivateChannel subscribes sub to the channel's event sub-lists.
func (e *Engine) ActivateChannel(cid string, sub ChannelSubscriber) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.channels[cid] = sub
}

// DeactivateChannel removes the channel's subscriber.
func (e *Engine) DeactivateChannel(cid string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.channels, cid)
}

// ActivateQuery subscribes sub to full reconciled batches.
func (e *Engine) ActivateQuery(id string, sub QuerySubscriber) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queries[id] = sub
}

// DeactivateQuery removes the query subscriber.
func (e *Engine) DeactivateQuery(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.queries, id)
}

// AddConnectivityListener registers a connectivity listener.
func (e *Engine) AddConnectivityListener(l ConnectivityListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// Online reports the last known connection state.
func (e *Engine) Online() bool { return e.online.Load() }

// batchState is the short-lived accumulation owned by one Reconcile
// call. Nothing in it is shared across batches.
type batchState struct {
	users    map[string]*models.User
	channels map[string]*models.Channel
	messages map[string]*models.Message

	prefetchedChannels map[string]*models.Channel
	prefetchedMessages map[string]*models.Message

	unreadChannels   *int
	totalUnreadCount *int

	channelEvents map[string][]*models.ChatEvent
	channelOrder  []string
}

func (b *batchState) channel(cid string) *models.Channel {
	if c, ok := b.channels[cid]; ok {
		return c
	}
	return b.prefetchedChannels[cid]
}

func (b *batchState) message(id string) *models.Message {
	if m, ok := b.messages[id]; ok {
		return m
	}
	return b.prefetchedMessages[id]
}

// Reconcile applies one ordered batch of events to the store and
// dispatches it to subscribers. A lookup miss skips that single event's
// mutation; only infrastructure failure of the bulk store operations
// fails the batch.
func (e *Engine) Reconcile(ctx context.Context, events []*models.ChatEvent) error {
	if len(events) == 0 {
		return nil
	}
	b := &batchState{
		users:         map[string]*models.User{},
		channels:      map[string]*models.Channel{},
		messages:      map[string]*models.Message{},
		channelEvents: map[string][]*models.ChatEvent{},
	}

	if err := e.prefetch(b, events); err != nil {
		return fmt.Errorf("reconcile prefetch: %w", err)
	}
	e.merge(b, events)
	if err := e.commit(b); err != nil {
		return fmt.Errorf("reconcile commit: %w", err)
	}
	e.dispatch(b, events)
	e.handleConnectivity(events)

	telemetry.BatchesReconciled.Inc()
	return nil
}

// prefetch scans the batch once and issues the two bulk reads: channels
// referenced by membership/read/visibility (and message) events, and
// messages referenced by reaction events. Reaction events contribute
// the id carried on the reaction payload, never the event's attached
// message snapshot: that snapshot may hold only a partial reaction
// view.
func (e *Engine) prefetch(b *batchState, events []*models.ChatEvent) error {
	channelIDs := map[string]struct{}{}
	messageIDs := map[string]struct{}{}
	for _, ev := range events {
		switch ev.Kind {
		case models.EventMessageRead,
			models.EventMemberAdded, models.EventMemberRemoved, models.EventMemberUpdated,
			models.EventChannelUpdated, models.EventChannelHidden, models.EventChannelDeleted,
			models.EventMessageNew, models.EventMessageUpdated, models.EventMessageDeleted:
			if ev.CID != "" {
				channelIDs[ev.CID] = struct{}{}
			}
		case models.EventReactionNew, models.EventReactionDeleted:
			if ev.Reaction != nil {
				messageIDs[ev.Reaction.MessageID] = struct{}{}
			}
		}
	}

	channels, err := e.store.SelectChannels(keys(channelIDs))
	if err != nil {
		return err
	}
	messages, err := e.store.SelectMessages(keys(messageIDs))
	if err != nil {
		return err
	}

	b.prefetchedChannels = make(map[string]*models.Channel, len(channels))
	for _, c := range channels {
		b.prefetchedChannels[c.CID] = c
	}
	b.prefetchedMessages = make(map[string]*models.Message, len(messages))
	for _, m := range messages {
		b.prefetchedMessages[m.ID] = m
	}
	return nil
}

// merge is the second pass: it turns each event into write-set entries.
func (e *Engine) merge(b *batchState, events []*models.ChatEvent) {
	for _, ev := range events {
		// Unread summaries may ride on any event; last writer within
		// the batch wins.
		if ev.UnreadChannels != nil {
			b.unreadChannels = ev.UnreadChannels
		}
		if ev.TotalUnreadCount != nil {
			b.totalUnreadCount = ev.TotalUnreadCount
		}
		if ev.User != nil {
			b.users[ev.User.ID] = ev.User
		}
		if ev.IsChannelEvent() {
			if _, ok := b.channelEvents[ev.CID]; !ok {
				b.channelOrder = append(b.channelOrder, ev.CID)
			}
			b.channelEvents[ev.CID] = append(b.channelEvents[ev.CID], ev)
		}
		e.applyEvent(b, ev)
	}
}

// applyEvent performs the kind-specific mutation for one event. A
// missing prefetch lookup or an absent kind-specific payload is a soft
// skip, never a batch error.
func (e *Engine) applyEvent(b *batchState, ev *models.ChatEvent) {
	if ev.IsConnectionEvent() {
		return
	}
	switch ev.Kind {
	case models.EventMessageNew, models.EventMessageUpdated, models.EventMessageDeleted:
		if ev.Message == nil {
			e.skip(ev)
			return
		}
		b.messages[ev.Message.ID] = ev.Message
		if ch := b.channel(ev.CID); ch != nil {
			ch.TouchLastMessage(ev.Message)
			b.channels[ch.CID] = ch
		}

	case models.EventMessageRead:
		ch := b.channel(ev.CID)
		if ch == nil || ev.User == nil {
			e.skip(ev)
			return
		}
		ch.UpdateRead(ev.User.ID, ev.CreatedAt)
		b.channels[ch.CID] = ch

	case models.EventReactionNew:
		if ev.Reaction == nil {
			e.skip(ev)
			return
		}
		msg := b.message(ev.Reaction.MessageID)
		if msg == nil {
			e.skip(ev)
			return
		}
		mine := ev.Reaction.UserID == e.currentUserID
		msg.AddReaction(*ev.Reaction, mine)
		b.messages[msg.ID] = msg

	case models.EventReactionDeleted:
		if ev.Reaction == nil {
			e.skip(ev)
			return
		}
		msg := b.message(ev.Reaction.MessageID)
		if msg == nil {
			e.skip(ev)
			return
		}
		msg.RemoveReaction(*ev.Reaction, false)
		// On deletion the server-confirmed counts on the attached
		// snapshot take precedence over locally recomputed ones.
		if ev.Message != nil {
			msg.ReactionCounts = ev.Message.ReactionCounts
		}
		b.messages[msg.ID] = msg

	case models.EventMemberAdded, models.EventMemberUpdated:
		ch := b.channel(ev.CID)
		if ch == nil || ev.Member == nil {
			e.skip(ev)
			return
		}
		ch.SetMember(ev.Member.UserID, ev.Member)
		b.channels[ch.CID] = ch

	case models.EventMemberRemoved:
		ch := b.channel(ev.CID)
		if ch == nil || ev.Member == nil {
			e.skip(ev)
			return
		}
		ch.SetMember(ev.Member.UserID, nil)
		b.channels[ch.CID] = ch

	case models.EventChannelUpdated, models.EventChannelHidden, models.EventChannelDeleted,
		models.EventNotificationAddedToChannel:
		if ev.Channel == nil {
			e.skip(ev)
			return
		}
		switch ev.Kind {
		case models.EventChannelHidden:
			ev.Channel.Hidden = true
		case models.EventChannelDeleted:
			ev.Channel.Deleted = true
		}
		b.channels[ev.Channel.CID] = ev.Channel
	}
	telemetry.EventsApplied.WithLabelValues(string(ev.Kind)).Inc()
}

func (e *Engine) skip(ev *models.ChatEvent) {
	telemetry.EventsSkipped.WithLabelValues(string(ev.Kind)).Inc()
	logger.Debug("event_skipped_missing_entity", "kind", ev.Kind, "cid", ev.CID)
}

// commit bulk-upserts the accumulated write-sets in one store batch and
// applies batch-level unread values to session state.
func (e *Engine) commit(b *batchState) error {
	users := make([]*models.User, 0, len(b.users))
	for _, u := range b.users {
		users = append(users, u)
	}
	channels := make([]*models.Channel, 0, len(b.channels))
	for _, c := range b.channels {
		channels = append(channels, c)
	}
	msgs := make([]*models.Message, 0, len(b.messages))
	for _, m := range b.messages {
		msgs = append(msgs, m)
	}
	if err := e.store.ApplyReconciled(users, channels, msgs); err != nil {
		return err
	}

	if b.unreadChannels != nil || b.totalUnreadCount != nil {
		st, err := e.store.SessionState()
		if err != nil {
			return err
		}
		if b.unreadChannels != nil {
			st.UnreadChannels = *b.unreadChannels
		}
		if b.totalUnreadCount != nil {
			st.TotalUnreadCount = *b.totalUnreadCount
		}
		if err := e.store.SaveSessionState(st); err != nil {
			return err
		}
	}
	return nil
}

// dispatch forwards per-channel sub-lists to active channel subscribers
// and the entire original batch to every active query subscriber.
func (e *Engine) dispatch(b *batchState, events []*models.ChatEvent) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, cid := range b.channelOrder {
		if sub, ok := e.channels[cid]; ok {
			sub.HandleEvents(b.channelEvents[cid])
		}
	}
	for _, sub := range e.queries {
		sub.HandleEvents(events)
	}
}

// handleConnectivity processes connection events one by one. They never
// arrive through a recovery replay, and each triggers its own state
// transition.
func (e *Engine) handleConnectivity(events []*models.ChatEvent) {
	for _, ev := range events {
		switch ev.Kind {
		case models.EventDisconnected:
			e.online.Store(false)
			logger.Info("connection_lost")
			for _, l := range e.snapshotListeners() {
				l.WentOffline()
			}
		case models.EventConnected:
			wasReconnect := e.initialized.Load()
			e.online.Store(true)
			e.initialized.Store(true)
			logger.Info("connection_established", "reconnect", wasReconnect)
			for _, l := range e.snapshotListeners() {
				l.WentOnline()
				l.Initialized()
				l.Recovered(wasReconnect)
			}
		}
	}
}

func (e *Engine) snapshotListeners() []ConnectivityListener {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]ConnectivityListener(nil), e.listeners...)
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
