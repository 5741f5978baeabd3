package query

import (
	"sync"
	"time"

	"chatsync/pkg/logger"
	"chatsync/pkg/models"
	"chatsync/pkg/pagination"
	"chatsync/pkg/store"
)

// InclusionPredicate decides whether a newly announced channel belongs
// to a query's result set.
type InclusionPredicate func(ch *models.Channel, filter map[string]any) bool

// AcceptAll is the default inclusion predicate.
func AcceptAll(*models.Channel, map[string]any) bool { return true }

// Controller owns one cached channel-list query. It consumes full event
// batches via the engine's query dispatch path: list consumers must see
// membership and visibility events even for channels they do not track
// yet, so they can decide to add them.
type Controller struct {
	store *store.Store

	// NewChannelFilter gates additions on channel-added notifications.
	NewChannelFilter InclusionPredicate

	mu     sync.Mutex
	entity *models.QueryChannels
}

// NewController loads the cached entity for (filter, sort), creating it
// when absent.
func NewController(st *store.Store, filter map[string]any, sort []models.SortOption) (*Controller, error) {
	fresh, err := NewQueryChannels(filter, sort)
	if err != nil {
		return nil, err
	}
	existing, err := st.SelectQuery(fresh.ID)
	if err != nil {
		return nil, err
	}
	ent := existing
	if ent == nil {
		fresh.CreatedAt = time.Now().UTC()
		fresh.UpdatedAt = fresh.CreatedAt
		ent = fresh
		if err := st.UpsertQuery(ent); err != nil {
			return nil, err
		}
	}
	return &Controller{store: st, NewChannelFilter: AcceptAll, entity: ent}, nil
}

// ID returns the query's stable identity.
func (c *Controller) ID() string { return c.entity.ID }

// HandleEvents consumes one reconciled batch, in original order.
func (c *Controller) HandleEvents(events []*models.ChatEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	dirty := false
	for _, ev := range events {
		switch ev.Kind {
		case models.EventNotificationAddedToChannel:
			if ev.Channel == nil {
				continue
			}
			if !c.NewChannelFilter(ev.Channel, c.entity.Filter) {
				continue
			}
			if c.entity.AddCID(ev.Channel.CID) {
				dirty = true
			}
		case models.EventChannelDeleted, models.EventChannelHidden:
			if c.entity.RemoveCID(ev.CID) {
				dirty = true
			}
		}
	}
	if !dirty {
		return
	}
	c.entity.UpdatedAt = time.Now().UTC()
	if err := c.store.UpsertQuery(c.entity); err != nil {
		logger.Error("query_persist_failed", "query", c.entity.ID, "error", err)
	}
}

// Page returns the (offset, limit) slice of the cached channel ids.
func (c *Controller) Page(offset, limit int) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return pagination.SliceIDs(c.entity.CIDs, offset, limit)
}

// Channels resolves one page of the cached set against the store.
func (c *Controller) Channels(p pagination.Request) ([]*models.Channel, error) {
	cids := c.Page(p.ChannelOffset, p.ChannelLimit)
	return c.store.SelectChannels(cids)
}

// CIDs returns a copy of the cached id set.
func (c *Controller) CIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.entity.CIDs...)
}
