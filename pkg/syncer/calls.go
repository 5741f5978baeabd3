package syncer

import (
	"context"

	"chatsync/pkg/call"
	"chatsync/pkg/models"
)

// Call-returning variants of the write entry points. Callers pick
// synchronous Execute or callback Enqueue per call site; Cancel stops
// a call that has not dispatched yet.

func (s *Syncer) SendMessageCall(scope *call.Scope, m *models.Message) *call.Call[*models.Message] {
	return call.New(scope, func(ctx context.Context) (*models.Message, error) {
		return s.SendMessage(ctx, m)
	})
}

func (s *Syncer) EditMessageCall(scope *call.Scope, m *models.Message) *call.Call[*models.Message] {
	return call.New(scope, func(ctx context.Context) (*models.Message, error) {
		return s.EditMessage(ctx, m)
	})
}

func (s *Syncer) DeleteMessageCall(scope *call.Scope, id string) *call.Call[*models.Message] {
	return call.New(scope, func(ctx context.Context) (*models.Message, error) {
		return s.DeleteMessage(ctx, id)
	})
}

func (s *Syncer) SendReactionCall(scope *call.Scope, r *models.Reaction) *call.Call[*models.Reaction] {
	return call.New(scope, func(ctx context.Context) (*models.Reaction, error) {
		return s.SendReaction(ctx, r)
	})
}

func (s *Syncer) DeleteReactionCall(scope *call.Scope, r *models.Reaction) *call.Call[*models.Reaction] {
	return call.New(scope, func(ctx context.Context) (*models.Reaction, error) {
		return s.DeleteReaction(ctx, r)
	})
}
