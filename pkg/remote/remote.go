// Package remote defines the remote operation capability the sync core
// replays optimistic local writes against, and the boundary
// classification of its failures.
package remote

import (
	"context"

	"chatsync/pkg/models"
)

// Client is the remote operation capability. Implementations perform
// the server calls for local writes; the sync core only observes
// success-with-payload or a classified error.
type Client interface {
	SendMessage(ctx context.Context, msg *models.Message) (*models.Message, error)
	EditMessage(ctx context.Context, msg *models.Message) (*models.Message, error)
	DeleteMessage(ctx context.Context, msgID string) error

	SendReaction(ctx context.Context, r *models.Reaction) (*models.Reaction, error)
	DeleteReaction(ctx context.Context, r *models.Reaction) error
}
