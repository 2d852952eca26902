package interfaces

import (
	"context"

	"github.com/ternarybob/courier/internal/models"
)

// MessageStorage persists queued messages. Implementations: badger-backed
// embedded store and an in-memory store for storage-less runs and tests.
type MessageStorage interface {
	// Save upserts a message
	Save(ctx context.Context, msg *models.Message) error

	// Get returns a message by ID, or a MessageNotFoundError
	Get(ctx context.Context, id string) (*models.Message, error)

	// List returns all messages ordered by insertion sequence
	List(ctx context.Context) ([]*models.Message, error)

	// FindByRecipient returns messages for a recipient URL
	FindByRecipient(ctx context.Context, recipientURL string) ([]*models.Message, error)

	// NextSequence allocates the next insertion sequence number
	NextSequence(ctx context.Context) (uint64, error)

	// DeleteAll removes every stored message
	DeleteAll(ctx context.Context) error

	// Close releases the underlying store
	Close() error
}
