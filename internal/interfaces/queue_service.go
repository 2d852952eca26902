package interfaces

import (
	"context"

	"github.com/ternarybob/courier/internal/models"
)

// QueueService holds the ordered message queue and drives the single
// worker loop that drains it. All queue mutations are routed through one
// instance to preserve the single-writer discipline.
type QueueService interface {
	// Add enqueues a message, rejecting duplicates among non-terminal
	// messages with a DuplicateMessageError.
	Add(ctx context.Context, recipientURL, content string) (*models.Message, error)

	// GetNext returns the earliest-inserted pending message, or nil
	GetNext(ctx context.Context) (*models.Message, error)

	// UpdateStatus transitions a message's status and recomputes counters.
	// Fails with MessageNotFoundError for unknown IDs.
	UpdateStatus(ctx context.Context, id string, status models.MessageStatus, errDetail string) error

	// List returns all messages in insertion order
	List(ctx context.Context) ([]*models.Message, error)

	// Status returns the read-only queue projection
	Status(ctx context.Context) (*models.QueueStatus, error)

	// Clear atomically drops all messages and resets counters
	Clear(ctx context.Context) error

	// Start launches the worker loop; no-op if already running
	Start(ctx context.Context) error

	// Stop prevents the loop from picking up another message once the
	// in-flight attempt sequence completes
	Stop() error

	// IsRunning reports whether the worker loop is active
	IsRunning() bool
}
