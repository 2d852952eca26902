package interfaces

import (
	"context"

	"github.com/ternarybob/courier/internal/models"
)

// DispatchService performs the multi-step UI interaction that delivers one
// message: open profile, open compose surface, type, submit, verify.
type DispatchService interface {
	// SendMessage delivers one message with bounded internal retry.
	// Returns the delivery result on success; returns a
	// MessageDeliveryError only after the attempt cap is exhausted.
	// Transport and DOM errors never leak raw.
	SendMessage(ctx context.Context, msg *models.Message) (*models.DeliveryResult, error)
}
