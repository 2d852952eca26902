// -----------------------------------------------------------------------
// Message - Queued delivery request for one recipient profile
// -----------------------------------------------------------------------

package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageStatus represents the delivery state of a queued message.
// Transitions are forward-only: pending -> sending -> sent|failed.
type MessageStatus string

const (
	MessageStatusPending MessageStatus = "pending"
	MessageStatusSending MessageStatus = "sending"
	MessageStatusSent    MessageStatus = "sent"
	MessageStatusFailed  MessageStatus = "failed"
)

// IsTerminal returns true if the status is a final state
func (s MessageStatus) IsTerminal() bool {
	return s == MessageStatusSent || s == MessageStatusFailed
}

// CanTransitionTo validates a forward-only status transition
func (s MessageStatus) CanTransitionTo(next MessageStatus) bool {
	switch s {
	case MessageStatusPending:
		return next == MessageStatusSending
	case MessageStatusSending:
		return next == MessageStatusSent || next == MessageStatusFailed
	default:
		// Terminal states never transition
		return false
	}
}

// Message represents one queued request to deliver a message to one
// recipient profile. Insertion order equals processing order.
type Message struct {
	ID            string        `json:"id" badgerhold:"key"`
	RecipientURL  string        `json:"recipient_url" badgerhold:"index"`
	RecipientName string        `json:"recipient_name,omitempty"`
	Content       string        `json:"content"`
	Status        MessageStatus `json:"status" badgerhold:"index"`
	Error         string        `json:"error,omitempty"`
	Sequence      uint64        `json:"sequence"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// NewMessage creates a pending message for the given recipient
func NewMessage(recipientURL, content string) *Message {
	now := time.Now()
	return &Message{
		ID:           uuid.New().String(),
		RecipientURL: recipientURL,
		Content:      content,
		Status:       MessageStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// QueueStatus is a read-only projection derived from stored messages plus
// the worker running flag. It is computed on demand and never persisted,
// so it cannot drift from its source of truth.
type QueueStatus struct {
	IsRunning       bool       `json:"is_running"`
	QueueLength     int        `json:"queue_length"`
	ProcessedCount  int        `json:"processed_count"`
	FailedCount     int        `json:"failed_count"`
	LastProcessedAt *time.Time `json:"last_processed_at,omitempty"`
}

// Credentials holds the target-site login identity and secret.
// Consumed at login time only; never logged or persisted by the core.
type Credentials struct {
	Identity string `toml:"identity"`
	Secret   string `toml:"secret"`
}

// DeliveryResult is the per-message terminal outcome published on the
// messageComplete event.
type DeliveryResult struct {
	Success       bool   `json:"success"`
	RecipientURL  string `json:"recipient_url"`
	RecipientName string `json:"recipient_name,omitempty"`
	Message       string `json:"message"`
	Attempts      int    `json:"attempts,omitempty"`
}

// BatchResult is the overall outcome published on the complete event when
// the worker drains the queue.
type BatchResult struct {
	Processed int    `json:"processed"`
	Failed    int    `json:"failed"`
	Message   string `json:"message"`
}
