package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	msg := NewMessage("https://example.com/in/u1", "hello")

	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "https://example.com/in/u1", msg.RecipientURL)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, MessageStatusPending, msg.Status)
	assert.False(t, msg.CreatedAt.IsZero())
	assert.Equal(t, msg.CreatedAt, msg.UpdatedAt)

	other := NewMessage("https://example.com/in/u1", "hello")
	assert.NotEqual(t, msg.ID, other.ID)
}

func TestStatusIsTerminal(t *testing.T) {
	assert.False(t, MessageStatusPending.IsTerminal())
	assert.False(t, MessageStatusSending.IsTerminal())
	assert.True(t, MessageStatusSent.IsTerminal())
	assert.True(t, MessageStatusFailed.IsTerminal())
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from    MessageStatus
		to      MessageStatus
		allowed bool
	}{
		{MessageStatusPending, MessageStatusSending, true},
		{MessageStatusPending, MessageStatusSent, false},
		{MessageStatusPending, MessageStatusFailed, false},
		{MessageStatusSending, MessageStatusSent, true},
		{MessageStatusSending, MessageStatusFailed, true},
		{MessageStatusSending, MessageStatusPending, false},
		{MessageStatusSent, MessageStatusPending, false},
		{MessageStatusSent, MessageStatusSending, false},
		{MessageStatusFailed, MessageStatusSending, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_to_%s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestErrorHelpers(t *testing.T) {
	authErr := &AuthenticationError{Reason: "credentials rejected"}
	deliveryErr := &MessageDeliveryError{RecipientURL: "https://example.com/in/u1", Attempts: 3}
	dupErr := &DuplicateMessageError{RecipientURL: "https://example.com/in/u1"}
	notFoundErr := &MessageNotFoundError{ID: "abc"}
	validationErr := &ValidationError{Field: "content", Reason: "must not be empty"}

	assert.True(t, IsAuthenticationError(authErr))
	assert.True(t, IsMessageDeliveryError(deliveryErr))
	assert.True(t, IsDuplicateMessageError(dupErr))
	assert.True(t, IsMessageNotFoundError(notFoundErr))
	assert.True(t, IsValidationError(validationErr))

	assert.False(t, IsAuthenticationError(deliveryErr))
	assert.False(t, IsMessageDeliveryError(authErr))
	assert.False(t, IsDuplicateMessageError(notFoundErr))
}

func TestErrorHelpersUnwrapChains(t *testing.T) {
	wrapped := fmt.Errorf("worker: %w", &DuplicateMessageError{RecipientURL: "https://example.com/in/u1"})
	assert.True(t, IsDuplicateMessageError(wrapped))
	assert.False(t, IsDuplicateMessageError(errors.New("plain")))
}

func TestMessageDeliveryErrorUnwrap(t *testing.T) {
	cause := &AuthenticationError{Reason: "credentials rejected"}
	err := &MessageDeliveryError{
		RecipientURL: "https://example.com/in/u1",
		Attempts:     3,
		LastErr:      cause,
	}

	// The terminal delivery error still exposes the underlying cause
	assert.True(t, IsAuthenticationError(err))

	var target *AuthenticationError
	require.True(t, errors.As(err, &target))
	assert.Equal(t, "credentials rejected", target.Reason)
}

func TestErrorMessages(t *testing.T) {
	assert.Contains(t, (&AuthenticationError{Reason: "blocked"}).Error(), "blocked")
	assert.Contains(t, (&MessageDeliveryError{RecipientURL: "https://x", Attempts: 3}).Error(), "3 attempts")
	assert.Contains(t, (&InvalidTransitionError{ID: "a", From: MessageStatusSent, To: MessageStatusSending}).Error(), "sent")
}
