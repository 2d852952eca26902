// -----------------------------------------------------------------------
// Error taxonomy - the only error kinds that cross the core boundary
// -----------------------------------------------------------------------

package models

import (
	"errors"
	"fmt"
)

// AuthenticationError indicates a definitively failed login: wrong
// credentials or the site blocked the account. Fatal to the current
// session, not to the process.
type AuthenticationError struct {
	Reason string
	Cause  error
}

func (e *AuthenticationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func (e *AuthenticationError) Unwrap() error { return e.Cause }

// MessageDeliveryError indicates all delivery attempts for one message
// were exhausted. Recovered at the job level; the worker loop continues.
type MessageDeliveryError struct {
	RecipientURL string
	Attempts     int
	LastErr      error
}

func (e *MessageDeliveryError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("message delivery to %s failed after %d attempts: %v", e.RecipientURL, e.Attempts, e.LastErr)
	}
	return fmt.Sprintf("message delivery to %s failed after %d attempts", e.RecipientURL, e.Attempts)
}

func (e *MessageDeliveryError) Unwrap() error { return e.LastErr }

// DuplicateMessageError rejects an enqueue whose recipient already has a
// non-terminal (pending or sending) message in the queue.
type DuplicateMessageError struct {
	RecipientURL string
}

func (e *DuplicateMessageError) Error() string {
	return fmt.Sprintf("message for recipient %s already queued", e.RecipientURL)
}

// MessageNotFoundError rejects an operation referencing an unknown message ID.
type MessageNotFoundError struct {
	ID string
}

func (e *MessageNotFoundError) Error() string {
	return fmt.Sprintf("message not found: %s", e.ID)
}

// ValidationError rejects malformed enqueue input before it reaches the queue.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvalidTransitionError rejects a status update that would move a message
// backwards or out of a terminal state.
type InvalidTransitionError struct {
	ID   string
	From MessageStatus
	To   MessageStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("message %s cannot transition from %s to %s", e.ID, e.From, e.To)
}

// IsAuthenticationError reports whether err is (or wraps) an AuthenticationError
func IsAuthenticationError(err error) bool {
	var target *AuthenticationError
	return errors.As(err, &target)
}

// IsMessageDeliveryError reports whether err is (or wraps) a MessageDeliveryError
func IsMessageDeliveryError(err error) bool {
	var target *MessageDeliveryError
	return errors.As(err, &target)
}

// IsDuplicateMessageError reports whether err is (or wraps) a DuplicateMessageError
func IsDuplicateMessageError(err error) bool {
	var target *DuplicateMessageError
	return errors.As(err, &target)
}

// IsMessageNotFoundError reports whether err is (or wraps) a MessageNotFoundError
func IsMessageNotFoundError(err error) bool {
	var target *MessageNotFoundError
	return errors.As(err, &target)
}

// IsValidationError reports whether err is (or wraps) a ValidationError
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
