// -----------------------------------------------------------------------
// Queue Service - ordered message queue with a single worker loop
// -----------------------------------------------------------------------

package queue

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/courier/internal/common"
	"github.com/ternarybob/courier/internal/interfaces"
	"github.com/ternarybob/courier/internal/models"
)

// Service implements QueueService. Messages live in storage; the queue
// projection is recomputed from stored rows on demand so the counters
// can never drift from their source of truth. Exactly one worker
// goroutine drains the queue, so at most one message is ever sending.
// All storage mutations hold the queue mutex, so a check-then-write
// (duplicate check, status transition, clear) is never interleaved with
// another mutation.
type Service struct {
	config     *common.QueueConfig
	storage    interfaces.MessageStorage
	dispatcher interfaces.DispatchService
	events     interfaces.EventService
	logger     arbor.ILogger

	mu              sync.Mutex
	running         bool
	stopCh          chan struct{}
	doneCh          chan struct{}
	startCount      int
	lastProcessedAt *time.Time
}

// NewService creates a queue service on top of the given storage
func NewService(config *common.QueueConfig, storage interfaces.MessageStorage, dispatcher interfaces.DispatchService, events interfaces.EventService, logger arbor.ILogger) *Service {
	return &Service{
		config:     config,
		storage:    storage,
		dispatcher: dispatcher,
		events:     events,
		logger:     logger,
	}
}

// Add enqueues a message for the given recipient. Input is validated and
// recipients with a non-terminal message already queued are rejected;
// a recipient whose earlier message reached a terminal state may be
// enqueued again.
func (s *Service) Add(ctx context.Context, recipientURL, content string) (*models.Message, error) {
	if err := validateInput(recipientURL, content); err != nil {
		return nil, err
	}

	// Duplicate check and insert under one lock; concurrent enqueues for
	// the same recipient must not both pass the check
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.storage.FindByRecipient(ctx, recipientURL)
	if err != nil {
		return nil, err
	}
	for _, m := range existing {
		if !m.Status.IsTerminal() {
			return nil, &models.DuplicateMessageError{RecipientURL: recipientURL}
		}
	}

	msg := models.NewMessage(recipientURL, content)
	seq, err := s.storage.NextSequence(ctx)
	if err != nil {
		return nil, err
	}
	msg.Sequence = seq

	if err := s.storage.Save(ctx, msg); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("message_id", msg.ID).
		Str("recipient", msg.RecipientURL).
		Msg("Message enqueued")

	return msg, nil
}

// GetNext returns the earliest-inserted pending message, or nil when no
// message is pending
func (s *Service) GetNext(ctx context.Context) (*models.Message, error) {
	messages, err := s.storage.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range messages {
		if m.Status == models.MessageStatusPending {
			return m, nil
		}
	}
	return nil, nil
}

// UpdateStatus transitions a message's status. Backward and out-of-terminal
// transitions are rejected with an InvalidTransitionError. The read and the
// write happen under the queue mutex, so a concurrent Clear cannot land
// between them and have the write resurrect a deleted row.
func (s *Service) UpdateStatus(ctx context.Context, id string, status models.MessageStatus, errDetail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, err := s.storage.Get(ctx, id)
	if err != nil {
		return err
	}

	if !msg.Status.CanTransitionTo(status) {
		return &models.InvalidTransitionError{ID: id, From: msg.Status, To: status}
	}

	msg.Status = status
	msg.Error = errDetail
	msg.UpdatedAt = time.Now()

	if err := s.storage.Save(ctx, msg); err != nil {
		return err
	}

	if status.IsTerminal() {
		now := time.Now()
		s.lastProcessedAt = &now
	}

	return nil
}

// setRecipientName records the extracted display name on the stored row
// without touching its status. A row removed by Clear while the message
// was in flight is left alone.
func (s *Service) setRecipientName(ctx context.Context, id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.storage.Get(ctx, id)
	if err != nil {
		return
	}
	stored.RecipientName = name
	stored.UpdatedAt = time.Now()
	_ = s.storage.Save(ctx, stored)
}

// List returns all messages in insertion order
func (s *Service) List(ctx context.Context) ([]*models.Message, error) {
	return s.storage.List(ctx)
}

// Status returns the queue projection derived from stored messages
func (s *Service) Status(ctx context.Context) (*models.QueueStatus, error) {
	messages, err := s.storage.List(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	status := &models.QueueStatus{
		IsRunning:       s.running,
		LastProcessedAt: s.lastProcessedAt,
	}
	s.mu.Unlock()

	for _, m := range messages {
		switch m.Status {
		case models.MessageStatusPending, models.MessageStatusSending:
			status.QueueLength++
		case models.MessageStatusSent:
			status.ProcessedCount++
		case models.MessageStatusFailed:
			status.FailedCount++
		}
	}

	return status, nil
}

// Clear drops all stored messages and resets the counters. A message
// already handed to the dispatcher completes its attempt sequence; its
// terminal status update then finds no row and is discarded.
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.DeleteAll(ctx); err != nil {
		return err
	}
	s.lastProcessedAt = nil

	s.logger.Info().Msg("Queue cleared")
	return nil
}

// IsRunning reports whether the worker loop is active
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// validateInput rejects malformed enqueue input before it reaches storage
func validateInput(recipientURL, content string) error {
	if strings.TrimSpace(recipientURL) == "" {
		return &models.ValidationError{Field: "recipient_url", Reason: "must not be empty"}
	}
	parsed, err := url.Parse(recipientURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return &models.ValidationError{Field: "recipient_url", Reason: "must be an absolute URL"}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return &models.ValidationError{Field: "recipient_url", Reason: "must use http or https"}
	}
	if strings.TrimSpace(content) == "" {
		return &models.ValidationError{Field: "content", Reason: "must not be empty"}
	}
	return nil
}
