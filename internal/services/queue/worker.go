package queue

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/ternarybob/courier/internal/common"
	"github.com/ternarybob/courier/internal/interfaces"
	"github.com/ternarybob/courier/internal/models"
)

// Start launches the worker loop. Calling Start while the loop is already
// running is a no-op; exactly one loop ever drains the queue.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Debug().Msg("Queue worker already running")
		return nil
	}
	s.running = true
	s.startCount++
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	s.logger.Info().Msg("Queue worker started")
	s.publish(ctx, interfaces.EventStatus, "Queue processing started")

	go s.loop(ctx, stopCh, doneCh)
	return nil
}

// Stop signals the worker loop and waits for it to exit. A message already
// handed to the dispatcher completes its attempt sequence first; no new
// message is picked up.
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	close(stopCh)
	<-doneCh

	s.logger.Info().Msg("Queue worker stopped")
	return nil
}

// loop drains the queue one message at a time. It keeps running between
// batches, polling at the idle interval, until stopped.
func (s *Service) loop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer func() {
		if r := recover(); r != nil {
			common.WriteCrashFile(r, string(debug.Stack()))
			s.logger.Error().Str("panic", fmt.Sprintf("%v", r)).Msg("Queue worker panicked")
		}
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		close(doneCh)
	}()

	var batchProcessed, batchFailed, batchTotal int
	inBatch := false

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		msg, err := s.GetNext(ctx)
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to read queue")
			if !s.sleep(ctx, stopCh, s.config.IdleDelay.Std()) {
				return
			}
			continue
		}

		if msg == nil {
			if inBatch {
				s.publishBatchComplete(ctx, batchProcessed, batchFailed)
				inBatch = false
				batchProcessed, batchFailed, batchTotal = 0, 0, 0
			}
			if !s.sleep(ctx, stopCh, s.config.IdleDelay.Std()) {
				return
			}
			continue
		}

		if !inBatch {
			inBatch = true
			batchTotal = s.pendingCount(ctx)
		}

		s.process(ctx, msg)

		switch s.currentStatus(ctx, msg.ID) {
		case models.MessageStatusFailed:
			batchFailed++
		default:
			batchProcessed++
		}
		s.publishProgress(ctx, batchProcessed+batchFailed, batchTotal)

		if !s.sleep(ctx, stopCh, s.config.PacingDelay.Std()) {
			return
		}
	}
}

// process runs one message through the dispatcher and records the terminal
// outcome. Delivery and authentication failures mark the message failed
// and the loop continues; only the caller's context stops it.
func (s *Service) process(ctx context.Context, msg *models.Message) {
	if err := s.UpdateStatus(ctx, msg.ID, models.MessageStatusSending, ""); err != nil {
		// Cleared out from under us between GetNext and here
		s.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("Skipping message")
		return
	}

	s.publish(ctx, interfaces.EventStatus, fmt.Sprintf("Sending message to %s", msg.RecipientURL))

	result, err := s.dispatcher.SendMessage(ctx, msg)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("message_id", msg.ID).
			Str("recipient", msg.RecipientURL).
			Msg("Message delivery failed")

		s.recordTerminal(ctx, msg.ID, models.MessageStatusFailed, err.Error())
		s.publish(ctx, interfaces.EventError, fmt.Sprintf("Delivery to %s failed: %v", msg.RecipientURL, err))
		s.publishMessageComplete(ctx, &models.DeliveryResult{
			Success:      false,
			RecipientURL: msg.RecipientURL,
			Message:      err.Error(),
		})
		return
	}

	if result.RecipientName != "" {
		// Set the name on the stored row, never on the worker's stale
		// pre-sending snapshot
		s.setRecipientName(ctx, msg.ID, result.RecipientName)
	}

	s.recordTerminal(ctx, msg.ID, models.MessageStatusSent, "")
	s.publishMessageComplete(ctx, result)
}

// recordTerminal applies a terminal status, tolerating a row removed by
// Clear while the message was in flight
func (s *Service) recordTerminal(ctx context.Context, id string, status models.MessageStatus, errDetail string) {
	if err := s.UpdateStatus(ctx, id, status, errDetail); err != nil {
		if models.IsMessageNotFoundError(err) {
			return
		}
		s.logger.Error().Err(err).Str("message_id", id).Msg("Failed to record delivery outcome")
	}
}

func (s *Service) currentStatus(ctx context.Context, id string) models.MessageStatus {
	msg, err := s.storage.Get(ctx, id)
	if err != nil {
		return models.MessageStatusSent
	}
	return msg.Status
}

func (s *Service) pendingCount(ctx context.Context) int {
	messages, err := s.storage.List(ctx)
	if err != nil {
		return 0
	}
	count := 0
	for _, m := range messages {
		if !m.Status.IsTerminal() {
			count++
		}
	}
	return count
}

// sleep waits for the given duration, returning false if the worker was
// stopped or the context cancelled while waiting
func (s *Service) sleep(ctx context.Context, stopCh <-chan struct{}, d time.Duration) bool {
	if d <= 0 {
		select {
		case <-stopCh:
			return false
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-stopCh:
		return false
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (s *Service) publish(ctx context.Context, eventType interfaces.EventType, payload interface{}) {
	if s.events == nil {
		return
	}
	_ = s.events.Publish(ctx, interfaces.Event{Type: eventType, Payload: payload})
}

func (s *Service) publishProgress(ctx context.Context, done, total int) {
	if total <= 0 {
		return
	}
	percent := done * 100 / total
	if percent > 100 {
		percent = 100
	}
	s.publish(ctx, interfaces.EventProgress, map[string]interface{}{
		"done":    done,
		"total":   total,
		"percent": percent,
	})
}

func (s *Service) publishMessageComplete(ctx context.Context, result *models.DeliveryResult) {
	s.publish(ctx, interfaces.EventMessageComplete, result)
}

func (s *Service) publishBatchComplete(ctx context.Context, processed, failed int) {
	s.logger.Info().
		Int("processed", processed).
		Int("failed", failed).
		Msg("Queue drained")
	s.publish(ctx, interfaces.EventComplete, &models.BatchResult{
		Processed: processed,
		Failed:    failed,
		Message:   fmt.Sprintf("Processed %d messages, %d failed", processed, failed),
	})
}
