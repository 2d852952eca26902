// -----------------------------------------------------------------------
// Dispatcher - the multi-step UI interaction that delivers one message
// -----------------------------------------------------------------------

package dispatch

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/courier/internal/common"
	"github.com/ternarybob/courier/internal/interfaces"
	"github.com/ternarybob/courier/internal/models"
)

// Service implements DispatchService. It borrows the browser context from
// the session controller for the duration of one interaction and retains
// nothing across attempts, so a session recycle never leaves it holding a
// stale handle.
type Service struct {
	config        *common.DispatchConfig
	session       interfaces.SessionService
	events        interfaces.EventService
	newInteractor InteractorFactory
	retry         *RetryPolicy
	logger        arbor.ILogger
}

// NewService creates a dispatcher backed by the real browser
func NewService(config *common.DispatchConfig, sessionConfig *common.SessionConfig, session interfaces.SessionService, events interfaces.EventService, logger arbor.ILogger) *Service {
	return &Service{
		config:        config,
		session:       session,
		events:        events,
		newInteractor: NewChromedpInteractor(config, sessionConfig),
		retry:         NewRetryPolicy(config.MaxAttempts, config.RetryDelay.Std(), config.RetryBackoff),
		logger:        logger,
	}
}

// NewServiceWithInteractor creates a dispatcher with a custom interactor
// factory. Used by tests to exercise the retry loop without Chrome.
func NewServiceWithInteractor(config *common.DispatchConfig, session interfaces.SessionService, events interfaces.EventService, factory InteractorFactory, logger arbor.ILogger) *Service {
	return &Service{
		config:        config,
		session:       session,
		events:        events,
		newInteractor: factory,
		retry:         NewRetryPolicy(config.MaxAttempts, config.RetryDelay.Std(), config.RetryBackoff),
		logger:        logger,
	}
}

// SendMessage delivers one message with bounded retry. Every unexpected
// failure inside an attempt is absorbed into the retry path; the only
// error this method returns after a live session is a
// MessageDeliveryError once the attempt cap is exhausted.
func (s *Service) SendMessage(ctx context.Context, msg *models.Message) (*models.DeliveryResult, error) {
	var lastErr error

	for attempt := 1; attempt <= s.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			s.logger.Warn().
				Str("recipient", msg.RecipientURL).
				Int("attempt", attempt).
				Int("max_attempts", s.retry.MaxAttempts).
				Err(lastErr).
				Msg("Retrying message delivery")
			if err := s.retry.Wait(ctx, attempt); err != nil {
				lastErr = err
				break
			}
		}

		s.publishLog(ctx, fmt.Sprintf("Delivery attempt %d/%d for %s", attempt, s.retry.MaxAttempts, msg.RecipientURL))

		result, err := s.attempt(ctx, msg)
		if err == nil {
			s.logger.Info().
				Str("recipient", msg.RecipientURL).
				Int("attempt", attempt).
				Msg("Message delivered")
			result.Attempts = attempt
			return result, nil
		}

		lastErr = err
		s.logger.Warn().
			Err(err).
			Str("recipient", msg.RecipientURL).
			Int("attempt", attempt).
			Msg("Delivery attempt failed")
		s.publishLog(ctx, fmt.Sprintf("Attempt %d failed: %v", attempt, err))
	}

	return nil, &models.MessageDeliveryError{
		RecipientURL: msg.RecipientURL,
		Attempts:     s.retry.MaxAttempts,
		LastErr:      lastErr,
	}
}

// attempt performs one pass of the full interaction. Any error return
// feeds the retry loop; nothing here is fatal on its own.
func (s *Service) attempt(ctx context.Context, msg *models.Message) (*models.DeliveryResult, error) {
	browserCtx, err := s.session.EnsureSession(ctx)
	if err != nil {
		// Login failures count as attempt failures here; a later attempt
		// retries login against a possibly recovered session
		return nil, fmt.Errorf("session unavailable: %w", err)
	}

	actor := s.newInteractor(browserCtx)

	if err := actor.Navigate(ctx, msg.RecipientURL); err != nil {
		return nil, fmt.Errorf("profile navigation failed: %w", err)
	}

	recipientName := ""
	if s.config.ExtractProfile {
		if html, err := actor.ProfileHTML(ctx); err == nil {
			recipientName = extractProfileName(html)
		}
	}

	if err := actor.OpenComposer(ctx); err != nil {
		return nil, fmt.Errorf("composer unavailable: %w", err)
	}

	if err := actor.TypeMessage(ctx, msg.Content); err != nil {
		return nil, fmt.Errorf("typing failed: %w", err)
	}

	if err := actor.Submit(ctx); err != nil {
		return nil, fmt.Errorf("submit failed: %w", err)
	}

	// Success is the input surface coming back empty or absent, not any
	// HTTP signal from the navigation
	cleared, err := actor.VerifyCleared(ctx)
	if err != nil {
		return nil, fmt.Errorf("verification failed: %w", err)
	}
	if !cleared {
		return nil, fmt.Errorf("input surface not cleared after submit")
	}

	return &models.DeliveryResult{
		Success:       true,
		RecipientURL:  msg.RecipientURL,
		RecipientName: recipientName,
		Message:       "delivered",
	}, nil
}

func (s *Service) publishLog(ctx context.Context, line string) {
	if s.events == nil {
		return
	}
	_ = s.events.Publish(ctx, interfaces.Event{
		Type:    interfaces.EventLog,
		Payload: line,
	})
}
