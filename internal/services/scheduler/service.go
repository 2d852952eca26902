// -----------------------------------------------------------------------
// Scheduler Service - cron-driven queue start for unattended batches
// -----------------------------------------------------------------------

package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/courier/internal/interfaces"
)

// Service implements SchedulerService. It fires the queue worker on a
// cron schedule; a tick that finds the worker already running is a no-op
// because Start on the queue is idempotent.
type Service struct {
	queue   interfaces.QueueService
	cron    *cron.Cron
	entryID cron.EntryID
	logger  arbor.ILogger
	mu      sync.Mutex
	running bool
}

// NewService creates a scheduler that starts the given queue on schedule
func NewService(queue interfaces.QueueService, logger arbor.ILogger) interfaces.SchedulerService {
	return &Service{
		queue:  queue,
		cron:   cron.New(),
		logger: logger,
	}
}

// Start registers the cron entry and begins scheduling
func (s *Service) Start(cronExpr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	if cronExpr == "" {
		cronExpr = "0 * * * *" // Default: top of every hour
	}

	entryID, err := s.cron.AddFunc(cronExpr, s.tick)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("cron_expr", cronExpr).
		Msg("Scheduler started")

	return nil
}

// Stop halts the scheduler. Already-running queue work is unaffected.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.cron.Remove(s.entryID)
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false

	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// IsRunning reports whether the scheduler is active
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Service) tick() {
	if s.queue.IsRunning() {
		s.logger.Debug().Msg("Scheduled tick skipped - queue already running")
		return
	}

	s.logger.Info().Msg("Scheduled queue start")
	if err := s.queue.Start(context.Background()); err != nil {
		s.logger.Error().Err(err).Msg("Scheduled queue start failed")
	}
}
