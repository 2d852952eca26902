// -----------------------------------------------------------------------
// App - component wiring and lifecycle for the courier service
// -----------------------------------------------------------------------

package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/courier/internal/common"
	"github.com/ternarybob/courier/internal/handlers"
	"github.com/ternarybob/courier/internal/interfaces"
	"github.com/ternarybob/courier/internal/services/dispatch"
	"github.com/ternarybob/courier/internal/services/events"
	"github.com/ternarybob/courier/internal/services/queue"
	"github.com/ternarybob/courier/internal/services/scheduler"
	"github.com/ternarybob/courier/internal/services/session"
	"github.com/ternarybob/courier/internal/storage/badger"
	"github.com/ternarybob/courier/internal/storage/memory"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	badgerDB       *badger.BadgerDB
	MessageStorage interfaces.MessageStorage

	// Core services
	EventService     interfaces.EventService
	SessionService   interfaces.SessionService
	DispatchService  interfaces.DispatchService
	QueueService     interfaces.QueueService
	SchedulerService interfaces.SchedulerService

	// HTTP handlers
	APIHandler     *handlers.APIHandler
	MessageHandler *handlers.MessageHandler
	QueueHandler   *handlers.QueueHandler
	WSHandler      *handlers.WebSocketHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	app.initServices()
	app.initHandlers()

	if cfg.Scheduler.Enabled {
		if err := app.SchedulerService.Start(cfg.Scheduler.Schedule); err != nil {
			return nil, fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	logger.Info().
		Bool("scheduler_enabled", cfg.Scheduler.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

// initStorage opens the message store. An empty badger path selects the
// in-memory store, which loses the queue on restart.
func (a *App) initStorage() error {
	if a.Config.Storage.Badger.Path == "" {
		a.Logger.Info().Msg("No storage path configured - using in-memory message store")
		a.MessageStorage = memory.NewMessageStorage()
		return nil
	}

	db, err := badger.NewBadgerDB(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return err
	}
	a.badgerDB = db
	a.MessageStorage = badger.NewMessageStorage(db, a.Logger)

	return nil
}

func (a *App) initServices() {
	a.EventService = events.NewService(a.Logger)

	a.SessionService = session.NewService(&a.Config.Session, &a.Config.Target, a.Logger)

	a.DispatchService = dispatch.NewService(
		&a.Config.Dispatch,
		&a.Config.Session,
		a.SessionService,
		a.EventService,
		a.Logger,
	)

	a.QueueService = queue.NewService(
		&a.Config.Queue,
		a.MessageStorage,
		a.DispatchService,
		a.EventService,
		a.Logger,
	)

	a.SchedulerService = scheduler.NewService(a.QueueService, a.Logger)
}

func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler()
	a.MessageHandler = handlers.NewMessageHandler(a.QueueService, a.Logger)
	a.QueueHandler = handlers.NewQueueHandler(a.QueueService, a.Logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, a.Logger, &a.Config.WebSocket)
}

// Close shuts down all components in dependency order: queue first so no
// new work reaches the browser, then the session, then storage.
func (a *App) Close() error {
	a.Logger.Info().Msg("Shutting down application...")

	if a.SchedulerService != nil && a.SchedulerService.IsRunning() {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler")
		}
	}

	if a.QueueService != nil && a.QueueService.IsRunning() {
		if err := a.QueueService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop queue worker")
		}
	}

	if a.SessionService != nil {
		if err := a.SessionService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close browser session")
		}
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.MessageStorage != nil {
		if err := a.MessageStorage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close message storage")
		}
	}

	if a.badgerDB != nil {
		if err := a.badgerDB.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close database")
		}
	}

	a.Logger.Info().Msg("Application shutdown complete")
	return nil
}
