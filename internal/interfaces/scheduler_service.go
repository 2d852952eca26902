package interfaces

// SchedulerService starts the queue on a cron schedule, so unattended
// installs can drain overnight batches inside allowed hours.
type SchedulerService interface {
	// Start registers the cron entry and begins scheduling
	Start(cronExpr string) error

	// Stop halts the scheduler
	Stop() error

	// IsRunning reports whether the scheduler is active
	IsRunning() bool
}
