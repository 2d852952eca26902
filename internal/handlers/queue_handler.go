// -----------------------------------------------------------------------
// Queue handler - worker lifecycle and queue projection
// -----------------------------------------------------------------------

package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/courier/internal/interfaces"
)

type QueueHandler struct {
	queueService interfaces.QueueService
	logger       arbor.ILogger
}

func NewQueueHandler(queueService interfaces.QueueService, logger arbor.ILogger) *QueueHandler {
	return &QueueHandler{
		queueService: queueService,
		logger:       logger,
	}
}

// HandleStatus returns the queue projection.
// GET /api/queue/status
func (h *QueueHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	status, err := h.queueService.Status(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to compute queue status")
		WriteError(w, http.StatusInternalServerError, "Failed to compute queue status")
		return
	}

	WriteJSON(w, http.StatusOK, status)
}

// HandleStart launches the worker loop. Starting an already-running queue
// succeeds without effect.
// POST /api/queue/start
func (h *QueueHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if err := h.queueService.Start(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("Failed to start queue")
		WriteError(w, http.StatusInternalServerError, "Failed to start queue")
		return
	}

	WriteStarted(w, "Queue processing started")
}

// HandleStop signals the worker loop to stop after the in-flight message.
// POST /api/queue/stop
func (h *QueueHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if err := h.queueService.Stop(); err != nil {
		h.logger.Error().Err(err).Msg("Failed to stop queue")
		WriteError(w, http.StatusInternalServerError, "Failed to stop queue")
		return
	}

	WriteSuccess(w, "Queue processing stopped")
}

// HandleClear drops all queued messages and resets counters.
// POST /api/queue/clear
func (h *QueueHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if err := h.queueService.Clear(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("Failed to clear queue")
		WriteError(w, http.StatusInternalServerError, "Failed to clear queue")
		return
	}

	WriteSuccess(w, "Queue cleared")
}
