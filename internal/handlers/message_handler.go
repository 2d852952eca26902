// -----------------------------------------------------------------------
// Message handler - enqueue and list message delivery requests
// -----------------------------------------------------------------------

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/courier/internal/interfaces"
	"github.com/ternarybob/courier/internal/models"
)

// AddMessageRequest is the enqueue payload. Validation here rejects
// malformed input at the edge; the queue service re-checks its own
// invariants regardless of caller.
type AddMessageRequest struct {
	RecipientURL string `json:"recipient_url" validate:"required,url"`
	Content      string `json:"content" validate:"required,max=8000"`
}

type MessageHandler struct {
	queueService interfaces.QueueService
	validate     *validator.Validate
	logger       arbor.ILogger
}

func NewMessageHandler(queueService interfaces.QueueService, logger arbor.ILogger) *MessageHandler {
	return &MessageHandler{
		queueService: queueService,
		validate:     validator.New(),
		logger:       logger,
	}
}

// HandleAddMessage enqueues a message for one recipient.
// POST /api/messages
func (h *MessageHandler) HandleAddMessage(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req AddMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		h.logger.Debug().Err(err).Msg("Enqueue request failed validation")
		WriteError(w, http.StatusBadRequest, "recipient_url must be a valid URL and content must be 1-8000 characters")
		return
	}

	msg, err := h.queueService.Add(r.Context(), req.RecipientURL, req.Content)
	if err != nil {
		switch {
		case models.IsDuplicateMessageError(err):
			WriteError(w, http.StatusConflict, err.Error())
		case models.IsValidationError(err):
			WriteError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error().Err(err).Msg("Failed to enqueue message")
			WriteError(w, http.StatusInternalServerError, "Failed to enqueue message")
		}
		return
	}

	WriteJSON(w, http.StatusCreated, msg)
}

// HandleListMessages returns all messages in insertion order.
// GET /api/messages
func (h *MessageHandler) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	messages, err := h.queueService.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list messages")
		WriteError(w, http.StatusInternalServerError, "Failed to list messages")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"messages": messages,
		"count":    len(messages),
	})
}
