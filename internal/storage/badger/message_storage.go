package badger

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/courier/internal/interfaces"
	"github.com/ternarybob/courier/internal/models"
)

// sequenceKey is the key under which the insertion sequence counter is stored
const sequenceKey = "message_sequence"

// sequenceRecord persists the monotonic insertion counter across restarts
type sequenceRecord struct {
	Key   string `badgerhold:"key"`
	Value uint64
}

// MessageStorage implements the MessageStorage interface on Badger.
// Messages are stored by ID with secondary indexes on RecipientURL and
// Status; insertion order is preserved through the Sequence field.
type MessageStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	seqMu  sync.Mutex
}

// NewMessageStorage creates a new MessageStorage instance
func NewMessageStorage(db *BadgerDB, logger arbor.ILogger) interfaces.MessageStorage {
	return &MessageStorage{
		db:     db,
		logger: logger,
	}
}

func (s *MessageStorage) Save(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		return fmt.Errorf("message ID is required")
	}

	// Dereference pointer to keep a consistent type prefix with Find
	if err := s.db.Store().Upsert(msg.ID, *msg); err != nil {
		s.logger.Error().Err(err).Str("message_id", msg.ID).Msg("BadgerDB: Failed to upsert message")
		return fmt.Errorf("failed to save message: %w", err)
	}

	s.logger.Trace().
		Str("message_id", msg.ID).
		Str("status", string(msg.Status)).
		Msg("BadgerDB: Message saved")
	return nil
}

func (s *MessageStorage) Get(ctx context.Context, id string) (*models.Message, error) {
	var msg models.Message
	if err := s.db.Store().Get(id, &msg); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, &models.MessageNotFoundError{ID: id}
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return &msg, nil
}

func (s *MessageStorage) List(ctx context.Context) ([]*models.Message, error) {
	var stored []models.Message
	query := badgerhold.Where("ID").Ne("").SortBy("Sequence")
	if err := s.db.Store().Find(&stored, query); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	messages := make([]*models.Message, len(stored))
	for i := range stored {
		messages[i] = &stored[i]
	}
	return messages, nil
}

func (s *MessageStorage) FindByRecipient(ctx context.Context, recipientURL string) ([]*models.Message, error) {
	var stored []models.Message
	if err := s.db.Store().Find(&stored, badgerhold.Where("RecipientURL").Eq(recipientURL)); err != nil {
		return nil, fmt.Errorf("failed to find messages by recipient: %w", err)
	}

	messages := make([]*models.Message, len(stored))
	for i := range stored {
		messages[i] = &stored[i]
	}
	return messages, nil
}

func (s *MessageStorage) NextSequence(ctx context.Context) (uint64, error) {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()

	var record sequenceRecord
	if err := s.db.Store().Get(sequenceKey, &record); err != nil && err != badgerhold.ErrNotFound {
		return 0, fmt.Errorf("failed to read sequence counter: %w", err)
	}

	record.Key = sequenceKey
	record.Value++
	if err := s.db.Store().Upsert(sequenceKey, record); err != nil {
		return 0, fmt.Errorf("failed to advance sequence counter: %w", err)
	}
	return record.Value, nil
}

func (s *MessageStorage) DeleteAll(ctx context.Context) error {
	if err := s.db.Store().DeleteMatching(&models.Message{}, badgerhold.Where("ID").Ne("")); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}

	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	record := sequenceRecord{Key: sequenceKey, Value: 0}
	if err := s.db.Store().Upsert(sequenceKey, record); err != nil {
		return fmt.Errorf("failed to reset sequence counter: %w", err)
	}

	s.logger.Debug().Msg("BadgerDB: All messages deleted")
	return nil
}

func (s *MessageStorage) Close() error {
	return nil // Connection lifetime is owned by BadgerDB
}
