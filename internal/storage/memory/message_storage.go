// -----------------------------------------------------------------------
// In-memory message store - used when no storage path is configured
// -----------------------------------------------------------------------

package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ternarybob/courier/internal/interfaces"
	"github.com/ternarybob/courier/internal/models"
)

// MessageStorage is a mutex-guarded in-memory implementation of the
// MessageStorage interface. Queue state does not survive a restart.
type MessageStorage struct {
	mu       sync.RWMutex
	messages map[string]*models.Message
	sequence uint64
}

// NewMessageStorage creates an empty in-memory store
func NewMessageStorage() interfaces.MessageStorage {
	return &MessageStorage{
		messages: make(map[string]*models.Message),
	}
}

func (s *MessageStorage) Save(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *msg
	s.messages[msg.ID] = &copied
	return nil
}

func (s *MessageStorage) Get(ctx context.Context, id string) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[id]
	if !ok {
		return nil, &models.MessageNotFoundError{ID: id}
	}
	copied := *msg
	return &copied, nil
}

func (s *MessageStorage) List(ctx context.Context) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := make([]*models.Message, 0, len(s.messages))
	for _, msg := range s.messages {
		copied := *msg
		messages = append(messages, &copied)
	}
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].Sequence < messages[j].Sequence
	})
	return messages, nil
}

func (s *MessageStorage) FindByRecipient(ctx context.Context, recipientURL string) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var messages []*models.Message
	for _, msg := range s.messages {
		if msg.RecipientURL == recipientURL {
			copied := *msg
			messages = append(messages, &copied)
		}
	}
	return messages, nil
}

func (s *MessageStorage) NextSequence(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sequence++
	return s.sequence, nil
}

func (s *MessageStorage) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = make(map[string]*models.Message)
	s.sequence = 0
	return nil
}

func (s *MessageStorage) Close() error {
	return nil
}
