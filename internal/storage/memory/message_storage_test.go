package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/courier/internal/models"
)

func TestSaveAndGet(t *testing.T) {
	storage := NewMessageStorage()
	ctx := context.Background()

	msg := models.NewMessage("https://example.com/in/u1", "hello")
	require.NoError(t, storage.Save(ctx, msg))

	loaded, err := storage.Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, loaded.ID)
	assert.Equal(t, msg.RecipientURL, loaded.RecipientURL)
	assert.Equal(t, models.MessageStatusPending, loaded.Status)
}

func TestGetUnknownID(t *testing.T) {
	storage := NewMessageStorage()

	_, err := storage.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, models.IsMessageNotFoundError(err))
}

func TestGetReturnsCopy(t *testing.T) {
	storage := NewMessageStorage()
	ctx := context.Background()

	msg := models.NewMessage("https://example.com/in/u1", "hello")
	require.NoError(t, storage.Save(ctx, msg))

	loaded, err := storage.Get(ctx, msg.ID)
	require.NoError(t, err)

	// Mutating the returned message must not change the stored row
	loaded.Status = models.MessageStatusFailed

	reloaded, err := storage.Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MessageStatusPending, reloaded.Status)
}

func TestListOrderedBySequence(t *testing.T) {
	storage := NewMessageStorage()
	ctx := context.Background()

	urls := []string{
		"https://example.com/in/u1",
		"https://example.com/in/u2",
		"https://example.com/in/u3",
	}
	for _, url := range urls {
		msg := models.NewMessage(url, "hello")
		seq, err := storage.NextSequence(ctx)
		require.NoError(t, err)
		msg.Sequence = seq
		require.NoError(t, storage.Save(ctx, msg))
	}

	messages, err := storage.List(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	for i, msg := range messages {
		assert.Equal(t, urls[i], msg.RecipientURL)
		assert.Equal(t, uint64(i+1), msg.Sequence)
	}
}

func TestFindByRecipient(t *testing.T) {
	storage := NewMessageStorage()
	ctx := context.Background()

	m1 := models.NewMessage("https://example.com/in/u1", "a")
	m2 := models.NewMessage("https://example.com/in/u1", "b")
	m3 := models.NewMessage("https://example.com/in/u2", "c")
	for _, m := range []*models.Message{m1, m2, m3} {
		require.NoError(t, storage.Save(ctx, m))
	}

	found, err := storage.FindByRecipient(ctx, "https://example.com/in/u1")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = storage.FindByRecipient(ctx, "https://example.com/in/unknown")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestDeleteAllResetsSequence(t *testing.T) {
	storage := NewMessageStorage()
	ctx := context.Background()

	msg := models.NewMessage("https://example.com/in/u1", "a")
	seq, err := storage.NextSequence(ctx)
	require.NoError(t, err)
	msg.Sequence = seq
	require.NoError(t, storage.Save(ctx, msg))

	require.NoError(t, storage.DeleteAll(ctx))

	messages, err := storage.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, messages)

	seq, err = storage.NextSequence(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), seq)
}
