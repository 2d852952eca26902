package badger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/courier/internal/common"
	"github.com/ternarybob/courier/internal/interfaces"
	"github.com/ternarybob/courier/internal/models"
)

func newTestStorage(t *testing.T) interfaces.MessageStorage {
	t.Helper()

	db, err := NewBadgerDB(common.GetLogger(), &common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "courier-test"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewMessageStorage(db, common.GetLogger())
}

func TestSaveAndGet(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	msg := models.NewMessage("https://example.com/in/u1", "hello")
	msg.Sequence = 1
	require.NoError(t, storage.Save(ctx, msg))

	loaded, err := storage.Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, loaded.ID)
	assert.Equal(t, msg.RecipientURL, loaded.RecipientURL)
	assert.Equal(t, msg.Content, loaded.Content)
	assert.Equal(t, models.MessageStatusPending, loaded.Status)
}

func TestSaveRequiresID(t *testing.T) {
	storage := newTestStorage(t)

	err := storage.Save(context.Background(), &models.Message{})
	assert.Error(t, err)
}

func TestSaveUpdatesExisting(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	msg := models.NewMessage("https://example.com/in/u1", "hello")
	require.NoError(t, storage.Save(ctx, msg))

	msg.Status = models.MessageStatusSending
	require.NoError(t, storage.Save(ctx, msg))

	loaded, err := storage.Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MessageStatusSending, loaded.Status)

	messages, err := storage.List(ctx)
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}

func TestGetUnknownID(t *testing.T) {
	storage := newTestStorage(t)

	_, err := storage.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, models.IsMessageNotFoundError(err))
}

func TestListOrderedBySequence(t *testing.T) {
	storage := newTestStorage(t)
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
	}
}

func TestFindByRecipient(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	m1 := models.NewMessage("https://example.com/in/u1", "a")
	m2 := models.NewMessage("https://example.com/in/u2", "b")
	require.NoError(t, storage.Save(ctx, m1))
	require.NoError(t, storage.Save(ctx, m2))

	found, err := storage.FindByRecipient(ctx, "https://example.com/in/u1")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, m1.ID, found[0].ID)

	found, err = storage.FindByRecipient(ctx, "https://example.com/in/unknown")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestNextSequenceMonotonic(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	var last uint64
	for i := 0; i < 5; i++ {
		seq, err := storage.NextSequence(ctx)
		require.NoError(t, err)
		assert.Greater(t, seq, last)
		last = seq
	}
}

func TestDeleteAll(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		msg := models.NewMessage("https://example.com/in/u1", "hello")
		seq, err := storage.NextSequence(ctx)
		require.NoError(t, err)
		msg.Sequence = seq
		require.NoError(t, storage.Save(ctx, msg))
	}

	require.NoError(t, storage.DeleteAll(ctx))

	messages, err := storage.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, messages)

	// Sequence restarts after a clear
	seq, err := storage.NextSequence(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), seq)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "courier-test")
	ctx := context.Background()

	db, err := NewBadgerDB(common.GetLogger(), &common.BadgerConfig{Path: dir})
	require.NoError(t, err)
	storage := NewMessageStorage(db, common.GetLogger())

	msg := models.NewMessage("https://example.com/in/u1", "hello")
	seq, err := storage.NextSequence(ctx)
	require.NoError(t, err)
	msg.Sequence = seq
	require.NoError(t, storage.Save(ctx, msg))
	require.NoError(t, db.Close())

	db, err = NewBadgerDB(common.GetLogger(), &common.BadgerConfig{Path: dir})
	require.NoError(t, err)
	defer db.Close()
	storage = NewMessageStorage(db, common.GetLogger())

	loaded, err := storage.Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, msg.RecipientURL, loaded.RecipientURL)

	// Counter continues from the persisted value
	seq, err = storage.NextSequence(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), seq)
}

func TestResetOnStartup(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "courier-test")
	ctx := context.Background()

	db, err := NewBadgerDB(common.GetLogger(), &common.BadgerConfig{Path: dir})
	require.NoError(t, err)
	storage := NewMessageStorage(db, common.GetLogger())
	require.NoError(t, storage.Save(ctx, models.NewMessage("https://example.com/in/u1", "hello")))
	require.NoError(t, db.Close())

	db, err = NewBadgerDB(common.GetLogger(), &common.BadgerConfig{Path: dir, ResetOnStartup: true})
	require.NoError(t, err)
	defer db.Close()
	storage = NewMessageStorage(db, common.GetLogger())

	messages, err := storage.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, messages)
}
