package scheduler

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/courier/internal/common"
	"github.com/ternarybob/courier/internal/models"
)

// Mock QueueService
type mockQueueService struct {
	mu         sync.Mutex
	running    bool
	startCalls int
}

func (m *mockQueueService) Add(ctx context.Context, recipientURL, content string) (*models.Message, error) {
	return nil, nil
}

func (m *mockQueueService) GetNext(ctx context.Context) (*models.Message, error) { return nil, nil }

func (m *mockQueueService) UpdateStatus(ctx context.Context, id string, status models.MessageStatus, errDetail string) error {
	return nil
}

func (m *mockQueueService) List(ctx context.Context) ([]*models.Message, error) { return nil, nil }

func (m *mockQueueService) Status(ctx context.Context) (*models.QueueStatus, error) {
	return &models.QueueStatus{}, nil
}

func (m *mockQueueService) Clear(ctx context.Context) error { return nil }

func (m *mockQueueService) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startCalls++
	m.running = true
	return nil
}

func (m *mockQueueService) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	return nil
}

func (m *mockQueueService) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func TestSchedulerStartStop(t *testing.T) {
	queue := &mockQueueService{}
	svc := NewService(queue, common.GetLogger())

	assert.False(t, svc.IsRunning())

	require.NoError(t, svc.Start("0 * * * *"))
	assert.True(t, svc.IsRunning())

	// Second Start while running is rejected
	err := svc.Start("0 * * * *")
	assert.Error(t, err)

	require.NoError(t, svc.Stop())
	assert.False(t, svc.IsRunning())

	// Stop when already stopped is a no-op
	require.NoError(t, svc.Stop())
}

func TestSchedulerRejectsInvalidExpression(t *testing.T) {
	queue := &mockQueueService{}
	svc := NewService(queue, common.GetLogger())

	err := svc.Start("not a cron expression")
	require.Error(t, err)
	assert.False(t, svc.IsRunning())
}

func TestSchedulerTickSkipsRunningQueue(t *testing.T) {
	queue := &mockQueueService{running: true}
	svc := NewService(queue, common.GetLogger()).(*Service)

	svc.tick()

	queue.mu.Lock()
	defer queue.mu.Unlock()
	assert.Equal(t, 0, queue.startCalls)
}

func TestSchedulerTickStartsIdleQueue(t *testing.T) {
	queue := &mockQueueService{}
	svc := NewService(queue, common.GetLogger()).(*Service)

	svc.tick()
	svc.tick()

	queue.mu.Lock()
	defer queue.mu.Unlock()
	// Second tick finds the queue running and does nothing
	assert.Equal(t, 1, queue.startCalls)
}

func TestSchedulerDefaultExpression(t *testing.T) {
	queue := &mockQueueService{}
	svc := NewService(queue, common.GetLogger())

	require.NoError(t, svc.Start(""))
	assert.True(t, svc.IsRunning())
	require.NoError(t, svc.Stop())
}
