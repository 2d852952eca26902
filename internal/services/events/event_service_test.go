package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/courier/internal/common"
	"github.com/ternarybob/courier/internal/interfaces"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	svc := NewService(common.GetLogger())
	defer svc.Close()

	var count int32
	handler := func(ctx context.Context, event interfaces.Event) error {
		atomic.AddInt32(&count, 1)
		return nil
	}

	_, err := svc.Subscribe(interfaces.EventStatus, handler)
	require.NoError(t, err)
	require.NoError(t, svc.Publish(context.Background(), interfaces.Event{
		Type:    interfaces.EventStatus,
		Payload: "hello",
	}))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if atomic.LoadInt32(&count) == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected 1 delivery, got %d", atomic.LoadInt32(&count))
}

func TestPublishWithNoSubscribersIsNoOp(t *testing.T) {
	svc := NewService(common.GetLogger())
	defer svc.Close()

	assert.NoError(t, svc.Publish(context.Background(), interfaces.Event{
		Type:    interfaces.EventComplete,
		Payload: "nobody listening",
	}))
}

func TestPublishSyncWaitsForHandlers(t *testing.T) {
	svc := NewService(common.GetLogger())
	defer svc.Close()

	var mu sync.Mutex
	var received []interfaces.Event

	handler := func(ctx context.Context, event interfaces.Event) error {
		mu.Lock()
		received = append(received, event)
		mu.Unlock()
		return nil
	}

	_, err := svc.Subscribe(interfaces.EventMessageComplete, handler)
	require.NoError(t, err)
	require.NoError(t, svc.PublishSync(context.Background(), interfaces.Event{
		Type:    interfaces.EventMessageComplete,
		Payload: "result",
	}))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, "result", received[0].Payload)
}

func TestPublishSyncReportsHandlerErrors(t *testing.T) {
	svc := NewService(common.GetLogger())
	defer svc.Close()

	failing := func(ctx context.Context, event interfaces.Event) error {
		return fmt.Errorf("handler broken")
	}

	_, err := svc.Subscribe(interfaces.EventError, failing)
	require.NoError(t, err)
	err = svc.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventError})
	assert.Error(t, err)
}

func TestSubscribeRejectsNilHandler(t *testing.T) {
	svc := NewService(common.GetLogger())
	defer svc.Close()

	_, err := svc.Subscribe(interfaces.EventStatus, nil)
	assert.Error(t, err)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	svc := NewService(common.GetLogger())
	defer svc.Close()

	var count int32
	handler := func(ctx context.Context, event interfaces.Event) error {
		atomic.AddInt32(&count, 1)
		return nil
	}

	sub, err := svc.Subscribe(interfaces.EventProgress, handler)
	require.NoError(t, err)
	require.NoError(t, svc.Unsubscribe(interfaces.EventProgress, sub))

	require.NoError(t, svc.PublishSync(context.Background(), interfaces.Event{
		Type: interfaces.EventProgress,
	}))
	assert.Equal(t, int32(0), atomic.LoadInt32(&count))
}

func TestUnsubscribeOneOfTwoIdenticalHandlers(t *testing.T) {
	svc := NewService(common.GetLogger())
	defer svc.Close()

	var count int32
	newHandler := func() interfaces.EventHandler {
		return func(ctx context.Context, event interfaces.Event) error {
			atomic.AddInt32(&count, 1)
			return nil
		}
	}

	first, err := svc.Subscribe(interfaces.EventProgress, newHandler())
	require.NoError(t, err)
	second, err := svc.Subscribe(interfaces.EventProgress, newHandler())
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	require.NoError(t, svc.Unsubscribe(interfaces.EventProgress, first))
	require.NoError(t, svc.PublishSync(context.Background(), interfaces.Event{
		Type: interfaces.EventProgress,
	}))
	assert.Equal(t, int32(1), atomic.LoadInt32(&count))
}

func TestUnsubscribeUnknownSubscription(t *testing.T) {
	svc := NewService(common.GetLogger())
	defer svc.Close()

	assert.Error(t, svc.Unsubscribe(interfaces.EventProgress, interfaces.Subscription(42)))
}

func TestCloseClearsSubscribers(t *testing.T) {
	svc := NewService(common.GetLogger())

	var count int32
	handler := func(ctx context.Context, event interfaces.Event) error {
		atomic.AddInt32(&count, 1)
		return nil
	}

	_, err := svc.Subscribe(interfaces.EventStatus, handler)
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	require.NoError(t, svc.PublishSync(context.Background(), interfaces.Event{
		Type: interfaces.EventStatus,
	}))
	assert.Equal(t, int32(0), atomic.LoadInt32(&count))
}
