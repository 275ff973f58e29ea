package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wisecare-health/sos-gateway/pkg/timeplus"
)

func nextEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case event := <-ch:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for feed event")
		return Event{}
	}
}

func TestFeedClassifiesAddedAndUpdated(t *testing.T) {
	mockClient := new(MockClient)

	backfill := []map[string]interface{}{
		{"id": "alert1", "status": "pending"},
	}
	mockClient.On("ExecuteQuery", mock.Anything, "SELECT * FROM table("+timeplus.AlertsStream+")").
		Return(backfill, nil)

	// The streaming query replays alert1 (an update) and introduces alert2,
	// then blocks until the feed is stopped
	mockClient.On("StreamQuery", mock.Anything, "SELECT * FROM "+timeplus.AlertsStream, mock.Anything).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			callback := args.Get(2).(func(row map[string]interface{}))
			callback(map[string]interface{}{"id": "alert1", "status": "assigned"})
			callback(map[string]interface{}{"id": "alert2", "status": "pending"})
			<-ctx.Done()
		}).Return(context.Canceled)

	feed := NewFeed(mockClient, timeplus.AlertsStream)
	ch, unsubscribe := feed.Subscribe(8)
	defer unsubscribe()

	require.NoError(t, feed.Start(context.Background()))

	first := nextEvent(t, ch)
	assert.Equal(t, EventAdded, first.Type)
	assert.Equal(t, "alert1", first.Row["id"])

	second := nextEvent(t, ch)
	assert.Equal(t, EventUpdated, second.Type)
	assert.Equal(t, "alert1", second.Row["id"])

	third := nextEvent(t, ch)
	assert.Equal(t, EventAdded, third.Type)
	assert.Equal(t, "alert2", third.Row["id"])

	feed.Stop()
	mockClient.AssertExpectations(t)
}

func TestFeedStartFailsWhenBackfillFails(t *testing.T) {
	mockClient := new(MockClient)
	mockClient.On("ExecuteQuery", mock.Anything, mock.Anything).
		Return(nil, errors.New("stream not found"))

	feed := NewFeed(mockClient, timeplus.AlertsStream)
	err := feed.Start(context.Background())
	require.Error(t, err)

	// Stop after a failed start must not hang
	feed.Stop()
}

func TestFeedDropsEventsForFullSubscriber(t *testing.T) {
	feed := NewFeed(new(MockClient), timeplus.AlertsStream)
	ch, unsubscribe := feed.Subscribe(1)
	defer unsubscribe()

	feed.dispatch(map[string]interface{}{"id": "alert1"})
	feed.dispatch(map[string]interface{}{"id": "alert2"})

	// The second event is dropped rather than stalling the feed
	assert.Len(t, ch, 1)
	event := nextEvent(t, ch)
	assert.Equal(t, "alert1", event.Row["id"])
}

func TestFeedSkipsRowsWithoutID(t *testing.T) {
	feed := NewFeed(new(MockClient), timeplus.AlertsStream)
	ch, unsubscribe := feed.Subscribe(4)
	defer unsubscribe()

	feed.dispatch(map[string]interface{}{"status": "pending"})
	assert.Len(t, ch, 0)
}

func TestFeedUnsubscribeIsIdempotent(t *testing.T) {
	feed := NewFeed(new(MockClient), timeplus.AlertsStream)
	ch, unsubscribe := feed.Subscribe(4)

	unsubscribe()
	unsubscribe()

	_, open := <-ch
	assert.False(t, open)

	// Dispatch after unsubscribe reaches nobody but must not panic
	feed.dispatch(map[string]interface{}{"id": "alert1"})
}
