package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wisecare-health/sos-gateway/pkg/metrics"
	"github.com/wisecare-health/sos-gateway/pkg/timeplus"
)

// EventType tags a feed emission relative to the previously observed set
type EventType string

const (
	// EventAdded means the row's id has not been seen on this feed before
	EventAdded EventType = "added"
	// EventUpdated means a previously seen row was replaced
	EventUpdated EventType = "updated"
)

// Event is a single diff-tagged emission from a collection feed
type Event struct {
	Type EventType
	Row  map[string]interface{}
}

// Feed is the single live subscription held against one mutable stream. All
// consumers (the triage service, the notification relay) subscribe to the feed
// rather than opening their own streaming queries, so every consumer observes
// the same sequence of changes.
//
// Each subscriber gets a buffered channel and an unsubscribe handle; the
// handle is safe to call more than once but must be called at least once on
// teardown, otherwise the subscriber slot leaks.
type Feed struct {
	client timeplus.TimeplusClient
	stream string

	mu          sync.Mutex
	subscribers map[int]chan Event
	nextSubID   int
	known       map[string]struct{}

	cancel   context.CancelFunc
	stopOnce sync.Once
	done     chan struct{}
}

// NewFeed creates a feed over the given mutable stream
func NewFeed(client timeplus.TimeplusClient, stream string) *Feed {
	return &Feed{
		client:      client,
		stream:      stream,
		subscribers: make(map[int]chan Event),
		known:       make(map[string]struct{}),
		done:        make(chan struct{}),
	}
}

// Subscribe registers a consumer. The returned channel receives every event
// published after the call; the returned function releases the subscription.
func (f *Feed) Subscribe(buffer int) (<-chan Event, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextSubID
	f.nextSubID++
	ch := make(chan Event, buffer)
	f.subscribers[id] = ch

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if existing, ok := f.subscribers[id]; ok {
				delete(f.subscribers, id)
				close(existing)
			}
		})
	}
	return ch, unsubscribe
}

// Start backfills the current contents of the stream and then follows live
// changes until the context is cancelled or Stop is called.
func (f *Feed) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel

	// Bounded backfill so consumers start from the full current set
	query := fmt.Sprintf("SELECT * FROM table(%s)", f.stream)
	rows, err := f.client.ExecuteQuery(ctx, query)
	if err != nil {
		cancel()
		close(f.done)
		return fmt.Errorf("failed to backfill feed for %s: %w", f.stream, err)
	}
	for _, row := range rows {
		f.dispatch(row)
	}
	logrus.Infof("Feed for %s backfilled %d rows", f.stream, len(rows))

	go f.follow(ctx)
	return nil
}

// follow runs the unbounded streaming query, retrying with backoff when the
// stream drops. Cancellation of ctx is the only clean exit.
func (f *Feed) follow(ctx context.Context) {
	defer close(f.done)

	backoff := time.Second
	for {
		query := fmt.Sprintf("SELECT * FROM %s", f.stream)
		err := f.client.StreamQuery(ctx, query, f.dispatch)

		if ctx.Err() != nil {
			logrus.Infof("Feed for %s released", f.stream)
			return
		}

		logrus.Warnf("Streaming query on %s ended: %v (retrying in %v)", f.stream, err, backoff)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

// dispatch classifies the row as added or updated and fans it out. Slow
// subscribers with a full buffer drop the event rather than stalling the feed.
func (f *Feed) dispatch(row map[string]interface{}) {
	id := getString(row, "id")
	if id == "" {
		logrus.Warnf("Feed for %s received row without id, skipping", f.stream)
		return
	}

	f.mu.Lock()
	eventType := EventUpdated
	if _, ok := f.known[id]; !ok {
		f.known[id] = struct{}{}
		eventType = EventAdded
	}
	event := Event{Type: eventType, Row: row}

	for subID, ch := range f.subscribers {
		select {
		case ch <- event:
		default:
			logrus.Warnf("Feed subscriber %d on %s is not keeping up, dropping event", subID, f.stream)
		}
	}
	f.mu.Unlock()

	metrics.FeedEventsTotal.WithLabelValues(f.stream, string(eventType)).Inc()
}

// Stop releases the live subscription. Safe to call more than once.
func (f *Feed) Stop() {
	f.stopOnce.Do(func() {
		if f.cancel != nil {
			f.cancel()
			<-f.done
		}
	})
}
