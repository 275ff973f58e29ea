package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisecare-health/sos-gateway/pkg/models"
)

// recordingBroadcaster captures everything the relay pushes to the hub
type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []string
}

func (b *recordingBroadcaster) Broadcast(messageType string, data interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, messageType)
}

func (b *recordingBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.messages)
}

// relayForTest builds a relay with a settable clock so window behaviour can be
// exercised without sleeping
func relayForTest(hub Broadcaster) (*NotificationRelay, *time.Time) {
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	relay := NewNotificationRelay(60*time.Second, "sos-chime", hub)
	relay.now = func() time.Time { return clock }
	return relay, &clock
}

func alertRow(id string, status models.AlertStatus, createdAt time.Time) map[string]interface{} {
	return map[string]interface{}{
		"id":         id,
		"user_id":    "user-1",
		"status":     string(status),
		"created_at": createdAt,
		"updated_at": createdAt,
	}
}

func TestRelayRaisesToastForFreshPendingAlert(t *testing.T) {
	hub := &recordingBroadcaster{}
	relay, clock := relayForTest(hub)

	relay.handle(Event{Type: EventAdded, Row: alertRow("alert1", models.AlertStatusPending, clock.Add(-5*time.Second))})

	toast := relay.Active()
	require.NotNil(t, toast)
	assert.Equal(t, "alert1", toast.Alert.ID)
	assert.Equal(t, "sos-chime", toast.Sound)
	assert.Equal(t, 1, hub.count())
}

func TestRelayIgnoresUpdatedEvents(t *testing.T) {
	hub := &recordingBroadcaster{}
	relay, clock := relayForTest(hub)

	// A pending alert arriving as an update was already in the store when the
	// feed started; it must not raise a toast
	relay.handle(Event{Type: EventUpdated, Row: alertRow("alert1", models.AlertStatusPending, *clock)})

	assert.Nil(t, relay.Active())
	assert.Equal(t, 0, hub.count())
}

func TestRelayIgnoresNonPendingAlerts(t *testing.T) {
	hub := &recordingBroadcaster{}
	relay, clock := relayForTest(hub)

	relay.handle(Event{Type: EventAdded, Row: alertRow("alert1", models.AlertStatusAssigned, *clock)})
	relay.handle(Event{Type: EventAdded, Row: alertRow("alert2", models.AlertStatusResolved, *clock)})

	assert.Nil(t, relay.Active())
	assert.Equal(t, 0, hub.count())
}

func TestRelayIgnoresAlertsOlderThanWindow(t *testing.T) {
	hub := &recordingBroadcaster{}
	relay, clock := relayForTest(hub)

	relay.handle(Event{Type: EventAdded, Row: alertRow("stale", models.AlertStatusPending, clock.Add(-61*time.Second))})
	assert.Nil(t, relay.Active())

	// Exactly at the window edge still qualifies
	relay.handle(Event{Type: EventAdded, Row: alertRow("edge", models.AlertStatusPending, clock.Add(-60*time.Second))})
	require.NotNil(t, relay.Active())
	assert.Equal(t, "edge", relay.Active().Alert.ID)
}

func TestRelayToastExpiresWithWindow(t *testing.T) {
	hub := &recordingBroadcaster{}
	relay, clock := relayForTest(hub)

	relay.handle(Event{Type: EventAdded, Row: alertRow("alert1", models.AlertStatusPending, *clock)})
	require.NotNil(t, relay.Active())

	*clock = clock.Add(61 * time.Second)
	assert.Nil(t, relay.Active())
}

func TestRelayMostRecentCreationWins(t *testing.T) {
	hub := &recordingBroadcaster{}
	relay, clock := relayForTest(hub)

	newer := clock.Add(-2 * time.Second)
	older := clock.Add(-10 * time.Second)

	// Newer first, then older: the visible toast keeps the newer alert
	relay.handle(Event{Type: EventAdded, Row: alertRow("newer", models.AlertStatusPending, newer)})
	relay.handle(Event{Type: EventAdded, Row: alertRow("older", models.AlertStatusPending, older)})
	require.NotNil(t, relay.Active())
	assert.Equal(t, "newer", relay.Active().Alert.ID)

	// A later creation always replaces the current toast
	relay.handle(Event{Type: EventAdded, Row: alertRow("newest", models.AlertStatusPending, *clock)})
	require.NotNil(t, relay.Active())
	assert.Equal(t, "newest", relay.Active().Alert.ID)
}

func TestRelayDedupesRepeatedEmissions(t *testing.T) {
	hub := &recordingBroadcaster{}
	relay, clock := relayForTest(hub)

	row := alertRow("alert1", models.AlertStatusPending, *clock)
	relay.handle(Event{Type: EventAdded, Row: row})
	relay.handle(Event{Type: EventAdded, Row: row})

	assert.Equal(t, 1, hub.count())
}

func TestRelayDismissHidesToast(t *testing.T) {
	hub := &recordingBroadcaster{}
	relay, clock := relayForTest(hub)

	relay.handle(Event{Type: EventAdded, Row: alertRow("alert1", models.AlertStatusPending, *clock)})
	require.NotNil(t, relay.Active())

	relay.Dismiss()
	assert.Nil(t, relay.Active())

	// Dismissal only hides the display; a later alert raises a fresh toast
	relay.handle(Event{Type: EventAdded, Row: alertRow("alert2", models.AlertStatusPending, *clock)})
	require.NotNil(t, relay.Active())
	assert.Equal(t, "alert2", relay.Active().Alert.ID)
}

func TestRelayClearOnViewEntry(t *testing.T) {
	hub := &recordingBroadcaster{}
	relay, clock := relayForTest(hub)

	relay.handle(Event{Type: EventAdded, Row: alertRow("alert1", models.AlertStatusPending, *clock)})
	require.NotNil(t, relay.Active())

	// Entering the alert-management view clears the toast whether or not the
	// alert was acted on
	relay.Clear()
	assert.Nil(t, relay.Active())
}

func TestRelayAudioCueFailureIsSwallowed(t *testing.T) {
	hub := &recordingBroadcaster{}
	relay, clock := relayForTest(hub)
	relay.SetAudioCue(func() error {
		return errors.New("no audio device")
	})

	relay.handle(Event{Type: EventAdded, Row: alertRow("alert1", models.AlertStatusPending, *clock)})

	// The toast is raised and broadcast despite the cue failing
	require.NotNil(t, relay.Active())
	assert.Equal(t, 1, hub.count())
}
