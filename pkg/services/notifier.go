package services

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/wisecare-health/sos-gateway/pkg/metrics"
	"github.com/wisecare-health/sos-gateway/pkg/models"
)

// Broadcaster pushes a typed message to every connected dashboard client
type Broadcaster interface {
	Broadcast(messageType string, data interface{})
}

// Toast is the transient notification raised for a newly created SOS alert
type Toast struct {
	Alert    models.Alert `json:"alert"`
	Sound    string       `json:"sound"`
	RaisedAt time.Time    `json:"raisedAt"`
}

// NotificationRelay watches the alert feed for newly created pending alerts
// within a recent time window and raises a transient toast, independent of
// which dashboard view is active. Only the most recently created qualifying
// alert is shown; there is no queue.
type NotificationRelay struct {
	window time.Duration
	sound  string
	hub    Broadcaster

	// cue plays the audio signal on toast activation. Failures are swallowed
	// and logged, never surfaced.
	cue func() error

	// seen dedupes alert ids for the lifetime of the window, so an update to
	// an already-notified alert does not raise a second toast
	seen *gocache.Cache

	mu      sync.RWMutex
	active  *Toast
	visible bool

	unsubscribe func()
	stopOnce    sync.Once

	now func() time.Time
}

// NewNotificationRelay creates a relay with the given recency window
func NewNotificationRelay(window time.Duration, sound string, hub Broadcaster) *NotificationRelay {
	return &NotificationRelay{
		window: window,
		sound:  sound,
		hub:    hub,
		seen:   gocache.New(window, 2*window),
		now:    time.Now,
	}
}

// SetAudioCue installs the audio cue hook invoked on every toast activation
func (r *NotificationRelay) SetAudioCue(cue func() error) {
	r.cue = cue
}

// Start subscribes the relay to the alert feed. Stop must be called to
// release the subscription.
func (r *NotificationRelay) Start(ctx context.Context, alertFeed *Feed) {
	ch, unsubscribe := alertFeed.Subscribe(256)
	r.unsubscribe = unsubscribe

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-ch:
				if !ok {
					return
				}
				r.handle(event)
			}
		}
	}()

	logrus.Infof("Notification relay watching for pending alerts newer than %v", r.window)
}

// Stop releases the feed subscription exactly once
func (r *NotificationRelay) Stop() {
	r.stopOnce.Do(func() {
		if r.unsubscribe != nil {
			r.unsubscribe()
		}
		logrus.Info("Notification relay released its feed subscription")
	})
}

// handle inspects a single feed emission. Only added entries count: updates
// to alerts the relay has already seen never raise a toast.
func (r *NotificationRelay) handle(event Event) {
	if event.Type != EventAdded {
		return
	}

	alert := mapToAlert(event.Row)
	if alert.Status != models.AlertStatusPending {
		return
	}
	if r.now().Sub(alert.CreatedAt) > r.window {
		return
	}

	// Add fails if the id is already cached, which is exactly the dedupe we
	// want; the entry expires with the window.
	if err := r.seen.Add(alert.ID, struct{}{}, gocache.DefaultExpiration); err != nil {
		return
	}

	r.raise(alert)
}

// raise replaces the current toast with the new alert. When several alerts
// land in the same emission batch the most recently created one wins.
func (r *NotificationRelay) raise(alert *models.Alert) {
	r.mu.Lock()
	if r.active != nil && r.visible && !r.expiredLocked() && r.active.Alert.CreatedAt.After(alert.CreatedAt) {
		r.mu.Unlock()
		return
	}
	toast := &Toast{
		Alert:    *alert,
		Sound:    r.sound,
		RaisedAt: r.now(),
	}
	r.active = toast
	r.visible = true
	r.mu.Unlock()

	metrics.ToastsTotal.Inc()
	logrus.Infof("Raising SOS toast for alert %s (user %s)", alert.ID, alert.UserID)

	if r.hub != nil {
		r.hub.Broadcast("sos.toast", toast)
	}

	if r.cue != nil {
		if err := r.cue(); err != nil {
			logrus.Debugf("Audio cue failed, ignoring: %v", err)
		}
	}
}

// Active returns the currently displayed toast, or nil when there is none or
// the underlying alert has aged out of the window
func (r *NotificationRelay) Active() *Toast {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.visible || r.active == nil || r.expiredLocked() {
		return nil
	}
	toastCopy := *r.active
	return &toastCopy
}

func (r *NotificationRelay) expiredLocked() bool {
	return r.active != nil && r.now().Sub(r.active.Alert.CreatedAt) > r.window
}

// Dismiss hides the current toast without touching the underlying alert
func (r *NotificationRelay) Dismiss() {
	r.mu.Lock()
	r.visible = false
	r.mu.Unlock()
}

// Clear resets the relay's display state. Entering the alert-management view
// always clears any pending toast, whether or not the alert was acted upon.
func (r *NotificationRelay) Clear() {
	r.Dismiss()
}
