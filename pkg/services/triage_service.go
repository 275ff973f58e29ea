package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wisecare-health/sos-gateway/pkg/metrics"
	"github.com/wisecare-health/sos-gateway/pkg/models"
	"github.com/wisecare-health/sos-gateway/pkg/timeplus"
)

// TriageService is the alert triage controller. It materializes the alert,
// responder and user collections from their feeds into in-memory snapshots
// and exposes the assignment and resolution operations.
//
// Writes are deliberately not applied to the local snapshot: the updated
// state becomes visible through the next feed emission, so every consumer of
// the same feed converges on the same view.
type TriageService struct {
	tpClient    timeplus.TimeplusClient
	alertStream string

	mu         sync.RWMutex
	alerts     map[string]*models.Alert
	responders map[string]*models.Responder
	users      map[string]*models.User

	unsubscribes []func()
	stopOnce     sync.Once

	now func() time.Time
}

// NewTriageService creates a triage service over the given store client
func NewTriageService(tpClient timeplus.TimeplusClient) *TriageService {
	return &TriageService{
		tpClient:    tpClient,
		alertStream: timeplus.AlertsStream,
		alerts:      make(map[string]*models.Alert),
		responders:  make(map[string]*models.Responder),
		users:       make(map[string]*models.User),
		now:         time.Now,
	}
}

// Start subscribes the service to the three collection feeds. Stop must be
// called to release the subscriptions.
func (s *TriageService) Start(ctx context.Context, alertFeed, responderFeed, userFeed *Feed) {
	alertCh, unsubAlerts := alertFeed.Subscribe(256)
	responderCh, unsubResponders := responderFeed.Subscribe(64)
	userCh, unsubUsers := userFeed.Subscribe(64)
	s.unsubscribes = []func(){unsubAlerts, unsubResponders, unsubUsers}

	go s.consume(ctx, alertCh, s.applyAlertRow)
	go s.consume(ctx, responderCh, s.applyResponderRow)
	go s.consume(ctx, userCh, s.applyUserRow)

	logrus.Info("Triage service subscribed to alert, responder and user feeds")
}

// Stop releases all feed subscriptions exactly once. No further snapshot
// updates occur after release.
func (s *TriageService) Stop() {
	s.stopOnce.Do(func() {
		for _, unsubscribe := range s.unsubscribes {
			unsubscribe()
		}
		logrus.Info("Triage service released its feed subscriptions")
	})
}

func (s *TriageService) consume(ctx context.Context, ch <-chan Event, apply func(map[string]interface{})) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			apply(event.Row)
		}
	}
}

func (s *TriageService) applyAlertRow(row map[string]interface{}) {
	alert := mapToAlert(row)
	if !alert.Status.Valid() {
		logrus.Warnf("Ignoring alert %s with unknown status %q", alert.ID, alert.Status)
		return
	}
	s.mu.Lock()
	s.alerts[alert.ID] = alert
	s.mu.Unlock()
}

func (s *TriageService) applyResponderRow(row map[string]interface{}) {
	responder := mapToResponder(row)
	s.mu.Lock()
	s.responders[responder.ID] = responder
	s.mu.Unlock()
}

func (s *TriageService) applyUserRow(row map[string]interface{}) {
	user := mapToUser(row)
	s.mu.Lock()
	s.users[user.ID] = user
	s.mu.Unlock()
}

// FilterAlerts partitions the alert set by the given derived view, most
// recent first. "active" covers pending and assigned; "all" is unfiltered.
func (s *TriageService) FilterAlerts(filter models.AlertFilter) []models.Alert {
	s.mu.RLock()
	result := make([]models.Alert, 0, len(s.alerts))
	for _, alert := range s.alerts {
		if alert.MatchesFilter(filter) {
			result = append(result, *alert)
		}
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

// GetAlert returns a single alert by id
func (s *TriageService) GetAlert(id string) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	alert, ok := s.alerts[id]
	if !ok {
		return nil, models.ErrAlertNotFound
	}
	alertCopy := *alert
	return &alertCopy, nil
}

// SearchResponders returns responders whose name or role contains the query,
// case-insensitive. An empty query returns the full directory, sorted by name.
func (s *TriageService) SearchResponders(query string) []models.Responder {
	needle := strings.ToLower(strings.TrimSpace(query))

	s.mu.RLock()
	result := make([]models.Responder, 0, len(s.responders))
	for _, responder := range s.responders {
		if needle == "" ||
			strings.Contains(strings.ToLower(responder.Name), needle) ||
			strings.Contains(strings.ToLower(responder.Role), needle) {
			result = append(result, *responder)
		}
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Users returns the full user directory
func (s *TriageService) Users() []models.User {
	s.mu.RLock()
	result := make([]models.User, 0, len(s.users))
	for _, user := range s.users {
		result = append(result, *user)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].DisplayName < result[j].DisplayName
	})
	return result
}

// UserFor looks up the user that raised an alert
func (s *TriageService) UserFor(userID string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return models.User{}, false
	}
	return *user, true
}

// AssignResponder transitions a pending alert to assigned, capturing a
// denormalized snapshot of the responder. The responder must exist in the
// current directory; otherwise the call fails closed without touching the
// store. The stored status is re-read immediately before the write so that a
// concurrent assignment by another operator is rejected instead of silently
// overwritten.
func (s *TriageService) AssignResponder(ctx context.Context, alertID, responderID string) error {
	s.mu.RLock()
	responder, haveResponder := s.responders[responderID]
	alert, haveAlert := s.alerts[alertID]
	var snapshot models.Alert
	if haveAlert {
		snapshot = *alert
	}
	var responderCopy models.Responder
	if haveResponder {
		responderCopy = *responder
	}
	s.mu.RUnlock()

	if !haveResponder {
		metrics.TransitionFailuresTotal.WithLabelValues("unknown_responder").Inc()
		return models.ErrUnknownResponder
	}
	if !haveAlert {
		metrics.TransitionFailuresTotal.WithLabelValues("not_found").Inc()
		return models.ErrAlertNotFound
	}
	if !snapshot.Status.CanTransition(models.AlertStatusAssigned) {
		metrics.TransitionFailuresTotal.WithLabelValues("conflict").Inc()
		return models.ErrConflictingState
	}

	// Compare-and-swap against the stored status: only a pending alert may be
	// assigned, so a race between two operators resolves to one winner.
	storedStatus, err := s.fetchStoredStatus(ctx, alertID)
	if err != nil {
		return err
	}
	if storedStatus != models.AlertStatusPending {
		metrics.TransitionFailuresTotal.WithLabelValues("conflict").Inc()
		return models.ErrConflictingState
	}

	now := s.now().UTC()
	snapshot.Status = models.AlertStatusAssigned
	snapshot.AssignedTo = responderCopy.ID
	snapshot.Responder = &models.ResponderSnapshot{
		ID:    responderCopy.ID,
		Name:  responderCopy.Name,
		Phone: responderCopy.Phone,
		Role:  responderCopy.Role,
	}
	snapshot.AssignedAt = &now
	snapshot.UpdatedAt = now

	if err := s.persistAlert(ctx, &snapshot); err != nil {
		metrics.TransitionFailuresTotal.WithLabelValues("transport").Inc()
		return err
	}

	metrics.TransitionsTotal.WithLabelValues(string(models.AlertStatusAssigned)).Inc()
	logrus.Infof("Alert %s assigned to responder %s (%s)", alertID, responderCopy.Name, responderCopy.ID)
	return nil
}

// ResolveAlert transitions an assigned alert to resolved. The assignment
// fields are retained. Resolving an already-resolved alert is a no-op and
// does not re-stamp the resolution time.
func (s *TriageService) ResolveAlert(ctx context.Context, alertID string) error {
	s.mu.RLock()
	alert, ok := s.alerts[alertID]
	var snapshot models.Alert
	if ok {
		snapshot = *alert
	}
	s.mu.RUnlock()

	if !ok {
		metrics.TransitionFailuresTotal.WithLabelValues("not_found").Inc()
		return models.ErrAlertNotFound
	}
	if snapshot.Status == models.AlertStatusResolved {
		logrus.Debugf("Alert %s is already resolved, nothing to do", alertID)
		return nil
	}
	if !snapshot.Status.CanTransition(models.AlertStatusResolved) {
		metrics.TransitionFailuresTotal.WithLabelValues("conflict").Inc()
		return models.ErrConflictingState
	}

	now := s.now().UTC()
	snapshot.Status = models.AlertStatusResolved
	snapshot.ResolvedAt = &now
	snapshot.UpdatedAt = now

	if err := s.persistAlert(ctx, &snapshot); err != nil {
		metrics.TransitionFailuresTotal.WithLabelValues("transport").Inc()
		return err
	}

	metrics.TransitionsTotal.WithLabelValues(string(models.AlertStatusResolved)).Inc()
	logrus.Infof("Alert %s resolved", alertID)
	return nil
}

// CancelAlert transitions a pending alert to cancelled. Alerts that already
// have a responder must be resolved instead.
func (s *TriageService) CancelAlert(ctx context.Context, alertID string) error {
	s.mu.RLock()
	alert, ok := s.alerts[alertID]
	var snapshot models.Alert
	if ok {
		snapshot = *alert
	}
	s.mu.RUnlock()

	if !ok {
		metrics.TransitionFailuresTotal.WithLabelValues("not_found").Inc()
		return models.ErrAlertNotFound
	}
	if !snapshot.Status.CanTransition(models.AlertStatusCancelled) {
		metrics.TransitionFailuresTotal.WithLabelValues("conflict").Inc()
		return models.ErrConflictingState
	}

	now := s.now().UTC()
	snapshot.Status = models.AlertStatusCancelled
	snapshot.UpdatedAt = now

	if err := s.persistAlert(ctx, &snapshot); err != nil {
		metrics.TransitionFailuresTotal.WithLabelValues("transport").Inc()
		return err
	}

	metrics.TransitionsTotal.WithLabelValues(string(models.AlertStatusCancelled)).Inc()
	logrus.Infof("Alert %s cancelled", alertID)
	return nil
}

// fetchStoredStatus reads the alert's current status straight from the store,
// bypassing the in-memory snapshot
func (s *TriageService) fetchStoredStatus(ctx context.Context, alertID string) (models.AlertStatus, error) {
	escapedID := strings.ReplaceAll(alertID, "'", "''")
	query := fmt.Sprintf("SELECT status FROM table(%s) WHERE id = '%s'", s.alertStream, escapedID)

	results, err := s.tpClient.ExecuteQuery(ctx, query)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrTransportFailure, err)
	}
	if len(results) == 0 {
		return "", models.ErrAlertNotFound
	}
	return models.AlertStatus(getString(results[0], "status")), nil
}

// persistAlert upserts the full alert row; the mutable stream's primary key
// makes this a partial update from the store's point of view
func (s *TriageService) persistAlert(ctx context.Context, alert *models.Alert) error {
	columns := []string{
		"id", "user_id", "status", "created_at", "updated_at",
		"latitude", "longitude", "device_model", "battery_level", "os_version",
		"assigned_to", "responder_name", "responder_phone", "responder_role",
		"assigned_at", "resolved_at",
	}

	var latitude, longitude interface{}
	if alert.Location != nil {
		latitude = alert.Location.Latitude
		longitude = alert.Location.Longitude
	}

	var deviceModel, osVersion, batteryLevel interface{}
	if alert.DeviceInfo != nil {
		deviceModel = alert.DeviceInfo.Model
		osVersion = alert.DeviceInfo.OSVersion
		batteryLevel = alert.DeviceInfo.BatteryLevel
	}

	var assignedTo, responderName, responderPhone, responderRole interface{}
	if alert.Responder != nil {
		assignedTo = alert.AssignedTo
		responderName = alert.Responder.Name
		responderPhone = alert.Responder.Phone
		responderRole = alert.Responder.Role
	}

	var assignedAt, resolvedAt interface{}
	if alert.AssignedAt != nil {
		assignedAt = *alert.AssignedAt
	}
	if alert.ResolvedAt != nil {
		resolvedAt = *alert.ResolvedAt
	}

	values := []interface{}{
		alert.ID,
		alert.UserID,
		string(alert.Status),
		alert.CreatedAt,
		alert.UpdatedAt,
		latitude,
		longitude,
		deviceModel,
		batteryLevel,
		osVersion,
		assignedTo,
		responderName,
		responderPhone,
		responderRole,
		assignedAt,
		resolvedAt,
	}

	if err := s.tpClient.InsertIntoStream(ctx, s.alertStream, columns, values); err != nil {
		return fmt.Errorf("%w: %v", models.ErrTransportFailure, err)
	}
	return nil
}

// StatusCounts returns the size of each status partition
func (s *TriageService) StatusCounts() map[models.AlertStatus]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[models.AlertStatus]int)
	for _, alert := range s.alerts {
		counts[alert.Status]++
	}
	return counts
}

// AlertsSnapshot returns a copy of the full alert set
func (s *TriageService) AlertsSnapshot() []models.Alert {
	return s.FilterAlerts(models.AlertFilterAll)
}
