package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/wisecare-health/sos-gateway/pkg/models"
	"github.com/wisecare-health/sos-gateway/pkg/services"
)

// TriageService is the slice of the triage controller the API needs
type TriageService interface {
	FilterAlerts(filter models.AlertFilter) []models.Alert
	GetAlert(id string) (*models.Alert, error)
	AssignResponder(ctx context.Context, alertID, responderID string) error
	ResolveAlert(ctx context.Context, alertID string) error
	CancelAlert(ctx context.Context, alertID string) error
	SearchResponders(query string) []models.Responder
	Users() []models.User
	UserFor(userID string) (models.User, bool)
}

// NotificationRelay is the slice of the relay the API needs
type NotificationRelay interface {
	Active() *services.Toast
	Dismiss()
	Clear()
}

// StatsProvider serves the analytics snapshot
type StatsProvider interface {
	Latest() services.StatsSnapshot
}

// APIHandler handles HTTP API requests
type APIHandler struct {
	triage TriageService
	relay  NotificationRelay
	stats  StatsProvider
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(triage TriageService, relay NotificationRelay, stats StatsProvider) *APIHandler {
	return &APIHandler{
		triage: triage,
		relay:  relay,
		stats:  stats,
	}
}

// GetAlerts returns alerts for the requested filter. Loading the alert list
// is what the dashboards do when entering the alert-management view, so any
// active toast is cleared here regardless of whether the alert was acted on.
func (h *APIHandler) GetAlerts(c echo.Context) error {
	filter := models.AlertFilter(c.QueryParam("filter"))
	h.relay.Clear()

	alerts := h.triage.FilterAlerts(filter)
	cards := make([]AlertCard, 0, len(alerts))
	for i := range alerts {
		cards = append(cards, h.buildCard(&alerts[i]))
	}
	return c.JSON(http.StatusOK, cards)
}

// GetAlert returns a single alert card by ID
func (h *APIHandler) GetAlert(c echo.Context) error {
	id := c.Param("id")
	alert, err := h.triage.GetAlert(id)
	if err != nil {
		logrus.Errorf("Error getting alert %s: %v", id, err)
		return c.JSON(http.StatusNotFound, map[string]string{"error": fmt.Sprintf("Alert with ID %s not found", id)})
	}
	return c.JSON(http.StatusOK, h.buildCard(alert))
}

// AssignResponder assigns a responder to a pending alert
func (h *APIHandler) AssignResponder(c echo.Context) error {
	id := c.Param("id")
	var req models.AssignResponderRequest
	if err := c.Bind(&req); err != nil {
		logrus.Errorf("Error binding assign request: %v", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}
	if req.ResponderID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "responderId is required"})
	}

	if err := h.triage.AssignResponder(c.Request().Context(), id, req.ResponderID); err != nil {
		logrus.Errorf("Error assigning responder %s to alert %s: %v", req.ResponderID, id, err)
		return h.transitionError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Responder assigned successfully"})
}

// ResolveAlert resolves an assigned alert
func (h *APIHandler) ResolveAlert(c echo.Context) error {
	id := c.Param("id")
	if err := h.triage.ResolveAlert(c.Request().Context(), id); err != nil {
		logrus.Errorf("Error resolving alert %s: %v", id, err)
		return h.transitionError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Alert resolved successfully"})
}

// CancelAlert cancels a pending alert
func (h *APIHandler) CancelAlert(c echo.Context) error {
	id := c.Param("id")
	if err := h.triage.CancelAlert(c.Request().Context(), id); err != nil {
		logrus.Errorf("Error cancelling alert %s: %v", id, err)
		return h.transitionError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Alert cancelled successfully"})
}

// transitionError maps the triage service's typed errors onto status codes so
// the operator gets explicit failure feedback instead of a silent drop
func (h *APIHandler) transitionError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, models.ErrAlertNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Alert not found"})
	case errors.Is(err, models.ErrUnknownResponder):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Responder not found in directory"})
	case errors.Is(err, models.ErrConflictingState):
		return c.JSON(http.StatusConflict, map[string]string{"error": "Alert state does not permit this transition"})
	case errors.Is(err, models.ErrTransportFailure):
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Alert store write failed, please retry"})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": fmt.Sprintf("Unexpected error: %v", err)})
	}
}

// GetResponders returns the responder directory, optionally filtered by a
// case-insensitive substring over name and role
func (h *APIHandler) GetResponders(c echo.Context) error {
	query := c.QueryParam("q")
	return c.JSON(http.StatusOK, h.triage.SearchResponders(query))
}

// GetUsers returns the user directory
func (h *APIHandler) GetUsers(c echo.Context) error {
	return c.JSON(http.StatusOK, h.triage.Users())
}

// GetStats returns the analytics snapshot
func (h *APIHandler) GetStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.stats.Latest())
}

// GetActiveNotification returns the currently displayed toast, if any
func (h *APIHandler) GetActiveNotification(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"toast": h.relay.Active()})
}

// DismissNotification hides the current toast
func (h *APIHandler) DismissNotification(c echo.Context) error {
	h.relay.Dismiss()
	return c.JSON(http.StatusOK, map[string]string{"message": "Notification dismissed"})
}

// SetupRoutes sets up the API routes
func (h *APIHandler) SetupRoutes(e *echo.Echo) {
	// Alert endpoints
	e.GET("/api/alerts", h.GetAlerts)
	e.GET("/api/alerts/:id", h.GetAlert)
	e.POST("/api/alerts/:id/assign", h.AssignResponder)
	e.POST("/api/alerts/:id/resolve", h.ResolveAlert)
	e.POST("/api/alerts/:id/cancel", h.CancelAlert)

	// Directory endpoints
	e.GET("/api/responders", h.GetResponders)
	e.GET("/api/users", h.GetUsers)

	// Analytics and notifications
	e.GET("/api/stats", h.GetStats)
	e.GET("/api/notifications/active", h.GetActiveNotification)
	e.POST("/api/notifications/dismiss", h.DismissNotification)
}
