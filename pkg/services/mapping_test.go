package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisecare-health/sos-gateway/pkg/models"
)

func TestMapToAlertFullRow(t *testing.T) {
	createdAt := time.Date(2025, 3, 1, 11, 55, 0, 0, time.UTC)
	assignedAt := createdAt.Add(30 * time.Second)

	// Nullable columns come back from the driver as pointers
	latitude := 52.3702
	longitude := 4.8952
	batteryLevel := int32(18)

	alert := mapToAlert(map[string]interface{}{
		"id":              "alert1",
		"user_id":         "user-1",
		"status":          "assigned",
		"created_at":      createdAt,
		"updated_at":      assignedAt,
		"latitude":        &latitude,
		"longitude":       &longitude,
		"device_model":    "iPhone 14",
		"battery_level":   &batteryLevel,
		"os_version":      "iOS 18.2",
		"assigned_to":     "resp1",
		"responder_name":  "Jane Miller",
		"responder_phone": "555-0100",
		"responder_role":  "EMT",
		"assigned_at":     &assignedAt,
		"resolved_at":     nil,
	})

	assert.Equal(t, "alert1", alert.ID)
	assert.Equal(t, models.AlertStatusAssigned, alert.Status)
	assert.Equal(t, createdAt, alert.CreatedAt)

	require.NotNil(t, alert.Location)
	assert.InDelta(t, 52.3702, alert.Location.Latitude, 0.0001)
	assert.InDelta(t, 4.8952, alert.Location.Longitude, 0.0001)

	require.NotNil(t, alert.DeviceInfo)
	assert.Equal(t, "iPhone 14", alert.DeviceInfo.Model)
	assert.Equal(t, 18, alert.DeviceInfo.BatteryLevel)

	require.NotNil(t, alert.Responder)
	assert.Equal(t, "resp1", alert.Responder.ID)
	assert.Equal(t, "Jane Miller", alert.Responder.Name)
	assert.Equal(t, "resp1", alert.AssignedTo)

	require.NotNil(t, alert.AssignedAt)
	assert.Equal(t, assignedAt, *alert.AssignedAt)
	assert.Nil(t, alert.ResolvedAt)
}

func TestMapToAlertMinimalRow(t *testing.T) {
	alert := mapToAlert(map[string]interface{}{
		"id":         "alert1",
		"user_id":    "user-1",
		"status":     "pending",
		"created_at": "2025-03-01 11:55:00",
	})

	assert.Equal(t, models.AlertStatusPending, alert.Status)
	assert.Equal(t, 2025, alert.CreatedAt.Year())
	assert.Nil(t, alert.Location)
	assert.Nil(t, alert.DeviceInfo)
	assert.Nil(t, alert.Responder)
	assert.Empty(t, alert.AssignedTo)
	assert.Nil(t, alert.AssignedAt)
	assert.Nil(t, alert.ResolvedAt)
}

func TestMapToAlertLocationNeedsBothCoordinates(t *testing.T) {
	alert := mapToAlert(map[string]interface{}{
		"id":         "alert1",
		"user_id":    "user-1",
		"status":     "pending",
		"created_at": time.Now(),
		"latitude":   52.3702,
		"longitude":  nil,
	})

	assert.Nil(t, alert.Location)
}

func TestMapToResponder(t *testing.T) {
	responder := mapToResponder(map[string]interface{}{
		"id":    "resp1",
		"name":  "Jane Miller",
		"phone": "555-0100",
		"role":  "EMT",
	})

	assert.Equal(t, "resp1", responder.ID)
	assert.Equal(t, "Jane Miller", responder.Name)
	assert.Equal(t, "EMT", responder.Role)
}

func TestMapToUserHandlesNullPhoto(t *testing.T) {
	user := mapToUser(map[string]interface{}{
		"id":           "user-1",
		"display_name": "Arthur Bennett",
		"email":        "arthur@example.com",
		"phone":        "555-0200",
		"photo_url":    nil,
	})

	assert.Equal(t, "Arthur Bennett", user.DisplayName)
	assert.Empty(t, user.PhotoURL)
}
