package services

import (
	"fmt"
	"time"

	"github.com/wisecare-health/sos-gateway/pkg/models"
)

// Helpers to safely extract values from query result maps. Nullable columns
// come back from the driver as pointers, so each helper accepts both forms.

func getString(data map[string]interface{}, key string) string {
	switch v := data[key].(type) {
	case string:
		return v
	case *string:
		if v != nil {
			return *v
		}
	}
	return ""
}

func getInt(data map[string]interface{}, key string) int {
	switch v := data[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	case *int32:
		if v != nil {
			return int(*v)
		}
	case *int64:
		if v != nil {
			return int(*v)
		}
	}
	return 0
}

func getFloat(data map[string]interface{}, key string) (float64, bool) {
	switch v := data[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case *float64:
		if v != nil {
			return *v, true
		}
	case *float32:
		if v != nil {
			return float64(*v), true
		}
	}
	return 0, false
}

// getTime extracts a time.Time value from a map using the given key
func getTime(data map[string]interface{}, key string) time.Time {
	if val, ok := data[key]; ok && val != nil {
		if t, err := parseTimeplus(val); err == nil {
			return t
		}
	}
	return time.Time{}
}

// getTimePtr extracts an optional timestamp; absent or null values map to nil
func getTimePtr(data map[string]interface{}, key string) *time.Time {
	val, ok := data[key]
	if !ok || val == nil {
		return nil
	}
	t, err := parseTimeplus(val)
	if err != nil || t.IsZero() {
		return nil
	}
	return &t
}

// parseTimeplus parses a Timeplus datetime value into a time.Time
func parseTimeplus(val interface{}) (time.Time, error) {
	switch v := val.(type) {
	case time.Time:
		return v, nil
	case *time.Time:
		if v != nil {
			return *v, nil
		}
		return time.Time{}, fmt.Errorf("nil time value")
	case string:
		layouts := []string{
			time.RFC3339,
			time.RFC3339Nano,
			"2006-01-02 15:04:05",
			"2006-01-02T15:04:05",
			"2006-01-02 15:04:05.999999999",
			"2006-01-02T15:04:05.999999999",
		}
		for _, layout := range layouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unable to parse time string: %s", v)
	default:
		return time.Time{}, fmt.Errorf("unsupported time type: %T", val)
	}
}

// mapToAlert maps a row from the alerts stream to an Alert
func mapToAlert(row map[string]interface{}) *models.Alert {
	alert := &models.Alert{
		ID:        getString(row, "id"),
		UserID:    getString(row, "user_id"),
		Status:    models.AlertStatus(getString(row, "status")),
		CreatedAt: getTime(row, "created_at"),
		UpdatedAt: getTime(row, "updated_at"),
	}

	if lat, ok := getFloat(row, "latitude"); ok {
		if lon, ok := getFloat(row, "longitude"); ok {
			alert.Location = &models.Location{Latitude: lat, Longitude: lon}
		}
	}

	if model := getString(row, "device_model"); model != "" {
		alert.DeviceInfo = &models.DeviceInfo{
			Model:        model,
			BatteryLevel: getInt(row, "battery_level"),
			OSVersion:    getString(row, "os_version"),
		}
	}

	if assignedTo := getString(row, "assigned_to"); assignedTo != "" {
		alert.AssignedTo = assignedTo
		alert.Responder = &models.ResponderSnapshot{
			ID:    assignedTo,
			Name:  getString(row, "responder_name"),
			Phone: getString(row, "responder_phone"),
			Role:  getString(row, "responder_role"),
		}
	}

	alert.AssignedAt = getTimePtr(row, "assigned_at")
	alert.ResolvedAt = getTimePtr(row, "resolved_at")

	return alert
}

// mapToResponder maps a row from the responder directory stream to a Responder
func mapToResponder(row map[string]interface{}) *models.Responder {
	return &models.Responder{
		ID:    getString(row, "id"),
		Name:  getString(row, "name"),
		Phone: getString(row, "phone"),
		Role:  getString(row, "role"),
	}
}

// mapToUser maps a row from the user directory stream to a User
func mapToUser(row map[string]interface{}) *models.User {
	return &models.User{
		ID:          getString(row, "id"),
		DisplayName: getString(row, "display_name"),
		Email:       getString(row, "email"),
		Phone:       getString(row, "phone"),
		PhotoURL:    getString(row, "photo_url"),
	}
}
