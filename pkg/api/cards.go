package api

import (
	"fmt"
	"time"

	"github.com/wisecare-health/sos-gateway/pkg/models"
)

// Placeholder values for missing or malformed display data. Lookups never
// fail an alert card; they degrade to these literals.
const (
	unknownTimestamp = "Unknown"
	invalidTimestamp = "Invalid Date"
	unknownUser      = "Unknown User"
)

const displayTimeLayout = "Jan 2, 2006 3:04:05 PM"

// AlertCard is the dashboard-facing projection of an alert: the raw record
// plus the raising user's display metadata, formatted timestamps and a
// contact link for the assigned responder.
type AlertCard struct {
	models.Alert
	UserName          string `json:"userName"`
	UserPhone         string `json:"userPhone,omitempty"`
	UserPhotoURL      string `json:"userPhotoURL,omitempty"`
	ContactLink       string `json:"contactLink,omitempty"`
	CreatedAtDisplay  string `json:"createdAtDisplay"`
	AssignedAtDisplay string `json:"assignedAtDisplay,omitempty"`
	ResolvedAtDisplay string `json:"resolvedAtDisplay,omitempty"`
}

func (h *APIHandler) buildCard(alert *models.Alert) AlertCard {
	card := AlertCard{
		Alert:            *alert,
		UserName:         unknownUser,
		CreatedAtDisplay: formatTimestamp(&alert.CreatedAt),
	}

	if user, ok := h.triage.UserFor(alert.UserID); ok {
		card.UserName = user.DisplayName
		card.UserPhone = user.Phone
		card.UserPhotoURL = user.PhotoURL
	}

	if alert.AssignedAt != nil {
		card.AssignedAtDisplay = formatTimestamp(alert.AssignedAt)
	}
	if alert.ResolvedAt != nil {
		card.ResolvedAtDisplay = formatTimestamp(alert.ResolvedAt)
	}
	if alert.Responder != nil && alert.Responder.Phone != "" {
		card.ContactLink = fmt.Sprintf("tel:%s", alert.Responder.Phone)
	}

	return card
}

// formatTimestamp renders a store timestamp for display. Absent timestamps
// render as "Unknown" and zero-valued ones as "Invalid Date" rather than
// failing the card.
func formatTimestamp(t *time.Time) string {
	if t == nil {
		return unknownTimestamp
	}
	if t.IsZero() {
		return invalidTimestamp
	}
	return t.Local().Format(displayTimeLayout)
}
