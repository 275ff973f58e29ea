package models

import (
	"time"
)

// AlertStatus represents the lifecycle state of an SOS alert
type AlertStatus string

const (
	AlertStatusPending   AlertStatus = "pending"
	AlertStatusAssigned  AlertStatus = "assigned"
	AlertStatusResolved  AlertStatus = "resolved"
	AlertStatusCancelled AlertStatus = "cancelled"
)

// AlertFilter is a derived view over the alert set. "active" covers both
// pending and assigned alerts; "all" is the unfiltered set.
type AlertFilter string

const (
	AlertFilterActive    AlertFilter = "active"
	AlertFilterPending   AlertFilter = "pending"
	AlertFilterAssigned  AlertFilter = "assigned"
	AlertFilterResolved  AlertFilter = "resolved"
	AlertFilterCancelled AlertFilter = "cancelled"
	AlertFilterAll       AlertFilter = "all"
)

// Location is the GPS fix reported by the device that raised the alert
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DeviceInfo is a snapshot of the raising device, captured at creation time
type DeviceInfo struct {
	Model        string `json:"model,omitempty"`
	BatteryLevel int    `json:"batteryLevel,omitempty"`
	OSVersion    string `json:"osVersion,omitempty"`
}

// ResponderSnapshot is a denormalized copy of the responder captured at
// assignment time. It is not kept in sync with the responder directory
// afterwards.
type ResponderSnapshot struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Role  string `json:"role"`
}

// Alert represents one emergency signal raised from a user device.
//
// Assignment fields (AssignedTo, Responder, AssignedAt) are present exactly
// when the status is assigned or resolved; resolved alerts retain their last
// assignment. ResolvedAt is present only on resolved alerts.
type Alert struct {
	ID         string             `json:"id"`
	UserID     string             `json:"userId"`
	Status     AlertStatus        `json:"status"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
	Location   *Location          `json:"location,omitempty"`
	DeviceInfo *DeviceInfo        `json:"deviceInfo,omitempty"`
	AssignedTo string             `json:"assignedTo,omitempty"`
	Responder  *ResponderSnapshot `json:"responder,omitempty"`
	AssignedAt *time.Time         `json:"assignedAt,omitempty"`
	ResolvedAt *time.Time         `json:"resolvedAt,omitempty"`
}

// IsActive reports whether the alert still needs operator attention
func (a *Alert) IsActive() bool {
	return a.Status == AlertStatusPending || a.Status == AlertStatusAssigned
}

// MatchesFilter reports whether the alert belongs to the given derived view
func (a *Alert) MatchesFilter(filter AlertFilter) bool {
	switch filter {
	case AlertFilterActive:
		return a.IsActive()
	case AlertFilterAll, "":
		return true
	default:
		return a.Status == AlertStatus(filter)
	}
}

// CanTransition reports whether the status change is a legal lifecycle step.
// The happy path is pending -> assigned -> resolved; cancellation is only
// possible while the alert is still pending. Self-transitions are not legal
// steps (callers treat resolve-on-resolved as a no-op instead).
func (s AlertStatus) CanTransition(to AlertStatus) bool {
	switch s {
	case AlertStatusPending:
		return to == AlertStatusAssigned || to == AlertStatusCancelled
	case AlertStatusAssigned:
		return to == AlertStatusResolved
	default:
		return false
	}
}

// Valid reports whether the status is one of the four known enum values
func (s AlertStatus) Valid() bool {
	switch s {
	case AlertStatusPending, AlertStatusAssigned, AlertStatusResolved, AlertStatusCancelled:
		return true
	}
	return false
}

// AssignResponderRequest is the payload for assigning a responder to an alert
type AssignResponderRequest struct {
	ResponderID string `json:"responderId"`
}
