package timeplus

// Stream names
const (
	// AlertsStream is the mutable stream that stores SOS alerts, keyed by id
	AlertsStream = "wc_alerts"

	// RespondersStream is the mutable stream that stores the responder directory
	RespondersStream = "wc_responders"

	// UsersStream is the mutable stream that stores the user directory
	UsersStream = "wc_users"
)

// GetAlertsSchema returns the schema for the alerts stream. Assignment and
// resolution columns are nullable; they are only populated once the alert
// leaves the pending state.
func GetAlertsSchema() []Column {
	return []Column{
		{Name: "id", Type: "string"},
		{Name: "user_id", Type: "string"},
		{Name: "status", Type: "string"},
		{Name: "created_at", Type: "datetime64(3)"},
		{Name: "updated_at", Type: "datetime64(3)"},
		{Name: "latitude", Type: "float64", Nullable: true},
		{Name: "longitude", Type: "float64", Nullable: true},
		{Name: "device_model", Type: "string", Nullable: true},
		{Name: "battery_level", Type: "int32", Nullable: true},
		{Name: "os_version", Type: "string", Nullable: true},
		{Name: "assigned_to", Type: "string", Nullable: true},
		{Name: "responder_name", Type: "string", Nullable: true},
		{Name: "responder_phone", Type: "string", Nullable: true},
		{Name: "responder_role", Type: "string", Nullable: true},
		{Name: "assigned_at", Type: "datetime64(3)", Nullable: true},
		{Name: "resolved_at", Type: "datetime64(3)", Nullable: true},
	}
}

// GetRespondersSchema returns the schema for the responder directory stream
func GetRespondersSchema() []Column {
	return []Column{
		{Name: "id", Type: "string"},
		{Name: "name", Type: "string"},
		{Name: "phone", Type: "string"},
		{Name: "role", Type: "string"},
		{Name: "updated_at", Type: "datetime64(3)"},
	}
}

// GetUsersSchema returns the schema for the user directory stream
func GetUsersSchema() []Column {
	return []Column{
		{Name: "id", Type: "string"},
		{Name: "display_name", Type: "string"},
		{Name: "email", Type: "string"},
		{Name: "phone", Type: "string"},
		{Name: "photo_url", Type: "string", Nullable: true},
		{Name: "updated_at", Type: "datetime64(3)"},
	}
}
