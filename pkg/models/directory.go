package models

// Responder is a directory entry for personnel eligible for alert assignment.
// Responders are mutated independently of alerts and are read-only from the
// triage service's perspective.
type Responder struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Role  string `json:"role"`
}

// User is the subset of the user directory relevant to alert triage
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	PhotoURL    string `json:"photoURL,omitempty"`
}
