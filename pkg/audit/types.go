// Package audit records the user-visible audit trail of the SSO flows:
// who was provisioned, whose profile was viewed, and which logins were
// rejected. Events are JSON documents written through a Logger; the file
// logger appends JSON lines, and MultiLogger fans out to several sinks.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventType categorizes an audit event.
type EventType string

const (
	// EventUserCreated records a user provisioned by single sign-on.
	EventUserCreated EventType = "user_created"

	// EventUserProfile records a user profile viewed from single sign-on.
	EventUserProfile EventType = "user_profile"

	// EventLoginRejected records a terminal SSO failure for an identified
	// user.
	EventLoginRejected EventType = "login_rejected"
)

// Event is a single audit log entry.
type Event struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Type       EventType `json:"type"`
	Message    string    `json:"message"`
	Username   string    `json:"username,omitempty"`
	UserID     string    `json:"user_id,omitempty"`
	OrgID      string    `json:"org_id,omitempty"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
}

// NewEvent creates an event with a fresh id and timestamp.
func NewEvent(eventType EventType, message string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Type:      eventType,
		Message:   message,
	}
}
