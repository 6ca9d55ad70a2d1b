package domain

import (
	"context"
	"time"
)

// AuditEventType defines the type of audit event
type AuditEventType string

const (
	// OTP events
	OTPRequestEvent        AuditEventType = "OTP_REQUESTED"
	OTPRequestFailureEvent AuditEventType = "OTP_REQUEST_FAILED"
	OTPVerifyEvent         AuditEventType = "OTP_VERIFIED"
	OTPVerifyFailureEvent  AuditEventType = "OTP_VERIFICATION_FAILED"

	// Session events
	SessionStartEvent  AuditEventType = "SESSION_STARTED"
	OnboardingEvent    AuditEventType = "ONBOARDING_REQUIRED"
	RoleSelectEvent    AuditEventType = "ROLE_SELECTED"
	RoleSwitchEvent    AuditEventType = "ROLE_SWITCHED"
	SessionEndEvent    AuditEventType = "SESSION_ENDED"

	// Authorization events
	AccessDecisionEvent AuditEventType = "ACCESS_DECISION"
)

// AuditEvent represents a business event that occurred in the system
type AuditEvent struct {
	EventType AuditEventType         `json:"event_type"`
	Phone     string                 `json:"phone,omitempty"`
	SessionID string                 `json:"session_id,omitempty"`
	Role      Role                   `json:"role,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	ErrorMsg  string                 `json:"error_msg,omitempty"`
	Success   bool                   `json:"success"`
}

// AuditLogger records identity events
type AuditLogger interface {
	LogEvent(ctx context.Context, event *AuditEvent) error
}

// NewAuditEvent creates a new audit event with common fields populated
func NewAuditEvent(eventType AuditEventType, phone string) *AuditEvent {
	return &AuditEvent{
		EventType: eventType,
		Phone:     phone,
		Timestamp: time.Now().UTC(),
		Metadata:  make(map[string]interface{}),
		Success:   true,
	}
}

// WithError sets error information on the audit event
func (e *AuditEvent) WithError(err error) *AuditEvent {
	e.Success = false
	if err != nil {
		e.ErrorMsg = err.Error()
	}
	return e
}

// WithSession sets the session id
func (e *AuditEvent) WithSession(sessionID string) *AuditEvent {
	e.SessionID = sessionID
	return e
}

// WithRole sets the role field
func (e *AuditEvent) WithRole(role Role) *AuditEvent {
	e.Role = role
	return e
}

// WithMetadata adds metadata to the event
func (e *AuditEvent) WithMetadata(key string, value interface{}) *AuditEvent {
	e.Metadata[key] = value
	return e
}
