// Package queue defines session lifecycle messages exchanged over the
// broker, plus the publisher and the audit-log consumer.
package queue

// SessionQueueName is the durable queue session events are published to.
const SessionQueueName = "session.events"

// Session event types.
const (
	EventUserRegistered  = "user.registered"
	EventUserLoggedIn    = "user.logged_in"
	EventSessionsRevoked = "sessions.revoked"
)

// SessionEvent is published on register, login and logout-all. It carries
// enough for downstream consumers (notifications, audit, analytics) without
// querying the primary database. Raw tokens and password material never
// appear here.
type SessionEvent struct {
	Type       string `json:"type"`
	UserID     string `json:"user_id"`
	TenantID   string `json:"tenant_id"`
	Email      string `json:"email"`
	OccurredAt string `json:"occurred_at"`
}
