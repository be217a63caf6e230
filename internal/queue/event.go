// Package queue defines message payloads exchanged over the message broker.
package queue

// Security event types published by the auth handlers.
const (
	EventLoginSucceeded = "login.succeeded"
	EventLoginFailed    = "login.failed"
	EventTokenRefreshed = "token.refreshed"
	EventLogout         = "logout"
	EventLogoutAll      = "logout.all"
)

// SecurityEvent is published on every authentication state change.
// It carries enough information for downstream consumers to log,
// alert or feed analytics without querying the primary database.
// Token secrets never appear here; only the public token id.
type SecurityEvent struct {
	Type       string `json:"type"`
	UserID     string `json:"user_id,omitempty"`
	Email      string `json:"email,omitempty"`
	IP         string `json:"ip,omitempty"`
	TokenID    string `json:"token_id,omitempty"`
	OccurredAt string `json:"occurred_at"`
}
