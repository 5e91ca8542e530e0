package session

import (
	"encoding/json"
	"time"

	"m365console/internal/credential"
)

// Status is the connection status of one service.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	// StatusDegraded means the session was established through a fallback
	// strategy after the primary one failed.
	StatusDegraded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "Disconnected"
	case StatusConnecting:
		return "Connecting"
	case StatusConnected:
		return "Connected"
	case StatusDegraded:
		return "Degraded"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// ConnectionState is a snapshot of one service's connection. Values
// returned by the Manager are copies.
type ConnectionState struct {
	ServiceID      string          `json:"serviceId"`
	Status         Status          `json:"status"`
	LastError      string          `json:"lastError,omitempty"`
	LastSuccess    time.Time       `json:"lastSuccess,omitzero"`
	RetryCount     int             `json:"retryCount"`
	CredentialKind credential.Kind `json:"credentialKind,omitempty"`
	HandleID       string          `json:"handleId,omitempty"`
}

// Connected reports whether the service has a live session.
func (s ConnectionState) Connected() bool {
	return s.Status == StatusConnected || s.Status == StatusDegraded
}
