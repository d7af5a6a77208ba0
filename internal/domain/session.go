package domain

import (
	"fmt"
	"strings"
	"time"
)

type SessionID string
type RestorePointID string

// SessionState tracks a session from this client's point of view. Active means
// telemetry is attached; a detached session falls back to created.
type SessionState string

const (
	SessionStateCreated SessionState = "created"
	SessionStateActive  SessionState = "active"
	SessionStateClosed  SessionState = "closed"
)

func (s SessionState) Label() string {
	switch s {
	case SessionStateCreated:
		return "created"
	case SessionStateActive:
		return "telemetry-attached"
	case SessionStateClosed:
		return "closed"
	default:
		return "uninitialized"
	}
}

type RestorePointRef struct {
	ID        RestorePointID
	Label     string
	CreatedAt time.Time
}

type Session struct {
	ID            SessionID
	OwnerID       string
	Workspace     string
	CreatedAt     time.Time
	State         SessionState
	RestorePoints []RestorePointRef
}

func (s Session) Validate() error {
	if strings.TrimSpace(string(s.ID)) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(s.OwnerID) == "" {
		return fmt.Errorf("owner is required")
	}
	switch s.State {
	case SessionStateCreated, SessionStateActive, SessionStateClosed:
	default:
		return fmt.Errorf("unsupported session state %q", s.State)
	}

	return nil
}

func (s Session) Closed() bool {
	return s.State == SessionStateClosed
}

type SessionCreateRequest struct {
	OwnerID   string
	Workspace string
}

type CreatedSession struct {
	ID        SessionID
	CreatedAt time.Time
}
