package domain

import "time"

// BackendMetrics are the orchestrator-wide task counters the backend reports
// with a session's status. They are not the session's action metrics.
type BackendMetrics struct {
	TotalTasks       int64
	SuccessfulTasks  int64
	FailedTasks      int64
	SuccessRate      float64
	AvgExecutionTime float64
	ActiveSessions   int
}

// RemoteSessionStatus is the backend's view of one session.
type RemoteSessionStatus struct {
	SessionID            SessionID
	Active               bool
	TransparencyActions  int
	WebsocketConnections int
	Metrics              BackendMetrics
	// LastActivity is zero when the backend has logged nothing yet.
	LastActivity time.Time
}

// TransparencyLog is the server-side action log of a session, optionally
// narrowed to one agent.
type TransparencyLog struct {
	SessionID SessionID
	AgentType AgentType
	Actions   []ActionRecord
	// Skipped counts records the backend returned that failed validation.
	Skipped int
}
