package application

import (
	"time"

	"github.com/bnema/agentfeed/internal/domain"
)

type SessionStatus struct {
	Session       domain.Session
	ChannelState  domain.ChannelState
	Metrics       domain.MetricsSnapshot
	LoggedActions int
	DecodeErrors  int64
	LastActivity  time.Time
}

// Attached reports whether a live channel currently feeds the session.
func (s SessionStatus) Attached() bool {
	return s.Session.State == domain.SessionStateActive
}

// BackfillResult counts how a fetched backend log merged into a Feed.
type BackfillResult struct {
	Fetched    int
	Appended   int
	Duplicates int
	Rejected   int
	// Skipped records never reached the Feed because they failed to decode.
	Skipped int
}
