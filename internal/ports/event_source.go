package ports

import (
	"context"

	"github.com/bnema/agentfeed/internal/domain"
)

// EventSource opens the live event stream of one session. A returned error
// is a handshake failure.
type EventSource interface {
	Connect(ctx context.Context, sessionID domain.SessionID) (EventStream, error)
}

// EventStream yields raw frames until the connection drops. Next returns an
// error once the stream is unusable; Close may be called more than once.
type EventStream interface {
	Next(ctx context.Context) ([]byte, error)
	Close() error
}
