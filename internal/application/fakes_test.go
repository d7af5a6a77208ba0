package application

import (
	"context"
	"errors"
	"sync"

	"github.com/bnema/agentfeed/internal/domain"
	"github.com/bnema/agentfeed/internal/ports"
)

// scriptedConnection is one Connect outcome: a handshake error, or a stream
// that yields frames and then drops with dropErr.
type scriptedConnection struct {
	handshakeErr error
	frames       [][]byte
	dropErr      error
}

// fakeSource replays scripted connections in order. Once the script runs out,
// Connect returns a stream that blocks until ctx ends.
type fakeSource struct {
	// gate, when set, holds every Connect until it is closed.
	gate chan struct{}

	mu       sync.Mutex
	script   []scriptedConnection
	connects int
}

func newFakeSource(script ...scriptedConnection) *fakeSource {
	return &fakeSource{script: script}
}

func (s *fakeSource) Connect(ctx context.Context, _ domain.SessionID) (ports.EventStream, error) {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.connects++
	if len(s.script) == 0 {
		return &fakeStream{}, nil
	}

	next := s.script[0]
	s.script = s.script[1:]
	if next.handshakeErr != nil {
		return nil, next.handshakeErr
	}

	dropErr := next.dropErr
	if dropErr == nil {
		dropErr = errors.New("connection reset")
	}
	return &fakeStream{frames: next.frames, dropErr: dropErr, drops: true}, nil
}

func (s *fakeSource) Connects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connects
}

type fakeStream struct {
	frames  [][]byte
	dropErr error
	drops   bool
}

func (s *fakeStream) Next(ctx context.Context) ([]byte, error) {
	if len(s.frames) > 0 {
		frame := s.frames[0]
		s.frames = s.frames[1:]
		return frame, nil
	}
	if s.drops {
		return nil, s.dropErr
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *fakeStream) Close() error {
	return nil
}

func actionFrame(id string, success bool) []byte {
	ok := "false"
	if success {
		ok = "true"
	}
	return []byte(`{"type":"agent_action","action":{"id":"` + id + `","agent_type":"coding_agent","action_type":"code_generation","timestamp":"2026-03-01T10:00:00","success":` + ok + `}}`)
}
