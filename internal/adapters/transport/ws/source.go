package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/bnema/agentfeed/internal/domain"
	"github.com/bnema/agentfeed/internal/logging"
	"github.com/bnema/agentfeed/internal/ports"
	"github.com/bnema/agentfeed/internal/wire"
	"github.com/gorilla/websocket"
)

const (
	defaultPingInterval     = 20 * time.Second
	defaultHandshakeTimeout = 10 * time.Second
	writeWait               = 5 * time.Second
	maxFrameBytes           = 4 << 20
)

// TokenFunc returns the bearer token for the handshake, or "" for none.
type TokenFunc func(ctx context.Context) (string, error)

// Source dials /ws/transparency/{session_id} on the backend.
type Source struct {
	BaseURL          string
	PingInterval     time.Duration
	HandshakeTimeout time.Duration
	Token            TokenFunc
	Dialer           *websocket.Dialer
	Logger           *slog.Logger
}

var _ ports.EventSource = (*Source)(nil)

// StreamURL maps an http(s) or ws(s) base URL to the session's stream endpoint.
func StreamURL(baseURL string, sessionID domain.SessionID) (string, error) {
	if baseURL == "" {
		return "", errors.New("event stream url is required")
	}
	if sessionID == "" {
		return "", errors.New("session id is required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse event stream url: %w", err)
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("event stream url must use ws, wss, http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", errors.New("event stream url host is required")
	}

	if parsed.Path == "" {
		parsed.Path = "/"
	}
	return parsed.JoinPath("ws", "transparency", url.PathEscape(string(sessionID))).String(), nil
}

func (s *Source) Connect(ctx context.Context, sessionID domain.SessionID) (ports.EventStream, error) {
	endpoint, err := StreamURL(s.BaseURL, sessionID)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	if s.Token != nil {
		token, err := s.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("read backend token: %w", err)
		}
		if token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
	}

	conn, resp, err := s.dialer().DialContext(ctx, endpoint, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial event stream: status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial event stream: %w", err)
	}
	conn.SetReadLimit(maxFrameBytes)

	logger := logging.Component(s.Logger, "ws").With("session_id", string(sessionID))
	return newStream(conn, s.pingInterval(), logger), nil
}

func (s *Source) dialer() *websocket.Dialer {
	if s.Dialer != nil {
		return s.Dialer
	}

	timeout := s.HandshakeTimeout
	if timeout <= 0 {
		timeout = defaultHandshakeTimeout
	}
	return &websocket.Dialer{Proxy: http.ProxyFromEnvironment, HandshakeTimeout: timeout}
}

func (s *Source) pingInterval() time.Duration {
	if s.PingInterval > 0 {
		return s.PingInterval
	}
	return defaultPingInterval
}

// stream pumps frames from a reader goroutine so Next can honour ctx, and
// keeps the server-side session alive with {"type":"ping"} frames.
type stream struct {
	conn   *websocket.Conn
	logger *slog.Logger

	frames chan []byte
	done   chan struct{}

	errMu   sync.Mutex
	readErr error

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func newStream(conn *websocket.Conn, pingInterval time.Duration, logger *slog.Logger) *stream {
	s := &stream{
		conn:   conn,
		logger: logger,
		frames: make(chan []byte),
		done:   make(chan struct{}),
	}
	go s.readLoop()
	go s.pingLoop(pingInterval)
	return s
}

func (s *stream) Next(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case frame, ok := <-s.frames:
		if !ok {
			return nil, s.err()
		}
		return frame, nil
	}
}

func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)

		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		s.writeMu.Unlock()

		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

func (s *stream) readLoop() {
	defer close(s.frames)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.setErr(err)
			return
		}

		select {
		case s.frames <- data:
		case <-s.done:
			s.setErr(domain.ErrChannelClosed)
			return
		}
	}
}

func (s *stream) pingLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.write(wire.EncodePing()); err != nil {
				s.logger.Debug("ping failed", "error", err)
				return
			}
		}
	}
}

func (s *stream) write(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *stream) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.readErr == nil {
		s.readErr = err
	}
}

func (s *stream) err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.readErr == nil {
		return domain.ErrChannelClosed
	}
	return s.readErr
}
