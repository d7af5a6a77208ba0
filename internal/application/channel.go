package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bnema/agentfeed/internal/domain"
	"github.com/bnema/agentfeed/internal/logging"
	"github.com/bnema/agentfeed/internal/ports"
	"github.com/bnema/agentfeed/internal/telemetry"
	"github.com/bnema/agentfeed/internal/wire"
	"github.com/cenkalti/backoff/v5"
)

const (
	defaultReconnectInitial = 500 * time.Millisecond
	defaultReconnectMax     = 15 * time.Second
)

// ChannelSink receives everything a channel decodes. *telemetry.Feed is the
// production sink.
type ChannelSink interface {
	Apply(event domain.Event) (telemetry.Outcome, error)
	RecordDecodeError()
	SetChannelState(state domain.ChannelState)
}

type ChannelOptions struct {
	ReconnectInitial time.Duration
	ReconnectMax     time.Duration
	// MaxReconnects stops the channel after that many consecutive failed
	// attempts. Zero retries forever.
	MaxReconnects int
	Stats         *telemetry.Stats
	Logger        *slog.Logger
}

func (o ChannelOptions) withDefaults() ChannelOptions {
	if o.ReconnectInitial <= 0 {
		o.ReconnectInitial = defaultReconnectInitial
	}
	if o.ReconnectMax <= 0 {
		o.ReconnectMax = defaultReconnectMax
	}
	if o.ReconnectMax < o.ReconnectInitial {
		o.ReconnectMax = o.ReconnectInitial
	}
	return o
}

func (o ChannelOptions) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.ReconnectInitial
	b.MaxInterval = o.ReconnectMax
	return b
}

// EventChannel is the live connection of one session. A single goroutine reads
// frames, so events reach the sink in arrival order, including across
// reconnects.
type EventChannel struct {
	sessionID domain.SessionID
	source    ports.EventSource
	sink      ChannelSink
	opts      ChannelOptions
	logger    *slog.Logger

	mu           sync.Mutex
	state        domain.ChannelState
	closed       bool
	eventFns     []func(domain.Event)
	stateFns     []func(domain.ChannelState)
	decodeErrors atomic.Int64
	cancel       context.CancelFunc
	done         chan struct{}
	closeOnce    sync.Once
}

func newEventChannel(sessionID domain.SessionID, source ports.EventSource, sink ChannelSink, opts ChannelOptions) *EventChannel {
	return &EventChannel{
		sessionID: sessionID,
		source:    source,
		sink:      sink,
		opts:      opts,
		logger:    logging.Component(opts.Logger, "channel").With("session_id", string(sessionID)),
		state:     domain.ChannelDisconnected,
		done:      make(chan struct{}),
	}
}

func (c *EventChannel) SessionID() domain.SessionID {
	return c.sessionID
}

// OnEvent registers fn for every event applied after this call.
func (c *EventChannel) OnEvent(fn func(domain.Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eventFns = append(c.eventFns, fn)
}

func (c *EventChannel) OnStateChange(fn func(domain.ChannelState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stateFns = append(c.stateFns, fn)
}

func (c *EventChannel) State() domain.ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *EventChannel) DecodeErrors() int64 {
	return c.decodeErrors.Load()
}

// Done is closed once the read loop has exited.
func (c *EventChannel) Done() <-chan struct{} {
	return c.done
}

func (c *EventChannel) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close stops the channel for good and waits for the read loop to exit.
func (c *EventChannel) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		cancel := c.cancel
		c.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	})
	<-c.done
}

func (c *EventChannel) start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	go c.run(ctx)
}

func (c *EventChannel) run(ctx context.Context) {
	defer close(c.done)
	defer c.setState(domain.ChannelDisconnected)

	bo := c.opts.newBackOff()
	failures := 0

	for {
		if ctx.Err() != nil {
			return
		}

		c.setState(domain.ChannelConnecting)
		stream, err := c.source.Connect(ctx, c.sessionID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("channel handshake failed", "error", err)
			c.setState(domain.ChannelError)
			c.setState(domain.ChannelDisconnected)
			failures++
		} else {
			bo.Reset()
			failures = 0

			c.opts.Stats.ChannelConnected()
			c.setState(domain.ChannelConnected)
			err := c.consume(ctx, stream)
			_ = stream.Close()
			c.opts.Stats.ChannelDisconnected()
			c.setState(domain.ChannelDisconnected)

			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("channel dropped", "error", err)
			failures++
		}

		if c.opts.MaxReconnects > 0 && failures > c.opts.MaxReconnects {
			c.logger.Error("channel giving up", "attempts", failures)
			return
		}

		wait := bo.NextBackOff()
		c.opts.Stats.IncReconnects()
		c.logger.Info("channel reconnecting", "backoff", wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (c *EventChannel) consume(ctx context.Context, stream ports.EventStream) error {
	for {
		frame, err := stream.Next(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrChannelDisconnected, err)
		}

		event, err := wire.DecodeFrame(frame)
		if errors.Is(err, wire.ErrUnknownFrameType) {
			c.logger.Debug("frame skipped", "error", err)
			continue
		}
		if err != nil {
			c.decodeErrors.Add(1)
			c.sink.RecordDecodeError()
			c.logger.Warn("frame dropped", "error", err)
			continue
		}

		if _, err := c.sink.Apply(event); err != nil {
			c.decodeErrors.Add(1)
			c.sink.RecordDecodeError()
			c.logger.Warn("event rejected", "kind", string(event.Kind), "error", err)
			continue
		}

		c.mu.Lock()
		fns := append([]func(domain.Event){}, c.eventFns...)
		c.mu.Unlock()
		for _, fn := range fns {
			fn(event)
		}
	}
}

func (c *EventChannel) setState(state domain.ChannelState) {
	c.mu.Lock()
	if c.state == state {
		c.mu.Unlock()
		return
	}
	c.state = state
	fns := append([]func(domain.ChannelState){}, c.stateFns...)
	c.mu.Unlock()

	c.sink.SetChannelState(state)
	for _, fn := range fns {
		fn(state)
	}
}

// ChannelRegistry enforces at most one live channel per session.
type ChannelRegistry struct {
	source ports.EventSource
	opts   ChannelOptions

	mu       sync.Mutex
	channels map[domain.SessionID]*EventChannel
}

func NewChannelRegistry(source ports.EventSource, opts ChannelOptions) *ChannelRegistry {
	return &ChannelRegistry{
		source:   source,
		opts:     opts.withDefaults(),
		channels: map[domain.SessionID]*EventChannel{},
	}
}

// Open starts a channel for sessionID feeding sink. The channel lives until
// Close or until ctx is cancelled.
func (r *ChannelRegistry) Open(ctx context.Context, sessionID domain.SessionID, sink ChannelSink) (*EventChannel, error) {
	if sink == nil {
		return nil, errors.New("channel sink is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.channels[sessionID]; ok && !existing.Closed() {
		return nil, fmt.Errorf("%w: %s", domain.ErrChannelAlreadyOpen, sessionID)
	}

	channel := newEventChannel(sessionID, r.source, sink, r.opts)
	r.channels[sessionID] = channel
	channel.start(ctx)

	return channel, nil
}

func (r *ChannelRegistry) Get(sessionID domain.SessionID) (*EventChannel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	channel, ok := r.channels[sessionID]
	if !ok || channel.Closed() {
		return nil, false
	}
	return channel, true
}

// Close closes the session's channel if one is open.
func (r *ChannelRegistry) Close(sessionID domain.SessionID) {
	r.mu.Lock()
	channel, ok := r.channels[sessionID]
	delete(r.channels, sessionID)
	r.mu.Unlock()

	if ok {
		channel.Close()
	}
}

func (r *ChannelRegistry) CloseAll() {
	r.mu.Lock()
	channels := make([]*EventChannel, 0, len(r.channels))
	for id, channel := range r.channels {
		channels = append(channels, channel)
		delete(r.channels, id)
	}
	r.mu.Unlock()

	for _, channel := range channels {
		channel.Close()
	}
}
