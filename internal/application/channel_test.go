package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bnema/agentfeed/internal/domain"
	"github.com/bnema/agentfeed/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastChannelOptions() ChannelOptions {
	return ChannelOptions{ReconnectInitial: time.Millisecond, ReconnectMax: 2 * time.Millisecond}
}

func ids(records []domain.ActionRecord) []domain.ActionID {
	out := make([]domain.ActionID, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestEventChannelKeepsOrderAcrossReconnects(t *testing.T) {
	source := newFakeSource(
		scriptedConnection{frames: [][]byte{actionFrame("a-1", true), actionFrame("a-2", false)}},
		scriptedConnection{handshakeErr: errors.New("503")},
		scriptedConnection{frames: [][]byte{actionFrame("a-2", false), actionFrame("a-3", true)}},
	)
	registry := NewChannelRegistry(source, fastChannelOptions())
	feed := telemetry.NewFeed("sess-1", telemetry.FeedOptions{})

	channel, err := registry.Open(context.Background(), "sess-1", feed)
	require.NoError(t, err)
	t.Cleanup(registry.CloseAll)

	require.Eventually(t, func() bool { return feed.Len() == 3 && source.Connects() >= 4 }, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, []domain.ActionID{"a-1", "a-2", "a-3"}, ids(feed.All()))
	assert.EqualValues(t, 3, feed.Metrics().TotalActions)
	require.Eventually(t, func() bool { return channel.State() == domain.ChannelConnected }, time.Second, 5*time.Millisecond)
}

func TestEventChannelCountsDecodeErrorsAndSkipsUnknownFrames(t *testing.T) {
	source := newFakeSource(scriptedConnection{frames: [][]byte{
		[]byte(`{"type":"agent_status"}`),
		[]byte(`{"type":`),
		[]byte(`{"type":"agent_action","action":{"id":"x"}}`),
		actionFrame("a-1", true),
	}})
	registry := NewChannelRegistry(source, fastChannelOptions())
	feed := telemetry.NewFeed("sess-1", telemetry.FeedOptions{})

	channel, err := registry.Open(context.Background(), "sess-1", feed)
	require.NoError(t, err)
	t.Cleanup(registry.CloseAll)

	require.Eventually(t, func() bool { return feed.Len() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 2, channel.DecodeErrors())
	assert.EqualValues(t, 2, feed.DecodeErrors())
}

func TestEventChannelNotifiesListeners(t *testing.T) {
	source := newFakeSource(scriptedConnection{frames: [][]byte{[]byte(`{"type":"pong"}`), actionFrame("a-1", true)}})
	source.gate = make(chan struct{})
	registry := NewChannelRegistry(source, fastChannelOptions())
	feed := telemetry.NewFeed("sess-1", telemetry.FeedOptions{})

	var mu sync.Mutex
	var kinds []domain.EventKind
	var states []domain.ChannelState

	channel, err := registry.Open(context.Background(), "sess-1", feed)
	require.NoError(t, err)
	channel.OnEvent(func(event domain.Event) {
		mu.Lock()
		defer mu.Unlock()
		kinds = append(kinds, event.Kind)
	})
	channel.OnStateChange(func(state domain.ChannelState) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, state)
	})
	close(source.gate)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(kinds) == 2
	}, 2*time.Second, 5*time.Millisecond)

	registry.Close("sess-1")
	assert.Equal(t, domain.ChannelDisconnected, channel.State())
	assert.True(t, channel.Closed())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []domain.EventKind{domain.EventPong, domain.EventAgentAction}, kinds)
	assert.Contains(t, states, domain.ChannelConnected)
}

func TestChannelRegistryAllowsOneOpenChannelPerSession(t *testing.T) {
	registry := NewChannelRegistry(newFakeSource(), fastChannelOptions())
	feed := telemetry.NewFeed("sess-1", telemetry.FeedOptions{})
	t.Cleanup(registry.CloseAll)

	_, err := registry.Open(context.Background(), "sess-1", feed)
	require.NoError(t, err)

	_, err = registry.Open(context.Background(), "sess-1", feed)
	require.ErrorIs(t, err, domain.ErrChannelAlreadyOpen)

	_, err = registry.Open(context.Background(), "sess-2", telemetry.NewFeed("sess-2", telemetry.FeedOptions{}))
	require.NoError(t, err)

	registry.Close("sess-1")
	_, ok := registry.Get("sess-1")
	assert.False(t, ok)

	_, err = registry.Open(context.Background(), "sess-1", feed)
	require.NoError(t, err)
}

func TestEventChannelCloseIsIdempotent(t *testing.T) {
	registry := NewChannelRegistry(newFakeSource(), fastChannelOptions())
	channel, err := registry.Open(context.Background(), "sess-1", telemetry.NewFeed("sess-1", telemetry.FeedOptions{}))
	require.NoError(t, err)

	channel.Close()
	channel.Close()

	select {
	case <-channel.Done():
	default:
		t.Fatal("read loop still running after Close")
	}
}

func TestEventChannelStopsWhenContextEnds(t *testing.T) {
	registry := NewChannelRegistry(newFakeSource(), fastChannelOptions())
	ctx, cancel := context.WithCancel(context.Background())

	channel, err := registry.Open(ctx, "sess-1", telemetry.NewFeed("sess-1", telemetry.FeedOptions{}))
	require.NoError(t, err)
	cancel()

	select {
	case <-channel.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("channel did not stop")
	}
	assert.Equal(t, domain.ChannelDisconnected, channel.State())
}

func TestEventChannelGivesUpAfterMaxReconnects(t *testing.T) {
	handshake := scriptedConnection{handshakeErr: errors.New("refused")}
	source := newFakeSource(handshake, handshake, handshake, handshake)
	opts := fastChannelOptions()
	opts.MaxReconnects = 2
	registry := NewChannelRegistry(source, opts)

	channel, err := registry.Open(context.Background(), "sess-1", telemetry.NewFeed("sess-1", telemetry.FeedOptions{}))
	require.NoError(t, err)

	select {
	case <-channel.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("channel kept retrying")
	}
	assert.Equal(t, 3, source.Connects())
}
