package telemetry

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/bnema/agentfeed/internal/domain"
	"github.com/bnema/agentfeed/internal/logging"
	"github.com/bnema/agentfeed/internal/ports"
)

type Outcome string

const (
	OutcomeAppended        Outcome = "appended"
	OutcomeDuplicate       Outcome = "duplicate"
	OutcomeMetricsReplaced Outcome = "metrics_replaced"
	OutcomeNotice          Outcome = "notice"
	OutcomeRejected        Outcome = "rejected"
)

type UpdateKind string

const (
	UpdateAction       UpdateKind = "action"
	UpdateMetrics      UpdateKind = "metrics"
	UpdateNotice       UpdateKind = "notice"
	UpdateCleared      UpdateKind = "cleared"
	UpdateChannelState UpdateKind = "channel_state"
	UpdateDecodeError  UpdateKind = "decode_error"
)

// Update is what subscribers receive after the feed changed.
type Update struct {
	Kind         UpdateKind
	Record       domain.ActionRecord
	Metrics      domain.MetricsSnapshot
	Event        domain.Event
	ChannelState domain.ChannelState
}

type FeedOptions struct {
	MaxActions int
	Clock      ports.Clock
	Stats      *Stats
	Logger     *slog.Logger
}

// Feed is the telemetry state of one session: its action log and the metrics
// folded from it. Apply is the only ingestion path, shared by live channels
// and replay. Reads return copies and never expose the underlying log.
type Feed struct {
	sessionID domain.SessionID
	clock     ports.Clock
	stats     *Stats
	logger    *slog.Logger

	// applyMu serializes Apply. Updates are queued under it and delivered
	// after it is released, in queue order, by one goroutine at a time.
	applyMu sync.Mutex

	mu           sync.RWMutex
	log          *ActionLog
	metrics      domain.MetricsSnapshot
	accepted     int
	corrections  []domain.MetricsCorrection
	decodeErrors int64
	channelState domain.ChannelState
	lastActivity time.Time

	subsMu  sync.Mutex
	subs    map[int]func(Update)
	nextSub int

	pubMu      sync.Mutex
	pending    []Update
	delivering bool
}

func NewFeed(sessionID domain.SessionID, opts FeedOptions) *Feed {
	clock := opts.Clock
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Feed{
		sessionID:    sessionID,
		clock:        clock,
		stats:        opts.Stats,
		logger:       logging.Component(opts.Logger, "feed").With("session_id", string(sessionID)),
		log:          NewActionLog(opts.MaxActions),
		channelState: domain.ChannelDisconnected,
		subs:         map[int]func(Update){},
	}
}

func (f *Feed) SessionID() domain.SessionID {
	return f.sessionID
}

func (f *Feed) Apply(event domain.Event) (Outcome, error) {
	defer f.deliver()

	f.applyMu.Lock()
	defer f.applyMu.Unlock()

	switch event.Kind {
	case domain.EventAgentAction:
		return f.applyAction(event.Action)
	case domain.EventMetricsUpdate:
		f.mu.Lock()
		f.metrics = event.Metrics
		f.corrections = append(f.corrections, domain.MetricsCorrection{At: f.accepted, Metrics: event.Metrics})
		f.lastActivity = f.clock.Now()
		f.mu.Unlock()

		f.stats.IncMetricsUpdates()
		f.publish(Update{Kind: UpdateMetrics, Metrics: event.Metrics, Event: event})
		return OutcomeMetricsReplaced, nil
	default:
		f.publish(Update{Kind: UpdateNotice, Event: event, Metrics: f.Metrics()})
		return OutcomeNotice, nil
	}
}

func (f *Feed) applyAction(record domain.ActionRecord) (Outcome, error) {
	if err := record.Validate(); err != nil {
		return OutcomeRejected, fmt.Errorf("validate action record: %w", err)
	}

	now := f.clock.Now()
	if record.ReceivedAt.IsZero() {
		record.ReceivedAt = now
	}

	f.mu.Lock()
	if err := f.log.Append(record); err != nil {
		f.mu.Unlock()
		if errors.Is(err, domain.ErrDuplicateID) {
			f.stats.IncDuplicates()
			f.logger.Debug("duplicate action ignored", "action_id", string(record.ID))
			return OutcomeDuplicate, nil
		}
		return OutcomeRejected, err
	}
	f.metrics = f.metrics.Apply(record)
	f.accepted++
	f.lastActivity = now
	metrics := f.metrics
	f.mu.Unlock()

	f.stats.IncIngested()
	f.publish(Update{Kind: UpdateAction, Record: record, Metrics: metrics})
	return OutcomeAppended, nil
}

// RecordDecodeError counts a frame the channel could not decode.
func (f *Feed) RecordDecodeError() {
	defer f.deliver()

	f.mu.Lock()
	f.decodeErrors++
	f.mu.Unlock()

	f.stats.IncDecodeErrors()
	f.publish(Update{Kind: UpdateDecodeError})
}

func (f *Feed) SetChannelState(state domain.ChannelState) {
	defer f.deliver()

	f.mu.Lock()
	if f.channelState == state {
		f.mu.Unlock()
		return
	}
	f.channelState = state
	f.mu.Unlock()

	f.publish(Update{Kind: UpdateChannelState, ChannelState: state})
}

// ClearLog empties the log only; metrics keep their values until ResetMetrics.
// Retained metrics become the first correction so a later export still
// replays to the same values.
func (f *Feed) ClearLog() {
	defer f.deliver()

	f.applyMu.Lock()
	defer f.applyMu.Unlock()

	f.mu.Lock()
	f.log.Clear()
	f.accepted = 0
	f.corrections = nil
	metrics := f.metrics
	if !metrics.IsZero() {
		f.corrections = append(f.corrections, domain.MetricsCorrection{At: 0, Metrics: metrics})
	}
	f.mu.Unlock()

	f.publish(Update{Kind: UpdateCleared, Metrics: metrics})
}

func (f *Feed) ResetMetrics() {
	defer f.deliver()

	f.applyMu.Lock()
	defer f.applyMu.Unlock()

	f.mu.Lock()
	f.metrics = domain.MetricsSnapshot{}
	if f.accepted == 0 {
		f.corrections = nil
	} else {
		f.corrections = append(f.corrections, domain.MetricsCorrection{At: f.accepted})
	}
	f.mu.Unlock()

	f.publish(Update{Kind: UpdateMetrics})
}

func (f *Feed) Metrics() domain.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.metrics
}

func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.log.Len()
}

func (f *Feed) All() []domain.ActionRecord {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.log.All()
}

// View returns the records matching filter, keeping only the newest limit
// records when limit is positive.
func (f *Feed) View(filter domain.Filter, limit int) []domain.ActionRecord {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]domain.ActionRecord, 0, f.log.Len())
	for record := range f.log.Filtered(filter) {
		out = append(out, record)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Filtered copies the matching records when iteration starts, so the loop body
// may call back into the feed.
func (f *Feed) Filtered(filter domain.Filter) iter.Seq[domain.ActionRecord] {
	return func(yield func(domain.ActionRecord) bool) {
		for _, record := range f.View(filter, 0) {
			if !yield(record) {
				return
			}
		}
	}
}

func (f *Feed) DecodeErrors() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.decodeErrors
}

func (f *Feed) ChannelState() domain.ChannelState {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.channelState
}

func (f *Feed) LastActivity() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lastActivity
}

// Snapshot captures the full ordered log and current metrics. Corrections are
// rebased onto the retained records of a bounded log.
func (f *Feed) Snapshot() domain.Snapshot {
	f.applyMu.Lock()
	defer f.applyMu.Unlock()

	f.mu.RLock()
	defer f.mu.RUnlock()

	evicted := f.log.Evicted()
	corrections := make([]domain.MetricsCorrection, 0, len(f.corrections))
	for _, c := range f.corrections {
		if c.At < evicted {
			continue
		}
		corrections = append(corrections, domain.MetricsCorrection{At: c.At - evicted, Metrics: c.Metrics})
	}

	return domain.Snapshot{
		SessionID:   f.sessionID,
		ExportedAt:  f.clock.Now(),
		Actions:     f.log.All(),
		Metrics:     f.metrics,
		Corrections: corrections,
		Truncated:   evicted,
	}
}

// Subscribe registers fn for every subsequent update and returns a function
// that removes it. Updates reach fn in apply order. fn may call back into the
// feed; an update it causes is delivered once fn returns. When several
// goroutines apply at once, one of them delivers for all.
func (f *Feed) Subscribe(fn func(Update)) func() {
	f.subsMu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	f.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.subsMu.Lock()
			delete(f.subs, id)
			f.subsMu.Unlock()
		})
	}
}

// publish queues update for delivery. Callers that hold applyMu queue in
// apply order.
func (f *Feed) publish(update Update) {
	f.pubMu.Lock()
	f.pending = append(f.pending, update)
	f.pubMu.Unlock()
}

// deliver hands queued updates to subscribers unless another goroutine,
// or an outer call on this one, is already doing so.
func (f *Feed) deliver() {
	f.pubMu.Lock()
	if f.delivering {
		f.pubMu.Unlock()
		return
	}
	f.delivering = true

	for len(f.pending) > 0 {
		update := f.pending[0]
		f.pending = f.pending[1:]
		f.pubMu.Unlock()

		f.notify(update)

		f.pubMu.Lock()
	}
	f.pending = nil
	f.delivering = false
	f.pubMu.Unlock()
}

func (f *Feed) notify(update Update) {
	f.subsMu.Lock()
	ids := make([]int, 0, len(f.subs))
	for id := range f.subs {
		ids = append(ids, id)
	}
	f.subsMu.Unlock()

	slices.Sort(ids)
	for _, id := range ids {
		f.subsMu.Lock()
		fn, ok := f.subs[id]
		f.subsMu.Unlock()
		if ok {
			fn(update)
		}
	}
}
