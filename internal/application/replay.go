package application

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"

	"github.com/bnema/agentfeed/internal/domain"
	"github.com/bnema/agentfeed/internal/logging"
	"github.com/bnema/agentfeed/internal/telemetry"
)

type ReplayResult struct {
	Emitted  int
	Rejected int
	Total    int
	// Cancelled is set when the context ended before every record was emitted.
	Cancelled bool
	// MetricsMatch reports whether the target ended with the snapshot's metrics.
	MetricsMatch bool
	// Deterministic is false for snapshots of a truncated log.
	Deterministic bool
}

// Err returns ErrReplayCancelled for a cancelled replay.
func (r ReplayResult) Err() error {
	if r.Cancelled {
		return domain.ErrReplayCancelled
	}
	return nil
}

// ReplayEngine re-drives a snapshot through a Feed, the same ingestion path
// live events take.
type ReplayEngine struct {
	logger *slog.Logger
}

func NewReplayEngine(logger *slog.Logger) *ReplayEngine {
	return &ReplayEngine{logger: logging.Component(logger, "replay")}
}

type replayCounters struct {
	emitted  int
	rejected int
}

// Replay applies every record of snap to target in order and yields each one
// after it was applied. Metrics corrections are re-applied at their recorded
// positions. Stopping iteration or cancelling ctx halts replay between
// records; nothing already applied is rolled back.
func (e *ReplayEngine) Replay(ctx context.Context, snap domain.Snapshot, target *telemetry.Feed, pacer Pacer) iter.Seq[domain.ActionRecord] {
	return func(yield func(domain.ActionRecord) bool) {
		e.replay(ctx, snap, target, pacer, &replayCounters{}, yield)
	}
}

// Run drives Replay to completion. Cancellation is reported in the result,
// not as an error. A nil target or a snapshot that fails Validate is refused
// before anything is applied.
func (e *ReplayEngine) Run(ctx context.Context, snap domain.Snapshot, target *telemetry.Feed, pacer Pacer) (ReplayResult, error) {
	if target == nil {
		return ReplayResult{}, errors.New("replay target is nil")
	}
	if err := snap.Validate(); err != nil {
		return ReplayResult{}, fmt.Errorf("replay %s: %w", snap.SessionID, err)
	}

	counters := &replayCounters{}
	e.replay(ctx, snap, target, pacer, counters, func(domain.ActionRecord) bool { return true })

	result := ReplayResult{
		Emitted:       counters.emitted,
		Rejected:      counters.rejected,
		Total:         len(snap.Actions),
		Deterministic: snap.Truncated == 0,
	}
	result.Cancelled = counters.emitted+counters.rejected < result.Total || (ctx.Err() != nil && result.Total == 0)
	if !result.Cancelled {
		result.MetricsMatch = target.Metrics() == snap.Metrics
	}

	e.logger.Info("replay finished",
		"session_id", string(snap.SessionID),
		"emitted", result.Emitted,
		"total", result.Total,
		"cancelled", result.Cancelled,
		"metrics_match", result.MetricsMatch,
	)
	return result, nil
}

func (e *ReplayEngine) replay(ctx context.Context, snap domain.Snapshot, target *telemetry.Feed, pacer Pacer, counters *replayCounters, yield func(domain.ActionRecord) bool) {
	if pacer == nil {
		pacer = InstantPace{}
	}

	corrections := slices.Clone(snap.Corrections)
	slices.SortStableFunc(corrections, func(a, b domain.MetricsCorrection) int { return a.At - b.At })
	next := 0
	applyCorrections := func(position int) {
		for next < len(corrections) && corrections[next].At <= position {
			_, _ = target.Apply(domain.MetricsEvent(corrections[next].Metrics))
			next++
		}
	}

	var prev *domain.ActionRecord
	for i, record := range snap.Actions {
		if ctx.Err() != nil {
			return
		}
		applyCorrections(i)

		if err := pacer.Wait(ctx, prev, record); err != nil {
			return
		}

		if _, err := target.Apply(domain.ActionEvent(record)); err != nil {
			counters.rejected++
			e.logger.Warn("replayed record rejected", "action_id", string(record.ID), "error", err)
			continue
		}
		counters.emitted++

		if !yield(record) {
			return
		}
		prev = &snap.Actions[i]
	}

	if ctx.Err() == nil {
		applyCorrections(len(snap.Actions))
	}
}
