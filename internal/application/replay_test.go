package application

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bnema/agentfeed/internal/domain"
	"github.com/bnema/agentfeed/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func replayRecord(id string, success bool, seconds *float64) domain.ActionRecord {
	return domain.ActionRecord{
		ID:            domain.ActionID(id),
		AgentType:     domain.AgentTesting,
		ActionType:    "run_tests",
		Success:       success,
		ExecutionTime: seconds,
	}
}

func newReplayFeed(id domain.SessionID) *telemetry.Feed {
	return telemetry.NewFeed(id, telemetry.FeedOptions{Clock: fixedClock{now: controllerNow}})
}

func TestReplayReproducesLogAndMetrics(t *testing.T) {
	source := newReplayFeed("sess-1")
	for _, event := range []domain.Event{
		domain.ActionEvent(replayRecord("a-1", true, domain.Seconds(2))),
		domain.ActionEvent(replayRecord("a-2", false, nil)),
		domain.MetricsEvent(domain.MetricsSnapshot{TotalActions: 40, SuccessRate: 90, AvgExecutionTime: 1, ActiveAgents: 3}),
		domain.ActionEvent(replayRecord("a-3", true, domain.Seconds(4))),
	} {
		_, err := source.Apply(event)
		require.NoError(t, err)
	}
	snap := source.Snapshot()

	target := newReplayFeed("replay")
	var replayed []domain.ActionID
	for record := range NewReplayEngine(nil).Replay(context.Background(), snap, target, InstantPace{}) {
		replayed = append(replayed, record.ID)
	}

	assert.Equal(t, []domain.ActionID{"a-1", "a-2", "a-3"}, replayed)
	assert.Equal(t, ids(source.All()), ids(target.All()))
	assert.Equal(t, source.Metrics(), target.Metrics())
}

func TestReplayRunReportsMatch(t *testing.T) {
	source := newReplayFeed("sess-1")
	for i := range 5 {
		_, err := source.Apply(domain.ActionEvent(replayRecord(fmt.Sprintf("a-%d", i), i%2 == 0, domain.Seconds(float64(i)))))
		require.NoError(t, err)
	}
	source.ResetMetrics()

	result, err := NewReplayEngine(nil).Run(context.Background(), source.Snapshot(), newReplayFeed("replay"), nil)

	require.NoError(t, err)
	assert.Equal(t, ReplayResult{Emitted: 5, Total: 5, MetricsMatch: true, Deterministic: true}, result)
	require.NoError(t, result.Err())
}

func TestReplayAfterClearKeepsRetainedMetrics(t *testing.T) {
	source := newReplayFeed("sess-1")
	_, err := source.Apply(domain.ActionEvent(replayRecord("a-1", false, domain.Seconds(1))))
	require.NoError(t, err)
	source.ClearLog()
	_, err = source.Apply(domain.ActionEvent(replayRecord("a-2", true, domain.Seconds(3))))
	require.NoError(t, err)

	target := newReplayFeed("replay")
	result, err := NewReplayEngine(nil).Run(context.Background(), source.Snapshot(), target, InstantPace{})

	require.NoError(t, err)
	assert.True(t, result.MetricsMatch)
	assert.EqualValues(t, 2, target.Metrics().TotalActions)
}

func TestReplayStopsWhenConsumerBreaks(t *testing.T) {
	snap := domain.Snapshot{SessionID: "s", Actions: []domain.ActionRecord{
		replayRecord("a-1", true, nil),
		replayRecord("a-2", true, nil),
		replayRecord("a-3", true, nil),
	}}
	target := newReplayFeed("replay")

	for record := range NewReplayEngine(nil).Replay(context.Background(), snap, target, InstantPace{}) {
		if record.ID == "a-2" {
			break
		}
	}

	assert.Equal(t, []domain.ActionID{"a-1", "a-2"}, ids(target.All()))
}

func TestReplayRunCancelled(t *testing.T) {
	snap := domain.Snapshot{SessionID: "s", Actions: []domain.ActionRecord{replayRecord("a-1", true, nil), replayRecord("a-2", true, nil)}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	target := newReplayFeed("replay")
	result, err := NewReplayEngine(nil).Run(ctx, snap, target, InstantPace{})

	require.NoError(t, err)
	assert.True(t, result.Cancelled)
	assert.False(t, result.MetricsMatch)
	require.ErrorIs(t, result.Err(), domain.ErrReplayCancelled)
	assert.Equal(t, 0, target.Len())
}

func TestReplayRunRefusesUnusableInput(t *testing.T) {
	engine := NewReplayEngine(nil)
	valid := domain.Snapshot{SessionID: "s", Actions: []domain.ActionRecord{replayRecord("a-1", true, nil)}}

	_, err := engine.Run(context.Background(), valid, nil, InstantPace{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target is nil")

	tests := map[string]domain.Snapshot{
		"correction past the log": {SessionID: "s", Actions: valid.Actions, Corrections: []domain.MetricsCorrection{{At: 2}}},
		"negative correction":     {SessionID: "s", Actions: valid.Actions, Corrections: []domain.MetricsCorrection{{At: -1}}},
		"negative truncation":     {SessionID: "s", Actions: valid.Actions, Truncated: -3},
	}
	for name, snap := range tests {
		t.Run(name, func(t *testing.T) {
			target := newReplayFeed("replay")

			_, err := engine.Run(context.Background(), snap, target, InstantPace{})

			require.ErrorIs(t, err, domain.ErrInvalidSnapshot)
			assert.Zero(t, target.Len())
		})
	}
}

func TestReplayCountsRejectedRecords(t *testing.T) {
	snap := domain.Snapshot{SessionID: "s", Actions: []domain.ActionRecord{
		replayRecord("a-1", true, nil),
		{ID: "broken"},
	}}
	snap.Metrics = domain.MetricsSnapshot{}.Apply(snap.Actions[0])

	result, err := NewReplayEngine(nil).Run(context.Background(), snap, newReplayFeed("replay"), InstantPace{})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Emitted)
	assert.Equal(t, 1, result.Rejected)
	assert.False(t, result.Cancelled)
	assert.True(t, result.MetricsMatch)
}

func TestReplayOfTruncatedSnapshotIsNotDeterministic(t *testing.T) {
	source := telemetry.NewFeed("sess-1", telemetry.FeedOptions{MaxActions: 2, Clock: fixedClock{now: controllerNow}})
	for i := range 4 {
		_, err := source.Apply(domain.ActionEvent(replayRecord(fmt.Sprintf("a-%d", i), i != 1, nil)))
		require.NoError(t, err)
	}

	result, err := NewReplayEngine(nil).Run(context.Background(), source.Snapshot(), newReplayFeed("replay"), InstantPace{})

	require.NoError(t, err)
	assert.False(t, result.Deterministic)
	assert.Equal(t, 2, result.Emitted)
}

func TestReplayIsDeterministicProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		source := newReplayFeed("sess-1")
		steps := rapid.IntRange(0, 40).Draw(t, "steps")

		for i := range steps {
			switch rapid.IntRange(0, 9).Draw(t, "op") {
			case 0:
				_, _ = source.Apply(domain.MetricsEvent(domain.MetricsSnapshot{
					TotalActions: rapid.Int64Range(0, 100).Draw(t, "total"),
					SuccessRate:  rapid.Float64Range(0, 100).Draw(t, "rate"),
					ActiveAgents: rapid.IntRange(0, 8).Draw(t, "agents"),
				}))
			case 1:
				source.ResetMetrics()
			case 2:
				source.ClearLog()
			default:
				var seconds *float64
				if rapid.Bool().Draw(t, "timed") {
					seconds = domain.Seconds(rapid.Float64Range(0, 30).Draw(t, "seconds"))
				}
				id := fmt.Sprintf("a-%d", rapid.IntRange(0, i).Draw(t, "id"))
				_, _ = source.Apply(domain.ActionEvent(replayRecord(id, rapid.Bool().Draw(t, "success"), seconds)))
			}
		}

		snap := source.Snapshot()
		target := newReplayFeed("replay")
		result, err := NewReplayEngine(nil).Run(context.Background(), snap, target, InstantPace{})
		if err != nil {
			t.Fatalf("replay: %v", err)
		}
		if !result.MetricsMatch {
			t.Fatalf("metrics diverged: source %+v, replay %+v", snap.Metrics, target.Metrics())
		}
		if got, want := ids(target.All()), ids(snap.Actions); !assert.ObjectsAreEqual(want, got) {
			t.Fatalf("log diverged: want %v, got %v", want, got)
		}
	})
}

type recordedSleep struct {
	waits []time.Duration
}

func (r *recordedSleep) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

func TestScaledPaceUsesArrivalGaps(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	first := domain.ActionRecord{ReceivedAt: base}
	second := domain.ActionRecord{ReceivedAt: base.Add(4 * time.Second)}
	backwards := domain.ActionRecord{ReceivedAt: base.Add(time.Second)}
	sourceTimed := domain.ActionRecord{Timestamp: base}
	sourceTimedNext := domain.ActionRecord{Timestamp: base.Add(2 * time.Second)}

	recorder := &recordedSleep{}
	pace := NewScaledPace(2)
	pace.sleep = recorder.sleep

	require.NoError(t, pace.Wait(context.Background(), nil, first))
	require.NoError(t, pace.Wait(context.Background(), &first, second))
	require.NoError(t, pace.Wait(context.Background(), &second, backwards))
	require.NoError(t, pace.Wait(context.Background(), &sourceTimed, sourceTimedNext))

	assert.Equal(t, []time.Duration{2 * time.Second, time.Second}, recorder.waits)
}

func TestRatePaceLimitsThroughput(t *testing.T) {
	pace, err := NewRatePace(1000)
	require.NoError(t, err)

	start := time.Now()
	for range 5 {
		require.NoError(t, pace.Wait(context.Background(), nil, domain.ActionRecord{}))
	}
	assert.Less(t, time.Since(start), time.Second)

	_, err = NewRatePace(0)
	require.Error(t, err)
}

func TestPacersHonourCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, InstantPace{}.Wait(ctx, nil, domain.ActionRecord{}), context.Canceled)
	require.ErrorIs(t, NewScaledPace(1).Wait(ctx, nil, domain.ActionRecord{}), context.Canceled)
}

func TestParsePace(t *testing.T) {
	pace, err := ParsePace("")
	require.NoError(t, err)
	assert.IsType(t, InstantPace{}, pace)

	pace, err = ParsePace("scaled:4")
	require.NoError(t, err)
	require.IsType(t, &ScaledPace{}, pace)
	assert.InDelta(t, 4, pace.(*ScaledPace).Factor, 0)

	pace, err = ParsePace("RATE:20")
	require.NoError(t, err)
	assert.IsType(t, &RatePace{}, pace)

	for _, raw := range []string{"fast", "scaled:0", "scaled:x", "rate:-1", "warp:2"} {
		_, err := ParsePace(raw)
		require.Error(t, err, raw)
	}
}
