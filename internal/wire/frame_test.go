package wire

import (
	"testing"
	"time"

	"github.com/bnema/agentfeed/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrameAgentAction(t *testing.T) {
	frame := []byte(`{
		"type": "agent_action",
		"action": {
			"id": "act-1",
			"agent_type": "coding_agent",
			"action_type": "code_generation",
			"description": "write handler",
			"timestamp": "2026-03-01T10:00:00.250",
			"input_data": {"file": "main.go"},
			"output_data": {"lines": 42},
			"execution_time": 1.5,
			"success": true,
			"error_message": null
		}
	}`)

	event, err := DecodeFrame(frame)

	require.NoError(t, err)
	assert.Equal(t, domain.EventAgentAction, event.Kind)
	record := event.Action
	assert.Equal(t, domain.ActionID("act-1"), record.ID)
	assert.Equal(t, domain.AgentCoding, record.AgentType)
	assert.Equal(t, "code_generation", record.ActionType)
	assert.Equal(t, "write handler", record.Description)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 250_000_000, time.UTC), record.Timestamp)
	assert.True(t, record.Success)
	require.NotNil(t, record.ExecutionTime)
	assert.InDelta(t, 1.5, *record.ExecutionTime, 0)
	assert.Equal(t, map[string]any{"file": "main.go"}, record.InputData)
	assert.Equal(t, map[string]any{"lines": float64(42)}, record.OutputData)
	assert.True(t, record.ReceivedAt.IsZero())
}

func TestDecodeFrameAgentActionKeepsUnknownAgentType(t *testing.T) {
	event, err := DecodeFrame([]byte(`{"type":"agent_action","action":{"id":"a","agent_type":"security_agent","action_type":"scan","success":false,"execution_time":null}}`))

	require.NoError(t, err)
	assert.Equal(t, domain.AgentType("security_agent"), event.Action.AgentType)
	assert.False(t, event.Action.HasExecutionTime())
	assert.True(t, event.Action.Timestamp.IsZero())
}

func TestDecodeFrameRejectsIncompleteFrames(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{name: "not json", frame: `{"type":`},
		{name: "missing type", frame: `{"action":{}}`},
		{name: "action missing", frame: `{"type":"agent_action"}`},
		{name: "id missing", frame: `{"type":"agent_action","action":{"agent_type":"coding_agent","action_type":"x","success":true}}`},
		{name: "agent type missing", frame: `{"type":"agent_action","action":{"id":"a","action_type":"x","success":true}}`},
		{name: "action type missing", frame: `{"type":"agent_action","action":{"id":"a","agent_type":"coding_agent","success":true}}`},
		{name: "success missing", frame: `{"type":"agent_action","action":{"id":"a","agent_type":"coding_agent","action_type":"x"}}`},
		{name: "bad timestamp", frame: `{"type":"agent_action","action":{"id":"a","agent_type":"coding_agent","action_type":"x","success":true,"timestamp":"yesterday"}}`},
		{name: "negative duration", frame: `{"type":"agent_action","action":{"id":"a","agent_type":"coding_agent","action_type":"x","success":true,"execution_time":-1}}`},
		{name: "metrics missing", frame: `{"type":"metrics_update"}`},
		{name: "wrong field type", frame: `{"type":"metrics_update","metrics":{"total_actions":"many"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFrame([]byte(tt.frame))
			require.ErrorIs(t, err, domain.ErrChannelDecode)
		})
	}
}

func TestDecodeAction(t *testing.T) {
	record, err := DecodeAction([]byte(`{"id":"act-9","agent_type":"testing_agent","action_type":"run_tests","timestamp":"2026-03-01 10:00:05","execution_time":0.0,"success":false,"error_message":"2 failed"}`))

	require.NoError(t, err)
	assert.Equal(t, domain.ActionID("act-9"), record.ID)
	assert.Equal(t, domain.AgentTesting, record.AgentType)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 5, 0, time.UTC), record.Timestamp)
	assert.False(t, record.Success)
	assert.Equal(t, "2 failed", record.ErrorMessage)

	_, err = DecodeAction([]byte(`{"id":"act-9","agent_type":"testing_agent","action_type":"run_tests"}`))
	require.ErrorIs(t, err, domain.ErrChannelDecode)
	_, err = DecodeAction([]byte(`[]`))
	require.ErrorIs(t, err, domain.ErrChannelDecode)
}

func TestDecodeFrameMetricsUpdate(t *testing.T) {
	event, err := DecodeFrame([]byte(`{"type":"metrics_update","metrics":{"total_actions":12,"success_rate":91.5,"avg_execution_time":2.25,"active_agents":4}}`))

	require.NoError(t, err)
	assert.Equal(t, domain.EventMetricsUpdate, event.Kind)
	assert.Equal(t, domain.MetricsSnapshot{TotalActions: 12, SuccessRate: 91.5, AvgExecutionTime: 2.25, ActiveAgents: 4}, event.Metrics)
}

func TestDecodeFrameNotices(t *testing.T) {
	event, err := DecodeFrame([]byte(`{"type":"task_complete","task_id":"task-9","result":{"status":"done"}}`))
	require.NoError(t, err)
	assert.True(t, event.IsNotice())
	assert.Equal(t, domain.TaskID("task-9"), event.Notice.TaskID)
	assert.Equal(t, map[string]any{"status": "done"}, event.Notice.Result)

	event, err = DecodeFrame([]byte(`{"type":"task_error","task_id":"task-9","error":"boom"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.EventTaskError, event.Kind)
	assert.Equal(t, "boom", event.Notice.Message)

	event, err = DecodeFrame([]byte(`{"type":"connection_established","session_id":"s-1"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.EventConnectionEstablished, event.Kind)

	event, err = DecodeFrame([]byte(`{"type":"pong"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.EventPong, event.Kind)
}

func TestDecodeFrameUnknownType(t *testing.T) {
	_, err := DecodeFrame([]byte(`{"type":"agent_status"}`))

	require.ErrorIs(t, err, ErrUnknownFrameType)
	assert.NotErrorIs(t, err, domain.ErrChannelDecode)
}

func TestParseTimestampLayouts(t *testing.T) {
	want := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for _, raw := range []string{
		"2026-03-01T10:00:00Z",
		"2026-03-01T12:00:00+02:00",
		"2026-03-01T10:00:00",
		"2026-03-01T10:00:00.000000",
		"2026-03-01 10:00:00",
	} {
		got, err := ParseTimestamp(raw)
		require.NoError(t, err, raw)
		assert.True(t, want.Equal(got), raw)
	}

	_, err := ParseTimestamp("03/01/2026")
	require.Error(t, err)
}

func TestEncodePing(t *testing.T) {
	assert.JSONEq(t, `{"type":"ping"}`, string(EncodePing()))
}
