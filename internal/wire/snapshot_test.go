package wire

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/bnema/agentfeed/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() domain.Snapshot {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return domain.Snapshot{
		SessionID:  "sess-1",
		ExportedAt: base.Add(time.Minute),
		Actions: []domain.ActionRecord{
			{
				ID:            "a-1",
				AgentType:     domain.AgentPlanning,
				ActionType:    "plan",
				Description:   "outline work",
				Timestamp:     base,
				ReceivedAt:    base.Add(10 * time.Millisecond),
				Success:       true,
				ExecutionTime: domain.Seconds(0.75),
				InputData:     map[string]any{"goal": "ship"},
				OutputData:    map[string]any{"steps": float64(3)},
			},
			{
				ID:           "a-2",
				AgentType:    "custom_agent",
				ActionType:   "lint",
				Timestamp:    base.Add(time.Second),
				Success:      false,
				ErrorMessage: "lint failed",
			},
		},
		Metrics:     domain.MetricsSnapshot{TotalActions: 2, SuccessRate: 50, AvgExecutionTime: 0.375, ActiveAgents: 2},
		Corrections: []domain.MetricsCorrection{{At: 1, Metrics: domain.MetricsSnapshot{TotalActions: 1, SuccessRate: 100, ActiveAgents: 2}}},
	}
}

func TestSnapshotRoundTripsEveryFormat(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatCBOR, FormatJSONZstd} {
		t.Run(string(format), func(t *testing.T) {
			snap := sampleSnapshot()

			data, err := EncodeSnapshot(snap, format)
			require.NoError(t, err)
			decoded, err := DecodeSnapshot(data, format)
			require.NoError(t, err)

			assert.Equal(t, snap, decoded)
		})
	}
}

func TestSnapshotKeepsEmptyDataMapsDistinctFromAbsent(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatCBOR, FormatJSONZstd} {
		t.Run(string(format), func(t *testing.T) {
			snap := sampleSnapshot()
			snap.Actions[0].InputData = map[string]any{}
			snap.Actions[0].OutputData = map[string]any{}

			data, err := EncodeSnapshot(snap, format)
			require.NoError(t, err)
			decoded, err := DecodeSnapshot(data, format)
			require.NoError(t, err)

			assert.NotNil(t, decoded.Actions[0].InputData)
			assert.Empty(t, decoded.Actions[0].InputData)
			assert.NotNil(t, decoded.Actions[0].OutputData)
			assert.Nil(t, decoded.Actions[1].InputData)
			assert.Nil(t, decoded.Actions[1].OutputData)
		})
	}
}

func TestSnapshotJSONUsesExportFieldNames(t *testing.T) {
	data, err := EncodeSnapshot(sampleSnapshot(), FormatJSON)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Equal(t, "sess-1", raw["sessionId"])
	assert.Equal(t, "2026-03-01T10:01:00Z", raw["exportedAt"])
	assert.InDelta(t, 2, raw["totalActions"], 0)
	assert.NotContains(t, raw, "truncated")

	actions := raw["actions"].([]any)
	first := actions[0].(map[string]any)
	assert.Equal(t, "planning_agent", first["agentType"])
	assert.Equal(t, "plan", first["actionType"])
	assert.InDelta(t, 0.75, first["executionTime"], 0)
	assert.Contains(t, first, "receivedAt")

	second := actions[1].(map[string]any)
	assert.NotContains(t, second, "executionTime")
	assert.NotContains(t, second, "receivedAt")
	assert.Equal(t, "lint failed", second["errorMessage"])

	metrics := raw["metrics"].(map[string]any)
	assert.InDelta(t, 50, metrics["successRate"], 0)
	assert.InDelta(t, 2, metrics["activeAgents"], 0)
}

func TestDecodeSnapshotAcceptsExternalJSON(t *testing.T) {
	data := []byte(`{
		"sessionId": "sess-9",
		"exportedAt": "2026-03-01T10:00:00",
		"totalActions": 1,
		"actions": [{"id": "x", "agentType": "testing_agent", "actionType": "run", "timestamp": "2026-03-01T09:59:00", "success": true}],
		"metrics": {"totalActions": 1, "successRate": 100, "avgExecutionTime": 0, "activeAgents": 0}
	}`)

	snap, err := DecodeSnapshot(data, FormatJSON)

	require.NoError(t, err)
	assert.Equal(t, domain.SessionID("sess-9"), snap.SessionID)
	require.Len(t, snap.Actions, 1)
	assert.Equal(t, domain.AgentTesting, snap.Actions[0].AgentType)
	assert.True(t, snap.Actions[0].ReceivedAt.IsZero())
	assert.Empty(t, snap.Corrections)
}

func TestDecodeSnapshotRejectsInconsistentDocuments(t *testing.T) {
	tests := map[string]string{
		"count mismatch":      `{"sessionId":"s","totalActions":2,"actions":[{"id":"x","agentType":"a","actionType":"b","success":true}],"metrics":{}}`,
		"correction overflow": `{"sessionId":"s","totalActions":0,"actions":[],"metrics":{},"corrections":[{"at":1,"metrics":{}}]}`,
		"negative truncated":  `{"sessionId":"s","totalActions":0,"actions":[],"metrics":{},"truncated":-1}`,
		"bad timestamp":       `{"sessionId":"s","exportedAt":"soon","totalActions":0,"actions":[],"metrics":{}}`,
		"not json":            `[`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeSnapshot([]byte(body), FormatJSON)
			require.Error(t, err)
		})
	}
}

func TestDecodeSnapshotRejectsCorruptZstd(t *testing.T) {
	_, err := DecodeSnapshot([]byte("definitely not zstd"), FormatJSONZstd)
	require.Error(t, err)
}

func TestCBOREncodingIsDeterministic(t *testing.T) {
	first, err := EncodeSnapshot(sampleSnapshot(), FormatCBOR)
	require.NoError(t, err)
	second, err := EncodeSnapshot(sampleSnapshot(), FormatCBOR)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestParseFormat(t *testing.T) {
	for raw, want := range map[string]Format{"": FormatJSON, "JSON": FormatJSON, "cbor": FormatCBOR, "zstd": FormatJSONZstd, "json+zstd": FormatJSONZstd} {
		got, err := ParseFormat(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseFormat("xml")
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatForPath("/tmp/run.json"))
	assert.Equal(t, FormatCBOR, FormatForPath("run.CBOR"))
	assert.Equal(t, FormatJSONZstd, FormatForPath("run.json.zst"))
	assert.Equal(t, FormatJSON, FormatForPath("run"))
}
