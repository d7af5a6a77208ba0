package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bnema/agentfeed/internal/domain"
)

// ErrUnknownFrameType marks a well-formed frame whose type this client does
// not handle. Callers skip it rather than counting a decode error.
var ErrUnknownFrameType = errors.New("unknown frame type")

type frameEnvelope struct {
	Type    string          `json:"type"`
	Action  *actionPayload  `json:"action"`
	Metrics *metricsPayload `json:"metrics"`
	TaskID  string          `json:"task_id"`
	Result  map[string]any  `json:"result"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

type actionPayload struct {
	ID            string         `json:"id"`
	AgentType     string         `json:"agent_type"`
	ActionType    string         `json:"action_type"`
	Description   string         `json:"description"`
	Timestamp     string         `json:"timestamp"`
	InputData     map[string]any `json:"input_data"`
	OutputData    map[string]any `json:"output_data"`
	ExecutionTime *float64       `json:"execution_time"`
	Success       *bool          `json:"success"`
	ErrorMessage  string         `json:"error_message"`
}

type metricsPayload struct {
	TotalActions     int64   `json:"total_actions"`
	SuccessRate      float64 `json:"success_rate"`
	AvgExecutionTime float64 `json:"avg_execution_time"`
	ActiveAgents     int     `json:"active_agents"`
}

// DecodeFrame parses one inbound text frame of the transparency channel.
// Malformed frames and frames missing required fields wrap ErrChannelDecode.
func DecodeFrame(data []byte) (domain.Event, error) {
	var envelope frameEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return domain.Event{}, fmt.Errorf("%w: %v", domain.ErrChannelDecode, err)
	}

	switch domain.EventKind(envelope.Type) {
	case domain.EventAgentAction:
		if envelope.Action == nil {
			return domain.Event{}, fmt.Errorf("%w: agent_action without action", domain.ErrChannelDecode)
		}
		record, err := envelope.Action.record()
		if err != nil {
			return domain.Event{}, fmt.Errorf("%w: %v", domain.ErrChannelDecode, err)
		}
		return domain.ActionEvent(record), nil
	case domain.EventMetricsUpdate:
		if envelope.Metrics == nil {
			return domain.Event{}, fmt.Errorf("%w: metrics_update without metrics", domain.ErrChannelDecode)
		}
		return domain.MetricsEvent(envelope.Metrics.snapshot()), nil
	case domain.EventConnectionEstablished, domain.EventPong:
		return domain.Event{Kind: domain.EventKind(envelope.Type), Notice: domain.Notice{Message: envelope.Message}}, nil
	case domain.EventTaskComplete:
		return domain.Event{Kind: domain.EventTaskComplete, Notice: domain.Notice{
			TaskID: domain.TaskID(envelope.TaskID),
			Result: envelope.Result,
		}}, nil
	case domain.EventTaskError:
		return domain.Event{Kind: domain.EventTaskError, Notice: domain.Notice{
			TaskID:  domain.TaskID(envelope.TaskID),
			Message: envelope.Error,
		}}, nil
	case "":
		return domain.Event{}, fmt.Errorf("%w: frame type is missing", domain.ErrChannelDecode)
	default:
		return domain.Event{}, fmt.Errorf("%w: %q", ErrUnknownFrameType, envelope.Type)
	}
}

// DecodeAction parses one action object in the backend's snake_case shape, as
// carried by agent_action frames and by the transparency log endpoint.
func DecodeAction(data []byte) (domain.ActionRecord, error) {
	var payload actionPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return domain.ActionRecord{}, fmt.Errorf("%w: %v", domain.ErrChannelDecode, err)
	}
	record, err := payload.record()
	if err != nil {
		return domain.ActionRecord{}, fmt.Errorf("%w: %v", domain.ErrChannelDecode, err)
	}
	return record, nil
}

func (p actionPayload) record() (domain.ActionRecord, error) {
	if p.Success == nil {
		return domain.ActionRecord{}, fmt.Errorf("success is required")
	}

	var timestamp time.Time
	if strings.TrimSpace(p.Timestamp) != "" {
		parsed, err := ParseTimestamp(p.Timestamp)
		if err != nil {
			return domain.ActionRecord{}, err
		}
		timestamp = parsed
	}

	record := domain.ActionRecord{
		ID:            domain.ActionID(p.ID),
		AgentType:     domain.AgentType(p.AgentType),
		ActionType:    p.ActionType,
		Description:   p.Description,
		Timestamp:     timestamp,
		Success:       *p.Success,
		ExecutionTime: p.ExecutionTime,
		InputData:     p.InputData,
		OutputData:    p.OutputData,
		ErrorMessage:  p.ErrorMessage,
	}
	if err := record.Validate(); err != nil {
		return domain.ActionRecord{}, err
	}

	return record, nil
}

func (p metricsPayload) snapshot() domain.MetricsSnapshot {
	return domain.MetricsSnapshot{
		TotalActions:     p.TotalActions,
		SuccessRate:      p.SuccessRate,
		AvgExecutionTime: p.AvgExecutionTime,
		ActiveAgents:     p.ActiveAgents,
	}
}

// EncodePing returns the keepalive frame the server answers with pong.
func EncodePing() []byte {
	return []byte(`{"type":"ping"}`)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// ParseTimestamp accepts RFC3339 and naive ISO-8601 timestamps. Naive values
// are read as UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q", raw)
}
