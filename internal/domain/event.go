package domain

type EventKind string

const (
	EventAgentAction           EventKind = "agent_action"
	EventMetricsUpdate         EventKind = "metrics_update"
	EventConnectionEstablished EventKind = "connection_established"
	EventTaskComplete          EventKind = "task_complete"
	EventTaskError             EventKind = "task_error"
	EventPong                  EventKind = "pong"
)

// Event is one decoded frame from a session's live channel. Only agent_action
// and metrics_update change telemetry state; the rest are notices.
type Event struct {
	Kind    EventKind
	Action  ActionRecord
	Metrics MetricsSnapshot
	Notice  Notice
}

type Notice struct {
	TaskID  TaskID
	Message string
	Result  map[string]any
}

func ActionEvent(record ActionRecord) Event {
	return Event{Kind: EventAgentAction, Action: record}
}

func MetricsEvent(metrics MetricsSnapshot) Event {
	return Event{Kind: EventMetricsUpdate, Metrics: metrics}
}

func (e Event) IsNotice() bool {
	return e.Kind != EventAgentAction && e.Kind != EventMetricsUpdate
}

type ChannelState string

const (
	ChannelDisconnected ChannelState = "disconnected"
	ChannelConnecting   ChannelState = "connecting"
	ChannelConnected    ChannelState = "connected"
	ChannelError        ChannelState = "error"
)
