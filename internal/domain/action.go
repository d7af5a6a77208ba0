package domain

import (
	"fmt"
	"strings"
	"time"
)

type ActionID string

// AgentType is an open set: tags outside the known constants are kept verbatim.
type AgentType string

const (
	AgentPlanning     AgentType = "planning_agent"
	AgentCoding       AgentType = "coding_agent"
	AgentTesting      AgentType = "testing_agent"
	AgentDeployment   AgentType = "deployment_agent"
	AgentResearch     AgentType = "research_agent"
	AgentUIGeneration AgentType = "ui_agent"
	AgentBackend      AgentType = "backend_agent"
	AgentOrchestrator AgentType = "orchestrator_agent"
)

var knownAgentTypes = []AgentType{
	AgentPlanning,
	AgentCoding,
	AgentTesting,
	AgentDeployment,
	AgentResearch,
	AgentUIGeneration,
	AgentBackend,
	AgentOrchestrator,
}

func KnownAgentTypes() []AgentType {
	out := make([]AgentType, len(knownAgentTypes))
	copy(out, knownAgentTypes)
	return out
}

func (t AgentType) Known() bool {
	for _, known := range knownAgentTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (t AgentType) Label() string {
	label := strings.TrimSuffix(string(t), "_agent")
	if label == "" {
		return "unknown"
	}
	return label
}

// ActionRecord is immutable once appended to a log. Timestamp is the source's
// production time and is only displayed; ReceivedAt is stamped at first
// ingestion and drives time-scaled replay.
type ActionRecord struct {
	ID            ActionID
	AgentType     AgentType
	ActionType    string
	Description   string
	Timestamp     time.Time
	ReceivedAt    time.Time
	Success       bool
	ExecutionTime *float64
	InputData     map[string]any
	OutputData    map[string]any
	ErrorMessage  string
}

func (r ActionRecord) Validate() error {
	if strings.TrimSpace(string(r.ID)) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(string(r.AgentType)) == "" {
		return fmt.Errorf("agent type is required")
	}
	if strings.TrimSpace(r.ActionType) == "" {
		return fmt.Errorf("action type is required")
	}
	if r.ExecutionTime != nil && *r.ExecutionTime < 0 {
		return fmt.Errorf("execution time must not be negative")
	}

	return nil
}

func (r ActionRecord) HasExecutionTime() bool {
	return r.ExecutionTime != nil
}

func Seconds(v float64) *float64 {
	return &v
}
