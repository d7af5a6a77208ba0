package domain

import (
	"fmt"
	"strings"
)

type TaskID string

type ExecutionMode string

const (
	ModeOpenHands ExecutionMode = "openhands"
	ModeManus     ExecutionMode = "manus"
	ModeEmergent  ExecutionMode = "emergent"
	ModeHybrid    ExecutionMode = "hybrid"
)

const DefaultTaskPriority = 1

func ParseExecutionMode(raw string) (ExecutionMode, error) {
	mode := ExecutionMode(strings.ToLower(strings.TrimSpace(raw)))
	switch mode {
	case "":
		return ModeHybrid, nil
	case ModeOpenHands, ModeManus, ModeEmergent, ModeHybrid:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidExecutionMode, raw)
	}
}

type TaskRequest struct {
	SessionID   SessionID
	Description string
	Mode        ExecutionMode
	Priority    int
	// Language is an optional hint for the agents, such as "go" or "python".
	Language string
	Context  map[string]any
}

func (r TaskRequest) Validate() error {
	if strings.TrimSpace(string(r.SessionID)) == "" {
		return fmt.Errorf("session id is required")
	}
	if strings.TrimSpace(r.Description) == "" {
		return fmt.Errorf("description is required")
	}
	if _, err := ParseExecutionMode(string(r.Mode)); err != nil {
		return err
	}

	return nil
}
