package application

import (
	"fmt"
	"strings"

	"github.com/bnema/agentfeed/internal/domain"
)

type CreateSessionCommand struct {
	OwnerID   string
	Workspace string
}

type ExecuteTaskCommand struct {
	SessionID   domain.SessionID
	Description string
	Mode        string
	Priority    int
	Language    string
	Context     map[string]any
}

// Request turns raw command input into a task request with defaults applied.
func (c ExecuteTaskCommand) Request() (domain.TaskRequest, error) {
	mode, err := domain.ParseExecutionMode(c.Mode)
	if err != nil {
		return domain.TaskRequest{}, err
	}
	if strings.TrimSpace(c.Description) == "" {
		return domain.TaskRequest{}, fmt.Errorf("description is required")
	}

	priority := c.Priority
	if priority == 0 {
		priority = domain.DefaultTaskPriority
	}
	if priority < 0 {
		return domain.TaskRequest{}, fmt.Errorf("priority must not be negative")
	}

	return domain.TaskRequest{
		SessionID:   c.SessionID,
		Description: c.Description,
		Mode:        mode,
		Priority:    priority,
		Language:    strings.ToLower(strings.TrimSpace(c.Language)),
		Context:     c.Context,
	}, nil
}

type CreateRestorePointCommand struct {
	SessionID domain.SessionID
	Label     string
}

type RestoreSessionCommand struct {
	RestorePointID  domain.RestorePointID
	TargetSessionID domain.SessionID
}
