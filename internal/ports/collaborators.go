package ports

import (
	"context"

	"github.com/bnema/agentfeed/internal/domain"
)

type SessionCreator interface {
	CreateSession(ctx context.Context, req domain.SessionCreateRequest) (domain.CreatedSession, error)
}

type TaskExecutor interface {
	ExecuteTask(ctx context.Context, req domain.TaskRequest) (domain.TaskID, error)
}

type RestorePointManager interface {
	CreateRestorePoint(ctx context.Context, sessionID domain.SessionID, checkpointName string) (domain.RestorePointID, error)
	RestoreSession(ctx context.Context, restorePointID domain.RestorePointID, target domain.SessionID) error
}

// SessionInspector reads what the backend itself recorded for a session.
type SessionInspector interface {
	SessionStatus(ctx context.Context, sessionID domain.SessionID) (domain.RemoteSessionStatus, error)
	// TransparencyLog returns the backend's action log, narrowed to agent
	// unless agent is empty.
	TransparencyLog(ctx context.Context, sessionID domain.SessionID, agent domain.AgentType) (domain.TransparencyLog, error)
}
