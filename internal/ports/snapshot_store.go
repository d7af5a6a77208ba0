package ports

import (
	"context"

	"github.com/bnema/agentfeed/internal/domain"
)

// SnapshotStore persists exported snapshots by location.
type SnapshotStore interface {
	Save(ctx context.Context, location string, snapshot domain.Snapshot) error
	Load(ctx context.Context, location string) (domain.Snapshot, error)
}
