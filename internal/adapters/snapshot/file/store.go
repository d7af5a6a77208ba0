package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bnema/agentfeed/internal/domain"
	"github.com/bnema/agentfeed/internal/ports"
	"github.com/bnema/agentfeed/internal/wire"
)

const (
	snapshotFileMode = 0o644
	snapshotDirMode  = 0o755
)

// Store writes snapshots to files. The encoding follows Format, or the file
// extension when Format is empty.
type Store struct {
	Format wire.Format
}

var _ ports.SnapshotStore = (*Store)(nil)

func NewStore(format wire.Format) *Store {
	return &Store{Format: format}
}

func (s *Store) Save(ctx context.Context, path string, snapshot domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path == "" {
		return errors.New("snapshot path is empty")
	}

	data, err := wire.EncodeSnapshot(snapshot, s.formatFor(path))
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, snapshotDirMode); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Chmod(snapshotFileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}

	return nil
}

func (s *Store) Load(ctx context.Context, path string) (domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}

	return wire.DecodeSnapshot(data, s.formatFor(path))
}

func (s *Store) formatFor(path string) wire.Format {
	if s.Format != "" {
		return s.Format
	}
	return wire.FormatForPath(path)
}
