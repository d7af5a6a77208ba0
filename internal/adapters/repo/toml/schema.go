package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version  int             `toml:"version"`
	Sessions []sessionSchema `toml:"sessions"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported sessions schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type sessionSchema struct {
	ID            string               `toml:"id"`
	OwnerID       string               `toml:"owner_id"`
	Workspace     string               `toml:"workspace"`
	CreatedAt     string               `toml:"created_at"`
	State         string               `toml:"state"`
	RestorePoints []restorePointSchema `toml:"restore_points,omitempty"`
}

type restorePointSchema struct {
	ID        string `toml:"id"`
	Label     string `toml:"label"`
	CreatedAt string `toml:"created_at"`
}
