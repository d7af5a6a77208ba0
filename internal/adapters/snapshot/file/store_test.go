package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bnema/agentfeed/internal/domain"
	"github.com/bnema/agentfeed/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() domain.Snapshot {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return domain.Snapshot{
		SessionID:  "sess-1",
		ExportedAt: at,
		Actions: []domain.ActionRecord{
			{ID: "a-1", AgentType: domain.AgentCoding, ActionType: "edit", Timestamp: at, ReceivedAt: at, Success: true, ExecutionTime: domain.Seconds(1.25)},
		},
		Metrics: domain.MetricsSnapshot{TotalActions: 1, SuccessRate: 100, AvgExecutionTime: 0.625},
	}
}

func TestStoreRoundTripsByExtension(t *testing.T) {
	dir := t.TempDir()
	store := NewStore("")

	for _, name := range []string{"run.json", "run.cbor", "run.json.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, "exports", name)

			require.NoError(t, store.Save(context.Background(), path, testSnapshot()))
			loaded, err := store.Load(context.Background(), path)

			require.NoError(t, err)
			assert.Equal(t, testSnapshot(), loaded)
		})
	}
}

func TestStoreFormatOverridesExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	store := NewStore(wire.FormatCBOR)

	require.NoError(t, store.Save(context.Background(), path, testSnapshot()))

	_, err := NewStore("").Load(context.Background(), path)
	require.Error(t, err)

	loaded, err := store.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionID("sess-1"), loaded.SessionID)
}

func TestStoreSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.json")

	require.NoError(t, NewStore("").Save(context.Background(), path, testSnapshot()))
	require.NoError(t, NewStore("").Save(context.Background(), path, testSnapshot()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "run.json", entries[0].Name())
}

func TestStoreLoadMissingFile(t *testing.T) {
	_, err := NewStore("").Load(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestStoreHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewStore("").Save(ctx, filepath.Join(t.TempDir(), "run.json"), testSnapshot())
	require.ErrorIs(t, err, context.Canceled)
}
