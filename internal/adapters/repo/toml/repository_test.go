package toml

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bnema/agentfeed/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T, path string) *Repository {
	t.Helper()

	config := viper.New()
	config.Set(SessionsPathKey, path)
	repo, err := NewRepository(config)
	require.NoError(t, err)
	return repo
}

func TestRepositoryRoundTrip(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "sessions.toml"))
	created := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)

	first := domain.Session{
		ID:        "sess-1",
		OwnerID:   "user-1",
		Workspace: "api",
		CreatedAt: created,
		State:     domain.SessionStateCreated,
		RestorePoints: []domain.RestorePointRef{
			{ID: "rp-1", Label: "before refactor", CreatedAt: created.Add(time.Hour)},
		},
	}
	second := domain.Session{
		ID:        "sess-2",
		OwnerID:   "user-1",
		Workspace: "web",
		CreatedAt: created.Add(2 * time.Hour),
		State:     domain.SessionStateClosed,
	}

	require.NoError(t, repo.Save(context.Background(), first))
	require.NoError(t, repo.Save(context.Background(), second))

	got, err := repo.GetByID(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	sessions, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.Session{first, second}, sessions)
}

func TestRepositorySaveReplacesExistingSession(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "sessions.toml"))
	session := domain.Session{ID: "sess-1", OwnerID: "user-1", State: domain.SessionStateCreated}
	require.NoError(t, repo.Save(context.Background(), session))

	session.State = domain.SessionStateClosed
	require.NoError(t, repo.Save(context.Background(), session))

	sessions, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, domain.SessionStateClosed, sessions[0].State)
}

func TestRepositorySaveRejectsInvalidSession(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "sessions.toml"))

	err := repo.Save(context.Background(), domain.Session{ID: "sess-1", State: domain.SessionStateCreated})
	require.Error(t, err)
	assert.ErrorContains(t, err, "owner is required")
}

func TestRepositoryMissingStateDefaultsToCreated(t *testing.T) {
	t.Parallel()

	sessionsPath := filepath.Join(t.TempDir(), "sessions.toml")
	require.NoError(t, os.WriteFile(sessionsPath, []byte(strings.Join([]string{
		"version = 1",
		"",
		"[[sessions]]",
		"id = \"sess-1\"",
		"owner_id = \"user-1\"",
		"",
	}, "\n")), 0o600))

	repo := newTestRepository(t, sessionsPath)

	session, err := repo.GetByID(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStateCreated, session.State)
	assert.True(t, session.CreatedAt.IsZero())
	assert.Empty(t, session.RestorePoints)
}

func TestRepositorySaveCreatesDefaultPathAndEnforcesPermissions(t *testing.T) {
	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)

	repo, err := NewRepository(viper.New())
	require.NoError(t, err)

	err = repo.Save(context.Background(), domain.Session{ID: "sess-1", OwnerID: "user-1", State: domain.SessionStateCreated})
	require.NoError(t, err)

	sessionsPath := filepath.Join(homeDir, ".agentfeed", "sessions.toml")
	assert.Equal(t, sessionsPath, repo.Path())
	info, err := os.Stat(sessionsPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestRepositoryMissingFileBehaviors(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "missing", "sessions.toml"))

	sessions, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sessions)

	_, err = repo.GetByID(context.Background(), "sess-1")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRepositoryListMalformedTOMLReturnsError(t *testing.T) {
	t.Parallel()

	sessionsPath := filepath.Join(t.TempDir(), "sessions.toml")
	require.NoError(t, os.WriteFile(sessionsPath, []byte("sessions = ["), 0o600))

	repo := newTestRepository(t, sessionsPath)

	_, err := repo.List(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "decode sessions file")
}

func TestRepositorySaveCanceledContextReturnsContextError(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "sessions.toml"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.Save(ctx, domain.Session{ID: "sess-1", OwnerID: "user-1", State: domain.SessionStateCreated})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRepositoryConcurrentSavesAcrossInstancesPreserveBothSessions(t *testing.T) {
	t.Parallel()

	sessionsPath := filepath.Join(t.TempDir(), "sessions.toml")
	repoA := newTestRepository(t, sessionsPath)
	repoB := newTestRepository(t, sessionsPath)

	const perRepoWrites = 50
	start := make(chan struct{})
	errCh := make(chan error, perRepoWrites*2)
	var wg sync.WaitGroup
	wg.Add(2)

	save := func(repo *Repository, prefix string) {
		defer wg.Done()
		<-start
		for i := 0; i < perRepoWrites; i++ {
			errCh <- repo.Save(context.Background(), domain.Session{
				ID:      domain.SessionID(prefix + strconv.Itoa(i)),
				OwnerID: "user-1",
				State:   domain.SessionStateCreated,
			})
		}
	}
	go save(repoA, "sess-a-")
	go save(repoB, "sess-b-")

	close(start)
	wg.Wait()
	close(errCh)

	for err := range errCh {
		require.NoError(t, err)
	}

	sessions, err := repoA.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, sessions, perRepoWrites*2)
}

func TestRepositorySaveSerializedTOMLIncludesVersion(t *testing.T) {
	t.Parallel()

	sessionsPath := filepath.Join(t.TempDir(), "sessions.toml")
	repo := newTestRepository(t, sessionsPath)

	require.NoError(t, repo.Save(context.Background(), domain.Session{ID: "sess-1", OwnerID: "user-1", State: domain.SessionStateCreated}))

	data, err := os.ReadFile(sessionsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "version = 1")
}

func TestRepositoryFutureSchemaVersionReturnsError(t *testing.T) {
	t.Parallel()

	sessionsPath := filepath.Join(t.TempDir(), "sessions.toml")
	require.NoError(t, os.WriteFile(sessionsPath, []byte("version = 999\n\nsessions = []\n"), 0o600))

	repo := newTestRepository(t, sessionsPath)

	_, err := repo.List(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "unsupported sessions schema version")
}
