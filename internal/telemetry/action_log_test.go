package telemetry

import (
	"fmt"
	"testing"

	"github.com/bnema/agentfeed/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(id string, success bool) domain.ActionRecord {
	return domain.ActionRecord{
		ID:         domain.ActionID(id),
		AgentType:  domain.AgentCoding,
		ActionType: "code_generation",
		Success:    success,
	}
}

func ids(records []domain.ActionRecord) []domain.ActionID {
	out := make([]domain.ActionID, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestActionLogAppendKeepsArrivalOrder(t *testing.T) {
	log := NewActionLog(0)

	require.NoError(t, log.Append(record("a-2", true)))
	require.NoError(t, log.Append(record("a-1", true)))
	require.NoError(t, log.Append(record("a-3", false)))

	assert.Equal(t, 3, log.Len())
	assert.Equal(t, []domain.ActionID{"a-2", "a-1", "a-3"}, ids(log.All()))
	assert.Equal(t, domain.ActionID("a-1"), log.At(1).ID)

	last, ok := log.Last()
	require.True(t, ok)
	assert.Equal(t, domain.ActionID("a-3"), last.ID)
}

func TestActionLogAppendRejectsDuplicateWithoutChangingLog(t *testing.T) {
	log := NewActionLog(0)
	require.NoError(t, log.Append(record("a-1", true)))

	err := log.Append(record("a-1", false))

	require.ErrorIs(t, err, domain.ErrDuplicateID)
	assert.Equal(t, 1, log.Len())
	assert.True(t, log.At(0).Success)
}

func TestActionLogLastOnEmptyLog(t *testing.T) {
	_, ok := NewActionLog(0).Last()
	assert.False(t, ok)
}

func TestActionLogAtPanicsOutOfRange(t *testing.T) {
	log := NewActionLog(0)
	require.NoError(t, log.Append(record("a-1", true)))

	assert.Panics(t, func() { log.At(1) })
	assert.Panics(t, func() { log.At(-1) })
}

func TestActionLogBoundedEvictsOldest(t *testing.T) {
	log := NewActionLog(3)
	for i := 1; i <= 5; i++ {
		require.NoError(t, log.Append(record(fmt.Sprintf("a-%d", i), true)))
	}

	assert.Equal(t, 3, log.Len())
	assert.Equal(t, 3, log.Capacity())
	assert.Equal(t, 2, log.Evicted())
	assert.Equal(t, []domain.ActionID{"a-3", "a-4", "a-5"}, ids(log.All()))
}

func TestActionLogBoundedRejectsRecentlyEvictedID(t *testing.T) {
	log := NewActionLog(2)
	require.NoError(t, log.Append(record("a-1", true)))
	require.NoError(t, log.Append(record("a-2", true)))
	require.NoError(t, log.Append(record("a-3", true)))

	assert.False(t, log.Contains("a-4"))
	assert.True(t, log.Contains("a-1"))
	require.ErrorIs(t, log.Append(record("a-1", true)), domain.ErrDuplicateID)
	assert.Equal(t, []domain.ActionID{"a-2", "a-3"}, ids(log.All()))
}

func TestActionLogFilteredIsLazyAndRestartable(t *testing.T) {
	log := NewActionLog(0)
	require.NoError(t, log.Append(record("a-1", true)))
	require.NoError(t, log.Append(record("a-2", false)))
	require.NoError(t, log.Append(record("a-3", true)))

	seq := log.Filtered(domain.FilterSuccessOnly())

	var first []domain.ActionID
	for r := range seq {
		first = append(first, r.ID)
	}
	var second []domain.ActionID
	for r := range seq {
		second = append(second, r.ID)
		break
	}

	assert.Equal(t, []domain.ActionID{"a-1", "a-3"}, first)
	assert.Equal(t, []domain.ActionID{"a-1"}, second)
	assert.Equal(t, 3, log.Len())
}

func TestActionLogClearResetsEverything(t *testing.T) {
	log := NewActionLog(2)
	require.NoError(t, log.Append(record("a-1", true)))
	require.NoError(t, log.Append(record("a-2", true)))
	require.NoError(t, log.Append(record("a-3", true)))

	log.Clear()

	assert.Zero(t, log.Len())
	assert.Zero(t, log.Evicted())
	assert.Empty(t, log.All())
	require.NoError(t, log.Append(record("a-1", true)))
	assert.Equal(t, []domain.ActionID{"a-1"}, ids(log.All()))
}
