package env

import (
	"context"
	"testing"

	"github.com/bnema/agentfeed/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreGetReadsVariable(t *testing.T) {
	t.Setenv("AFEED_TEST_TOKEN", " tok-env ")

	got, err := NewStore("AFEED_TEST_TOKEN").Get(context.Background(), "ignored")

	require.NoError(t, err)
	assert.Equal(t, "tok-env", got)
}

func TestStoreGetUnsetVariableIsNotFound(t *testing.T) {
	t.Setenv("AFEED_TEST_TOKEN", "")

	_, err := NewStore("AFEED_TEST_TOKEN").Get(context.Background(), "token")

	require.ErrorIs(t, err, domain.ErrSecretNotFound)
}

func TestStoreIsReadOnly(t *testing.T) {
	store := NewStore("AFEED_TEST_TOKEN")

	require.ErrorIs(t, store.Put(context.Background(), "token", "v"), ErrReadOnly)
	require.ErrorIs(t, store.Delete(context.Background(), "token"), ErrReadOnly)
}
