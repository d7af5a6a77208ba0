package application

import (
	"context"
	"errors"
	"testing"

	"github.com/bnema/agentfeed/internal/domain"
	"github.com/bnema/agentfeed/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenKey(t *testing.T) {
	key, err := TokenKey("http://Localhost:8000/api")
	require.NoError(t, err)
	assert.Equal(t, "localhost:8000", key)

	_, err = TokenKey("not a url")
	require.Error(t, err)
}

func TestCredentialServiceSetTokenTrimsValue(t *testing.T) {
	store := mocks.NewMockSecretStore(t)
	service := NewCredentialService(store)

	store.EXPECT().Put(mockAnyContext(), "localhost:8000", "tok-1").Return(nil)

	require.NoError(t, service.SetToken(context.Background(), "http://localhost:8000", "  tok-1\n"))
}

func TestCredentialServiceSetTokenRejectsEmpty(t *testing.T) {
	service := NewCredentialService(mocks.NewMockSecretStore(t))

	require.Error(t, service.SetToken(context.Background(), "http://localhost:8000", " "))
}

func TestCredentialServiceTokenMissingIsEmpty(t *testing.T) {
	store := mocks.NewMockSecretStore(t)
	service := NewCredentialService(store)

	store.EXPECT().Get(mockAnyContext(), "api.example.com").Return("", domain.ErrSecretNotFound)

	token, err := service.Token(context.Background(), "https://api.example.com")
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestCredentialServiceTokenPropagatesStoreFailure(t *testing.T) {
	store := mocks.NewMockSecretStore(t)
	service := NewCredentialService(store)
	readErr := errors.New("permission denied")

	store.EXPECT().Get(mockAnyContext(), "api.example.com").Return("", readErr)

	_, err := service.Token(context.Background(), "https://api.example.com")
	require.ErrorIs(t, err, readErr)
}

func TestCredentialServiceClearToken(t *testing.T) {
	store := mocks.NewMockSecretStore(t)
	service := NewCredentialService(store)

	store.EXPECT().Delete(mockAnyContext(), "localhost:8000").Return(nil)

	require.NoError(t, service.ClearToken(context.Background(), "http://localhost:8000"))
}
