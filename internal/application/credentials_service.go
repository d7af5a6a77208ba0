package application

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/bnema/agentfeed/internal/domain"
	"github.com/bnema/agentfeed/internal/ports"
)

// CredentialService stores the bearer token used for one backend.
type CredentialService struct {
	store ports.SecretStore
}

func NewCredentialService(store ports.SecretStore) *CredentialService {
	return &CredentialService{store: store}
}

// TokenKey maps a backend URL to its credential key: the lower-cased host and
// port, so http and ws URLs of one backend share a token.
func TokenKey(backendURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(backendURL))
	if err != nil {
		return "", fmt.Errorf("parse backend url: %w", err)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("backend url %q has no host", backendURL)
	}

	return strings.ToLower(parsed.Host), nil
}

func (s *CredentialService) SetToken(ctx context.Context, backendURL string, token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("token is empty")
	}

	key, err := TokenKey(backendURL)
	if err != nil {
		return err
	}
	if err := s.store.Put(ctx, key, strings.TrimSpace(token)); err != nil {
		return fmt.Errorf("store backend token: %w", err)
	}

	return nil
}

func (s *CredentialService) ClearToken(ctx context.Context, backendURL string) error {
	key, err := TokenKey(backendURL)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete backend token: %w", err)
	}

	return nil
}

// Token returns the stored token, or an empty string when none is set.
func (s *CredentialService) Token(ctx context.Context, backendURL string) (string, error) {
	key, err := TokenKey(backendURL)
	if err != nil {
		return "", err
	}

	token, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrSecretNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("read backend token: %w", err)
	}

	return token, nil
}
