package env

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bnema/agentfeed/internal/domain"
	"github.com/bnema/agentfeed/internal/ports"
)

var ErrReadOnly = errors.New("environment credentials are read-only")

// Store resolves every key to one environment variable. It never writes.
type Store struct {
	variable string
	lookup   func(string) (string, bool)
}

var _ ports.SecretStore = (*Store)(nil)

func NewStore(variable string) *Store {
	return &Store{variable: variable, lookup: os.LookupEnv}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	value, ok := s.lookup(s.variable)
	value = strings.TrimSpace(value)
	if !ok || value == "" {
		return "", fmt.Errorf("%w: %s not set", domain.ErrSecretNotFound, s.variable)
	}

	return value, nil
}

func (s *Store) Put(ctx context.Context, _ string, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrReadOnly
}

func (s *Store) Delete(ctx context.Context, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrReadOnly
}
