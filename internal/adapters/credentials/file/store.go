package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/bnema/agentfeed/internal/domain"
	"github.com/bnema/agentfeed/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	TokensFile = "tokens.toml"

	storeDirMode = 0o700
	tokensMode   = 0o600
)

// ErrInsecureTokens is returned when the tokens file is readable by anyone
// but its owner.
var ErrInsecureTokens = errors.New("tokens file permissions are too open")

type tokensDocument struct {
	Hosts map[string]hostToken `toml:"hosts"`
}

type hostToken struct {
	Token   string    `toml:"token"`
	SavedAt time.Time `toml:"saved_at"`
}

// Store keeps bearer tokens in a single owner-only TOML file under dir, one
// entry per backend host. Keys are host names as produced by
// application.TokenKey.
type Store struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

var _ ports.SecretStore = (*Store)(nil)

func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(filepath.Clean(dir), TokensFile), now: time.Now}
}

// Path is the tokens file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Put(ctx context.Context, host string, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validHost(host); err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("token for %s is empty", host)
	}
	if strings.ContainsFunc(token, unicode.IsSpace) {
		return fmt.Errorf("token for %s contains whitespace", host)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	doc.Hosts[host] = hostToken{Token: token, SavedAt: s.now().UTC().Truncate(time.Second)}
	return s.save(doc)
}

func (s *Store) Get(ctx context.Context, host string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := validHost(host); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return "", err
	}
	entry, ok := doc.Hosts[host]
	if !ok || entry.Token == "" {
		return "", fmt.Errorf("%w: no token for %s", domain.ErrSecretNotFound, host)
	}
	return entry.Token, nil
}

// Delete removes the host's token. The file goes away with the last token.
func (s *Store) Delete(ctx context.Context, host string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validHost(host); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := doc.Hosts[host]; !ok {
		return nil
	}
	delete(doc.Hosts, host)

	if len(doc.Hosts) == 0 {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove tokens file: %w", err)
		}
		return nil
	}
	return s.save(doc)
}

func (s *Store) load() (tokensDocument, error) {
	doc := tokensDocument{Hosts: map[string]hostToken{}}

	info, err := os.Stat(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, fmt.Errorf("stat tokens file: %w", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o077 != 0 {
		return doc, fmt.Errorf("%w: %s is %#o, want %#o", ErrInsecureTokens, s.path, info.Mode().Perm(), tokensMode)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return doc, fmt.Errorf("read tokens file: %w", err)
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("decode tokens file %s: %w", s.path, err)
	}
	if doc.Hosts == nil {
		doc.Hosts = map[string]hostToken{}
	}
	return doc, nil
}

func (s *Store) save(doc tokensDocument) error {
	data, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode tokens file: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, storeDirMode); err != nil {
		return fmt.Errorf("create credentials directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tokens-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp tokens file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(tokensMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod tokens file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write tokens file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close tokens file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace tokens file: %w", err)
	}
	return nil
}

func validHost(host string) error {
	if strings.TrimSpace(host) == "" {
		return errors.New("token host is empty")
	}
	if host != strings.TrimSpace(host) || strings.ContainsAny(host, "/\\") || strings.ContainsFunc(host, unicode.IsControl) {
		return fmt.Errorf("invalid token host %q", host)
	}
	return nil
}
