package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvPrefix  = "AFEED"
	TokenEnv   = "AFEED_TOKEN"
	configDir  = ".agentfeed"
	configFile = "config.toml"
)

const (
	KeyBackendURL         = "backend.url"
	KeyBackendWSURL       = "backend.ws_url"
	KeyCallTimeout        = "backend.call_timeout"
	KeyMaxActions         = "telemetry.max_actions"
	KeyReconnectInitial   = "telemetry.reconnect_initial"
	KeyReconnectMax       = "telemetry.reconnect_max"
	KeyMaxReconnects      = "telemetry.max_reconnects"
	KeyPingInterval       = "telemetry.ping_interval"
	KeySessionsPath       = "sessions.path"
	KeySessionOwner       = "sessions.owner"
	KeyCredentialsDir     = "credentials.dir"
	KeyLogLevel           = "log.level"
	KeyLogFormat          = "log.format"
	KeyTracingExporter    = "tracing.exporter"
	defaultBackendURL     = "http://localhost:8000"
	defaultCallTimeout    = 30 * time.Second
	defaultReconnectStart = 500 * time.Millisecond
	defaultReconnectMax   = 15 * time.Second
	defaultPingInterval   = 20 * time.Second
)

type Backend struct {
	URL         string
	WSURL       string
	CallTimeout time.Duration
}

type Telemetry struct {
	MaxActions       int
	ReconnectInitial time.Duration
	ReconnectMax     time.Duration
	MaxReconnects    int
	PingInterval     time.Duration
}

type Config struct {
	Backend        Backend
	Telemetry      Telemetry
	SessionsPath   string
	SessionOwner   string
	CredentialsDir string
	LogLevel       string
	LogFormat      string
	Tracing        string

	// Viper is the loaded configuration, shared with adapters that read
	// their own keys.
	Viper *viper.Viper
}

// DefaultPath is ~/.agentfeed/config.toml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(homeDir, configDir, configFile), nil
}

// Load reads path (or the default file when empty) and applies AFEED_*
// environment overrides. A missing file leaves the defaults in place.
func Load(path string) (Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve home directory: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = filepath.Join(homeDir, configDir, configFile)
	}

	v := viper.New()
	setDefaults(v, homeDir)
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil && (explicit || !isMissing(err)) {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Config{
		Backend: Backend{
			URL:         strings.TrimSpace(v.GetString(KeyBackendURL)),
			WSURL:       strings.TrimSpace(v.GetString(KeyBackendWSURL)),
			CallTimeout: v.GetDuration(KeyCallTimeout),
		},
		Telemetry: Telemetry{
			MaxActions:       v.GetInt(KeyMaxActions),
			ReconnectInitial: v.GetDuration(KeyReconnectInitial),
			ReconnectMax:     v.GetDuration(KeyReconnectMax),
			MaxReconnects:    v.GetInt(KeyMaxReconnects),
			PingInterval:     v.GetDuration(KeyPingInterval),
		},
		SessionsPath:   expandHome(v.GetString(KeySessionsPath), homeDir),
		SessionOwner:   strings.TrimSpace(v.GetString(KeySessionOwner)),
		CredentialsDir: expandHome(v.GetString(KeyCredentialsDir), homeDir),
		LogLevel:       v.GetString(KeyLogLevel),
		LogFormat:      v.GetString(KeyLogFormat),
		Tracing:        v.GetString(KeyTracingExporter),
		Viper:          v,
	}
	if cfg.Backend.WSURL == "" {
		cfg.Backend.WSURL = cfg.Backend.URL
	}
	v.Set(KeySessionsPath, cfg.SessionsPath)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if err := checkURL(KeyBackendURL, c.Backend.URL, "http", "https"); err != nil {
		errs = append(errs, err)
	}
	if err := checkURL(KeyBackendWSURL, c.Backend.WSURL, "http", "https", "ws", "wss"); err != nil {
		errs = append(errs, err)
	}
	if c.Backend.CallTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyCallTimeout))
	}
	if c.Telemetry.MaxActions < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", KeyMaxActions))
	}
	if c.Telemetry.MaxReconnects < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", KeyMaxReconnects))
	}
	if c.Telemetry.ReconnectInitial <= 0 || c.Telemetry.ReconnectMax <= 0 {
		errs = append(errs, errors.New("telemetry reconnect delays must be positive"))
	}
	if c.SessionsPath == "" {
		errs = append(errs, fmt.Errorf("%s is empty", KeySessionsPath))
	}
	if c.CredentialsDir == "" {
		errs = append(errs, fmt.Errorf("%s is empty", KeyCredentialsDir))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func setDefaults(v *viper.Viper, homeDir string) {
	v.SetDefault(KeyBackendURL, defaultBackendURL)
	v.SetDefault(KeyBackendWSURL, "")
	v.SetDefault(KeyCallTimeout, defaultCallTimeout)
	v.SetDefault(KeyMaxActions, 0)
	v.SetDefault(KeyReconnectInitial, defaultReconnectStart)
	v.SetDefault(KeyReconnectMax, defaultReconnectMax)
	v.SetDefault(KeyMaxReconnects, 0)
	v.SetDefault(KeyPingInterval, defaultPingInterval)
	v.SetDefault(KeySessionsPath, filepath.Join(homeDir, configDir, "sessions.toml"))
	v.SetDefault(KeySessionOwner, os.Getenv("USER"))
	v.SetDefault(KeyCredentialsDir, filepath.Join(homeDir, configDir, "credentials"))
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyTracingExporter, "none")
}

func isMissing(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

func checkURL(key, raw string, schemes ...string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s: host is required", key)
	}
	for _, scheme := range schemes {
		if parsed.Scheme == scheme {
			return nil
		}
	}
	return fmt.Errorf("%s: unsupported scheme %q", key, parsed.Scheme)
}

func expandHome(path, homeDir string) string {
	path = strings.TrimSpace(path)
	if path == "~" {
		return homeDir
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		return filepath.Join(homeDir, rest)
	}
	return path
}
