package config

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultEnvFile           = ".env"
	defaultAddress           = ":8080"
	defaultEnvironment       = "development"
	defaultLogLevel          = "info"
	defaultReadTimeout       = 10 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 60 * time.Second
	defaultHandlerTimeout    = 60 * time.Second
	defaultAuthTimeout       = 10 * time.Second
	defaultSessionCookie     = "enquete_session"
	defaultSessionLifetime   = 12 * time.Hour
	defaultSessionIdle       = 30 * time.Minute
	defaultCSRFCookie        = "enquete_csrf"
	defaultCSRFHeader        = "X-CSRF-Token"
	defaultLoginIdleTimeout  = 30 * time.Minute
	defaultLoginPruneEvery   = time.Minute
	defaultLocale            = "pt-BR"
	minimumSessionHashKeyLen = 32
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server  ServerConfig
	Log     LogConfig
	Auth    AuthConfig
	Session SessionConfig
	CSRF    CSRFConfig
	Login   LoginConfig
	Locale  LocaleConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Address      string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// HandlerTimeout bounds a single request, including the authentication call.
	HandlerTimeout time.Duration
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level string
}

// AuthConfig points at the remote authentication API.
type AuthConfig struct {
	APIURL  string
	Timeout time.Duration
}

// SessionConfig controls the signed session cookie.
type SessionConfig struct {
	CookieName   string
	HashKey      []byte
	BlockKey     []byte
	CookieSecure bool
	Lifetime     time.Duration
	IdleTimeout  time.Duration
}

// CSRFConfig controls the double-submit cookie.
type CSRFConfig struct {
	CookieName string
	HeaderName string
}

// LoginConfig controls how long idle login forms are kept mounted.
type LoginConfig struct {
	IdleTimeout   time.Duration
	PruneInterval time.Duration
}

// LocaleConfig selects the fallback locale.
type LocaleConfig struct {
	Default string
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the configuration from defaults, the .env file, the process
// environment and an optional explicit map, in increasing precedence.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	var invalid []string

	hashKey, err := keyWithDefault(lookup, "WEB_SESSION_HASH_KEY")
	if err != nil {
		invalid = append(invalid, "Session.HashKey")
	}
	blockKey, err := keyWithDefault(lookup, "WEB_SESSION_BLOCK_KEY")
	if err != nil {
		invalid = append(invalid, "Session.BlockKey")
	}

	cfg := Config{
		Server: ServerConfig{
			Address:        stringWithDefault(lookup, "WEB_HTTP_ADDR", defaultAddress),
			Environment:    strings.ToLower(stringWithDefault(lookup, "WEB_ENVIRONMENT", defaultEnvironment)),
			ReadTimeout:    durationWithDefault(lookup, "WEB_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:   durationWithDefault(lookup, "WEB_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:    durationWithDefault(lookup, "WEB_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			HandlerTimeout: durationWithDefault(lookup, "WEB_HANDLER_TIMEOUT", defaultHandlerTimeout),
		},
		Log: LogConfig{
			Level: stringWithDefault(lookup, "WEB_LOG_LEVEL", defaultLogLevel),
		},
		Auth: AuthConfig{
			APIURL:  strings.TrimRight(stringWithDefault(lookup, "WEB_AUTH_API_URL", ""), "/"),
			Timeout: durationWithDefault(lookup, "WEB_AUTH_API_TIMEOUT", defaultAuthTimeout),
		},
		Session: SessionConfig{
			CookieName:   stringWithDefault(lookup, "WEB_SESSION_COOKIE_NAME", defaultSessionCookie),
			HashKey:      hashKey,
			BlockKey:     blockKey,
			CookieSecure: boolWithDefault(lookup, "WEB_SESSION_COOKIE_SECURE", false),
			Lifetime:     durationWithDefault(lookup, "WEB_SESSION_LIFETIME", defaultSessionLifetime),
			IdleTimeout:  durationWithDefault(lookup, "WEB_SESSION_IDLE_TIMEOUT", defaultSessionIdle),
		},
		CSRF: CSRFConfig{
			CookieName: stringWithDefault(lookup, "WEB_CSRF_COOKIE_NAME", defaultCSRFCookie),
			HeaderName: stringWithDefault(lookup, "WEB_CSRF_HEADER_NAME", defaultCSRFHeader),
		},
		Login: LoginConfig{
			IdleTimeout:   durationWithDefault(lookup, "WEB_LOGIN_IDLE_TIMEOUT", defaultLoginIdleTimeout),
			PruneInterval: durationWithDefault(lookup, "WEB_LOGIN_PRUNE_INTERVAL", defaultLoginPruneEvery),
		},
		Locale: LocaleConfig{
			Default: stringWithDefault(lookup, "WEB_DEFAULT_LOCALE", defaultLocale),
		},
	}

	if err := validateConfig(cfg, invalid); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config, invalid []string) error {
	missing := append([]string(nil), invalid...)

	if strings.TrimSpace(cfg.Server.Address) == "" {
		missing = append(missing, "Server.Address")
	}
	if cfg.Auth.APIURL == "" {
		missing = append(missing, "Auth.APIURL")
	}
	if cfg.Auth.Timeout <= 0 {
		missing = append(missing, "Auth.Timeout")
	}
	if len(cfg.Session.HashKey) < minimumSessionHashKeyLen && !containsField(missing, "Session.HashKey") {
		missing = append(missing, "Session.HashKey")
	}
	switch len(cfg.Session.BlockKey) {
	case 0, 16, 24, 32:
	default:
		if !containsField(missing, "Session.BlockKey") {
			missing = append(missing, "Session.BlockKey")
		}
	}
	if cfg.Login.IdleTimeout <= 0 {
		missing = append(missing, "Login.IdleTimeout")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func containsField(fields []string, name string) bool {
	for _, f := range fields {
		if f == name {
			return true
		}
	}
	return false
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(parts[1]), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

// keyWithDefault reads a key given either as hex or as raw text.
func keyWithDefault(lookup func(string) (string, bool), key string) ([]byte, error) {
	value, ok := lookup(key)
	value = strings.TrimSpace(value)
	if !ok || value == "" {
		return nil, nil
	}
	if strings.HasPrefix(value, "hex:") {
		decoded, err := hex.DecodeString(strings.TrimPrefix(value, "hex:"))
		if err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", key, err)
		}
		return decoded, nil
	}
	return []byte(value), nil
}
