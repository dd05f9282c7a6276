package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testHashKey = "0123456789abcdef0123456789abcdef"

func TestLoadWithDefaults(t *testing.T) {
	env := map[string]string{
		"WEB_AUTH_API_URL":     "http://auth.local/api/",
		"WEB_SESSION_HASH_KEY": testHashKey,
	}

	cfg, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Address != ":8080" {
		t.Errorf("expected default address :8080, got %s", cfg.Server.Address)
	}
	if cfg.Server.Environment != "development" {
		t.Errorf("unexpected environment: %s", cfg.Server.Environment)
	}
	if cfg.Auth.APIURL != "http://auth.local/api" {
		t.Errorf("expected trailing slash to be trimmed, got %s", cfg.Auth.APIURL)
	}
	if cfg.Auth.Timeout != defaultAuthTimeout {
		t.Errorf("unexpected auth timeout: %s", cfg.Auth.Timeout)
	}
	if string(cfg.Session.HashKey) != testHashKey {
		t.Errorf("unexpected hash key")
	}
	if cfg.Session.BlockKey != nil {
		t.Errorf("expected no block key by default")
	}
	if cfg.CSRF.CookieName != defaultCSRFCookie || cfg.CSRF.HeaderName != defaultCSRFHeader {
		t.Errorf("unexpected csrf config: %+v", cfg.CSRF)
	}
	if cfg.Login.IdleTimeout != 30*time.Minute || cfg.Login.PruneInterval != time.Minute {
		t.Errorf("unexpected login config: %+v", cfg.Login)
	}
	if cfg.Server.HandlerTimeout != 60*time.Second {
		t.Errorf("unexpected handler timeout: %s", cfg.Server.HandlerTimeout)
	}
	if cfg.Locale.Default != "pt-BR" {
		t.Errorf("unexpected default locale: %s", cfg.Locale.Default)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("unexpected log level: %s", cfg.Log.Level)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	env := map[string]string{
		"WEB_HTTP_ADDR":             ":9090",
		"WEB_ENVIRONMENT":           "Production",
		"WEB_LOG_LEVEL":             "debug",
		"WEB_AUTH_API_URL":          "https://auth.example.com",
		"WEB_AUTH_API_TIMEOUT":      "3s",
		"WEB_SESSION_HASH_KEY":      testHashKey,
		"WEB_SESSION_BLOCK_KEY":     "hex:000102030405060708090a0b0c0d0e0f",
		"WEB_SESSION_COOKIE_SECURE": "yes",
		"WEB_LOGIN_IDLE_TIMEOUT":    "5m",
		"WEB_SERVER_READ_TIMEOUT":   "not-a-duration",
		"WEB_HANDLER_TIMEOUT":       "15s",
		"WEB_DEFAULT_LOCALE":        "en",
	}

	cfg, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Address != ":9090" || cfg.Server.Environment != "production" {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Server.ReadTimeout != defaultReadTimeout {
		t.Errorf("invalid duration should fall back to default, got %s", cfg.Server.ReadTimeout)
	}
	if cfg.Auth.Timeout != 3*time.Second {
		t.Errorf("unexpected auth timeout: %s", cfg.Auth.Timeout)
	}
	if len(cfg.Session.BlockKey) != 16 {
		t.Errorf("expected 16 byte block key, got %d", len(cfg.Session.BlockKey))
	}
	if !cfg.Session.CookieSecure {
		t.Errorf("expected secure cookie")
	}
	if cfg.Login.IdleTimeout != 5*time.Minute {
		t.Errorf("unexpected login idle timeout: %s", cfg.Login.IdleTimeout)
	}
	if cfg.Server.HandlerTimeout != 15*time.Second {
		t.Errorf("unexpected handler timeout: %s", cfg.Server.HandlerTimeout)
	}
	if cfg.Locale.Default != "en" {
		t.Errorf("unexpected default locale: %s", cfg.Locale.Default)
	}
}

func TestLoadValidationError(t *testing.T) {
	env := map[string]string{
		"WEB_SESSION_HASH_KEY":  "too-short",
		"WEB_SESSION_BLOCK_KEY": "hex:zz",
	}

	_, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := map[string]bool{"Auth.APIURL": true, "Session.HashKey": true, "Session.BlockKey": true}
	fields := verr.Fields()
	if len(fields) != len(want) {
		t.Fatalf("unexpected fields: %v", fields)
	}
	for _, f := range fields {
		if !want[f] {
			t.Fatalf("unexpected field %s in %v", f, fields)
		}
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# local overrides\nexport WEB_AUTH_API_URL=\"http://from-dotenv\"\nWEB_SESSION_HASH_KEY=" + testHashKey + "\nWEB_HTTP_ADDR=:7000\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, err := Load(WithEnvFile(path), WithoutSystemEnv(), WithEnvMap(map[string]string{"WEB_HTTP_ADDR": ":7001"}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Auth.APIURL != "http://from-dotenv" {
		t.Errorf("expected value from .env, got %s", cfg.Auth.APIURL)
	}
	if cfg.Server.Address != ":7001" {
		t.Errorf("explicit map must win over .env, got %s", cfg.Server.Address)
	}
}
