package testutil

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"finitefield.org/enquete-web/internal/domain"
	"finitefield.org/enquete-web/internal/httpserver"
	"finitefield.org/enquete-web/internal/i18n"
	"finitefield.org/enquete-web/internal/login"
	"finitefield.org/enquete-web/internal/login/logintest"
	"finitefield.org/enquete-web/internal/session"
)

const (
	// CSRFCookieName is the CSRF cookie used by test servers.
	CSRFCookieName = "csrf_token"
	// CSRFHeaderName is the CSRF header used by test servers.
	CSRFHeaderName = "X-CSRF-Token"
)

// ServerOption customises the HTTP server configuration for tests.
type ServerOption func(*serverOptions)

type serverOptions struct {
	validation     login.Validation
	authentication domain.Authentication
	now            func() time.Time
}

// WithValidation overrides the validation used by mounted login forms.
func WithValidation(v login.Validation) ServerOption {
	return func(o *serverOptions) {
		o.validation = v
	}
}

// WithAuthentication overrides the authentication used by mounted login forms.
func WithAuthentication(a domain.Authentication) ServerOption {
	return func(o *serverOptions) {
		o.authentication = a
	}
}

// WithClock overrides the server clock.
func WithClock(now func() time.Time) ServerOption {
	return func(o *serverOptions) {
		o.now = now
	}
}

// Server is a running test server plus a cookie-aware client.
type Server struct {
	*httptest.Server
	Registry *login.Registry
	Client   *http.Client
}

// NewServer constructs an httptest server running the web HTTP stack. Without
// options the login forms use a passing ValidationStub and an AuthenticationSpy.
func NewServer(t testing.TB, opts ...ServerOption) *Server {
	t.Helper()

	options := serverOptions{
		validation:     &logintest.ValidationStub{},
		authentication: logintest.NewAuthenticationSpy(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	bundle, err := i18n.Default()
	if err != nil {
		t.Fatalf("i18n: %v", err)
	}
	sessions, err := session.NewManager(session.Config{
		CookieName: "test_session",
		HashKey:    []byte("12345678901234567890123456789012"),
		BlockKey:   []byte("abcdefghijklmnopqrstuvwxyzABCDEF"),
		Now:        options.now,
	})
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	registry := login.NewRegistry(func() *login.Controller {
		return login.NewController(options.validation, options.authentication)
	})

	srv := httpserver.New(httpserver.Config{
		Address:        ":0",
		Environment:    "test",
		Sessions:       sessions,
		Registry:       registry,
		Locales:        bundle,
		CSRFCookieName: CSRFCookieName,
		CSRFHeaderName: CSRFHeaderName,
		Now:            options.now,
	})
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &Server{Server: ts, Registry: registry, Client: client}
}

// Get issues a GET with the server's client and returns the response and body.
func (s *Server) Get(t testing.TB, path string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, s.URL+path, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	return s.do(t, req)
}

// PostHTMX posts form values as htmx does, echoing the CSRF cookie in the header.
func (s *Server) PostHTMX(t testing.TB, path string, form url.Values) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, s.URL+path, strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	req.Header.Set(CSRFHeaderName, s.CSRFToken(t))
	return s.do(t, req)
}

// PostForm posts form values like a browser without JavaScript, carrying the
// CSRF token in the _csrf field.
func (s *Server) PostForm(t testing.TB, path string, form url.Values) (*http.Response, []byte) {
	t.Helper()

	values := url.Values{}
	for k, v := range form {
		values[k] = v
	}
	values.Set("_csrf", s.CSRFToken(t))
	req, err := http.NewRequest(http.MethodPost, s.URL+path, strings.NewReader(values.Encode()))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(t, req)
}

// CSRFToken returns the CSRF cookie currently held by the client.
func (s *Server) CSRFToken(t testing.TB) string {
	t.Helper()

	u, err := url.Parse(s.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	for _, c := range s.Client.Jar.Cookies(u) {
		if c.Name == CSRFCookieName {
			return c.Value
		}
	}
	return ""
}

func (s *Server) do(t testing.TB, req *http.Request) (*http.Response, []byte) {
	t.Helper()

	resp, err := s.Client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, body
}
