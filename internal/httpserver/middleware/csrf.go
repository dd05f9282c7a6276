package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"finitefield.org/enquete-web/internal/observability"
)

type csrfContextKey string

const csrfTokenContextKey csrfContextKey = "csrf.token"

const (
	// CSRFFormField is the form field accepted as an alternative to the header.
	CSRFFormField = "_csrf"

	csrfTokenBytes = 32
)

// CSRFConfig controls cookie/header behaviour.
type CSRFConfig struct {
	CookieName string
	CookiePath string
	HeaderName string
	MaxAge     time.Duration
	Secure     bool
}

// csrfGuard implements the double-submit cookie check for one configuration.
type csrfGuard struct {
	cookie *http.Cookie
	header string
}

func newCSRFGuard(cfg CSRFConfig) *csrfGuard {
	g := &csrfGuard{
		cookie: &http.Cookie{
			Name:     cfg.CookieName,
			Path:     cfg.CookiePath,
			MaxAge:   int(cfg.MaxAge.Seconds()),
			Secure:   cfg.Secure,
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
		},
		header: cfg.HeaderName,
	}
	if g.cookie.Name == "" {
		g.cookie.Name = "enquete_csrf"
	}
	if g.cookie.Path == "" {
		g.cookie.Path = "/"
	}
	if g.cookie.MaxAge <= 0 {
		g.cookie.MaxAge = int((24 * time.Hour).Seconds())
	}
	if g.header == "" {
		g.header = "X-CSRF-Token"
	}
	return g
}

// CSRF attaches double-submit cookie protection. Every request carries a
// token cookie; unsafe methods must echo it through the configured header
// (htmx) or the _csrf form field (plain form posts).
func CSRF(cfg CSRFConfig) func(http.Handler) http.Handler {
	guard := newCSRFGuard(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := observability.FromContext(r.Context())

			token, issued := guard.current(r)
			if !issued {
				var err error
				if token, err = guard.issue(w, r); err != nil {
					logger.Error("csrf token generation failed", zap.Error(err))
					http.Error(w, "csrf token error", http.StatusInternalServerError)
					return
				}
			}

			if requiresCSRF(r.Method) && !guard.matches(r, token) {
				logger.Warn("csrf token mismatch", zap.Bool("fresh_token", !issued))
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), csrfTokenContextKey, token)))
		})
	}
}

// CSRFTokenFromContext returns the token issued for the current request (to embed in forms or meta tags).
func CSRFTokenFromContext(ctx context.Context) string {
	if token, ok := ctx.Value(csrfTokenContextKey).(string); ok {
		return token
	}
	return ""
}

// current returns the token held by the client. Values that could not have
// been issued here are ignored.
func (g *csrfGuard) current(r *http.Request) (string, bool) {
	c, err := r.Cookie(g.cookie.Name)
	if err != nil {
		return "", false
	}
	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil || len(raw) != csrfTokenBytes {
		return "", false
	}
	return c.Value, true
}

func (g *csrfGuard) issue(w http.ResponseWriter, r *http.Request) (string, error) {
	raw := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("csrf: read random: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	cookie := *g.cookie
	cookie.Value = token
	cookie.Secure = cookie.Secure || r.TLS != nil
	http.SetCookie(w, &cookie)
	return token, nil
}

func (g *csrfGuard) matches(r *http.Request, token string) bool {
	submitted := r.Header.Get(g.header)
	if submitted == "" {
		submitted = r.PostFormValue(CSRFFormField)
	}
	return submitted != "" && subtle.ConstantTimeCompare([]byte(submitted), []byte(token)) == 1
}

func requiresCSRF(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	default:
		return true
	}
}
