package middleware

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"finitefield.org/enquete-web/internal/observability"
	"finitefield.org/enquete-web/internal/session"
)

type sessionContextKey string

const requestSessionKey sessionContextKey = "enquete.session"

// SessionStore abstracts the session manager for middleware integration.
type SessionStore interface {
	Load(*http.Request) (*session.Session, error)
	New() *session.Session
	Save(http.ResponseWriter, *session.Session) error
	Destroy(http.ResponseWriter)
}

// Session attaches the decoded session to the request context and persists it
// back to the client cookie right before the response headers are sent.
func Session(store SessionStore) func(http.Handler) http.Handler {
	if store == nil {
		panic("session store is required")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := observability.FromContext(r.Context())

			sess, err := store.Load(r)
			if errors.Is(err, session.ErrExpired) {
				logger.Info("session expired: resetting")
				store.Destroy(w)
				sess = store.New()
			} else if err != nil || sess == nil {
				if err != nil {
					logger.Warn("session load failed", zap.Error(err))
				}
				sess = store.New()
			}

			sw := &sessionWriter{ResponseWriter: w}
			sw.beforeWrite = func() {
				if err := store.Save(w, sess); err != nil {
					logger.Error("session save failed", zap.Error(err))
				}
			}

			ctx := context.WithValue(r.Context(), requestSessionKey, sess)
			next.ServeHTTP(sw, r.WithContext(ctx))

			if !sw.wroteHeader {
				sw.flushSession()
			}
		})
	}
}

// SessionFromContext retrieves the session attached to this request.
func SessionFromContext(ctx context.Context) (*session.Session, bool) {
	if ctx == nil {
		return nil, false
	}
	sess, ok := ctx.Value(requestSessionKey).(*session.Session)
	return sess, ok && sess != nil
}

// sessionWriter saves the session once, just before the status line is written.
type sessionWriter struct {
	http.ResponseWriter
	beforeWrite func()
	wroteHeader bool
	saved       bool
}

func (w *sessionWriter) flushSession() {
	if w.saved {
		return
	}
	w.saved = true
	w.beforeWrite()
}

func (w *sessionWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.flushSession()
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *sessionWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
