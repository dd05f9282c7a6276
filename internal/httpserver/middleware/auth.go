package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"finitefield.org/enquete-web/internal/observability"
	"finitefield.org/enquete-web/internal/session"
)

type authContextKey string

const accountContextKey authContextKey = "auth.account"

const (
	// ReasonMissingAccount indicates a request without a signed-in account.
	ReasonMissingAccount = "missing_account"
	// ReasonTokenExpired indicates the stored access token is past its expiry.
	ReasonTokenExpired = "token_expired"
)

// RequireAccount lets the request through only when the session carries a
// signed-in account; otherwise the visitor is sent to loginPath.
func RequireAccount(loginPath string, now func() time.Time) func(http.Handler) http.Handler {
	if loginPath == "" {
		loginPath = "/login"
	}
	if now == nil {
		now = time.Now
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, _ := SessionFromContext(r.Context())
			var account *session.Account
			if sess != nil {
				account = sess.Account()
			}

			reason := ""
			switch {
			case account == nil || strings.TrimSpace(account.AccessToken) == "":
				reason = ReasonMissingAccount
			case !account.ExpiresAt.IsZero() && now().After(account.ExpiresAt):
				reason = ReasonTokenExpired
			}
			if reason != "" {
				observability.FromContext(r.Context()).Info("auth failure", zap.String("reason", reason))
				if sess != nil && account != nil {
					sess.SetAccount(nil)
				}
				handleUnauthorized(w, r, loginPath, reason)
				return
			}

			ctx := context.WithValue(r.Context(), accountContextKey, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccountFromContext retrieves the signed-in account if present.
func AccountFromContext(ctx context.Context) (*session.Account, bool) {
	account, ok := ctx.Value(accountContextKey).(*session.Account)
	return account, ok && account != nil
}

func handleUnauthorized(w http.ResponseWriter, r *http.Request, loginPath, reason string) {
	if IsHTMXRequest(r.Context()) {
		w.Header().Set("HX-Redirect", loginPath)
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	redirectURL := loginPath
	if reason == ReasonTokenExpired {
		redirectURL = loginPath + "?reason=expired"
	}
	http.Redirect(w, r, redirectURL, http.StatusFound)
}
