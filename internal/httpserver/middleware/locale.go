package middleware

import (
	"context"
	"net/http"

	"finitefield.org/enquete-web/internal/i18n"
)

type localeContextKey string

const localizerContextKey localeContextKey = "i18n.localizer"

// Locale resolves the preferred language: the hl query parameter first, then
// the locale stored in the session, then Accept-Language. The choice is kept
// in the session and surfaced as Content-Language.
func Locale(bundle *i18n.Bundle) func(http.Handler) http.Handler {
	if bundle == nil {
		panic("i18n bundle is required")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, _ := SessionFromContext(r.Context())

			lang := ""
			if q := r.URL.Query().Get("hl"); q != "" {
				if normalized, ok := bundle.Normalize(q); ok {
					lang = normalized
				}
			}
			if lang == "" && sess != nil && sess.Locale() != "" {
				if normalized, ok := bundle.Normalize(sess.Locale()); ok {
					lang = normalized
				}
			}
			if lang == "" {
				lang = bundle.Resolve(r.Header.Get("Accept-Language"))
			}
			if sess != nil {
				sess.SetLocale(lang)
			}

			w.Header().Add("Vary", "Accept-Language")
			w.Header().Set("Content-Language", lang)

			ctx := context.WithValue(r.Context(), localizerContextKey, bundle.Localizer(lang))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LocalizerFromContext returns the localizer chosen for this request. The zero
// Localizer echoes message keys.
func LocalizerFromContext(ctx context.Context) i18n.Localizer {
	loc, _ := ctx.Value(localizerContextKey).(i18n.Localizer)
	return loc
}
