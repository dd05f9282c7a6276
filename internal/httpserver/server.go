package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	custommw "finitefield.org/enquete-web/internal/httpserver/middleware"
	"finitefield.org/enquete-web/internal/i18n"
	"finitefield.org/enquete-web/internal/login"
	"finitefield.org/enquete-web/internal/observability"
	"finitefield.org/enquete-web/public"
)

const (
	loginPath    = "/login"
	validatePath = "/login/validate"
	logoutPath   = "/logout"
	homePath     = "/"
)

// Config holds runtime options for the web HTTP server.
type Config struct {
	Address     string
	Environment string
	Logger      *zap.Logger

	Sessions custommw.SessionStore
	Registry *login.Registry
	Locales  *i18n.Bundle

	CSRFCookieName   string
	CSRFCookieSecure bool
	CSRFHeaderName   string

	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	HandlerTimeout time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

// New constructs the HTTP server with middleware stack and embedded assets.
func New(cfg Config) *http.Server {
	if cfg.Sessions == nil {
		panic("httpserver: session store is required")
	}
	if cfg.Registry == nil {
		panic("httpserver: login registry is required")
	}
	if cfg.Locales == nil {
		panic("httpserver: locale bundle is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NoopLogger()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	csrfHeader := cfg.CSRFHeaderName
	if csrfHeader == "" {
		csrfHeader = "X-CSRF-Token"
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(observability.InjectLogger(logger.With(zap.String("environment", cfg.Environment))))
	router.Use(observability.RequestLogger())
	router.Use(observability.Recoverer())
	router.Use(chimw.Timeout(durationOr(cfg.HandlerTimeout, 60*time.Second)))

	staticContent, err := public.StaticFS()
	if err != nil {
		logger.Fatal("embed static", zap.Error(err))
	}
	router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticContent))))
	router.Get("/healthz", healthz)

	handlers := &loginHandlers{
		registry:   cfg.Registry,
		csrfHeader: csrfHeader,
		now:        now,
	}

	router.Group(func(r chi.Router) {
		r.Use(custommw.HTMX())
		r.Use(custommw.NoStore())
		r.Use(custommw.Session(cfg.Sessions))
		r.Use(custommw.Locale(cfg.Locales))
		r.Use(custommw.CSRF(custommw.CSRFConfig{
			CookieName: cfg.CSRFCookieName,
			HeaderName: csrfHeader,
			Secure:     cfg.CSRFCookieSecure,
		}))

		r.Get(loginPath, handlers.LoginPage)
		r.Post(validatePath, handlers.Validate)
		r.Post(loginPath, handlers.Submit)
		r.Post(logoutPath, handlers.Logout)
		r.With(custommw.RequireAccount(loginPath, now)).Get(homePath, handlers.Home)
	})

	return &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  durationOr(cfg.ReadTimeout, 10*time.Second),
		WriteTimeout: durationOr(cfg.WriteTimeout, 30*time.Second),
		IdleTimeout:  durationOr(cfg.IdleTimeout, 60*time.Second),
	}
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func durationOr(value, fallback time.Duration) time.Duration {
	if value > 0 {
		return value
	}
	return fallback
}
